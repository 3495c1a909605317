package models

// Envelope is the uniform result of a routed query. RetrievedData is
// handler-specific ("users", "archives", "faqs", "operations", "feeds").
type Envelope struct {
	Intent        string                 `json:"intent"`
	SubType       string                 `json:"sub_type,omitempty"`
	RetrievedData map[string]interface{} `json:"retrieved_data"`
}

// EmptyEnvelope returns a degraded envelope with no retrieved data, used when
// embedding fails or a handler has nothing to return.
func EmptyEnvelope(intent, subType string) *Envelope {
	return &Envelope{
		Intent:        intent,
		SubType:       subType,
		RetrievedData: map[string]interface{}{},
	}
}
