package models

import "fmt"

// Intents the router dispatches on. The set is closed; the upstream intent
// classifier produces exactly one of these.
const (
	IntentOperation          = "operation"
	IntentHealthConsultation = "health_consultation"
	IntentUserRecommendation = "user_recommendation"
	IntentTutorial           = "tutorial"
	IntentSystemInquiry      = "system_inquiry"
	IntentFeeding            = "feeding"
	IntentGeneral            = "general"
)

// Entities are filters extracted upstream from the utterance.
type Entities struct {
	PetType  string `json:"pet_type,omitempty"`
	PetBreed string `json:"pet_breed,omitempty"`
	Symptom  string `json:"symptom,omitempty"`
}

// Empty reports whether no entity was extracted.
func (e Entities) Empty() bool {
	return e.PetType == "" && e.PetBreed == "" && e.Symptom == ""
}

// QueryRequest is a classified query handed to the router.
type QueryRequest struct {
	Intent   string   `json:"intent"`
	SubType  string   `json:"sub_type,omitempty"`
	UserID   int64    `json:"user_id,omitempty"`
	Query    string   `json:"query"`
	Entities Entities `json:"entities,omitempty"`
	Limit    int      `json:"limit,omitempty"`
}

// Validate checks the request and normalizes the limit.
func (q *QueryRequest) Validate() error {
	if q.Query == "" {
		return fmt.Errorf("query cannot be empty")
	}
	switch q.Intent {
	case IntentOperation, IntentHealthConsultation, IntentUserRecommendation,
		IntentTutorial, IntentSystemInquiry, IntentFeeding, IntentGeneral:
	default:
		return fmt.Errorf("unknown intent: %q", q.Intent)
	}
	if q.Limit <= 0 {
		q.Limit = 5
	}
	if q.Limit > 50 {
		q.Limit = 50
	}
	return nil
}

// ArchiveFilters narrow a disease-archive search. Empty string fields mean
// "no constraint"; ExcludeOwnerID 0 means no owner exclusion.
type ArchiveFilters struct {
	ExcludeOwnerID int64  `json:"exclude_owner_id,omitempty"`
	PetType        string `json:"pet_type,omitempty"`
	PetBreed       string `json:"pet_breed,omitempty"`
}
