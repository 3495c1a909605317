// Package models defines core data structures for vector records, queries, and
// recommendation results.
package models

// Metadata holds denormalized entity fields used for filtering and display.
type Metadata map[string]interface{}

// VectorRecord is one indexed entity: a unique id, its unit-norm embedding, and
// denormalized metadata. Within a store all embeddings share the same dimension.
type VectorRecord struct {
	ID        int64     `json:"id"`
	Embedding []float32 `json:"-"`
	Metadata  Metadata  `json:"metadata"`
}

// Candidate is an ephemeral ranking unit produced during a search or rank call.
// Similarity is cosine similarity in [-1, 1]; PriorityScore is the blended
// relational + similarity score used for final ordering.
type Candidate struct {
	ID            int64    `json:"id"`
	Similarity    float64  `json:"similarity"`
	Metadata      Metadata `json:"metadata"`
	PriorityScore float64  `json:"priority_score"`
}

// Entity types, one per vector store.
const (
	EntityUser            = "user"
	EntityPet             = "pet"
	EntityFeed            = "feed"
	EntityDiseaseArchive  = "disease_archive"
	EntitySystemOperation = "system_operation"
	EntitySystemFAQ       = "system_faq"
)

// EntityTypes lists all entity types with a vector store, in stable order.
var EntityTypes = []string{
	EntityUser,
	EntityPet,
	EntityFeed,
	EntityDiseaseArchive,
	EntitySystemOperation,
	EntitySystemFAQ,
}

// ValidEntity reports whether entity names a known store.
func ValidEntity(entity string) bool {
	for _, e := range EntityTypes {
		if e == entity {
			return true
		}
	}
	return false
}

// Metadata keys shared across stores.
const (
	MetaOwnerID  = "owner_id"
	MetaPetType  = "pet_type"
	MetaPetBreed = "pet_breed"
	MetaNickname = "nickname"
	MetaCity     = "city"
	MetaTitle    = "title"
	MetaQuestion = "question"
	MetaAnswer   = "answer"
	MetaName     = "name"
	MetaRoute    = "route"
	MetaDisease  = "disease_name"
	MetaSymptoms = "symptoms"
)

// MetaString returns the string value for key, or "" when absent or not a string.
func (m Metadata) MetaString(key string) string {
	if m == nil {
		return ""
	}
	if s, ok := m[key].(string); ok {
		return s
	}
	return ""
}

// MetaInt64 returns the int64 value for key. JSON round trips store numbers as
// float64, so both representations are accepted.
func (m Metadata) MetaInt64(key string) int64 {
	if m == nil {
		return 0
	}
	switch v := m[key].(type) {
	case int64:
		return v
	case int:
		return int64(v)
	case float64:
		return int64(v)
	}
	return 0
}
