package models

import "time"

// UserProfile is a user row from the backing relational store, with pets joined.
type UserProfile struct {
	ID        int64     `json:"id" db:"id"`
	Nickname  string    `json:"nickname" db:"nickname"`
	Bio       string    `json:"bio" db:"bio"`
	City      string    `json:"city" db:"city"`
	IsPublic  bool      `json:"is_public" db:"is_public"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
	Pets      []*Pet    `json:"pets,omitempty"`
}

// Pet is a pet row owned by a user.
type Pet struct {
	ID      int64  `json:"id" db:"id"`
	OwnerID int64  `json:"owner_id" db:"owner_id"`
	Name    string `json:"name" db:"name"`
	Type    string `json:"type" db:"type"`
	Breed   string `json:"breed" db:"breed"`
	Intro   string `json:"intro" db:"intro"`
}

// Feed is a community post.
type Feed struct {
	ID        int64     `json:"id" db:"id"`
	AuthorID  int64     `json:"author_id" db:"author_id"`
	Title     string    `json:"title" db:"title"`
	Content   string    `json:"content" db:"content"`
	Tags      string    `json:"tags" db:"tags"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
}

// DiseaseArchive is a pet illness record shared by an owner.
type DiseaseArchive struct {
	ID          int64  `json:"id" db:"id"`
	OwnerID     int64  `json:"owner_id" db:"owner_id"`
	PetType     string `json:"pet_type" db:"pet_type"`
	PetBreed    string `json:"pet_breed" db:"pet_breed"`
	DiseaseName string `json:"disease_name" db:"disease_name"`
	Symptoms    string `json:"symptoms" db:"symptoms"`
	Treatment   string `json:"treatment" db:"treatment"`
	IsPrivate   bool   `json:"is_private" db:"is_private"`
}

// FAQ is a system question/answer entry.
type FAQ struct {
	ID       int64  `json:"id" db:"id"`
	Question string `json:"question" db:"question"`
	Answer   string `json:"answer" db:"answer"`
	Category string `json:"category" db:"category"`
}

// Operation describes a system action the app can perform (used to route
// "how do I..." utterances to concrete screens).
type Operation struct {
	ID          int64  `json:"id" db:"id"`
	Name        string `json:"name" db:"name"`
	Description string `json:"description" db:"description"`
	Route       string `json:"route" db:"route"`
}
