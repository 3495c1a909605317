// Package storage defines the backing relational store for business entities.
// The engine reads it in bulk during index builds and point-queries it during
// hybrid ranking; writes exist for seeding and for the layers that own the
// business entities.
package storage

import (
	"context"

	"github.com/pawlink/recall/internal/models"
)

// Storage is the relational store interface.
type Storage interface {
	// Bulk loads for index builds. Each returns only index-eligible rows
	// (public users, non-private archives); ineligible rows are skipped at the
	// source, never indexed and hidden.
	ListPublicUsers(ctx context.Context) ([]*models.UserProfile, error)
	ListPublicPets(ctx context.Context) ([]*models.Pet, error)
	ListFeeds(ctx context.Context) ([]*models.Feed, error)
	ListPublicArchives(ctx context.Context) ([]*models.DiseaseArchive, error)
	ListFAQs(ctx context.Context) ([]*models.FAQ, error)
	ListOperations(ctx context.Context) ([]*models.Operation, error)

	// Ranking lookups.
	// FindUsersByPetBreed returns public users owning any pet whose breed
	// contains breed (case-insensitive); petType additionally requires an
	// exact type match when non-empty.
	FindUsersByPetBreed(ctx context.Context, breed, petType string) ([]*models.UserProfile, error)
	// FollowedIDs returns ids of users that userID already follows.
	FollowedIDs(ctx context.Context, userID int64) ([]int64, error)
	// PetMatch reports whether any pet of userID matches breed (substring,
	// case-insensitive) and petType (exact, case-insensitive). Empty arguments
	// match nothing for their respective flag.
	PetMatch(ctx context.Context, userID int64, breed, petType string) (breedMatch, typeMatch bool, err error)
	// GetUser returns the profile (with pets) for id.
	GetUser(ctx context.Context, id int64) (*models.UserProfile, error)

	// Writes, used by seeding and tests.
	CreateUser(ctx context.Context, u *models.UserProfile) error
	CreatePet(ctx context.Context, p *models.Pet) error
	CreateFollow(ctx context.Context, followerID, followeeID int64) error
	CreateFeed(ctx context.Context, f *models.Feed) error
	CreateArchive(ctx context.Context, a *models.DiseaseArchive) error
	CreateFAQ(ctx context.Context, f *models.FAQ) error
	CreateOperation(ctx context.Context, o *models.Operation) error

	Close() error
}
