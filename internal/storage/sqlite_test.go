package storage

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/pawlink/recall/internal/models"
)

func newTestStorage(t *testing.T) *SQLiteStorage {
	t.Helper()
	s, err := NewSQLiteStorage(filepath.Join(t.TempDir(), "recall.db"))
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func seedUser(t *testing.T, s *SQLiteStorage, nickname string, public bool, pets ...*models.Pet) *models.UserProfile {
	t.Helper()
	ctx := context.Background()
	u := &models.UserProfile{Nickname: nickname, IsPublic: public}
	if err := s.CreateUser(ctx, u); err != nil {
		t.Fatal(err)
	}
	for _, p := range pets {
		p.OwnerID = u.ID
		if err := s.CreatePet(ctx, p); err != nil {
			t.Fatal(err)
		}
	}
	return u
}

func TestListPublicUsers_SkipsPrivate(t *testing.T) {
	s := newTestStorage(t)
	seedUser(t, s, "open", true, &models.Pet{Name: "Rex", Type: "dog", Breed: "Corgi"})
	seedUser(t, s, "hidden", false)

	users, err := s.ListPublicUsers(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if len(users) != 1 {
		t.Fatalf("got %d users, want 1", len(users))
	}
	if users[0].Nickname != "open" {
		t.Errorf("got %q", users[0].Nickname)
	}
	if len(users[0].Pets) != 1 || users[0].Pets[0].Breed != "Corgi" {
		t.Error("pets not joined")
	}
}

func TestFindUsersByPetBreed(t *testing.T) {
	s := newTestStorage(t)
	ctx := context.Background()
	corgi := seedUser(t, s, "corgi-owner", true, &models.Pet{Name: "A", Type: "dog", Breed: "Welsh Corgi"})
	seedUser(t, s, "cat-owner", true, &models.Pet{Name: "B", Type: "cat", Breed: "Ragdoll"})
	seedUser(t, s, "private-corgi", false, &models.Pet{Name: "C", Type: "dog", Breed: "Corgi"})

	users, err := s.FindUsersByPetBreed(ctx, "corgi", "")
	if err != nil {
		t.Fatal(err)
	}
	if len(users) != 1 || users[0].ID != corgi.ID {
		t.Fatalf("breed substring match failed: %+v", users)
	}

	// type constraint excludes non-matching type
	users, err = s.FindUsersByPetBreed(ctx, "corgi", "cat")
	if err != nil {
		t.Fatal(err)
	}
	if len(users) != 0 {
		t.Errorf("type filter not applied")
	}

	// empty breed means no relational lookup
	users, err = s.FindUsersByPetBreed(ctx, "", "dog")
	if err != nil {
		t.Fatal(err)
	}
	if users != nil {
		t.Errorf("empty breed should return nil")
	}
}

func TestFollowedIDs(t *testing.T) {
	s := newTestStorage(t)
	ctx := context.Background()
	a := seedUser(t, s, "a", true)
	b := seedUser(t, s, "b", true)
	if err := s.CreateFollow(ctx, a.ID, b.ID); err != nil {
		t.Fatal(err)
	}
	// duplicate follow is ignored
	if err := s.CreateFollow(ctx, a.ID, b.ID); err != nil {
		t.Fatal(err)
	}
	ids, err := s.FollowedIDs(ctx, a.ID)
	if err != nil {
		t.Fatal(err)
	}
	if len(ids) != 1 || ids[0] != b.ID {
		t.Errorf("FollowedIDs = %v", ids)
	}
}

func TestPetMatch(t *testing.T) {
	s := newTestStorage(t)
	ctx := context.Background()
	u := seedUser(t, s, "owner", true,
		&models.Pet{Name: "A", Type: "Dog", Breed: "Golden Retriever"})

	breed, typ, err := s.PetMatch(ctx, u.ID, "retriever", "dog")
	if err != nil {
		t.Fatal(err)
	}
	if !breed || !typ {
		t.Errorf("case-insensitive match failed: breed=%v type=%v", breed, typ)
	}

	breed, typ, err = s.PetMatch(ctx, u.ID, "", "")
	if err != nil {
		t.Fatal(err)
	}
	if breed || typ {
		t.Error("empty filters should match nothing")
	}
}

func TestListPublicArchives_SkipsPrivate(t *testing.T) {
	s := newTestStorage(t)
	ctx := context.Background()
	if err := s.CreateArchive(ctx, &models.DiseaseArchive{OwnerID: 1, DiseaseName: "parvo", PetType: "dog"}); err != nil {
		t.Fatal(err)
	}
	if err := s.CreateArchive(ctx, &models.DiseaseArchive{OwnerID: 2, DiseaseName: "secret", IsPrivate: true}); err != nil {
		t.Fatal(err)
	}
	archives, err := s.ListPublicArchives(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if len(archives) != 1 || archives[0].DiseaseName != "parvo" {
		t.Errorf("private archive not skipped: %+v", archives)
	}
}

func TestFAQAndOperations(t *testing.T) {
	s := newTestStorage(t)
	ctx := context.Background()
	if err := s.CreateFAQ(ctx, &models.FAQ{Question: "How do I reset my password?", Answer: "Settings > Security."}); err != nil {
		t.Fatal(err)
	}
	if err := s.CreateOperation(ctx, &models.Operation{Name: "post feed", Description: "publish a post", Route: "/feed/new"}); err != nil {
		t.Fatal(err)
	}
	faqs, err := s.ListFAQs(ctx)
	if err != nil || len(faqs) != 1 {
		t.Fatalf("ListFAQs: %v, %d", err, len(faqs))
	}
	ops, err := s.ListOperations(ctx)
	if err != nil || len(ops) != 1 {
		t.Fatalf("ListOperations: %v, %d", err, len(ops))
	}
	if ops[0].Route != "/feed/new" {
		t.Errorf("route = %q", ops[0].Route)
	}
}
