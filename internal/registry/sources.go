package registry

import (
	"context"
	"fmt"
	"strings"

	"github.com/pawlink/recall/internal/models"
	"github.com/pawlink/recall/internal/storage"
)

// Sources builds the EntitySource for every entity type, keyed by entity name.
func Sources(store storage.Storage) map[string]EntitySource {
	return map[string]EntitySource{
		models.EntityUser:            &userSource{store},
		models.EntityPet:             &petSource{store},
		models.EntityFeed:            &feedSource{store},
		models.EntityDiseaseArchive:  &archiveSource{store},
		models.EntitySystemOperation: &operationSource{store},
		models.EntitySystemFAQ:       &faqSource{store},
	}
}

type userSource struct{ store storage.Storage }

func (s *userSource) Entity() string { return models.EntityUser }

// RenderText concatenates the profile fields a follower would match on:
// nickname, city, bio, and each pet's type/breed/intro.
func (s *userSource) RenderText(u *models.UserProfile) string {
	parts := []string{u.Nickname}
	if u.City != "" {
		parts = append(parts, u.City)
	}
	if u.Bio != "" {
		parts = append(parts, u.Bio)
	}
	for _, p := range u.Pets {
		parts = append(parts, strings.TrimSpace(fmt.Sprintf("%s %s %s", p.Type, p.Breed, p.Intro)))
	}
	return strings.Join(parts, " ")
}

func (s *userSource) LoadAll(ctx context.Context) ([]Seed, error) {
	users, err := s.store.ListPublicUsers(ctx)
	if err != nil {
		return nil, fmt.Errorf("load users: %w", err)
	}
	seeds := make([]Seed, 0, len(users))
	for _, u := range users {
		meta := models.Metadata{
			models.MetaNickname: u.Nickname,
			models.MetaCity:     u.City,
		}
		if len(u.Pets) > 0 {
			meta[models.MetaPetType] = u.Pets[0].Type
			meta[models.MetaPetBreed] = u.Pets[0].Breed
		}
		seeds = append(seeds, Seed{ID: u.ID, Text: s.RenderText(u), Metadata: meta})
	}
	return seeds, nil
}

type petSource struct{ store storage.Storage }

func (s *petSource) Entity() string { return models.EntityPet }

func (s *petSource) RenderText(p *models.Pet) string {
	return strings.TrimSpace(strings.Join([]string{p.Name, p.Type, p.Breed, p.Intro}, " "))
}

func (s *petSource) LoadAll(ctx context.Context) ([]Seed, error) {
	pets, err := s.store.ListPublicPets(ctx)
	if err != nil {
		return nil, fmt.Errorf("load pets: %w", err)
	}
	seeds := make([]Seed, 0, len(pets))
	for _, p := range pets {
		seeds = append(seeds, Seed{
			ID:   p.ID,
			Text: s.RenderText(p),
			Metadata: models.Metadata{
				models.MetaOwnerID:  p.OwnerID,
				models.MetaName:     p.Name,
				models.MetaPetType:  p.Type,
				models.MetaPetBreed: p.Breed,
			},
		})
	}
	return seeds, nil
}

type feedSource struct{ store storage.Storage }

func (s *feedSource) Entity() string { return models.EntityFeed }

func (s *feedSource) RenderText(f *models.Feed) string {
	return strings.TrimSpace(strings.Join([]string{f.Title, f.Content, f.Tags}, " "))
}

func (s *feedSource) LoadAll(ctx context.Context) ([]Seed, error) {
	feeds, err := s.store.ListFeeds(ctx)
	if err != nil {
		return nil, fmt.Errorf("load feeds: %w", err)
	}
	seeds := make([]Seed, 0, len(feeds))
	for _, f := range feeds {
		seeds = append(seeds, Seed{
			ID:   f.ID,
			Text: s.RenderText(f),
			Metadata: models.Metadata{
				models.MetaOwnerID: f.AuthorID,
				models.MetaTitle:   f.Title,
			},
		})
	}
	return seeds, nil
}

type archiveSource struct{ store storage.Storage }

func (s *archiveSource) Entity() string { return models.EntityDiseaseArchive }

// RenderText joins disease name, symptoms, and treatment; pet type and breed
// lead so the embedding carries the species context.
func (s *archiveSource) RenderText(a *models.DiseaseArchive) string {
	return strings.TrimSpace(strings.Join(
		[]string{a.PetType, a.PetBreed, a.DiseaseName, a.Symptoms, a.Treatment}, " "))
}

// ArchiveSeed renders a single archive to a Seed; the upsert path uses it for
// incremental adds without a full reload.
func ArchiveSeed(a *models.DiseaseArchive) Seed {
	src := &archiveSource{}
	return Seed{
		ID:   a.ID,
		Text: src.RenderText(a),
		Metadata: models.Metadata{
			models.MetaOwnerID:  a.OwnerID,
			models.MetaPetType:  a.PetType,
			models.MetaPetBreed: a.PetBreed,
			models.MetaDisease:  a.DiseaseName,
			models.MetaSymptoms: a.Symptoms,
		},
	}
}

func (s *archiveSource) LoadAll(ctx context.Context) ([]Seed, error) {
	archives, err := s.store.ListPublicArchives(ctx)
	if err != nil {
		return nil, fmt.Errorf("load archives: %w", err)
	}
	seeds := make([]Seed, 0, len(archives))
	for _, a := range archives {
		seeds = append(seeds, ArchiveSeed(a))
	}
	return seeds, nil
}

type operationSource struct{ store storage.Storage }

func (s *operationSource) Entity() string { return models.EntitySystemOperation }

func (s *operationSource) RenderText(o *models.Operation) string {
	return strings.TrimSpace(o.Name + " " + o.Description)
}

func (s *operationSource) LoadAll(ctx context.Context) ([]Seed, error) {
	ops, err := s.store.ListOperations(ctx)
	if err != nil {
		return nil, fmt.Errorf("load operations: %w", err)
	}
	seeds := make([]Seed, 0, len(ops))
	for _, o := range ops {
		seeds = append(seeds, Seed{
			ID:   o.ID,
			Text: s.RenderText(o),
			Metadata: models.Metadata{
				models.MetaName:  o.Name,
				models.MetaRoute: o.Route,
			},
		})
	}
	return seeds, nil
}

type faqSource struct{ store storage.Storage }

func (s *faqSource) Entity() string { return models.EntitySystemFAQ }

func (s *faqSource) RenderText(f *models.FAQ) string {
	return strings.TrimSpace(f.Question + " " + f.Answer)
}

func (s *faqSource) LoadAll(ctx context.Context) ([]Seed, error) {
	faqs, err := s.store.ListFAQs(ctx)
	if err != nil {
		return nil, fmt.Errorf("load faqs: %w", err)
	}
	seeds := make([]Seed, 0, len(faqs))
	for _, f := range faqs {
		seeds = append(seeds, Seed{
			ID:   f.ID,
			Text: s.RenderText(f),
			Metadata: models.Metadata{
				models.MetaQuestion: f.Question,
				models.MetaAnswer:   f.Answer,
			},
		})
	}
	return seeds, nil
}
