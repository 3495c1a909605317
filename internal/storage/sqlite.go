// Package storage provides the SQLite implementation of Storage.
package storage

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/pawlink/recall/internal/models"
)

// SQLiteStorage implements Storage using SQLite.
type SQLiteStorage struct {
	db *sql.DB
}

// NewSQLiteStorage opens or creates a SQLite database at dbPath and initializes
// the schema. Parent directories are created if they do not exist.
func NewSQLiteStorage(dbPath string) (*SQLiteStorage, error) {
	if dir := filepath.Dir(dbPath); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create database directory: %w", err)
		}
	}
	db, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("enable WAL: %w", err)
	}
	if _, err := db.Exec("PRAGMA foreign_keys=ON"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("enable foreign keys: %w", err)
	}
	if err := initSchema(db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("initialize schema: %w", err)
	}
	return &SQLiteStorage{db: db}, nil
}

func initSchema(db *sql.DB) error {
	schema := `
	CREATE TABLE IF NOT EXISTS users (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		nickname TEXT NOT NULL,
		bio TEXT,
		city TEXT,
		is_public INTEGER NOT NULL DEFAULT 1,
		created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
	);

	CREATE TABLE IF NOT EXISTS pets (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		owner_id INTEGER NOT NULL,
		name TEXT NOT NULL,
		type TEXT,
		breed TEXT,
		intro TEXT,
		FOREIGN KEY (owner_id) REFERENCES users(id) ON DELETE CASCADE
	);
	CREATE INDEX IF NOT EXISTS idx_pets_owner_id ON pets(owner_id);
	CREATE INDEX IF NOT EXISTS idx_pets_breed ON pets(breed);

	CREATE TABLE IF NOT EXISTS follows (
		follower_id INTEGER NOT NULL,
		followee_id INTEGER NOT NULL,
		PRIMARY KEY (follower_id, followee_id)
	);

	CREATE TABLE IF NOT EXISTS feeds (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		author_id INTEGER NOT NULL,
		title TEXT,
		content TEXT NOT NULL,
		tags TEXT,
		created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
	);

	CREATE TABLE IF NOT EXISTS disease_archives (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		owner_id INTEGER NOT NULL,
		pet_type TEXT,
		pet_breed TEXT,
		disease_name TEXT NOT NULL,
		symptoms TEXT,
		treatment TEXT,
		is_private INTEGER NOT NULL DEFAULT 0
	);
	CREATE INDEX IF NOT EXISTS idx_archives_owner_id ON disease_archives(owner_id);

	CREATE TABLE IF NOT EXISTS system_faqs (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		question TEXT NOT NULL,
		answer TEXT NOT NULL,
		category TEXT
	);

	CREATE TABLE IF NOT EXISTS system_operations (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		name TEXT NOT NULL,
		description TEXT,
		route TEXT
	);
	`
	_, err := db.Exec(schema)
	return err
}

// ListPublicUsers returns public users with their pets attached.
func (s *SQLiteStorage) ListPublicUsers(ctx context.Context) ([]*models.UserProfile, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, nickname, bio, city, is_public, created_at
		 FROM users WHERE is_public = 1 ORDER BY id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var users []*models.UserProfile
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, err
		}
		users = append(users, u)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	for _, u := range users {
		pets, err := s.petsOf(ctx, u.ID)
		if err != nil {
			return nil, err
		}
		u.Pets = pets
	}
	return users, nil
}

// ListPublicPets returns pets whose owner's account is public.
func (s *SQLiteStorage) ListPublicPets(ctx context.Context) ([]*models.Pet, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT p.id, p.owner_id, p.name, p.type, p.breed, p.intro
		 FROM pets p JOIN users u ON u.id = p.owner_id
		 WHERE u.is_public = 1 ORDER BY p.id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanPets(rows)
}

// ListFeeds returns all community posts.
func (s *SQLiteStorage) ListFeeds(ctx context.Context) ([]*models.Feed, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, author_id, title, content, tags, created_at FROM feeds ORDER BY id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var feeds []*models.Feed
	for rows.Next() {
		var f models.Feed
		var title, tags sql.NullString
		var created time.Time
		if err := rows.Scan(&f.ID, &f.AuthorID, &title, &f.Content, &tags, &created); err != nil {
			return nil, err
		}
		f.Title, f.Tags, f.CreatedAt = title.String, tags.String, created
		feeds = append(feeds, &f)
	}
	return feeds, rows.Err()
}

// ListPublicArchives returns non-private disease archives.
func (s *SQLiteStorage) ListPublicArchives(ctx context.Context) ([]*models.DiseaseArchive, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, owner_id, pet_type, pet_breed, disease_name, symptoms, treatment, is_private
		 FROM disease_archives WHERE is_private = 0 ORDER BY id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var archives []*models.DiseaseArchive
	for rows.Next() {
		var a models.DiseaseArchive
		var petType, petBreed, symptoms, treatment sql.NullString
		if err := rows.Scan(&a.ID, &a.OwnerID, &petType, &petBreed, &a.DiseaseName,
			&symptoms, &treatment, &a.IsPrivate); err != nil {
			return nil, err
		}
		a.PetType, a.PetBreed = petType.String, petBreed.String
		a.Symptoms, a.Treatment = symptoms.String, treatment.String
		archives = append(archives, &a)
	}
	return archives, rows.Err()
}

// ListFAQs returns all system FAQ entries.
func (s *SQLiteStorage) ListFAQs(ctx context.Context) ([]*models.FAQ, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, question, answer, category FROM system_faqs ORDER BY id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var faqs []*models.FAQ
	for rows.Next() {
		var f models.FAQ
		var category sql.NullString
		if err := rows.Scan(&f.ID, &f.Question, &f.Answer, &category); err != nil {
			return nil, err
		}
		f.Category = category.String
		faqs = append(faqs, &f)
	}
	return faqs, rows.Err()
}

// ListOperations returns all system operation entries.
func (s *SQLiteStorage) ListOperations(ctx context.Context) ([]*models.Operation, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, name, description, route FROM system_operations ORDER BY id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var ops []*models.Operation
	for rows.Next() {
		var o models.Operation
		var desc, route sql.NullString
		if err := rows.Scan(&o.ID, &o.Name, &desc, &route); err != nil {
			return nil, err
		}
		o.Description, o.Route = desc.String, route.String
		ops = append(ops, &o)
	}
	return ops, rows.Err()
}

// FindUsersByPetBreed returns public users with any pet whose breed contains
// breed, optionally also requiring petType, with pets attached.
func (s *SQLiteStorage) FindUsersByPetBreed(ctx context.Context, breed, petType string) ([]*models.UserProfile, error) {
	if strings.TrimSpace(breed) == "" {
		return nil, nil
	}
	query := `SELECT DISTINCT u.id, u.nickname, u.bio, u.city, u.is_public, u.created_at
		 FROM users u JOIN pets p ON p.owner_id = u.id
		 WHERE u.is_public = 1 AND LOWER(p.breed) LIKE '%' || LOWER(?) || '%'`
	args := []interface{}{breed}
	if strings.TrimSpace(petType) != "" {
		query += ` AND LOWER(p.type) = LOWER(?)`
		args = append(args, petType)
	}
	query += ` ORDER BY u.id`

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var users []*models.UserProfile
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, err
		}
		users = append(users, u)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	for _, u := range users {
		pets, err := s.petsOf(ctx, u.ID)
		if err != nil {
			return nil, err
		}
		u.Pets = pets
	}
	return users, nil
}

// FollowedIDs returns ids followed by userID.
func (s *SQLiteStorage) FollowedIDs(ctx context.Context, userID int64) ([]int64, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT followee_id FROM follows WHERE follower_id = ?`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var ids []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

// PetMatch checks userID's pets directly against breed and petType.
func (s *SQLiteStorage) PetMatch(ctx context.Context, userID int64, breed, petType string) (bool, bool, error) {
	pets, err := s.petsOf(ctx, userID)
	if err != nil {
		return false, false, err
	}
	var breedMatch, typeMatch bool
	for _, p := range pets {
		if breed != "" && strings.Contains(strings.ToLower(p.Breed), strings.ToLower(breed)) {
			breedMatch = true
		}
		if petType != "" && strings.EqualFold(p.Type, petType) {
			typeMatch = true
		}
	}
	return breedMatch, typeMatch, nil
}

// GetUser returns the user with pets attached.
func (s *SQLiteStorage) GetUser(ctx context.Context, id int64) (*models.UserProfile, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, nickname, bio, city, is_public, created_at FROM users WHERE id = ?`, id)
	u, err := scanUser(row)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("user not found: %d", id)
	}
	if err != nil {
		return nil, err
	}
	pets, err := s.petsOf(ctx, id)
	if err != nil {
		return nil, err
	}
	u.Pets = pets
	return u, nil
}

// CreateUser inserts a user and fills in its id.
func (s *SQLiteStorage) CreateUser(ctx context.Context, u *models.UserProfile) error {
	if u.CreatedAt.IsZero() {
		u.CreatedAt = time.Now()
	}
	res, err := s.db.ExecContext(ctx,
		`INSERT INTO users (nickname, bio, city, is_public, created_at) VALUES (?, ?, ?, ?, ?)`,
		u.Nickname, u.Bio, u.City, u.IsPublic, u.CreatedAt)
	if err != nil {
		return err
	}
	u.ID, err = res.LastInsertId()
	return err
}

// CreatePet inserts a pet and fills in its id.
func (s *SQLiteStorage) CreatePet(ctx context.Context, p *models.Pet) error {
	res, err := s.db.ExecContext(ctx,
		`INSERT INTO pets (owner_id, name, type, breed, intro) VALUES (?, ?, ?, ?, ?)`,
		p.OwnerID, p.Name, p.Type, p.Breed, p.Intro)
	if err != nil {
		return err
	}
	p.ID, err = res.LastInsertId()
	return err
}

// CreateFollow records that followerID follows followeeID.
func (s *SQLiteStorage) CreateFollow(ctx context.Context, followerID, followeeID int64) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT OR IGNORE INTO follows (follower_id, followee_id) VALUES (?, ?)`,
		followerID, followeeID)
	return err
}

// CreateFeed inserts a feed and fills in its id.
func (s *SQLiteStorage) CreateFeed(ctx context.Context, f *models.Feed) error {
	if f.CreatedAt.IsZero() {
		f.CreatedAt = time.Now()
	}
	res, err := s.db.ExecContext(ctx,
		`INSERT INTO feeds (author_id, title, content, tags, created_at) VALUES (?, ?, ?, ?, ?)`,
		f.AuthorID, f.Title, f.Content, f.Tags, f.CreatedAt)
	if err != nil {
		return err
	}
	f.ID, err = res.LastInsertId()
	return err
}

// CreateArchive inserts a disease archive and fills in its id.
func (s *SQLiteStorage) CreateArchive(ctx context.Context, a *models.DiseaseArchive) error {
	res, err := s.db.ExecContext(ctx,
		`INSERT INTO disease_archives (owner_id, pet_type, pet_breed, disease_name, symptoms, treatment, is_private)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		a.OwnerID, a.PetType, a.PetBreed, a.DiseaseName, a.Symptoms, a.Treatment, a.IsPrivate)
	if err != nil {
		return err
	}
	a.ID, err = res.LastInsertId()
	return err
}

// CreateFAQ inserts a FAQ entry and fills in its id.
func (s *SQLiteStorage) CreateFAQ(ctx context.Context, f *models.FAQ) error {
	res, err := s.db.ExecContext(ctx,
		`INSERT INTO system_faqs (question, answer, category) VALUES (?, ?, ?)`,
		f.Question, f.Answer, f.Category)
	if err != nil {
		return err
	}
	f.ID, err = res.LastInsertId()
	return err
}

// CreateOperation inserts a system operation and fills in its id.
func (s *SQLiteStorage) CreateOperation(ctx context.Context, o *models.Operation) error {
	res, err := s.db.ExecContext(ctx,
		`INSERT INTO system_operations (name, description, route) VALUES (?, ?, ?)`,
		o.Name, o.Description, o.Route)
	if err != nil {
		return err
	}
	o.ID, err = res.LastInsertId()
	return err
}

// Close closes the database.
func (s *SQLiteStorage) Close() error {
	return s.db.Close()
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanUser(r rowScanner) (*models.UserProfile, error) {
	var u models.UserProfile
	var bio, city sql.NullString
	if err := r.Scan(&u.ID, &u.Nickname, &bio, &city, &u.IsPublic, &u.CreatedAt); err != nil {
		return nil, err
	}
	u.Bio, u.City = bio.String, city.String
	return &u, nil
}

func (s *SQLiteStorage) petsOf(ctx context.Context, ownerID int64) ([]*models.Pet, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, owner_id, name, type, breed, intro FROM pets WHERE owner_id = ? ORDER BY id`, ownerID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanPets(rows)
}

func scanPets(rows *sql.Rows) ([]*models.Pet, error) {
	var pets []*models.Pet
	for rows.Next() {
		var p models.Pet
		var typ, breed, intro sql.NullString
		if err := rows.Scan(&p.ID, &p.OwnerID, &p.Name, &typ, &breed, &intro); err != nil {
			return nil, err
		}
		p.Type, p.Breed, p.Intro = typ.String, breed.String, intro.String
		pets = append(pets, &p)
	}
	return pets, rows.Err()
}
