package server

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// DocStore implements Store using per-model tables with JSONB data columns.
type DocStore struct {
	db *sql.DB
}

func NewDocStore(ctx context.Context, db *sql.DB) (*DocStore, error) {
	for _, ddl := range []string{
		`CREATE TABLE IF NOT EXISTS animals (
			id          TEXT PRIMARY KEY,
			animal_type TEXT NOT NULL,
			created_at  TEXT NOT NULL,
			data        JSONB NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS animals_type ON animals (animal_type)`,
		`CREATE TABLE IF NOT EXISTS users (
			id    TEXT PRIMARY KEY,
			email TEXT UNIQUE NOT NULL,
			data  JSONB NOT NULL
		)`,
	} {
		if _, err := db.ExecContext(ctx, ddl); err != nil {
			return nil, fmt.Errorf("creating table: %w", err)
		}
	}

	return &DocStore{db: db}, nil
}

func (s *DocStore) get(ctx context.Context, table, column, value string, dest any) error {
	var data string
	err := s.db.QueryRowContext(ctx,
		fmt.Sprintf(`SELECT json(data) FROM %s WHERE %s = ?`, table, column), value,
	).Scan(&data)
	if errors.Is(err, sql.ErrNoRows) {
		return ErrNotFound
	}
	if err != nil {
		return err
	}
	return json.Unmarshal([]byte(data), dest)
}

func newID() string {
	return uuid.NewString()
}

func nowUTC() string {
	return time.Now().UTC().Format("2006-01-02T15:04:05.000000Z")
}

// Animals

func (s *DocStore) ListAnimals(ctx context.Context, f AnimalFilter) ([]Animal, error) {
	query := `SELECT json(data) FROM animals`
	var args []any
	if f.Type != "" {
		query += ` WHERE animal_type = ?`
		args = append(args, string(f.Type.Normalize()))
	}
	query += ` ORDER BY created_at DESC, rowid DESC`

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	animals := []Animal{}
	for rows.Next() {
		var data string
		if err := rows.Scan(&data); err != nil {
			return nil, err
		}
		var a Animal
		if err := json.Unmarshal([]byte(data), &a); err != nil {
			return nil, err
		}
		if f.Bound != nil && !a.Territory().Bound().Intersects(*f.Bound) {
			continue
		}
		animals = append(animals, a)
	}
	return animals, rows.Err()
}

func (s *DocStore) GetAnimal(ctx context.Context, id string) (Animal, error) {
	var a Animal
	err := s.get(ctx, "animals", "id", id, &a)
	return a, err
}

func (s *DocStore) CreateAnimal(ctx context.Context, a Animal) (Animal, error) {
	a.ID = newID()
	a.AnimalType = a.AnimalType.Normalize()
	a.CreatedAt = nowUTC()
	a.UpdatedAt = a.CreatedAt

	data, err := json.Marshal(a)
	if err != nil {
		return Animal{}, err
	}
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO animals (id, animal_type, created_at, data) VALUES (?, ?, ?, jsonb(?))`,
		a.ID, string(a.AnimalType), a.CreatedAt, string(data),
	)
	if err != nil {
		return Animal{}, err
	}
	return a, nil
}

// UpdateAnimal loads an animal, applies fn, and saves it in a transaction.
// An error from fn aborts the update and is returned unchanged.
func (s *DocStore) UpdateAnimal(ctx context.Context, id string, fn func(*Animal) error) (Animal, error) {
	tx, err := s.db.BeginTx(ctx, &sql.TxOptions{})
	if err != nil {
		return Animal{}, err
	}
	defer tx.Rollback()

	var data string
	err = tx.QueryRowContext(ctx,
		`SELECT json(data) FROM animals WHERE id = ?`, id,
	).Scan(&data)
	if errors.Is(err, sql.ErrNoRows) {
		return Animal{}, ErrNotFound
	}
	if err != nil {
		return Animal{}, err
	}

	var a Animal
	if err := json.Unmarshal([]byte(data), &a); err != nil {
		return Animal{}, err
	}

	if err := fn(&a); err != nil {
		return Animal{}, err
	}
	a.ID = id
	a.AnimalType = a.AnimalType.Normalize()
	a.UpdatedAt = nowUTC()

	jsonData, err := json.Marshal(a)
	if err != nil {
		return Animal{}, err
	}
	_, err = tx.ExecContext(ctx,
		`UPDATE animals SET animal_type = ?, data = jsonb(?) WHERE id = ?`,
		string(a.AnimalType), string(jsonData), id,
	)
	if err != nil {
		return Animal{}, err
	}

	if err := tx.Commit(); err != nil {
		return Animal{}, err
	}
	return a, nil
}

// DeleteAnimal removes an animal and returns the record as it was.
func (s *DocStore) DeleteAnimal(ctx context.Context, id string) (Animal, error) {
	var data string
	err := s.db.QueryRowContext(ctx,
		`DELETE FROM animals WHERE id = ? RETURNING json(data)`, id,
	).Scan(&data)
	if errors.Is(err, sql.ErrNoRows) {
		return Animal{}, ErrNotFound
	}
	if err != nil {
		return Animal{}, err
	}

	var a Animal
	if err := json.Unmarshal([]byte(data), &a); err != nil {
		return Animal{}, err
	}
	return a, nil
}

func (s *DocStore) CountAnimals(ctx context.Context) (int, error) {
	var n int
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM animals`).Scan(&n)
	return n, err
}

// Users

// CreateUser inserts a user. The UNIQUE index on email decides between
// concurrent registrations; the loser gets ErrEmailTaken.
func (s *DocStore) CreateUser(ctx context.Context, email, passwordHash string) (User, error) {
	u := User{
		ID:           newID(),
		Email:        email,
		PasswordHash: passwordHash,
		CreatedAt:    nowUTC(),
	}
	data, err := json.Marshal(u)
	if err != nil {
		return User{}, err
	}
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO users (id, email, data) VALUES (?, ?, jsonb(?))`,
		u.ID, u.Email, string(data),
	)
	if isUniqueConstraintError(err) {
		return User{}, ErrEmailTaken
	}
	if err != nil {
		return User{}, err
	}
	return u, nil
}

func isUniqueConstraintError(err error) bool {
	return err != nil && strings.Contains(strings.ToLower(err.Error()), "unique constraint")
}

func (s *DocStore) UserByEmail(ctx context.Context, email string) (User, error) {
	var u User
	err := s.get(ctx, "users", "email", email, &u)
	return u, err
}

func (s *DocStore) UserByID(ctx context.Context, id string) (User, error) {
	var u User
	err := s.get(ctx, "users", "id", id, &u)
	return u, err
}
