package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
)

// ErrNotFound is returned when a user does not exist.
var ErrNotFound = errors.New("user not found")

// User represents a user in the database
type User struct {
	ID    int64  `db:"id"    json:"id"`
	Name  string `db:"name"  json:"name"`
	Email string `db:"email" json:"email"`
}

var idColumns = map[string]string{
	"postgres": "id SERIAL PRIMARY KEY",
	"mysql":    "id BIGINT AUTO_INCREMENT PRIMARY KEY",
}

// CreateTable creates the users table if it doesn't exist
func (s *Store) CreateTable(ctx context.Context) error {
	idColumn, ok := idColumns[s.db.DriverName()]
	if !ok {
		idColumn = "id INTEGER PRIMARY KEY AUTOINCREMENT"
	}
	_, err := s.db.ExecContext(ctx, fmt.Sprintf(`
		CREATE TABLE IF NOT EXISTS users (
			%s,
			name VARCHAR(100) NOT NULL,
			email VARCHAR(255) NOT NULL UNIQUE
		)`, idColumn))
	return err
}

// CreateUser inserts a user and reads it back in one transaction.
func (s *Store) CreateUser(ctx context.Context, name, email string) (user User, err error) {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return User{}, err
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	_, err = tx.ExecContext(ctx, tx.Rebind("INSERT INTO users (name, email) VALUES (?, ?)"), name, email)
	if err != nil {
		return User{}, err
	}
	err = tx.GetContext(ctx, &user, tx.Rebind("SELECT id, name, email FROM users WHERE email = ?"), email)
	if err != nil {
		return User{}, err
	}
	if err = tx.Commit(); err != nil {
		return User{}, err
	}

	s.logger.Debug().Int64("user_id", user.ID).Msg("user created")
	return user, nil
}

// ListUsers returns up to limit users ordered by id.
func (s *Store) ListUsers(ctx context.Context, limit int) ([]User, error) {
	v, err := s.read(func() (any, error) {
		users := []User{}
		err := s.db.SelectContext(ctx, &users,
			s.db.Rebind("SELECT id, name, email FROM users ORDER BY id LIMIT ?"), limit)
		return users, err
	})
	if err != nil {
		return nil, err
	}
	return v.([]User), nil
}

// GetUser returns the user with id, or ErrNotFound.
func (s *Store) GetUser(ctx context.Context, id int64) (User, error) {
	v, err := s.read(func() (any, error) {
		var user User
		err := s.db.GetContext(ctx, &user, s.db.Rebind("SELECT id, name, email FROM users WHERE id = ?"), id)
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return user, err
	})
	if err != nil {
		return User{}, err
	}
	return v.(User), nil
}
