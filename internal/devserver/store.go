package devserver

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/yogamaster/yoga-client/internal/models"
)

// ErrNoRecord is returned when a lookup matches nothing.
var ErrNoRecord = errors.New("no such record")

// Store persists the stub backend's users, classes and cart rows in
// sqlite.
type Store struct {
	db *sql.DB
}

// OpenStore opens (and migrates) the sqlite database at path. Use
// "file:devserver?mode=memory&cache=shared" for a throwaway instance.
func OpenStore(path string) (*Store, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open sqlite database: %w", err)
	}
	s := &Store{db: db}
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

func (s *Store) Close() error { return s.db.Close() }

func (s *Store) migrate() error {
	schema := `
CREATE TABLE IF NOT EXISTS users (
	email TEXT PRIMARY KEY,
	name TEXT NOT NULL,
	photo_url TEXT NOT NULL DEFAULT '',
	role TEXT NOT NULL DEFAULT 'user'
);
CREATE TABLE IF NOT EXISTS classes (
	id TEXT PRIMARY KEY,
	name TEXT NOT NULL,
	image TEXT NOT NULL DEFAULT '',
	price REAL NOT NULL DEFAULT 0,
	available_seats INTEGER NOT NULL DEFAULT 0,
	total_enrolled INTEGER NOT NULL DEFAULT 0,
	instructor_name TEXT NOT NULL DEFAULT '',
	instructor_email TEXT NOT NULL DEFAULT '',
	status TEXT NOT NULL DEFAULT 'approved'
);
CREATE TABLE IF NOT EXISTS cart_items (
	id TEXT PRIMARY KEY,
	class_id TEXT NOT NULL,
	user_mail TEXT NOT NULL,
	name TEXT NOT NULL DEFAULT '',
	price REAL NOT NULL DEFAULT 0,
	UNIQUE(class_id, user_mail)
);`
	if _, err := s.db.Exec(schema); err != nil {
		return fmt.Errorf("failed to migrate devserver schema: %w", err)
	}
	return nil
}

// UpsertUser inserts the user or refreshes name and photo on conflict.
// The role is never downgraded by a re-registration.
func (s *Store) UpsertUser(ctx context.Context, u models.NewUserRequest) error {
	_, err := s.db.ExecContext(ctx, `
INSERT INTO users (email, name, photo_url, role) VALUES (?, ?, ?, ?)
ON CONFLICT(email) DO UPDATE SET name = excluded.name, photo_url = excluded.photo_url`,
		u.Email, u.Name, u.PhotoURL, string(u.Role))
	if err != nil {
		return fmt.Errorf("failed to upsert user: %w", err)
	}
	return nil
}

// GetUser loads a user and their enrolled class ids.
func (s *Store) GetUser(ctx context.Context, email string) (*models.UserProfile, error) {
	var p models.UserProfile
	var role string
	err := s.db.QueryRowContext(ctx,
		`SELECT email, name, photo_url, role FROM users WHERE email = ?`, email).
		Scan(&p.Email, &p.Name, &p.PhotoURL, &role)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNoRecord
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load user: %w", err)
	}
	p.Role = models.Role(role)

	rows, err := s.db.QueryContext(ctx,
		`SELECT class_id FROM cart_items WHERE user_mail = ?`, email)
	if err != nil {
		return nil, fmt.Errorf("failed to load enrollments: %w", err)
	}
	defer rows.Close()

	p.EnrolledClasses = []string{}
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("failed to scan enrollment: %w", err)
		}
		p.EnrolledClasses = append(p.EnrolledClasses, id)
	}
	return &p, rows.Err()
}

// SeedClass inserts a class row, replacing any previous one with the
// same id. Used by main and by tests to set up a catalog.
func (s *Store) SeedClass(ctx context.Context, c models.Class) error {
	if c.ID == "" {
		c.ID = uuid.NewString()
	}
	_, err := s.db.ExecContext(ctx, `
INSERT OR REPLACE INTO classes
	(id, name, image, price, available_seats, total_enrolled, instructor_name, instructor_email, status)
VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		c.ID, c.Name, c.Image, c.Price, c.AvailableSeats, c.TotalEnrolled,
		c.InstructorName, c.InstructorEmail, c.Status)
	if err != nil {
		return fmt.Errorf("failed to seed class: %w", err)
	}
	return nil
}

func (s *Store) ListClasses(ctx context.Context) ([]models.Class, error) {
	rows, err := s.db.QueryContext(ctx, `
SELECT id, name, image, price, available_seats, total_enrolled, instructor_name, instructor_email, status
FROM classes ORDER BY name`)
	if err != nil {
		return nil, fmt.Errorf("failed to list classes: %w", err)
	}
	defer rows.Close()

	classes := []models.Class{}
	for rows.Next() {
		var c models.Class
		if err := rows.Scan(&c.ID, &c.Name, &c.Image, &c.Price, &c.AvailableSeats,
			&c.TotalEnrolled, &c.InstructorName, &c.InstructorEmail, &c.Status); err != nil {
			return nil, fmt.Errorf("failed to scan class: %w", err)
		}
		classes = append(classes, c)
	}
	return classes, rows.Err()
}

func (s *Store) GetClass(ctx context.Context, id string) (*models.Class, error) {
	var c models.Class
	err := s.db.QueryRowContext(ctx, `
SELECT id, name, image, price, available_seats, total_enrolled, instructor_name, instructor_email, status
FROM classes WHERE id = ?`, id).
		Scan(&c.ID, &c.Name, &c.Image, &c.Price, &c.AvailableSeats,
			&c.TotalEnrolled, &c.InstructorName, &c.InstructorEmail, &c.Status)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNoRecord
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load class: %w", err)
	}
	return &c, nil
}

func (s *Store) ListInstructors(ctx context.Context) ([]models.Instructor, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT email, name, photo_url FROM users WHERE role = 'instructor' ORDER BY name`)
	if err != nil {
		return nil, fmt.Errorf("failed to list instructors: %w", err)
	}
	defer rows.Close()

	instructors := []models.Instructor{}
	for rows.Next() {
		var i models.Instructor
		if err := rows.Scan(&i.Email, &i.Name, &i.PhotoURL); err != nil {
			return nil, fmt.Errorf("failed to scan instructor: %w", err)
		}
		instructors = append(instructors, i)
	}
	return instructors, rows.Err()
}

// InsertCartItem adds a cart row and bumps the class enrollment count.
func (s *Store) InsertCartItem(ctx context.Context, item models.AddToCartRequest) (string, error) {
	id := uuid.NewString()
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return "", fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `
INSERT INTO cart_items (id, class_id, user_mail, name, price) VALUES (?, ?, ?, ?, ?)`,
		id, item.ClassID, item.UserMail, item.Name, item.Price); err != nil {
		return "", fmt.Errorf("failed to insert cart item: %w", err)
	}
	if _, err := tx.ExecContext(ctx,
		`UPDATE classes SET total_enrolled = total_enrolled + 1 WHERE id = ?`, item.ClassID); err != nil {
		return "", fmt.Errorf("failed to update enrollment count: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return "", fmt.Errorf("failed to commit cart insert: %w", err)
	}
	return id, nil
}

func (s *Store) GetCartItem(ctx context.Context, classID, email string) (*models.CartItem, error) {
	var item models.CartItem
	err := s.db.QueryRowContext(ctx, `
SELECT id, class_id, user_mail, name, price FROM cart_items WHERE class_id = ? AND user_mail = ?`,
		classID, email).
		Scan(&item.ID, &item.ClassID, &item.UserMail, &item.Name, &item.Price)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNoRecord
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load cart item: %w", err)
	}
	return &item, nil
}

// DeleteCartItem removes a cart row and releases the seat.
func (s *Store) DeleteCartItem(ctx context.Context, id string) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	var classID string
	err = tx.QueryRowContext(ctx, `SELECT class_id FROM cart_items WHERE id = ?`, id).Scan(&classID)
	if errors.Is(err, sql.ErrNoRows) {
		return ErrNoRecord
	}
	if err != nil {
		return fmt.Errorf("failed to load cart item before delete: %w", err)
	}

	if _, err := tx.ExecContext(ctx, `DELETE FROM cart_items WHERE id = ?`, id); err != nil {
		return fmt.Errorf("failed to delete cart item: %w", err)
	}
	if _, err := tx.ExecContext(ctx,
		`UPDATE classes SET total_enrolled = total_enrolled - 1 WHERE id = ? AND total_enrolled > 0`, classID); err != nil {
		return fmt.Errorf("failed to update enrollment count: %w", err)
	}
	return tx.Commit()
}
