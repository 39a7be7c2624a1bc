package db

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
)

// CreateContact inserts a contact with a generated id and both timestamps
// set to now. The caller fills Name, Email, Phone, Notes, Icon and
// CreatedBy; everything else is overwritten here.
func (s *Store) CreateContact(ctx context.Context, c Contact) (Contact, error) {
	now := time.Now().UTC()
	c.ID = uuid.NewString()
	c.CreatedAt = now
	c.UpdatedAt = now

	_, err := s.conn.ExecContext(ctx,
		`INSERT INTO contacts (id, name, email, phone, notes, icon, created_by, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		c.ID, c.Name, c.Email, c.Phone, c.Notes, c.Icon, c.CreatedBy, c.CreatedAt, c.UpdatedAt,
	)
	if err != nil {
		return Contact{}, err
	}
	return c, nil
}

// GetContact fetches a contact by id regardless of owner. Authorization
// happens above this layer.
func (s *Store) GetContact(ctx context.Context, id string) (Contact, error) {
	var c Contact
	err := s.conn.QueryRowContext(ctx,
		`SELECT id, name, email, phone, notes, icon, created_by, created_at, updated_at
		 FROM contacts WHERE id = ?`,
		id,
	).Scan(&c.ID, &c.Name, &c.Email, &c.Phone, &c.Notes, &c.Icon, &c.CreatedBy, &c.CreatedAt, &c.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return Contact{}, ErrNotFound
	}
	if err != nil {
		return Contact{}, err
	}
	return c, nil
}

// ListContacts returns the contacts owned by ownerID, newest first. When
// search is non-empty the result is filtered to names containing it,
// case-insensitively. Case folding happens here rather than in SQL
// because SQLite's lower() only folds ASCII.
func (s *Store) ListContacts(ctx context.Context, ownerID, search string) ([]Contact, error) {
	rows, err := s.conn.QueryContext(ctx,
		`SELECT id, name, email, phone, notes, icon, created_by, created_at, updated_at
		 FROM contacts WHERE created_by = ? ORDER BY created_at DESC`,
		ownerID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	needle := strings.ToLower(search)
	contacts := make([]Contact, 0)
	for rows.Next() {
		var c Contact
		if err := rows.Scan(&c.ID, &c.Name, &c.Email, &c.Phone, &c.Notes, &c.Icon, &c.CreatedBy, &c.CreatedAt, &c.UpdatedAt); err != nil {
			return nil, err
		}
		if needle != "" && !strings.Contains(strings.ToLower(c.Name), needle) {
			continue
		}
		contacts = append(contacts, c)
	}
	return contacts, rows.Err()
}

// UpdateContact applies a partial update. Only non-nil patch fields are
// written; updated_at always advances. Returns the contact as stored after
// the update.
func (s *Store) UpdateContact(ctx context.Context, id string, patch ContactPatch) (Contact, error) {
	sets := []string{"updated_at = ?"}
	args := []any{time.Now().UTC()}

	if patch.Name != nil {
		sets = append(sets, "name = ?")
		args = append(args, *patch.Name)
	}
	if patch.Email != nil {
		sets = append(sets, "email = ?")
		args = append(args, *patch.Email)
	}
	if patch.Phone != nil {
		sets = append(sets, "phone = ?")
		args = append(args, *patch.Phone)
	}
	if patch.Notes != nil {
		sets = append(sets, "notes = ?")
		args = append(args, *patch.Notes)
	}
	if patch.Icon != nil {
		sets = append(sets, "icon = ?")
		args = append(args, *patch.Icon)
	}
	args = append(args, id)

	res, err := s.conn.ExecContext(ctx,
		`UPDATE contacts SET `+strings.Join(sets, ", ")+` WHERE id = ?`, args...)
	if err != nil {
		return Contact{}, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return Contact{}, err
	}
	if n == 0 {
		return Contact{}, ErrNotFound
	}
	return s.GetContact(ctx, id)
}

// DeleteContact removes a contact and returns the deleted record so the
// caller can release its icon file.
func (s *Store) DeleteContact(ctx context.Context, id string) (Contact, error) {
	tx, err := s.conn.BeginTx(ctx, nil)
	if err != nil {
		return Contact{}, err
	}
	defer tx.Rollback()

	var c Contact
	err = tx.QueryRowContext(ctx,
		`SELECT id, name, email, phone, notes, icon, created_by, created_at, updated_at
		 FROM contacts WHERE id = ?`,
		id,
	).Scan(&c.ID, &c.Name, &c.Email, &c.Phone, &c.Notes, &c.Icon, &c.CreatedBy, &c.CreatedAt, &c.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return Contact{}, ErrNotFound
	}
	if err != nil {
		return Contact{}, err
	}

	if _, err := tx.ExecContext(ctx, `DELETE FROM contacts WHERE id = ?`, id); err != nil {
		return Contact{}, err
	}
	if err := tx.Commit(); err != nil {
		return Contact{}, err
	}
	return c, nil
}
