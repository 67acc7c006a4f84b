// Package database provides database access for the Edumate platform.
package database

import (
	"context"
	"fmt"
)

// NoteRepository stores per-contact notes attached to compared loans.
type NoteRepository struct {
	db *DB
}

// NewNoteRepository creates a new note repository.
func NewNoteRepository(db *DB) *NoteRepository {
	return &NoteRepository{db: db}
}

// Upsert saves the note a contact keeps against a loan, replacing any
// previous text. An empty note is stored as-is; use Delete to remove one.
func (r *NoteRepository) Upsert(ctx context.Context, contactID, loanID, note string) error {
	query := `
		INSERT INTO comparison_notes (contact_id, loan_id, note, updated_at)
		VALUES ($1, $2, $3, now())
		ON CONFLICT (contact_id, loan_id) DO UPDATE SET
			note = EXCLUDED.note,
			updated_at = EXCLUDED.updated_at`

	if _, err := r.db.ExecContext(ctx, query, contactID, loanID, note); err != nil {
		return fmt.Errorf("failed to save comparison note: %w", err)
	}
	return nil
}

// GetByContact returns all of a contact's notes keyed by loan id.
func (r *NoteRepository) GetByContact(ctx context.Context, contactID string) (map[string]string, error) {
	rows, err := r.db.QueryContext(ctx,
		"SELECT loan_id, note FROM comparison_notes WHERE contact_id = $1", contactID)
	if err != nil {
		return nil, fmt.Errorf("failed to query comparison notes: %w", err)
	}
	defer rows.Close()

	notes := make(map[string]string)
	for rows.Next() {
		var loanID, note string
		if err := rows.Scan(&loanID, &note); err != nil {
			return nil, fmt.Errorf("failed to scan comparison note: %w", err)
		}
		notes[loanID] = note
	}
	return notes, nil
}

// Delete removes a contact's note for one loan.
func (r *NoteRepository) Delete(ctx context.Context, contactID, loanID string) error {
	_, err := r.db.ExecContext(ctx,
		"DELETE FROM comparison_notes WHERE contact_id = $1 AND loan_id = $2", contactID, loanID)
	if err != nil {
		return fmt.Errorf("failed to delete comparison note: %w", err)
	}
	return nil
}
