// Package database provides database access for the Edumate platform.
package database

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"edumate-api/internal/models"
)

// ContactRepository handles borrower contact records.
type ContactRepository struct {
	db *DB
}

// NewContactRepository creates a new contact repository.
func NewContactRepository(db *DB) *ContactRepository {
	return &ContactRepository{db: db}
}

const contactColumns = "id, name, email, phone, verified, favourite, interested, created_at, updated_at"

// Upsert creates or refreshes a contact keyed on phone number. The wizard
// fires this best-effort after OTP verification.
func (r *ContactRepository) Upsert(ctx context.Context, c *models.ContactUpsert) (*models.Contact, error) {
	if c.Phone == "" {
		return nil, models.ErrEmptyPhone
	}

	query := `
		INSERT INTO contacts (name, email, phone, verified, study_level, university_name, loan_amount, loan_type, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $9)
		ON CONFLICT (phone) DO UPDATE SET
			name = COALESCE(NULLIF(EXCLUDED.name, ''), contacts.name),
			email = COALESCE(NULLIF(EXCLUDED.email, ''), contacts.email),
			verified = contacts.verified OR EXCLUDED.verified,
			study_level = COALESCE(NULLIF(EXCLUDED.study_level, ''), contacts.study_level),
			university_name = COALESCE(NULLIF(EXCLUDED.university_name, ''), contacts.university_name),
			loan_amount = CASE WHEN EXCLUDED.loan_amount > 0 THEN EXCLUDED.loan_amount ELSE contacts.loan_amount END,
			loan_type = COALESCE(NULLIF(EXCLUDED.loan_type, ''), contacts.loan_type),
			updated_at = EXCLUDED.updated_at
		RETURNING ` + contactColumns

	contact, err := scanContact(r.db.QueryRowContext(ctx, query,
		c.Name,
		c.Email,
		c.Phone,
		c.Verified,
		c.StudyLevel,
		c.UniversityName,
		c.LoanAmount,
		c.LoanType,
		time.Now().UTC(),
	))
	if err != nil {
		return nil, fmt.Errorf("failed to upsert contact: %w", err)
	}

	return contact, nil
}

// GetByID retrieves a contact by id.
func (r *ContactRepository) GetByID(ctx context.Context, id string) (*models.Contact, error) {
	query := "SELECT " + contactColumns + " FROM contacts WHERE id = $1"

	contact, err := scanContact(r.db.QueryRowContext(ctx, query, id))
	if err == pgx.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get contact: %w", err)
	}
	return contact, nil
}

// GetByPhone retrieves a contact by phone number.
func (r *ContactRepository) GetByPhone(ctx context.Context, phone string) (*models.Contact, error) {
	query := "SELECT " + contactColumns + " FROM contacts WHERE phone = $1"

	contact, err := scanContact(r.db.QueryRowContext(ctx, query, phone))
	if err == pgx.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get contact: %w", err)
	}
	return contact, nil
}

// AddFavourite adds a loan id to the contact's favourites atomically.
// The array update happens server-side in one statement, so two rapid
// toggles from the same session cannot clobber each other.
func (r *ContactRepository) AddFavourite(ctx context.Context, contactID, loanID string) (*models.Contact, error) {
	return r.arrayUpdate(ctx, contactID, loanID, "favourite", true)
}

// RemoveFavourite removes a loan id from the contact's favourites.
func (r *ContactRepository) RemoveFavourite(ctx context.Context, contactID, loanID string) (*models.Contact, error) {
	return r.arrayUpdate(ctx, contactID, loanID, "favourite", false)
}

// AddInterested adds a loan id to the contact's interested set.
func (r *ContactRepository) AddInterested(ctx context.Context, contactID, loanID string) (*models.Contact, error) {
	return r.arrayUpdate(ctx, contactID, loanID, "interested", true)
}

// RemoveInterested removes a loan id from the contact's interested set.
func (r *ContactRepository) RemoveInterested(ctx context.Context, contactID, loanID string) (*models.Contact, error) {
	return r.arrayUpdate(ctx, contactID, loanID, "interested", false)
}

func (r *ContactRepository) arrayUpdate(ctx context.Context, contactID, loanID, column string, add bool) (*models.Contact, error) {
	var query string
	if add {
		query = fmt.Sprintf(`
			UPDATE contacts
			SET %[1]s = CASE WHEN $2 = ANY(%[1]s) THEN %[1]s ELSE array_append(%[1]s, $2) END,
				updated_at = now()
			WHERE id = $1
			RETURNING `+contactColumns, column)
	} else {
		query = fmt.Sprintf(`
			UPDATE contacts
			SET %[1]s = array_remove(%[1]s, $2), updated_at = now()
			WHERE id = $1
			RETURNING `+contactColumns, column)
	}

	contact, err := scanContact(r.db.QueryRowContext(ctx, query, contactID, loanID))
	if err == pgx.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to update contact %s: %w", column, err)
	}
	return contact, nil
}

func scanContact(row pgx.Row) (*models.Contact, error) {
	var contact models.Contact
	err := row.Scan(
		&contact.ID,
		&contact.Name,
		&contact.Email,
		&contact.Phone,
		&contact.Verified,
		&contact.Favourite,
		&contact.Interested,
		&contact.CreatedAt,
		&contact.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	if contact.Favourite == nil {
		contact.Favourite = []string{}
	}
	if contact.Interested == nil {
		contact.Interested = []string{}
	}
	return &contact, nil
}
