// Package programs supplies university program catalogs, with LLM-backed
// extraction for programs missing from the catalog.
package programs

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"edumate-api/internal/models"
	"edumate-api/internal/services/database"
)

// Repository reads the program catalog.
type Repository struct {
	db *database.DB
}

// NewRepository creates a program repository.
func NewRepository(db *database.DB) *Repository {
	return &Repository{db: db}
}

const programColumns = "id, university_name, name, study_level, tuition_fee, cost_of_living, currency, duration_months"

// ListByUniversity returns the catalog programs for a university, filtered
// to the study level when one is set.
func (r *Repository) ListByUniversity(ctx context.Context, university, studyLevel string) ([]*models.Program, error) {
	query := "SELECT " + programColumns + " FROM programs WHERE university_name ILIKE $1"
	args := []interface{}{"%" + university + "%"}

	if studyLevel != "" {
		query += " AND study_level = $2"
		args = append(args, studyLevel)
	}
	query += " ORDER BY name"

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query programs: %w", err)
	}
	defer rows.Close()

	var programs []*models.Program
	for rows.Next() {
		var p models.Program
		if err := rows.Scan(
			&p.ID,
			&p.UniversityName,
			&p.Name,
			&p.StudyLevel,
			&p.TuitionFee,
			&p.CostOfLiving,
			&p.Currency,
			&p.DurationMonths,
		); err != nil {
			return nil, fmt.Errorf("failed to scan program: %w", err)
		}
		programs = append(programs, &p)
	}
	return programs, nil
}

// Save stores an extracted program so future sessions find it in the
// catalog.
func (r *Repository) Save(ctx context.Context, p *models.Program) error {
	if p.ID == "" {
		p.ID = uuid.New().String()
	}
	query := `
		INSERT INTO programs (id, university_name, name, study_level, tuition_fee, cost_of_living, currency, duration_months)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		ON CONFLICT (id) DO NOTHING`

	_, err := r.db.ExecContext(ctx, query,
		p.ID, p.UniversityName, p.Name, p.StudyLevel,
		p.TuitionFee, p.CostOfLiving, p.Currency, p.DurationMonths,
	)
	if err != nil {
		return fmt.Errorf("failed to save program: %w", err)
	}
	return nil
}
