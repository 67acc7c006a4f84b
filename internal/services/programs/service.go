package programs

import (
	"context"

	"go.uber.org/zap"

	"edumate-api/internal/models"
	"edumate-api/internal/services/database"
	"edumate-api/internal/utils"
)

// Service combines the catalog with extraction. Extracted programs are
// saved back to the catalog best-effort.
type Service struct {
	repo      *Repository
	extractor *Extractor
}

// NewService creates a program service over the given database and API key.
func NewService(db *database.DB, geminiAPIKey string) *Service {
	return &Service{
		repo:      NewRepository(db),
		extractor: NewExtractor(geminiAPIKey),
	}
}

// ListByUniversity returns catalog programs for a university.
func (s *Service) ListByUniversity(ctx context.Context, university, studyLevel string) ([]*models.Program, error) {
	return s.repo.ListByUniversity(ctx, university, studyLevel)
}

// ExtractCustomProgram resolves free text into a program and records it.
func (s *Service) ExtractCustomProgram(ctx context.Context, university, freeText string) (*models.Program, error) {
	program, err := s.extractor.ExtractCustomProgram(ctx, university, freeText)
	if err != nil {
		return nil, err
	}

	if err := s.repo.Save(ctx, program); err != nil {
		utils.GetLogger().Warn("failed to record extracted program",
			zap.String("program", program.Name),
			zap.Error(err),
		)
	}
	return program, nil
}
