package wizard

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"edumate-api/internal/models"
	"edumate-api/internal/utils"
)

// suggestDebounce is the deferral applied to autocomplete keystrokes.
const suggestDebounce = 300 * time.Millisecond

// SuggestionSource supplies university autocomplete entries.
type SuggestionSource interface {
	GetUniversitySuggestions(ctx context.Context, query string) ([]models.UniversitySuggestion, error)
}

// Suggester debounces university autocomplete queries. Queries under two
// characters clear and hide the list immediately. Responses are tagged
// with a request sequence number and dropped when no longer the latest,
// so a slow early response cannot overwrite a newer one.
type Suggester struct {
	mu       sync.Mutex
	source   SuggestionSource
	debounce time.Duration

	timer  *time.Timer
	reqSeq uint64

	suggestions []models.UniversitySuggestion
	visible     bool
	onUpdate    func([]models.UniversitySuggestion, bool)
}

// NewSuggester creates a suggester over the given source.
func NewSuggester(source SuggestionSource, onUpdate func([]models.UniversitySuggestion, bool)) *Suggester {
	return &Suggester{
		source:   source,
		debounce: suggestDebounce,
		onUpdate: onUpdate,
	}
}

// SetDebounce overrides the keystroke debounce interval.
func (s *Suggester) SetDebounce(d time.Duration) {
	s.mu.Lock()
	s.debounce = d
	s.mu.Unlock()
}

// Current returns the suggestion list and whether it is visible.
func (s *Suggester) Current() ([]models.UniversitySuggestion, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]models.UniversitySuggestion{}, s.suggestions...), s.visible
}

// Query handles a keystroke. Short queries clear and hide the list with
// no network call; longer ones defer a fetch, superseding any pending one.
func (s *Suggester) Query(ctx context.Context, query string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.timer != nil {
		s.timer.Stop()
		s.timer = nil
	}
	// Advancing the sequence also invalidates any in-flight response.
	s.reqSeq++

	if len(query) < 2 {
		s.suggestions = nil
		s.visible = false
		if s.onUpdate != nil {
			go s.onUpdate(nil, false)
		}
		return
	}

	seq := s.reqSeq
	s.timer = time.AfterFunc(s.debounce, func() {
		s.fetch(ctx, query, seq)
	})
}

// Select clears and hides the list after the user picks a suggestion.
func (s *Suggester) Select() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.timer != nil {
		s.timer.Stop()
		s.timer = nil
	}
	s.reqSeq++
	s.suggestions = nil
	s.visible = false
}

func (s *Suggester) fetch(ctx context.Context, query string, seq uint64) {
	suggestions, err := s.source.GetUniversitySuggestions(ctx, query)
	if err != nil {
		utils.GetLogger().Warn("university autocomplete failed",
			zap.String("query", query),
			zap.Error(err),
		)
		return
	}

	s.mu.Lock()
	if seq != s.reqSeq {
		s.mu.Unlock()
		return
	}
	s.suggestions = suggestions
	s.visible = len(suggestions) > 0
	onUpdate := s.onUpdate
	visible := s.visible
	s.mu.Unlock()

	if onUpdate != nil {
		onUpdate(suggestions, visible)
	}
}
