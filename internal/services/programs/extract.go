package programs

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"edumate-api/internal/models"
	"edumate-api/internal/utils"
)

const geminiURL = "https://generativelanguage.googleapis.com/v1beta/models/gemini-pro:generateContent"

// Extractor resolves a free-text program description into a Program with
// an estimated cost breakdown, via the Gemini API.
type Extractor struct {
	apiKey string
	apiURL string
	client *http.Client
}

// NewExtractor creates a Gemini-backed extractor.
func NewExtractor(apiKey string) *Extractor {
	return &Extractor{
		apiKey: apiKey,
		apiURL: geminiURL,
		client: &http.Client{Timeout: 30 * time.Second},
	}
}

// extractedProgram is the JSON shape the model is asked to produce.
type extractedProgram struct {
	Name           string  `json:"name"`
	StudyLevel     string  `json:"study_level"`
	TuitionFee     float64 `json:"tuition_fee"`
	CostOfLiving   float64 `json:"cost_of_living"`
	Currency       string  `json:"currency"`
	DurationMonths int     `json:"duration_months"`
}

// ExtractCustomProgram resolves a free-text program name into a Program.
// Without an API key it returns a zero-cost program carrying the raw text,
// so the wizard flow still completes in dev.
func (e *Extractor) ExtractCustomProgram(ctx context.Context, university, freeText string) (*models.Program, error) {
	if e.apiKey == "" {
		return &models.Program{
			ID:             uuid.New().String(),
			UniversityName: university,
			Name:           strings.TrimSpace(freeText),
			Currency:       "INR",
		}, nil
	}

	prompt := e.buildPrompt(university, freeText)

	requestBody := map[string]interface{}{
		"contents": []map[string]interface{}{
			{
				"parts": []map[string]string{
					{"text": prompt},
				},
			},
		},
		"generationConfig": map[string]interface{}{
			"temperature":     0.1,
			"topK":            1,
			"topP":            1,
			"maxOutputTokens": 500,
		},
	}

	jsonBody, err := json.Marshal(requestBody)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	url := fmt.Sprintf("%s?key=%s", e.apiURL, e.apiKey)
	req, err := http.NewRequestWithContext(ctx, "POST", url, strings.NewReader(string(jsonBody)))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := e.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("API request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("API returned status %d", resp.StatusCode)
	}

	var result map[string]interface{}
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, fmt.Errorf("failed to decode response: %w", err)
	}

	extracted, err := e.parseResponse(result)
	if err != nil {
		return nil, err
	}

	program := &models.Program{
		ID:             uuid.New().String(),
		UniversityName: university,
		Name:           extracted.Name,
		StudyLevel:     extracted.StudyLevel,
		TuitionFee:     extracted.TuitionFee,
		CostOfLiving:   extracted.CostOfLiving,
		Currency:       extracted.Currency,
		DurationMonths: extracted.DurationMonths,
	}
	if program.Name == "" {
		program.Name = strings.TrimSpace(freeText)
	}
	if program.Currency == "" {
		program.Currency = "INR"
	}

	utils.GetLogger().Info("Extracted custom program",
		zap.String("university", university),
		zap.String("program", program.Name),
	)
	return program, nil
}

// buildPrompt creates the extraction prompt.
func (e *Extractor) buildPrompt(university, freeText string) string {
	return fmt.Sprintf(`You are an education cost expert. A student at %s described their program as:

"%s"

Estimate the full cost of attendance for this program.

Respond ONLY with valid JSON in this exact format:
{
  "name": "canonical program name",
  "study_level": "undergraduate/postgraduate/doctorate",
  "tuition_fee": 0,
  "cost_of_living": 0,
  "currency": "ISO 4217 code",
  "duration_months": 0
}

Consider:
1. Typical tuition at this university for this program
2. Cost of living in the university's city for the program duration
3. Use the currency the university bills in`, university, freeText)
}

// parseResponse extracts the program JSON from the API response.
func (e *Extractor) parseResponse(result map[string]interface{}) (*extractedProgram, error) {
	candidates, ok := result["candidates"].([]interface{})
	if !ok || len(candidates) == 0 {
		return nil, fmt.Errorf("no candidates in response")
	}

	candidate, ok := candidates[0].(map[string]interface{})
	if !ok {
		return nil, fmt.Errorf("malformed candidate in response")
	}
	content, ok := candidate["content"].(map[string]interface{})
	if !ok {
		return nil, fmt.Errorf("no content in response")
	}
	parts, ok := content["parts"].([]interface{})
	if !ok || len(parts) == 0 {
		return nil, fmt.Errorf("no parts in response")
	}
	part, ok := parts[0].(map[string]interface{})
	if !ok {
		return nil, fmt.Errorf("malformed part in response")
	}
	text, ok := part["text"].(string)
	if !ok {
		return nil, fmt.Errorf("no text in response")
	}

	// Extract JSON from response
	start := strings.Index(text, "{")
	end := strings.LastIndex(text, "}")
	if start == -1 || end == -1 {
		return nil, fmt.Errorf("no JSON found in response")
	}

	var extracted extractedProgram
	if err := json.Unmarshal([]byte(text[start:end+1]), &extracted); err != nil {
		return nil, fmt.Errorf("failed to parse JSON: %w", err)
	}
	return &extracted, nil
}
