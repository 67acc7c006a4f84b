package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/aws/aws-lambda-go/events"

	appConfig "edumate-api/internal/config"
	"edumate-api/internal/models"
	"edumate-api/internal/services/database"
	"edumate-api/internal/services/exchange"
	"edumate-api/internal/services/otp"
	"edumate-api/internal/services/places"
	"edumate-api/internal/services/programs"
	"edumate-api/internal/utils"
)

// ChatHandler serves the stateless chat wizard actions: program lookup,
// custom program extraction, university autocomplete, exchange rates and
// OTP issuance and verification. Session state lives on the client; the
// API Gateway surface mirrors the long-running server's endpoints.
type ChatHandler struct {
	programs *programs.Service
	otp      *otp.Service
	rates    *exchange.Service
	places   *places.Client
	contacts *database.ContactRepository
}

// NewChatHandler wires the chat handler from configuration.
func NewChatHandler() (*ChatHandler, error) {
	cfg, err := appConfig.Load()
	if err != nil {
		return nil, err
	}

	db, err := database.New(cfg)
	if err != nil {
		return nil, err
	}

	return &ChatHandler{
		programs: programs.NewService(db, cfg.GeminiAPIKey),
		otp:      otp.NewService(database.NewOTPRepository(db), nil, time.Duration(cfg.OTPExpiryMinutes)*time.Minute),
		rates:    exchange.NewService(cfg.ExchangeRateAPIURL),
		places:   places.NewClient(cfg.GoogleMapsAPIKey),
		contacts: database.NewContactRepository(db),
	}, nil
}

// ChatRequest is the action envelope posted by the chat frontend.
type ChatRequest struct {
	Action         string `json:"action"`
	Query          string `json:"query,omitempty"`
	UniversityName string `json:"university_name,omitempty"`
	StudyLevel     string `json:"study_level,omitempty"`
	FreeText       string `json:"free_text,omitempty"`
	CountryCode    string `json:"country_code,omitempty"`
	Phone          string `json:"phone,omitempty"`
	Code           string `json:"code,omitempty"`
}

// Handle dispatches one chat action.
func (h *ChatHandler) Handle(ctx context.Context, request events.APIGatewayProxyRequest) (events.APIGatewayProxyResponse, error) {
	headers := map[string]string{
		"Access-Control-Allow-Origin":  "*",
		"Access-Control-Allow-Headers": "Content-Type,Authorization",
		"Access-Control-Allow-Methods": "POST,OPTIONS",
		"Content-Type":                 "application/json",
	}

	if request.HTTPMethod == "OPTIONS" {
		return events.APIGatewayProxyResponse{
			StatusCode: http.StatusOK,
			Headers:    headers,
		}, nil
	}

	var req ChatRequest
	if err := json.Unmarshal([]byte(request.Body), &req); err != nil {
		return errorResponse(headers, http.StatusBadRequest, "Invalid request body")
	}

	switch req.Action {
	case "get-exchange-rates":
		rates, err := h.rates.GetRates(ctx)
		if err != nil {
			utils.GetLogger().Error("exchange rate fetch failed", utils.Error(err))
			return errorResponse(headers, http.StatusBadGateway, "Failed to fetch exchange rates")
		}
		return okResponse(headers, rates)

	case "university-suggestions":
		suggestions, err := h.places.GetUniversitySuggestions(ctx, req.Query)
		if err != nil {
			utils.GetLogger().Error("autocomplete failed", utils.Error(err))
			return errorResponse(headers, http.StatusBadGateway, "Failed to fetch suggestions")
		}
		return okResponse(headers, suggestions)

	case "fetch-programs":
		if req.UniversityName == "" {
			return errorResponse(headers, http.StatusBadRequest, "university_name is required")
		}
		list, err := h.programs.ListByUniversity(ctx, req.UniversityName, req.StudyLevel)
		if err != nil {
			utils.GetLogger().Error("program fetch failed", utils.Error(err))
			return errorResponse(headers, http.StatusInternalServerError, "Failed to fetch programs")
		}
		return okResponse(headers, list)

	case "extract-custom-program":
		if req.UniversityName == "" || req.FreeText == "" {
			return errorResponse(headers, http.StatusBadRequest, "university_name and free_text are required")
		}
		program, err := h.programs.ExtractCustomProgram(ctx, req.UniversityName, req.FreeText)
		if err != nil {
			utils.GetLogger().Error("program extraction failed", utils.Error(err))
			return errorResponse(headers, http.StatusBadGateway, "Failed to extract program details")
		}
		return okResponse(headers, program)

	case "send-otp":
		validation := models.ValidatePhone(req.CountryCode, req.Phone)
		if !validation.IsValid {
			return okResponse(headers, validation)
		}
		if err := h.otp.Send(ctx, req.CountryCode, req.Phone); err != nil {
			utils.GetLogger().Error("OTP send failed", utils.Error(err))
			return errorResponse(headers, http.StatusTooManyRequests, "Failed to send OTP")
		}
		return okResponse(headers, validation)

	case "verify-otp":
		if err := models.ValidateOTPCode(req.Code); err != nil {
			return errorResponse(headers, http.StatusBadRequest, err.Error())
		}
		if err := h.otp.Verify(ctx, req.Phone, req.Code); err != nil {
			switch {
			case errors.Is(err, models.ErrOTPCodeMismatch):
				return errorResponse(headers, http.StatusUnauthorized, "Incorrect code")
			case errors.Is(err, models.ErrOTPExpired):
				return errorResponse(headers, http.StatusGone, "Code expired, please request a new one")
			default:
				utils.GetLogger().Error("OTP verify failed", utils.Error(err))
				return errorResponse(headers, http.StatusInternalServerError, "Failed to verify OTP")
			}
		}
		contact, err := h.contacts.Upsert(ctx, &models.ContactUpsert{
			Phone:    req.CountryCode + req.Phone,
			Verified: true,
		})
		if err != nil {
			utils.GetLogger().Error("contact upsert failed after verification", utils.Error(err))
			return okResponse(headers, map[string]bool{"verified": true})
		}
		return okResponse(headers, contact)

	default:
		return errorResponse(headers, http.StatusBadRequest, "Unknown action: "+req.Action)
	}
}

// okResponse serializes a successful payload.
func okResponse(headers map[string]string, data interface{}) (events.APIGatewayProxyResponse, error) {
	body, _ := json.Marshal(data)
	return events.APIGatewayProxyResponse{
		StatusCode: http.StatusOK,
		Headers:    headers,
		Body:       string(body),
	}, nil
}

// errorResponse creates an error response.
func errorResponse(headers map[string]string, statusCode int, message string) (events.APIGatewayProxyResponse, error) {
	body, _ := json.Marshal(map[string]string{
		"error":   http.StatusText(statusCode),
		"message": message,
	})

	return events.APIGatewayProxyResponse{
		StatusCode: statusCode,
		Headers:    headers,
		Body:       string(body),
	}, nil
}
