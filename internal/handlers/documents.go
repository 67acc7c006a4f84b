package handlers

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/aws/aws-lambda-go/events"

	s3service "edumate-api/internal/services/s3"
	"edumate-api/internal/utils"
)

// DocumentsHandler issues presigned upload URLs for borrower documents.
type DocumentsHandler struct {
	storage *s3service.Service
}

// NewDocumentsHandler creates a new documents handler.
func NewDocumentsHandler(ctx context.Context) (*DocumentsHandler, error) {
	storage, err := s3service.NewService(ctx)
	if err != nil {
		return nil, err
	}
	return &DocumentsHandler{storage: storage}, nil
}

// Handle processes the API Gateway request for document uploads.
func (h *DocumentsHandler) Handle(ctx context.Context, request events.APIGatewayProxyRequest) (events.APIGatewayProxyResponse, error) {
	headers := map[string]string{
		"Access-Control-Allow-Origin":  "*",
		"Access-Control-Allow-Headers": "Content-Type,Authorization",
		"Access-Control-Allow-Methods": "GET,POST,OPTIONS",
		"Content-Type":                 "application/json",
	}

	if request.HTTPMethod == "OPTIONS" {
		return events.APIGatewayProxyResponse{
			StatusCode: http.StatusOK,
			Headers:    headers,
		}, nil
	}

	contactID := request.QueryStringParameters["contact_id"]
	if contactID == "" {
		return errorResponse(headers, http.StatusBadRequest, "contact_id is required")
	}

	if request.HTTPMethod == "GET" {
		documents, err := h.storage.ListDocuments(ctx, contactID)
		if err != nil {
			utils.GetLogger().Error("document list failed", utils.Error(err))
			return errorResponse(headers, http.StatusInternalServerError, "Failed to list documents")
		}
		return okResponse(headers, documents)
	}

	var req struct {
		FileName    string `json:"file_name"`
		ContentType string `json:"content_type"`
	}
	if err := json.Unmarshal([]byte(request.Body), &req); err != nil {
		return errorResponse(headers, http.StatusBadRequest, "Invalid request body")
	}
	if req.FileName == "" {
		return errorResponse(headers, http.StatusBadRequest, "file_name is required")
	}

	result, err := h.storage.PresignDocumentUpload(ctx, contactID, req.FileName, req.ContentType)
	if err != nil {
		return errorResponse(headers, http.StatusBadRequest, err.Error())
	}

	utils.GetLogger().Info("Presigned document upload",
		utils.String("contact_id", contactID),
		utils.String("key", result.Key))

	return okResponse(headers, result)
}
