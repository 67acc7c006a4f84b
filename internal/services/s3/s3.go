// Package s3service stores borrower-uploaded documents in S3.
package s3service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/google/uuid"
	"go.uber.org/zap"

	appConfig "edumate-api/internal/config"
	"edumate-api/internal/utils"
)

// uploadExpiry is how long a presigned upload URL stays usable.
const uploadExpiry = time.Hour

// allowedContentTypes are the document formats borrowers may upload.
var allowedContentTypes = map[string]string{
	"application/pdf": ".pdf",
	"image/jpeg":      ".jpg",
	"image/png":       ".png",
}

// Service handles document storage operations
type Service struct {
	client     *s3.Client
	presigner  *s3.PresignClient
	bucketName string
}

// PresignedURLResult contains the presigned URL details
type PresignedURLResult struct {
	URL       string    `json:"url"`
	Key       string    `json:"key"`
	ExpiresAt time.Time `json:"expires_at"`
}

// Document describes one stored borrower document.
type Document struct {
	Key          string    `json:"key"`
	Size         int64     `json:"size"`
	LastModified time.Time `json:"last_modified"`
}

// NewService creates a new document service
func NewService(ctx context.Context) (*Service, error) {
	cfg, err := config.LoadDefaultConfig(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}

	appCfg, err := appConfig.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load app config: %w", err)
	}

	client := s3.NewFromConfig(cfg)
	presigner := s3.NewPresignClient(client)

	return &Service{
		client:     client,
		presigner:  presigner,
		bucketName: appCfg.S3Bucket,
	}, nil
}

// PresignDocumentUpload creates a presigned PUT URL for one borrower
// document. The key namespaces documents per contact and upload date.
func (s *Service) PresignDocumentUpload(ctx context.Context, contactID, fileName, contentType string) (*PresignedURLResult, error) {
	if _, ok := allowedContentTypes[contentType]; !ok {
		return nil, fmt.Errorf("unsupported document type: %s", contentType)
	}

	key := fmt.Sprintf("documents/%s/%s/%s_%s",
		contactID,
		time.Now().UTC().Format("2006-01-02"),
		uuid.New().String(),
		sanitizeFileName(fileName),
	)

	input := &s3.PutObjectInput{
		Bucket:      aws.String(s.bucketName),
		Key:         aws.String(key),
		ContentType: aws.String(contentType),
	}

	presignedReq, err := s.presigner.PresignPutObject(ctx, input, func(opts *s3.PresignOptions) {
		opts.Expires = uploadExpiry
	})
	if err != nil {
		utils.Logger.Error("Failed to generate presigned URL",
			zap.String("bucket", s.bucketName),
			zap.String("key", key),
			zap.Error(err),
		)
		return nil, fmt.Errorf("failed to generate presigned URL: %w", err)
	}

	utils.Logger.Info("Generated presigned upload URL",
		zap.String("bucket", s.bucketName),
		zap.String("key", key),
	)

	return &PresignedURLResult{
		URL:       presignedReq.URL,
		Key:       key,
		ExpiresAt: time.Now().Add(uploadExpiry),
	}, nil
}

// PresignDocumentDownload creates a presigned GET URL for a stored
// document.
func (s *Service) PresignDocumentDownload(ctx context.Context, key string) (*PresignedURLResult, error) {
	input := &s3.GetObjectInput{
		Bucket: aws.String(s.bucketName),
		Key:    aws.String(key),
	}

	presignedReq, err := s.presigner.PresignGetObject(ctx, input, func(opts *s3.PresignOptions) {
		opts.Expires = uploadExpiry
	})
	if err != nil {
		return nil, fmt.Errorf("failed to generate presigned download URL: %w", err)
	}

	return &PresignedURLResult{
		URL:       presignedReq.URL,
		Key:       key,
		ExpiresAt: time.Now().Add(uploadExpiry),
	}, nil
}

// ListDocuments lists a contact's uploaded documents.
func (s *Service) ListDocuments(ctx context.Context, contactID string) ([]Document, error) {
	input := &s3.ListObjectsV2Input{
		Bucket: aws.String(s.bucketName),
		Prefix: aws.String("documents/" + contactID + "/"),
	}

	result, err := s.client.ListObjectsV2(ctx, input)
	if err != nil {
		return nil, fmt.Errorf("failed to list documents: %w", err)
	}

	documents := make([]Document, 0, len(result.Contents))
	for _, obj := range result.Contents {
		documents = append(documents, Document{
			Key:          aws.ToString(obj.Key),
			Size:         aws.ToInt64(obj.Size),
			LastModified: aws.ToTime(obj.LastModified),
		})
	}
	return documents, nil
}

// DeleteDocument removes a stored document.
func (s *Service) DeleteDocument(ctx context.Context, key string) error {
	input := &s3.DeleteObjectInput{
		Bucket: aws.String(s.bucketName),
		Key:    aws.String(key),
	}

	_, err := s.client.DeleteObject(ctx, input)
	if err != nil {
		return fmt.Errorf("failed to delete document: %w", err)
	}

	utils.Logger.Info("Deleted document",
		zap.String("bucket", s.bucketName),
		zap.String("key", key),
	)
	return nil
}

// sanitizeFileName strips path separators and spaces from user file names.
func sanitizeFileName(name string) string {
	name = strings.ReplaceAll(name, "/", "_")
	name = strings.ReplaceAll(name, "\\", "_")
	name = strings.ReplaceAll(name, " ", "_")
	return name
}
