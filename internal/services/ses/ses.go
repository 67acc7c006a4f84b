// Package ses provides email notification services via AWS SES
package ses

import (
	"bytes"
	"context"
	"fmt"
	"html/template"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/ses"
	"github.com/aws/aws-sdk-go-v2/service/ses/types"
	"go.uber.org/zap"

	appConfig "edumate-api/internal/config"
	"edumate-api/internal/models"
	"edumate-api/internal/utils"
)

// Service handles SES email operations
type Service struct {
	client       *ses.Client
	fromEmail    string
	advisorEmail string
}

// EmailParams represents parameters for sending an email
type EmailParams struct {
	To       string
	Subject  string
	HTMLBody string
	TextBody string
	ReplyTo  string
}

// LeadParams contains the wizard answers forwarded to an advisor after a
// borrower verifies their phone.
type LeadParams struct {
	Phone          string
	StudyLevel     string
	UniversityName string
	ProgramName    string
	LoanAmount     float64
	LoanType       string
}

// SendEmailResult contains the result of sending an email
type SendEmailResult struct {
	MessageID string
	SentAt    time.Time
}

// NewService creates a new SES service
func NewService(ctx context.Context) (*Service, error) {
	cfg, err := config.LoadDefaultConfig(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}

	appCfg, err := appConfig.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load app config: %w", err)
	}

	client := ses.NewFromConfig(cfg)

	return &Service{
		client:       client,
		fromEmail:    appCfg.SESSenderEmail,
		advisorEmail: appCfg.AdvisorEmail,
	}, nil
}

// SendEmail sends a basic email
func (s *Service) SendEmail(ctx context.Context, params EmailParams) (*SendEmailResult, error) {
	input := &ses.SendEmailInput{
		Source: aws.String(s.fromEmail),
		Destination: &types.Destination{
			ToAddresses: []string{params.To},
		},
		Message: &types.Message{
			Subject: &types.Content{
				Data:    aws.String(params.Subject),
				Charset: aws.String("UTF-8"),
			},
			Body: &types.Body{},
		},
	}

	if params.HTMLBody != "" {
		input.Message.Body.Html = &types.Content{
			Data:    aws.String(params.HTMLBody),
			Charset: aws.String("UTF-8"),
		}
	}

	if params.TextBody != "" {
		input.Message.Body.Text = &types.Content{
			Data:    aws.String(params.TextBody),
			Charset: aws.String("UTF-8"),
		}
	}

	if params.ReplyTo != "" {
		input.ReplyToAddresses = []string{params.ReplyTo}
	}

	result, err := s.client.SendEmail(ctx, input)
	if err != nil {
		utils.Logger.Error("Failed to send email",
			zap.String("to", params.To),
			zap.String("subject", params.Subject),
			zap.Error(err),
		)
		return nil, fmt.Errorf("failed to send email: %w", err)
	}

	utils.Logger.Info("Email sent successfully",
		zap.String("to", params.To),
		zap.String("subject", params.Subject),
		zap.String("messageId", *result.MessageId),
	)

	return &SendEmailResult{
		MessageID: *result.MessageId,
		SentAt:    time.Now(),
	}, nil
}

// SendWelcomeEmail greets a newly verified contact. Contacts without an
// email on file are skipped silently.
func (s *Service) SendWelcomeEmail(ctx context.Context, contact *models.Contact) (*SendEmailResult, error) {
	if contact.Email == "" {
		return nil, nil
	}

	htmlBody, err := renderWelcomeHTML(contact)
	if err != nil {
		return nil, fmt.Errorf("failed to render email template: %w", err)
	}

	name := contact.Name
	if name == "" {
		name = "there"
	}

	return s.SendEmail(ctx, EmailParams{
		To:       contact.Email,
		Subject:  "Welcome to Edumate — your loan search starts here",
		HTMLBody: htmlBody,
		TextBody: fmt.Sprintf("Hi %s,\n\nYour phone number is verified. You can now compare education loans, save favourites, and talk to an advisor.\n\nBest regards,\nThe Edumate Team\n", name),
	})
}

// SendLeadNotification forwards the wizard answers to the advisor inbox.
func (s *Service) SendLeadNotification(ctx context.Context, params LeadParams) (*SendEmailResult, error) {
	if s.advisorEmail == "" {
		return nil, nil
	}

	var buf bytes.Buffer
	buf.WriteString("A new verified lead came in:\n\n")
	buf.WriteString(fmt.Sprintf("Phone: %s\n", params.Phone))
	buf.WriteString(fmt.Sprintf("Study level: %s\n", params.StudyLevel))
	buf.WriteString(fmt.Sprintf("University: %s\n", params.UniversityName))
	if params.ProgramName != "" {
		buf.WriteString(fmt.Sprintf("Program: %s\n", params.ProgramName))
	}
	buf.WriteString(fmt.Sprintf("Loan amount: %.0f\n", params.LoanAmount))
	buf.WriteString(fmt.Sprintf("Loan type: %s\n", params.LoanType))

	return s.SendEmail(ctx, EmailParams{
		To:       s.advisorEmail,
		Subject:  fmt.Sprintf("New verified lead: %s", params.UniversityName),
		TextBody: buf.String(),
	})
}

// renderWelcomeHTML renders the HTML welcome template
func renderWelcomeHTML(contact *models.Contact) (string, error) {
	tmpl := `
<!DOCTYPE html>
<html>
<head>
    <meta charset="UTF-8">
    <meta name="viewport" content="width=device-width, initial-scale=1.0">
    <style>
        body { font-family: 'Segoe UI', Tahoma, Geneva, Verdana, sans-serif; line-height: 1.6; color: #333; max-width: 600px; margin: 0 auto; padding: 20px; }
        .header { background: linear-gradient(135deg, #667eea 0%, #764ba2 100%); color: white; padding: 30px; border-radius: 10px 10px 0 0; text-align: center; }
        .header h1 { margin: 0; font-size: 24px; }
        .content { background: #f9f9f9; padding: 30px; border-radius: 0 0 10px 10px; }
        .cta-button { display: inline-block; background: #667eea; color: white; padding: 15px 30px; text-decoration: none; border-radius: 8px; font-weight: bold; margin-top: 20px; }
        .footer { text-align: center; margin-top: 30px; color: #999; font-size: 12px; }
    </style>
</head>
<body>
    <div class="header">
        <h1>Welcome to Edumate!</h1>
        <p>Hi {{.Name}}, your phone number is verified</p>
    </div>
    <div class="content">
        <p>You can now compare education loans side by side, save your favourites, and reach out to an advisor whenever you're ready.</p>
    </div>
    <div class="footer">
        <p>This email was sent by Edumate</p>
        <p>You received this because you verified your phone number with us.</p>
    </div>
</body>
</html>`

	t, err := template.New("welcome").Parse(tmpl)
	if err != nil {
		return "", err
	}

	data := struct{ Name string }{Name: contact.Name}
	if data.Name == "" {
		data.Name = "there"
	}

	var buf bytes.Buffer
	if err := t.Execute(&buf, data); err != nil {
		return "", err
	}

	return buf.String(), nil
}

// VerifyEmailAddress verifies an email address for sending
func (s *Service) VerifyEmailAddress(ctx context.Context, email string) error {
	input := &ses.VerifyEmailAddressInput{
		EmailAddress: aws.String(email),
	}

	_, err := s.client.VerifyEmailAddress(ctx, input)
	if err != nil {
		return fmt.Errorf("failed to verify email: %w", err)
	}

	utils.Logger.Info("Email verification initiated", zap.String("email", email))
	return nil
}
