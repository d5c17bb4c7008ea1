package service

import (
	"context"
	"fmt"
	"html"
	"log"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/sesv2"
	"github.com/aws/aws-sdk-go-v2/service/sesv2/types"
	"github.com/resend/resend-go/v2"
)

// EmailMessage is one outgoing email
type EmailMessage struct {
	From     string
	To       string
	Subject  string
	HTMLBody string
	TextBody string
}

// EmailSender delivers a message through one provider
type EmailSender interface {
	Send(ctx context.Context, msg EmailMessage) error
}

// EmailService renders transactional emails and hands them to a sender
type EmailService struct {
	sender     EmailSender
	fromEmail  string
	fromName   string
	appBaseURL string
	enabled    bool
	debug      bool
}

// EmailConfig selects and configures the provider
type EmailConfig struct {
	Provider     string // ses or resend
	AWSRegion    string
	FromEmail    string
	FromName     string
	ResendAPIKey string
	AppBaseURL   string
	Debug        bool
}

// NewEmailService creates a new email service. Without a from address the
// service is disabled and every send is skipped.
func NewEmailService(ctx context.Context, cfg EmailConfig) (*EmailService, error) {
	if cfg.FromEmail == "" {
		log.Println("Email service disabled: SES_FROM_EMAIL not configured")
		return &EmailService{enabled: false, debug: cfg.Debug}, nil
	}

	var sender EmailSender
	switch strings.ToLower(cfg.Provider) {
	case "resend":
		if cfg.ResendAPIKey == "" {
			log.Println("Email service disabled: RESEND_API_KEY not configured")
			return &EmailService{enabled: false, debug: cfg.Debug}, nil
		}
		sender = NewResendSender(cfg.ResendAPIKey)
	case "ses", "":
		awsCfg, err := config.LoadDefaultConfig(ctx, config.WithRegion(cfg.AWSRegion))
		if err != nil {
			return nil, fmt.Errorf("failed to load AWS config: %w", err)
		}
		sender = &SESSender{client: sesv2.NewFromConfig(awsCfg)}
	default:
		return nil, fmt.Errorf("unsupported email provider: %s", cfg.Provider)
	}

	log.Printf("Email service enabled: provider=%s from=%s", cfg.Provider, cfg.FromEmail)
	return NewEmailServiceWithSender(sender, cfg), nil
}

// NewEmailServiceWithSender builds an enabled service around sender
func NewEmailServiceWithSender(sender EmailSender, cfg EmailConfig) *EmailService {
	return &EmailService{
		sender:     sender,
		fromEmail:  cfg.FromEmail,
		fromName:   cfg.FromName,
		appBaseURL: strings.TrimSuffix(cfg.AppBaseURL, "/"),
		enabled:    true,
		debug:      cfg.Debug,
	}
}

// IsEnabled returns whether the email service is enabled
func (s *EmailService) IsEnabled() bool {
	return s != nil && s.enabled
}

// SendSponsorshipConfirmation tells a donor their sponsorship request was received
func (s *EmailService) SendSponsorshipConfirmation(ctx context.Context, toEmail, toName string) error {
	if !s.IsEnabled() {
		log.Printf("Skipping email send (service disabled): sponsorship confirmation to %s", toEmail)
		return nil
	}

	if toName == "" {
		toName = "friend"
	}
	profileLink := s.appBaseURL + "/complete-profile"

	subject := "Your Love In Action sponsorship request"
	htmlBody := fmt.Sprintf(`
<!DOCTYPE html>
<html>
<head>
	<meta charset="UTF-8">
	<style>
		body { font-family: Arial, sans-serif; line-height: 1.6; color: #333; }
		.container { max-width: 600px; margin: 0 auto; padding: 20px; }
		.header { background-color: #c0392b; color: white; padding: 20px; text-align: center; border-radius: 5px 5px 0 0; }
		.content { background-color: #f9f9f9; padding: 30px; border-radius: 0 0 5px 5px; }
		.button { display: inline-block; padding: 12px 30px; background-color: #c0392b; color: white; text-decoration: none; border-radius: 5px; margin: 20px 0; }
		.footer { text-align: center; margin-top: 20px; font-size: 12px; color: #666; }
	</style>
</head>
<body>
	<div class="container">
		<div class="header">
			<h1>Thank you for sponsoring</h1>
		</div>
		<div class="content">
			<p>Hi %s,</p>
			<p>We have received your sponsorship request. Our team will match you with a child and let you know as soon as the match is approved.</p>
			<p style="text-align: center;">
				<a href="%s" class="button">Complete your profile</a>
			</p>
		</div>
		<div class="footer">
			<p>This is an automated email from Love In Action. Please do not reply.</p>
		</div>
	</div>
</body>
</html>
`, html.EscapeString(toName), profileLink)

	textBody := fmt.Sprintf(`Hi %s,

We have received your sponsorship request. Our team will match you with a child and let you know as soon as the match is approved.

Complete your profile: %s

---
This is an automated email from Love In Action. Please do not reply.
`, toName, profileLink)

	return s.sendEmail(ctx, toEmail, subject, htmlBody, textBody)
}

func (s *EmailService) sendEmail(ctx context.Context, toEmail, subject, htmlBody, textBody string) error {
	fromAddress := s.fromEmail
	if s.fromName != "" {
		fromAddress = fmt.Sprintf("%s <%s>", s.fromName, s.fromEmail)
	}

	if s.debug {
		log.Printf("[DEBUG] Sending email: from=%s to=%s subject=%s", fromAddress, toEmail, subject)
	}

	err := s.sender.Send(ctx, EmailMessage{
		From:     fromAddress,
		To:       toEmail,
		Subject:  subject,
		HTMLBody: htmlBody,
		TextBody: textBody,
	})
	if err != nil {
		return fmt.Errorf("failed to send email to %s: %w", toEmail, err)
	}

	log.Printf("Email sent successfully: to=%s, subject=%s", toEmail, subject)
	return nil
}

// SESSender sends through Amazon SES
type SESSender struct {
	client *sesv2.Client
}

func (s *SESSender) Send(ctx context.Context, msg EmailMessage) error {
	input := &sesv2.SendEmailInput{
		FromEmailAddress: aws.String(msg.From),
		Destination: &types.Destination{
			ToAddresses: []string{msg.To},
		},
		Content: &types.EmailContent{
			Simple: &types.Message{
				Subject: &types.Content{
					Data:    aws.String(msg.Subject),
					Charset: aws.String("UTF-8"),
				},
				Body: &types.Body{
					Html: &types.Content{
						Data:    aws.String(msg.HTMLBody),
						Charset: aws.String("UTF-8"),
					},
					Text: &types.Content{
						Data:    aws.String(msg.TextBody),
						Charset: aws.String("UTF-8"),
					},
				},
			},
		},
	}

	if _, err := s.client.SendEmail(ctx, input); err != nil {
		return fmt.Errorf("ses: %w", err)
	}
	return nil
}

// ResendSender sends through the Resend API
type ResendSender struct {
	client *resend.Client
}

// NewResendSender creates a sender for apiKey
func NewResendSender(apiKey string) *ResendSender {
	return &ResendSender{client: resend.NewClient(apiKey)}
}

func (s *ResendSender) Send(ctx context.Context, msg EmailMessage) error {
	_, err := s.client.Emails.SendWithContext(ctx, &resend.SendEmailRequest{
		From:    msg.From,
		To:      []string{msg.To},
		Subject: msg.Subject,
		Html:    msg.HTMLBody,
		Text:    msg.TextBody,
	})
	if err != nil {
		return fmt.Errorf("resend: %w", err)
	}
	return nil
}
