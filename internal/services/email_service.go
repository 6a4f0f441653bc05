package services

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"html/template"
	"strings"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/ascendhq/ascend/internal/models"
	"github.com/ascendhq/ascend/pkg/logger"
	"github.com/ascendhq/ascend/pkg/mail"
	"github.com/ascendhq/ascend/pkg/metrics"
)

// Email template identifiers recorded in the email log.
const (
	TemplateWelcome         = "welcome"
	TemplateVerification    = "emailVerification"
	TemplatePasswordReset   = "passwordReset"
	TemplatePasswordChanged = "passwordChanged"
	TemplateContactResponse = "contactResponse"
)

var emailBodies = map[string]*template.Template{
	TemplateWelcome: template.Must(template.New(TemplateWelcome).Parse(`
<h2>Welcome to Ascend{{if .FirstName}}, {{.FirstName}}{{end}}!</h2>
<p>Your email is verified and your coaching team is ready. Pick a coach and
start your first session whenever you like.</p>
<p><a href="{{.AppURL}}">Open Ascend</a></p>`)),

	TemplateVerification: template.Must(template.New(TemplateVerification).Parse(`
<h2>Verify your email address</h2>
<p>{{if .FirstName}}Hi {{.FirstName}},{{else}}Hi,{{end}}</p>
<p>Confirm your email address to activate your Ascend account. This link
expires in 24 hours.</p>
<p><a href="{{.AppURL}}/verify-email?token={{.Token}}">Verify my email</a></p>
<p>If you did not create an account, you can ignore this message.</p>`)),

	TemplatePasswordReset: template.Must(template.New(TemplatePasswordReset).Parse(`
<h2>Reset your password</h2>
<p>{{if .FirstName}}Hi {{.FirstName}},{{else}}Hi,{{end}}</p>
<p>We received a request to reset your password. The link below expires in
one hour and can be used once.</p>
<p><a href="{{.AppURL}}/reset-password?token={{.Token}}">Choose a new password</a></p>
<p>If you did not request this, your password is unchanged and you can
ignore this message.</p>`)),

	TemplatePasswordChanged: template.Must(template.New(TemplatePasswordChanged).Parse(`
<h2>Your password was changed</h2>
<p>{{if .FirstName}}Hi {{.FirstName}},{{else}}Hi,{{end}}</p>
<p>Your Ascend password was just changed and you have been signed out of all
devices. If this was not you, reset your password immediately and contact
support.</p>`)),

	TemplateContactResponse: template.Must(template.New(TemplateContactResponse).Parse(`
<h2>Thank you for contacting Ascend</h2>
<p>Hi {{.Name}},</p>
<p>We've received your message and one of our team members will get back to
you within 24 hours.</p>
<p><strong>Subject:</strong> {{.Subject}}</p>
<p>{{.Message}}</p>`)),
}

type emailData struct {
	FirstName string
	Name      string
	Token     string
	AppURL    string
	Subject   string
	Message   string
}

// EmailService renders and delivers account emails. Every attempt, including
// failures and disabled delivery, leaves an EmailLog row.
type EmailService struct {
	db     *gorm.DB
	mailer mail.Mailer
	appURL string
	log    *zap.Logger
}

// NewEmailService builds an email service on top of the SMTP mailer.
func NewEmailService(db *gorm.DB, mailer mail.Mailer, appURL string) (*EmailService, error) {
	if db == nil {
		return nil, errors.New("email service: db is required")
	}
	if mailer == nil {
		return nil, errors.New("email service: mailer is required")
	}

	return &EmailService{
		db:     db,
		mailer: mailer,
		appURL: strings.TrimRight(strings.TrimSpace(appURL), "/"),
		log:    logger.WithModule("email"),
	}, nil
}

// SendVerificationEmail delivers the email verification link.
func (s *EmailService) SendVerificationEmail(ctx context.Context, toEmail, firstName, token string) error {
	return s.send(ctx, TemplateVerification, toEmail, "Verify your email address",
		emailData{FirstName: firstName, Token: token, AppURL: s.appURL})
}

// SendWelcomeEmail delivers the post-verification welcome message.
func (s *EmailService) SendWelcomeEmail(ctx context.Context, toEmail, firstName string) error {
	subject := "Welcome to Ascend!"
	if strings.TrimSpace(firstName) != "" {
		subject = fmt.Sprintf("Welcome to Ascend, %s!", strings.TrimSpace(firstName))
	}
	return s.send(ctx, TemplateWelcome, toEmail, subject,
		emailData{FirstName: firstName, AppURL: s.appURL})
}

// SendPasswordResetEmail delivers the password reset link.
func (s *EmailService) SendPasswordResetEmail(ctx context.Context, toEmail, firstName, token string) error {
	return s.send(ctx, TemplatePasswordReset, toEmail, "Reset your password",
		emailData{FirstName: firstName, Token: token, AppURL: s.appURL})
}

// SendPasswordChangedEmail notifies the user after a password change or reset.
func (s *EmailService) SendPasswordChangedEmail(ctx context.Context, toEmail, firstName string) error {
	return s.send(ctx, TemplatePasswordChanged, toEmail, "Your password was changed",
		emailData{FirstName: firstName, AppURL: s.appURL})
}

// SendContactAcknowledgement confirms receipt of a contact form submission.
func (s *EmailService) SendContactAcknowledgement(ctx context.Context, msg *models.ContactMessage) error {
	return s.send(ctx, TemplateContactResponse, msg.Email, "Re: "+msg.Subject,
		emailData{Name: msg.Name, Subject: msg.Subject, Message: msg.Message, AppURL: s.appURL})
}

func (s *EmailService) send(ctx context.Context, templateName, toEmail, subject string, data emailData) error {
	tmpl, ok := emailBodies[templateName]
	if !ok {
		return fmt.Errorf("email service: unknown template %q", templateName)
	}

	var body bytes.Buffer
	if err := tmpl.Execute(&body, data); err != nil {
		return fmt.Errorf("email service: render %s: %w", templateName, err)
	}

	entry := &models.EmailLog{
		ToEmail:  toEmail,
		Subject:  subject,
		Template: templateName,
		Status:   models.EmailStatusPending,
		Provider: "smtp",
	}
	if err := s.db.Create(entry).Error; err != nil {
		s.log.Warn("email log write failed", zap.Error(err))
	}

	sendErr := s.mailer.Send(ctx, mail.Message{To: toEmail, Subject: subject, Body: body.String()})

	now := time.Now()
	updates := map[string]any{"status": models.EmailStatusSent, "sent_at": now}
	result := "sent"
	if sendErr != nil {
		updates = map[string]any{"status": models.EmailStatusFailed, "error_message": sendErr.Error()}
		result = "failed"
	}
	metrics.EmailsSent.WithLabelValues(templateName, result).Inc()

	if entry.ID != "" {
		if err := s.db.Model(entry).Updates(updates).Error; err != nil {
			s.log.Warn("email log update failed", zap.Error(err))
		}
	}

	if sendErr != nil {
		return fmt.Errorf("email service: send %s: %w", templateName, sendErr)
	}
	return nil
}
