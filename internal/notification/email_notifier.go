package notification

import (
	"context"
	"fmt"
	"net/smtp"
	"strings"

	"github.com/rs/zerolog"
	"github.com/sitewatch/sitewatch-api/internal/config"
	"github.com/sitewatch/sitewatch-api/internal/models"
	"github.com/sitewatch/sitewatch-api/internal/repository"
)

// EmailNotifier mirrors urgent-priority notifications to the recipient's email
// address. Like every notifier it is best-effort; SMTP failures surface to the
// dispatch loop where they are logged and swallowed.
type EmailNotifier struct {
	host     string
	port     int
	username string
	password string
	from     string
	users    repository.UserRepository
	logger   zerolog.Logger
}

func NewEmailNotifier(cfg config.EmailConfig, users repository.UserRepository, logger zerolog.Logger) (*EmailNotifier, error) {
	host := strings.TrimSpace(cfg.SMTPHost)
	from := strings.TrimSpace(cfg.From)
	if host == "" {
		return nil, fmt.Errorf("smtp_host is required for email notifier")
	}
	if from == "" {
		return nil, fmt.Errorf("from is required for email notifier")
	}
	port := cfg.SMTPPort
	if port == 0 {
		port = 587
	}

	return &EmailNotifier{
		host:     host,
		port:     port,
		username: strings.TrimSpace(cfg.Username),
		password: cfg.Password,
		from:     from,
		users:    users,
		logger:   logger.With().Str("notifier", "email").Logger(),
	}, nil
}

func (n *EmailNotifier) Notify(_ context.Context, notif models.Notification) error {
	if notif.Priority != models.NotificationPriorityUrgent {
		return nil
	}

	recipient, err := n.users.GetUserByID(notif.RecipientID)
	if err != nil {
		return fmt.Errorf("resolve recipient email: %w", err)
	}

	subject := fmt.Sprintf("[SiteWatch] %s", strings.TrimSpace(notif.Title))

	body := strings.Builder{}
	body.WriteString(strings.TrimSpace(notif.Message))
	body.WriteString("\n\n")
	body.WriteString(fmt.Sprintf("Category: %s\n", notif.Category))
	body.WriteString(fmt.Sprintf("Priority: %s\n", notif.Priority))
	body.WriteString(fmt.Sprintf("Created: %s\n", notif.CreatedAt.Format("2006-01-02 15:04:05 MST")))

	headers := fmt.Sprintf("From: %s\r\nTo: %s\r\nSubject: %s\r\nMIME-Version: 1.0\r\nContent-Type: text/plain; charset=\"UTF-8\"\r\n\r\n",
		n.from, recipient.Email, subject)

	message := []byte(headers + body.String())
	addr := fmt.Sprintf("%s:%d", n.host, n.port)

	var auth smtp.Auth
	if n.username != "" {
		auth = smtp.PlainAuth("", n.username, n.password, n.host)
	}

	if err := smtp.SendMail(addr, auth, n.from, []string{recipient.Email}, message); err != nil {
		return err
	}

	n.logger.Info().
		Str("notification_id", notif.ID).
		Str("recipient", recipient.Email).
		Msg("urgent notification mirrored to email")
	return nil
}

func (n *EmailNotifier) String() string {
	return "EmailNotifier"
}
