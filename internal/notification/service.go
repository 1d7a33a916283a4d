package notification

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/pkg/errors"
	"github.com/rs/zerolog"
	"github.com/sitewatch/sitewatch-api/internal/models"
	"github.com/sitewatch/sitewatch-api/internal/repository"
)

// Intent describes one notification to be dispatched to one recipient.
type Intent struct {
	RecipientID    string
	Title          string
	Message        string
	Category       models.NotificationCategory
	Priority       models.NotificationPriority
	Metadata       map[string]interface{}
	ActionURL      string
	ExpiresInHours float64
}

type Service interface {
	// Dispatch persists the notification, then best-effort pushes it to the
	// recipient's live connections. The durable write is the only guaranteed
	// delivery path; push failures are swallowed and logged.
	Dispatch(ctx context.Context, intent Intent) (models.Notification, error)

	NotifyReportSubmitted(ctx context.Context, report models.Report)
	NotifyReportReviewed(ctx context.Context, report models.Report, reviewer models.User)
	NotifyEngineerAssigned(ctx context.Context, site models.Site, engineerID string, actor models.User)
	NotifyAccountDeactivated(ctx context.Context, userID string, actor models.User)

	ListActive(ctx context.Context, recipientID string, limit int) ([]models.Notification, error)
	UnreadCount(ctx context.Context, recipientID string) (int, error)
	MarkRead(ctx context.Context, recipientID, notificationID string) (models.Notification, error)
	MarkAllRead(ctx context.Context, recipientID string) (int64, error)
	Delete(ctx context.Context, recipientID, notificationID string) error
	ClearAll(ctx context.Context, recipientID string) (int64, error)
	DeleteExpired(ctx context.Context) (int64, error)
}

type service struct {
	repo      repository.NotificationRepository
	users     repository.UserRepository
	sites     repository.SiteRepository
	logger    zerolog.Logger
	notifiers []Notifier
}

func NewService(repo repository.NotificationRepository, users repository.UserRepository, sites repository.SiteRepository, logger zerolog.Logger, notifiers ...Notifier) Service {
	active := make([]Notifier, 0, len(notifiers))
	for _, notifier := range notifiers {
		if notifier != nil {
			active = append(active, notifier)
		}
	}
	return &service{
		repo:      repo,
		users:     users,
		sites:     sites,
		logger:    logger.With().Str("component", "notification_service").Logger(),
		notifiers: active,
	}
}

func (s *service) Dispatch(ctx context.Context, intent Intent) (models.Notification, error) {
	intent.RecipientID = strings.TrimSpace(intent.RecipientID)
	intent.Title = strings.TrimSpace(intent.Title)
	intent.Message = strings.TrimSpace(intent.Message)

	if intent.RecipientID == "" {
		return models.Notification{}, validationError("recipient id")
	}
	if intent.Title == "" {
		return models.Notification{}, validationError("title")
	}
	if intent.Message == "" {
		return models.Notification{}, validationError("message")
	}
	if intent.Category == "" {
		intent.Category = models.NotificationCategoryInfo
	}
	if !models.IsValidNotificationCategory(intent.Category) {
		return models.Notification{}, errors.Wrapf(ErrValidation, "unknown category %q", intent.Category)
	}
	if intent.Priority == "" {
		intent.Priority = models.NotificationPriorityMedium
	}
	if !models.IsValidNotificationPriority(intent.Priority) {
		return models.Notification{}, errors.Wrapf(ErrValidation, "unknown priority %q", intent.Priority)
	}
	if intent.ExpiresInHours < 0 {
		return models.Notification{}, errors.Wrap(ErrValidation, "expires_in_hours must be positive")
	}

	params := repository.CreateNotificationParams{
		RecipientID: intent.RecipientID,
		Title:       intent.Title,
		Message:     intent.Message,
		Category:    intent.Category,
		Priority:    intent.Priority,
		Metadata:    intent.Metadata,
	}
	if url := strings.TrimSpace(intent.ActionURL); url != "" {
		params.ActionURL = &url
	}
	if intent.ExpiresInHours > 0 {
		expiresAt := time.Now().Add(time.Duration(intent.ExpiresInHours * float64(time.Hour)))
		params.ExpiresAt = &expiresAt
	}

	// Durable write first. A push may only happen for a record a pull-fetch
	// would already see.
	notif, err := s.repo.Create(ctx, params)
	if err != nil {
		s.logger.Error().Err(err).Str("recipient_id", intent.RecipientID).Msg("failed to persist notification")
		return models.Notification{}, errors.Wrap(err, "persist notification")
	}

	for _, notifier := range s.notifiers {
		if err := notifier.Notify(ctx, notif); err != nil {
			logNotifyError(s.logger, err, notifierChannelName(notifier), notif)
		}
	}
	return notif, nil
}

// NotifyReportSubmitted alerts the admin who owns the report's site. A failed
// recipient lookup is logged and dropped; it never affects the submitted report.
func (s *service) NotifyReportSubmitted(ctx context.Context, report models.Report) {
	site, err := s.sites.GetSiteByID(report.SiteID)
	if err != nil {
		s.logger.Warn().Err(err).Str("report_id", report.ID).Str("site_id", report.SiteID).Msg("cannot resolve site for report-submitted notification")
		return
	}
	if site.CreatedBy == "" {
		s.logger.Warn().Str("site_id", site.ID).Msg("site has no owner, skipping report-submitted notification")
		return
	}

	inspectorName := report.InspectorID
	if inspector, err := s.users.GetUserByID(report.InspectorID); err == nil {
		inspectorName = inspector.FullName()
	}

	s.dispatchProducer(ctx, "report-submitted", Intent{
		RecipientID: site.CreatedBy,
		Title:       "New Inspection Report",
		Message:     fmt.Sprintf("%s submitted a report for %s: %s", inspectorName, site.Name, report.Title),
		Category:    models.NotificationCategoryInfo,
		Priority:    models.NotificationPriorityHigh,
		Metadata: map[string]interface{}{
			"report_id": report.ID,
			"site_id":   site.ID,
			"site_name": site.Name,
			"inspector": inspectorName,
		},
		ActionURL: "/reports/" + report.ID,
	})
}

// NotifyReportReviewed alerts the report's inspector of the verdict.
func (s *service) NotifyReportReviewed(ctx context.Context, report models.Report, reviewer models.User) {
	if report.InspectorID == "" {
		s.logger.Warn().Str("report_id", report.ID).Msg("report has no inspector, skipping report-reviewed notification")
		return
	}

	category := models.NotificationCategorySuccess
	verdict := "approved"
	title := "Report Approved"
	if report.Status == models.ReportStatusRejected {
		category = models.NotificationCategoryWarning
		verdict = "rejected"
		title = "Report Rejected"
	}

	message := fmt.Sprintf("%s %s your report %q", reviewer.FullName(), verdict, report.Title)
	if report.ReviewComment != nil && *report.ReviewComment != "" {
		message += ": " + *report.ReviewComment
	}

	s.dispatchProducer(ctx, "report-reviewed", Intent{
		RecipientID: report.InspectorID,
		Title:       title,
		Message:     message,
		Category:    category,
		Priority:    models.NotificationPriorityMedium,
		Metadata: map[string]interface{}{
			"report_id": report.ID,
			"site_id":   report.SiteID,
			"status":    string(report.Status),
			"reviewer":  reviewer.FullName(),
		},
		ActionURL: "/reports/" + report.ID,
	})
}

// NotifyEngineerAssigned alerts an engineer newly assigned to a site.
func (s *service) NotifyEngineerAssigned(ctx context.Context, site models.Site, engineerID string, actor models.User) {
	if engineerID == "" {
		s.logger.Warn().Str("site_id", site.ID).Msg("missing engineer id, skipping assignment notification")
		return
	}

	s.dispatchProducer(ctx, "engineer-assigned", Intent{
		RecipientID: engineerID,
		Title:       "Site Assignment",
		Message:     fmt.Sprintf("%s assigned you to site %s (%s)", actor.FullName(), site.Name, site.Location),
		Category:    models.NotificationCategoryInfo,
		Priority:    models.NotificationPriorityMedium,
		Metadata: map[string]interface{}{
			"site_id":   site.ID,
			"site_name": site.Name,
			"actor":     actor.FullName(),
		},
		ActionURL: "/sites/" + site.ID,
	})
}

// NotifyAccountDeactivated alerts the deactivated user. The notification
// carries a short expiry; a stale deactivation notice has no value.
func (s *service) NotifyAccountDeactivated(ctx context.Context, userID string, actor models.User) {
	if userID == "" {
		s.logger.Warn().Msg("missing user id, skipping deactivation notification")
		return
	}

	s.dispatchProducer(ctx, "account-deactivated", Intent{
		RecipientID: userID,
		Title:       "Account Deactivated",
		Message:     fmt.Sprintf("Your account was deactivated by %s. Contact an administrator for details.", actor.FullName()),
		Category:    models.NotificationCategoryError,
		Priority:    models.NotificationPriorityUrgent,
		Metadata: map[string]interface{}{
			"actor": actor.FullName(),
		},
		ExpiresInHours: 24,
	})
}

// dispatchProducer runs a producer-originated dispatch. Failures are logged
// and dropped so a missed notification never fails the domain action that
// triggered it.
func (s *service) dispatchProducer(ctx context.Context, producer string, intent Intent) {
	if _, err := s.Dispatch(ctx, intent); err != nil {
		s.logger.Error().Err(err).Str("producer", producer).Str("recipient_id", intent.RecipientID).Msg("producer dispatch failed")
	}
}

func (s *service) ListActive(ctx context.Context, recipientID string, limit int) ([]models.Notification, error) {
	return s.repo.ListActive(ctx, recipientID, limit)
}

func (s *service) UnreadCount(ctx context.Context, recipientID string) (int, error) {
	return s.repo.UnreadCount(ctx, recipientID)
}

func (s *service) MarkRead(ctx context.Context, recipientID, notificationID string) (models.Notification, error) {
	return s.repo.MarkRead(ctx, recipientID, notificationID)
}

func (s *service) MarkAllRead(ctx context.Context, recipientID string) (int64, error) {
	return s.repo.MarkAllRead(ctx, recipientID)
}

func (s *service) Delete(ctx context.Context, recipientID, notificationID string) error {
	return s.repo.Delete(ctx, recipientID, notificationID)
}

func (s *service) ClearAll(ctx context.Context, recipientID string) (int64, error) {
	return s.repo.ClearAll(ctx, recipientID)
}

func (s *service) DeleteExpired(ctx context.Context) (int64, error) {
	return s.repo.DeleteExpired(ctx)
}

func notifierChannelName(n Notifier) string {
	type named interface {
		String() string
	}
	if v, ok := n.(named); ok {
		return v.String()
	}
	return fmt.Sprintf("%T", n)
}
