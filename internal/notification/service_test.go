package notification

import (
	"context"
	"database/sql"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/pkg/errors"
	"github.com/rs/zerolog"
	"github.com/sitewatch/sitewatch-api/internal/models"
	"github.com/sitewatch/sitewatch-api/internal/repository"
)

// memNotificationRepo is an in-memory NotificationRepository mirroring the SQL
// semantics: owner-scoped mutations, expiry exclusion, idempotent mark-read.
type memNotificationRepo struct {
	mu      sync.Mutex
	seq     int
	records map[string]models.Notification
	failing bool
}

func newMemNotificationRepo() *memNotificationRepo {
	return &memNotificationRepo{records: make(map[string]models.Notification)}
}

func (m *memNotificationRepo) Create(_ context.Context, params repository.CreateNotificationParams) (models.Notification, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failing {
		return models.Notification{}, errors.New("connection refused")
	}
	m.seq++
	notif := models.Notification{
		ID:          fmt.Sprintf("n-%d", m.seq),
		RecipientID: params.RecipientID,
		Title:       params.Title,
		Message:     params.Message,
		Category:    params.Category,
		Priority:    params.Priority,
		ActionURL:   params.ActionURL,
		ExpiresAt:   params.ExpiresAt,
		CreatedAt:   time.Now(),
	}
	m.records[notif.ID] = notif
	return notif, nil
}

func (m *memNotificationRepo) ListActive(_ context.Context, recipientID string, limit int) ([]models.Notification, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if limit <= 0 || limit > 100 {
		limit = 25
	}
	var out []models.Notification
	for _, n := range m.records {
		if n.RecipientID != recipientID {
			continue
		}
		if n.ExpiresAt != nil && !n.ExpiresAt.After(time.Now()) {
			continue
		}
		out = append(out, n)
		if len(out) == limit {
			break
		}
	}
	return out, nil
}

func (m *memNotificationRepo) UnreadCount(_ context.Context, recipientID string) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	count := 0
	for _, n := range m.records {
		if n.RecipientID == recipientID && !n.IsRead && (n.ExpiresAt == nil || n.ExpiresAt.After(time.Now())) {
			count++
		}
	}
	return count, nil
}

func (m *memNotificationRepo) MarkRead(_ context.Context, recipientID, notificationID string) (models.Notification, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	n, ok := m.records[notificationID]
	if !ok || n.RecipientID != recipientID {
		return models.Notification{}, sql.ErrNoRows
	}
	n.IsRead = true
	m.records[notificationID] = n
	return n, nil
}

func (m *memNotificationRepo) MarkAllRead(_ context.Context, recipientID string) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var updated int64
	for id, n := range m.records {
		if n.RecipientID == recipientID && !n.IsRead {
			n.IsRead = true
			m.records[id] = n
			updated++
		}
	}
	return updated, nil
}

func (m *memNotificationRepo) Delete(_ context.Context, recipientID, notificationID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	n, ok := m.records[notificationID]
	if !ok || n.RecipientID != recipientID {
		return sql.ErrNoRows
	}
	delete(m.records, notificationID)
	return nil
}

func (m *memNotificationRepo) ClearAll(_ context.Context, recipientID string) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var deleted int64
	for id, n := range m.records {
		if n.RecipientID == recipientID {
			delete(m.records, id)
			deleted++
		}
	}
	return deleted, nil
}

func (m *memNotificationRepo) DeleteExpired(_ context.Context) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var deleted int64
	for id, n := range m.records {
		if n.ExpiresAt != nil && !n.ExpiresAt.After(time.Now()) {
			delete(m.records, id)
			deleted++
		}
	}
	return deleted, nil
}

func (m *memNotificationRepo) count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.records)
}

type memUserRepo struct {
	users map[string]models.User
}

func (m *memUserRepo) GetUserByID(userID string) (models.User, error) {
	u, ok := m.users[userID]
	if !ok {
		return models.User{}, sql.ErrNoRows
	}
	return u, nil
}

func (m *memUserRepo) CreateUser(email, password, firstName, lastName string, role models.UserRole) (models.User, error) {
	return models.User{}, errors.New("not implemented")
}
func (m *memUserRepo) AuthenticateUser(email, password string) (models.User, error) {
	return models.User{}, errors.New("not implemented")
}
func (m *memUserRepo) ListUsers() ([]models.User, error)  { return nil, nil }
func (m *memUserRepo) DeactivateUser(userID string) error { return nil }

type memSiteRepo struct {
	sites map[string]models.Site
}

func (m *memSiteRepo) GetSiteByID(siteID string) (models.Site, error) {
	s, ok := m.sites[siteID]
	if !ok {
		return models.Site{}, sql.ErrNoRows
	}
	return s, nil
}

func (m *memSiteRepo) CreateSite(name, location, createdBy string) (models.Site, error) {
	return models.Site{}, errors.New("not implemented")
}
func (m *memSiteRepo) ListSites() ([]models.Site, error) { return nil, nil }
func (m *memSiteRepo) AssignEngineer(siteID, engineerID string) (models.Site, error) {
	return models.Site{}, errors.New("not implemented")
}

// recordingNotifier captures each delivered notification, plus how many
// records the store held at delivery time (to assert write-before-push).
type recordingNotifier struct {
	store     *memNotificationRepo
	delivered []models.Notification
	storedAt  []int
	failing   bool
}

func (r *recordingNotifier) Notify(_ context.Context, notif models.Notification) error {
	if r.failing {
		return errors.New("channel down")
	}
	r.delivered = append(r.delivered, notif)
	if r.store != nil {
		r.storedAt = append(r.storedAt, r.store.count())
	}
	return nil
}

func newTestService(repo *memNotificationRepo, notifiers ...Notifier) Service {
	users := &memUserRepo{users: map[string]models.User{
		"admin-1":    {ID: "admin-1", FirstName: "Ada", LastName: "Lund", Role: models.RoleAdmin},
		"engineer-1": {ID: "engineer-1", FirstName: "Eli", LastName: "Park", Role: models.RoleEngineer},
	}}
	sites := &memSiteRepo{sites: map[string]models.Site{
		"site-1": {ID: "site-1", Name: "Harbor Tower", Location: "Dock 4", CreatedBy: "admin-1", EngineerIDs: []string{"engineer-1"}},
		"orphan": {ID: "orphan", Name: "Orphan Site"},
	}}
	return NewService(repo, users, sites, zerolog.Nop(), notifiers...)
}

func validIntent() Intent {
	return Intent{
		RecipientID: "engineer-1",
		Title:       "Report Approved",
		Message:     "Your report was approved",
		Category:    models.NotificationCategorySuccess,
	}
}

func TestDispatchRejectsMissingFields(t *testing.T) {
	repo := newMemNotificationRepo()
	svc := newTestService(repo)

	cases := []struct {
		name   string
		mutate func(*Intent)
	}{
		{"missing recipient", func(i *Intent) { i.RecipientID = "" }},
		{"missing title", func(i *Intent) { i.Title = "  " }},
		{"missing message", func(i *Intent) { i.Message = "" }},
		{"unknown category", func(i *Intent) { i.Category = "shout" }},
		{"unknown priority", func(i *Intent) { i.Priority = "asap" }},
		{"negative expiry", func(i *Intent) { i.ExpiresInHours = -1 }},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			intent := validIntent()
			tc.mutate(&intent)
			_, err := svc.Dispatch(t.Context(), intent)
			if !errors.Is(err, ErrValidation) {
				t.Fatalf("err = %v, want ErrValidation", err)
			}
		})
	}
	if repo.count() != 0 {
		t.Fatalf("rejected intents must not be persisted, store has %d records", repo.count())
	}
}

func TestDispatchAppliesDefaults(t *testing.T) {
	repo := newMemNotificationRepo()
	svc := newTestService(repo)

	notif, err := svc.Dispatch(t.Context(), Intent{
		RecipientID: "engineer-1",
		Title:       "Heads up",
		Message:     "Something happened",
	})
	if err != nil {
		t.Fatalf("Dispatch: %v", err)
	}
	if notif.Category != models.NotificationCategoryInfo {
		t.Fatalf("category = %q, want info", notif.Category)
	}
	if notif.Priority != models.NotificationPriorityMedium {
		t.Fatalf("priority = %q, want medium", notif.Priority)
	}
	if notif.ExpiresAt != nil {
		t.Fatal("no expiry requested, expires_at must be unset")
	}
}

func TestDispatchComputesExpiry(t *testing.T) {
	repo := newMemNotificationRepo()
	svc := newTestService(repo)

	intent := validIntent()
	intent.ExpiresInHours = 2
	before := time.Now()
	notif, err := svc.Dispatch(t.Context(), intent)
	if err != nil {
		t.Fatalf("Dispatch: %v", err)
	}
	if notif.ExpiresAt == nil {
		t.Fatal("expires_at must be set")
	}
	lo := before.Add(2*time.Hour - time.Minute)
	hi := time.Now().Add(2*time.Hour + time.Minute)
	if notif.ExpiresAt.Before(lo) || notif.ExpiresAt.After(hi) {
		t.Fatalf("expires_at %v outside expected window", notif.ExpiresAt)
	}
}

func TestDispatchWritesBeforePush(t *testing.T) {
	repo := newMemNotificationRepo()
	notifier := &recordingNotifier{store: repo}
	svc := newTestService(repo, notifier)

	if _, err := svc.Dispatch(t.Context(), validIntent()); err != nil {
		t.Fatalf("Dispatch: %v", err)
	}

	if len(notifier.delivered) != 1 {
		t.Fatalf("delivered %d pushes, want 1", len(notifier.delivered))
	}
	if notifier.storedAt[0] != 1 {
		t.Fatalf("store held %d records at push time, want 1 (durable write must precede push)", notifier.storedAt[0])
	}
}

func TestDispatchDoesNotDeduplicate(t *testing.T) {
	repo := newMemNotificationRepo()
	svc := newTestService(repo)

	first, err := svc.Dispatch(t.Context(), validIntent())
	if err != nil {
		t.Fatalf("Dispatch: %v", err)
	}
	second, err := svc.Dispatch(t.Context(), validIntent())
	if err != nil {
		t.Fatalf("Dispatch: %v", err)
	}
	if first.ID == second.ID {
		t.Fatal("identical intents must produce distinct notifications")
	}
	if repo.count() != 2 {
		t.Fatalf("store has %d records, want 2", repo.count())
	}
}

func TestDispatchPersistenceFailureSkipsPush(t *testing.T) {
	repo := newMemNotificationRepo()
	repo.failing = true
	notifier := &recordingNotifier{}
	svc := newTestService(repo, notifier)

	if _, err := svc.Dispatch(t.Context(), validIntent()); err == nil {
		t.Fatal("persistence failure must surface to the caller")
	}
	if len(notifier.delivered) != 0 {
		t.Fatal("no push may happen when the durable write failed")
	}
}

func TestDispatchSwallowsPushFailures(t *testing.T) {
	repo := newMemNotificationRepo()
	svc := newTestService(repo, &recordingNotifier{failing: true})

	notif, err := svc.Dispatch(t.Context(), validIntent())
	if err != nil {
		t.Fatalf("push failure must not surface, got %v", err)
	}

	// The record is still durably stored and pull-fetchable.
	stored, err := svc.ListActive(t.Context(), notif.RecipientID, 10)
	if err != nil {
		t.Fatalf("ListActive: %v", err)
	}
	if len(stored) != 1 {
		t.Fatalf("stored %d records, want 1", len(stored))
	}
}

func TestDispatchOfflineRecipientStillStores(t *testing.T) {
	repo := newMemNotificationRepo()
	svc := newTestService(repo) // no notifiers at all

	notif, err := svc.Dispatch(t.Context(), validIntent())
	if err != nil {
		t.Fatalf("Dispatch with no live channel must succeed, got %v", err)
	}

	stored, err := svc.ListActive(t.Context(), notif.RecipientID, 10)
	if err != nil {
		t.Fatalf("ListActive: %v", err)
	}
	if len(stored) != 1 || stored[0].ID != notif.ID {
		t.Fatalf("pull-fetch did not return the stored record: %+v", stored)
	}
}

func TestExpiredNotificationExcludedFromFetch(t *testing.T) {
	repo := newMemNotificationRepo()
	svc := newTestService(repo)

	intent := validIntent()
	intent.ExpiresInHours = 0.0001 // well under a second
	if _, err := svc.Dispatch(t.Context(), intent); err != nil {
		t.Fatalf("Dispatch: %v", err)
	}

	time.Sleep(time.Second)

	stored, err := svc.ListActive(t.Context(), "engineer-1", 10)
	if err != nil {
		t.Fatalf("ListActive: %v", err)
	}
	if len(stored) != 0 {
		t.Fatalf("expired notification leaked into fetch results: %+v", stored)
	}
}

func TestReportSubmittedNotifiesSiteOwner(t *testing.T) {
	repo := newMemNotificationRepo()
	notifier := &recordingNotifier{}
	svc := newTestService(repo, notifier)

	svc.NotifyReportSubmitted(t.Context(), models.Report{
		ID:          "r1",
		SiteID:      "site-1",
		InspectorID: "engineer-1",
		Title:       "Week 12 structural check",
	})

	if len(notifier.delivered) != 1 {
		t.Fatalf("delivered %d pushes, want 1", len(notifier.delivered))
	}
	got := notifier.delivered[0]
	if got.RecipientID != "admin-1" {
		t.Fatalf("recipient = %q, want the site owner admin-1", got.RecipientID)
	}
	if got.Priority != models.NotificationPriorityHigh || got.Category != models.NotificationCategoryInfo {
		t.Fatalf("priority/category = %s/%s, want high/info", got.Priority, got.Category)
	}
}

func TestReportSubmittedUnresolvableSiteIsNoop(t *testing.T) {
	repo := newMemNotificationRepo()
	notifier := &recordingNotifier{}
	svc := newTestService(repo, notifier)

	// Missing site: lookup fails, producer must not dispatch or panic.
	svc.NotifyReportSubmitted(t.Context(), models.Report{ID: "r1", SiteID: "nope", InspectorID: "engineer-1"})
	// Site without an owner: same outcome.
	svc.NotifyReportSubmitted(t.Context(), models.Report{ID: "r2", SiteID: "orphan", InspectorID: "engineer-1"})

	if len(notifier.delivered) != 0 || repo.count() != 0 {
		t.Fatal("unresolvable recipients must produce no notifications")
	}
}

func TestReportReviewedCategoryFollowsVerdict(t *testing.T) {
	repo := newMemNotificationRepo()
	notifier := &recordingNotifier{}
	svc := newTestService(repo, notifier)
	reviewer := models.User{ID: "admin-1", FirstName: "Ada", LastName: "Lund"}

	svc.NotifyReportReviewed(t.Context(), models.Report{
		ID: "r1", SiteID: "site-1", InspectorID: "engineer-1", Title: "Check", Status: models.ReportStatusApproved,
	}, reviewer)
	svc.NotifyReportReviewed(t.Context(), models.Report{
		ID: "r2", SiteID: "site-1", InspectorID: "engineer-1", Title: "Check", Status: models.ReportStatusRejected,
	}, reviewer)

	if len(notifier.delivered) != 2 {
		t.Fatalf("delivered %d pushes, want 2", len(notifier.delivered))
	}
	if notifier.delivered[0].Category != models.NotificationCategorySuccess {
		t.Fatalf("approved review category = %q, want success", notifier.delivered[0].Category)
	}
	if notifier.delivered[1].Category != models.NotificationCategoryWarning {
		t.Fatalf("rejected review category = %q, want warning", notifier.delivered[1].Category)
	}
	for _, n := range notifier.delivered {
		if n.RecipientID != "engineer-1" {
			t.Fatalf("recipient = %q, want the inspector", n.RecipientID)
		}
		if n.Priority != models.NotificationPriorityMedium {
			t.Fatalf("priority = %q, want medium", n.Priority)
		}
	}
}

func TestEngineerAssignedNotifiesEngineer(t *testing.T) {
	repo := newMemNotificationRepo()
	notifier := &recordingNotifier{}
	svc := newTestService(repo, notifier)

	site := models.Site{ID: "site-1", Name: "Harbor Tower", Location: "Dock 4"}
	actor := models.User{ID: "admin-1", FirstName: "Ada", LastName: "Lund"}
	svc.NotifyEngineerAssigned(t.Context(), site, "engineer-1", actor)

	if len(notifier.delivered) != 1 {
		t.Fatalf("delivered %d pushes, want 1", len(notifier.delivered))
	}
	if got := notifier.delivered[0]; got.RecipientID != "engineer-1" || got.Category != models.NotificationCategoryInfo {
		t.Fatalf("unexpected notification: %+v", got)
	}
}

func TestAccountDeactivatedIsUrgentAndExpiring(t *testing.T) {
	repo := newMemNotificationRepo()
	notifier := &recordingNotifier{}
	svc := newTestService(repo, notifier)

	svc.NotifyAccountDeactivated(t.Context(), "engineer-1", models.User{ID: "admin-1", FirstName: "Ada", LastName: "Lund"})

	if len(notifier.delivered) != 1 {
		t.Fatalf("delivered %d pushes, want 1", len(notifier.delivered))
	}
	got := notifier.delivered[0]
	if got.Priority != models.NotificationPriorityUrgent || got.Category != models.NotificationCategoryError {
		t.Fatalf("priority/category = %s/%s, want urgent/error", got.Priority, got.Category)
	}
	if got.ExpiresAt == nil {
		t.Fatal("deactivation notice must carry an expiry")
	}
}

func TestMarkReadIsIdempotent(t *testing.T) {
	repo := newMemNotificationRepo()
	svc := newTestService(repo)

	notif, err := svc.Dispatch(t.Context(), validIntent())
	if err != nil {
		t.Fatalf("Dispatch: %v", err)
	}

	first, err := svc.MarkRead(t.Context(), notif.RecipientID, notif.ID)
	if err != nil || !first.IsRead {
		t.Fatalf("first MarkRead: notif=%+v err=%v", first, err)
	}
	second, err := svc.MarkRead(t.Context(), notif.RecipientID, notif.ID)
	if err != nil || !second.IsRead {
		t.Fatalf("second MarkRead must succeed with is_read=true, got notif=%+v err=%v", second, err)
	}
}

func TestDeleteEnforcesOwnership(t *testing.T) {
	repo := newMemNotificationRepo()
	svc := newTestService(repo)

	notif, err := svc.Dispatch(t.Context(), validIntent())
	if err != nil {
		t.Fatalf("Dispatch: %v", err)
	}

	if err := svc.Delete(t.Context(), "someone-else", notif.ID); !errors.Is(err, sql.ErrNoRows) {
		t.Fatalf("cross-owner delete err = %v, want sql.ErrNoRows", err)
	}
	if repo.count() != 1 {
		t.Fatal("cross-owner delete must not remove the record")
	}

	if err := svc.Delete(t.Context(), notif.RecipientID, notif.ID); err != nil {
		t.Fatalf("owner delete: %v", err)
	}
	if repo.count() != 0 {
		t.Fatal("owner delete must remove the record")
	}
}
