package handlers

import (
	"database/sql"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/gorilla/mux"
	"github.com/rs/zerolog"
	"github.com/sitewatch/sitewatch-api/internal/authz"
	"github.com/sitewatch/sitewatch-api/internal/models"
	"github.com/sitewatch/sitewatch-api/internal/notification"
	"github.com/sitewatch/sitewatch-api/internal/repository"
)

type ReportHandler struct {
	reportRepo    repository.ReportRepository
	siteRepo      repository.SiteRepository
	userRepo      repository.UserRepository
	notifications notification.Service
	logger        zerolog.Logger
}

func NewReportHandler(reportRepo repository.ReportRepository, siteRepo repository.SiteRepository, userRepo repository.UserRepository, notifications notification.Service, logger zerolog.Logger) *ReportHandler {
	return &ReportHandler{
		reportRepo:    reportRepo,
		siteRepo:      siteRepo,
		userRepo:      userRepo,
		notifications: notifications,
		logger:        logger.With().Str("handler", "report").Logger(),
	}
}

// SubmitReport creates an inspection report. The submitting engineer must be
// assigned to the site. The site owner is notified only after the report has
// committed.
func (h *ReportHandler) SubmitReport(w http.ResponseWriter, r *http.Request) {
	inspectorID, ok := authz.UserIDFromRequest(r)
	if !ok {
		http.Error(w, "Missing user context", http.StatusUnauthorized)
		return
	}

	var payload struct {
		SiteID       string `json:"site_id"`
		Title        string `json:"title"`
		Findings     string `json:"findings"`
		QualityScore int    `json:"quality_score"`
	}
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		http.Error(w, "Invalid request payload", http.StatusBadRequest)
		return
	}
	payload.Title = strings.TrimSpace(payload.Title)
	if payload.SiteID == "" || payload.Title == "" {
		http.Error(w, "Site ID and title are required", http.StatusBadRequest)
		return
	}
	if payload.QualityScore < 0 || payload.QualityScore > 100 {
		http.Error(w, "Quality score must be between 0 and 100", http.StatusBadRequest)
		return
	}

	site, err := h.siteRepo.GetSiteByID(payload.SiteID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			http.Error(w, "Site not found", http.StatusNotFound)
			return
		}
		http.Error(w, "Failed to load site: "+err.Error(), http.StatusInternalServerError)
		return
	}
	if !site.HasEngineer(inspectorID) {
		http.Error(w, "Engineer is not assigned to this site", http.StatusForbidden)
		return
	}

	report, err := h.reportRepo.CreateReport(site.ID, inspectorID, payload.Title, payload.Findings, payload.QualityScore)
	if err != nil {
		http.Error(w, "Failed to create report: "+err.Error(), http.StatusInternalServerError)
		return
	}

	h.notifications.NotifyReportSubmitted(r.Context(), report)

	writeJSON(w, http.StatusCreated, report)
}

func (h *ReportHandler) GetReport(w http.ResponseWriter, r *http.Request) {
	userID, _ := authz.UserIDFromRequest(r)
	role, _ := authz.RoleFromRequest(r)

	report, err := h.reportRepo.GetReportByID(mux.Vars(r)["reportID"])
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			http.Error(w, "Report not found", http.StatusNotFound)
			return
		}
		http.Error(w, "Failed to load report: "+err.Error(), http.StatusInternalServerError)
		return
	}

	// Engineers only see their own reports.
	if role != models.RoleAdmin && report.InspectorID != userID {
		http.Error(w, "insufficient permissions", http.StatusForbidden)
		return
	}

	writeJSON(w, http.StatusOK, report)
}

func (h *ReportHandler) ListReports(w http.ResponseWriter, r *http.Request) {
	userID, _ := authz.UserIDFromRequest(r)
	role, _ := authz.RoleFromRequest(r)

	limit := 20
	offset := 0
	if l := r.URL.Query().Get("limit"); l != "" {
		if v, err := strconv.Atoi(l); err == nil {
			limit = v
		}
	}
	if o := r.URL.Query().Get("offset"); o != "" {
		if v, err := strconv.Atoi(o); err == nil {
			offset = v
		}
	}

	var (
		reports []models.Report
		err     error
	)
	if role == models.RoleAdmin {
		reports, err = h.reportRepo.ListReports(limit, offset)
	} else {
		reports, err = h.reportRepo.ListReportsByInspector(userID, limit, offset)
	}
	if err != nil {
		http.Error(w, "Failed to list reports: "+err.Error(), http.StatusInternalServerError)
		return
	}
	if reports == nil {
		reports = []models.Report{}
	}

	writeJSON(w, http.StatusOK, reports)
}

// ReviewReport records an approve/reject verdict and notifies the inspector
// after the verdict has committed.
func (h *ReportHandler) ReviewReport(w http.ResponseWriter, r *http.Request) {
	reviewerID, ok := authz.UserIDFromRequest(r)
	if !ok {
		http.Error(w, "Missing user context", http.StatusUnauthorized)
		return
	}

	var payload struct {
		Approved bool   `json:"approved"`
		Comment  string `json:"comment"`
	}
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		http.Error(w, "Invalid request payload", http.StatusBadRequest)
		return
	}

	status := models.ReportStatusApproved
	if !payload.Approved {
		status = models.ReportStatusRejected
	}

	report, err := h.reportRepo.ReviewReport(mux.Vars(r)["reportID"], reviewerID, status, strings.TrimSpace(payload.Comment))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			http.Error(w, "Report not found or already reviewed", http.StatusNotFound)
			return
		}
		http.Error(w, "Failed to review report: "+err.Error(), http.StatusInternalServerError)
		return
	}

	reviewer, err := h.userRepo.GetUserByID(reviewerID)
	if err != nil {
		h.logger.Warn().Err(err).Str("user_id", reviewerID).Msg("cannot resolve reviewer for review notification")
		reviewer = models.User{ID: reviewerID, FirstName: "An", LastName: "administrator"}
	}
	h.notifications.NotifyReportReviewed(r.Context(), report, reviewer)

	writeJSON(w, http.StatusOK, report)
}

// DashboardStats reports aggregate compliance numbers. Admin-only.
func (h *ReportHandler) DashboardStats(w http.ResponseWriter, r *http.Request) {
	days := 7
	if d := r.URL.Query().Get("days"); d != "" {
		if v, err := strconv.Atoi(d); err == nil && v > 0 {
			days = v
		}
	}

	stats, err := h.reportRepo.DashboardStats(days)
	if err != nil {
		h.logger.Error().Err(err).Msg("failed to compute dashboard stats")
		http.Error(w, "Failed to compute stats", http.StatusInternalServerError)
		return
	}

	writeJSON(w, http.StatusOK, stats)
}
