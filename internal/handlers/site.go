package handlers

import (
	"database/sql"
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/gorilla/mux"
	"github.com/rs/zerolog"
	"github.com/sitewatch/sitewatch-api/internal/authz"
	"github.com/sitewatch/sitewatch-api/internal/models"
	"github.com/sitewatch/sitewatch-api/internal/notification"
	"github.com/sitewatch/sitewatch-api/internal/repository"
)

type SiteHandler struct {
	siteRepo      repository.SiteRepository
	userRepo      repository.UserRepository
	notifications notification.Service
	logger        zerolog.Logger
}

func NewSiteHandler(siteRepo repository.SiteRepository, userRepo repository.UserRepository, notifications notification.Service, logger zerolog.Logger) *SiteHandler {
	return &SiteHandler{
		siteRepo:      siteRepo,
		userRepo:      userRepo,
		notifications: notifications,
		logger:        logger.With().Str("handler", "site").Logger(),
	}
}

func (h *SiteHandler) CreateSite(w http.ResponseWriter, r *http.Request) {
	userID, ok := authz.UserIDFromRequest(r)
	if !ok {
		http.Error(w, "Missing user context", http.StatusUnauthorized)
		return
	}

	var payload struct {
		Name     string `json:"name"`
		Location string `json:"location"`
	}
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		http.Error(w, "Invalid request payload", http.StatusBadRequest)
		return
	}
	payload.Name = strings.TrimSpace(payload.Name)
	if payload.Name == "" {
		http.Error(w, "Site name is required", http.StatusBadRequest)
		return
	}

	site, err := h.siteRepo.CreateSite(payload.Name, strings.TrimSpace(payload.Location), userID)
	if err != nil {
		http.Error(w, "Failed to create site: "+err.Error(), http.StatusInternalServerError)
		return
	}

	writeJSON(w, http.StatusCreated, site)
}

func (h *SiteHandler) GetSite(w http.ResponseWriter, r *http.Request) {
	siteID := mux.Vars(r)["siteID"]

	site, err := h.siteRepo.GetSiteByID(siteID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			http.Error(w, "Site not found", http.StatusNotFound)
			return
		}
		http.Error(w, "Failed to load site: "+err.Error(), http.StatusInternalServerError)
		return
	}

	writeJSON(w, http.StatusOK, site)
}

func (h *SiteHandler) ListSites(w http.ResponseWriter, r *http.Request) {
	sites, err := h.siteRepo.ListSites()
	if err != nil {
		http.Error(w, "Failed to list sites: "+err.Error(), http.StatusInternalServerError)
		return
	}
	if sites == nil {
		sites = []models.Site{}
	}
	writeJSON(w, http.StatusOK, sites)
}

// AssignEngineer adds an engineer to a site and notifies them after the
// assignment has committed.
func (h *SiteHandler) AssignEngineer(w http.ResponseWriter, r *http.Request) {
	actorID, ok := authz.UserIDFromRequest(r)
	if !ok {
		http.Error(w, "Missing user context", http.StatusUnauthorized)
		return
	}

	siteID := mux.Vars(r)["siteID"]

	var payload struct {
		EngineerID string `json:"engineer_id"`
	}
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		http.Error(w, "Invalid request payload", http.StatusBadRequest)
		return
	}
	payload.EngineerID = strings.TrimSpace(payload.EngineerID)
	if payload.EngineerID == "" {
		http.Error(w, "Engineer ID is required", http.StatusBadRequest)
		return
	}

	engineer, err := h.userRepo.GetUserByID(payload.EngineerID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			http.Error(w, "Engineer not found", http.StatusNotFound)
			return
		}
		http.Error(w, "Failed to load engineer: "+err.Error(), http.StatusInternalServerError)
		return
	}
	if engineer.Role != models.RoleEngineer {
		http.Error(w, "User is not an engineer", http.StatusBadRequest)
		return
	}

	site, err := h.siteRepo.AssignEngineer(siteID, engineer.ID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			http.Error(w, "Site not found", http.StatusNotFound)
			return
		}
		http.Error(w, "Failed to assign engineer: "+err.Error(), http.StatusInternalServerError)
		return
	}

	actor, err := h.userRepo.GetUserByID(actorID)
	if err != nil {
		h.logger.Warn().Err(err).Str("user_id", actorID).Msg("cannot resolve acting admin for assignment notification")
		actor = models.User{ID: actorID, FirstName: "An", LastName: "administrator"}
	}
	h.notifications.NotifyEngineerAssigned(r.Context(), site, engineer.ID, actor)

	writeJSON(w, http.StatusOK, site)
}
