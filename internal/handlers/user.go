package handlers

import (
	"database/sql"
	"errors"
	"net/http"

	"github.com/gorilla/mux"
	"github.com/rs/zerolog"
	"github.com/sitewatch/sitewatch-api/internal/authz"
	"github.com/sitewatch/sitewatch-api/internal/models"
	"github.com/sitewatch/sitewatch-api/internal/notification"
	"github.com/sitewatch/sitewatch-api/internal/repository"
)

type UserHandler struct {
	userRepo      repository.UserRepository
	notifications notification.Service
	logger        zerolog.Logger
}

func NewUserHandler(userRepo repository.UserRepository, notifications notification.Service, logger zerolog.Logger) *UserHandler {
	return &UserHandler{
		userRepo:      userRepo,
		notifications: notifications,
		logger:        logger.With().Str("handler", "user").Logger(),
	}
}

func (h *UserHandler) ListUsers(w http.ResponseWriter, r *http.Request) {
	users, err := h.userRepo.ListUsers()
	if err != nil {
		http.Error(w, "Failed to list users: "+err.Error(), http.StatusInternalServerError)
		return
	}
	if users == nil {
		users = []models.User{}
	}
	writeJSON(w, http.StatusOK, users)
}

// DeactivateUser soft-deletes the account and notifies its owner once the
// deactivation has committed. Self-deactivation is rejected.
func (h *UserHandler) DeactivateUser(w http.ResponseWriter, r *http.Request) {
	actorID, ok := authz.UserIDFromRequest(r)
	if !ok {
		http.Error(w, "Missing user context", http.StatusUnauthorized)
		return
	}

	userID := mux.Vars(r)["userID"]
	if userID == actorID {
		http.Error(w, "Cannot deactivate your own account", http.StatusBadRequest)
		return
	}

	if err := h.userRepo.DeactivateUser(userID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			http.Error(w, "User not found", http.StatusNotFound)
			return
		}
		http.Error(w, "Failed to deactivate user: "+err.Error(), http.StatusInternalServerError)
		return
	}

	actor, err := h.userRepo.GetUserByID(actorID)
	if err != nil {
		h.logger.Warn().Err(err).Str("user_id", actorID).Msg("cannot resolve acting admin for deactivation notification")
		actor = models.User{ID: actorID, FirstName: "An", LastName: "administrator"}
	}
	h.notifications.NotifyAccountDeactivated(r.Context(), userID, actor)

	w.WriteHeader(http.StatusNoContent)
}
