package routes

import (
	"net/http"

	"github.com/gorilla/mux"
	"github.com/sitewatch/sitewatch-api/internal/authz"
	"github.com/sitewatch/sitewatch-api/internal/handlers"
	"github.com/sitewatch/sitewatch-api/internal/models"
)

// NewRouter sets up the API routes
func NewRouter(
	auth *handlers.AuthHandler,
	site *handlers.SiteHandler,
	report *handlers.ReportHandler,
	user *handlers.UserHandler,
	notif *handlers.NotificationHandler,
	ws http.HandlerFunc,
) *mux.Router {
	router := mux.NewRouter()

	// Health check route
	router.HandleFunc("/health", handlers.HealthCheck).Methods(http.MethodGet)

	// Public auth endpoints
	router.HandleFunc("/api/signup", auth.SignUp).Methods(http.MethodPost)
	router.HandleFunc("/api/login", auth.Login).Methods(http.MethodPost)

	// Delivery channel. Identity is announced post-handshake with a register
	// frame, so the upgrade itself is unauthenticated.
	router.HandleFunc("/ws", ws)

	api := router.PathPrefix("/api").Subrouter()
	api.Use(auth.JWTMiddleware)

	// Notifications
	api.HandleFunc("/notifications", notif.List).Methods(http.MethodGet)
	api.HandleFunc("/notifications", notif.ClearAll).Methods(http.MethodDelete)
	api.Handle("/notifications", authz.RequireRoleHandler(models.RoleAdmin, http.HandlerFunc(notif.Send))).Methods(http.MethodPost)
	api.HandleFunc("/notifications/unread-count", notif.UnreadCount).Methods(http.MethodGet)
	api.HandleFunc("/notifications/read-all", notif.MarkAllRead).Methods(http.MethodPost)
	api.HandleFunc("/notifications/{notificationID}/read", notif.MarkRead).Methods(http.MethodPost)
	api.HandleFunc("/notifications/{notificationID}", notif.Delete).Methods(http.MethodDelete)

	// Sites
	api.Handle("/sites", authz.RequireRoleHandler(models.RoleAdmin, http.HandlerFunc(site.CreateSite))).Methods(http.MethodPost)
	api.HandleFunc("/sites", site.ListSites).Methods(http.MethodGet)
	api.HandleFunc("/sites/{siteID}", site.GetSite).Methods(http.MethodGet)
	api.Handle("/sites/{siteID}/engineers", authz.RequireRoleHandler(models.RoleAdmin, http.HandlerFunc(site.AssignEngineer))).Methods(http.MethodPost)

	// Reports
	api.HandleFunc("/reports", report.SubmitReport).Methods(http.MethodPost)
	api.HandleFunc("/reports", report.ListReports).Methods(http.MethodGet)
	api.HandleFunc("/reports/{reportID}", report.GetReport).Methods(http.MethodGet)
	api.Handle("/reports/{reportID}/review", authz.RequireRoleHandler(models.RoleAdmin, http.HandlerFunc(report.ReviewReport))).Methods(http.MethodPost)

	// Users
	api.Handle("/users", authz.RequireRoleHandler(models.RoleAdmin, http.HandlerFunc(user.ListUsers))).Methods(http.MethodGet)
	api.Handle("/users/{userID}/deactivate", authz.RequireRoleHandler(models.RoleAdmin, http.HandlerFunc(user.DeactivateUser))).Methods(http.MethodPost)

	// Stats
	api.Handle("/stats/dashboard", authz.RequireRoleHandler(models.RoleAdmin, http.HandlerFunc(report.DashboardStats))).Methods(http.MethodGet)

	return router
}
