package routes

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/librarium/librarium-backend/api/controllers"
	"github.com/librarium/librarium-backend/api/middleware"
	"github.com/librarium/librarium-backend/internal/audit"
	"github.com/librarium/librarium-backend/internal/auth"
	"github.com/librarium/librarium-backend/internal/catalog"
	"github.com/librarium/librarium-backend/internal/dashboard"
	"github.com/librarium/librarium-backend/internal/extensions"
	"github.com/librarium/librarium-backend/internal/fines"
	"github.com/librarium/librarium-backend/internal/loans"
	"github.com/librarium/librarium-backend/internal/notifications"
	"github.com/librarium/librarium-backend/internal/reservations"
	"github.com/librarium/librarium-backend/internal/reviews"
	"github.com/librarium/librarium-backend/internal/settings"
	"github.com/librarium/librarium-backend/internal/suggestions"
	"github.com/librarium/librarium-backend/internal/users"
	"github.com/librarium/librarium-backend/pkg/auth/session"
	"github.com/librarium/librarium-backend/pkg/authz"
	"github.com/librarium/librarium-backend/pkg/config"
	"github.com/librarium/librarium-backend/pkg/db"
	"github.com/librarium/librarium-backend/pkg/logger"
	"github.com/librarium/librarium-backend/pkg/redis"
)

// Services bundles everything the HTTP surface depends on.
type Services struct {
	Auth          auth.Service
	Catalog       catalog.Service
	Loans         loans.Service
	Reservations  reservations.Service
	Extensions    extensions.Service
	Fines         fines.Service
	Suggestions   suggestions.Service
	Reviews       reviews.Service
	Notifications notifications.Service
	Users         users.Service
	Audit         audit.Service
	Dashboard     dashboard.Service
	Settings      settings.Store
}

func NewRouter(
	cfg *config.Config,
	logg *logger.Logger,
	dbP db.Pinger,
	redisClient *redis.Client,
	sessionChecker session.AccessSessionChecker,
	svcs Services,
) http.Handler {
	r := chi.NewRouter()
	r.Use(
		middleware.Recoverer(logg),
		middleware.RequestID(logg),
		middleware.Logging(logg),
	)

	loginPolicy := middleware.NewAuthRateLimitPolicy(
		"login",
		cfg.AuthRateLimit.LoginWindow,
		cfg.AuthRateLimit.LoginIPLimit,
		cfg.AuthRateLimit.LoginEmailLimit,
	)
	registerPolicy := middleware.NewAuthRateLimitPolicy(
		"register",
		cfg.AuthRateLimit.RegisterWindow,
		cfg.AuthRateLimit.RegisterIPLimit,
		cfg.AuthRateLimit.RegisterEmailLimit,
	)

	r.Route("/health", func(r chi.Router) {
		r.Get("/live", controllers.HealthLive(cfg))
		r.Get("/ready", controllers.HealthReady(cfg, logg, dbP, redisClient))
	})

	r.Route("/api/v1/auth", func(r chi.Router) {
		r.With(middleware.AuthRateLimit(loginPolicy, redisClient, logg)).Post("/login", controllers.AuthLogin(svcs.Auth, logg))
		r.With(middleware.AuthRateLimit(registerPolicy, redisClient, logg)).Post("/register", controllers.AuthRegister(svcs.Auth, logg))
		r.Post("/refresh", controllers.AuthRefresh(svcs.Auth, logg))
		r.Post("/logout", controllers.AuthLogout(svcs.Auth, logg))
	})

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(middleware.Auth(cfg.JWT, sessionChecker, logg))

		r.Route("/books", func(r chi.Router) {
			r.Get("/", controllers.ListBooks(svcs.Catalog, logg))
			r.Get("/{bookId}", controllers.GetBook(svcs.Catalog, logg))
			r.Group(func(r chi.Router) {
				r.Use(middleware.RequirePermission(logg, authz.ResourceCatalog, authz.ActionWrite))
				r.Post("/", controllers.CreateBook(svcs.Catalog, logg))
				r.Put("/{bookId}", controllers.UpdateBook(svcs.Catalog, logg))
				r.Delete("/{bookId}", controllers.DeleteBook(svcs.Catalog, logg))
			})
		})

		r.Route("/authors", func(r chi.Router) {
			r.Get("/", controllers.ListAuthors(svcs.Catalog, logg))
			r.Group(func(r chi.Router) {
				r.Use(middleware.RequirePermission(logg, authz.ResourceCatalog, authz.ActionWrite))
				r.Post("/", controllers.CreateAuthor(svcs.Catalog, logg))
				r.Delete("/{authorId}", controllers.DeleteAuthor(svcs.Catalog, logg))
			})
		})

		r.Route("/categories", func(r chi.Router) {
			r.Get("/", controllers.ListCategories(svcs.Catalog, logg))
			r.Group(func(r chi.Router) {
				r.Use(middleware.RequirePermission(logg, authz.ResourceCatalog, authz.ActionWrite))
				r.Post("/", controllers.CreateCategory(svcs.Catalog, logg))
				r.Delete("/{categoryId}", controllers.DeleteCategory(svcs.Catalog, logg))
			})
		})

		r.Route("/loans", func(r chi.Router) {
			r.Get("/", controllers.ListLoans(svcs.Loans, logg))
			r.Post("/", controllers.RequestLoan(svcs.Loans, logg))
			r.Get("/{issueId}", controllers.GetLoan(svcs.Loans, logg))
			r.Group(func(r chi.Router) {
				r.Use(middleware.RequirePermission(logg, authz.ResourceIssues, authz.ActionProcess))
				r.Post("/{issueId}/approve", controllers.ApproveLoan(svcs.Loans, logg))
				r.Post("/{issueId}/reject", controllers.RejectLoan(svcs.Loans, logg))
				r.Post("/{issueId}/return", controllers.ReturnLoan(svcs.Loans, logg))
			})
		})

		r.Route("/reservations", func(r chi.Router) {
			r.Get("/", controllers.ListReservations(svcs.Reservations, logg))
			r.Post("/", controllers.ReserveBook(svcs.Reservations, logg))
			r.Get("/{reservationId}", controllers.GetReservation(svcs.Reservations, logg))
			r.Post("/{reservationId}/cancel", controllers.CancelReservation(svcs.Reservations, logg))
			r.With(middleware.RequirePermission(logg, authz.ResourceReservations, authz.ActionProcess)).Post("/{reservationId}/approve", controllers.ApproveReservation(svcs.Reservations, logg))
		})

		r.Route("/extensions", func(r chi.Router) {
			r.Get("/", controllers.ListExtensions(svcs.Extensions, logg))
			r.Post("/", controllers.RequestExtension(svcs.Extensions, logg))
			r.Get("/{requestId}", controllers.GetExtension(svcs.Extensions, logg))
			r.Group(func(r chi.Router) {
				r.Use(middleware.RequirePermission(logg, authz.ResourceExtensions, authz.ActionProcess))
				r.Post("/{requestId}/approve", controllers.ApproveExtension(svcs.Extensions, logg))
				r.Post("/{requestId}/reject", controllers.RejectExtension(svcs.Extensions, logg))
			})
		})

		r.Route("/fines", func(r chi.Router) {
			r.Get("/", controllers.ListFines(svcs.Fines, logg))
			r.Get("/payments", controllers.ListFinePayments(svcs.Fines, logg))
			// Students settle their own fines; the service enforces
			// ownership for non-staff payers.
			r.Post("/payments", controllers.RecordFinePayment(svcs.Fines, logg))
			r.Get("/{fineId}", controllers.GetFine(svcs.Fines, logg))
			r.Group(func(r chi.Router) {
				r.Use(middleware.RequirePermission(logg, authz.ResourceFines, authz.ActionProcess))
				r.Get("/reports/totals", controllers.FineTotals(svcs.Fines, logg))
				r.Get("/reports/monthly", controllers.MonthlyFinePayments(svcs.Fines, logg))
			})
		})

		r.Route("/suggestions", func(r chi.Router) {
			r.Get("/", controllers.ListSuggestions(svcs.Suggestions, logg))
			r.Post("/", controllers.CreateSuggestion(svcs.Suggestions, logg))
			r.Get("/{suggestionId}", controllers.GetSuggestion(svcs.Suggestions, logg))
			r.Group(func(r chi.Router) {
				r.Use(middleware.RequirePermission(logg, authz.ResourceSuggestions, authz.ActionProcess))
				r.Post("/{suggestionId}/approve", controllers.ApproveSuggestion(svcs.Suggestions, logg))
				r.Post("/{suggestionId}/reject", controllers.RejectSuggestion(svcs.Suggestions, logg))
				r.Post("/{suggestionId}/added", controllers.MarkSuggestionAdded(svcs.Suggestions, logg))
			})
		})

		r.Route("/reviews", func(r chi.Router) {
			r.Get("/", controllers.ListReviews(svcs.Reviews, logg))
			r.Post("/", controllers.SubmitReview(svcs.Reviews, logg))
			r.Get("/{reviewId}", controllers.GetReview(svcs.Reviews, logg))
			r.Group(func(r chi.Router) {
				r.Use(middleware.RequirePermission(logg, authz.ResourceReviews, authz.ActionProcess))
				r.Post("/{reviewId}/status", controllers.SetReviewStatus(svcs.Reviews, logg))
			})
		})

		r.Route("/notifications", func(r chi.Router) {
			r.Get("/", controllers.ListNotifications(svcs.Notifications, logg))
			r.Get("/unread-count", controllers.UnreadNotificationCount(svcs.Notifications, logg))
			r.Post("/{notificationId}/read", controllers.MarkNotificationRead(svcs.Notifications, logg))
			r.Post("/read-all", controllers.MarkAllNotificationsRead(svcs.Notifications, logg))
		})

		r.Route("/settings", func(r chi.Router) {
			r.Use(middleware.RequirePermission(logg, authz.ResourceSettings, authz.ActionWrite))
			r.Get("/", controllers.ListSettings(svcs.Settings, logg))
			r.Put("/", controllers.SetSetting(svcs.Settings, logg))
		})

		r.Route("/users", func(r chi.Router) {
			r.Post("/change-password", controllers.ChangePassword(svcs.Users, logg))
			r.Get("/{userId}", controllers.GetUser(svcs.Users, logg))
			r.Group(func(r chi.Router) {
				r.Use(middleware.RequirePermission(logg, authz.ResourceUsers, authz.ActionWrite))
				r.Get("/", controllers.ListUsers(svcs.Users, logg))
				r.Put("/{userId}/role", controllers.UpdateUserRole(svcs.Users, logg))
				r.Post("/{userId}/toggle-activation", controllers.ToggleUserActivation(svcs.Users, logg))
				r.Delete("/{userId}", controllers.DeleteUser(svcs.Users, logg))
			})
		})

		r.Route("/audit-logs", func(r chi.Router) {
			r.Use(middleware.RequirePermission(logg, authz.ResourceAuditLogs, authz.ActionRead))
			r.Get("/", controllers.ListAuditLogs(svcs.Audit, logg))
			r.Get("/activity", controllers.AuditActivitySeries(svcs.Audit, logg))
		})

		r.Route("/dashboard", func(r chi.Router) {
			r.With(middleware.RequirePermission(logg, authz.ResourceDashboard, authz.ActionProcess)).Get("/admin", controllers.AdminDashboard(svcs.Dashboard, logg))
			r.Get("/me", controllers.StudentDashboard(svcs.Dashboard, logg))
		})
	})

	return r
}
