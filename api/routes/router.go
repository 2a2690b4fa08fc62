package routes

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/Gitttomo/AntiTextNext-sub000/api/controllers"
	"github.com/Gitttomo/AntiTextNext-sub000/api/middleware"
	"github.com/Gitttomo/AntiTextNext-sub000/internal/items"
	"github.com/Gitttomo/AntiTextNext-sub000/internal/messages"
	"github.com/Gitttomo/AntiTextNext-sub000/internal/notifications"
	"github.com/Gitttomo/AntiTextNext-sub000/internal/ratings"
	"github.com/Gitttomo/AntiTextNext-sub000/internal/reservation"
	"github.com/Gitttomo/AntiTextNext-sub000/internal/transactions"
	"github.com/Gitttomo/AntiTextNext-sub000/internal/users"
	"github.com/Gitttomo/AntiTextNext-sub000/pkg/config"
	"github.com/Gitttomo/AntiTextNext-sub000/pkg/logger"
)

// Pinger is the readiness probe surface the router needs from dependencies.
type Pinger interface {
	Ping(context.Context) error
}

type Services struct {
	Items         items.Service
	Reservations  reservation.Service
	Transactions  transactions.Service
	Ratings       ratings.Service
	Messages      messages.Service
	Users         users.Service
	Notifications notifications.Service
}

func NewRouter(
	cfg *config.Config,
	logg *logger.Logger,
	dbP Pinger,
	redisP Pinger,
	registry *prometheus.Registry,
	svcs Services,
) http.Handler {
	r := chi.NewRouter()

	r.Use(
		middleware.Recoverer(logg),
		middleware.RequestID(logg),
		middleware.Logging(logg),
		middleware.CORS(),
	)

	r.Route("/health", func(r chi.Router) {
		r.Get("/live", controllers.HealthLive(cfg))
		r.Get("/ready", controllers.HealthReady(cfg, logg, controllers.Pingers(dbP, redisP)))
	})

	if registry != nil {
		r.Method(http.MethodGet, "/metrics", promhttp.HandlerFor(registry, promhttp.HandlerOpts{}))
	}

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(middleware.Auth(cfg.JWT, logg))

		r.Route("/items", func(r chi.Router) {
			r.Post("/", controllers.CreateItem(svcs.Items, logg))
			r.Get("/", controllers.ListItems(svcs.Items, logg))
			r.Route("/{itemId}", func(r chi.Router) {
				r.Get("/", controllers.GetItem(svcs.Items, logg))
				r.Get("/periods", controllers.ItemPeriods(logg))
				r.Post("/claim", controllers.ClaimItem(svcs.Reservations, logg))
				r.Post("/release", controllers.ReleaseItem(svcs.Reservations, logg))
				r.Post("/messages", controllers.SendMessage(svcs.Messages, logg))
				r.Get("/messages", controllers.ListMessages(svcs.Messages, logg))
				r.Post("/messages/read", controllers.MarkMessagesRead(svcs.Messages, logg))
			})
		})

		r.Route("/transactions", func(r chi.Router) {
			r.Post("/", controllers.CreateTransaction(svcs.Transactions, logg))
			r.Get("/", controllers.ListTransactions(svcs.Transactions, logg))
			r.Route("/{transactionId}", func(r chi.Router) {
				r.Get("/", controllers.GetTransaction(svcs.Transactions, logg))
				r.Post("/confirm", controllers.ConfirmTransaction(svcs.Transactions, logg))
				r.Post("/complete", controllers.CompleteTransaction(svcs.Transactions, logg))
				r.Post("/cancel", controllers.CancelTransaction(svcs.Transactions, logg))
				r.Post("/ratings", controllers.SubmitRating(svcs.Ratings, logg))
			})
		})

		r.Route("/users", func(r chi.Router) {
			r.Put("/me", controllers.UpsertProfile(svcs.Users, logg))
			r.Get("/{userId}", controllers.GetUser(svcs.Users, logg))
		})

		r.Route("/notifications", func(r chi.Router) {
			r.Get("/", controllers.ListNotifications(svcs.Notifications, logg))
			r.Post("/read-all", controllers.MarkAllNotificationsRead(svcs.Notifications, logg))
			r.Post("/{notificationId}/read", controllers.MarkNotificationRead(svcs.Notifications, logg))
		})
	})

	return r
}
