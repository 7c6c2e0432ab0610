package routes

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/kabidey/privity-sub003/api/controllers"
	"github.com/kabidey/privity-sub003/api/middleware"
	"github.com/kabidey/privity-sub003/internal/booking"
	"github.com/kabidey/privity-sub003/internal/inventory"
	"github.com/kabidey/privity-sub003/internal/notifications"
	"github.com/kabidey/privity-sub003/internal/payments"
	"github.com/kabidey/privity-sub003/internal/reconcile"
	"github.com/kabidey/privity-sub003/pkg/config"
	"github.com/kabidey/privity-sub003/pkg/db"
	"github.com/kabidey/privity-sub003/pkg/enums"
	"github.com/kabidey/privity-sub003/pkg/logger"
	"github.com/kabidey/privity-sub003/pkg/redis"
)

func NewRouter(
	cfg *config.Config,
	logg *logger.Logger,
	dbP db.Pinger,
	redisClient *redis.Client,
	bookingService booking.Service,
	paymentsService payments.Service,
	inventoryService inventory.Service,
	reconcileService reconcile.Service,
	notificationsService notifications.Service,
) http.Handler {
	r := chi.NewRouter()
	r.Use(
		middleware.Recoverer(logg),
		middleware.RequestID(logg),
		middleware.CORS(),
		middleware.Logging(logg),
	)

	// Typed nils would slip past the downstream nil checks.
	var idemStore redis.IdempotencyStore
	var redisPinger redis.Pinger
	if redisClient != nil {
		idemStore = redisClient
		redisPinger = redisClient
	}

	r.Route("/health", func(r chi.Router) {
		r.Get("/live", controllers.HealthLive(cfg))
		r.Get("/ready", controllers.HealthReady(cfg, logg, dbP, redisPinger))
	})

	r.Route("/api/public", func(r chi.Router) {
		r.Get("/ping", controllers.PublicPing())
	})

	r.Route("/api", func(r chi.Router) {
		r.Use(middleware.Auth(cfg.JWT, logg))
		r.Use(middleware.Idempotency(idemStore, logg))

		r.Get("/ping", controllers.PrivatePing())

		r.Route("/v1/bookings", func(r chi.Router) {
			r.Post("/", controllers.BookingCreate(bookingService, logg))
			r.Get("/", controllers.BookingList(bookingService, logg))

			r.Route("/{bookingId}", func(r chi.Router) {
				r.Get("/", controllers.BookingDetail(bookingService, logg))
				r.Patch("/", controllers.BookingEdit(bookingService, logg))
				r.Delete("/", controllers.BookingDelete(bookingService, logg))

				r.Post("/void", controllers.BookingVoid(bookingService, logg))
				r.Post("/approve", controllers.BookingApprove(bookingService, logg))
				r.Post("/approve-loss", controllers.BookingApproveLoss(bookingService, logg))
				r.Post("/confirm", controllers.BookingConfirmClient(bookingService, logg))
				r.Post("/transfer", controllers.BookingMarkTransferred(bookingService, logg))
				r.Post("/insider-form", controllers.BookingUploadInsiderForm(bookingService, logg))
				r.Post("/refresh-status", controllers.BookingRefreshStatus(reconcileService, logg))

				r.With(middleware.RequireCapability(enums.CapabilityManageRpMapping, logg)).
					Put("/rp-mapping", controllers.BookingUpdateRpMapping(bookingService, logg))
				r.Route("/bp-override", func(r chi.Router) {
					r.Post("/", controllers.BookingProposeBpOverride(bookingService, logg))
					r.Post("/decision", controllers.BookingDecideBpOverride(bookingService, logg))
				})

				r.Route("/payments", func(r chi.Router) {
					r.Get("/", controllers.PaymentList(paymentsService, logg))
					r.Post("/", controllers.PaymentAdd(paymentsService, logg))
					r.Delete("/{trancheNumber}", controllers.PaymentDelete(paymentsService, logg))
				})
			})
		})

		r.Route("/v1/notifications", func(r chi.Router) {
			r.Get("/", controllers.ListNotifications(notificationsService, logg))
			r.Post("/read-all", controllers.MarkAllNotificationsRead(notificationsService, logg))
			r.Post("/{notificationId}/read", controllers.MarkNotificationRead(notificationsService, logg))
		})

		r.Route("/v1/stocks", func(r chi.Router) {
			r.Get("/", controllers.StockList(inventoryService, logg))
			r.Post("/", controllers.StockCreate(inventoryService, logg))
			r.Route("/{stockId}", func(r chi.Router) {
				r.Get("/", controllers.StockDetail(inventoryService, logg))
				r.With(middleware.RequireCapability(enums.CapabilityEditLandingPrice, logg)).
					Patch("/landing-price", controllers.StockUpdateLandingPrice(inventoryService, logg))
			})
		})
	})

	return r
}
