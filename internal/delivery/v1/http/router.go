package http

import (
	"net/http"

	_ "github.com/DRSN-tech/visual-commerce/docs" // Импорт сгенерированных файлов
	"github.com/DRSN-tech/visual-commerce/internal/cfg"
	"github.com/DRSN-tech/visual-commerce/internal/usecase"
	"github.com/DRSN-tech/visual-commerce/pkg/logger"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	httpSwagger "github.com/swaggo/http-swagger/v2"
)

// MetricsProvider — метрики запросов и их HTTP-экспорт.
type MetricsProvider interface {
	RequestObserver
	Handler() http.Handler
}

type Router struct {
	router  *chi.Mux
	cfg     *cfg.HTTPConfig
	metrics MetricsProvider
	logger  logger.Logger
}

func NewRouter(router *chi.Mux, cfg *cfg.HTTPConfig, metrics MetricsProvider, logger logger.Logger) *Router {
	return &Router{router: router, cfg: cfg, metrics: metrics, logger: logger}
}

// UseCases — зависимости обработчиков.
type UseCases struct {
	VisualSearch usecase.VisualSearchUC
	Similarity   usecase.SimilaritySearchUC
	Payment      usecase.PaymentUC
	MaxFileSize  int64
	DefaultTopK  int
}

func (r *Router) Init(uc UseCases) {
	r.router.Use(middleware.RealIP)
	r.router.Use(middleware.Recoverer)
	if r.metrics != nil {
		r.router.Use(observeRequests(r.metrics))
	}
	r.router.MethodNotAllowed(methodNotAllowed)
	r.router.NotFound(notFound)

	r.router.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		WriteSuccess(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	if r.metrics != nil {
		r.router.Method(http.MethodGet, "/metrics", r.metrics.Handler())
	}
	if r.cfg.SwaggerURL != "" {
		r.router.Get("/swagger/*", httpSwagger.Handler(
			httpSwagger.URL(r.cfg.SwaggerURL), // ссылка на JSON
		))
	}

	var limiterObserver RequestObserver
	if r.metrics != nil {
		limiterObserver = r.metrics
	}
	limiter := newClientLimiter(r.cfg.VisualSearchRPS, r.cfg.VisualSearchBurst, limiterObserver)

	r.router.Route("/api/v1", func(v1 chi.Router) {
		vsHandler := NewVisualSearchHandler(uc.VisualSearch, uc.MaxFileSize, r.logger)
		v1.With(limiter.middleware).Post("/visual-search", vsHandler.visualSearch)

		searchHandler := NewSearchHandler(uc.Similarity, uc.DefaultTopK, r.logger)
		v1.Post("/image_search", searchHandler.imageSearch)
	})

	paymentHandler := NewPaymentHandler(uc.Payment, r.logger)
	registerPaymentRoutes(r.router, paymentHandler)
}

func registerPaymentRoutes(router chi.Router, h *PaymentHandler) {
	router.Post("/create_payment_intent", h.createPaymentIntent)
	router.Post("/stripe_webhook", h.stripeWebhook)
}
