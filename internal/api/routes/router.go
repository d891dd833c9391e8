package routes

import (
	"net/http"

	"github.com/tmvsalud/medtour/internal/api/handlers"
	"github.com/tmvsalud/medtour/internal/api/loaders"
	"github.com/tmvsalud/medtour/internal/api/middleware"
	"github.com/tmvsalud/medtour/internal/domain/repositories"
	"github.com/tmvsalud/medtour/internal/infrastructure/observability"
)

// Router holds all route handlers
type Router struct {
	mux *http.ServeMux

	quoteHandler   *handlers.QuoteHandler
	paymentHandler *handlers.PaymentHandler
	catalogHandler *handlers.CatalogHandler
	pricingHandler *handlers.PricingHandler
	sseHandler     *handlers.SSEHandler

	hotels         repositories.HotelRepository
	allowedOrigins []string
	metrics        *observability.Metrics
}

// Options carries the cross-cutting dependencies of the router
type Options struct {
	// Hotels backs the per-request hotel dataloader used by quote listings
	Hotels         repositories.HotelRepository
	AllowedOrigins []string
	Metrics        *observability.Metrics
}

// NewRouter creates a new router. sseHandler may be nil.
func NewRouter(
	quoteHandler *handlers.QuoteHandler,
	paymentHandler *handlers.PaymentHandler,
	catalogHandler *handlers.CatalogHandler,
	pricingHandler *handlers.PricingHandler,
	sseHandler *handlers.SSEHandler,
	opts Options,
) *Router {
	return &Router{
		mux:            http.NewServeMux(),
		quoteHandler:   quoteHandler,
		paymentHandler: paymentHandler,
		catalogHandler: catalogHandler,
		pricingHandler: pricingHandler,
		sseHandler:     sseHandler,
		hotels:         opts.Hotels,
		allowedOrigins: opts.AllowedOrigins,
		metrics:        opts.Metrics,
	}
}

// SetupRoutes configures all application routes
func (r *Router) SetupRoutes() http.Handler {
	r.mux.HandleFunc("GET /health", func(w http.ResponseWriter, req *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("OK"))
	})

	// Quote workflow
	r.mux.HandleFunc("POST /api/quotes", r.quoteHandler.CreateQuote)
	r.mux.HandleFunc("GET /api/quotes", r.quoteHandler.ListQuotes)
	r.mux.HandleFunc("GET /api/quotes/{id}", r.quoteHandler.GetQuote)
	r.mux.HandleFunc("POST /api/quotes/{id}/transitions", r.quoteHandler.TransitionQuote)
	r.mux.HandleFunc("GET /api/quotes/{id}/payments", r.paymentHandler.ListQuotePayments)

	// Payment intake
	r.mux.HandleFunc("POST /api/payments", r.paymentHandler.SubmitPayment)
	r.mux.HandleFunc("GET /api/payments", r.paymentHandler.ListPayments)
	r.mux.HandleFunc("GET /api/payments/{id}", r.paymentHandler.GetPayment)
	r.mux.HandleFunc("POST /api/payments/{id}/review", r.paymentHandler.ReviewPayment)

	// Hotel alliances
	r.mux.HandleFunc("GET /api/hotels", r.catalogHandler.ListHotels)
	r.mux.HandleFunc("POST /api/hotels", r.catalogHandler.CreateHotel)
	r.mux.HandleFunc("GET /api/hotels/{id}", r.catalogHandler.GetHotel)
	r.mux.HandleFunc("PUT /api/hotels/{id}", r.catalogHandler.UpdateHotel)
	r.mux.HandleFunc("DELETE /api/hotels/{id}", r.catalogHandler.DeleteHotel)

	// Doctor directory
	r.mux.HandleFunc("GET /api/doctors", r.catalogHandler.ListDoctors)
	r.mux.HandleFunc("POST /api/doctors", r.catalogHandler.CreateDoctor)
	r.mux.HandleFunc("GET /api/doctors/search", r.catalogHandler.SearchDoctors)
	r.mux.HandleFunc("GET /api/doctors/{id}", r.catalogHandler.GetDoctor)
	r.mux.HandleFunc("PUT /api/doctors/{id}", r.catalogHandler.UpdateDoctor)

	r.mux.HandleFunc("POST /api/pricing/estimate", r.pricingHandler.Estimate)

	if r.sseHandler != nil {
		r.mux.HandleFunc("GET /api/stream/quotes/{id}", r.sseHandler.StreamQuoteUpdates)
	}

	// Apply middleware in reverse order (last middleware wraps first)
	routes := middleware.MuxRoutes(r.mux)

	var handler http.Handler = r.mux
	handler = middleware.IdentityMiddleware(handler)
	if r.hotels != nil {
		handler = loaders.Middleware(r.hotels)(handler)
	}
	handler = middleware.LoggingMiddleware(routes)(handler)
	handler = middleware.ObservabilityMiddleware(r.metrics, routes)(handler)

	// CORS wraps everything so preflights never reach identity checks
	handler = middleware.CORSMiddleware(r.allowedOrigins)(handler)

	return handler
}
