// Package handler exposes the read-only market-data HTTP API: health,
// the full price list, and single-symbol quotes. All trading goes
// through the console; this surface only observes the oscillator.
package handler

import (
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	log "github.com/sirupsen/logrus"

	"github.com/eycin/papertrade/internal/domain"
	"github.com/eycin/papertrade/internal/engine"
)

// quoteJSON is the wire shape of one price entry. Prices travel as
// decimal strings so clients never round-trip them through floats.
type quoteJSON struct {
	Symbol string `json:"symbol"`
	Price  string `json:"price"`
}

// pricesResponse is the response for GET /prices.
type pricesResponse struct {
	Prices     []quoteJSON `json:"prices"`
	SnapshotAt time.Time   `json:"snapshot_at"`
}

// MarketHandler serves price reads from the engine.
type MarketHandler struct {
	eng *engine.Exchange
}

// NewRouter creates a chi router with the market-data routes and
// request logging registered.
func NewRouter(eng *engine.Exchange) chi.Router {
	r := chi.NewRouter()
	r.Use(requestLogging)

	h := &MarketHandler{eng: eng}

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		WriteJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	r.Get("/prices", h.ListPrices)
	r.Get("/prices/{symbol}", h.GetQuote)

	return r
}

// ListPrices returns a consistent, symbol-ordered snapshot of the
// price table.
func (h *MarketHandler) ListPrices(w http.ResponseWriter, r *http.Request) {
	snapshot := h.eng.ListPrices()
	out := make([]quoteJSON, 0, len(snapshot))
	for _, q := range snapshot {
		out = append(out, quoteJSON{Symbol: q.Symbol, Price: q.Price.String()})
	}
	WriteJSON(w, http.StatusOK, pricesResponse{
		Prices:     out,
		SnapshotAt: time.Now().UTC(),
	})
}

// GetQuote returns the current price of one symbol.
func (h *MarketHandler) GetQuote(w http.ResponseWriter, r *http.Request) {
	symbol := chi.URLParam(r, "symbol")
	q, err := h.eng.Quote(symbol)
	switch {
	case errors.Is(err, domain.ErrInvalidSymbol):
		WriteError(w, http.StatusBadRequest, "invalid_symbol", "symbol must be 1-10 letters")
	case errors.Is(err, domain.ErrSymbolNotFound):
		WriteError(w, http.StatusNotFound, "symbol_not_found", "symbol is not listed")
	case err != nil:
		WriteError(w, http.StatusInternalServerError, "internal", "unexpected error")
	default:
		WriteJSON(w, http.StatusOK, quoteJSON{Symbol: q.Symbol, Price: q.Price.String()})
	}
}

// requestLogging logs each request's method, path, status, and
// duration.
func requestLogging(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := &statusWriter{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(ww, r)
		log.WithFields(log.Fields{
			"method":   r.Method,
			"path":     r.URL.Path,
			"status":   ww.status,
			"duration": time.Since(start),
		}).Info("request")
	})
}

// statusWriter wraps http.ResponseWriter to capture the status code.
type statusWriter struct {
	http.ResponseWriter
	status      int
	wroteHeader bool
}

func (w *statusWriter) WriteHeader(code int) {
	if !w.wroteHeader {
		w.status = code
		w.wroteHeader = true
	}
	w.ResponseWriter.WriteHeader(code)
}
