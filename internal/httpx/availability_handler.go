package httpx

import (
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/gearbelt/rental-engine/internal/availability"
	"github.com/gearbelt/rental-engine/internal/rental"
)

type AvailabilityHandler struct {
	Avail *availability.Service
	// DefaultStoreID fills in requests that omit a store; the default
	// lives here at the API boundary, never inside domain logic.
	DefaultStoreID string
}

func (h *AvailabilityHandler) Register(r *chi.Mux) {
	r.Get("/availability", h.getAvailability)
}

// parseWhen accepts RFC3339 or plain dates.
func parseWhen(s string) (*time.Time, error) {
	if s == "" {
		return nil, nil
	}
	for _, layout := range []string{time.RFC3339, "2006-01-02"} {
		if t, err := time.Parse(layout, s); err == nil {
			return &t, nil
		}
	}
	return nil, fmt.Errorf("%w: bad date %q", rental.ErrInvalidInput, s)
}

func (h *AvailabilityHandler) getAvailability(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	storeID := q.Get("store_id")
	if storeID == "" {
		storeID = h.DefaultStoreID
	}
	variantID := q.Get("variant_id")
	if storeID == "" || variantID == "" {
		writeError(w, fmt.Errorf("%w: store_id and variant_id required", rental.ErrInvalidInput))
		return
	}

	from, err := parseWhen(q.Get("from"))
	if err != nil {
		writeError(w, err)
		return
	}
	to, err := parseWhen(q.Get("to"))
	if err != nil {
		writeError(w, err)
		return
	}
	window, err := rental.NewWindow(from, to)
	if err != nil {
		writeError(w, err)
		return
	}

	n, err := h.Avail.AvailableQuantity(r.Context(), storeID, variantID, window)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"store_id":   storeID,
		"variant_id": variantID,
		"available":  n,
	})
}
