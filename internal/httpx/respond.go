package httpx

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/gearbelt/rental-engine/internal/rental"
)

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

// writeError maps the domain error taxonomy onto stable codes. Unknown
// errors surface as 500 without leaking internals.
func writeError(w http.ResponseWriter, err error) {
	type errBody struct {
		Error  string `json:"error"`
		Detail string `json:"detail,omitempty"`
	}
	switch {
	case errors.Is(err, rental.ErrNotFound):
		writeJSON(w, http.StatusNotFound, errBody{Error: "not_found"})
	case errors.Is(err, rental.ErrInvalidInput):
		writeJSON(w, http.StatusBadRequest, errBody{Error: "invalid_input", Detail: err.Error()})
	case errors.Is(err, rental.ErrOutOfStock):
		var oos *rental.OutOfStockError
		b := errBody{Error: "out_of_stock"}
		if errors.As(err, &oos) {
			b.Detail = oos.Error()
		}
		writeJSON(w, http.StatusConflict, b)
	case errors.Is(err, rental.ErrEmptyCart):
		writeJSON(w, http.StatusUnprocessableEntity, errBody{Error: "empty_cart"})
	case errors.Is(err, rental.ErrInvalidCartAddress):
		writeJSON(w, http.StatusUnprocessableEntity, errBody{Error: "invalid_cart_address"})
	case errors.Is(err, rental.ErrUnauthorized):
		writeJSON(w, http.StatusForbidden, errBody{Error: "unauthorized"})
	case errors.Is(err, rental.ErrBadSignature):
		writeJSON(w, http.StatusUnauthorized, errBody{Error: "invalid_signature"})
	case errors.Is(err, rental.ErrConflict):
		writeJSON(w, http.StatusConflict, errBody{Error: "conflict"})
	default:
		writeJSON(w, http.StatusInternalServerError, errBody{Error: "internal"})
	}
}
