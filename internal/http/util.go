package httpapi

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"time"

	"github.com/debranko/obedio-yacht-crew-management-sub003/internal/apperr"
	"github.com/debranko/obedio-yacht-crew-management-sub003/internal/models"

	"go.uber.org/zap"
)

const maxBody = 1 << 20

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func readBodyJSON(r *http.Request, maxBytes int64, out any) error {
	body, err := io.ReadAll(io.LimitReader(r.Body, maxBytes))
	if err != nil {
		return err
	}
	if len(body) == 0 {
		return nil
	}
	return json.Unmarshal(body, out)
}

// parseDate validates a YYYY-MM-DD query value; empty is allowed
func parseDate(name, v string) error {
	if v == "" {
		return nil
	}
	if _, err := time.Parse(models.DateLayout, v); err != nil {
		return apperr.Invalid("%s must be YYYY-MM-DD, got %q", name, v)
	}
	return nil
}

type transitionDetails struct {
	From    string   `json:"from"`
	To      string   `json:"to"`
	Allowed []string `json:"allowedTransitions"`
}

// writeError maps the error taxonomy to a status code and envelope
func writeError(w http.ResponseWriter, logger *zap.Logger, err error) {
	var transition *apperr.InvalidTransitionError
	var availability *apperr.AvailabilityConflictError
	switch {
	case errors.As(err, &transition):
		allowed := transition.Allowed
		if allowed == nil {
			allowed = []string{}
		}
		writeJSON(w, http.StatusConflict, FailWith(err.Error(), transitionDetails{
			From:    transition.From,
			To:      transition.To,
			Allowed: allowed,
		}))
	case errors.As(err, &availability):
		writeJSON(w, http.StatusConflict, FailWith(err.Error(), availability.Conflicts))
	case errors.Is(err, apperr.ErrNotFound):
		writeJSON(w, http.StatusNotFound, Fail(err.Error()))
	case errors.Is(err, apperr.ErrConflict):
		writeJSON(w, http.StatusConflict, Fail(err.Error()))
	case errors.Is(err, apperr.ErrInvalidInput):
		writeJSON(w, http.StatusBadRequest, Fail(err.Error()))
	default:
		logger.Error("Request failed", zap.Error(err))
		writeJSON(w, http.StatusInternalServerError, Fail("internal error"))
	}
}

func badRequest(w http.ResponseWriter, msg string) {
	writeJSON(w, http.StatusBadRequest, Fail(msg))
}

func writeXLSX(w http.ResponseWriter, filename string, data []byte) {
	w.Header().Set("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	w.Header().Set("Content-Disposition", `attachment; filename="`+filename+`"`)
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(data)
}
