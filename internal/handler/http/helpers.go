package http

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/BrightCodeshub/BakeryShop/internal/cart"
	"github.com/BrightCodeshub/BakeryShop/internal/checkout"
	"github.com/BrightCodeshub/BakeryShop/internal/order"
	"github.com/BrightCodeshub/BakeryShop/internal/payment"
	"github.com/BrightCodeshub/BakeryShop/internal/profile"
	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog/log"
)

type ValidationErrorResponse struct {
	Error   string            `json:"error"`
	Details []ValidationIssue `json:"details"`
}

type ValidationIssue struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

func respondWithError(w http.ResponseWriter, code int, message string) {
	respondWithJSON(w, code, map[string]string{"error": message})
}

func respondWithJSON(w http.ResponseWriter, code int, payload any) {
	response, err := json.Marshal(payload)
	if err != nil {
		log.Error().Err(err).Msg("Failed to marshal JSON response")
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = w.Write([]byte(`{"error":"Failed to marshal JSON response"}`))
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if _, err := w.Write(response); err != nil {
		log.Error().Err(err).Msg("Failed to write JSON response")
	}
}

func mapErrorToStatusCode(err error) int {
	var validationErr *checkout.ValidationError
	switch {
	case errors.As(err, &validationErr):
		return http.StatusBadRequest
	case errors.Is(err, order.ErrOrderNotFound), errors.Is(err, profile.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, order.ErrInvalidStatusTransition), errors.Is(err, order.ErrStatusConflict):
		return http.StatusConflict
	case errors.Is(err, order.ErrUnknownStatus),
		errors.Is(err, cart.ErrInvalidQuantity),
		errors.Is(err, cart.ErrInvalidItem),
		errors.Is(err, cart.ErrMissingCartID),
		errors.Is(err, payment.ErrMissingSignature),
		errors.Is(err, payment.ErrInvalidSignature):
		return http.StatusBadRequest
	case errors.Is(err, checkout.ErrGateway):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

// clientMessage hides internal failures behind fallback.
func clientMessage(err error, fallback string) string {
	var validationErr *checkout.ValidationError
	if errors.As(err, &validationErr) {
		return validationErr.Message
	}
	if mapErrorToStatusCode(err) >= http.StatusInternalServerError {
		return fallback
	}
	return err.Error()
}

func formatValidationErrors(errs validator.ValidationErrors) []ValidationIssue {
	details := make([]ValidationIssue, 0, len(errs))
	for _, fe := range errs {
		var message string
		switch fe.Tag() {
		case "required":
			message = "is required"
		case "email":
			message = "must be a valid email address"
		case "uuid":
			message = "must be a valid UUID"
		case "min", "gte":
			message = fmt.Sprintf("must be at least %s", fe.Param())
		case "oneof":
			message = fmt.Sprintf("must be one of: %s", fe.Param())
		default:
			message = fmt.Sprintf("failed on the '%s' rule", fe.Tag())
		}
		details = append(details, ValidationIssue{Field: fe.Field(), Message: message})
	}
	return details
}

// decodeAndValidate reads a JSON body into dst and runs struct validation.
// It writes the error response itself and reports whether the handler may go on.
func decodeAndValidate(w http.ResponseWriter, r *http.Request, validate *validator.Validate, dst any) bool {
	decoder := json.NewDecoder(r.Body)
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(dst); err != nil {
		log.Warn().Err(err).Str("path", r.URL.Path).Msg("Failed to decode request body")
		respondWithError(w, http.StatusBadRequest, "Invalid request payload")
		return false
	}

	if err := validate.Struct(dst); err != nil {
		var validationErrors validator.ValidationErrors
		if errors.As(err, &validationErrors) {
			respondWithJSON(w, http.StatusBadRequest, ValidationErrorResponse{
				Error:   "Validation failed",
				Details: formatValidationErrors(validationErrors),
			})
		} else {
			log.Error().Err(err).Type("validation_error_type", err).Msg("Unexpected error type during validation")
			respondWithError(w, http.StatusInternalServerError, "Internal validation error")
		}
		return false
	}
	return true
}

// parseOrderQuery reads from/to (RFC3339 or YYYY-MM-DD) and limit/offset.
func parseOrderQuery(r *http.Request) (order.Query, error) {
	var q order.Query
	values := r.URL.Query()

	var err error
	if q.From, _, err = parseTime(values.Get("from")); err != nil {
		return q, fmt.Errorf("invalid from: %w", err)
	}
	var wholeDay bool
	if q.To, wholeDay, err = parseTime(values.Get("to")); err != nil {
		return q, fmt.Errorf("invalid to: %w", err)
	}
	// The window end is exclusive; a bare date includes that whole day.
	if wholeDay {
		q.To = q.To.AddDate(0, 0, 1)
	}
	if raw := values.Get("limit"); raw != "" {
		if q.Limit, err = strconv.Atoi(raw); err != nil {
			return q, fmt.Errorf("invalid limit: %w", err)
		}
	}
	if raw := values.Get("offset"); raw != "" {
		if q.Offset, err = strconv.Atoi(raw); err != nil {
			return q, fmt.Errorf("invalid offset: %w", err)
		}
	}
	return q, nil
}

func parseTime(raw string) (t time.Time, dateOnly bool, err error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return time.Time{}, false, nil
	}
	if t, err = time.Parse(time.RFC3339, raw); err == nil {
		return t, false, nil
	}
	t, err = time.Parse(time.DateOnly, raw)
	return t, err == nil, err
}
