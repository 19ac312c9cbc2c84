package handlers

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/creasty/defaults"
	"github.com/go-playground/validator/v10"
)

const dateLayout = "2006-01-02"

var validate = validator.New()

// HistoryRequest is the query of GET /api/heat/history
type HistoryRequest struct {
	From  string `json:"from" validate:"omitempty,datetime=2006-01-02"`
	To    string `json:"to" validate:"omitempty,datetime=2006-01-02"`
	Limit int    `json:"limit" default:"52" validate:"gte=1,lte=1000"`
}

// Range returns the parsed bounds, zero when absent
func (r HistoryRequest) Range() (from, to time.Time) {
	from, _ = time.Parse(dateLayout, r.From)
	to, _ = time.Parse(dateLayout, r.To)
	return from, to
}

// FieldError describes one rejected query parameter
type FieldError struct {
	Code    string `json:"code"`
	Field   string `json:"field,omitempty"`
	Message string `json:"message"`
}

func bindHistoryRequest(r *http.Request) (*HistoryRequest, []FieldError) {
	q := r.URL.Query()
	req := &HistoryRequest{
		From: strings.TrimSpace(q.Get("from")),
		To:   strings.TrimSpace(q.Get("to")),
	}

	if raw := q.Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil {
			return nil, []FieldError{{Code: "ERR_TYPE", Field: "limit", Message: "limit must be an integer"}}
		}
		if n <= 0 {
			return nil, []FieldError{{Code: "ERR_GTE", Field: "limit", Message: "limit must be at least 1"}}
		}
		req.Limit = n
	}

	if err := defaults.Set(req); err != nil {
		return nil, toFieldErrors(err)
	}
	if err := validate.Struct(req); err != nil {
		return nil, toFieldErrors(err)
	}

	from, to := req.Range()
	if !from.IsZero() && !to.IsZero() && to.Before(from) {
		return nil, []FieldError{{Code: "ERR_RANGE", Field: "to", Message: "to must not be before from"}}
	}
	return req, nil
}

func toFieldErrors(err error) []FieldError {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return []FieldError{{Code: "ERR_UNKNOWN", Message: err.Error()}}
	}

	out := make([]FieldError, 0, len(verrs))
	for _, fe := range verrs {
		field := strings.ToLower(fe.Field())
		out = append(out, FieldError{
			Code:    "ERR_" + strings.ToUpper(fe.Tag()),
			Field:   field,
			Message: fieldMessage(field, fe),
		})
	}
	return out
}

func fieldMessage(field string, fe validator.FieldError) string {
	switch fe.Tag() {
	case "datetime":
		return fmt.Sprintf("%s must be a date (YYYY-MM-DD)", field)
	case "gte":
		return fmt.Sprintf("%s must be at least %s", field, fe.Param())
	case "lte":
		return fmt.Sprintf("%s must be at most %s", field, fe.Param())
	default:
		return fmt.Sprintf("%s failed validation: %s", field, fe.Tag())
	}
}
