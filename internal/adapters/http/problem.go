package web

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/go-playground/validator/v10"

	"caretrack/internal/application/orchestrators"
	"caretrack/internal/domain/account"
	"caretrack/internal/domain/program"
)

// Problem represents an RFC 7807 Problem Details response.
type Problem struct {
	Type     string         `json:"type"`
	Title    string         `json:"title"`
	Status   int            `json:"status"`
	Detail   string         `json:"detail"`
	Instance string         `json:"instance,omitempty"`
	Errors   []FieldProblem `json:"errors,omitempty"`
}

// FieldProblem names one invalid input field.
type FieldProblem struct {
	Field   string `json:"field"`
	Message string `json:"message"`
	Value   string `json:"value,omitempty"`
}

const problemBase = "https://caretrack.local/errors/"

var problemTypes = map[int]struct {
	slug  string
	title string
}{
	http.StatusBadRequest:            {"bad-request", "Bad Request"},
	http.StatusUnauthorized:          {"unauthorized", "Unauthorized"},
	http.StatusForbidden:             {"forbidden", "Forbidden"},
	http.StatusNotFound:              {"not-found", "Not Found"},
	http.StatusConflict:              {"conflict", "Conflict"},
	http.StatusRequestEntityTooLarge: {"too-large", "Request Entity Too Large"},
	http.StatusUnprocessableEntity:   {"validation-error", "Validation Error"},
	http.StatusInternalServerError:   {"internal-error", "Internal Server Error"},
	http.StatusServiceUnavailable:    {"service-unavailable", "Service Unavailable"},
}

// writeProblem writes an RFC 7807 Problem Details response.
func writeProblem(w http.ResponseWriter, r *http.Request, status int, detail string, fields ...FieldProblem) {
	pt, ok := problemTypes[status]
	if !ok {
		pt.slug, pt.title = "unknown", http.StatusText(status)
	}
	p := Problem{
		Type:     problemBase + pt.slug,
		Title:    pt.title,
		Status:   status,
		Detail:   detail,
		Instance: r.URL.Path,
		Errors:   fields,
	}
	w.Header().Set("Content-Type", "application/problem+json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(p); err != nil {
		slog.Error("problem_encode_failed", "error", err)
	}
}

// internalError logs the real error and returns a generic message to the client.
func (s *Server) internalError(w http.ResponseWriter, r *http.Request, err error) {
	slog.Error("internal_error",
		"request_id", chimw.GetReqID(r.Context()),
		"path", r.URL.Path,
		"error", err.Error(),
	)
	if isHTMLRequest(r) {
		s.renderError(w, r, http.StatusInternalServerError, "Something went wrong. Please try again.")
		return
	}
	writeProblem(w, r, http.StatusInternalServerError, "internal server error")
}

// accountInputErrors are account domain errors caused by caller input.
var accountInputErrors = []error{
	account.ErrEmptyUsername,
	account.ErrUsernameTooLong,
	account.ErrInvalidUsername,
	account.ErrInvalidRole,
	account.ErrEmptyPassword,
	account.ErrPasswordTooShort,
}

// writeError maps an application error to a response.
// Validation failures are 422, missing programs or rows 404, anything else a
// generic 500 with details logged only.
func (s *Server) writeError(w http.ResponseWriter, r *http.Request, err error) {
	status, detail, fields := classifyError(err)
	if status == http.StatusInternalServerError {
		s.internalError(w, r, err)
		return
	}
	if isHTMLRequest(r) {
		s.renderError(w, r, status, detail)
		return
	}
	writeProblem(w, r, status, detail, fields...)
}

func classifyError(err error) (int, string, []FieldProblem) {
	var ve *program.ValidationError
	var vErrs validator.ValidationErrors
	switch {
	case errors.As(err, &ve):
		return http.StatusUnprocessableEntity, ve.Error(), []FieldProblem{{Field: ve.Field, Message: ve.Message, Value: ve.Value}}
	case errors.As(err, &vErrs):
		fields := translateValidation(vErrs)
		return http.StatusUnprocessableEntity, fields[0].Message, fields
	case program.IsNotFound(err):
		return http.StatusNotFound, "program or data row not found", nil
	case errors.Is(err, orchestrators.ErrUsernameAlreadyExists):
		return http.StatusConflict, err.Error(), nil
	}
	for _, target := range accountInputErrors {
		if errors.Is(err, target) {
			return http.StatusUnprocessableEntity, err.Error(), nil
		}
	}
	return http.StatusInternalServerError, "", nil
}

// writeJSON writes v as a JSON response body.
func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("json_encode_failed", "error", err)
	}
}
