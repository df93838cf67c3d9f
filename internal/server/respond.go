package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"unicode"
	"unicode/utf8"

	"go.uber.org/zap"

	"github.com/abhisek/sldscreen/internal/assessment"
	"github.com/abhisek/sldscreen/internal/identity"
	"github.com/abhisek/sldscreen/internal/profiles"
	"github.com/abhisek/sldscreen/internal/screening"
	"github.com/abhisek/sldscreen/internal/store"
)

// maxBodyBytes bounds request bodies; a full questionnaire is a few KB.
const maxBodyBytes = 1 << 20

// errBadRequest marks malformed request bodies.
var errBadRequest = errors.New("invalid request body")

// body is a JSON object response.
type body map[string]any

func writeJSON(w http.ResponseWriter, status int, b body) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(b)
}

// writeOK writes b with "success": true.
func writeOK(w http.ResponseWriter, status int, b body) {
	if b == nil {
		b = body{}
	}
	b["success"] = true
	writeJSON(w, status, b)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, body{"success": false, "error": msg})
}

// decodeJSON reads a single JSON object from the request body into v.
func decodeJSON(w http.ResponseWriter, r *http.Request, v any) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err := dec.Decode(v); err != nil {
		if errors.Is(err, io.EOF) {
			return fmt.Errorf("%w: empty body", errBadRequest)
		}
		return fmt.Errorf("%w: %v", errBadRequest, err)
	}
	return nil
}

// fail maps err to a status and writes the error response. resource names
// the record in 404 messages.
func (s *Server) fail(w http.ResponseWriter, r *http.Request, err error, resource string) {
	status, msg := classify(err, resource)
	if status >= http.StatusInternalServerError {
		s.logger.Error("request failed",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Int("status", status),
			zap.Error(err))
	}
	writeError(w, status, msg)
}

func classify(err error, resource string) (int, string) {
	switch {
	case errors.Is(err, identity.ErrInvalidToken):
		return http.StatusUnauthorized, "Invalid or expired token"
	case errors.Is(err, assessment.ErrRoleNotAllowed):
		return http.StatusForbidden, capitalize(err.Error())
	case errors.Is(err, assessment.ErrResponsesIncomplete),
		errors.Is(err, profiles.ErrInvalidAge):
		return http.StatusBadRequest, capitalize(err.Error())
	case errors.Is(err, errBadRequest),
		errors.Is(err, screening.ErrInvalidResponses),
		errors.Is(err, profiles.ErrInvalidInput),
		errors.Is(err, identity.ErrInvalidUser),
		errors.Is(err, identity.ErrEmailExists),
		errors.Is(err, store.ErrDuplicate):
		return http.StatusBadRequest, err.Error()
	case errors.Is(err, store.ErrNotFound):
		if resource == "" {
			resource = "record"
		}
		return http.StatusNotFound, capitalize(resource) + " not found"
	case errors.Is(err, store.ErrStale):
		return http.StatusConflict, "Responses changed during analysis, please retry"
	case errors.Is(err, assessment.ErrRecommendations):
		return http.StatusBadGateway, "Recommendation generation failed"
	default:
		return http.StatusInternalServerError, "Internal server error"
	}
}

// capitalize upper-cases the first letter of s.
func capitalize(s string) string {
	r, n := utf8.DecodeRuneInString(s)
	if r == utf8.RuneError {
		return s
	}
	return string(unicode.ToUpper(r)) + s[n:]
}
