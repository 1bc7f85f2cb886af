package server

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/esusuhq/esusu-engine/internal/apperr"
	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
)

// Every mutating operation answers with the same discriminated shape:
// {success:true, message, data} or {success:false, error}.

func (s *Server) respond(w http.ResponseWriter, code int, message string, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	body := map[string]interface{}{
		"success": true,
		"message": message,
	}
	if data != nil {
		body["data"] = data
	}
	_ = json.NewEncoder(w).Encode(body)
}

func (s *Server) respondErr(w http.ResponseWriter, err error) {
	w.Header().Set("Content-Type", "application/json")

	var appErr *apperr.Error
	if !errors.As(err, &appErr) {
		// Store faults were already logged where they happened; the caller
		// only ever sees the generic message.
		appErr = apperr.New(apperr.Unexpected, "Something went wrong. Please try again.")
	}

	w.WriteHeader(statusFor(appErr.Kind))
	_ = json.NewEncoder(w).Encode(map[string]interface{}{
		"success": false,
		"error":   appErr.Message,
	})
}

func statusFor(kind apperr.Kind) int {
	switch kind {
	case apperr.Unauthorized:
		return http.StatusForbidden
	case apperr.Validation:
		return http.StatusBadRequest
	case apperr.Conflict:
		return http.StatusConflict
	case apperr.NotFound:
		return http.StatusNotFound
	case apperr.PreconditionFailed:
		return http.StatusUnprocessableEntity
	default:
		return http.StatusInternalServerError
	}
}

func (s *Server) pathUUID(w http.ResponseWriter, r *http.Request, name string) (uuid.UUID, bool) {
	id, err := uuid.Parse(chi.URLParam(r, name))
	if err != nil {
		s.respondErr(w, apperr.New(apperr.Validation, "Invalid "+name))
		return uuid.Nil, false
	}
	return id, true
}

func (s *Server) decode(w http.ResponseWriter, r *http.Request, dst interface{}) bool {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		s.respondErr(w, apperr.New(apperr.Validation, "Invalid request body"))
		return false
	}
	if err := s.validate.Struct(dst); err != nil {
		s.respondErr(w, apperr.New(apperr.Validation, "Invalid request: "+err.Error()))
		return false
	}
	return true
}
