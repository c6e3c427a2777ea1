package web

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	log "github.com/go-pkgz/lgr"

	"github.com/Stromnimick/HQEinOne/app/enums"
	"github.com/Stromnimick/HQEinOne/app/records"
)

// APIListResponse is the JSON response for collection endpoints
type APIListResponse[T any] struct {
	Items []T `json:"items"`
	Total int `json:"total"`
}

func (res *resource[T, F, P]) handleAPIList(w http.ResponseWriter, r *http.Request) {
	items, err := res.list(r.Context())
	if err != nil {
		res.s.writeAPIError(w, r, err)
		return
	}
	res.s.writeJSON(w, http.StatusOK, APIListResponse[T]{Items: items, Total: len(items)})
}

func (res *resource[T, F, P]) handleAPIGet(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		res.s.writeAPIError(w, r, err)
		return
	}
	rec, err := res.get(r.Context(), id)
	if err != nil {
		res.s.writeAPIError(w, r, err)
		return
	}
	res.s.writeJSON(w, http.StatusOK, rec)
}

func (res *resource[T, F, P]) handleAPICreate(w http.ResponseWriter, r *http.Request) {
	var f F
	if err := decodeJSON(r, &f); err != nil {
		res.s.writeAPIError(w, r, err)
		return
	}
	rec, err := res.create(r.Context(), f)
	if err != nil {
		res.s.writeAPIError(w, r, err)
		return
	}
	w.Header().Set("Location", res.s.url(fmt.Sprintf("/api/v1%s/%d", res.path, rec.RecordID())))
	res.s.writeJSON(w, http.StatusCreated, rec)
}

func (res *resource[T, F, P]) handleAPIUpdate(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		res.s.writeAPIError(w, r, err)
		return
	}
	var p P
	if err := decodeJSON(r, &p); err != nil {
		res.s.writeAPIError(w, r, err)
		return
	}
	rec, err := res.update(r.Context(), id, p)
	if err != nil {
		res.s.writeAPIError(w, r, err)
		return
	}
	res.s.writeJSON(w, http.StatusOK, rec)
}

func (res *resource[T, F, P]) handleAPIDelete(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		res.s.writeAPIError(w, r, err)
		return
	}
	if err := res.remove(r.Context(), id); err != nil {
		res.s.writeAPIError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// handleAPIProgramRegulations returns regulation versions of a program
func (s *Server) handleAPIProgramRegulations(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		s.writeAPIError(w, r, err)
		return
	}
	items, err := s.svc.ProgramRegulations(r.Context(), id)
	if err != nil {
		s.writeAPIError(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusOK, APIListResponse[records.RegulationVersion]{Items: items, Total: len(items)})
}

// handleAPIProgramReforms returns reform procedures of a program
func (s *Server) handleAPIProgramReforms(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		s.writeAPIError(w, r, err)
		return
	}
	items, err := s.svc.ProgramReforms(r.Context(), id)
	if err != nil {
		s.writeAPIError(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusOK, APIListResponse[records.ReformProcedure]{Items: items, Total: len(items)})
}

// handleAPICoordinatorReforms returns reform procedures handled by a coordinator
func (s *Server) handleAPICoordinatorReforms(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		s.writeAPIError(w, r, err)
		return
	}
	items, err := s.svc.CoordinatorReforms(r.Context(), id)
	if err != nil {
		s.writeAPIError(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusOK, APIListResponse[records.ReformProcedure]{Items: items, Total: len(items)})
}

// handleAPISchema returns JSON schema of the create request body for an entity
func (s *Server) handleAPISchema(w http.ResponseWriter, r *http.Request) {
	entity, err := enums.ParseEntity(r.PathValue("entity"))
	if err != nil {
		s.writeJSONError(w, http.StatusNotFound, err.Error())
		return
	}
	schema, err := records.Schema(entity)
	if err != nil {
		s.writeAPIError(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusOK, schema)
}

// decodeJSON decodes request body, unknown fields are rejected
func decodeJSON(r *http.Request, v any) error {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		return fmt.Errorf("%w: request body: %w", records.ErrInvalidValue, err)
	}
	return nil
}

// writeAPIError writes error response with status matching the error kind
func (s *Server) writeAPIError(w http.ResponseWriter, r *http.Request, err error) {
	status := statusOf(err)
	msg := err.Error()
	if status >= http.StatusInternalServerError {
		log.Printf("[ERROR] %s %s: %v", r.Method, r.URL.Path, err)
		msg = http.StatusText(status)
		if errors.Is(err, records.ErrUnavailable) {
			msg = records.ErrUnavailable.Error()
		}
	}
	s.writeJSONError(w, status, msg)
}

// writeJSON writes a JSON response
func (s *Server) writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	if err := json.NewEncoder(w).Encode(data); err != nil {
		log.Printf("[WARN] failed to encode JSON response: %v", err)
	}
}

// writeJSONError writes a JSON error response
func (s *Server) writeJSONError(w http.ResponseWriter, status int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	resp := map[string]string{"error": message}
	if err := json.NewEncoder(w).Encode(resp); err != nil {
		log.Printf("[WARN] failed to encode JSON error response: %v", err)
	}
}
