package web

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	log "github.com/go-pkgz/lgr"

	"github.com/Stromnimick/HQEinOne/app/enums"
	"github.com/Stromnimick/HQEinOne/app/records"
)

const flashCookie = "hqe-flash"

// flash is a one-time message shown after redirect
type flash struct {
	Kind    string // "success" or "error"
	Message string
}

// TemplateData holds data for page templates
type TemplateData struct {
	Title        string
	Active       enums.Entity // highlighted navigation entry
	BaseURL      string
	AuthEnabled  bool
	Version      string
	FullVersion  string
	CurrentYear  int
	DeletePolicy enums.DeletePolicy
	Flash        *flash

	Items  any   // records of the list page
	Form   any   // create or edit form values, input fields of the entity
	EditID int64 // id of the edited record, zero for create form
	Error  string

	Programs     []records.Program
	Coordinators []records.Coordinator
	ProgramNames map[int64]string // program id -> label
	HQENames     map[int64]string // coordinator id -> name
	Options      map[string][]string

	// program details page
	Program     records.Program
	Regulations []records.RegulationVersion
	Reforms     []records.ReformProcedure
}

// selectOptions lists allowed values of enumerated form fields
var selectOptions = map[string][]string{
	"l_abschluss": enums.Names(enums.DegreeLongValues),
	"k_abschluss": enums.Names(enums.DegreeShortValues),
	"fak":         enums.Names(enums.FacultyValues),
	"inst":        enums.Names(enums.InstituteValues),
	"art":         enums.Names(enums.ProcedureTypeValues),
	"verfahren":   enums.Names(enums.ProcedureTrackValues),
}

// newTemplateData creates a TemplateData with common fields populated from request
func (s *Server) newTemplateData(w http.ResponseWriter, r *http.Request, active enums.Entity) TemplateData {
	return TemplateData{
		Title:        active.Title(),
		Active:       active,
		BaseURL:      s.baseURL,
		AuthEnabled:  s.passwordHash != "",
		Version:      shortVersion(s.version),
		FullVersion:  s.version,
		CurrentYear:  time.Now().Year(),
		DeletePolicy: s.svc.DeletePolicy(),
		Flash:        s.popFlash(w, r),
		Options:      selectOptions,
	}
}

// handleList renders the list page with the create form, or the edit form if ?edit={id} is set
func (res *resource[T, F, P]) handleList(w http.ResponseWriter, r *http.Request) {
	s := res.s
	data := s.newTemplateData(w, r, res.entity)

	items, err := res.list(r.Context())
	if err != nil {
		s.renderError(w, r, res.entity, err)
		return
	}
	data.Items = items

	var form F
	data.Form = form
	if v := r.URL.Query().Get("edit"); v != "" {
		id, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			s.renderError(w, r, res.entity, fmt.Errorf("%w: id %q", records.ErrInvalidValue, v))
			return
		}
		rec, err := res.get(r.Context(), id)
		if err != nil {
			s.renderError(w, r, res.entity, err)
			return
		}
		data.Form = res.fieldsOf(rec)
		data.EditID = id
	}

	if err := s.addLookups(r.Context(), &data); err != nil {
		s.renderError(w, r, res.entity, err)
		return
	}
	s.render(w, http.StatusOK, res.page, data)
}

// handleCreate stores a record from the create form and redirects back to the list
func (res *resource[T, F, P]) handleCreate(w http.ResponseWriter, r *http.Request) {
	s := res.s
	if err := r.ParseForm(); err != nil {
		http.Error(w, "Invalid form data", http.StatusBadRequest)
		return
	}

	rec, err := res.create(r.Context(), res.fromForm(r))
	if err != nil {
		log.Printf("[WARN] can't create %s: %v", res.entity, err)
		s.setFlash(w, "error", fmt.Sprintf("%s konnte nicht angelegt werden: %s", res.entity.Title(), describe(err)))
		http.Redirect(w, r, s.url(res.path), http.StatusSeeOther)
		return
	}

	s.setFlash(w, "success", fmt.Sprintf("%s '%s' wurde angelegt", res.entity.Title(), res.label(rec)))
	http.Redirect(w, r, s.url(res.path), http.StatusSeeOther)
}

// handleUpdate applies the edit form to a record and redirects back to the list
func (res *resource[T, F, P]) handleUpdate(w http.ResponseWriter, r *http.Request) {
	s := res.s
	id, err := pathID(r)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	if err := r.ParseForm(); err != nil {
		http.Error(w, "Invalid form data", http.StatusBadRequest)
		return
	}

	rec, err := res.update(r.Context(), id, res.patchForm(r))
	if err != nil {
		log.Printf("[WARN] can't update %s %d: %v", res.entity, id, err)
		s.setFlash(w, "error", fmt.Sprintf("%s konnte nicht gespeichert werden: %s", res.entity.Title(), describe(err)))
		target := s.url(fmt.Sprintf("%s?edit=%d", res.path, id))
		if errors.Is(err, records.ErrNotFound) {
			target = s.url(res.path)
		}
		http.Redirect(w, r, target, http.StatusSeeOther)
		return
	}

	s.setFlash(w, "success", fmt.Sprintf("%s '%s' wurde gespeichert", res.entity.Title(), res.label(rec)))
	http.Redirect(w, r, s.url(res.path), http.StatusSeeOther)
}

// handleDelete removes a record and redirects back to the list
func (res *resource[T, F, P]) handleDelete(w http.ResponseWriter, r *http.Request) {
	s := res.s
	id, err := pathID(r)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	rec, err := res.get(r.Context(), id)
	if err != nil {
		s.setFlash(w, "error", fmt.Sprintf("%s konnte nicht gelöscht werden: %s", res.entity.Title(), describe(err)))
		http.Redirect(w, r, s.url(res.path), http.StatusSeeOther)
		return
	}
	deps, err := s.svc.Dependents(r.Context(), res.entity, id)
	if err != nil {
		log.Printf("[WARN] can't count dependents of %s %d: %v", res.entity, id, err)
	}

	if err := res.remove(r.Context(), id); err != nil {
		log.Printf("[WARN] can't delete %s %d: %v", res.entity, id, err)
		s.setFlash(w, "error", fmt.Sprintf("%s '%s' konnte nicht gelöscht werden: %s",
			res.entity.Title(), res.label(rec), describe(err)))
		http.Redirect(w, r, s.url(res.path), http.StatusSeeOther)
		return
	}

	msg := fmt.Sprintf("%s '%s' wurde gelöscht", res.entity.Title(), res.label(rec))
	if deps.Total() > 0 {
		msg = fmt.Sprintf("%s '%s' wurde mit %s gelöscht", res.entity.Title(), res.label(rec), deps)
	}
	s.setFlash(w, "success", msg)
	http.Redirect(w, r, s.url(res.path), http.StatusSeeOther)
}

// handleProgramDetails renders a program with its regulation versions and reform procedures
func (s *Server) handleProgramDetails(w http.ResponseWriter, r *http.Request) {
	data := s.newTemplateData(w, r, enums.EntityProgram)
	id, err := pathID(r)
	if err != nil {
		s.renderError(w, r, enums.EntityProgram, err)
		return
	}

	if data.Program, err = s.svc.GetProgram(r.Context(), id); err != nil {
		s.renderError(w, r, enums.EntityProgram, err)
		return
	}
	if data.Regulations, err = s.svc.ProgramRegulations(r.Context(), id); err != nil {
		s.renderError(w, r, enums.EntityProgram, err)
		return
	}
	if data.Reforms, err = s.svc.ProgramReforms(r.Context(), id); err != nil {
		s.renderError(w, r, enums.EntityProgram, err)
		return
	}
	if err := s.addLookups(r.Context(), &data); err != nil {
		s.renderError(w, r, enums.EntityProgram, err)
		return
	}
	data.Title = data.Program.Label()
	s.render(w, http.StatusOK, "program", data)
}

// addLookups loads programs and coordinators for select lists and name columns
func (s *Server) addLookups(ctx context.Context, data *TemplateData) error {
	programs, err := s.svc.ListPrograms(ctx)
	if err != nil {
		return err
	}
	coordinators, err := s.svc.ListCoordinators(ctx)
	if err != nil {
		return err
	}

	data.Programs, data.Coordinators = programs, coordinators
	data.ProgramNames = make(map[int64]string, len(programs))
	for _, p := range programs {
		data.ProgramNames[p.ID] = p.Label()
	}
	data.HQENames = make(map[int64]string, len(coordinators))
	for _, c := range coordinators {
		data.HQENames[c.ID] = c.LongName
	}
	return nil
}

// renderError renders the error page with status matching the error kind
func (s *Server) renderError(w http.ResponseWriter, r *http.Request, active enums.Entity, err error) {
	status := statusOf(err)
	if status >= http.StatusInternalServerError {
		log.Printf("[ERROR] %s %s: %v", r.Method, r.URL.Path, err)
	}
	data := s.newTemplateData(w, r, active)
	data.Title = http.StatusText(status)
	data.Error = describe(err)
	s.render(w, status, "error", data)
}

// statusOf maps record errors to HTTP status codes
func statusOf(err error) int {
	switch {
	case errors.Is(err, records.ErrMissingField), errors.Is(err, records.ErrInvalidValue):
		return http.StatusBadRequest
	case errors.Is(err, records.ErrInvalidReference):
		return http.StatusUnprocessableEntity
	case errors.Is(err, records.ErrHasDependents):
		return http.StatusConflict
	case errors.Is(err, records.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, records.ErrUnavailable):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

// describe returns user-facing German text for an error, details of store failures are not shown
func describe(err error) string {
	switch {
	case errors.Is(err, records.ErrMissingField):
		return "Pflichtfeld fehlt (" + detail(err, records.ErrMissingField) + ")"
	case errors.Is(err, records.ErrInvalidValue):
		return "ungültiger Wert (" + detail(err, records.ErrInvalidValue) + ")"
	case errors.Is(err, records.ErrInvalidReference):
		return "Verweis ungültig (" + detail(err, records.ErrInvalidReference) + ")"
	case errors.Is(err, records.ErrHasDependents):
		return "es gibt abhängige Einträge (" + detail(err, records.ErrHasDependents) + ")"
	case errors.Is(err, records.ErrNotFound):
		return "Eintrag nicht gefunden"
	case errors.Is(err, records.ErrUnavailable):
		return "Datenbank nicht erreichbar, bitte später erneut versuchen"
	default:
		return "interner Fehler"
	}
}

// detail returns the part of the error message after the sentinel text
func detail(err, sentinel error) string {
	msg := err.Error()
	if _, after, ok := strings.Cut(msg, sentinel.Error()+": "); ok {
		return after
	}
	return msg
}

// setFlash stores a message shown on the next page
func (s *Server) setFlash(w http.ResponseWriter, kind, msg string) {
	http.SetCookie(w, &http.Cookie{
		Name:     flashCookie,
		Value:    url.QueryEscape(kind + "|" + msg),
		Path:     s.cookiePath(),
		MaxAge:   60,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
}

// popFlash returns the pending message and clears it
func (s *Server) popFlash(w http.ResponseWriter, r *http.Request) *flash {
	cookie, err := r.Cookie(flashCookie)
	if err != nil || cookie.Value == "" {
		return nil
	}
	http.SetCookie(w, &http.Cookie{Name: flashCookie, Value: "", Path: s.cookiePath(), MaxAge: -1,
		HttpOnly: true, SameSite: http.SameSiteLaxMode})

	raw, err := url.QueryUnescape(cookie.Value)
	if err != nil {
		log.Printf("[WARN] invalid flash cookie %q: %v", cookie.Value, err)
		return nil
	}
	kind, msg, ok := strings.Cut(raw, "|")
	if !ok || (kind != "success" && kind != "error") {
		return nil
	}
	return &flash{Kind: kind, Message: msg}
}
