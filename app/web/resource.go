package web

import (
	"context"
	"fmt"
	"net/http"
	"strconv"

	"github.com/didip/tollbooth/v8"
	"github.com/go-pkgz/routegroup"

	"github.com/Stromnimick/HQEinOne/app/enums"
	"github.com/Stromnimick/HQEinOne/app/records"
)

// resource binds record operations of one entity to HTML pages and JSON endpoints.
// T is the stored record, F the create input and P the update patch
type resource[T interface{ RecordID() int64 }, F, P any] struct {
	s      *Server
	entity enums.Entity
	path   string // collection path, like "/programs"
	page   string // template name of the list page

	create func(ctx context.Context, f F) (T, error)
	update func(ctx context.Context, id int64, p P) (T, error)
	remove func(ctx context.Context, id int64) error
	get    func(ctx context.Context, id int64) (T, error)
	list   func(ctx context.Context) ([]T, error)

	fieldsOf  func(T) F                // input fields prefilled from a stored record
	fromForm  func(r *http.Request) F  // create input from a submitted form
	patchForm func(r *http.Request) P  // patch from a submitted form, only posted fields are set
	label     func(T) string           // display name used in messages
}

// resources returns one resource per entity
func (s *Server) resources() (
	programs *resource[records.Program, records.ProgramFields, records.ProgramPatch],
	regulations *resource[records.RegulationVersion, records.RegulationFields, records.RegulationPatch],
	reforms *resource[records.ReformProcedure, records.ReformFields, records.ReformPatch],
	coordinators *resource[records.Coordinator, records.CoordinatorFields, records.CoordinatorPatch],
) {
	programs = &resource[records.Program, records.ProgramFields, records.ProgramPatch]{
		s: s, entity: enums.EntityProgram, path: "/programs", page: "programs",
		create: s.svc.CreateProgram, update: s.svc.UpdateProgram, remove: s.svc.DeleteProgram,
		get: s.svc.GetProgram, list: s.svc.ListPrograms,
		fieldsOf: records.ProgramFieldsOf, fromForm: programForm, patchForm: programPatchForm,
		label: func(p records.Program) string { return p.Label() },
	}
	regulations = &resource[records.RegulationVersion, records.RegulationFields, records.RegulationPatch]{
		s: s, entity: enums.EntityRegulation, path: "/regulations", page: "regulations",
		create: s.svc.CreateRegulation, update: s.svc.UpdateRegulation, remove: s.svc.DeleteRegulation,
		get: s.svc.GetRegulation, list: s.svc.ListRegulations,
		fieldsOf: records.RegulationFieldsOf, fromForm: regulationForm, patchForm: regulationPatchForm,
		label: func(r records.RegulationVersion) string {
			if r.Version == 0 {
				return fmt.Sprintf("#%d", r.ID)
			}
			return fmt.Sprintf("PO %d (#%d)", r.Version, r.ID)
		},
	}
	reforms = &resource[records.ReformProcedure, records.ReformFields, records.ReformPatch]{
		s: s, entity: enums.EntityReform, path: "/reforms", page: "reforms",
		create: s.svc.CreateReform, update: s.svc.UpdateReform, remove: s.svc.DeleteReform,
		get: s.svc.GetReform, list: s.svc.ListReforms,
		fieldsOf: records.ReformFieldsOf, fromForm: reformForm, patchForm: reformPatchForm,
		label: func(r records.ReformProcedure) string {
			if r.Type == "" {
				return fmt.Sprintf("#%d", r.ID)
			}
			return fmt.Sprintf("%s (#%d)", r.Type, r.ID)
		},
	}
	coordinators = &resource[records.Coordinator, records.CoordinatorFields, records.CoordinatorPatch]{
		s: s, entity: enums.EntityCoordinator, path: "/coordinators", page: "coordinators",
		create: s.svc.CreateCoordinator, update: s.svc.UpdateCoordinator, remove: s.svc.DeleteCoordinator,
		get: s.svc.GetCoordinator, list: s.svc.ListCoordinators,
		fieldsOf: records.CoordinatorFieldsOf, fromForm: coordinatorForm, patchForm: coordinatorPatchForm,
		label: func(c records.Coordinator) string { return c.LongName },
	}
	return programs, regulations, reforms, coordinators
}

// mountPages registers HTML list and form handlers
func (res *resource[T, F, P]) mountPages(b *routegroup.Bundle) {
	b.HandleFunc("GET "+res.path, res.handleList)
	b.HandleFunc("POST "+res.path, res.handleCreate)
	b.HandleFunc("POST "+res.path+"/{id}", res.handleUpdate)
	b.HandleFunc("POST "+res.path+"/{id}/delete", res.handleDelete)
}

// mountAPI registers JSON endpoints, writes are rate limited
func (res *resource[T, F, P]) mountAPI(b *routegroup.Bundle) {
	b.HandleFunc("GET "+res.path, res.handleAPIList)
	b.HandleFunc("GET "+res.path+"/{id}", res.handleAPIGet)
	writes := b.With(tollbooth.HTTPMiddleware(res.s.writeLimiter))
	writes.HandleFunc("POST "+res.path, res.handleAPICreate)
	writes.HandleFunc("PATCH "+res.path+"/{id}", res.handleAPIUpdate)
	writes.HandleFunc("DELETE "+res.path+"/{id}", res.handleAPIDelete)
}

// pathID extracts positive record id from the {id} path segment
func pathID(r *http.Request) (int64, error) {
	raw := r.PathValue("id")
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("%w: id %q", records.ErrInvalidValue, raw)
	}
	return id, nil
}
