// Package records implements create, read, update and delete operations for program records.
// It checks presence of required fields, parses enumerations and verifies that referenced
// programs and coordinators exist before anything is written to the store.
package records

import (
	"context"
	"errors"
	"fmt"

	"github.com/go-playground/validator/v10"
	log "github.com/go-pkgz/lgr"

	"github.com/Stromnimick/HQEinOne/app/enums"
	"github.com/Stromnimick/HQEinOne/app/persistence"
)

var (
	// ErrNotFound is returned when the requested record doesn't exist
	ErrNotFound = persistence.ErrNotFound
	// ErrUnavailable is returned when the store can't be reached or a transaction failed
	ErrUnavailable = persistence.ErrUnavailable
	// ErrMissingField is returned when a required field is empty
	ErrMissingField = errors.New("missing required field")
	// ErrInvalidValue is returned for values that can't be parsed, like unknown enum labels or bad dates
	ErrInvalidValue = persistence.ErrInvalidValue
	// ErrInvalidReference is returned when a referenced program or coordinator doesn't exist
	ErrInvalidReference = errors.New("invalid reference")
	// ErrHasDependents is returned when a record can't be deleted because other records point to it
	ErrHasDependents = errors.New("record has dependents")
)

// record types returned by the service
type (
	Program           = persistence.Program
	RegulationVersion = persistence.RegulationVersion
	ReformProcedure   = persistence.ReformProcedure
	Coordinator       = persistence.Coordinator
	Milestone         = persistence.Milestone
)

// Store defines persistence operations used by the service, implemented by persistence.Store
type Store interface {
	Insert(ctx context.Context, rec persistence.Record) (int64, error)
	Update(ctx context.Context, rec persistence.Record) error
	Delete(ctx context.Context, entity enums.Entity, id int64) error
	DeleteCascade(ctx context.Context, entity enums.Entity, id int64) error
	FindByID(ctx context.Context, entity enums.Entity, id int64) (persistence.Record, error)
	ListAll(ctx context.Context, entity enums.Entity) ([]persistence.Record, error)
	ListByParent(ctx context.Context, parent enums.Entity, parentID int64, child enums.Entity) ([]persistence.Record, error)
	Dependents(ctx context.Context, entity enums.Entity, id int64) (persistence.Dependents, error)
}

// Options defines service parameters
type Options struct {
	DeletePolicy enums.DeletePolicy // what to do with dependents of deleted programs and coordinators, reject by default
}

// Service provides per-entity record operations on top of the store
type Service struct {
	store    Store
	policy   enums.DeletePolicy
	validate *validator.Validate
}

// New makes a service for the given store
func New(store Store, opts Options) *Service {
	policy := opts.DeletePolicy
	if policy == "" {
		policy = enums.DeleteReject
	}
	return &Service{store: store, policy: policy, validate: newValidator()}
}

// DeletePolicy returns the active delete policy
func (s *Service) DeletePolicy() enums.DeletePolicy { return s.policy }

// Dependents returns number of records pointing to the given one, by entity
func (s *Service) Dependents(ctx context.Context, entity enums.Entity, id int64) (persistence.Dependents, error) {
	if _, err := s.store.FindByID(ctx, entity, id); err != nil {
		return nil, err
	}
	return s.store.Dependents(ctx, entity, id)
}

// create stores a new record and reads it back
func create[T persistence.Record](ctx context.Context, s *Service, rec T) (T, error) {
	var zero T
	id, err := s.store.Insert(ctx, rec)
	if err != nil {
		if errors.Is(err, persistence.ErrReference) {
			return zero, fmt.Errorf("%w: %w", ErrInvalidReference, err)
		}
		return zero, fmt.Errorf("create %s: %w", rec.Entity(), err)
	}
	res, err := get[T](ctx, s, rec.Entity(), id)
	if err != nil {
		return zero, err
	}
	log.Printf("[INFO] created %s %d", rec.Entity(), id)
	return res, nil
}

// replace stores all editable fields of an existing record and reads it back
func replace[T persistence.Record](ctx context.Context, s *Service, rec T) (T, error) {
	var zero T
	if err := s.store.Update(ctx, rec); err != nil {
		if errors.Is(err, persistence.ErrReference) {
			return zero, fmt.Errorf("%w: %w", ErrInvalidReference, err)
		}
		return zero, fmt.Errorf("update %s: %w", rec.Entity(), err)
	}
	res, err := get[T](ctx, s, rec.Entity(), rec.RecordID())
	if err != nil {
		return zero, err
	}
	log.Printf("[INFO] updated %s %d", rec.Entity(), rec.RecordID())
	return res, nil
}

func get[T persistence.Record](ctx context.Context, s *Service, entity enums.Entity, id int64) (T, error) {
	var zero T
	rec, err := s.store.FindByID(ctx, entity, id)
	if err != nil {
		return zero, fmt.Errorf("get %s: %w", entity, err)
	}
	res, ok := rec.(T)
	if !ok {
		return zero, fmt.Errorf("get %s: unexpected record type %T", entity, rec)
	}
	return res, nil
}

func list[T persistence.Record](ctx context.Context, s *Service, entity enums.Entity) ([]T, error) {
	recs, err := s.store.ListAll(ctx, entity)
	if err != nil {
		return nil, fmt.Errorf("list %s: %w", entity, err)
	}
	return convert[T](entity, recs)
}

func children[T persistence.Record](ctx context.Context, s *Service, parent enums.Entity, id int64, child enums.Entity) ([]T, error) {
	if _, err := s.store.FindByID(ctx, parent, id); err != nil {
		return nil, fmt.Errorf("get %s: %w", parent, err)
	}
	recs, err := s.store.ListByParent(ctx, parent, id, child)
	if err != nil {
		return nil, fmt.Errorf("list %s of %s %d: %w", child, parent, id, err)
	}
	return convert[T](child, recs)
}

func convert[T persistence.Record](entity enums.Entity, recs []persistence.Record) ([]T, error) {
	res := make([]T, 0, len(recs))
	for _, rec := range recs {
		r, ok := rec.(T)
		if !ok {
			return nil, fmt.Errorf("list %s: unexpected record type %T", entity, rec)
		}
		res = append(res, r)
	}
	return res, nil
}

// remove deletes a record following the delete policy for records with dependents
func (s *Service) remove(ctx context.Context, entity enums.Entity, id int64) error {
	if _, err := s.store.FindByID(ctx, entity, id); err != nil {
		return fmt.Errorf("delete %s: %w", entity, err)
	}

	deps, err := s.store.Dependents(ctx, entity, id)
	if err != nil {
		return fmt.Errorf("delete %s: %w", entity, err)
	}
	if deps.Total() > 0 {
		if s.policy != enums.DeleteCascade {
			return fmt.Errorf("delete %s %d: %w: %s", entity, id, ErrHasDependents, deps)
		}
		if err := s.store.DeleteCascade(ctx, entity, id); err != nil {
			return fmt.Errorf("delete %s: %w", entity, err)
		}
		log.Printf("[INFO] deleted %s %d with %s", entity, id, deps)
		return nil
	}

	if err := s.store.Delete(ctx, entity, id); err != nil {
		// a dependent added after the count above
		if errors.Is(err, persistence.ErrReference) {
			return fmt.Errorf("delete %s %d: %w: %w", entity, id, ErrHasDependents, err)
		}
		return fmt.Errorf("delete %s: %w", entity, err)
	}
	log.Printf("[INFO] deleted %s %d", entity, id)
	return nil
}

// checkRef verifies the referenced record exists
func (s *Service) checkRef(ctx context.Context, entity enums.Entity, id int64) error {
	if _, err := s.store.FindByID(ctx, entity, id); err != nil {
		if errors.Is(err, persistence.ErrNotFound) {
			return fmt.Errorf("%w: %s %d doesn't exist", ErrInvalidReference, entity.Title(), id)
		}
		return err
	}
	return nil
}
