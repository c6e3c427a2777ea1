package records

import (
	"context"

	"github.com/Stromnimick/HQEinOne/app/enums"
)

// RegulationPatch lists regulation version fields to change, nil fields keep their values
type RegulationPatch struct {
	ProgramID        *Number `json:"studiengang_id,omitempty"`
	StandardDuration *Number `json:"rsz,omitempty"`
	Version          *Number `json:"po_version,omitempty"`
	ValidFrom        *Number `json:"po_start,omitempty"`
	ValidUntil       *Number `json:"po_ende,omitempty"`
}

// RegulationFieldsOf returns input fields matching the stored regulation version
func RegulationFieldsOf(r RegulationVersion) RegulationFields {
	return RegulationFields{
		ProgramID:        NumberOf(r.ProgramID),
		StandardDuration: NumberOf(r.StandardDuration),
		Version:          NumberOf(r.Version),
		ValidFrom:        NumberOf(r.ValidFrom),
		ValidUntil:       NumberOf(r.ValidUntil),
	}
}

func (p RegulationPatch) apply(f *RegulationFields) {
	set(&f.ProgramID, p.ProgramID)
	set(&f.StandardDuration, p.StandardDuration)
	set(&f.Version, p.Version)
	set(&f.ValidFrom, p.ValidFrom)
	set(&f.ValidUntil, p.ValidUntil)
}

// regulation validates fields, checks the program reference and converts fields to a record
func (s *Service) regulation(ctx context.Context, f RegulationFields) (RegulationVersion, error) {
	if err := s.check(f); err != nil {
		return RegulationVersion{}, err
	}

	programID, err := parseID("studiengang_id", f.ProgramID)
	if err != nil {
		return RegulationVersion{}, err
	}
	res := RegulationVersion{ProgramID: programID}
	for _, v := range []struct {
		name string
		in   Number
		out  *int
	}{
		{"rsz", f.StandardDuration, &res.StandardDuration},
		{"po_version", f.Version, &res.Version},
		{"po_start", f.ValidFrom, &res.ValidFrom},
		{"po_ende", f.ValidUntil, &res.ValidUntil},
	} {
		n, err := parseNumber(v.name, v.in)
		if err != nil {
			return RegulationVersion{}, err
		}
		*v.out = int(n)
	}

	if err := s.checkRef(ctx, enums.EntityProgram, programID); err != nil {
		return RegulationVersion{}, err
	}
	return res, nil
}

// CreateRegulation validates and stores a new regulation version of an existing program
func (s *Service) CreateRegulation(ctx context.Context, f RegulationFields) (RegulationVersion, error) {
	r, err := s.regulation(ctx, f)
	if err != nil {
		return RegulationVersion{}, err
	}
	return create(ctx, s, r)
}

// UpdateRegulation changes the patched fields of an existing regulation version
func (s *Service) UpdateRegulation(ctx context.Context, id int64, patch RegulationPatch) (RegulationVersion, error) {
	current, err := s.GetRegulation(ctx, id)
	if err != nil {
		return RegulationVersion{}, err
	}
	f := RegulationFieldsOf(current)
	patch.apply(&f)
	r, err := s.regulation(ctx, f)
	if err != nil {
		return RegulationVersion{}, err
	}
	r.ID = id
	return replace(ctx, s, r)
}

// DeleteRegulation removes a regulation version
func (s *Service) DeleteRegulation(ctx context.Context, id int64) error {
	return s.remove(ctx, enums.EntityRegulation, id)
}

// GetRegulation returns a regulation version by id
func (s *Service) GetRegulation(ctx context.Context, id int64) (RegulationVersion, error) {
	return get[RegulationVersion](ctx, s, enums.EntityRegulation, id)
}

// ListRegulations returns all regulation versions ordered by id
func (s *Service) ListRegulations(ctx context.Context) ([]RegulationVersion, error) {
	return list[RegulationVersion](ctx, s, enums.EntityRegulation)
}

// ProgramRegulations returns regulation versions of a program
func (s *Service) ProgramRegulations(ctx context.Context, programID int64) ([]RegulationVersion, error) {
	return children[RegulationVersion](ctx, s, enums.EntityProgram, programID, enums.EntityRegulation)
}
