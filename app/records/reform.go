package records

import (
	"context"
	"strings"

	"github.com/Stromnimick/HQEinOne/app/enums"
)

// ReformPatch lists reform procedure fields to change, nil fields keep their values.
// Readings and resolutions are replaced as a whole
type ReformPatch struct {
	ProgramID       *Number            `json:"studiengang_id,omitempty"`
	CoordinatorID   *Number            `json:"hqe_id,omitempty"`
	ApplicationDate *string            `json:"antrag,omitempty"`
	TargetCycle     *string            `json:"zyklus,omitempty"`
	Type            *string            `json:"art,omitempty"`
	Track           *string            `json:"verfahren,omitempty"`
	SecondaryTrack  *string            `json:"kon_verfahren,omitempty"`
	Readings        *[]MilestoneFields `json:"readings,omitempty"`
	Resolutions     *[]MilestoneFields `json:"resolutions,omitempty"`
}

// ReformFieldsOf returns input fields matching the stored reform procedure
func ReformFieldsOf(r ReformProcedure) ReformFields {
	return ReformFields{
		ProgramID:       NumberOf(r.ProgramID),
		CoordinatorID:   NumberOf(r.CoordinatorID),
		ApplicationDate: FormatDate(r.ApplicationDate),
		TargetCycle:     r.TargetCycle,
		Type:            r.Type.String(),
		Track:           r.Track.String(),
		SecondaryTrack:  r.SecondaryTrack,
		Readings:        milestoneFields(r.Readings),
		Resolutions:     milestoneFields(r.Resolutions),
	}
}

func (p ReformPatch) apply(f *ReformFields) {
	set(&f.ProgramID, p.ProgramID)
	set(&f.CoordinatorID, p.CoordinatorID)
	set(&f.ApplicationDate, p.ApplicationDate)
	set(&f.TargetCycle, p.TargetCycle)
	set(&f.Type, p.Type)
	set(&f.Track, p.Track)
	set(&f.SecondaryTrack, p.SecondaryTrack)
	set(&f.Readings, p.Readings)
	set(&f.Resolutions, p.Resolutions)
}

// reform validates fields, checks program and coordinator references and converts fields to a record
func (s *Service) reform(ctx context.Context, f ReformFields) (ReformProcedure, error) {
	if err := s.check(f); err != nil {
		return ReformProcedure{}, err
	}

	res := ReformProcedure{
		TargetCycle:    strings.TrimSpace(f.TargetCycle),
		SecondaryTrack: strings.TrimSpace(f.SecondaryTrack),
	}
	var err error
	if res.ProgramID, err = parseID("studiengang_id", f.ProgramID); err != nil {
		return ReformProcedure{}, err
	}
	if res.CoordinatorID, err = parseID("hqe_id", f.CoordinatorID); err != nil {
		return ReformProcedure{}, err
	}
	if res.ApplicationDate, err = ParseDate(f.ApplicationDate); err != nil {
		return ReformProcedure{}, err
	}
	if res.Type, err = parseEnum(enums.ParseProcedureType, f.Type); err != nil {
		return ReformProcedure{}, err
	}
	if res.Track, err = parseEnum(enums.ParseProcedureTrack, f.Track); err != nil {
		return ReformProcedure{}, err
	}
	if res.Readings, err = parseMilestones("reading", f.Readings); err != nil {
		return ReformProcedure{}, err
	}
	if res.Resolutions, err = parseMilestones("resolution", f.Resolutions); err != nil {
		return ReformProcedure{}, err
	}

	if err := s.checkRef(ctx, enums.EntityProgram, res.ProgramID); err != nil {
		return ReformProcedure{}, err
	}
	if err := s.checkRef(ctx, enums.EntityCoordinator, res.CoordinatorID); err != nil {
		return ReformProcedure{}, err
	}
	return res, nil
}

// CreateReform validates and stores a new reform procedure for an existing program and coordinator
func (s *Service) CreateReform(ctx context.Context, f ReformFields) (ReformProcedure, error) {
	r, err := s.reform(ctx, f)
	if err != nil {
		return ReformProcedure{}, err
	}
	return create(ctx, s, r)
}

// UpdateReform changes the patched fields of an existing reform procedure
func (s *Service) UpdateReform(ctx context.Context, id int64, patch ReformPatch) (ReformProcedure, error) {
	current, err := s.GetReform(ctx, id)
	if err != nil {
		return ReformProcedure{}, err
	}
	f := ReformFieldsOf(current)
	patch.apply(&f)
	r, err := s.reform(ctx, f)
	if err != nil {
		return ReformProcedure{}, err
	}
	r.ID = id
	return replace(ctx, s, r)
}

// DeleteReform removes a reform procedure
func (s *Service) DeleteReform(ctx context.Context, id int64) error {
	return s.remove(ctx, enums.EntityReform, id)
}

// GetReform returns a reform procedure by id
func (s *Service) GetReform(ctx context.Context, id int64) (ReformProcedure, error) {
	return get[ReformProcedure](ctx, s, enums.EntityReform, id)
}

// ListReforms returns all reform procedures ordered by id
func (s *Service) ListReforms(ctx context.Context) ([]ReformProcedure, error) {
	return list[ReformProcedure](ctx, s, enums.EntityReform)
}

// ProgramReforms returns reform procedures of a program
func (s *Service) ProgramReforms(ctx context.Context, programID int64) ([]ReformProcedure, error) {
	return children[ReformProcedure](ctx, s, enums.EntityProgram, programID, enums.EntityReform)
}

// CoordinatorReforms returns reform procedures handled by a coordinator
func (s *Service) CoordinatorReforms(ctx context.Context, coordinatorID int64) ([]ReformProcedure, error) {
	return children[ReformProcedure](ctx, s, enums.EntityCoordinator, coordinatorID, enums.EntityReform)
}
