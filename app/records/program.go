package records

import (
	"context"
	"strings"

	"github.com/Stromnimick/HQEinOne/app/enums"
)

// ProgramPatch lists program fields to change, nil fields keep their values
type ProgramPatch struct {
	DegreeLong  *string `json:"l_abschluss,omitempty"`
	DegreeShort *string `json:"k_abschluss,omitempty"`
	LongName    *string `json:"l_name,omitempty"`
	ShortName   *string `json:"k_name,omitempty"`
	Faculty     *string `json:"fak,omitempty"`
	Institute   *string `json:"inst,omitempty"`
	Abint       *string `json:"abint,omitempty"`
	Stg         *Number `json:"stg,omitempty"`
}

// ProgramFieldsOf returns input fields matching the stored program
func ProgramFieldsOf(p Program) ProgramFields {
	return ProgramFields{
		DegreeLong:  p.DegreeLong.String(),
		DegreeShort: p.DegreeShort.String(),
		LongName:    p.LongName,
		ShortName:   p.ShortName,
		Faculty:     p.Faculty.String(),
		Institute:   p.Institute.String(),
		Abint:       p.Abint,
		Stg:         NumberOf(p.Stg),
	}
}

// apply sets non-nil patch values on f
func (p ProgramPatch) apply(f *ProgramFields) {
	set(&f.DegreeLong, p.DegreeLong)
	set(&f.DegreeShort, p.DegreeShort)
	set(&f.LongName, p.LongName)
	set(&f.ShortName, p.ShortName)
	set(&f.Faculty, p.Faculty)
	set(&f.Institute, p.Institute)
	set(&f.Abint, p.Abint)
	set(&f.Stg, p.Stg)
}

// program validates fields and converts them to a record
func (s *Service) program(f ProgramFields) (Program, error) {
	if err := s.check(f); err != nil {
		return Program{}, err
	}

	res := Program{
		LongName:  strings.TrimSpace(f.LongName),
		ShortName: strings.TrimSpace(f.ShortName),
		Abint:     strings.TrimSpace(f.Abint),
	}
	var err error
	if res.DegreeLong, err = parseEnum(enums.ParseDegreeLong, f.DegreeLong); err != nil {
		return Program{}, err
	}
	if res.DegreeShort, err = parseEnum(enums.ParseDegreeShort, f.DegreeShort); err != nil {
		return Program{}, err
	}
	if res.Faculty, err = parseEnum(enums.ParseFaculty, f.Faculty); err != nil {
		return Program{}, err
	}
	if res.Institute, err = parseEnum(enums.ParseInstitute, f.Institute); err != nil {
		return Program{}, err
	}
	stg, err := parseNumber("stg", f.Stg)
	if err != nil {
		return Program{}, err
	}
	res.Stg = int(stg)
	return res, nil
}

// CreateProgram validates and stores a new program, returns it with the assigned id
func (s *Service) CreateProgram(ctx context.Context, f ProgramFields) (Program, error) {
	p, err := s.program(f)
	if err != nil {
		return Program{}, err
	}
	return create(ctx, s, p)
}

// UpdateProgram changes the patched fields of an existing program
func (s *Service) UpdateProgram(ctx context.Context, id int64, patch ProgramPatch) (Program, error) {
	current, err := s.GetProgram(ctx, id)
	if err != nil {
		return Program{}, err
	}
	f := ProgramFieldsOf(current)
	patch.apply(&f)
	p, err := s.program(f)
	if err != nil {
		return Program{}, err
	}
	p.ID = id
	return replace(ctx, s, p)
}

// DeleteProgram removes a program. Programs with regulation versions or reform procedures are
// rejected or deleted together with them, depending on the delete policy
func (s *Service) DeleteProgram(ctx context.Context, id int64) error {
	return s.remove(ctx, enums.EntityProgram, id)
}

// GetProgram returns a program by id
func (s *Service) GetProgram(ctx context.Context, id int64) (Program, error) {
	return get[Program](ctx, s, enums.EntityProgram, id)
}

// ListPrograms returns all programs ordered by id
func (s *Service) ListPrograms(ctx context.Context) ([]Program, error) {
	return list[Program](ctx, s, enums.EntityProgram)
}

// set assigns *v to dst if v is not nil
func set[T any](dst *T, v *T) {
	if v != nil {
		*dst = *v
	}
}
