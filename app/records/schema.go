package records

//go:generate go run ./internal/schema ../../docs/schema

import (
	"fmt"

	"github.com/invopop/jsonschema"

	"github.com/Stromnimick/HQEinOne/app/enums"
	"github.com/Stromnimick/HQEinOne/app/persistence"
)

// JSONSchema describes Number as an integer or a string of digits
func (Number) JSONSchema() *jsonschema.Schema {
	return &jsonschema.Schema{OneOf: []*jsonschema.Schema{
		{Type: "integer"},
		{Type: "string", Pattern: `^\s*-?\d*\s*$`},
	}}
}

// JSONSchemaExtend adds allowed values of enumerated program fields
func (ProgramFields) JSONSchemaExtend(s *jsonschema.Schema) {
	setEnum(s, "l_abschluss", enums.DegreeLongValues)
	setEnum(s, "k_abschluss", enums.DegreeShortValues)
	setEnum(s, "fak", enums.FacultyValues)
	setEnum(s, "inst", enums.InstituteValues)
}

// JSONSchemaExtend adds allowed values of enumerated reform fields and milestone limits
func (ReformFields) JSONSchemaExtend(s *jsonschema.Schema) {
	setEnum(s, "art", enums.ProcedureTypeValues)
	setEnum(s, "verfahren", enums.ProcedureTrackValues)
	if prop, ok := s.Properties.Get("readings"); ok {
		prop.MaxItems = ptr(uint64(persistence.MaxReadings))
	}
	if prop, ok := s.Properties.Get("resolutions"); ok {
		prop.MaxItems = ptr(uint64(persistence.MaxResolutions))
	}
}

// Schema returns JSON schema of the create request body for the entity
func Schema(entity enums.Entity) (*jsonschema.Schema, error) {
	r := &jsonschema.Reflector{ExpandedStruct: true}
	var s *jsonschema.Schema
	switch entity {
	case enums.EntityProgram:
		s = r.Reflect(&ProgramFields{})
	case enums.EntityRegulation:
		s = r.Reflect(&RegulationFields{})
	case enums.EntityReform:
		s = r.Reflect(&ReformFields{})
	case enums.EntityCoordinator:
		s = r.Reflect(&CoordinatorFields{})
	default:
		return nil, fmt.Errorf("%w: entity %q", ErrInvalidValue, entity)
	}
	s.Title = entity.Title()
	return s, nil
}

func setEnum[T ~string](s *jsonschema.Schema, name string, values []T) {
	prop, ok := s.Properties.Get(name)
	if !ok {
		return
	}
	prop.Enum = make([]any, 0, len(values)+1)
	prop.Enum = append(prop.Enum, "")
	for _, v := range values {
		prop.Enum = append(prop.Enum, string(v))
	}
}

func ptr[T any](v T) *T { return &v }
