package records

import (
	"encoding/json"
	"errors"
	"fmt"
	"reflect"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/go-playground/validator/v10/non-standard/validators"

	"github.com/Stromnimick/HQEinOne/app/persistence"
)

// dateLayouts lists accepted input formats of dates, ISO first
var dateLayouts = []string{persistence.DateLayout, "02.01.2006"}

// Number is a numeric input field. It holds the raw text and accepts both JSON numbers and strings,
// empty means unset
type Number string

// UnmarshalJSON implements json.Unmarshaler
func (n *Number) UnmarshalJSON(b []byte) error {
	if string(b) == "null" {
		*n = ""
		return nil
	}
	if len(b) > 0 && b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		*n = Number(s)
		return nil
	}
	*n = Number(b)
	return nil
}

// NumberOf makes Number from int, zero is unset
func NumberOf[T int | int64](v T) Number {
	if v == 0 {
		return ""
	}
	return Number(strconv.FormatInt(int64(v), 10))
}

// MilestoneFields is the input form of a dated reform step
type MilestoneFields struct {
	Date  string `json:"date,omitempty" jsonschema:"format=date"`
	Label string `json:"label,omitempty"`
}

// ProgramFields is the input for creating a program
type ProgramFields struct {
	DegreeLong  string `json:"l_abschluss,omitempty"`
	DegreeShort string `json:"k_abschluss,omitempty"`
	LongName    string `json:"l_name" validate:"required,notblank"`
	ShortName   string `json:"k_name" validate:"required,notblank"`
	Faculty     string `json:"fak,omitempty"`
	Institute   string `json:"inst,omitempty"`
	Abint       string `json:"abint,omitempty"`
	Stg         Number `json:"stg,omitempty"`
}

// RegulationFields is the input for creating a regulation version
type RegulationFields struct {
	ProgramID        Number `json:"studiengang_id" validate:"required"`
	StandardDuration Number `json:"rsz,omitempty"`
	Version          Number `json:"po_version,omitempty"`
	ValidFrom        Number `json:"po_start,omitempty"`
	ValidUntil       Number `json:"po_ende,omitempty"`
}

// ReformFields is the input for creating a reform procedure
type ReformFields struct {
	ProgramID       Number            `json:"studiengang_id" validate:"required"`
	CoordinatorID   Number            `json:"hqe_id" validate:"required"`
	ApplicationDate string            `json:"antrag,omitempty" jsonschema:"format=date"`
	TargetCycle     string            `json:"zyklus,omitempty"`
	Type            string            `json:"art,omitempty"`
	Track           string            `json:"verfahren,omitempty"`
	SecondaryTrack  string            `json:"kon_verfahren,omitempty"`
	Readings        []MilestoneFields `json:"readings,omitempty" validate:"max=4"`
	Resolutions     []MilestoneFields `json:"resolutions,omitempty" validate:"max=2"`
}

// CoordinatorFields is the input for creating a coordinator
type CoordinatorFields struct {
	LongName  string `json:"l_name" validate:"required,notblank"`
	ShortName string `json:"k_name,omitempty"`
	Login     string `json:"itmz,omitempty"`
	Phone     Number `json:"tel,omitempty"`
	Email     string `json:"email,omitempty"`
}

// newValidator makes validator with json names in errors and "notblank" rejecting whitespace-only strings
func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	if err := v.RegisterValidation("notblank", validators.NotBlank); err != nil {
		// only fails for empty tag or nil func
		panic(fmt.Sprintf("can't register notblank validation: %v", err))
	}
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name, _, _ := strings.Cut(fld.Tag.Get("json"), ",")
		if name == "-" || name == "" {
			return fld.Name
		}
		return name
	})
	return v
}

// check validates struct tags of input fields, empty required fields reported as ErrMissingField
func (s *Service) check(fields any) error {
	err := s.validate.Struct(fields)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return fmt.Errorf("%w: %w", ErrInvalidValue, err)
	}

	var missing, invalid []string
	for _, fe := range verrs {
		switch fe.Tag() {
		case "required", "notblank":
			missing = append(missing, fe.Field())
		default:
			invalid = append(invalid, fmt.Sprintf("%s (%s=%s)", fe.Field(), fe.Tag(), fe.Param()))
		}
	}
	if len(missing) > 0 {
		return fmt.Errorf("%w: %s", ErrMissingField, strings.Join(missing, ", "))
	}
	return fmt.Errorf("%w: %s", ErrInvalidValue, strings.Join(invalid, ", "))
}

// parseEnum converts enum parsing errors to ErrInvalidValue
func parseEnum[T ~string](parse func(string) (T, error), v string) (T, error) {
	res, err := parse(v)
	if err != nil {
		return res, fmt.Errorf("%w: %w", ErrInvalidValue, err)
	}
	return res, nil
}

// parseNumber parses an optional integer, empty is zero
func parseNumber(name string, n Number) (int64, error) {
	v := strings.TrimSpace(string(n))
	if v == "" {
		return 0, nil
	}
	res, err := strconv.ParseInt(v, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("%w: %s %q is not a number", ErrInvalidValue, name, v)
	}
	return res, nil
}

// parseID parses a reference to another record, must be positive
func parseID(name string, n Number) (int64, error) {
	id, err := parseNumber(name, n)
	if err != nil {
		return 0, err
	}
	if id <= 0 {
		return 0, fmt.Errorf("%w: %s %q is not a valid id", ErrInvalidValue, name, n)
	}
	return id, nil
}

// ParseDate parses a date in ISO (2006-01-02) or German (02.01.2006) form, empty is zero time
func ParseDate(v string) (time.Time, error) {
	v = strings.TrimSpace(v)
	if v == "" {
		return time.Time{}, nil
	}
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, v); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("%w: date %q, expected YYYY-MM-DD or DD.MM.YYYY", ErrInvalidValue, v)
}

// FormatDate formats a date for input fields, empty for zero time
func FormatDate(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.Format(persistence.DateLayout)
}

func parseMilestones(kind string, in []MilestoneFields) ([]Milestone, error) {
	res := make([]Milestone, 0, len(in))
	for i, mf := range in {
		d, err := ParseDate(mf.Date)
		if err != nil {
			return nil, fmt.Errorf("%s %d: %w", kind, i+1, err)
		}
		res = append(res, Milestone{Date: d, Label: strings.TrimSpace(mf.Label)})
	}
	return persistence.TrimMilestones(res), nil
}

func milestoneFields(ms []Milestone) []MilestoneFields {
	if len(ms) == 0 {
		return nil
	}
	res := make([]MilestoneFields, 0, len(ms))
	for _, m := range ms {
		res = append(res, MilestoneFields{Date: FormatDate(m.Date), Label: m.Label})
	}
	return res
}
