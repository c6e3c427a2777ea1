package persistence

import (
	"database/sql/driver"
	"fmt"
	"time"

	"github.com/Stromnimick/HQEinOne/app/enums"
)

// limits of milestone sequences on reform procedures
const (
	MaxReadings    = 4
	MaxResolutions = 2
)

// DateLayout is the stored and accepted format of calendar dates
const DateLayout = "2006-01-02"

// Record is a row of one of the stored tables
type Record interface {
	Entity() enums.Entity
	RecordID() int64
	columns() map[string]any
}

// Program is an academic degree program
type Program struct {
	ID          int64             `db:"id" json:"id"`
	DegreeLong  enums.DegreeLong  `db:"l_abschluss" json:"l_abschluss,omitempty"`
	DegreeShort enums.DegreeShort `db:"k_abschluss" json:"k_abschluss,omitempty"`
	LongName    string            `db:"l_name" json:"l_name"`
	ShortName   string            `db:"k_name" json:"k_name"`
	Faculty     enums.Faculty     `db:"fak" json:"fak,omitempty"`
	Institute   enums.Institute   `db:"inst" json:"inst,omitempty"`
	Abint       string            `db:"abint" json:"abint,omitempty"` // abint POS number
	Stg         int               `db:"stg" json:"stg,omitempty"`     // stg POS number
}

// Entity returns enums.EntityProgram
func (p Program) Entity() enums.Entity { return enums.EntityProgram }

// RecordID returns the surrogate id
func (p Program) RecordID() int64 { return p.ID }

// Label is the display name used in select lists, like "Informatik (B.Sc.)"
func (p Program) Label() string {
	if p.DegreeShort == "" {
		return p.LongName
	}
	return fmt.Sprintf("%s (%s)", p.LongName, p.DegreeShort)
}

func (p *Program) record() Record { return *p }

func (p Program) columns() map[string]any {
	return map[string]any{
		"l_abschluss": p.DegreeLong,
		"k_abschluss": p.DegreeShort,
		"l_name":      p.LongName,
		"k_name":      p.ShortName,
		"fak":         p.Faculty,
		"inst":        p.Institute,
		"abint":       p.Abint,
		"stg":         p.Stg,
	}
}

// RegulationVersion is a dated version of the examination regulations of a program
type RegulationVersion struct {
	ID               int64 `db:"id" json:"id"`
	ProgramID        int64 `db:"studiengang_id" json:"studiengang_id"`
	StandardDuration int   `db:"rsz" json:"rsz,omitempty"`            // semesters
	Version          int   `db:"po_version" json:"po_version,omitempty"` // year
	ValidFrom        int   `db:"po_start" json:"po_start,omitempty"`   // term code, like 20212
	ValidUntil       int   `db:"po_ende" json:"po_ende,omitempty"`     // term code
}

// Entity returns enums.EntityRegulation
func (r RegulationVersion) Entity() enums.Entity { return enums.EntityRegulation }

// RecordID returns the surrogate id
func (r RegulationVersion) RecordID() int64 { return r.ID }

func (r *RegulationVersion) record() Record { return *r }

func (r RegulationVersion) columns() map[string]any {
	return map[string]any{
		"studiengang_id": r.ProgramID,
		"rsz":            r.StandardDuration,
		"po_version":     r.Version,
		"po_start":       r.ValidFrom,
		"po_ende":        r.ValidUntil,
	}
}

// Milestone is an optional dated step of a reform procedure with its minute-excerpt label
type Milestone struct {
	Date  time.Time `json:"date,omitzero"`
	Label string    `json:"label,omitempty"`
}

// IsZero reports whether neither date nor label is set
func (m Milestone) IsZero() bool { return m.Date.IsZero() && m.Label == "" }

// ReformProcedure is the approval workflow for establishing, closing or amending a program
type ReformProcedure struct {
	ID              int64                `json:"id"`
	ProgramID       int64                `json:"studiengang_id"`
	CoordinatorID   int64                `json:"hqe_id"`
	ApplicationDate time.Time            `json:"antrag,omitzero"`
	TargetCycle     string               `json:"zyklus,omitempty"` // like "WS 2026/27"
	Type            enums.ProcedureType  `json:"art,omitempty"`
	Track           enums.ProcedureTrack `json:"verfahren,omitempty"`
	SecondaryTrack  string               `json:"kon_verfahren,omitempty"`
	Readings        []Milestone          `json:"readings,omitempty"`    // committee readings, up to MaxReadings
	Resolutions     []Milestone          `json:"resolutions,omitempty"` // board resolutions, up to MaxResolutions
}

// Entity returns enums.EntityReform
func (r ReformProcedure) Entity() enums.Entity { return enums.EntityReform }

// RecordID returns the surrogate id
func (r ReformProcedure) RecordID() int64 { return r.ID }

func (r ReformProcedure) columns() map[string]any {
	res := map[string]any{
		"studiengang_id": r.ProgramID,
		"hqe_id":         r.CoordinatorID,
		"antrag":         nullDate{r.ApplicationDate},
		"zyklus":         r.TargetCycle,
		"art":            r.Type,
		"verfahren":      r.Track,
		"kon_verfahren":  r.SecondaryTrack,
	}
	putMilestones(res, readingColumns[:], r.Readings)
	putMilestones(res, resolutionColumns[:], r.Resolutions)
	return res
}

// putMilestones sets date and label columns for every position, empty for missing ones
func putMilestones(dst map[string]any, cols [][2]string, ms []Milestone) {
	for i, pair := range cols {
		var m Milestone
		if i < len(ms) {
			m = ms[i]
		}
		dst[pair[0]] = nullDate{m.Date}
		dst[pair[1]] = m.Label
	}
}

// reformRow is the flat stored form of ReformProcedure
type reformRow struct {
	ID            int64                `db:"id"`
	ProgramID     int64                `db:"studiengang_id"`
	CoordinatorID int64                `db:"hqe_id"`
	Antrag        nullDate             `db:"antrag"`
	Zyklus        string               `db:"zyklus"`
	Art           enums.ProcedureType  `db:"art"`
	Verfahren     enums.ProcedureTrack `db:"verfahren"`
	KonVerfahren  string               `db:"kon_verfahren"`
	SkEl          nullDate             `db:"sk_el"`
	SkElTxt       string               `db:"sk_el_txt"`
	SkZl          nullDate             `db:"sk_zl"`
	SkZlTxt       string               `db:"sk_zl_txt"`
	SkDl          nullDate             `db:"sk_dl"`
	SkDlTxt       string               `db:"sk_dl_txt"`
	SkVl          nullDate             `db:"sk_vl"`
	SkVlTxt       string               `db:"sk_vl_txt"`
	AsEl          nullDate             `db:"as_el"`
	AsElTxt       string               `db:"as_el_txt"`
	AsZl          nullDate             `db:"as_zl"`
	AsZlTxt       string               `db:"as_zl_txt"`
}

func (r *reformRow) record() Record {
	return ReformProcedure{
		ID:              r.ID,
		ProgramID:       r.ProgramID,
		CoordinatorID:   r.CoordinatorID,
		ApplicationDate: r.Antrag.Time,
		TargetCycle:     r.Zyklus,
		Type:            r.Art,
		Track:           r.Verfahren,
		SecondaryTrack:  r.KonVerfahren,
		Readings: TrimMilestones([]Milestone{
			{Date: r.SkEl.Time, Label: r.SkElTxt},
			{Date: r.SkZl.Time, Label: r.SkZlTxt},
			{Date: r.SkDl.Time, Label: r.SkDlTxt},
			{Date: r.SkVl.Time, Label: r.SkVlTxt},
		}),
		Resolutions: TrimMilestones([]Milestone{
			{Date: r.AsEl.Time, Label: r.AsElTxt},
			{Date: r.AsZl.Time, Label: r.AsZlTxt},
		}),
	}
}

// TrimMilestones drops trailing empty milestones, keeps gaps in the middle.
// Returns nil if nothing is set
func TrimMilestones(ms []Milestone) []Milestone {
	n := len(ms)
	for n > 0 && ms[n-1].IsZero() {
		n--
	}
	if n == 0 {
		return nil
	}
	return ms[:n]
}

// Coordinator is a staff member responsible for reform procedures
type Coordinator struct {
	ID        int64  `db:"id" json:"id"`
	LongName  string `db:"l_name" json:"l_name"`
	ShortName string `db:"k_name" json:"k_name,omitempty"`
	Login     string `db:"itmz" json:"itmz,omitempty"` // institutional login handle
	Phone     int    `db:"tel" json:"tel,omitempty"`   // phone extension
	Email     string `db:"email" json:"email,omitempty"`
}

// Entity returns enums.EntityCoordinator
func (c Coordinator) Entity() enums.Entity { return enums.EntityCoordinator }

// RecordID returns the surrogate id
func (c Coordinator) RecordID() int64 { return c.ID }

func (c *Coordinator) record() Record { return *c }

func (c Coordinator) columns() map[string]any {
	return map[string]any{
		"l_name": c.LongName,
		"k_name": c.ShortName,
		"itmz":   c.Login,
		"tel":    c.Phone,
		"email":  c.Email,
	}
}

// nullDate stores a calendar date, zero time as NULL
type nullDate struct {
	time.Time
}

// Scan implements sql.Scanner
func (d *nullDate) Scan(src any) error {
	switch v := src.(type) {
	case nil:
		d.Time = time.Time{}
		return nil
	case time.Time:
		d.Time = time.Date(v.Year(), v.Month(), v.Day(), 0, 0, 0, 0, time.UTC)
		return nil
	case string:
		return d.parse(v)
	case []byte:
		return d.parse(string(v))
	default:
		return fmt.Errorf("can't scan date from %T", src)
	}
}

func (d *nullDate) parse(s string) error {
	if s == "" {
		d.Time = time.Time{}
		return nil
	}
	if len(s) > len(DateLayout) {
		s = s[:len(DateLayout)] // stored with time part
	}
	t, err := time.Parse(DateLayout, s)
	if err != nil {
		return fmt.Errorf("can't parse date %q: %w", s, err)
	}
	d.Time = t
	return nil
}

// Value implements driver.Valuer
func (d nullDate) Value() (driver.Value, error) {
	if d.IsZero() {
		return nil, nil
	}
	return d.Format(DateLayout), nil
}
