package enums

import "database/sql/driver"

// DegreeLong is the full name of a degree type
type DegreeLong string

// DegreeLong values
const (
	DegreeBachelor     DegreeLong = "Bachelor"
	DegreeMaster       DegreeLong = "Master"
	DegreeLehramt      DegreeLong = "Lehramt"
	DegreeStaatsexamen DegreeLong = "Staatsexamen"
)

// DegreeLongValues lists allowed long degree labels in display order
var DegreeLongValues = []DegreeLong{DegreeBachelor, DegreeMaster, DegreeLehramt, DegreeStaatsexamen}

// ParseDegreeLong converts label to DegreeLong, empty label gives unset value
func ParseDegreeLong(v string) (DegreeLong, error) {
	return parseOptional("degree", v, DegreeLongValues)
}

func (e DegreeLong) String() string { return string(e) }

// Scan implements sql.Scanner
func (e *DegreeLong) Scan(src any) error { return scan("degree", src, e, DegreeLongValues) }

// Value implements driver.Valuer
func (e DegreeLong) Value() (driver.Value, error) { return value(e) }

// DegreeShort is the abbreviated degree, like "B.Sc."
type DegreeShort string

// DegreeShort values
const (
	DegreeBSc  DegreeShort = "B.Sc."
	DegreeBA   DegreeShort = "B.A."
	DegreeBEng DegreeShort = "B.Eng."
	DegreeMSc  DegreeShort = "M.Sc."
	DegreeMA   DegreeShort = "M.A."
	DegreeMEng DegreeShort = "M.Eng."
)

// DegreeShortValues lists allowed short degree labels in display order
var DegreeShortValues = []DegreeShort{DegreeBSc, DegreeBA, DegreeBEng, DegreeMSc, DegreeMA, DegreeMEng}

// ParseDegreeShort converts label to DegreeShort, empty label gives unset value
func ParseDegreeShort(v string) (DegreeShort, error) {
	return parseOptional("short degree", v, DegreeShortValues)
}

func (e DegreeShort) String() string { return string(e) }

// Scan implements sql.Scanner
func (e *DegreeShort) Scan(src any) error { return scan("short degree", src, e, DegreeShortValues) }

// Value implements driver.Valuer
func (e DegreeShort) Value() (driver.Value, error) { return value(e) }

// Faculty is a faculty code
type Faculty string

// Faculty values
const (
	FacultyAUF Faculty = "AUF"
	FacultyIEF Faculty = "IEF"
	FacultyJUF Faculty = "JUF"
	FacultyMNF Faculty = "MNF"
	FacultyMSF Faculty = "MSF"
	FacultyPHF Faculty = "PHF"
	FacultyTHF Faculty = "THF"
	FacultyUMR Faculty = "UMR"
	FacultyWSF Faculty = "WSF"
)

// FacultyValues lists allowed faculty codes
var FacultyValues = []Faculty{FacultyAUF, FacultyIEF, FacultyJUF, FacultyMNF, FacultyMSF,
	FacultyPHF, FacultyTHF, FacultyUMR, FacultyWSF}

// ParseFaculty converts code to Faculty, empty code gives unset value
func ParseFaculty(v string) (Faculty, error) { return parseOptional("faculty", v, FacultyValues) }

func (e Faculty) String() string { return string(e) }

// Scan implements sql.Scanner
func (e *Faculty) Scan(src any) error { return scan("faculty", src, e, FacultyValues) }

// Value implements driver.Valuer
func (e Faculty) Value() (driver.Value, error) { return value(e) }

// Institute is an institute code, prefixed by its faculty
type Institute string

// Institute values
const (
	InstituteMNFMath Institute = "MNF-Math"
	InstituteWSFIBWL Institute = "WSF-IBWL"
)

// InstituteValues lists allowed institute codes
var InstituteValues = []Institute{InstituteMNFMath, InstituteWSFIBWL}

// ParseInstitute converts code to Institute, empty code gives unset value
func ParseInstitute(v string) (Institute, error) {
	return parseOptional("institute", v, InstituteValues)
}

func (e Institute) String() string { return string(e) }

// Scan implements sql.Scanner
func (e *Institute) Scan(src any) error { return scan("institute", src, e, InstituteValues) }

// Value implements driver.Valuer
func (e Institute) Value() (driver.Value, error) { return value(e) }
