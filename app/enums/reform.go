package enums

import "database/sql/driver"

// ProcedureType is the kind of a reform procedure
type ProcedureType string

// ProcedureType values
const (
	ProcedureNew       ProcedureType = "Neueinrichtung"
	ProcedureClosure   ProcedureType = "Schließung"
	ProcedureAmendment ProcedureType = "Änderung"
)

// ProcedureTypeValues lists allowed procedure types
var ProcedureTypeValues = []ProcedureType{ProcedureNew, ProcedureClosure, ProcedureAmendment}

// ParseProcedureType converts label to ProcedureType, empty label gives unset value
func ParseProcedureType(v string) (ProcedureType, error) {
	return parseOptional("procedure type", v, ProcedureTypeValues)
}

func (e ProcedureType) String() string { return string(e) }

// Scan implements sql.Scanner
func (e *ProcedureType) Scan(src any) error {
	return scan("procedure type", src, e, ProcedureTypeValues)
}

// Value implements driver.Valuer
func (e ProcedureType) Value() (driver.Value, error) { return value(e) }

// ProcedureTrack is the approval track of a reform procedure
type ProcedureTrack string

// ProcedureTrack values
const (
	TrackSimplified       ProcedureTrack = "vereinfachtes Verfahren"
	TrackRegular          ProcedureTrack = "reguläres Verfahren"
	TrackReformCommission ProcedureTrack = "Verfahren mit Reformkommission"
)

// ProcedureTrackValues lists allowed procedure tracks
var ProcedureTrackValues = []ProcedureTrack{TrackSimplified, TrackRegular, TrackReformCommission}

// ParseProcedureTrack converts label to ProcedureTrack, empty label gives unset value
func ParseProcedureTrack(v string) (ProcedureTrack, error) {
	return parseOptional("procedure track", v, ProcedureTrackValues)
}

func (e ProcedureTrack) String() string { return string(e) }

// Scan implements sql.Scanner
func (e *ProcedureTrack) Scan(src any) error {
	return scan("procedure track", src, e, ProcedureTrackValues)
}

// Value implements driver.Valuer
func (e ProcedureTrack) Value() (driver.Value, error) { return value(e) }
