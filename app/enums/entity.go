package enums

// Entity identifies one of the stored record types
type Entity string

// Entity values
const (
	EntityProgram     Entity = "program"
	EntityRegulation  Entity = "regulation"
	EntityReform      Entity = "reform"
	EntityCoordinator Entity = "coordinator"
)

// EntityValues lists all record types in dependency order, parents first
var EntityValues = []Entity{EntityProgram, EntityCoordinator, EntityRegulation, EntityReform}

// ParseEntity converts name to Entity, empty name is an error
func ParseEntity(v string) (Entity, error) { return parse("entity", v, EntityValues) }

func (e Entity) String() string { return string(e) }

// Table returns the table name the entity is stored in
func (e Entity) Table() string {
	switch e {
	case EntityProgram:
		return "studiengang"
	case EntityRegulation:
		return "pruefungsordnung"
	case EntityReform:
		return "studienreform"
	case EntityCoordinator:
		return "hqe"
	default:
		return ""
	}
}

// Title returns the display name of the entity
func (e Entity) Title() string {
	switch e {
	case EntityProgram:
		return "Studiengang"
	case EntityRegulation:
		return "Prüfungsordnung"
	case EntityReform:
		return "Reformverfahren"
	case EntityCoordinator:
		return "HQE"
	default:
		return string(e)
	}
}

// DeletePolicy defines what happens to dependent rows when their parent is deleted
type DeletePolicy string

// DeletePolicy values
const (
	DeleteReject  DeletePolicy = "reject"
	DeleteCascade DeletePolicy = "cascade"
)

// DeletePolicyValues lists allowed policies
var DeletePolicyValues = []DeletePolicy{DeleteReject, DeleteCascade}

// ParseDeletePolicy converts name to DeletePolicy, empty name is an error
func ParseDeletePolicy(v string) (DeletePolicy, error) {
	return parse("delete policy", v, DeletePolicyValues)
}

func (e DeletePolicy) String() string { return string(e) }

// Names returns all labels of the given enum values, used for select lists
func Names[T ~string](values []T) []string { return names(values) }
