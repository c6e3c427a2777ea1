package persistence

import (
	"fmt"

	"github.com/Stromnimick/HQEinOne/app/enums"
)

// column describes a stored column. Fallback is the literal used for NULL values of plain
// string and integer columns, empty for columns with their own NULL handling (enums, dates)
type column struct {
	name     string
	fallback string
}

func textCol(name string) column { return column{name: name, fallback: "''"} }
func intCol(name string) column  { return column{name: name, fallback: "0"} }
func nullCol(name string) column { return column{name: name} }

// table describes how an entity is stored
type table struct {
	entity  enums.Entity
	columns []column // editable columns, id excluded
	newRow  func() row
}

// row is a scan target producing a record
type row interface {
	record() Record
}

// relation is a foreign key from child.column to parent.id
type relation struct {
	parent enums.Entity
	child  enums.Entity
	column string
}

// milestone columns of reform procedures, position is the reading number
var (
	readingColumns    = [MaxReadings][2]string{{"sk_el", "sk_el_txt"}, {"sk_zl", "sk_zl_txt"}, {"sk_dl", "sk_dl_txt"}, {"sk_vl", "sk_vl_txt"}}
	resolutionColumns = [MaxResolutions][2]string{{"as_el", "as_el_txt"}, {"as_zl", "as_zl_txt"}}
)

var tables = map[enums.Entity]table{
	enums.EntityProgram: {
		entity: enums.EntityProgram,
		columns: []column{nullCol("l_abschluss"), nullCol("k_abschluss"), textCol("l_name"), textCol("k_name"),
			nullCol("fak"), nullCol("inst"), textCol("abint"), intCol("stg")},
		newRow: func() row { return &Program{} },
	},
	enums.EntityRegulation: {
		entity:  enums.EntityRegulation,
		columns: []column{intCol("studiengang_id"), intCol("rsz"), intCol("po_version"), intCol("po_start"), intCol("po_ende")},
		newRow:  func() row { return &RegulationVersion{} },
	},
	enums.EntityReform: {
		entity:  enums.EntityReform,
		columns: reformColumns(),
		newRow:  func() row { return &reformRow{} },
	},
	enums.EntityCoordinator: {
		entity:  enums.EntityCoordinator,
		columns: []column{textCol("l_name"), textCol("k_name"), textCol("itmz"), intCol("tel"), textCol("email")},
		newRow:  func() row { return &Coordinator{} },
	},
}

var relations = []relation{
	{parent: enums.EntityProgram, child: enums.EntityRegulation, column: "studiengang_id"},
	{parent: enums.EntityProgram, child: enums.EntityReform, column: "studiengang_id"},
	{parent: enums.EntityCoordinator, child: enums.EntityReform, column: "hqe_id"},
}

func reformColumns() []column {
	res := []column{intCol("studiengang_id"), intCol("hqe_id"), nullCol("antrag"), textCol("zyklus"),
		nullCol("art"), nullCol("verfahren"), textCol("kon_verfahren")}
	for _, pair := range readingColumns {
		res = append(res, nullCol(pair[0]), textCol(pair[1]))
	}
	for _, pair := range resolutionColumns {
		res = append(res, nullCol(pair[0]), textCol(pair[1]))
	}
	return res
}

func tableOf(e enums.Entity) (table, error) {
	t, ok := tables[e]
	if !ok {
		return table{}, fmt.Errorf("unknown entity %q", e)
	}
	return t, nil
}

func (t table) name() string { return t.entity.Table() }

func (t table) columnNames() []string {
	res := make([]string, 0, len(t.columns))
	for _, c := range t.columns {
		res = append(res, c.name)
	}
	return res
}

// selectList returns "id, col1, COALESCE(col2, '') AS col2, ..."
func (t table) selectList() string {
	res := "id"
	for _, c := range t.columns {
		if c.fallback == "" {
			res += ", " + c.name
			continue
		}
		res += fmt.Sprintf(", COALESCE(%s, %s) AS %s", c.name, c.fallback, c.name)
	}
	return res
}

// schema returns idempotent DDL statements for the dialect, parents first.
// Ids and integer columns are 64-bit on both dialects, as parsed from input
func schema(d Dialect) []string {
	idCol, intType := "id INTEGER PRIMARY KEY AUTOINCREMENT", "INTEGER"
	if d == DialectPostgres {
		idCol, intType = "id BIGSERIAL PRIMARY KEY", "BIGINT"
	}

	reform := `CREATE TABLE IF NOT EXISTS studienreform (
			` + idCol + `,
			studiengang_id ` + intType + ` NOT NULL REFERENCES studiengang(id),
			hqe_id ` + intType + ` NOT NULL REFERENCES hqe(id),
			antrag DATE,
			zyklus TEXT,
			art TEXT,
			verfahren TEXT,
			kon_verfahren TEXT`
	for _, pair := range readingColumns {
		reform += fmt.Sprintf(",\n\t\t\t%s DATE,\n\t\t\t%s TEXT", pair[0], pair[1])
	}
	for _, pair := range resolutionColumns {
		reform += fmt.Sprintf(",\n\t\t\t%s DATE,\n\t\t\t%s TEXT", pair[0], pair[1])
	}
	reform += "\n\t\t)"

	return []string{
		`CREATE TABLE IF NOT EXISTS studiengang (
			` + idCol + `,
			l_abschluss TEXT,
			k_abschluss TEXT,
			l_name TEXT NOT NULL,
			k_name TEXT NOT NULL,
			fak TEXT,
			inst TEXT,
			abint TEXT,
			stg ` + intType + `
		)`,
		`CREATE TABLE IF NOT EXISTS hqe (
			` + idCol + `,
			l_name TEXT NOT NULL,
			k_name TEXT,
			itmz TEXT,
			tel ` + intType + `,
			email TEXT
		)`,
		`CREATE TABLE IF NOT EXISTS pruefungsordnung (
			` + idCol + `,
			studiengang_id ` + intType + ` NOT NULL REFERENCES studiengang(id),
			rsz ` + intType + `,
			po_version ` + intType + `,
			po_start ` + intType + `,
			po_ende ` + intType + `
		)`,
		reform,
		`CREATE INDEX IF NOT EXISTS idx_pruefungsordnung_studiengang ON pruefungsordnung(studiengang_id)`,
		`CREATE INDEX IF NOT EXISTS idx_studienreform_studiengang ON studienreform(studiengang_id)`,
		`CREATE INDEX IF NOT EXISTS idx_studienreform_hqe ON studienreform(hqe_id)`,
	}
}
