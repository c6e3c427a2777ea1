package persistence

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/jmoiron/sqlx"

	"github.com/Stromnimick/HQEinOne/app/enums"
)

// Dependents counts rows referencing a record, by child entity
type Dependents map[enums.Entity]int

// Total returns number of all dependent rows
func (d Dependents) Total() int {
	total := 0
	for _, n := range d {
		total += n
	}
	return total
}

func (d Dependents) String() string {
	parts := []string{}
	for _, e := range enums.EntityValues {
		if n := d[e]; n > 0 {
			parts = append(parts, fmt.Sprintf("%d %s", n, e.Title()))
		}
	}
	return strings.Join(parts, ", ")
}

// Insert stores a new record and returns the assigned id. The id of rec is ignored
func (s *Store) Insert(ctx context.Context, rec Record) (int64, error) {
	t, err := tableOf(rec.Entity())
	if err != nil {
		return 0, err
	}
	op := "insert " + t.name()

	names := t.columnNames()
	query := fmt.Sprintf("INSERT INTO %s (%s) VALUES (:%s) RETURNING id",
		t.name(), strings.Join(names, ", "), strings.Join(names, ", :"))
	q, args, err := s.named(query, rec.columns())
	if err != nil {
		return 0, fmt.Errorf("%s: %w", op, err)
	}

	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return 0, s.wrap(op, err)
	}
	defer tx.Rollback() //nolint:errcheck // no-op after commit

	var id int64
	if err := tx.QueryRowxContext(ctx, q, args...).Scan(&id); err != nil {
		return 0, s.wrap(op, err)
	}
	if err := tx.Commit(); err != nil {
		return 0, s.wrap(op, err)
	}
	return id, nil
}

// Update replaces all editable columns of the stored record with rec values
func (s *Store) Update(ctx context.Context, rec Record) error {
	t, err := tableOf(rec.Entity())
	if err != nil {
		return err
	}
	op := fmt.Sprintf("update %s %d", t.name(), rec.RecordID())

	sets := make([]string, 0, len(t.columns))
	for _, name := range t.columnNames() {
		sets = append(sets, name+" = :"+name)
	}
	args := rec.columns()
	args["id"] = rec.RecordID()
	q, qargs, err := s.named(fmt.Sprintf("UPDATE %s SET %s WHERE id = :id", t.name(), strings.Join(sets, ", ")), args)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	return s.inTx(ctx, op, func(tx *sqlx.Tx) error {
		return execOne(ctx, tx, q, qargs...)
	})
}

// Delete removes a record by id. Fails with ErrReference if other rows still point to it
func (s *Store) Delete(ctx context.Context, entity enums.Entity, id int64) error {
	t, err := tableOf(entity)
	if err != nil {
		return err
	}
	return s.inTx(ctx, fmt.Sprintf("delete %s %d", t.name(), id), func(tx *sqlx.Tx) error {
		return execOne(ctx, tx, tx.Rebind("DELETE FROM "+t.name()+" WHERE id = ?"), id)
	})
}

// DeleteCascade removes a record together with all rows referencing it, in one transaction
func (s *Store) DeleteCascade(ctx context.Context, entity enums.Entity, id int64) error {
	t, err := tableOf(entity)
	if err != nil {
		return err
	}
	return s.inTx(ctx, fmt.Sprintf("delete %s %d with dependents", t.name(), id), func(tx *sqlx.Tx) error {
		for _, rel := range relations {
			if rel.parent != entity {
				continue
			}
			q := tx.Rebind(fmt.Sprintf("DELETE FROM %s WHERE %s = ?", rel.child.Table(), rel.column))
			if _, err := tx.ExecContext(ctx, q, id); err != nil {
				return err
			}
		}
		return execOne(ctx, tx, tx.Rebind("DELETE FROM "+t.name()+" WHERE id = ?"), id)
	})
}

// FindByID returns the record of the given entity, ErrNotFound if missing
func (s *Store) FindByID(ctx context.Context, entity enums.Entity, id int64) (Record, error) {
	t, err := tableOf(entity)
	if err != nil {
		return nil, err
	}

	r := t.newRow()
	q := s.db.Rebind(fmt.Sprintf("SELECT %s FROM %s WHERE id = ?", t.selectList(), t.name()))
	if err := s.db.QueryRowxContext(ctx, q, id).StructScan(r); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("find %s %d: %w", t.name(), id, ErrNotFound)
		}
		return nil, s.wrap(fmt.Sprintf("find %s %d", t.name(), id), err)
	}
	return r.record(), nil
}

// ListAll returns all records of the entity ordered by id
func (s *Store) ListAll(ctx context.Context, entity enums.Entity) ([]Record, error) {
	t, err := tableOf(entity)
	if err != nil {
		return nil, err
	}
	return s.list(ctx, t, fmt.Sprintf("SELECT %s FROM %s ORDER BY id", t.selectList(), t.name()))
}

// ListByParent returns child records referencing the parent record
func (s *Store) ListByParent(ctx context.Context, parent enums.Entity, parentID int64, child enums.Entity) ([]Record, error) {
	t, err := tableOf(child)
	if err != nil {
		return nil, err
	}
	for _, rel := range relations {
		if rel.parent == parent && rel.child == child {
			query := fmt.Sprintf("SELECT %s FROM %s WHERE %s = ? ORDER BY id", t.selectList(), t.name(), rel.column)
			return s.list(ctx, t, query, parentID)
		}
	}
	return nil, fmt.Errorf("no relation from %s to %s", parent, child)
}

// Dependents counts rows of other tables referencing the record
func (s *Store) Dependents(ctx context.Context, entity enums.Entity, id int64) (Dependents, error) {
	res := Dependents{}
	for _, rel := range relations {
		if rel.parent != entity {
			continue
		}
		var count int
		q := s.db.Rebind(fmt.Sprintf("SELECT COUNT(*) FROM %s WHERE %s = ?", rel.child.Table(), rel.column))
		if err := s.db.GetContext(ctx, &count, q, id); err != nil {
			return nil, s.wrap("count dependents of "+entity.Table(), err)
		}
		res[rel.child] += count
	}
	return res, nil
}

func (s *Store) list(ctx context.Context, t table, query string, args ...any) ([]Record, error) {
	op := "list " + t.name()
	rows, err := s.db.QueryxContext(ctx, s.db.Rebind(query), args...)
	if err != nil {
		return nil, s.wrap(op, err)
	}
	defer rows.Close()

	res := []Record{}
	for rows.Next() {
		r := t.newRow()
		if err := rows.StructScan(r); err != nil {
			return nil, s.wrap(op, err)
		}
		res = append(res, r.record())
	}
	if err := rows.Err(); err != nil {
		return nil, s.wrap(op, err)
	}
	return res, nil
}

// named converts a query with :name parameters to the dialect bind form
func (s *Store) named(query string, arg map[string]any) (string, []any, error) {
	q, args, err := sqlx.Named(query, arg)
	if err != nil {
		return "", nil, fmt.Errorf("bind parameters: %w", err)
	}
	return s.db.Rebind(q), args, nil
}

// inTx runs fn in a transaction, commits on success and rolls back on any error
func (s *Store) inTx(ctx context.Context, op string, fn func(tx *sqlx.Tx) error) error {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return s.wrap(op, err)
	}
	defer tx.Rollback() //nolint:errcheck // no-op after commit

	if err := fn(tx); err != nil {
		return s.wrap(op, err)
	}
	if err := tx.Commit(); err != nil {
		return s.wrap(op, err)
	}
	return nil
}

// execOne runs a statement expected to affect exactly one row, ErrNotFound otherwise
func execOne(ctx context.Context, tx *sqlx.Tx, query string, args ...any) error {
	res, err := tx.ExecContext(ctx, query, args...)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}
