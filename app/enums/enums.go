// Package enums provides closed enumeration types for program records.
//
// Every enumeration is a named string type with a fixed list of allowed values. The zero value
// (empty string) means "not set" and is stored as NULL. Values coming from forms, JSON or the
// database are checked against the allowed list with the Parse* functions, so unknown labels
// never reach the store.
//
// Usage:
//
//	faculty, err := enums.ParseFaculty("mnf")
//	if err != nil {
//	    // unknown faculty code, reject the input
//	}
//	fmt.Println(faculty) // "MNF"
//
// Each type implements sql.Scanner and driver.Valuer, so it can be used directly as a column
// field with sqlx.
package enums

import (
	"database/sql/driver"
	"errors"
	"fmt"
	"strings"

	log "github.com/go-pkgz/lgr"
)

// ErrUnknown is returned by Parse* functions for values outside of the allowed list
var ErrUnknown = errors.New("unknown enum value")

// parse matches v against values, ignoring case and surrounding spaces
func parse[T ~string](kind, v string, values []T) (T, error) {
	v = strings.TrimSpace(v)
	for _, e := range values {
		if strings.EqualFold(string(e), v) {
			return e, nil
		}
	}
	var zero T
	return zero, fmt.Errorf("%w: %s %q", ErrUnknown, kind, v)
}

// parseOptional is parse with empty input allowed, returns zero value for it
func parseOptional[T ~string](kind, v string, values []T) (T, error) {
	if strings.TrimSpace(v) == "" {
		var zero T
		return zero, nil
	}
	return parse(kind, v, values)
}

// scan reads a stored value. Unrecognized stored labels are logged and treated as unset
func scan[T ~string](kind string, src any, dst *T, values []T) error {
	var raw string
	switch v := src.(type) {
	case nil:
		*dst = ""
		return nil
	case string:
		raw = v
	case []byte:
		raw = string(v)
	default:
		return fmt.Errorf("can't scan %s from %T", kind, src)
	}

	if raw == "" {
		*dst = ""
		return nil
	}

	e, err := parse(kind, raw, values)
	if err != nil {
		log.Printf("[WARN] stored %s %q is not recognized, treated as unset", kind, raw)
		*dst = ""
		return nil
	}
	*dst = e
	return nil
}

// value converts enum to the stored form, NULL for unset
func value[T ~string](e T) (driver.Value, error) {
	if e == "" {
		return nil, nil
	}
	return string(e), nil
}

// names returns string representation of all values
func names[T ~string](values []T) []string {
	res := make([]string, 0, len(values))
	for _, v := range values {
		res = append(res, string(v))
	}
	return res
}
