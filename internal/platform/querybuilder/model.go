package querybuilder

import (
	"fmt"
	"reflect"
	"slices"
	"strings"

	"github.com/jmoiron/sqlx/reflectx"
)

// rowMapper reads the same `db` tags sqlx scans into, so one struct serves
// both directions.
var rowMapper = reflectx.NewMapperFunc("db", strings.ToLower)

// InsertModel inserts the db-tagged top-level fields of row. suffix is
// appended verbatim (ON CONFLICT, RETURNING).
func InsertModel(table string, row any, suffix string) (string, []any, error) {
	cols, vals, err := taggedFields(row)
	if err != nil {
		return "", nil, err
	}
	return InsertInto(table).Columns(cols...).Values(vals...).Suffix(suffix).ToSQL()
}

// UpsertModel inserts row and on a conflict over keys overwrites every
// other column except created_at. With nothing left to update it becomes
// DO NOTHING.
func UpsertModel(table string, row any, keys ...string) (string, []any, error) {
	if len(keys) == 0 {
		return "", nil, fmt.Errorf("upsert conflict columns are required")
	}
	cols, vals, err := taggedFields(row)
	if err != nil {
		return "", nil, err
	}

	var set []string
	for _, c := range cols {
		if c == "created_at" || slices.Contains(keys, c) {
			continue
		}
		set = append(set, fmt.Sprintf("%s = EXCLUDED.%s", c, c))
	}
	action := "DO NOTHING"
	if len(set) > 0 {
		action = "DO UPDATE SET " + strings.Join(set, ", ")
	}
	suffix := fmt.Sprintf("ON CONFLICT (%s) %s", strings.Join(keys, ", "), action)

	return InsertInto(table).Columns(cols...).Values(vals...).Suffix(suffix).ToSQL()
}

func taggedFields(row any) ([]string, []any, error) {
	v := reflect.ValueOf(row)
	for v.Kind() == reflect.Pointer {
		if v.IsNil() {
			return nil, nil, fmt.Errorf("model cannot be nil")
		}
		v = v.Elem()
	}
	if v.Kind() != reflect.Struct {
		return nil, nil, fmt.Errorf("model must be a struct, got %s", v.Kind())
	}

	var (
		cols []string
		vals []any
	)
	for _, fi := range rowMapper.TypeMap(v.Type()).Index {
		// nested struct members (time.Time internals and the like) are not columns
		if len(fi.Index) != 1 || fi.Field.Tag.Get("db") == "" {
			continue
		}
		cols = append(cols, fi.Name)
		vals = append(vals, v.Field(fi.Index[0]).Interface())
	}
	if len(cols) == 0 {
		return nil, nil, fmt.Errorf("model %s has no db columns", v.Type())
	}
	return cols, vals, nil
}

