package entity

import (
	"fmt"

	"github.com/google/uuid"

	"github.com/BartekS5/cinesync/pkg/models"
	"github.com/BartekS5/cinesync/pkg/utils"
)

// rowReader pulls typed columns out of a row and keeps the first error so
// mappers can read every field and check once at the end.
type rowReader struct {
	entity string
	row    models.Row
	id     string
	err    error
}

func newRowReader(entity string, row models.Row) *rowReader {
	r := &rowReader{entity: entity, row: row}
	r.id = r.uuid("id")
	return r
}

func (r *rowReader) fail(field, format string, args ...interface{}) {
	if r.err != nil {
		return
	}
	r.err = &models.ValidationError{
		Entity: r.entity,
		ID:     r.id,
		Field:  field,
		Reason: fmt.Sprintf(format, args...),
	}
}

func (r *rowReader) uuid(col string) string {
	v, ok := r.row[col]
	if !ok || v == nil {
		r.fail(col, "required field missing")
		return ""
	}
	id, err := normalizeID(v)
	if err != nil {
		r.fail(col, "%v", err)
		return ""
	}
	return id
}

// str reads a text column; when required, a missing or null value is an
// error, otherwise it becomes "".
func (r *rowReader) str(col string, required bool) string {
	v, ok := r.row[col]
	if !ok || v == nil {
		if required {
			r.fail(col, "required field missing")
		}
		return ""
	}
	s, err := utils.ToString(v)
	if err != nil {
		r.fail(col, "%v", err)
	}
	return s
}

func (r *rowReader) float(col string) float64 {
	f, err := utils.ToFloat(r.row[col])
	if err != nil {
		r.fail(col, "%v", err)
	}
	return f
}

func (r *rowReader) objects(col string) []map[string]interface{} {
	items, err := utils.ToArray(r.row[col])
	if err != nil {
		r.fail(col, "%v", err)
		return nil
	}
	out := make([]map[string]interface{}, 0, len(items))
	for i, item := range items {
		if item == nil {
			continue
		}
		obj, err := utils.ToObject(item)
		if err != nil {
			r.fail(fmt.Sprintf("%s[%d]", col, i), "%v", err)
			return nil
		}
		out = append(out, obj)
	}
	return out
}

// normalizeID accepts any UUID spelling and returns the lower-case
// hyphenated form, so ids from both source dialects compare equal.
func normalizeID(v interface{}) (string, error) {
	switch t := v.(type) {
	case uuid.UUID:
		return t.String(), nil
	case [16]byte:
		return uuid.UUID(t).String(), nil
	}
	s, err := utils.ToString(v)
	if err != nil {
		return "", err
	}
	id, err := uuid.Parse(s)
	if err != nil {
		return "", fmt.Errorf("invalid id %q: %w", s, err)
	}
	return id.String(), nil
}

func isRole(s string) bool {
	for _, r := range models.Roles {
		if r == s {
			return true
		}
	}
	return false
}
