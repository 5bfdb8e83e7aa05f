package models

import "fmt"

// ValidationError reports a row that cannot become a valid document. It is
// a data problem, never retried.
type ValidationError struct {
	Entity string
	ID     string
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	id := e.ID
	if id == "" {
		id = "<unknown>"
	}
	if e.Field == "" {
		return fmt.Sprintf("invalid %s row %s: %s", e.Entity, id, e.Reason)
	}
	return fmt.Sprintf("invalid %s row %s: field %s: %s", e.Entity, id, e.Field, e.Reason)
}
