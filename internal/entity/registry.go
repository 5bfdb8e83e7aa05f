// Package entity holds the static table of replicated entity types: for
// each destination collection its schema, the source query per SQL dialect
// and the row-to-document mapping.
package entity

import (
	"errors"
	"fmt"
	"strings"

	"github.com/BartekS5/cinesync/pkg/database"
	"github.com/BartekS5/cinesync/pkg/models"
)

// Registration describes one replicated entity type. Values are built once
// at package init and never modified.
type Registration struct {
	Name   string
	Schema models.CollectionSchema
	// Queries maps a source dialect to a template whose single parameter is
	// the watermark lower bound.
	Queries map[string]string
	Map     func(models.Row) (models.Document, error)
}

// Query returns the template for dialect.
func (r Registration) Query(dialect string) (string, error) {
	q, ok := r.Queries[dialect]
	if !ok {
		return "", fmt.Errorf("entity %s has no query for dialect %q", r.Name, dialect)
	}
	return q, nil
}

var registry = []Registration{
	movies,
	persons,
	genres,
}

// All returns every registration in processing order.
func All() []Registration {
	return append([]Registration(nil), registry...)
}

// Lookup finds a registration by collection name.
func Lookup(name string) (Registration, bool) {
	for _, r := range registry {
		if r.Name == name {
			return r, true
		}
	}
	return Registration{}, false
}

// Select returns the named registrations in registration order. An empty
// list selects everything.
func Select(names []string) ([]Registration, error) {
	if len(names) == 0 {
		return All(), nil
	}
	wanted := make(map[string]bool, len(names))
	for _, n := range names {
		if _, ok := Lookup(n); !ok {
			return nil, fmt.Errorf("unknown entity type %q", n)
		}
		wanted[n] = true
	}
	var out []Registration
	for _, r := range registry {
		if wanted[r.Name] {
			out = append(out, r)
		}
	}
	return out, nil
}

// Check validates every query template of the given registrations for
// dialect. Postgres templates are parsed; others get a placeholder check.
func Check(regs []Registration, dialect string) error {
	var errs []error
	for _, r := range regs {
		q, err := r.Query(dialect)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		if err := CheckQuery(dialect, q); err != nil {
			errs = append(errs, fmt.Errorf("entity %s: %w", r.Name, err))
		}
	}
	return errors.Join(errs...)
}

// CheckQuery validates one template for dialect.
func CheckQuery(dialect, query string) error {
	switch dialect {
	case database.DriverPostgres:
		return checkPostgresQuery(query)
	case database.DriverSQLServer:
		if !strings.Contains(query, "@p1") {
			return errors.New("query does not reference the watermark parameter @p1")
		}
		return nil
	default:
		return fmt.Errorf("unsupported dialect %q", dialect)
	}
}
