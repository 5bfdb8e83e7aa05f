package entity

import (
	"errors"
	"fmt"
	"strings"

	pg "github.com/pganalyze/pg_query_go/v6"
)

// checkPostgresQuery parses the template and requires exactly one SELECT
// that references the watermark parameter $1.
func checkPostgresQuery(query string) error {
	if strings.TrimSpace(query) == "" {
		return errors.New("empty query not allowed")
	}

	tree, err := pg.Parse(query)
	if err != nil {
		return fmt.Errorf("parse error: %w", err)
	}
	if len(tree.Stmts) != 1 {
		return fmt.Errorf("expected a single statement, got %d", len(tree.Stmts))
	}
	if tree.Stmts[0].Stmt.GetSelectStmt() == nil {
		return errors.New("query must be a SELECT statement")
	}

	scan, err := pg.Scan(query)
	if err != nil {
		return fmt.Errorf("scan error: %w", err)
	}
	for _, tok := range scan.Tokens {
		if tok.Token == pg.Token_PARAM && query[tok.Start:tok.End] == "$1" {
			return nil
		}
	}
	return errors.New("query does not reference the watermark parameter $1")
}
