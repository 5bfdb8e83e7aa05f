package etl

import (
	"context"
	"database/sql/driver"
	"errors"
	"fmt"
	"io"
	"net"
	"strings"

	"github.com/jackc/pgx/v5/pgconn"
	mssql "github.com/microsoft/go-mssqldb"
	"go.mongodb.org/mongo-driver/mongo"

	"github.com/BartekS5/cinesync/internal/checkpoint"
	"github.com/BartekS5/cinesync/pkg/models"
)

// codeDocumentValidation is returned by MongoDB when the collection
// validator rejects a document.
const codeDocumentValidation = 121

// PartialPublishError reports a bulk write where the destination rejected
// part of the batch. Written documents were applied; the rest were not.
type PartialPublishError struct {
	Collection string
	Written    int
	Failed     []string
	Codes      []int
	Cause      error
}

func (e *PartialPublishError) Error() string {
	return fmt.Sprintf("partial publish to %s: %d written, %d failed: %v",
		e.Collection, e.Written, len(e.Failed), e.Cause)
}

func (e *PartialPublishError) Unwrap() error { return e.Cause }

// rejected reports whether the destination refused a document on content,
// which no amount of retrying will fix.
func (e *PartialPublishError) rejected() bool {
	for _, c := range e.Codes {
		if c == codeDocumentValidation {
			return true
		}
	}
	return false
}

// IsRetryable separates connectivity and availability failures, which are
// retried with backoff, from data and programming errors, which are not.
func IsRetryable(err error) bool {
	if err == nil {
		return false
	}

	var verr *models.ValidationError
	if errors.As(err, &verr) || errors.Is(err, checkpoint.ErrCorrupt) || errors.Is(err, context.Canceled) {
		return false
	}

	var partial *PartialPublishError
	if errors.As(err, &partial) {
		return !partial.rejected()
	}

	if errors.Is(err, context.DeadlineExceeded) ||
		errors.Is(err, driver.ErrBadConn) ||
		errors.Is(err, io.ErrUnexpectedEOF) ||
		errors.Is(err, net.ErrClosed) {
		return true
	}

	if mongo.IsNetworkError(err) || mongo.IsTimeout(err) {
		return true
	}
	var srvErr mongo.ServerError
	if errors.As(err, &srvErr) && (srvErr.HasErrorLabel("RetryableWriteError") || srvErr.HasErrorLabel("TransientTransactionError")) {
		return true
	}

	if pgconn.Timeout(err) || pgconn.SafeToRetry(err) {
		return true
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return isTransientSQLState(pgErr.Code)
	}

	var msErr mssql.Error
	if errors.As(err, &msErr) {
		return isTransientMSSQL(msErr.Number)
	}

	var netErr net.Error
	return errors.As(err, &netErr)
}

// isTransientSQLState covers connection exceptions, operator intervention,
// insufficient resources and serialization failures.
func isTransientSQLState(code string) bool {
	switch {
	case strings.HasPrefix(code, "08"),
		strings.HasPrefix(code, "53"),
		strings.HasPrefix(code, "57P"),
		code == "40001", code == "40P01":
		return true
	}
	return false
}

func isTransientMSSQL(number int32) bool {
	switch number {
	case -2, // timeout
		1205,         // deadlock victim
		4060,         // database unavailable
		40197, 40501, // service busy
		40613, // database not currently available
		49918, 49919, 49920:
		return true
	}
	return false
}
