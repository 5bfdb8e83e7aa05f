package etl

import (
	"errors"
	"fmt"

	"github.com/BartekS5/cinesync/internal/config"
	"github.com/BartekS5/cinesync/pkg/logger"
	"github.com/BartekS5/cinesync/pkg/models"
)

// Validator applies the configured policy to rows that fail validation.
type Validator struct {
	OnInvalid string
}

func NewValidator(onInvalid string) *Validator {
	return &Validator{OnInvalid: onInvalid}
}

// ValidateDocument checks that the document can be upserted by id.
func (v *Validator) ValidateDocument(entity string, doc models.Document) error {
	if doc.ID == "" {
		return &models.ValidationError{Entity: entity, Field: "id", Reason: "missing document id"}
	}
	return nil
}

// Admit decides what to do with a transform error. It returns skip=true
// when the row should be dropped and the pass continued; any returned error
// aborts the pass.
func (v *Validator) Admit(err error) (skip bool, _ error) {
	var verr *models.ValidationError
	if !errors.As(err, &verr) {
		return false, fmt.Errorf("transform: %w", err)
	}
	if v.OnInvalid == config.OnInvalidSkip {
		logger.Warnf("Skipping row: %v", verr)
		return true, nil
	}
	return false, err
}
