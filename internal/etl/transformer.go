package etl

import (
	"iter"

	"github.com/BartekS5/cinesync/internal/entity"
	"github.com/BartekS5/cinesync/pkg/models"
)

// Transformer maps source rows of one entity type into checked documents.
type Transformer struct {
	reg entity.Registration
}

func NewTransformer(reg entity.Registration) *Transformer {
	return &Transformer{reg: reg}
}

// Transform maps one row and checks the result against the collection
// schema. The only failure is a *models.ValidationError.
func (t *Transformer) Transform(row models.Row) (models.Document, error) {
	doc, err := t.reg.Map(row)
	if err != nil {
		return models.Document{}, err
	}
	if err := t.reg.Schema.Validate(t.reg.Name, doc); err != nil {
		return models.Document{}, err
	}
	return doc, nil
}

// TransformBatch lazily maps a batch, one result per row in row order.
func (t *Transformer) TransformBatch(batch Batch) iter.Seq2[models.Document, error] {
	return func(yield func(models.Document, error) bool) {
		for _, row := range batch {
			if !yield(t.Transform(row)) {
				return
			}
		}
	}
}
