package pipeline

import (
	"context"
	"fmt"

	"github.com/drstein77/furniturepredictor/internal/models"
)

// Result is the outcome of a successful run.
type Result struct {
	Items       []models.AggregatedItem
	RowsRead    int
	RowsValid   int
	RowsMatched int
}

// Pipeline binds a model to a fixed set of rules. It holds no per-call
// state and may be used from many goroutines at once.
type Pipeline struct {
	rules      Rules
	normalizer *Normalizer
	model      Model
}

// New creates a Pipeline. model may be nil, in which case Run reports
// ErrModelUnavailable once a dataset reaches the inference stage.
func New(model Model, rules Rules) (*Pipeline, error) {
	if err := rules.Validate(); err != nil {
		return nil, fmt.Errorf("invalid pipeline rules: %w", err)
	}
	rules = rules.canonical()

	return &Pipeline{
		rules:      rules,
		normalizer: NewNormalizer(rules),
		model:      model,
	}, nil
}

// Ready reports whether a model is attached.
func (p *Pipeline) Ready() bool {
	return p.model != nil
}

// Rules returns the rules the pipeline was built with.
func (p *Pipeline) Rules() Rules {
	return p.rules
}

// Run validates, normalizes, filters and scores ds.
func (p *Pipeline) Run(ctx context.Context, ds Dataset) (*Result, error) {
	if err := Validate(ds, p.rules.RequiredFields); err != nil {
		return nil, err
	}

	normalized, err := p.normalizer.Normalize(ds)
	if err != nil {
		return nil, err
	}

	filtered, err := Filter(normalized, p.rules.ProductField, p.rules.Keywords)
	if err != nil {
		return nil, err
	}

	items, err := Aggregate(ctx, filtered, p.rules.ProductField, p.model)
	if err != nil {
		return nil, err
	}

	return &Result{
		Items:       items,
		RowsRead:    ds.Len(),
		RowsValid:   normalized.Len(),
		RowsMatched: filtered.Len(),
	}, nil
}
