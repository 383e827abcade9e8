// Package predictor holds the trained sales model used at inference time.
//
// Training happens offline. It exports a one-hot linear regression as a JSON
// artifact: an intercept plus one weight per (feature, category) pair.
// Categories the model never saw weigh zero, which matches a one-hot encoder
// that ignores unknown values.
package predictor

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math"
	"slices"

	"github.com/drstein77/furniturepredictor/internal/pipeline"
)

var (
	ErrInvalidArtifact = errors.New("invalid model artifact")
	ErrFeatureMismatch = errors.New("feature columns do not match the model")
)

// Artifact is the serialized form of a LinearModel.
type Artifact struct {
	Features  []string                      `json:"features"`
	Intercept float64                       `json:"intercept"`
	Weights   map[string]map[string]float64 `json:"weights"`
}

// LinearModel predicts sales as intercept + Σ weight(feature, category).
// It is immutable after Decode and safe for concurrent use.
type LinearModel struct {
	features  []string
	intercept float64
	weights   map[string]map[string]float64
}

// Decode reads and validates a JSON artifact.
func Decode(r io.Reader) (*LinearModel, error) {
	var a Artifact
	dec := json.NewDecoder(r)
	dec.DisallowUnknownFields()
	if err := dec.Decode(&a); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidArtifact, err)
	}
	return New(a)
}

// New builds a model from an in-memory artifact.
func New(a Artifact) (*LinearModel, error) {
	if len(a.Features) == 0 {
		return nil, fmt.Errorf("%w: no features", ErrInvalidArtifact)
	}
	for i, f := range a.Features {
		if f == "" || slices.Contains(a.Features[:i], f) {
			return nil, fmt.Errorf("%w: blank or duplicate feature %q", ErrInvalidArtifact, f)
		}
	}
	if !finite(a.Intercept) {
		return nil, fmt.Errorf("%w: non-finite intercept", ErrInvalidArtifact)
	}

	weights := make(map[string]map[string]float64, len(a.Weights))
	for feature, categories := range a.Weights {
		if !slices.Contains(a.Features, feature) {
			return nil, fmt.Errorf("%w: weights for unknown feature %q", ErrInvalidArtifact, feature)
		}
		w := make(map[string]float64, len(categories))
		for category, v := range categories {
			if !finite(v) {
				return nil, fmt.Errorf("%w: non-finite weight %s=%s", ErrInvalidArtifact, feature, category)
			}
			w[category] = v
		}
		weights[feature] = w
	}

	return &LinearModel{
		features:  slices.Clone(a.Features),
		intercept: a.Intercept,
		weights:   weights,
	}, nil
}

// Features returns the input columns the model expects, in order.
func (m *LinearModel) Features() []string {
	return slices.Clone(m.features)
}

// Accepts reports ErrFeatureMismatch unless columns equal Features.
func (m *LinearModel) Accepts(columns []string) error {
	if !slices.Equal(columns, m.features) {
		return fmt.Errorf("%w: got %v, want %v", ErrFeatureMismatch, columns, m.features)
	}
	return nil
}

// Predict scores every row of the feature table. The table columns must
// equal Features exactly.
func (m *LinearModel) Predict(ctx context.Context, features pipeline.Dataset) ([]float64, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if err := m.Accepts(features.Columns); err != nil {
		return nil, err
	}

	out := make([]float64, len(features.Rows))
	for i, row := range features.Rows {
		v := m.intercept
		for j, f := range m.features {
			if j < len(row) {
				v += m.weights[f][row[j]]
			}
		}
		out[i] = v
	}
	return out, nil
}

func finite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}
