package pipeline

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// Pipeline failures surfaced to callers.
var (
	ErrEmptyDomain        = errors.New("no matching items found")
	ErrModelUnavailable   = errors.New("model unavailable")
	ErrPredictionMismatch = errors.New("model returned an invalid prediction set")
	ErrInvalidInput       = errors.New("invalid input")
)

// MissingColumnsError reports required columns absent from a dataset header.
type MissingColumnsError struct {
	Missing []string
}

func (e *MissingColumnsError) Error() string {
	return fmt.Sprintf("missing columns: {%s}", strings.Join(e.Missing, ", "))
}

// IncompleteRowsError is returned under the reject policy when data rows
// lack a value in a required field. Lines holds their source lines, with the
// header on line 1 (see Dataset.Line).
type IncompleteRowsError struct {
	Lines []int
}

func (e *IncompleteRowsError) Error() string {
	nums := make([]string, 0, len(e.Lines))
	for _, n := range e.Lines {
		nums = append(nums, strconv.Itoa(n))
	}
	return fmt.Sprintf("rows with missing required values on lines: %s", strings.Join(nums, ", "))
}

// Kind classifies a pipeline outcome so callers can branch without
// inspecting concrete error types.
type Kind int

const (
	KindOK Kind = iota
	KindMissingColumns
	KindIncompleteRows
	KindInvalidInput
	KindEmptyDomain
	KindModelUnavailable
	KindPredictionFailed
	KindInternal
)

// String returns the client-visible code of the kind.
func (k Kind) String() string {
	switch k {
	case KindOK:
		return "ok"
	case KindMissingColumns:
		return "missing_columns"
	case KindIncompleteRows:
		return "incomplete_rows"
	case KindInvalidInput:
		return "invalid_input"
	case KindEmptyDomain:
		return "no_matching_items"
	case KindModelUnavailable:
		return "model_unavailable"
	case KindPredictionFailed:
		return "prediction_failed"
	default:
		return "internal"
	}
}

// KindOf maps an error returned by the pipeline to its Kind.
func KindOf(err error) Kind {
	if err == nil {
		return KindOK
	}

	var missing *MissingColumnsError
	if errors.As(err, &missing) {
		return KindMissingColumns
	}
	var incomplete *IncompleteRowsError
	if errors.As(err, &incomplete) {
		return KindIncompleteRows
	}

	switch {
	case errors.Is(err, ErrInvalidInput):
		return KindInvalidInput
	case errors.Is(err, ErrEmptyDomain):
		return KindEmptyDomain
	case errors.Is(err, ErrModelUnavailable):
		return KindModelUnavailable
	case errors.Is(err, ErrPredictionMismatch):
		return KindPredictionFailed
	}
	return KindInternal
}
