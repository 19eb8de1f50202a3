package history

import (
	"encoding/json"
	"fmt"

	"github.com/brunoga/deep"
	"go.uber.org/zap"
)

// CopyFunc produces an independent deep copy of a value.
type CopyFunc[T any] func(value T) (T, error)

// StructuralCopy is the default primary copy path.
func StructuralCopy[T any](value T) (T, error) {
	return deep.Copy(value)
}

// JSONCopy round-trips value through encoding/json. Unexported fields and
// fields tagged `json:"-"` are silently dropped.
func JSONCopy[T any](value T) (T, error) {
	var out T

	data, err := json.Marshal(value)
	if err != nil {
		return out, fmt.Errorf("marshaling value: %w", err)
	}
	if err := json.Unmarshal(data, &out); err != nil {
		return out, fmt.Errorf("unmarshaling value: %w", err)
	}

	return out, nil
}

// LossyCopy deep copies value, replacing members deep cannot copy (funcs,
// channels) with their zero value.
func LossyCopy[T any](value T) (T, error) {
	return deep.CopySkipUnsupported(value)
}

// Clone deep copies value with the structural copier.
func Clone[T any](value T, logger *zap.Logger) T {
	return cloneWith(value, StructuralCopy[T], logger)
}

// cloneWith tries primary, then a lossy structural copy, then a JSON round
// trip. The result never shares memory with value: when every path fails it
// is the zero value. It never returns an error.
func cloneWith[T any](value T, primary CopyFunc[T], logger *zap.Logger) T {
	copied, err := primary(value)
	if err == nil {
		return copied
	}
	logger.Warn("structural copy failed, dropping unsupported members", zap.Error(err))

	if copied, err = LossyCopy(value); err == nil {
		return copied
	}
	logger.Warn("lossy copy failed, falling back to JSON clone", zap.Error(err))

	if copied, err = JSONCopy(value); err == nil {
		return copied
	}
	logger.Error("JSON clone failed, recording zero value", zap.Error(err))

	var zero T
	return zero
}
