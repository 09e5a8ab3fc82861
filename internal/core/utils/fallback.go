package utils

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
)

// ErrTryNext tells FirstSuccess to move on to the next strategy.
var ErrTryNext = errors.New("try next strategy")

type Strategy[T any] struct {
	Name    string
	Attempt func(ctx context.Context) (T, error)
}

// TryNext wraps err so that FirstSuccess skips to the next strategy.
func TryNext(err error) error {
	return fmt.Errorf("%w: %w", ErrTryNext, err)
}

// FirstSuccess evaluates strategies in order. A strategy either succeeds, asks
// for the next one with an error wrapping ErrTryNext, or fails the whole chain
// with any other error. If every strategy asks for the next one the error of
// the last one is returned.
func FirstSuccess[T any](ctx context.Context, strategies ...Strategy[T]) (T, error) {
	var zero T
	if len(strategies) == 0 {
		return zero, fmt.Errorf("no strategies provided")
	}

	var lastErr error
	for _, s := range strategies {
		res, err := s.Attempt(ctx)
		if err == nil {
			return res, nil
		}
		if !errors.Is(err, ErrTryNext) {
			return zero, err
		}
		slog.Warn("strategy failed, trying next", "strategy", s.Name, "error", err)
		lastErr = err
	}

	return zero, lastErr
}

// FirstSuccessOr is FirstSuccess terminated by a default that cannot fail. Only
// errors not wrapping ErrTryNext are returned.
func FirstSuccessOr[T any](ctx context.Context, fallback func() T, strategies ...Strategy[T]) (T, error) {
	res, err := FirstSuccess(ctx, strategies...)
	if err == nil {
		return res, nil
	}
	if len(strategies) > 0 && !errors.Is(err, ErrTryNext) {
		return res, err
	}
	return fallback(), nil
}
