// Package asyncx holds the fan-out helpers used by the identity services.
// Every helper waits for all goroutines before returning, so nothing leaks
// on the error path.
package asyncx

import (
	"context"
	"sync"
)

// All runs fns concurrently and returns their results in input order, or
// the first error by position.
func All[T any](ctx context.Context, fns ...func(context.Context) (T, error)) ([]T, error) {
	results := make([]T, len(fns))
	errs := make([]error, len(fns))

	var wg sync.WaitGroup
	wg.Add(len(fns))
	for i, fn := range fns {
		go func() {
			defer wg.Done()
			results[i], errs[i] = fn(ctx)
		}()
	}
	wg.Wait()

	if err := firstError(errs); err != nil {
		return nil, err
	}
	return results, nil
}

// Map applies fn to every item concurrently, preserving order.
func Map[T any, R any](ctx context.Context, items []T, fn func(context.Context, T) (R, error)) ([]R, error) {
	results := make([]R, len(items))
	errs := make([]error, len(items))

	var wg sync.WaitGroup
	wg.Add(len(items))
	for i, item := range items {
		go func() {
			defer wg.Done()
			results[i], errs[i] = fn(ctx, item)
		}()
	}
	wg.Wait()

	if err := firstError(errs); err != nil {
		return nil, err
	}
	return results, nil
}

// ForEach is Map without results.
func ForEach[T any](ctx context.Context, items []T, fn func(context.Context, T) error) error {
	errs := make([]error, len(items))

	var wg sync.WaitGroup
	wg.Add(len(items))
	for i, item := range items {
		go func() {
			defer wg.Done()
			errs[i] = fn(ctx, item)
		}()
	}
	wg.Wait()

	return firstError(errs)
}

// Every reports whether pred holds for all items, evaluated concurrently.
func Every[T any](ctx context.Context, items []T, pred func(context.Context, T) (bool, error)) (bool, error) {
	oks, err := Map(ctx, items, pred)
	if err != nil {
		return false, err
	}
	for _, ok := range oks {
		if !ok {
			return false, nil
		}
	}
	return true, nil
}

func firstError(errs []error) error {
	for _, err := range errs {
		if err != nil {
			return err
		}
	}
	return nil
}
