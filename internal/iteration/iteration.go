// Package iteration expands a job's iteration policy into a lazy sequence
// of iteration values.
package iteration

import (
	"fmt"
	"iter"
	"math"

	"github.com/specialistvlad/jobgrid/internal/config"
)

// Item is one iteration. Value is nil and HasValue false for a single run.
type Item struct {
	Index    int
	Value    any
	HasValue bool
}

// Seq is a lazy sequence of iterations.
type Seq = iter.Seq[Item]

// Resolve returns the sequence described by it. Errors in the policy or
// the iteration file are reported before anything is yielded. The sequence
// is not restartable; resolve again for every job run.
//
// InfiniteLoop never ends on its own: it yields 0, 1, 2, ... until the
// consumer stops ranging or the process is terminated.
func Resolve(it config.Iteration, files config.FileLoader) (Seq, error) {
	switch v := it.(type) {
	case nil, config.SingleRun:
		return func(yield func(Item) bool) {
			yield(Item{})
		}, nil

	case config.InfiniteLoop:
		return func(yield func(Item) bool) {
			for i := 0; ; i++ {
				if !yield(Item{Index: i, Value: int64(i), HasValue: true}) {
					return
				}
			}
		}, nil

	case config.Range:
		if err := config.ValidateRange(v); err != nil {
			return nil, err
		}
		start, step := v.Bounds()
		return func(yield func(Item) bool) {
			i := 0
			for n := start; (step > 0 && n < v.To) || (step < 0 && n > v.To); n += step {
				if !yield(Item{Index: i, Value: n, HasValue: true}) {
					return
				}
				i++
				// The next value would pass any int64 bound.
				if (step > 0 && n > math.MaxInt64-step) || (step < 0 && n < math.MinInt64-step) {
					return
				}
			}
		}, nil

	case config.ValueList:
		return values(v.Values), nil

	case config.ExternalFile:
		if files == nil {
			return nil, fmt.Errorf("%w: no file loader for %s", config.ErrMalformedIterationFile, v.Path)
		}
		data, err := files.LoadFile(v.Path)
		if err != nil {
			return nil, fmt.Errorf("%w: %w", config.ErrMalformedIterationFile, err)
		}
		list, ok := data.([]any)
		if !ok {
			return nil, fmt.Errorf("%w: %s: root must be an array", config.ErrMalformedIterationFile, v.Path)
		}
		return values(list), nil

	default:
		return nil, fmt.Errorf("unsupported iteration policy %T", it)
	}
}

func values(list []any) Seq {
	return func(yield func(Item) bool) {
		for i, val := range list {
			if !yield(Item{Index: i, Value: val, HasValue: true}) {
				return
			}
		}
	}
}
