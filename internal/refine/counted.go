package refine

import (
	"context"
	"errors"

	"carenote/internal/metrics"
)

// Counted records the outcome of every refinement made through r.
func Counted(r Refiner) Refiner {
	return counted{r}
}

type counted struct {
	next Refiner
}

func (c counted) Refine(ctx context.Context, req Request) (string, error) {
	out, err := c.next.Refine(ctx, req)
	switch {
	case err == nil:
		metrics.RecordRefinement("ok")
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		metrics.RecordRefinement("cancelled")
	case errors.Is(err, ErrNothingToRefine):
		metrics.RecordRefinement("empty")
	default:
		metrics.RecordRefinement("error")
	}
	return out, err
}
