package analysis

import (
	"context"
	"fmt"

	"analysis-enginev1/internal/model"
)

// runBuffer stages one symbol's writes in memory. Services write through
// the ResultWriter port as they compute; the buffer only reaches durable
// storage when the whole per-symbol pipeline completes inside its budget.
// A timed-out run drops the buffer, so no inconsistent partial snapshot is
// ever persisted.
type runBuffer struct {
	results    []*model.IndicatorResult
	detections []*model.PatternDetection
}

var _ model.ResultWriter = (*runBuffer)(nil)

func newRunBuffer() *runBuffer {
	return &runBuffer{}
}

func (b *runBuffer) StoreIndicatorResult(_ context.Context, r *model.IndicatorResult) error {
	b.results = append(b.results, r)
	return nil
}

func (b *runBuffer) StorePatternDetection(_ context.Context, d *model.PatternDetection) error {
	b.detections = append(b.detections, d)
	return nil
}

// Flush writes the staged rows through the durable writer. Row keys are
// (symbol, component, ts), so a failed flush can be retried without
// duplicating rows.
func (b *runBuffer) Flush(ctx context.Context, w model.ResultWriter) error {
	for _, r := range b.results {
		if err := w.StoreIndicatorResult(ctx, r); err != nil {
			return fmt.Errorf("flush indicator %s: %w", r.Indicator, err)
		}
	}
	for _, d := range b.detections {
		if err := w.StorePatternDetection(ctx, d); err != nil {
			return fmt.Errorf("flush detection %s: %w", d.Pattern, err)
		}
	}
	return nil
}
