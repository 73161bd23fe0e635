package pipeline

import (
	"context"
	"time"

	"go.opentelemetry.io/otel/trace"

	"github.com/aviantrail/tripplanner/internal/core"
	"github.com/aviantrail/tripplanner/internal/telemetry"
)

// stageSpan bundles a started span with its start time so callers can
// report the outcome with one defer.
type stageSpan struct {
	span  trace.Span
	start time.Time
}

func (r *Runner) startSpan(ctx context.Context, stage string) (context.Context, *stageSpan) {
	runID, _ := core.RunIDFromContext(ctx)
	newCtx, span := r.telemetry.StartStageSpan(ctx, runID, stage)
	return newCtx, &stageSpan{span: span, start: time.Now()}
}

func (s *stageSpan) end(err error) {
	telemetry.RecordStageOutcome(s.span, s.start, err)
}
