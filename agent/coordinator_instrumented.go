package agent

import (
	"context"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"

	"recipeagent"
)

// InstrumentedOrchestrator wraps an Orchestrator with OpenTelemetry traces
// and metrics per turn.
type InstrumentedOrchestrator struct {
	inner  *Orchestrator
	tracer trace.Tracer
	meter  metric.Meter
}

func NewInstrumentedOrchestrator(inner *Orchestrator, tracer trace.Tracer, meter metric.Meter) *InstrumentedOrchestrator {
	return &InstrumentedOrchestrator{
		inner:  inner,
		tracer: tracer,
		meter:  meter,
	}
}

// HandleMessage delegates to the wrapped orchestrator, recording turn counts,
// duration, and result sizes.
func (o *InstrumentedOrchestrator) HandleMessage(ctx context.Context, username, message string, inventoryHints []string) (recipeagent.TurnResult, error) {
	ctx, span := o.tracer.Start(ctx, "InstrumentedOrchestrator.HandleMessage")
	defer span.End()

	turnsCounter, _ := o.meter.Int64Counter("recommendation_turns_total",
		metric.WithDescription("Total number of recommendation turns started"))
	turnsFailedCounter, _ := o.meter.Int64Counter("recommendation_turns_failed_total",
		metric.WithDescription("Total number of recommendation turns that failed"))
	saveFailuresCounter, _ := o.meter.Int64Counter("profile_save_failures_total",
		metric.WithDescription("Total number of profile persistence failures"))

	recipesReturnedGauge, _ := o.meter.Int64Gauge("recipes_returned_count",
		metric.WithDescription("Number of recipes returned by the latest turn"))
	inventorySizeGauge, _ := o.meter.Int64Gauge("profile_inventory_count",
		metric.WithDescription("Number of inventory items on the profile after the turn"))

	turnDurationHist, _ := o.meter.Float64Histogram("turn_duration_seconds",
		metric.WithDescription("Duration of one recommendation turn in seconds"))

	turnsCounter.Add(ctx, 1)
	start := time.Now()

	result, err := o.inner.HandleMessage(ctx, username, message, inventoryHints)

	turnDurationHist.Record(ctx, time.Since(start).Seconds())

	if err != nil {
		turnsFailedCounter.Add(ctx, 1)
		span.RecordError(err)
		return result, err
	}

	attrs := metric.WithAttributes(
		attribute.String("mode", result.Mode),
		attribute.String("outcome", result.Outcome),
	)
	recipesReturnedGauge.Record(ctx, int64(len(result.Recipes)), attrs)
	if result.Profile != nil {
		inventorySizeGauge.Record(ctx, int64(len(result.Profile.Inventory)))
	}
	if !result.SaveStatus.OK {
		saveFailuresCounter.Add(ctx, 1)
	}

	span.SetAttributes(
		attribute.String("turn.mode", result.Mode),
		attribute.String("turn.outcome", result.Outcome),
		attribute.Int("turn.recipes_returned", len(result.Recipes)),
	)

	slog.Info("ORCHESTRATOR: Instrumented turn complete",
		"turn_id", result.TurnID,
		"mode", result.Mode,
		"outcome", result.Outcome,
		"duration", time.Since(start),
	)
	return result, nil
}
