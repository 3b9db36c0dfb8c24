package telemetry

import (
	"context"
	"fmt"
	"sync/atomic"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

type instruments struct {
	reactionToggles metric.Int64Counter
	comments        metric.Int64Counter
	storeConflicts  metric.Int64Counter
	postViews       metric.Int64Counter
}

// current is nil until InitMetrics runs; recording is a no-op until then
var current atomic.Pointer[instruments]

// InitMetrics creates the community counters on mp and makes them current
func InitMetrics(mp metric.MeterProvider) error {
	meter := mp.Meter(instrumentationName, metric.WithInstrumentationVersion(Version))

	var inst instruments
	var err error
	if inst.reactionToggles, err = meter.Int64Counter("community.reaction.toggles",
		metric.WithDescription("Reaction toggles by kind and resulting state")); err != nil {
		return fmt.Errorf("create reaction toggle counter: %w", err)
	}
	if inst.comments, err = meter.Int64Counter("community.comments",
		metric.WithDescription("Comments and replies added")); err != nil {
		return fmt.Errorf("create comment counter: %w", err)
	}
	if inst.storeConflicts, err = meter.Int64Counter("community.store.conflicts",
		metric.WithDescription("Post mutations retried after a concurrent write")); err != nil {
		return fmt.Errorf("create conflict counter: %w", err)
	}
	if inst.postViews, err = meter.Int64Counter("community.post.views",
		metric.WithDescription("Post detail views")); err != nil {
		return fmt.Errorf("create view counter: %w", err)
	}

	current.Store(&inst)
	return nil
}

// RecordReactionToggle counts a like, dislike or bookmark toggle
func RecordReactionToggle(ctx context.Context, kind string, active bool) {
	if inst := current.Load(); inst != nil {
		inst.reactionToggles.Add(ctx, 1, metric.WithAttributes(
			attribute.String("kind", kind),
			attribute.Bool("active", active),
		))
	}
}

// RecordComment counts a new comment or reply; kind is "comment" or "reply"
func RecordComment(ctx context.Context, kind string) {
	if inst := current.Load(); inst != nil {
		inst.comments.Add(ctx, 1, metric.WithAttributes(attribute.String("kind", kind)))
	}
}

// RecordStoreConflict counts a retried optimistic write
func RecordStoreConflict(ctx context.Context) {
	if inst := current.Load(); inst != nil {
		inst.storeConflicts.Add(ctx, 1)
	}
}

// RecordPostView counts a post view
func RecordPostView(ctx context.Context) {
	if inst := current.Load(); inst != nil {
		inst.postViews.Add(ctx, 1)
	}
}
