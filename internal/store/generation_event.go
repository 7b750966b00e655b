package store

import (
	"context"
	"fmt"
	"time"

	entsql "entgo.io/ent/dialect/sql"
)

// eventRepo implements EventRepo backed by ent and the global sequence counter.
type eventRepo struct {
	drv *entsql.Driver
	seq *sequenceCounter
}

func (r *eventRepo) AppendGeneration(ctx context.Context, data GenerationEventData) error {
	seqNum, err := r.seq.Next(ctx)
	if err != nil {
		return fmt.Errorf("next sequence: %w", err)
	}

	query, args := builder().Insert(generationEventsTable).
		Columns("sequence", "timestamp", "operation", "template_id", "template_version",
			"batch_id", "requested", "succeeded", "stage", "error_message", "latency_ms").
		Values(seqNum, time.Now().UTC(), string(data.Operation), data.TemplateID, data.TemplateVersion,
			data.BatchID, data.Requested, data.Succeeded, data.Stage, data.ErrorMessage, data.LatencyMs).
		Query()
	if err := r.drv.Exec(ctx, query, args, nil); err != nil {
		return fmt.Errorf("save generation event: %w", err)
	}
	return nil
}

func (r *eventRepo) Query(ctx context.Context, opts QueryOpts) ([]GenerationEvent, error) {
	b := builder()
	sel := b.Select("sequence", "timestamp", "operation", "template_id", "template_version",
		"batch_id", "requested", "succeeded", "stage", "error_message", "latency_ms").
		From(b.Table(generationEventsTable)).
		OrderBy("sequence")

	var preds []*entsql.Predicate
	if opts.After > 0 {
		preds = append(preds, entsql.GT("sequence", opts.After))
	}
	if opts.Before > 0 {
		preds = append(preds, entsql.LT("sequence", opts.Before))
	}
	if !opts.From.IsZero() {
		preds = append(preds, entsql.GTE("timestamp", opts.From.UTC()))
	}
	if !opts.To.IsZero() {
		preds = append(preds, entsql.LTE("timestamp", opts.To.UTC()))
	}
	if opts.TemplateID != "" {
		preds = append(preds, entsql.EQ("template_id", opts.TemplateID))
	}
	if len(preds) > 0 {
		sel.Where(entsql.And(preds...))
	}
	if opts.Limit > 0 {
		sel.Limit(opts.Limit)
	}
	query, args := sel.Query()

	var rows entsql.Rows
	if err := r.drv.Query(ctx, query, args, &rows); err != nil {
		return nil, fmt.Errorf("query generation events: %w", err)
	}
	defer rows.Close()

	var out []GenerationEvent
	for rows.Next() {
		var (
			e  GenerationEvent
			op string
		)
		if err := rows.Scan(&e.Sequence, &e.Timestamp, &op, &e.TemplateID, &e.TemplateVersion,
			&e.BatchID, &e.Requested, &e.Succeeded, &e.Stage, &e.ErrorMessage, &e.LatencyMs); err != nil {
			return nil, fmt.Errorf("scan generation event: %w", err)
		}
		e.Operation = Operation(op)
		out = append(out, e)
	}
	return out, rows.Err()
}
