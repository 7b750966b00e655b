package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"entgo.io/ent/dialect"
	entsql "entgo.io/ent/dialect/sql"

	"github.com/abhisek/probgen/internal/problemgen"
)

var questionColumns = []string{
	"id", "batch_id", "template_id", "template_version", "is_dynamic",
	"seed", "instance", "accepted_set",
}

// questionRepo implements QuestionRepo with ent SQL builders.
type questionRepo struct {
	drv *entsql.Driver
}

func (r *questionRepo) SaveQuestions(ctx context.Context, qs []problemgen.Question) error {
	if len(qs) == 0 {
		return nil
	}
	now := time.Now().UTC()
	ins := builder().Insert(questionsTable).Columns(append(questionColumns, "created_at")...)
	for _, q := range qs {
		instance, err := nullJSON(q.Instance, q.Instance == nil)
		if err != nil {
			return fmt.Errorf("marshal instance of question %s: %w", q.ID, err)
		}
		accepted, err := nullJSON(q.AcceptedSet, len(q.AcceptedSet) == 0)
		if err != nil {
			return fmt.Errorf("marshal accepted set of question %s: %w", q.ID, err)
		}
		ins.Values(q.ID, q.BatchID, q.TemplateID, q.TemplateVersion, q.IsDynamic,
			string(q.Seed), instance, accepted, now)
	}
	query, args := ins.Query()

	return withTx(ctx, r.drv, func(tx dialect.Tx) error {
		if err := tx.Exec(ctx, query, args, nil); err != nil {
			return fmt.Errorf("save questions: %w", err)
		}
		return nil
	})
}

func (r *questionRepo) Get(ctx context.Context, id string) (*problemgen.Question, error) {
	qs, err := r.query(ctx, entsql.EQ("id", id))
	if err != nil {
		return nil, err
	}
	if len(qs) == 0 {
		return nil, fmt.Errorf("question %s: %w", id, ErrNotFound)
	}
	return &qs[0], nil
}

func (r *questionRepo) ListByBatch(ctx context.Context, batchID string) ([]problemgen.Question, error) {
	return r.query(ctx, entsql.EQ("batch_id", batchID))
}

func (r *questionRepo) query(ctx context.Context, pred *entsql.Predicate) ([]problemgen.Question, error) {
	b := builder()
	query, args := b.Select(questionColumns...).
		From(b.Table(questionsTable)).
		Where(pred).
		OrderBy("created_at", "id").
		Query()

	var rows entsql.Rows
	if err := r.drv.Query(ctx, query, args, &rows); err != nil {
		return nil, fmt.Errorf("query questions: %w", err)
	}
	defer rows.Close()

	var out []problemgen.Question
	for rows.Next() {
		var (
			q                  problemgen.Question
			seed               string
			instance, accepted sql.NullString
		)
		if err := rows.Scan(&q.ID, &q.BatchID, &q.TemplateID, &q.TemplateVersion, &q.IsDynamic,
			&seed, &instance, &accepted); err != nil {
			return nil, fmt.Errorf("scan question: %w", err)
		}
		q.Seed = problemgen.Seed(seed)
		if instance.Valid {
			q.Instance = &problemgen.ProblemInstance{}
			if err := json.Unmarshal([]byte(instance.String), q.Instance); err != nil {
				return nil, fmt.Errorf("decode instance of question %s: %w", q.ID, err)
			}
		}
		if accepted.Valid {
			if err := json.Unmarshal([]byte(accepted.String), &q.AcceptedSet); err != nil {
				return nil, fmt.Errorf("decode accepted set of question %s: %w", q.ID, err)
			}
		}
		out = append(out, q)
	}
	return out, rows.Err()
}

// nullJSON marshals v, or returns SQL NULL when null is set.
func nullJSON(v any, null bool) (sql.NullString, error) {
	if null {
		return sql.NullString{}, nil
	}
	b, err := json.Marshal(v)
	if err != nil {
		return sql.NullString{}, err
	}
	return sql.NullString{String: string(b), Valid: true}, nil
}
