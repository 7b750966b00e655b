package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"entgo.io/ent/dialect"
	entsql "entgo.io/ent/dialect/sql"
	"github.com/google/uuid"

	"github.com/abhisek/probgen/internal/template"
)

// templateRepo implements TemplateRepo with ent SQL builders.
type templateRepo struct {
	drv *entsql.Driver
}

func (r *templateRepo) Save(ctx context.Context, t *template.ProblemTemplate) (*template.ProblemTemplate, error) {
	saved := *t
	if saved.ID == "" {
		saved.ID = uuid.NewString()
	}

	err := withTx(ctx, r.drv, func(tx dialect.Tx) error {
		current, err := currentVersion(ctx, tx, saved.ID)
		if err != nil {
			return err
		}
		saved.Version = current + 1

		doc, err := json.Marshal(&saved)
		if err != nil {
			return fmt.Errorf("marshal template: %w", err)
		}
		tags, err := json.Marshal(saved.Tags)
		if err != nil {
			return fmt.Errorf("marshal tags: %w", err)
		}
		now := time.Now().UTC()

		var query string
		var args []any
		if current == 0 {
			query, args = builder().Insert(templatesTable).
				Columns("id", "name", "category", "subcategory", "difficulty", "question_type",
					"is_active", "version", "tags", "document", "created_at", "updated_at").
				Values(saved.ID, saved.Name, saved.Category, saved.Subcategory, string(saved.Difficulty),
					string(saved.QuestionType), saved.IsActive, saved.Version, string(tags), string(doc), now, now).
				Query()
		} else {
			query, args = builder().Update(templatesTable).
				Set("name", saved.Name).
				Set("category", saved.Category).
				Set("subcategory", saved.Subcategory).
				Set("difficulty", string(saved.Difficulty)).
				Set("question_type", string(saved.QuestionType)).
				Set("is_active", saved.IsActive).
				Set("version", saved.Version).
				Set("tags", string(tags)).
				Set("document", string(doc)).
				Set("updated_at", now).
				Where(entsql.EQ("id", saved.ID)).
				Query()
		}
		if err := tx.Exec(ctx, query, args, nil); err != nil {
			return fmt.Errorf("save template: %w", err)
		}

		query, args = builder().Insert(templateVersionsTable).
			Columns("template_id", "version", "document", "created_at").
			Values(saved.ID, saved.Version, string(doc), now).
			Query()
		if err := tx.Exec(ctx, query, args, nil); err != nil {
			return fmt.Errorf("snapshot template version: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &saved, nil
}

// currentVersion returns the stored version of id, or 0 if it is new.
func currentVersion(ctx context.Context, q dialect.ExecQuerier, id string) (int, error) {
	b := builder()
	query, args := b.Select("version").
		From(b.Table(templatesTable)).
		Where(entsql.EQ("id", id)).
		Query()
	var rows entsql.Rows
	if err := q.Query(ctx, query, args, &rows); err != nil {
		return 0, fmt.Errorf("query template version: %w", err)
	}
	defer rows.Close()
	if !rows.Next() {
		return 0, rows.Err()
	}
	var v int
	if err := rows.Scan(&v); err != nil {
		return 0, fmt.Errorf("scan template version: %w", err)
	}
	return v, nil
}

func (r *templateRepo) Get(ctx context.Context, id string) (*template.ProblemTemplate, error) {
	b := builder()
	query, args := b.Select("document", "is_active").
		From(b.Table(templatesTable)).
		Where(entsql.EQ("id", id)).
		Query()
	ts, err := r.queryDocuments(ctx, query, args)
	if err != nil {
		return nil, err
	}
	if len(ts) == 0 {
		return nil, fmt.Errorf("template %s: %w", id, ErrNotFound)
	}
	return ts[0], nil
}

func (r *templateRepo) TemplateVersion(ctx context.Context, id string, version int) (*template.ProblemTemplate, error) {
	b := builder()
	query, args := b.Select("document").
		From(b.Table(templateVersionsTable)).
		Where(entsql.And(entsql.EQ("template_id", id), entsql.EQ("version", version))).
		Query()
	var rows entsql.Rows
	if err := r.drv.Query(ctx, query, args, &rows); err != nil {
		return nil, fmt.Errorf("query template version: %w", err)
	}
	defer rows.Close()
	if !rows.Next() {
		if err := rows.Err(); err != nil {
			return nil, err
		}
		return nil, fmt.Errorf("template %s version %d: %w", id, version, ErrNotFound)
	}
	var doc []byte
	if err := rows.Scan(&doc); err != nil {
		return nil, fmt.Errorf("scan template version: %w", err)
	}
	var t template.ProblemTemplate
	if err := json.Unmarshal(doc, &t); err != nil {
		return nil, fmt.Errorf("decode template version: %w", err)
	}
	return &t, nil
}

func (r *templateRepo) List(ctx context.Context, opts ListOpts) ([]*template.ProblemTemplate, error) {
	b := builder()
	sel := b.Select("document", "is_active").
		From(b.Table(templatesTable)).
		OrderBy("name", "id")

	var preds []*entsql.Predicate
	if !opts.IncludeInactive {
		preds = append(preds, entsql.EQ("is_active", true))
	}
	if opts.Category != "" {
		preds = append(preds, entsql.EQ("category", opts.Category))
	}
	if len(preds) > 0 {
		sel.Where(entsql.And(preds...))
	}
	if opts.Limit > 0 {
		sel.Limit(opts.Limit)
		if opts.Offset > 0 {
			sel.Offset(opts.Offset)
		}
	}
	query, args := sel.Query()
	return r.queryDocuments(ctx, query, args)
}

func (r *templateRepo) SoftDelete(ctx context.Context, id string) error {
	query, args := builder().Update(templatesTable).
		Set("is_active", false).
		Set("updated_at", time.Now().UTC()).
		Where(entsql.EQ("id", id)).
		Query()
	var res sql.Result
	if err := r.drv.Exec(ctx, query, args, &res); err != nil {
		return fmt.Errorf("soft delete template: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("soft delete template: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("template %s: %w", id, ErrNotFound)
	}
	return nil
}

// queryDocuments runs a (document, is_active) select. The is_active column
// is authoritative over the flag stored in the document.
func (r *templateRepo) queryDocuments(ctx context.Context, query string, args []any) ([]*template.ProblemTemplate, error) {
	var rows entsql.Rows
	if err := r.drv.Query(ctx, query, args, &rows); err != nil {
		return nil, fmt.Errorf("query templates: %w", err)
	}
	defer rows.Close()

	var out []*template.ProblemTemplate
	for rows.Next() {
		var (
			doc    []byte
			active bool
		)
		if err := rows.Scan(&doc, &active); err != nil {
			return nil, fmt.Errorf("scan template: %w", err)
		}
		var t template.ProblemTemplate
		if err := json.Unmarshal(doc, &t); err != nil {
			return nil, fmt.Errorf("decode template: %w", err)
		}
		t.IsActive = active
		out = append(out, &t)
	}
	return out, rows.Err()
}
