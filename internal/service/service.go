// Package service wires the template store, the generation engine and
// grading into the operations exposed by the CLI and the HTTP API.
package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/sahilm/fuzzy"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/abhisek/probgen/internal/grading"
	"github.com/abhisek/probgen/internal/metrics"
	"github.com/abhisek/probgen/internal/problemgen"
	"github.com/abhisek/probgen/internal/store"
	"github.com/abhisek/probgen/internal/template"
)

var (
	// ErrTemplateInactive is returned when publishing a soft-deleted template.
	ErrTemplateInactive = errors.New("template is inactive")

	// ErrNotFound aliases store.ErrNotFound for callers of this package.
	ErrNotFound = store.ErrNotFound
)

// Service is safe for concurrent use.
type Service struct {
	store   *store.Store
	engine  *problemgen.Engine
	grader  *grading.Grader
	metrics *metrics.Metrics
	logger  *zap.Logger
}

type options struct {
	logger  *zap.Logger
	metrics *metrics.Metrics
	tracer  trace.Tracer
}

// Option configures a Service.
type Option func(*options)

func WithLogger(l *zap.Logger) Option { return func(o *options) { o.logger = l } }

// WithMetrics records engine, publish and grading metrics in m.
func WithMetrics(m *metrics.Metrics) Option { return func(o *options) { o.metrics = m } }

func WithTracer(t trace.Tracer) Option { return func(o *options) { o.tracer = t } }

// New builds a Service over st using engine settings cfg.
func New(st *store.Store, cfg problemgen.Config, opts ...Option) *Service {
	o := options{logger: zap.NewNop()}
	for _, opt := range opts {
		opt(&o)
	}

	engineOpts := []problemgen.Option{problemgen.WithLogger(o.logger.Named("engine"))}
	if o.metrics != nil {
		engineOpts = append(engineOpts, problemgen.WithObserver(o.metrics))
	}
	if o.tracer != nil {
		engineOpts = append(engineOpts, problemgen.WithTracer(o.tracer))
	}
	engine := problemgen.New(cfg, st.Templates(), engineOpts...)

	return &Service{
		store:   st,
		engine:  engine,
		grader:  grading.New(engine, o.logger.Named("grading")),
		metrics: o.metrics,
		logger:  o.logger,
	}
}

// Engine returns the underlying generation engine.
func (s *Service) Engine() *problemgen.Engine { return s.engine }

// ValidateTemplate reports every problem with t. An empty result means t
// can be saved and generated from.
func (s *Service) ValidateTemplate(t *template.ProblemTemplate) []template.ValidationError {
	return template.ValidateTemplate(t)
}

// SaveTemplate validates t and stores it as a new version. A new template
// gets an id and version 1.
func (s *Service) SaveTemplate(ctx context.Context, t *template.ProblemTemplate) (*template.ProblemTemplate, error) {
	if err := template.Validate(t); err != nil {
		return nil, err
	}
	saved, err := s.store.Templates().Save(ctx, t)
	if err != nil {
		return nil, fmt.Errorf("save template: %w", err)
	}
	s.logger.Info("saved template",
		zap.String("template_id", saved.ID),
		zap.Int("version", saved.Version),
	)
	return saved, nil
}

func (s *Service) GetTemplate(ctx context.Context, id string) (*template.ProblemTemplate, error) {
	return s.store.Templates().Get(ctx, id)
}

// TemplateVersion returns a stored snapshot of template id.
func (s *Service) TemplateVersion(ctx context.Context, id string, version int) (*template.ProblemTemplate, error) {
	return s.store.Templates().TemplateVersion(ctx, id, version)
}

// ListQuery filters template listings.
type ListQuery struct {
	Category        string
	IncludeInactive bool

	// Search fuzzy-matches name, id, category and tags and orders the
	// result by match quality.
	Search string

	Limit  int
	Offset int
}

// ListTemplates returns templates matching q.
func (s *Service) ListTemplates(ctx context.Context, q ListQuery) ([]*template.ProblemTemplate, error) {
	if q.Search == "" {
		return s.store.Templates().List(ctx, store.ListOpts{
			Category:        q.Category,
			IncludeInactive: q.IncludeInactive,
			Limit:           q.Limit,
			Offset:          q.Offset,
		})
	}

	all, err := s.store.Templates().List(ctx, store.ListOpts{
		Category:        q.Category,
		IncludeInactive: q.IncludeInactive,
	})
	if err != nil {
		return nil, err
	}
	results := Search(all, q.Search)
	return page(results, q.Offset, q.Limit), nil
}

// Search ranks templates by fuzzy match against query.
func Search(templates []*template.ProblemTemplate, query string) []*template.ProblemTemplate {
	if query == "" {
		return templates
	}
	searchStrings := make([]string, len(templates))
	for i, t := range templates {
		searchStrings[i] = fmt.Sprintf("%s %s %s %s", t.Name, t.ID, t.Category, strings.Join(t.Tags, " "))
	}
	matches := fuzzy.Find(query, searchStrings)
	results := make([]*template.ProblemTemplate, 0, len(matches))
	for _, m := range matches {
		results = append(results, templates[m.Index])
	}
	return results
}

func page[T any](items []T, offset, limit int) []T {
	if offset >= len(items) {
		return nil
	}
	items = items[offset:]
	if limit > 0 && limit < len(items) {
		items = items[:limit]
	}
	return items
}

// DeleteTemplate soft-deletes a template. Published questions keep
// regenerating from their pinned versions.
func (s *Service) DeleteTemplate(ctx context.Context, id string) error {
	if err := s.store.Templates().SoftDelete(ctx, id); err != nil {
		return err
	}
	s.logger.Info("deactivated template", zap.String("template_id", id))
	return nil
}

// PreviewResult is one generated instance plus the full scope it was
// rendered from.
type PreviewResult struct {
	Instance *problemgen.ProblemInstance `json:"instance"`
	Scope    problemgen.Scope            `json:"scope"`
}

// Preview generates one instance of a stored template. Nothing is
// persisted except the generation event.
func (s *Service) Preview(ctx context.Context, id string) (*PreviewResult, error) {
	t, err := s.store.Templates().Get(ctx, id)
	if err != nil {
		return nil, err
	}
	return s.PreviewTemplate(ctx, t)
}

// PreviewTemplate generates one instance of a template draft that need
// not be saved.
func (s *Service) PreviewTemplate(ctx context.Context, t *template.ProblemTemplate) (*PreviewResult, error) {
	start := time.Now()
	inst, scope, err := s.engine.Preview(ctx, t)
	s.record(ctx, store.GenerationEventData{
		Operation:       store.OpPreview,
		TemplateID:      t.ID,
		TemplateVersion: t.Version,
		Requested:       1,
		Succeeded:       boolInt(err == nil),
	}, start, err)
	if err != nil {
		return nil, err
	}
	return &PreviewResult{Instance: inst, Scope: scope}, nil
}

// Regenerate rebuilds the instance a stored template produces for seed.
func (s *Service) Regenerate(ctx context.Context, id string, version int, seed problemgen.Seed) (*problemgen.ProblemInstance, error) {
	start := time.Now()
	inst, err := s.engine.RegenerateFromSeed(ctx, id, version, seed)
	s.record(ctx, store.GenerationEventData{
		Operation:       store.OpRegenerate,
		TemplateID:      id,
		TemplateVersion: version,
		Requested:       1,
		Succeeded:       boolInt(err == nil),
	}, start, err)
	return inst, err
}

// Publish generates and stores req.Count questions from the latest
// version of template id.
func (s *Service) Publish(ctx context.Context, id string, req problemgen.PublishRequest) (*problemgen.PublishResult, error) {
	t, err := s.store.Templates().Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if !t.IsActive {
		return nil, fmt.Errorf("publish %s: %w", id, ErrTemplateInactive)
	}

	start := time.Now()
	res, err := s.engine.Publish(ctx, t, req, s.store.Questions())
	data := store.GenerationEventData{
		Operation:       store.OpPublish,
		TemplateID:      t.ID,
		TemplateVersion: t.Version,
		Requested:       req.Count,
	}
	if res != nil {
		data.BatchID = res.BatchID
		data.Succeeded = len(res.Questions)
	}
	s.record(ctx, data, start, err)
	if err != nil {
		return nil, err
	}
	if s.metrics != nil {
		s.metrics.ObservePublish(req.Mode, len(res.Questions))
	}
	return res, nil
}

func (s *Service) GetQuestion(ctx context.Context, id string) (*problemgen.Question, error) {
	return s.store.Questions().Get(ctx, id)
}

// QuestionInstance returns the instance a learner is shown for question
// id, regenerating dynamic questions from their seed.
func (s *Service) QuestionInstance(ctx context.Context, id string) (*problemgen.ProblemInstance, error) {
	q, err := s.store.Questions().Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if !q.IsDynamic {
		if q.Instance == nil {
			return nil, fmt.Errorf("question %s: %w", id, grading.ErrTemplateVersionMismatch)
		}
		return q.Instance, nil
	}
	return s.Regenerate(ctx, q.TemplateID, q.TemplateVersion, q.Seed)
}

// Grade grades submitted against stored question id.
func (s *Service) Grade(ctx context.Context, questionID, submitted string) (grading.GradeResult, error) {
	q, err := s.store.Questions().Get(ctx, questionID)
	if err != nil {
		return grading.GradeResult{}, err
	}
	return s.GradeQuestion(ctx, q, submitted)
}

// GradeQuestion grades submitted against a question supplied by the
// caller, such as one persisted outside this store.
func (s *Service) GradeQuestion(ctx context.Context, q *problemgen.Question, submitted string) (grading.GradeResult, error) {
	start := time.Now()
	res, err := s.grader.Grade(ctx, q, submitted)
	if s.metrics != nil {
		s.metrics.ObserveGrade(res.IsCorrect, err)
	}
	s.record(ctx, store.GenerationEventData{
		Operation:       store.OpGrade,
		TemplateID:      q.TemplateID,
		TemplateVersion: q.TemplateVersion,
		Requested:       1,
		Succeeded:       boolInt(err == nil),
	}, start, err)
	return res, err
}

// Events returns recorded generation events.
func (s *Service) Events(ctx context.Context, opts store.QueryOpts) ([]store.GenerationEvent, error) {
	return s.store.Events().Query(ctx, opts)
}

// record appends a generation event. Failing to record never fails the
// operation.
func (s *Service) record(ctx context.Context, data store.GenerationEventData, start time.Time, opErr error) {
	data.LatencyMs = time.Since(start).Milliseconds()
	if opErr != nil {
		data.ErrorMessage = opErr.Error()
		data.Stage = string(problemgen.StageOf(opErr))
	}
	if err := s.store.Events().AppendGeneration(context.WithoutCancel(ctx), data); err != nil {
		s.logger.Warn("failed to record generation event",
			zap.String("operation", string(data.Operation)),
			zap.String("template_id", data.TemplateID),
			zap.Error(err),
		)
	}
	if opErr != nil {
		s.logger.Info("operation failed",
			zap.String("operation", string(data.Operation)),
			zap.String("template_id", data.TemplateID),
			zap.String("stage", data.Stage),
			zap.Error(opErr),
		)
	}
}

func boolInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
