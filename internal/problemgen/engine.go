package problemgen

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/abhisek/probgen/internal/expr"
	"github.com/abhisek/probgen/internal/template"
)

// TemplateSource fetches a pinned template version for regeneration.
type TemplateSource interface {
	TemplateVersion(ctx context.Context, id string, version int) (*template.ProblemTemplate, error)
}

// QuestionWriter persists one publish batch. Implementations must write
// all questions or none.
type QuestionWriter interface {
	SaveQuestions(ctx context.Context, questions []Question) error
}

// Observer receives the outcome of every generation run. stage is
// StageComplete on success.
type Observer interface {
	ObserveGeneration(templateID string, stage Stage, elapsed time.Duration)
}

// Engine sequences sampling, resolution, options and rendering into
// problem instances. It holds no per-run state and is safe for concurrent
// use.
type Engine struct {
	cfg      Config
	eval     *expr.Evaluator
	source   TemplateSource
	logger   *zap.Logger
	tracer   trace.Tracer
	observer Observer
}

// Option configures an Engine.
type Option func(*Engine)

// WithLogger sets the engine logger.
func WithLogger(l *zap.Logger) Option {
	return func(e *Engine) { e.logger = l }
}

// WithTracer sets the tracer used for generation spans.
func WithTracer(t trace.Tracer) Option {
	return func(e *Engine) { e.tracer = t }
}

// WithObserver sets the generation observer.
func WithObserver(o Observer) Option {
	return func(e *Engine) { e.observer = o }
}

// New creates an Engine. source may be nil when RegenerateFromSeed is not
// needed.
func New(cfg Config, source TemplateSource, opts ...Option) *Engine {
	if cfg.EvalTimeout <= 0 {
		cfg.EvalTimeout = expr.DefaultTimeout
	}
	if cfg.MaxOptionAttempts <= 0 {
		cfg.MaxOptionAttempts = 1
	}
	if cfg.Workers <= 0 {
		cfg.Workers = 1
	}
	cfg.Validators = withEvalTimeout(cfg.Validators, cfg.EvalTimeout)
	e := &Engine{
		cfg:    cfg,
		eval:   expr.NewEvaluator(cfg.EvalTimeout),
		source: source,
		logger: zap.NewNop(),
		tracer: otel.Tracer("github.com/abhisek/probgen/internal/problemgen"),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// withEvalTimeout returns a copy of validators in which every
// MathCheckValidator uses timeout.
func withEvalTimeout(validators []Validator, timeout time.Duration) []Validator {
	out := make([]Validator, len(validators))
	for i, v := range validators {
		if _, ok := v.(*MathCheckValidator); ok {
			v = &MathCheckValidator{Timeout: timeout}
		}
		out[i] = v
	}
	return out
}

// Preview generates one instance with a fresh seed and returns it with the
// full resolved scope. Nothing is persisted.
func (e *Engine) Preview(ctx context.Context, t *template.ProblemTemplate) (*ProblemInstance, Scope, error) {
	if err := e.validate(t); err != nil {
		return nil, nil, err
	}
	inst, err := e.generateFresh(ctx, t)
	if err != nil {
		return nil, nil, err
	}
	return inst, inst.Scope(), nil
}

// Regenerate re-runs the pipeline for t with seed.
func (e *Engine) Regenerate(ctx context.Context, t *template.ProblemTemplate, seed Seed) (*ProblemInstance, error) {
	if err := e.validate(t); err != nil {
		return nil, err
	}
	return e.generate(ctx, t, seed)
}

// RegenerateFromSeed fetches the pinned template version and deterministically
// rebuilds the instance generated from seed.
func (e *Engine) RegenerateFromSeed(ctx context.Context, templateID string, version int, seed Seed) (*ProblemInstance, error) {
	if e.source == nil {
		return nil, ErrNoTemplateSource
	}
	t, err := e.source.TemplateVersion(ctx, templateID, version)
	if err != nil {
		return nil, fmt.Errorf("load template %s@%d: %w", templateID, version, err)
	}
	return e.Regenerate(ctx, t, seed)
}

// PublishRequest describes a publish batch.
type PublishRequest struct {
	Count int         `json:"count"`
	Mode  PublishMode `json:"mode"`

	// AllOrNothing fails the whole batch on the first failed item.
	// Otherwise failed items are reported and the rest are published.
	AllOrNothing bool `json:"allOrNothing"`
}

// ItemFailure records one failed item of a batch.
type ItemFailure struct {
	Index int    `json:"index"`
	Stage Stage  `json:"stage,omitempty"`
	Error string `json:"error"`
}

// PublishResult is what a batch produced.
type PublishResult struct {
	BatchID   string        `json:"batchId"`
	Questions []Question    `json:"questions"`
	Failures  []ItemFailure `json:"failures,omitempty"`
}

// Publish generates req.Count instances concurrently and hands every
// successful one to w in a single call. Cancelling ctx stops new
// generations and nothing is written.
func (e *Engine) Publish(ctx context.Context, t *template.ProblemTemplate, req PublishRequest, w QuestionWriter) (*PublishResult, error) {
	if req.Count <= 0 {
		return nil, fmt.Errorf("publish count must be positive, got %d", req.Count)
	}
	if e.cfg.MaxPublishCount > 0 && req.Count > e.cfg.MaxPublishCount {
		return nil, fmt.Errorf("publish count %d exceeds limit %d", req.Count, e.cfg.MaxPublishCount)
	}
	if !req.Mode.Valid() {
		return nil, fmt.Errorf("unknown publish mode %q", req.Mode)
	}
	if err := e.validate(t); err != nil {
		return nil, err
	}

	ctx, span := e.tracer.Start(ctx, "problemgen.Publish", trace.WithAttributes(
		attribute.String("template.id", t.ID),
		attribute.Int("publish.count", req.Count),
		attribute.String("publish.mode", string(req.Mode)),
	))
	defer span.End()

	instances := make([]*ProblemInstance, req.Count)
	failures := make([]error, req.Count)

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(e.cfg.Workers)
	for i := range req.Count {
		if gctx.Err() != nil {
			break
		}
		g.Go(func() error {
			inst, err := e.generateFresh(gctx, t)
			if err != nil {
				failures[i] = err
				if req.AllOrNothing {
					return fmt.Errorf("item %d: %w", i, err)
				}
				return nil
			}
			instances[i] = inst
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "publish failed")
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	res := &PublishResult{BatchID: uuid.NewString()}
	for i, inst := range instances {
		if inst == nil {
			f := ItemFailure{Index: i, Stage: StageOf(failures[i])}
			if failures[i] != nil {
				f.Error = failures[i].Error()
			}
			res.Failures = append(res.Failures, f)
			continue
		}
		q := Question{
			ID:              uuid.NewString(),
			BatchID:         res.BatchID,
			IsDynamic:       req.Mode == ModeDynamic,
			TemplateID:      t.ID,
			TemplateVersion: t.Version,
			Seed:            inst.Seed,
		}
		if req.Mode == ModeStatic {
			q.Instance = inst
		}
		res.Questions = append(res.Questions, q)
	}
	if len(res.Questions) == 0 {
		return nil, fmt.Errorf("publish template %s: all %d generations failed: %w", t.ID, req.Count, errors.Join(failures...))
	}

	if w != nil {
		if err := w.SaveQuestions(ctx, res.Questions); err != nil {
			return nil, fmt.Errorf("save questions: %w", err)
		}
	}
	e.logger.Info("published questions",
		zap.String("template_id", t.ID),
		zap.String("batch_id", res.BatchID),
		zap.String("mode", string(req.Mode)),
		zap.Int("published", len(res.Questions)),
		zap.Int("failed", len(res.Failures)),
	)
	span.SetAttributes(attribute.Int("publish.published", len(res.Questions)))
	return res, nil
}

func (e *Engine) validate(t *template.ProblemTemplate) error {
	if t == nil {
		return &GenerationError{Stage: StageValidating, Err: errors.New("template is nil")}
	}
	if err := template.Validate(t); err != nil {
		return &GenerationError{TemplateID: t.ID, Stage: StageValidating, Err: err}
	}
	return nil
}

// generateFresh runs the pipeline with new seeds until it succeeds, fails
// with a non-retryable error, or MaxOptionAttempts is exhausted.
func (e *Engine) generateFresh(ctx context.Context, t *template.ProblemTemplate) (*ProblemInstance, error) {
	var lastErr error
	for attempt := 0; attempt < e.cfg.MaxOptionAttempts; attempt++ {
		inst, err := e.generate(ctx, t, NewSeed())
		if err == nil {
			return inst, nil
		}
		lastErr = err
		if !retryable(err) {
			return nil, err
		}
		e.logger.Debug("retrying generation",
			zap.String("template_id", t.ID),
			zap.Int("attempt", attempt+1),
			zap.Error(err),
		)
	}
	return nil, lastErr
}

func retryable(err error) bool {
	if errors.Is(err, ErrInsufficientDistinctOptions) {
		return true
	}
	var verr *ValidationError
	return errors.As(err, &verr) && verr.Retryable
}

// generate runs every stage once for seed.
func (e *Engine) generate(ctx context.Context, t *template.ProblemTemplate, seed Seed) (*ProblemInstance, error) {
	ctx, span := e.tracer.Start(ctx, "problemgen.generate", trace.WithAttributes(
		attribute.String("template.id", t.ID),
		attribute.Int("template.version", t.Version),
		attribute.String("seed", string(seed)),
	))
	defer span.End()
	start := time.Now()

	fail := func(stage Stage, err error) error {
		gerr := &GenerationError{TemplateID: t.ID, Stage: stage, Seed: seed, Err: err}
		span.RecordError(gerr)
		span.SetStatus(codes.Error, string(stage))
		if e.observer != nil {
			e.observer.ObserveGeneration(t.ID, stage, time.Since(start))
		}
		e.logger.Debug("generation failed",
			zap.String("template_id", t.ID),
			zap.String("stage", string(stage)),
			zap.String("seed", string(seed)),
			zap.Error(err),
		)
		return gerr
	}

	if err := ctx.Err(); err != nil {
		return nil, fail(StageSampling, err)
	}
	rng := NewRand(seed, t.ID, t.Version)

	params, err := sample(e.eval, t.Parameters, rng)
	if err != nil {
		return nil, fail(StageSampling, err)
	}
	span.AddEvent(string(StageSampling))

	scope, err := resolve(e.eval, t.ComputedVars, params)
	if err != nil {
		return nil, fail(StageComputingVars, err)
	}
	span.AddEvent(string(StageComputingVars))

	answer, err := resolveAnswer(e.eval, t.AnswerFormula, scope, t.AnswerFormat, t.QuestionType)
	if err != nil {
		return nil, fail(StageResolvingAnswer, err)
	}

	inst := &ProblemInstance{
		TemplateID:       t.ID,
		TemplateVersion:  t.Version,
		Seed:             seed,
		QuestionType:     t.QuestionType,
		Difficulty:       t.Difficulty,
		ResolvedParams:   params,
		ResolvedComputed: make(Scope, len(t.ComputedVars)),
		Answer:           answer,
		Linkage:          t.Linkage,
		Tags:             t.Tags,
	}
	for _, v := range t.ComputedVars {
		inst.ResolvedComputed[v.Name] = scope[v.Name]
	}

	if t.QuestionType == template.QuestionMultipleChoice {
		if t.OptionsGenerator == nil {
			return nil, fail(StageGeneratingOptions, errors.New("no options generator"))
		}
		opts, err := generateOptions(e.eval, answer.Value, *t.OptionsGenerator, scope, answer.Decimals, rng)
		if err != nil {
			return nil, fail(StageGeneratingOptions, err)
		}
		inst.Options = opts.Options
		inst.CorrectOption = opts.Correct()
	}

	scope[template.AnswerName] = Value{Display: answer.Display(), Number: answer.Value, Numeric: answer.Kind == AnswerNumeric, Text: answer.Text}
	if inst.QuestionText, inst.Explanation, inst.SolutionSteps, err = renderAll(t, scope); err != nil {
		return nil, fail(StageRendering, err)
	}

	for _, v := range e.cfg.Validators {
		if verr := v.Validate(inst, t); verr != nil {
			return nil, fail(StageChecking, verr)
		}
	}

	if e.observer != nil {
		e.observer.ObserveGeneration(t.ID, StageComplete, time.Since(start))
	}
	return inst, nil
}
