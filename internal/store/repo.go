package store

import (
	"context"
	"time"

	"github.com/abhisek/probgen/internal/problemgen"
	"github.com/abhisek/probgen/internal/template"
)

// QueryOpts configures event queries with filtering and pagination.
type QueryOpts struct {
	Limit      int       // max results (0 = unlimited)
	After      int64     // sequence > After
	Before     int64     // sequence < Before
	From       time.Time // timestamp >= From
	To         time.Time // timestamp <= To
	TemplateID string    // exact match when set
}

// ListOpts configures template listing.
type ListOpts struct {
	Category        string
	IncludeInactive bool
	Limit           int
	Offset          int
}

// TemplateRepo stores templates and their immutable version snapshots.
type TemplateRepo interface {
	// Save validates nothing; it assigns an id when t.ID is empty, bumps the
	// version, snapshots the document and returns the stored template.
	Save(ctx context.Context, t *template.ProblemTemplate) (*template.ProblemTemplate, error)

	// Get returns the latest version of a template, active or not.
	Get(ctx context.Context, id string) (*template.ProblemTemplate, error)

	// TemplateVersion returns the snapshot saved as version.
	TemplateVersion(ctx context.Context, id string, version int) (*template.ProblemTemplate, error)

	// List returns templates ordered by name.
	List(ctx context.Context, opts ListOpts) ([]*template.ProblemTemplate, error)

	// SoftDelete marks a template inactive.
	SoftDelete(ctx context.Context, id string) error
}

// QuestionRepo stores published questions.
type QuestionRepo interface {
	// SaveQuestions writes the batch in one transaction.
	SaveQuestions(ctx context.Context, qs []problemgen.Question) error

	// Get returns one question by id.
	Get(ctx context.Context, id string) (*problemgen.Question, error)

	// ListByBatch returns the questions of one publish batch.
	ListByBatch(ctx context.Context, batchID string) ([]problemgen.Question, error)
}

// Operation names what a generation event records.
type Operation string

const (
	OpPreview    Operation = "preview"
	OpPublish    Operation = "publish"
	OpRegenerate Operation = "regenerate"
	OpGrade      Operation = "grade"
)

// GenerationEventData captures one engine operation.
type GenerationEventData struct {
	Operation       Operation
	TemplateID      string
	TemplateVersion int
	BatchID         string
	Requested       int
	Succeeded       int
	Stage           string
	ErrorMessage    string
	LatencyMs       int64
}

// GenerationEvent is a stored GenerationEventData with its ordering.
type GenerationEvent struct {
	Sequence  int64
	Timestamp time.Time
	GenerationEventData
}

// EventRepo provides append and query access to generation events.
type EventRepo interface {
	// AppendGeneration records an engine operation.
	AppendGeneration(ctx context.Context, data GenerationEventData) error

	// Query returns events ordered by sequence.
	Query(ctx context.Context, opts QueryOpts) ([]GenerationEvent, error)
}
