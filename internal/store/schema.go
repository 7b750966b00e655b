package store

import (
	"entgo.io/ent/dialect/sql/schema"
	"entgo.io/ent/schema/field"
)

const (
	templatesTable        = "problem_templates"
	templateVersionsTable = "template_versions"
	questionsTable        = "questions"
	generationEventsTable = "generation_events"
)

var (
	// ProblemTemplatesColumns holds the columns for the "problem_templates" table.
	ProblemTemplatesColumns = []*schema.Column{
		{Name: "id", Type: field.TypeString, Unique: true},
		{Name: "name", Type: field.TypeString},
		{Name: "category", Type: field.TypeString, Default: ""},
		{Name: "subcategory", Type: field.TypeString, Default: ""},
		{Name: "difficulty", Type: field.TypeString},
		{Name: "question_type", Type: field.TypeString},
		{Name: "is_active", Type: field.TypeBool, Default: true},
		{Name: "version", Type: field.TypeInt},
		{Name: "tags", Type: field.TypeJSON, Nullable: true},
		{Name: "document", Type: field.TypeJSON},
		{Name: "created_at", Type: field.TypeTime},
		{Name: "updated_at", Type: field.TypeTime},
	}
	// ProblemTemplatesTable holds the schema information for the "problem_templates" table.
	ProblemTemplatesTable = &schema.Table{
		Name:       templatesTable,
		Columns:    ProblemTemplatesColumns,
		PrimaryKey: []*schema.Column{ProblemTemplatesColumns[0]},
		Indexes: []*schema.Index{
			{Name: "problemtemplate_category", Columns: []*schema.Column{ProblemTemplatesColumns[2]}},
			{Name: "problemtemplate_is_active", Columns: []*schema.Column{ProblemTemplatesColumns[6]}},
		},
	}

	// TemplateVersionsColumns holds the columns for the "template_versions" table.
	TemplateVersionsColumns = []*schema.Column{
		{Name: "id", Type: field.TypeInt, Increment: true},
		{Name: "template_id", Type: field.TypeString},
		{Name: "version", Type: field.TypeInt},
		{Name: "document", Type: field.TypeJSON},
		{Name: "created_at", Type: field.TypeTime},
	}
	// TemplateVersionsTable holds the schema information for the "template_versions" table.
	TemplateVersionsTable = &schema.Table{
		Name:       templateVersionsTable,
		Columns:    TemplateVersionsColumns,
		PrimaryKey: []*schema.Column{TemplateVersionsColumns[0]},
		ForeignKeys: []*schema.ForeignKey{
			{
				Symbol:     "template_versions_problem_templates_versions",
				Columns:    []*schema.Column{TemplateVersionsColumns[1]},
				RefColumns: []*schema.Column{ProblemTemplatesColumns[0]},
				OnDelete:   schema.Cascade,
			},
		},
		Indexes: []*schema.Index{
			{Name: "templateversion_template_id_version", Unique: true, Columns: []*schema.Column{TemplateVersionsColumns[1], TemplateVersionsColumns[2]}},
		},
	}

	// QuestionsColumns holds the columns for the "questions" table.
	QuestionsColumns = []*schema.Column{
		{Name: "id", Type: field.TypeString, Unique: true},
		{Name: "batch_id", Type: field.TypeString, Default: ""},
		{Name: "template_id", Type: field.TypeString},
		{Name: "template_version", Type: field.TypeInt},
		{Name: "is_dynamic", Type: field.TypeBool},
		{Name: "seed", Type: field.TypeString},
		{Name: "instance", Type: field.TypeJSON, Nullable: true},
		{Name: "accepted_set", Type: field.TypeJSON, Nullable: true},
		{Name: "created_at", Type: field.TypeTime},
	}
	// QuestionsTable holds the schema information for the "questions" table.
	QuestionsTable = &schema.Table{
		Name:       questionsTable,
		Columns:    QuestionsColumns,
		PrimaryKey: []*schema.Column{QuestionsColumns[0]},
		Indexes: []*schema.Index{
			{Name: "question_batch_id", Columns: []*schema.Column{QuestionsColumns[1]}},
			{Name: "question_template_id", Columns: []*schema.Column{QuestionsColumns[2]}},
		},
	}

	// GenerationEventsColumns holds the columns for the "generation_events" table.
	GenerationEventsColumns = []*schema.Column{
		{Name: "id", Type: field.TypeInt, Increment: true},
		{Name: "sequence", Type: field.TypeInt64, Unique: true},
		{Name: "timestamp", Type: field.TypeTime},
		{Name: "operation", Type: field.TypeString},
		{Name: "template_id", Type: field.TypeString},
		{Name: "template_version", Type: field.TypeInt},
		{Name: "batch_id", Type: field.TypeString, Default: ""},
		{Name: "requested", Type: field.TypeInt},
		{Name: "succeeded", Type: field.TypeInt},
		{Name: "stage", Type: field.TypeString, Default: ""},
		{Name: "error_message", Type: field.TypeString, Default: ""},
		{Name: "latency_ms", Type: field.TypeInt64},
	}
	// GenerationEventsTable holds the schema information for the "generation_events" table.
	GenerationEventsTable = &schema.Table{
		Name:       generationEventsTable,
		Columns:    GenerationEventsColumns,
		PrimaryKey: []*schema.Column{GenerationEventsColumns[0]},
		Indexes: []*schema.Index{
			{Name: "generationevent_template_id", Columns: []*schema.Column{GenerationEventsColumns[4]}},
			{Name: "generationevent_timestamp", Columns: []*schema.Column{GenerationEventsColumns[2]}},
		},
	}

	// Tables holds all the tables in the schema.
	Tables = []*schema.Table{
		ProblemTemplatesTable,
		TemplateVersionsTable,
		QuestionsTable,
		GenerationEventsTable,
	}
)

func init() {
	TemplateVersionsTable.ForeignKeys[0].RefTable = ProblemTemplatesTable
}
