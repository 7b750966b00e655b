package service

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/abhisek/probgen/internal/grading"
	"github.com/abhisek/probgen/internal/metrics"
	"github.com/abhisek/probgen/internal/problemgen"
	"github.com/abhisek/probgen/internal/store"
	"github.com/abhisek/probgen/internal/template"
)

func fp(v float64) *float64 { return &v }

func ip(v int) *int { return &v }

func newTestService(t *testing.T) *Service {
	t.Helper()
	st, err := store.Open("file:" + uuid.NewString() + "?mode=memory&cache=shared")
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() })
	return New(st, problemgen.DefaultConfig(), WithMetrics(metrics.New()))
}

func traverseTemplate() *template.ProblemTemplate {
	return &template.ProblemTemplate{
		Name:             "Latitude of a traverse line",
		Category:         "traverse",
		Difficulty:       template.DifficultyMedium,
		QuestionType:     template.QuestionNumericInput,
		QuestionTemplate: "A line of length {{dist}} m has azimuth {{az}}°. Find its latitude.",
		Parameters: []template.TemplateParam{
			{Name: "dist", Type: template.ParamFloat, Min: fp(100), Max: fp(400), Decimals: ip(2)},
			{Name: "az", Type: template.ParamInteger, Min: fp(10), Max: fp(80)},
		},
		AnswerFormula:       "dist * cos(az * PI / 180)",
		AnswerFormat:        template.AnswerFormat{Unit: "m"},
		ExplanationTemplate: "Latitude = {{dist}} cos {{az}}° = {{_answer}}",
		Tags:                []string{"latitude", "departure"},
		IsActive:            true,
	}
}

func TestSaveTemplateValidates(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	bad := traverseTemplate()
	bad.AnswerFormula = "dist * missing"
	_, err := svc.SaveTemplate(ctx, bad)
	require.Error(t, err)
	var verrs template.ValidationErrors
	require.ErrorAs(t, err, &verrs)
	assert.True(t, verrs.Has(template.CodeUndefinedReference))

	saved, err := svc.SaveTemplate(ctx, traverseTemplate())
	require.NoError(t, err)
	assert.NotEmpty(t, saved.ID)
	assert.Equal(t, 1, saved.Version)

	assert.Empty(t, svc.ValidateTemplate(saved))
}

func TestListTemplatesSearch(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	tr := traverseTemplate()
	_, err := svc.SaveTemplate(ctx, tr)
	require.NoError(t, err)

	area := traverseTemplate()
	area.Name = "Area by coordinates"
	area.Category = "area"
	area.Tags = []string{"coordinates"}
	_, err = svc.SaveTemplate(ctx, area)
	require.NoError(t, err)

	all, err := svc.ListTemplates(ctx, ListQuery{})
	require.NoError(t, err)
	assert.Len(t, all, 2)

	found, err := svc.ListTemplates(ctx, ListQuery{Search: "latitud"})
	require.NoError(t, err)
	require.Len(t, found, 1)
	assert.Equal(t, "Latitude of a traverse line", found[0].Name)

	none, err := svc.ListTemplates(ctx, ListQuery{Search: "zzzz"})
	require.NoError(t, err)
	assert.Empty(t, none)
}

func TestPublishAndGradeStatic(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	saved, err := svc.SaveTemplate(ctx, traverseTemplate())
	require.NoError(t, err)

	res, err := svc.Publish(ctx, saved.ID, problemgen.PublishRequest{Count: 3, Mode: problemgen.ModeStatic})
	require.NoError(t, err)
	require.Len(t, res.Questions, 3)

	q := res.Questions[0]
	inst, err := svc.QuestionInstance(ctx, q.ID)
	require.NoError(t, err)

	got, err := svc.Grade(ctx, q.ID, inst.Answer.Formatted())
	require.NoError(t, err)
	assert.True(t, got.IsCorrect)
	assert.Equal(t, inst.Answer.Display(), got.CorrectAnswerDisplay)

	got, err = svc.Grade(ctx, q.ID, "0")
	require.NoError(t, err)
	assert.False(t, got.IsCorrect)

	_, err = svc.Grade(ctx, q.ID, "about forty")
	assert.ErrorIs(t, err, grading.ErrMalformedSubmission)
}

func TestPublishDynamicSurvivesTemplateEdit(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	v1, err := svc.SaveTemplate(ctx, traverseTemplate())
	require.NoError(t, err)

	res, err := svc.Publish(ctx, v1.ID, problemgen.PublishRequest{Count: 2, Mode: problemgen.ModeDynamic})
	require.NoError(t, err)
	q := res.Questions[0]

	before, err := svc.QuestionInstance(ctx, q.ID)
	require.NoError(t, err)

	edited := *v1
	edited.AnswerFormula = "dist * sin(az * PI / 180)"
	v2, err := svc.SaveTemplate(ctx, &edited)
	require.NoError(t, err)
	require.Equal(t, 2, v2.Version)

	after, err := svc.QuestionInstance(ctx, q.ID)
	require.NoError(t, err)
	assert.Equal(t, before.QuestionText, after.QuestionText)
	assert.Equal(t, before.Answer, after.Answer)

	got, err := svc.Grade(ctx, q.ID, before.Answer.Formatted())
	require.NoError(t, err)
	assert.True(t, got.IsCorrect)
}

func TestPublishInactiveTemplate(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	saved, err := svc.SaveTemplate(ctx, traverseTemplate())
	require.NoError(t, err)
	require.NoError(t, svc.DeleteTemplate(ctx, saved.ID))

	_, err = svc.Publish(ctx, saved.ID, problemgen.PublishRequest{Count: 1, Mode: problemgen.ModeStatic})
	assert.ErrorIs(t, err, ErrTemplateInactive)

	_, err = svc.Publish(ctx, "missing", problemgen.PublishRequest{Count: 1, Mode: problemgen.ModeStatic})
	assert.True(t, errors.Is(err, ErrNotFound))
}

func TestPreviewDraftAndEvents(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	draft := traverseTemplate()
	res, err := svc.PreviewTemplate(ctx, draft)
	require.NoError(t, err)
	assert.Contains(t, res.Scope, "dist")
	assert.Contains(t, res.Scope, template.AnswerName)
	assert.NotContains(t, res.Instance.QuestionText, "{{")

	bad := traverseTemplate()
	bad.QuestionTemplate = "Find {{nothing}}"
	_, err = svc.PreviewTemplate(ctx, bad)
	require.Error(t, err)

	events, err := svc.Events(ctx, store.QueryOpts{})
	require.NoError(t, err)
	require.Len(t, events, 2)
	assert.Equal(t, store.OpPreview, events[0].Operation)
	assert.Equal(t, 1, events[0].Succeeded)
	assert.Equal(t, 0, events[1].Succeeded)
	assert.Equal(t, string(problemgen.StageValidating), events[1].Stage)
	assert.NotEmpty(t, events[1].ErrorMessage)
}

func TestGradeInlineAcceptedSet(t *testing.T) {
	svc := newTestService(t)
	q := &problemgen.Question{ID: "ext-1", AcceptedSet: []string{"N", "E"}}

	got, err := svc.GradeQuestion(context.Background(), q, "e, n")
	require.NoError(t, err)
	assert.True(t, got.IsCorrect)
}

func TestPage(t *testing.T) {
	items := []int{1, 2, 3, 4, 5}
	assert.Equal(t, []int{3, 4}, page(items, 2, 2))
	assert.Equal(t, []int{4, 5}, page(items, 3, 0))
	assert.Nil(t, page(items, 9, 1))
}
