package server

import (
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/abhisek/probgen/internal/problemgen"
	"github.com/abhisek/probgen/internal/service"
	"github.com/abhisek/probgen/internal/template"
)

func (s *Server) health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// readTemplate decodes the request body as a template document, YAML when
// the content type says so and JSON otherwise.
func readTemplate(c *gin.Context) (*template.ProblemTemplate, error) {
	data, err := c.GetRawData()
	if err != nil {
		return nil, &template.DocumentError{Err: fmt.Errorf("read body: %w", err)}
	}
	format := template.FormatJSON
	if strings.Contains(c.ContentType(), "yaml") {
		format = template.FormatYAML
	}
	return template.Decode(data, format)
}

type validateResponse struct {
	Valid  bool                       `json:"valid"`
	Errors []template.ValidationError `json:"errors"`
}

func (s *Server) validateTemplate(c *gin.Context) {
	t, err := readTemplate(c)
	if err != nil {
		s.writeError(c, err)
		return
	}
	errs := s.svc.ValidateTemplate(t)
	if errs == nil {
		errs = []template.ValidationError{}
	}
	success(c, validateResponse{Valid: len(errs) == 0, Errors: errs})
}

func (s *Server) createTemplate(c *gin.Context) {
	t, err := readTemplate(c)
	if err != nil {
		s.writeError(c, err)
		return
	}
	t.ID = ""
	t.Version = 0
	saved, err := s.svc.SaveTemplate(c.Request.Context(), t)
	if err != nil {
		s.writeError(c, err)
		return
	}
	created(c, saved)
}

func (s *Server) updateTemplate(c *gin.Context) {
	id := c.Param("id")
	if _, err := s.svc.GetTemplate(c.Request.Context(), id); err != nil {
		s.writeError(c, err)
		return
	}
	t, err := readTemplate(c)
	if err != nil {
		s.writeError(c, err)
		return
	}
	t.ID = id
	saved, err := s.svc.SaveTemplate(c.Request.Context(), t)
	if err != nil {
		s.writeError(c, err)
		return
	}
	success(c, saved)
}

func (s *Server) listTemplates(c *gin.Context) {
	q := service.ListQuery{
		Category: c.Query("category"),
		Search:   c.Query("q"),
	}
	var err error
	if v := c.Query("includeInactive"); v != "" {
		if q.IncludeInactive, err = strconv.ParseBool(v); err != nil {
			badRequest(c, "includeInactive must be a boolean")
			return
		}
	}
	if q.Limit, err = intQuery(c, "limit"); err != nil {
		badRequest(c, err.Error())
		return
	}
	if q.Offset, err = intQuery(c, "offset"); err != nil {
		badRequest(c, err.Error())
		return
	}

	list, err := s.svc.ListTemplates(c.Request.Context(), q)
	if err != nil {
		s.writeError(c, err)
		return
	}
	if list == nil {
		list = []*template.ProblemTemplate{}
	}
	success(c, list)
}

func intQuery(c *gin.Context, key string) (int, error) {
	v := c.Query(key)
	if v == "" {
		return 0, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil || n < 0 {
		return 0, fmt.Errorf("%s must be a non-negative integer", key)
	}
	return n, nil
}

func (s *Server) getTemplate(c *gin.Context) {
	t, err := s.svc.GetTemplate(c.Request.Context(), c.Param("id"))
	if err != nil {
		s.writeError(c, err)
		return
	}
	success(c, t)
}

func (s *Server) deleteTemplate(c *gin.Context) {
	if err := s.svc.DeleteTemplate(c.Request.Context(), c.Param("id")); err != nil {
		s.writeError(c, err)
		return
	}
	success(c, nil)
}

func (s *Server) previewTemplate(c *gin.Context) {
	res, err := s.svc.Preview(c.Request.Context(), c.Param("id"))
	if err != nil {
		s.writeError(c, err)
		return
	}
	success(c, res)
}

func (s *Server) previewDraft(c *gin.Context) {
	t, err := readTemplate(c)
	if err != nil {
		s.writeError(c, err)
		return
	}
	res, err := s.svc.PreviewTemplate(c.Request.Context(), t)
	if err != nil {
		s.writeError(c, err)
		return
	}
	success(c, res)
}

func (s *Server) publishTemplate(c *gin.Context) {
	var req problemgen.PublishRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "invalid publish request: "+err.Error())
		return
	}
	if req.Mode == "" {
		req.Mode = problemgen.ModeStatic
	}
	if req.Count <= 0 || !req.Mode.Valid() {
		badRequest(c, "count must be positive and mode static or dynamic")
		return
	}

	res, err := s.svc.Publish(c.Request.Context(), c.Param("id"), req)
	if err != nil {
		s.writeError(c, err)
		return
	}
	created(c, res)
}

type questionResponse struct {
	Question *problemgen.Question        `json:"question"`
	Instance *problemgen.ProblemInstance `json:"instance"`
}

func (s *Server) getQuestion(c *gin.Context) {
	ctx := c.Request.Context()
	q, err := s.svc.GetQuestion(ctx, c.Param("id"))
	if err != nil {
		s.writeError(c, err)
		return
	}
	inst, err := s.svc.QuestionInstance(ctx, q.ID)
	if err != nil {
		s.writeError(c, err)
		return
	}
	success(c, questionResponse{Question: q, Instance: inst})
}

type gradeRequest struct {
	QuestionID string               `json:"questionId"`
	Question   *problemgen.Question `json:"question"`
	Answer     string               `json:"answer"`
}

func (s *Server) grade(c *gin.Context) {
	var req gradeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "invalid grade request: "+err.Error())
		return
	}
	ctx := c.Request.Context()

	var err error
	var res any
	switch {
	case req.Question != nil:
		res, err = s.svc.GradeQuestion(ctx, req.Question, req.Answer)
	case req.QuestionID != "":
		res, err = s.svc.Grade(ctx, req.QuestionID, req.Answer)
	default:
		badRequest(c, "questionId or question is required")
		return
	}
	if err != nil {
		s.writeError(c, err)
		return
	}
	success(c, res)
}
