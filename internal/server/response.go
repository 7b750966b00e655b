package server

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/abhisek/probgen/internal/grading"
	"github.com/abhisek/probgen/internal/problemgen"
	"github.com/abhisek/probgen/internal/service"
	"github.com/abhisek/probgen/internal/template"
)

// Response is the envelope of every API reply.
type Response struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
	Data    any    `json:"data,omitempty"`
}

func success(c *gin.Context, data any) {
	c.JSON(http.StatusOK, Response{
		Code:    http.StatusOK,
		Message: "success",
		Data:    data,
	})
}

func created(c *gin.Context, data any) {
	c.JSON(http.StatusCreated, Response{
		Code:    http.StatusCreated,
		Message: "created",
		Data:    data,
	})
}

func fail(c *gin.Context, code int, message string, data any) {
	c.AbortWithStatusJSON(code, Response{
		Code:    code,
		Message: message,
		Data:    data,
	})
}

func badRequest(c *gin.Context, message string) {
	fail(c, http.StatusBadRequest, message, nil)
}

// generationFailure is the client view of a failed generation. The
// underlying error is logged, not returned.
type generationFailure struct {
	TemplateID string           `json:"templateId,omitempty"`
	Stage      problemgen.Stage `json:"stage"`
	Seed       problemgen.Seed  `json:"seed,omitempty"`
}

// writeError maps domain errors to status codes.
func (s *Server) writeError(c *gin.Context, err error) {
	var (
		verrs template.ValidationErrors
		derr  *template.DocumentError
		gerr  *problemgen.GenerationError
	)
	switch {
	case errors.As(err, &verrs):
		fail(c, http.StatusUnprocessableEntity, "template is invalid", verrs)
	case errors.As(err, &derr):
		badRequest(c, derr.Error())
	case errors.Is(err, service.ErrNotFound):
		fail(c, http.StatusNotFound, "resource not found", nil)
	case errors.Is(err, service.ErrTemplateInactive):
		fail(c, http.StatusConflict, "template is inactive", nil)
	case errors.Is(err, grading.ErrMalformedSubmission):
		badRequest(c, err.Error())
	case errors.Is(err, grading.ErrTemplateVersionMismatch):
		s.logger.Warn("unable to grade", zap.Error(err))
		fail(c, http.StatusConflict, "unable to grade this question", nil)
	case errors.As(err, &gerr):
		s.logger.Warn("generation failed",
			zap.String("template_id", gerr.TemplateID),
			zap.String("stage", string(gerr.Stage)),
			zap.String("seed", string(gerr.Seed)),
			zap.Error(gerr.Err),
		)
		if errors.As(gerr.Err, &verrs) {
			fail(c, http.StatusUnprocessableEntity, "template is invalid", verrs)
			return
		}
		fail(c, http.StatusUnprocessableEntity, "generation failed", generationFailure{
			TemplateID: gerr.TemplateID,
			Stage:      gerr.Stage,
			Seed:       gerr.Seed,
		})
	default:
		s.logger.Error("internal server error", zap.Error(err))
		fail(c, http.StatusInternalServerError, "internal server error", nil)
	}
}
