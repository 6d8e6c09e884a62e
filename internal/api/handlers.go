package api

import (
	"context"
	"io"
	"net/http"

	"github.com/labstack/echo/v4"

	"course-rag/internal/models"
)

// RAGService is what the handlers need from the ingestion/retrieval core.
type RAGService interface {
	ProcessMaterial(ctx context.Context, subject, filename string, data []byte) (models.IngestReport, error)
	AskQuestion(ctx context.Context, subject, question string) (models.Answer, error)
	Subjects(ctx context.Context) ([]string, error)
}

type handler struct {
	svc RAGService
}

func registerRoutes(g *echo.Group, svc RAGService) {
	h := &handler{svc: svc}
	g.POST("/process-material", h.processMaterial)
	g.POST("/ask-question", h.askQuestion)
	g.GET("/subjects", h.subjects)
}

type processMaterialResponse struct {
	ChunksIndexed int                `json:"chunksIndexed"`
	Subject       string             `json:"subject"`
	MaterialID    string             `json:"materialId"`
	State         models.IngestState `json:"state"`
	Note          string             `json:"note,omitempty"`
}

func (h *handler) processMaterial(c echo.Context) error {
	subject := c.QueryParam("subject")
	if subject == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "subject query parameter is required")
	}
	fh, err := c.FormFile("file")
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "multipart field \"file\" is required")
	}
	f, err := fh.Open()
	if err != nil {
		return err
	}
	defer f.Close()
	data, err := io.ReadAll(f)
	if err != nil {
		return err
	}

	report, err := h.svc.ProcessMaterial(c.Request().Context(), subject, fh.Filename, data)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, processMaterialResponse{
		ChunksIndexed: report.ChunksIndexed,
		Subject:       report.Subject,
		MaterialID:    report.MaterialID,
		State:         report.State,
		Note:          report.Note,
	})
}

type askQuestionRequest struct {
	Subject  string `json:"subject" validate:"required"`
	Question string `json:"question" validate:"required"`
}

func (h *handler) askQuestion(c echo.Context) error {
	var req askQuestionRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "malformed request body")
	}
	if err := c.Validate(&req); err != nil {
		return err
	}
	answer, err := h.svc.AskQuestion(c.Request().Context(), req.Subject, req.Question)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, answer)
}

func (h *handler) subjects(c echo.Context) error {
	names, err := h.svc.Subjects(c.Request().Context())
	if err != nil {
		return err
	}
	if names == nil {
		names = []string{}
	}
	return c.JSON(http.StatusOK, names)
}
