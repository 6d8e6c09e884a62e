package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"course-rag/internal/models"
)

type stubService struct {
	report   models.IngestReport
	answer   models.Answer
	subjects []string
	err      error

	gotSubject  string
	gotFilename string
	gotData     []byte
	gotQuestion string
}

func (s *stubService) ProcessMaterial(ctx context.Context, subject, filename string, data []byte) (models.IngestReport, error) {
	s.gotSubject, s.gotFilename, s.gotData = subject, filename, data
	return s.report, s.err
}

func (s *stubService) AskQuestion(ctx context.Context, subject, question string) (models.Answer, error) {
	s.gotSubject, s.gotQuestion = subject, question
	return s.answer, s.err
}

func (s *stubService) Subjects(ctx context.Context) ([]string, error) {
	return s.subjects, s.err
}

func newTestServer(svc RAGService) *Server {
	return NewServer(&Options{Address: ":0", BodyLimit: "4M", Svc: svc})
}

func multipartBody(t *testing.T, filename, content string) (*bytes.Buffer, string) {
	t.Helper()
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	fw, err := w.CreateFormFile("file", filename)
	require.NoError(t, err)
	_, err = fw.Write([]byte(content))
	require.NoError(t, err)
	require.NoError(t, w.Close())
	return &buf, w.FormDataContentType()
}

func decodeDetail(t *testing.T, rec *httptest.ResponseRecorder) string {
	t.Helper()
	var resp struct {
		Detail string `json:"detail"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	return resp.Detail
}

func TestProcessMaterial(t *testing.T) {
	svc := &stubService{report: models.IngestReport{
		Subject:       "Biology_notes",
		MaterialID:    "abc123",
		State:         models.StateComplete,
		ChunksIndexed: 7,
	}}
	srv := newTestServer(svc)

	body, contentType := multipartBody(t, "cells.txt", "The mitochondria is the powerhouse of the cell.")
	req := httptest.NewRequest(http.MethodPost, "/api/process-material?subject=Biology_notes", body)
	req.Header.Set("Content-Type", contentType)
	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var resp map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.EqualValues(t, 7, resp["chunksIndexed"])
	assert.Equal(t, "Biology_notes", svc.gotSubject)
	assert.Equal(t, "cells.txt", svc.gotFilename)
	assert.NotEmpty(t, svc.gotData)
}

func TestProcessMaterialMissingSubject(t *testing.T) {
	srv := newTestServer(&stubService{})
	body, contentType := multipartBody(t, "cells.txt", "text")
	req := httptest.NewRequest(http.MethodPost, "/api/process-material", body)
	req.Header.Set("Content-Type", contentType)
	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, decodeDetail(t, rec), "subject")
}

func TestProcessMaterialMissingFile(t *testing.T) {
	srv := newTestServer(&stubService{})
	req := httptest.NewRequest(http.MethodPost, "/api/process-material?subject=Bio", strings.NewReader(""))
	req.Header.Set("Content-Type", "multipart/form-data; boundary=x")
	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, decodeDetail(t, rec), "file")
}

func TestProcessMaterialUnsupportedFormat(t *testing.T) {
	svc := &stubService{err: models.FailStep("load", fmt.Errorf("%w: \".exe\"", models.ErrUnsupportedFormat))}
	srv := newTestServer(svc)

	body, contentType := multipartBody(t, "virus.exe", "MZ")
	req := httptest.NewRequest(http.MethodPost, "/api/process-material?subject=Bio", body)
	req.Header.Set("Content-Type", contentType)
	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, decodeDetail(t, rec), "unsupported file format")
}

func TestAskQuestion(t *testing.T) {
	svc := &stubService{answer: models.Answer{
		Text: "The mitochondria.",
		Citations: []models.Citation{
			{Source: "cells.txt", Page: 1, Ordinal: 0, Content: "The mitochondria is the powerhouse of the cell.", Score: 0.91},
		},
	}}
	srv := newTestServer(svc)

	req := httptest.NewRequest(http.MethodPost, "/api/ask-question",
		strings.NewReader(`{"subject":"Biology_notes","question":"What is the powerhouse of the cell?"}`))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var resp models.Answer
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Contains(t, resp.Text, "mitochondria")
	require.Len(t, resp.Citations, 1)
	assert.Equal(t, "cells.txt", resp.Citations[0].Source)
	assert.Equal(t, "Biology_notes", svc.gotSubject)
}

func TestAskQuestionMissingFields(t *testing.T) {
	srv := newTestServer(&stubService{})
	req := httptest.NewRequest(http.MethodPost, "/api/ask-question", strings.NewReader(`{"subject":"Bio"}`))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, decodeDetail(t, rec), "question")
}

func TestAskQuestionMalformedBody(t *testing.T) {
	srv := newTestServer(&stubService{})
	req := httptest.NewRequest(http.MethodPost, "/api/ask-question", strings.NewReader(`{not json`))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestAskQuestionUpstreamUnavailable(t *testing.T) {
	svc := &stubService{err: models.FailStep("synthesize",
		fmt.Errorf("%w: upstream 503", models.ErrSynthesisUnavailable))}
	srv := newTestServer(svc)

	req := httptest.NewRequest(http.MethodPost, "/api/ask-question",
		strings.NewReader(`{"subject":"Bio","question":"anything"}`))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadGateway, rec.Code)
	assert.Contains(t, decodeDetail(t, rec), "temporarily unavailable")
}

func TestAskQuestionUpstreamTimeout(t *testing.T) {
	srv := newTestServer(&stubService{err: context.DeadlineExceeded})

	req := httptest.NewRequest(http.MethodPost, "/api/ask-question",
		strings.NewReader(`{"subject":"Bio","question":"anything"}`))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusGatewayTimeout, rec.Code)
}

func TestSubjects(t *testing.T) {
	srv := newTestServer(&stubService{subjects: []string{"Biology_notes", "Physics_notes"}})
	req := httptest.NewRequest(http.MethodGet, "/api/subjects", nil)
	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	var names []string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &names))
	assert.ElementsMatch(t, []string{"Biology_notes", "Physics_notes"}, names)
}

func TestSubjectsEmpty(t *testing.T) {
	srv := newTestServer(&stubService{})
	req := httptest.NewRequest(http.MethodGet, "/api/subjects", nil)
	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `[]`, rec.Body.String())
}
