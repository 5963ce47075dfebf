package http

import (
	"archive/zip"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mind-engage/mindengage-loader/internal/audit"
	authmw "github.com/mind-engage/mindengage-loader/internal/auth/middleware"
	"github.com/mind-engage/mindengage-loader/internal/content"
	"github.com/mind-engage/mindengage-loader/internal/payload"
	"github.com/mind-engage/mindengage-loader/internal/session"
)

type memLog struct {
	mu      sync.Mutex
	entries []audit.Entry
}

func (m *memLog) Append(_ context.Context, e audit.Entry) (audit.Entry, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	e.ID = "h-" + e.Category
	m.entries = append(m.entries, e)
	return e, nil
}

func (m *memLog) Recent(_ context.Context, limit int) ([]audit.Entry, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]audit.Entry(nil), m.entries...), nil
}

type fixture struct {
	t        *testing.T
	srv      http.Handler
	log      *memLog
	operator string
	viewer   string
}

func newFixture(t *testing.T, maxBytes int64) *fixture {
	t.Helper()
	a := authmw.NewAuthService("test-key", nil)
	store := session.NewInMemoryStore(session.Config{})
	log := &memLog{}
	f := &fixture{
		t:   t,
		log: log,
		srv: NewRouter(Deps{
			Auth:            a,
			Sessions:        store,
			History:         log,
			MaxArchiveBytes: maxBytes,
		}),
	}
	var err error
	f.operator, err = a.IssueJWT("ops", "operator")
	require.NoError(t, err)
	f.viewer, err = a.IssueJWT("watcher", "viewer")
	require.NoError(t, err)
	return f
}

func (f *fixture) do(token, method, path string, body io.Reader, contentType string) *httptest.ResponseRecorder {
	f.t.Helper()
	req := httptest.NewRequest(method, path, body)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	rec := httptest.NewRecorder()
	f.srv.ServeHTTP(rec, req)
	return rec
}

func (f *fixture) json(token, method, path, body string) *httptest.ResponseRecorder {
	var r io.Reader
	if body != "" {
		r = strings.NewReader(body)
	}
	return f.do(token, method, path, r, "application/json")
}

func (f *fixture) upload(path, name string, data []byte) *httptest.ResponseRecorder {
	f.t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	fw, err := mw.CreateFormFile("file", name)
	require.NoError(f.t, err)
	_, err = fw.Write(data)
	require.NoError(f.t, err)
	require.NoError(f.t, mw.Close())
	return f.do(f.operator, http.MethodPost, path, &buf, mw.FormDataContentType())
}

func (f *fixture) create(cat, env string) string {
	f.t.Helper()
	rec := f.json(f.operator, http.MethodPost, "/sessions", `{"category":"`+cat+`","environment":"`+env+`"}`)
	require.Equal(f.t, http.StatusCreated, rec.Code, rec.Body.String())
	var v struct {
		ID string `json:"id"`
	}
	require.NoError(f.t, json.NewDecoder(rec.Body).Decode(&v))
	return v.ID
}

func zipOf(t *testing.T, names ...string) []byte {
	t.Helper()
	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	for _, n := range names {
		_, err := zw.Create(n)
		require.NoError(t, err)
	}
	require.NoError(t, zw.Close())
	return buf.Bytes()
}

func decode(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var out map[string]any
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&out), rec.Body.String())
	return out
}

func TestCodingFlowOverHTTP(t *testing.T) {
	f := newFixture(t, 0)
	id := f.create("CODING_QUESTIONS", "BETA")
	base := "/sessions/" + id

	rec := f.json(f.operator, http.MethodPost, base+"/upload", "")
	assert.Equal(t, http.StatusConflict, rec.Code, "upload is locked until the archive is verified")

	rec = f.upload(base+"/archive?wait=1", "qs.zip", zipOf(t, "Coding Questions/", "Coding Questions/q1/test.py"))
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	out := decode(t, rec)
	assert.Equal(t, true, out["outcome"].(map[string]any)["success"])
	assert.Equal(t, "qs.zip", out["archive"])

	rec = f.json(f.operator, http.MethodPost, base+"/upload", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, content.DefaultTargets()[content.Beta].UploadURL, decode(t, rec)["upload_url"])

	rec = f.json(f.operator, http.MethodPut, base+"/destination", `{"url":"https://files.example/dir"}`)
	require.Equal(t, http.StatusOK, rec.Code)
	rec = f.json(f.operator, http.MethodPut, base+"/metadata", `{"is_json_converted":false,"question_score":3}`)
	require.Equal(t, http.StatusOK, rec.Code)

	rec = f.json(f.viewer, http.MethodPost, base+"/handoff", "")
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = f.json(f.operator, http.MethodPost, base+"/handoff", "")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	out = decode(t, rec)
	assert.Equal(t, content.DefaultTargets()[content.Beta].AdminURL, out["admin_url"])
	assert.Equal(t, "{\n  \"input_dir_path_url\": \"https://files.example/dir\",\n  \"is_json_converted\": false,\n  \"question_score\": 3\n}", out["payload_text"])
	assert.Equal(t, "h-CODING_QUESTIONS", out["id"])

	require.Len(t, f.log.entries, 1)
	assert.Equal(t, "ops", f.log.entries[0].Operator)
	assert.Equal(t, "BETA", f.log.entries[0].Environment)

	rec = f.json(f.viewer, http.MethodGet, "/handoffs", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var hist []audit.Entry
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&hist))
	assert.Len(t, hist, 1)
}

func TestMCQFlowOverHTTP(t *testing.T) {
	f := newFixture(t, 0)
	id := f.create("mcq", "")
	base := "/sessions/" + id

	rec := f.json(f.operator, http.MethodPost, base+"/handoff", "")
	require.Equal(t, http.StatusConflict, rec.Code)
	pending := decode(t, rec)["pending"].(map[string]any)
	assert.Equal(t, "Spreadsheet name is missing", pending["message"])

	rec = f.json(f.operator, http.MethodPost, base+"/subsheets/Questions", "")
	assert.Equal(t, http.StatusConflict, rec.Code, "sub-sheets are locked without a sheet name")

	rec = f.json(f.operator, http.MethodPut, base+"/sheet", `{"name":" Week 3 "}`)
	require.Equal(t, http.StatusOK, rec.Code)
	rec = f.json(f.operator, http.MethodPost, base+"/subsheets/Nope", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	rec = f.json(f.operator, http.MethodPost, base+"/subsheets/Options", "")
	require.Equal(t, http.StatusOK, rec.Code)
	rec = f.json(f.operator, http.MethodPost, base+"/subsheets/Questions", "")
	require.Equal(t, http.StatusOK, rec.Code)

	rec = f.json(f.viewer, http.MethodGet, base+"/payload", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"spread_sheet_name":"Week 3","data_sets_to_be_loaded":["Options","Questions"]}`, rec.Body.String())

	rec = f.json(f.operator, http.MethodPost, base+"/handoff", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, content.DefaultTargets()[content.Prod].AdminURL, decode(t, rec)["admin_url"])
}

func TestSelectionSwitchResetsForm(t *testing.T) {
	f := newFixture(t, 0)
	id := f.create("MCQ", "PROD")
	base := "/sessions/" + id
	require.Equal(t, http.StatusOK, f.json(f.operator, http.MethodPut, base+"/sheet", `{"name":"S"}`).Code)

	rec := f.json(f.operator, http.MethodPut, base+"/selection", `{"environment":"PROD"}`)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, false, decode(t, rec)["reset"])

	rec = f.json(f.operator, http.MethodPut, base+"/selection", `{"environment":"BETA"}`)
	require.Equal(t, http.StatusOK, rec.Code)
	out := decode(t, rec)
	assert.Equal(t, true, out["reset"])
	sess := out["session"].(map[string]any)
	assert.Equal(t, "", sess["mcq"].(map[string]any)["sheet_name"])

	rec = f.json(f.operator, http.MethodPut, base+"/selection", `{"environment":"STAGING"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestErrorMapping(t *testing.T) {
	f := newFixture(t, 0)

	assert.Equal(t, http.StatusUnauthorized, f.json("", http.MethodGet, "/sessions", "").Code)
	assert.Equal(t, http.StatusNotFound, f.json(f.operator, http.MethodGet, "/sessions/missing", "").Code)
	assert.Equal(t, http.StatusBadRequest, f.json(f.operator, http.MethodPost, "/sessions", `{"category":"ESSAY"}`).Code)
	assert.Equal(t, http.StatusForbidden, f.json(f.viewer, http.MethodPost, "/sessions", `{"category":"MCQ"}`).Code)

	id := f.create("CODE_ANALYSIS", "PROD")
	rec := f.json(f.operator, http.MethodPut, "/sessions/"+id+"/sheet", `{"name":"S"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code, "sheet name does not apply to code analysis")

	assert.Equal(t, http.StatusNoContent, f.json(f.operator, http.MethodDelete, "/sessions/"+id, "").Code)
	assert.Equal(t, http.StatusNotFound, f.json(f.operator, http.MethodDelete, "/sessions/"+id, "").Code)
}

func TestStatelessInspect(t *testing.T) {
	f := newFixture(t, 64)

	rec := f.upload("/archives/inspect?category=CODING_QUESTIONS", "junk.zip", []byte("not a zip"))
	require.Equal(t, http.StatusOK, rec.Code)
	outcome := decode(t, rec)["outcome"].(map[string]any)
	assert.Equal(t, false, outcome["success"])
	assert.Equal(t, "archive_unreadable", outcome["reason"])

	rec = f.upload("/archives/inspect?category=CODING_QUESTIONS", "big.zip", bytes.Repeat([]byte("x"), 65))
	assert.Equal(t, http.StatusRequestEntityTooLarge, rec.Code)

	rec = f.upload("/archives/inspect?category=ESSAY", "x.zip", []byte("x"))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestPublicRoutes(t *testing.T) {
	f := newFixture(t, 0)
	assert.Equal(t, http.StatusOK, f.json("", http.MethodGet, "/healthz", "").Code)

	rec := f.json(f.viewer, http.MethodGet, "/targets", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, decode(t, rec), "PROD")
}

func TestEditedLinkBlocksHandoff(t *testing.T) {
	f := newFixture(t, 0)
	id := f.create("CODING_QUESTIONS", "PROD")
	base := "/sessions/" + id

	rec := f.upload(base+"/archive?wait=1", "q.zip", zipOf(t, "Coding Questions/q1.txt"))
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	require.Equal(t, http.StatusOK, f.json(f.operator, http.MethodPost, base+"/upload", "").Code)
	require.Equal(t, http.StatusOK, f.json(f.operator, http.MethodPut, base+"/destination", `{"url":"https://x"}`).Code)
	require.Equal(t, http.StatusOK, f.json(f.operator, http.MethodPut, base+"/destination", `{"url":""}`).Code)

	rec = f.json(f.viewer, http.MethodGet, base, "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, false, decode(t, rec)["ready"])

	rec = f.json(f.operator, http.MethodPost, base+"/handoff", "")
	require.Equal(t, http.StatusConflict, rec.Code, rec.Body.String())
	assert.Equal(t, "JSON link is missing", decode(t, rec)["pending"].(map[string]any)["message"])
	assert.Empty(t, f.log.entries)
}

func TestRejectedMetadataLeavesPayload(t *testing.T) {
	f := newFixture(t, 0)
	id := f.create("CODING_QUESTIONS", "PROD")
	base := "/sessions/" + id

	rec := f.upload(base+"/archive?wait=1", "q.zip", zipOf(t, "Coding Questions/q1.txt"))
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	require.Equal(t, http.StatusOK, f.json(f.operator, http.MethodPost, base+"/upload", "").Code)
	require.Equal(t, http.StatusOK, f.json(f.operator, http.MethodPut, base+"/destination", `{"url":"https://x"}`).Code)

	rec = f.json(f.operator, http.MethodPut, base+"/metadata", `{"is_json_converted":true,"question_score":-1}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = f.json(f.viewer, http.MethodGet, base+"/payload", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"input_dir_path_url":"https://x","is_json_converted":false,"question_score":1}`, rec.Body.String())
}

func TestSchemaViolationIsUnprocessable(t *testing.T) {
	rec := httptest.NewRecorder()
	writeErr(rec, fmt.Errorf("handoff: %w", payload.ErrSchemaViolation))
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
}
