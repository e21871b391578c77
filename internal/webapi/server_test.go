package webapi

import (
	"bytes"
	"context"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"apex-portrait/internal/jobs"
	"apex-portrait/internal/pipeline"
	"apex-portrait/internal/portrait"
	"apex-portrait/internal/profilestore"
)

type fakeSubmitter struct {
	id  string
	err error
}

func (f fakeSubmitter) Submit(context.Context, jobs.Request) (jobs.Job, error) {
	return jobs.Job{JobID: f.id, Status: "pending"}, f.err
}

var fixedNow = func() time.Time { return time.Date(2025, 3, 4, 5, 6, 7, 8_000_000, time.UTC) }

type harness struct {
	handler http.Handler
	store   *profilestore.Store
}

func newHarness(t *testing.T) harness {
	t.Helper()
	store, err := profilestore.New(profilestore.Options{KV: profilestore.NewMemoryKV(), Now: fixedNow})
	require.NoError(t, err)

	gen := pipeline.New(pipeline.Options{
		Saver:     store,
		Submitter: fakeSubmitter{id: "job-1"},
		Now:       fixedNow,
	})
	srv := New(Options{Generator: gen, Store: store, Registry: prometheus.NewRegistry()})
	return harness{handler: srv.Router(), store: store}
}

func (h harness) do(t *testing.T, method, target string, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, target, strings.NewReader(body))
	req.Header.Set("content-type", "application/json")
	rec := httptest.NewRecorder()
	h.handler.ServeHTTP(rec, req)
	return rec
}

const completeForm = `{"purpose":"LinkedIn","attire":"Business Formal","background":"Corporate Office","vibe":"Confident","save_profile":true}`

func TestCatalog(t *testing.T) {
	h := newHarness(t)

	rec := h.do(t, http.MethodGet, "/api/catalog", "")
	require.Equal(t, http.StatusOK, rec.Code)

	var resp catalogResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.Len(t, resp.Fields, len(portrait.Fields()))
	assert.Equal(t, portrait.FieldPurpose, resp.Fields[0].Field)
	assert.True(t, resp.Fields[0].Basic)
	assert.Equal(t, portrait.DefaultForm(), resp.Defaults)
}

func TestPresets(t *testing.T) {
	h := newHarness(t)

	rec := h.do(t, http.MethodGet, "/api/presets", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"name":"LinkedIn Professional"`)

	rec = h.do(t, http.MethodPost, "/api/presets/"+url.PathEscape("Academic Profile")+"/apply", `{"seed":"9"}`)
	require.Equal(t, http.StatusOK, rec.Code)

	var resp formResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "Resume", resp.Form.Purpose)
	assert.Equal(t, "Academic Profile", resp.Form.PresetName)
	assert.Equal(t, "9", resp.Form.Seed)
	assert.Equal(t, "✨ Applied preset: Academic Profile", resp.Status)

	rec = h.do(t, http.MethodPost, "/api/presets/Nope/apply", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestGenerateValidationFailure(t *testing.T) {
	h := newHarness(t)

	rec := h.do(t, http.MethodPost, "/api/generate", `{"purpose":"LinkedIn"}`)
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)

	var rep pipeline.Report
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &rep))
	assert.False(t, rep.Generated)
	assert.Equal(t, portrait.MsgMissingAttire, rep.Status)
	assert.Empty(t, h.store.Names(context.Background()))
}

func TestGenerateSavesAndSubmits(t *testing.T) {
	h := newHarness(t)

	rec := h.do(t, http.MethodPost, "/api/generate", completeForm)
	require.Equal(t, http.StatusOK, rec.Code)

	var rep pipeline.Report
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &rep))
	assert.True(t, rep.Generated)
	assert.Equal(t, "portrait_profile_2025-03-04T05-06-07-008Z", rep.SavedFile)
	assert.Equal(t, "job-1", rep.JobID)
	assert.Equal(t, pipeline.MsgGenerated+" | 💾 Saved to: "+rep.SavedFile+" | 🖼️ Job submitted: job-1", rep.Status)
	assert.True(t, strings.HasPrefix(rep.Prompt, "Professional portrait for linkedin, wearing business formal"))

	rec = h.do(t, http.MethodGet, "/metrics", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `apex_generations_total{result="generated"} 1`)
	assert.Contains(t, rec.Body.String(), `apex_job_submissions_total{result="submitted"} 1`)
}

func TestGenerateRejectsMalformedJSON(t *testing.T) {
	h := newHarness(t)
	assert.Equal(t, http.StatusBadRequest, h.do(t, http.MethodPost, "/api/generate", `{"purpose":`).Code)
}

func TestProfilesCRUDAndExport(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	form := portrait.DefaultForm()
	form.Purpose, form.Attire, form.Background, form.Vibe = "Resume", "Academic", "Library/Academic", "Warm"
	p := portrait.BuildProfile(form, fixedNow())
	_, err := h.store.Save(ctx, p, "my profile")
	require.NoError(t, err)

	rec := h.do(t, http.MethodGet, "/api/profiles", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var list profileListResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &list))
	assert.Equal(t, []string{"my profile"}, list.Names)

	rec = h.do(t, http.MethodGet, "/api/profiles/my%20profile", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"purpose":"Resume"`)

	rec = h.do(t, http.MethodGet, "/api/profiles/my%20profile/export?filename=backup", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, `attachment; filename="backup.json"`, rec.Header().Get("content-disposition"))
	want, err := profilestore.MarshalExport(p)
	require.NoError(t, err)
	assert.Equal(t, string(want), rec.Body.String())

	assert.Equal(t, http.StatusNotFound, h.do(t, http.MethodGet, "/api/profiles/ghost", "").Code)

	rec = h.do(t, http.MethodDelete, "/api/profiles/my%20profile", "")
	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Empty(t, h.store.Names(ctx))
}

func multipartBody(t *testing.T, content string, fields map[string]string) (*bytes.Buffer, string) {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	fw, err := mw.CreateFormFile("file", "profile.json")
	require.NoError(t, err)
	_, err = fw.Write([]byte(content))
	require.NoError(t, err)
	for k, v := range fields {
		require.NoError(t, mw.WriteField(k, v))
	}
	require.NoError(t, mw.Close())
	return &buf, mw.FormDataContentType()
}

func TestImport(t *testing.T) {
	h := newHarness(t)

	form := portrait.DefaultForm()
	form.Purpose, form.Attire, form.Background, form.Vibe = "Other", "Other", "Other", "Calm"
	form.CustomNotes = "glasses"
	data, err := profilestore.MarshalExport(portrait.BuildProfile(form, fixedNow()))
	require.NoError(t, err)

	body, ctype := multipartBody(t, string(data), map[string]string{"save": "true", "name": "imported"})
	req := httptest.NewRequest(http.MethodPost, "/api/profiles/import", body)
	req.Header.Set("content-type", ctype)
	rec := httptest.NewRecorder()
	h.handler.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var resp importResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "imported", resp.SavedAs)
	assert.Equal(t, "glasses", resp.Form.CustomNotes)
	assert.Equal(t, []string{"imported"}, h.store.Names(context.Background()))
}

func TestImportRejectsInvalidJSON(t *testing.T) {
	h := newHarness(t)

	body, ctype := multipartBody(t, "{not json", nil)
	req := httptest.NewRequest(http.MethodPost, "/api/profiles/import", body)
	req.Header.Set("content-type", ctype)
	rec := httptest.NewRecorder()
	h.handler.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.JSONEq(t, `{"error":"invalid JSON file"}`, rec.Body.String())
}

func TestHealthz(t *testing.T) {
	h := newHarness(t)
	rec := h.do(t, http.MethodGet, "/healthz", "")
	assert.Equal(t, http.StatusOK, rec.Code)
}
