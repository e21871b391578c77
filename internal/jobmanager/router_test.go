package jobmanager

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"apex-portrait/internal/jobs"
)

func do(t *testing.T, h http.Handler, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("content-type", "application/json")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestCreateListGet(t *testing.T) {
	h := NewRouter(Options{})

	rec := do(t, h, http.MethodPost, "/jobs", `{"prompt":"a portrait","seed":42}`)
	require.Equal(t, http.StatusOK, rec.Code)

	var created createResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &created))
	assert.Equal(t, StatusPending, created.Status)
	_, err := uuid.Parse(created.JobID)
	assert.NoError(t, err)

	do(t, h, http.MethodPost, "/jobs", `{"prompt":"second","style":"2048x2048 (High-Res)","seed":"abc"}`)

	rec = do(t, h, http.MethodGet, "/jobs", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"jobs":[
		{"job_id":"`+created.JobID+`","prompt":"a portrait","style":"portrait","seed":42,"status":"pending","image_url":null},
		{"job_id":"`+jobIDAt(t, rec.Body.Bytes(), 1)+`","prompt":"second","style":"2048x2048 (High-Res)","seed":"abc","status":"pending","image_url":null}
	]}`, rec.Body.String())

	rec = do(t, h, http.MethodGet, "/jobs/"+created.JobID, "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"prompt":"a portrait"`)
}

func jobIDAt(t *testing.T, body []byte, i int) string {
	t.Helper()
	var out listResponse
	require.NoError(t, json.Unmarshal(body, &out))
	require.Greater(t, len(out.Jobs), i)
	return out.Jobs[i].JobID
}

func TestGetUnknownJob(t *testing.T) {
	h := NewRouter(Options{})

	rec := do(t, h, http.MethodGet, "/jobs/nope", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.JSONEq(t, `{"error":"Job not found"}`, rec.Body.String())
}

func TestCreateRejectsBadBodies(t *testing.T) {
	h := NewRouter(Options{})

	assert.Equal(t, http.StatusBadRequest, do(t, h, http.MethodPost, "/jobs", `{`).Code)
	assert.Equal(t, http.StatusUnprocessableEntity, do(t, h, http.MethodPost, "/jobs", `{"style":"x"}`).Code)

	rec := do(t, h, http.MethodGet, "/jobs", "")
	assert.JSONEq(t, `{"jobs":[]}`, rec.Body.String())
}

func TestPreflight(t *testing.T) {
	h := NewRouter(Options{})

	rec := do(t, h, http.MethodOptions, "/jobs", "")
	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Equal(t, "*", rec.Header().Get("Access-Control-Allow-Origin"))
}

func TestSubmissionClientAgainstService(t *testing.T) {
	srv := httptest.NewServer(NewRouter(Options{}))
	defer srv.Close()

	client := jobs.New(jobs.Options{BaseURL: srv.URL, HTTPClient: srv.Client()})

	job, err := client.Submit(context.Background(), jobs.NewRequest("p", "", "7"))
	require.NoError(t, err)
	assert.Equal(t, StatusPending, job.Status)

	got, err := client.Get(context.Background(), job.JobID)
	require.NoError(t, err)
	assert.Equal(t, "portrait", got.Style)
	assert.EqualValues(t, 7, got.Seed)

	_, err = client.Get(context.Background(), "missing")
	assert.ErrorContains(t, err, "404")
}
