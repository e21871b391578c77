package main

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"apex-portrait/internal/jobmanager"
	"apex-portrait/internal/pipeline"
	"apex-portrait/internal/portrait"
)

func setupEnv(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	t.Setenv("STORE_BACKEND", "file")
	t.Setenv("STORE_DIR", dir)
	t.Setenv("STORE_NAMESPACE", "")
	t.Setenv("PRESETS_FILE", "")
	t.Setenv("LOG_LEVEL", "error")
	t.Setenv("JOBS_ENABLED", "true")
	return dir
}

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	a := &app{}
	cmd := newRootCmd(a)

	var out, errOut bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&errOut)
	cmd.SetArgs(args)

	err := cmd.ExecuteContext(context.Background())
	a.close()
	return out.String(), err
}

func decodeReport(t *testing.T, out string) pipeline.Report {
	t.Helper()
	var r pipeline.Report
	require.NoError(t, json.Unmarshal([]byte(out), &r), out)
	return r
}

func TestPresetsAndCatalog(t *testing.T) {
	setupEnv(t)

	out, err := run(t, "presets")
	require.NoError(t, err)
	var presets struct {
		Presets []portrait.Preset `json:"presets"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &presets))
	require.Len(t, presets.Presets, 5)
	assert.Equal(t, "LinkedIn Professional", presets.Presets[0].Name)

	out, err = run(t, "catalog")
	require.NoError(t, err)
	var catalog struct {
		Fields   []catalogField    `json:"fields"`
		Defaults portrait.FormData `json:"defaults"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &catalog))
	assert.Len(t, catalog.Fields, 10)
	assert.Equal(t, portrait.FieldPurpose, catalog.Fields[0].Field)
	assert.True(t, catalog.Fields[0].Basic)
	assert.Equal(t, portrait.DefaultForm(), catalog.Defaults)
}

func TestGenerateFromFlags(t *testing.T) {
	setupEnv(t)

	out, err := run(t, "generate", "Resume",
		"--attire", "Academic",
		"--background", "Outdoor",
		"--vibe", "Calm",
		"--age-range", "30-40",
		"--notes", "tweed jacket",
		"--photo", "/tmp/me.jpg",
	)
	require.NoError(t, err)

	r := decodeReport(t, out)
	assert.True(t, r.Generated)
	assert.Equal(t, pipeline.MsgGenerated, r.Status)
	assert.Empty(t, r.SavedFile)
	require.NotNil(t, r.Profile)
	assert.Equal(t, "Resume", r.Profile.BasicInfo.Purpose)
	assert.Equal(t, "30-40", r.Profile.AdvancedSettings.AgeRange)
	require.NotNil(t, r.Profile.AdditionalInfo.ReferencePhoto)
	assert.Equal(t, "me.jpg", *r.Profile.AdditionalInfo.ReferencePhoto)
	assert.Contains(t, r.Prompt, "tweed jacket")

	out, err = run(t, "profiles", "list")
	require.NoError(t, err)
	assert.Empty(t, out)
}

func TestGenerateValidationError(t *testing.T) {
	setupEnv(t)

	out, err := run(t, "generate", "--attire", "Academic")
	require.Error(t, err)
	assert.Equal(t, portrait.MsgMissingPurpose, err.Error())
	assert.False(t, decodeReport(t, out).Generated)

	_, err = run(t, "generate", "--preset", "Nope")
	require.Error(t, err)
	assert.Contains(t, err.Error(), `unknown preset "Nope"`)
}

func TestGenerateSubmitsJob(t *testing.T) {
	setupEnv(t)
	jobStore := jobmanager.NewStore()
	srv := httptest.NewServer(jobmanager.NewRouter(jobmanager.Options{Store: jobStore}))
	defer srv.Close()
	t.Setenv("JOBS_BASE_URL", srv.URL)

	out, err := run(t, "generate", "--preset", "Startup Founder", "--seed", "42", "--submit")
	require.NoError(t, err)

	r := decodeReport(t, out)
	assert.NotEmpty(t, r.JobID)
	assert.True(t, strings.HasSuffix(r.Status, "🖼️ Job submitted: "+r.JobID))

	jobsList := jobStore.List()
	require.Len(t, jobsList, 1)
	assert.Equal(t, r.Prompt, jobsList[0].Prompt)
	assert.Equal(t, portrait.DefaultResolution, jobsList[0].Style)
	assert.Equal(t, "42", fmt.Sprint(jobsList[0].Seed))

	t.Setenv("JOBS_ENABLED", "false")
	_, err = run(t, "generate", "--preset", "Startup Founder", "--submit")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "disabled")
}

func TestProfilesLifecycle(t *testing.T) {
	setupEnv(t)
	exportDir := t.TempDir()

	out, err := run(t, "generate", "--preset", "LinkedIn Professional", "--save", "--name", "alice")
	require.NoError(t, err)
	assert.Equal(t, "alice", decodeReport(t, out).SavedFile)

	out, err = run(t, "profiles", "list")
	require.NoError(t, err)
	assert.Equal(t, "alice\n", out)

	out, err = run(t, "profiles", "show", "alice")
	require.NoError(t, err)
	assert.Contains(t, out, `"purpose": "LinkedIn"`)
	assert.Contains(t, out, `"preset_used": "LinkedIn Professional"`)

	out, err = run(t, "profiles", "export", "alice", "--dir", exportDir, "--filename", "card")
	require.NoError(t, err)
	exported := filepath.Join(exportDir, "card.json")
	assert.Equal(t, "📤 Exported to: "+exported+"\n", out)

	out, err = run(t, "profiles", "import", exported, "--name", "bob")
	require.NoError(t, err)
	assert.Equal(t, exported+": ✅ Profile imported | 💾 Saved to: bob\n", out)

	out, err = run(t, "profiles", "delete", "alice")
	require.NoError(t, err)
	assert.Equal(t, "🗑️ Deleted profile: alice\n", out)

	out, err = run(t, "profiles", "list")
	require.NoError(t, err)
	assert.Equal(t, "bob\n", out)

	_, err = run(t, "profiles", "show", "alice")
	require.Error(t, err)
	assert.Contains(t, err.Error(), `profile "alice" not found`)
}

func TestImportReportsBadFiles(t *testing.T) {
	setupEnv(t)
	dir := t.TempDir()
	bad := filepath.Join(dir, "broken.json")
	require.NoError(t, os.WriteFile(bad, []byte("{nope"), 0o644))
	missing := filepath.Join(dir, "missing.json")

	out, err := run(t, "profiles", "import", bad, missing)
	require.Error(t, err)
	assert.Equal(t, "2 of 2 imports failed", err.Error())
	assert.Contains(t, out, "❌ "+bad+": invalid JSON file")
	assert.Contains(t, out, "❌ "+missing+": failed to read file")

	_, err = run(t, "profiles", "import", bad, missing, "--name", "x")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "--name needs exactly one file")
}
