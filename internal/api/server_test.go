package api

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/dgallion1/litweb/internal/config"
	"github.com/dgallion1/litweb/internal/logs"
	"github.com/dgallion1/litweb/internal/pipeline"
	"github.com/google/go-cmp/cmp"
)

const introWeb = `<h1>Intro</h1>
@o hello.c @{int main() {
    @<body@>
}
@}
@d body @{return 0;@| ret @}
`

func testServer(t *testing.T, cfg config.Config, orch *pipeline.Orchestrator) (*Server, string) {
	t.Helper()
	root := t.TempDir()
	files := map[string]string{
		"intro.w":   introWeb,
		"broken.w":  "@o x.c\nno opener\n",
		"undef.w":   "@o y.c @{@<missing@>@}\n",
		"notes.txt": "not a web",
	}
	for name, text := range files {
		if err := os.WriteFile(filepath.Join(root, name), []byte(text), 0o644); err != nil {
			t.Fatal(err)
		}
	}
	return NewServer(root, orch, logs.Discard(), cfg, "test"), root
}

func htmlConfig() config.Config {
	cfg := config.Load()
	cfg.Markup = "html"
	cfg.APIKey = ""
	return cfg
}

func do(t *testing.T, s *Server, method, path string, header map[string]string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, nil)
	for k, v := range header {
		req.Header.Set(k, v)
	}
	rec := httptest.NewRecorder()
	s.ServeHTTP(rec, req)
	return rec
}

func decode(t *testing.T, rec *httptest.ResponseRecorder, v any) {
	t.Helper()
	if err := json.Unmarshal(rec.Body.Bytes(), v); err != nil {
		t.Fatalf("decode %q: %v", rec.Body.String(), err)
	}
}

func TestServer_Health(t *testing.T) {
	s, _ := testServer(t, htmlConfig(), nil)
	rec := do(t, s, "GET", "/health", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	var got map[string]any
	decode(t, rec, &got)
	want := map[string]any{"status": "ok", "version": "test"}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("health mismatch (-want +got):\n%s", diff)
	}
}

func TestServer_ListWebs(t *testing.T) {
	s, _ := testServer(t, htmlConfig(), nil)
	rec := do(t, s, "GET", "/api/webs", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	var got struct {
		Webs []webEntry `json:"webs"`
	}
	decode(t, rec, &got)
	want := []webEntry{
		{Name: "broken.w"},
		{Name: "intro.w", Title: "Intro"},
		{Name: "undef.w"},
	}
	if diff := cmp.Diff(want, got.Webs); diff != "" {
		t.Errorf("webs mismatch (-want +got):\n%s", diff)
	}
}

func TestServer_Chunks(t *testing.T) {
	s, _ := testServer(t, htmlConfig(), nil)
	rec := do(t, s, "GET", "/api/webs/intro.w/chunks", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	var got struct {
		Chunks []chunkJSON `json:"chunks"`
	}
	decode(t, rec, &got)

	var kinds []string
	for _, c := range got.Chunks {
		kinds = append(kinds, c.Kind)
	}
	if diff := cmp.Diff([]string{"anonymous", "output", "anonymous", "named", "anonymous"}, kinds); diff != "" {
		t.Errorf("kinds mismatch (-want +got):\n%s", diff)
	}

	body := got.Chunks[3]
	if body.FullName != "body" || body.Seq != 2 {
		t.Errorf("unexpected named chunk %+v", body)
	}
	if diff := cmp.Diff([]string{"hello.c"}, body.UsedBy); diff != "" {
		t.Errorf("used_by mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff([]string{"body"}, got.Chunks[1].References); diff != "" {
		t.Errorf("references mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff([]string{"hello.c"}, body.Within); diff != "" {
		t.Errorf("within mismatch (-want +got):\n%s", diff)
	}
	if got.Chunks[1].Within != nil {
		t.Errorf("expected no referrers for the output file, got %v", got.Chunks[1].Within)
	}
}

func TestServer_Xref(t *testing.T) {
	s, _ := testServer(t, htmlConfig(), nil)
	rec := do(t, s, "GET", "/api/webs/intro.w/xref", nil)
	var got map[string][]xrefJSON
	decode(t, rec, &got)
	want := map[string][]xrefJSON{
		"files":   {{Name: "hello.c", Seqs: []int{1}}},
		"macros":  {{Name: "body", Seqs: []int{2}}},
		"userids": {{Name: "ret", Seqs: []int{2}}},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("xref mismatch (-want +got):\n%s", diff)
	}
}

func TestServer_Weave(t *testing.T) {
	s, _ := testServer(t, htmlConfig(), nil)
	rec := do(t, s, "GET", "/api/webs/intro.w/weave/html", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	if ct := rec.Header().Get("Content-Type"); !strings.HasPrefix(ct, "text/html") {
		t.Errorf("unexpected content type %q", ct)
	}
	if !strings.Contains(rec.Body.String(), "<h1>Intro</h1>") {
		t.Errorf("expected prose in the document, got %q", rec.Body.String())
	}

	etag := rec.Header().Get("ETag")
	if etag == "" {
		t.Fatal("expected an ETag")
	}
	rec = do(t, s, "GET", "/api/webs/intro.w/weave/html", map[string]string{"If-None-Match": etag})
	if rec.Code != http.StatusNotModified {
		t.Errorf("expected 304, got %d", rec.Code)
	}

	rec = do(t, s, "GET", "/api/webs/intro.w/weave/rst", nil)
	if ct := rec.Header().Get("Content-Type"); !strings.HasPrefix(ct, "text/plain") {
		t.Errorf("unexpected content type %q", ct)
	}

	rec = do(t, s, "GET", "/api/webs/intro.w/weave/nope", nil)
	if rec.Code != http.StatusNotFound {
		t.Errorf("expected 404 for an unknown markup, got %d", rec.Code)
	}
}

func TestServer_Tangle(t *testing.T) {
	s, _ := testServer(t, htmlConfig(), nil)
	rec := do(t, s, "GET", "/api/webs/intro.w/tangle/hello.c", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	if diff := cmp.Diff("int main() {\n    return 0;\n}\n", rec.Body.String()); diff != "" {
		t.Errorf("tangle mismatch (-want +got):\n%s", diff)
	}

	rec = do(t, s, "GET", "/api/webs/intro.w/tangle/other.c", nil)
	if rec.Code != http.StatusNotFound {
		t.Errorf("expected 404 for a missing output, got %d", rec.Code)
	}

	rec = do(t, s, "GET", "/api/webs/undef.w/tangle/y.c", nil)
	if rec.Code != http.StatusUnprocessableEntity || !strings.Contains(rec.Body.String(), "undefined chunk") {
		t.Errorf("expected 422 for an undefined reference, got %d %q", rec.Code, rec.Body.String())
	}
}

func TestServer_BadWebs(t *testing.T) {
	s, _ := testServer(t, htmlConfig(), nil)
	tests := []struct {
		path string
		code int
	}{
		{"/api/webs/broken.w/chunks", http.StatusUnprocessableEntity},
		{"/api/webs/missing.w/chunks", http.StatusNotFound},
		{"/api/webs/notes.txt/chunks", http.StatusNotFound},
		{"/api/webs/..%2Fintro.w/xref", http.StatusNotFound},
	}
	for _, tt := range tests {
		if rec := do(t, s, "GET", tt.path, nil); rec.Code != tt.code {
			t.Errorf("%s: expected %d, got %d", tt.path, tt.code, rec.Code)
		}
	}
}

func TestServer_Auth(t *testing.T) {
	cfg := htmlConfig()
	cfg.APIKey = "secret"
	s, _ := testServer(t, cfg, nil)

	if rec := do(t, s, "GET", "/health", nil); rec.Code != http.StatusOK {
		t.Errorf("expected health to stay public, got %d", rec.Code)
	}
	if rec := do(t, s, "GET", "/api/webs", nil); rec.Code != http.StatusUnauthorized {
		t.Errorf("expected 401 without a token, got %d", rec.Code)
	}
	if rec := do(t, s, "GET", "/api/webs", map[string]string{"Authorization": "Bearer wrong"}); rec.Code != http.StatusUnauthorized {
		t.Errorf("expected 401 with a wrong token, got %d", rec.Code)
	}
	if rec := do(t, s, "GET", "/api/webs", map[string]string{"Authorization": "Bearer secret"}); rec.Code != http.StatusOK {
		t.Errorf("expected 200 with the token, got %d", rec.Code)
	}
}

func TestServer_Build(t *testing.T) {
	cfg := htmlConfig()
	cfg.OutputDir = t.TempDir()
	orch := pipeline.NewOrchestrator(cfg, "test", logs.Discard())
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	orch.Start(ctx)
	defer orch.Stop()

	s, _ := testServer(t, cfg, orch)
	rec := do(t, s, "POST", "/api/webs/intro.w/build", nil)
	if rec.Code != http.StatusAccepted {
		t.Fatalf("expected 202, got %d: %s", rec.Code, rec.Body.String())
	}
	var accepted struct {
		JobID   string `json:"job_id"`
		PollURL string `json:"poll_url"`
	}
	decode(t, rec, &accepted)

	select {
	case <-orch.GetJob(accepted.JobID).Done():
	case <-ctx.Done():
		t.Fatal("build did not finish")
	}

	rec = do(t, s, "GET", accepted.PollURL, nil)
	var snap pipeline.JobSnapshot
	decode(t, rec, &snap)
	if snap.Status != pipeline.StatusCompleted {
		t.Errorf("expected a completed build, got %+v", snap)
	}
	if _, err := os.Stat(filepath.Join(cfg.OutputDir, "hello.c")); err != nil {
		t.Errorf("expected hello.c on disk: %v", err)
	}

	rec = do(t, s, "GET", "/api/webs", nil)
	if !strings.Contains(rec.Body.String(), `"status":"completed"`) {
		t.Errorf("expected the listing to show the build, got %s", rec.Body.String())
	}

	if rec := do(t, s, "GET", "/api/jobs/unknown", nil); rec.Code != http.StatusNotFound {
		t.Errorf("expected 404 for an unknown job, got %d", rec.Code)
	}
}

func TestServer_BuildDisabled(t *testing.T) {
	s, _ := testServer(t, htmlConfig(), nil)
	if rec := do(t, s, "POST", "/api/webs/intro.w/build", nil); rec.Code != http.StatusServiceUnavailable {
		t.Errorf("expected 503, got %d", rec.Code)
	}
}
