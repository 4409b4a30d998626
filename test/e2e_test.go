package test

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/ccollicutt/crilog/internal/cli"
	"github.com/ccollicutt/crilog/pkg/config"
	"github.com/ccollicutt/crilog/pkg/cri"
	"github.com/ccollicutt/crilog/pkg/output"
	"github.com/ccollicutt/crilog/pkg/parser"
	"github.com/ccollicutt/crilog/pkg/webhook"
)

var (
	projectRoot string
	rootOnce    sync.Once
)

// chdir changes to the project root directory for tests.
// Config files use paths relative to project root.
func chdir(t *testing.T) {
	t.Helper()
	rootOnce.Do(func() {
		// Get the directory containing this test file, then go up one level
		_, filename, _, _ := runtime.Caller(0)
		projectRoot = filepath.Dir(filepath.Dir(filename))
	})
	if err := os.Chdir(projectRoot); err != nil {
		t.Fatalf("Failed to chdir to project root: %v", err)
	}
}

// requireFile fails the test if the required test file doesn't exist.
// We never skip tests - missing test data is a test failure.
func requireFile(t *testing.T, path string) {
	t.Helper()
	if _, err := os.Stat(path); os.IsNotExist(err) {
		t.Fatalf("Required test file not found: %s", path)
	}
}

// crilog runs the CLI in-process and returns stdout, stderr and the exit code.
func crilog(t *testing.T, stdin string, args ...string) (string, string, int) {
	t.Helper()
	var stdout, stderr bytes.Buffer
	code := cli.ExecuteWith(args, strings.NewReader(stdin), &stdout, &stderr)
	return stdout.String(), stderr.String(), code
}

const podDir = "testdata/pods/default_web-0_6f1d2c1e-9b1a-4c1e-8e0a-2a1c3b4d5e6f"

// TestE2E_PodLogs runs the library pipeline over a pod's container logs.
func TestE2E_PodLogs(t *testing.T) {
	chdir(t)
	configFile := filepath.Join("testdata", "configs", "web-0.yaml")
	requireFile(t, configFile)
	ctx := context.Background()

	cfg, err := config.Load(ctx, configFile)
	if err != nil {
		t.Fatalf("Failed to load config: %v", err)
	}

	files, err := parser.ExpandGlobs(cfg.LogSources)
	if err != nil {
		t.Fatalf("Failed to expand globs: %v", err)
	}
	if len(files) != 3 {
		t.Fatalf("Expected 3 log files, got %v", files)
	}

	sources := make([]parser.LogSource, len(files))
	for i, file := range files {
		sources[i] = parser.NewFileSource([]string{file}, parser.WithErrorHandler(parser.FailOnError))
	}
	source := parser.NewMergedSource(sources...)
	defer source.Close()

	report := output.NewReport(cfg.LogSources, configFile)
	var prev time.Time
	for {
		line, err := source.Next(ctx)
		if err == io.EOF {
			break
		}
		if err != nil {
			t.Fatalf("Next() error = %v", err)
		}
		if line.Entry.Timestamp().Before(prev) {
			t.Errorf("%s:%d out of order", line.Source, line.LineNum)
		}
		prev = line.Entry.Timestamp()
		report.AddLine(line)
	}

	s := report.Summary
	if s.LinesParsed != 14 || s.Stdout != 11 || s.Stderr != 3 || s.Partial != 1 || s.Malformed != 0 {
		t.Errorf("Summary = %+v", s)
	}

	// The proxy writes local time; the offset survives parsing
	third := report.Entries[2].LogEntry()
	if third.Message() != "envoy started" {
		t.Fatalf("Entries[2] = %q, want the proxy start", third.Message())
	}
	if _, offset := third.Timestamp().Zone(); offset != 3600 {
		t.Errorf("offset = %d, want 3600", offset)
	}
}

// TestE2E_Parse_Raw merges the pod's containers back into one CRI stream.
func TestE2E_Parse_Raw(t *testing.T) {
	chdir(t)

	stdout, stderr, code := crilog(t, "", "parse", "-o", "raw", "-c", "testdata/configs/web-0.yaml")
	if code != 0 {
		t.Fatalf("exit code = %d, stderr: %s", code, stderr)
	}

	lines := strings.Split(strings.TrimSpace(stdout), "\n")
	if len(lines) != 14 {
		t.Fatalf("Expected 14 lines, got %d:\n%s", len(lines), stdout)
	}
	if lines[2] != "2024-03-04T10:15:00.5+01:00 stdout F envoy started" {
		t.Errorf("lines[2] = %q", lines[2])
	}
	if lines[6] != `2024-03-04T09:16:10.734Z stdout P {"request_id":"a81f","path":"/api/orders","body":"` {
		t.Errorf("lines[6] = %q", lines[6])
	}

	// Every line written back must parse again
	for i, l := range lines {
		if _, err := cri.Parse(l); err != nil {
			t.Errorf("line %d does not reparse: %v", i, err)
		}
	}
}

// TestE2E_Parse_StderrFull applies the config's stream and tag filters.
func TestE2E_Parse_StderrFull(t *testing.T) {
	chdir(t)

	stdout, stderr, code := crilog(t, "", "parse", "-o", "json", "-c", "testdata/configs/web-0-errors.yaml")
	if code != 0 {
		t.Fatalf("exit code = %d, stderr: %s", code, stderr)
	}

	var report output.Report
	if err := json.Unmarshal([]byte(stdout), &report); err != nil {
		t.Fatalf("Invalid JSON: %v", err)
	}

	want := []string{
		"WARN cache directory /var/cache/web missing, creating",
		"upstream request timeout cluster=web",
		"ERROR upstream timeout after 5s path=/api/orders",
	}
	if len(report.Entries) != len(want) {
		t.Fatalf("Expected %d entries, got %d", len(want), len(report.Entries))
	}
	for i, e := range report.Entries {
		if e.Message != want[i] || e.Stream != "stderr" {
			t.Errorf("Entries[%d] = %s %q", i, e.Stream, e.Message)
		}
	}
}

// TestE2E_Parse_Truncated reports every malformed line and exits 1.
func TestE2E_Parse_Truncated(t *testing.T) {
	chdir(t)

	stdout, _, code := crilog(t, "", "parse", "-o", "json", "-c", "testdata/configs/truncated.yaml")
	if code != 1 {
		t.Errorf("exit code = %d, want 1", code)
	}

	var report output.Report
	if err := json.Unmarshal([]byte(stdout), &report); err != nil {
		t.Fatalf("Invalid JSON: %v", err)
	}

	if report.Summary.LinesParsed != 2 || report.Summary.Malformed != 4 {
		t.Errorf("Summary = %+v", report.Summary)
	}
	wantKinds := map[string]int{"timestamp_format": 2, "invalid_stream_type": 1, "missing_log_tag": 1}
	for kind, n := range wantKinds {
		if report.Summary.MalformedByKind[kind] != n {
			t.Errorf("MalformedByKind[%s] = %d, want %d", kind, report.Summary.MalformedByKind[kind], n)
		}
	}

	wantLines := []int{2, 3, 4, 5}
	for i, fault := range report.Errors {
		if fault.Line != wantLines[i] {
			t.Errorf("Errors[%d].Line = %d, want %d", i, fault.Line, wantLines[i])
		}
	}
}

// TestE2E_Parse_TruncatedFail stops at the first malformed line.
func TestE2E_Parse_TruncatedFail(t *testing.T) {
	chdir(t)

	stdout, stderr, code := crilog(t, "", "parse", "-o", "raw", "--on-error", "fail", "testdata/logs/truncated.log")
	if code != 1 {
		t.Errorf("exit code = %d, want 1", code)
	}
	if stdout != "2024-03-04T09:15:00.102938475Z stdout F Starting web server\n" {
		t.Errorf("stdout = %q", stdout)
	}
	if !strings.Contains(stderr, "stopping at malformed line") {
		t.Errorf("stderr = %q", stderr)
	}
}

// TestE2E_Parse_Stdin reads a piped log.
func TestE2E_Parse_Stdin(t *testing.T) {
	chdir(t)

	data, err := os.ReadFile(filepath.Join(podDir, "app", "1.log"))
	if err != nil {
		t.Fatal(err)
	}

	stdout, _, code := crilog(t, string(data), "parse", "-q", "-")
	if code != 0 {
		t.Errorf("exit code = %d, want 0", code)
	}
	if !strings.Contains(stdout, "Summary: 3 lines parsed (3 stdout, 0 stderr, 0 partial), 0 malformed") {
		t.Errorf("stdout = %q", stdout)
	}
}

func TestE2E_Detect_CRI(t *testing.T) {
	chdir(t)

	stdout, _, code := crilog(t, "", "detect", filepath.Join(podDir, "app", "0.log"))
	if code != 0 {
		t.Errorf("exit code = %d, want 0", code)
	}
	if !strings.Contains(stdout, "Format: CRI (100.0% of lines parsed)") {
		t.Errorf("stdout:\n%s", stdout)
	}
}

func TestE2E_Detect_DockerJSON(t *testing.T) {
	chdir(t)

	stdout, _, _ := crilog(t, "", "detect", "testdata/logs/docker-json.log")
	if !strings.Contains(stdout, "Format: not CRI") || !strings.Contains(stdout, "Looks like: Docker json-file") {
		t.Errorf("stdout:\n%s", stdout)
	}
}

func TestE2E_Detect_WriteConfig(t *testing.T) {
	chdir(t)
	configPath := filepath.Join(t.TempDir(), "crilog.yaml")

	_, stderr, code := crilog(t, "", "detect", "-w", configPath, filepath.Join(podDir, "proxy", "0.log"))
	if code != 0 {
		t.Fatalf("exit code = %d, stderr: %s", code, stderr)
	}

	// The generated config drives a clean parse
	stdout, stderr, code := crilog(t, "", "parse", "-q", "-c", configPath)
	if code != 0 {
		t.Fatalf("exit code = %d, stderr: %s", code, stderr)
	}
	if !strings.Contains(stdout, "3 lines parsed") {
		t.Errorf("stdout = %q", stdout)
	}

	// A second run must not overwrite it
	if _, _, code := crilog(t, "", "detect", "-w", configPath, filepath.Join(podDir, "proxy", "0.log")); code != 2 {
		t.Errorf("exit code = %d, want 2 for existing config", code)
	}
}

func TestE2E_Validate(t *testing.T) {
	chdir(t)

	stdout, _, code := crilog(t, "", "validate", "testdata/configs/web-0-errors.yaml")
	if code != 0 {
		t.Errorf("exit code = %d, want 0", code)
	}
	if !strings.Contains(stdout, "Log files matched: 3") {
		t.Errorf("stdout:\n%s", stdout)
	}
}

func TestE2E_Diagnose_ValidConfig(t *testing.T) {
	chdir(t)

	stdout, _, code := crilog(t, "", "diagnose", "testdata/configs/web-0.yaml")
	if code != 0 {
		t.Errorf("exit code = %d, want 0\n%s", code, stdout)
	}
	if !strings.Contains(stdout, "Summary: 7 passed, 0 warnings, 0 errors") {
		t.Errorf("stdout:\n%s", stdout)
	}
}

func TestE2E_Diagnose_Truncated(t *testing.T) {
	chdir(t)

	stdout, _, code := crilog(t, "", "diagnose", "testdata/configs/truncated.yaml")
	if code != 1 {
		t.Errorf("exit code = %d, want 1", code)
	}
	if !strings.Contains(stdout, "[FAIL] CRI Format: testdata/logs/truncated.log") {
		t.Errorf("stdout:\n%s", stdout)
	}
}

func TestE2E_Diagnose_NonexistentConfig(t *testing.T) {
	chdir(t)

	stdout, _, code := crilog(t, "", "diagnose", "testdata/configs/nope.yaml")
	if code != 1 {
		t.Errorf("exit code = %d, want 1", code)
	}
	if !strings.Contains(stdout, "Config file not found") {
		t.Errorf("stdout:\n%s", stdout)
	}
}

// TestE2E_Webhook_OnErrors posts the truncated log's report to a webhook
// given in the config file.
func TestE2E_Webhook_OnErrors(t *testing.T) {
	chdir(t)

	var mu sync.Mutex
	var receivedAuth string
	var receivedPayload []byte
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		mu.Lock()
		receivedAuth = r.Header.Get("Authorization")
		receivedPayload = body
		mu.Unlock()
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"received"}`))
	}))
	defer server.Close()

	t.Setenv("CRILOG_E2E_TOKEN", "test-token-123")
	configPath := filepath.Join(t.TempDir(), "crilog.yaml")
	cfgText := `log_sources:
  - ` + filepath.Join(projectRoot, "testdata", "logs", "truncated.log") + `
webhooks:
  - name: e2e
    url: ` + server.URL + `
    token: ${CRILOG_E2E_TOKEN}
`
	if err := os.WriteFile(configPath, []byte(cfgText), 0644); err != nil {
		t.Fatal(err)
	}

	_, stderr, code := crilog(t, "", "parse", "-q", "-c", configPath)
	if code != 1 {
		t.Errorf("exit code = %d, want 1", code)
	}
	if !strings.Contains(stderr, "webhook sent") {
		t.Errorf("stderr = %q", stderr)
	}

	mu.Lock()
	defer mu.Unlock()
	if receivedAuth != "Bearer test-token-123" {
		t.Errorf("Expected Bearer token, got %q", receivedAuth)
	}

	var payload webhook.Payload
	if err := json.Unmarshal(receivedPayload, &payload); err != nil {
		t.Fatalf("Invalid JSON payload: %v", err)
	}
	if payload.Summary.Malformed != 4 || len(payload.Errors) != 4 {
		t.Errorf("payload summary = %+v, errors = %d", payload.Summary, len(payload.Errors))
	}
}

// TestE2E_Webhook_ServerError logs the failure but keeps the parse result.
func TestE2E_Webhook_ServerError(t *testing.T) {
	chdir(t)

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer server.Close()

	_, stderr, code := crilog(t, "", "parse", "-q", "--webhook-url", server.URL, "--webhook-trigger", "always",
		filepath.Join(podDir, "app", "1.log"))
	if code != 0 {
		t.Errorf("exit code = %d, want 0", code)
	}
	if !strings.Contains(stderr, "webhook failed") || !strings.Contains(stderr, "status 500") {
		t.Errorf("stderr = %q", stderr)
	}
}
