package main

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/BaSui01/uniconnect/batch"
)

// ----------------------------------------------------------------------------
// helpers
// ----------------------------------------------------------------------------

type testApp struct {
	*app
	out *bytes.Buffer
	err *bytes.Buffer
}

func newTestApp(env map[string]string) *testApp {
	merged := map[string]string{"UNICONNECT_LOG_LEVEL": "error"}
	for k, v := range env {
		merged[k] = v
	}
	out, errOut := &bytes.Buffer{}, &bytes.Buffer{}
	return &testApp{
		app: &app{
			stdout: out,
			stderr: errOut,
			lookupEnv: func(k string) (string, bool) {
				v, ok := merged[k]
				return v, ok
			},
		},
		out: out,
		err: errOut,
	}
}

func (ta *testApp) exec(args ...string) int {
	// 指向不存在的 .env，避免读到工作目录中的文件
	args = append(args, "--env-file", filepath.Join(os.TempDir(), "uniconnect-test-missing.env"))
	return ta.run(context.Background(), args)
}

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

// chatServer answers in the OpenAI chat completion shape and echoes the last user message.
func chatServer(t *testing.T, hits *int32) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(hits, 1)
		if r.Header.Get("Authorization") != "Bearer sk-test" {
			w.WriteHeader(http.StatusUnauthorized)
			_, _ = w.Write([]byte(`{"error":{"message":"bad key"}}`))
			return
		}
		var body struct {
			Messages []struct {
				Content string `json:"content"`
			} `json:"messages"`
		}
		_ = json.NewDecoder(r.Body).Decode(&body)
		content := ""
		if n := len(body.Messages); n > 0 {
			content = body.Messages[n-1].Content
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{
			"choices": []any{map[string]any{"message": map[string]any{"content": "echo: " + content}}},
		})
	}))
	t.Cleanup(srv.Close)
	return srv
}

func chatConfigFile(t *testing.T, baseURL string) string {
	return writeFile(t, "acme.json", `{
  "name": "Acme Chat",
  "provider": "acme",
  "base_url": "`+baseURL+`",
  "auth": {"type": "header", "key_name": "Authorization", "value_template": "Bearer {credential}"},
  "request": {
    "endpoint": "/chat/completions",
    "static_fields": {"model": "m", "messages": [{"role": "user", "content": "{prompt}"}]}
  },
  "response": {"response_field": "choices.0.message.content", "error_field": "error.message"}
}`)
}

// ----------------------------------------------------------------------------
// dispatch
// ----------------------------------------------------------------------------

func TestRun_Dispatch(t *testing.T) {
	ta := newTestApp(nil)
	assert.Equal(t, 0, ta.run(context.Background(), []string{"version"}))
	assert.Contains(t, ta.out.String(), "uniconnect dev")

	ta = newTestApp(nil)
	assert.Equal(t, 0, ta.run(context.Background(), []string{"help"}))
	assert.Contains(t, ta.out.String(), "Commands:")

	ta = newTestApp(nil)
	assert.Equal(t, 1, ta.run(context.Background(), nil))
	assert.Contains(t, ta.err.String(), "Usage:")

	ta = newTestApp(nil)
	assert.Equal(t, 1, ta.run(context.Background(), []string{"serve"}))
	assert.Contains(t, ta.err.String(), "Unknown command: serve")
}

func TestRun_FlagErrors(t *testing.T) {
	ta := newTestApp(nil)
	assert.Equal(t, 2, ta.run(context.Background(), []string{"send", "--bogus"}))
	assert.Equal(t, 0, ta.run(context.Background(), []string{"scan", "-h"}))

	ta = newTestApp(nil)
	assert.Equal(t, 1, ta.exec("send", "-p", "hi"))
	assert.Contains(t, ta.err.String(), "--config and --prompt are required")
}

// ----------------------------------------------------------------------------
// send
// ----------------------------------------------------------------------------

func TestSend_Success(t *testing.T) {
	var hits int32
	srv := chatServer(t, &hits)
	ta := newTestApp(map[string]string{"ACME_API_KEY": "sk-test"})

	code := ta.exec("send", "-c", chatConfigFile(t, srv.URL), "--prompt", "ping", "-v")
	require.Equal(t, 0, code, ta.err.String())
	out := ta.out.String()
	assert.Contains(t, out, "Connecting to: Acme Chat")
	assert.Contains(t, out, "Response:\necho: ping")
	assert.Contains(t, out, "Raw response:")
	assert.EqualValues(t, 1, atomic.LoadInt32(&hits))
}

func TestSend_AuthErrorAsJSON(t *testing.T) {
	var hits int32
	srv := chatServer(t, &hits)
	ta := newTestApp(nil)

	code := ta.exec("send", "-c", chatConfigFile(t, srv.URL), "-p", "ping", "-k", "wrong", "--json")
	assert.Equal(t, 1, code)

	var resp map[string]any
	require.NoError(t, json.Unmarshal(ta.out.Bytes(), &resp))
	assert.Equal(t, false, resp["success"])
	assert.Equal(t, "auth_error", resp["error_type"])
	assert.Equal(t, "API returned status 401: bad key", resp["error"])
	assert.EqualValues(t, 1, atomic.LoadInt32(&hits), "auth errors are not retried")
}

func TestSend_MissingCredential(t *testing.T) {
	ta := newTestApp(nil)
	code := ta.exec("send", "-c", chatConfigFile(t, "http://127.0.0.1:1"), "-p", "ping")
	assert.Equal(t, 1, code)
	assert.Contains(t, ta.err.String(), "ACME_API_KEY")
}

func TestSend_ConfigNotFound(t *testing.T) {
	ta := newTestApp(nil)
	missing := filepath.Join(t.TempDir(), "nope.json")
	assert.Equal(t, 1, ta.exec("send", "-c", missing, "-p", "x"))
	assert.Contains(t, ta.err.String(), "Config file not found: "+missing)
}

func TestSend_DotEnvCredential(t *testing.T) {
	var hits int32
	srv := chatServer(t, &hits)
	envFile := writeFile(t, ".env", "API_KEY=sk-test\n")
	ta := newTestApp(nil)

	code := ta.run(context.Background(), []string{"send", "-c", chatConfigFile(t, srv.URL), "-p", "hi", "--env-file", envFile})
	require.Equal(t, 0, code, ta.err.String())
	assert.Contains(t, ta.out.String(), "echo: hi")
}

// ----------------------------------------------------------------------------
// generate
// ----------------------------------------------------------------------------

func TestGenerate_ThenSend(t *testing.T) {
	var hits int32
	srv := chatServer(t, &hits)
	out := filepath.Join(t.TempDir(), "configs", "openai.json")

	ta := newTestApp(nil)
	code := ta.exec("generate", "-s", "../../openapi/testdata/openai.yaml", "-o", out, "--base-url", srv.URL, "-v")
	require.Equal(t, 0, code, ta.err.String())
	text := ta.out.String()
	assert.Contains(t, text, "API: OpenAI API")
	assert.Contains(t, text, "POST /chat/completions")
	assert.Contains(t, text, "Auth: header - Authorization")
	assert.Contains(t, text, "Prompt field: messages")
	assert.Contains(t, text, "Response field: choices.0.message.content")

	ta = newTestApp(map[string]string{"OPENAI_API_KEY": "sk-test"})
	code = ta.exec("send", "-c", out, "-p", "generated")
	require.Equal(t, 0, code, ta.err.String())
	assert.Contains(t, ta.out.String(), "echo: generated")
}

func TestGenerate_ToStdout(t *testing.T) {
	ta := newTestApp(nil)
	code := ta.exec("generate", "--spec", "../../openapi/testdata/cohere.json", "--name", "Mine")
	require.Equal(t, 0, code, ta.err.String())

	var cfg map[string]any
	require.NoError(t, json.Unmarshal(ta.out.Bytes(), &cfg))
	assert.Equal(t, "Mine", cfg["name"])
	assert.Contains(t, ta.err.String(), "Config summary:")
}

func TestGenerate_NoChatEndpoint(t *testing.T) {
	spec := writeFile(t, "files.yaml", "servers: [{url: 'http://x'}]\npaths:\n  /files:\n    post: {}\n")
	ta := newTestApp(nil)
	assert.Equal(t, 1, ta.exec("generate", "-s", spec))
	assert.Contains(t, ta.err.String(), "no suitable chat endpoint")
}

// ----------------------------------------------------------------------------
// scan
// ----------------------------------------------------------------------------

func TestScan_MockWithExportAndHistory(t *testing.T) {
	dir := t.TempDir()
	prompts := writeFile(t, "prompts.txt", "first prompt\n\nsecond prompt\n")
	output := filepath.Join(dir, "results.json")
	db := filepath.Join(dir, "history.db")

	ta := newTestApp(nil)
	code := ta.exec("scan", "-c", chatConfigFile(t, "http://127.0.0.1:1"), "-p", prompts,
		"--mock", "--seed", "7", "-o", output, "--db", db)
	require.Equal(t, 0, code, ta.err.String())

	text := ta.out.String()
	assert.Contains(t, text, "AI RESPONSE SCANNER - MOCK MODE")
	assert.Contains(t, text, "Loaded 2 prompts")
	assert.Contains(t, text, "[2/2] second prompt...")
	assert.Contains(t, text, "SCAN SUMMARY - Acme Chat")
	assert.Contains(t, text, "Results exported to: "+output)

	data, err := os.ReadFile(output)
	require.NoError(t, err)
	var report batch.Report
	require.NoError(t, json.Unmarshal(data, &report))
	assert.Equal(t, 2, report.Total)
	assert.Equal(t, 0, report.Summary.Errors)

	store, err := batch.OpenStore(db, nil)
	require.NoError(t, err)
	defer store.Close()
	runs, err := store.ListRuns(context.Background(), 0)
	require.NoError(t, err)
	require.Len(t, runs, 1)
	assert.Equal(t, report.RunID, runs[0].ID)
}

func TestScan_LiveWithMetrics(t *testing.T) {
	var hits int32
	srv := chatServer(t, &hits)
	prompts := writeFile(t, "prompts.txt", "a\nb\nc\n")
	textfile := filepath.Join(t.TempDir(), "metrics.prom")

	ta := newTestApp(map[string]string{
		"ACME_API_KEY":                    "sk-test",
		"UNICONNECT_METRICS_ENABLED":       "true",
		"UNICONNECT_METRICS_TEXTFILE_PATH": textfile,
	})
	code := ta.exec("scan", "-c", chatConfigFile(t, srv.URL), "-p", prompts, "-q")
	require.Equal(t, 0, code, ta.err.String())
	assert.NotContains(t, ta.out.String(), "[1/3]")
	assert.EqualValues(t, 3, atomic.LoadInt32(&hits))

	data, err := os.ReadFile(textfile)
	require.NoError(t, err)
	metrics := string(data)
	assert.Contains(t, metrics, `uniconnect_connector_calls_total{kind="success",provider="acme"} 3`)
	assert.True(t, strings.Contains(metrics, "uniconnect_scan_verdicts_total"))
}

func TestScan_MissingCredentialSuggestsMock(t *testing.T) {
	prompts := writeFile(t, "prompts.txt", "a\n")
	ta := newTestApp(nil)
	assert.Equal(t, 1, ta.exec("scan", "-c", chatConfigFile(t, "http://127.0.0.1:1"), "-p", prompts))
	assert.Contains(t, ta.err.String(), "--mock")
}
