package cmd

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/urfave/cli/v2"

	"github.com/pithecene-io/outpost/adapter/redis"
	"github.com/pithecene-io/outpost/adapter/webhook"
	"github.com/pithecene-io/outpost/cli/config"
	"github.com/pithecene-io/outpost/types"
)

// runApp runs the CLI with args and returns what was written to stdout.
func runApp(t *testing.T, args ...string) (string, error) {
	t.Helper()

	out, err := os.CreateTemp(t.TempDir(), "stdout")
	if err != nil {
		t.Fatal(err)
	}
	orig := os.Stdout
	os.Stdout = out
	defer func() { os.Stdout = orig }()

	app := &cli.App{
		Name:           "outpost",
		ExitErrHandler: func(*cli.Context, error) {},
		Commands: []*cli.Command{
			RunCommand(),
			ApplyCommand(),
			InspectCommand(),
			StatsCommand(),
			VersionCommand("test"),
		},
	}
	runErr := app.Run(append([]string{"outpost"}, args...))

	data, err := os.ReadFile(out.Name())
	if err != nil {
		t.Fatal(err)
	}
	return string(data), runErr
}

func exitCode(err error) int {
	if err == nil {
		return exitSuccess
	}
	var coder cli.ExitCoder
	if errors.As(err, &coder) {
		return coder.ExitCode()
	}
	return -1
}

func assetServer(t *testing.T) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("/api/file/A.txt", func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte("hello from file A"))
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func decodeApply(t *testing.T, out string) ApplyResponse {
	t.Helper()
	var resp ApplyResponse
	if err := json.Unmarshal([]byte(out), &resp); err != nil {
		t.Fatalf("decode %q: %v", out, err)
	}
	return resp
}

func TestReadOnlyFlags_IncludesTUI(t *testing.T) {
	for _, f := range AssetReadFlags() {
		if f.Names()[0] == "tui" {
			return
		}
	}
	t.Error("AssetReadFlags should include --tui")
}

func TestApply_ThenNoOperation(t *testing.T) {
	srv := assetServer(t)
	dir := t.TempDir()
	args := []string{"apply", "--format", "json", "--asset-dir", dir,
		"--file", "new_dir/inner/my_file.txt", "--url", "/api/file/A.txt", "--base-url", srv.URL}

	out, err := runApp(t, append(args, "--id", "6")...)
	if err != nil {
		t.Fatalf("apply: %v", err)
	}
	resp := decodeApply(t, out)
	if resp.OperationID != "6" || resp.State != types.StateFullyApplied || resp.BytesWritten != 17 {
		t.Errorf("first apply = %+v", resp)
	}
	data, err := os.ReadFile(filepath.Join(dir, "new_dir", "inner", "my_file.txt"))
	if err != nil || string(data) != "hello from file A" {
		t.Errorf("content = %q, %v", data, err)
	}

	out, err = runApp(t, append(args, "--id", "7")...)
	if err != nil {
		t.Fatalf("second apply: %v", err)
	}
	if resp := decodeApply(t, out); resp.State != types.StateNoOperation || resp.BytesWritten != 0 {
		t.Errorf("second apply = %+v", resp)
	}

	out, err = runApp(t, append(args, "--id", "8", "--force")...)
	if err != nil {
		t.Fatalf("forced apply: %v", err)
	}
	if resp := decodeApply(t, out); resp.State != types.StateFullyApplied {
		t.Errorf("forced apply = %+v", resp)
	}
}

func TestApply_NotAppliedExitsOne(t *testing.T) {
	srv := assetServer(t)
	tests := []struct {
		name    string
		args    []string
		details string
	}{
		{
			name:    "traversal",
			args:    []string{"--file", "../../system_lib.dll", "--url", "/api/file/A.txt"},
			details: "Accessing parent directory is forbidden in file path",
		},
		{
			name:    "missing url",
			args:    []string{"--file", "my_file.txt"},
			details: "Couldn't find 'url' argument",
		},
		{
			name:    "missing file",
			args:    nil,
			details: "Couldn't find 'file' argument",
		},
		{
			name:    "fetch failure",
			args:    []string{"--file", "dummy.txt", "--url", "/not_existing_api/file.txt"},
			details: "Failed to fetch asset",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dir := t.TempDir()
			args := append([]string{"apply", "--format", "json", "--asset-dir", dir, "--base-url", srv.URL, "--id", "9"}, tt.args...)
			out, err := runApp(t, args...)
			if code := exitCode(err); code != exitNotApplied {
				t.Fatalf("exit code = %d, want %d (%v)", code, exitNotApplied, err)
			}
			resp := decodeApply(t, out)
			if resp.State != types.StateNotApplied || !strings.Contains(resp.Details, tt.details) {
				t.Errorf("resp = %+v, want details %q", resp, tt.details)
			}
			entries, _ := os.ReadDir(dir)
			if len(entries) != 0 {
				t.Errorf("asset root not empty: %v", entries)
			}
		})
	}
}

func TestApply_TUIRejected(t *testing.T) {
	_, err := runApp(t, "apply", "--asset-dir", t.TempDir(), "--tui")
	if code := exitCode(err); code != exitConfigError {
		t.Errorf("exit code = %d, want %d", code, exitConfigError)
	}
}

func TestInspectAndStats(t *testing.T) {
	srv := assetServer(t)
	dir := t.TempDir()
	for _, file := range []string{"my_file.txt", "new_dir/inner/my_file.txt"} {
		if _, err := runApp(t, "apply", "--asset-dir", dir, "--file", file, "--url", srv.URL+"/api/file/A.txt"); err != nil {
			t.Fatalf("apply %s: %v", file, err)
		}
	}

	out, err := runApp(t, "inspect", "--format", "json", "--asset-dir", dir)
	if err != nil {
		t.Fatalf("inspect: %v", err)
	}
	var inspect struct {
		Assets []types.AssetRecord `json:"assets"`
	}
	if err := json.Unmarshal([]byte(out), &inspect); err != nil {
		t.Fatal(err)
	}
	if len(inspect.Assets) != 2 || inspect.Assets[0].Path != "my_file.txt" || inspect.Assets[1].Path != "new_dir/inner/my_file.txt" {
		t.Errorf("assets = %+v", inspect.Assets)
	}

	out, err = runApp(t, "inspect", "--format", "json", "--asset-dir", dir, "new_dir/")
	if err != nil {
		t.Fatal(err)
	}
	if err := json.Unmarshal([]byte(out), &inspect); err != nil || len(inspect.Assets) != 1 {
		t.Errorf("prefix filter: %+v %v", inspect.Assets, err)
	}

	out, err = runApp(t, "stats", "--format", "yaml", "--asset-dir", dir)
	if err != nil {
		t.Fatalf("stats: %v", err)
	}
	for _, want := range []string{"files: 2", "directories: 2", "total_bytes: 34"} {
		if !strings.Contains(out, want) {
			t.Errorf("stats output missing %q:\n%s", want, out)
		}
	}
}

func TestRun_MissingC2URL(t *testing.T) {
	_, err := runApp(t, "run", "--asset-dir", t.TempDir(), "--agent-id", "edge-1")
	if code := exitCode(err); code != exitConfigError {
		t.Errorf("exit code = %d, want %d (%v)", code, exitConfigError, err)
	}
}

func TestRun_BadConfigFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "outpost.yaml")
	if err := os.WriteFile(path, []byte("c2:\n  bogus: 1\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	_, err := runApp(t, "run", "--config", path)
	if code := exitCode(err); code != exitConfigError {
		t.Errorf("exit code = %d, want %d", code, exitConfigError)
	}
}

func TestVersion(t *testing.T) {
	out, err := runApp(t, "version", "--format", "json")
	if err != nil {
		t.Fatal(err)
	}
	var resp VersionResponse
	if err := json.Unmarshal([]byte(out), &resp); err != nil {
		t.Fatal(err)
	}
	if resp.Version != types.Version || resp.Commit != "test" {
		t.Errorf("version = %+v", resp)
	}
}

func TestNewNotifier(t *testing.T) {
	tests := []struct {
		name    string
		adapter config.AdapterConfig
		check   func(any) bool
		wantErr bool
	}{
		{"none", config.AdapterConfig{}, func(a any) bool { return a == nil }, false},
		{"webhook", config.AdapterConfig{Type: "webhook", URL: "http://localhost/hook"}, func(a any) bool {
			_, ok := a.(*webhook.Adapter)
			return ok
		}, false},
		{"redis", config.AdapterConfig{Type: "redis", URL: "redis://localhost:6379/0"}, func(a any) bool {
			_, ok := a.(*redis.Adapter)
			return ok
		}, false},
		{"unknown", config.AdapterConfig{Type: "kafka", URL: "x"}, nil, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			n, err := newNotifier(&config.Config{Adapter: tt.adapter})
			if (err != nil) != tt.wantErr {
				t.Fatalf("err = %v, wantErr %v", err, tt.wantErr)
			}
			if err != nil {
				return
			}
			var got any
			if n != nil {
				got = n
				defer n.Close()
			}
			if !tt.check(got) {
				t.Errorf("unexpected notifier %T", n)
			}
		})
	}
}
