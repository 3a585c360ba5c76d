package main

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/tannerfalls/playlistdb/internal/shared"
	tu "github.com/tannerfalls/playlistdb/internal/testing"
)

func TestRunner(t *testing.T) {
	t.Run("NewRunner", func(t *testing.T) {
		t.Run("with all dependencies provided", func(t *testing.T) {
			config := shared.DefaultConfig()
			logger := shared.NewLogger(nil)
			output := &bytes.Buffer{}
			catalog := tu.NewMockCatalog()

			runner := NewRunner(RunnerOpts{
				Config:  config,
				Catalog: catalog,
				Logger:  logger,
				Output:  output,
			})

			if runner.config != config {
				t.Error("expected config to be set")
			}
			if runner.catalog != catalog {
				t.Error("expected catalog to be set")
			}
			if runner.logger != logger {
				t.Error("expected logger to be set")
			}
			if runner.output != output {
				t.Error("expected output to be set")
			}
		})

		t.Run("with nil config uses defaults", func(t *testing.T) {
			runner := NewRunner(RunnerOpts{Config: nil})

			if runner.config == nil {
				t.Error("expected default config to be set")
			}
		})

		t.Run("with nil logger uses default", func(t *testing.T) {
			runner := NewRunner(RunnerOpts{Logger: nil})

			if runner.logger == nil {
				t.Error("expected default logger to be set")
			}
		})

		t.Run("with nil output uses stdout", func(t *testing.T) {
			runner := NewRunner(RunnerOpts{Output: nil})

			if runner.output != os.Stdout {
				t.Error("expected output to default to os.Stdout")
			}
		})
	})

	t.Run("register", func(t *testing.T) {
		runner := NewRunner(RunnerOpts{})
		commands := runner.register()

		if len(commands) != 5 {
			t.Errorf("expected 5 commands, got %d", len(commands))
		}

		for i, cmd := range commands {
			if cmd == nil {
				t.Errorf("command at index %d is nil", i)
			}
		}
	})

	t.Run("resolveCatalog", func(t *testing.T) {
		t.Run("returns injected catalog", func(t *testing.T) {
			catalog := tu.NewMockCatalog()
			runner := NewRunner(RunnerOpts{Catalog: catalog})

			resolved, err := runner.resolveCatalog(runner.config)
			if err != nil {
				t.Fatalf("expected no error, got %v", err)
			}
			if resolved != catalog {
				t.Error("expected the injected catalog back")
			}
		})

		t.Run("missing credentials is an error", func(t *testing.T) {
			config := shared.DefaultConfig()
			config.Credentials.Spotify.ClientID = ""
			config.Credentials.Spotify.ClientSecret = ""
			runner := NewRunner(RunnerOpts{Config: config})

			_, err := runner.resolveCatalog(config)
			if !errors.Is(err, shared.ErrMissingCredentials) {
				t.Errorf("expected ErrMissingCredentials, got %v", err)
			}
		})
	})

	t.Run("loadConfig", func(t *testing.T) {
		t.Run("missing path falls back to runner config", func(t *testing.T) {
			config := shared.DefaultConfig()
			config.Server.Port = 9999
			runner := NewRunner(RunnerOpts{Config: config})

			loaded := runner.loadConfigPath("", runner.config)
			if loaded.Server.Port != 9999 {
				t.Errorf("expected runner config, got port %d", loaded.Server.Port)
			}
		})

		t.Run("nonexistent file falls back to runner config", func(t *testing.T) {
			runner := NewRunner(RunnerOpts{})

			loaded := runner.loadConfigPath("/nonexistent/config.toml", runner.config)
			if loaded != runner.config {
				t.Error("expected runner config for nonexistent path")
			}
		})

		t.Run("valid file is loaded", func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "config.toml")
			contents := "[server]\nhost = \"0.0.0.0\"\nport = 4000\n"
			if err := os.WriteFile(path, []byte(contents), 0644); err != nil {
				t.Fatalf("failed to write config: %v", err)
			}

			runner := NewRunner(RunnerOpts{})
			loaded := runner.loadConfigPath(path, runner.config)
			if loaded.Server.Port != 4000 {
				t.Errorf("expected port from file, got %d", loaded.Server.Port)
			}
		})
	})

	t.Run("writeJSON", func(t *testing.T) {
		t.Run("writes formatted JSON successfully", func(t *testing.T) {
			output := &bytes.Buffer{}
			runner := NewRunner(RunnerOpts{Output: output})

			data := map[string]string{"key": "value"}
			if err := runner.writeJSON(data, true); err != nil {
				t.Fatalf("expected no error, got %v", err)
			}

			result := output.String()
			if !strings.Contains(result, `"key": "value"`) {
				t.Errorf("expected formatted JSON, got %s", result)
			}
			if !strings.HasSuffix(result, "\n") {
				t.Error("expected output to end with newline")
			}
		})

		t.Run("writes compact JSON successfully", func(t *testing.T) {
			output := &bytes.Buffer{}
			runner := NewRunner(RunnerOpts{Output: output})

			data := map[string]string{"key": "value"}
			if err := runner.writeJSON(data, false); err != nil {
				t.Fatalf("expected no error, got %v", err)
			}

			expected := `{"key":"value"}` + "\n"
			if output.String() != expected {
				t.Errorf("expected %q, got %q", expected, output.String())
			}
		})

		t.Run("handles marshal error with non-serializable data", func(t *testing.T) {
			runner := NewRunner(RunnerOpts{Output: &bytes.Buffer{}})

			// channels cannot be marshaled to JSON
			err := runner.writeJSON(make(chan int), false)
			if err == nil {
				t.Fatal("expected error for non-serializable data")
			}
			if !strings.Contains(err.Error(), "failed to marshal JSON") {
				t.Errorf("expected marshal error, got %v", err)
			}
		})

		t.Run("handles write failure", func(t *testing.T) {
			runner := NewRunner(RunnerOpts{Output: &tu.FWriter{}})

			err := runner.writeJSON(map[string]string{"key": "value"}, false)
			if err == nil {
				t.Fatal("expected error from failing writer")
			}
			if !strings.Contains(err.Error(), "failed to write output") {
				t.Errorf("expected write error, got %v", err)
			}
		})
	})

	t.Run("writePlain", func(t *testing.T) {
		t.Run("writes plain text successfully", func(t *testing.T) {
			output := &bytes.Buffer{}
			runner := NewRunner(RunnerOpts{Output: output})

			if err := runner.writePlain("hello %s", "world"); err != nil {
				t.Fatalf("expected no error, got %v", err)
			}
			if output.String() != "hello world" {
				t.Errorf("expected 'hello world', got %q", output.String())
			}
		})

		t.Run("handles write failure", func(t *testing.T) {
			runner := NewRunner(RunnerOpts{Output: &tu.FWriter{}})

			err := runner.writePlain("test")
			if err == nil {
				t.Fatal("expected error from failing writer")
			}
			if !strings.Contains(err.Error(), "failed to write output") {
				t.Errorf("expected write error, got %v", err)
			}
		})
	})
}
