package main

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/urlsentry/urlsentry/internal/config"
	"github.com/urlsentry/urlsentry/internal/report"
)

// TestNewScanCmd tests the scan command creation.
func TestNewScanCmd(t *testing.T) {
	t.Parallel()

	cmd := NewScanCmd()

	t.Run("has correct use", func(t *testing.T) {
		t.Parallel()
		if cmd.Use != "scan [url]..." {
			t.Errorf("expected use 'scan [url]...', got %q", cmd.Use)
		}
	})

	t.Run("has short description", func(t *testing.T) {
		t.Parallel()
		if cmd.Short == "" {
			t.Error("expected non-empty short description")
		}
	})

	t.Run("has long description", func(t *testing.T) {
		t.Parallel()
		if cmd.Long == "" {
			t.Error("expected non-empty long description")
		}
	})

	t.Run("has timeout flag", func(t *testing.T) {
		t.Parallel()
		flag := cmd.Flags().Lookup("timeout")
		if flag == nil {
			t.Fatal("expected timeout flag")
		}
		if flag.Shorthand != "t" {
			t.Errorf("expected shorthand 't', got %q", flag.Shorthand)
		}
	})

	t.Run("has batch flag", func(t *testing.T) {
		t.Parallel()
		flag := cmd.Flags().Lookup("batch")
		if flag == nil {
			t.Fatal("expected batch flag")
		}
		if flag.Shorthand != "b" {
			t.Errorf("expected shorthand 'b', got %q", flag.Shorthand)
		}
	})

	t.Run("has config flag", func(t *testing.T) {
		t.Parallel()
		flag := cmd.Flags().Lookup("config")
		if flag == nil {
			t.Fatal("expected config flag")
		}
		if flag.Shorthand != "c" {
			t.Errorf("expected shorthand 'c', got %q", flag.Shorthand)
		}
	})

	t.Run("has report format flags", func(t *testing.T) {
		t.Parallel()
		for name, shorthand := range map[string]string{
			"json":     "j",
			"markdown": "m",
			"output":   "o",
		} {
			flag := cmd.Flags().Lookup(name)
			if flag == nil {
				t.Fatalf("expected %s flag", name)
			}
			if flag.Shorthand != shorthand {
				t.Errorf("expected %s shorthand %q, got %q", name, shorthand, flag.Shorthand)
			}
		}
	})

	t.Run("has credential and policy flags", func(t *testing.T) {
		t.Parallel()
		for _, name := range []string{"safe-browsing-key", "abuseipdb-key", "policy"} {
			if cmd.Flags().Lookup(name) == nil {
				t.Errorf("expected %s flag", name)
			}
		}
	})

	t.Run("has sandbox and cache toggles", func(t *testing.T) {
		t.Parallel()
		for _, name := range []string{"no-sandbox", "no-cache"} {
			if cmd.Flags().Lookup(name) == nil {
				t.Errorf("expected %s flag", name)
			}
		}
	})
}

// TestBuildConfig tests config construction from command flags.
func TestBuildConfig(t *testing.T) {
	t.Run("defaults with targets from args", func(t *testing.T) {
		cmd := NewScanCmd()

		cfg, err := buildConfig(cmd, []string{"example.com", "example.net"})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		if cfg.Timeout != config.DefaultTimeout {
			t.Errorf("expected default timeout, got %v", cfg.Timeout)
		}
		if cfg.BatchSize != config.DefaultBatchSize {
			t.Errorf("expected default batch size, got %d", cfg.BatchSize)
		}
		if len(cfg.Targets) != 2 {
			t.Errorf("expected 2 targets, got %v", cfg.Targets)
		}
	})

	t.Run("flags override defaults", func(t *testing.T) {
		cmd := NewScanCmd()
		for flag, value := range map[string]string{
			"timeout": "45s",
			"batch":   "3",
			"json":    "true",
			"policy":  "rules.yml",
		} {
			if err := cmd.Flags().Set(flag, value); err != nil {
				t.Fatalf("failed to set %s: %v", flag, err)
			}
		}

		cfg, err := buildConfig(cmd, []string{"example.com"})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		if cfg.Timeout != 45*time.Second {
			t.Errorf("expected 45s timeout, got %v", cfg.Timeout)
		}
		if cfg.BatchSize != 3 {
			t.Errorf("expected batch size 3, got %d", cfg.BatchSize)
		}
		if !cfg.JSONReport {
			t.Error("expected JSON report enabled")
		}
		if cfg.PolicyFile != "rules.yml" {
			t.Errorf("expected policy file rules.yml, got %q", cfg.PolicyFile)
		}
	})

	t.Run("no-cache disables the lookup cache", func(t *testing.T) {
		cmd := NewScanCmd()
		if err := cmd.Flags().Set("no-cache", "true"); err != nil {
			t.Fatalf("failed to set no-cache: %v", err)
		}

		cfg, err := buildConfig(cmd, []string{"example.com"})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if cfg.CacheDir != "" {
			t.Errorf("expected empty cache dir, got %q", cfg.CacheDir)
		}
	})

	t.Run("config file fills unset values", func(t *testing.T) {
		tmpDir := t.TempDir()
		configPath := filepath.Join(tmpDir, "config.yml")
		content := "safe_browsing_api_key: test-key\nbatch_size: 4\n"
		if err := os.WriteFile(configPath, []byte(content), 0600); err != nil {
			t.Fatalf("failed to write config: %v", err)
		}

		cmd := NewScanCmd()
		if err := cmd.Flags().Set("config", configPath); err != nil {
			t.Fatalf("failed to set config: %v", err)
		}

		cfg, err := buildConfig(cmd, []string{"example.com"})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		if cfg.SafeBrowsingAPIKey != "test-key" {
			t.Errorf("expected API key from file, got %q", cfg.SafeBrowsingAPIKey)
		}
		if cfg.BatchSize != 4 {
			t.Errorf("expected batch size 4 from file, got %d", cfg.BatchSize)
		}
	})

	t.Run("explicit missing config file errors", func(t *testing.T) {
		cmd := NewScanCmd()
		if err := cmd.Flags().Set("config", filepath.Join(t.TempDir(), "missing.yml")); err != nil {
			t.Fatalf("failed to set config: %v", err)
		}

		if _, err := buildConfig(cmd, []string{"example.com"}); err == nil {
			t.Error("expected error for missing explicit config file")
		}
	})
}

// TestNewReportWriter tests report writer selection by configured format.
func TestNewReportWriter(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer

	t.Run("json format", func(t *testing.T) {
		t.Parallel()
		cfg := &config.Config{JSONReport: true}
		if _, ok := newReportWriter(cfg, &buf).(*report.FullJSONWriter); !ok {
			t.Error("expected FullJSONWriter for --json")
		}
	})

	t.Run("markdown format", func(t *testing.T) {
		t.Parallel()
		cfg := &config.Config{MarkdownReport: true}
		if _, ok := newReportWriter(cfg, &buf).(*report.MarkdownWriter); !ok {
			t.Error("expected MarkdownWriter for --markdown")
		}
	})

	t.Run("terminal by default", func(t *testing.T) {
		t.Parallel()
		cfg := &config.Config{}
		if _, ok := newReportWriter(cfg, &buf).(*report.TerminalWriter); !ok {
			t.Error("expected TerminalWriter by default")
		}
	})
}

// TestReportDestination tests report output resolution.
func TestReportDestination(t *testing.T) {
	t.Parallel()

	t.Run("stdout when no file configured", func(t *testing.T) {
		t.Parallel()

		output, closer, err := reportDestination(&config.Config{})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if output != os.Stdout {
			t.Error("expected stdout")
		}
		if closer != nil {
			t.Error("expected nil closer for stdout")
		}
	})

	t.Run("creates file and parent directories", func(t *testing.T) {
		t.Parallel()

		path := filepath.Join(t.TempDir(), "reports", "out.json")
		output, closer, err := reportDestination(&config.Config{ReportFile: path})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if closer == nil {
			t.Fatal("expected closer for file output")
		}

		if _, err := output.Write([]byte("data")); err != nil {
			t.Fatalf("failed to write: %v", err)
		}
		closer()

		info, err := os.Stat(path)
		if err != nil {
			t.Fatalf("expected output file: %v", err)
		}
		if info.Mode().Perm() != 0600 {
			t.Errorf("expected permissions 0600, got %v", info.Mode().Perm())
		}
	})
}
