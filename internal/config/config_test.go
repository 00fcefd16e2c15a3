package config_test

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/MetinAbaszade/Project-Management-System-sub000/internal/config"
	"github.com/MetinAbaszade/Project-Management-System-sub000/internal/store"
)

func writeFile(t *testing.T, path, content string) {
	t.Helper()

	if err := os.MkdirAll(filepath.Dir(path), 0o750); err != nil {
		t.Fatalf("mkdir: %v", err)
	}

	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("write %s: %v", path, err)
	}
}

func Test_Load_Returns_Defaults_When_No_Files_Exist(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()

	cfg, err := config.Load(config.LoadInput{WorkDir: dir, Env: map[string]string{}})
	if err != nil {
		t.Fatalf("load: %v", err)
	}

	if cfg.Store.Path != filepath.Join(dir, ".pm") {
		t.Fatalf("store path = %q", cfg.Store.Path)
	}

	if cfg.PageSize != 50 || cfg.LowStockRatio != 0.2 || cfg.LogLevel != "error" {
		t.Fatalf("unexpected defaults: %+v", cfg)
	}

	if !strings.Contains(config.Format(cfg), "(defaults only)") {
		t.Fatalf("format should report defaults only:\n%s", config.Format(cfg))
	}
}

// Contract: global < project < env < CLI overrides; JSONC comments and trailing commas are accepted.
func Test_Load_Layers_Sources_When_All_Present(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	xdg := t.TempDir()

	writeFile(t, filepath.Join(xdg, "pm", "config.json"), `{
		// global defaults
		"api_url": "https://global.example.com",
		"project": "global-project",
		"locale": "de",
	}`)
	writeFile(t, filepath.Join(dir, config.FileName), `{
		"project": "alpha",
		"severity_bands": {"high": 8, "medium": 5},
		"store": {"backend": "sqlite", "path": "data"},
	}`)

	cfg, err := config.Load(config.LoadInput{
		WorkDir:   dir,
		Env:       map[string]string{"XDG_CONFIG_HOME": xdg, config.EnvToken: "env-token"},
		Overrides: config.Config{LogLevel: "debug"},
	})
	if err != nil {
		t.Fatalf("load: %v", err)
	}

	got := []string{cfg.APIURL, cfg.Project, cfg.Token, cfg.Locale, cfg.LogLevel, cfg.Store.Backend}
	want := []string{"https://global.example.com", "alpha", "env-token", "de", "debug", "sqlite"}

	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("layered values mismatch (-want +got):\n%s", diff)
	}

	if cfg.Language().String() != "de" {
		t.Fatalf("language = %v", cfg.Language())
	}

	opts := cfg.StoreOptions()
	if opts.Backend != store.BackendSQLite || opts.Path != filepath.Join(dir, "data", "items.sqlite") {
		t.Fatalf("store options = %+v", opts)
	}

	rules, err := cfg.Rules()
	if err != nil {
		t.Fatalf("rules: %v", err)
	}

	if got := rules.SeverityBands.Label(7.5); got != "Medium" {
		t.Fatalf("Label(7.5) = %q, want Medium", got)
	}

	out := config.Format(cfg)
	for _, want := range []string{"global_config=", "project_config=", "env=PM_TOKEN", "token=****"} {
		if !strings.Contains(out, want) {
			t.Fatalf("format missing %q:\n%s", want, out)
		}
	}

	if strings.Contains(out, "env-token") {
		t.Fatalf("format leaked token:\n%s", out)
	}
}

func Test_Load_Uses_Explicit_File_When_Config_Flag_Set(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()

	writeFile(t, filepath.Join(dir, config.FileName), `{"project": "ignored"}`)
	writeFile(t, filepath.Join(dir, "custom.json"), `{"project": "custom"}`)

	cfg, err := config.Load(config.LoadInput{WorkDir: dir, ConfigPath: "custom.json"})
	if err != nil {
		t.Fatalf("load: %v", err)
	}

	if cfg.Project != "custom" {
		t.Fatalf("project = %q, want custom", cfg.Project)
	}

	_, err = config.Load(config.LoadInput{WorkDir: dir, ConfigPath: "missing.json"})
	if !errors.Is(err, config.ErrConfigFileNotFound) {
		t.Fatalf("missing explicit file err = %v", err)
	}
}

func Test_Load_Rejects_Invalid_Settings_When_Validating(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name    string
		content string
	}{
		{name: "syntax", content: `{"project": `},
		{name: "unknown_key", content: `{"projekt": "x"}`},
		{name: "bad_url", content: `{"api_url": "not a url"}`},
		{name: "bad_level", content: `{"log_level": "loud"}`},
		{name: "inverted_bands", content: `{"severity_bands": {"high": 3, "medium": 5}}`},
		{name: "ratio_range", content: `{"low_stock_ratio": 2}`},
		{name: "bad_backend", content: `{"store": {"backend": "postgres"}}`},
		{name: "bad_locale", content: `{"locale": "!!"}`},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			dir := t.TempDir()
			writeFile(t, filepath.Join(dir, config.FileName), tc.content)

			_, err := config.Load(config.LoadInput{WorkDir: dir})
			if !errors.Is(err, config.ErrConfigInvalid) {
				t.Fatalf("err = %v, want ErrConfigInvalid", err)
			}
		})
	}
}
