// Package config resolves pm settings from defaults, JSONC config files,
// the environment and command-line overrides.
package config

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/tailscale/hujson"
	"golang.org/x/text/language"

	"github.com/MetinAbaszade/Project-Management-System-sub000/internal/entity"
	"github.com/MetinAbaszade/Project-Management-System-sub000/internal/query"
	"github.com/MetinAbaszade/Project-Management-System-sub000/internal/store"
)

var (
	ErrConfigFileNotFound = errors.New("config file not found")
	ErrConfigFileRead     = errors.New("cannot read config file")
	ErrConfigInvalid      = errors.New("invalid config")
)

// FileName is the project config file looked up in the working directory.
const FileName = ".pm.json"

// Environment variables that override file settings.
const (
	EnvToken   = "PM_TOKEN"
	EnvAPIURL  = "PM_API_URL"
	EnvProject = "PM_PROJECT"
)

// Bands are the severity thresholds: High >= High, Medium >= Medium.
type Bands struct {
	High   float64 `json:"high"   validate:"gtfield=Medium"`
	Medium float64 `json:"medium"`
}

// Store selects the child-item repository.
type Store struct {
	Backend string `json:"backend,omitempty" validate:"omitempty,oneof=file sqlite memory"`
	Path    string `json:"path,omitempty"`
}

// Config holds all configuration options.
type Config struct {
	APIURL        string  `json:"api_url,omitempty"         validate:"omitempty,url"`
	Project       string  `json:"project,omitempty"`
	Token         string  `json:"token,omitempty"`
	JWTSecret     string  `json:"jwt_secret,omitempty"`
	Locale        string  `json:"locale,omitempty"`
	LogLevel      string  `json:"log_level,omitempty"       validate:"omitempty,oneof=debug info warn error"`
	SeverityBands *Bands  `json:"severity_bands,omitempty"`
	LowStockRatio float64 `json:"low_stock_ratio,omitempty" validate:"gte=0,lte=1"`
	PageSize      int     `json:"page_size,omitempty"       validate:"gte=0"`
	Store         Store   `json:"store"`

	// Resolved, not serialized.
	EffectiveCwd string  `json:"-"`
	Sources      Sources `json:"-"`
}

// Sources tracks which config files were loaded.
type Sources struct {
	Global  string
	Project string
	Env     []string
}

// Default returns the built-in configuration.
func Default() Config {
	return Config{
		Locale:        "en",
		LogLevel:      "error",
		SeverityBands: &Bands{High: 7, Medium: 4},
		LowStockRatio: entity.DefaultLowStockRatio,
		PageSize:      50,
		Store:         Store{Backend: store.BackendFile, Path: ".pm"},
	}
}

// globalPath is $XDG_CONFIG_HOME/pm/config.json, falling back to
// ~/.config/pm/config.json.
func globalPath(env map[string]string) string {
	if xdg := env["XDG_CONFIG_HOME"]; xdg != "" {
		return filepath.Join(xdg, "pm", "config.json")
	}

	if home := env["HOME"]; home != "" {
		return filepath.Join(home, ".config", "pm", "config.json")
	}

	return ""
}

// LoadInput holds the inputs for Load.
type LoadInput struct {
	WorkDir    string            // -C/--cwd; os.Getwd when empty
	ConfigPath string            // -c/--config
	Overrides  Config            // non-zero fields win over everything else
	Env        map[string]string // environment variables
}

// Load resolves configuration with the following precedence (highest wins):
// 1. Defaults
// 2. Global user config
// 3. Project config (.pm.json) or the explicit -c file
// 4. Environment (PM_TOKEN, PM_API_URL, PM_PROJECT)
// 5. CLI overrides.
func Load(input LoadInput) (Config, error) {
	workDir := input.WorkDir
	if workDir == "" {
		var err error

		workDir, err = os.Getwd()
		if err != nil {
			return Config{}, fmt.Errorf("cannot get working directory: %w", err)
		}
	}

	cfg := Default()

	if path := globalPath(input.Env); path != "" {
		global, loaded, err := loadFile(path, false)
		if err != nil {
			return Config{}, err
		}

		if loaded {
			cfg = merge(cfg, global)
			cfg.Sources.Global = path
		}
	}

	projectFile, mustExist := filepath.Join(workDir, FileName), false
	if input.ConfigPath != "" {
		projectFile, mustExist = input.ConfigPath, true
		if !filepath.IsAbs(projectFile) {
			projectFile = filepath.Join(workDir, projectFile)
		}
	}

	project, loaded, err := loadFile(projectFile, mustExist)
	if err != nil {
		return Config{}, err
	}

	if loaded {
		cfg = merge(cfg, project)
		cfg.Sources.Project = projectFile
	}

	cfg = applyEnv(cfg, input.Env)
	cfg = merge(cfg, input.Overrides)

	if err := Validate(cfg); err != nil {
		return Config{}, err
	}

	cfg.EffectiveCwd = workDir

	if cfg.Store.Backend != store.BackendMemory && !filepath.IsAbs(cfg.Store.Path) {
		cfg.Store.Path = filepath.Join(workDir, cfg.Store.Path)
	}

	return cfg, nil
}

func applyEnv(cfg Config, env map[string]string) Config {
	for _, kv := range []struct {
		name string
		dst  *string
	}{
		{EnvToken, &cfg.Token},
		{EnvAPIURL, &cfg.APIURL},
		{EnvProject, &cfg.Project},
	} {
		if v := strings.TrimSpace(env[kv.name]); v != "" {
			*kv.dst = v
			cfg.Sources.Env = append(cfg.Sources.Env, kv.name)
		}
	}

	return cfg
}

// loadFile reads a JSONC config file. A missing optional file is not an error.
func loadFile(path string, mustExist bool) (Config, bool, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			if mustExist {
				return Config{}, false, fmt.Errorf("%w: %s", ErrConfigFileNotFound, path)
			}

			return Config{}, false, nil
		}

		return Config{}, false, fmt.Errorf("%w: %s: %w", ErrConfigFileRead, path, err)
	}

	cfg, err := Parse(data)
	if err != nil {
		return Config{}, false, fmt.Errorf("%w %s: %w", ErrConfigInvalid, path, err)
	}

	return cfg, true, nil
}

// Parse decodes a JSONC document. Unknown keys are rejected.
func Parse(data []byte) (Config, error) {
	standardized, err := hujson.Standardize(data)
	if err != nil {
		return Config{}, fmt.Errorf("invalid JSONC: %w", err)
	}

	var cfg Config

	dec := json.NewDecoder(bytes.NewReader(standardized))
	dec.DisallowUnknownFields()

	if err := dec.Decode(&cfg); err != nil {
		return Config{}, fmt.Errorf("invalid JSON: %w", err)
	}

	return cfg, nil
}

func merge(base, overlay Config) Config {
	for _, f := range []struct {
		dst *string
		src string
	}{
		{&base.APIURL, overlay.APIURL},
		{&base.Project, overlay.Project},
		{&base.Token, overlay.Token},
		{&base.JWTSecret, overlay.JWTSecret},
		{&base.Locale, overlay.Locale},
		{&base.LogLevel, overlay.LogLevel},
		{&base.Store.Backend, overlay.Store.Backend},
		{&base.Store.Path, overlay.Store.Path},
	} {
		if f.src != "" {
			*f.dst = f.src
		}
	}

	if overlay.SeverityBands != nil {
		bands := *overlay.SeverityBands
		base.SeverityBands = &bands
	}

	if overlay.LowStockRatio != 0 {
		base.LowStockRatio = overlay.LowStockRatio
	}

	if overlay.PageSize != 0 {
		base.PageSize = overlay.PageSize
	}

	return base
}

var validate = validator.New(validator.WithRequiredStructEnabled())

// Validate checks field constraints and cross-field rules.
func Validate(cfg Config) error {
	if err := validate.Struct(cfg); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) {
			msgs := make([]string, 0, len(verrs))
			for _, fe := range verrs {
				msgs = append(msgs, fmt.Sprintf("%s fails %q", fe.Namespace(), fe.Tag()))
			}

			return fmt.Errorf("%w: %s", ErrConfigInvalid, strings.Join(msgs, "; "))
		}

		return fmt.Errorf("%w: %w", ErrConfigInvalid, err)
	}

	if cfg.Locale != "" {
		if _, err := language.Parse(cfg.Locale); err != nil {
			return fmt.Errorf("%w: locale %q: %w", ErrConfigInvalid, cfg.Locale, err)
		}
	}

	if cfg.Store.Backend != store.BackendMemory && strings.TrimSpace(cfg.Store.Path) == "" {
		return fmt.Errorf("%w: store.path cannot be empty", ErrConfigInvalid)
	}

	return nil
}

// Language returns the collation locale, defaulting to English.
func (c Config) Language() language.Tag {
	tag, err := language.Parse(c.Locale)
	if err != nil || c.Locale == "" {
		return language.English
	}

	return tag
}

// Rules converts the thresholds into entity rules.
func (c Config) Rules() (entity.Rules, error) {
	rules := entity.DefaultRules()

	if c.SeverityBands != nil {
		bands, err := query.SeverityBands(c.SeverityBands.High, c.SeverityBands.Medium)
		if err != nil {
			return entity.Rules{}, fmt.Errorf("%w: %w", ErrConfigInvalid, err)
		}

		rules.SeverityBands = bands
	}

	if c.LowStockRatio > 0 {
		rules.LowStockRatio = c.LowStockRatio
	}

	return rules, nil
}

// StoreOptions returns the repository options.
func (c Config) StoreOptions() store.Options {
	path := c.Store.Path
	if c.Store.Backend == store.BackendSQLite && filepath.Ext(path) == "" {
		path = filepath.Join(path, "items.sqlite")
	}

	return store.Options{Backend: c.Store.Backend, Path: path}
}

// Format renders the effective configuration as key=value lines followed by
// the sources it was loaded from. Secrets are masked.
func Format(c Config) string {
	var b strings.Builder

	line := func(k, v string) {
		if v != "" {
			fmt.Fprintf(&b, "%s=%s\n", k, v)
		}
	}

	line("effective_cwd", c.EffectiveCwd)
	line("api_url", c.APIURL)
	line("project", c.Project)
	line("token", mask(c.Token))
	line("jwt_secret", mask(c.JWTSecret))
	line("locale", c.Locale)
	line("log_level", c.LogLevel)

	if c.SeverityBands != nil {
		line("severity_bands", fmt.Sprintf("high>=%g medium>=%g", c.SeverityBands.High, c.SeverityBands.Medium))
	}

	line("low_stock_ratio", fmt.Sprintf("%g", c.LowStockRatio))
	line("page_size", fmt.Sprintf("%d", c.PageSize))
	line("store.backend", c.Store.Backend)
	line("store.path", c.Store.Path)

	b.WriteString("\n# sources\n")

	if c.Sources.Global == "" && c.Sources.Project == "" && len(c.Sources.Env) == 0 {
		b.WriteString("(defaults only)\n")

		return b.String()
	}

	line("global_config", c.Sources.Global)
	line("project_config", c.Sources.Project)

	if len(c.Sources.Env) > 0 {
		env := append([]string(nil), c.Sources.Env...)
		slices.Sort(env)
		line("env", strings.Join(env, ","))
	}

	return b.String()
}

func mask(secret string) string {
	if secret == "" {
		return ""
	}

	return "****"
}
