package internal

import (
	"fmt"
	"log/slog"
	"regexp"
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"

	"github.com/Kkro1s/HongLouMeng/internal/graph"
)

// Auth modes.
const (
	AuthModeDisabled = "disabled"
	AuthModeToken    = "token"
)

// Config represents the application configuration.
type Config struct {
	App        ApplicationConfig `yaml:"app"`
	Corpus     CorpusConfig      `yaml:"corpus"`
	Characters CharactersConfig  `yaml:"characters"`
	Analysis   AnalysisConfig    `yaml:"analysis"`
	Output     OutputConfig      `yaml:"output"`
	SQLite     SQLiteConfig      `yaml:"sqlite"`
	Auth       AuthConfig        `yaml:"auth"`
	Watch      WatchConfig       `yaml:"watch"`
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	for _, v := range []validation.Validatable{
		&c.App, &c.Corpus, &c.Characters, &c.Analysis, &c.SQLite, &c.Auth, &c.Watch,
	} {
		if err := v.Validate(); err != nil {
			return err
		}
	}
	return nil
}

// ApplicationConfig holds application-level configuration.
type ApplicationConfig struct {
	LogLevel slog.Level `yaml:"log_level"`
	// LogFile, when set, receives a rotated copy of the JSON log.
	LogFile string     `yaml:"log_file"`
	HTTP    HTTPConfig `yaml:"http"`
}

// Validate validates the application configuration.
func (c *ApplicationConfig) Validate() error {
	return c.HTTP.Validate()
}

// HTTPConfig holds HTTP server configuration.
type HTTPConfig struct {
	Port int `yaml:"port"`
}

// Address returns HTTP server address.
func (c *HTTPConfig) Address() string {
	return fmt.Sprintf(":%d", c.Port)
}

// Validate validates the HTTP configuration.
func (c *HTTPConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.Port, validation.Required, validation.Min(1), validation.Max(65535)),
	)
}

// CorpusConfig locates and filters the chapter files.
type CorpusConfig struct {
	Path string `yaml:"path"`
	// Chapters restricts loading to these numbers; empty loads every chapter.
	Chapters []int `yaml:"chapters"`
	// SelectTop keeps the N chapters with the most focal mentions; 0 keeps all.
	SelectTop int    `yaml:"select_top"`
	Clean     bool   `yaml:"clean"`
	Pattern   string `yaml:"pattern"`
}

// Validate validates the corpus configuration.
func (c *CorpusConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.Path, validation.Required),
		validation.Field(&c.SelectTop, validation.Min(0)),
		validation.Field(&c.Chapters, validation.Each(validation.Min(1))),
		validation.Field(&c.Pattern, validation.By(compiles)),
	)
}

func compiles(v any) error {
	s, _ := v.(string)
	if s == "" {
		return nil
	}
	re, err := regexp.Compile(s)
	if err != nil {
		return err
	}
	if re.NumSubexp() < 1 {
		return fmt.Errorf("pattern needs a capture group for the chapter number")
	}
	return nil
}

// CharactersConfig selects the alias table and the focal character.
type CharactersConfig struct {
	// Path to a YAML alias table; empty uses the built-in table.
	Path  string `yaml:"path"`
	Focal string `yaml:"focal"`
}

// Validate validates the characters configuration.
func (c *CharactersConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.Focal, validation.Required),
	)
}

// AnalysisConfig tunes the pipeline.
type AnalysisConfig struct {
	Workers  int    `yaml:"workers"`
	PathCost string `yaml:"path_cost"`
}

// Validate validates the analysis configuration.
func (c *AnalysisConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.Workers, validation.Min(1), validation.Max(64)),
		validation.Field(&c.PathCost, validation.In(string(graph.CostWeight), string(graph.CostInverse))),
	)
}

// OutputConfig holds the export directory; empty disables file exports.
type OutputConfig struct {
	Path string `yaml:"path"`
}

// SQLiteConfig holds SQLite database configuration.
type SQLiteConfig struct {
	Path string `yaml:"path"`
}

// Validate validates the SQLite configuration.
func (c *SQLiteConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.Path, validation.Required),
	)
}

// AuthConfig holds authentication configuration.
//
// Mode controls how authentication is enforced:
//   - "disabled" (default): no authentication required, suitable for local use.
//   - "token": Bearer token authentication; Token must be non-empty.
type AuthConfig struct {
	Mode  string `yaml:"mode"`
	Token string `yaml:"token"`
}

// Validate validates the auth configuration.
func (c *AuthConfig) Validate() error {
	if c.Mode == "" {
		c.Mode = AuthModeDisabled
	}
	if err := validation.ValidateStruct(c,
		validation.Field(&c.Mode, validation.Required, validation.In(AuthModeDisabled, AuthModeToken)),
	); err != nil {
		return err
	}
	if c.Mode == AuthModeToken && c.Token == "" {
		return fmt.Errorf("auth: mode is %q but token is empty", AuthModeToken)
	}
	return nil
}

// AuthEnabled returns true when authentication is active.
func (c *AuthConfig) AuthEnabled() bool {
	return c.Mode == AuthModeToken
}

// WatchConfig controls re-analysis on corpus changes in serve mode.
type WatchConfig struct {
	Enabled  bool          `yaml:"enabled"`
	Debounce time.Duration `yaml:"debounce"`
}

// Validate validates the watch configuration.
func (c *WatchConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.Debounce, validation.Min(time.Duration(0))),
	)
}

// NewDefaultConfig returns a new Config with sensible default values.
func NewDefaultConfig() *Config {
	return &Config{
		App: ApplicationConfig{
			LogLevel: slog.LevelInfo,
			HTTP: HTTPConfig{
				Port: 8080,
			},
		},
		Corpus: CorpusConfig{
			Path:      "./chapters",
			SelectTop: 20,
			Clean:     true,
		},
		Characters: CharactersConfig{
			Focal: "薛寶釵",
		},
		Analysis: AnalysisConfig{
			Workers:  4,
			PathCost: string(graph.CostWeight),
		},
		Output: OutputConfig{
			Path: "./output",
		},
		SQLite: SQLiteConfig{
			Path: "./honglou.db",
		},
		Auth: AuthConfig{
			Mode: AuthModeDisabled,
		},
		Watch: WatchConfig{
			Enabled:  true,
			Debounce: 500 * time.Millisecond,
		},
	}
}
