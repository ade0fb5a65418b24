package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"
)

const (
	DefaultGlob       = "**/*.hbs"
	DefaultFormat     = "json"
	DefaultSamplesDir = "testdata/samples"
	DefaultLogLevel   = "info"
	DefaultLogFormat  = "text"
	DefaultFile       = "gobars.yaml"
)

// Config stores runtime options shared by every command. Fields map one to
// one to CLI flags; a config file provides defaults that flags override.
type Config struct {
	LogLevel  string `yaml:"log_level" validate:"oneof=debug info warn error"`
	LogFormat string `yaml:"log_format" validate:"oneof=text json"`

	In          string `yaml:"in"`
	Out         string `yaml:"out"`
	Glob        string `yaml:"glob"`
	Format      string `yaml:"format" validate:"oneof=json yaml yml"`
	SamplesRoot string `yaml:"samples_root"`
	Helpers     string `yaml:"helpers" validate:"omitempty,endswith=.star"`
	CacheDir    string `yaml:"cache_dir"`

	ReportJSON string `yaml:"report_json"`
	ReportCSV  string `yaml:"report_csv"`

	RenderCheck bool `yaml:"render_check"`
	Strict      bool `yaml:"strict"`
	Watch       bool `yaml:"watch"`
	Minify      bool `yaml:"minify"`
}

// Default returns baseline configuration values used by CLI flags.
func Default() Config {
	return Config{
		LogLevel:    DefaultLogLevel,
		LogFormat:   DefaultLogFormat,
		Glob:        DefaultGlob,
		Format:      DefaultFormat,
		SamplesRoot: DefaultSamplesDir,
	}
}

// Load reads the YAML file at path on top of Default(). Unknown keys are
// rejected.
func Load(path string) (Config, error) {
	cfg := Default()
	if err := cfg.Merge(path); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Merge decodes the YAML file at path into c, keeping the values of keys the
// file does not set.
func (c *Config) Merge(path string) error {
	raw, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config %q: %w", path, err)
	}
	dec := yaml.NewDecoder(bytes.NewReader(raw))
	dec.KnownFields(true)
	if err := dec.Decode(c); err != nil && !errors.Is(err, io.EOF) {
		return fmt.Errorf("decode config %q: %w", path, err)
	}
	return nil
}

var (
	validate   = validator.New(validator.WithRequiredStructEnabled())
	configType = reflect.TypeOf(Config{})
)

// Validate normalizes the options every command uses and checks them
// against the struct rules.
func (c *Config) Validate() error {
	c.LogLevel = strings.ToLower(strings.TrimSpace(c.LogLevel))
	c.LogFormat = strings.ToLower(strings.TrimSpace(c.LogFormat))
	c.Format = strings.ToLower(strings.TrimSpace(c.Format))
	if c.LogLevel == "" {
		c.LogLevel = DefaultLogLevel
	}
	if c.LogFormat == "" {
		c.LogFormat = DefaultLogFormat
	}
	if c.Format == "" {
		c.Format = DefaultFormat
	}

	if err := validate.Struct(c); err != nil {
		return fieldErrors(err)
	}
	if c.Helpers != "" {
		c.Helpers = filepath.Clean(c.Helpers)
	}
	return nil
}

// ValidatePrecompile checks the options of a precompile run.
func (c *Config) ValidatePrecompile() error {
	if err := c.Validate(); err != nil {
		return err
	}
	if strings.TrimSpace(c.In) == "" {
		return fmt.Errorf("--in is required")
	}
	if strings.TrimSpace(c.Out) == "" {
		return fmt.Errorf("--out is required")
	}

	if strings.TrimSpace(c.Glob) == "" {
		c.Glob = DefaultGlob
	}
	if strings.TrimSpace(c.SamplesRoot) == "" {
		c.SamplesRoot = DefaultSamplesDir
	}

	c.In = filepath.Clean(c.In)
	c.Out = filepath.Clean(c.Out)
	c.SamplesRoot = filepath.Clean(c.SamplesRoot)
	if c.CacheDir != "" {
		c.CacheDir = filepath.Clean(c.CacheDir)
	}

	info, err := os.Stat(c.In)
	if err != nil {
		return fmt.Errorf("input path %q is not accessible: %w", c.In, err)
	}
	if !info.IsDir() {
		return fmt.Errorf("input path %q must be a directory", c.In)
	}
	if c.Out == c.In {
		return fmt.Errorf("output path %q must differ from the input path", c.Out)
	}

	return nil
}

// fieldErrors turns validator errors into one message naming each option by
// its config key.
func fieldErrors(err error) error {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return err
	}
	msgs := make([]string, 0, len(verrs))
	for _, e := range verrs {
		key := optionKey(e.StructField())
		switch e.Tag() {
		case "oneof":
			msgs = append(msgs, fmt.Sprintf("%s must be one of [%s], got %q", key, e.Param(), e.Value()))
		case "endswith":
			msgs = append(msgs, fmt.Sprintf("%s must end with %s, got %q", key, e.Param(), e.Value()))
		default:
			msgs = append(msgs, fmt.Sprintf("%s is invalid", key))
		}
	}
	return errors.New(strings.Join(msgs, "; "))
}

func optionKey(field string) string {
	f, ok := configType.FieldByName(field)
	if !ok {
		return field
	}
	if tag, _, _ := strings.Cut(f.Tag.Get("yaml"), ","); tag != "" {
		return tag
	}
	return field
}
