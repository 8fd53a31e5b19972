// Package config loads run settings from an optional YAML file, WORKFLOW_*
// environment variables and defaults, and validates them against the JSON
// Schema reflected from Config.
package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/invopop/jsonschema"
	sjsonschema "github.com/santhosh-tekuri/jsonschema/v6"
	"github.com/spf13/viper"

	"github.com/ormasoftchile/workflow/pkg/providers"
	"github.com/ormasoftchile/workflow/pkg/schema"
)

const (
	// AppName names the config directory under $HOME/.config.
	AppName = "workflow"

	// FileName is the config file looked up without an explicit path.
	FileName = ".workflow"

	// EnvPrefix is the prefix for environment variables (WORKFLOW_MODE ...).
	EnvPrefix = "WORKFLOW"
)

// Config holds the settings a run starts from. CLI flags override them.
type Config struct {
	Mode       string `mapstructure:"mode"       json:"mode"       jsonschema:"enum=enforcement,enum=guided"`
	Shell      string `mapstructure:"shell"      json:"shell"      jsonschema:"minLength=1,description=Shell used as <shell> -c <command>"`
	Discipline string `mapstructure:"discipline" json:"discipline" jsonschema:"enum=inherit,enum=capture"`
	LogFormat  string `mapstructure:"log_format" json:"log_format" jsonschema:"enum=human,enum=json"`
	LogFile    string `mapstructure:"log_file"   json:"log_file"   jsonschema:"description=Diagnostic log file; empty logs to stderr"`
	Debug      bool   `mapstructure:"debug"      json:"debug"`
	Trace      string `mapstructure:"trace"      json:"trace"      jsonschema:"description=JSONL audit trail path; empty disables tracing"`
	Color      bool   `mapstructure:"color"      json:"color"`

	// Redact lists environment variables whose values are masked in recorded
	// scenarios.
	Redact []string `mapstructure:"redact" json:"redact,omitempty"`

	// File is the config file that was read, empty when none was found.
	File string `mapstructure:"-" json:"-"`
}

// ExecutionMode returns the validated mode.
func (c *Config) ExecutionMode() schema.Mode {
	m, err := schema.ParseMode(c.Mode)
	if err != nil {
		return schema.Enforcement
	}
	return m
}

// ExecutionDiscipline returns the validated discipline.
func (c *Config) ExecutionDiscipline() providers.Discipline {
	d, err := providers.ParseDiscipline(c.Discipline)
	if err != nil {
		return providers.Inherit
	}
	return d
}

// Default returns the built-in settings.
func Default() *Config {
	return &Config{
		Mode:       string(schema.Enforcement),
		Shell:      "sh",
		Discipline: string(providers.Inherit),
		LogFormat:  "human",
		Color:      true,
	}
}

// ValidationError is one schema violation.
type ValidationError struct {
	Path    string
	Message string
}

func (e *ValidationError) Error() string {
	if e.Path == "" {
		return e.Message
	}
	return e.Path + ": " + e.Message
}

// InvalidError collects every violation found in a loaded config.
type InvalidError struct {
	File   string
	Errors []*ValidationError
}

func (e *InvalidError) Error() string {
	msgs := make([]string, len(e.Errors))
	for i, v := range e.Errors {
		msgs[i] = v.Error()
	}
	src := "config"
	if e.File != "" {
		src = e.File
	}
	return fmt.Sprintf("invalid %s: %s", src, strings.Join(msgs, "; "))
}

// Load reads settings. cfgFile, when set, must exist; otherwise .workflow.yaml
// is looked up in the working directory, then in $HOME/.config/workflow.
func Load(cfgFile string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
	} else {
		v.SetConfigName(FileName)
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		if home, err := os.UserHomeDir(); err == nil {
			v.AddConfigPath(filepath.Join(home, ".config", AppName))
		}
	}

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()

	var file string
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if cfgFile != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("read config: %w", err)
		}
	} else {
		file = v.ConfigFileUsed()
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	cfg.File = file

	if errs := Validate(cfg); len(errs) > 0 {
		return nil, &InvalidError{File: file, Errors: errs}
	}
	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	d := Default()
	v.SetDefault("mode", d.Mode)
	v.SetDefault("shell", d.Shell)
	v.SetDefault("discipline", d.Discipline)
	v.SetDefault("log_format", d.LogFormat)
	v.SetDefault("log_file", d.LogFile)
	v.SetDefault("debug", d.Debug)
	v.SetDefault("trace", d.Trace)
	v.SetDefault("color", d.Color)
}

// GenerateConfigJSONSchema produces the JSON Schema of the settings file.
func GenerateConfigJSONSchema() ([]byte, error) {
	r := new(jsonschema.Reflector)
	s := r.Reflect(&Config{})
	s.ID = "https://github.com/ormasoftchile/workflow/schemas/config-v1.json"
	s.Title = "Workflow runner settings"

	data, err := json.MarshalIndent(s, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("marshal config schema: %w", err)
	}
	return data, nil
}

// Validate checks cfg against the reflected schema and returns every
// violation; nil means valid.
func Validate(cfg *Config) []*ValidationError {
	data, err := json.Marshal(cfg)
	if err != nil {
		return []*ValidationError{{Message: fmt.Sprintf("marshal for schema validation: %v", err)}}
	}
	schemaJSON, err := GenerateConfigJSONSchema()
	if err != nil {
		return []*ValidationError{{Message: fmt.Sprintf("generate schema: %v", err)}}
	}

	schemaDoc, err := sjsonschema.UnmarshalJSON(strings.NewReader(string(schemaJSON)))
	if err != nil {
		return []*ValidationError{{Message: fmt.Sprintf("unmarshal schema: %v", err)}}
	}
	c := sjsonschema.NewCompiler()
	if err := c.AddResource("config-v1.json", schemaDoc); err != nil {
		return []*ValidationError{{Message: fmt.Sprintf("add schema resource: %v", err)}}
	}
	sch, err := c.Compile("config-v1.json")
	if err != nil {
		return []*ValidationError{{Message: fmt.Sprintf("compile schema: %v", err)}}
	}

	doc, err := sjsonschema.UnmarshalJSON(strings.NewReader(string(data)))
	if err != nil {
		return []*ValidationError{{Message: fmt.Sprintf("unmarshal config: %v", err)}}
	}

	if err := sch.Validate(doc); err != nil {
		var ve *sjsonschema.ValidationError
		if !errors.As(err, &ve) {
			return []*ValidationError{{Message: err.Error()}}
		}
		var errs []*ValidationError
		for _, cause := range flattenValidationErrors(ve) {
			errs = append(errs, &ValidationError{
				Path:    strings.Join(cause.InstanceLocation, "/"),
				Message: fmt.Sprintf("%v", cause.ErrorKind),
			})
		}
		return errs
	}
	return nil
}

// flattenValidationErrors recursively collects all leaf validation errors.
func flattenValidationErrors(ve *sjsonschema.ValidationError) []*sjsonschema.ValidationError {
	if len(ve.Causes) == 0 {
		return []*sjsonschema.ValidationError{ve}
	}
	var flat []*sjsonschema.ValidationError
	for _, cause := range ve.Causes {
		flat = append(flat, flattenValidationErrors(cause)...)
	}
	return flat
}
