package config

import (
	"os"
	"path/filepath"

	apperrors "github.com/Zachacious/go-slsdoc/internal/errors"
	"gopkg.in/yaml.v3"
)

// FileName is the optional per-project configuration file.
const FileName = ".slsdoc.yaml"

const (
	DefaultTitle       = "Generated API"
	DefaultDescription = "No description"
	DefaultVersion     = "1.0.0"
	DefaultServerURL   = "http://localhost:5000/"
	DefaultServerName  = "Local"
	DefaultManifest    = "serverless.yml"
)

// Contact mirrors the OpenAPI contact object.
type Contact struct {
	Name  string `yaml:"name"`
	URL   string `yaml:"url"`
	Email string `yaml:"email"`
}

// DocOptions holds the document metadata recognised by the builder. Every
// field is defaulted independently by WithDefaults.
type DocOptions struct {
	Title          string   `yaml:"title"`
	Description    string   `yaml:"description"`
	TermsOfService string   `yaml:"termsOfService"`
	Contact        *Contact `yaml:"contact"`
	Version        string   `yaml:"version"`
	ServerURL      string   `yaml:"-"`
	ServerName     string   `yaml:"-"`
}

// WithDefaults returns a copy with empty fields filled in.
func (o DocOptions) WithDefaults() DocOptions {
	if o.Title == "" {
		o.Title = DefaultTitle
	}
	if o.Description == "" {
		o.Description = DefaultDescription
	}
	if o.Version == "" {
		o.Version = DefaultVersion
	}
	if o.ServerURL == "" {
		o.ServerURL = DefaultServerURL
	}
	if o.ServerName == "" {
		o.ServerName = DefaultServerName
	}
	return o
}

// ServerConfig is the single server entry of the generated document.
type ServerConfig struct {
	URL  string `yaml:"url"`
	Name string `yaml:"name"`
}

// SecuritySchemeConfig overrides how a named scheme is declared.
type SecuritySchemeConfig struct {
	Type         string `yaml:"type"`
	Description  string `yaml:"description"`
	In           string `yaml:"in"`
	Name         string `yaml:"name"`
	Scheme       string `yaml:"scheme"`
	BearerFormat string `yaml:"bearerFormat"`
}

// Config is the full generation configuration.
type Config struct {
	Info              DocOptions                      `yaml:"info"`
	Server            ServerConfig                    `yaml:"server"`
	SecuritySchemes   map[string]SecuritySchemeConfig `yaml:"securitySchemes"`
	Manifest          string                          `yaml:"manifest"`
	HandlerExtensions []string                        `yaml:"handlerExtensions"`
}

// Default returns the configuration used when no .slsdoc.yaml exists.
func Default() *Config {
	return &Config{
		Info: DocOptions{
			Title:       DefaultTitle,
			Description: DefaultDescription,
			Version:     DefaultVersion,
		},
		Server:            ServerConfig{URL: DefaultServerURL, Name: DefaultServerName},
		SecuritySchemes:   make(map[string]SecuritySchemeConfig),
		Manifest:          DefaultManifest,
		HandlerExtensions: []string{".js", ".ts", ".mjs", ".cjs"},
	}
}

// Load reads .slsdoc.yaml from projectPath over the defaults. A missing file
// is not an error.
func Load(projectPath string) (*Config, error) {
	cfg := Default()

	configPath := filepath.Join(projectPath, FileName)
	data, err := os.ReadFile(configPath)
	if err == nil {
		if unmarshalErr := yaml.Unmarshal(data, cfg); unmarshalErr != nil {
			return nil, apperrors.Attr(
				apperrors.Wrap(unmarshalErr, apperrors.KindConfig, "invalid "+FileName),
				"file", configPath)
		}
	} else if !os.IsNotExist(err) {
		return nil, apperrors.Wrap(err, apperrors.KindConfig, "read "+FileName)
	}

	if cfg.Manifest == "" {
		cfg.Manifest = DefaultManifest
	}
	if len(cfg.HandlerExtensions) == 0 {
		cfg.HandlerExtensions = Default().HandlerExtensions
	}
	if cfg.SecuritySchemes == nil {
		cfg.SecuritySchemes = make(map[string]SecuritySchemeConfig)
	}
	return cfg, nil
}

// DocOptions merges the info and server sections into builder options.
func (c *Config) DocOptions() DocOptions {
	opts := c.Info
	opts.ServerURL = c.Server.URL
	opts.ServerName = c.Server.Name
	return opts.WithDefaults()
}
