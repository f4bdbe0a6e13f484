package cli

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"gopkg.in/yaml.v3"

	"github.com/mark3labs/autoroute/internal/catalog"
	"github.com/mark3labs/autoroute/internal/emitter/docemitter"
	"github.com/mark3labs/autoroute/internal/extract"
	"github.com/mark3labs/autoroute/internal/logger"
	"github.com/mark3labs/autoroute/internal/route"
)

// DefaultConfigFile is read from the working directory when --config is not
// given.
const DefaultConfigFile = "autoroute.yaml"

// Serializers accepted by Config.DefaultSerializer.
const (
	SerializerJSON = "json"
	SerializerNone = "none"
)

// ExtractorConfig declares a user extractor type.
type ExtractorConfig struct {
	// Type is importpath.Name, or Name for the handler's own package.
	Type         string
	Role         string
	ContentTypes []string
	IntoParams   bool
}

// Config captures all inputs that influence a command after merging
// defaults, config file values, and CLI overrides.
type Config struct {
	Dir               string
	Output            string
	Trace             bool
	DefaultSerializer string
	PublicOnly        bool
	DryRun            bool
	Force             bool
	Verbose           bool
	Watch             bool
	Extractors        []ExtractorConfig
	DocsFormat        string
	DocsOut           string
	Title             string
	Version           string
	ConfigPath        string
}

func defaultConfig() Config {
	return Config{
		Dir:               ".",
		Output:            route.DefaultOutput,
		DefaultSerializer: SerializerJSON,
		DocsFormat:        docemitter.FormatYAML,
	}
}

func resolveConfig(cmd *cobra.Command) (*Config, error) {
	cfg := defaultConfig()

	configPath, err := cmd.Flags().GetString("config")
	if err != nil {
		return nil, err
	}
	configPath = strings.TrimSpace(configPath)
	if configPath == "" {
		if _, err := os.Stat(DefaultConfigFile); err == nil {
			configPath = DefaultConfigFile
		}
	}
	if configPath != "" {
		cfg.ConfigPath = configPath
		if err := applyConfigFromFile(&cfg, configPath); err != nil {
			return nil, err
		}
	}

	if err := applyFlagOverrides(cmd.Flags(), &cfg); err != nil {
		return nil, err
	}

	cfg.normalize()
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// addPackageFlags registers the flags shared by every command that loads a
// package.
func addPackageFlags(flags *pflag.FlagSet) {
	flags.String("dir", "", "Package directory holding the annotated handlers (default \".\")")
	flags.String("output", "", "Name of the generated file (default \""+route.DefaultOutput+"\")")
	flags.Bool("trace", false, "Generate debug traces for every handler")
	flags.String("default-serializer", "", "Serializer for responses without one (json|none)")
}

func applyFlagOverrides(flags *pflag.FlagSet, cfg *Config) error {
	strs := map[string]*string{
		"dir":                &cfg.Dir,
		"output":             &cfg.Output,
		"default-serializer": &cfg.DefaultSerializer,
		"format":             &cfg.DocsFormat,
		"out":                &cfg.DocsOut,
		"title":              &cfg.Title,
		"version":            &cfg.Version,
	}
	for name, dst := range strs {
		if !flags.Changed(name) {
			continue
		}
		value, err := flags.GetString(name)
		if err != nil {
			return err
		}
		*dst = strings.TrimSpace(value)
	}

	bools := map[string]*bool{
		"trace":       &cfg.Trace,
		"public-only": &cfg.PublicOnly,
		"dry-run":     &cfg.DryRun,
		"force":       &cfg.Force,
		"verbose":     &cfg.Verbose,
		"watch":       &cfg.Watch,
	}
	for name, dst := range bools {
		if !flags.Changed(name) {
			continue
		}
		value, err := flags.GetBool(name)
		if err != nil {
			return err
		}
		*dst = value
	}
	return nil
}

func (c *Config) normalize() {
	c.Dir = strings.TrimSpace(c.Dir)
	if c.Dir == "" {
		c.Dir = "."
	}
	c.Output = strings.TrimSpace(c.Output)
	if c.Output == "" {
		c.Output = route.DefaultOutput
	}
	c.DefaultSerializer = strings.ToLower(strings.TrimSpace(c.DefaultSerializer))
	if c.DefaultSerializer == "" {
		c.DefaultSerializer = SerializerJSON
	}
	c.DocsFormat = strings.ToLower(strings.TrimSpace(c.DocsFormat))
	if c.DocsFormat == "" {
		c.DocsFormat = docemitter.FormatYAML
	}
	c.DocsOut = strings.TrimSpace(c.DocsOut)
	c.Title = strings.TrimSpace(c.Title)
	c.Version = strings.TrimSpace(c.Version)
}

func (c *Config) validate() error {
	switch c.DefaultSerializer {
	case SerializerJSON, SerializerNone:
	default:
		return newUsageError(fmt.Sprintf("unsupported default serializer %q (allowed: json, none)", c.DefaultSerializer))
	}
	switch c.DocsFormat {
	case docemitter.FormatYAML, docemitter.FormatJSON:
	default:
		return newUsageError(fmt.Sprintf("unsupported docs format %q (allowed: yaml, json)", c.DocsFormat))
	}
	if strings.ContainsAny(c.Output, `/\`) || !strings.HasSuffix(c.Output, ".go") || strings.HasSuffix(c.Output, "_test.go") {
		return newUsageError(fmt.Sprintf("output %q must be a plain .go file name", c.Output))
	}
	if _, err := c.registry(); err != nil {
		return newUsageError(err.Error())
	}
	if c.Watch && c.DryRun {
		return newUsageError("--watch cannot be combined with --dry-run")
	}
	return nil
}

// registry returns the built-in extractor kinds plus the configured ones.
func (c *Config) registry() (*extract.Registry, error) {
	reg := extract.NewRegistry()
	for i, e := range c.Extractors {
		path, name, err := extract.ParseKindKey(e.Type)
		if err != nil {
			return nil, fmt.Errorf("extractors[%d]: %w", i, err)
		}
		role, err := extract.ParseRole(e.Role)
		if err != nil {
			return nil, fmt.Errorf("extractors[%d]: %w", i, err)
		}
		if role == extract.RolePayload && e.IntoParams {
			return nil, fmt.Errorf("extractors[%d]: a payload extractor cannot document into params", i)
		}
		k := extract.Kind{Name: name, ImportPath: path, Role: role, IntoParams: e.IntoParams}
		for _, ct := range e.ContentTypes {
			m, ok := catalog.MIMEBySymbol(ct)
			if !ok {
				if m, err = catalog.ParseMIME(ct); err != nil {
					return nil, fmt.Errorf("extractors[%d]: content type %q: %w", i, ct, err)
				}
			}
			k.ContentTypes = append(k.ContentTypes, m)
		}
		if err := reg.Register(k); err != nil {
			return nil, fmt.Errorf("extractors[%d]: %w", i, err)
		}
	}
	return reg, nil
}

func (c *Config) loadOptions(log *logger.Logger) ([]route.Option, error) {
	reg, err := c.registry()
	if err != nil {
		return nil, err
	}
	return []route.Option{
		route.WithRegistry(reg),
		route.WithTrace(c.Trace),
		route.WithRawByDefault(c.DefaultSerializer == SerializerNone),
		route.WithOutput(c.Output),
		route.WithLogger(log.Logger),
	}, nil
}

func (c *Config) newLogger() *logger.Logger {
	level := logger.LevelInfo
	if c.Verbose {
		level = logger.LevelDebug
	}
	return logger.NewLogger(logger.WithName("autoroute"), logger.WithLevel(level))
}

func applyConfigFromFile(cfg *Config, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return newUsageError(fmt.Sprintf("read config file %q: %v", path, err))
	}

	var raw map[string]any
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return newUsageError(fmt.Sprintf("parse config file %q: %v", path, err))
	}

	for key, value := range raw {
		var err error
		switch normalizeKey(key) {
		case "dir":
			cfg.Dir, err = valueAsString(value)
		case "output":
			cfg.Output, err = valueAsString(value)
		case "trace":
			cfg.Trace, err = valueAsBool(value)
		case "defaultserializer":
			cfg.DefaultSerializer, err = valueAsString(value)
		case "publiconly":
			cfg.PublicOnly, err = valueAsBool(value)
		case "dryrun":
			cfg.DryRun, err = valueAsBool(value)
		case "force":
			cfg.Force, err = valueAsBool(value)
		case "verbose":
			cfg.Verbose, err = valueAsBool(value)
		case "watch":
			cfg.Watch, err = valueAsBool(value)
		case "extractors":
			cfg.Extractors, err = valueAsExtractors(value)
		case "docsformat":
			cfg.DocsFormat, err = valueAsString(value)
		case "docsout":
			cfg.DocsOut, err = valueAsString(value)
		case "title":
			cfg.Title, err = valueAsString(value)
		case "version":
			cfg.Version, err = valueAsString(value)
		default:
			return newUsageError(fmt.Sprintf("config file %q: unknown field %q", path, key))
		}
		if err != nil {
			return newUsageError(fmt.Sprintf("config field %q: %v", key, err))
		}
	}
	return nil
}

func normalizeKey(raw string) string {
	lowered := strings.ToLower(strings.TrimSpace(raw))
	lowered = strings.ReplaceAll(lowered, "-", "")
	lowered = strings.ReplaceAll(lowered, "_", "")
	return lowered
}

func valueAsString(v any) (string, error) {
	switch val := v.(type) {
	case string:
		return strings.TrimSpace(val), nil
	case nil:
		return "", nil
	case int, float64:
		// version: 1.0 parses as a number
		return fmt.Sprint(val), nil
	default:
		return "", fmt.Errorf("expected string, got %T", v)
	}
}

func valueAsStringSlice(v any) ([]string, error) {
	switch val := v.(type) {
	case nil:
		return nil, nil
	case string:
		if strings.TrimSpace(val) == "" {
			return nil, nil
		}
		return splitAndTrim(val), nil
	case []any:
		items := make([]string, 0, len(val))
		for idx, elem := range val {
			str, err := valueAsString(elem)
			if err != nil {
				return nil, fmt.Errorf("element %d: %w", idx, err)
			}
			if str != "" {
				items = append(items, str)
			}
		}
		return items, nil
	default:
		return nil, fmt.Errorf("expected string or list, got %T", v)
	}
}

func valueAsBool(v any) (bool, error) {
	switch val := v.(type) {
	case bool:
		return val, nil
	case string:
		trimmed := strings.ToLower(strings.TrimSpace(val))
		switch trimmed {
		case "true", "t", "1", "yes", "y":
			return true, nil
		case "false", "f", "0", "no", "n", "":
			return false, nil
		default:
			return false, fmt.Errorf("invalid boolean value %q", val)
		}
	case nil:
		return false, nil
	default:
		return false, fmt.Errorf("expected boolean, got %T", v)
	}
}

func valueAsExtractors(v any) ([]ExtractorConfig, error) {
	list, ok := v.([]any)
	if !ok {
		if v == nil {
			return nil, nil
		}
		return nil, fmt.Errorf("expected list, got %T", v)
	}
	out := make([]ExtractorConfig, 0, len(list))
	for idx, elem := range list {
		fields, ok := elem.(map[string]any)
		if !ok {
			return nil, fmt.Errorf("element %d: expected mapping, got %T", idx, elem)
		}
		var e ExtractorConfig
		for key, value := range fields {
			var err error
			switch normalizeKey(key) {
			case "type":
				e.Type, err = valueAsString(value)
			case "role":
				e.Role, err = valueAsString(value)
			case "contenttypes", "contenttype":
				e.ContentTypes, err = valueAsStringSlice(value)
			case "intoparams":
				e.IntoParams, err = valueAsBool(value)
			default:
				err = fmt.Errorf("unknown field %q", key)
			}
			if err != nil {
				return nil, fmt.Errorf("element %d: %w", idx, err)
			}
		}
		if e.Type == "" {
			return nil, fmt.Errorf("element %d: type is required", idx)
		}
		out = append(out, e)
	}
	return out, nil
}

func splitAndTrim(csv string) []string {
	parts := strings.Split(csv, ",")
	cleaned := make([]string, 0, len(parts))
	for _, part := range parts {
		trimmed := strings.TrimSpace(part)
		if trimmed != "" {
			cleaned = append(cleaned, trimmed)
		}
	}
	return cleaned
}

// wrapLoadError turns rejected declarations and unreadable input into usage
// errors that keep the loader's location.
func wrapLoadError(err error) error {
	var le *route.LoadError
	if !errors.As(err, &le) {
		return err
	}
	msg := le.Message
	switch le.Code {
	case route.DeclError:
		msg = "rejected route declarations:\n" + msg
	case route.ParseError:
		msg = "parse: " + msg
	default:
		if le.Location != "" && !strings.Contains(msg, le.Location) {
			msg = fmt.Sprintf("%s\nLocation: %s", msg, le.Location)
		}
	}
	return newUsageError(msg)
}
