package config

import (
	_ "embed"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/go-viper/mapstructure/v2"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/confmap"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/posflag"
	"github.com/knadh/koanf/v2"
	"github.com/leapstack-labs/schemais/pkg/lint"
	"github.com/spf13/pflag"
	yamlv3 "gopkg.in/yaml.v3"
)

//go:embed defaults.yaml
var defaultsYAML []byte

// Config file names, in lookup order.
const (
	FileName    = ".schemais.yaml"
	FileNameAlt = ".schemais.yml"
)

// EnvPrefix prefixes every environment variable the loader reads.
// A double underscore separates nested keys: SCHEMAIS_LINT__DISABLED.
const EnvPrefix = "SCHEMAIS_"

// maxUpwardSearchLevels limits how far up the directory tree to search for config files.
const maxUpwardSearchLevels = 10

// flagKeys maps flag names whose config key is not the snake_case flag name.
var flagKeys = map[string]string{
	"base-class":        "base_classes",
	"remove-definition": "remove_definitions",
	"disable":           "lint.disabled",
	"cache":             "cache_path",
}

// Options controls Load.
type Options struct {
	File  string         // explicit config file; searched for when empty
	Dir   string         // where the search starts; the working directory when empty
	Flags *pflag.FlagSet // only flags marked Changed are applied
}

// Defaults returns the built-in configuration as a nested map.
func Defaults() (map[string]any, error) {
	var m map[string]any
	if err := yamlv3.Unmarshal(defaultsYAML, &m); err != nil {
		return nil, fmt.Errorf("failed to decode defaults: %w", err)
	}
	return m, nil
}

// Load reads and validates the configuration. Relative paths from the
// config file are resolved against the project root; relative paths given
// as flags are resolved against the working directory.
func Load(opts Options) (*Config, error) {
	dir := opts.Dir
	if dir == "" {
		cwd, err := os.Getwd()
		if err != nil {
			return nil, fmt.Errorf("failed to get working directory: %w", err)
		}
		dir = cwd
	}

	k := koanf.New(".")

	// 1. Defaults
	defaults, err := Defaults()
	if err != nil {
		return nil, err
	}
	if err := k.Load(confmap.Provider(defaults, "."), nil); err != nil {
		return nil, fmt.Errorf("failed to load defaults: %w", err)
	}

	// 2. Project file
	cfgFile := opts.File
	projectRoot := dir
	if cfgFile == "" {
		if root := FindProjectRoot(dir); root != "" {
			projectRoot = root
			cfgFile = findConfigFile(root)
		}
	} else if abs, err := filepath.Abs(cfgFile); err == nil {
		cfgFile = abs
		projectRoot = filepath.Dir(abs)
	}
	if cfgFile != "" {
		if err := k.Load(file.Provider(cfgFile), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("error reading config file %s: %w", cfgFile, err)
		}
	}

	// 3. Environment: SCHEMAIS_TABLE_PREFIX -> table_prefix
	if err := k.Load(env.Provider(EnvPrefix, ".", envKey), nil); err != nil {
		return nil, fmt.Errorf("failed to load env vars: %w", err)
	}

	// 4. Flags
	flagPaths := map[string]string{}
	if opts.Flags != nil {
		if err := k.Load(posflag.ProviderWithFlag(opts.Flags, ".", k, func(f *pflag.Flag) (string, any) {
			if !f.Changed {
				return "", nil
			}
			key := flagKey(f.Name)
			val := posflag.FlagVal(opts.Flags, f)
			if key == "schema" || key == "cache_path" {
				if s, ok := val.(string); ok && s != "" {
					abs, err := filepath.Abs(s)
					if err == nil {
						flagPaths[key] = abs
					}
				}
			}
			return key, val
		}), nil); err != nil {
			return nil, fmt.Errorf("failed to load flags: %w", err)
		}
	}

	var cfg Config
	if err := k.Unmarshal("", &cfg); err != nil {
		return nil, fmt.Errorf("unable to decode config: %w", err)
	}
	cfg.ProjectRoot = projectRoot
	cfg.File = cfgFile

	cfg.Schema = resolvePath(flagPaths, "schema", cfg.Schema, projectRoot)
	cfg.CachePath = resolvePath(flagPaths, "cache_path", cfg.CachePath, projectRoot)
	for i, p := range cfg.Paths {
		cfg.Paths[i] = resolvePathRelativeTo(p, projectRoot)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return &cfg, nil
}

// DecodeRuleOptions decodes and checks one rule's option map. Unknown keys
// are rejected; strings are accepted for booleans and comma-separated
// strings for lists, as environment variables produce them.
func DecodeRuleOptions(raw map[string]any) (RuleOptions, error) {
	var opts RuleOptions
	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:           &opts,
		ErrorUnused:      true,
		WeaklyTypedInput: true,
		DecodeHook:       mapstructure.StringToSliceHookFunc(","),
	})
	if err != nil {
		return RuleOptions{}, err
	}
	if err := dec.Decode(raw); err != nil {
		return RuleOptions{}, fmt.Errorf("invalid rule options: %w", err)
	}
	return opts, nil
}

// FindProjectRoot walks up from startDir to the first directory holding a
// config file. Returns empty string if not found.
func FindProjectRoot(startDir string) string {
	dir := startDir
	for range maxUpwardSearchLevels {
		if findConfigFile(dir) != "" {
			return dir
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			break
		}
		dir = parent
	}
	return ""
}

func findConfigFile(dir string) string {
	for _, name := range []string{FileName, FileNameAlt} {
		path := filepath.Join(dir, name)
		if _, err := os.Stat(path); err == nil {
			return path
		}
	}
	return ""
}

func envKey(s string) string {
	s = strings.ToLower(strings.TrimPrefix(s, EnvPrefix))
	return strings.ReplaceAll(s, "__", ".")
}

func flagKey(name string) string {
	if key, ok := flagKeys[name]; ok {
		return key
	}
	return strings.ReplaceAll(name, "-", "_")
}

func resolvePath(fromFlags map[string]string, key, path, baseDir string) string {
	if abs, ok := fromFlags[key]; ok {
		return abs
	}
	return resolvePathRelativeTo(path, baseDir)
}

// resolvePathRelativeTo resolves a path relative to baseDir if it's not absolute.
func resolvePathRelativeTo(path, baseDir string) string {
	if path == "" || filepath.IsAbs(path) {
		return path
	}
	return filepath.Join(baseDir, path)
}

func ruleID(idOrName string) string {
	if r, ok := lint.GetByID(idOrName); ok {
		return r.ID
	}
	return strings.ToUpper(idOrName)
}
