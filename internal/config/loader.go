// Package config loads build configuration for the CLI from viper-managed
// sources: defaults, a global config file, a local config file discovered
// by walking up from the first source file, and command-line flags, in
// increasing priority.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/ispc-build/ispcb"
	"github.com/ispc-build/ispcb/internal/errs"
	"github.com/ispc-build/ispcb/isa"
)

// Default configuration values
const (
	DefaultCompiler = "ispc"
	DefaultBindgen  = "bindgen"
	DefaultOutDir   = "ispc-build"
	DefaultOptLevel = 2
)

// configExtensions are the accepted config file formats, in lookup order.
// Both the global config (config.<ext> in the user config dir) and the
// per-project config (.ispcb.<ext>, discovered by FindLocalConfig) use them.
var configExtensions = []string{"yml", "yaml", "json", "toml"}

// Loader handles configuration loading from various sources
type Loader struct{}

// NewLoader creates a new configuration loader
func NewLoader() *Loader {
	return &Loader{}
}

// LoadForBuild loads configuration specifically for build operations
func (l *Loader) LoadForBuild(cmd *cobra.Command, args []string) (*ispcb.Config, error) {
	l.setupViperDefaults()
	l.loadGlobalConfig()
	l.loadLocalConfig(args)
	l.bindCommandFlags(cmd)

	return Load()
}

func (l *Loader) setupViperDefaults() {
	viper.SetDefault("compiler_path", DefaultCompiler)
	viper.SetDefault("bindgen_path", DefaultBindgen)
	viper.SetDefault("out_dir", DefaultOutDir)
	viper.SetDefault("opt_level", DefaultOptLevel)
}

// loadGlobalConfig loads the global configuration from the user config dir
func (l *Loader) loadGlobalConfig() {
	confDir, err := os.UserConfigDir()
	if err != nil {
		return
	}

	globalDir := filepath.Join(confDir, "ispcb")
	for _, ext := range configExtensions {
		globalPath := filepath.Join(globalDir, "config."+ext)

		if _, err := os.Stat(globalPath); err == nil {
			viper.SetConfigFile(globalPath)

			if err := viper.ReadInConfig(); err == nil {
				break
			}
		}
	}
}

// loadLocalConfig loads local configuration from the project directory
func (l *Loader) loadLocalConfig(args []string) {
	if len(args) > 0 {
		absFirstFile, err := filepath.Abs(args[0])
		if err != nil {
			return
		}

		dir := filepath.Dir(absFirstFile)
		localPath := FindLocalConfig(dir)
		if localPath != "" {
			viper.SetConfigFile(localPath)
			_ = viper.ReadInConfig()
		}
	}
}

// bindCommandFlags binds command flags to viper
func (l *Loader) bindCommandFlags(cmd *cobra.Command) {
	_ = viper.BindPFlag("target", cmd.Flags().Lookup("target"))
	_ = viper.BindPFlag("opt_level", cmd.Flags().Lookup("opt-level"))
	_ = viper.BindPFlag("debug", cmd.Flags().Lookup("debug"))
	_ = viper.BindPFlag("out_dir", cmd.Flags().Lookup("out"))
	_ = viper.BindPFlag("include", cmd.Flags().Lookup("include"))
	_ = viper.BindPFlag("define", cmd.Flags().Lookup("define"))
	_ = viper.BindPFlag("math_lib", cmd.Flags().Lookup("math-lib"))
	_ = viper.BindPFlag("pic", cmd.Flags().Lookup("pic"))
	_ = viper.BindPFlag("jobs", cmd.Flags().Lookup("jobs"))
	_ = viper.BindPFlag("verbose", cmd.Flags().Lookup("verbose"))
}

// Load builds an ispcb.Config from the current viper state.
func Load() (*ispcb.Config, error) {
	cfg := ispcb.New()

	if v := viper.GetString("compiler_path"); v != "" {
		cfg.Compiler(v)
	}

	if v := viper.GetString("bindgen_path"); v != "" {
		cfg.Bindgen(v)
	}

	if v := viper.GetString("out_dir"); v != "" {
		cfg.OutDir(v)
	}

	cfg.Opt(viper.GetInt("opt_level"))
	cfg.Debug(viper.GetBool("debug"))

	if viper.GetBool("pic") {
		cfg.PositionIndependentCode()
	}

	for _, name := range viper.GetStringSlice("target") {
		t, err := isa.Parse(name)
		if err != nil {
			return nil, &errs.ConfigurationError{Reason: err.Error()}
		}

		cfg.TargetISA(t)
	}

	for _, inc := range viper.GetStringSlice("include") {
		cfg.IncludePath(inc)
	}

	for _, def := range viper.GetStringSlice("define") {
		key, value, _ := strings.Cut(def, "=")
		cfg.Define(key, value)
	}

	if v := viper.GetString("math_lib"); v != "" {
		m, err := ParseMathLib(v)
		if err != nil {
			return nil, err
		}

		cfg.MathLib(m)
	}

	if jobs := viper.GetInt("jobs"); jobs > 0 {
		cfg.Parallelism(jobs)
	}

	cfg.Verbose = viper.GetBool("verbose")

	return cfg, nil
}

// ParseMathLib parses a math library name from configuration.
func ParseMathLib(s string) (isa.MathLib, error) {
	switch strings.ToLower(s) {
	case "default", "":
		return isa.MathDefault, nil
	case "fast":
		return isa.MathFast, nil
	case "svml":
		return isa.MathSVML, nil
	case "system":
		return isa.MathSystem, nil
	default:
		return isa.MathDefault, &errs.ConfigurationError{Reason: fmt.Sprintf("unknown math library: %q", s)}
	}
}
