package config

import (
	"errors"
	"fmt"
	"io/fs"
	"path/filepath"
	"strings"
	"time"

	"github.com/adrg/xdg"
	"github.com/go-git/go-billy/v5"
	"github.com/go-git/go-billy/v5/util"
	"github.com/goccy/go-yaml"
	"github.com/rs/zerolog"
	"github.com/thatsOven/opal-lang/internal/compiler"
	"github.com/thatsOven/opal-lang/internal/comptime"
	"github.com/thatsOven/opal-lang/internal/opalconsts"
	"github.com/thatsOven/opal-lang/internal/utils"
)

const (
	USER_CONFIG_RELPATH = opalconsts.USER_CONFIG_DIRNAME + "/" + opalconsts.USER_CONFIG_FILENAME

	DEFAULT_LOG_LEVEL = zerolog.WarnLevel
)

var (
	USER_HOME             string
	FORCE_COLOR           bool
	TRUECOLOR_COLORTERM   bool
	TERM_256COLOR_CAPABLE bool
	NO_COLOR              bool
	SHOULD_COLORIZE       bool //computed from the environment only, see ShouldColorize
)

func init() {
	targetSpecificInit()
}

type ColorMode string

const (
	AUTO_COLOR   ColorMode = "auto"
	ALWAYS_COLOR ColorMode = "always"
	NEVER_COLOR  ColorMode = "never"
)

// File is the content of a configuration file, absent keys are nil.
type File struct {
	TypeMode        *string `yaml:"type_mode"`
	Notes           *bool   `yaml:"notes"`
	Static          *bool   `yaml:"static"`
	Python          *string `yaml:"python"`
	RuntimePath     *string `yaml:"runtime_path"`
	Comptime        *bool   `yaml:"comptime"`
	ComptimeTimeout *string `yaml:"comptime_timeout"`
	LogLevel        *string `yaml:"log_level"`
	Color           *string `yaml:"color"`
}

// Settings are the resolved settings of the CLI: the defaults overridden by the user file
// and then by the project file.
type Settings struct {
	TypeMode        compiler.TypeMode
	Notes           bool
	Static          bool
	Python          string
	RuntimePath     string
	Comptime        bool
	ComptimeTimeout time.Duration
	LogLevel        zerolog.Level
	Color           ColorMode

	Sources []string //files the settings were read from
}

func Default() Settings {
	return Settings{
		TypeMode:        compiler.HYBRID_TYPE_MODE,
		Notes:           true,
		Python:          comptime.DEFAULT_PYTHON_BINARY,
		Comptime:        true,
		ComptimeTimeout: comptime.DEFAULT_TIMEOUT,
		LogLevel:        DEFAULT_LOG_LEVEL,
		Color:           AUTO_COLOR,
	}
}

// CompilerOptions returns the compiler options the settings correspond to.
func (s Settings) CompilerOptions() compiler.Options {
	return compiler.Options{
		Static:       s.Static,
		DisableNotes: !s.Notes,
		TypeMode:     s.TypeMode,
	}
}

// UserConfigPath returns the path of the user configuration file, ok is false if there is none.
func UserConfigPath() (path string, ok bool) {
	path, err := xdg.SearchConfigFile(USER_CONFIG_RELPATH)
	if err != nil {
		return "", false
	}
	return path, true
}

// ProjectConfigPath returns the path of the project configuration file of the sources in dir.
func ProjectConfigPath(dir string) string {
	return filepath.Join(dir, opalconsts.PROJECT_CONFIG_FILENAME)
}

// Load resolves the settings for the sources in sourceDir: the user file then the project file.
func Load(fsys billy.Filesystem, sourceDir string) (Settings, error) {
	var paths []string
	if path, ok := UserConfigPath(); ok {
		paths = append(paths, path)
	}
	if sourceDir != "" {
		paths = append(paths, ProjectConfigPath(sourceDir))
	}
	return LoadFiles(fsys, paths...)
}

// LoadFiles applies the configuration files at paths to the defaults, in order. Missing files are ignored.
func LoadFiles(fsys billy.Filesystem, paths ...string) (Settings, error) {
	settings := Default()
	var errs []error

	for _, path := range paths {
		file, err := ReadFile(fsys, path)
		if errors.Is(err, fs.ErrNotExist) {
			continue
		}
		if err != nil {
			errs = append(errs, err)
			continue
		}

		if err := settings.Apply(file); err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", path, err))
			continue
		}
		settings.Sources = append(settings.Sources, path)
	}

	return settings, utils.CombineErrors(errs...)
}

func ReadFile(fsys billy.Filesystem, path string) (File, error) {
	content, err := util.ReadFile(fsys, path)
	if err != nil {
		return File{}, err
	}

	var file File
	if err := yaml.Unmarshal(content, &file); err != nil {
		return File{}, fmt.Errorf("invalid configuration file %s: %w", path, err)
	}
	return file, nil
}

// Apply overrides the settings with the keys present in file.
func (s *Settings) Apply(file File) error {
	if file.TypeMode != nil {
		mode, ok := compiler.ParseTypeMode(*file.TypeMode)
		if !ok {
			return fmt.Errorf("invalid type_mode %q, valid modes are: %s", *file.TypeMode, strings.Join(compiler.TYPE_MODE_NAMES[:], ", "))
		}
		s.TypeMode = mode
	}
	if file.Notes != nil {
		s.Notes = *file.Notes
	}
	if file.Static != nil {
		s.Static = *file.Static
	}
	if file.Python != nil {
		s.Python = *file.Python
	}
	if file.RuntimePath != nil {
		path := *file.RuntimePath
		if strings.HasPrefix(path, "~/") {
			path = USER_HOME + path[2:]
		}
		s.RuntimePath = path
	}
	if file.Comptime != nil {
		s.Comptime = *file.Comptime
	}
	if file.ComptimeTimeout != nil {
		timeout, err := time.ParseDuration(*file.ComptimeTimeout)
		if err != nil || timeout <= 0 {
			return fmt.Errorf("invalid comptime_timeout %q", *file.ComptimeTimeout)
		}
		s.ComptimeTimeout = timeout
	}
	if file.LogLevel != nil {
		level, err := zerolog.ParseLevel(*file.LogLevel)
		if err != nil {
			return fmt.Errorf("invalid log_level: %w", err)
		}
		s.LogLevel = level
	}
	if file.Color != nil {
		mode, err := ParseColorMode(*file.Color)
		if err != nil {
			return err
		}
		s.Color = mode
	}
	return nil
}

func ParseColorMode(s string) (ColorMode, error) {
	switch mode := ColorMode(strings.ToLower(s)); mode {
	case AUTO_COLOR, ALWAYS_COLOR, NEVER_COLOR:
		return mode, nil
	}
	return "", fmt.Errorf("invalid color mode %q, valid modes are: auto, always, never", s)
}
