package config

import (
	"os"
	"path/filepath"
	"regexp"

	"github.com/adrg/xdg"
	"github.com/fortify-report/bootstrap/internal/shell"
)

// Default configuration values.
const (
	// AppName is the application name used for XDG directory paths.
	AppName = "fortify-bootstrap"

	// DefaultMinPythonVersion is the oldest interpreter (major.minor) the
	// tool is known to run on. Older interpreters produce a warning.
	DefaultMinPythonVersion = "3.8"

	// DefaultManifest is the dependency declaration file uv syncs from.
	DefaultManifest = "pyproject.toml"

	// DefaultEntryPoint is the GUI entry-point script.
	DefaultEntryPoint = "fortify_gui.py"

	// DefaultEntryScript is the console script the manifest installs.
	// It is launched when the entry-point file is absent.
	DefaultEntryScript = "fortify-gui"

	// DefaultToolConfig is the tool's own configuration file.
	DefaultToolConfig = "config/config.yaml"

	// DefaultPackageManager is the package manager installed through pip.
	DefaultPackageManager = "uv"

	// DefaultInstallAttempts is the number of times the package manager
	// install action is tried. One attempt means no retry.
	DefaultInstallAttempts = 1
)

var majorMinorPattern = regexp.MustCompile(`^(0|[1-9]\d*)\.(0|[1-9]\d*)$`)

// Config holds all configuration options of one bootstrap invocation.
// It is populated from defaults, the optional config file and CLI flags,
// in increasing order of precedence.
type Config struct {
	// Dir is the project directory that holds the manifest and entry point.
	Dir string

	// Shell selects the invocation context ("posix", "windows").
	// Empty means detect from the operating system.
	Shell string

	// MinPythonVersion is the minimum interpreter version as "major.minor".
	MinPythonVersion string

	// Manifest is the dependency declaration file, relative to Dir.
	Manifest string

	// EntryPoint is the GUI entry-point file, relative to Dir.
	EntryPoint string

	// EntryScript is the script name run through uv when EntryPoint is absent.
	EntryScript string

	// ToolConfig is the tool's configuration file, relative to Dir.
	ToolConfig string

	// PackageManager is the command installed via pip and used to sync.
	PackageManager string

	// InstallAttempts is how often the package manager install is tried.
	InstallAttempts int

	// ConsoleEncoding decodes process output (e.g. "big5" on a zh-TW
	// Windows console). Empty means UTF-8.
	ConsoleEncoding string

	// RuntimeCandidates overrides the interpreter names tried in order.
	RuntimeCandidates []string

	// PipCandidates overrides the pip names tried in order.
	PipCandidates []string

	// SkipVersionCheck disables the runtime version step.
	SkipVersionCheck bool

	// Force reinstalls the package manager and dependencies even when the
	// checks already pass.
	Force bool

	// NoLaunch stops after the checks instead of handing off to the tool.
	NoLaunch bool

	// Verbose enables debug logging.
	Verbose bool

	// NoColor disables styled console output.
	NoColor bool

	// JSONOutput prints the result as JSON instead of the checklist.
	JSONOutput bool

	// ReportFile is an optional Markdown report destination.
	ReportFile string

	// ConfigFilePath is the explicit config file path, if any.
	ConfigFilePath string
}

// NewConfig creates a new Config with default values.
func NewConfig() *Config {
	return &Config{
		Dir:              ".",
		MinPythonVersion: DefaultMinPythonVersion,
		Manifest:         DefaultManifest,
		EntryPoint:       DefaultEntryPoint,
		EntryScript:      DefaultEntryScript,
		ToolConfig:       DefaultToolConfig,
		PackageManager:   DefaultPackageManager,
		InstallAttempts:  DefaultInstallAttempts,
	}
}

// XDGConfigDir returns the XDG config directory for the bootstrap.
// On Linux: ~/.config/fortify-bootstrap
// On macOS: ~/Library/Application Support/fortify-bootstrap
// On Windows: %APPDATA%\fortify-bootstrap
func XDGConfigDir() string {
	return filepath.Join(xdg.ConfigHome, AppName)
}

// Validate checks if the configuration is valid and returns the first
// problem found.
func (c *Config) Validate() error {
	if c.Dir == "" {
		return ErrInvalidDir
	}
	info, err := os.Stat(c.Dir)
	if err != nil || !info.IsDir() {
		return ErrInvalidDir
	}

	if !majorMinorPattern.MatchString(c.MinPythonVersion) {
		return ErrInvalidMinVersion
	}

	if c.Manifest == "" {
		return ErrEmptyManifest
	}

	if c.EntryPoint == "" && c.EntryScript == "" {
		return ErrNoEntryPoint
	}

	if c.PackageManager == "" {
		return ErrEmptyPackageManager
	}

	if c.InstallAttempts < 1 {
		return ErrInvalidInstallAttempts
	}

	if _, err := shell.Parse(c.Shell); err != nil {
		return ErrInvalidShell
	}

	if _, err := shell.LookupEncoding(c.ConsoleEncoding); err != nil {
		return ErrInvalidEncoding
	}

	return nil
}

// Adapter builds the shell adapter described by the configuration.
// Call Validate first; invalid shell or encoding names fall back to the
// detected shell and UTF-8.
func (c *Config) Adapter() *shell.Adapter {
	kind, err := shell.Parse(c.Shell)
	if err != nil {
		kind = shell.Detect()
	}

	opts := []shell.Option{
		shell.WithRuntimeCandidates(c.RuntimeCandidates...),
		shell.WithPipCandidates(c.PipCandidates...),
	}
	if enc, err := shell.LookupEncoding(c.ConsoleEncoding); err == nil {
		opts = append(opts, shell.WithEncoding(enc))
	}

	return shell.New(kind, opts...)
}
