package config

import "errors"

// Configuration validation errors returned by Config.Validate.
var (
	// ErrInvalidDir is returned when the project directory does not exist
	// or is not a directory.
	ErrInvalidDir = errors.New("invalid project directory: must be an existing directory (see --dir)")

	// ErrInvalidMinVersion is returned when the minimum runtime version is
	// not of the form major.minor.
	ErrInvalidMinVersion = errors.New("invalid min_python_version: must be major.minor, e.g. 3.8")

	// ErrEmptyManifest is returned when no declaration file name is set.
	ErrEmptyManifest = errors.New("invalid manifest: file name must not be empty")

	// ErrNoEntryPoint is returned when neither an entry-point file nor an
	// entry script is configured, so there is nothing to launch.
	ErrNoEntryPoint = errors.New("invalid entry point: set entry_point or entry_script")

	// ErrEmptyPackageManager is returned when no package manager command is set.
	ErrEmptyPackageManager = errors.New("invalid package_manager: command must not be empty")

	// ErrInvalidInstallAttempts is returned when install_attempts is below one.
	ErrInvalidInstallAttempts = errors.New("invalid install_attempts: must be at least 1")

	// ErrInvalidShell is returned for an unknown --shell value.
	ErrInvalidShell = errors.New("invalid shell: use posix or windows")

	// ErrInvalidEncoding is returned for an unknown console_encoding.
	ErrInvalidEncoding = errors.New("invalid console_encoding: use an encoding name such as utf-8, big5 or gbk")
)
