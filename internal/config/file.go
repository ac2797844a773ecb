package config

// File represents the structure of the .fortify-bootstrap.yaml file.
// Every field is optional; zero values keep the built-in default.
type File struct {
	MinPythonVersion  string   `yaml:"min_python_version,omitempty"`
	Manifest          string   `yaml:"manifest,omitempty"`
	EntryPoint        string   `yaml:"entry_point,omitempty"`
	EntryScript       string   `yaml:"entry_script,omitempty"`
	ToolConfig        string   `yaml:"tool_config,omitempty"`
	PackageManager    string   `yaml:"package_manager,omitempty"`
	InstallAttempts   int      `yaml:"install_attempts,omitempty"`
	ConsoleEncoding   string   `yaml:"console_encoding,omitempty"`
	Shell             string   `yaml:"shell,omitempty"`
	RuntimeCandidates []string `yaml:"runtime_candidates,omitempty"`
	PipCandidates     []string `yaml:"pip_candidates,omitempty"`
}

// Apply copies every non-zero field of the file onto c.
func (f *File) Apply(c *Config) {
	if f == nil {
		return
	}
	if f.MinPythonVersion != "" {
		c.MinPythonVersion = f.MinPythonVersion
	}
	if f.Manifest != "" {
		c.Manifest = f.Manifest
	}
	if f.EntryPoint != "" {
		c.EntryPoint = f.EntryPoint
	}
	if f.EntryScript != "" {
		c.EntryScript = f.EntryScript
	}
	if f.ToolConfig != "" {
		c.ToolConfig = f.ToolConfig
	}
	if f.PackageManager != "" {
		c.PackageManager = f.PackageManager
	}
	if f.InstallAttempts != 0 {
		c.InstallAttempts = f.InstallAttempts
	}
	if f.ConsoleEncoding != "" {
		c.ConsoleEncoding = f.ConsoleEncoding
	}
	if f.Shell != "" {
		c.Shell = f.Shell
	}
	if len(f.RuntimeCandidates) > 0 {
		c.RuntimeCandidates = f.RuntimeCandidates
	}
	if len(f.PipCandidates) > 0 {
		c.PipCandidates = f.PipCandidates
	}
}
