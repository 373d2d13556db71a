package buildstep

// InvokeRequest holds the parameters of one build step run. Filename and
// OutputDir are relative to WorkspaceRoot.
type InvokeRequest struct {
	WorkspaceRoot string `json:"workspace_root"`
	Filename      string `json:"filename"`
	Language      string `json:"language"`
	OutputDir     string `json:"output_dir"`
}

// InvokeResponse is what the host prints into its build log.
type InvokeResponse struct {
	Log       []string `json:"log"`
	OutputDir string   `json:"output_dir,omitempty"`

	// Exit codes are nil when the step did not run or did not exit on its own.
	InstallExitCode   *int `json:"install_exit_code,omitempty"`
	TransformExitCode *int `json:"transform_exit_code,omitempty"`

	// Error is the failure message; empty on success.
	Error string `json:"error,omitempty"`
}

// ConfigRequest replaces every configurable field. Empty paths select the
// platform defaults.
type ConfigRequest struct {
	PythonPath string `json:"python_path"`
	PipPath    string `json:"pip_path"`
	Verbose    bool   `json:"verbose"`
}

// Info contains metadata about the build step.
type Info struct {
	Name            string `json:"name"`
	DisplayName     string `json:"display_name"`
	Version         string `json:"version"`
	ProtocolVersion string `json:"protocol_version"`
	Description     string `json:"description"`
}
