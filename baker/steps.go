// Package baker describes machine-image provisioning recipes. A recipe is
// an ordered list of declarative steps (install a package, write a file,
// manage a service) serialized into a JSON plan; applying the plan to a
// build host is the external executor's job, not ours.
package baker

import (
	"fmt"
	"path"
)

// Step is one provisioning operation. Concrete step types marshal into the
// plan schema with an "op" discriminator.
type Step interface {
	// Op is the discriminator written into the plan.
	Op() string
	// Validate is called at plan build time; a bad step fails the whole
	// plan before anything is emitted.
	Validate() error
}

// InstallPackages installs OS packages through the image's package manager.
type InstallPackages struct {
	Packages []string `json:"packages"`
	// Update refreshes the package index first.
	Update bool `json:"update,omitempty"`
}

func (s InstallPackages) Op() string { return "install_packages" }

func (s InstallPackages) Validate() error {
	if len(s.Packages) == 0 {
		return fmt.Errorf("install_packages: no packages listed")
	}
	for _, p := range s.Packages {
		if p == "" {
			return fmt.Errorf("install_packages: empty package name")
		}
	}
	return nil
}

// WriteFile places a file on the image with the given content and mode.
type WriteFile struct {
	Path    string `json:"path"`
	Content string `json:"content"`
	Mode    string `json:"mode,omitempty"`
	Owner   string `json:"owner,omitempty"`
	Group   string `json:"group,omitempty"`
}

func (s WriteFile) Op() string { return "write_file" }

func (s WriteFile) Validate() error {
	if !path.IsAbs(s.Path) {
		return fmt.Errorf("write_file: path %q must be absolute", s.Path)
	}
	return nil
}

// Download fetches a file from a URL onto the image, for release artifacts
// that are not packaged.
type Download struct {
	URL    string `json:"url"`
	Dest   string `json:"dest"`
	SHA256 string `json:"sha256,omitempty"`
	Mode   string `json:"mode,omitempty"`
}

func (s Download) Op() string { return "download" }

func (s Download) Validate() error {
	if s.URL == "" {
		return fmt.Errorf("download: url is required")
	}
	if !path.IsAbs(s.Dest) {
		return fmt.Errorf("download: dest %q must be absolute", s.Dest)
	}
	return nil
}

// Systemd manages a unit: enable it so it starts on first boot of the baked
// image, optionally restart it during the bake for validation.
type Systemd struct {
	Unit          string `json:"unit"`
	Enabled       bool   `json:"enabled"`
	DaemonReload  bool   `json:"daemon_reload,omitempty"`
	RestartNow    bool   `json:"restart_now,omitempty"`
}

func (s Systemd) Op() string { return "systemd" }

func (s Systemd) Validate() error {
	if s.Unit == "" {
		return fmt.Errorf("systemd: unit name is required")
	}
	return nil
}

// RunCommand runs a shell command during the bake. Last resort for things
// the declarative steps cannot express.
type RunCommand struct {
	Command string `json:"command"`
}

func (s RunCommand) Op() string { return "run_command" }

func (s RunCommand) Validate() error {
	if s.Command == "" {
		return fmt.Errorf("run_command: command is required")
	}
	return nil
}
