package manifest

import (
	"fmt"
	"path/filepath"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/spf13/afero"
	"gopkg.in/yaml.v3"
)

// ProjectFileName is the project configuration file schemaguard looks for at
// the root of a project directory.
const ProjectFileName = "schemaguard_project.yml"

// Project is the parsed project configuration.
type Project struct {
	Name       string   `yaml:"name"`
	Version    string   `yaml:"version"`
	ModelPaths []string `yaml:"model-paths"`
	MacroPaths []string `yaml:"macro-paths"`

	// OnRunStart and OnRunEnd are SQL statements executed around a build.
	// They are never executed by the test task.
	OnRunStart []string `yaml:"on-run-start"`
	OnRunEnd   []string `yaml:"on-run-end"`

	// Vars are project-level variable bindings, overridable at the command line.
	Vars map[string]any `yaml:"vars"`

	// Dispatch configures macro namespace search order.
	Dispatch []DispatchConfig `yaml:"dispatch"`
}

// DispatchConfig maps a macro namespace to the package search order used when
// resolving a macro call against that namespace.
type DispatchConfig struct {
	MacroNamespace string   `yaml:"macro_namespace"`
	SearchOrder    []string `yaml:"search_order"`
}

// Validate implements the validation.Validatable interface
func (p Project) Validate() error {
	return validation.ValidateStruct(&p,
		validation.Field(&p.Name, validation.Required),
	)
}

// loadProject reads and validates the project configuration file.
func loadProject(fs afero.Fs, projectDir string) (*Project, error) {
	path := filepath.Join(projectDir, ProjectFileName)
	data, err := afero.ReadFile(fs, path)
	if err != nil {
		return nil, NewCompilationError(path, fmt.Errorf("failed to read project file: %w", err))
	}

	var project Project
	if err := yaml.Unmarshal(data, &project); err != nil {
		return nil, NewCompilationError(path, fmt.Errorf("failed to parse project file: %w", err))
	}
	if err := project.Validate(); err != nil {
		return nil, NewCompilationError(path, err)
	}

	if len(project.ModelPaths) == 0 {
		project.ModelPaths = []string{"models"}
	}
	if len(project.MacroPaths) == 0 {
		project.MacroPaths = []string{"macros"}
	}
	if project.Vars == nil {
		project.Vars = map[string]any{}
	}

	return &project, nil
}

// SearchOrderFor returns the configured search order for a macro namespace,
// or nil when no dispatch entry exists for it.
func (p *Project) SearchOrderFor(namespace string) []string {
	for _, d := range p.Dispatch {
		if d.MacroNamespace == namespace {
			return d.SearchOrder
		}
	}
	return nil
}
