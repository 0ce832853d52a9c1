package manifest

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/hashicorp/go-hclog"
	"github.com/hashicorp/go-multierror"
	"github.com/spf13/afero"

	"github.com/schemaguard/schemaguard/types"
)

// Materialization strategies for models.
const (
	MaterializedView      = "view"
	MaterializedTable     = "table"
	MaterializedEphemeral = "ephemeral"
)

// Model is a SQL model discovered in the project's model paths.
type Model struct {
	Name         string
	Path         string
	RawSQL       string
	Enabled      bool
	Materialized string
	Tags         []string
}

// Relation returns the SQL relation to query for this model. Ephemeral models
// are never built, so their SQL is inlined as a subquery.
func (m *Model) Relation() string {
	if m.Materialized == MaterializedEphemeral {
		return "(" + strings.TrimRight(strings.TrimSpace(m.RawSQL), ";") + ") " + m.Name
	}
	return m.Name
}

// Manifest is the compiled view of a project: its configuration, models,
// schema metadata, and the test nodes expanded from that metadata.
type Manifest struct {
	Project *Project
	Models  map[string]*Model
	Schemas []*SchemaFile

	// Nodes are the collected test nodes, ordered by unique id. Tests
	// attached to disabled models are excluded at collection time.
	Nodes []types.TestNode
}

// Config holds configuration for loading a manifest
type Config struct {
	Log        hclog.Logger
	Fs         afero.Fs // defaults to the OS filesystem
	ProjectDir string
	// Strict escalates schema-definition warnings (such as metadata for an
	// unknown model) to errors. Malformed metadata is fatal either way.
	Strict bool
}

// Load reads the project configuration, discovers models and schema metadata
// files, and expands all declared tests into test nodes.
func Load(cfg Config) (*Manifest, error) {
	if cfg.ProjectDir == "" {
		return nil, fmt.Errorf("project directory is required")
	}
	if cfg.Fs == nil {
		cfg.Fs = afero.NewOsFs()
	}
	if cfg.Log == nil {
		cfg.Log = hclog.NewNullLogger()
	}

	project, err := loadProject(cfg.Fs, cfg.ProjectDir)
	if err != nil {
		return nil, err
	}

	m := &Manifest{
		Project: project,
		Models:  make(map[string]*Model),
	}

	for _, modelPath := range project.ModelPaths {
		dir := filepath.Join(cfg.ProjectDir, modelPath)
		if err := m.loadModelDir(cfg, dir); err != nil {
			return nil, err
		}
	}

	if err := m.applySchemaConfigs(cfg); err != nil {
		return nil, err
	}

	nodes, err := m.collectTests()
	if err != nil {
		return nil, err
	}
	m.Nodes = nodes

	cfg.Log.Debug("manifest loaded",
		"project", project.Name,
		"models", len(m.Models),
		"schemaFiles", len(m.Schemas),
		"testNodes", len(m.Nodes))

	return m, nil
}

// loadModelDir walks one model directory, registering SQL models and parsing
// schema metadata files.
func (m *Manifest) loadModelDir(cfg Config, dir string) error {
	err := afero.Walk(cfg.Fs, dir, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if info.IsDir() {
			return nil
		}

		switch strings.ToLower(filepath.Ext(path)) {
		case ".sql":
			data, err := afero.ReadFile(cfg.Fs, path)
			if err != nil {
				return err
			}
			name := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
			m.Models[name] = &Model{
				Name:         name,
				Path:         path,
				RawSQL:       string(data),
				Enabled:      true,
				Materialized: MaterializedView,
			}

		case ".yml", ".yaml":
			data, err := afero.ReadFile(cfg.Fs, path)
			if err != nil {
				return err
			}
			file, err := parseSchemaFile(path, data)
			if err != nil {
				return err
			}
			m.Schemas = append(m.Schemas, file)
		}
		return nil
	})
	if err != nil {
		if IsCompilationError(err) {
			return err
		}
		return fmt.Errorf("failed to load models from %s: %w", dir, err)
	}
	return nil
}

// applySchemaConfigs folds model-level schema configuration (enabled flag,
// materialization, tags) onto the discovered models. Metadata referencing an
// unknown model is a warning, escalated to an error under strict mode.
func (m *Manifest) applySchemaConfigs(cfg Config) error {
	var warnings *multierror.Error

	for _, file := range m.Schemas {
		for _, schema := range file.Models {
			model, ok := m.Models[schema.Name]
			if !ok {
				cfg.Log.Warn("schema metadata references unknown model",
					"model", schema.Name, "path", file.path)
				warnings = multierror.Append(warnings,
					fmt.Errorf("%s: unknown model %q", file.path, schema.Name))
				continue
			}
			if schema.Config.Enabled != nil {
				model.Enabled = *schema.Config.Enabled
			}
			if schema.Config.Materialized != "" {
				model.Materialized = schema.Config.Materialized
			}
			model.Tags = append(model.Tags, schema.Config.Tags...)
		}
	}

	if cfg.Strict && warnings.ErrorOrNil() != nil {
		return NewCompilationError("", warnings)
	}
	return nil
}

// ModelNames returns the model names in sorted order.
func (m *Manifest) ModelNames() []string {
	names := make([]string, 0, len(m.Models))
	for name := range m.Models {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// ModelFor returns the model a test node targets, or nil for source tests.
func (m *Manifest) ModelFor(node types.TestNode) *Model {
	if node.IsSourceTest() {
		return nil
	}
	return m.Models[node.Model]
}
