package manifest

import (
	"fmt"
	"strings"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/mitchellh/mapstructure"
	"gopkg.in/yaml.v3"

	"github.com/schemaguard/schemaguard/types"
)

// SchemaFile is a parsed schema metadata file (schema.yml) declaring models,
// sources, and the data-quality tests attached to them.
type SchemaFile struct {
	Version int              `yaml:"version"`
	Models  []ResourceSchema `yaml:"models"`
	Sources []SourceSchema   `yaml:"sources"`

	path string // file the schema was loaded from
}

// ResourceSchema describes one model (or one source table) and its tests.
type ResourceSchema struct {
	Name        string         `yaml:"name"`
	Description string         `yaml:"description"`
	Config      ResourceConfig `yaml:"config"`
	Tests       []TestSpec     `yaml:"tests"`
	Columns     []ColumnSchema `yaml:"columns"`
}

// ResourceConfig carries model-level configuration from schema metadata.
type ResourceConfig struct {
	Enabled      *bool    `yaml:"enabled"`
	Materialized string   `yaml:"materialized"`
	Tags         []string `yaml:"tags"`
}

// ColumnSchema describes one column and its tests.
type ColumnSchema struct {
	Name  string     `yaml:"name"`
	Quote bool       `yaml:"quote"`
	Tests []TestSpec `yaml:"tests"`
}

// SourceSchema declares an external source and its tables.
type SourceSchema struct {
	Name   string           `yaml:"name"`
	Schema string           `yaml:"schema"`
	Tables []ResourceSchema `yaml:"tables"`
}

// TestSpec is a single test declaration. In YAML it is either a bare string
// ("not_null") or a single-key mapping whose value holds the test arguments:
//
//	- accepted_values:
//	    values: ['red', 'blue']
//	    severity: warn
//
// Reserved argument keys (severity, tags, enabled) configure the test node;
// everything else is passed through to the test macro.
type TestSpec struct {
	Name      string
	Namespace string // set for namespaced calls like "local_utils.type_one"
	Config    TestConfig
	Args      map[string]any
}

// TestConfig holds the reserved, node-level test arguments.
type TestConfig struct {
	Severity string   `mapstructure:"severity"`
	Tags     []string `mapstructure:"tags"`
	Enabled  *bool    `mapstructure:"enabled"`
}

// UnmarshalYAML implements the yaml.Unmarshaler interface for TestSpec.
// Any shape other than a string or a single-key mapping is malformed and
// fails the parse; malformed metadata is fatal regardless of strictness.
func (t *TestSpec) UnmarshalYAML(node *yaml.Node) error {
	switch node.Kind {
	case yaml.ScalarNode:
		var name string
		if err := node.Decode(&name); err != nil {
			return err
		}
		if name == "" {
			return fmt.Errorf("line %d: test name cannot be empty", node.Line)
		}
		t.setName(name)
		t.Args = map[string]any{}
		return nil

	case yaml.MappingNode:
		var raw map[string]map[string]any
		if err := node.Decode(&raw); err != nil {
			return fmt.Errorf("line %d: malformed test definition: %w", node.Line, err)
		}
		if len(raw) != 1 {
			return fmt.Errorf("line %d: test definition must have exactly one key, got %d", node.Line, len(raw))
		}
		for name, args := range raw {
			t.setName(name)
			if err := t.splitArgs(args); err != nil {
				return fmt.Errorf("line %d: invalid arguments for test %q: %w", node.Line, name, err)
			}
		}
		return nil

	default:
		return fmt.Errorf("line %d: malformed test definition: expected a string or a single-key mapping", node.Line)
	}
}

// setName splits a possibly namespaced test name ("pkg.macro") into its parts.
func (t *TestSpec) setName(name string) {
	if idx := strings.Index(name, "."); idx > 0 {
		t.Namespace = name[:idx]
		t.Name = name[idx+1:]
	} else {
		t.Name = name
	}
}

// splitArgs separates the reserved config keys from the macro arguments.
func (t *TestSpec) splitArgs(args map[string]any) error {
	var meta mapstructure.Metadata
	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Metadata: &meta,
		Result:   &t.Config,
	})
	if err != nil {
		return err
	}
	if err := decoder.Decode(args); err != nil {
		return err
	}

	if _, err := types.ParseSeverity(t.Config.Severity); err != nil {
		return err
	}

	t.Args = make(map[string]any, len(meta.Unused))
	for _, key := range meta.Unused {
		t.Args[key] = args[key]
	}
	return nil
}

// Severity returns the parsed severity of the test, defaulting to error-level.
func (t TestSpec) Severity() types.Severity {
	sev, err := types.ParseSeverity(t.Config.Severity)
	if err != nil {
		return types.SeverityError
	}
	return sev
}

// Validate implements the validation.Validatable interface
func (f SchemaFile) Validate() error {
	return validation.ValidateStruct(&f,
		validation.Field(&f.Version, validation.Required, validation.In(2)),
		validation.Field(&f.Models),
		validation.Field(&f.Sources),
	)
}

// Validate implements the validation.Validatable interface
func (r ResourceSchema) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Name, validation.Required),
		validation.Field(&r.Columns),
	)
}

// Validate implements the validation.Validatable interface
func (c ColumnSchema) Validate() error {
	return validation.ValidateStruct(&c,
		validation.Field(&c.Name, validation.Required),
	)
}

// Validate implements the validation.Validatable interface
func (s SourceSchema) Validate() error {
	return validation.ValidateStruct(&s,
		validation.Field(&s.Name, validation.Required),
		validation.Field(&s.Tables, validation.Required),
	)
}

// parseSchemaFile parses and validates one schema metadata file.
func parseSchemaFile(path string, data []byte) (*SchemaFile, error) {
	var file SchemaFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, NewCompilationError(path, err)
	}
	if err := file.Validate(); err != nil {
		return nil, NewCompilationError(path, err)
	}
	file.path = path
	return &file, nil
}
