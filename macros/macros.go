// Package macros implements the test macro registry: built-in generic tests,
// custom macros loaded from the project and from installed packages, and the
// namespace dispatch that decides which implementation satisfies a test call.
package macros

import (
	"fmt"
	"path/filepath"
	"strings"
	"text/template"

	"github.com/hashicorp/go-hclog"
	"github.com/spf13/afero"

	"github.com/schemaguard/schemaguard/manifest"
	"github.com/schemaguard/schemaguard/types"
)

// builtinNamespace holds the generic tests shipped with schemaguard. It is
// consulted last, so project macros override built-ins of the same name.
const builtinNamespace = "builtin"

// Macro is a single test macro: a SQL template that renders to a query
// counting violating rows.
type Macro struct {
	Name    string
	Package string
	tmpl    *template.Template
}

// Render executes the macro template against the given context.
func (m *Macro) Render(ctx RenderContext) (string, error) {
	var sb strings.Builder
	if err := m.tmpl.Execute(&sb, ctx); err != nil {
		return "", fmt.Errorf("failed to render macro %s.%s: %w", m.Package, m.Name, err)
	}
	return sb.String(), nil
}

// RenderContext is the data visible to a macro template.
type RenderContext struct {
	// Relation is the SQL relation under test. Ephemeral models arrive as an
	// inlined subquery.
	Relation string
	// Column is the column under test, already quoted if the schema asked.
	Column string
	// Args are the macro arguments from the test declaration.
	Args map[string]any
	// Vars are the merged project and command-line variable bindings.
	Vars map[string]any
}

// Arg returns a required macro argument, failing the render when absent.
func (c RenderContext) Arg(key string) (any, error) {
	value, ok := c.Args[key]
	if !ok {
		return nil, fmt.Errorf("required test argument %q not provided", key)
	}
	return value, nil
}

// Var returns a required variable binding, failing the render when absent.
func (c RenderContext) Var(key string) (any, error) {
	value, ok := c.Vars[key]
	if !ok {
		return nil, fmt.Errorf("required variable %q is undefined", key)
	}
	return value, nil
}

// Registry resolves test names to macros across namespaces.
type Registry struct {
	log         hclog.Logger
	project     string
	macros      map[string]map[string]*Macro // namespace -> test name -> macro
	searchOrder map[string][]string
}

// Config holds configuration for creating a macro registry
type Config struct {
	Log     hclog.Logger
	Project string // project name; its macros form the local namespace
}

// NewRegistry creates a registry pre-populated with the built-in generic tests.
func NewRegistry(cfg Config) *Registry {
	if cfg.Log == nil {
		cfg.Log = hclog.NewNullLogger()
	}
	r := &Registry{
		log:         cfg.Log.Named("macros"),
		project:     cfg.Project,
		macros:      make(map[string]map[string]*Macro),
		searchOrder: make(map[string][]string),
	}
	for name, body := range builtinTests {
		r.mustRegister(builtinNamespace, name, body)
	}
	return r
}

// SetSearchOrder configures the package search order used when dispatching
// calls against a macro namespace.
func (r *Registry) SetSearchOrder(namespace string, order []string) {
	r.searchOrder[namespace] = order
}

// Register parses and registers a macro template under a namespace.
func (r *Registry) Register(namespace, name, body string) error {
	tmpl, err := template.New(name).Funcs(templateFuncs).Parse(body)
	if err != nil {
		return fmt.Errorf("invalid macro %s.%s: %w", namespace, name, err)
	}
	if r.macros[namespace] == nil {
		r.macros[namespace] = make(map[string]*Macro)
	}
	r.macros[namespace][name] = &Macro{Name: name, Package: namespace, tmpl: tmpl}
	return nil
}

func (r *Registry) mustRegister(namespace, name, body string) {
	if err := r.Register(namespace, name, body); err != nil {
		panic(err)
	}
}

// Resolve finds the macro implementing a test call. Unnamespaced calls search
// the project's own macros first, then the built-ins. Namespaced calls honor
// the configured search order for that namespace, defaulting to local
// override before the namespace's own package.
func (r *Registry) Resolve(name, namespace string) (*Macro, error) {
	var order []string
	if namespace == "" {
		order = []string{r.project, builtinNamespace}
	} else if configured, ok := r.searchOrder[namespace]; ok {
		order = configured
	} else {
		order = []string{r.project, namespace}
	}

	for _, pkg := range order {
		if macro, ok := r.macros[pkg][name]; ok {
			return macro, nil
		}
	}
	return nil, fmt.Errorf("test macro %q not found (namespace %q, searched %v)", name, namespace, order)
}

// CompileTest resolves and renders the SQL for one test node.
func (r *Registry) CompileTest(node types.TestNode, relation string, vars map[string]any) (string, error) {
	macro, err := r.Resolve(node.TestName, node.Namespace)
	if err != nil {
		return "", err
	}
	return macro.Render(RenderContext{
		Relation: relation,
		Column:   node.Column,
		Args:     node.Args,
		Vars:     vars,
	})
}

// LoadProjectMacros loads custom macros from the project's macro paths into
// the local namespace, and from packages/<name>/macros into per-package
// namespaces. Dispatch search orders from the project config are applied.
func (r *Registry) LoadProjectMacros(fs afero.Fs, projectDir string, project *manifest.Project) error {
	if fs == nil {
		fs = afero.NewOsFs()
	}
	for _, macroPath := range project.MacroPaths {
		if err := r.loadDir(fs, filepath.Join(projectDir, macroPath), r.project); err != nil {
			return err
		}
	}

	packagesDir := filepath.Join(projectDir, "packages")
	entries, err := afero.ReadDir(fs, packagesDir)
	if err != nil {
		// A project without installed packages is fine.
		entries = nil
	}
	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}
		dir := filepath.Join(packagesDir, entry.Name(), "macros")
		if err := r.loadDir(fs, dir, entry.Name()); err != nil {
			return err
		}
	}

	for _, dispatch := range project.Dispatch {
		r.SetSearchOrder(dispatch.MacroNamespace, dispatch.SearchOrder)
	}
	return nil
}

// loadDir registers every test_<name>.sql file in dir under the namespace.
func (r *Registry) loadDir(fs afero.Fs, dir, namespace string) error {
	exists, err := afero.DirExists(fs, dir)
	if err != nil || !exists {
		return nil
	}

	entries, err := afero.ReadDir(fs, dir)
	if err != nil {
		return fmt.Errorf("failed to read macro directory %s: %w", dir, err)
	}

	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".sql") {
			continue
		}
		name := strings.TrimSuffix(entry.Name(), ".sql")
		name = strings.TrimPrefix(name, "test_")

		data, err := afero.ReadFile(fs, filepath.Join(dir, entry.Name()))
		if err != nil {
			return err
		}
		if err := r.Register(namespace, name, string(data)); err != nil {
			return err
		}
		r.log.Debug("registered macro", "namespace", namespace, "name", name)
	}
	return nil
}
