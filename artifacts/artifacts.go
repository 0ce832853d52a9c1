// Package artifacts persists run outputs for introspection: the compiled SQL
// of each test node and a machine-readable run summary.
package artifacts

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/hashicorp/go-hclog"

	"github.com/schemaguard/schemaguard/types"
)

// Writer writes run artifacts under a target directory:
//
//	<dir>/compiled/<node name>.sql
//	<dir>/run_results.json
type Writer struct {
	dir string
	log hclog.Logger
}

// NewWriter creates an artifact writer rooted at dir.
func NewWriter(dir string, log hclog.Logger) (*Writer, error) {
	if dir == "" {
		return nil, fmt.Errorf("artifact directory is required")
	}
	if log == nil {
		log = hclog.NewNullLogger()
	}
	if err := os.MkdirAll(filepath.Join(dir, "compiled"), 0o755); err != nil {
		return nil, fmt.Errorf("failed to create artifact directory: %w", err)
	}
	return &Writer{dir: dir, log: log.Named("artifacts")}, nil
}

// Dir returns the artifact root directory.
func (w *Writer) Dir() string {
	return w.dir
}

// WriteCompiledSQL stores the compiled SQL text of one test node.
func (w *Writer) WriteCompiledSQL(node types.TestNode) error {
	path := filepath.Join(w.dir, "compiled", node.Name+".sql")
	return os.WriteFile(path, []byte(node.CompiledSQL+"\n"), 0o644)
}

// runResultsFile is the serialized form of run_results.json.
type runResultsFile struct {
	RunID       string            `json:"run_id"`
	Status      types.TestStatus  `json:"status"`
	GeneratedAt time.Time         `json:"generated_at"`
	Results     []resultFileEntry `json:"results"`
}

type resultFileEntry struct {
	UniqueID string           `json:"unique_id"`
	Name     string           `json:"name"`
	Status   types.TestStatus `json:"status"`
	Message  string           `json:"message"`
	Failures int64            `json:"failures"`
	Severity types.Severity   `json:"severity"`
	Duration float64          `json:"duration_seconds"`
}

// WriteRunResults stores the per-node outcomes of a run.
func (w *Writer) WriteRunResults(runID string, status types.TestStatus, results []types.TestResult) error {
	file := runResultsFile{
		RunID:       runID,
		Status:      status,
		GeneratedAt: time.Now().UTC(),
		Results:     make([]resultFileEntry, 0, len(results)),
	}
	for _, r := range results {
		file.Results = append(file.Results, resultFileEntry{
			UniqueID: r.Node.UniqueID,
			Name:     r.Node.Name,
			Status:   r.Status,
			Message:  r.Message,
			Failures: r.Failures,
			Severity: r.Node.Severity,
			Duration: r.Duration.Seconds(),
		})
	}

	data, err := json.MarshalIndent(file, "", "  ")
	if err != nil {
		return err
	}
	path := filepath.Join(w.dir, "run_results.json")
	w.log.Debug("writing run results", "path", path, "results", len(results))
	return os.WriteFile(path, data, 0o644)
}
