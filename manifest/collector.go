package manifest

import (
	"crypto/md5"
	"encoding/hex"
	"fmt"
	"slices"
	"sort"
	"strings"

	"github.com/schemaguard/schemaguard/types"
)

// collectTests expands every test declared in the schema metadata into a
// TestNode. Tests attached to disabled models are dropped here, before
// selection or execution; a disabled model contributes zero results.
func (m *Manifest) collectTests() ([]types.TestNode, error) {
	var nodes []types.TestNode

	for _, file := range m.Schemas {
		for _, schema := range file.Models {
			model, ok := m.Models[schema.Name]
			if !ok || !model.Enabled {
				continue
			}
			for _, spec := range schema.Tests {
				nodes = append(nodes, m.buildNode(spec, schema.Name, "", "", model.Tags))
			}
			for _, column := range schema.Columns {
				for _, spec := range column.Tests {
					nodes = append(nodes, m.buildNode(spec, schema.Name, "", columnRef(column), model.Tags))
				}
			}
		}

		for _, source := range file.Sources {
			for _, table := range source.Tables {
				for _, spec := range table.Tests {
					nodes = append(nodes, m.buildNode(spec, table.Name, source.Name, "", table.Config.Tags))
				}
				for _, column := range table.Columns {
					for _, spec := range column.Tests {
						nodes = append(nodes, m.buildNode(spec, table.Name, source.Name, columnRef(column), table.Config.Tags))
					}
				}
			}
		}
	}

	assignUniqueIDs(m.Project.Name, nodes)

	sort.Slice(nodes, func(i, j int) bool {
		return nodes[i].UniqueID < nodes[j].UniqueID
	})
	return nodes, nil
}

// columnRef returns the column reference to render into test SQL, quoted when
// the schema asks for it.
func columnRef(column ColumnSchema) string {
	if column.Quote {
		return `"` + column.Name + `"`
	}
	return column.Name
}

// buildNode converts one test declaration into a TestNode. Model tags
// propagate to the node; per-test tags union in.
func (m *Manifest) buildNode(spec TestSpec, model, source, column string, modelTags []string) types.TestNode {
	enabled := true
	if spec.Config.Enabled != nil {
		enabled = *spec.Config.Enabled
	}

	tags := make([]string, 0, len(modelTags)+len(spec.Config.Tags))
	tags = append(tags, modelTags...)
	for _, tag := range spec.Config.Tags {
		if !slices.Contains(tags, tag) {
			tags = append(tags, tag)
		}
	}

	return types.TestNode{
		Name:      testNodeName(spec, model, source, column),
		TestName:  spec.Name,
		Namespace: spec.Namespace,
		Model:     model,
		Source:    source,
		Column:    column,
		Args:      spec.Args,
		Tags:      tags,
		Severity:  spec.Severity(),
		Enabled:   enabled,
	}
}

// testNodeName builds the human-readable node name, mirroring the
// "<test>_<model>_<column>" convention (source tests gain a "source_" prefix).
func testNodeName(spec TestSpec, model, source, column string) string {
	parts := []string{spec.Name, model}
	if source != "" {
		parts = []string{"source", spec.Name, source, model}
	}
	if column != "" {
		parts = append(parts, strings.Trim(column, `"`))
	}
	return strings.Join(parts, "_")
}

// assignUniqueIDs gives each node an id of the form "test.<project>.<name>".
// When several nodes share a base id, each gets a deterministic content hash
// of its differentiating attributes appended, so that re-running the project
// reproduces the same ids.
func assignUniqueIDs(project string, nodes []types.TestNode) {
	byBase := make(map[string][]int)
	for i, node := range nodes {
		base := fmt.Sprintf("test.%s.%s", project, node.Name)
		nodes[i].UniqueID = base
		byBase[base] = append(byBase[base], i)
	}

	for base, indices := range byBase {
		if len(indices) < 2 {
			continue
		}
		for _, i := range indices {
			nodes[i].UniqueID = base + "." + contentHash(nodes[i])
		}
	}
}

// contentHash is the first 10 hex chars of the md5 of the node's target and
// canonically-ordered arguments.
func contentHash(node types.TestNode) string {
	keys := make([]string, 0, len(node.Args))
	for key := range node.Args {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	var sb strings.Builder
	fmt.Fprintf(&sb, "%s|%s|%s", node.Source, node.Model, node.Column)
	for _, key := range keys {
		fmt.Fprintf(&sb, "|%s=%v", key, node.Args[key])
	}

	sum := md5.Sum([]byte(sb.String()))
	return hex.EncodeToString(sum[:])[:10]
}
