package macros

import (
	"fmt"
	"strings"
	"text/template"
)

// templateFuncs are the helpers available inside macro templates.
var templateFuncs = template.FuncMap{
	"quoteList": quoteList,
}

// quoteList renders a YAML list of accepted values as a SQL value list.
// Strings are single-quoted; numbers and booleans pass through bare.
func quoteList(value any) (string, error) {
	items, ok := value.([]any)
	if !ok {
		return "", fmt.Errorf("expected a list of values, got %T", value)
	}
	if len(items) == 0 {
		return "", fmt.Errorf("value list cannot be empty")
	}

	quoted := make([]string, len(items))
	for i, item := range items {
		switch v := item.(type) {
		case string:
			quoted[i] = "'" + strings.ReplaceAll(v, "'", "''") + "'"
		default:
			quoted[i] = fmt.Sprint(v)
		}
	}
	return strings.Join(quoted, ", "), nil
}

// builtinTests are the generic data-quality tests shipped with schemaguard.
// Each renders to a query returning the count of violating rows.
var builtinTests = map[string]string{
	"not_null": `select count(*)
from {{ .Relation }}
where {{ .Column }} is null`,

	"unique": `select count(*)
from (
    select {{ .Column }}
    from {{ .Relation }}
    where {{ .Column }} is not null
    group by {{ .Column }}
    having count(*) > 1
) validation_errors`,

	"accepted_values": `select count(*)
from {{ .Relation }}
where {{ .Column }} is not null
  and {{ .Column }} not in ({{ quoteList (.Arg "values") }})`,

	"relationships": `select count(*)
from {{ .Relation }} child
where child.{{ .Column }} is not null
  and child.{{ .Column }} not in (
    select {{ .Arg "field" }} from {{ .Arg "to" }}
)`,
}
