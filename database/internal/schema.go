package internal

import (
	"fmt"
	"slices"
	"strings"
)

// Column is one column of a table as the drivers expect or find it.
type Column struct {
	Name     string
	Type     string // lower-case type name as reported by the engine
	Nullable bool
}

// SchemaError lists every way a table differs from what the driver needs.
type SchemaError struct {
	Table      string
	Missing    []string
	Mismatched []string
}

func (e *SchemaError) Error() string {
	var b strings.Builder
	fmt.Fprintf(&b, "table %s schema validation failed:", e.Table)
	if len(e.Missing) > 0 {
		fmt.Fprintf(&b, "\n  missing columns: %s", strings.Join(e.Missing, ", "))
	}
	for _, m := range e.Mismatched {
		fmt.Fprintf(&b, "\n  - %s", m)
	}
	return b.String()
}

// CheckColumns compares the columns found in table against want. Extra
// columns are allowed.
func CheckColumns(table string, want []Column, found []Column) error {
	byName := make(map[string]Column, len(found))
	for _, c := range found {
		c.Type = strings.ToLower(c.Type)
		byName[c.Name] = c
	}

	schemaErr := &SchemaError{Table: table}
	for _, w := range want {
		got, ok := byName[w.Name]
		switch {
		case !ok:
			schemaErr.Missing = append(schemaErr.Missing, w.Name)
		case got.Type != w.Type:
			schemaErr.Mismatched = append(schemaErr.Mismatched,
				fmt.Sprintf("%s: expected %s, got %s", w.Name, w.Type, got.Type))
		case got.Nullable != w.Nullable:
			schemaErr.Mismatched = append(schemaErr.Mismatched,
				fmt.Sprintf("%s: expected nullable=%t, got nullable=%t", w.Name, w.Nullable, got.Nullable))
		}
	}

	if len(schemaErr.Missing) == 0 && len(schemaErr.Mismatched) == 0 {
		return nil
	}
	slices.Sort(schemaErr.Missing)
	return schemaErr
}
