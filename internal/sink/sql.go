package sink

import (
	"fmt"
	"strings"

	"rosteretl/internal/table"
)

func validateIdentifier(name string) error {
	if strings.ContainsRune(name, 0) {
		return fmt.Errorf("identifier %q contains a NUL byte", name)
	}
	if strings.TrimSpace(name) == "" {
		return fmt.Errorf("identifier cannot be blank")
	}
	return nil
}

// quoteIdent quotes a table or column name for sqlite and postgres.
func quoteIdent(name string) string {
	return `"` + strings.ReplaceAll(name, `"`, `""`) + `"`
}

// createTableSQL renders the CREATE TABLE statement for `fields` using the
// column type names returned by `typeName`.
func createTableSQL(name string, fields []table.Field, typeName func(table.FieldType) string) string {
	var b strings.Builder
	b.WriteString("CREATE TABLE ")
	b.WriteString(quoteIdent(name))
	b.WriteString(" (")
	for i, f := range fields {
		if i > 0 {
			b.WriteString(", ")
		}
		b.WriteString(quoteIdent(f.Name))
		b.WriteByte(' ')
		b.WriteString(typeName(f.Type))
	}
	b.WriteString(")")
	return b.String()
}

func dropTableSQL(name string) string {
	return "DROP TABLE IF EXISTS " + quoteIdent(name)
}
