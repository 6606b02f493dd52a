package store

import (
	"strconv"
	"strings"

	"github.com/RPi-WebTools/sysmon-fetcher/internal/errors"
	"github.com/RPi-WebTools/sysmon-fetcher/internal/schema"
)

const idColumn = "id INTEGER PRIMARY KEY AUTOINCREMENT"

func itoa(n int) string {
	return strconv.Itoa(n)
}

// quoteIdent quotes a table or column name. Volume identifiers such as
// ABCD-1234 are not valid bare identifiers.
func quoteIdent(name string) string {
	return `"` + strings.ReplaceAll(name, `"`, `""`) + `"`
}

func quoteIdents(names []string) string {
	quoted := make([]string, len(names))
	for i, n := range names {
		quoted[i] = quoteIdent(n)
	}
	return strings.Join(quoted, ", ")
}

func validColumnType(t schema.ColumnType) bool {
	switch t {
	case schema.Integer, schema.Real, schema.Text, schema.Bit:
		return true
	default:
		return false
	}
}

func dropTableSQL(name string) string {
	return "DROP TABLE IF EXISTS " + quoteIdent(name)
}

func createTableSQL(name string, names []string, types []schema.ColumnType) (string, error) {
	errFactory := errors.New()

	if len(names) != len(types) || len(names) == 0 {
		return "", errFactory.WithData(ErrInvalidColumns, struct {
			Table string
			Names int
			Types int
		}{
			Table: name,
			Names: len(names),
			Types: len(types),
		})
	}

	var b strings.Builder
	b.WriteString("CREATE TABLE IF NOT EXISTS ")
	b.WriteString(quoteIdent(name))
	b.WriteString(" (")
	b.WriteString(idColumn)
	for i, n := range names {
		if n == "" || !validColumnType(types[i]) {
			return "", errFactory.WithData(ErrInvalidColumns, struct {
				Table  string
				Column string
				Type   schema.ColumnType
			}{
				Table:  name,
				Column: n,
				Type:   types[i],
			})
		}
		b.WriteString(", ")
		b.WriteString(quoteIdent(n))
		b.WriteByte(' ')
		b.WriteString(string(types[i]))
	}
	b.WriteByte(')')

	return b.String(), nil
}

// insertSQL renders one placeholder group per row, each sized to its row.
// Rows whose length differs from columns are left for SQLite to reject.
func insertSQL(table string, columns []string, rows [][]any) string {
	var b strings.Builder
	b.WriteString("INSERT INTO ")
	b.WriteString(quoteIdent(table))
	b.WriteString(" (")
	b.WriteString(quoteIdents(columns))
	b.WriteString(") VALUES ")
	for i, row := range rows {
		if i > 0 {
			b.WriteString(", ")
		}
		b.WriteByte('(')
		b.WriteString(strings.TrimSuffix(strings.Repeat("?, ", len(row)), ", "))
		b.WriteByte(')')
	}
	return b.String()
}

// countPlaceholders counts '?' parameters outside quoted sections
func countPlaceholders(stmt string) int {
	var (
		n     int
		quote rune
	)
	for _, r := range stmt {
		switch {
		case quote != 0:
			if r == quote {
				quote = 0
			}
		case r == '\'' || r == '"' || r == '`':
			quote = r
		case r == '?':
			n++
		}
	}
	return n
}
