package tvscreener

import (
	_ "embed"
	"strings"
	"sync"
)

// The screener exposes thousands of columns; the embedded index carries the
// ones this service meaningfully screens on. SearchColumns lets callers
// discover names by substring before building a query.

//go:embed assets/columns.txt
var columnsRaw string

var (
	columnsOnce sync.Once
	columnIndex []string
)

func columns() []string {
	columnsOnce.Do(func() {
		for _, line := range strings.Split(columnsRaw, "\n") {
			line = strings.TrimSpace(line)
			if line == "" || strings.HasPrefix(line, "#") {
				continue
			}
			columnIndex = append(columnIndex, line)
		}
	})
	return columnIndex
}

// SearchColumns returns every indexed column whose name contains the term,
// case-insensitively.
func SearchColumns(term string) []string {
	term = strings.ToLower(strings.TrimSpace(term))
	if term == "" {
		return nil
	}

	var out []string
	for _, col := range columns() {
		if strings.Contains(strings.ToLower(col), term) {
			out = append(out, col)
		}
	}
	return out
}
