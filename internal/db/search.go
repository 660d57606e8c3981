package db

import (
	"strings"
	"unicode"
)

// SearchTerms splits a query into words and trims punctuation from both
// ends of each. Empty words are dropped.
func SearchTerms(query string) []string {
	var terms []string
	for _, w := range strings.Fields(query) {
		trimmed := strings.TrimFunc(w, func(r rune) bool {
			return !unicode.IsLetter(r) && !unicode.IsDigit(r) && r != '_'
		})
		if trimmed == "" {
			continue
		}
		terms = append(terms, trimmed)
	}
	return terms
}

func escapeLike(s string) string {
	r := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return r.Replace(s)
}

// SearchTabs returns tabs of the active slot whose name contains every term
// of the query, case-insensitively. Returns an empty slice if the query has
// no terms or nothing has been saved yet.
func (d *DB) SearchTabs(query string) ([]TabRow, error) {
	terms := SearchTerms(query)
	if len(terms) == 0 {
		return []TabRow{}, nil
	}

	meta, err := readMeta(d.conn)
	if err != nil {
		return nil, err
	}
	if meta == nil {
		return []TabRow{}, nil
	}

	var sb strings.Builder
	sb.WriteString(`SELECT ` + tabColumns + ` FROM tabs WHERE slot = ?`)
	args := []any{meta.SaveID}
	for _, term := range terms {
		sb.WriteString(` AND name LIKE ? ESCAPE '\'`)
		args = append(args, "%"+escapeLike(term)+"%")
	}
	sb.WriteString(` ORDER BY position`)

	rows, err := d.conn.Query(sb.String(), args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	tabs := []TabRow{}
	for rows.Next() {
		t, err := scanTab(rows)
		if err != nil {
			return nil, err
		}
		tabs = append(tabs, t)
	}
	return tabs, rows.Err()
}
