package dialect

import (
	"errors"
	"fmt"
	"sort"
	"strings"
)

// Dialect names.
const (
	NameANSI     = "ansi"
	NamePostgres = "postgres"
	NameMySQL    = "mysql"
	NameDuckDB   = "duckdb"
	NameSQLite   = "sqlite"
)

// ErrUnknownDialect is returned when a dialect name is not in the table.
var ErrUnknownDialect = errors.New("unknown dialect")

// The table is assembled once and never mutated afterwards, so lookups need
// no locking.
var dialects = func() map[string]*Dialect {
	m := make(map[string]*Dialect)
	for _, d := range []*Dialect{ANSI, Postgres, MySQL, DuckDB, SQLite} {
		m[d.Name] = d
	}
	return m
}()

// aliases maps alternative spellings accepted on the command line.
var aliases = map[string]string{
	"postgresql": NamePostgres,
	"pg":         NamePostgres,
	"mariadb":    NameMySQL,
	"sqlite3":    NameSQLite,
	"standard":   NameANSI,
}

// Get returns a dialect by name. Lookup is case-insensitive and accepts
// common aliases.
func Get(name string) (*Dialect, bool) {
	key := strings.ToLower(strings.TrimSpace(name))
	if canonical, ok := aliases[key]; ok {
		key = canonical
	}
	d, ok := dialects[key]
	return d, ok
}

// Lookup is like Get but returns an error naming the known dialects.
func Lookup(name string) (*Dialect, error) {
	if name == "" {
		return Default(), nil
	}
	d, ok := Get(name)
	if !ok {
		return nil, fmt.Errorf("%w %q (known: %s)", ErrUnknownDialect, name, strings.Join(List(), ", "))
	}
	return d, nil
}

// Default returns the dialect used when none is specified.
func Default() *Dialect {
	return ANSI
}

// List returns all dialect names (sorted).
func List() []string {
	names := make([]string, 0, len(dialects))
	for name := range dialects {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
