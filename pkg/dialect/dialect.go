// Package dialect describes the SQL dialects understood by the tokenizer,
// parser and printer.
//
// A Dialect is pure data: quoting rules, the reserved word set, parameter
// style and the canonical spelling of dialect-neutral constructs such as
// "build an object from key/value pairs". The set of dialects is closed and
// assembled once at package initialisation; see Get and List.
package dialect

import (
	"strconv"
	"strings"
	"unicode"
)

// NormalizationStrategy defines how unquoted identifiers are normalized.
type NormalizationStrategy int

const (
	// NormLowercase folds unquoted identifiers to lowercase (Postgres, DuckDB).
	NormLowercase NormalizationStrategy = iota
	// NormUppercase folds unquoted identifiers to uppercase (ANSI, Snowflake).
	NormUppercase
	// NormCaseSensitive preserves identifier case exactly (MySQL on Linux).
	NormCaseSensitive
)

// PlaceholderStyle defines how query parameters are formatted.
type PlaceholderStyle int

const (
	// PlaceholderQuestion uses ? for all parameters (MySQL, SQLite, DuckDB).
	PlaceholderQuestion PlaceholderStyle = iota
	// PlaceholderDollar uses $1, $2, etc. (PostgreSQL).
	PlaceholderDollar
)

// IdentifierConfig defines how identifiers are quoted and normalized.
type IdentifierConfig struct {
	Quote         string // opening quote: " or `
	QuoteEnd      string // closing quote
	Escape        string // escaped form of QuoteEnd inside a quoted name
	Normalization NormalizationStrategy
}

// Dialect is a named SQL spelling convention.
type Dialect struct {
	Name        string
	Identifiers IdentifierConfig
	Placeholder PlaceholderStyle

	// Lexical switches.
	DoubleQuotedStrings bool // "text" is a string literal, not an identifier
	BacktickIdentifiers bool // `name` is a quoted identifier
	DollarQuoting       bool // $tag$ ... $tag$ strings
	EscapeStrings       bool // E'...' strings with backslash escapes
	BackslashEscapes    bool // backslash escapes inside ordinary strings
	CastOperator        bool // expr::type

	// ObjectBuilder is the function that builds an object (JSON or struct)
	// from alternating key/value arguments.
	ObjectBuilder string
	// ArrayBuilder is the function that builds an array from its arguments.
	// Empty means the dialect keeps the ARRAY[...] literal form.
	ArrayBuilder string

	reserved map[string]struct{}
}

// NormalizeName normalizes an unquoted identifier according to dialect rules.
func (d *Dialect) NormalizeName(name string) string {
	switch d.Identifiers.Normalization {
	case NormUppercase:
		return strings.ToUpper(name)
	case NormLowercase:
		return strings.ToLower(name)
	default:
		return name
	}
}

// IsReservedWord returns true if word is reserved and needs quoting when used
// as an identifier.
func (d *Dialect) IsReservedWord(word string) bool {
	_, ok := d.reserved[strings.ToLower(word)]
	return ok
}

// ReservedWords returns the reserved words of the dialect in lowercase.
func (d *Dialect) ReservedWords() []string {
	words := make([]string, 0, len(d.reserved))
	for w := range d.reserved {
		words = append(words, w)
	}
	return words
}

// QuoteIdentifier quotes an identifier using the dialect's quote characters.
func (d *Dialect) QuoteIdentifier(name string) string {
	escaped := strings.ReplaceAll(name, d.Identifiers.QuoteEnd, d.Identifiers.Escape)
	return d.Identifiers.Quote + escaped + d.Identifiers.QuoteEnd
}

// QuoteIdentifierIfNeeded quotes an identifier only if it is reserved or is
// not a plain word.
func (d *Dialect) QuoteIdentifierIfNeeded(name string) string {
	if d.IsReservedWord(name) || !isPlainWord(name) {
		return d.QuoteIdentifier(name)
	}
	return name
}

// QuoteString renders s as a single-quoted string literal.
func (d *Dialect) QuoteString(s string) string {
	if d.BackslashEscapes {
		s = strings.ReplaceAll(s, `\`, `\\`)
	}
	return "'" + strings.ReplaceAll(s, "'", "''") + "'"
}

// FormatPlaceholder returns a placeholder for the given parameter index (1-based).
func (d *Dialect) FormatPlaceholder(index int) string {
	switch d.Placeholder {
	case PlaceholderDollar:
		return "$" + strconv.Itoa(index)
	default:
		return "?"
	}
}

func (d *Dialect) String() string {
	return d.Name
}

// IsIdentStart reports whether r may begin an unquoted identifier.
func IsIdentStart(r rune) bool {
	return r == '_' || unicode.IsLetter(r)
}

// IsIdentPart reports whether r may continue an unquoted identifier.
func IsIdentPart(r rune) bool {
	return r == '_' || r == '$' || unicode.IsLetter(r) || unicode.IsDigit(r)
}

// isPlainWord reports whether s lexes back as a single unquoted identifier.
func isPlainWord(s string) bool {
	if s == "" {
		return false
	}
	for i, r := range s {
		if i == 0 && !IsIdentStart(r) || i > 0 && !IsIdentPart(r) {
			return false
		}
	}
	return true
}
