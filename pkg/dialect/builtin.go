package dialect

// coreReserved are the words reserved by every dialect.
var coreReserved = []string{
	"all", "and", "as", "asc", "between", "by", "case", "cast", "check",
	"constraint", "create", "cross", "default", "delete", "desc", "distinct",
	"else", "end", "except", "exists", "false", "foreign", "from", "full",
	"group", "having", "in", "inner", "insert", "intersect", "into", "is",
	"join", "left", "like", "limit", "not", "null", "offset", "on", "or",
	"order", "outer", "primary", "references", "right", "select", "set",
	"table", "then", "true", "union", "unique", "update", "using", "values",
	"when", "where", "with",
}

func reservedSet(extra ...string) map[string]struct{} {
	set := make(map[string]struct{}, len(coreReserved)+len(extra))
	for _, w := range coreReserved {
		set[w] = struct{}{}
	}
	for _, w := range extra {
		set[w] = struct{}{}
	}
	return set
}

// ANSI is the standard SQL dialect.
var ANSI = &Dialect{
	Name: NameANSI,
	Identifiers: IdentifierConfig{
		Quote: `"`, QuoteEnd: `"`, Escape: `""`,
		Normalization: NormUppercase,
	},
	Placeholder:   PlaceholderQuestion,
	ObjectBuilder: "json_object",
	reserved:      reservedSet("fetch", "grant", "window"),
}

// Postgres is the PostgreSQL dialect.
var Postgres = &Dialect{
	Name: NamePostgres,
	Identifiers: IdentifierConfig{
		Quote: `"`, QuoteEnd: `"`, Escape: `""`,
		Normalization: NormLowercase,
	},
	Placeholder:   PlaceholderDollar,
	DollarQuoting: true,
	EscapeStrings: true,
	CastOperator:  true,
	ObjectBuilder: "json_build_object",
	reserved:      reservedSet("analyse", "analyze", "array", "returning", "window", "ilike"),
}

// MySQL is the MySQL / MariaDB dialect.
var MySQL = &Dialect{
	Name: NameMySQL,
	Identifiers: IdentifierConfig{
		Quote: "`", QuoteEnd: "`", Escape: "``",
		Normalization: NormCaseSensitive,
	},
	Placeholder:         PlaceholderQuestion,
	DoubleQuotedStrings: true,
	BacktickIdentifiers: true,
	BackslashEscapes:    true,
	ObjectBuilder:       "JSON_OBJECT",
	ArrayBuilder:        "JSON_ARRAY",
	reserved:            reservedSet("key", "keys", "index", "interval", "regexp", "rlike"),
}

// DuckDB is the DuckDB dialect.
var DuckDB = &Dialect{
	Name: NameDuckDB,
	Identifiers: IdentifierConfig{
		Quote: `"`, QuoteEnd: `"`, Escape: `""`,
		Normalization: NormLowercase,
	},
	Placeholder:   PlaceholderQuestion,
	DollarQuoting: true,
	CastOperator:  true,
	ObjectBuilder: "json_object",
	ArrayBuilder:  "list_value",
	reserved:      reservedSet("qualify", "pivot", "unpivot", "window"),
}

// SQLite is the SQLite dialect.
var SQLite = &Dialect{
	Name: NameSQLite,
	Identifiers: IdentifierConfig{
		Quote: `"`, QuoteEnd: `"`, Escape: `""`,
		Normalization: NormCaseSensitive,
	},
	Placeholder:         PlaceholderQuestion,
	BacktickIdentifiers: true,
	ObjectBuilder:       "json_object",
	ArrayBuilder:        "json_array",
	reserved:            reservedSet("autoincrement", "glob", "pragma"),
}
