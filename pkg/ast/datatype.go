package ast

import "strings"

// DataType is the statically inferred result type of an expression.
type DataType struct {
	// Name is the normalized type name, lowercase. Empty means unknown.
	Name string
}

// Well-known data types.
var (
	Unknown   = DataType{}
	Boolean   = DataType{Name: "boolean"}
	Integer   = DataType{Name: "integer"}
	Numeric   = DataType{Name: "numeric"}
	Text      = DataType{Name: "text"}
	JSON      = DataType{Name: "json"}
	Array     = DataType{Name: "array"}
	Null      = DataType{Name: "null"}
	Timestamp = DataType{Name: "timestamp"}
)

// typeAliases folds common spellings onto the well-known names.
var typeAliases = map[string]DataType{
	"bool":              Boolean,
	"boolean":           Boolean,
	"int":               Integer,
	"int2":              Integer,
	"int4":              Integer,
	"int8":              Integer,
	"integer":           Integer,
	"smallint":          Integer,
	"bigint":            Integer,
	"tinyint":           Integer,
	"numeric":           Numeric,
	"decimal":           Numeric,
	"real":              Numeric,
	"float":             Numeric,
	"float4":            Numeric,
	"float8":            Numeric,
	"double":            Numeric,
	"double precision":  Numeric,
	"text":              Text,
	"varchar":           Text,
	"char":              Text,
	"character":         Text,
	"character varying": Text,
	"string":            Text,
	"json":              JSON,
	"jsonb":             JSON,
	"timestamp":         Timestamp,
	"timestamptz":       Timestamp,
	"datetime":          Timestamp,
}

// TypeOf maps a declared type name to a DataType. Names outside the
// well-known set are kept as-is, lowercased.
func TypeOf(name string) DataType {
	name = strings.ToLower(strings.Join(strings.Fields(name), " "))
	if dt, ok := typeAliases[name]; ok {
		return dt
	}
	return DataType{Name: name}
}

// IsKnown reports whether the type was inferred.
func (t DataType) IsKnown() bool { return t.Name != "" }

// IsNumeric reports whether the type is integer or numeric.
func (t DataType) IsNumeric() bool { return t == Integer || t == Numeric }

func (t DataType) String() string {
	if t.Name == "" {
		return "unknown"
	}
	return t.Name
}
