package qspec

// TypeTag declares how a selected column's value is coerced while mapping
// rows back into result objects.
type TypeTag int8

const (
	TypeString TypeTag = iota
	TypeBool
	TypeInt
	TypeNumber
	TypeObject
	TypeJSON
)

func (t TypeTag) String() string {
	switch t {
	case TypeBool:
		return "Bool"
	case TypeInt:
		return "Int"
	case TypeNumber:
		return "Number"
	case TypeObject:
		return "Object"
	case TypeJSON:
		return "JSON"
	}
	return "String"
}

// parseTypeTag matches the bracketed cast names accepted in column specs.
func parseTypeTag(s string) (TypeTag, bool) {
	switch s {
	case "String":
		return TypeString, true
	case "Bool":
		return TypeBool, true
	case "Int":
		return TypeInt, true
	case "Number":
		return TypeNumber, true
	case "Object":
		return TypeObject, true
	case "JSON":
		return TypeJSON, true
	}
	return TypeString, false
}

// Op is a condition operator parsed from a bracketed key suffix.
type Op int8

const (
	OpEq Op = iota // no suffix
	OpNot
	OpGt
	OpGte
	OpLt
	OpLte
	OpBetween
	OpNotBetween
	OpLike
	OpNotLike
	OpRegexp
)

// parseOpToken reads the text between the brackets of a condition key.
func parseOpToken(s string) (Op, bool) {
	switch s {
	case ">":
		return OpGt, true
	case ">=":
		return OpGte, true
	case "<":
		return OpLt, true
	case "<=":
		return OpLte, true
	case "!":
		return OpNot, true
	case "<>":
		return OpBetween, true
	case "><":
		return OpNotBetween, true
	case "~":
		return OpLike, true
	case "!~":
		return OpNotLike, true
	case "REGEXP":
		return OpRegexp, true
	}
	return OpEq, false
}

// parseCmpToken reads the operator of a column to column comparison.
func parseCmpToken(s string) (Op, bool) {
	switch s {
	case "=":
		return OpEq, true
	case "!=":
		return OpNot, true
	case ">":
		return OpGt, true
	case ">=":
		return OpGte, true
	case "<":
		return OpLt, true
	case "<=":
		return OpLte, true
	}
	return OpEq, false
}

// CmpSQL returns the SQL token for operators valid in column comparisons.
func (o Op) CmpSQL() string {
	switch o {
	case OpNot:
		return "!="
	case OpGt:
		return ">"
	case OpGte:
		return ">="
	case OpLt:
		return "<"
	case OpLte:
		return "<="
	}
	return "="
}

// LogicOp joins sibling conditions.
type LogicOp int8

const (
	LogicAnd LogicOp = iota
	LogicOr
)

func (l LogicOp) String() string {
	if l == LogicOr {
		return "OR"
	}
	return "AND"
}
