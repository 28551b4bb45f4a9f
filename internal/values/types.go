// Package values implements the runtime Type and Value representation
// shared by the type resolver, fact assembler, and rule/flow
// evaluators. Decimal and Money amounts are represented with
// github.com/shopspring/decimal — never float64 — so money and decimal
// comparisons never suffer binary rounding error; Int and Duration
// magnitudes are int64.
package values

// Kind is the closed enumeration of base types.
type Kind string

const (
	KindBool        Kind = "Bool"
	KindInt         Kind = "Int"
	KindDecimal     Kind = "Decimal"
	KindMoney       Kind = "Money"
	KindText        Kind = "Text"
	KindDate        Kind = "Date"
	KindDateTime    Kind = "DateTime"
	KindDuration    Kind = "Duration"
	KindEnum        Kind = "Enum"
	KindList        Kind = "List"
	KindRecord      Kind = "Record"
	KindTaggedUnion Kind = "TaggedUnion"
	KindTypeRef     Kind = "TypeRef"
)

// Type describes a declared or resolved Tenor type. Only the fields
// relevant to Base are meaningful.
type Type struct {
	Base Kind

	// Int
	Min *int64
	Max *int64

	// Decimal
	Precision *int32
	Scale     *int32

	// Money
	Currency *string

	// Text
	MaxLength *int64

	// Duration
	Unit   *string
	DurMin *int64
	DurMax *int64

	// Enum
	Values []string

	// List
	Element *Type
	MaxItems *int64

	// Record
	Fields map[string]*Type

	// TaggedUnion
	Variants map[string]*Type

	// TypeRef (unresolved until pass 3)
	RefName string
}

func Bool() *Type { return &Type{Base: KindBool} }
func Text() *Type { return &Type{Base: KindText} }
func Date() *Type { return &Type{Base: KindDate} }
func DateTime() *Type { return &Type{Base: KindDateTime} }
func Enum(values []string) *Type { return &Type{Base: KindEnum, Values: values} }

func Int(min, max *int64) *Type { return &Type{Base: KindInt, Min: min, Max: max} }

func Decimal(precision, scale int32) *Type {
	return &Type{Base: KindDecimal, Precision: &precision, Scale: &scale}
}

func Money(currency string) *Type { return &Type{Base: KindMoney, Currency: &currency} }

func Duration(unit string, min, max *int64) *Type {
	return &Type{Base: KindDuration, Unit: &unit, DurMin: min, DurMax: max}
}

// Value is a runtime value of some Type. Exactly one
// group of fields is meaningful, selected by Kind.
type Value struct {
	Kind Kind

	B bool   // Bool
	I int64  // Int, Duration magnitude
	D DecimalValue // Decimal, Money amount
	S string // Text, Date, DateTime, Enum

	Currency string // Money
	Unit     string // Duration

	List   []Value          // List
	Record map[string]Value // Record

	Tag     string // TaggedUnion
	Payload *Value // TaggedUnion
}

func VBool(b bool) Value  { return Value{Kind: KindBool, B: b} }
func VInt(i int64) Value  { return Value{Kind: KindInt, I: i} }
func VText(s string) Value { return Value{Kind: KindText, S: s} }
func VDate(s string) Value { return Value{Kind: KindDate, S: s} }
func VDateTime(s string) Value { return Value{Kind: KindDateTime, S: s} }
func VEnum(s string) Value { return Value{Kind: KindEnum, S: s} }
func VDecimal(d DecimalValue) Value { return Value{Kind: KindDecimal, D: d} }
func VMoney(amount DecimalValue, currency string) Value {
	return Value{Kind: KindMoney, D: amount, Currency: currency}
}
func VDuration(magnitude int64, unit string) Value {
	return Value{Kind: KindDuration, I: magnitude, Unit: unit}
}
func VList(items []Value) Value { return Value{Kind: KindList, List: items} }
func VRecord(fields map[string]Value) Value { return Value{Kind: KindRecord, Record: fields} }
func VTaggedUnion(tag string, payload Value) Value {
	return Value{Kind: KindTaggedUnion, Tag: tag, Payload: &payload}
}

// TypeName returns a human-readable type name for error messages.
func (v Value) TypeName() string { return string(v.Kind) }
