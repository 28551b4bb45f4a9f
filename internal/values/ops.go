package values

import "fmt"

// Equal reports whether two values of the same kind are equal. Money and
// Duration additionally require matching currency/unit; comparing values
// of different kinds, or Money/Duration with mismatched units, is an
// error rather than false, since the type resolver should never have let
// such a comparison through.
func Equal(a, b Value) (bool, error) {
	if a.Kind != b.Kind {
		return false, fmt.Errorf("values: cannot compare %s with %s", a.Kind, b.Kind)
	}
	switch a.Kind {
	case KindBool:
		return a.B == b.B, nil
	case KindInt:
		return a.I == b.I, nil
	case KindText, KindDate, KindDateTime, KindEnum:
		return a.S == b.S, nil
	case KindDecimal:
		return a.D.Equal(b.D), nil
	case KindMoney:
		if a.Currency != b.Currency {
			return false, fmt.Errorf("values: cannot compare Money(%s) with Money(%s)", a.Currency, b.Currency)
		}
		return a.D.Equal(b.D), nil
	case KindDuration:
		if a.Unit != b.Unit {
			return false, fmt.Errorf("values: cannot compare Duration(%s) with Duration(%s)", a.Unit, b.Unit)
		}
		return a.I == b.I, nil
	case KindList:
		if len(a.List) != len(b.List) {
			return false, nil
		}
		for i := range a.List {
			eq, err := Equal(a.List[i], b.List[i])
			if err != nil || !eq {
				return eq, err
			}
		}
		return true, nil
	case KindRecord:
		if len(a.Record) != len(b.Record) {
			return false, nil
		}
		for k, av := range a.Record {
			bv, ok := b.Record[k]
			if !ok {
				return false, nil
			}
			eq, err := Equal(av, bv)
			if err != nil || !eq {
				return eq, err
			}
		}
		return true, nil
	case KindTaggedUnion:
		if a.Tag != b.Tag {
			return false, nil
		}
		if a.Payload == nil || b.Payload == nil {
			return a.Payload == b.Payload, nil
		}
		return Equal(*a.Payload, *b.Payload)
	default:
		return false, fmt.Errorf("values: equality undefined for kind %s", a.Kind)
	}
}

// Compare returns -1, 0, or 1 for a<b, a==b, a>b. Only the ordered kinds
// named in the predicate algebra (Int, Decimal, Money, Date, DateTime,
// Duration) support ordering; Bool, Text, Enum, List, Record, and
// TaggedUnion do not.
func Compare(a, b Value) (int, error) {
	if a.Kind != b.Kind {
		return 0, fmt.Errorf("values: cannot order %s against %s", a.Kind, b.Kind)
	}
	switch a.Kind {
	case KindInt:
		switch {
		case a.I < b.I:
			return -1, nil
		case a.I > b.I:
			return 1, nil
		default:
			return 0, nil
		}
	case KindDecimal:
		return a.D.Cmp(b.D), nil
	case KindMoney:
		if a.Currency != b.Currency {
			return 0, fmt.Errorf("values: cannot order Money(%s) against Money(%s)", a.Currency, b.Currency)
		}
		return a.D.Cmp(b.D), nil
	case KindDuration:
		if a.Unit != b.Unit {
			return 0, fmt.Errorf("values: cannot order Duration(%s) against Duration(%s)", a.Unit, b.Unit)
		}
		switch {
		case a.I < b.I:
			return -1, nil
		case a.I > b.I:
			return 1, nil
		default:
			return 0, nil
		}
	case KindDate, KindDateTime:
		switch {
		case a.S < b.S:
			return -1, nil
		case a.S > b.S:
			return 1, nil
		default:
			return 0, nil
		}
	default:
		return 0, fmt.Errorf("values: ordering undefined for kind %s", a.Kind)
	}
}

// Multiply implements the restricted multiplication permitted by the
// predicate algebra: Int*Int, Decimal*Decimal, and Decimal*Int (in
// either operand order). At most one of the two operands may be a
// variable (fact/verdict reference); that constraint is enforced
// statically by the type checker, not here. Int*Int products are
// range-checked only statically, by the type checker against the
// enclosing rule's Int produce range; no range check happens here or
// elsewhere at evaluation time.
func Multiply(a, b Value) (Value, error) {
	switch {
	case a.Kind == KindInt && b.Kind == KindInt:
		return VInt(a.I * b.I), nil
	case a.Kind == KindDecimal && b.Kind == KindDecimal:
		return VDecimal(a.D.Mul(b.D)), nil
	case a.Kind == KindDecimal && b.Kind == KindInt:
		return VDecimal(a.D.Mul(DecimalFromInt(b.I))), nil
	case a.Kind == KindInt && b.Kind == KindDecimal:
		return VDecimal(DecimalFromInt(a.I).Mul(b.D)), nil
	default:
		return Value{}, fmt.Errorf("values: multiplication undefined for %s * %s", a.Kind, b.Kind)
	}
}
