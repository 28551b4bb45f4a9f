package values

import (
	"encoding/json"
	"fmt"
)

// Coerce converts a generically-decoded JSON value (as produced by
// json.Unmarshal into interface{} — bool, float64, string, []interface{},
// map[string]interface{}) into a typed Value, guided by the declared
// Type. It accepts both the "plain" shape (bare bool/number/string, or
// {"amount":...,"currency":...} for Money, {"value":...,"unit":...} for
// Duration) and the tagged-"kind" wire shape, so external fact sources
// can submit either.
func Coerce(raw interface{}, t *Type) (Value, error) {
	if t == nil {
		return Value{}, fmt.Errorf("values: coerce: nil type")
	}
	// If raw already carries a "kind" tag, delegate to the tagged decoder.
	if m, ok := raw.(map[string]interface{}); ok {
		if _, hasKind := m["kind"]; hasKind {
			b, err := json.Marshal(m)
			if err != nil {
				return Value{}, err
			}
			var v Value
			if err := json.Unmarshal(b, &v); err != nil {
				return Value{}, err
			}
			return v, nil
		}
	}

	switch t.Base {
	case KindBool:
		b, ok := raw.(bool)
		if !ok {
			return Value{}, fmt.Errorf("values: expected Bool, got %T", raw)
		}
		return VBool(b), nil

	case KindInt:
		n, ok := asInt(raw)
		if !ok {
			return Value{}, fmt.Errorf("values: expected Int, got %T", raw)
		}
		return VInt(n), nil

	case KindDecimal:
		s, ok := asDecimalString(raw)
		if !ok {
			return Value{}, fmt.Errorf("values: expected Decimal, got %T", raw)
		}
		d, err := ParseDecimal(s)
		if err != nil {
			return Value{}, fmt.Errorf("values: invalid Decimal %q: %w", s, err)
		}
		return VDecimal(d), nil

	case KindMoney:
		m, ok := raw.(map[string]interface{})
		if !ok {
			return Value{}, fmt.Errorf("values: expected Money object, got %T", raw)
		}
		amountRaw, hasAmount := m["amount"]
		if !hasAmount {
			return Value{}, fmt.Errorf("values: Money missing amount")
		}
		s, ok := asDecimalString(amountRaw)
		if !ok {
			return Value{}, fmt.Errorf("values: Money amount: expected decimal, got %T", amountRaw)
		}
		d, err := ParseDecimal(s)
		if err != nil {
			return Value{}, fmt.Errorf("values: Money amount %q: %w", s, err)
		}
		currency, _ := m["currency"].(string)
		if t.Currency != nil && currency == "" {
			currency = *t.Currency
		}
		return VMoney(d, currency), nil

	case KindText:
		s, ok := raw.(string)
		if !ok {
			return Value{}, fmt.Errorf("values: expected Text, got %T", raw)
		}
		return VText(s), nil

	case KindDate:
		s, ok := raw.(string)
		if !ok {
			return Value{}, fmt.Errorf("values: expected Date, got %T", raw)
		}
		return VDate(s), nil

	case KindDateTime:
		s, ok := raw.(string)
		if !ok {
			return Value{}, fmt.Errorf("values: expected DateTime, got %T", raw)
		}
		return VDateTime(s), nil

	case KindDuration:
		m, ok := raw.(map[string]interface{})
		if !ok {
			return Value{}, fmt.Errorf("values: expected Duration object, got %T", raw)
		}
		n, ok := asInt(m["value"])
		if !ok {
			return Value{}, fmt.Errorf("values: Duration missing numeric value")
		}
		unit, _ := m["unit"].(string)
		if t.Unit != nil && unit == "" {
			unit = *t.Unit
		}
		return VDuration(n, unit), nil

	case KindEnum:
		s, ok := raw.(string)
		if !ok {
			return Value{}, fmt.Errorf("values: expected Enum, got %T", raw)
		}
		return VEnum(s), nil

	case KindList:
		arr, ok := raw.([]interface{})
		if !ok {
			return Value{}, fmt.Errorf("values: expected List, got %T", raw)
		}
		if t.Element == nil {
			return Value{}, fmt.Errorf("values: List type missing element type")
		}
		items := make([]Value, 0, len(arr))
		for i, el := range arr {
			iv, err := Coerce(el, t.Element)
			if err != nil {
				return Value{}, fmt.Errorf("values: List[%d]: %w", i, err)
			}
			items = append(items, iv)
		}
		return VList(items), nil

	case KindRecord:
		m, ok := raw.(map[string]interface{})
		if !ok {
			return Value{}, fmt.Errorf("values: expected Record, got %T", raw)
		}
		if t.Fields == nil {
			return Value{}, fmt.Errorf("values: Record type missing field declarations")
		}
		fields := make(map[string]Value, len(t.Fields))
		for name, fieldType := range t.Fields {
			fv, ok := m[name]
			if !ok {
				return Value{}, fmt.Errorf("values: Record missing field %q", name)
			}
			cv, err := Coerce(fv, fieldType)
			if err != nil {
				return Value{}, fmt.Errorf("values: Record field %q: %w", name, err)
			}
			fields[name] = cv
		}
		return VRecord(fields), nil

	case KindTaggedUnion:
		m, ok := raw.(map[string]interface{})
		if !ok {
			return Value{}, fmt.Errorf("values: expected TaggedUnion, got %T", raw)
		}
		tag, _ := m["tag"].(string)
		variantType, ok := t.Variants[tag]
		if !ok {
			return Value{}, fmt.Errorf("values: TaggedUnion unknown tag %q", tag)
		}
		var payload Value
		if pr, hasPayload := m["payload"]; hasPayload {
			pv, err := Coerce(pr, variantType)
			if err != nil {
				return Value{}, fmt.Errorf("values: TaggedUnion payload for tag %q: %w", tag, err)
			}
			payload = pv
		}
		return VTaggedUnion(tag, payload), nil

	default:
		return Value{}, fmt.Errorf("values: cannot coerce unresolved type %s", t.Base)
	}
}

func asInt(raw interface{}) (int64, bool) {
	switch n := raw.(type) {
	case float64:
		return int64(n), true
	case json.Number:
		i, err := n.Int64()
		return i, err == nil
	case int64:
		return n, true
	case int:
		return int64(n), true
	default:
		return 0, false
	}
}

// asDecimalString accepts either a plain numeric/string literal or the
// {"value": "..."} decimal_value shape already unwrapped by the caller.
func asDecimalString(raw interface{}) (string, bool) {
	switch n := raw.(type) {
	case string:
		return n, true
	case int:
		return fmt.Sprintf("%d", n), true
	case int64:
		return fmt.Sprintf("%d", n), true
	case float64:
		return fmt.Sprintf("%v", n), true
	case json.Number:
		return n.String(), true
	default:
		return "", false
	}
}
