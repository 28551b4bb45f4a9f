package values

import (
	"encoding/json"
	"fmt"
)

// MarshalJSON emits the tagged-kind wire encoding used throughout the
// interchange bundle and fact payloads.
func (v Value) MarshalJSON() ([]byte, error) {
	m := map[string]interface{}{}
	switch v.Kind {
	case KindBool:
		m["kind"] = "bool_value"
		m["value"] = v.B
	case KindInt:
		m["kind"] = "int_value"
		m["value"] = v.I
	case KindDecimal:
		m["kind"] = "decimal_value"
		m["value"] = v.D.String()
	case KindMoney:
		m["kind"] = "money_value"
		m["currency"] = v.Currency
		m["amount"] = map[string]interface{}{"kind": "decimal_value", "value": v.D.String()}
	case KindText:
		m["kind"] = "text_value"
		m["value"] = v.S
	case KindDate:
		m["kind"] = "date_value"
		m["value"] = v.S
	case KindDateTime:
		m["kind"] = "datetime_value"
		m["value"] = v.S
	case KindDuration:
		m["kind"] = "duration_value"
		m["value"] = v.I
		m["unit"] = v.Unit
	case KindEnum:
		m["kind"] = "enum_value"
		m["value"] = v.S
	case KindList:
		m["kind"] = "list_value"
		elems := make([]Value, len(v.List))
		copy(elems, v.List)
		m["elements"] = elems
	case KindRecord:
		m["kind"] = "record_value"
		m["fields"] = v.Record
	case KindTaggedUnion:
		m["kind"] = "tagged_union_value"
		m["tag"] = v.Tag
		if v.Payload != nil {
			m["payload"] = *v.Payload
		}
	default:
		return nil, fmt.Errorf("values: cannot marshal kind %q", v.Kind)
	}
	return json.Marshal(m)
}

// UnmarshalJSON decodes the tagged-kind wire encoding back into a Value.
func (v *Value) UnmarshalJSON(data []byte) error {
	var raw map[string]interface{}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	kind, _ := raw["kind"].(string)
	switch kind {
	case "bool_value":
		b, _ := raw["value"].(bool)
		*v = VBool(b)
	case "int_value":
		*v = VInt(int64(asNumber(raw["value"])))
	case "decimal_value":
		s, _ := raw["value"].(string)
		d, err := ParseDecimal(s)
		if err != nil {
			return fmt.Errorf("values: decimal_value %q: %w", s, err)
		}
		*v = VDecimal(d)
	case "money_value":
		currency, _ := raw["currency"].(string)
		amountRaw, ok := raw["amount"].(map[string]interface{})
		if !ok {
			return fmt.Errorf("values: money_value missing amount")
		}
		s, _ := amountRaw["value"].(string)
		d, err := ParseDecimal(s)
		if err != nil {
			return fmt.Errorf("values: money_value amount %q: %w", s, err)
		}
		*v = VMoney(d, currency)
	case "text_value":
		s, _ := raw["value"].(string)
		*v = VText(s)
	case "date_value":
		s, _ := raw["value"].(string)
		*v = VDate(s)
	case "datetime_value":
		s, _ := raw["value"].(string)
		*v = VDateTime(s)
	case "duration_value":
		unit, _ := raw["unit"].(string)
		*v = VDuration(int64(asNumber(raw["value"])), unit)
	case "enum_value":
		s, _ := raw["value"].(string)
		*v = VEnum(s)
	case "list_value":
		elemsRaw, _ := raw["elements"].([]interface{})
		elems := make([]Value, 0, len(elemsRaw))
		for _, er := range elemsRaw {
			eb, err := json.Marshal(er)
			if err != nil {
				return err
			}
			var ev Value
			if err := json.Unmarshal(eb, &ev); err != nil {
				return err
			}
			elems = append(elems, ev)
		}
		*v = VList(elems)
	case "record_value":
		fieldsRaw, _ := raw["fields"].(map[string]interface{})
		fields := make(map[string]Value, len(fieldsRaw))
		for k, fr := range fieldsRaw {
			fb, err := json.Marshal(fr)
			if err != nil {
				return err
			}
			var fv Value
			if err := json.Unmarshal(fb, &fv); err != nil {
				return err
			}
			fields[k] = fv
		}
		*v = VRecord(fields)
	case "tagged_union_value":
		tag, _ := raw["tag"].(string)
		var payload Value
		if pr, ok := raw["payload"]; ok {
			pb, err := json.Marshal(pr)
			if err != nil {
				return err
			}
			if err := json.Unmarshal(pb, &payload); err != nil {
				return err
			}
		}
		*v = VTaggedUnion(tag, payload)
	default:
		return fmt.Errorf("values: unknown value kind %q", kind)
	}
	return nil
}

func asNumber(v interface{}) float64 {
	switch n := v.(type) {
	case float64:
		return n
	case json.Number:
		f, _ := n.Float64()
		return f
	default:
		return 0
	}
}

// MarshalJSON emits a Type as a base-tagged object.
func (t Type) MarshalJSON() ([]byte, error) {
	m := map[string]interface{}{"base": string(t.Base)}
	if t.Min != nil {
		m["min"] = *t.Min
	}
	if t.Max != nil {
		m["max"] = *t.Max
	}
	if t.Precision != nil {
		m["precision"] = *t.Precision
	}
	if t.Scale != nil {
		m["scale"] = *t.Scale
	}
	if t.Currency != nil {
		m["currency"] = *t.Currency
	}
	if t.MaxLength != nil {
		m["max_length"] = *t.MaxLength
	}
	if t.Unit != nil {
		m["unit"] = *t.Unit
	}
	if t.DurMin != nil {
		m["dur_min"] = *t.DurMin
	}
	if t.DurMax != nil {
		m["dur_max"] = *t.DurMax
	}
	if len(t.Values) > 0 {
		m["values"] = t.Values
	}
	if t.Element != nil {
		m["element"] = t.Element
	}
	if t.MaxItems != nil {
		m["max_items"] = *t.MaxItems
	}
	if len(t.Fields) > 0 {
		m["fields"] = t.Fields
	}
	if len(t.Variants) > 0 {
		m["variants"] = t.Variants
	}
	if t.Base == KindTypeRef {
		m["ref"] = t.RefName
	}
	return json.Marshal(m)
}

// UnmarshalJSON decodes the base-tagged Type encoding emitted by
// MarshalJSON, for interchange-bundle deserialization.
func (t *Type) UnmarshalJSON(data []byte) error {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	var base string
	if err := json.Unmarshal(raw["base"], &base); err != nil {
		return fmt.Errorf("values: type missing base: %w", err)
	}
	*t = Type{Base: Kind(base)}

	decode := func(key string, dst interface{}) error {
		r, ok := raw[key]
		if !ok {
			return nil
		}
		return json.Unmarshal(r, dst)
	}
	optInt64 := func(key string, dst **int64) error {
		r, ok := raw[key]
		if !ok {
			return nil
		}
		var v int64
		if err := json.Unmarshal(r, &v); err != nil {
			return err
		}
		*dst = &v
		return nil
	}
	optInt32 := func(key string, dst **int32) error {
		r, ok := raw[key]
		if !ok {
			return nil
		}
		var v int32
		if err := json.Unmarshal(r, &v); err != nil {
			return err
		}
		*dst = &v
		return nil
	}
	optString := func(key string, dst **string) error {
		r, ok := raw[key]
		if !ok {
			return nil
		}
		var v string
		if err := json.Unmarshal(r, &v); err != nil {
			return err
		}
		*dst = &v
		return nil
	}

	for _, step := range []error{
		optInt64("min", &t.Min),
		optInt64("max", &t.Max),
		optInt32("precision", &t.Precision),
		optInt32("scale", &t.Scale),
		optString("currency", &t.Currency),
		optInt64("max_length", &t.MaxLength),
		optString("unit", &t.Unit),
		optInt64("dur_min", &t.DurMin),
		optInt64("dur_max", &t.DurMax),
		optInt64("max_items", &t.MaxItems),
		decode("values", &t.Values),
		decode("element", &t.Element),
		decode("fields", &t.Fields),
		decode("variants", &t.Variants),
	} {
		if step != nil {
			return fmt.Errorf("values: decode type %q: %w", base, step)
		}
	}
	if t.Base == KindTypeRef {
		if err := decode("ref", &t.RefName); err != nil {
			return err
		}
	}
	return nil
}
