package fieldmap

import (
	"encoding/json"
	"fmt"
)

type jsonField struct {
	Name  string `json:"name"`
	Value any    `json:"value"`
}

// MarshalJSON renders the map as an ordered array of {name, value} objects,
// keeping insertion order intact across a round trip.
func (m *Map) MarshalJSON() ([]byte, error) {
	fields := make([]jsonField, 0, m.Len())
	m.Walk(func(name string, v Value) {
		var raw any
		switch v.Kind {
		case KindNumber:
			raw = v.Num
		case KindBool:
			raw = v.Bool
		default:
			raw = v.Str
		}
		fields = append(fields, jsonField{Name: name, Value: raw})
	})
	return json.Marshal(fields)
}

// UnmarshalJSON restores a map from its array form, inferring each value's
// kind from the JSON type.
func (m *Map) UnmarshalJSON(data []byte) error {
	var fields []jsonField
	if err := json.Unmarshal(data, &fields); err != nil {
		return fmt.Errorf("decode field map: %w", err)
	}
	*m = Map{index: make(map[string]int)}
	for _, f := range fields {
		switch v := f.Value.(type) {
		case float64:
			m.Set(f.Name, Number(v))
		case bool:
			m.Set(f.Name, Bool(v))
		case string:
			m.Set(f.Name, String(v))
		case nil:
			m.Set(f.Name, String(""))
		default:
			return fmt.Errorf("field %q: unsupported value type %T", f.Name, f.Value)
		}
	}
	return nil
}
