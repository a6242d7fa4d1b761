package eventlog

import (
	"encoding/json"
	"fmt"
	"slices"
)

// normalizePayload returns data in the shape it has after a JSON round trip:
// numbers become float64, structs become maps and empty payloads become nil.
// A value JSON cannot encode is replaced by its fmt form; the keys of such
// values are returned sorted.
func normalizePayload(data map[string]any) (map[string]any, []string) {
	if len(data) == 0 {
		return nil, nil
	}
	out := make(map[string]any, len(data))
	var coerced []string
	for k, v := range data {
		nv, err := jsonValue(v)
		if err != nil {
			nv = fmt.Sprintf("%v", v)
			coerced = append(coerced, k)
		}
		out[k] = nv
	}
	slices.Sort(coerced)
	return out, coerced
}

func jsonValue(v any) (out any, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("encode payload: %v", r)
		}
	}()
	raw, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil, err
	}
	return out, nil
}
