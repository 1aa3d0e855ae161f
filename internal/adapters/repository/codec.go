package repository

import (
	"encoding/json"
	"fmt"
	"reflect"
	"strconv"
	"strings"
)

// decodeJSON unmarshals a nullable JSON column. NULL and empty values leave
// dst untouched.
func decodeJSON(raw *string, dst any) error {
	if raw == nil || strings.TrimSpace(*raw) == "" {
		return nil
	}
	return json.Unmarshal([]byte(*raw), dst)
}

// encodeJSON marshals v for a nullable JSON column; nil values become NULL.
func encodeJSON(v any) (*string, error) {
	rv := reflect.ValueOf(v)
	if !rv.IsValid() {
		return nil, nil
	}
	switch rv.Kind() {
	case reflect.Map, reflect.Slice, reflect.Pointer:
		if rv.IsNil() {
			return nil, nil
		}
	}
	b, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidData, err)
	}
	s := string(b)
	return &s, nil
}

func decodeConfigValue(raw string) any {
	var v any
	if err := json.Unmarshal([]byte(raw), &v); err == nil {
		return v
	}
	if strings.Contains(raw, ".") {
		if f, err := strconv.ParseFloat(raw, 64); err == nil {
			return f
		}
	} else if n, err := strconv.Atoi(raw); err == nil {
		return n
	}
	return raw
}
