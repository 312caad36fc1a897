package core

import (
	"fmt"
	"math"
	"reflect"
	"strconv"
	"strings"
	"time"
)

// KeyOf normalizes a value into a comparable key so that values coming from
// different drivers (int vs int64, []byte vs string) associate with each other.
func KeyOf(v any) string {
	switch t := v.(type) {
	case nil:
		return "\x00nil"
	case string:
		return "s:" + t
	case []byte:
		return "s:" + string(t)
	case bool:
		return "b:" + strconv.FormatBool(t)
	case time.Time:
		return "t:" + t.UTC().Format(time.RFC3339Nano)
	}
	if f, ok := toFloat(v); ok {
		if f == math.Trunc(f) && math.Abs(f) < 1<<53 {
			return "n:" + strconv.FormatInt(int64(f), 10)
		}
		return "n:" + strconv.FormatFloat(f, 'g', -1, 64)
	}
	return "v:" + fmt.Sprint(v)
}

// ToFloat64 converts numeric values, and numeric strings, to float64.
func ToFloat64(v any) (float64, error) {
	if f, ok := toFloat(v); ok {
		return f, nil
	}
	switch t := v.(type) {
	case string:
		return strconv.ParseFloat(strings.TrimSpace(t), 64)
	case []byte:
		return strconv.ParseFloat(strings.TrimSpace(string(t)), 64)
	}
	return 0, fmt.Errorf("value %v (%T) is not numeric", v, v)
}

// ToInt64 converts integral numeric values, and integer strings, to int64.
func ToInt64(v any) (int64, error) {
	f, err := ToFloat64(v)
	if err != nil {
		return 0, err
	}
	if f != math.Trunc(f) {
		return 0, fmt.Errorf("value %v is not an integer", v)
	}
	return int64(f), nil
}

func toFloat(v any) (float64, bool) {
	switch t := v.(type) {
	case int:
		return float64(t), true
	case int8:
		return float64(t), true
	case int16:
		return float64(t), true
	case int32:
		return float64(t), true
	case int64:
		return float64(t), true
	case uint:
		return float64(t), true
	case uint8:
		return float64(t), true
	case uint16:
		return float64(t), true
	case uint32:
		return float64(t), true
	case uint64:
		return float64(t), true
	case float32:
		return float64(t), true
	case float64:
		return t, true
	}
	return 0, false
}

// Equal compares two values the way a database would: numbers by value,
// []byte as strings, everything else deeply.
func Equal(a, b any) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	if fa, ok := toFloat(a); ok {
		fb, ok := toFloat(b)
		return ok && fa == fb
	}
	return KeyOf(a) == KeyOf(b) || reflect.DeepEqual(a, b)
}

// Compare orders two values. Nil sorts before everything else.
// Values of unrelated types are ordered by their string form.
func Compare(a, b any) int {
	switch {
	case a == nil && b == nil:
		return 0
	case a == nil:
		return -1
	case b == nil:
		return 1
	}
	if fa, ok := toFloat(a); ok {
		if fb, ok := toFloat(b); ok {
			switch {
			case fa < fb:
				return -1
			case fa > fb:
				return 1
			}
			return 0
		}
	}
	if ta, ok := a.(time.Time); ok {
		if tb, ok := b.(time.Time); ok {
			return ta.Compare(tb)
		}
	}
	if ba, ok := a.(bool); ok {
		if bb, ok := b.(bool); ok {
			switch {
			case ba == bb:
				return 0
			case !ba:
				return -1
			}
			return 1
		}
	}
	return strings.Compare(stringOf(a), stringOf(b))
}

func stringOf(v any) string {
	switch t := v.(type) {
	case string:
		return t
	case []byte:
		return string(t)
	}
	return fmt.Sprint(v)
}
