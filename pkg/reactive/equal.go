package reactive

import (
	"reflect"
	"time"

	"github.com/mohae/deepcopy"

	"github.com/vango-dev/atomstore/internal/cells"
)

// defaultEquals provides type-appropriate equality checking.
// Uses == for basic types and reflect.DeepEqual for others.
func defaultEquals[T any](a, b T) bool {
	// Interface-typed cells may hold different dynamic types.
	if reflect.TypeOf(a) != reflect.TypeOf(b) {
		return false
	}

	switch av := any(a).(type) {
	case int:
		return av == any(b).(int)
	case int8:
		return av == any(b).(int8)
	case int16:
		return av == any(b).(int16)
	case int32:
		return av == any(b).(int32)
	case int64:
		return av == any(b).(int64)
	case uint:
		return av == any(b).(uint)
	case uint8:
		return av == any(b).(uint8)
	case uint16:
		return av == any(b).(uint16)
	case uint32:
		return av == any(b).(uint32)
	case uint64:
		return av == any(b).(uint64)
	case float32:
		return av == any(b).(float32)
	case float64:
		return av == any(b).(float64)
	case string:
		return av == any(b).(string)
	case bool:
		return av == any(b).(bool)
	default:
		return reflect.DeepEqual(a, b)
	}
}

// snapshot returns a copy of v that shares no memory with it. Types that
// implement Clone() T copy themselves. Maps, slices, arrays, pointers and
// structs with only exported fields are copied by reflection; a struct with
// unexported fields cannot be reached that way and must implement Clone.
func snapshot[T any](v T) T {
	if c, ok := any(v).(cells.Cloner[T]); ok {
		return c.Clone()
	}
	if !needsDeepCopy(reflect.TypeOf(v)) {
		return v
	}
	if c, ok := deepcopy.Copy(v).(T); ok {
		return c
	}
	return v
}

// needsDeepCopy reports whether a value of type t can alias other memory.
func needsDeepCopy(t reflect.Type) bool {
	if t == nil {
		return false
	}
	switch t.Kind() {
	case reflect.Map, reflect.Slice, reflect.Pointer, reflect.Interface:
		return true
	case reflect.Array:
		return needsDeepCopy(t.Elem())
	case reflect.Struct:
		if t == reflect.TypeOf(time.Time{}) {
			return false
		}
		for i := 0; i < t.NumField(); i++ {
			if !t.Field(i).IsExported() {
				return false
			}
		}
		for i := 0; i < t.NumField(); i++ {
			if needsDeepCopy(t.Field(i).Type) {
				return true
			}
		}
	}
	return false
}
