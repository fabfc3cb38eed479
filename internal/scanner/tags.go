package scanner

import (
	"reflect"

	"github.com/aws/aws-sdk-go-v2/aws"
)

// NormalizeTags converts any AWS tag representation into a flat map.
// Accepts slices of Key/Value structs (or pointers to them), string maps with
// string or *string values, and nil. The result is never nil.
func NormalizeTags(tags any) map[string]string {
	result := make(map[string]string)
	if tags == nil {
		return result
	}

	v := reflect.ValueOf(tags)
	if v.Kind() == reflect.Ptr {
		if v.IsNil() {
			return result
		}
		v = v.Elem()
	}

	switch v.Kind() {
	case reflect.Slice, reflect.Array:
		for i := 0; i < v.Len(); i++ {
			key, value := tagKeyValue(v.Index(i))
			if key != "" {
				result[key] = value
			}
		}

	case reflect.Map:
		iter := v.MapRange()
		for iter.Next() {
			key := stringValue(iter.Key())
			if key != "" {
				result[key] = stringValue(iter.Value())
			}
		}
	}

	return result
}

// tagKeyValue extracts Key and Value fields from an AWS tag struct.
func tagKeyValue(v reflect.Value) (string, string) {
	for v.Kind() == reflect.Ptr || v.Kind() == reflect.Interface {
		if v.IsNil() {
			return "", ""
		}
		v = v.Elem()
	}
	if v.Kind() != reflect.Struct {
		return "", ""
	}

	var key, value string
	if f := v.FieldByName("Key"); f.IsValid() {
		key = stringValue(f)
	}
	if f := v.FieldByName("Value"); f.IsValid() {
		value = stringValue(f)
	}
	return key, value
}

// stringValue handles string, *string and interface-wrapped strings.
func stringValue(v reflect.Value) string {
	if !v.IsValid() {
		return ""
	}
	if v.CanInterface() {
		switch s := v.Interface().(type) {
		case string:
			return s
		case *string:
			return aws.ToString(s)
		}
	}
	for v.Kind() == reflect.Ptr || v.Kind() == reflect.Interface {
		if v.IsNil() {
			return ""
		}
		v = v.Elem()
	}
	if v.Kind() == reflect.String {
		return v.String()
	}
	return ""
}

// nameTag returns the Name tag or fallback.
func nameTag(tags map[string]string, fallback string) string {
	if name := tags["Name"]; name != "" {
		return name
	}
	return fallback
}
