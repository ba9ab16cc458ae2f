package openapi

import (
	"reflect"
	"strings"
	"time"

	"github.com/getkin/kin-openapi/openapi3"
)

// TypeMapping is an OpenAPI type/format pair.
type TypeMapping struct {
	Type   string // OpenAPI type: string, integer, number, boolean, object, array
	Format string // OpenAPI format: int32, int64, float, double, date-time, etc.
}

var timeType = reflect.TypeOf(time.Time{})

// goKindToOpenAPI maps scalar Go kinds to OpenAPI types.
var goKindToOpenAPI = map[reflect.Kind]TypeMapping{
	reflect.Bool:    {"boolean", ""},
	reflect.Int:     {"integer", "int64"},
	reflect.Int8:    {"integer", "int32"},
	reflect.Int16:   {"integer", "int32"},
	reflect.Int32:   {"integer", "int32"},
	reflect.Int64:   {"integer", "int64"},
	reflect.Uint:    {"integer", "int64"},
	reflect.Uint8:   {"integer", "int32"},
	reflect.Uint16:  {"integer", "int32"},
	reflect.Uint32:  {"integer", "int64"},
	reflect.Uint64:  {"integer", "int64"},
	reflect.Float32: {"number", "float"},
	reflect.Float64: {"number", "double"},
	reflect.String:  {"string", ""},
}

// MapGoType converts a Go type to an OpenAPI type mapping. Pointers map to
// their element type; unknown kinds fall back to object.
func MapGoType(t reflect.Type) TypeMapping {
	for t.Kind() == reflect.Ptr {
		t = t.Elem()
	}
	if t == timeType {
		return TypeMapping{"string", "date-time"}
	}
	if m, ok := goKindToOpenAPI[t.Kind()]; ok {
		return m
	}
	switch t.Kind() {
	case reflect.Slice, reflect.Array:
		return TypeMapping{"array", ""}
	}
	return TypeMapping{"object", ""}
}

// SchemaFor builds an object schema from the exported, JSON-visible fields
// of a struct value. Fields tagged json:"-" are skipped, pointer fields are
// nullable, and nested structs are expanded in place.
func SchemaFor(v interface{}) *openapi3.Schema {
	return schemaForType(reflect.TypeOf(v))
}

func schemaForType(t reflect.Type) *openapi3.Schema {
	nullable := false
	for t.Kind() == reflect.Ptr {
		t = t.Elem()
		nullable = true
	}

	m := MapGoType(t)
	s := &openapi3.Schema{Type: &openapi3.Types{m.Type}, Format: m.Format, Nullable: nullable}

	switch {
	case t == timeType:
	case t.Kind() == reflect.Struct:
		s.Properties = openapi3.Schemas{}
		for i := 0; i < t.NumField(); i++ {
			f := t.Field(i)
			if !f.IsExported() {
				continue
			}
			name := jsonName(f)
			if name == "" {
				continue
			}
			s.Properties[name] = &openapi3.SchemaRef{Value: schemaForType(f.Type)}
		}
	case m.Type == "array":
		s.Items = &openapi3.SchemaRef{Value: schemaForType(t.Elem())}
	}
	return s
}

func jsonName(f reflect.StructField) string {
	tag := f.Tag.Get("json")
	if tag == "-" {
		return ""
	}
	name, _, _ := strings.Cut(tag, ",")
	if name == "" {
		return f.Name
	}
	return name
}
