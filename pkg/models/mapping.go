package models

import (
	"fmt"
	"sort"

	jsoniter "github.com/json-iterator/go"
	"go.mongodb.org/mongo-driver/bson"
)

var jsonStd = jsoniter.ConfigCompatibleWithStandardLibrary

// Row is one record produced by a source query, keyed by column name.
// Aggregated columns may hold JSON text, raw bytes or already decoded slices.
type Row map[string]interface{}

// Document is the destination representation of one row. ID doubles as the
// destination primary key; Source is the typed body written to the index.
type Document struct {
	ID     string
	Source interface{}
}

// Encode returns the BSON bytes written for the document.
func (d Document) Encode() ([]byte, error) {
	return bson.Marshal(d.Source)
}

// Fields returns the document body as generic JSON values, the form the
// schema is checked against.
func (d Document) Fields() (map[string]interface{}, error) {
	raw, err := jsonStd.Marshal(d.Source)
	if err != nil {
		return nil, err
	}
	var out map[string]interface{}
	if err := jsonStd.Unmarshal(raw, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// BSONType names the subset of $jsonSchema bsonType values in use.
type BSONType string

const (
	TypeString BSONType = "string"
	TypeDouble BSONType = "double"
	TypeArray  BSONType = "array"
	TypeObject BSONType = "object"
)

// Property describes one field of a collection schema.
type Property struct {
	Type       BSONType
	Enum       []string
	Minimum    *float64
	Maximum    *float64
	Items      *Property
	Required   []string
	Properties map[string]Property
}

// Index is a secondary index created together with the collection.
type Index struct {
	Name   string
	Fields []string
	Text   bool
}

// CollectionSchema is the static schema of one destination collection.
type CollectionSchema struct {
	Required   []string
	Properties map[string]Property
	Indexes    []Index
}

// JSONSchema renders the schema as a MongoDB $jsonSchema validator body.
func (s CollectionSchema) JSONSchema() bson.M {
	return objectSchema(s.Required, s.Properties)
}

func objectSchema(required []string, props map[string]Property) bson.M {
	out := bson.M{"bsonType": string(TypeObject)}
	if len(required) > 0 {
		out["required"] = append([]string(nil), required...)
	}
	if len(props) > 0 {
		rendered := bson.M{}
		for name, p := range props {
			rendered[name] = p.render()
		}
		out["properties"] = rendered
	}
	return out
}

func (p Property) render() bson.M {
	if p.Type == TypeObject {
		return objectSchema(p.Required, p.Properties)
	}
	out := bson.M{"bsonType": string(p.Type)}
	if len(p.Enum) > 0 {
		out["enum"] = append([]string(nil), p.Enum...)
	}
	if p.Minimum != nil {
		out["minimum"] = *p.Minimum
	}
	if p.Maximum != nil {
		out["maximum"] = *p.Maximum
	}
	if p.Items != nil {
		out["items"] = p.Items.render()
	}
	return out
}

// Validate checks a decoded document against the schema. The first
// violation is returned as a *ValidationError.
func (s CollectionSchema) Validate(entity string, doc Document) error {
	fields, err := doc.Fields()
	if err != nil {
		return &ValidationError{Entity: entity, ID: doc.ID, Reason: fmt.Sprintf("encode: %v", err)}
	}
	if path, reason := checkObject("", fields, s.Required, s.Properties); reason != "" {
		return &ValidationError{Entity: entity, ID: doc.ID, Field: path, Reason: reason}
	}
	return nil
}

func checkObject(prefix string, obj map[string]interface{}, required []string, props map[string]Property) (string, string) {
	for _, name := range required {
		if _, ok := obj[name]; !ok {
			return join(prefix, name), "required field missing"
		}
	}
	names := make([]string, 0, len(props))
	for name := range props {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		v, ok := obj[name]
		if !ok {
			continue
		}
		if path, reason := checkValue(join(prefix, name), v, props[name]); reason != "" {
			return path, reason
		}
	}
	return "", ""
}

func checkValue(path string, v interface{}, p Property) (string, string) {
	switch p.Type {
	case TypeString:
		s, ok := v.(string)
		if !ok {
			return path, fmt.Sprintf("expected string, got %T", v)
		}
		if len(p.Enum) > 0 && !contains(p.Enum, s) {
			return path, fmt.Sprintf("value %q not in %v", s, p.Enum)
		}
	case TypeDouble:
		f, ok := v.(float64)
		if !ok {
			return path, fmt.Sprintf("expected number, got %T", v)
		}
		if p.Minimum != nil && f < *p.Minimum {
			return path, fmt.Sprintf("value %v below minimum %v", f, *p.Minimum)
		}
		if p.Maximum != nil && f > *p.Maximum {
			return path, fmt.Sprintf("value %v above maximum %v", f, *p.Maximum)
		}
	case TypeArray:
		items, ok := v.([]interface{})
		if !ok {
			return path, fmt.Sprintf("expected array, got %T", v)
		}
		if p.Items == nil {
			return "", ""
		}
		for i, item := range items {
			if ip, reason := checkValue(fmt.Sprintf("%s[%d]", path, i), item, *p.Items); reason != "" {
				return ip, reason
			}
		}
	case TypeObject:
		obj, ok := v.(map[string]interface{})
		if !ok {
			return path, fmt.Sprintf("expected object, got %T", v)
		}
		return checkObject(path, obj, p.Required, p.Properties)
	}
	return "", ""
}

func join(prefix, name string) string {
	if prefix == "" {
		return name
	}
	return prefix + "." + name
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}

// Float returns a pointer for Property bounds.
func Float(f float64) *float64 { return &f }
