package dynamodel

import (
	"fmt"
	"io"

	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"gopkg.in/yaml.v3"
)

// Schema is a serializable description of a table model.
type Schema struct {
	Table      string            `yaml:"table,omitempty" json:"table,omitempty"`
	Type       string            `yaml:"type" json:"type"`
	Keys       []SchemaKey       `yaml:"keys,omitempty" json:"keys,omitempty"`
	Global     []SchemaIndex     `yaml:"globalIndexes,omitempty" json:"globalIndexes,omitempty"`
	Local      []SchemaIndex     `yaml:"localIndexes,omitempty" json:"localIndexes,omitempty"`
	Attributes []SchemaAttribute `yaml:"attributes" json:"attributes"`
	Versions   []string          `yaml:"versions,omitempty" json:"versions,omitempty"`
}

type SchemaKey struct {
	Attribute string                    `yaml:"attribute" json:"attribute"`
	Role      types.KeyType             `yaml:"role" json:"role"`
	Kind      types.ScalarAttributeType `yaml:"kind" json:"kind"`
}

type SchemaIndex struct {
	Name       string               `yaml:"name" json:"name"`
	Keys       []SchemaKey          `yaml:"keys" json:"keys"`
	Projection types.ProjectionType `yaml:"projection" json:"projection"`
	NonKey     []string             `yaml:"nonKeyAttributes,omitempty" json:"nonKeyAttributes,omitempty"`
}

type SchemaAttribute struct {
	Name string                    `yaml:"name" json:"name"`
	Go   string                    `yaml:"go" json:"go"`
	Kind types.ScalarAttributeType `yaml:"kind,omitempty" json:"kind,omitempty"`
}

// Schema describes the model. table may be empty.
func (m *TableModel[T]) Schema(table string) Schema {
	s := Schema{Table: table, Type: m.typ.String()}
	kind := func(name string) types.ScalarAttributeType {
		f, _ := m.Field(name)
		return f.Category()
	}
	keys := func(d indexDef) []SchemaKey {
		ks := []SchemaKey{{Attribute: d.hash, Role: types.KeyTypeHash, Kind: kind(d.hash)}}
		if d.rng != "" {
			ks = append(ks, SchemaKey{Attribute: d.rng, Role: types.KeyTypeRange, Kind: kind(d.rng)})
		}
		return ks
	}

	for _, k := range m.KeySchema() {
		s.Keys = append(s.Keys, SchemaKey{Attribute: *k.AttributeName, Role: k.KeyType, Kind: kind(*k.AttributeName)})
	}
	for _, d := range m.gsis {
		s.Global = append(s.Global, SchemaIndex{Name: d.name, Keys: keys(d), Projection: d.projection, NonKey: d.nonKey})
	}
	for _, d := range m.lsis {
		s.Local = append(s.Local, SchemaIndex{Name: d.name, Keys: keys(d), Projection: d.projection, NonKey: d.nonKey})
	}
	for _, f := range m.fields {
		s.Attributes = append(s.Attributes, SchemaAttribute{Name: f.name, Go: f.typ.String(), Kind: f.Category()})
	}
	for _, f := range m.Versions() {
		s.Versions = append(s.Versions, f.name)
	}
	return s
}

// WriteSchema writes the table's schema to w as YAML.
func (t *Table[T]) WriteSchema(w io.Writer) error {
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(t.Model.Schema(t.Name)); err != nil {
		return fmt.Errorf("failed to encode schema: %w", err)
	}
	return enc.Close()
}
