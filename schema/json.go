package schema

import (
	"fmt"
	"os"

	jsoniter "github.com/json-iterator/go"
)

// json mirrors encoding/json but rejects unknown keys so typos in entity
// files fail at load time.
var json = jsoniter.Config{
	EscapeHTML:             true,
	SortMapKeys:            true,
	ValidateJsonRawMessage: true,
	DisallowUnknownFields:  true,
}.Froze()

// entityFile is the on-disk form of an Entity:
//
//	{
//	  "name": "company",
//	  "fields": [{"name": "title", "type": "text", "kind": "substring"}],
//	  "by_entity": ["owner"],
//	  "by_many": ["tag"]
//	}
type entityFile struct {
	Name     string   `json:"name"`
	Fields   []Field  `json:"fields"`
	ByEntity []string `json:"by_entity,omitempty"`
	ByMany   []string `json:"by_many,omitempty"`
}

// ParseEntity decodes and validates a JSON entity description.
func ParseEntity(data []byte) (*Entity, error) {
	var f entityFile
	if err := json.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("%w: decode: %v", ErrInvalidConfig, err)
	}
	return NewEntity(f.Name, f.Fields, WithByEntity(f.ByEntity...), WithByMany(f.ByMany...))
}

// LoadEntity reads and parses an entity description file.
func LoadEntity(path string) (*Entity, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read entity file: %w", err)
	}
	e, err := ParseEntity(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return e, nil
}

// MarshalJSON encodes e in the form accepted by ParseEntity.
func (e *Entity) MarshalJSON() ([]byte, error) {
	return json.Marshal(entityFile{
		Name:     e.name,
		Fields:   e.fields,
		ByEntity: e.byEntity,
		ByMany:   e.byMany,
	})
}
