package features

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/goccy/go-json"
	"gopkg.in/yaml.v3"
)

// SchemaFile is the on-disk form of a training column schema, written by
// the training job next to the model artifact.
type SchemaFile struct {
	Version   string    `json:"version" yaml:"version"`
	TrainedAt time.Time `json:"trained_at,omitempty" yaml:"trained_at,omitempty"`
	Target    string    `json:"target,omitempty" yaml:"target,omitempty"`
	Columns   []string  `json:"columns" yaml:"columns"`
}

// Schema is the ordered set of columns a model was fit against. It is
// immutable once built; accessors return copies.
type Schema struct {
	version   string
	trainedAt time.Time
	target    string
	columns   []string
	index     map[string]int
}

// NewSchema validates columns and builds an immutable schema.
func NewSchema(version string, columns []string) (*Schema, error) {
	return newSchema(SchemaFile{Version: version, Columns: columns})
}

func newSchema(sf SchemaFile) (*Schema, error) {
	if len(sf.Columns) == 0 {
		return nil, SchemaUnavailableError("schema has no columns")
	}

	index := make(map[string]int, len(sf.Columns))
	for i, col := range sf.Columns {
		if col == "" {
			return nil, fmt.Errorf("schema column %d is empty", i)
		}
		if prev, dup := index[col]; dup {
			return nil, fmt.Errorf("duplicate schema column %q at %d and %d", col, prev, i)
		}
		index[col] = i
	}

	cols := make([]string, len(sf.Columns))
	copy(cols, sf.Columns)

	return &Schema{
		version:   sf.Version,
		trainedAt: sf.TrainedAt,
		target:    sf.Target,
		columns:   cols,
		index:     index,
	}, nil
}

// ParseSchema decodes a schema artifact. format is "json" or "yaml".
func ParseSchema(data []byte, format string) (*Schema, error) {
	var sf SchemaFile
	switch format {
	case "yaml", "yml":
		if err := yaml.Unmarshal(data, &sf); err != nil {
			return nil, fmt.Errorf("parse schema yaml: %w", err)
		}
	case "json", "":
		if err := json.Unmarshal(data, &sf); err != nil {
			return nil, fmt.Errorf("parse schema json: %w", err)
		}
	default:
		return nil, fmt.Errorf("unsupported schema format %q", format)
	}
	return newSchema(sf)
}

// LoadSchema reads a schema artifact, picking the format from the file
// extension.
func LoadSchema(path string) (*Schema, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read schema %s: %w", path, err)
	}
	format := strings.TrimPrefix(strings.ToLower(filepath.Ext(path)), ".")
	return ParseSchema(data, format)
}

func (s *Schema) Version() string      { return s.version }
func (s *Schema) TrainedAt() time.Time { return s.trainedAt }
func (s *Schema) Target() string       { return s.target }

// Len returns the number of columns; zero for a nil schema.
func (s *Schema) Len() int {
	if s == nil {
		return 0
	}
	return len(s.columns)
}

// Columns returns a copy of the ordered column names.
func (s *Schema) Columns() []string {
	if s == nil {
		return nil
	}
	out := make([]string, len(s.columns))
	copy(out, s.columns)
	return out
}

// Has reports whether col is a training column.
func (s *Schema) Has(col string) bool {
	if s == nil {
		return false
	}
	_, ok := s.index[col]
	return ok
}

// File returns the serializable form of the schema.
func (s *Schema) File() SchemaFile {
	return SchemaFile{
		Version:   s.version,
		TrainedAt: s.trainedAt,
		Target:    s.target,
		Columns:   s.Columns(),
	}
}

// FromFile builds a schema from its serialized form.
func FromFile(sf SchemaFile) (*Schema, error) {
	return newSchema(sf)
}
