package template

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/santhosh-tekuri/jsonschema/v6"
	"gopkg.in/yaml.v3"
)

// Format is the serialization of a template document.
type Format string

const (
	FormatJSON Format = "json"
	FormatYAML Format = "yaml"
)

// FormatFromPath infers the document format from a file extension.
// Anything other than .json is treated as YAML.
func FormatFromPath(path string) Format {
	if strings.EqualFold(filepath.Ext(path), ".json") {
		return FormatJSON
	}
	return FormatYAML
}

// DocumentError reports a template document that could not be decoded or
// does not match DocumentSchema.
type DocumentError struct {
	Source string
	Err    error
}

func (e *DocumentError) Error() string {
	if e.Source == "" {
		return fmt.Sprintf("invalid template document: %v", e.Err)
	}
	return fmt.Sprintf("invalid template document %s: %v", e.Source, e.Err)
}

func (e *DocumentError) Unwrap() error {
	return e.Err
}

var compiledSchema = sync.OnceValues(func() (*jsonschema.Schema, error) {
	// The compiler wants plain JSON values, not Go-typed maps.
	raw, err := json.Marshal(DocumentSchema)
	if err != nil {
		return nil, fmt.Errorf("marshal schema: %w", err)
	}
	doc, err := jsonschema.UnmarshalJSON(bytes.NewReader(raw))
	if err != nil {
		return nil, fmt.Errorf("parse schema: %w", err)
	}
	c := jsonschema.NewCompiler()
	const url = "schema://problem-template.json"
	if err := c.AddResource(url, doc); err != nil {
		return nil, fmt.Errorf("add resource: %w", err)
	}
	return c.Compile(url)
})

// Decode parses a template document and checks it against DocumentSchema.
// A document without isActive decodes as active. Semantic validation is
// left to ValidateTemplate.
func Decode(data []byte, format Format) (*ProblemTemplate, error) {
	raw := data
	if format == FormatYAML {
		var doc any
		if err := yaml.Unmarshal(data, &doc); err != nil {
			return nil, &DocumentError{Err: fmt.Errorf("parse yaml: %w", err)}
		}
		if doc == nil {
			return nil, &DocumentError{Err: fmt.Errorf("empty document")}
		}
		b, err := json.Marshal(doc)
		if err != nil {
			return nil, &DocumentError{Err: fmt.Errorf("convert yaml: %w", err)}
		}
		raw = b
	}

	parsed, err := jsonschema.UnmarshalJSON(bytes.NewReader(raw))
	if err != nil {
		return nil, &DocumentError{Err: fmt.Errorf("parse json: %w", err)}
	}
	sch, err := compiledSchema()
	if err != nil {
		return nil, fmt.Errorf("compile template schema: %w", err)
	}
	if err := sch.Validate(parsed); err != nil {
		return nil, &DocumentError{Err: fmt.Errorf("schema validation failed: %w", err)}
	}

	t := &ProblemTemplate{IsActive: true}
	if err := json.Unmarshal(raw, t); err != nil {
		return nil, &DocumentError{Err: fmt.Errorf("decode: %w", err)}
	}
	return t, nil
}

// DecodeFile reads and decodes the template at path.
func DecodeFile(path string) (*ProblemTemplate, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	t, err := Decode(data, FormatFromPath(path))
	if de, ok := err.(*DocumentError); ok {
		de.Source = path
	}
	return t, err
}

// Encode serializes t in the given format.
func Encode(t *ProblemTemplate, format Format) ([]byte, error) {
	raw, err := json.MarshalIndent(t, "", "  ")
	if err != nil {
		return nil, err
	}
	if format == FormatJSON {
		return raw, nil
	}
	var doc any
	if err := json.Unmarshal(raw, &doc); err != nil {
		return nil, err
	}
	return yaml.Marshal(doc)
}
