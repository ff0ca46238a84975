package prompts

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/santhosh-tekuri/jsonschema/v5"
)

// Known prompt types.
const (
	TypeTZ         = "tz"
	TypePassport   = "passport"
	TypeComparison = "comparison"
)

var (
	ErrUnknownType = errors.New("unknown file_type")
	ErrInvalid     = errors.New("invalid prompt")
)

// Prompt is an instruction and the JSON schema its answer must follow.
type Prompt struct {
	Type   string          `json:"type,omitempty"`
	Prompt string          `json:"prompt"`
	Schema json.RawMessage `json:"schema"`
}

// Registry returns prompts by file type.
type Registry interface {
	Get(ctx context.Context, fileType string) (Prompt, error)
}

// NormalizeType lowercases and trims a file type.
func NormalizeType(fileType string) string {
	return strings.ToLower(strings.TrimSpace(fileType))
}

// CompileSchema compiles the prompt's schema for validation.
func (p Prompt) CompileSchema() (*jsonschema.Schema, error) {
	if len(bytes.TrimSpace(p.Schema)) == 0 {
		return nil, fmt.Errorf("%w: schema is empty", ErrInvalid)
	}
	compiler := jsonschema.NewCompiler()
	if err := compiler.AddResource("schema.json", bytes.NewReader(p.Schema)); err != nil {
		return nil, fmt.Errorf("add schema: %w", err)
	}
	schema, err := compiler.Compile("schema.json")
	if err != nil {
		return nil, fmt.Errorf("compile schema: %w", err)
	}
	return schema, nil
}

// Validate checks a decoded JSON document against the prompt schema.
func (p Prompt) Validate(doc any) error {
	schema, err := p.CompileSchema()
	if err != nil {
		return err
	}
	if err := schema.Validate(doc); err != nil {
		return fmt.Errorf("json does not match schema: %w", err)
	}
	return nil
}
