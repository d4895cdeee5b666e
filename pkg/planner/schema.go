package planner

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/invopop/jsonschema"
	validator "github.com/santhosh-tekuri/jsonschema/v5"

	"github.com/polisai/educator-agent/pkg/domain"
)

// SchemaName is the name sent with structured-output requests.
const SchemaName = "curriculum_plan"

var (
	schemaOnce     sync.Once
	schemaDocument []byte
	compiledSchema *validator.Schema
	schemaErr      error
)

func loadSchema() error {
	schemaOnce.Do(func() {
		reflector := &jsonschema.Reflector{
			Anonymous:                 true,
			DoNotReference:            true,
			ExpandedStruct:            true,
			AllowAdditionalProperties: false,
		}
		doc, err := json.MarshalIndent(reflector.Reflect(&domain.CurriculumPlan{}), "", "  ")
		if err != nil {
			schemaErr = fmt.Errorf("planner: marshal schema: %w", err)
			return
		}
		compiled, err := validator.CompileString(SchemaName+".json", string(doc))
		if err != nil {
			schemaErr = fmt.Errorf("planner: compile schema: %w", err)
			return
		}
		schemaDocument = doc
		compiledSchema = compiled
	})
	return schemaErr
}

// Schema returns the curriculum plan JSON schema document.
func Schema() ([]byte, error) {
	if err := loadSchema(); err != nil {
		return nil, err
	}
	return append([]byte(nil), schemaDocument...), nil
}

// SchemaMap returns the schema as generic JSON data, as sent to the LLM.
func SchemaMap() (map[string]any, error) {
	doc, err := Schema()
	if err != nil {
		return nil, err
	}
	var out map[string]any
	if err := json.Unmarshal(doc, &out); err != nil {
		return nil, fmt.Errorf("planner: decode schema: %w", err)
	}
	// strict structured output rejects the meta-schema keyword
	delete(out, "$schema")
	return out, nil
}

// Validate checks a raw JSON document against the curriculum schema.
// Failures wrap domain.ErrInvalidPlan.
func Validate(raw []byte) error {
	if err := loadSchema(); err != nil {
		return err
	}

	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	var doc any
	if err := dec.Decode(&doc); err != nil {
		return fmt.Errorf("%w: invalid JSON: %v", domain.ErrInvalidPlan, err)
	}

	if err := compiledSchema.Validate(doc); err != nil {
		var ve *validator.ValidationError
		if errors.As(err, &ve) {
			return fmt.Errorf("%w: %s", domain.ErrInvalidPlan, describe(ve))
		}
		return fmt.Errorf("%w: %v", domain.ErrInvalidPlan, err)
	}
	return nil
}

// describe reports the first leaf failure, e.g. "/content_outline/0: missing properties: 'description'".
func describe(ve *validator.ValidationError) string {
	leaf := ve
	for len(leaf.Causes) > 0 {
		leaf = leaf.Causes[0]
	}
	location := leaf.InstanceLocation
	if location == "" {
		location = "/"
	}
	return location + ": " + strings.TrimSpace(leaf.Message)
}
