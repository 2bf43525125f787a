// Package schema builds the JSON Schema sent to the extraction service.
// The schema is reflected from types.ResearchData, so every field the
// renderer reads is also a field the service is asked to fill.
package schema

import (
	"encoding/json"
	"fmt"
	"strings"
	"sync"

	invopop "github.com/invopop/jsonschema"
	"github.com/santhosh-tekuri/jsonschema/v5"

	"github.com/MalithGihan/research-extractor/pkg/types"
)

const resourceURL = "file:///research-data.schema.json"

var (
	once     sync.Once
	raw      json.RawMessage
	compiled *jsonschema.Schema
	loadErr  error
)

func load() {
	r := &invopop.Reflector{
		DoNotReference: true, // the service wants one self-contained object
		Anonymous:      true,
	}
	b, err := json.Marshal(r.Reflect(&types.ResearchData{}))
	if err != nil {
		loadErr = fmt.Errorf("marshaling schema: %w", err)
		return
	}
	raw = b

	c := jsonschema.NewCompiler()
	if err := c.AddResource(resourceURL, strings.NewReader(string(b))); err != nil {
		loadErr = fmt.Errorf("adding schema resource: %w", err)
		return
	}
	s, err := c.Compile(resourceURL)
	if err != nil {
		loadErr = fmt.Errorf("compiling schema: %w", err)
		return
	}
	compiled = s
}

// Compile generates and compiles the schema. main calls it once at startup
// so a broken schema stops the process before it serves traffic.
func Compile() error {
	once.Do(load)
	return loadErr
}

// Definition returns the generated schema document.
func Definition() (json.RawMessage, error) {
	once.Do(load)
	if loadErr != nil {
		return nil, loadErr
	}
	return raw, nil
}

// Validate checks any JSON-encodable value against the schema.
// The extraction path does not call it; the service owns conformance.
func Validate(v any) error {
	once.Do(load)
	if loadErr != nil {
		return loadErr
	}
	b, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("marshaling value: %w", err)
	}
	var doc any
	if err := json.Unmarshal(b, &doc); err != nil {
		return fmt.Errorf("decoding value: %w", err)
	}
	return compiled.Validate(doc)
}
