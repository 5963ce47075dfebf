package payload

import (
	"bytes"
	"embed"
	"encoding/json"
	"errors"
	"fmt"
	"sync"

	jsonschema "github.com/santhosh-tekuri/jsonschema/v5"

	"github.com/mind-engage/mindengage-loader/internal/content"
)

//go:embed schemas/*.json
var schemaFS embed.FS

// ErrSchemaViolation marks a payload the admin page would refuse.
var ErrSchemaViolation = errors.New("payload does not match the admin schema")

var (
	compileOnce sync.Once
	compiled    map[string]*jsonschema.Schema
	compileErr  error
)

func schemas() (map[string]*jsonschema.Schema, error) {
	compileOnce.Do(func() {
		compiled = map[string]*jsonschema.Schema{}
		for _, name := range []string{"mcq", "coding"} {
			raw, err := schemaFS.ReadFile("schemas/" + name + ".json")
			if err != nil {
				compileErr = err
				return
			}
			id := "inmemory://payload/" + name + ".json"
			c := jsonschema.NewCompiler()
			if err := c.AddResource(id, bytes.NewReader(raw)); err != nil {
				compileErr = fmt.Errorf("add schema %s: %w", name, err)
				return
			}
			s, err := c.Compile(id)
			if err != nil {
				compileErr = fmt.Errorf("compile schema %s: %w", name, err)
				return
			}
			compiled[name] = s
		}
	})
	return compiled, compileErr
}

// Check validates p against the schema the admin page expects for cat. The
// builder never calls it; readiness and schema conformance are separate.
func Check(cat content.Category, p Payload) error {
	all, err := schemas()
	if err != nil {
		return err
	}
	name := "coding"
	if cat == content.MCQ {
		name = "mcq"
	}
	b, err := json.Marshal(p)
	if err != nil {
		return fmt.Errorf("marshal payload: %w", err)
	}
	var doc any
	if err := json.Unmarshal(b, &doc); err != nil {
		return fmt.Errorf("decode payload: %w", err)
	}
	if err := all[name].Validate(doc); err != nil {
		return fmt.Errorf("%w: %v", ErrSchemaViolation, err)
	}
	return nil
}
