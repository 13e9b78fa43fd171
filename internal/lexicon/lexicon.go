// Package lexicon validates outgoing records against the embedded Cadence
// record schemas, so malformed plays are rejected locally instead of
// burning a network round trip on a guaranteed rejection.
package lexicon

import (
	"bytes"
	"embed"
	"encoding/json"
	"fmt"

	"github.com/santhosh-tekuri/jsonschema/v6"

	"github.com/cadence-fm/cli/internal/scrobble"
	"github.com/cadence-fm/cli/internal/status"
)

//go:embed schemas/play.json schemas/status.json
var schemaFS embed.FS

// Validator holds the compiled record schemas.
type Validator struct {
	play   *jsonschema.Schema
	status *jsonschema.Schema
}

// New compiles the embedded schemas. The schemas ship with the binary, so
// a compile failure is a build defect, not a user error.
func New() (*Validator, error) {
	compiler := jsonschema.NewCompiler()

	for _, name := range []string{"play.json", "status.json"} {
		raw, err := schemaFS.ReadFile("schemas/" + name)
		if err != nil {
			return nil, fmt.Errorf("failed to read embedded schema %s: %w", name, err)
		}
		doc, err := jsonschema.UnmarshalJSON(bytes.NewReader(raw))
		if err != nil {
			return nil, fmt.Errorf("failed to parse embedded schema %s: %w", name, err)
		}
		if err := compiler.AddResource(name, doc); err != nil {
			return nil, fmt.Errorf("failed to add schema %s: %w", name, err)
		}
	}

	play, err := compiler.Compile("play.json")
	if err != nil {
		return nil, fmt.Errorf("failed to compile play schema: %w", err)
	}
	statusSchema, err := compiler.Compile("status.json")
	if err != nil {
		return nil, fmt.Errorf("failed to compile status schema: %w", err)
	}

	return &Validator{play: play, status: statusSchema}, nil
}

// ValidatePlay checks a play record against the feed play schema.
func (v *Validator) ValidatePlay(play *scrobble.Play) error {
	return validate(v.play, play)
}

// ValidateStatus checks a status record against the actor status schema.
func (v *Validator) ValidateStatus(st *status.Status) error {
	return validate(v.status, st)
}

func validate(schema *jsonschema.Schema, record interface{}) error {
	data, err := json.Marshal(record)
	if err != nil {
		return fmt.Errorf("failed to encode record: %w", err)
	}
	instance, err := jsonschema.UnmarshalJSON(bytes.NewReader(data))
	if err != nil {
		return fmt.Errorf("failed to decode record: %w", err)
	}
	if err := schema.Validate(instance); err != nil {
		return fmt.Errorf("record failed validation: %w", err)
	}
	return nil
}
