// Package schemavalidation validates decoded NDJSON session records
// against the gse session record schema, a production package backed by
// an embedded schema asset instead of a fixture loaded from disk.
package schemavalidation

import (
	"bytes"
	_ "embed"
	"encoding/json"
	"fmt"

	"github.com/santhosh-tekuri/jsonschema/v5"
)

//go:embed session_record.schema.json
var sessionRecordSchemaJSON []byte

var sessionRecordSchema *jsonschema.Schema

func init() {
	compiler := jsonschema.NewCompiler()
	if err := compiler.AddResource("session_record.schema.json", bytes.NewReader(sessionRecordSchemaJSON)); err != nil {
		panic("schemavalidation: bad embedded schema: " + err.Error())
	}
	schema, err := compiler.Compile("session_record.schema.json")
	if err != nil {
		panic("schemavalidation: compile embedded schema: " + err.Error())
	}
	sessionRecordSchema = schema
}

// ValidateSessionRecord checks one raw NDJSON line against the session
// record schema before it's unmarshalled into logging.SessionRecord.
func ValidateSessionRecord(line []byte) error {
	var instance any
	if err := json.Unmarshal(line, &instance); err != nil {
		return fmt.Errorf("schemavalidation: unmarshal: %w", err)
	}
	if err := sessionRecordSchema.Validate(instance); err != nil {
		return fmt.Errorf("schemavalidation: %w", err)
	}
	return nil
}
