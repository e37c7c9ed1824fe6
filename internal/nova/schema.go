package nova

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"sync"

	"github.com/santhosh-tekuri/jsonschema/v5"

	"github.com/joseph-ayodele/caseflow/internal/common"
)

// TaskUpdateSchema returns the JSON schema of the Task/Update body (without common).
func TaskUpdateSchema() map[string]any {
	str := map[string]any{"type": "string"}
	id := map[string]any{"type": "string", "minLength": 1}
	return map[string]any{
		"type":                 "object",
		"additionalProperties": false,
		"required":             []string{"uuid", "caseUuid", "caseworker"},
		"properties": map[string]any{
			"uuid":        id,
			"caseUuid":    id,
			"title":       str,
			"description": str,
			"statusCode":  str,
			"taskType":    str,
			"deadline":    str,
			"startDate":   str,
			"closeDate":   str,
			"kle":         map[string]any{},
			"taskRepeat":  map[string]any{},
			"caseworker": map[string]any{
				"type":                 "object",
				"additionalProperties": false,
				"required":             []string{"kspIdentity"},
				"properties": map[string]any{
					"kspIdentity": map[string]any{"type": "object", "minProperties": 1},
				},
			},
		},
	}
}

var (
	taskUpdateOnce   sync.Once
	taskUpdateSchema *jsonschema.Schema
	taskUpdateErr    error
)

func compiledTaskUpdateSchema() (*jsonschema.Schema, error) {
	taskUpdateOnce.Do(func() {
		b, err := json.Marshal(TaskUpdateSchema())
		if err != nil {
			taskUpdateErr = fmt.Errorf("marshal schema: %w", err)
			return
		}
		compiler := jsonschema.NewCompiler()
		if err := compiler.AddResource("task_update.json", bytes.NewReader(b)); err != nil {
			taskUpdateErr = fmt.Errorf("add schema: %w", err)
			return
		}
		taskUpdateSchema, taskUpdateErr = compiler.Compile("task_update.json")
	})
	return taskUpdateSchema, taskUpdateErr
}

// ValidateTaskUpdate checks an update payload before it is sent.
func ValidateTaskUpdate(update map[string]any) error {
	schema, err := compiledTaskUpdateSchema()
	if err != nil {
		return fmt.Errorf("compile schema: %w", err)
	}
	b, err := json.Marshal(update)
	if err != nil {
		return fmt.Errorf("marshal update: %w", err)
	}
	var v any
	if err := json.Unmarshal(b, &v); err != nil {
		return fmt.Errorf("unmarshal update: %w", err)
	}
	if err := schema.Validate(v); err != nil {
		return errors.Join(common.ErrValidation, fmt.Errorf("update does not match schema: %w", err))
	}
	return nil
}
