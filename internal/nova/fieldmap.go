package nova

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/joseph-ayodele/caseflow/internal/common"
)

// FieldRule copies one Task/GetList attribute into the Task/Update payload.
// Transform, when set, rewrites the value on the way.
type FieldRule struct {
	From      string
	To        string
	Transform func(json.RawMessage) (json.RawMessage, error)
}

// TaskUpdateFields lists the attributes Task/Update accepts and where they come
// from. Absent and null attributes are left out of the payload.
var TaskUpdateFields = []FieldRule{
	{From: "taskUuid", To: "uuid"},
	{From: "caseUuid", To: "caseUuid"},
	{From: "taskTitle", To: "title"},
	{From: "taskDescription", To: "description"},
	{From: "taskStatusCode", To: "statusCode"},
	{From: "taskType", To: "taskType", Transform: FlattenName},
	{From: "deadline", To: "deadline"},
	{From: "startDate", To: "startDate"},
	{From: "closeDate", To: "closeDate"},
	{From: "kle", To: "kle"},
	{From: "taskRepeat", To: "taskRepeat"},
}

// nameKeys are tried in order when a nested value has to become a plain string.
var nameKeys = []string{"name", "taskTypeName", "typeName", "code"}

// FlattenName turns {"name": "Notat", ...} into "Notat". Plain strings pass through.
func FlattenName(raw json.RawMessage) (json.RawMessage, error) {
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return raw, nil
	}
	var obj map[string]json.RawMessage
	if err := json.Unmarshal(raw, &obj); err != nil {
		return nil, fmt.Errorf("flatten %s: %w", raw, err)
	}
	for _, k := range nameKeys {
		v, ok := obj[k]
		if !ok {
			continue
		}
		if err := json.Unmarshal(v, &s); err == nil && s != "" {
			return json.Marshal(s)
		}
	}
	return nil, fmt.Errorf("flatten %s: no name attribute: %w", raw, common.ErrInvalidInput)
}

// BuildTaskUpdate maps a listed task onto a validated Task/Update payload owned by ksp.
func BuildTaskUpdate(task Task, ksp KspIdentity) (map[string]any, error) {
	if ksp.RacfID == "" && ksp.NovaUserID == "" {
		return nil, fmt.Errorf("task %s: new caseworker has no kspIdentity: %w", task.UUID, common.ErrInvalidInput)
	}

	fields := task.Fields
	if fields == nil {
		b, err := json.Marshal(task)
		if err != nil {
			return nil, err
		}
		if err := json.Unmarshal(b, &fields); err != nil {
			return nil, err
		}
	}

	out := make(map[string]any, len(TaskUpdateFields)+1)
	for _, rule := range TaskUpdateFields {
		raw, ok := fields[rule.From]
		if !ok || isNull(raw) {
			continue
		}
		if rule.Transform != nil {
			var err error
			if raw, err = rule.Transform(raw); err != nil {
				return nil, fmt.Errorf("task %s field %s: %w", task.UUID, rule.From, err)
			}
		}
		out[rule.To] = raw
	}
	out["caseworker"] = map[string]any{"kspIdentity": ksp}

	if err := ValidateTaskUpdate(out); err != nil {
		return nil, fmt.Errorf("task %s: %w", task.UUID, err)
	}
	return out, nil
}

func isNull(raw json.RawMessage) bool {
	t := bytes.TrimSpace(raw)
	return len(t) == 0 || bytes.Equal(t, []byte("null"))
}
