package nova

import (
	"encoding/json"
	"strings"
)

// KspIdentity is the person identity of a caseworker. It is forwarded unchanged
// into every mutation that sets an owner.
type KspIdentity struct {
	NovaUserID string `json:"novaUserId,omitempty"`
	RacfID     string `json:"racfId,omitempty"`
	FullName   string `json:"fullName,omitempty"`
}

type FkOrgIdentity struct {
	FkUUID   string `json:"fkUuid,omitempty"`
	Type     string `json:"type,omitempty"`
	FullName string `json:"fullName,omitempty"`
}

type LosIdentity struct {
	NovaUnitID           string          `json:"novaUnitId,omitempty"`
	AdministrativeUnitID json.RawMessage `json:"administrativeUnitId,omitempty"`
	FullName             string          `json:"fullName,omitempty"`
	UserKey              string          `json:"userKey,omitempty"`
}

// Caseworker is the owner element found on cases and tasks.
type Caseworker struct {
	KspIdentity      *KspIdentity   `json:"kspIdentity,omitempty"`
	FkOrgIdentity    *FkOrgIdentity `json:"fkOrgIdentity,omitempty"`
	LosIdentity      *LosIdentity   `json:"losIdentity,omitempty"`
	CaseworkerCtrlBy string         `json:"caseworkerCtrlBy,omitempty"`
}

// RacfID returns the owner id of the caseworker, or "".
func (c *Caseworker) RacfID() string {
	if c == nil || c.KspIdentity == nil {
		return ""
	}
	return c.KspIdentity.RacfID
}

// FullName returns the display name of the caseworker, or "".
func (c *Caseworker) FullName() string {
	if c == nil || c.KspIdentity == nil {
		return ""
	}
	return c.KspIdentity.FullName
}

// MatchesRacfID compares owner ids case-insensitively.
func (c *Caseworker) MatchesRacfID(id string) bool {
	own := c.RacfID()
	return own != "" && strings.EqualFold(own, id)
}

type Case struct {
	Common struct {
		UUID string `json:"uuid"`
	} `json:"common"`
	CaseAttributes struct {
		UserFriendlyCaseNumber string `json:"userFriendlyCaseNumber"`
	} `json:"caseAttributes"`
	Caseworker *Caseworker `json:"caseworker,omitempty"`
}

func (c *Case) UUID() string       { return c.Common.UUID }
func (c *Case) CaseNumber() string { return c.CaseAttributes.UserFriendlyCaseNumber }

type PagingInformation struct {
	NumberOfRows int  `json:"numberOfRows"`
	HasMoreRows  bool `json:"hasMoreRows"`
}

// CaseList is the Case/GetList response. Raw holds the undecoded body.
type CaseList struct {
	Cases             []Case            `json:"cases"`
	PagingInformation PagingInformation `json:"pagingInformation"`
	Raw               json.RawMessage   `json:"-"`
}

// Task is one entry of a Task/GetList response. Fields keeps every attribute as
// returned so updates can carry the ones the service expects back.
type Task struct {
	UUID       string      `json:"taskUuid"`
	CaseUUID   string      `json:"caseUuid"`
	Title      string      `json:"taskTitle"`
	StatusCode string      `json:"taskStatusCode"`
	Caseworker *Caseworker `json:"caseworker,omitempty"`

	Fields map[string]json.RawMessage `json:"-"`
}

// UnmarshalJSON keeps every attribute in Fields and reads the typed ones
// leniently: an attribute of an unexpected type leaves its typed field empty
// instead of failing the whole task list.
func (t *Task) UnmarshalJSON(b []byte) error {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(b, &fields); err != nil {
		return err
	}
	*t = Task{
		UUID:       stringAttr(fields, "taskUuid"),
		CaseUUID:   stringAttr(fields, "caseUuid"),
		Title:      stringAttr(fields, "taskTitle"),
		StatusCode: stringAttr(fields, "taskStatusCode"),
		Fields:     fields,
	}
	if raw, ok := fields["caseworker"]; ok && !isNull(raw) {
		var cw Caseworker
		if err := json.Unmarshal(raw, &cw); err == nil {
			t.Caseworker = &cw
		}
	}
	return nil
}

func stringAttr(fields map[string]json.RawMessage, key string) string {
	var s string
	if raw, ok := fields[key]; ok {
		_ = json.Unmarshal(raw, &s)
	}
	return s
}

// WithCaseUUID returns a copy of t that belongs to caseUUID. Fields is copied,
// not shared.
func (t Task) WithCaseUUID(caseUUID string) Task {
	t.CaseUUID = caseUUID
	if t.Fields == nil {
		return t
	}
	fields := make(map[string]json.RawMessage, len(t.Fields)+1)
	for k, v := range t.Fields {
		fields[k] = v
	}
	if b, err := json.Marshal(caseUUID); err == nil {
		fields["caseUuid"] = b
	}
	t.Fields = fields
	return t
}

func (t Task) MarshalJSON() ([]byte, error) {
	if t.Fields != nil {
		return json.Marshal(t.Fields)
	}
	type plain Task
	return json.Marshal(plain(t))
}

type TaskList struct {
	TaskList          []Task            `json:"taskList"`
	PagingInformation PagingInformation `json:"pagingInformation"`
	Raw               json.RawMessage   `json:"-"`
}

// Response is the result of a mutating call.
type Response struct {
	StatusCode int
	Body       []byte
}

// NewTask describes a task created through Task/Import.
type NewTask struct {
	UUID        string
	CaseUUID    string
	Title       string
	Description string
	StatusCode  string
	TaskType    string
	StartDate   string
	Caseworker  KspIdentity
}
