package core

import (
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/joseph-ayodele/caseflow/internal/nova"
)

// fakeNova is an in-memory case service speaking the GetList/Update/Import endpoints.
type fakeNova struct {
	t   *testing.T
	srv *httptest.Server

	mu    sync.Mutex
	cases []map[string]any
	tasks map[string][]map[string]any
	calls map[string]int

	taskUpdateStatus map[string]int
	caseUpdateStatus int
	importStatus     int

	taskUpdates []map[string]any
	caseUpdates []map[string]any
	imports     []map[string]any
}

func newFakeNova(t *testing.T) *fakeNova {
	f := &fakeNova{
		t:                t,
		tasks:            map[string][]map[string]any{},
		calls:            map[string]int{},
		taskUpdateStatus: map[string]int{},
	}
	f.srv = httptest.NewServer(http.HandlerFunc(f.handle))
	t.Cleanup(f.srv.Close)
	return f
}

func caseworker(racfID, name string) map[string]any {
	return map[string]any{
		"kspIdentity": map[string]any{
			"racfId":     racfID,
			"fullName":   name,
			"novaUserId": "nova-" + strings.ToLower(racfID),
		},
		"losIdentity": map[string]any{"fullName": "Team " + racfID},
	}
}

func (f *fakeNova) addCase(uuid, number, ownerID, ownerName string) {
	f.cases = append(f.cases, map[string]any{
		"common":         map[string]any{"uuid": uuid},
		"caseAttributes": map[string]any{"userFriendlyCaseNumber": number},
		"caseworker":     caseworker(ownerID, ownerName),
	})
}

func (f *fakeNova) addTask(caseUUID, taskUUID, title, status, ownerID string) {
	f.tasks[caseUUID] = append(f.tasks[caseUUID], map[string]any{
		"taskUuid":       taskUUID,
		"caseUuid":       caseUUID,
		"taskTitle":      title,
		"taskStatusCode": status,
		"taskType":       map[string]any{"name": "Opgave"},
		"caseworker":     caseworker(ownerID, "Owner "+ownerID),
	})
}

func (f *fakeNova) count(key string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls[key]
}

func (f *fakeNova) client(pageSize int) *nova.Client {
	return nova.NewClient(nova.Options{BaseURL: f.srv.URL, PageSize: pageSize, Logger: quietLogger()})
}

func (f *fakeNova) session() *Session {
	s := NewSession(f.client(2), nil, NoteSettings{}, "run-test", quietLogger())
	s.Now = func() time.Time { return time.Date(2025, 6, 2, 9, 30, 0, 0, time.UTC) }
	return s
}

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func (f *fakeNova) handle(w http.ResponseWriter, r *http.Request) {
	var body map[string]any
	assert.NoError(f.t, json.NewDecoder(r.Body).Decode(&body))

	f.mu.Lock()
	defer f.mu.Unlock()

	switch r.URL.Path {
	case "/Case/GetList":
		var out []map[string]any
		if attrs, ok := body["caseAttributes"].(map[string]any); ok {
			f.calls["case.by_number"]++
			number, _ := attrs["userFriendlyCaseNumber"].(string)
			for _, c := range f.cases {
				n := c["caseAttributes"].(map[string]any)["userFriendlyCaseNumber"].(string)
				if strings.Contains(strings.ToLower(n), strings.ToLower(number)) {
					out = append(out, c)
				}
			}
		} else {
			f.calls["case.by_worker"]++
			id := racfOf(body["caseWorker"])
			for _, c := range f.cases {
				if strings.EqualFold(racfOf(c["caseworker"]), id) {
					out = append(out, c)
				}
			}
		}
		f.writeJSON(w, http.StatusOK, map[string]any{"cases": out})

	case "/Task/GetList":
		if caseUUID, ok := body["caseUuid"].(string); ok {
			f.calls["task.by_case"]++
			paging := body["paging"].(map[string]any)
			start := int(paging["startRow"].(float64)) - 1
			size := int(paging["numberOfRows"].(float64))
			all := f.tasks[caseUUID]
			end := min(start+size, len(all))
			var page []map[string]any
			if start < len(all) {
				page = all[start:end]
			}
			f.writeJSON(w, http.StatusOK, map[string]any{
				"taskList":          page,
				"pagingInformation": map[string]any{"hasMoreRows": end < len(all)},
			})
			return
		}
		f.calls["task.by_worker"]++
		id := racfOf(body["caseworker"])
		var out []map[string]any
		for _, list := range f.tasks {
			for _, t := range list {
				if strings.EqualFold(racfOf(t["caseworker"]), id) {
					out = append(out, t)
				}
			}
		}
		f.writeJSON(w, http.StatusOK, map[string]any{"taskList": out})

	case "/Task/Update":
		f.calls["task.update"]++
		f.taskUpdates = append(f.taskUpdates, body)
		status := http.StatusOK
		if s, ok := f.taskUpdateStatus[body["uuid"].(string)]; ok {
			status = s
		}
		f.writeJSON(w, status, map[string]any{"uuid": body["uuid"]})

	case "/Case/Update":
		f.calls["case.update"]++
		f.caseUpdates = append(f.caseUpdates, body)
		f.writeJSON(w, statusOr(f.caseUpdateStatus), map[string]any{})

	case "/Task/Import":
		f.calls["task.import"]++
		f.imports = append(f.imports, body)
		f.writeJSON(w, statusOr(f.importStatus), map[string]any{"uuid": body["uuid"]})

	default:
		w.WriteHeader(http.StatusNotFound)
	}
}

func (f *fakeNova) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	assert.NoError(f.t, json.NewEncoder(w).Encode(v))
}

func statusOr(s int) int {
	if s == 0 {
		return http.StatusOK
	}
	return s
}

func racfOf(v any) string {
	cw, _ := v.(map[string]any)
	ksp, _ := cw["kspIdentity"].(map[string]any)
	id, _ := ksp["racfId"].(string)
	return id
}

func jsonInto(v any, out any) error {
	b, err := json.Marshal(v)
	if err != nil {
		return err
	}
	return json.Unmarshal(b, out)
}
