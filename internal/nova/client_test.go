package nova

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joseph-ayodele/caseflow/internal/common"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func decodeBody(t *testing.T, r *http.Request) map[string]any {
	t.Helper()
	var body map[string]any
	require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
	return body
}

func TestSearchCasesByNumber_RequestShape(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPut, r.Method)
		assert.Equal(t, "/Case/GetList", r.URL.Path)
		assert.Equal(t, "2.0-Case", r.URL.Query().Get("api-version"))

		body := decodeBody(t, r)
		envelope := body["common"].(map[string]any)
		assert.NotEmpty(t, envelope["transactionId"])
		assert.Equal(t, map[string]any{"startRow": float64(1), "numberOfRows": float64(500)}, body["paging"])
		assert.Equal(t, "S2021-292593", body["caseAttributes"].(map[string]any)["userFriendlyCaseNumber"])
		assert.Contains(t, body["caseGetOutput"], "caseworker")

		_, _ = io.WriteString(w, `{"cases":[{"common":{"uuid":"case-1"},
			"caseAttributes":{"userFriendlyCaseNumber":"S2021-292593"},
			"caseworker":{"kspIdentity":{"racfId":"AZ60026","fullName":"Old Owner","novaUserId":"u-1"},
			"losIdentity":{"administrativeUnitId":70403,"fullName":"Team"}}}]}`)
	}))
	defer srv.Close()

	c := NewClient(Options{BaseURL: srv.URL + "/", Logger: testLogger()})
	list, err := c.SearchCasesByNumber(context.Background(), "S2021-292593")
	require.NoError(t, err)
	require.Len(t, list.Cases, 1)
	assert.Equal(t, "case-1", list.Cases[0].UUID())
	assert.Equal(t, "Old Owner", list.Cases[0].Caseworker.FullName())
	assert.True(t, list.Cases[0].Caseworker.MatchesRacfID("az60026"))
	assert.NotEmpty(t, list.Raw)
}

func TestListTasksByCase_FollowsPaging(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		n := atomic.AddInt32(&calls, 1)
		body := decodeBody(t, r)
		paging := body["paging"].(map[string]any)
		assert.Equal(t, "case-1", body["caseUuid"])
		switch n {
		case 1:
			assert.Equal(t, float64(1), paging["startRow"])
			_, _ = io.WriteString(w, `{"taskList":[{"taskUuid":"t1"},{"taskUuid":"t2"}],"pagingInformation":{"hasMoreRows":true}}`)
		default:
			assert.Equal(t, float64(3), paging["startRow"])
			_, _ = io.WriteString(w, `{"taskList":[{"taskUuid":"t3"}],"pagingInformation":{"hasMoreRows":false}}`)
		}
	}))
	defer srv.Close()

	c := NewClient(Options{BaseURL: srv.URL, PageSize: 2, Logger: testLogger()})
	tasks, err := c.ListTasksByCase(context.Background(), "case-1")
	require.NoError(t, err)
	require.Len(t, tasks, 3)
	assert.Equal(t, "t3", tasks[2].UUID)
	assert.EqualValues(t, 2, atomic.LoadInt32(&calls))
}

func TestNon2xxBecomesRemoteCallError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusConflict)
		_, _ = io.WriteString(w, `{"error":"locked"}`)
	}))
	defer srv.Close()

	c := NewClient(Options{BaseURL: srv.URL, Logger: testLogger()})
	_, err := c.UpdateCaseCaseworker(context.Background(), "case-1", KspIdentity{RacfID: "AZMTM01"})
	require.Error(t, err)

	var rce *common.RemoteCallError
	require.True(t, errors.As(err, &rce))
	assert.Equal(t, http.StatusConflict, rce.Status)
	assert.Contains(t, rce.Body, "locked")
	assert.Equal(t, "409", common.StageStatus(err))
}

func TestCreateTask_Body(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/Task/Import", r.URL.Path)
		body := decodeBody(t, r)
		assert.Equal(t, "case-1", body["caseUuid"])
		assert.Equal(t, "Sagsbehandlerskift", body["title"])
		assert.Equal(t, "N", body["statusCode"])
		assert.NotEmpty(t, body["uuid"])
		cw := body["caseworker"].(map[string]any)["kspIdentity"].(map[string]any)
		assert.Equal(t, "AZMTM01", cw["racfId"])
		w.WriteHeader(http.StatusCreated)
	}))
	defer srv.Close()

	c := NewClient(Options{BaseURL: srv.URL, Logger: testLogger()})
	resp, err := c.CreateTask(context.Background(), NewTask{
		CaseUUID:   "case-1",
		Title:      "Sagsbehandlerskift",
		StatusCode: "N",
		TaskType:   "Notat",
		StartDate:  "2025-01-02T00:00:00",
		Caseworker: KspIdentity{RacfID: "AZMTM01"},
	})
	require.NoError(t, err)
	assert.Equal(t, http.StatusCreated, resp.StatusCode)
}

func TestTokenSource_ClientCredentialsInForm(t *testing.T) {
	var tokenCalls int32
	mux := http.NewServeMux()
	mux.HandleFunc("/token", func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&tokenCalls, 1)
		require.NoError(t, r.ParseForm())
		assert.Equal(t, "client_credentials", r.PostForm.Get("grant_type"))
		assert.Equal(t, "id", r.PostForm.Get("client_id"))
		assert.Equal(t, "secret", r.PostForm.Get("client_secret"))
		assert.Equal(t, "client", r.PostForm.Get("scope"))
		w.Header().Set("Content-Type", "application/json")
		_, _ = io.WriteString(w, `{"access_token":"tok-1","token_type":"Bearer","expires_in":3600}`)
	})
	mux.HandleFunc("/Task/GetList", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer tok-1", r.Header.Get("Authorization"))
		_, _ = io.WriteString(w, `{"taskList":[]}`)
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	ctx := context.Background()
	ts := NewTokenSource(ctx, Credentials{TokenURL: srv.URL + "/token", ClientID: "id", ClientSecret: "secret", Scope: "client"})
	tok, err := FetchToken(ts)
	require.NoError(t, err)
	assert.Equal(t, "tok-1", tok.AccessToken)

	c := NewClient(Options{BaseURL: srv.URL, HTTPClient: NewHTTPClient(ctx, ts, 0), Logger: testLogger()})
	_, err = c.SearchTasksByCaseworker(ctx, "AZMTM01")
	require.NoError(t, err)
	assert.EqualValues(t, 1, atomic.LoadInt32(&tokenCalls))
}

func TestFetchToken_FailureIsAuthError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = io.WriteString(w, `{"error":"invalid_client"}`)
	}))
	defer srv.Close()

	ts := NewTokenSource(context.Background(), Credentials{TokenURL: srv.URL, ClientID: "id", ClientSecret: "bad"})
	_, err := FetchToken(ts)
	require.Error(t, err)
	assert.ErrorIs(t, err, common.ErrAuth)
	assert.True(t, common.IsFatal(err))
}

func TestListTasksByCase_OddAttributeTypesKeepThePage(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.WriteString(w, `{"taskList":[
			{"taskUuid":"t1","taskTitle":42,"taskStatusCode":["S"],"caseworker":"AZ1"},
			{"taskUuid":"t2","taskTitle":"Opgave","caseworker":{"kspIdentity":{"racfId":"AZ1"}}}
		]}`)
	}))
	defer srv.Close()

	c := NewClient(Options{BaseURL: srv.URL, Logger: testLogger()})
	tasks, err := c.ListTasksByCase(context.Background(), "case-1")
	require.NoError(t, err)
	require.Len(t, tasks, 2)

	assert.Equal(t, "t1", tasks[0].UUID)
	assert.Empty(t, tasks[0].Title)
	assert.Empty(t, tasks[0].StatusCode)
	assert.Nil(t, tasks[0].Caseworker)
	assert.JSONEq(t, `42`, string(tasks[0].Fields["taskTitle"]))

	assert.Equal(t, "Opgave", tasks[1].Title)
	assert.Equal(t, "AZ1", tasks[1].Caseworker.RacfID())
}

func TestNon2xxBodyIsCutOnRuneBoundary(t *testing.T) {
	long := strings.Repeat("ø", maxErrorBody+10)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		_, _ = io.WriteString(w, long)
	}))
	defer srv.Close()

	c := NewClient(Options{BaseURL: srv.URL, Logger: testLogger()})
	_, err := c.UpdateTask(context.Background(), map[string]any{"uuid": "t1"})

	var rce *common.RemoteCallError
	require.True(t, errors.As(err, &rce))
	assert.True(t, utf8.ValidString(rce.Body))
	assert.Equal(t, maxErrorBody, utf8.RuneCountInString(rce.Body))
}

func TestRequestLogsCarryCaseNumber(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.WriteString(w, `{}`)
	}))
	defer srv.Close()

	var logs bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&logs, &slog.HandlerOptions{Level: slog.LevelDebug}))
	c := NewClient(Options{BaseURL: srv.URL, Logger: logger})

	ctx := common.WithCaseNumber(context.Background(), "S2021-292593")
	_, err := c.UpdateCaseCaseworker(ctx, "case-1", KspIdentity{RacfID: "AZMTM01"})
	require.NoError(t, err)
	assert.Contains(t, logs.String(), "msg=nova.http.request")
	assert.Contains(t, logs.String(), "case_number=S2021-292593")
}
