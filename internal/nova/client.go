package nova

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"

	"github.com/joseph-ayodele/caseflow/internal/common"
)

const (
	DefaultAPIVersion = "2.0-Case"
	DefaultPageSize   = 500

	maxErrorBody = 2000
)

type Options struct {
	BaseURL    string
	APIVersion string
	PageSize   int
	HTTPClient *http.Client
	Logger     *slog.Logger
}

// Client talks to the case service REST API. The HTTP client is expected to add
// the bearer token (see NewHTTPClient).
type Client struct {
	baseURL    string
	apiVersion string
	pageSize   int
	http       *http.Client
	logger     *slog.Logger
	newID      func() string
}

func NewClient(opts Options) *Client {
	c := &Client{
		baseURL:    strings.TrimRight(opts.BaseURL, "/"),
		apiVersion: opts.APIVersion,
		pageSize:   opts.PageSize,
		http:       opts.HTTPClient,
		logger:     opts.Logger,
		newID:      func() string { return uuid.New().String() },
	}
	if c.apiVersion == "" {
		c.apiVersion = DefaultAPIVersion
	}
	if c.pageSize <= 0 {
		c.pageSize = DefaultPageSize
	}
	if c.http == nil {
		c.http = http.DefaultClient
	}
	if c.logger == nil {
		c.logger = slog.Default()
	}
	return c
}

// caseProjection selects the case number and the full caseworker element.
var caseProjection = map[string]any{
	"caseAttributes": map[string]any{"userFriendlyCaseNumber": true},
	"caseworker": map[string]any{
		"kspIdentity": map[string]any{
			"novaUserId": true,
			"racfId":     true,
			"fullName":   true,
		},
		"fkOrgIdentity": map[string]any{
			"fkUuid":   true,
			"type":     true,
			"fullName": true,
		},
		"losIdentity": map[string]any{
			"novaUnitId":           true,
			"administrativeUnitId": true,
			"fullName":             true,
			"userKey":              true,
		},
		"caseworkerCtrlBy": true,
	},
}

func (c *Client) paging(startRow int) map[string]any {
	return map[string]any{"startRow": startRow, "numberOfRows": c.pageSize}
}

// SearchCasesByNumber returns the first page of cases matching a user friendly case number.
func (c *Client) SearchCasesByNumber(ctx context.Context, caseNumber string) (*CaseList, error) {
	body := map[string]any{
		"paging":         c.paging(1),
		"caseAttributes": map[string]any{"userFriendlyCaseNumber": caseNumber},
		"caseGetOutput":  caseProjection,
	}
	var out CaseList
	raw, err := c.put(ctx, "case.get_list", "/Case/GetList", body, &out)
	if err != nil {
		return nil, err
	}
	out.Raw = raw
	return &out, nil
}

// SearchCasesByCaseworker returns the first page of cases owned by racfID.
func (c *Client) SearchCasesByCaseworker(ctx context.Context, racfID string) (*CaseList, error) {
	body := map[string]any{
		"paging":        c.paging(1),
		"caseWorker":    map[string]any{"kspIdentity": map[string]any{"racfId": racfID}},
		"caseGetOutput": caseProjection,
	}
	var out CaseList
	raw, err := c.put(ctx, "case.get_list", "/Case/GetList", body, &out)
	if err != nil {
		return nil, err
	}
	out.Raw = raw
	return &out, nil
}

// SearchTasksByCaseworker returns the first page of tasks owned by racfID.
func (c *Client) SearchTasksByCaseworker(ctx context.Context, racfID string) (*TaskList, error) {
	body := map[string]any{
		"paging":     c.paging(1),
		"caseworker": map[string]any{"kspIdentity": map[string]any{"racfId": racfID}},
	}
	var out TaskList
	raw, err := c.put(ctx, "task.get_list", "/Task/GetList", body, &out)
	if err != nil {
		return nil, err
	}
	out.Raw = raw
	return &out, nil
}

// ListTasksByCase returns every task of a case, following pages while the
// service reports more rows.
func (c *Client) ListTasksByCase(ctx context.Context, caseUUID string) ([]Task, error) {
	var all []Task
	for startRow := 1; ; startRow += c.pageSize {
		body := map[string]any{
			"paging":   c.paging(startRow),
			"caseUuid": caseUUID,
		}
		var page TaskList
		if _, err := c.put(ctx, "task.get_list", "/Task/GetList", body, &page); err != nil {
			return nil, err
		}
		all = append(all, page.TaskList...)
		if !page.PagingInformation.HasMoreRows || len(page.TaskList) == 0 {
			break
		}
	}
	c.logger.Debug("nova.tasks.listed", "case_uuid", caseUUID, "count", len(all))
	return all, nil
}

// UpdateTask submits a Task/Update payload built by BuildTaskUpdate.
func (c *Client) UpdateTask(ctx context.Context, update map[string]any) (*Response, error) {
	return c.mutate(ctx, "task.update", "/Task/Update", update)
}

// UpdateCaseCaseworker replaces the caseworker of a case.
func (c *Client) UpdateCaseCaseworker(ctx context.Context, caseUUID string, ksp KspIdentity) (*Response, error) {
	body := map[string]any{
		"case": map[string]any{
			"caseUuid":   caseUUID,
			"caseworker": map[string]any{"kspIdentity": ksp},
		},
	}
	return c.mutate(ctx, "case.update", "/Case/Update", body)
}

// CreateTask creates a task on a case through Task/Import.
func (c *Client) CreateTask(ctx context.Context, t NewTask) (*Response, error) {
	id := t.UUID
	if id == "" {
		id = c.newID()
	}
	body := map[string]any{
		"uuid":        id,
		"caseUuid":    t.CaseUUID,
		"title":       t.Title,
		"description": t.Description,
		"statusCode":  t.StatusCode,
		"taskType":    t.TaskType,
		"startDate":   t.StartDate,
		"caseworker":  map[string]any{"kspIdentity": t.Caseworker},
	}
	return c.mutate(ctx, "task.import", "/Task/Import", body)
}

func (c *Client) mutate(ctx context.Context, op, path string, body map[string]any) (*Response, error) {
	raw, status, err := c.do(ctx, op, path, body)
	if err != nil {
		return nil, err
	}
	return &Response{StatusCode: status, Body: raw}, nil
}

func (c *Client) put(ctx context.Context, op, path string, body map[string]any, out any) ([]byte, error) {
	raw, _, err := c.do(ctx, op, path, body)
	if err != nil {
		return nil, err
	}
	if len(bytes.TrimSpace(raw)) == 0 {
		return raw, nil
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return raw, fmt.Errorf("%s: decode response: %w", op, err)
	}
	return raw, nil
}

// do sends one PUT with a fresh transaction id and returns the body. Any non-2xx
// answer becomes a *common.RemoteCallError.
func (c *Client) do(ctx context.Context, op, path string, body map[string]any) ([]byte, int, error) {
	txID := c.newID()
	payload := make(map[string]any, len(body)+1)
	for k, v := range body {
		payload[k] = v
	}
	payload["common"] = map[string]any{"transactionId": txID}

	bs, err := json.Marshal(payload)
	if err != nil {
		c.logger.Error("nova.http.encode_error", "op", op, "transaction_id", txID, "error", err)
		return nil, 0, fmt.Errorf("%s: encode json: %w", op, err)
	}

	endpoint := c.baseURL + path + "?" + url.Values{"api-version": {c.apiVersion}}.Encode()
	req, err := http.NewRequestWithContext(ctx, http.MethodPut, endpoint, bytes.NewReader(bs))
	if err != nil {
		return nil, 0, fmt.Errorf("%s: build request: %w", op, err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	start := time.Now()
	caseNumber := common.CaseNumberFromContext(ctx)
	c.logger.Debug("nova.http.request", "op", op, "transaction_id", txID, "case_number", caseNumber,
		"path", path, "content_length", len(bs))

	resp, err := c.http.Do(req)
	if err != nil {
		c.logger.Error("nova.http.send_error", "op", op, "transaction_id", txID, "case_number", caseNumber, "error", err,
			"elapsed_ms", time.Since(start).Milliseconds())
		if isTokenError(err) {
			return nil, 0, common.AuthError(err)
		}
		return nil, 0, fmt.Errorf("%s: %w", op, err)
	}
	defer func(Body io.ReadCloser) {
		if err := Body.Close(); err != nil {
			c.logger.Warn("nova.http.response_body_close_error", "op", op, "error", err)
		}
	}(resp.Body)

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, resp.StatusCode, fmt.Errorf("%s: read response: %w", op, err)
	}

	c.logger.Debug("nova.http.response",
		"op", op,
		"transaction_id", txID,
		"case_number", caseNumber,
		"status", resp.StatusCode,
		"bytes", len(raw),
		"elapsed_ms", time.Since(start).Milliseconds(),
	)

	if resp.StatusCode/100 != 2 {
		return raw, resp.StatusCode, &common.RemoteCallError{Operation: op, Status: resp.StatusCode, Body: errorBody(raw)}
	}
	return raw, resp.StatusCode, nil
}

// errorBody keeps at most maxErrorBody runes of a failed response.
func errorBody(raw []byte) string {
	if utf8.RuneCount(raw) <= maxErrorBody {
		return string(raw)
	}
	return string([]rune(string(raw))[:maxErrorBody])
}
