package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"envdesk/internal/model"
	"envdesk/internal/mutate"
	"envdesk/internal/store"
)

// APIError surfaces non-2xx responses that do not map to a validation error.
type APIError struct {
	StatusCode int
	Reason     string
	Message    string
}

func (e *APIError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("backend: %s (status %d)", e.Message, e.StatusCode)
	}
	return fmt.Sprintf("backend: status %d", e.StatusCode)
}

//nolint:errorlint
func (e *APIError) Is(target error) bool {
	switch e.Reason {
	case reasonNothingToUndo:
		return target == store.ErrNothingToUndo
	case reasonLocked:
		return target == store.ErrLocked
	case reasonUnknownBatch:
		return target == store.ErrUnknownBatch
	}
	return false
}

// Client talks to an envdesk server. It implements the controller's Gateway
// and BatchSealer.
type Client struct {
	baseURL string
	http    *http.Client
}

func NewClient(baseURL string, httpClient *http.Client) *Client {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 30 * time.Second}
	}
	return &Client{baseURL: strings.TrimRight(baseURL, "/"), http: httpClient}
}

func (c *Client) BaseURL() string { return c.baseURL }

func (c *Client) Health(ctx context.Context) error {
	return c.do(ctx, http.MethodGet, "/health", nil, nil)
}

func (c *Client) FetchState(ctx context.Context) (model.State, error) {
	var st model.State
	if err := c.do(ctx, http.MethodGet, "/v1/state", nil, &st); err != nil {
		return model.State{}, err
	}
	if st.Env == nil {
		st.Env = model.Snapshot{}
	}
	return st, nil
}

func (c *Client) Commit(ctx context.Context, op model.Operation) error {
	return c.do(ctx, http.MethodPost, "/v1/ops", op, nil)
}

func (c *Client) SealBatch(ctx context.Context) error {
	return c.do(ctx, http.MethodPost, "/v1/batches/seal", nil, nil)
}

func (c *Client) UndoLastBatch(ctx context.Context) error {
	return c.do(ctx, http.MethodPost, "/v1/batches/undo", nil, nil)
}

func (c *Client) Batches(ctx context.Context, limit int) ([]model.Batch, error) {
	path := "/v1/batches"
	if limit > 0 {
		path += "?" + url.Values{"limit": {strconv.Itoa(limit)}}.Encode()
	}
	var out []model.Batch
	if err := c.do(ctx, http.MethodGet, path, nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) BatchOps(ctx context.Context, batchID string) ([]model.Operation, error) {
	var out []model.Operation
	if err := c.do(ctx, http.MethodGet, "/v1/batches/"+url.PathEscape(batchID)+"/ops", nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) Apply(ctx context.Context) (model.ApplyResult, error) {
	var res model.ApplyResult
	err := c.do(ctx, http.MethodPost, "/v1/apply", nil, &res)
	return res, err
}

func (c *Client) do(ctx context.Context, method, path string, in, out any) error {
	var body io.Reader
	if in != nil {
		b, err := json.Marshal(in)
		if err != nil {
			return err
		}
		body = bytes.NewReader(b)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return err
	}
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		return decodeError(resp)
	}
	if out == nil || resp.StatusCode == http.StatusNoContent {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode %s %s: %w", method, path, err)
	}
	return nil
}

func decodeError(resp *http.Response) error {
	raw, _ := io.ReadAll(io.LimitReader(resp.Body, 64<<10))
	var eb errorBody
	if err := json.Unmarshal(raw, &eb); err != nil || eb.Reason == "" {
		return &APIError{StatusCode: resp.StatusCode, Message: strings.TrimSpace(string(raw))}
	}
	if resp.StatusCode == http.StatusUnprocessableEntity {
		if _, ok := mutate.ReasonSentinel(mutate.Reason(eb.Reason)); ok {
			return &mutate.ValidationError{
				Op:       eb.Op,
				Variable: eb.Variable,
				Index:    eb.Index,
				Reason:   mutate.Reason(eb.Reason),
				Detail:   eb.Detail,
			}
		}
	}
	return &APIError{StatusCode: resp.StatusCode, Reason: eb.Reason, Message: eb.Error}
}

var _ Backend = (*Client)(nil)

var ErrUnreachable = errors.New("backend unreachable")

// Ping checks the server answers before a long-running command starts.
func Ping(ctx context.Context, c *Client) error {
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	if err := c.Health(ctx); err != nil {
		return fmt.Errorf("%w at %s: %v", ErrUnreachable, c.baseURL, err)
	}
	return nil
}
