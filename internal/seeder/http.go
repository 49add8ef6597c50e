package seeder

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/okian/pulselog/internal/domain/types"
)

// ErrUnexpectedStatus is returned when the service answers with an unexpected code.
var ErrUnexpectedStatus = errors.New("unexpected status")

// client talks to a running pulselog API.
type client struct {
	http    *http.Client
	baseURL string
}

func newClient(baseURL string, timeout time.Duration) *client {
	return &client{
		http:    &http.Client{Timeout: timeout},
		baseURL: baseURL,
	}
}

func (c *client) athleteURL(athleteID, resource string) string {
	return c.baseURL + "/v1/athletes/" + url.PathEscape(athleteID) + "/" + resource
}

// do sends body as JSON and decodes the response into out when it is non-nil.
func (c *client) do(ctx context.Context, method, target string, body, out any) (int, error) {
	var rd io.Reader = http.NoBody
	if body != nil {
		buf, err := json.Marshal(body)
		if err != nil {
			return 0, fmt.Errorf("marshal request body: %w", err)
		}
		rd = bytes.NewReader(buf)
	}
	req, err := http.NewRequestWithContext(ctx, method, target, rd)
	if err != nil {
		return 0, fmt.Errorf("create request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return 0, fmt.Errorf("%s %s: %w", method, target, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return resp.StatusCode, fmt.Errorf("read response body: %w", err)
	}
	if resp.StatusCode >= http.StatusBadRequest {
		return resp.StatusCode, fmt.Errorf("%w %d from %s %s: %s", ErrUnexpectedStatus, resp.StatusCode, method, target, bytes.TrimSpace(data))
	}
	if out != nil {
		if err := json.Unmarshal(data, out); err != nil {
			return resp.StatusCode, fmt.Errorf("decode response: %w", err)
		}
	}
	return resp.StatusCode, nil
}

func (c *client) health(ctx context.Context) error {
	status, err := c.do(ctx, http.MethodGet, c.baseURL+"/healthz", nil, nil)
	if err != nil {
		return err
	}
	if status != http.StatusOK {
		return fmt.Errorf("%w %d from /healthz", ErrUnexpectedStatus, status)
	}
	return nil
}

func (c *client) putProfile(ctx context.Context, athleteID string, p types.ProfileRequest) error {
	_, err := c.do(ctx, http.MethodPut, c.athleteURL(athleteID, "profile"), p, nil)
	return err
}

func (c *client) postMeet(ctx context.Context, athleteID string, m types.MeetRequest) error {
	_, err := c.do(ctx, http.MethodPost, c.athleteURL(athleteID, "meets"), m, nil)
	return err
}

// postLog reports whether the service queued a refresh for the log.
func (c *client) postLog(ctx context.Context, athleteID string, l types.LogRequest) (bool, error) {
	var receipt types.LogReceipt
	if _, err := c.do(ctx, http.MethodPost, c.athleteURL(athleteID, "logs"), l, &receipt); err != nil {
		return false, err
	}
	return receipt.RefreshQueued, nil
}

func (c *client) dashboard(ctx context.Context, athleteID string) (types.Dashboard, error) {
	var d types.Dashboard
	_, err := c.do(ctx, http.MethodGet, c.athleteURL(athleteID, "dashboard"), nil, &d)
	return d, err
}
