package relay

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"bidvault/internal/domain"
)

// maxResponseBytes bounds how much of a response body is read.
const maxResponseBytes = 8 << 20

// HTTP talks to the relay over JSON/HTTP.
type HTTP struct {
	Base   string
	APIKey string
	HTTP   *http.Client
}

// NewHTTP returns a client for the relay at base. A zero timeout leaves
// requests bounded only by their context.
func NewHTTP(base, apiKey string, timeout time.Duration) *HTTP {
	return &HTTP{Base: base, APIKey: apiKey, HTTP: &http.Client{Timeout: timeout}}
}

func (c *HTTP) RegisterIdentity(
	ctx context.Context,
	reg domain.Registration,
) (domain.RegistrationResult, error) {
	var out RegistrationResponse
	status, body, err := c.do(ctx, http.MethodPost, "register", PathIdentities, reg, &out)
	if err != nil {
		return domain.RegistrationResult{}, err
	}
	switch {
	case status/100 == 2:
		if out.ExistingID != "" && out.ExistingID != reg.ID {
			return out.RegistrationResult, &RegistrationConflictError{ID: reg.ID, ExistingID: out.ExistingID}
		}
		if out.ID == "" {
			out.ID = reg.ID
		}
		return out.RegistrationResult, nil
	case status == http.StatusConflict:
		_ = json.Unmarshal(body, &out)
		if out.ExistingID == "" || out.ExistingID == reg.ID {
			return domain.RegistrationResult{Success: true, ID: reg.ID}, nil
		}
		return out.RegistrationResult, &RegistrationConflictError{ID: reg.ID, ExistingID: out.ExistingID}
	}
	return domain.RegistrationResult{}, classify("register", status, body)
}

func (c *HTTP) FetchIdentity(ctx context.Context, id domain.IdentityID) (domain.PublicIdentity, error) {
	var out domain.PublicIdentity
	if err := c.getJSON(ctx, "fetch identity", PathIdentities+"/"+url.PathEscape(string(id)), &out); err != nil {
		return domain.PublicIdentity{}, err
	}
	return out, nil
}

func (c *HTTP) SubmitObservations(
	ctx context.Context,
	records []domain.ObservationRecord,
) (domain.SubmitResult, error) {
	var out domain.SubmitResult
	if err := c.post(ctx, "submit", PathObservations, SubmitRequest{Observations: records}, &out); err != nil {
		return domain.SubmitResult{}, err
	}
	return out, nil
}

func (c *HTTP) FetchObservations(
	ctx context.Context,
	userID domain.IdentityID,
	limit int,
) ([]domain.ObservationRecord, error) {
	q := url.Values{"user_id": {string(userID)}}
	if limit > 0 {
		q.Set("limit", strconv.Itoa(limit))
	}
	var out ObservationsResponse
	if err := c.getJSON(ctx, "fetch observations", PathObservations+"?"+q.Encode(), &out); err != nil {
		return nil, err
	}
	return out.Observations, nil
}

func (c *HTTP) Beacon(ctx context.Context, records []domain.ObservationRecord) error {
	return c.post(ctx, "beacon", PathBeacon, SubmitRequest{Observations: records}, nil)
}

func (c *HTTP) CreateGrant(ctx context.Context, grant domain.Grant) error {
	status, body, err := c.do(ctx, http.MethodPost, "create grant", PathGrants, grant, nil)
	if err != nil {
		return err
	}
	if status == http.StatusConflict {
		return ErrGrantExists
	}
	if status/100 != 2 {
		return classify("create grant", status, body)
	}
	return nil
}

func (c *HTTP) FetchGrants(ctx context.Context, granteeID domain.IdentityID) ([]domain.Grant, error) {
	q := url.Values{"grantee_id": {string(granteeID)}}
	var out GrantsResponse
	if err := c.getJSON(ctx, "fetch grants", PathGrants+"?"+q.Encode(), &out); err != nil {
		return nil, err
	}
	return out.Grants, nil
}

// Health checks that the relay answers.
func (c *HTTP) Health(ctx context.Context) error {
	return c.getJSON(ctx, "health", PathHealth, nil)
}

func (c *HTTP) post(ctx context.Context, op, path string, in, out any) error {
	status, body, err := c.do(ctx, http.MethodPost, op, path, in, out)
	if err != nil {
		return err
	}
	if status/100 != 2 {
		return classify(op, status, body)
	}
	return nil
}

func (c *HTTP) getJSON(ctx context.Context, op, path string, out any) error {
	status, body, err := c.do(ctx, http.MethodGet, op, path, nil, out)
	if err != nil {
		return err
	}
	if status/100 != 2 {
		return classify(op, status, body)
	}
	return nil
}

// do sends one request. Transport failures come back as *NetworkError; any
// HTTP response is returned with its status and body, and decoded into out
// when it is a 2xx.
func (c *HTTP) do(ctx context.Context, method, op, path string, in, out any) (int, []byte, error) {
	var rd io.Reader
	if in != nil {
		buf := new(bytes.Buffer)
		if err := json.NewEncoder(buf).Encode(in); err != nil {
			return 0, nil, err
		}
		rd = buf
	}
	req, err := http.NewRequestWithContext(ctx, method, c.Base+path, rd)
	if err != nil {
		return 0, nil, err
	}
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Accept", "application/json")
	if c.APIKey != "" {
		req.Header.Set(HeaderAPIKey, c.APIKey)
	}
	resp, err := c.HTTP.Do(req)
	if err != nil {
		return 0, nil, &NetworkError{Op: op, Err: err}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return 0, nil, &NetworkError{Op: op, Err: err}
	}
	if resp.StatusCode/100 == 2 && out != nil && len(body) > 0 {
		if err := json.Unmarshal(body, out); err != nil {
			return resp.StatusCode, body, fmt.Errorf("relay %s: decode response: %w", op, err)
		}
	}
	return resp.StatusCode, body, nil
}

func classify(op string, status int, body []byte) error {
	if status >= 500 || status == http.StatusTooManyRequests || status == http.StatusRequestTimeout {
		return &NetworkError{Op: op, Status: status}
	}
	var e ErrorResponse
	_ = json.Unmarshal(body, &e)
	return &StatusError{Op: op, Status: status, Message: e.Error}
}

var _ domain.RelayClient = (*HTTP)(nil)
