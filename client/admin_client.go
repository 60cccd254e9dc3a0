// Package client is a small HTTP client for the admin API. It implements
// loginview.Authenticator so the login view can be driven outside a browser.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/Sovan7777/spardha-26/loginview"
	"github.com/Sovan7777/spardha-26/models"
	"github.com/Sovan7777/spardha-26/services"
)

var ErrNotAuthenticated = errors.New("admin session is missing or expired")

// APIError is a non-2xx answer carrying the server's "error" field.
type APIError struct {
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("server responded %d: %s", e.StatusCode, e.Message)
}

type AdminClient struct {
	baseURL *url.URL
	http    *http.Client
	token   string
}

func NewAdminClient(baseURL string, httpClient *http.Client) (*AdminClient, error) {
	u, err := url.Parse(strings.TrimRight(baseURL, "/"))
	if err != nil {
		return nil, fmt.Errorf("invalid server url %q: %w", baseURL, err)
	}
	if u.Scheme == "" || u.Host == "" {
		return nil, fmt.Errorf("invalid server url %q: scheme and host are required", baseURL)
	}
	if httpClient == nil {
		jar, _ := cookiejar.New(nil)
		httpClient = &http.Client{Timeout: 30 * time.Second, Jar: jar}
	}
	return &AdminClient{baseURL: u, http: httpClient}, nil
}

// Token returns the session token received from the last successful login.
func (c *AdminClient) Token() string { return c.token }

func (c *AdminClient) SetToken(token string) { c.token = token }

// AdminLogin posts the passkey. 200 and 401 both carry a {success, message}
// body; any other status is reported as an error.
func (c *AdminClient) AdminLogin(ctx context.Context, passkey string) (loginview.Result, error) {
	var res services.LoginResult
	resp, err := c.do(ctx, http.MethodPost, "/api/admin/login", nil, map[string]string{"passkey": passkey})
	if err != nil {
		return loginview.Result{}, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusUnauthorized {
		return loginview.Result{}, decodeAPIError(resp)
	}
	if err := json.NewDecoder(resp.Body).Decode(&res); err != nil {
		return loginview.Result{}, fmt.Errorf("decode login response: %w", err)
	}
	if res.Success {
		c.token = res.Token
	}
	return loginview.Result{Success: res.Success, Message: res.Message}, nil
}

type ListTeamsParams struct {
	Event  string
	Status models.TeamStatus
	Page   int
	Limit  int
}

func (c *AdminClient) ListTeams(ctx context.Context, p ListTeamsParams) (*models.TeamListResponse, error) {
	q := url.Values{}
	if p.Event != "" {
		q.Set("event", p.Event)
	}
	if p.Status != "" {
		q.Set("status", string(p.Status))
	}
	if p.Page > 0 {
		q.Set("page", strconv.Itoa(p.Page))
	}
	if p.Limit > 0 {
		q.Set("limit", strconv.Itoa(p.Limit))
	}

	var out models.TeamListResponse
	if err := c.doJSON(ctx, http.MethodGet, "/api/admin/teams", q, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *AdminClient) UpdateStatus(ctx context.Context, teamID int, status models.TeamStatus) (*models.Team, error) {
	var out struct {
		Team *models.Team `json:"team"`
	}
	path := fmt.Sprintf("/api/admin/teams/%d/status", teamID)
	if err := c.doJSON(ctx, http.MethodPatch, path, nil, map[string]models.TeamStatus{"status": status}, &out); err != nil {
		return nil, err
	}
	return out.Team, nil
}

// DownloadReport streams the spreadsheet export into w.
func (c *AdminClient) DownloadReport(ctx context.Context, w io.Writer) (int64, error) {
	resp, err := c.do(ctx, http.MethodGet, "/api/admin/report.xlsx", nil, nil)
	if err != nil {
		return 0, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return 0, decodeAPIError(resp)
	}
	return io.Copy(w, resp.Body)
}

func (c *AdminClient) doJSON(ctx context.Context, method, path string, q url.Values, body, dst any) error {
	resp, err := c.do(ctx, method, path, q, body)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return decodeAPIError(resp)
	}
	if dst == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(dst); err != nil {
		return fmt.Errorf("decode %s %s response: %w", method, path, err)
	}
	return nil
}

func (c *AdminClient) do(ctx context.Context, method, path string, q url.Values, body any) (*http.Response, error) {
	u := c.baseURL.JoinPath(path)
	if len(q) > 0 {
		u.RawQuery = q.Encode()
	}

	var reader io.Reader
	if body != nil {
		buf, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("encode request body: %w", err)
		}
		reader = bytes.NewReader(buf)
	}

	req, err := http.NewRequestWithContext(ctx, method, u.String(), reader)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%s %s: %w", method, path, err)
	}
	return resp, nil
}

func decodeAPIError(resp *http.Response) error {
	var env struct {
		Error any `json:"error"`
	}
	raw, _ := io.ReadAll(io.LimitReader(resp.Body, 64<<10))
	msg := strings.TrimSpace(string(raw))
	if err := json.Unmarshal(raw, &env); err == nil && env.Error != nil {
		switch v := env.Error.(type) {
		case string:
			msg = v
		default:
			if b, err := json.Marshal(v); err == nil {
				msg = string(b)
			}
		}
	}
	apiErr := &APIError{StatusCode: resp.StatusCode, Message: msg}
	if resp.StatusCode == http.StatusUnauthorized {
		return fmt.Errorf("%w: %w", ErrNotAuthenticated, apiErr)
	}
	return apiErr
}
