package storage

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"
)

const (
	apiRegister = "/api/nilavanti/register"
	apiLogin    = "/api/nilavanti/login"
	apiLogout   = "/api/nilavanti/logout"
	apiSession  = "/api/nilavanti/session"
	apiReveal   = "/api/nilavanti/reveal"
	apiMain     = "/api/nilavanti/main"

	sessionCookie = "nilavanti_token"
)

// Client talks to the gate server and keeps the session cookie in a SessionFile.
type Client struct {
	BaseURL string
	HTTP    *http.Client
	Session *SessionFile
	now     func() time.Time
}

// NewClient returns a client for baseURL.
func NewClient(baseURL string, httpClient *http.Client, session *SessionFile) *Client {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 10 * time.Second}
	}
	return &Client{BaseURL: baseURL, HTTP: httpClient, Session: session, now: time.Now}
}

// Register creates an account. It does not log in.
func (c *Client) Register(ctx context.Context, username, password, confirm string) (*User, error) {
	var u User
	err := c.do(ctx, http.MethodPost, apiRegister, map[string]string{
		"username":        username,
		"password":        password,
		"confirmPassword": confirm,
	}, &u, nil)
	if err != nil {
		return nil, err
	}
	return &u, nil
}

// Login submits the secret and stores the returned session cookie.
func (c *Client) Login(ctx context.Context, username, password string) (*LoginResult, error) {
	body := map[string]string{"password": password}
	if username != "" {
		body["username"] = username
	}

	var res LoginResult
	var cookie *http.Cookie
	err := c.do(ctx, http.MethodPost, apiLogin, body, &res, func(resp *http.Response) {
		for _, ck := range resp.Cookies() {
			if ck.Name == sessionCookie {
				cookie = ck
			}
		}
	})
	if err != nil {
		return nil, err
	}
	if cookie == nil {
		return nil, errors.New("server did not set a session cookie")
	}
	if err := c.Session.Set(cookie.Value, cookie.Expires); err != nil {
		return nil, fmt.Errorf("save session: %w", err)
	}
	return &res, nil
}

// Logout revokes the session on the server and forgets it locally.
func (c *Client) Logout(ctx context.Context) error {
	err := c.do(ctx, http.MethodPost, apiLogout, nil, nil, nil)
	if cerr := c.Session.Clear(); cerr != nil && err == nil {
		err = cerr
	}
	return err
}

// Status mounts the gate with the stored session.
func (c *Client) Status(ctx context.Context) (*MountState, error) {
	var state MountState
	if err := c.do(ctx, http.MethodGet, apiSession, nil, &state, nil); err != nil {
		return nil, err
	}
	return &state, nil
}

// RevealURL fetches the URL of the reveal video.
func (c *Client) RevealURL(ctx context.Context) (string, error) {
	var out struct {
		URL string `json:"url"`
	}
	if err := c.do(ctx, http.MethodGet, apiReveal, nil, &out, nil); err != nil {
		return "", err
	}
	return out.URL, nil
}

// Main fetches the protected content.
func (c *Client) Main(ctx context.Context) (*Protected, error) {
	var p Protected
	if err := c.do(ctx, http.MethodGet, apiMain, nil, &p, nil); err != nil {
		return nil, err
	}
	return &p, nil
}

func (c *Client) do(ctx context.Context, method, path string, in, out any, inspect func(*http.Response)) error {
	var body io.Reader
	if in != nil {
		b, err := json.Marshal(in)
		if err != nil {
			return err
		}
		body = bytes.NewReader(b)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.BaseURL+path, body)
	if err != nil {
		return err
	}
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token := c.Session.Current(c.now()); token != "" {
		req.AddCookie(&http.Cookie{Name: sessionCookie, Value: token})
	}

	resp, err := c.HTTP.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		apiErr := &APIError{Status: resp.StatusCode}
		data, _ := io.ReadAll(resp.Body)
		_ = json.Unmarshal(data, apiErr)
		return apiErr
	}
	if inspect != nil {
		inspect(resp)
	}
	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return fmt.Errorf("failed to decode response: %w", err)
		}
	}
	return nil
}
