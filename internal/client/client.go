package client

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"strings"
	"time"

	"prescripto-auth/internal/auth"
	"prescripto-auth/internal/catalog"

	"github.com/samber/oops"
)

const maxBodyBytes = 1 << 20

// Client talks to the Prescripto API. It keeps no credential of its
// own: callers pass the token explicitly on each authenticated call.
type Client struct {
	baseURL string
	http    *http.Client
}

// New builds a client for baseURL. A nil httpClient gets a client with
// a 15s timeout so a hung server still surfaces as Unavailable.
func New(baseURL string, httpClient *http.Client) *Client {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 15 * time.Second}
	}
	return &Client{
		baseURL: strings.TrimSuffix(baseURL, "/"),
		http:    httpClient,
	}
}

// Profile reads the identity for tok. It never returns nil.
func (c *Client) Profile(ctx context.Context, tok string) Result {
	var body auth.Response
	header := http.Header{}
	header.Set(auth.TokenHeader, tok)

	if err := c.call(ctx, http.MethodGet, "/api/user/get-profile", header, nil, &body); err != nil {
		return Classify(err)
	}
	if body.UserData == nil {
		return Rejected{Status: http.StatusOK, Message: "profile response missing userData"}
	}
	return Resolved{Identity: body.UserData}
}

// Login exchanges email and password for a credential.
func (c *Client) Login(ctx context.Context, email, password string) (string, error) {
	return c.issue(ctx, "/api/user/login", map[string]string{
		"email":    email,
		"password": password,
	})
}

// Register creates an account and returns its first credential.
func (c *Client) Register(ctx context.Context, name, email, password string) (string, error) {
	return c.issue(ctx, "/api/user/register", map[string]string{
		"name":     name,
		"email":    email,
		"password": password,
	})
}

func (c *Client) issue(ctx context.Context, path string, payload map[string]string) (string, error) {
	var body auth.Response
	if err := c.call(ctx, http.MethodPost, path, nil, payload, &body); err != nil {
		return "", err
	}
	if body.Token == "" {
		return "", Rejected{Status: http.StatusOK, Message: "response carried no token"}
	}
	return body.Token, nil
}

// Doctors lists the public catalog. It sends no credential.
func (c *Client) Doctors(ctx context.Context) ([]catalog.Doctor, error) {
	var body catalog.ListResponse
	if err := c.call(ctx, http.MethodGet, "/api/doctor/list", nil, nil, &body); err != nil {
		return nil, err
	}
	if body.Doctors == nil {
		return []catalog.Doctor{}, nil
	}
	return body.Doctors, nil
}

// call performs one request and decodes a successful body into out.
// Failures come back as Invalid, Unavailable or Rejected.
func (c *Client) call(
	ctx context.Context,
	method string,
	path string,
	header http.Header,
	payload any,
	out any,
) error {
	url := c.baseURL + path
	errb := oops.In("client").With("method", method).With("url", url)

	var reqBody io.Reader
	if payload != nil {
		data, err := json.Marshal(payload)
		if err != nil {
			return errb.Wrapf(err, "encode request")
		}
		reqBody = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, url, reqBody)
	if err != nil {
		return errb.Wrapf(err, "build request")
	}
	for k, vs := range header {
		for _, v := range vs {
			req.Header.Add(k, v)
		}
	}
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return Unavailable{Err: errb.Code(CodeTransportUnavailable).Wrapf(err, "request failed")}
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return Unavailable{Err: errb.Code(CodeTransportUnavailable).Wrapf(err, "read response")}
	}

	var envelope auth.Response
	decodeErr := json.Unmarshal(raw, &envelope)

	// The code, not the status or message, decides invalidity.
	if decodeErr == nil && envelope.Code == auth.CodeInvalidToken {
		return Invalid{Message: envelope.Message}
	}

	switch resp.StatusCode {
	case http.StatusBadGateway, http.StatusServiceUnavailable, http.StatusGatewayTimeout:
		return Unavailable{Err: errb.Code(CodeTransportUnavailable).
			With("status", resp.StatusCode).
			Errorf("upstream unavailable: %s", resp.Status)}
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 || decodeErr != nil || !envelope.Success {
		msg := envelope.Message
		if msg == "" {
			if decodeErr != nil {
				msg = "unexpected response: " + resp.Status
			} else {
				msg = "request failed: " + resp.Status
			}
		}
		return Rejected{Status: resp.StatusCode, Message: msg}
	}

	if err := json.Unmarshal(raw, out); err != nil {
		return Rejected{Status: resp.StatusCode, Message: "malformed response body"}
	}
	return nil
}
