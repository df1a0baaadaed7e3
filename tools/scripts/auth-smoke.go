// Package main provides a CI-friendly smoke test for the warden auth API.
//
// It validates:
//   - register -> 200, repeat register -> 400
//   - weak password -> 422 with the policy message
//   - login -> 32-char hex access token, wrong password -> 401
//   - logout -> 200, repeat logout -> 401
//   - malformed Authorization header -> 400
package main

import (
	"bytes"
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"regexp"
	"strings"
	"time"
)

var hexToken = regexp.MustCompile(`^[0-9a-f]{32}$`)

type smokeClient struct {
	base    string
	http    *http.Client
	timeout time.Duration
	verbose bool
}

type result struct {
	status int
	body   map[string]any
}

func (r result) errorMessage() string {
	e, _ := r.body["error"].(map[string]any)
	msg, _ := e["message"].(string)
	return msg
}

func main() {
	var (
		baseURL  = flag.String("url", "http://127.0.0.1:8000", "warden base URL")
		password = flag.String("password", "Smoke1234", "Password for the throwaway identity")
		timeout  = flag.Duration("timeout", 7*time.Second, "Per-request timeout")
		verbose  = flag.Bool("v", false, "Verbose output")
	)
	flag.Parse()

	if err := validateBaseURL(*baseURL); err != nil {
		fatalf("invalid -url: %v", err)
	}

	c := &smokeClient{
		base:    strings.TrimRight(*baseURL, "/"),
		http:    &http.Client{},
		timeout: *timeout,
		verbose: *verbose,
	}

	email := fmt.Sprintf("smoke-%d@example.com", time.Now().UnixNano())
	register := map[string]string{"email": email, "full_name": "Smoke Test", "password": *password}
	login := map[string]string{"email": email, "password": *password}

	expect(c.post("/auth/register", register, ""), http.StatusOK, "register")
	expect(c.post("/auth/register", register, ""), http.StatusBadRequest, "register duplicate")

	weak := map[string]string{"email": "weak-" + email, "full_name": "Weak", "password": "short"}
	r := expect(c.post("/auth/register", weak, ""), http.StatusUnprocessableEntity, "register weak password")
	if !strings.HasPrefix(r.errorMessage(), "Password must") {
		fatalf("register weak password: unexpected message %q", r.errorMessage())
	}

	bad := map[string]string{"email": email, "password": *password + "x"}
	expect(c.post("/auth/login", bad, ""), http.StatusUnauthorized, "login wrong password")

	r = expect(c.post("/auth/login", login, ""), http.StatusOK, "login")
	token, _ := r.body["access_token"].(string)
	if !hexToken.MatchString(token) {
		fatalf("login: access_token %q is not 32 lowercase hex chars", token)
	}

	expect(c.post("/auth/logout", nil, "Bearer "+token), http.StatusOK, "logout")
	expect(c.post("/auth/logout", nil, "Bearer "+token), http.StatusUnauthorized, "logout repeat")
	expect(c.post("/auth/logout", nil, "Token "+token), http.StatusBadRequest, "logout malformed header")

	fmt.Println("auth smoke: OK")
}

func (c *smokeClient) post(path string, payload any, authorization string) result {
	ctx, cancel := context.WithTimeout(context.Background(), c.timeout)
	defer cancel()

	var body io.Reader
	if payload != nil {
		raw, err := json.Marshal(payload)
		if err != nil {
			fatalf("%s: marshal: %v", path, err)
		}
		body = bytes.NewReader(raw)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.base+path, body)
	if err != nil {
		fatalf("%s: build request: %v", path, err)
	}
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if authorization != "" {
		req.Header.Set("Authorization", authorization)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		fatalf("%s: %v", path, err)
	}
	defer func() { _ = resp.Body.Close() }()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		fatalf("%s: read body: %v", path, err)
	}

	out := result{status: resp.StatusCode}
	if len(raw) > 0 {
		if err := json.Unmarshal(raw, &out.body); err != nil {
			fatalf("%s: decode body %q: %v", path, raw, err)
		}
	}
	if c.verbose {
		fmt.Printf("POST %s -> %d %s", path, resp.StatusCode, raw)
	}
	return out
}

func expect(r result, status int, step string) result {
	if r.status != status {
		fatalf("%s: status=%d want=%d body=%v", step, r.status, status, r.body)
	}
	return r
}

func validateBaseURL(raw string) error {
	u, err := url.Parse(raw)
	if err != nil {
		return err
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("scheme must be http or https, got %q", u.Scheme)
	}
	if u.Host == "" {
		return fmt.Errorf("missing host")
	}
	return nil
}

func fatalf(format string, args ...any) {
	_, _ = fmt.Fprintf(os.Stderr, "auth smoke: FAIL: "+format+"\n", args...)
	os.Exit(1)
}
