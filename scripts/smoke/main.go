// Command smoke exercises a running API instance end to end: ops endpoints,
// a register/login round trip, and the student dashboard. Intended for
// post-deploy verification, not as a test suite.
package main

import (
	"bytes"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"log"
	"net/http"
	"os"
	"time"
)

type check struct {
	Name   string
	Status int
	Err    error
}

func main() {
	var (
		base    string
		prefix  string
		timeout time.Duration
	)

	flag.StringVar(&base, "base", "http://localhost:8080", "API base URL")
	flag.StringVar(&prefix, "prefix", "/api", "API route prefix")
	flag.DurationVar(&timeout, "timeout", 5*time.Second, "HTTP client timeout")
	flag.Parse()

	client := &http.Client{Timeout: timeout}
	var checks []check

	for _, path := range []string{"/health", "/ready", "/metrics"} {
		status, err := get(client, base+path, "")
		checks = append(checks, check{Name: "GET " + path, Status: status, Err: err})
	}

	email := fmt.Sprintf("smoke-%d@example.com", time.Now().UnixNano())
	registerBody := map[string]string{
		"name":     "Smoke Check",
		"email":    email,
		"password": "smokecheck",
		"role":     "student",
	}
	status, token, err := post(client, base+prefix+"/auth/register", "", registerBody)
	checks = append(checks, check{Name: "POST /auth/register", Status: status, Err: err})

	loginBody := map[string]string{"email": email, "password": "smokecheck", "role": "student"}
	status, token, err = post(client, base+prefix+"/auth/login", "", loginBody)
	checks = append(checks, check{Name: "POST /auth/login", Status: status, Err: err})

	if token != "" {
		status, err = get(client, base+prefix+"/auth/me", token)
		checks = append(checks, check{Name: "GET /auth/me", Status: status, Err: err})

		status, err = get(client, base+prefix+"/dashboard/stats", token)
		checks = append(checks, check{Name: "GET /dashboard/stats", Status: status, Err: err})
	}

	status, err = get(client, base+prefix+"/courses", "")
	checks = append(checks, check{Name: "GET /courses", Status: status, Err: err})

	failed := 0
	for _, c := range checks {
		switch {
		case c.Err != nil:
			failed++
			log.Printf("FAIL %-28s error: %v", c.Name, c.Err)
		case c.Status >= 400:
			failed++
			log.Printf("FAIL %-28s status: %d", c.Name, c.Status)
		default:
			log.Printf("ok   %-28s status: %d", c.Name, c.Status)
		}
	}

	if failed > 0 {
		log.Printf("%d of %d checks failed", failed, len(checks))
		os.Exit(1)
	}
	log.Printf("all %d checks passed", len(checks))
}

func get(client *http.Client, url, token string) (int, error) {
	req, err := http.NewRequest(http.MethodGet, url, nil)
	if err != nil {
		return 0, err
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err := client.Do(req)
	if err != nil {
		return 0, err
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)
	return resp.StatusCode, nil
}

func post(client *http.Client, url, token string, body interface{}) (int, string, error) {
	payload, err := json.Marshal(body)
	if err != nil {
		return 0, "", err
	}
	req, err := http.NewRequest(http.MethodPost, url, bytes.NewReader(payload))
	if err != nil {
		return 0, "", err
	}
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err := client.Do(req)
	if err != nil {
		return 0, "", err
	}
	defer resp.Body.Close()

	var envelope struct {
		Token string `json:"token"`
	}
	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return resp.StatusCode, "", err
	}
	_ = json.Unmarshal(raw, &envelope)
	return resp.StatusCode, envelope.Token, nil
}
