package main

import (
	"bytes"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"log"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// target is one request and the status a healthy deployment answers with.
type target struct {
	Method   string          `json:"method"`
	Path     string          `json:"path"`
	Body     json.RawMessage `json:"body,omitempty"`
	Auth     bool            `json:"auth"`
	Expect   int             `json:"expect"`
	Envelope bool            `json:"envelope"`
	Critical bool            `json:"critical"`
}

type targetFile struct {
	Targets []target `json:"targets"`
}

type result struct {
	Target   target
	Status   int
	Duration time.Duration
	Problem  string
	Err      error
}

func (r result) ok() bool {
	return r.Err == nil && r.Problem == ""
}

func main() {
	var (
		base        string
		targetsPath string
		email       string
		password    string
		timeout     time.Duration
	)
	flag.StringVar(&base, "base", "http://localhost:8080", "Base URL of the running service")
	flag.StringVar(&targetsPath, "targets", filepath.Join("scripts", "smoke_check", "targets.json"), "Path to JSON targets file")
	flag.StringVar(&email, "email", os.Getenv("DEFAULT_ADMIN_EMAIL"), "Admin email used for authenticated targets")
	flag.StringVar(&password, "password", os.Getenv("DEFAULT_ADMIN_PASSWORD"), "Admin password used for authenticated targets")
	flag.DurationVar(&timeout, "timeout", 5*time.Second, "HTTP client timeout")
	flag.Parse()

	targets, err := loadTargets(targetsPath)
	if err != nil {
		log.Fatalf("failed to load targets: %v", err)
	}

	client := &http.Client{Timeout: timeout}
	token := ""
	if needsAuth(targets) {
		token, err = signIn(client, base, email, password)
		if err != nil {
			log.Fatalf("admin sign in failed: %v", err)
		}
	}

	var results []result
	breaking, optional := 0, 0
	for _, t := range targets {
		res := check(client, base, token, t)
		if !res.ok() {
			if t.Critical {
				breaking++
			} else {
				optional++
			}
		}
		results = append(results, res)
	}

	printReport(results)
	fmt.Printf("Critical failures: %d, Other failures: %d\n", breaking, optional)
	if breaking > 0 {
		os.Exit(1)
	}
}

func loadTargets(path string) ([]target, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var file targetFile
	if err := json.Unmarshal(data, &file); err != nil {
		return nil, err
	}
	if len(file.Targets) == 0 {
		return nil, fmt.Errorf("no targets defined in %s", path)
	}
	return file.Targets, nil
}

func needsAuth(targets []target) bool {
	for _, t := range targets {
		if t.Auth {
			return true
		}
	}
	return false
}

func signIn(client *http.Client, base, email, password string) (string, error) {
	if email == "" || password == "" {
		return "", errors.New("email and password are required for authenticated targets")
	}
	payload, _ := json.Marshal(map[string]string{"email": email, "password": password})
	resp, err := client.Post(joinURL(base, "/api/v1/auth/login"), "application/json", bytes.NewReader(payload))
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("login returned %d", resp.StatusCode)
	}
	var envelope struct {
		Data struct {
			AccessToken string `json:"access_token"`
		} `json:"data"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&envelope); err != nil {
		return "", fmt.Errorf("decode login response: %w", err)
	}
	if envelope.Data.AccessToken == "" {
		return "", errors.New("login response carried no token")
	}
	return envelope.Data.AccessToken, nil
}

func check(client *http.Client, base, token string, tgt target) result {
	res := result{Target: tgt}
	method := strings.ToUpper(strings.TrimSpace(tgt.Method))
	if method == "" {
		method = http.MethodGet
	}
	var body io.Reader
	if len(tgt.Body) > 0 {
		body = bytes.NewReader(tgt.Body)
	}
	req, err := http.NewRequest(method, joinURL(base, tgt.Path), body)
	if err != nil {
		res.Err = err
		return res
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if tgt.Auth {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	start := time.Now()
	resp, err := client.Do(req)
	res.Duration = time.Since(start)
	if err != nil {
		res.Err = err
		return res
	}
	defer resp.Body.Close()
	res.Status = resp.StatusCode

	expect := tgt.Expect
	if expect == 0 {
		expect = http.StatusOK
	}
	if res.Status != expect {
		res.Problem = fmt.Sprintf("expected status %d", expect)
		return res
	}
	if tgt.Envelope {
		raw, err := io.ReadAll(resp.Body)
		if err != nil {
			res.Err = fmt.Errorf("read body: %w", err)
			return res
		}
		if problem := envelopeProblem(raw); problem != "" {
			res.Problem = problem
		}
	}
	return res
}

// envelopeProblem reports why raw is not a response envelope, or "".
func envelopeProblem(raw []byte) string {
	var envelope map[string]json.RawMessage
	if err := json.Unmarshal(raw, &envelope); err != nil {
		return "body is not a JSON object"
	}
	_, hasData := envelope["data"]
	_, hasError := envelope["error"]
	if !hasData && !hasError {
		return "envelope has neither data nor error"
	}
	return ""
}

func joinURL(base, path string) string {
	if !strings.HasPrefix(path, "/") {
		path = "/" + path
	}
	return strings.TrimRight(base, "/") + path
}

func printReport(results []result) {
	fmt.Println("Smoke Check Report")
	fmt.Println("==================")
	for _, res := range results {
		status := "OK"
		switch {
		case res.Err != nil:
			status = "ERROR"
		case res.Problem != "":
			status = "FAIL"
		}
		fmt.Printf("[%s] %s %s -> %d (%s)\n", status, res.Target.Method, res.Target.Path, res.Status, res.Duration)
		if res.Err != nil {
			fmt.Printf("  Error: %v\n", res.Err)
		}
		if res.Problem != "" {
			fmt.Printf("  Problem: %s | Critical: %t\n", res.Problem, res.Target.Critical)
		}
	}
}
