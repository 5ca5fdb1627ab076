package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"os"
	"time"
)

func baseURL() string {
	if v := os.Getenv("E2E_BASE_URL"); v != "" {
		return v
	}
	return "http://localhost:8080"
}

func main() {
	// Wait for server to start
	time.Sleep(2 * time.Second)

	// 1. Health Check
	checkEndpoint("GET", "/health", nil, 200)

	// 2. Lots
	checkEndpoint("GET", "/lots", nil, 200)

	// 3. Portfolio snapshot
	body := checkEndpoint("GET", "/portfolio", nil, 200)
	var snap struct {
		Sparkline []float64 `json:"sparkline"`
		DayISO    []string  `json:"dayISO"`
	}
	if err := json.Unmarshal(body, &snap); err != nil {
		log.Fatalf("decode portfolio: %v", err)
	}
	if len(snap.Sparkline) != len(snap.DayISO) {
		log.Fatalf("sparkline has %d points but dayISO has %d", len(snap.Sparkline), len(snap.DayISO))
	}

	// 4. Benchmark on the same days
	checkEndpoint("POST", "/benchmark", map[string]interface{}{"dayISO": snap.DayISO}, 200)

	// 5. Bad benchmark request
	checkEndpoint("POST", "/benchmark", map[string]interface{}{"dayISO": "today"}, 400)

	fmt.Println("ALL TESTS PASSED")
}

func checkEndpoint(method, path string, body interface{}, expectedStatus int) []byte {
	fmt.Printf("Testing %s %s...\n", method, path)
	var bodyReader io.Reader
	if body != nil {
		jsonBody, _ := json.Marshal(body)
		bodyReader = bytes.NewBuffer(jsonBody)
	}

	req, _ := http.NewRequest(method, baseURL()+path, bodyReader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		log.Fatalf("Request failed: %v", err)
	}
	defer resp.Body.Close()

	respBody, _ := io.ReadAll(resp.Body)
	if resp.StatusCode != expectedStatus {
		log.Fatalf("Expected status %d, got %d. Body: %s", expectedStatus, resp.StatusCode, string(respBody))
	}
	fmt.Printf("Response: %s\n", truncate(respBody, 400))
	return respBody
}

func truncate(b []byte, n int) string {
	if len(b) <= n {
		return string(b)
	}
	return string(b[:n]) + "..."
}
