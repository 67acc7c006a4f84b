// Package e2e_test contains end-to-end tests
package e2e_test

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"testing"
)

// Skip e2e tests if not explicitly enabled
func skipIfNotE2E(t *testing.T) {
	if os.Getenv("E2E_TESTS") != "true" {
		t.Skip("E2E tests not enabled. Set E2E_TESTS=true to run")
	}
}

func apiBase(t *testing.T) string {
	apiURL := os.Getenv("API_URL")
	if apiURL == "" {
		t.Skip("API_URL not set")
	}
	return apiURL
}

func postJSON(t *testing.T, url string, payload any) map[string]interface{} {
	t.Helper()
	body, _ := json.Marshal(payload)

	resp, err := http.Post(url, "application/json", bytes.NewReader(body))
	if err != nil {
		t.Fatalf("Request failed: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		t.Fatalf("Expected success status, got %d for %s", resp.StatusCode, url)
	}

	var result map[string]interface{}
	json.NewDecoder(resp.Body).Decode(&result)
	return result
}

func TestE2E_HealthEndpoint(t *testing.T) {
	skipIfNotE2E(t)
	apiURL := apiBase(t)

	resp, err := http.Get(apiURL + "/health")
	if err != nil {
		t.Fatalf("Request failed: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.Errorf("Expected status 200, got %d", resp.StatusCode)
	}

	var result map[string]interface{}
	json.NewDecoder(resp.Body).Decode(&result)

	data, _ := result["data"].(map[string]interface{})
	if data["status"] != "healthy" {
		t.Errorf("Expected status 'healthy', got %v", data["status"])
	}
}

func TestE2E_LoanProductListing(t *testing.T) {
	skipIfNotE2E(t)
	apiURL := apiBase(t)

	resp, err := http.Get(apiURL + "/api/loan-products?sort_key=interest_rate&sort_dir=asc&size=5")
	if err != nil {
		t.Fatalf("Request failed: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.Errorf("Expected status 200, got %d", resp.StatusCode)
	}

	var result map[string]interface{}
	json.NewDecoder(resp.Body).Decode(&result)

	if result["success"] != true {
		t.Errorf("Expected success=true, got %v", result["success"])
	}
	data, ok := result["data"].(map[string]interface{})
	if !ok {
		t.Fatal("Response should contain a data object")
	}
	if data["products"] == nil {
		t.Error("Response should contain products")
	}
	if data["pagination"] == nil {
		t.Error("Response should contain pagination")
	}
}

func TestE2E_DiscoverySessionLifecycle(t *testing.T) {
	skipIfNotE2E(t)
	apiURL := apiBase(t)

	created := postJSON(t, apiURL+"/api/discovery/sessions", map[string]any{})
	data, _ := created["data"].(map[string]interface{})
	sessionID, _ := data["session_id"].(string)
	if sessionID == "" {
		t.Fatal("Failed to create discovery session")
	}
	defer func() {
		req, _ := http.NewRequest(http.MethodDelete, apiURL+"/api/discovery/sessions/"+sessionID, nil)
		http.DefaultClient.Do(req)
	}()

	// Apply a filter; the update is asynchronous.
	body, _ := json.Marshal(map[string]any{
		"filters": map[string]any{"study_level": "postgraduate"},
	})
	req, _ := http.NewRequest(http.MethodPatch, apiURL+"/api/discovery/sessions/"+sessionID, bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("Patch failed: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusAccepted {
		t.Errorf("Expected status 202, got %d", resp.StatusCode)
	}
}

func TestE2E_ChatWizardFlow(t *testing.T) {
	skipIfNotE2E(t)
	apiURL := apiBase(t)

	created := postJSON(t, apiURL+"/api/chat/sessions", map[string]any{})
	data, _ := created["data"].(map[string]interface{})
	sessionID, _ := data["id"].(string)
	if sessionID == "" {
		t.Fatal("Failed to create chat session")
	}
	actionsURL := fmt.Sprintf("%s/api/chat/sessions/%s/actions", apiURL, sessionID)

	steps := []map[string]any{
		{"action": "study-level", "value": "masters"},
		{"action": "admit-status", "value": "admitted"},
		{"action": "intended-date", "month": "september", "year": 2027},
		{"action": "university", "value": "Stanford University"},
	}
	for _, step := range steps {
		result := postJSON(t, actionsURL, step)
		if result["success"] != true {
			t.Fatalf("Step %v failed: %v", step["action"], result["error"])
		}
	}

	result := postJSON(t, fmt.Sprintf("%s/api/chat/sessions/%s/reset", apiURL, sessionID), map[string]any{})
	data, _ = result["data"].(map[string]interface{})
	if data["step"] != "study-level" {
		t.Errorf("Expected reset to land on study-level, got %v", data["step"])
	}
}

func TestE2E_CompareExport(t *testing.T) {
	skipIfNotE2E(t)
	apiURL := apiBase(t)

	resp, err := http.Get(apiURL + "/api/loan-products?size=2")
	if err != nil {
		t.Fatalf("Request failed: %v", err)
	}
	var listing map[string]interface{}
	json.NewDecoder(resp.Body).Decode(&listing)
	resp.Body.Close()

	data, _ := listing["data"].(map[string]interface{})
	products, _ := data["products"].([]interface{})
	if len(products) < 2 {
		t.Skip("Need at least two seeded loan products")
	}

	var ids []string
	for _, p := range products {
		product, _ := p.(map[string]interface{})
		if id, ok := product["id"].(string); ok {
			ids = append(ids, id)
		}
	}

	body, _ := json.Marshal(map[string]any{"ids": ids})
	resp, err = http.Post(apiURL+"/api/loan-products/export", "application/json", bytes.NewReader(body))
	if err != nil {
		t.Fatalf("Export failed: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.Errorf("Expected status 200, got %d", resp.StatusCode)
	}
	if ct := resp.Header.Get("Content-Type"); ct != "text/csv" {
		t.Errorf("Expected text/csv, got %s", ct)
	}
}
