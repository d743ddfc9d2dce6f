package services

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestCreatePredictionParsesResponse(t *testing.T) {
	var gotAuth, gotClientID string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		gotClientID = r.Header.Get("Client-Id")

		json.NewEncoder(w).Encode(map[string]interface{}{
			"data": []map[string]interface{}{
				{
					"id": "pred-xyz",
					"outcomes": []map[string]interface{}{
						{"id": "o1", "title": "Yes"},
						{"id": "o2", "title": "No"},
					},
				},
			},
		})
	}))
	defer server.Close()

	client := NewTwitchClient(server.URL, "client-123", "token-abc")
	prediction, err := client.CreatePrediction("chan-1", "Will we win?", []string{"Yes", "No"}, 240)

	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	if prediction.ID != "pred-xyz" {
		t.Errorf("Expected prediction ID 'pred-xyz', got '%s'", prediction.ID)
	}
	if len(prediction.Outcomes) != 2 {
		t.Fatalf("Expected 2 outcomes, got %d", len(prediction.Outcomes))
	}
	if prediction.Outcomes[0].ID != "o1" || prediction.Outcomes[0].Title != "Yes" {
		t.Errorf("Expected first outcome (o1, Yes), got (%s, %s)", prediction.Outcomes[0].ID, prediction.Outcomes[0].Title)
	}
	if gotAuth != "Bearer token-abc" {
		t.Errorf("Expected bearer auth header, got '%s'", gotAuth)
	}
	if gotClientID != "client-123" {
		t.Errorf("Expected Client-Id header 'client-123', got '%s'", gotClientID)
	}
}

func TestNotFoundMapsToSentinelError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer server.Close()

	client := NewTwitchClient(server.URL, "client", "token")

	if err := client.LockPrediction("chan-1", "gone"); err != ErrPredictionNotFound {
		t.Errorf("Expected ErrPredictionNotFound for 404, got %v", err)
	}
	if err := client.CancelPrediction("chan-1", "gone"); err != ErrPredictionNotFound {
		t.Errorf("Expected ErrPredictionNotFound for 404 cancel, got %v", err)
	}
}

func TestServerErrorSurfacedWithBody(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
		w.Write([]byte(`{"message":"rate limited"}`))
	}))
	defer server.Close()

	client := NewTwitchClient(server.URL, "client", "token")

	err := client.ResolvePrediction("chan-1", "pred-1", "o1")
	if err == nil {
		t.Fatal("Expected error for 429 response")
	}
	if err == ErrPredictionNotFound {
		t.Error("Expected generic error, not the not-found sentinel")
	}
}

func TestResolveSendsWinningOutcome(t *testing.T) {
	var gotBody map[string]interface{}
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewDecoder(r.Body).Decode(&gotBody)
		w.Write([]byte(`{"data":[]}`))
	}))
	defer server.Close()

	client := NewTwitchClient(server.URL, "client", "token")
	if err := client.ResolvePrediction("chan-1", "pred-1", "outcome-win"); err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}

	if gotBody["status"] != "RESOLVED" {
		t.Errorf("Expected status RESOLVED, got %v", gotBody["status"])
	}
	if gotBody["winning_outcome_id"] != "outcome-win" {
		t.Errorf("Expected winning outcome 'outcome-win', got %v", gotBody["winning_outcome_id"])
	}
}
