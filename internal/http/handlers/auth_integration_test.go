package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-redis/redis/v8"
	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"github.com/ong-aas/claims-portal/internal/auth"
	"github.com/ong-aas/claims-portal/internal/http/respond"
	"github.com/ong-aas/claims-portal/internal/models"
	"github.com/ong-aas/claims-portal/internal/models/dto"
	"github.com/ong-aas/claims-portal/internal/session"
	"github.com/ong-aas/claims-portal/internal/storage/postgres"
)

// TestAuthIntegration exercises register/login/me against a live Postgres database.
func TestAuthIntegration(t *testing.T) {
	if os.Getenv("RUN_STORE_INTEGRATION") != "true" {
		t.Skip("set RUN_STORE_INTEGRATION=true to run this integration test")
	}

	loadDotEnv()
	dbURL := mustGetEnv(t, "DATABASE_URL")

	ctx := context.Background()
	store, err := postgres.NewStore(ctx, dbURL)
	if err != nil {
		t.Fatalf("init store: %v", err)
	}
	defer store.Close()

	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer rdb.Close()

	tokens := auth.NewTokenManager("integration-secret", "claims-portal", time.Hour)
	sessions := session.New(store, rdb, tokens, session.Options{MaxAttempts: 5, Lockout: time.Minute}, zap.NewNop())

	mux := http.NewServeMux()
	NewAuthHandler(store, sessions, zap.NewNop()).Register(mux)
	ts := httptest.NewServer(mux)
	defer ts.Close()

	// 8-digit phone unique per run.
	phone := fmt.Sprintf("9%07d", time.Now().UnixNano()%10_000_000)
	pin := "2468"

	registered := requestRegister(t, ts.URL, dto.RegisterRequest{
		FullName:          "Integration Member",
		CarNumber:         "0000TT00",
		PhoneNumber:       phone,
		PIN:               pin,
		ProfileImage:      "https://objects.test/profiles/p.jpg",
		DriverLicense:     "https://objects.test/profiles/l.pdf",
		InsuranceDocument: "https://objects.test/profiles/i.pdf",
		InsuranceStart:    "2025-01-01",
		InsuranceEnd:      "2026-01-01",
	})
	if registered.PhoneNumber != phone || registered.Verified || registered.Role != models.RoleUser {
		t.Fatalf("register mismatch: got %+v", registered)
	}

	loggedIn := requestLogin(t, ts.URL, phone, pin)
	if loggedIn.User.ID != registered.ID {
		t.Fatalf("login returned wrong user id: want %s got %s", registered.ID, loggedIn.User.ID)
	}
	if strings.TrimSpace(loggedIn.Token) == "" {
		t.Fatal("login response missing token")
	}

	req, _ := http.NewRequest(http.MethodGet, ts.URL+"/me", nil)
	req.Header.Set("Authorization", "Bearer "+loggedIn.Token)
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("me request failed: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("me status = %d", resp.StatusCode)
	}

	t.Logf("registered %s (id=%s) and logged in via /login", phone, registered.ID)
}

func decodeEnvelope(t *testing.T, resp *http.Response, into any) {
	t.Helper()
	var env respond.Envelope
	env.Data = into
	if err := json.NewDecoder(resp.Body).Decode(&env); err != nil {
		t.Fatalf("decode response: %v", err)
	}
}

func requestRegister(t *testing.T, baseURL string, payload dto.RegisterRequest) models.User {
	t.Helper()
	resp := postJSON(t, baseURL+"/register", payload)
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("register status = %d", resp.StatusCode)
	}
	var out models.User
	decodeEnvelope(t, resp, &out)
	return out
}

func requestLogin(t *testing.T, baseURL, phone, pin string) dto.LoginResponse {
	t.Helper()
	resp := postJSON(t, baseURL+"/login", dto.LoginRequest{PhoneNumber: phone, PIN: pin})
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("login status = %d", resp.StatusCode)
	}
	var out dto.LoginResponse
	decodeEnvelope(t, resp, &out)
	return out
}

func postJSON(t *testing.T, url string, payload any) *http.Response {
	t.Helper()
	body, err := json.Marshal(payload)
	if err != nil {
		t.Fatalf("marshal payload: %v", err)
	}
	req, err := http.NewRequest(http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		t.Fatalf("build request: %v", err)
	}
	req.Header.Set("Content-Type", "application/json")
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	return resp
}

func mustGetEnv(t *testing.T, key string) string {
	t.Helper()
	val := strings.TrimSpace(os.Getenv(key))
	if val == "" {
		t.Fatalf("%s is required", key)
	}
	return val
}

func loadDotEnv() {
	for _, path := range []string{".env", "../.env", "../../.env", "../../../.env"} {
		_ = godotenv.Overload(path)
	}
}
