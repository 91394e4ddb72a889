package handler

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/hitoshi/listtoshift/internal/donation"
	"github.com/hitoshi/listtoshift/internal/middleware"
	"github.com/hitoshi/listtoshift/internal/model"
)

type recordedStatuses struct {
	codes []int
}

func (r *recordedStatuses) RecordHTTPStatus(statusCode int) {
	r.codes = append(r.codes, statusCode)
}

// newTestRouter はモックサービスで構成したルーターを返す。
// Bearerトークン"valid-token"のみacc-1として認証する。
func newTestRouter(t *testing.T, authPerMin int) (http.Handler, *recordedStatuses) {
	t.Helper()

	rl := middleware.NewRateLimiter(middleware.NewRateLimiterConfig(120, authPerMin))
	t.Cleanup(rl.Stop)

	statuses := &recordedStatuses{}
	deps := &RouterDeps{
		Logger: slog.New(slog.NewJSONHandler(io.Discard, nil)),
		BearerValidator: &mockBearerValidator{
			validateFn: func(ctx context.Context, token string) (*model.Account, error) {
				if token == "valid-token" {
					return &model.Account{ID: "acc-1", Email: "alice@example.com"}, nil
				}
				return nil, model.ErrAuthenticationFailure
			},
		},
		StatusRecorder:    statuses,
		CORSAllowedOrigin: "http://localhost:3000",
		RateLimiter:       rl,
		HealthChecker:     &mockHealthChecker{},
		MetricsHandler: http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			io.WriteString(w, "# metrics\n")
		}),
		CredentialService: &mockCredentialService{
			signupFn: func(ctx context.Context, email, password string) (*model.SignedToken, error) {
				return &model.SignedToken{Token: "t", ExpiresAt: time.Now().Add(time.Hour)}, nil
			},
			loginFn: func(ctx context.Context, email, password string) (*model.SignedToken, error) {
				return &model.SignedToken{Token: "t", ExpiresAt: time.Now().Add(time.Hour)}, nil
			},
		},
		AccountService: &mockAccountService{},
		DelegationService: &mockDelegationService{
			startConsentFn: func(ctx context.Context, accountID string) (string, error) {
				return "https://accounts.spotify.com/authorize", nil
			},
			completeConsentFn: func(ctx context.Context, state, code string) (string, error) {
				return "acc-1", nil
			},
		},
		BaseURL: "http://localhost:3000",
		CheckoutService: &mockCheckoutService{
			createCheckoutFn: func(ctx context.Context, accountID string) (string, error) {
				return "https://checkout.stripe.com/c/pay/cs_1", nil
			},
		},
		WebhookIngester: &mockWebhookIngester{
			ingestFn: func(ctx context.Context, payload []byte, sig string) (donation.Outcome, error) {
				return donation.OutcomeRecorded, nil
			},
		},
	}

	return NewRouter(deps), statuses
}

func TestNewRouter_Routes(t *testing.T) {
	router, _ := newTestRouter(t, 100)

	tests := []struct {
		name       string
		method     string
		path       string
		body       string
		token      string
		wantStatus int
	}{
		{"health", http.MethodGet, "/health", "", "", http.StatusOK},
		{"metrics", http.MethodGet, "/metrics", "", "", http.StatusOK},
		{"signup", http.MethodPost, "/auth/signup", `{"email":"a@example.com","password":"pw"}`, "", http.StatusCreated},
		{"login", http.MethodPost, "/auth/login", `{"email":"a@example.com","password":"pw"}`, "", http.StatusOK},
		{"me_authenticated", http.MethodGet, "/auth/me", "", "valid-token", http.StatusOK},
		{"me_no_token", http.MethodGet, "/auth/me", "", "", http.StatusUnauthorized},
		{"me_bad_token", http.MethodGet, "/auth/me", "", "forged", http.StatusUnauthorized},
		{"consent", http.MethodGet, "/spotify/consent", "", "valid-token", http.StatusOK},
		{"consent_no_token", http.MethodGet, "/spotify/consent", "", "", http.StatusUnauthorized},
		{"callback_public", http.MethodGet, "/spotify/callback?state=s&code=c", "", "", http.StatusFound},
		{"playlists", http.MethodGet, "/spotify/playlists", "", "valid-token", http.StatusOK},
		{"tracks", http.MethodGet, "/spotify/playlists/p1", "", "valid-token", http.StatusOK},
		{"donate", http.MethodPost, "/donate", "", "valid-token", http.StatusOK},
		{"donate_no_token", http.MethodPost, "/donate", "", "", http.StatusUnauthorized},
		{"webhook_public", http.MethodPost, "/donate/webhook", `{}`, "", http.StatusOK},
		{"withdraw", http.MethodDelete, "/api/accounts/me", "", "valid-token", http.StatusNoContent},
		{"donations", http.MethodGet, "/api/accounts/me/donations", "", "valid-token", http.StatusOK},
		{"unknown", http.MethodGet, "/api/unknown", "", "valid-token", http.StatusNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(tt.method, tt.path, strings.NewReader(tt.body))
			if tt.token != "" {
				req.Header.Set("Authorization", "Bearer "+tt.token)
			}
			w := httptest.NewRecorder()

			router.ServeHTTP(w, req)

			if w.Code != tt.wantStatus {
				t.Errorf("%s %s: status = %d, want %d (body: %s)", tt.method, tt.path, w.Code, tt.wantStatus, w.Body.String())
			}
		})
	}
}

func TestNewRouter_CORSPreflight(t *testing.T) {
	router, _ := newTestRouter(t, 100)

	req := httptest.NewRequest(http.MethodOptions, "/spotify/playlists", nil)
	req.Header.Set("Origin", "http://localhost:3000")
	w := httptest.NewRecorder()

	router.ServeHTTP(w, req)

	if w.Code != http.StatusNoContent {
		t.Errorf("status = %d, want %d", w.Code, http.StatusNoContent)
	}
	if got := w.Header().Get("Access-Control-Allow-Origin"); got != "http://localhost:3000" {
		t.Errorf("Access-Control-Allow-Origin = %q", got)
	}
}

func TestNewRouter_AuthRateLimitPerIP(t *testing.T) {
	router, _ := newTestRouter(t, 1)

	send := func(path string) int {
		req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(`{"email":"a@example.com","password":"pw"}`))
		req.RemoteAddr = "198.51.100.7:4000"
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)
		return w.Code
	}

	if got := send("/auth/login"); got != http.StatusOK {
		t.Fatalf("first login status = %d, want %d", got, http.StatusOK)
	}
	if got := send("/auth/signup"); got != http.StatusTooManyRequests {
		t.Errorf("signup after login status = %d, want %d", got, http.StatusTooManyRequests)
	}
}

func TestNewRouter_RecordsStatusMetrics(t *testing.T) {
	router, statuses := newTestRouter(t, 100)

	req := httptest.NewRequest(http.MethodGet, "/auth/me", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	if len(statuses.codes) != 1 || statuses.codes[0] != http.StatusUnauthorized {
		t.Errorf("recorded statuses = %v, want [401]", statuses.codes)
	}

	var body middleware.ErrorResponseBody
	json.NewDecoder(w.Body).Decode(&body)
	if body.Code != model.ErrCodeUnauthorized {
		t.Errorf("code = %q, want %q", body.Code, model.ErrCodeUnauthorized)
	}
}
