package integration

import (
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/spendtrack/spendtrack/internal/config"
	apihttp "github.com/spendtrack/spendtrack/internal/http"
	"github.com/spendtrack/spendtrack/internal/repo/memory"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func testConfig() config.Config {
	return config.Config{
		Env:       "test",
		JWTSecret: "test-secret-key",
		TokenTTL:  24 * time.Hour,

		AllowedOrigins: []string{"http://localhost:8080"},
		MaxBodyBytes:   1 << 20,

		AuthRateLimit:   1000,
		APIRateLimit:    1000,
		RateLimitWindow: time.Minute,
	}
}

func newTestServer() http.Handler {
	log := slog.New(slog.NewJSONHandler(io.Discard, nil))

	return apihttp.NewRouter(log, testConfig(), apihttp.Deps{
		Users:    memory.NewUsersRepo(),
		Expenses: memory.NewExpensesRepo(),
	})
}

type env struct {
	Success bool            `json:"success"`
	Message string          `json:"message"`
	Token   string          `json:"token"`
	Count   int             `json:"count"`
	Data    json.RawMessage `json:"data"`
}

func do(t *testing.T, r http.Handler, method, path, token, body string) (int, env) {
	t.Helper()

	req := httptest.NewRequest(method, path, strings.NewReader(body))
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	var out env
	if len(w.Body.Bytes()) > 0 {
		if err := json.Unmarshal(w.Body.Bytes(), &out); err != nil {
			t.Fatalf("%s %s: bad envelope: %v body=%s", method, path, err, w.Body.String())
		}
	}

	return w.Code, out
}

func register(t *testing.T, r http.Handler, name, email, password string) string {
	t.Helper()

	code, out := do(t, r, http.MethodPost, "/api/auth/register", "",
		fmt.Sprintf(`{"name":%q,"email":%q,"password":%q}`, name, email, password))

	if code != http.StatusOK {
		t.Fatalf("register %s: status = %d, message=%q", email, code, out.Message)
	}
	if out.Token == "" {
		t.Fatalf("register %s: no token", email)
	}
	return out.Token
}

func createExpense(t *testing.T, r http.Handler, token, title string, amount float64, category, date string) string {
	t.Helper()

	code, out := do(t, r, http.MethodPost, "/api/expense", token,
		fmt.Sprintf(`{"title":%q,"amount":%v,"category":%q,"date":%q}`, title, amount, category, date))

	if code != http.StatusCreated {
		t.Fatalf("create %q: status = %d, message=%q", title, code, out.Message)
	}

	var e struct {
		ID string `json:"id"`
	}
	if err := json.Unmarshal(out.Data, &e); err != nil || e.ID == "" {
		t.Fatalf("create %q: no id in %s", title, string(out.Data))
	}
	return e.ID
}

func TestRegisterLoginRoundTrip(t *testing.T) {
	r := newTestServer()

	register(t, r, "Ann", "ann@example.com", "correct-horse-battery")

	code, out := do(t, r, http.MethodPost, "/api/auth/login", "",
		`{"email":"ann@example.com","password":"correct-horse-battery"}`)

	if code != http.StatusOK {
		t.Fatalf("login: status = %d, message=%q", code, out.Message)
	}
	if out.Token == "" {
		t.Fatal("login: no token")
	}

	code, out = do(t, r, http.MethodGet, "/api/auth/info", out.Token, "")
	if code != http.StatusOK {
		t.Fatalf("info: status = %d", code)
	}

	var u struct {
		Email string `json:"email"`
	}
	if err := json.Unmarshal(out.Data, &u); err != nil {
		t.Fatalf("info: bad payload: %v", err)
	}
	if u.Email != "ann@example.com" {
		t.Fatalf("info: email = %q", u.Email)
	}
}

func TestRegisterDuplicateEmail(t *testing.T) {
	r := newTestServer()

	register(t, r, "Ann", "ann@example.com", "correct-horse-battery")

	code, out := do(t, r, http.MethodPost, "/api/auth/register", "",
		`{"name":"Ann2","email":"ann@example.com","password":"correct-horse-battery"}`)

	if code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", code)
	}
	if out.Message != "User already exists" {
		t.Fatalf("message = %q", out.Message)
	}
}

func TestLoginFailures(t *testing.T) {
	r := newTestServer()

	register(t, r, "Ann", "ann@example.com", "correct-horse-battery")

	tests := []struct {
		name       string
		body       string
		wantStatus int
	}{
		{"unknown email", `{"email":"bob@example.com","password":"correct-horse-battery"}`, http.StatusNotFound},
		{"wrong password", `{"email":"ann@example.com","password":"wrong-wrong-wrong"}`, http.StatusUnauthorized},
		{"missing fields", `{"email":"ann@example.com"}`, http.StatusBadRequest},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			code, out := do(t, r, http.MethodPost, "/api/auth/login", "", tc.body)
			if code != tc.wantStatus {
				t.Fatalf("status = %d, want %d (%q)", code, tc.wantStatus, out.Message)
			}
			if out.Success {
				t.Fatal("success must be false")
			}
		})
	}
}

func TestProtectedRoutesRequireToken(t *testing.T) {
	r := newTestServer()

	paths := []struct {
		method, path string
	}{
		{http.MethodGet, "/api/auth/info"},
		{http.MethodGet, "/api/expense/expenses"},
		{http.MethodGet, "/api/expense/stats"},
		{http.MethodDelete, "/api/expense/some-id"},
	}

	for _, p := range paths {
		code, out := do(t, r, p.method, p.path, "", "")
		if code != http.StatusUnauthorized {
			t.Fatalf("%s %s: status = %d, want 401", p.method, p.path, code)
		}
		if out.Message != "You are not authorized to access this route" {
			t.Fatalf("%s %s: message = %q", p.method, p.path, out.Message)
		}
	}
}

func TestExpenseCRUDRoundTrip(t *testing.T) {
	r := newTestServer()
	token := register(t, r, "Ann", "ann@example.com", "correct-horse-battery")

	id := createExpense(t, r, token, "Coffee", 4.5, "food", "2026-08-01")

	// read back
	code, out := do(t, r, http.MethodGet, "/api/expense/"+id, token, "")
	if code != http.StatusOK {
		t.Fatalf("get: status = %d", code)
	}

	var got struct {
		Title    string  `json:"title"`
		Amount   float64 `json:"amount"`
		Category string  `json:"category"`
	}
	if err := json.Unmarshal(out.Data, &got); err != nil {
		t.Fatalf("get: bad payload: %v", err)
	}
	if got.Title != "Coffee" || got.Amount != 4.5 || got.Category != "food" {
		t.Fatalf("get: unexpected payload: %+v", got)
	}

	// update; padding around the title must not survive persistence
	code, out = do(t, r, http.MethodPut, "/api/expense/"+id, token,
		`{"title":"  Espresso  ","amount":5.5,"category":"food","date":"2026-08-02"}`)
	if code != http.StatusOK {
		t.Fatalf("update: status = %d message=%q", code, out.Message)
	}
	if err := json.Unmarshal(out.Data, &got); err != nil {
		t.Fatalf("update: bad payload: %v", err)
	}
	if got.Title != "Espresso" || got.Amount != 5.5 {
		t.Fatalf("update: unexpected payload: %+v", got)
	}

	// delete echoes the id
	code, out = do(t, r, http.MethodDelete, "/api/expense/"+id, token, "")
	if code != http.StatusOK {
		t.Fatalf("delete: status = %d", code)
	}

	var echoed struct {
		ID string `json:"id"`
	}
	if err := json.Unmarshal(out.Data, &echoed); err != nil || echoed.ID != id {
		t.Fatalf("delete: echoed %q, want %q", echoed.ID, id)
	}

	// gone now
	code, out = do(t, r, http.MethodGet, "/api/expense/"+id, token, "")
	if code != http.StatusNotFound {
		t.Fatalf("get after delete: status = %d, want 404", code)
	}
	if out.Message != "Expense not found" {
		t.Fatalf("get after delete: message = %q", out.Message)
	}
}

func TestExpenseListCount(t *testing.T) {
	r := newTestServer()
	token := register(t, r, "Ann", "ann@example.com", "correct-horse-battery")

	createExpense(t, r, token, "Coffee", 4.5, "food", "2026-08-01")
	createExpense(t, r, token, "Bus", 2.75, "transportation", "2026-08-02")

	code, out := do(t, r, http.MethodGet, "/api/expense/expenses", token, "")
	if code != http.StatusOK {
		t.Fatalf("list: status = %d", code)
	}
	if out.Count != 2 {
		t.Fatalf("count = %d, want 2", out.Count)
	}
}

func TestCrossUserIsolation(t *testing.T) {
	r := newTestServer()

	annToken := register(t, r, "Ann", "ann@example.com", "correct-horse-battery")
	bobToken := register(t, r, "Bob", "bob@example.com", "correct-horse-battery")

	annExpense := createExpense(t, r, annToken, "Coffee", 4.5, "food", "2026-08-01")

	// Bob sees an empty list, not Ann's data.
	code, out := do(t, r, http.MethodGet, "/api/expense/expenses", bobToken, "")
	if code != http.StatusOK || out.Count != 0 {
		t.Fatalf("bob list: status=%d count=%d", code, out.Count)
	}

	// Another user's id behaves exactly like a missing one.
	if code, _ := do(t, r, http.MethodGet, "/api/expense/"+annExpense, bobToken, ""); code != http.StatusNotFound {
		t.Fatalf("bob get: status = %d, want 404", code)
	}
	if code, _ := do(t, r, http.MethodPut, "/api/expense/"+annExpense, bobToken,
		`{"title":"Hijack","amount":1,"category":"other","date":"2026-08-01"}`); code != http.StatusNotFound {
		t.Fatalf("bob update: status = %d, want 404", code)
	}
	if code, _ := do(t, r, http.MethodDelete, "/api/expense/"+annExpense, bobToken, ""); code != http.StatusNotFound {
		t.Fatalf("bob delete: status = %d, want 404", code)
	}

	// Ann's expense survived the attempts.
	if code, _ := do(t, r, http.MethodGet, "/api/expense/"+annExpense, annToken, ""); code != http.StatusOK {
		t.Fatalf("ann get after bob's attempts: status = %d", code)
	}
}

func TestStatsSingleExpense(t *testing.T) {
	r := newTestServer()
	token := register(t, r, "Ann", "ann@example.com", "correct-horse-battery")

	today := time.Now().UTC().Format("2006-01-02")
	createExpense(t, r, token, "Coffee", 4.5, "food", today)

	code, out := do(t, r, http.MethodGet, "/api/expense/stats", token, "")
	if code != http.StatusOK {
		t.Fatalf("stats: status = %d", code)
	}

	var stats struct {
		Total      float64 `json:"total"`
		ByCategory []struct {
			ID    string  `json:"_id"`
			Total float64 `json:"total"`
		} `json:"byCategory"`
		ByMonth []struct {
			ID struct {
				Year  int `json:"year"`
				Month int `json:"month"`
			} `json:"_id"`
			Total float64 `json:"total"`
		} `json:"byMonth"`
	}
	if err := json.Unmarshal(out.Data, &stats); err != nil {
		t.Fatalf("stats: bad payload: %v data=%s", err, string(out.Data))
	}

	if stats.Total != 4.5 {
		t.Fatalf("total = %v, want 4.5", stats.Total)
	}
	if len(stats.ByCategory) != 1 || stats.ByCategory[0].ID != "food" || stats.ByCategory[0].Total != 4.5 {
		t.Fatalf("unexpected byCategory: %+v", stats.ByCategory)
	}

	now := time.Now().UTC()
	if len(stats.ByMonth) != 1 || stats.ByMonth[0].ID.Year != now.Year() || stats.ByMonth[0].ID.Month != int(now.Month()) {
		t.Fatalf("unexpected byMonth: %+v", stats.ByMonth)
	}
}

func TestStatsEmptyShape(t *testing.T) {
	r := newTestServer()
	token := register(t, r, "Ann", "ann@example.com", "correct-horse-battery")

	code, out := do(t, r, http.MethodGet, "/api/expense/stats", token, "")
	if code != http.StatusOK {
		t.Fatalf("stats: status = %d", code)
	}

	// Empty aggregations serialize as [] rather than null.
	body := string(out.Data)
	if !strings.Contains(body, `"byCategory":[]`) || !strings.Contains(body, `"byMonth":[]`) {
		t.Fatalf("empty stats must keep array shape: %s", body)
	}
}

func TestCreateValidationThroughRouter(t *testing.T) {
	r := newTestServer()
	token := register(t, r, "Ann", "ann@example.com", "correct-horse-battery")

	tests := []struct {
		name      string
		body      string
		wantInMsg string
	}{
		{
			name:      "bad category",
			body:      `{"title":"Coffee","amount":4.5,"category":"snacks","date":"2026-08-01"}`,
			wantInMsg: "category",
		},
		{
			name:      "whitespace-only title",
			body:      `{"title":"   ","amount":4.5,"category":"food","date":"2026-08-01"}`,
			wantInMsg: "title",
		},
		{
			name:      "missing date",
			body:      `{"title":"Coffee","amount":4.5,"category":"food"}`,
			wantInMsg: "date",
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			code, out := do(t, r, http.MethodPost, "/api/expense", token, tc.body)

			if code != http.StatusBadRequest {
				t.Fatalf("status = %d, want 400 (%q)", code, out.Message)
			}
			if !strings.Contains(out.Message, tc.wantInMsg) {
				t.Fatalf("message = %q, want it to mention %q", out.Message, tc.wantInMsg)
			}
		})
	}

	// nothing above must have persisted
	code, out := do(t, r, http.MethodGet, "/api/expense/expenses", token, "")
	if code != http.StatusOK || out.Count != 0 {
		t.Fatalf("rejected requests leaked into the store: status=%d count=%d", code, out.Count)
	}
}

func TestPostWithoutJSONContentType(t *testing.T) {
	r := newTestServer()

	req := httptest.NewRequest(http.MethodPost, "/api/auth/register",
		strings.NewReader(`{"name":"Ann","email":"ann@example.com","password":"correct-horse-battery"}`))
	req.Header.Set("Content-Type", "text/plain")

	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	if w.Code != http.StatusUnsupportedMediaType {
		t.Fatalf("status = %d, want 415", w.Code)
	}
}

func TestHealthAndMetricsEndpoints(t *testing.T) {
	r := newTestServer()

	for _, path := range []string{"/healthz", "/readyz"} {
		req := httptest.NewRequest(http.MethodGet, path, nil)
		w := httptest.NewRecorder()
		r.ServeHTTP(w, req)

		if w.Code != http.StatusOK {
			t.Fatalf("%s: status = %d", path, w.Code)
		}
	}

	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("/metrics: status = %d", w.Code)
	}
}

func TestAuthRateLimit(t *testing.T) {
	cfg := testConfig()
	cfg.AuthRateLimit = 2

	log := slog.New(slog.NewJSONHandler(io.Discard, nil))
	r := apihttp.NewRouter(log, cfg, apihttp.Deps{
		Users:    memory.NewUsersRepo(),
		Expenses: memory.NewExpensesRepo(),
	})

	body := `{"email":"nobody@example.com","password":"whatever-it-is"}`

	for i := 0; i < 2; i++ {
		code, _ := do(t, r, http.MethodPost, "/api/auth/login", "", body)
		if code == http.StatusTooManyRequests {
			t.Fatalf("request %d throttled below the limit", i+1)
		}
	}

	code, out := do(t, r, http.MethodPost, "/api/auth/login", "", body)
	if code != http.StatusTooManyRequests {
		t.Fatalf("status = %d, want 429", code)
	}
	if out.Success {
		t.Fatal("throttled response must have success=false")
	}
}
