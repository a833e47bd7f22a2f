package httpapi

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/labstack/echo/v4"
	"github.com/redis/go-redis/v9"

	"github.com/avirel-labs/authcore"
	"github.com/avirel-labs/authcore/password"
)

type memoryProvider struct {
	accounts map[string]*authcore.Account
}

func (m *memoryProvider) FindByCanonicalEmail(_ context.Context, email string) (*authcore.Account, error) {
	if acct, ok := m.accounts[email]; ok {
		cp := *acct
		return &cp, nil
	}
	return nil, nil
}

func (m *memoryProvider) FindByNormalizedEmail(_ context.Context, normalized string) (*authcore.Account, error) {
	for _, acct := range m.accounts {
		if acct.NormalizedEmail == normalized {
			cp := *acct
			return &cp, nil
		}
	}
	return nil, nil
}

func apiTestConfig() authcore.Config {
	cfg := authcore.DefaultConfig()
	cfg.Password = authcore.PasswordConfig{
		Memory:      8192,
		Time:        1,
		Parallelism: 1,
		SaltLength:  16,
		KeyLength:   16,
	}
	cfg.Notify.Enabled = false
	return cfg
}

func newTestAPI(t *testing.T) (*echo.Echo, *authcore.Engine) {
	t.Helper()

	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("miniredis.Run failed: %v", err)
	}
	t.Cleanup(mr.Close)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})

	cfg := apiTestConfig()
	v, err := password.NewVerifier(password.Params{
		Memory:      cfg.Password.Memory,
		Time:        cfg.Password.Time,
		Parallelism: cfg.Password.Parallelism,
		SaltLength:  cfg.Password.SaltLength,
		KeyLength:   cfg.Password.KeyLength,
	})
	if err != nil {
		t.Fatalf("NewVerifier failed: %v", err)
	}
	hash, err := v.Derive("abcdef")
	if err != nil {
		t.Fatalf("Derive failed: %v", err)
	}

	provider := &memoryProvider{accounts: map[string]*authcore.Account{
		"Login.Test@Example.org": {
			UID:             "4c2f6e1a9d874b3a8f0deadbeef01234",
			Email:           "Login.Test@Example.org",
			NormalizedEmail: "login.test@example.org",
			VerifyHash:      hash,
			Verified:        true,
		},
	}}

	engine, err := authcore.New().
		WithConfig(cfg).
		WithRedis(rdb).
		WithAccountProvider(provider).
		Build()
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}
	t.Cleanup(engine.Close)

	e := echo.New()
	NewHandler(engine, nil).RegisterRoutes(e)
	return e, engine
}

func doJSON(t *testing.T, e *echo.Echo, method, target, body string) *httptest.ResponseRecorder {
	t.Helper()

	req := httptest.NewRequest(method, target, strings.NewReader(body))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	return rec
}

func decodeBody(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()

	var got map[string]any
	if err := json.Unmarshal(rec.Body.Bytes(), &got); err != nil {
		t.Fatalf("response does not decode: %v (%s)", err, rec.Body.String())
	}
	return got
}

func TestLoginEndpointSuccess(t *testing.T) {
	e, _ := newTestAPI(t)

	rec := doJSON(t, e, http.MethodPost, "/v1/account/login",
		`{"email":"Login.Test@Example.org","password":"abcdef"}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}

	got := decodeBody(t, rec)
	if got["uid"] != "4c2f6e1a9d874b3a8f0deadbeef01234" {
		t.Fatalf("unexpected uid %v", got["uid"])
	}
	if got["sessionToken"] == "" || got["sessionToken"] == nil {
		t.Fatal("expected a session token")
	}
	if got["verified"] != true {
		t.Fatalf("expected verified true, got %v", got["verified"])
	}
	// keyFetchToken must be present and explicitly null without keys=true.
	if v, present := got["keyFetchToken"]; !present || v != nil {
		t.Fatalf("expected explicit null keyFetchToken, got %v (present=%v)", v, present)
	}
	if !strings.Contains(rec.Body.String(), `"keyFetchToken":null`) {
		t.Fatalf("expected literal null in body, got %s", rec.Body.String())
	}
}

func TestLoginEndpointWithKeys(t *testing.T) {
	e, _ := newTestAPI(t)

	rec := doJSON(t, e, http.MethodPost, "/v1/account/login?keys=true",
		`{"email":"Login.Test@Example.org","password":"abcdef"}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}

	got := decodeBody(t, rec)
	tok, ok := got["keyFetchToken"].(string)
	if !ok || tok == "" {
		t.Fatalf("expected keyFetchToken string, got %v", got["keyFetchToken"])
	}
}

func TestLoginEndpointUnknownAccount(t *testing.T) {
	e, _ := newTestAPI(t)

	rec := doJSON(t, e, http.MethodPost, "/v1/account/login",
		`{"email":"nobody@example.org","password":"abcdef"}`)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}

	got := decodeBody(t, rec)
	if got["errno"] != float64(102) || got["message"] != "Unknown account" {
		t.Fatalf("unexpected body %v", got)
	}
	if _, present := got["email"]; present {
		t.Fatal("errno 102 must not include an email")
	}
}

func TestLoginEndpointIncorrectPassword(t *testing.T) {
	e, _ := newTestAPI(t)

	rec := doJSON(t, e, http.MethodPost, "/v1/account/login",
		`{"email":"Login.Test@Example.org","password":"wrong"}`)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}

	got := decodeBody(t, rec)
	if got["errno"] != float64(103) {
		t.Fatalf("expected errno 103, got %v", got["errno"])
	}
	if got["email"] != "Login.Test@Example.org" {
		t.Fatalf("expected canonical email, got %v", got["email"])
	}
}

func TestLoginEndpointIncorrectEmailCase(t *testing.T) {
	e, _ := newTestAPI(t)

	rec := doJSON(t, e, http.MethodPost, "/v1/account/login",
		`{"email":"login.test@example.org","password":"abcdef"}`)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}

	got := decodeBody(t, rec)
	if got["errno"] != float64(120) || got["message"] != "Incorrect email case" {
		t.Fatalf("unexpected body %v", got)
	}
	if got["email"] != "Login.Test@Example.org" {
		t.Fatalf("expected signup casing echoed, got %v", got["email"])
	}
}

func TestLockRoutesDriveErrno121(t *testing.T) {
	e, _ := newTestAPI(t)
	uid := "4c2f6e1a9d874b3a8f0deadbeef01234"

	rec := doJSON(t, e, http.MethodPost, "/v1/account/lock", `{"uid":"`+uid+`","reason":"test"}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("lock failed: %d %s", rec.Code, rec.Body.String())
	}

	rec = doJSON(t, e, http.MethodGet, "/v1/account/"+uid+"/lock", "")
	if got := decodeBody(t, rec); got["locked"] != true {
		t.Fatalf("expected locked status, got %v", got)
	}

	rec = doJSON(t, e, http.MethodPost, "/v1/account/login",
		`{"email":"Login.Test@Example.org","password":"abcdef"}`)
	got := decodeBody(t, rec)
	if rec.Code != http.StatusBadRequest || got["errno"] != float64(121) {
		t.Fatalf("expected errno 121, got %d %v", rec.Code, got)
	}
	if got["message"] != "Account is locked" {
		t.Fatalf("unexpected message %v", got["message"])
	}

	rec = doJSON(t, e, http.MethodPost, "/v1/account/unlock", `{"uid":"`+uid+`"}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("unlock failed: %d", rec.Code)
	}
	rec = doJSON(t, e, http.MethodPost, "/v1/account/login",
		`{"email":"Login.Test@Example.org","password":"abcdef"}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected login to succeed after unlock, got %d", rec.Code)
	}
}

func TestSessionRoutes(t *testing.T) {
	e, _ := newTestAPI(t)

	rec := doJSON(t, e, http.MethodPost, "/v1/account/login",
		`{"email":"Login.Test@Example.org","password":"abcdef"}`)
	tok := decodeBody(t, rec)["sessionToken"].(string)

	rec = doJSON(t, e, http.MethodPost, "/v1/session/status", `{"sessionToken":"`+tok+`"}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("status failed: %d", rec.Code)
	}

	rec = doJSON(t, e, http.MethodPost, "/v1/session/destroy", `{"sessionToken":"`+tok+`"}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("destroy failed: %d", rec.Code)
	}

	rec = doJSON(t, e, http.MethodPost, "/v1/session/status", `{"sessionToken":"`+tok+`"}`)
	got := decodeBody(t, rec)
	if rec.Code != http.StatusUnauthorized || got["errno"] != float64(110) {
		t.Fatalf("expected 401/110 after destroy, got %d %v", rec.Code, got)
	}
}

func TestLoginEndpointMissingParameters(t *testing.T) {
	e, _ := newTestAPI(t)

	rec := doJSON(t, e, http.MethodPost, "/v1/account/login", `{"email":"a@b.c"}`)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
	if got := decodeBody(t, rec); got["message"] != "Missing parameter in request body" {
		t.Fatalf("unexpected body %v", got)
	}

	rec = doJSON(t, e, http.MethodPost, "/v1/account/login", `{not json`)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for bad JSON, got %d", rec.Code)
	}
}
