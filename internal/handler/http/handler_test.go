package http_test

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"github.com/gofrs/uuid"
	"github.com/stretchr/testify/require"
	"github.com/vasiliy-maslov/storefront/internal/account"
	"github.com/vasiliy-maslov/storefront/internal/auth"
	storehttp "github.com/vasiliy-maslov/storefront/internal/handler/http"
	"github.com/vasiliy-maslov/storefront/internal/render"
)

var sessionKey = []byte("0123456789abcdef0123456789abcdef")

type testEnv struct {
	accounts *MockAccountService
	catalog  *MockCatalogService
	cart     *MockCartService
	checkout *MockCheckoutService
	reports  *MockReportService
	sessions *auth.SessionManager
	router   http.Handler
}

func newTestEnv(t *testing.T, cfg storehttp.RouterConfig, opts ...storehttp.Option) *testEnv {
	t.Helper()

	views := render.NewTemplateCache()
	require.NoError(t, views.Load())

	env := &testEnv{
		accounts: new(MockAccountService),
		catalog:  new(MockCatalogService),
		cart:     new(MockCartService),
		checkout: new(MockCheckoutService),
		reports:  new(MockReportService),
		sessions: auth.NewSessionManager(auth.NewCookieStore(sessionKey, false)),
	}
	h := storehttp.NewHandler(storehttp.Services{
		Accounts: env.accounts,
		Catalog:  env.catalog,
		Cart:     env.cart,
		Checkout: env.checkout,
		Reports:  env.reports,
	}, env.sessions, views, opts...)
	env.router = h.Routes(cfg)
	return env
}

// signIn returns the cookies of a session for a fresh user with role.
func (e *testEnv) signIn(t *testing.T, role account.Role) (uuid.UUID, []*http.Cookie) {
	t.Helper()
	user := &account.User{ID: uuid.Must(uuid.NewV4()), Username: "tester", Role: role}
	rr := httptest.NewRecorder()
	require.NoError(t, e.sessions.SignIn(rr, httptest.NewRequest(http.MethodPost, "/login", nil), user))
	return user.ID, rr.Result().Cookies()
}

func (e *testEnv) do(method, target, body string, cookies []*http.Cookie) *httptest.ResponseRecorder {
	var reader io.Reader
	if body != "" {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, target, reader)
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	for _, c := range cookies {
		req.AddCookie(c)
	}
	rr := httptest.NewRecorder()
	e.router.ServeHTTP(rr, req)
	return rr
}

func (e *testEnv) postForm(target string, form url.Values, cookies []*http.Cookie) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, target, strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	for _, c := range cookies {
		req.AddCookie(c)
	}
	rr := httptest.NewRecorder()
	e.router.ServeHTTP(rr, req)
	return rr
}

// carry overlays the cookies set by rr on prev, the way a browser would.
func carry(prev []*http.Cookie, rr *httptest.ResponseRecorder) []*http.Cookie {
	byName := make(map[string]*http.Cookie, len(prev))
	order := make([]string, 0, len(prev))
	for _, c := range prev {
		if _, ok := byName[c.Name]; !ok {
			order = append(order, c.Name)
		}
		byName[c.Name] = c
	}
	for _, c := range rr.Result().Cookies() {
		if _, ok := byName[c.Name]; !ok {
			order = append(order, c.Name)
		}
		byName[c.Name] = c
	}

	out := make([]*http.Cookie, 0, len(order))
	for _, name := range order {
		out = append(out, byName[name])
	}
	return out
}

func decodeBody[T any](t *testing.T, rr *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &v), "body: %s", rr.Body.String())
	return v
}
