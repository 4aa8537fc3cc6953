package web

import (
	"context"
	"encoding/json"
	"io"
	"net"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/dmitrijs2005/gotodo/internal/common"
	"github.com/dmitrijs2005/gotodo/internal/logging"
	"github.com/dmitrijs2005/gotodo/internal/server/auth"
	"github.com/dmitrijs2005/gotodo/internal/server/models"
	"github.com/dmitrijs2005/gotodo/internal/server/repositories/repomanager"
	"github.com/dmitrijs2005/gotodo/internal/server/revocation"
	"github.com/dmitrijs2005/gotodo/internal/server/services"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

type testEnv struct {
	srv     *HTTPServer
	handler http.Handler
	codec   *auth.TokenCodec
	gate    *auth.SessionGate
	rm      *repomanager.InMemoryRepositoryManager
	store   *revocation.MemoryStore
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	hasher, err := auth.NewBcryptHasher(bcrypt.MinCost)
	require.NoError(t, err)
	codec, err := auth.NewTokenCodec([]byte("test-secret"))
	require.NoError(t, err)

	rm := repomanager.NewInMemoryRepositoryManager()
	store := revocation.NewMemoryStore()
	gate := auth.NewSessionGate(codec, auth.WithRevocations(store))
	us := services.NewUserService(rm, hasher, codec, 60*time.Minute, services.WithRevocationStore(store))
	ts := services.NewTodoService(rm, nil)

	srv, err := NewHTTPServer(Options{Address: "127.0.0.1:0"}, logging.Nop{}, us, ts, gate)
	require.NoError(t, err)

	return &testEnv{srv: srv, handler: srv.Router(), codec: codec, gate: gate, rm: rm, store: store}
}

func (e *testEnv) do(r *http.Request, cookies ...*http.Cookie) *httptest.ResponseRecorder {
	for _, c := range cookies {
		r.AddCookie(c)
	}
	rec := httptest.NewRecorder()
	e.handler.ServeHTTP(rec, r)
	return rec
}

func (e *testEnv) get(path string, cookies ...*http.Cookie) *httptest.ResponseRecorder {
	return e.do(httptest.NewRequest(http.MethodGet, path, nil), cookies...)
}

func (e *testEnv) post(path string, form url.Values, cookies ...*http.Cookie) *httptest.ResponseRecorder {
	r := httptest.NewRequest(http.MethodPost, path, strings.NewReader(form.Encode()))
	r.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	return e.do(r, cookies...)
}

func tokenCookie(t *testing.T, rec *httptest.ResponseRecorder) *http.Cookie {
	t.Helper()
	for _, c := range rec.Result().Cookies() {
		if c.Name == common.AccessTokenCookieName {
			return c
		}
	}
	t.Fatalf("no %s cookie in response", common.AccessTokenCookieName)
	return nil
}

func registerForm(username, email, password string) url.Values {
	return url.Values{
		"email":     {email},
		"username":  {username},
		"firstname": {"First"},
		"lastname":  {"Last"},
		"password":  {password},
		"password2": {password},
	}
}

// login registers username and returns its session cookie.
func (e *testEnv) login(t *testing.T, username string) *http.Cookie {
	t.Helper()
	rec := e.post("/auth/register", registerForm(username, username+"@x.com", "pw123"))
	require.Equal(t, http.StatusOK, rec.Code)
	rec = e.post("/auth", url.Values{"username": {username}, "password": {"pw123"}})
	require.Equal(t, http.StatusFound, rec.Code)
	return tokenCookie(t, rec)
}

func TestEndToEnd_RegisterLoginResolve(t *testing.T) {
	e := newTestEnv(t)

	rec := e.post("/auth/register", registerForm("alice", "alice@x.com", "pw123"))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "User successfully created")

	rec = e.post("/auth", url.Values{"username": {"alice"}, "password": {"pw123"}})
	require.Equal(t, http.StatusFound, rec.Code)
	assert.Equal(t, "/todos", rec.Header().Get("Location"))

	cookie := tokenCookie(t, rec)
	assert.True(t, cookie.HttpOnly)
	assert.Equal(t, 3600, cookie.MaxAge)

	stored, err := e.rm.Users().FindByUsername(context.Background(), "alice")
	require.NoError(t, err)

	r := httptest.NewRequest(http.MethodGet, "/todos", nil)
	r.AddCookie(cookie)
	id, ok := e.gate.ResolveIdentity(r)
	require.True(t, ok)
	assert.Equal(t, auth.Identity{Username: "alice", UserID: stored.ID}, id)

	rec = e.get("/todos", cookie)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "alice")
}

func TestLogin_FailuresLookTheSame(t *testing.T) {
	e := newTestEnv(t)
	e.login(t, "alice")

	wrong := e.post("/auth", url.Values{"username": {"alice"}, "password": {"nope"}})
	unknown := e.post("/auth", url.Values{"username": {"mallory"}, "password": {"pw123"}})

	for _, rec := range []*httptest.ResponseRecorder{wrong, unknown} {
		assert.Equal(t, http.StatusOK, rec.Code)
		assert.Contains(t, rec.Body.String(), "Incorrect Username or Password")
		assert.Empty(t, rec.Result().Cookies())
	}
}

func TestLogin_EmailFieldFallback(t *testing.T) {
	e := newTestEnv(t)
	e.post("/auth/register", registerForm("alice", "alice@x.com", "pw123"))

	rec := e.post("/auth", url.Values{"email": {"alice"}, "password": {"pw123"}})
	assert.Equal(t, http.StatusFound, rec.Code)
	tokenCookie(t, rec)
}

func TestRegister_RejectionIsGeneric(t *testing.T) {
	e := newTestEnv(t)
	e.login(t, "alice")

	for name, form := range map[string]url.Values{
		"dup username": registerForm("alice", "new@x.com", "pw123"),
		"dup email":    registerForm("bob", "alice@x.com", "pw123"),
		"mismatch": func() url.Values {
			f := registerForm("carol", "carol@x.com", "pw123")
			f.Set("password2", "other")
			return f
		}(),
	} {
		t.Run(name, func(t *testing.T) {
			rec := e.post("/auth/register", form)
			assert.Equal(t, http.StatusOK, rec.Code)
			assert.Contains(t, rec.Body.String(), "Invalid registration request")
		})
	}

	n, err := e.rm.Users().Count(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)
}

func TestToken_JSON(t *testing.T) {
	e := newTestEnv(t)
	e.login(t, "alice")

	rec := e.post("/auth/token", url.Values{"username": {"alice"}, "password": {"pw123"}})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))

	var body tokenResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "bearer", body.TokenType)
	assert.Equal(t, body.AccessToken, tokenCookie(t, rec).Value)

	id, err := e.codec.Decode(body.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, "alice", id.Username)

	rec = e.post("/auth/token", url.Values{"username": {"alice"}, "password": {"bad"}})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.JSONEq(t, `{"detail":"Incorrect Username or Password"}`, rec.Body.String())
}

func TestLogout_ClearsCookieAndRevokes(t *testing.T) {
	e := newTestEnv(t)
	cookie := e.login(t, "alice")

	rec := e.get("/auth/logout", cookie)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "Logout Successful")
	assert.NotContains(t, rec.Body.String(), "/auth/logout")

	cleared := tokenCookie(t, rec)
	assert.Empty(t, cleared.Value)
	assert.Less(t, cleared.MaxAge, 0)

	// the old token is on the denylist now
	rec = e.get("/todos", cookie)
	assert.Equal(t, http.StatusFound, rec.Code)
	assert.Equal(t, "/auth", rec.Header().Get("Location"))
}

func TestProtectedRoutesRedirectAnonymous(t *testing.T) {
	e := newTestEnv(t)

	for _, path := range []string{
		"/todos", "/todos/add-todo", "/todos/edit-todo/1", "/todos/delete/1", "/todos/complete/1",
	} {
		rec := e.get(path)
		assert.Equal(t, http.StatusFound, rec.Code, path)
		assert.Equal(t, "/auth", rec.Header().Get("Location"), path)
	}

	rec := e.post("/todos/add-todo", url.Values{"title": {"x"}, "priority": {"1"}})
	assert.Equal(t, http.StatusFound, rec.Code)
	assert.Equal(t, "/auth", rec.Header().Get("Location"))
}

func TestUnusableCookieIsClearedAndRedirected(t *testing.T) {
	e := newTestEnv(t)

	expired, err := e.codec.Issue("alice", 1, auth.WithTTL(-time.Minute))
	require.NoError(t, err)

	for _, value := range []string{expired, "garbage"} {
		rec := e.get("/todos", &http.Cookie{Name: common.AccessTokenCookieName, Value: value})
		assert.Equal(t, http.StatusFound, rec.Code)
		assert.Equal(t, "/auth", rec.Header().Get("Location"))
		assert.Less(t, tokenCookie(t, rec).MaxAge, 0)
	}
}

func TestTodoLifecycle(t *testing.T) {
	e := newTestEnv(t)
	cookie := e.login(t, "alice")
	ctx := context.Background()

	rec := e.post("/todos/add-todo", url.Values{"title": {"buy milk"}, "description": {"2l"}, "priority": {"3"}}, cookie)
	require.Equal(t, http.StatusFound, rec.Code)

	alice, err := e.rm.Users().FindByUsername(ctx, "alice")
	require.NoError(t, err)
	list, err := e.rm.Todos().List(ctx, alice.ID)
	require.NoError(t, err)
	require.Len(t, list, 1)
	todo := list[0]
	path := func(action string) string { return "/todos/" + action + "/" + itoa(todo.ID) }

	rec = e.get("/todos", cookie)
	assert.Contains(t, rec.Body.String(), "buy milk")

	rec = e.get(path("edit-todo"), cookie)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `value="buy milk"`)

	rec = e.post(path("edit-todo"), url.Values{"title": {"buy oat milk"}, "description": {""}, "priority": {"5"}}, cookie)
	assert.Equal(t, http.StatusFound, rec.Code)

	rec = e.get(path("complete"), cookie)
	assert.Equal(t, http.StatusFound, rec.Code)

	got, err := e.rm.Todos().Get(ctx, alice.ID, todo.ID)
	require.NoError(t, err)
	assert.Equal(t, models.Todo{ID: todo.ID, Title: "buy oat milk", Priority: 5, Complete: true, OwnerID: alice.ID}, *got)

	rec = e.get(path("delete"), cookie)
	assert.Equal(t, http.StatusFound, rec.Code)
	_, err = e.rm.Todos().Get(ctx, alice.ID, todo.ID)
	assert.ErrorIs(t, err, common.ErrorNotFound)
}

func TestForeignTodoIsInvisible(t *testing.T) {
	e := newTestEnv(t)
	aliceCookie := e.login(t, "alice")
	bobCookie := e.login(t, "bob")
	ctx := context.Background()

	e.post("/todos/add-todo", url.Values{"title": {"secret"}, "priority": {"1"}}, aliceCookie)
	alice, err := e.rm.Users().FindByUsername(ctx, "alice")
	require.NoError(t, err)
	list, err := e.rm.Todos().List(ctx, alice.ID)
	require.NoError(t, err)
	require.Len(t, list, 1)
	id := itoa(list[0].ID)

	for _, rec := range []*httptest.ResponseRecorder{
		e.get("/todos/edit-todo/"+id, bobCookie),
		e.post("/todos/edit-todo/"+id, url.Values{"title": {"pwned"}, "priority": {"1"}}, bobCookie),
		e.get("/todos/complete/"+id, bobCookie),
		e.get("/todos/delete/"+id, bobCookie),
		e.get("/todos/edit-todo/999", bobCookie),
	} {
		assert.Equal(t, http.StatusFound, rec.Code)
		assert.Equal(t, "/todos", rec.Header().Get("Location"))
	}

	got, err := e.rm.Todos().Get(ctx, alice.ID, list[0].ID)
	require.NoError(t, err)
	assert.Equal(t, "secret", got.Title)
	assert.False(t, got.Complete)

	rec := e.get("/todos", bobCookie)
	assert.NotContains(t, rec.Body.String(), "secret")
}

func TestAddTodo_InvalidInput(t *testing.T) {
	e := newTestEnv(t)
	cookie := e.login(t, "alice")

	for _, form := range []url.Values{
		{"title": {"x"}, "priority": {"9"}},
		{"title": {"x"}, "priority": {"high"}},
		{"title": {""}, "priority": {"1"}},
	} {
		rec := e.post("/todos/add-todo", form, cookie)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
		assert.Contains(t, rec.Body.String(), "invalid todo")
	}
}

func TestMiscRoutes(t *testing.T) {
	e := newTestEnv(t)

	rec := e.get("/")
	assert.Equal(t, http.StatusFound, rec.Code)
	assert.Equal(t, "/todos", rec.Header().Get("Location"))

	rec = e.get("/healthz")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "ok", rec.Body.String())

	rec = e.get("/static/base.css")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), ".navbar")

	rec = e.get("/metrics")
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = e.get("/nope")
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = e.get("/auth/register")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `name="password2"`)
}

func TestRecoverMiddleware(t *testing.T) {
	e := newTestEnv(t)
	h := e.srv.recoverMiddleware(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
		panic("boom")
	}))

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
}

func TestServe_StopsOnCancel(t *testing.T) {
	e := newTestEnv(t)

	listen, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- e.srv.serve(ctx, listen) }()

	require.Eventually(t, func() bool {
		resp, err := http.Get("http://" + listen.Addr().String() + "/healthz")
		if err != nil {
			return false
		}
		resp.Body.Close()
		return resp.StatusCode == http.StatusOK
	}, 2*time.Second, 20*time.Millisecond)

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("server did not stop")
	}
}

func TestMetricsServer_ServesOnItsOwnListener(t *testing.T) {
	e := newTestEnv(t)
	e.get("/auth")

	ms := NewMetricsServer("127.0.0.1:0", logging.Nop{}, time.Second)
	listen, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- ms.serve(ctx, listen) }()

	var body string
	require.Eventually(t, func() bool {
		resp, err := http.Get("http://" + listen.Addr().String() + "/metrics")
		if err != nil {
			return false
		}
		defer resp.Body.Close()
		b, err := io.ReadAll(resp.Body)
		if err != nil || resp.StatusCode != http.StatusOK {
			return false
		}
		body = string(b)
		return true
	}, 2*time.Second, 20*time.Millisecond)
	assert.Contains(t, body, "gotodo_http_requests_total")

	resp, err := http.Get("http://" + listen.Addr().String() + "/todos")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("metrics server did not stop")
	}
}

func itoa(id int64) string {
	return strconv.FormatInt(id, 10)
}
