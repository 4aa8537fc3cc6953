package web

import (
	"io/fs"
	"net/http"

	"github.com/dmitrijs2005/gotodo/internal/server/auth"
	"github.com/gorilla/mux"
)

const loginURL = "/auth"

// Router builds the route table. Middleware runs in registration order:
// recover, logging, metrics, then the session gate. Routes on the protected
// subrouter additionally require an identity.
func (s *HTTPServer) Router() http.Handler {
	public := mux.NewRouter()
	public.StrictSlash(true)
	public.NotFoundHandler = http.HandlerFunc(s.handleNotFound)

	public.Use(s.recoverMiddleware)
	public.Use(s.loggingMiddleware)
	public.Use(metricsMiddleware)
	public.Use(s.gate.Middleware)

	protected := public.NewRoute().Subrouter()
	protected.Use(auth.RequireIdentity(loginURL))

	addRoute(protected, http.MethodGet, "/todos", s.handleListTodos)
	addRoute(protected, http.MethodGet, "/todos/add-todo", s.handleAddTodoForm)
	addRoute(protected, http.MethodPost, "/todos/add-todo", s.handleAddTodo)
	addRoute(protected, http.MethodGet, "/todos/edit-todo/{id:[0-9]+}", s.handleEditTodoForm)
	addRoute(protected, http.MethodPost, "/todos/edit-todo/{id:[0-9]+}", s.handleEditTodo)
	addRoute(protected, http.MethodGet, "/todos/delete/{id:[0-9]+}", s.handleDeleteTodo)
	addRoute(protected, http.MethodGet, "/todos/complete/{id:[0-9]+}", s.handleCompleteTodo)

	addRoute(public, http.MethodGet, "/", s.handleRoot)
	addRoute(public, http.MethodGet, "/auth", s.handleLoginForm)
	addRoute(public, http.MethodPost, "/auth", s.handleLogin)
	addRoute(public, http.MethodGet, "/auth/register", s.handleRegisterForm)
	addRoute(public, http.MethodPost, "/auth/register", s.handleRegister)
	addRoute(public, http.MethodGet, "/auth/logout", s.handleLogout)
	addRoute(public, http.MethodPost, "/auth/token", s.handleToken)
	addRoute(public, http.MethodGet, "/healthz", s.handleHealthz)

	staticFS, _ := fs.Sub(assets, "static")
	public.PathPrefix("/static/").
		Handler(http.StripPrefix("/static/", http.FileServer(http.FS(staticFS)))).
		Methods(http.MethodGet)

	return public
}

func addRoute(router *mux.Router, method string, route string, handler http.HandlerFunc) {
	router.HandleFunc(route, handler).Methods(method)
}

func (s *HTTPServer) handleNotFound(w http.ResponseWriter, r *http.Request) {
	s.logger.Debug(r.Context(), "invalid route", "method", r.Method, "path", r.URL.Path)
	http.NotFound(w, r)
}

func (s *HTTPServer) handleRoot(w http.ResponseWriter, r *http.Request) {
	http.Redirect(w, r, "/todos", http.StatusFound)
}

func (s *HTTPServer) handleHealthz(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	_, _ = w.Write([]byte("ok"))
}
