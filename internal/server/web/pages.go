package web

import (
	"bytes"
	"embed"
	"fmt"
	"html/template"
	"net/http"

	"github.com/dmitrijs2005/gotodo/internal/common"
	"github.com/dmitrijs2005/gotodo/internal/server/auth"
	"github.com/dmitrijs2005/gotodo/internal/server/models"
)

//go:embed templates/*.html static/*
var assets embed.FS

const (
	pageLogin    = "login.html"
	pageRegister = "register.html"
	pageHome     = "home.html"
	pageAddTodo  = "add-todo.html"
	pageEditTodo = "edit-todo.html"
)

// pageData is what every template receives. Unused fields stay zero.
type pageData struct {
	User     *auth.Identity
	Msg      string
	Todos    []*models.Todo
	Todo     *models.Todo
	Username string
	Email    string
}

type pages struct {
	byName map[string]*template.Template
}

var templateFuncs = template.FuncMap{
	"priorities": func() []int {
		out := make([]int, 0, common.MaxTodoPriority-common.MinTodoPriority+1)
		for p := common.MinTodoPriority; p <= common.MaxTodoPriority; p++ {
			out = append(out, p)
		}
		return out
	},
}

func loadPages() (*pages, error) {
	p := &pages{byName: map[string]*template.Template{}}
	for _, name := range []string{pageLogin, pageRegister, pageHome, pageAddTodo, pageEditTodo} {
		t, err := template.New(name).Funcs(templateFuncs).
			ParseFS(assets, "templates/layout.html", "templates/"+name)
		if err != nil {
			return nil, fmt.Errorf("parse template %s: %w", name, err)
		}
		p.byName[name] = t
	}
	return p, nil
}

// render executes the page into a buffer first so a template error never
// leaves a half-written response.
func (s *HTTPServer) render(w http.ResponseWriter, r *http.Request, status int, name string, data pageData) {
	if id, ok := auth.IdentityFromContext(r.Context()); ok && data.User == nil {
		data.User = &id
	}

	var buf bytes.Buffer
	if err := s.pages.byName[name].ExecuteTemplate(&buf, "layout", data); err != nil {
		s.logger.Error(r.Context(), "render failed", "template", name, "error", err)
		http.Error(w, "Unknown Error", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	_, _ = buf.WriteTo(w)
}
