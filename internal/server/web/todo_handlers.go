package web

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/dmitrijs2005/gotodo/internal/common"
	"github.com/dmitrijs2005/gotodo/internal/server/auth"
	"github.com/dmitrijs2005/gotodo/internal/server/models"
	"github.com/dmitrijs2005/gotodo/internal/server/services"
	"github.com/gorilla/mux"
)

const todosURL = "/todos"

// owner returns the user id the protected subrouter guaranteed is present.
func owner(r *http.Request) int64 {
	id, _ := auth.IdentityFromContext(r.Context())
	return id.UserID
}

func todoID(r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(mux.Vars(r)["id"], 10, 64)
	return id, err == nil
}

func todoForm(r *http.Request) services.TodoInput {
	// unparseable priority becomes 0 and fails validation
	priority, _ := strconv.Atoi(r.PostFormValue("priority"))
	return services.TodoInput{
		Title:       r.PostFormValue("title"),
		Description: r.PostFormValue("description"),
		Priority:    priority,
	}
}

// storeFailure handles errors shared by every todo handler. Missing and
// foreign todos both send the user back to the list.
func (s *HTTPServer) storeFailure(w http.ResponseWriter, r *http.Request, err error) {
	if errors.Is(err, common.ErrorNotFound) {
		http.Redirect(w, r, todosURL, http.StatusFound)
		return
	}
	http.Error(w, msgUnknown, http.StatusInternalServerError)
}

func (s *HTTPServer) handleListTodos(w http.ResponseWriter, r *http.Request) {
	list, err := s.todos.List(r.Context(), owner(r))
	if err != nil {
		s.storeFailure(w, r, err)
		return
	}
	s.render(w, r, http.StatusOK, pageHome, pageData{Todos: list})
}

func (s *HTTPServer) handleAddTodoForm(w http.ResponseWriter, r *http.Request) {
	s.render(w, r, http.StatusOK, pageAddTodo, pageData{})
}

func (s *HTTPServer) handleAddTodo(w http.ResponseWriter, r *http.Request) {
	in := todoForm(r)
	_, err := s.todos.Create(r.Context(), owner(r), in)
	switch {
	case errors.Is(err, services.ErrInvalidTodo):
		s.render(w, r, http.StatusBadRequest, pageAddTodo, pageData{
			Msg:  err.Error(),
			Todo: &models.Todo{Title: in.Title, Description: in.Description, Priority: in.Priority},
		})
	case err != nil:
		s.storeFailure(w, r, err)
	default:
		http.Redirect(w, r, todosURL, http.StatusFound)
	}
}

func (s *HTTPServer) handleEditTodoForm(w http.ResponseWriter, r *http.Request) {
	id, ok := todoID(r)
	if !ok {
		http.Redirect(w, r, todosURL, http.StatusFound)
		return
	}
	todo, err := s.todos.Get(r.Context(), owner(r), id)
	if err != nil {
		s.storeFailure(w, r, err)
		return
	}
	s.render(w, r, http.StatusOK, pageEditTodo, pageData{Todo: todo})
}

func (s *HTTPServer) handleEditTodo(w http.ResponseWriter, r *http.Request) {
	id, ok := todoID(r)
	if !ok {
		http.Redirect(w, r, todosURL, http.StatusFound)
		return
	}

	current, err := s.todos.Get(r.Context(), owner(r), id)
	if err != nil {
		s.storeFailure(w, r, err)
		return
	}

	in := todoForm(r)
	in.Complete = current.Complete
	err = s.todos.Update(r.Context(), owner(r), id, in)
	switch {
	case errors.Is(err, services.ErrInvalidTodo):
		s.render(w, r, http.StatusBadRequest, pageEditTodo, pageData{
			Msg:  err.Error(),
			Todo: &models.Todo{ID: id, Title: in.Title, Description: in.Description, Priority: in.Priority, Complete: in.Complete},
		})
	case err != nil:
		s.storeFailure(w, r, err)
	default:
		http.Redirect(w, r, todosURL, http.StatusFound)
	}
}

func (s *HTTPServer) handleDeleteTodo(w http.ResponseWriter, r *http.Request) {
	id, ok := todoID(r)
	if !ok {
		http.Redirect(w, r, todosURL, http.StatusFound)
		return
	}
	if err := s.todos.Delete(r.Context(), owner(r), id); err != nil {
		s.storeFailure(w, r, err)
		return
	}
	http.Redirect(w, r, todosURL, http.StatusFound)
}

func (s *HTTPServer) handleCompleteTodo(w http.ResponseWriter, r *http.Request) {
	id, ok := todoID(r)
	if !ok {
		http.Redirect(w, r, todosURL, http.StatusFound)
		return
	}
	if _, err := s.todos.ToggleComplete(r.Context(), owner(r), id); err != nil {
		s.storeFailure(w, r, err)
		return
	}
	http.Redirect(w, r, todosURL, http.StatusFound)
}
