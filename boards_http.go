package fireauth

import (
	"fmt"
	"net/http"
	"net/url"

	"github.com/gorilla/mux"
)

func (a *App) setupBoardRoutes(r *mux.Router) {
	ensure := func(h http.HandlerFunc) http.Handler {
		return a.Middleware.EnsureUser(h)
	}
	r.Handle("/create-board-form", ensure(a.handleCreateBoardForm)).Methods(http.MethodGet)
	r.Handle("/create-board", ensure(a.handleCreateBoard)).Methods(http.MethodPost)

	r.Handle("/board/{board_id}", ensure(a.handleViewBoard)).Methods(http.MethodGet)
	b := r.PathPrefix("/board/{board_id}").Subrouter()
	b.Handle("/add-user", ensure(a.handleAddUser)).Methods(http.MethodPost)
	b.Handle("/add-task", ensure(a.handleAddTask)).Methods(http.MethodPost)
	b.Handle("/rename", ensure(a.handleRenameBoard)).Methods(http.MethodPost)
	b.Handle("/delete", ensure(a.handleDeleteBoard)).Methods(http.MethodPost)
	b.Handle("/remove-user", ensure(a.handleRemoveUsers)).Methods(http.MethodPost)
	b.Handle("/task/{task_id}/toggle", ensure(a.handleToggleTask)).Methods(http.MethodPost)
	b.Handle("/task/{task_id}/edit", ensure(a.handleEditTask)).Methods(http.MethodPost)
	b.Handle("/task/{task_id}/delete", ensure(a.handleDeleteTask)).Methods(http.MethodPost)
}

func (a *App) handleCreateBoardForm(w http.ResponseWriter, r *http.Request) {
	a.render(w, "create_board.html", &pageData{
		Title: "Create board",
		Flash: r.URL.Query().Get("error"),
		User:  UserFromContext(r.Context()),
	})
}

func (a *App) handleCreateBoard(w http.ResponseWriter, r *http.Request) {
	user := UserFromContext(r.Context())
	if _, err := a.Boards.CreateBoard(user, r.PostFormValue("title"), r.PostFormValue("description")); err != nil {
		a.Logger.Error("Error creating board", "error", err)
		a.redirectWithError(w, r, "/create-board-form", err, ErrCodeCreationFailed)
		return
	}
	http.Redirect(w, r, RootPath, http.StatusSeeOther)
}

func (a *App) handleViewBoard(w http.ResponseWriter, r *http.Request) {
	user := UserFromContext(r.Context())
	detail, err := a.Boards.ViewBoard(user, mux.Vars(r)["board_id"])
	if err != nil {
		if !isBoardError(err) {
			a.Logger.Error("Error loading board", "error", err)
		}
		http.Redirect(w, r, RootPath, http.StatusSeeOther)
		return
	}
	a.render(w, "board.html", &pageData{
		Title:  detail.Board.Title,
		Flash:  r.URL.Query().Get("error"),
		View:   ViewStateFor(ParseCookieToken(rawCookieHeader(r))),
		User:   user,
		Detail: detail,
	})
}

func (a *App) handleAddUser(w http.ResponseWriter, r *http.Request) {
	boardID := mux.Vars(r)["board_id"]
	err := a.Boards.AddMember(UserFromContext(r.Context()), boardID, r.PostFormValue("email"))
	a.finishBoardAction(w, r, boardID, err, ErrCodeAddUserFailed)
}

func (a *App) handleAddTask(w http.ResponseWriter, r *http.Request) {
	boardID := mux.Vars(r)["board_id"]
	if err := r.ParseForm(); err != nil {
		http.Error(w, "Invalid form data", http.StatusBadRequest)
		return
	}
	_, err := a.Boards.AddTask(UserFromContext(r.Context()), boardID,
		r.PostForm.Get("title"), r.PostForm.Get("due_date"), r.PostForm["assignees"])
	a.finishBoardAction(w, r, boardID, err, ErrCodeTaskFailed)
}

func (a *App) handleToggleTask(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	_, err := a.Boards.ToggleTask(UserFromContext(r.Context()), vars["board_id"], vars["task_id"])
	a.finishBoardAction(w, r, vars["board_id"], err, ErrCodeToggleFailed)
}

func (a *App) handleEditTask(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	if err := r.ParseForm(); err != nil {
		http.Error(w, "Invalid form data", http.StatusBadRequest)
		return
	}
	_, err := a.Boards.EditTask(UserFromContext(r.Context()), vars["board_id"], vars["task_id"],
		r.PostForm.Get("title"), r.PostForm.Get("due_date"), r.PostForm["assignees"])
	a.finishBoardAction(w, r, vars["board_id"], err, ErrCodeEditFailed)
}

func (a *App) handleDeleteTask(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	err := a.Boards.DeleteTask(UserFromContext(r.Context()), vars["board_id"], vars["task_id"])
	a.finishBoardAction(w, r, vars["board_id"], err, ErrCodeDeleteFailed)
}

func (a *App) handleRenameBoard(w http.ResponseWriter, r *http.Request) {
	boardID := mux.Vars(r)["board_id"]
	err := a.Boards.RenameBoard(UserFromContext(r.Context()), boardID, r.PostFormValue("new_title"))
	a.finishBoardAction(w, r, boardID, err, ErrCodeEditFailed)
}

func (a *App) handleDeleteBoard(w http.ResponseWriter, r *http.Request) {
	boardID := mux.Vars(r)["board_id"]
	if err := a.Boards.DeleteBoard(UserFromContext(r.Context()), boardID); err != nil {
		a.finishBoardAction(w, r, boardID, err, ErrCodeDeleteFailed)
		return
	}
	http.Redirect(w, r, RootPath, http.StatusSeeOther)
}

func (a *App) handleRemoveUsers(w http.ResponseWriter, r *http.Request) {
	boardID := mux.Vars(r)["board_id"]
	if err := r.ParseForm(); err != nil {
		http.Error(w, "Invalid form data", http.StatusBadRequest)
		return
	}
	err := a.Boards.RemoveMembers(UserFromContext(r.Context()), boardID, r.PostForm["emails"])
	a.finishBoardAction(w, r, boardID, err, ErrCodeRemoveFailed)
}

// finishBoardAction redirects back to the board, carrying the error code of
// a failed action in the query string.
func (a *App) finishBoardAction(w http.ResponseWriter, r *http.Request, boardID string, err error, fallback string) {
	target := fmt.Sprintf("/board/%s", url.PathEscape(boardID))
	if err != nil {
		a.Logger.Warn("board action failed", "path", r.URL.Path, "error", err)
		a.redirectWithError(w, r, target, err, fallback)
		return
	}
	http.Redirect(w, r, target, http.StatusSeeOther)
}

func (a *App) redirectWithError(w http.ResponseWriter, r *http.Request, target string, err error, fallback string) {
	code := BoardErrorCode(err)
	if code == "" {
		code = fallback
	}
	http.Redirect(w, r, target+"?error="+url.QueryEscape(code), http.StatusSeeOther)
}
