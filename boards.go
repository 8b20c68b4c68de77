package fireauth

import (
	"errors"
	"fmt"
	"log"
	"slices"
	"strings"
	"time"
)

// Board error codes. HTTP handlers pass them back to the page as ?error=<code>.
const (
	ErrCodeNotCreator      = "not_creator"
	ErrCodeNotMember       = "not_member"
	ErrCodeBoardNotFound   = "board_not_found"
	ErrCodeMissingTitle    = "missing_title"
	ErrCodeCreationFailed  = "creation_failed"
	ErrCodeAddUserFailed   = "add_user_failed"
	ErrCodeTaskExists      = "task_exists"
	ErrCodeTaskFailed      = "task_failed"
	ErrCodeTaskNotFound    = "task_not_found"
	ErrCodeToggleFailed    = "toggle_failed"
	ErrCodeEditFailed      = "edit_failed"
	ErrCodeDeleteFailed    = "delete_failed"
	ErrCodeBoardHasTasks   = "board_has_tasks"
	ErrCodeBoardHasMembers = "board_has_members"
	ErrCodeRemoveFailed    = "remove_user_failed"
)

// UnknownEmail is shown for users without a member record.
const UnknownEmail = "Unknown"

// BoardError is a rule violation or storage failure in a board operation
type BoardError struct {
	Code string
	Err  error
}

func (e *BoardError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Code, e.Err)
	}
	return e.Code
}

func (e *BoardError) Unwrap() error { return e.Err }

func boardError(code string, err error) *BoardError {
	return &BoardError{Code: code, Err: err}
}

// BoardErrorCode returns the code of a *BoardError in err's chain, or "".
func BoardErrorCode(err error) string {
	var boardErr *BoardError
	if errors.As(err, &boardErr) {
		return boardErr.Code
	}
	return ""
}

// TaskView is a task together with its creator's email
type TaskView struct {
	*Task
	CreatorEmail string
}

// BoardSummary is a board as listed on the main page
type BoardSummary struct {
	*Board
	IsCreator    bool
	CreatorEmail string
	Tasks        []*TaskView
}

// Overview is everything the main page shows for a user
type Overview struct {
	Owned  []*BoardSummary
	Shared []*BoardSummary
}

// BoardDetail is everything the board page shows
type BoardDetail struct {
	Board          *Board
	IsCreator      bool
	Members        []*Member
	Tasks          []*TaskView
	TotalTasks     int
	CompletedTasks int
	ActiveTasks    int
}

// BoardService implements the task board rules on top of a BoardStore.
// Every operation acts on behalf of an authenticated user.
type BoardService struct {
	Store BoardStore
	Now   func() time.Time
}

func NewBoardService(store BoardStore) *BoardService {
	return &BoardService{Store: store, Now: time.Now}
}

func (s *BoardService) now() time.Time {
	if s.Now == nil {
		return time.Now()
	}
	return s.Now()
}

// Overview partitions the user's boards into the ones they created and the
// ones shared with them.
func (s *BoardService) Overview(user *AccountInfo) (*Overview, error) {
	member, err := s.Store.EnsureMember(user.Email, user.UserID)
	if err != nil {
		return nil, fmt.Errorf("failed to load member %s: %w", user.Email, err)
	}

	out := &Overview{}
	emails := map[string]string{}
	for _, boardID := range member.Boards {
		board, err := s.Store.GetBoard(boardID)
		if err != nil {
			if errors.Is(err, ErrNotFound) {
				continue
			}
			return nil, err
		}
		tasks, err := s.taskViews(board.ID, emails)
		if err != nil {
			return nil, err
		}
		summary := &BoardSummary{
			Board:        board,
			IsCreator:    board.CreatedBy == user.UserID,
			CreatorEmail: s.emailFor(board.CreatedBy, emails),
			Tasks:        tasks,
		}
		if summary.IsCreator {
			out.Owned = append(out.Owned, summary)
		} else {
			out.Shared = append(out.Shared, summary)
		}
	}
	return out, nil
}

func (s *BoardService) CreateBoard(user *AccountInfo, title, description string) (*Board, error) {
	title = strings.TrimSpace(title)
	if title == "" {
		return nil, boardError(ErrCodeMissingTitle, nil)
	}
	if _, err := s.Store.EnsureMember(user.Email, user.UserID); err != nil {
		return nil, boardError(ErrCodeCreationFailed, err)
	}
	board, err := s.Store.CreateBoard(&Board{
		Title:       title,
		Description: description,
		CreatedBy:   user.UserID,
		CreatedAt:   s.now(),
	})
	if err != nil {
		return nil, boardError(ErrCodeCreationFailed, err)
	}
	if err := s.Store.AddBoardToMember(user.Email, board.ID); err != nil {
		return nil, boardError(ErrCodeCreationFailed, err)
	}
	return board, nil
}

// ViewBoard returns the board with its members and tasks. Only members of
// the board may view it.
func (s *BoardService) ViewBoard(user *AccountInfo, boardID string) (*BoardDetail, error) {
	member, err := s.Store.GetMember(user.Email)
	if err != nil || !member.HasBoard(boardID) {
		return nil, boardError(ErrCodeNotMember, err)
	}
	board, err := s.Store.GetBoard(boardID)
	if err != nil {
		return nil, boardError(ErrCodeBoardNotFound, err)
	}
	members, err := s.Store.ListBoardMembers(boardID)
	if err != nil {
		return nil, err
	}
	tasks, err := s.taskViews(boardID, map[string]string{})
	if err != nil {
		return nil, err
	}

	detail := &BoardDetail{
		Board:      board,
		IsCreator:  board.CreatedBy == user.UserID,
		Members:    members,
		Tasks:      tasks,
		TotalTasks: len(tasks),
	}
	for _, t := range tasks {
		if t.Completed {
			detail.CompletedTasks++
		}
	}
	detail.ActiveTasks = detail.TotalTasks - detail.CompletedTasks
	return detail, nil
}

// AddMember shares the board with another existing member.
func (s *BoardService) AddMember(user *AccountInfo, boardID, email string) error {
	if _, err := s.ownedBoard(user, boardID); err != nil {
		return err
	}
	email = normalizeEmail(email)
	if email == "" {
		return boardError(ErrCodeAddUserFailed, fmt.Errorf("email required"))
	}
	if err := s.Store.AddBoardToMember(email, boardID); err != nil {
		return boardError(ErrCodeAddUserFailed, err)
	}
	return nil
}

// AddTask adds a task to a board the user belongs to. Task titles are unique
// within a board.
func (s *BoardService) AddTask(user *AccountInfo, boardID, title, dueDate string, assignees []string) (*Task, error) {
	title = strings.TrimSpace(title)
	if title == "" {
		return nil, boardError(ErrCodeMissingTitle, nil)
	}
	if err := s.requireMember(user, boardID); err != nil {
		return nil, err
	}

	tasks, err := s.Store.ListBoardTasks(boardID)
	if err != nil {
		return nil, boardError(ErrCodeTaskFailed, err)
	}
	for _, t := range tasks {
		if t.Title == title {
			return nil, boardError(ErrCodeTaskExists, nil)
		}
	}

	now := s.now()
	task, err := s.Store.CreateTask(&Task{
		BoardID:   boardID,
		Title:     title,
		DueDate:   dueDate,
		CreatedBy: user.UserID,
		CreatedAt: now,
		UpdatedAt: now,
		Assignees: nonNil(assignees),
	})
	if err != nil {
		return nil, boardError(ErrCodeTaskFailed, err)
	}
	return task, nil
}

// ToggleTask flips a task between open and completed, stamping the
// completion time when it closes.
func (s *BoardService) ToggleTask(user *AccountInfo, boardID, taskID string) (*Task, error) {
	task, err := s.boardTask(user, boardID, taskID)
	if err != nil {
		return nil, err
	}
	now := s.now()
	task.Completed = !task.Completed
	task.UpdatedAt = now
	if task.Completed {
		task.CompletedAt = &now
	} else {
		task.CompletedAt = nil
	}
	if err := s.Store.SaveTask(task); err != nil {
		return nil, boardError(ErrCodeToggleFailed, err)
	}
	return task, nil
}

func (s *BoardService) EditTask(user *AccountInfo, boardID, taskID, title, dueDate string, assignees []string) (*Task, error) {
	task, err := s.boardTask(user, boardID, taskID)
	if err != nil {
		return nil, err
	}
	if title = strings.TrimSpace(title); title == "" {
		return nil, boardError(ErrCodeMissingTitle, nil)
	}
	task.Title = title
	task.DueDate = dueDate
	task.Assignees = nonNil(assignees)
	task.UpdatedAt = s.now()
	if err := s.Store.SaveTask(task); err != nil {
		return nil, boardError(ErrCodeEditFailed, err)
	}
	return task, nil
}

func (s *BoardService) DeleteTask(user *AccountInfo, boardID, taskID string) error {
	if _, err := s.boardTask(user, boardID, taskID); err != nil {
		return err
	}
	if err := s.Store.DeleteTask(taskID); err != nil {
		return boardError(ErrCodeDeleteFailed, err)
	}
	return nil
}

func (s *BoardService) RenameBoard(user *AccountInfo, boardID, newTitle string) error {
	board, err := s.ownedBoard(user, boardID)
	if err != nil {
		return err
	}
	if newTitle = strings.TrimSpace(newTitle); newTitle == "" {
		return boardError(ErrCodeMissingTitle, nil)
	}
	board.Title = newTitle
	return s.Store.SaveBoard(board)
}

// DeleteBoard removes a board that has neither tasks nor members other than
// its creator.
func (s *BoardService) DeleteBoard(user *AccountInfo, boardID string) error {
	if _, err := s.ownedBoard(user, boardID); err != nil {
		return err
	}
	tasks, err := s.Store.ListBoardTasks(boardID)
	if err != nil {
		return boardError(ErrCodeDeleteFailed, err)
	}
	if len(tasks) > 0 {
		return boardError(ErrCodeBoardHasTasks, nil)
	}
	members, err := s.Store.ListBoardMembers(boardID)
	if err != nil {
		return boardError(ErrCodeDeleteFailed, err)
	}
	for _, m := range members {
		if m.Email != normalizeEmail(user.Email) {
			return boardError(ErrCodeBoardHasMembers, nil)
		}
	}
	if err := s.Store.DeleteBoard(boardID); err != nil {
		return boardError(ErrCodeDeleteFailed, err)
	}
	if err := s.Store.RemoveBoardFromMember(user.Email, boardID); err != nil {
		log.Printf("Warning: failed to detach deleted board %s from %s: %v", boardID, user.Email, err)
	}
	return nil
}

// RemoveMembers takes the board away from each email and unassigns them from
// the board's tasks.
func (s *BoardService) RemoveMembers(user *AccountInfo, boardID string, emails []string) error {
	if _, err := s.ownedBoard(user, boardID); err != nil {
		return err
	}
	for _, email := range emails {
		email = normalizeEmail(email)
		if err := s.Store.RemoveBoardFromMember(email, boardID); err != nil {
			return boardError(ErrCodeRemoveFailed, err)
		}
		tasks, err := s.Store.ListBoardTasks(boardID)
		if err != nil {
			return boardError(ErrCodeRemoveFailed, err)
		}
		for _, task := range tasks {
			idx := slices.Index(task.Assignees, email)
			if idx < 0 {
				continue
			}
			task.Assignees = slices.Delete(task.Assignees, idx, idx+1)
			if err := s.Store.SaveTask(task); err != nil {
				return boardError(ErrCodeRemoveFailed, err)
			}
		}
	}
	return nil
}

func (s *BoardService) ownedBoard(user *AccountInfo, boardID string) (*Board, error) {
	board, err := s.Store.GetBoard(boardID)
	if err != nil || board.CreatedBy != user.UserID {
		return nil, boardError(ErrCodeNotCreator, err)
	}
	return board, nil
}

// requireMember fails with not_member unless boardID is one of the user's
// boards.
func (s *BoardService) requireMember(user *AccountInfo, boardID string) error {
	member, err := s.Store.GetMember(user.Email)
	if err != nil && !errors.Is(err, ErrNotFound) {
		return boardError(ErrCodeTaskFailed, err)
	}
	if member == nil || !member.HasBoard(boardID) {
		return boardError(ErrCodeNotMember, nil)
	}
	return nil
}

func (s *BoardService) boardTask(user *AccountInfo, boardID, taskID string) (*Task, error) {
	if err := s.requireMember(user, boardID); err != nil {
		return nil, err
	}
	task, err := s.Store.GetTask(taskID)
	if err != nil {
		return nil, boardError(ErrCodeTaskNotFound, err)
	}
	if task.BoardID != boardID {
		return nil, boardError(ErrCodeTaskNotFound, nil)
	}
	return task, nil
}

func (s *BoardService) taskViews(boardID string, emails map[string]string) ([]*TaskView, error) {
	tasks, err := s.Store.ListBoardTasks(boardID)
	if err != nil {
		return nil, err
	}
	out := make([]*TaskView, 0, len(tasks))
	for _, t := range tasks {
		out = append(out, &TaskView{Task: t, CreatorEmail: s.emailFor(t.CreatedBy, emails)})
	}
	return out, nil
}

// emailFor resolves a user id to the member's email, caching lookups in
// cache for the duration of one request.
func (s *BoardService) emailFor(userID string, cache map[string]string) string {
	if email, ok := cache[userID]; ok {
		return email
	}
	email := UnknownEmail
	if member, err := s.Store.FindMemberByUserID(userID); err == nil {
		email = member.Email
	}
	cache[userID] = email
	return email
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
