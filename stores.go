package fireauth

import (
	"errors"
	"time"
)

// ErrAlreadyExists is returned (wrapped) by stores when a unique key is taken.
var ErrAlreadyExists = errors.New("already exists")

// Account is an email/password account held by the LocalProvider
type Account struct {
	UserID       string    `json:"user_id"`
	Email        string    `json:"email"`
	PasswordHash string    `json:"password_hash"`
	CreatedAt    time.Time `json:"created_at"`
}

// AccountStore persists LocalProvider accounts
type AccountStore interface {
	// CreateAccount stores a new account. Fails with ErrAlreadyExists if the
	// email is taken.
	CreateAccount(account *Account) error

	// GetAccountByEmail looks an account up by its (case-insensitive) email
	GetAccountByEmail(email string) (*Account, error)

	// GetAccount looks an account up by user id
	GetAccount(userID string) (*Account, error)
}

// Member is a user's view of the boards they belong to, keyed by email.
type Member struct {
	Email  string   `json:"email"`
	UserID string   `json:"user_id"`
	Boards []string `json:"boards"`
}

// HasBoard reports whether the member belongs to boardID
func (m *Member) HasBoard(boardID string) bool {
	for _, id := range m.Boards {
		if id == boardID {
			return true
		}
	}
	return false
}

// Board is a shared task list owned by its creator
type Board struct {
	ID          string    `json:"id"`
	Title       string    `json:"title"`
	Description string    `json:"description"`
	CreatedBy   string    `json:"created_by"` // user id of the creator
	CreatedAt   time.Time `json:"created_at"`
}

// Task is an item on a board
type Task struct {
	ID          string     `json:"id"`
	BoardID     string     `json:"board_id"`
	Title       string     `json:"title"`
	DueDate     string     `json:"due_date"`
	CreatedBy   string     `json:"created_by"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
	Completed   bool       `json:"completed"`
	CompletedAt *time.Time `json:"completed_at,omitempty"`
	Assignees   []string   `json:"assignees"`
}

// BoardStore persists members, boards and tasks
type BoardStore interface {
	// GetMember returns the member record for email
	GetMember(email string) (*Member, error)

	// EnsureMember returns the member record for email, creating an empty one
	// owned by userID if missing
	EnsureMember(email, userID string) (*Member, error)

	// FindMemberByUserID returns the member whose user id is userID
	FindMemberByUserID(userID string) (*Member, error)

	// ListBoardMembers returns every member that holds boardID
	ListBoardMembers(boardID string) ([]*Member, error)

	// AddBoardToMember adds boardID to an existing member (set semantics)
	AddBoardToMember(email, boardID string) error

	// RemoveBoardFromMember removes boardID from an existing member
	RemoveBoardFromMember(email, boardID string) error

	// CreateBoard assigns an id and creation time and stores the board
	CreateBoard(board *Board) (*Board, error)
	GetBoard(boardID string) (*Board, error)
	SaveBoard(board *Board) error
	DeleteBoard(boardID string) error

	// CreateTask assigns an id and creation time and stores the task
	CreateTask(task *Task) (*Task, error)
	GetTask(taskID string) (*Task, error)
	SaveTask(task *Task) error
	DeleteTask(taskID string) error

	// ListBoardTasks returns the tasks of boardID ordered by creation time
	ListBoardTasks(boardID string) ([]*Task, error)
}
