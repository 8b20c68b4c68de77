//go:build !wasm
// +build !wasm

package gae

import (
	"time"

	"cloud.google.com/go/datastore"
	fa "github.com/panyam/fireauth"
)

// AccountEntity is the Datastore entity for local accounts
// Key is the lowercased email
type AccountEntity struct {
	Key          *datastore.Key `datastore:"__key__"`
	UserID       string         `datastore:"user_id"`
	PasswordHash string         `datastore:"password_hash,noindex"`
	CreatedAt    time.Time      `datastore:"created_at"`
}

func (e *AccountEntity) ToAccount() *fa.Account {
	return &fa.Account{
		UserID:       e.UserID,
		Email:        e.Key.Name,
		PasswordHash: e.PasswordHash,
		CreatedAt:    e.CreatedAt,
	}
}

// MemberEntity is the Datastore entity for board memberships
// Key is the lowercased email
type MemberEntity struct {
	Key    *datastore.Key `datastore:"__key__"`
	UserID string         `datastore:"user_id"`
	Boards []string       `datastore:"boards"`
}

func (e *MemberEntity) ToMember() *fa.Member {
	boards := e.Boards
	if boards == nil {
		boards = []string{}
	}
	return &fa.Member{Email: e.Key.Name, UserID: e.UserID, Boards: boards}
}

// BoardEntity is the Datastore entity for boards
type BoardEntity struct {
	Key         *datastore.Key `datastore:"__key__"`
	Title       string         `datastore:"title"`
	Description string         `datastore:"description,noindex"`
	CreatedBy   string         `datastore:"created_by"`
	CreatedAt   time.Time      `datastore:"created_at"`
}

func (e *BoardEntity) ToBoard() *fa.Board {
	return &fa.Board{
		ID:          e.Key.Name,
		Title:       e.Title,
		Description: e.Description,
		CreatedBy:   e.CreatedBy,
		CreatedAt:   e.CreatedAt,
	}
}

func BoardToEntity(b *fa.Board, key *datastore.Key) *BoardEntity {
	return &BoardEntity{
		Key:         key,
		Title:       b.Title,
		Description: b.Description,
		CreatedBy:   b.CreatedBy,
		CreatedAt:   b.CreatedAt,
	}
}

// TaskEntity is the Datastore entity for tasks
type TaskEntity struct {
	Key         *datastore.Key `datastore:"__key__"`
	BoardID     string         `datastore:"board_id"`
	Title       string         `datastore:"title"`
	DueDate     string         `datastore:"due_date,noindex"`
	CreatedBy   string         `datastore:"created_by"`
	CreatedAt   time.Time      `datastore:"created_at"`
	UpdatedAt   time.Time      `datastore:"updated_at"`
	Completed   bool           `datastore:"completed"`
	CompletedAt time.Time      `datastore:"completed_at,omitempty"` // zero while open
	Assignees   []string       `datastore:"assignees"`
}

func (e *TaskEntity) ToTask() *fa.Task {
	t := &fa.Task{
		ID:        e.Key.Name,
		BoardID:   e.BoardID,
		Title:     e.Title,
		DueDate:   e.DueDate,
		CreatedBy: e.CreatedBy,
		CreatedAt: e.CreatedAt,
		UpdatedAt: e.UpdatedAt,
		Completed: e.Completed,
		Assignees: e.Assignees,
	}
	if t.Assignees == nil {
		t.Assignees = []string{}
	}
	if !e.CompletedAt.IsZero() {
		completedAt := e.CompletedAt
		t.CompletedAt = &completedAt
	}
	return t
}

func TaskToEntity(t *fa.Task, key *datastore.Key) *TaskEntity {
	e := &TaskEntity{
		Key:       key,
		BoardID:   t.BoardID,
		Title:     t.Title,
		DueDate:   t.DueDate,
		CreatedBy: t.CreatedBy,
		CreatedAt: t.CreatedAt,
		UpdatedAt: t.UpdatedAt,
		Completed: t.Completed,
		Assignees: t.Assignees,
	}
	if t.CompletedAt != nil {
		e.CompletedAt = *t.CompletedAt
	}
	return e
}
