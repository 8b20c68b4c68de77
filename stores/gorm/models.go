//go:build !wasm
// +build !wasm

package gorm

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"time"

	fa "github.com/panyam/fireauth"
)

// StringSlice is a helper type for storing string slices in GORM
type StringSlice []string

func (s StringSlice) Value() (driver.Value, error) {
	if s == nil {
		return "[]", nil
	}
	data, err := json.Marshal(s)
	if err != nil {
		return nil, err
	}
	return string(data), nil
}

func (s *StringSlice) Scan(value any) error {
	switch v := value.(type) {
	case nil:
		*s = nil
		return nil
	case []byte:
		return json.Unmarshal(v, s)
	case string:
		return json.Unmarshal([]byte(v), s)
	default:
		return fmt.Errorf("cannot scan %T into StringSlice", value)
	}
}

// AccountModel is the GORM model for local accounts
type AccountModel struct {
	UserID       string    `gorm:"primaryKey;size:64"`
	Email        string    `gorm:"uniqueIndex;size:320"`
	PasswordHash string    `gorm:"size:255"`
	CreatedAt    time.Time `gorm:"autoCreateTime"`
}

func (AccountModel) TableName() string {
	return "accounts"
}

func (m *AccountModel) ToAccount() *fa.Account {
	return &fa.Account{
		UserID:       m.UserID,
		Email:        m.Email,
		PasswordHash: m.PasswordHash,
		CreatedAt:    m.CreatedAt,
	}
}

// MemberModel is the GORM model for members
type MemberModel struct {
	Email  string `gorm:"primaryKey;size:320"`
	UserID string `gorm:"size:64;index"`
}

func (MemberModel) TableName() string {
	return "members"
}

// MembershipModel links a member to a board
type MembershipModel struct {
	Email     string    `gorm:"primaryKey;size:320"`
	BoardID   string    `gorm:"primaryKey;size:64;index"`
	CreatedAt time.Time `gorm:"autoCreateTime"`
}

func (MembershipModel) TableName() string {
	return "memberships"
}

// BoardModel is the GORM model for boards
type BoardModel struct {
	ID          string `gorm:"primaryKey;size:64"`
	Title       string `gorm:"size:255"`
	Description string
	CreatedBy   string    `gorm:"size:64;index"`
	CreatedAt   time.Time `gorm:"index"`
}

func (BoardModel) TableName() string {
	return "boards"
}

func (m *BoardModel) ToBoard() *fa.Board {
	return &fa.Board{
		ID:          m.ID,
		Title:       m.Title,
		Description: m.Description,
		CreatedBy:   m.CreatedBy,
		CreatedAt:   m.CreatedAt,
	}
}

func BoardToModel(b *fa.Board) *BoardModel {
	return &BoardModel{
		ID:          b.ID,
		Title:       b.Title,
		Description: b.Description,
		CreatedBy:   b.CreatedBy,
		CreatedAt:   b.CreatedAt,
	}
}

// TaskModel is the GORM model for tasks
type TaskModel struct {
	ID          string      `gorm:"primaryKey;size:64"`
	BoardID     string      `gorm:"size:64;index"`
	Title       string      `gorm:"size:255"`
	DueDate     string      `gorm:"size:32"`
	CreatedBy   string      `gorm:"size:64"`
	CreatedAt   time.Time   `gorm:"index"`
	UpdatedAt   time.Time
	Completed   bool        `gorm:"default:false"`
	CompletedAt *time.Time
	Assignees   StringSlice `gorm:"type:text"`
}

func (TaskModel) TableName() string {
	return "tasks"
}

func (m *TaskModel) ToTask() *fa.Task {
	assignees := []string(m.Assignees)
	if assignees == nil {
		assignees = []string{}
	}
	return &fa.Task{
		ID:          m.ID,
		BoardID:     m.BoardID,
		Title:       m.Title,
		DueDate:     m.DueDate,
		CreatedBy:   m.CreatedBy,
		CreatedAt:   m.CreatedAt,
		UpdatedAt:   m.UpdatedAt,
		Completed:   m.Completed,
		CompletedAt: m.CompletedAt,
		Assignees:   assignees,
	}
}

func TaskToModel(t *fa.Task) *TaskModel {
	return &TaskModel{
		ID:          t.ID,
		BoardID:     t.BoardID,
		Title:       t.Title,
		DueDate:     t.DueDate,
		CreatedBy:   t.CreatedBy,
		CreatedAt:   t.CreatedAt,
		UpdatedAt:   t.UpdatedAt,
		Completed:   t.Completed,
		CompletedAt: t.CompletedAt,
		Assignees:   StringSlice(t.Assignees),
	}
}
