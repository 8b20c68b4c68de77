//go:build !wasm
// +build !wasm

package gorm

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	fa "github.com/panyam/fireauth"
)

// AutoMigrate runs database migrations for all fireauth tables
func AutoMigrate(db *gorm.DB) error {
	return db.AutoMigrate(
		&AccountModel{},
		&MemberModel{},
		&MembershipModel{},
		&BoardModel{},
		&TaskModel{},
	)
}

func notFound(err error, what, key string) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return fmt.Errorf("%s %s: %w", what, key, fa.ErrNotFound)
	}
	return err
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// =============================================================================
// AccountStore
// =============================================================================

// AccountStore implements fa.AccountStore using GORM
type AccountStore struct {
	db *gorm.DB
}

func NewAccountStore(db *gorm.DB) *AccountStore {
	return &AccountStore{db: db}
}

func (s *AccountStore) CreateAccount(account *fa.Account) error {
	email := normalizeEmail(account.Email)
	return s.db.Transaction(func(tx *gorm.DB) error {
		var count int64
		if err := tx.Model(&AccountModel{}).Where("email = ?", email).Count(&count).Error; err != nil {
			return err
		}
		if count > 0 {
			return fmt.Errorf("account %s: %w", email, fa.ErrAlreadyExists)
		}
		model := &AccountModel{
			UserID:       account.UserID,
			Email:        email,
			PasswordHash: account.PasswordHash,
			CreatedAt:    account.CreatedAt,
		}
		if err := tx.Create(model).Error; err != nil {
			return err
		}
		account.Email = email
		account.CreatedAt = model.CreatedAt
		return nil
	})
}

func (s *AccountStore) GetAccountByEmail(email string) (*fa.Account, error) {
	email = normalizeEmail(email)
	var model AccountModel
	if err := s.db.First(&model, "email = ?", email).Error; err != nil {
		return nil, notFound(err, "account", email)
	}
	return model.ToAccount(), nil
}

func (s *AccountStore) GetAccount(userID string) (*fa.Account, error) {
	var model AccountModel
	if err := s.db.First(&model, "user_id = ?", userID).Error; err != nil {
		return nil, notFound(err, "account", userID)
	}
	return model.ToAccount(), nil
}

// =============================================================================
// BoardStore
// =============================================================================

// BoardStore implements fa.BoardStore using GORM
type BoardStore struct {
	db *gorm.DB
}

func NewBoardStore(db *gorm.DB) *BoardStore {
	return &BoardStore{db: db}
}

func (s *BoardStore) member(db *gorm.DB, model *MemberModel) (*fa.Member, error) {
	var boardIDs []string
	err := db.Model(&MembershipModel{}).
		Where("email = ?", model.Email).
		Order("created_at").
		Pluck("board_id", &boardIDs).Error
	if err != nil {
		return nil, err
	}
	if boardIDs == nil {
		boardIDs = []string{}
	}
	return &fa.Member{Email: model.Email, UserID: model.UserID, Boards: boardIDs}, nil
}

func (s *BoardStore) GetMember(email string) (*fa.Member, error) {
	email = normalizeEmail(email)
	var model MemberModel
	if err := s.db.First(&model, "email = ?", email).Error; err != nil {
		return nil, notFound(err, "member", email)
	}
	return s.member(s.db, &model)
}

func (s *BoardStore) EnsureMember(email, userID string) (*fa.Member, error) {
	model := &MemberModel{Email: normalizeEmail(email), UserID: userID}
	if err := s.db.Clauses(clause.OnConflict{DoNothing: true}).Create(model).Error; err != nil {
		return nil, err
	}
	return s.GetMember(model.Email)
}

func (s *BoardStore) FindMemberByUserID(userID string) (*fa.Member, error) {
	var model MemberModel
	if err := s.db.First(&model, "user_id = ?", userID).Error; err != nil {
		return nil, notFound(err, "member with user id", userID)
	}
	return s.member(s.db, &model)
}

func (s *BoardStore) ListBoardMembers(boardID string) ([]*fa.Member, error) {
	var models []MemberModel
	err := s.db.
		Joins("JOIN memberships ON memberships.email = members.email").
		Where("memberships.board_id = ?", boardID).
		Order("members.email").
		Find(&models).Error
	if err != nil {
		return nil, err
	}
	members := make([]*fa.Member, 0, len(models))
	for i := range models {
		member, err := s.member(s.db, &models[i])
		if err != nil {
			return nil, err
		}
		members = append(members, member)
	}
	return members, nil
}

func (s *BoardStore) AddBoardToMember(email, boardID string) error {
	email = normalizeEmail(email)
	return s.db.Transaction(func(tx *gorm.DB) error {
		var model MemberModel
		if err := tx.First(&model, "email = ?", email).Error; err != nil {
			return notFound(err, "member", email)
		}
		return tx.Clauses(clause.OnConflict{DoNothing: true}).
			Create(&MembershipModel{Email: email, BoardID: boardID}).Error
	})
}

func (s *BoardStore) RemoveBoardFromMember(email, boardID string) error {
	email = normalizeEmail(email)
	return s.db.Transaction(func(tx *gorm.DB) error {
		var model MemberModel
		if err := tx.First(&model, "email = ?", email).Error; err != nil {
			return notFound(err, "member", email)
		}
		return tx.Where("email = ? AND board_id = ?", email, boardID).
			Delete(&MembershipModel{}).Error
	})
}

func (s *BoardStore) CreateBoard(board *fa.Board) (*fa.Board, error) {
	board.ID = uuid.NewString()
	if board.CreatedAt.IsZero() {
		board.CreatedAt = time.Now()
	}
	if err := s.db.Create(BoardToModel(board)).Error; err != nil {
		return nil, err
	}
	return board, nil
}

func (s *BoardStore) GetBoard(boardID string) (*fa.Board, error) {
	var model BoardModel
	if err := s.db.First(&model, "id = ?", boardID).Error; err != nil {
		return nil, notFound(err, "board", boardID)
	}
	return model.ToBoard(), nil
}

func (s *BoardStore) SaveBoard(board *fa.Board) error {
	return s.db.Save(BoardToModel(board)).Error
}

func (s *BoardStore) DeleteBoard(boardID string) error {
	result := s.db.Delete(&BoardModel{}, "id = ?", boardID)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return fmt.Errorf("board %s: %w", boardID, fa.ErrNotFound)
	}
	return nil
}

func (s *BoardStore) CreateTask(task *fa.Task) (*fa.Task, error) {
	task.ID = uuid.NewString()
	if task.CreatedAt.IsZero() {
		task.CreatedAt = time.Now()
		task.UpdatedAt = task.CreatedAt
	}
	if err := s.db.Create(TaskToModel(task)).Error; err != nil {
		return nil, err
	}
	return task, nil
}

func (s *BoardStore) GetTask(taskID string) (*fa.Task, error) {
	var model TaskModel
	if err := s.db.First(&model, "id = ?", taskID).Error; err != nil {
		return nil, notFound(err, "task", taskID)
	}
	return model.ToTask(), nil
}

func (s *BoardStore) SaveTask(task *fa.Task) error {
	return s.db.Save(TaskToModel(task)).Error
}

func (s *BoardStore) DeleteTask(taskID string) error {
	result := s.db.Delete(&TaskModel{}, "id = ?", taskID)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return fmt.Errorf("task %s: %w", taskID, fa.ErrNotFound)
	}
	return nil
}

func (s *BoardStore) ListBoardTasks(boardID string) ([]*fa.Task, error) {
	var models []TaskModel
	if err := s.db.Where("board_id = ?", boardID).Order("created_at").Find(&models).Error; err != nil {
		return nil, err
	}
	tasks := make([]*fa.Task, 0, len(models))
	for i := range models {
		tasks = append(tasks, models[i].ToTask())
	}
	return tasks, nil
}
