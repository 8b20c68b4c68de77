//go:build !wasm
// +build !wasm

package gae

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"sort"
	"strings"
	"time"

	"cloud.google.com/go/datastore"
	"github.com/google/uuid"
	"google.golang.org/api/iterator"

	fa "github.com/panyam/fireauth"
)

// Kind constants for Datastore entities
const (
	KindAccount = "Account"
	KindMember  = "Member"
	KindBoard   = "Board"
	KindTask    = "Task"
)

type base struct {
	client    *datastore.Client
	namespace string
	ctx       context.Context
}

func (s base) namespacedKey(kind, name string) *datastore.Key {
	key := datastore.NameKey(kind, name, nil)
	key.Namespace = s.namespace
	return key
}

func (s base) query(kind string) *datastore.Query {
	query := datastore.NewQuery(kind)
	if s.namespace != "" {
		query = query.Namespace(s.namespace)
	}
	return query
}

func notFound(err error, what, name string) error {
	if errors.Is(err, datastore.ErrNoSuchEntity) {
		return fmt.Errorf("%s %s: %w", what, name, fa.ErrNotFound)
	}
	return err
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// ============================================================================
// AccountStore
// ============================================================================

// AccountStore implements fa.AccountStore using Google Cloud Datastore
type AccountStore struct {
	base
}

// NewAccountStore creates a new Datastore-backed AccountStore
func NewAccountStore(client *datastore.Client, namespace string) *AccountStore {
	return &AccountStore{base{client: client, namespace: namespace, ctx: context.Background()}}
}

// WithContext returns a copy of the store with the given context
func (s *AccountStore) WithContext(ctx context.Context) *AccountStore {
	return &AccountStore{base{client: s.client, namespace: s.namespace, ctx: ctx}}
}

func (s *AccountStore) CreateAccount(account *fa.Account) error {
	email := normalizeEmail(account.Email)
	key := s.namespacedKey(KindAccount, email)
	if account.CreatedAt.IsZero() {
		account.CreatedAt = time.Now()
	}

	_, err := s.client.RunInTransaction(s.ctx, func(tx *datastore.Transaction) error {
		var existing AccountEntity
		err := tx.Get(key, &existing)
		if err == nil {
			return fmt.Errorf("account %s: %w", email, fa.ErrAlreadyExists)
		}
		if err != datastore.ErrNoSuchEntity {
			return err
		}
		_, err = tx.Put(key, &AccountEntity{
			Key:          key,
			UserID:       account.UserID,
			PasswordHash: account.PasswordHash,
			CreatedAt:    account.CreatedAt,
		})
		return err
	})
	if err == nil {
		account.Email = email
	}
	return err
}

func (s *AccountStore) GetAccountByEmail(email string) (*fa.Account, error) {
	email = normalizeEmail(email)
	var entity AccountEntity
	if err := s.client.Get(s.ctx, s.namespacedKey(KindAccount, email), &entity); err != nil {
		return nil, notFound(err, "account", email)
	}
	return entity.ToAccount(), nil
}

func (s *AccountStore) GetAccount(userID string) (*fa.Account, error) {
	query := s.query(KindAccount).FilterField("user_id", "=", userID).Limit(1)
	it := s.client.Run(s.ctx, query)
	var entity AccountEntity
	_, err := it.Next(&entity)
	if err == iterator.Done {
		return nil, fmt.Errorf("account %s: %w", userID, fa.ErrNotFound)
	}
	if err != nil {
		return nil, err
	}
	return entity.ToAccount(), nil
}

// ============================================================================
// BoardStore
// ============================================================================

// BoardStore implements fa.BoardStore using Google Cloud Datastore
type BoardStore struct {
	base
}

// NewBoardStore creates a new Datastore-backed BoardStore
func NewBoardStore(client *datastore.Client, namespace string) *BoardStore {
	return &BoardStore{base{client: client, namespace: namespace, ctx: context.Background()}}
}

// WithContext returns a copy of the store with the given context
func (s *BoardStore) WithContext(ctx context.Context) *BoardStore {
	return &BoardStore{base{client: s.client, namespace: s.namespace, ctx: ctx}}
}

func (s *BoardStore) GetMember(email string) (*fa.Member, error) {
	email = normalizeEmail(email)
	var entity MemberEntity
	if err := s.client.Get(s.ctx, s.namespacedKey(KindMember, email), &entity); err != nil {
		return nil, notFound(err, "member", email)
	}
	return entity.ToMember(), nil
}

func (s *BoardStore) EnsureMember(email, userID string) (*fa.Member, error) {
	email = normalizeEmail(email)
	key := s.namespacedKey(KindMember, email)

	var entity MemberEntity
	_, err := s.client.RunInTransaction(s.ctx, func(tx *datastore.Transaction) error {
		err := tx.Get(key, &entity)
		if err != datastore.ErrNoSuchEntity {
			return err
		}
		entity = MemberEntity{Key: key, UserID: userID, Boards: []string{}}
		_, err = tx.Put(key, &entity)
		return err
	})
	if err != nil {
		return nil, err
	}
	entity.Key = key
	return entity.ToMember(), nil
}

func (s *BoardStore) FindMemberByUserID(userID string) (*fa.Member, error) {
	members, err := s.listMembers(s.query(KindMember).FilterField("user_id", "=", userID).Limit(1))
	if err != nil {
		return nil, err
	}
	if len(members) == 0 {
		return nil, fmt.Errorf("member with user id %s: %w", userID, fa.ErrNotFound)
	}
	return members[0], nil
}

// ListBoardMembers relies on Datastore's multi-valued property matching: a
// filter on "boards" matches any element of the list.
func (s *BoardStore) ListBoardMembers(boardID string) ([]*fa.Member, error) {
	return s.listMembers(s.query(KindMember).FilterField("boards", "=", boardID))
}

func (s *BoardStore) listMembers(query *datastore.Query) ([]*fa.Member, error) {
	var members []*fa.Member
	it := s.client.Run(s.ctx, query)
	for {
		var entity MemberEntity
		_, err := it.Next(&entity)
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, err
		}
		members = append(members, entity.ToMember())
	}
	sort.Slice(members, func(i, j int) bool { return members[i].Email < members[j].Email })
	return members, nil
}

func (s *BoardStore) AddBoardToMember(email, boardID string) error {
	return s.updateMember(email, func(e *MemberEntity) {
		if !slices.Contains(e.Boards, boardID) {
			e.Boards = append(e.Boards, boardID)
		}
	})
}

func (s *BoardStore) RemoveBoardFromMember(email, boardID string) error {
	return s.updateMember(email, func(e *MemberEntity) {
		e.Boards = slices.DeleteFunc(e.Boards, func(id string) bool { return id == boardID })
	})
}

func (s *BoardStore) updateMember(email string, update func(*MemberEntity)) error {
	email = normalizeEmail(email)
	key := s.namespacedKey(KindMember, email)
	_, err := s.client.RunInTransaction(s.ctx, func(tx *datastore.Transaction) error {
		var entity MemberEntity
		if err := tx.Get(key, &entity); err != nil {
			return notFound(err, "member", email)
		}
		update(&entity)
		_, err := tx.Put(key, &entity)
		return err
	})
	return err
}

func (s *BoardStore) CreateBoard(board *fa.Board) (*fa.Board, error) {
	board.ID = uuid.NewString()
	if board.CreatedAt.IsZero() {
		board.CreatedAt = time.Now()
	}
	if err := s.SaveBoard(board); err != nil {
		return nil, err
	}
	return board, nil
}

func (s *BoardStore) GetBoard(boardID string) (*fa.Board, error) {
	var entity BoardEntity
	if err := s.client.Get(s.ctx, s.namespacedKey(KindBoard, boardID), &entity); err != nil {
		return nil, notFound(err, "board", boardID)
	}
	return entity.ToBoard(), nil
}

func (s *BoardStore) SaveBoard(board *fa.Board) error {
	key := s.namespacedKey(KindBoard, board.ID)
	_, err := s.client.Put(s.ctx, key, BoardToEntity(board, key))
	return err
}

func (s *BoardStore) DeleteBoard(boardID string) error {
	return s.deleteExisting(s.namespacedKey(KindBoard, boardID), &BoardEntity{}, "board")
}

func (s *BoardStore) CreateTask(task *fa.Task) (*fa.Task, error) {
	task.ID = uuid.NewString()
	if task.CreatedAt.IsZero() {
		task.CreatedAt = time.Now()
		task.UpdatedAt = task.CreatedAt
	}
	if err := s.SaveTask(task); err != nil {
		return nil, err
	}
	return task, nil
}

func (s *BoardStore) GetTask(taskID string) (*fa.Task, error) {
	var entity TaskEntity
	if err := s.client.Get(s.ctx, s.namespacedKey(KindTask, taskID), &entity); err != nil {
		return nil, notFound(err, "task", taskID)
	}
	return entity.ToTask(), nil
}

func (s *BoardStore) SaveTask(task *fa.Task) error {
	key := s.namespacedKey(KindTask, task.ID)
	_, err := s.client.Put(s.ctx, key, TaskToEntity(task, key))
	return err
}

func (s *BoardStore) DeleteTask(taskID string) error {
	return s.deleteExisting(s.namespacedKey(KindTask, taskID), &TaskEntity{}, "task")
}

// ListBoardTasks sorts in memory so the query needs no composite index.
func (s *BoardStore) ListBoardTasks(boardID string) ([]*fa.Task, error) {
	query := s.query(KindTask).FilterField("board_id", "=", boardID)

	var tasks []*fa.Task
	it := s.client.Run(s.ctx, query)
	for {
		var entity TaskEntity
		_, err := it.Next(&entity)
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, err
		}
		tasks = append(tasks, entity.ToTask())
	}
	sort.SliceStable(tasks, func(i, j int) bool { return tasks[i].CreatedAt.Before(tasks[j].CreatedAt) })
	return tasks, nil
}

// deleteExisting deletes key, reporting fa.ErrNotFound if it was never there.
func (s *BoardStore) deleteExisting(key *datastore.Key, dst any, what string) error {
	_, err := s.client.RunInTransaction(s.ctx, func(tx *datastore.Transaction) error {
		if err := tx.Get(key, dst); err != nil {
			return notFound(err, what, key.Name)
		}
		return tx.Delete(key)
	})
	return err
}
