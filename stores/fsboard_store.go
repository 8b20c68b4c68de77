package stores

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	fa "github.com/panyam/fireauth"
)

// FSBoardStore stores members, boards and tasks as JSON files under
// StoragePath/{members,boards,tasks}.
type FSBoardStore struct {
	StoragePath string

	// Used to stamp new boards and tasks. Defaults to time.Now.
	Now func() time.Time

	mu sync.Mutex
}

func NewFSBoardStore(storagePath string) *FSBoardStore {
	return &FSBoardStore{StoragePath: storagePath, Now: time.Now}
}

func (s *FSBoardStore) path(kind, key string) string {
	return filepath.Join(s.StoragePath, kind, safeName(key))
}

func (s *FSBoardStore) now() time.Time {
	if s.Now == nil {
		return time.Now()
	}
	return s.Now()
}

// ---- Members

func (s *FSBoardStore) GetMember(email string) (*fa.Member, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.getMember(email)
}

func (s *FSBoardStore) getMember(email string) (*fa.Member, error) {
	email = normalizeEmail(email)
	var member fa.Member
	if err := readJSON(s.path("members", email), "member", email, &member); err != nil {
		return nil, err
	}
	return &member, nil
}

func (s *FSBoardStore) EnsureMember(email, userID string) (*fa.Member, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	member, err := s.getMember(email)
	if err == nil {
		return member, nil
	}
	if !errors.Is(err, fa.ErrNotFound) {
		return nil, err
	}
	member = &fa.Member{Email: normalizeEmail(email), UserID: userID, Boards: []string{}}
	if err := writeJSON(s.path("members", member.Email), member); err != nil {
		return nil, err
	}
	return member, nil
}

func (s *FSBoardStore) FindMemberByUserID(userID string) (*fa.Member, error) {
	members, err := s.listMembers(func(m *fa.Member) bool { return m.UserID == userID })
	if err != nil {
		return nil, err
	}
	if len(members) == 0 {
		return nil, fmt.Errorf("member with user id %s: %w", userID, fa.ErrNotFound)
	}
	return members[0], nil
}

func (s *FSBoardStore) ListBoardMembers(boardID string) ([]*fa.Member, error) {
	return s.listMembers(func(m *fa.Member) bool { return m.HasBoard(boardID) })
}

func (s *FSBoardStore) listMembers(match func(*fa.Member) bool) ([]*fa.Member, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var out []*fa.Member
	err := listJSON(filepath.Join(s.StoragePath, "members"), func(data []byte) error {
		var member fa.Member
		if err := json.Unmarshal(data, &member); err != nil {
			return err
		}
		if match(&member) {
			out = append(out, &member)
		}
		return nil
	})
	sort.Slice(out, func(i, j int) bool { return out[i].Email < out[j].Email })
	return out, err
}

func (s *FSBoardStore) AddBoardToMember(email, boardID string) error {
	return s.updateMember(email, func(m *fa.Member) {
		if !m.HasBoard(boardID) {
			m.Boards = append(m.Boards, boardID)
		}
	})
}

func (s *FSBoardStore) RemoveBoardFromMember(email, boardID string) error {
	return s.updateMember(email, func(m *fa.Member) {
		m.Boards = slices.DeleteFunc(m.Boards, func(id string) bool { return id == boardID })
	})
}

func (s *FSBoardStore) updateMember(email string, update func(*fa.Member)) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	member, err := s.getMember(email)
	if err != nil {
		return err
	}
	update(member)
	return writeJSON(s.path("members", member.Email), member)
}

// ---- Boards

func (s *FSBoardStore) CreateBoard(board *fa.Board) (*fa.Board, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	board.ID = uuid.NewString()
	if board.CreatedAt.IsZero() {
		board.CreatedAt = s.now()
	}
	if err := writeJSON(s.path("boards", board.ID), board); err != nil {
		return nil, err
	}
	return board, nil
}

func (s *FSBoardStore) GetBoard(boardID string) (*fa.Board, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var board fa.Board
	if err := readJSON(s.path("boards", boardID), "board", boardID, &board); err != nil {
		return nil, err
	}
	return &board, nil
}

func (s *FSBoardStore) SaveBoard(board *fa.Board) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return writeJSON(s.path("boards", board.ID), board)
}

func (s *FSBoardStore) DeleteBoard(boardID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return removeFile(s.path("boards", boardID), "board", boardID)
}

// ---- Tasks

func (s *FSBoardStore) CreateTask(task *fa.Task) (*fa.Task, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	task.ID = uuid.NewString()
	if task.CreatedAt.IsZero() {
		task.CreatedAt = s.now()
		task.UpdatedAt = task.CreatedAt
	}
	if err := writeJSON(s.path("tasks", task.ID), task); err != nil {
		return nil, err
	}
	return task, nil
}

func (s *FSBoardStore) GetTask(taskID string) (*fa.Task, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var task fa.Task
	if err := readJSON(s.path("tasks", taskID), "task", taskID, &task); err != nil {
		return nil, err
	}
	return &task, nil
}

func (s *FSBoardStore) SaveTask(task *fa.Task) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return writeJSON(s.path("tasks", task.ID), task)
}

func (s *FSBoardStore) DeleteTask(taskID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return removeFile(s.path("tasks", taskID), "task", taskID)
}

func (s *FSBoardStore) ListBoardTasks(boardID string) ([]*fa.Task, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var out []*fa.Task
	err := listJSON(filepath.Join(s.StoragePath, "tasks"), func(data []byte) error {
		var task fa.Task
		if err := json.Unmarshal(data, &task); err != nil {
			return err
		}
		if task.BoardID == boardID {
			out = append(out, &task)
		}
		return nil
	})
	sort.SliceStable(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, err
}

func removeFile(path, what, key string) error {
	if err := os.Remove(path); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return fmt.Errorf("%s %s: %w", what, key, fa.ErrNotFound)
		}
		return err
	}
	return nil
}
