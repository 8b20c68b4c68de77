package fireauth_test

import (
	"testing"
	"time"

	fa "github.com/panyam/fireauth"
	"github.com/panyam/fireauth/stores"
)

var (
	alice = &fa.AccountInfo{UserID: "uid-alice", Email: "alice@example.com"}
	bob   = &fa.AccountInfo{UserID: "uid-bob", Email: "bob@example.com"}
	carol = &fa.AccountInfo{UserID: "uid-carol", Email: "carol@example.com"}
)

func newTestBoardService(t *testing.T) *fa.BoardService {
	t.Helper()
	svc := fa.NewBoardService(stores.NewFSBoardStore(t.TempDir()))
	clock := time.Date(2024, 1, 1, 9, 0, 0, 0, time.UTC)
	svc.Now = func() time.Time {
		clock = clock.Add(time.Second)
		return clock
	}
	// Opening the main page registers each user as a member
	for _, u := range []*fa.AccountInfo{alice, bob, carol} {
		if _, err := svc.Overview(u); err != nil {
			t.Fatalf("Overview(%s) failed: %v", u.Email, err)
		}
	}
	return svc
}

func wantBoardCode(t *testing.T, err error, code string) {
	t.Helper()
	if got := fa.BoardErrorCode(err); got != code {
		t.Errorf("error code = %q, want %q (err: %v)", got, code, err)
	}
}

func TestBoardService_CreateAndOverview(t *testing.T) {
	svc := newTestBoardService(t)

	_, err := svc.CreateBoard(alice, "   ", "")
	wantBoardCode(t, err, fa.ErrCodeMissingTitle)

	board, err := svc.CreateBoard(alice, " Groceries ", "weekly shop")
	if err != nil {
		t.Fatalf("CreateBoard failed: %v", err)
	}
	if board.Title != "Groceries" || board.CreatedBy != alice.UserID {
		t.Errorf("unexpected board %+v", board)
	}
	if err := svc.AddMember(alice, board.ID, "BOB@example.com"); err != nil {
		t.Fatalf("AddMember failed: %v", err)
	}

	overview, err := svc.Overview(alice)
	if err != nil {
		t.Fatal(err)
	}
	if len(overview.Owned) != 1 || len(overview.Shared) != 0 || !overview.Owned[0].IsCreator {
		t.Errorf("alice overview: %+v", overview)
	}

	overview, err = svc.Overview(bob)
	if err != nil {
		t.Fatal(err)
	}
	if len(overview.Owned) != 0 || len(overview.Shared) != 1 {
		t.Fatalf("bob overview: %+v", overview)
	}
	if overview.Shared[0].CreatorEmail != alice.Email {
		t.Errorf("expected creator email %s, got %s", alice.Email, overview.Shared[0].CreatorEmail)
	}
}

func TestBoardService_ViewBoard(t *testing.T) {
	svc := newTestBoardService(t)
	board, err := svc.CreateBoard(alice, "Chores", "")
	if err != nil {
		t.Fatal(err)
	}
	if err := svc.AddMember(alice, board.ID, bob.Email); err != nil {
		t.Fatal(err)
	}
	if _, err := svc.AddTask(alice, board.ID, "dishes", "2024-02-01", nil); err != nil {
		t.Fatal(err)
	}
	task, err := svc.AddTask(bob, board.ID, "laundry", "", []string{alice.Email})
	if err != nil {
		t.Fatal(err)
	}
	if _, err := svc.ToggleTask(bob, board.ID, task.ID); err != nil {
		t.Fatal(err)
	}

	detail, err := svc.ViewBoard(bob, board.ID)
	if err != nil {
		t.Fatalf("ViewBoard failed: %v", err)
	}
	if detail.IsCreator {
		t.Error("bob is not the creator")
	}
	if len(detail.Members) != 2 || detail.Members[0].Email != alice.Email || detail.Members[1].Email != bob.Email {
		t.Errorf("unexpected members %+v", detail.Members)
	}
	if detail.TotalTasks != 2 || detail.CompletedTasks != 1 || detail.ActiveTasks != 1 {
		t.Errorf("unexpected counts %d/%d/%d", detail.TotalTasks, detail.CompletedTasks, detail.ActiveTasks)
	}
	if detail.Tasks[0].Title != "dishes" || detail.Tasks[1].CreatorEmail != bob.Email {
		t.Errorf("unexpected tasks %+v %+v", detail.Tasks[0], detail.Tasks[1])
	}

	_, err = svc.ViewBoard(carol, board.ID)
	wantBoardCode(t, err, fa.ErrCodeNotMember)
}

func TestBoardService_TaskRules(t *testing.T) {
	svc := newTestBoardService(t)
	board, err := svc.CreateBoard(alice, "Chores", "")
	if err != nil {
		t.Fatal(err)
	}
	other, err := svc.CreateBoard(bob, "Other", "")
	if err != nil {
		t.Fatal(err)
	}
	task, err := svc.AddTask(alice, board.ID, "dishes", "", nil)
	if err != nil {
		t.Fatal(err)
	}

	tests := []struct {
		name string
		call func() error
		code string
	}{
		{"duplicate title", func() error {
			_, err := svc.AddTask(alice, board.ID, "dishes", "", nil)
			return err
		}, fa.ErrCodeTaskExists},
		{"blank title", func() error {
			_, err := svc.AddTask(alice, board.ID, " ", "", nil)
			return err
		}, fa.ErrCodeMissingTitle},
		{"add by non member", func() error {
			_, err := svc.AddTask(carol, board.ID, "sneaky", "", nil)
			return err
		}, fa.ErrCodeNotMember},
		{"toggle by non member", func() error {
			_, err := svc.ToggleTask(carol, board.ID, task.ID)
			return err
		}, fa.ErrCodeNotMember},
		{"edit by non member", func() error {
			_, err := svc.EditTask(carol, board.ID, task.ID, "x", "", nil)
			return err
		}, fa.ErrCodeNotMember},
		{"delete by non member", func() error {
			return svc.DeleteTask(carol, board.ID, task.ID)
		}, fa.ErrCodeNotMember},
		{"task from another board", func() error {
			_, err := svc.ToggleTask(bob, other.ID, task.ID)
			return err
		}, fa.ErrCodeTaskNotFound},
		{"unknown task", func() error {
			_, err := svc.ToggleTask(alice, board.ID, "missing")
			return err
		}, fa.ErrCodeTaskNotFound},
		{"edit to blank title", func() error {
			_, err := svc.EditTask(alice, board.ID, task.ID, "", "", nil)
			return err
		}, fa.ErrCodeMissingTitle},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			wantBoardCode(t, tt.call(), tt.code)
		})
	}
}

func TestBoardService_ToggleEditDelete(t *testing.T) {
	svc := newTestBoardService(t)
	board, err := svc.CreateBoard(alice, "Chores", "")
	if err != nil {
		t.Fatal(err)
	}
	task, err := svc.AddTask(alice, board.ID, "dishes", "", nil)
	if err != nil {
		t.Fatal(err)
	}

	toggled, err := svc.ToggleTask(alice, board.ID, task.ID)
	if err != nil {
		t.Fatal(err)
	}
	if !toggled.Completed || toggled.CompletedAt == nil {
		t.Errorf("expected completed task with timestamp, got %+v", toggled)
	}
	toggled, err = svc.ToggleTask(alice, board.ID, task.ID)
	if err != nil {
		t.Fatal(err)
	}
	if toggled.Completed || toggled.CompletedAt != nil {
		t.Errorf("expected reopened task, got %+v", toggled)
	}

	edited, err := svc.EditTask(alice, board.ID, task.ID, "dry dishes", "2024-03-01", []string{bob.Email})
	if err != nil {
		t.Fatal(err)
	}
	if edited.Title != "dry dishes" || edited.DueDate != "2024-03-01" || len(edited.Assignees) != 1 {
		t.Errorf("unexpected edit result %+v", edited)
	}
	if !edited.UpdatedAt.After(edited.CreatedAt) {
		t.Error("expected UpdatedAt to move forward")
	}

	if err := svc.DeleteTask(alice, board.ID, task.ID); err != nil {
		t.Fatal(err)
	}
	detail, err := svc.ViewBoard(alice, board.ID)
	if err != nil {
		t.Fatal(err)
	}
	if detail.TotalTasks != 0 {
		t.Errorf("expected no tasks, got %d", detail.TotalTasks)
	}
}

func TestBoardService_OwnerOperations(t *testing.T) {
	svc := newTestBoardService(t)
	board, err := svc.CreateBoard(alice, "Chores", "")
	if err != nil {
		t.Fatal(err)
	}
	if err := svc.AddMember(alice, board.ID, bob.Email); err != nil {
		t.Fatal(err)
	}

	wantBoardCode(t, svc.AddMember(bob, board.ID, carol.Email), fa.ErrCodeNotCreator)
	wantBoardCode(t, svc.AddMember(alice, board.ID, "nobody@example.com"), fa.ErrCodeAddUserFailed)
	wantBoardCode(t, svc.RenameBoard(bob, board.ID, "Mine"), fa.ErrCodeNotCreator)
	wantBoardCode(t, svc.RenameBoard(alice, board.ID, " "), fa.ErrCodeMissingTitle)
	wantBoardCode(t, svc.RemoveMembers(bob, board.ID, []string{alice.Email}), fa.ErrCodeNotCreator)
	wantBoardCode(t, svc.DeleteBoard(bob, board.ID), fa.ErrCodeNotCreator)

	if err := svc.RenameBoard(alice, board.ID, "House chores"); err != nil {
		t.Fatal(err)
	}
	task, err := svc.AddTask(alice, board.ID, "dishes", "", []string{bob.Email, alice.Email})
	if err != nil {
		t.Fatal(err)
	}

	wantBoardCode(t, svc.DeleteBoard(alice, board.ID), fa.ErrCodeBoardHasTasks)
	if err := svc.DeleteTask(alice, board.ID, task.ID); err != nil {
		t.Fatal(err)
	}
	wantBoardCode(t, svc.DeleteBoard(alice, board.ID), fa.ErrCodeBoardHasMembers)

	if err := svc.RemoveMembers(alice, board.ID, []string{bob.Email}); err != nil {
		t.Fatal(err)
	}
	_, err = svc.ViewBoard(bob, board.ID)
	wantBoardCode(t, err, fa.ErrCodeNotMember)

	if err := svc.DeleteBoard(alice, board.ID); err != nil {
		t.Fatalf("DeleteBoard failed: %v", err)
	}
	overview, err := svc.Overview(alice)
	if err != nil {
		t.Fatal(err)
	}
	if len(overview.Owned) != 0 {
		t.Errorf("expected deleted board to be gone, got %+v", overview.Owned)
	}
}

func TestBoardService_RemoveMembersUnassignsTasks(t *testing.T) {
	svc := newTestBoardService(t)
	board, err := svc.CreateBoard(alice, "Chores", "")
	if err != nil {
		t.Fatal(err)
	}
	if err := svc.AddMember(alice, board.ID, bob.Email); err != nil {
		t.Fatal(err)
	}
	if _, err := svc.AddTask(alice, board.ID, "dishes", "", []string{bob.Email, alice.Email}); err != nil {
		t.Fatal(err)
	}

	if err := svc.RemoveMembers(alice, board.ID, []string{bob.Email}); err != nil {
		t.Fatal(err)
	}
	detail, err := svc.ViewBoard(alice, board.ID)
	if err != nil {
		t.Fatal(err)
	}
	assignees := detail.Tasks[0].Assignees
	if len(assignees) != 1 || assignees[0] != alice.Email {
		t.Errorf("expected only alice assigned, got %v", assignees)
	}
}
