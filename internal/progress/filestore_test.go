package progress

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"slices"
	"testing"
)

func TestFileStore_PersistsAcrossOpens(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "nested", "progress.json")

	fs, err := OpenFileStore(path, 0)
	if err != nil {
		t.Fatalf("OpenFileStore: %v", err)
	}
	if _, err := os.Stat(path); !errors.Is(err, os.ErrNotExist) {
		t.Fatalf("file created before first change: %v", err)
	}

	if err := fs.RecordSession(ctx, Session{ChallengeID: "a", Sentence: "The cat sat.", WordsTotal: 3, WordsCorrect: 3, FirstAttemptMastery: 100, Timestamp: day0, RetellFile: "retell_1.wav"}); err != nil {
		t.Fatalf("RecordSession: %v", err)
	}
	if err := fs.AddScreenTime(ctx, day0, 4.5); err != nil {
		t.Fatalf("AddScreenTime: %v", err)
	}
	if err := fs.AddStrugglingWords(ctx, []string{"sat", "sat"}); err != nil {
		t.Fatalf("AddStrugglingWords: %v", err)
	}
	if _, err := fs.AddFocusWord(ctx, "Rabbit"); err != nil {
		t.Fatalf("AddFocusWord: %v", err)
	}

	reopened, err := OpenFileStore(path, 0)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	sessions, _ := reopened.Sessions(ctx)
	if len(sessions) != 1 || sessions[0].Sentence != "The cat sat." || !sessions[0].Timestamp.Equal(day0) || sessions[0].RetellFile != "retell_1.wav" {
		t.Errorf("sessions = %+v", sessions)
	}
	counts, _ := reopened.DailyCounts(ctx)
	if counts[Day(day0)] != 1 {
		t.Errorf("daily counts = %v", counts)
	}
	if got, _ := reopened.ScreenTime(ctx, day0); got != 4.5 {
		t.Errorf("screen time = %v, want 4.5", got)
	}
	if got, _ := reopened.StrugglingWords(ctx); got["sat"] != 2 {
		t.Errorf("struggling = %v", got)
	}
	if got, _ := reopened.FocusWords(ctx); !slices.Equal(got, []string{"rabbit"}) {
		t.Errorf("focus = %v", got)
	}
}

func TestFileStore_ResetAndTrim(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "progress.json")

	fs, err := OpenFileStore(path, 5)
	if err != nil {
		t.Fatalf("OpenFileStore: %v", err)
	}
	for i := range 5 {
		_ = fs.RecordSession(ctx, Session{ChallengeID: string(rune('a' + i)), Timestamp: day0})
	}

	small, err := OpenFileStore(path, 2)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	sessions, _ := small.Sessions(ctx)
	if len(sessions) != 2 || sessions[0].ChallengeID != "d" || sessions[1].ChallengeID != "e" {
		t.Errorf("sessions after trim = %+v", sessions)
	}

	if err := small.Reset(ctx); err != nil {
		t.Fatalf("Reset: %v", err)
	}
	again, _ := OpenFileStore(path, 0)
	if sessions, _ := again.Sessions(ctx); len(sessions) != 0 {
		t.Errorf("sessions after reset = %+v", sessions)
	}
}

func TestFileStore_RejectsCorruptFile(t *testing.T) {
	t.Parallel()
	path := filepath.Join(t.TempDir(), "progress.json")
	if err := os.WriteFile(path, []byte("{not json"), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := OpenFileStore(path, 0); err == nil {
		t.Fatal("OpenFileStore on corrupt file returned nil error")
	}
}

func TestFileStore_DuplicateFocusWordNotSaved(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	fs, _ := OpenFileStore(filepath.Join(t.TempDir(), "p.json"), 0)
	if _, err := fs.AddFocusWord(ctx, "cat"); err != nil {
		t.Fatal(err)
	}
	if _, err := fs.AddFocusWord(ctx, "CAT"); !errors.Is(err, ErrDuplicateWord) {
		t.Errorf("err = %v, want ErrDuplicateWord", err)
	}
}
