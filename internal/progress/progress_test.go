package progress

import (
	"bytes"
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"testing"
	"time"
)

var day0 = time.Date(2026, 3, 10, 17, 30, 0, 0, time.UTC)

func TestFirstAttemptMastery(t *testing.T) {
	t.Parallel()
	tests := []struct {
		firstTry, total int
		want           float64
	}{
		{3, 3, 100},
		{2, 3, 66.7},
		{0, 4, 0},
		{0, 0, 0},
		{1, 0, 100},
	}
	for _, tc := range tests {
		t.Run(fmt.Sprintf("%d_of_%d", tc.firstTry, tc.total), func(t *testing.T) {
			t.Parallel()
			if got := FirstAttemptMastery(tc.firstTry, tc.total); got != tc.want {
				t.Errorf("FirstAttemptMastery = %v, want %v", got, tc.want)
			}
		})
	}
}

func TestMasteryPercent(t *testing.T) {
	t.Parallel()
	if got := MasteryPercent(nil); got != 0 {
		t.Errorf("MasteryPercent(nil) = %v, want 0", got)
	}
	got := MasteryPercent([]Session{{FirstAttemptMastery: 100}, {FirstAttemptMastery: 50}, {FirstAttemptMastery: 0}})
	if got != 50 {
		t.Errorf("MasteryPercent = %v, want 50", got)
	}
}

func TestStreak(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name   string
		counts map[string]int
		want   int
	}{
		{"empty", nil, 0},
		{"today only", map[string]int{"2026-03-10": 1}, 1},
		{"three days", map[string]int{"2026-03-10": 2, "2026-03-09": 1, "2026-03-08": 5}, 3},
		{"gap", map[string]int{"2026-03-10": 1, "2026-03-08": 1}, 1},
		{"not today", map[string]int{"2026-03-09": 1}, 0},
		{"across month", map[string]int{"2026-03-10": 1, "2026-03-09": 1, "2026-03-08": 1, "2026-03-07": 1, "2026-03-06": 1, "2026-03-05": 1, "2026-03-04": 1, "2026-03-03": 1, "2026-03-02": 1, "2026-03-01": 1, "2026-02-28": 1}, 11},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			if got := Streak(tc.counts, day0); got != tc.want {
				t.Errorf("Streak = %d, want %d", got, tc.want)
			}
		})
	}
}

func TestNormalizeFocusWord(t *testing.T) {
	t.Parallel()
	tests := []struct {
		raw     string
		want    string
		wantErr bool
	}{
		{"  Rabbit ", "rabbit", false},
		{"don't", "dont", false},
		{"r2d2", "rd", false},
		{"123", "", true},
		{"", "", true},
		{"Classic", "", true},
		{"skill", "", true},
	}
	for _, tc := range tests {
		t.Run(tc.raw, func(t *testing.T) {
			t.Parallel()
			got, err := NormalizeFocusWord(tc.raw)
			if tc.wantErr {
				if !errors.Is(err, ErrInvalidWord) {
					t.Errorf("err = %v, want ErrInvalidWord", err)
				}
				return
			}
			if err != nil || got != tc.want {
				t.Errorf("NormalizeFocusWord(%q) = %q, %v; want %q", tc.raw, got, err, tc.want)
			}
		})
	}
}

func TestMemStore_RecordSessionTrims(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	s := NewMemStore(3)
	for i := range 5 {
		err := s.RecordSession(ctx, Session{Sentence: fmt.Sprintf("s%d", i), Timestamp: day0.Add(time.Duration(i) * time.Minute)})
		if err != nil {
			t.Fatal(err)
		}
	}
	got, _ := s.Sessions(ctx)
	if len(got) != 3 || got[0].Sentence != "s2" || got[2].Sentence != "s4" {
		t.Errorf("Sessions = %+v, want s2..s4", got)
	}
	counts, _ := s.DailyCounts(ctx)
	if counts["2026-03-10"] != 5 {
		t.Errorf("daily count = %d, want 5", counts["2026-03-10"])
	}
}

func TestMemStore_FocusWords(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	s := NewMemStore(0)

	if w, err := s.AddFocusWord(ctx, "Jump"); err != nil || w != "jump" {
		t.Fatalf("AddFocusWord = %q, %v", w, err)
	}
	if _, err := s.AddFocusWord(ctx, "jump!"); !errors.Is(err, ErrDuplicateWord) {
		t.Errorf("duplicate err = %v, want ErrDuplicateWord", err)
	}
	if _, err := s.AddFocusWord(ctx, "frog"); err != nil {
		t.Fatal(err)
	}
	if err := s.RemoveFocusWord(ctx, "jump"); err != nil {
		t.Fatal(err)
	}
	if err := s.RemoveFocusWord(ctx, "absent"); err != nil {
		t.Errorf("removing absent word: %v", err)
	}
	got, _ := s.FocusWords(ctx)
	if len(got) != 1 || got[0] != "frog" {
		t.Errorf("FocusWords = %v, want [frog]", got)
	}
}

func TestMemStore_StrugglingAndScreenTime(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	s := NewMemStore(0)

	_ = s.AddStrugglingWords(ctx, []string{"the", "frog"})
	_ = s.AddStrugglingWords(ctx, []string{"frog"})
	got, _ := s.StrugglingWords(ctx)
	if got["frog"] != 2 || got["the"] != 1 {
		t.Errorf("StrugglingWords = %v", got)
	}

	_ = s.AddScreenTime(ctx, day0, 12.5)
	_ = s.AddScreenTime(ctx, day0.Add(time.Hour), 2.5)
	if m, _ := s.ScreenTime(ctx, day0); m != 15 {
		t.Errorf("ScreenTime = %v, want 15", m)
	}
	if m, _ := s.ScreenTime(ctx, day0.AddDate(0, 0, -1)); m != 0 {
		t.Errorf("ScreenTime yesterday = %v, want 0", m)
	}
	if err := s.AddScreenTime(ctx, day0, -1); err == nil {
		t.Error("expected error for negative minutes")
	}

	_ = s.Reset(ctx)
	if got, _ := s.StrugglingWords(ctx); len(got) != 0 {
		t.Errorf("StrugglingWords after Reset = %v", got)
	}
}

func TestComputeStats(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	s := NewMemStore(0)
	_ = s.RecordSession(ctx, Session{Sentence: "a", FirstAttemptMastery: 100, Timestamp: day0.AddDate(0, 0, -1)})
	_ = s.RecordSession(ctx, Session{Sentence: "b", FirstAttemptMastery: 50, Timestamp: day0})
	_ = s.AddStrugglingWords(ctx, []string{"cat", "sat", "sat"})
	_ = s.AddScreenTime(ctx, day0, 20)

	st, err := ComputeStats(ctx, s, day0)
	if err != nil {
		t.Fatalf("ComputeStats: %v", err)
	}
	if st.TotalSessions != 2 || st.TodayCount != 1 || st.Streak != 2 {
		t.Errorf("sessions/today/streak = %d/%d/%d, want 2/1/2", st.TotalSessions, st.TodayCount, st.Streak)
	}
	if st.MasteryPercent != 75 || st.TodayScreenTime != 20 {
		t.Errorf("mastery/screen = %v/%v, want 75/20", st.MasteryPercent, st.TodayScreenTime)
	}
	if len(st.StrugglingWords) != 2 || st.StrugglingWords[0] != (WordCount{"sat", 2}) {
		t.Errorf("StrugglingWords = %v", st.StrugglingWords)
	}
	if len(st.RecentSessions) != 2 || st.RecentSessions[0].Sentence != "b" {
		t.Errorf("RecentSessions not newest first: %+v", st.RecentSessions)
	}
}

func TestExportCSV(t *testing.T) {
	t.Parallel()
	var buf bytes.Buffer
	err := ExportCSV(&buf, []Session{{
		Sentence: `She said "hi", then left.`, WordsTotal: 5, WordsCorrect: 5, WordsHelped: 1,
		FirstAttemptMastery: 80, Timestamp: day0, RetellFile: "retell/retell_1.wav",
	}})
	if err != nil {
		t.Fatalf("ExportCSV: %v", err)
	}

	recs, err := csv.NewReader(&buf).ReadAll()
	if err != nil {
		t.Fatalf("read back: %v", err)
	}
	if len(recs) != 2 {
		t.Fatalf("got %d records, want 2", len(recs))
	}
	want := []string{"2026-03-10T17:30:00Z", `She said "hi", then left.`, "5", "5", "1", "80.0", "retell/retell_1.wav"}
	for i, v := range want {
		if recs[1][i] != v {
			t.Errorf("field %d = %q, want %q", i, recs[1][i], v)
		}
	}
}
