package progress

import (
	"cmp"
	"context"
	"fmt"
	"math"
	"slices"
	"time"
)

// FirstAttemptMastery is the share of words read correctly without a failed
// attempt, as a percentage rounded to one decimal.
func FirstAttemptMastery(firstTry, total int) float64 {
	pct := float64(firstTry) / float64(max(1, total)) * 100
	return math.Round(pct*10) / 10
}

// MasteryPercent is the mean first-attempt mastery over sessions, rounded to
// one decimal. It is 0 for no sessions.
func MasteryPercent(sessions []Session) float64 {
	if len(sessions) == 0 {
		return 0
	}
	var sum float64
	for _, s := range sessions {
		sum += s.FirstAttemptMastery
	}
	return math.Round(sum/float64(len(sessions))*10) / 10
}

// Streak counts consecutive days, ending with today, on which at least one
// sentence was read. A day without reading today yields 0.
func Streak(counts map[string]int, today time.Time) int {
	streak := 0
	for d := today; counts[Day(d)] > 0; d = d.AddDate(0, 0, -1) {
		streak++
	}
	return streak
}

// WordCount pairs a word with how often it needed help.
type WordCount struct {
	Word  string
	Count int
}

// SortedWords returns the struggling map ordered by count, highest first, with
// ties broken alphabetically.
func SortedWords(m map[string]int) []WordCount {
	out := make([]WordCount, 0, len(m))
	for w, c := range m {
		out = append(out, WordCount{Word: w, Count: c})
	}
	slices.SortFunc(out, func(a, b WordCount) int {
		if c := cmp.Compare(b.Count, a.Count); c != 0 {
			return c
		}
		return cmp.Compare(a.Word, b.Word)
	})
	return out
}

// Stats is the overview shown to a parent.
type Stats struct {
	TotalSessions   int
	TodayCount      int
	Streak          int
	MasteryPercent  float64
	TodayScreenTime float64
	StrugglingWords []WordCount
	FocusWords      []string
	RecentSessions  []Session
}

// recentLimit bounds Stats.RecentSessions.
const recentLimit = 50

// ComputeStats reads everything needed for [Stats] from store.
func ComputeStats(ctx context.Context, store Store, now time.Time) (Stats, error) {
	sessions, err := store.Sessions(ctx)
	if err != nil {
		return Stats{}, fmt.Errorf("progress: stats: %w", err)
	}
	counts, err := store.DailyCounts(ctx)
	if err != nil {
		return Stats{}, fmt.Errorf("progress: stats: %w", err)
	}
	screen, err := store.ScreenTime(ctx, now)
	if err != nil {
		return Stats{}, fmt.Errorf("progress: stats: %w", err)
	}
	struggling, err := store.StrugglingWords(ctx)
	if err != nil {
		return Stats{}, fmt.Errorf("progress: stats: %w", err)
	}
	focus, err := store.FocusWords(ctx)
	if err != nil {
		return Stats{}, fmt.Errorf("progress: stats: %w", err)
	}

	recent := sessions[max(0, len(sessions)-recentLimit):]
	recent = slices.Clone(recent)
	slices.Reverse(recent)

	return Stats{
		TotalSessions:   len(sessions),
		TodayCount:      counts[Day(now)],
		Streak:          Streak(counts, now),
		MasteryPercent:  MasteryPercent(sessions),
		TodayScreenTime: screen,
		StrugglingWords: SortedWords(struggling),
		FocusWords:      focus,
		RecentSessions:  recent,
	}, nil
}
