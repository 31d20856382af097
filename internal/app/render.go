package app

import (
	"fmt"
	"io"
	"strings"
	"sync"
	"time"

	"github.com/charmbracelet/lipgloss"

	"github.com/MrWong99/readtowatch/internal/challenge"
)

// Console renders a challenge as lines of styled text. It implements
// [challenge.Observer]; every other method is safe to call from any
// goroutine.
type Console struct {
	mu        sync.Mutex
	w         io.Writer
	tokens    []string
	status    []challenge.Status
	listening bool

	pending lipgloss.Style
	active  lipgloss.Style
	correct lipgloss.Style
	helped  lipgloss.Style
	notice  lipgloss.Style
	warn    lipgloss.Style
	success lipgloss.Style
}

// NewConsole returns a Console writing to w. Colours are dropped when w is
// not a terminal.
func NewConsole(w io.Writer) *Console {
	r := lipgloss.NewRenderer(w)
	return &Console{
		w:       w,
		pending: r.NewStyle().Faint(true),
		active:  r.NewStyle().Bold(true).Underline(true),
		correct: r.NewStyle().Foreground(lipgloss.Color("2")),
		helped:  r.NewStyle().Foreground(lipgloss.Color("3")),
		notice:  r.NewStyle().Foreground(lipgloss.Color("6")),
		warn:    r.NewStyle().Foreground(lipgloss.Color("1")).Bold(true),
		success: r.NewStyle().Foreground(lipgloss.Color("2")).Bold(true),
	}
}

// Show prints the sentence to read with the first word active.
func (c *Console) Show(tokens []string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.tokens = append([]string(nil), tokens...)
	c.status = make([]challenge.Status, len(tokens))
	c.listening = false
	c.printf("%s\n", c.notice.Render("Read the sentence below."))
	c.printSentence()
}

// Notice prints an informational line.
func (c *Console) Notice(msg string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.printf("%s\n", c.notice.Render(msg))
}

// Warn prints a highlighted line.
func (c *Console) Warn(msg string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.printf("%s\n", c.warn.Render(msg))
}

// Limit tells the reader that today's screen time is used up.
func (c *Console) Limit(used float64, limit int) {
	c.Warn(fmt.Sprintf("Screen time is up: %.0f of %d minutes watched today.", used, limit))
}

func (c *Console) OnWordOutcome(index int, token string, outcome challenge.Outcome) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if index < 0 || index >= len(c.status) {
		return
	}
	switch outcome {
	case challenge.OutcomeCorrect:
		c.status[index] = challenge.StatusCorrect
		c.printSentence()
	case challenge.OutcomeHelped:
		c.status[index] = challenge.StatusHelped
		c.printf("%s\n", c.helped.Render("The word is: "+token))
		c.printSentence()
	case challenge.OutcomeError:
		c.printf("%s\n", c.warn.Render("Not quite! Try again."))
	}
}

func (c *Console) OnSentenceComplete(s challenge.Summary) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.printf("%s\n", c.success.Render("Amazing! You read the whole sentence!"))
	c.printf("%s\n", c.notice.Render(fmt.Sprintf("%d of %d words on your own in %s.",
		s.WordsCorrect(), s.TotalWords, s.Elapsed().Round(time.Second))))
}

func (c *Console) OnRecognitionUnsupported() {
	c.Warn("Speech recognition is not available here.")
}

func (c *Console) OnGestureRequired(required bool) {
	if required {
		c.Warn("The microphone stopped. Type /mic to try again.")
	}
}

func (c *Console) OnListening(listening bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if listening == c.listening {
		return
	}
	c.listening = listening
	if listening {
		c.printf("%s\n", c.notice.Render("Listening..."))
	}
}

// printSentence must be called with mu held.
func (c *Console) printSentence() {
	activeIdx := -1
	for i, st := range c.status {
		if st == challenge.StatusPending {
			activeIdx = i
			break
		}
	}
	parts := make([]string, len(c.tokens))
	for i, tok := range c.tokens {
		switch {
		case c.status[i] == challenge.StatusCorrect:
			parts[i] = c.correct.Render(tok)
		case c.status[i] == challenge.StatusHelped:
			parts[i] = c.helped.Render(tok)
		case i == activeIdx:
			parts[i] = c.active.Render("[" + tok + "]")
		default:
			parts[i] = c.pending.Render(tok)
		}
	}
	c.printf("  %s\n", strings.Join(parts, " "))
}

func (c *Console) printf(format string, args ...any) {
	_, _ = fmt.Fprintf(c.w, format, args...)
}

var _ challenge.Observer = (*Console)(nil)
