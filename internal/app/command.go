package app

import (
	"bufio"
	"context"
	"io"
	"strings"
)

// CommandKind identifies a console command.
type CommandKind int

const (
	// CommandSay carries text to check against the active word.
	CommandSay CommandKind = iota
	// CommandHelp reveals the active word.
	CommandHelp
	// CommandSkip reveals the active word and moves on.
	CommandSkip
	// CommandMic restarts the microphone after the recognizer gave up.
	CommandMic
	// CommandUnlock ends the challenge early when Arg is the parent code.
	CommandUnlock
	// CommandDone ends a retell recording.
	CommandDone
	// CommandUnknown is a slash command that was not recognised.
	CommandUnknown
)

// Command is one line of console input.
type Command struct {
	Kind CommandKind
	Arg  string
}

// ParseCommand parses a console line. Lines starting with "/" are commands;
// anything else is returned as [CommandSay]. ok is false for blank lines.
func ParseCommand(line string) (cmd Command, ok bool) {
	line = strings.TrimSpace(line)
	if line == "" {
		return Command{}, false
	}
	if !strings.HasPrefix(line, "/") {
		return Command{Kind: CommandSay, Arg: line}, true
	}

	name, arg, _ := strings.Cut(line[1:], " ")
	arg = strings.TrimSpace(arg)
	switch strings.ToLower(name) {
	case "help", "h":
		return Command{Kind: CommandHelp}, true
	case "skip", "s":
		return Command{Kind: CommandSkip}, true
	case "mic", "retry":
		return Command{Kind: CommandMic}, true
	case "done", "d":
		return Command{Kind: CommandDone}, true
	case "unlock", "parent":
		return Command{Kind: CommandUnlock, Arg: arg}, true
	default:
		return Command{Kind: CommandUnknown, Arg: name}, true
	}
}

// ReadInput splits console input from r into commands and spoken lines. Say
// lines go to speech when it is non-nil (feeding a typed recognizer) and to
// commands otherwise. Both channels are closed when r is exhausted or ctx
// is done. ReadInput returns the scanner error, if any.
func ReadInput(ctx context.Context, r io.Reader, commands chan<- Command, speech chan<- string) error {
	defer close(commands)
	if speech != nil {
		defer close(speech)
	}

	sc := bufio.NewScanner(r)
	for sc.Scan() {
		cmd, ok := ParseCommand(sc.Text())
		if !ok {
			continue
		}
		if cmd.Kind == CommandSay && speech != nil {
			select {
			case speech <- cmd.Arg:
			case <-ctx.Done():
				return ctx.Err()
			}
			continue
		}
		select {
		case commands <- cmd:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	return sc.Err()
}
