package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/MrWong99/readtowatch/internal/config"
	"github.com/MrWong99/readtowatch/pkg/audio"
)

// retellSampleRate is the rate retell recordings are stored at.
const retellSampleRate = 16000

// errNoCapturer is returned by retell when the app was built without a
// microphone.
var errNoCapturer = errors.New("app: no audio capturer configured")

// retell records the reader telling the story back. It stops after
// cfg.Challenge.RetellLength, on [CommandDone], when commands is closed or
// when ctx is done, and returns the path of the WAV file written.
func (a *App) retell(ctx context.Context, cfg *config.Config, console *Console, commands <-chan Command, log *slog.Logger) (path string, err error) {
	if a.newCapturer == nil {
		return "", errNoCapturer
	}
	dir := cfg.Challenge.RetellDir
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("app: create retell dir: %w", err)
	}
	name := filepath.Join(dir, fmt.Sprintf("retell_%d.wav", a.clock.Now().UnixMilli()))
	f, err := os.Create(name)
	if err != nil {
		return "", fmt.Errorf("app: create retell file: %w", err)
	}
	defer func() {
		if cerr := f.Close(); cerr != nil && err == nil {
			err = fmt.Errorf("app: close retell file: %w", cerr)
		}
		if err != nil {
			_ = os.Remove(name)
			path = ""
		}
	}()
	wav, err := audio.NewWAVWriter(f, retellSampleRate, 1)
	if err != nil {
		return "", err
	}

	timeUp := make(chan struct{})
	timer := a.clock.AfterFunc(cfg.Challenge.RetellLength, func() { close(timeUp) })
	defer timer.Stop()

	recCtx, cancel := context.WithCancel(ctx)
	defer cancel()
	capturer := a.newCapturer()
	frames, err := capturer.Start(recCtx)
	if err != nil {
		return "", fmt.Errorf("app: start retell capture: %w", err)
	}

	console.Notice(fmt.Sprintf("Tell me about the video! What happened in the story? You have %s. Type /done when you are finished.",
		cfg.Challenge.RetellLength.Round(time.Second)))
	log.Info("app: retell recording started", "path", name, "limit", cfg.Challenge.RetellLength)

	conv := &audio.Converter{SampleRate: retellSampleRate}
	write := func(fr audio.Frame) error {
		if _, err := wav.Write(conv.Convert(fr).Data); err != nil {
			return fmt.Errorf("app: write retell audio: %w", err)
		}
		return nil
	}

	var writeErr error
record:
	for {
		select {
		case fr, ok := <-frames:
			if !ok {
				frames = nil
				break record
			}
			if writeErr = write(fr); writeErr != nil {
				break record
			}
		case <-timeUp:
			break record
		case cmd, ok := <-commands:
			if !ok || cmd.Kind == CommandDone {
				break record
			}
			console.Notice("Still recording. Type /done when you are finished.")
		case <-ctx.Done():
			break record
		}
	}

	if err := capturer.Stop(); err != nil {
		log.Debug("app: stop retell capture", "err", err)
	}
	if frames != nil {
		for fr := range frames {
			if writeErr == nil {
				writeErr = write(fr)
			}
		}
	}
	if writeErr != nil {
		return "", writeErr
	}
	if err := wav.Close(); err != nil {
		return "", err
	}

	log.Info("app: retell recording saved", "path", name, "duration", wav.Duration())
	console.Notice("Thanks for telling me the story!")
	return name, nil
}
