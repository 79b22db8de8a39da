package bootstrap

import (
	"fmt"
	"io"
	"log"
	"log/slog"
	"os"
	"path/filepath"
)

// Transcript duplicates everything written to it into an append-only log
// file, so the full provisioning history survives on the host.
type Transcript struct {
	io.Writer
	file *os.File
}

// OpenTranscript tees console into path. If the file cannot be opened the
// transcript degrades to console only and the error is returned alongside a
// usable Transcript.
func OpenTranscript(path string, console io.Writer) (*Transcript, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return &Transcript{Writer: console}, fmt.Errorf("error creating transcript directory: %w", err)
	}

	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_APPEND, 0644)
	if err != nil {
		return &Transcript{Writer: console}, fmt.Errorf("error opening transcript %s: %w", path, err)
	}

	return &Transcript{Writer: io.MultiWriter(f, console), file: f}, nil
}

// Install routes the std logger and the default slog logger into the
// transcript.
func (t *Transcript) Install() {
	log.SetFlags(log.LstdFlags | log.Lshortfile)
	log.SetOutput(t)
	slog.SetDefault(slog.New(slog.NewTextHandler(t, &slog.HandlerOptions{Level: slog.LevelInfo})))
}

func (t *Transcript) Persistent() bool {
	return t.file != nil
}

func (t *Transcript) Close() error {
	if t.file == nil {
		return nil
	}
	return t.file.Close()
}
