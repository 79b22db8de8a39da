package artifact

import (
	"bytes"
	"context"
	"crypto/sha256"
	"dashboard-bootstrap/internal/retry"
	"dashboard-bootstrap/internal/storage"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"time"
)

// ErrFetchExhausted is returned when every attempt to fetch an artifact failed.
var ErrFetchExhausted = errors.New("artifact fetch exhausted")

type FetchResult struct {
	Artifact Artifact
	Attempts int
	Duration time.Duration
	// Changed is set when Dest did not exist or now has different contents.
	Changed  bool
	Err      error
}

type Fetcher struct {
	store   storage.ObjectStore
	retrier *retry.Retrier
	verify  bool
	logger  *slog.Logger
}

func NewFetcher(store storage.ObjectStore, retrier *retry.Retrier, verify bool) *Fetcher {
	return &Fetcher{store: store, retrier: retrier, verify: verify, logger: slog.Default()}
}

func (f *Fetcher) WithLogger(logger *slog.Logger) *Fetcher {
	f.logger = logger
	return f
}

// Fetch downloads a single artifact. Each attempt writes to a temporary file
// that is renamed into place only once it is complete and verified, so a
// failed fetch never leaves a partial artifact at Dest.
func (f *Fetcher) Fetch(ctx context.Context, a Artifact) FetchResult {
	logger := f.logger.With("artifact", a.Name, "source", f.store.Location(a.Bucket, a.Key), "dest", a.Dest)
	policy := f.retrier.Policy()
	start := time.Now()

	tmp := a.Dest + ".part"
	changed := false

	attempts, err := f.retrier.Do(ctx, func(ctx context.Context) error {
		if err := f.store.DownloadObject(ctx, a.Bucket, a.Key, tmp); err != nil {
			os.Remove(tmp) //nolint:errcheck
			return err
		}

		if f.verify {
			if err := verifyFile(tmp, a.Verify); err != nil {
				os.Remove(tmp) //nolint:errcheck
				return err
			}
		}

		same, err := sameContents(tmp, a.Dest)
		if err != nil {
			os.Remove(tmp) //nolint:errcheck
			return err
		}
		changed = !same

		if err := os.Rename(tmp, a.Dest); err != nil {
			os.Remove(tmp) //nolint:errcheck
			return fmt.Errorf("failed to move artifact into place: %w", err)
		}
		return nil
	}, func(attempt int, err error, next time.Duration) {
		logger.Warn("retrying artifact fetch", "attempt", attempt, "max_attempts", policy.MaxAttempts, "delay", next, "error", err)
	})

	result := FetchResult{Artifact: a, Attempts: attempts, Duration: time.Since(start), Changed: changed}

	if err != nil {
		if errors.Is(err, retry.ErrExhausted) {
			err = fmt.Errorf("%w: %s: %w", ErrFetchExhausted, a.Name, err)
		} else {
			err = fmt.Errorf("error fetching artifact %s: %w", a.Name, err)
		}
		logger.Error("artifact fetch failed", "attempts", attempts, "error", err)
		result.Err = err
		return result
	}

	logger.Info("artifact fetched", "attempts", attempts, "changed", changed, "duration", result.Duration)
	return result
}

// sameContents reports whether the file at existing holds the same bytes as
// the one at fetched. A missing existing file is never the same.
func sameContents(fetched, existing string) (bool, error) {
	oldSum, err := fileDigest(existing)
	if errors.Is(err, os.ErrNotExist) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("error reading existing artifact: %w", err)
	}

	newSum, err := fileDigest(fetched)
	if err != nil {
		return false, fmt.Errorf("error reading fetched artifact: %w", err)
	}
	return bytes.Equal(oldSum, newSum), nil
}

func fileDigest(path string) ([]byte, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	h := sha256.New()
	if _, err := io.Copy(h, f); err != nil {
		return nil, err
	}
	return h.Sum(nil), nil
}
