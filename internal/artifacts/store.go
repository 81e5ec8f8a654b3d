// Package artifacts persists synthesized waveforms as retrievable files.
package artifacts

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/dkeye/voicebridge/internal/audio"
	"github.com/dkeye/voicebridge/internal/domain"
)

var ErrWriteFailed = errors.New("artifacts: write failed")

// Store writes WAV artifacts under a directory and hands out links under
// a base URL. Artifacts are never mutated after Put; reclamation is the
// reaper's job (off by default, matching the original never-delete
// behavior).
type Store struct {
	dir     string
	baseURL string
	ttl     time.Duration
	counter atomic.Uint64
}

func NewStore(dir, baseURL string, ttl time.Duration) (*Store, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("artifacts: create dir: %w", err)
	}
	if !strings.HasSuffix(baseURL, "/") {
		baseURL += "/"
	}
	return &Store{dir: dir, baseURL: baseURL, ttl: ttl}, nil
}

// Dir exposes the artifact directory for static file serving.
func (s *Store) Dir() string { return s.dir }

// Put encodes the waveform and writes it under a collision-free name:
// nanosecond timestamp + process-wide counter + session prefix.
func (s *Store) Put(ctx context.Context, sid domain.SessionID, wave audio.PCM) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", fmt.Errorf("%w: %v", ErrWriteFailed, err)
	}
	body, err := audio.EncodeWAV(wave)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrWriteFailed, err)
	}

	name := fmt.Sprintf("%d-%d-%s.wav", time.Now().UnixNano(), s.counter.Add(1), shortID(sid))
	path := filepath.Join(s.dir, name)
	if err := os.WriteFile(path, body, 0o644); err != nil {
		return "", fmt.Errorf("%w: %v", ErrWriteFailed, err)
	}
	log.Debug().Str("module", "artifacts").Str("file", name).Int("bytes", len(body)).Msg("artifact written")
	return s.baseURL + name, nil
}

// StartReaper removes artifacts older than the TTL. A zero TTL disables
// reclamation entirely.
func (s *Store) StartReaper(ctx context.Context) {
	if s.ttl <= 0 {
		return
	}
	go func() {
		ticker := time.NewTicker(s.ttl / 2)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				s.reapOnce(time.Now())
			}
		}
	}()
}

func (s *Store) reapOnce(now time.Time) {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		log.Warn().Err(err).Str("module", "artifacts").Msg("reaper scan failed")
		return
	}
	for _, e := range entries {
		info, err := e.Info()
		if err != nil || info.IsDir() {
			continue
		}
		if now.Sub(info.ModTime()) > s.ttl {
			if err := os.Remove(filepath.Join(s.dir, e.Name())); err != nil {
				log.Warn().Err(err).Str("module", "artifacts").Str("file", e.Name()).Msg("reap failed")
			}
		}
	}
}

func shortID(sid domain.SessionID) string {
	id := string(sid)
	id = strings.ReplaceAll(id, string(filepath.Separator), "")
	if len(id) > 8 {
		id = id[:8]
	}
	return id
}
