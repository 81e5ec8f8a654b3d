package artifacts

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dkeye/voicebridge/internal/audio"
	"github.com/dkeye/voicebridge/internal/domain"
)

func testWave() audio.PCM {
	return audio.PCM{Samples: make([]int16, 2205), Rate: 22050, Channels: 1}
}

func TestPutWritesRetrievableArtifact(t *testing.T) {
	dir := t.TempDir()
	store, err := NewStore(dir, "http://localhost:5005/audio", 0)
	require.NoError(t, err)

	link, err := store.Put(context.Background(), "session-1", testWave())
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(link, "http://localhost:5005/audio/"))
	assert.True(t, strings.HasSuffix(link, ".wav"))

	name := link[strings.LastIndex(link, "/")+1:]
	body, err := os.ReadFile(filepath.Join(dir, name))
	require.NoError(t, err)
	clip, err := audio.DecodeWAV(body)
	require.NoError(t, err)
	assert.Equal(t, 22050, clip.Rate)
}

func TestPutNamesNeverCollide(t *testing.T) {
	store, err := NewStore(t.TempDir(), "http://x/audio/", 0)
	require.NoError(t, err)

	const n = 50
	links := make(chan string, n)
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			link, err := store.Put(context.Background(), domain.SessionID("s"), testWave())
			assert.NoError(t, err)
			links <- link
		}()
	}
	wg.Wait()
	close(links)

	seen := make(map[string]bool)
	for l := range links {
		assert.False(t, seen[l], "duplicate artifact link %s", l)
		seen[l] = true
	}
	assert.Len(t, seen, n)
}

func TestPutRejectsEmptyWave(t *testing.T) {
	store, err := NewStore(t.TempDir(), "http://x/audio/", 0)
	require.NoError(t, err)

	_, err = store.Put(context.Background(), "s", audio.PCM{})
	assert.ErrorIs(t, err, ErrWriteFailed)
}

func TestReaperRemovesExpiredArtifacts(t *testing.T) {
	dir := t.TempDir()
	store, err := NewStore(dir, "http://x/audio/", time.Minute)
	require.NoError(t, err)

	link, err := store.Put(context.Background(), "s", testWave())
	require.NoError(t, err)
	name := link[strings.LastIndex(link, "/")+1:]

	// not expired yet
	store.reapOnce(time.Now())
	_, err = os.Stat(filepath.Join(dir, name))
	assert.NoError(t, err)

	// well past the TTL
	store.reapOnce(time.Now().Add(2 * time.Minute))
	_, err = os.Stat(filepath.Join(dir, name))
	assert.True(t, os.IsNotExist(err))
}
