package audio

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/dkeye/voicebridge/internal/domain"
)

var (
	ErrMalformedEncoding = errors.New("audio: malformed inline encoding")
	ErrFetchFailed       = errors.New("audio: remote fetch failed")
	ErrUnsupportedFormat = errors.New("audio: unsupported format")
)

const maxRemoteBody = 32 << 20 // 32 MiB cap on fetched clips

// Codec turns transport audio payloads into canonical mono PCM at a
// fixed rate. It owns resampling and downmix; the speech ports never
// see source-rate audio.
type Codec struct {
	client     *http.Client
	targetRate int
	tmpDir     string
}

// NewCodec builds a codec fetching remote payloads with the given
// timeout and normalizing everything to targetRate. tmpDir may be empty
// to use the system default.
func NewCodec(fetchTimeout time.Duration, targetRate int, tmpDir string) *Codec {
	return &Codec{
		client:     &http.Client{Timeout: fetchTimeout},
		targetRate: targetRate,
		tmpDir:     tmpDir,
	}
}

// Decode resolves the payload bytes, parses them and normalizes the
// result. The returned clip is non-empty mono at the codec's target rate.
func (c *Codec) Decode(ctx context.Context, payload domain.AudioPayload) (PCM, error) {
	var (
		body []byte
		err  error
	)
	switch payload.Encoding {
	case domain.EncodingInlineBase64:
		body, err = decodeInline(payload.Data)
	case domain.EncodingRemoteURL:
		body, err = c.fetch(ctx, payload.Data)
	default:
		return PCM{}, fmt.Errorf("%w: unknown payload encoding %d", ErrUnsupportedFormat, payload.Encoding)
	}
	if err != nil {
		return PCM{}, err
	}

	clip, err := DecodeWAV(body)
	if err != nil {
		return PCM{}, fmt.Errorf("%w: %v", ErrUnsupportedFormat, err)
	}
	if clip.Empty() {
		return PCM{}, fmt.Errorf("%w: empty sample buffer", ErrUnsupportedFormat)
	}

	clip = Downmix(clip)
	clip = Resample(clip, c.targetRate)
	return clip, nil
}

// decodeInline strips a data-URI style prefix ("data:audio/wav;base64,")
// when present and base64-decodes the remainder.
func decodeInline(data string) ([]byte, error) {
	if i := strings.IndexByte(data, ','); i >= 0 {
		data = data[i+1:]
	}
	body, err := base64.StdEncoding.DecodeString(data)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedEncoding, err)
	}
	return body, nil
}

// fetch downloads the clip through a scoped temp file. The file is
// removed on every path; it only exists so oversized bodies never live
// fully in memory twice and so partial downloads are never parsed.
func (c *Codec) fetch(ctx context.Context, url string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrFetchFailed, err)
	}
	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrFetchFailed, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%w: status %d from %s", ErrFetchFailed, resp.StatusCode, url)
	}

	tmp, err := os.CreateTemp(c.tmpDir, "voicebridge-clip-*.wav")
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrFetchFailed, err)
	}
	defer func() {
		tmp.Close()
		if rmErr := os.Remove(tmp.Name()); rmErr != nil {
			log.Warn().Err(rmErr).Str("module", "audio").Str("file", tmp.Name()).Msg("temp clip not removed")
		}
	}()

	if _, err := io.Copy(tmp, io.LimitReader(resp.Body, maxRemoteBody)); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrFetchFailed, err)
	}
	if _, err := tmp.Seek(0, io.SeekStart); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrFetchFailed, err)
	}
	body, err := io.ReadAll(tmp)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrFetchFailed, err)
	}
	return body, nil
}
