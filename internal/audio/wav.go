package audio

import (
	"bytes"
	"encoding/binary"
	"fmt"
)

const (
	wavHeaderSize = 44
	pcmFormat     = 1
)

type wavHeader struct {
	ChunkID       [4]byte // "RIFF"
	ChunkSize     uint32
	Format        [4]byte // "WAVE"
	Subchunk1ID   [4]byte // "fmt "
	Subchunk1Size uint32
	AudioFormat   uint16
	NumChannels   uint16
	SampleRate    uint32
	ByteRate      uint32
	BlockAlign    uint16
	BitsPerSample uint16
	Subchunk2ID   [4]byte // "data"
	Subchunk2Size uint32
}

// EncodeWAV serializes a clip as a PCM-16 WAV file body.
func EncodeWAV(clip PCM) ([]byte, error) {
	if len(clip.Samples) == 0 {
		return nil, fmt.Errorf("encode wav: empty sample buffer")
	}
	if clip.Rate <= 0 {
		return nil, fmt.Errorf("encode wav: sample rate must be positive, got %d", clip.Rate)
	}
	channels := clip.Channels
	if channels <= 0 {
		channels = 1
	}

	dataSize := uint32(len(clip.Samples) * 2)
	hdr := wavHeader{
		ChunkID:       [4]byte{'R', 'I', 'F', 'F'},
		ChunkSize:     36 + dataSize,
		Format:        [4]byte{'W', 'A', 'V', 'E'},
		Subchunk1ID:   [4]byte{'f', 'm', 't', ' '},
		Subchunk1Size: 16,
		AudioFormat:   pcmFormat,
		NumChannels:   uint16(channels),
		SampleRate:    uint32(clip.Rate),
		ByteRate:      uint32(clip.Rate) * uint32(channels) * 2,
		BlockAlign:    uint16(channels) * 2,
		BitsPerSample: 16,
		Subchunk2ID:   [4]byte{'d', 'a', 't', 'a'},
		Subchunk2Size: dataSize,
	}

	buf := bytes.NewBuffer(make([]byte, 0, wavHeaderSize+len(clip.Samples)*2))
	if err := binary.Write(buf, binary.LittleEndian, hdr); err != nil {
		return nil, fmt.Errorf("encode wav header: %w", err)
	}
	if err := binary.Write(buf, binary.LittleEndian, clip.Samples); err != nil {
		return nil, fmt.Errorf("encode wav data: %w", err)
	}
	return buf.Bytes(), nil
}

// DecodeWAV parses a PCM-16 WAV body into a clip. Chunks other than
// "fmt " and "data" (LIST, INFO, ...) are skipped.
func DecodeWAV(data []byte) (PCM, error) {
	if len(data) < 12 {
		return PCM{}, fmt.Errorf("wav: body too short (%d bytes)", len(data))
	}
	if string(data[0:4]) != "RIFF" || string(data[8:12]) != "WAVE" {
		return PCM{}, fmt.Errorf("wav: not a RIFF/WAVE stream")
	}

	var (
		channels      int
		rate          int
		bitsPerSample int
		raw           []byte
		haveFmt       bool
	)

	off := 12
	for off+8 <= len(data) {
		id := string(data[off : off+4])
		size := int(binary.LittleEndian.Uint32(data[off+4 : off+8]))
		body := off + 8
		if size < 0 || body+size > len(data) {
			return PCM{}, fmt.Errorf("wav: chunk %q overruns body", id)
		}
		switch id {
		case "fmt ":
			if size < 16 {
				return PCM{}, fmt.Errorf("wav: fmt chunk too short")
			}
			format := binary.LittleEndian.Uint16(data[body : body+2])
			if format != pcmFormat {
				return PCM{}, fmt.Errorf("wav: unsupported audio format %d", format)
			}
			channels = int(binary.LittleEndian.Uint16(data[body+2 : body+4]))
			rate = int(binary.LittleEndian.Uint32(data[body+4 : body+8]))
			bitsPerSample = int(binary.LittleEndian.Uint16(data[body+14 : body+16]))
			haveFmt = true
		case "data":
			raw = data[body : body+size]
		}
		// chunks are word-aligned
		off = body + size + size%2
	}

	if !haveFmt || raw == nil {
		return PCM{}, fmt.Errorf("wav: missing fmt or data chunk")
	}
	if bitsPerSample != 16 {
		return PCM{}, fmt.Errorf("wav: unsupported bit depth %d", bitsPerSample)
	}
	if channels <= 0 || rate <= 0 {
		return PCM{}, fmt.Errorf("wav: invalid fmt (channels=%d rate=%d)", channels, rate)
	}

	samples := make([]int16, len(raw)/2)
	for i := range samples {
		samples[i] = int16(binary.LittleEndian.Uint16(raw[i*2 : i*2+2]))
	}
	return PCM{Samples: samples, Rate: rate, Channels: channels}, nil
}
