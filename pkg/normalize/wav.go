package normalize

import (
	"encoding/binary"
	"strconv"
	"strings"
)

// Speech responses arrive as headerless linear PCM (audio/L16). Players
// need a container, so the PCM is wrapped in a minimal WAV: a fixed
// 44-byte header followed by the sample bytes verbatim.

const (
	defaultSampleRate = 24000
	wavChannels       = 1
	wavBitsPerSample  = 16
	wavHeaderSize     = 44
)

// IsLinearPCM reports whether the MIME type denotes raw 16-bit PCM.
func IsLinearPCM(mime string) bool {
	base := mime
	if i := strings.Index(base, ";"); i >= 0 {
		base = base[:i]
	}

	return strings.EqualFold(strings.TrimSpace(base), "audio/L16")
}

// SampleRate parses the rate parameter out of a MIME type such as
// "audio/L16;rate=24000". Missing or malformed rates fall back to 24000 Hz.
func SampleRate(mime string) int {
	for _, param := range strings.Split(mime, ";")[1:] {
		k, v, ok := strings.Cut(strings.TrimSpace(param), "=")
		if !ok || !strings.EqualFold(k, "rate") {
			continue
		}

		rate, err := strconv.Atoi(strings.TrimSpace(v))
		if err != nil || rate <= 0 {
			return defaultSampleRate
		}

		return rate
	}

	return defaultSampleRate
}

// PCMToWAV wraps mono 16-bit PCM samples in a playable WAV container.
func PCMToWAV(pcm []byte, sampleRate int) []byte {
	byteRate := sampleRate * wavChannels * wavBitsPerSample / 8
	blockAlign := wavChannels * wavBitsPerSample / 8

	out := make([]byte, wavHeaderSize+len(pcm))

	copy(out[0:4], "RIFF")
	binary.LittleEndian.PutUint32(out[4:8], uint32(36+len(pcm)))
	copy(out[8:12], "WAVE")

	copy(out[12:16], "fmt ")
	binary.LittleEndian.PutUint32(out[16:20], 16) // PCM chunk size
	binary.LittleEndian.PutUint16(out[20:22], 1)  // PCM format
	binary.LittleEndian.PutUint16(out[22:24], wavChannels)
	binary.LittleEndian.PutUint32(out[24:28], uint32(sampleRate))
	binary.LittleEndian.PutUint32(out[28:32], uint32(byteRate))
	binary.LittleEndian.PutUint16(out[32:34], uint16(blockAlign))
	binary.LittleEndian.PutUint16(out[34:36], wavBitsPerSample)

	copy(out[36:40], "data")
	binary.LittleEndian.PutUint32(out[40:44], uint32(len(pcm)))
	copy(out[wavHeaderSize:], pcm)

	return out
}
