package audio

import (
	"bytes"
	"encoding/binary"
	"fmt"

	"github.com/mewkiz/flac"
	"github.com/mewkiz/flac/frame"
	"github.com/mewkiz/flac/meta"
)

// Segment container formats.
const (
	FormatFLAC = "flac"
	FormatWAV  = "wav"
	FormatPCM  = "pcm"
)

const (
	bitsPerSample = 16
	flacBlockSize = 4096
)

// Encode wraps 16-bit little-endian interleaved PCM in the given container.
// Empty input encodes to empty output.
func Encode(format string, pcm []byte, sampleRate, channels int) ([]byte, error) {
	if len(pcm) == 0 {
		return nil, nil
	}
	switch format {
	case FormatFLAC, "":
		return encodeFLAC(pcm, sampleRate, channels)
	case FormatWAV:
		return encodeWAV(pcm, sampleRate, channels), nil
	case FormatPCM:
		return pcm, nil
	default:
		return nil, fmt.Errorf("unsupported audio format %q", format)
	}
}

func encodeWAV(pcm []byte, sampleRate, channels int) []byte {
	blockAlign := channels * bitsPerSample / 8
	var buf bytes.Buffer
	buf.Grow(WAVHeaderSize + len(pcm))

	buf.WriteString("RIFF")
	binary.Write(&buf, binary.LittleEndian, uint32(36+len(pcm)))
	buf.WriteString("WAVE")
	buf.WriteString("fmt ")
	binary.Write(&buf, binary.LittleEndian, uint32(16))
	binary.Write(&buf, binary.LittleEndian, uint16(1)) // PCM
	binary.Write(&buf, binary.LittleEndian, uint16(channels))
	binary.Write(&buf, binary.LittleEndian, uint32(sampleRate))
	binary.Write(&buf, binary.LittleEndian, uint32(sampleRate*blockAlign))
	binary.Write(&buf, binary.LittleEndian, uint16(blockAlign))
	binary.Write(&buf, binary.LittleEndian, uint16(bitsPerSample))
	buf.WriteString("data")
	binary.Write(&buf, binary.LittleEndian, uint32(len(pcm)))
	buf.Write(pcm)
	return buf.Bytes()
}

func encodeFLAC(pcm []byte, sampleRate, channels int) ([]byte, error) {
	var layout frame.Channels
	switch channels {
	case 1:
		layout = frame.ChannelsMono
	case 2:
		layout = frame.ChannelsLR
	default:
		return nil, fmt.Errorf("flac: unsupported channel count %d", channels)
	}

	frames := len(pcm) / (2 * channels)
	var buf bytes.Buffer
	info := &meta.StreamInfo{
		BlockSizeMin:  flacBlockSize,
		BlockSizeMax:  flacBlockSize,
		SampleRate:    uint32(sampleRate),
		NChannels:     uint8(channels),
		BitsPerSample: bitsPerSample,
		NSamples:      uint64(frames),
	}
	enc, err := flac.NewEncoder(&buf, info)
	if err != nil {
		return nil, fmt.Errorf("creating flac encoder: %w", err)
	}
	enc.EnablePredictionAnalysis(true)

	for start := 0; start < frames; start += flacBlockSize {
		n := min(flacBlockSize, frames-start)
		subframes := make([]*frame.Subframe, channels)
		for ch := 0; ch < channels; ch++ {
			samples := make([]int32, n)
			for i := 0; i < n; i++ {
				off := ((start+i)*channels + ch) * 2
				samples[i] = int32(int16(binary.LittleEndian.Uint16(pcm[off:])))
			}
			subframes[ch] = &frame.Subframe{
				SubHeader: frame.SubHeader{Pred: frame.PredVerbatim},
				Samples:   samples,
				NSamples:  n,
			}
		}
		f := &frame.Frame{
			Header: frame.Header{
				BlockSize:     uint16(n),
				SampleRate:    uint32(sampleRate),
				Channels:      layout,
				BitsPerSample: bitsPerSample,
			},
			Subframes: subframes,
		}
		if err := enc.WriteFrame(f); err != nil {
			return nil, fmt.Errorf("writing flac frame: %w", err)
		}
	}

	if err := enc.Close(); err != nil {
		return nil, fmt.Errorf("closing flac encoder: %w", err)
	}
	return buf.Bytes(), nil
}
