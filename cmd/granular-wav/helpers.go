package main

import (
	"fmt"
	"math"
	"os"

	"github.com/cwbudde/algo-vecmath"
	"github.com/go-audio/audio"
	"github.com/go-audio/wav"
)

// wavData holds a decoded stereo file normalized to [-1, 1]. Mono input is
// duplicated into both channels.
type wavData struct {
	sampleRate int
	channels   int
	bitDepth   int
	left       []float64
	right      []float64
}

func readWAV(path string) (*wavData, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open input file: %w", err)
	}
	defer func() { _ = f.Close() }()

	decoder := wav.NewDecoder(f)
	if !decoder.IsValidFile() {
		return nil, fmt.Errorf("invalid WAV file: %s", path)
	}

	buf, err := decoder.FullPCMBuffer()
	if err != nil {
		return nil, fmt.Errorf("failed to read audio data: %w", err)
	}

	format := buf.Format
	channels := format.NumChannels
	if channels < 1 || channels > 2 {
		return nil, fmt.Errorf("unsupported channel count %d (want mono or stereo)", channels)
	}

	bitDepth := int(decoder.BitDepth)
	frames := len(buf.Data) / channels

	left := make([]float64, frames)
	right := make([]float64, frames)
	if channels == 1 {
		for i := 0; i < frames; i++ {
			left[i] = float64(buf.Data[i])
		}
		copy(right, left)
	} else {
		for i := 0; i < frames; i++ {
			left[i] = float64(buf.Data[i*2])
			right[i] = float64(buf.Data[i*2+1])
		}
	}

	invMax := 1 / maxSampleValue(bitDepth)
	vecmath.ScaleBlock(left, left, invMax)
	vecmath.ScaleBlock(right, right, invMax)

	return &wavData{
		sampleRate: format.SampleRate,
		channels:   channels,
		bitDepth:   bitDepth,
		left:       left,
		right:      right,
	}, nil
}

func writeWAV(path string, left, right []float64, sampleRate, bitDepth int) (err error) {
	if bitDepth != 16 && bitDepth != 24 && bitDepth != 32 {
		bitDepth = 16
	}

	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create output file: %w", err)
	}
	defer func() {
		if closeErr := f.Close(); err == nil {
			err = closeErr
		}
	}()

	maxVal := maxSampleValue(bitDepth)
	scaledL := make([]float64, len(left))
	scaledR := make([]float64, len(right))
	vecmath.ScaleBlock(scaledL, left, maxVal)
	vecmath.ScaleBlock(scaledR, right, maxVal)

	data := make([]int, 2*len(left))
	for i := range left {
		data[i*2] = clampSample(scaledL[i], maxVal)
		data[i*2+1] = clampSample(scaledR[i], maxVal)
	}

	encoder := wav.NewEncoder(f, sampleRate, bitDepth, 2, 1)
	buf := &audio.IntBuffer{
		Format: &audio.Format{
			NumChannels: 2,
			SampleRate:  sampleRate,
		},
		Data:           data,
		SourceBitDepth: bitDepth,
	}

	if err := encoder.Write(buf); err != nil {
		return fmt.Errorf("failed to write audio data: %w", err)
	}
	if err := encoder.Close(); err != nil {
		return fmt.Errorf("failed to finalize WAV file: %w", err)
	}

	return nil
}

func maxSampleValue(bitDepth int) float64 {
	switch bitDepth {
	case 24:
		return 8388607
	case 32:
		return 2147483647
	default:
		return 32767
	}
}

func clampSample(v, maxVal float64) int {
	if v > maxVal {
		v = maxVal
	}
	if v < -maxVal {
		v = -maxVal
	}
	return int(math.Round(v))
}
