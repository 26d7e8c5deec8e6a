package main

import (
	"encoding/binary"
	"io"
	"math"
	"time"

	"github.com/ebitengine/oto/v3"
)

// stereoReader streams interleaved float32 little-endian frames from two
// float64 channels.
type stereoReader struct {
	left  []float64
	right []float64
	pos   int
}

func (s *stereoReader) Read(p []byte) (int, error) {
	if s.pos >= len(s.left) {
		return 0, io.EOF
	}

	n := 0
	for s.pos < len(s.left) && n+8 <= len(p) {
		binary.LittleEndian.PutUint32(p[n:], math.Float32bits(float32(s.left[s.pos])))
		binary.LittleEndian.PutUint32(p[n+4:], math.Float32bits(float32(s.right[s.pos])))
		n += 8
		s.pos++
	}
	return n, nil
}

func playStereo(left, right []float64, sampleRate int) error {
	ctx, ready, err := oto.NewContext(&oto.NewContextOptions{
		SampleRate:   sampleRate,
		ChannelCount: 2,
		Format:       oto.FormatFloat32LE,
	})
	if err != nil {
		return err
	}
	<-ready

	player := ctx.NewPlayer(&stereoReader{left: left, right: right})
	player.Play()

	for player.IsPlaying() {
		time.Sleep(10 * time.Millisecond)
	}

	return player.Close()
}
