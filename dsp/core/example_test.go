package core_test

import (
	"fmt"

	"github.com/rolandzwaga/krate-audio-sub000/dsp/core"
)

func ExampleApplyProcessorOptions() {
	cfg := core.ApplyProcessorOptions(
		core.WithSampleRate(44100),
		core.WithBlockSize(256),
	)

	fmt.Printf("sampleRate=%.0f blockSize=%d\n", cfg.SampleRate, cfg.BlockSize)

	// Output:
	// sampleRate=44100 blockSize=256
}

func ExampleClamp() {
	fmt.Println(core.Clamp(1.5, 0, 1), core.Clamp(-0.2, 0, 1), core.Clamp(0.7, 0, 1))

	// Output:
	// 1 0 0.7
}
