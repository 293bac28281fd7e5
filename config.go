package qthought

import "runtime"

// Config carries the numeric and execution knobs shared by a System and the
// inference engine. NewConfig fills in the defaults.
type Config struct {
	// Tolerance below which amplitudes and norms count as zero. Absorbs
	// round-off from repeated unitary composition. 0 means: take the
	// interpretation's tolerance.
	Tolerance float64

	// Workers bounds the branch fan-out of the inference engine.
	// 1 runs branches sequentially.
	Workers int

	// Seed makes measurement sampling reproducible. 0 seeds from the clock.
	Seed int64

	// Silent suppresses step narration during protocol runs.
	Silent bool
}

func NewConfig() *Config {
	return &Config{
		Tolerance: 1e-9,
		Workers:   runtime.NumCPU(),
	}
}
