package audio

import (
	"context"
	"math"
	"time"
)

// Simulated is a deterministic AudioSource generating synthetic PCM for
// demos and end-to-end tests (§8 scenario seeds): silence, pure tones, and
// a caller-supplied waveform function can all be expressed through it.
type Simulated struct {
	// Waveform returns the sample value at elapsed time t (seconds) since
	// the source was opened. A nil Waveform generates silence.
	Waveform func(t float64) float32

	// ChunkDuration controls how much audio one delivered chunk covers.
	ChunkDuration time.Duration
}

// NewSimulated returns a Simulated source with a 20ms chunk cadence.
func NewSimulated(waveform func(t float64) float32) *Simulated {
	return &Simulated{Waveform: waveform, ChunkDuration: 20 * time.Millisecond}
}

// SineWaveform returns a Waveform generating a sine tone at freq Hz and
// the given linear amplitude.
func SineWaveform(freq, amplitude float64) func(t float64) float32 {
	return func(t float64) float32 {
		return float32(amplitude * math.Sin(2*math.Pi*freq*t))
	}
}

func (s *Simulated) Devices() ([]Device, error) {
	return []Device{{Index: 0, Name: "Simulated"}}, nil
}

func (s *Simulated) Open(ctx context.Context, deviceIndex int, sampleRate int, mono bool) (Source, error) {
	src := &simulatedSource{
		ctx:        ctx,
		sampleRate: sampleRate,
		waveform:   s.Waveform,
		chunkDur:   s.ChunkDuration,
		out:        make(chan Chunk, 16),
		done:       make(chan struct{}),
	}
	go src.run()
	return src, nil
}

type simulatedSource struct {
	ctx        context.Context
	sampleRate int
	waveform   func(t float64) float32
	chunkDur   time.Duration
	out        chan Chunk
	done       chan struct{}
	elapsed    float64
}

func (s *simulatedSource) Chunks() <-chan Chunk { return s.out }

func (s *simulatedSource) Close() error {
	select {
	case <-s.done:
	default:
		close(s.done)
	}
	return nil
}

func (s *simulatedSource) run() {
	defer close(s.out)
	ticker := time.NewTicker(s.chunkDur)
	defer ticker.Stop()

	n := int(float64(s.sampleRate) * s.chunkDur.Seconds())
	dt := 1.0 / float64(s.sampleRate)

	for {
		select {
		case <-s.ctx.Done():
			return
		case <-s.done:
			return
		case now := <-ticker.C:
			samples := make([]float32, n)
			for i := range samples {
				if s.waveform != nil {
					samples[i] = s.waveform(s.elapsed)
				}
				s.elapsed += dt
			}
			select {
			case s.out <- Chunk{Samples: samples, Timestamp: now}:
			case <-s.ctx.Done():
				return
			case <-s.done:
				return
			}
		}
	}
}
