package hal

import (
	"fmt"

	"github.com/veandco/go-sdl2/sdl"
)

const (
	sampleFreq = 44100
	toneFreq   = 440

	// about 50ms of tone
	queueLength = sampleFreq / 20
)

// beeper plays a square wave on an SDL audio queue.
type beeper struct {
	id      sdl.AudioDeviceID
	wave    []uint8
	playing bool
}

func newBeeper() (*beeper, error) {
	spec := &sdl.AudioSpec{
		Freq:     sampleFreq,
		Format:   sdl.AUDIO_U8,
		Channels: 1,
		Samples:  512,
	}

	var actual sdl.AudioSpec
	id, err := sdl.OpenAudioDevice("", false, spec, &actual, 0)
	if err != nil {
		return nil, fmt.Errorf("failed to open sdl audio device: %w", err)
	}

	return &beeper{
		id:   id,
		wave: squareWave(int(actual.Freq), actual.Silence),
	}, nil
}

// squareWave renders one queue length of tone around the silence level.
func squareWave(freq int, silence uint8) []uint8 {
	const amplitude = 0x20

	if freq <= 0 {
		freq = sampleFreq
	}

	wave := make([]uint8, queueLength)
	halfPeriod := max(freq/(2*toneFreq), 1)
	for i := range wave {
		if (i/halfPeriod)%2 == 0 {
			wave[i] = silence + amplitude
		} else {
			wave[i] = silence - amplitude
		}
	}
	return wave
}

func (b *beeper) update(on bool) error {
	if on != b.playing {
		b.playing = on
		sdl.PauseAudioDevice(b.id, !on)
		if !on {
			sdl.ClearQueuedAudio(b.id)
		}
	}

	if !b.playing || sdl.GetQueuedAudioSize(b.id) >= uint32(len(b.wave)) {
		return nil
	}

	if err := sdl.QueueAudio(b.id, b.wave); err != nil {
		return fmt.Errorf("failed to queue sdl audio: %w", err)
	}
	return nil
}

func (b *beeper) close() {
	sdl.CloseAudioDevice(b.id)
}
