package vm

import (
	"context"
	"fmt"
	"log/slog"
)

// Machine wires a processor to its memory, display, keypad and timers.
type Machine struct {
	cpu     *Processor
	mem     *Memory
	display *Display
	keys    *KeyBuffer
	delay   *CountdownTimer
	sound   *CountdownTimer
}

// NewMachine creates a machine with firmware installed. Either renderer or
// beeper may be nil.
func NewMachine(renderer Renderer, beeper Beeper, opts ...Option) (*Machine, error) {
	mem := NewMemory()
	if err := LoadFirmware(mem); err != nil {
		return nil, err
	}

	var onSound func(uint8)
	if beeper != nil {
		onSound = func(v uint8) {
			beeper.Tone(v != 0)
		}
	}

	return &Machine{
		cpu:     NewProcessor(opts...),
		mem:     mem,
		display: NewDisplay(renderer),
		keys:    NewKeyBuffer(),
		delay:   NewCountdownTimer(nil),
		sound:   NewCountdownTimer(onSound),
	}, nil
}

func (m *Machine) Processor() *Processor {
	return m.cpu
}

func (m *Machine) Memory() *Memory {
	return m.mem
}

func (m *Machine) Display() *Display {
	return m.display
}

func (m *Machine) Keyboard() *KeyBuffer {
	return m.keys
}

// Run starts the timers and executes the loaded program until it halts or
// fails. The timers stop when Run returns.
func (m *Machine) Run(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	m.delay.Start(ctx)
	m.sound.Start(ctx)
	defer m.sound.Set(0)

	slog.Debug("machine: run", "pc", fmt.Sprintf("0x%04x", m.cpu.PC()))
	return m.cpu.Run(m.mem, m.delay, m.display, m.keys, m.sound)
}
