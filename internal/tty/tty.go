// Package tty runs the machine inside a terminal: the framebuffer is drawn
// with characters and the keypad is read from raw terminal input.
package tty

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/finiteint/chip8/internal/vm"
	"github.com/pkg/term"
)

// keyHold is how long a key stays down after its byte arrives; terminals
// report no key releases.
const keyHold = 150 * time.Millisecond

const (
	keyEsc   = 0x1b
	keyCtrlC = 0x03
)

var ErrQuit = errors.New("quit")

// Terminal is the raw-mode terminal frontend.
type Terminal struct {
	term *term.Term
	out  io.Writer
	keys *vm.KeyBuffer

	mu       sync.Mutex
	releases [vm.KeyCount]*time.Timer
	toneOn   bool
}

var (
	_ vm.Renderer = (*Terminal)(nil)
	_ vm.Beeper   = (*Terminal)(nil)
)

// Open puts the controlling terminal into raw mode.
func Open() (*Terminal, error) {
	t, err := term.Open("/dev/tty", term.RawMode)
	if err != nil {
		return nil, fmt.Errorf("failed to open terminal: %w", err)
	}
	slog.Debug("tty: raw mode")

	return &Terminal{term: t, out: t}, nil
}

// Close restores the terminal mode.
func (t *Terminal) Close() error {
	t.mu.Lock()
	for _, r := range t.releases {
		if r != nil {
			r.Stop()
		}
	}
	t.mu.Unlock()

	if err := t.term.Restore(); err != nil {
		slog.Error("failed to restore terminal", "err", err)
	}
	return t.term.Close()
}

func (t *Terminal) Refresh(frame vm.Frame) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if _, err := t.out.Write([]byte("\x1b[H" + Render(frame, "\r\n"))); err != nil {
		slog.Debug("tty: refresh failed", "err", err)
	}
}

// Tone rings the terminal bell when the tone starts.
func (t *Terminal) Tone(on bool) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if on && !t.toneOn {
		if _, err := t.out.Write([]byte{'\a'}); err != nil {
			slog.Debug("tty: bell failed", "err", err)
		}
	}
	t.toneOn = on
}

// Loop feeds key presses to keys until the machine reports on done or
// Esc / Ctrl-C is typed, in which case ErrQuit is returned.
func (t *Terminal) Loop(keys *vm.KeyBuffer, done <-chan error) error {
	t.keys = keys

	input := make(chan byte)
	readErr := make(chan error, 1)
	stop := make(chan struct{})
	defer close(stop)

	go func() {
		buf := make([]byte, 1)
		for {
			n, err := t.term.Read(buf)
			if err != nil {
				readErr <- err
				return
			}
			if n == 0 {
				continue
			}

			select {
			case input <- buf[0]:
			case <-stop:
				return
			}
		}
	}()

	for {
		select {
		case err := <-done:
			return err

		case err := <-readErr:
			return fmt.Errorf("failed to read terminal: %w", err)

		case b := <-input:
			if b == keyEsc || b == keyCtrlC {
				slog.Debug("tty: exit requested")
				return ErrQuit
			}

			if key, ok := keyMap(b); ok {
				t.press(key)
			}
		}
	}
}

func (t *Terminal) press(key vm.Key) {
	t.keys.Press(key)

	t.mu.Lock()
	defer t.mu.Unlock()

	if r := t.releases[key]; r != nil {
		r.Reset(keyHold)
		return
	}
	t.releases[key] = time.AfterFunc(keyHold, func() {
		t.keys.Release(key)
	})
}

// keyMap uses the same physical layout as the SDL frontend.
func keyMap(b byte) (vm.Key, bool) {
	switch b {
	case 'x', 'X':
		return vm.Key0, true
	case '1':
		return vm.Key1, true
	case '2':
		return vm.Key2, true
	case '3':
		return vm.Key3, true
	case 'q', 'Q':
		return vm.Key4, true
	case 'w', 'W':
		return vm.Key5, true
	case 'e', 'E':
		return vm.Key6, true
	case 'a', 'A':
		return vm.Key7, true
	case 's', 'S':
		return vm.Key8, true
	case 'd', 'D':
		return vm.Key9, true
	case 'z', 'Z':
		return vm.KeyA, true
	case 'c', 'C':
		return vm.KeyB, true
	case '4':
		return vm.KeyC, true
	case 'r', 'R':
		return vm.KeyD, true
	case 'f', 'F':
		return vm.KeyE, true
	case 'v', 'V':
		return vm.KeyF, true
	default:
		return 0, false
	}
}

// Render draws the frame inside a border, set pixels as '*'. Lines end
// with eol.
func Render(frame vm.Frame, eol string) string {
	var sb strings.Builder
	border := strings.Repeat("-", vm.ScreenWidth)

	sb.WriteString("/" + border + "\\" + eol)
	for _, row := range frame {
		sb.WriteByte('|')
		for _, px := range row {
			if px != 0 {
				sb.WriteByte('*')
			} else {
				sb.WriteByte(' ')
			}
		}
		sb.WriteString("|" + eol)
	}
	sb.WriteString("\\" + border + "/" + eol)

	return sb.String()
}
