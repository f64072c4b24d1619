package hal

import (
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"
	"unsafe"

	"github.com/finiteint/chip8/internal/vm"
	"github.com/veandco/go-sdl2/sdl"
)

const (
	WindowWidth  = 1024
	WindowHeight = 512

	frameDuration = 16 * time.Millisecond
)

var ErrQuit = errors.New("quit")

// HAL is the SDL frontend. Refresh and Tone may be called from any
// goroutine; every other method must run on the main thread.
type HAL struct {
	window          *sdl.Window
	renderer        *sdl.Renderer
	texture         *sdl.Texture
	backBuffer      []uint32
	backBufferPitch int

	mu    sync.Mutex
	frame vm.Frame
	dirty bool

	beeper *beeper
	toneOn atomic.Bool
}

var (
	_ vm.Renderer = (*HAL)(nil)
	_ vm.Beeper   = (*HAL)(nil)
)

func New() (*HAL, error) {
	if err := sdl.Init(sdl.INIT_VIDEO | sdl.INIT_AUDIO | sdl.INIT_EVENTS); err != nil {
		return nil, fmt.Errorf("failed to init sdl: %w", err)
	}

	window, err := sdl.CreateWindow("CHIP-8", sdl.WINDOWPOS_UNDEFINED, sdl.WINDOWPOS_UNDEFINED, WindowWidth, WindowHeight, sdl.WINDOW_SHOWN|sdl.WINDOW_UTILITY)
	if err != nil {
		return nil, fmt.Errorf("failed to create sdl window: %w", err)
	}
	slog.Debug("hal: create window")
	window.Show()

	renderer, err := sdl.CreateRenderer(window, -1, sdl.RENDERER_ACCELERATED)
	if err != nil {
		return nil, fmt.Errorf("failed to create sdl renderer: %w", err)
	}
	err = renderer.SetLogicalSize(WindowWidth, WindowHeight)
	if err != nil {
		return nil, fmt.Errorf("failed to resize sdl renderer: %w", err)
	}
	slog.Debug("hal: create renderer")

	texture, err := renderer.CreateTexture(sdl.PIXELFORMAT_ARGB8888, sdl.TEXTUREACCESS_STREAMING, vm.ScreenWidth, vm.ScreenHeight)
	if err != nil {
		return nil, fmt.Errorf("failed to create sdl texture: %w", err)
	}
	slog.Debug("hal: create texture")

	// a missing audio device is not fatal, the machine just runs silent
	b, err := newBeeper()
	if err != nil {
		slog.Warn("hal: audio unavailable", "err", err)
	} else {
		slog.Debug("hal: open audio device")
	}

	return &HAL{
		window:          window,
		renderer:        renderer,
		texture:         texture,
		backBuffer:      make([]uint32, vm.ScreenWidth*vm.ScreenHeight),
		backBufferPitch: int(vm.ScreenWidth) * int(unsafe.Sizeof(uint32(0))),
		beeper:          b,
		dirty:           true,
	}, nil
}

func (hal *HAL) Shutdown() {
	if hal.beeper != nil {
		hal.beeper.close()
	}

	if err := hal.texture.Destroy(); err != nil {
		slog.Error("failed to destroy sdl texture", "err", err)
	}

	if err := hal.renderer.Destroy(); err != nil {
		slog.Error("failed to destroy sdl renderer", "err", err)
	}

	if err := hal.window.Destroy(); err != nil {
		slog.Error("failed to destroy sdl window", "err", err)
	}

	sdl.Quit()
}

// Refresh stores the latest frame; it is uploaded on the next loop iteration.
func (hal *HAL) Refresh(frame vm.Frame) {
	hal.mu.Lock()
	hal.frame = frame
	hal.dirty = true
	hal.mu.Unlock()
}

func (hal *HAL) Tone(on bool) {
	hal.toneOn.Store(on)
}

// Loop pumps input, video and audio until the machine reports on done or the
// window is closed, in which case ErrQuit is returned.
func (hal *HAL) Loop(keys *vm.KeyBuffer, done <-chan error) error {
	for {
		select {
		case err := <-done:
			if perr := hal.present(); perr != nil {
				slog.Error("failed to present last frame", "err", perr)
			}
			return err
		default:
		}

		if err := hal.ReadInput(keys.Press, keys.Release); err != nil {
			return err
		}

		if err := hal.present(); err != nil {
			return err
		}

		if hal.beeper != nil {
			if err := hal.beeper.update(hal.toneOn.Load()); err != nil {
				return err
			}
		}

		if err := hal.WaitForNextFrame(); err != nil {
			return err
		}
	}
}

func (hal *HAL) present() error {
	hal.mu.Lock()
	frame, dirty := hal.frame, hal.dirty
	hal.dirty = false
	hal.mu.Unlock()

	if !dirty {
		return nil
	}
	return hal.Draw(&frame)
}

func (hal *HAL) ReadInput(keyDown func(vm.Key), keyUp func(vm.Key)) error {
	for e := sdl.PollEvent(); e != nil; e = sdl.PollEvent() {
		switch e.GetType() {
		case sdl.QUIT:
			slog.Debug("hal: exit requested")
			return ErrQuit
		case sdl.KEYDOWN:
			hal.processKey(e.(*sdl.KeyboardEvent), keyDown)
		case sdl.KEYUP:
			hal.processKey(e.(*sdl.KeyboardEvent), keyUp)
		}
	}

	return nil
}

func (hal *HAL) processKey(e *sdl.KeyboardEvent, callback func(vm.Key)) {
	if e.Repeat != 0 {
		return
	}

	key, ok := keyMap(e)
	if ok {
		callback(key)
	}
}

func keyMap(e *sdl.KeyboardEvent) (vm.Key, bool) {
	// Physical                Logical
	// ================        =================
	// | 1 | 2 | 3 | 4 |       | 1 | 2 | 3 | C |
	// | q | w | e | r |       | 4 | 5 | 6 | D |
	// | a | s | d | f |  <=>  | 7 | 8 | 9 | E |
	// | z | x | c | v |       | A | 0 | B | F |
	// ================        =================

	switch e.Keysym.Scancode {
	case sdl.SCANCODE_X:
		return vm.Key0, true
	case sdl.SCANCODE_1:
		return vm.Key1, true
	case sdl.SCANCODE_2:
		return vm.Key2, true
	case sdl.SCANCODE_3:
		return vm.Key3, true
	case sdl.SCANCODE_Q:
		return vm.Key4, true
	case sdl.SCANCODE_W:
		return vm.Key5, true
	case sdl.SCANCODE_E:
		return vm.Key6, true
	case sdl.SCANCODE_A:
		return vm.Key7, true
	case sdl.SCANCODE_S:
		return vm.Key8, true
	case sdl.SCANCODE_D:
		return vm.Key9, true
	case sdl.SCANCODE_Z:
		return vm.KeyA, true
	case sdl.SCANCODE_C:
		return vm.KeyB, true
	case sdl.SCANCODE_4:
		return vm.KeyC, true
	case sdl.SCANCODE_R:
		return vm.KeyD, true
	case sdl.SCANCODE_F:
		return vm.KeyE, true
	case sdl.SCANCODE_V:
		return vm.KeyF, true
	default:
		return 0, false
	}
}

func (hal *HAL) Draw(frame *vm.Frame) error {
	const (
		bgColor = uint32(0x000000)
		fgColor = uint32(0xbea700)
	)

	for y := 0; y < vm.ScreenHeight; y++ {
		for x := 0; x < vm.ScreenWidth; x++ {
			i := x + y*vm.ScreenWidth

			color := bgColor
			if frame[y][x] != 0 {
				color = fgColor
			}

			hal.backBuffer[i] = color
		}
	}

	backBufferPtr := unsafe.Pointer(&hal.backBuffer[0])
	if err := hal.texture.Update(nil, backBufferPtr, hal.backBufferPitch); err != nil {
		return fmt.Errorf("failed to update sdl texture: %w", err)
	}

	if err := hal.renderer.Clear(); err != nil {
		return fmt.Errorf("failed to clear sdl renderer: %w", err)
	}

	if err := hal.renderer.Copy(hal.texture, nil, nil); err != nil {
		return fmt.Errorf("failed to copy sdl texture to renderer: %w", err)
	}

	hal.renderer.Present()
	return nil
}

func (hal *HAL) WaitForNextFrame() error {
	time.Sleep(frameDuration)
	return nil
}

// WaitForQuit keeps the last frame on screen until the window is closed.
func (hal *HAL) WaitForQuit() error {
	if hal.beeper != nil {
		if err := hal.beeper.update(false); err != nil {
			return err
		}
	}

	for {
		for e := sdl.PollEvent(); e != nil; e = sdl.PollEvent() {
			if e.GetType() == sdl.QUIT {
				return nil
			}
		}

		if err := hal.present(); err != nil {
			return err
		}

		if err := hal.WaitForNextFrame(); err != nil {
			return err
		}
	}
}
