package vm

import "sync"

// KeyBuffer is the keypad state shared between a frontend, which reports
// presses and releases, and the processor.
type KeyBuffer struct {
	mu   sync.Mutex
	held [KeyCount]bool
	last Key

	// at most one press waits to be consumed by AwaitPress
	pending chan Key
}

func NewKeyBuffer() *KeyBuffer {
	return &KeyBuffer{
		pending: make(chan Key, 1),
	}
}

func (kb *KeyBuffer) Press(key Key) {
	if int(key) >= KeyCount {
		return
	}

	kb.mu.Lock()
	kb.held[key] = true
	kb.last = key
	kb.mu.Unlock()

	for {
		select {
		case kb.pending <- key:
			return
		default:
			// replace the unconsumed press
			select {
			case <-kb.pending:
			default:
			}
		}
	}
}

func (kb *KeyBuffer) Release(key Key) {
	if int(key) >= KeyCount {
		return
	}

	kb.mu.Lock()
	kb.held[key] = false
	kb.mu.Unlock()
}

func (kb *KeyBuffer) Pressed() (Key, bool) {
	kb.mu.Lock()
	defer kb.mu.Unlock()

	if kb.held[kb.last] {
		return kb.last, true
	}

	for i, down := range kb.held {
		if down {
			return Key(i), true
		}
	}

	return 0, false
}

func (kb *KeyBuffer) AwaitPress() Key {
	return <-kb.pending
}
