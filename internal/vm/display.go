package vm

// Frame is a snapshot of the framebuffer, one byte per pixel (0 or 1).
type Frame [ScreenHeight][ScreenWidth]uint8

// Display is the monochrome framebuffer. Coordinates wrap around both edges.
type Display struct {
	pixels   Frame
	renderer Renderer
}

// NewDisplay creates a blank display. A nil renderer runs headless.
func NewDisplay(renderer Renderer) *Display {
	return &Display{renderer: renderer}
}

func (d *Display) Clear() {
	d.pixels = Frame{}
	d.refresh()
}

// Draw XORs a sprite of height rows, read from memory at base, onto the
// screen at (x, y). Each sprite byte is 8 pixels wide, most significant bit
// leftmost. It reports whether any touched pixel changed state.
func (d *Display) Draw(x, y, height uint8, base uint16, mem *Memory) (bool, error) {
	rows := make([]uint8, height)
	for i := range rows {
		b, err := mem.Load(base + uint16(i))
		if err != nil {
			return false, err
		}
		rows[i] = b
	}

	const width = 8

	x0 := int(x) % ScreenWidth
	y0 := int(y) % ScreenHeight

	changed := false
	for r, line := range rows {
		row := (y0 + r) % ScreenHeight

		for c := 0; c < width; c++ {
			col := (x0 + c) % ScreenWidth
			bit := (line >> (width - 1 - c)) & 0x1

			old := d.pixels[row][col]
			next := old ^ bit
			d.pixels[row][col] = next

			if (old != 0) != (next != 0) {
				changed = true
			}
		}
	}

	d.refresh()
	return changed, nil
}

// Pixel reports whether the pixel at (x, y) is set. Coordinates wrap.
func (d *Display) Pixel(x, y int) bool {
	x = ((x % ScreenWidth) + ScreenWidth) % ScreenWidth
	y = ((y % ScreenHeight) + ScreenHeight) % ScreenHeight
	return d.pixels[y][x] != 0
}

func (d *Display) Frame() Frame {
	return d.pixels
}

func (d *Display) refresh() {
	if d.renderer != nil {
		d.renderer.Refresh(d.pixels)
	}
}
