package cli

// brailleDots maps a micro-pixel position inside a braille cell to its
// Unicode dot bit. Cells are 2 micro-pixels wide and 4 tall, indexed
// [column][row].
var brailleDots = [2][4]uint8{
	{0x01, 0x02, 0x04, 0x40},
	{0x08, 0x10, 0x20, 0x80},
}

// brailleCanvas rasterizes geometry into a grid of braille cells. Each
// terminal cell holds a 2x4 block of micro-pixels, which keeps circles
// close to round in the usual 1:2 terminal font aspect.
type brailleCanvas struct {
	w, h  int // in cells
	cells [][]uint8
}

func newCanvas(w, h int) *brailleCanvas {
	cells := make([][]uint8, h)
	for i := range cells {
		cells[i] = make([]uint8, w)
	}
	return &brailleCanvas{w: w, h: h, cells: cells}
}

// pixelSize returns the canvas dimensions in micro-pixels.
func (c *brailleCanvas) pixelSize() (int, int) {
	return c.w * 2, c.h * 4
}

// setPixel lights one micro-pixel. Out-of-bounds coordinates are dropped.
func (c *brailleCanvas) setPixel(mx, my int) {
	if mx < 0 || my < 0 {
		return
	}
	cx, dx := mx/2, mx%2
	cy, dy := my/4, my%4
	if cx >= c.w || cy >= c.h {
		return
	}
	c.cells[cy][cx] |= brailleDots[dx][dy]
}

// drawLine draws a micro-pixel line using Bresenham's algorithm.
func (c *brailleCanvas) drawLine(x0, y0, x1, y1 int) {
	dx := absInt(x1 - x0)
	sx := -1
	if x0 < x1 {
		sx = 1
	}
	dy := -absInt(y1 - y0)
	sy := -1
	if y0 < y1 {
		sy = 1
	}
	err := dx + dy
	for {
		c.setPixel(x0, y0)
		if x0 == x1 && y0 == y1 {
			return
		}
		e2 := 2 * err
		if e2 >= dy {
			err += dy
			x0 += sx
		}
		if e2 <= dx {
			err += dx
			y0 += sy
		}
	}
}

// drawCircle draws a circle outline using the midpoint algorithm.
func (c *brailleCanvas) drawCircle(cx, cy, r int) {
	if r <= 0 {
		c.setPixel(cx, cy)
		return
	}
	x, y := r, 0
	err := 1 - r
	for x >= y {
		c.setPixel(cx+x, cy+y)
		c.setPixel(cx+y, cy+x)
		c.setPixel(cx-y, cy+x)
		c.setPixel(cx-x, cy+y)
		c.setPixel(cx-x, cy-y)
		c.setPixel(cx-y, cy-x)
		c.setPixel(cx+y, cy-x)
		c.setPixel(cx+x, cy-y)
		y++
		if err < 0 {
			err += 2*y + 1
		} else {
			x--
			err += 2*(y-x) + 1
		}
	}
}

// drawRect draws a rectangle outline between two corners.
func (c *brailleCanvas) drawRect(x0, y0, x1, y1 int) {
	c.drawLine(x0, y0, x1, y0)
	c.drawLine(x1, y0, x1, y1)
	c.drawLine(x1, y1, x0, y1)
	c.drawLine(x0, y1, x0, y0)
}

// drawMark draws a small plus at the given micro-pixel, used for anchors.
func (c *brailleCanvas) drawMark(mx, my int) {
	c.setPixel(mx, my)
	c.setPixel(mx-1, my)
	c.setPixel(mx+1, my)
	c.setPixel(mx, my-1)
	c.setPixel(mx, my+1)
}

// lines renders the canvas as one string per cell row.
func (c *brailleCanvas) lines() []string {
	out := make([]string, c.h)
	for y := 0; y < c.h; y++ {
		row := make([]rune, c.w)
		for x := 0; x < c.w; x++ {
			mask := c.cells[y][x]
			if mask == 0 {
				row[x] = ' '
			} else {
				row[x] = rune(0x2800 + int(mask))
			}
		}
		out[y] = string(row)
	}
	return out
}

func absInt(v int) int {
	if v < 0 {
		return -v
	}
	return v
}
