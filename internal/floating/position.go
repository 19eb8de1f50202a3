// Package floating places a floating panel (dropdown, tooltip) next to the
// element that triggered it while keeping it inside the viewport.
package floating

import "fmt"

type Direction string

const (
	Vertical   Direction = "vertical"
	Horizontal Direction = "horizontal"
)

const DefaultOffset = 8

// Rect is an element's bounding box in viewport coordinates.
type Rect struct {
	Top    float64
	Left   float64
	Width  float64
	Height float64
}

func (r Rect) Bottom() float64 { return r.Top + r.Height }
func (r Rect) Right() float64  { return r.Left + r.Width }

type Size struct {
	Width  float64
	Height float64
}

type Point struct {
	Top  float64
	Left float64
}

// Styles renders the point as CSS pixel values.
func (p Point) Styles() map[string]string {
	return map[string]string{
		"top":  fmt.Sprintf("%gpx", p.Top),
		"left": fmt.Sprintf("%gpx", p.Left),
	}
}

type Options struct {
	// Offset is the gap between trigger and panel. Nil means DefaultOffset.
	Offset    *float64
	Direction Direction
}

func (o Options) offset() float64 {
	if o.Offset == nil {
		return DefaultOffset
	}
	return *o.Offset
}

// Position returns where to put a panel of floating's size next to trigger.
//
// Vertical placement opens below and flips above when there is less room
// below than the panel needs and than there is above; it aligns the left
// edges and flips to right-edge alignment the same way. Horizontal placement
// opens to the right, flips left, and centers vertically on the trigger. The
// result is always clamped to the viewport.
func Position(trigger, floating Rect, viewport Size, opts Options) Point {
	if opts.Direction == Horizontal {
		return horizontal(trigger, floating, viewport, opts.offset())
	}
	return vertical(trigger, floating, viewport, opts.offset())
}

func vertical(trigger, floating Rect, viewport Size, offset float64) Point {
	spaceBelow := viewport.Height - trigger.Bottom() - offset
	spaceAbove := trigger.Top - offset
	spaceRight := viewport.Width - trigger.Right() - offset
	spaceLeft := trigger.Left - offset

	var p Point
	if spaceBelow >= floating.Height || spaceBelow >= spaceAbove {
		p.Top = trigger.Bottom() + offset
	} else {
		p.Top = trigger.Top - floating.Height - offset
	}

	if spaceRight >= floating.Width || spaceRight >= spaceLeft {
		p.Left = trigger.Left
	} else {
		p.Left = trigger.Right() - floating.Width
	}

	p.Top = clamp(p.Top, viewport.Height-floating.Height)
	p.Left = clamp(p.Left, viewport.Width-floating.Width)
	return p
}

func horizontal(trigger, floating Rect, viewport Size, offset float64) Point {
	spaceRight := viewport.Width - trigger.Right() - offset
	spaceLeft := trigger.Left - offset

	var p Point
	if spaceRight >= floating.Width || spaceRight >= spaceLeft {
		p.Left = trigger.Right() + offset
	} else {
		p.Left = trigger.Left - floating.Width - offset
	}
	p.Left = clamp(p.Left, viewport.Width-floating.Width)

	centerY := trigger.Top + trigger.Height/2
	p.Top = centerY - floating.Height/2

	if p.Top < 0 {
		p.Top = max(0, trigger.Top-floating.Height-offset)
	} else if p.Top+floating.Height > viewport.Height {
		p.Top = min(viewport.Height-floating.Height, trigger.Bottom()+offset)
	}

	p.Top = clamp(p.Top, viewport.Height-floating.Height)
	return p
}

// clamp bounds v to [0, upper]; 0 wins when upper is negative.
func clamp(v, upper float64) float64 {
	return max(0, min(v, upper))
}
