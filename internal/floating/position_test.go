package floating

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestPosition(t *testing.T) {
	viewport := Size{Width: 1000, Height: 800}
	panel := Rect{Width: 200, Height: 100}
	zero := 0.0

	tests := []struct {
		name    string
		trigger Rect
		opts    Options
		want    Point
	}{
		{
			name:    "below, left aligned",
			trigger: Rect{Top: 100, Left: 100, Width: 50, Height: 20},
			want:    Point{Top: 128, Left: 100},
		},
		{
			name:    "flips above near the bottom",
			trigger: Rect{Top: 750, Left: 100, Width: 50, Height: 20},
			want:    Point{Top: 642, Left: 100},
		},
		{
			name:    "flips to right edge near the right border",
			trigger: Rect{Top: 100, Left: 900, Width: 50, Height: 20},
			want:    Point{Top: 128, Left: 750},
		},
		{
			name:    "custom offset",
			trigger: Rect{Top: 100, Left: 100, Width: 50, Height: 20},
			opts:    Options{Offset: &zero},
			want:    Point{Top: 120, Left: 100},
		},
		{
			name:    "horizontal opens right and centers",
			trigger: Rect{Top: 400, Left: 100, Width: 50, Height: 20},
			opts:    Options{Direction: Horizontal},
			want:    Point{Top: 360, Left: 158},
		},
		{
			name:    "horizontal flips left",
			trigger: Rect{Top: 400, Left: 900, Width: 50, Height: 20},
			opts:    Options{Direction: Horizontal},
			want:    Point{Top: 360, Left: 692},
		},
		{
			name:    "horizontal near the top",
			trigger: Rect{Top: 10, Left: 100, Width: 50, Height: 20},
			opts:    Options{Direction: Horizontal},
			want:    Point{Top: 0, Left: 158},
		},
		{
			name:    "horizontal near the bottom",
			trigger: Rect{Top: 770, Left: 100, Width: 50, Height: 20},
			opts:    Options{Direction: Horizontal},
			want:    Point{Top: 700, Left: 158},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Position(tt.trigger, panel, viewport, tt.opts))
		})
	}
}

func TestPosition_PanelLargerThanViewport(t *testing.T) {
	got := Position(Rect{Top: 10, Left: 10, Width: 10, Height: 10}, Rect{Width: 500, Height: 500}, Size{Width: 100, Height: 100}, Options{})
	assert.Equal(t, Point{Top: 0, Left: 0}, got)
}

func TestPoint_Styles(t *testing.T) {
	assert.Equal(t, map[string]string{"top": "12.5px", "left": "0px"}, Point{Top: 12.5}.Styles())
}
