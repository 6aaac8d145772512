package app

import (
	"blockgrid/internal/autoscroll"
	"blockgrid/internal/domain"
	"blockgrid/internal/layout"
)

// LayoutReport is what the frontend measures after each render.
type LayoutReport struct {
	Bounds   []layout.BlockBounds `json:"bounds"`
	Viewport autoscroll.Viewport  `json:"viewport"`
}

// ResizeResult is the outcome of a divider drag.
type ResizeResult struct {
	Document domain.Document `json:"document"`
	Clamped  bool            `json:"clamped"`
}
