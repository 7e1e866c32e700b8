package entity

import "math"

// BBox is a rectangle in PDF points with a top-left origin (Y grows downwards).
type BBox struct {
	X0 float64 `json:"x0"`
	Y0 float64 `json:"y0"`
	X1 float64 `json:"x1"`
	Y1 float64 `json:"y1"`
}

func (b BBox) Width() float64  { return b.X1 - b.X0 }
func (b BBox) Height() float64 { return b.Y1 - b.Y0 }

// Union returns the smallest box covering both b and o.
func (b BBox) Union(o BBox) BBox {
	return BBox{
		X0: math.Min(b.X0, o.X0),
		Y0: math.Min(b.Y0, o.Y0),
		X1: math.Max(b.X1, o.X1),
		Y1: math.Max(b.Y1, o.Y1),
	}
}

// TextBlock is one run of text as produced by a text extractor backend.
type TextBlock struct {
	ID   int     `json:"id"`
	Text string  `json:"text"`
	BBox BBox    `json:"bbox"`
	Page int     `json:"page"`
	Font string  `json:"font,omitempty"`
	Size float64 `json:"size,omitempty"`
}

// NormalizedBlock is a group of one or more adjacent TextBlocks after normalization.
// Duplicated boilerplate collapses into one NormalizedBlock that keeps every source id.
type NormalizedBlock struct {
	ID         int      `json:"id"`
	Text       string   `json:"text"`       // whitespace collapsed, case preserved
	Normalized string   `json:"normalized"` // case folded, whitespace collapsed
	Tokens     []string `json:"tokens"`
	Hash       string   `json:"hash"`
	BlockIDs   []int    `json:"block_ids"`
	Pages      []int    `json:"pages"`
	Page       int      `json:"page"` // page of the representative group
	BBox       BBox     `json:"bbox"`
	Font       string   `json:"font,omitempty"`
	Size       float64  `json:"size,omitempty"`
}
