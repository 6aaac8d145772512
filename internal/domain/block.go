package domain

import (
	"encoding/json"
	"time"
)

type BlockType string

const (
	BlockTypeParagraph BlockType = "paragraph"
	BlockTypeHeading   BlockType = "heading"
	BlockTypeImage     BlockType = "image"
	BlockTypeCode      BlockType = "code"
	BlockTypeList      BlockType = "list"
	BlockTypeDatabase  BlockType = "database"
)

// NodeKind discriminates the closed set of tree nodes.
type NodeKind string

const (
	NodeBlock  NodeKind = "block"
	NodeRow    NodeKind = "row"
	NodeColumn NodeKind = "column"
)

// Node is a top-level document item: a Block or a Row.
// The set is closed; only this package implements it.
type Node interface {
	NodeID() string
	Kind() NodeKind
	isNode()
}

// Block is an atomic content leaf. Content is opaque to the layout engine.
type Block struct {
	ID      string          `json:"id"`
	Type    BlockType       `json:"type"`
	Content json.RawMessage `json:"content,omitempty"`
}

func (b Block) NodeID() string { return b.ID }
func (Block) Kind() NodeKind   { return NodeBlock }
func (Block) isNode()          {}

// Column is a vertical run of Blocks inside a Row with a share of its width.
type Column struct {
	ID     string  `json:"id"`
	Width  float64 `json:"width"`
	Blocks []Block `json:"blocks"`
}

// Row groups 2..MaxColumns Columns side by side.
type Row struct {
	ID      string   `json:"id"`
	Columns []Column `json:"columns"`
}

func (r Row) NodeID() string { return r.ID }
func (Row) Kind() NodeKind   { return NodeRow }
func (Row) isNode()          {}

// Widths returns the column width shares in order.
func (r Row) Widths() []float64 {
	out := make([]float64, len(r.Columns))
	for i, c := range r.Columns {
		out[i] = c.Width
	}
	return out
}

// Document is the ordered top-level sequence of Blocks and Rows.
type Document struct {
	PageID    string    `json:"pageId"`
	Items     []Node    `json:"items"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// Clone returns a deep copy of the tree structure. Block content bytes are
// shared since nothing in the engine writes to them.
func (d Document) Clone() Document {
	out := Document{PageID: d.PageID, UpdatedAt: d.UpdatedAt}
	if d.Items == nil {
		return out
	}
	out.Items = make([]Node, len(d.Items))
	for i, n := range d.Items {
		switch v := n.(type) {
		case Block:
			out.Items[i] = v
		case Row:
			out.Items[i] = v.Clone()
		}
	}
	return out
}

// Clone returns a deep copy of the row.
func (r Row) Clone() Row {
	out := Row{ID: r.ID, Columns: make([]Column, len(r.Columns))}
	for i, c := range r.Columns {
		out.Columns[i] = c.Clone()
	}
	return out
}

// Clone returns a deep copy of the column.
func (c Column) Clone() Column {
	blocks := make([]Block, len(c.Blocks))
	copy(blocks, c.Blocks)
	return Column{ID: c.ID, Width: c.Width, Blocks: blocks}
}

// DocumentStore persists whole documents keyed by page.
type DocumentStore interface {
	LoadDocument(pageID string) (*Document, error)
	SaveDocument(doc *Document) error
	DeleteDocument(pageID string) error
	ListPages() ([]string, error)
}
