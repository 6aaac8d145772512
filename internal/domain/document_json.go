package domain

import (
	"encoding/json"
	"fmt"
	"time"
)

// ─────────────────────────────────────────────────────────────
// Document JSON encoding
// ─────────────────────────────────────────────────────────────
//
// Items are written as {"node":"block","block":{...}} or
// {"node":"row","row":{...}} so the closed Node set survives a round trip.

type nodeEnvelope struct {
	Node  NodeKind `json:"node"`
	Block *Block   `json:"block,omitempty"`
	Row   *Row     `json:"row,omitempty"`
}

type documentJSON struct {
	PageID    string         `json:"pageId"`
	Items     []nodeEnvelope `json:"items"`
	UpdatedAt time.Time      `json:"updatedAt"`
}

func (d Document) MarshalJSON() ([]byte, error) {
	out := documentJSON{
		PageID:    d.PageID,
		Items:     make([]nodeEnvelope, 0, len(d.Items)),
		UpdatedAt: d.UpdatedAt,
	}
	for _, n := range d.Items {
		switch v := n.(type) {
		case Block:
			b := v
			out.Items = append(out.Items, nodeEnvelope{Node: NodeBlock, Block: &b})
		case Row:
			r := v
			out.Items = append(out.Items, nodeEnvelope{Node: NodeRow, Row: &r})
		default:
			return nil, fmt.Errorf("marshal document: unexpected node %T", n)
		}
	}
	return json.Marshal(out)
}

func (d *Document) UnmarshalJSON(data []byte) error {
	var in documentJSON
	if err := json.Unmarshal(data, &in); err != nil {
		return err
	}
	d.PageID = in.PageID
	d.UpdatedAt = in.UpdatedAt
	d.Items = make([]Node, 0, len(in.Items))
	for i, env := range in.Items {
		switch env.Node {
		case NodeBlock:
			if env.Block == nil {
				return fmt.Errorf("unmarshal document: item %d: missing block", i)
			}
			d.Items = append(d.Items, *env.Block)
		case NodeRow:
			if env.Row == nil {
				return fmt.Errorf("unmarshal document: item %d: missing row", i)
			}
			d.Items = append(d.Items, *env.Row)
		default:
			return fmt.Errorf("unmarshal document: item %d: unknown node %q", i, env.Node)
		}
	}
	return nil
}
