package domain_test

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"testing"

	"go.uber.org/multierr"

	"blockgrid/internal/domain"
)

func twoColumnDoc() domain.Document {
	return domain.Document{
		PageID: "p1",
		Items: []domain.Node{
			domain.Block{ID: "a", Type: domain.BlockTypeHeading},
			domain.Row{ID: "r", Columns: []domain.Column{
				{ID: "c1", Width: 0.6, Blocks: []domain.Block{{ID: "b", Type: domain.BlockTypeParagraph}}},
				{ID: "c2", Width: 0.4, Blocks: []domain.Block{{ID: "c", Type: domain.BlockTypeCode}, {ID: "d"}}},
			}},
		},
	}
}

func TestDocumentJSON_RoundTrip(t *testing.T) {
	in := twoColumnDoc()
	data, err := json.Marshal(in)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	if !strings.Contains(string(data), `"node":"row"`) || !strings.Contains(string(data), `"node":"block"`) {
		t.Fatalf("missing node discriminator: %s", data)
	}

	var out domain.Document
	if err := json.Unmarshal(data, &out); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if len(out.Items) != 2 {
		t.Fatalf("got %d items, want 2", len(out.Items))
	}
	if b, ok := out.Items[0].(domain.Block); !ok || b.ID != "a" || b.Type != domain.BlockTypeHeading {
		t.Errorf("item 0 = %#v", out.Items[0])
	}
	r, ok := out.Items[1].(domain.Row)
	if !ok {
		t.Fatalf("item 1 is %T, want Row", out.Items[1])
	}
	if len(r.Columns) != 2 || r.Columns[1].Blocks[1].ID != "d" || r.Columns[0].Width != 0.6 {
		t.Errorf("row = %#v", r)
	}
}

func TestDocumentJSON_UnknownNode(t *testing.T) {
	tests := []string{
		`{"pageId":"p","items":[{"node":"column"}]}`,
		`{"pageId":"p","items":[{"node":"block"}]}`,
		`{"pageId":"p","items":[{"node":"row"}]}`,
	}
	for _, data := range tests {
		var doc domain.Document
		if err := json.Unmarshal([]byte(data), &doc); err == nil {
			t.Errorf("unmarshal %s: expected error", data)
		}
	}
}

func TestValidate(t *testing.T) {
	lim := domain.DefaultLimits()
	if err := twoColumnDoc().Validate(lim); err != nil {
		t.Fatalf("valid document: %v", err)
	}

	bad := domain.Document{Items: []domain.Node{
		domain.Block{ID: "a"},
		domain.Row{ID: "r", Columns: []domain.Column{
			{ID: "c1", Width: 0.95, Blocks: []domain.Block{{ID: "a"}}},
			{ID: "c2", Width: 0.02, Blocks: nil},
		}},
	}}
	err := bad.Validate(lim)
	if err == nil {
		t.Fatal("expected violations")
	}
	// duplicate id, width below min, empty column, bad sum
	if n := len(multierr.Errors(err)); n != 4 {
		t.Errorf("got %d violations, want 4: %v", n, err)
	}
}

func TestValidate_ColumnCountBounds(t *testing.T) {
	lim := domain.DefaultLimits()
	row := func(n int) domain.Document {
		cols := make([]domain.Column, n)
		for i := range cols {
			cols[i] = domain.Column{
				ID:     fmt.Sprintf("c%d", i),
				Width:  1 / float64(n),
				Blocks: []domain.Block{{ID: fmt.Sprintf("b%d", i)}},
			}
		}
		return domain.Document{Items: []domain.Node{domain.Row{ID: "r", Columns: cols}}}
	}

	tests := []struct {
		n     int
		valid bool
	}{
		{1, false},
		{2, true},
		{5, true},
		{6, false},
	}
	for _, tt := range tests {
		err := row(tt.n).Validate(lim)
		if (err == nil) != tt.valid {
			t.Errorf("%d columns: err = %v, want valid=%v", tt.n, err, tt.valid)
		}
	}
}

func TestReasonOf(t *testing.T) {
	tests := []struct {
		err  error
		want domain.RejectReason
	}{
		{nil, domain.ReasonNone},
		{domain.Reject(domain.ReasonColumnLimitExceeded, "split", "a", domain.ErrColumnLimitExceeded), domain.ReasonColumnLimitExceeded},
		{fmt.Errorf("wrap: %w", domain.Reject(domain.ReasonSelfDrop, "move", "a", domain.ErrSelfDrop)), domain.ReasonSelfDrop},
		{domain.ErrBelowMinWidth, domain.ReasonBelowMinWidth},
		{errors.New("boom"), domain.ReasonInvalidMove},
	}
	for _, tt := range tests {
		if got := domain.ReasonOf(tt.err); got != tt.want {
			t.Errorf("ReasonOf(%v) = %q, want %q", tt.err, got, tt.want)
		}
	}
}

func TestRejectError_IsInvalidMove(t *testing.T) {
	self := domain.Reject(domain.ReasonSelfDrop, "move", "a", domain.ErrSelfDrop)
	if !errors.Is(self, domain.ErrInvalidMove) {
		t.Error("self drop should match ErrInvalidMove")
	}
	if !errors.Is(self, domain.ErrSelfDrop) {
		t.Error("self drop should match ErrSelfDrop")
	}
	limit := domain.Reject(domain.ReasonColumnLimitExceeded, "split", "a", domain.ErrColumnLimitExceeded)
	if errors.Is(limit, domain.ErrInvalidMove) {
		t.Error("column limit should not match ErrInvalidMove")
	}
}

func TestDocument_CloneIsDeep(t *testing.T) {
	orig := twoColumnDoc()
	cp := orig.Clone()
	r := cp.Items[1].(domain.Row)
	r.Columns[0].Width = 0.5
	r.Columns[1].Blocks[0].ID = "x"

	or := orig.Items[1].(domain.Row)
	if or.Columns[0].Width != 0.6 || or.Columns[1].Blocks[0].ID != "c" {
		t.Errorf("clone shares structure with original: %#v", or)
	}
}

func TestAncestorIDs(t *testing.T) {
	d := twoColumnDoc()
	tests := []struct {
		id   string
		want []string
	}{
		{"a", nil},
		{"r", nil},
		{"b", []string{"r", "c1"}},
		{"d", []string{"r", "c2"}},
		{"missing", nil},
	}
	for _, tt := range tests {
		got := d.AncestorIDs(tt.id)
		if len(got) != len(tt.want) {
			t.Errorf("AncestorIDs(%s) = %v, want %v", tt.id, got, tt.want)
			continue
		}
		for _, id := range tt.want {
			if _, ok := got[id]; !ok {
				t.Errorf("AncestorIDs(%s) missing %s", tt.id, id)
			}
		}
	}
}
