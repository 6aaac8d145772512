package storage

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"blockgrid/internal/domain"
)

// DefaultMaxUndoNodes bounds the history kept per page.
const DefaultMaxUndoNodes = 40

// UndoNode represents a single undo history entry.
type UndoNode struct {
	ID           string    `json:"id"`
	PageID       string    `json:"pageId"`
	ParentID     *string   `json:"parentId"`
	Label        string    `json:"label"`
	SnapshotJSON string    `json:"snapshotJson"`
	CreatedAt    time.Time `json:"createdAt"`
}

// Snapshot decodes the document stored in the node.
func (n *UndoNode) Snapshot() (domain.Document, error) {
	var doc domain.Document
	if err := json.Unmarshal([]byte(n.SnapshotJSON), &doc); err != nil {
		return domain.Document{}, fmt.Errorf("decode undo snapshot %s: %w", n.ID, err)
	}
	return doc, nil
}

// UndoTree is the full history of a page.
type UndoTree struct {
	Nodes     []UndoNode `json:"nodes"`
	CurrentID string     `json:"currentId"`
	RootID    string     `json:"rootId"`
}

// UndoStore keeps a branching history of document snapshots per page.
// Pushing after an undo starts a new branch from the current node.
type UndoStore struct {
	db       *DB
	maxNodes int
}

func NewUndoStore(db *DB, maxNodes int) *UndoStore {
	if maxNodes < 1 {
		maxNodes = DefaultMaxUndoNodes
	}
	return &UndoStore{db: db, maxNodes: maxNodes}
}

// LoadTree returns the full undo tree for a page, or nil when there is none.
func (s *UndoStore) LoadTree(pageID string) (*UndoTree, error) {
	rows, err := s.db.query(
		`SELECT id, page_id, parent_id, label, snapshot_json, created_at
		 FROM undo_nodes WHERE page_id = ? ORDER BY seq ASC`, pageID,
	)
	if err != nil {
		return nil, fmt.Errorf("load undo nodes: %w", err)
	}
	defer rows.Close()

	var nodes []UndoNode
	var rootID string
	for rows.Next() {
		var n UndoNode
		if err := rows.Scan(&n.ID, &n.PageID, &n.ParentID, &n.Label, &n.SnapshotJSON, &n.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan undo node: %w", err)
		}
		if n.ParentID == nil && rootID == "" {
			rootID = n.ID
		}
		nodes = append(nodes, n)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	if len(nodes) == 0 {
		return nil, nil
	}

	currentID, err := s.currentID(pageID)
	if err != nil || currentID == "" {
		currentID = rootID
	}
	return &UndoTree{Nodes: nodes, CurrentID: currentID, RootID: rootID}, nil
}

// Push records doc as a child of the current node and makes it current.
func (s *UndoStore) Push(pageID, label string, doc domain.Document) (*UndoNode, error) {
	data, err := json.Marshal(doc)
	if err != nil {
		return nil, fmt.Errorf("encode undo snapshot: %w", err)
	}
	parentID, err := s.currentID(pageID)
	if err != nil {
		return nil, err
	}
	var pID *string
	if parentID != "" {
		pID = &parentID
	}

	var seq int64
	if err := s.db.queryRow(`SELECT COALESCE(MAX(seq), 0) + 1 FROM undo_nodes WHERE page_id = ?`, pageID).Scan(&seq); err != nil {
		return nil, fmt.Errorf("next undo seq: %w", err)
	}

	node := &UndoNode{
		ID:           uuid.NewString(),
		PageID:       pageID,
		ParentID:     pID,
		Label:        label,
		SnapshotJSON: string(data),
		CreatedAt:    time.Now().UTC(),
	}
	_, err = s.db.exec(
		`INSERT INTO undo_nodes (id, page_id, parent_id, seq, label, snapshot_json, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		node.ID, node.PageID, node.ParentID, seq, node.Label, node.SnapshotJSON, node.CreatedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("insert undo node: %w", err)
	}
	if err := s.GoTo(pageID, node.ID); err != nil {
		return nil, fmt.Errorf("update undo state: %w", err)
	}
	if _, err := s.Prune(pageID, s.maxNodes); err != nil {
		return nil, err
	}
	return node, nil
}

// Current returns the current node, or nil when the page has no history.
func (s *UndoStore) Current(pageID string) (*UndoNode, error) {
	id, err := s.currentID(pageID)
	if err != nil || id == "" {
		return nil, err
	}
	return s.node(id)
}

// Undo moves to the parent of the current node and returns it. It returns
// nil at the root.
func (s *UndoStore) Undo(pageID string) (*UndoNode, error) {
	cur, err := s.Current(pageID)
	if err != nil || cur == nil || cur.ParentID == nil {
		return nil, err
	}
	parent, err := s.node(*cur.ParentID)
	if err != nil {
		return nil, err
	}
	if err := s.GoTo(pageID, parent.ID); err != nil {
		return nil, err
	}
	return parent, nil
}

// Redo moves to the newest child of the current node and returns it. It
// returns nil when the current node has no children.
func (s *UndoStore) Redo(pageID string) (*UndoNode, error) {
	curID, err := s.currentID(pageID)
	if err != nil || curID == "" {
		return nil, err
	}
	var childID string
	err = s.db.queryRow(
		`SELECT id FROM undo_nodes WHERE page_id = ? AND parent_id = ? ORDER BY seq DESC LIMIT 1`,
		pageID, curID,
	).Scan(&childID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("find redo node: %w", err)
	}
	if err := s.GoTo(pageID, childID); err != nil {
		return nil, err
	}
	return s.node(childID)
}

// GoTo updates the current position pointer.
func (s *UndoStore) GoTo(pageID, nodeID string) error {
	_, err := s.db.exec(s.db.upsert("undo_state", "page_id", "current_node_id"), pageID, nodeID)
	return err
}

// ClearPage removes all undo data for a page.
func (s *UndoStore) ClearPage(pageID string) error {
	if _, err := s.db.exec(`DELETE FROM undo_state WHERE page_id = ?`, pageID); err != nil {
		return err
	}
	_, err := s.db.exec(`DELETE FROM undo_nodes WHERE page_id = ?`, pageID)
	return err
}

// Prune removes the oldest nodes of a page until at most maxNodes remain.
// The current node is never removed; children of a removed node are
// re-parented to its parent. It returns the number of nodes removed.
func (s *UndoStore) Prune(pageID string, maxNodes int) (int, error) {
	var count int
	if err := s.db.queryRow(`SELECT COUNT(*) FROM undo_nodes WHERE page_id = ?`, pageID).Scan(&count); err != nil {
		return 0, fmt.Errorf("count undo nodes: %w", err)
	}
	if count <= maxNodes {
		return 0, nil
	}
	toDelete := count - maxNodes

	// Read the current node before opening the cursor; sqlite runs on one connection.
	currentID, err := s.currentID(pageID)
	if err != nil {
		return 0, err
	}

	rows, err := s.db.query(
		`SELECT id FROM undo_nodes WHERE page_id = ? ORDER BY seq ASC LIMIT ?`, pageID, toDelete+1,
	)
	if err != nil {
		return 0, fmt.Errorf("select prunable nodes: %w", err)
	}
	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			rows.Close()
			return 0, err
		}
		if id != currentID && len(ids) < toDelete {
			ids = append(ids, id)
		}
	}
	rows.Close()

	for _, id := range ids {
		var parentID sql.NullString
		if err := s.db.queryRow(`SELECT parent_id FROM undo_nodes WHERE id = ?`, id).Scan(&parentID); err != nil {
			return 0, fmt.Errorf("read undo parent: %w", err)
		}
		if _, err := s.db.exec(`UPDATE undo_nodes SET parent_id = ? WHERE parent_id = ?`, parentID, id); err != nil {
			return 0, fmt.Errorf("re-parent undo nodes: %w", err)
		}
		if _, err := s.db.exec(`DELETE FROM undo_nodes WHERE id = ?`, id); err != nil {
			return 0, fmt.Errorf("delete undo node: %w", err)
		}
	}
	return len(ids), nil
}

// PruneAll applies Prune to every page with history.
func (s *UndoStore) PruneAll(maxNodes int) (int, error) {
	rows, err := s.db.query(`SELECT DISTINCT page_id FROM undo_nodes`)
	if err != nil {
		return 0, fmt.Errorf("list undo pages: %w", err)
	}
	var pages []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			rows.Close()
			return 0, err
		}
		pages = append(pages, id)
	}
	rows.Close()

	total := 0
	for _, p := range pages {
		n, err := s.Prune(p, maxNodes)
		if err != nil {
			return total, fmt.Errorf("prune %s: %w", p, err)
		}
		total += n
	}
	return total, nil
}

func (s *UndoStore) currentID(pageID string) (string, error) {
	var id string
	err := s.db.queryRow(`SELECT current_node_id FROM undo_state WHERE page_id = ?`, pageID).Scan(&id)
	if errors.Is(err, sql.ErrNoRows) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("read undo state: %w", err)
	}
	return id, nil
}

func (s *UndoStore) node(id string) (*UndoNode, error) {
	n := &UndoNode{}
	err := s.db.queryRow(
		`SELECT id, page_id, parent_id, label, snapshot_json, created_at FROM undo_nodes WHERE id = ?`, id,
	).Scan(&n.ID, &n.PageID, &n.ParentID, &n.Label, &n.SnapshotJSON, &n.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("get undo node %s: %w", id, err)
	}
	return n, nil
}
