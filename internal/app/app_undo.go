package app

import (
	"blockgrid/internal/domain"
	"blockgrid/internal/storage"
)

// ============================================================
// Undo Tree
// ============================================================

func (a *App) LoadUndoTree(pageID string) (*storage.UndoTree, error) {
	return a.layout.History(pageID)
}

func (a *App) Undo(pageID string) (domain.Document, error) {
	return a.layout.Undo(pageID)
}

func (a *App) Redo(pageID string) (domain.Document, error) {
	return a.layout.Redo(pageID)
}
