package app

import "blockgrid/internal/storage"

// ============================================================
// MCP approvals (answered here, requested by the standalone server)
// ============================================================

func (a *App) ListPendingApprovals() ([]storage.Approval, error) {
	return a.stores.approvals.Pending()
}

func (a *App) ApproveMCPAction(actionID string) error {
	return a.stores.approvals.Resolve(actionID, true)
}

func (a *App) RejectMCPAction(actionID string) error {
	return a.stores.approvals.Resolve(actionID, false)
}
