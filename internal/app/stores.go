package app

import (
	"fmt"
	"path/filepath"

	"go.uber.org/multierr"

	"blockgrid/internal/config"
	"blockgrid/internal/domain"
	"blockgrid/internal/storage"
)

// stores bundles the persistence the app runs on. Undo history and MCP
// approvals always live in SQL; with the mongodb driver they stay in the
// local sqlite file while documents go to MongoDB.
type stores struct {
	db        *storage.DB
	mongo     *storage.MongoDocumentStore
	docs      domain.DocumentStore
	undo      *storage.UndoStore
	approvals *storage.ApprovalStore
}

func openStores(cfg config.Config) (*stores, error) {
	st := &stores{}
	switch cfg.Storage.Driver {
	case config.DriverMongo:
		m, err := storage.OpenMongo(cfg.Storage.DSN, cfg.Storage.Database)
		if err != nil {
			return nil, err
		}
		db, err := storage.New(filepath.Join(config.DataDir(), "blockgrid.db"))
		if err != nil {
			m.Close()
			return nil, err
		}
		st.mongo, st.db, st.docs = m, db, m
	case config.DriverSQLite, config.DriverPostgres, config.DriverMySQL:
		db, err := storage.Open(cfg.Storage.Driver, cfg.Storage.DSN)
		if err != nil {
			return nil, err
		}
		st.db, st.docs = db, storage.NewDocumentStore(db)
	default:
		return nil, fmt.Errorf("open stores: unknown storage driver %q", cfg.Storage.Driver)
	}
	st.undo = storage.NewUndoStore(st.db, cfg.Undo.MaxNodes)
	st.approvals = storage.NewApprovalStore(st.db)
	return st, nil
}

func (st *stores) Close() error {
	var err error
	if st.mongo != nil {
		err = multierr.Append(err, st.mongo.Close())
	}
	if st.db != nil {
		err = multierr.Append(err, st.db.Close())
	}
	return err
}
