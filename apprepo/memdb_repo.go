// Package apprepo implements scheduler.AppRepository: a versioned durable
// store of app definitions, built on go-memdb the way tracker builds the
// task index.
package apprepo

import (
	"context"
	"fmt"
	"sync"

	"github.com/hashicorp/go-hclog"
	"github.com/hashicorp/go-memdb"
	"github.com/hashicorp/go-multierror"

	"github.com/marathon-go/appsched/scheduler"
)

const tableApps = "apps"

func schema() *memdb.DBSchema {
	return &memdb.DBSchema{
		Tables: map[string]*memdb.TableSchema{
			tableApps: {
				Name: tableApps,
				Indexes: map[string]*memdb.IndexSchema{
					"id": {
						Name:   "id",
						Unique: true,
						Indexer: &memdb.CompoundIndex{
							Indexes: []memdb.Indexer{
								&memdb.StringFieldIndex{Field: "ID"},
								&memdb.IntFieldIndex{Field: "Version"},
							},
						},
					},
					"app": {
						Name:    "app",
						Unique:  false,
						Indexer: &memdb.StringFieldIndex{Field: "ID"},
					},
				},
			},
		},
	}
}

// Persister is called after each successful store/expunge so a concrete
// deployment can durably record app definitions. Persistence encoding is
// out of scope; this is only the call-out point.
type Persister interface {
	PersistApp(app *scheduler.App) error
	PersistExpunge(appID string) error
}

type nullPersister struct{}

func (nullPersister) PersistApp(*scheduler.App) error { return nil }
func (nullPersister) PersistExpunge(string) error     { return nil }

// MemDBAppRepository is the versioned app-definition store.
type MemDBAppRepository struct {
	db      *memdb.MemDB
	logger  hclog.Logger
	persist Persister

	mu sync.Mutex
}

// Option configures a MemDBAppRepository at construction.
type Option func(*MemDBAppRepository)

// WithPersister overrides the default no-op persister.
func WithPersister(p Persister) Option {
	return func(r *MemDBAppRepository) { r.persist = p }
}

// New constructs an empty MemDBAppRepository.
func New(logger hclog.Logger, opts ...Option) (*MemDBAppRepository, error) {
	db, err := memdb.NewMemDB(schema())
	if err != nil {
		return nil, fmt.Errorf("building app repository schema: %w", err)
	}
	if logger == nil {
		logger = hclog.NewNullLogger()
	}
	r := &MemDBAppRepository{db: db, logger: logger.Named("apprepo"), persist: nullPersister{}}
	for _, opt := range opts {
		opt(r)
	}
	return r, nil
}

// Store persists app as the new current version for its id. Historical
// versions are retained.
func (r *MemDBAppRepository) Store(ctx context.Context, app *scheduler.App) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	stored := app.Copy()
	txn := r.db.Txn(true)
	if err := txn.Insert(tableApps, stored); err != nil {
		txn.Abort()
		return err
	}
	txn.Commit()
	return r.persist.PersistApp(stored)
}

// CurrentVersion returns the highest-versioned app definition stored for id.
func (r *MemDBAppRepository) CurrentVersion(ctx context.Context, id string) (*scheduler.App, bool, error) {
	txn := r.db.Txn(false)
	defer txn.Abort()

	it, err := txn.Get(tableApps, "app", id)
	if err != nil {
		return nil, false, err
	}
	var current *scheduler.App
	for raw := it.Next(); raw != nil; raw = it.Next() {
		app := raw.(*scheduler.App)
		if current == nil || app.Version > current.Version {
			current = app
		}
	}
	if current == nil {
		return nil, false, nil
	}
	return current.Copy(), true, nil
}

// Expunge removes every version of id in one transaction. A failed delete
// or a failed persist call is returned as a *scheduler.StorageError; the
// persist failure is wrapped with multierror.
func (r *MemDBAppRepository) Expunge(ctx context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	txn := r.db.Txn(true)
	n, err := txn.DeleteAll(tableApps, "app", id)
	if err != nil {
		txn.Abort()
		return &scheduler.StorageError{Op: "expunge", Err: err}
	}
	txn.Commit()

	if n == 0 {
		// Nothing to delete is not a failure: expunging an app with no
		// stored versions is a no-op, so callers can retry safely.
		return nil
	}

	var result *multierror.Error
	if err := r.persist.PersistExpunge(id); err != nil {
		result = multierror.Append(result, fmt.Errorf("persisting expunge of %q: %w", id, err))
	}
	if result.ErrorOrNil() != nil {
		return &scheduler.StorageError{Op: "expunge", Err: result}
	}
	return nil
}

// AppIDs returns the set of distinct app ids with at least one stored
// version.
func (r *MemDBAppRepository) AppIDs(ctx context.Context) ([]string, error) {
	txn := r.db.Txn(false)
	defer txn.Abort()

	it, err := txn.Get(tableApps, "id")
	if err != nil {
		return nil, err
	}
	seen := make(map[string]struct{})
	var ids []string
	for raw := it.Next(); raw != nil; raw = it.Next() {
		app := raw.(*scheduler.App)
		if _, ok := seen[app.ID]; !ok {
			seen[app.ID] = struct{}{}
			ids = append(ids, app.ID)
		}
	}
	return ids, nil
}
