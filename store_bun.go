package session

import (
	"context"
	"database/sql"
	"errors"
	"time"

	goerrors "github.com/goliatone/go-errors"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/sqlitedialect"
	"github.com/uptrace/bun/driver/sqliteshim"
)

// Credential is a single persisted key-value pair.
type Credential struct {
	bun.BaseModel `bun:"table:credentials,alias:crd"`
	Key           string     `bun:"key,pk" json:"key"`
	Value         string     `bun:"value,notnull" json:"value"`
	UpdatedAt     *time.Time `bun:"updated_at,nullzero,default:current_timestamp" json:"updated_at,omitempty"`
}

// BunStore is a CredentialStore persisted through Bun. With the sqlite shim
// driver it behaves like browser local storage: origin-scoped durable
// key-value pairs that survive a process restart.
type BunStore struct {
	db *bun.DB
}

var _ CredentialStore = &BunStore{}

// NewBunStore wraps an existing bun.DB.
func NewBunStore(db *bun.DB) *BunStore {
	return &BunStore{db: db}
}

// OpenSQLiteStore opens (or creates) a sqlite-backed credential store at the
// given DSN, e.g. "file:credentials.db" or ":memory:".
func OpenSQLiteStore(dsn string) (*BunStore, error) {
	db, err := sql.Open(sqliteshim.ShimName, dsn)
	if err != nil {
		return nil, goerrors.Wrap(err, goerrors.CategoryOperation, "failed to open credential store")
	}
	db.SetMaxOpenConns(1)

	bunDB := bun.NewDB(db, sqlitedialect.New())

	store := NewBunStore(bunDB)
	if err := store.Init(context.Background()); err != nil {
		return nil, err
	}

	return store, nil
}

// Init creates the credentials table if needed.
func (s *BunStore) Init(ctx context.Context) error {
	if _, err := s.db.NewCreateTable().
		Model((*Credential)(nil)).
		IfNotExists().
		Exec(ctx); err != nil {
		return goerrors.Wrap(err, goerrors.CategoryOperation, "failed to initialize credential store")
	}
	return nil
}

func (s *BunStore) Get(ctx context.Context, key string) (string, bool, error) {
	cred := &Credential{}
	err := s.db.NewSelect().
		Model(cred).
		Where("key = ?", key).
		Scan(ctx)

	if errors.Is(err, sql.ErrNoRows) {
		return "", false, nil
	}

	if err != nil {
		return "", false, goerrors.Wrap(err, goerrors.CategoryOperation, "credential read failed")
	}

	return cred.Value, true, nil
}

func (s *BunStore) Set(ctx context.Context, key, value string) error {
	now := time.Now()
	cred := &Credential{
		Key:       key,
		Value:     value,
		UpdatedAt: &now,
	}

	_, err := s.db.NewInsert().
		Model(cred).
		On("CONFLICT (key) DO UPDATE").
		Set("value = EXCLUDED.value").
		Set("updated_at = EXCLUDED.updated_at").
		Exec(ctx)

	if err != nil {
		return goerrors.Wrap(err, goerrors.CategoryOperation, "credential write failed")
	}
	return nil
}

func (s *BunStore) Remove(ctx context.Context, key string) error {
	_, err := s.db.NewDelete().
		Model((*Credential)(nil)).
		Where("key = ?", key).
		Exec(ctx)

	if err != nil {
		return goerrors.Wrap(err, goerrors.CategoryOperation, "credential delete failed")
	}
	return nil
}

// Close releases the underlying database handle.
func (s *BunStore) Close() error {
	return s.db.Close()
}
