// Package sqlite provides a SQLite-backed vault state store.
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"math"
	"path/filepath"
	"strconv"
	"strings"

	"custody-vault/go-backend/internal/domains/vault/model"
	"custody-vault/go-backend/internal/platform/sqlitemigrate"
	"custody-vault/go-backend/internal/storage/sqlite/migrations"

	msqlite "modernc.org/sqlite"
	sqlite3lib "modernc.org/sqlite/lib"
)

var ErrNotConfigured = errors.New("storage is not configured")

// Store persists vault state in SQLite. Amounts are kept as decimal text
// because SQLite integers are signed.
type Store struct {
	sqlDB *sql.DB
}

// Open opens a SQLite vault store and applies embedded migrations.
func Open(path string) (*Store, error) {
	if strings.TrimSpace(path) == "" {
		return nil, errors.New("storage path is required")
	}
	dsn := filepath.Clean(path) + "?_pragma=journal_mode(WAL)&_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)&_pragma=synchronous(FULL)"
	sqlDB, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}
	// A single connection keeps commits strictly serialized.
	sqlDB.SetMaxOpenConns(1)
	if err := sqlDB.Ping(); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("ping sqlite db: %w", err)
	}
	if err := sqlitemigrate.Apply(context.Background(), sqlDB, migrations.FS); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}
	return &Store{sqlDB: sqlDB}, nil
}

func (s *Store) Close() error {
	if s == nil || s.sqlDB == nil {
		return nil
	}
	return s.sqlDB.Close()
}

// Load reads the full state and validates it.
func (s *Store) Load(ctx context.Context) (model.State, error) {
	if err := ctx.Err(); err != nil {
		return model.State{}, err
	}
	if s == nil || s.sqlDB == nil {
		return model.State{}, ErrNotConfigured
	}
	tx, err := s.sqlDB.BeginTx(ctx, nil)
	if err != nil {
		return model.State{}, fmt.Errorf("begin load: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	state := model.NewState()
	var (
		initialized, paused int
		nextSlot, revision  int64
	)
	if err := tx.QueryRowContext(ctx,
		`SELECT initialized, paused, next_slot, revision FROM vault_meta WHERE id = 1`,
	).Scan(&initialized, &paused, &nextSlot, &revision); err != nil {
		return model.State{}, fmt.Errorf("load vault meta: %w", err)
	}
	state.Initialized = initialized != 0
	state.Config = model.AdminConfig{Paused: paused != 0, NextSlot: uint64(nextSlot)}
	state.Revision = uint64(revision)

	if err := loadSlots(ctx, tx, &state); err != nil {
		return model.State{}, err
	}
	if err := loadLedgers(ctx, tx, &state); err != nil {
		return model.State{}, err
	}
	if err := loadKnownUsers(ctx, tx, &state); err != nil {
		return model.State{}, err
	}
	if err := state.Validate(); err != nil {
		return model.State{}, err
	}
	return state, nil
}

func loadSlots(ctx context.Context, tx *sql.Tx, state *model.State) error {
	rows, err := tx.QueryContext(ctx, `SELECT asset, slot_id, custody_balance FROM asset_slots`)
	if err != nil {
		return fmt.Errorf("load asset slots: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var (
			asset   string
			slotID  int64
			custody string
		)
		if err := rows.Scan(&asset, &slotID, &custody); err != nil {
			return fmt.Errorf("scan asset slot: %w", err)
		}
		balance, err := parseAmount(custody)
		if err != nil {
			return fmt.Errorf("asset %q custody: %w", asset, err)
		}
		state.Slots[model.AssetType(asset)] = model.AssetSlot{
			Asset:          model.AssetType(asset),
			SlotID:         model.SlotID(slotID),
			CustodyBalance: balance,
		}
	}
	return rows.Err()
}

func loadLedgers(ctx context.Context, tx *sql.Tx, state *model.State) error {
	rows, err := tx.QueryContext(ctx, `SELECT owner FROM ledgers`)
	if err != nil {
		return fmt.Errorf("load ledgers: %w", err)
	}
	for rows.Next() {
		var owner string
		if err := rows.Scan(&owner); err != nil {
			_ = rows.Close()
			return fmt.Errorf("scan ledger: %w", err)
		}
		state.Ledgers[model.Address(owner)] = model.UserLedger{
			Owner:   model.Address(owner),
			Entries: make(map[model.SlotID]model.Amount),
		}
	}
	if err := rows.Err(); err != nil {
		_ = rows.Close()
		return err
	}
	_ = rows.Close()

	rows, err = tx.QueryContext(ctx, `SELECT owner, slot_id, amount FROM ledger_entries`)
	if err != nil {
		return fmt.Errorf("load ledger entries: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var (
			owner  string
			slotID int64
			raw    string
		)
		if err := rows.Scan(&owner, &slotID, &raw); err != nil {
			return fmt.Errorf("scan ledger entry: %w", err)
		}
		amount, err := parseAmount(raw)
		if err != nil {
			return fmt.Errorf("ledger %q slot %d: %w", owner, slotID, err)
		}
		ledger, ok := state.Ledgers[model.Address(owner)]
		if !ok {
			return fmt.Errorf("ledger entry for missing ledger %q", owner)
		}
		ledger.Entries[model.SlotID(slotID)] = amount
	}
	return rows.Err()
}

func loadKnownUsers(ctx context.Context, tx *sql.Tx, state *model.State) error {
	rows, err := tx.QueryContext(ctx, `SELECT address FROM known_users ORDER BY seq`)
	if err != nil {
		return fmt.Errorf("load known users: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var address string
		if err := rows.Scan(&address); err != nil {
			return fmt.Errorf("scan known user: %w", err)
		}
		state.KnownUsers.Users = append(state.KnownUsers.Users, model.Address(address))
	}
	return rows.Err()
}

// Commit writes change inside one SQLite transaction after checking that it
// follows the stored revision.
func (s *Store) Commit(ctx context.Context, change model.Change) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if s == nil || s.sqlDB == nil {
		return ErrNotConfigured
	}
	revision, err := toInt64(change.Revision)
	if err != nil {
		return fmt.Errorf("change revision: %w", err)
	}
	tx, err := s.sqlDB.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin commit: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	var stored int64
	if err := tx.QueryRowContext(ctx, `SELECT revision FROM vault_meta WHERE id = 1`).Scan(&stored); err != nil {
		return fmt.Errorf("read revision: %w", err)
	}
	if revision != stored+1 {
		return fmt.Errorf("%w: have %d, change %d", model.ErrRevisionConflict, stored, revision)
	}

	if change.Init {
		if _, err := tx.ExecContext(ctx, `UPDATE vault_meta SET initialized = 1 WHERE id = 1`); err != nil {
			return fmt.Errorf("mark initialized: %w", err)
		}
	}
	if change.Config != nil {
		nextSlot, err := toInt64(change.Config.NextSlot)
		if err != nil {
			return fmt.Errorf("next slot: %w", err)
		}
		if _, err := tx.ExecContext(ctx,
			`UPDATE vault_meta SET paused = ?, next_slot = ? WHERE id = 1`,
			boolInt(change.Config.Paused), nextSlot,
		); err != nil {
			return fmt.Errorf("write admin config: %w", err)
		}
	}
	for _, slot := range change.Slots {
		slotID, err := toInt64(uint64(slot.SlotID))
		if err != nil {
			return fmt.Errorf("slot id: %w", err)
		}
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO asset_slots (asset, slot_id, custody_balance) VALUES (?, ?, ?)
			 ON CONFLICT(asset) DO UPDATE SET custody_balance = excluded.custody_balance`,
			string(slot.Asset), slotID, formatAmount(slot.CustodyBalance),
		); err != nil {
			if isUniqueViolation(err) {
				return fmt.Errorf("%w: slot %d", model.ErrDuplicateAsset, slot.SlotID)
			}
			return fmt.Errorf("write asset slot %q: %w", slot.Asset, err)
		}
	}
	for _, owner := range change.Ledgers {
		if _, err := tx.ExecContext(ctx, `INSERT OR IGNORE INTO ledgers (owner) VALUES (?)`, string(owner)); err != nil {
			return fmt.Errorf("create ledger %q: %w", owner, err)
		}
	}
	for _, entry := range change.Entries {
		slotID, err := toInt64(uint64(entry.SlotID))
		if err != nil {
			return fmt.Errorf("entry slot id: %w", err)
		}
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO ledger_entries (owner, slot_id, amount) VALUES (?, ?, ?)
			 ON CONFLICT(owner, slot_id) DO UPDATE SET amount = excluded.amount`,
			string(entry.Owner), slotID, formatAmount(entry.Amount),
		); err != nil {
			return fmt.Errorf("write ledger entry %q/%d: %w", entry.Owner, entry.SlotID, err)
		}
	}
	for _, user := range change.NewUsers {
		if _, err := tx.ExecContext(ctx, `INSERT INTO known_users (address) VALUES (?)`, string(user)); err != nil {
			if isUniqueViolation(err) {
				return fmt.Errorf("known user %q already listed", user)
			}
			return fmt.Errorf("append known user %q: %w", user, err)
		}
	}
	if _, err := tx.ExecContext(ctx, `UPDATE vault_meta SET revision = ? WHERE id = 1`, revision); err != nil {
		return fmt.Errorf("write revision: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit vault change: %w", err)
	}
	return nil
}

func formatAmount(amount model.Amount) string {
	return strconv.FormatUint(uint64(amount), 10)
}

func parseAmount(raw string) (model.Amount, error) {
	value, err := strconv.ParseUint(raw, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid stored amount %q: %w", raw, err)
	}
	return model.Amount(value), nil
}

func toInt64(value uint64) (int64, error) {
	if value > math.MaxInt64 {
		return 0, model.ErrOverflow
	}
	return int64(value), nil
}

func boolInt(value bool) int {
	if value {
		return 1
	}
	return 0
}

func isUniqueViolation(err error) bool {
	var sqliteErr *msqlite.Error
	if errors.As(err, &sqliteErr) {
		switch sqliteErr.Code() {
		case sqlite3lib.SQLITE_CONSTRAINT_PRIMARYKEY, sqlite3lib.SQLITE_CONSTRAINT_UNIQUE:
			return true
		}
	}
	return strings.Contains(strings.ToLower(err.Error()), "unique constraint failed")
}
