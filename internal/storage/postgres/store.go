package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"attributionHub/internal/model"
	"attributionHub/internal/storage"
)

// Store provides Postgres persistence for coordinator state.
type Store struct {
	pool *pgxpool.Pool
}

var _ storage.Persister = (*Store)(nil)

func NewStore(ctx context.Context, dsn string) (*Store, error) {
	if dsn == "" {
		return nil, fmt.Errorf("pg dsn is required")
	}
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, err
	}
	return &Store{pool: pool}, nil
}

func (s *Store) Close() {
	if s.pool != nil {
		s.pool.Close()
	}
}

// Migrate creates the coordinator tables when they do not exist.
func (s *Store) Migrate(ctx context.Context) error {
	for _, stmt := range schema {
		if _, err := s.pool.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("migrate: %w", err)
		}
	}
	return nil
}

// Persist writes a change set in one transaction.
func (s *Store) Persist(ctx context.Context, changes model.ChangeSet) error {
	batch := &pgx.Batch{}
	queueChangeSet(batch, changes)

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	br := tx.SendBatch(ctx, batch)
	for i := 0; i < batch.Len(); i++ {
		if _, err := br.Exec(); err != nil {
			br.Close()
			return fmt.Errorf("persist change set %d: %w", changes.Sequence, err)
		}
	}
	if err := br.Close(); err != nil {
		return err
	}
	return tx.Commit(ctx)
}

// LoadState reads the whole persisted state back as a snapshot change set.
func (s *Store) LoadState(ctx context.Context) (model.ChangeSet, error) {
	out := model.ChangeSet{Operation: "snapshot"}

	if err := s.loadCurrencies(ctx, &out); err != nil {
		return model.ChangeSet{}, err
	}
	if err := s.loadLedger(ctx, &out); err != nil {
		return model.ChangeSet{}, err
	}
	if err := s.loadFees(ctx, &out); err != nil {
		return model.ChangeSet{}, err
	}
	if err := s.loadTiming(ctx, &out); err != nil {
		return model.ChangeSet{}, err
	}
	if err := s.loadRoles(ctx, &out); err != nil {
		return model.ChangeSet{}, err
	}
	if err := s.loadFlags(ctx, &out); err != nil {
		return model.ChangeSet{}, err
	}
	return out, nil
}

func (s *Store) loadCurrencies(ctx context.Context, out *model.ChangeSet) error {
	rows, err := s.pool.Query(ctx, `
		SELECT address, token_type, claim_limit::text, cumulative_claimed::text, window_started_at, active
		FROM currencies
		ORDER BY address
	`)
	if err != nil {
		return fmt.Errorf("query currencies: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var record storage.CurrencyRecord
		if err := rows.Scan(&record.Address, &record.TokenType, &record.ClaimLimit, &record.CumulativeClaimed, &record.WindowStartedAt, &record.Active); err != nil {
			return fmt.Errorf("scan currency: %w", err)
		}
		decoded, err := storage.ChangeRecord{Caller: zeroAddress, Currencies: []storage.CurrencyRecord{record}}.Decode()
		if err != nil {
			return err
		}
		out.Currencies = append(out.Currencies, decoded.Currencies...)
	}
	return rows.Err()
}

func (s *Store) loadLedger(ctx context.Context, out *model.ChangeSet) error {
	rows, err := s.pool.Query(ctx, `
		SELECT user_address, currency, total::text
		FROM claim_ledger
		ORDER BY user_address, currency
	`)
	if err != nil {
		return fmt.Errorf("query claim ledger: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var record storage.LedgerRecord
		if err := rows.Scan(&record.User, &record.Currency, &record.Total); err != nil {
			return fmt.Errorf("scan ledger: %w", err)
		}
		decoded, err := storage.ChangeRecord{Caller: zeroAddress, Ledger: []storage.LedgerRecord{record}}.Decode()
		if err != nil {
			return err
		}
		out.Ledger = append(out.Ledger, decoded.Ledger...)
	}
	return rows.Err()
}

func (s *Store) loadFees(ctx context.Context, out *model.ChangeSet) error {
	var record storage.FeeRecord
	row := s.pool.QueryRow(ctx, `
		SELECT protocol_fee_rate, client_fee_rate, attributor_fee_rate, nft_fee_amount::text, nft_fee_currency, fee_collector
		FROM fee_schedule WHERE id = 1
	`)
	if err := row.Scan(&record.ProtocolFeeRate, &record.ClientFeeRate, &record.AttributorFeeRate, &record.NFTFeeAmount, &record.NFTFeeCurrency, &record.FeeCollector); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil
		}
		return fmt.Errorf("scan fee schedule: %w", err)
	}
	decoded, err := storage.ChangeRecord{Caller: zeroAddress, Fees: &record}.Decode()
	if err != nil {
		return err
	}
	out.Fees = decoded.Fees
	return nil
}

func (s *Store) loadTiming(ctx context.Context, out *model.ChangeSet) error {
	var claimCooldown, removalCooldown, removalWindow *int64
	row := s.pool.QueryRow(ctx, `
		SELECT claim_cooldown_ns, removal_cooldown_ns, removal_window_ns
		FROM protocol_timing WHERE id = 1
	`)
	if err := row.Scan(&claimCooldown, &removalCooldown, &removalWindow); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil
		}
		return fmt.Errorf("scan protocol timing: %w", err)
	}
	if claimCooldown != nil {
		cooldown := time.Duration(*claimCooldown)
		out.Cooldown = &cooldown
	}
	if removalCooldown != nil && removalWindow != nil {
		out.Timing = &model.RemovalTiming{
			Cooldown: time.Duration(*removalCooldown),
			Window:   time.Duration(*removalWindow),
		}
	}
	return nil
}

func (s *Store) loadRoles(ctx context.Context, out *model.ChangeSet) error {
	rows, err := s.pool.Query(ctx, `SELECT role, account FROM roles ORDER BY role, account`)
	if err != nil {
		return fmt.Errorf("query roles: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		record := storage.RoleRecord{Granted: true}
		if err := rows.Scan(&record.Role, &record.Account); err != nil {
			return fmt.Errorf("scan role: %w", err)
		}
		decoded, err := storage.ChangeRecord{Caller: zeroAddress, Roles: []storage.RoleRecord{record}}.Decode()
		if err != nil {
			return err
		}
		out.Roles = append(out.Roles, decoded.Roles...)
	}
	return rows.Err()
}

func (s *Store) loadFlags(ctx context.Context, out *model.ChangeSet) error {
	var paused *bool
	var sequence int64
	row := s.pool.QueryRow(ctx, `SELECT paused, sequence FROM protocol_flags WHERE id = 1`)
	if err := row.Scan(&paused, &sequence); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil
		}
		return fmt.Errorf("scan protocol flags: %w", err)
	}
	out.Paused = paused
	out.Sequence = uint64(sequence)
	return nil
}

const zeroAddress = "0x0000000000000000000000000000000000000000"
