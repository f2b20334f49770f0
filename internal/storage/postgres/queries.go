package postgres

import (
	"github.com/jackc/pgx/v5"

	"attributionHub/internal/model"
	"attributionHub/internal/storage"
)

var schema = []string{
	`CREATE TABLE IF NOT EXISTS currencies (
		address TEXT PRIMARY KEY,
		token_type TEXT NOT NULL,
		claim_limit NUMERIC(78,0) NOT NULL,
		cumulative_claimed NUMERIC(78,0) NOT NULL,
		window_started_at TIMESTAMPTZ NOT NULL,
		active BOOLEAN NOT NULL,
		updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
	)`,
	`CREATE TABLE IF NOT EXISTS claim_ledger (
		user_address TEXT NOT NULL,
		currency TEXT NOT NULL,
		total NUMERIC(78,0) NOT NULL,
		updated_at TIMESTAMPTZ NOT NULL DEFAULT now(),
		PRIMARY KEY (user_address, currency)
	)`,
	`CREATE TABLE IF NOT EXISTS fee_schedule (
		id SMALLINT PRIMARY KEY,
		protocol_fee_rate BIGINT NOT NULL,
		client_fee_rate BIGINT NOT NULL,
		attributor_fee_rate BIGINT NOT NULL,
		nft_fee_amount NUMERIC(78,0) NOT NULL,
		nft_fee_currency TEXT NOT NULL,
		fee_collector TEXT NOT NULL,
		updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
	)`,
	`CREATE TABLE IF NOT EXISTS protocol_timing (
		id SMALLINT PRIMARY KEY,
		claim_cooldown_ns BIGINT,
		removal_cooldown_ns BIGINT,
		removal_window_ns BIGINT,
		updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
	)`,
	`CREATE TABLE IF NOT EXISTS roles (
		role TEXT NOT NULL,
		account TEXT NOT NULL,
		updated_at TIMESTAMPTZ NOT NULL DEFAULT now(),
		PRIMARY KEY (role, account)
	)`,
	`CREATE TABLE IF NOT EXISTS protocol_flags (
		id SMALLINT PRIMARY KEY,
		paused BOOLEAN,
		sequence BIGINT NOT NULL DEFAULT 0,
		updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
	)`,
}

// queueChangeSet queues one upsert per changed row plus the sequence bump.
func queueChangeSet(batch *pgx.Batch, changes model.ChangeSet) {
	record := storage.EncodeChangeSet(changes)

	for _, c := range record.Currencies {
		batch.Queue(`
			INSERT INTO currencies (
				address, token_type, claim_limit, cumulative_claimed, window_started_at, active, updated_at
			) VALUES ($1, $2, $3::numeric, $4::numeric, $5, $6, now())
			ON CONFLICT (address)
			DO UPDATE SET
				token_type = EXCLUDED.token_type,
				claim_limit = EXCLUDED.claim_limit,
				cumulative_claimed = EXCLUDED.cumulative_claimed,
				window_started_at = EXCLUDED.window_started_at,
				active = EXCLUDED.active,
				updated_at = now()
		`, c.Address, c.TokenType, c.ClaimLimit, c.CumulativeClaimed, c.WindowStartedAt, c.Active)
	}

	for _, l := range record.Ledger {
		batch.Queue(`
			INSERT INTO claim_ledger (user_address, currency, total, updated_at)
			VALUES ($1, $2, $3::numeric, now())
			ON CONFLICT (user_address, currency)
			DO UPDATE SET total = EXCLUDED.total, updated_at = now()
		`, l.User, l.Currency, l.Total)
	}

	if f := record.Fees; f != nil {
		batch.Queue(`
			INSERT INTO fee_schedule (
				id, protocol_fee_rate, client_fee_rate, attributor_fee_rate, nft_fee_amount, nft_fee_currency, fee_collector, updated_at
			) VALUES (1, $1, $2, $3, $4::numeric, $5, $6, now())
			ON CONFLICT (id)
			DO UPDATE SET
				protocol_fee_rate = EXCLUDED.protocol_fee_rate,
				client_fee_rate = EXCLUDED.client_fee_rate,
				attributor_fee_rate = EXCLUDED.attributor_fee_rate,
				nft_fee_amount = EXCLUDED.nft_fee_amount,
				nft_fee_currency = EXCLUDED.nft_fee_currency,
				fee_collector = EXCLUDED.fee_collector,
				updated_at = now()
		`, int64(f.ProtocolFeeRate), int64(f.ClientFeeRate), int64(f.AttributorFeeRate), f.NFTFeeAmount, f.NFTFeeCurrency, f.FeeCollector)
	}

	if t := changes.Timing; t != nil {
		batch.Queue(`
			INSERT INTO protocol_timing (id, removal_cooldown_ns, removal_window_ns, updated_at)
			VALUES (1, $1, $2, now())
			ON CONFLICT (id)
			DO UPDATE SET
				removal_cooldown_ns = EXCLUDED.removal_cooldown_ns,
				removal_window_ns = EXCLUDED.removal_window_ns,
				updated_at = now()
		`, int64(t.Cooldown), int64(t.Window))
	}
	if changes.Cooldown != nil {
		batch.Queue(`
			INSERT INTO protocol_timing (id, claim_cooldown_ns, updated_at)
			VALUES (1, $1, now())
			ON CONFLICT (id)
			DO UPDATE SET claim_cooldown_ns = EXCLUDED.claim_cooldown_ns, updated_at = now()
		`, int64(*changes.Cooldown))
	}

	for _, g := range record.Roles {
		if g.Granted {
			batch.Queue(`
				INSERT INTO roles (role, account, updated_at) VALUES ($1, $2, now())
				ON CONFLICT (role, account) DO NOTHING
			`, g.Role, g.Account)
			continue
		}
		batch.Queue(`DELETE FROM roles WHERE role = $1 AND account = $2`, g.Role, g.Account)
	}

	if changes.Paused != nil {
		batch.Queue(`
			INSERT INTO protocol_flags (id, paused, updated_at) VALUES (1, $1, now())
			ON CONFLICT (id) DO UPDATE SET paused = EXCLUDED.paused, updated_at = now()
		`, *changes.Paused)
	}

	batch.Queue(`
		INSERT INTO protocol_flags (id, sequence, updated_at) VALUES (1, $1, now())
		ON CONFLICT (id)
		DO UPDATE SET sequence = GREATEST(protocol_flags.sequence, EXCLUDED.sequence), updated_at = now()
	`, int64(changes.Sequence))
}
