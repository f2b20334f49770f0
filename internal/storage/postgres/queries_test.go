package postgres

import (
	"strings"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"
	"github.com/jackc/pgx/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"attributionHub/internal/model"
)

func TestQueueChangeSet(t *testing.T) {
	requireT := require.New(t)
	token := common.HexToAddress("0x1111111111111111111111111111111111111111")
	pauser := common.HexToAddress("0x9a00000000000000000000000000000000000003")
	cooldown := 2 * time.Second
	paused := false

	batch := &pgx.Batch{}
	queueChangeSet(batch, model.ChangeSet{
		Sequence: 12,
		Currencies: []model.CurrencyEntry{{
			Address:           token,
			TokenType:         model.TokenTypeFungible,
			ClaimLimit:        uint256.NewInt(100),
			CumulativeClaimed: uint256.NewInt(40),
			WindowStartedAt:   time.Unix(100, 0),
			Active:            true,
		}},
		Cooldown: &cooldown,
		Roles: []model.RoleGrant{
			{Role: model.RolePauser, Account: pauser, Granted: true},
			{Role: model.RoleAdmin, Account: pauser, Granted: false},
		},
		Paused: &paused,
	})

	requireT.Equal(6, batch.Len())
	queries := batch.QueuedQueries

	assert.Contains(t, queries[0].SQL, "INSERT INTO currencies")
	assert.Equal(t, []any{token.Hex(), "fungible", "100", "40", time.Unix(100, 0).UTC(), true}, queries[0].Arguments)

	assert.Contains(t, queries[1].SQL, "claim_cooldown_ns")
	assert.Equal(t, []any{int64(2 * time.Second)}, queries[1].Arguments)

	assert.Contains(t, queries[2].SQL, "INSERT INTO roles")
	assert.Equal(t, []any{"pauser", pauser.Hex()}, queries[2].Arguments)
	assert.True(t, strings.HasPrefix(queries[3].SQL, "DELETE FROM roles"))
	assert.Equal(t, []any{"admin", pauser.Hex()}, queries[3].Arguments)

	assert.Contains(t, queries[4].SQL, "paused")
	assert.Contains(t, queries[5].SQL, "GREATEST")
	assert.Equal(t, []any{int64(12)}, queries[5].Arguments)
}

func TestSchemaCoversEveryTable(t *testing.T) {
	joined := strings.Join(schema, "\n")
	for _, table := range []string{"currencies", "claim_ledger", "fee_schedule", "protocol_timing", "roles", "protocol_flags"} {
		assert.Contains(t, joined, "CREATE TABLE IF NOT EXISTS "+table+" (")
	}
}
