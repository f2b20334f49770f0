package storage

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"attributionHub/internal/model"
)

func sampleChangeSet() model.ChangeSet {
	paused := true
	cooldown := 90 * time.Second
	limit, _ := uint256.FromDecimal("115792089237316195423570985008687907853269984665640564039457584007913129639935")
	return model.ChangeSet{
		Sequence:  7,
		Operation: "claim",
		Caller:    common.HexToAddress("0xa11ce00000000000000000000000000000000004"),
		Currencies: []model.CurrencyEntry{{
			Address:           common.HexToAddress("0x1111111111111111111111111111111111111111"),
			TokenType:         model.TokenTypeMulti,
			ClaimLimit:        limit,
			CumulativeClaimed: uint256.NewInt(60),
			WindowStartedAt:   time.Unix(1_700_000_000, 0).UTC(),
			Active:            true,
		}},
		Ledger: []model.LedgerEntry{{
			LedgerKey: model.LedgerKey{
				User:     common.HexToAddress("0xa11ce00000000000000000000000000000000004"),
				Currency: common.HexToAddress("0x1111111111111111111111111111111111111111"),
			},
			Total: uint256.NewInt(160),
		}},
		Fees: &model.FeeSchedule{
			ProtocolFeeRate: 250,
			NFTFeeAmount:    uint256.NewInt(5),
			FeeCollector:    common.HexToAddress("0xfee0000000000000000000000000000000000006"),
		},
		Timing:   &model.RemovalTiming{Cooldown: time.Hour, Window: 48 * time.Hour},
		Cooldown: &cooldown,
		Roles: []model.RoleGrant{
			{Role: model.RolePauser, Account: common.HexToAddress("0x9a00000000000000000000000000000000000003"), Granted: false},
		},
		Paused: &paused,
	}
}

func TestChangeRecordRoundTrip(t *testing.T) {
	changes := sampleChangeSet()
	decoded, err := EncodeChangeSet(changes).Decode()
	require.NoError(t, err)
	assert.Equal(t, changes, decoded)
}

func TestChangeRecordRejectsBadFields(t *testing.T) {
	record := EncodeChangeSet(sampleChangeSet())
	record.Currencies[0].ClaimLimit = "12abc"
	_, err := record.Decode()
	require.ErrorContains(t, err, "claim limit")

	record = EncodeChangeSet(sampleChangeSet())
	record.Roles[0].Role = "owner"
	_, err = record.Decode()
	require.ErrorContains(t, err, "unknown role")

	record = EncodeChangeSet(sampleChangeSet())
	record.Caller = "alice"
	_, err = record.Decode()
	require.ErrorContains(t, err, "caller")
}

func TestChangeLogAppendAndLoad(t *testing.T) {
	requireT := require.New(t)
	path := filepath.Join(t.TempDir(), "audit", "changes.jsonl")
	log := NewChangeLog(path)

	first := sampleChangeSet()
	second := model.ChangeSet{Sequence: 8, Operation: "pause", Caller: first.Caller, Paused: first.Paused}
	requireT.NoError(log.Persist(context.Background(), first))
	requireT.NoError(log.Persist(context.Background(), second))

	loaded, err := LoadChangeLog(path)
	requireT.NoError(err)
	requireT.Equal([]model.ChangeSet{first, second}, loaded)
}

func TestLoadChangeLogMissingAndCorrupt(t *testing.T) {
	dir := t.TempDir()
	loaded, err := LoadChangeLog(filepath.Join(dir, "missing.jsonl"))
	require.NoError(t, err)
	assert.Empty(t, loaded)

	path := filepath.Join(dir, "bad.jsonl")
	require.NoError(t, os.WriteFile(path, []byte("{\"sequence\":1,\"caller\":\"0x0000000000000000000000000000000000000000\"}\n{not json\n"), 0o644))
	_, err = LoadChangeLog(path)
	require.ErrorContains(t, err, "line 2")
}

type failingPersister struct{ calls int }

func (f *failingPersister) Persist(context.Context, model.ChangeSet) error {
	f.calls++
	return errors.New("unavailable")
}

func TestMultiStopsAtFirstFailure(t *testing.T) {
	path := filepath.Join(t.TempDir(), "changes.jsonl")
	failing := &failingPersister{}
	after := &failingPersister{}

	err := Multi{NewChangeLog(path), nil, failing, after}.Persist(context.Background(), sampleChangeSet())
	require.ErrorContains(t, err, "unavailable")
	assert.Equal(t, 1, failing.calls)
	assert.Zero(t, after.calls)

	loaded, err := LoadChangeLog(path)
	require.NoError(t, err)
	assert.Len(t, loaded, 1)
}
