package registry

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"attributionHub/internal/model"
	"attributionHub/internal/ratelimit"
	"attributionHub/internal/state"
)

type fakeClassifier struct {
	types map[common.Address]model.TokenType
	calls int
}

func (f *fakeClassifier) Classify(_ context.Context, currency common.Address) (model.TokenType, error) {
	f.calls++
	tokenType, ok := f.types[currency]
	if !ok {
		return 0, model.ErrInvalidArgument
	}
	return tokenType, nil
}

var (
	usdc = common.HexToAddress("0x1111111111111111111111111111111111111111")
	nft  = common.HexToAddress("0x2222222222222222222222222222222222222222")
	eoa  = common.HexToAddress("0x3333333333333333333333333333333333333333")
	t0   = time.Unix(1_700_000_000, 0).UTC()
)

func newRegistry(journal *state.Journal) (*Registry, *fakeClassifier) {
	classifier := &fakeClassifier{types: map[common.Address]model.TokenType{
		model.NativeCurrency: model.TokenTypeNative,
		usdc:                 model.TokenTypeFungible,
		nft:                  model.TokenTypeUnique,
	}}
	return New(classifier, journal, nil), classifier
}

func TestRegister(t *testing.T) {
	requireT := require.New(t)
	assertT := assert.New(t)

	reg, _ := newRegistry(nil)
	entry, err := reg.Register(context.Background(), usdc, uint256.NewInt(100), t0)
	requireT.NoError(err)

	assertT.Equal(model.TokenTypeFungible, entry.TokenType)
	assertT.True(entry.Active)
	assertT.True(entry.CumulativeClaimed.IsZero())
	assertT.Equal(t0, entry.WindowStartedAt)
	assertT.True(reg.IsAccepted(usdc))

	tokenType, err := reg.TokenType(usdc)
	requireT.NoError(err)
	assertT.Equal(model.TokenTypeFungible, tokenType)
}

func TestRegisterRejections(t *testing.T) {
	requireT := require.New(t)
	ctx := context.Background()

	reg, classifier := newRegistry(nil)
	_, err := reg.Register(ctx, usdc, uint256.NewInt(100), t0)
	requireT.NoError(err)

	_, err = reg.Register(ctx, usdc, uint256.NewInt(100), t0)
	requireT.ErrorIs(err, model.ErrCurrencyAlreadyAccepted)

	_, err = reg.Register(ctx, nft, new(uint256.Int), t0)
	requireT.ErrorIs(err, model.ErrInvalidArgument)

	_, err = reg.Register(ctx, eoa, uint256.NewInt(1), t0)
	requireT.ErrorIs(err, model.ErrInvalidArgument)
	_, ok := reg.Entry(eoa)
	requireT.False(ok)

	// rejected before classification
	requireT.Equal(2, classifier.calls)
}

func TestReRegisterResetsEntry(t *testing.T) {
	requireT := require.New(t)
	assertT := assert.New(t)
	ctx := context.Background()

	reg, _ := newRegistry(nil)
	limiter := ratelimit.New(time.Hour, nil)

	_, err := reg.Register(ctx, usdc, uint256.NewInt(100), t0)
	requireT.NoError(err)
	_, err = reg.RecordClaim(usdc, uint256.NewInt(70), t0.Add(time.Minute), limiter)
	requireT.NoError(err)
	requireT.NoError(reg.Deactivate(usdc))

	entry, ok := reg.Entry(usdc)
	requireT.True(ok)
	assertT.False(entry.Active)
	assertT.Equal(uint64(70), entry.CumulativeClaimed.Uint64())

	later := t0.Add(2 * time.Minute)
	entry, err = reg.Register(ctx, usdc, uint256.NewInt(500), later)
	requireT.NoError(err)
	assertT.True(entry.Active)
	assertT.True(entry.CumulativeClaimed.IsZero())
	assertT.Equal(later, entry.WindowStartedAt)
	assertT.Equal(uint64(500), entry.ClaimLimit.Uint64())
}

func TestDeactivate(t *testing.T) {
	requireT := require.New(t)

	reg, _ := newRegistry(nil)
	requireT.ErrorIs(reg.Deactivate(usdc), model.ErrCurrencyNotAccepted)

	_, err := reg.Register(context.Background(), usdc, uint256.NewInt(100), t0)
	requireT.NoError(err)
	requireT.NoError(reg.Deactivate(usdc))
	requireT.ErrorIs(reg.Deactivate(usdc), model.ErrCurrencyNotAccepted)
	requireT.False(reg.IsAccepted(usdc))
}

func TestSetLimit(t *testing.T) {
	requireT := require.New(t)

	reg, _ := newRegistry(nil)
	requireT.ErrorIs(reg.SetLimit(usdc, uint256.NewInt(5)), model.ErrCurrencyNotAccepted)

	_, err := reg.Register(context.Background(), usdc, uint256.NewInt(100), t0)
	requireT.NoError(err)
	requireT.ErrorIs(reg.SetLimit(usdc, uint256.NewInt(100)), model.ErrInvalidArgument)
	requireT.ErrorIs(reg.SetLimit(usdc, new(uint256.Int)), model.ErrInvalidArgument)

	requireT.NoError(reg.Deactivate(usdc))
	requireT.NoError(reg.SetLimit(usdc, uint256.NewInt(10)))

	entry, _ := reg.Entry(usdc)
	requireT.Equal(uint64(10), entry.ClaimLimit.Uint64())
}

func TestRecordClaimRequiresKnownCurrency(t *testing.T) {
	reg, _ := newRegistry(nil)

	_, err := reg.RecordClaim(usdc, uint256.NewInt(1), t0, ratelimit.New(time.Second, nil))
	require.ErrorIs(t, err, model.ErrCurrencyNotAccepted)
}

func TestRecordClaimAllowedOnInactiveCurrency(t *testing.T) {
	requireT := require.New(t)

	reg, _ := newRegistry(nil)
	_, err := reg.Register(context.Background(), usdc, uint256.NewInt(100), t0)
	requireT.NoError(err)
	requireT.NoError(reg.Deactivate(usdc))

	entry, err := reg.RecordClaim(usdc, uint256.NewInt(30), t0, ratelimit.New(time.Second, nil))
	requireT.NoError(err)
	requireT.Equal(uint64(30), entry.CumulativeClaimed.Uint64())
}

func TestRevertRestoresEntries(t *testing.T) {
	requireT := require.New(t)
	ctx := context.Background()

	journal := state.NewJournal()
	reg, _ := newRegistry(journal)
	_, err := reg.Register(ctx, usdc, uint256.NewInt(100), t0)
	requireT.NoError(err)

	requireT.True(journal.Begin())
	requireT.NoError(reg.SetLimit(usdc, uint256.NewInt(1)))
	_, err = reg.Register(ctx, nft, uint256.NewInt(3), t0)
	requireT.NoError(err)
	journal.Revert()

	entry, _ := reg.Entry(usdc)
	requireT.Equal(uint64(100), entry.ClaimLimit.Uint64())
	_, ok := reg.Entry(nft)
	requireT.False(ok)
	requireT.Len(reg.List(), 1)
}

func TestRegisterPropagatesClassifierFailure(t *testing.T) {
	reg := New(classifierFunc(func(context.Context, common.Address) (model.TokenType, error) {
		return 0, errors.New("rpc unavailable")
	}), nil, nil)

	_, err := reg.Register(context.Background(), usdc, uint256.NewInt(1), t0)
	require.EqualError(t, err, "rpc unavailable")
}

type classifierFunc func(context.Context, common.Address) (model.TokenType, error)

func (f classifierFunc) Classify(ctx context.Context, currency common.Address) (model.TokenType, error) {
	return f(ctx, currency)
}

func TestRegisterNativeWithoutClassifier(t *testing.T) {
	reg := New(nil, nil, nil)

	entry, err := reg.Register(context.Background(), model.NativeCurrency, uint256.NewInt(5), t0)
	require.NoError(t, err)
	assert.Equal(t, model.TokenTypeNative, entry.TokenType)

	_, err = reg.Register(context.Background(), usdc, uint256.NewInt(5), t0)
	require.ErrorIs(t, err, model.ErrInvalidArgument)
}
