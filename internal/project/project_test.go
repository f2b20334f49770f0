package project

import (
	"bytes"
	"context"
	"errors"
	"math/big"
	"testing"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"attributionHub/internal/model"
)

var (
	coordinatorAddr = common.HexToAddress("0xc000000000000000000000000000000000000001")
	projectAddr     = common.HexToAddress("0x00000000000000000000000000000000000000aa")
	tokenAddr       = common.HexToAddress("0x1111111111111111111111111111111111111111")
	claimant        = common.HexToAddress("0xa11ce00000000000000000000000000000000004")
)

type fakeProjectContract struct {
	t        *testing.T
	revert   bool
	settleAs common.Address
	msgs     []ethereum.CallMsg
	inputs   []interface{}
}

func (f *fakeProjectContract) CodeAt(context.Context, common.Address, *big.Int) ([]byte, error) {
	return []byte{0x60}, nil
}

func (f *fakeProjectContract) CallContract(_ context.Context, msg ethereum.CallMsg, _ *big.Int) ([]byte, error) {
	f.msgs = append(f.msgs, msg)
	if f.revert {
		return nil, errors.New("execution reverted")
	}
	parsed, err := ProjectABI()
	require.NoError(f.t, err)

	method, err := parsed.MethodById(msg.Data[:4])
	require.NoError(f.t, err)
	args, err := method.Inputs.Unpack(msg.Data[4:])
	require.NoError(f.t, err)
	f.inputs = args

	switch method.Name {
	case "attribute":
		return nil, nil
	case "settleClaim":
		total := new(big.Int)
		for _, amount := range args[3].([]*big.Int) {
			total.Add(total, amount)
		}
		// the contract halves the payout
		total.Rsh(total, 1)
		return method.Outputs.Pack(total, f.settleAs)
	}
	return nil, errors.New("unknown method")
}

func TestEVMBackendSettleClaim(t *testing.T) {
	requireT := require.New(t)
	fake := &fakeProjectContract{t: t, settleAs: tokenAddr}
	backend := NewEVMBackend(fake, projectAddr, coordinatorAddr)

	settled, err := backend.SettleClaim(context.Background(), nil, tokenAddr, claimant,
		[]*uint256.Int{uint256.NewInt(1), uint256.NewInt(2)},
		[]*uint256.Int{uint256.NewInt(30), uint256.NewInt(50)},
	)
	requireT.NoError(err)
	requireT.Equal(uint64(40), settled.Amount.Uint64())
	requireT.Equal(tokenAddr, settled.Currency)

	requireT.Len(fake.msgs, 1)
	requireT.Equal(coordinatorAddr, fake.msgs[0].From)
	requireT.Equal(projectAddr, *fake.msgs[0].To)
	requireT.Equal(claimant, fake.inputs[1])
	requireT.Equal([]*big.Int{big.NewInt(1), big.NewInt(2)}, fake.inputs[2])
}

func TestEVMBackendAttribute(t *testing.T) {
	fake := &fakeProjectContract{t: t}
	backend := NewEVMBackend(fake, projectAddr, coordinatorAddr)

	records := [][]byte{[]byte("first"), []byte("second")}
	require.NoError(t, backend.Attribute(context.Background(), nil, records, coordinatorAddr))
	require.Len(t, fake.inputs, 2)
	assert.Equal(t, records, fake.inputs[0])
	assert.Equal(t, coordinatorAddr, fake.inputs[1])
}

func TestEVMBackendRevert(t *testing.T) {
	fake := &fakeProjectContract{t: t, revert: true}
	backend := NewEVMBackend(fake, projectAddr, coordinatorAddr)

	_, err := backend.SettleClaim(context.Background(), nil, tokenAddr, claimant, nil, nil)
	require.ErrorContains(t, err, "execution reverted")
	require.ErrorContains(t, backend.Attribute(context.Background(), nil, nil, coordinatorAddr), "execution reverted")
}

func TestEVMBackendNilCaller(t *testing.T) {
	backend := NewEVMBackend(nil, projectAddr, coordinatorAddr)
	require.Error(t, backend.Attribute(context.Background(), nil, nil, coordinatorAddr))
}

func TestPassthrough(t *testing.T) {
	requireT := require.New(t)
	ctx := context.Background()
	p := NewPassthrough()

	settled, err := p.SettleClaim(ctx, nil, tokenAddr, claimant,
		[]*uint256.Int{uint256.NewInt(1), uint256.NewInt(2)},
		[]*uint256.Int{uint256.NewInt(3), uint256.NewInt(4)},
	)
	requireT.NoError(err)
	requireT.Equal(uint64(7), settled.Amount.Uint64())
	requireT.Equal(tokenAddr, settled.Currency)

	_, err = p.SettleClaim(ctx, nil, tokenAddr, claimant, []*uint256.Int{uint256.NewInt(1)}, nil)
	requireT.ErrorIs(err, model.ErrInvalidArgument)

	top := new(uint256.Int).SetAllOne()
	_, err = p.SettleClaim(ctx, nil, tokenAddr, claimant,
		[]*uint256.Int{uint256.NewInt(1), uint256.NewInt(2)},
		[]*uint256.Int{top, uint256.NewInt(1)},
	)
	requireT.ErrorIs(err, model.ErrInvalidArgument)

	requireT.NoError(p.Attribute(ctx, nil, [][]byte{{1}, {2}}, coordinatorAddr))
	p.Rollback()
	requireT.Zero(p.Attributed())
	requireT.NoError(p.Attribute(ctx, nil, [][]byte{{1}}, coordinatorAddr))
	p.Commit()
	requireT.Equal(1, p.Attributed())
}

func TestDirectory(t *testing.T) {
	requireT := require.New(t)
	d := NewDirectory()
	other := common.HexToAddress("0x00000000000000000000000000000000000000bb")

	requireT.NoError(d.Register(other, NewPassthrough()))
	requireT.NoError(d.Register(projectAddr, NewPassthrough()))
	requireT.ErrorIs(d.Register(projectAddr, NewPassthrough()), model.ErrInvalidArgument)
	requireT.ErrorIs(d.Register(common.Address{}, NewPassthrough()), model.ErrInvalidArgument)
	requireT.ErrorIs(d.Register(tokenAddr, nil), model.ErrInvalidArgument)

	_, ok := d.Backend(projectAddr)
	requireT.True(ok)
	_, ok = d.Backend(tokenAddr)
	requireT.False(ok)

	projects := d.Projects()
	requireT.Len(projects, 2)
	requireT.True(bytes.Compare(projects[0][:], projects[1][:]) < 0)
}
