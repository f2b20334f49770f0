package probe

import (
	"context"
	"errors"
	"math/big"
	"testing"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"attributionHub/internal/model"
)

type metadataChain struct {
	t       *testing.T
	bytes32 bool
	noName  bool
}

func (m *metadataChain) CodeAt(context.Context, common.Address, *big.Int) ([]byte, error) {
	return []byte{0x60}, nil
}

func (m *metadataChain) CallContract(_ context.Context, msg ethereum.CallMsg, _ *big.Int) ([]byte, error) {
	parsed, err := metadataStringABIInstance()
	require.NoError(m.t, err)
	method, err := parsed.MethodById(msg.Data[:4])
	require.NoError(m.t, err)

	switch method.Name {
	case "decimals":
		return method.Outputs.Pack(uint8(6))
	case "name":
		if m.noName {
			return nil, errors.New("execution reverted")
		}
	}

	value := "USDC"
	if method.Name == "name" {
		value = "USD Coin"
	}
	if m.bytes32 {
		legacy, err := metadataBytes32ABIInstance()
		require.NoError(m.t, err)
		var raw [32]byte
		copy(raw[:], value)
		return legacy.Methods[method.Name].Outputs.Pack(raw)
	}
	return method.Outputs.Pack(value)
}

func TestFetchMetadata(t *testing.T) {
	token := common.HexToAddress("0x1111111111111111111111111111111111111111")

	meta, err := FetchMetadata(context.Background(), &metadataChain{t: t}, token, model.TokenTypeFungible, nil)
	require.NoError(t, err)
	assert.Equal(t, "USDC", meta.Symbol)
	assert.Equal(t, "USD Coin", meta.Name)
	require.NotNil(t, meta.Decimals)
	assert.Equal(t, uint8(6), *meta.Decimals)

	// unique tokens have no decimals
	meta, err = FetchMetadata(context.Background(), &metadataChain{t: t, noName: true}, token, model.TokenTypeUnique, nil)
	require.NoError(t, err)
	assert.Nil(t, meta.Decimals)
	assert.Equal(t, "USDC", meta.Symbol)
	assert.Empty(t, meta.Name)
}

func TestFetchMetadataBytes32Fallback(t *testing.T) {
	token := common.HexToAddress("0x1111111111111111111111111111111111111111")
	meta, err := FetchMetadata(context.Background(), &metadataChain{t: t, bytes32: true}, token, model.TokenTypeFungible, nil)
	require.NoError(t, err)
	assert.Equal(t, "USDC", meta.Symbol)
	assert.Equal(t, "USD Coin", meta.Name)
}

func TestFetchMetadataNative(t *testing.T) {
	meta, err := FetchMetadata(context.Background(), nil, model.NativeCurrency, model.TokenTypeNative, nil)
	require.NoError(t, err)
	assert.Empty(t, meta.Symbol)
}
