package probe

import (
	"bytes"
	"context"
	"fmt"
	"math/big"
	"strings"
	"sync"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"go.uber.org/zap"

	"attributionHub/internal/chain"
	"attributionHub/internal/model"
)

const metadataStringABIJSON = `[
  {"inputs": [], "name": "decimals", "outputs": [{"type": "uint8"}], "stateMutability": "view", "type": "function"},
  {"inputs": [], "name": "symbol", "outputs": [{"type": "string"}], "stateMutability": "view", "type": "function"},
  {"inputs": [], "name": "name", "outputs": [{"type": "string"}], "stateMutability": "view", "type": "function"}
]`

// Some older tokens return bytes32 for symbol and name.
const metadataBytes32ABIJSON = `[
  {"inputs": [], "name": "symbol", "outputs": [{"type": "bytes32"}], "stateMutability": "view", "type": "function"},
  {"inputs": [], "name": "name", "outputs": [{"type": "bytes32"}], "stateMutability": "view", "type": "function"}
]`

var (
	metadataStringABI      abi.ABI
	metadataStringABIOnce  sync.Once
	metadataStringABIErr   error
	metadataBytes32ABI     abi.ABI
	metadataBytes32ABIOnce sync.Once
	metadataBytes32ABIErr  error
)

func metadataStringABIInstance() (abi.ABI, error) {
	metadataStringABIOnce.Do(func() {
		metadataStringABI, metadataStringABIErr = abi.JSON(strings.NewReader(metadataStringABIJSON))
	})
	return metadataStringABI, metadataStringABIErr
}

func metadataBytes32ABIInstance() (abi.ABI, error) {
	metadataBytes32ABIOnce.Do(func() {
		metadataBytes32ABI, metadataBytes32ABIErr = abi.JSON(strings.NewReader(metadataBytes32ABIJSON))
	})
	return metadataBytes32ABI, metadataBytes32ABIErr
}

// FetchMetadata reads symbol, name and, for fungible tokens, decimals. Every
// field is optional; missing methods leave the field empty.
func FetchMetadata(ctx context.Context, caller chain.ContractCaller, token common.Address, tokenType model.TokenType, logger *zap.Logger) (model.TokenMeta, error) {
	meta := model.TokenMeta{Address: token.Hex()}
	if tokenType == model.TokenTypeNative {
		return meta, nil
	}
	if caller == nil {
		return meta, fmt.Errorf("chain caller is nil")
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	stringABI, err := metadataStringABIInstance()
	if err != nil {
		return meta, fmt.Errorf("parse metadata abi: %w", err)
	}
	bytes32ABI, err := metadataBytes32ABIInstance()
	if err != nil {
		return meta, fmt.Errorf("parse metadata bytes32 abi: %w", err)
	}

	call := func(method string, parsed abi.ABI) ([]interface{}, error) {
		data, err := parsed.Pack(method)
		if err != nil {
			return nil, fmt.Errorf("pack %s: %w", method, err)
		}
		resp, err := caller.CallContract(ctx, ethereum.CallMsg{To: &token, Data: data}, nil)
		if err != nil {
			return nil, fmt.Errorf("call %s: %w", method, err)
		}
		values, err := parsed.Unpack(method, resp)
		if err != nil {
			return nil, fmt.Errorf("unpack %s: %w", method, err)
		}
		if len(values) == 0 {
			return nil, fmt.Errorf("unpack %s: empty result", method)
		}
		return values, nil
	}

	if tokenType == model.TokenTypeFungible {
		if values, err := call("decimals", stringABI); err == nil {
			if decimals, ok := asUint8(values[0]); ok {
				meta.Decimals = &decimals
			}
		} else {
			logger.Debug("decimals call failed", zap.String("token", token.Hex()), zap.Error(err))
		}
	}

	text := func(method string) string {
		if values, err := call(method, stringABI); err == nil {
			if s, ok := values[0].(string); ok {
				return s
			}
		}
		values, err := call(method, bytes32ABI)
		if err != nil {
			logger.Debug(method+" call failed", zap.String("token", token.Hex()), zap.Error(err))
			return ""
		}
		if raw, ok := values[0].([32]byte); ok {
			return string(bytes.TrimRight(raw[:], "\x00"))
		}
		return ""
	}
	meta.Symbol = text("symbol")
	meta.Name = text("name")

	return meta, nil
}

func asUint8(value interface{}) (uint8, bool) {
	switch v := value.(type) {
	case uint8:
		return v, true
	case *big.Int:
		if !v.IsUint64() || v.Uint64() > 255 {
			return 0, false
		}
		return uint8(v.Uint64()), true
	default:
		return 0, false
	}
}
