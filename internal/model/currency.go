package model

import (
	"fmt"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"
)

// NativeCurrency is the sentinel address that stands for the chain's native coin.
var NativeCurrency = common.Address{}

// TokenType classifies a currency address.
type TokenType uint8

const (
	TokenTypeNative TokenType = iota
	TokenTypeFungible
	TokenTypeUnique
	TokenTypeMulti
)

func (t TokenType) String() string {
	switch t {
	case TokenTypeNative:
		return "native"
	case TokenTypeFungible:
		return "fungible"
	case TokenTypeUnique:
		return "unique"
	case TokenTypeMulti:
		return "multi"
	default:
		return fmt.Sprintf("unknown(%d)", uint8(t))
	}
}

// ParseTokenType is the inverse of TokenType.String.
func ParseTokenType(input string) (TokenType, error) {
	switch strings.ToLower(strings.TrimSpace(input)) {
	case "native":
		return TokenTypeNative, nil
	case "fungible":
		return TokenTypeFungible, nil
	case "unique":
		return TokenTypeUnique, nil
	case "multi":
		return TokenTypeMulti, nil
	default:
		return 0, fmt.Errorf("unknown token type: %s", input)
	}
}

// CurrencyEntry is the registry record of one accepted currency.
type CurrencyEntry struct {
	Address           common.Address
	TokenType         TokenType
	ClaimLimit        *uint256.Int
	CumulativeClaimed *uint256.Int
	WindowStartedAt   time.Time
	Active            bool
}

// Clone returns a deep copy so callers never alias registry state.
func (e CurrencyEntry) Clone() CurrencyEntry {
	out := e
	if e.ClaimLimit != nil {
		out.ClaimLimit = new(uint256.Int).Set(e.ClaimLimit)
	}
	if e.CumulativeClaimed != nil {
		out.CumulativeClaimed = new(uint256.Int).Set(e.CumulativeClaimed)
	}
	return out
}

// TokenMeta is the optional descriptive metadata of a token contract.
type TokenMeta struct {
	Address  string `json:"address"`
	Symbol   string `json:"symbol,omitempty"`
	Name     string `json:"name,omitempty"`
	Decimals *uint8 `json:"decimals,omitempty"`
}
