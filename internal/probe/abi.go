package probe

import (
	"strings"
	"sync"

	"github.com/ethereum/go-ethereum/accounts/abi"
)

// ERC165 interface identifiers.
var (
	InterfaceIDERC721  = [4]byte{0x80, 0xac, 0x58, 0xcd}
	InterfaceIDERC1155 = [4]byte{0xd9, 0xb6, 0x7a, 0x26}
)

const tokenProbeABIJSON = `[
  {"inputs": [{"name": "account", "type": "address"}], "name": "balanceOf", "outputs": [{"type": "uint256"}], "stateMutability": "view", "type": "function"},
  {"inputs": [{"name": "owner", "type": "address"}, {"name": "spender", "type": "address"}], "name": "allowance", "outputs": [{"type": "uint256"}], "stateMutability": "view", "type": "function"},
  {"inputs": [{"name": "interfaceId", "type": "bytes4"}], "name": "supportsInterface", "outputs": [{"type": "bool"}], "stateMutability": "view", "type": "function"}
]`

var (
	tokenProbeABI     abi.ABI
	tokenProbeABIOnce sync.Once
	tokenProbeABIErr  error
)

// TokenProbeABI returns the parsed ABI holding every method the prober calls.
func TokenProbeABI() (abi.ABI, error) {
	tokenProbeABIOnce.Do(func() {
		tokenProbeABI, tokenProbeABIErr = abi.JSON(strings.NewReader(tokenProbeABIJSON))
	})
	return tokenProbeABI, tokenProbeABIErr
}
