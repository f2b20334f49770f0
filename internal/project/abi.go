package project

import (
	"strings"
	"sync"

	"github.com/ethereum/go-ethereum/accounts/abi"
)

const projectABIJSON = `[
  {"inputs": [{"name": "records", "type": "bytes[]"}, {"name": "feeCollector", "type": "address"}], "name": "attribute", "outputs": [], "stateMutability": "nonpayable", "type": "function"},
  {"inputs": [{"name": "currency", "type": "address"}, {"name": "claimant", "type": "address"}, {"name": "unitIds", "type": "uint256[]"}, {"name": "amounts", "type": "uint256[]"}], "name": "settleClaim", "outputs": [{"name": "amount", "type": "uint256"}, {"name": "currency", "type": "address"}], "stateMutability": "nonpayable", "type": "function"}
]`

var (
	projectABI     abi.ABI
	projectABIOnce sync.Once
	projectABIErr  error
)

// ProjectABI returns the parsed ABI of the project contract entry points.
func ProjectABI() (abi.ABI, error) {
	projectABIOnce.Do(func() {
		projectABI, projectABIErr = abi.JSON(strings.NewReader(projectABIJSON))
	})
	return projectABI, projectABIErr
}
