package config

import (
	"fmt"
	"net/url"
	"regexp"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/samber/lo"
	"github.com/shopspring/decimal"
)

// ParseAddress converts a hex string into common.Address.
func ParseAddress(input string) (common.Address, error) {
	input = strings.TrimSpace(input)
	if !common.IsHexAddress(input) {
		return common.Address{}, fmt.Errorf("invalid address: %s", input)
	}
	return common.HexToAddress(input), nil
}

// ParseAddresses converts string addresses into common.Address, dropping
// blanks and duplicates while keeping first-seen order.
func ParseAddresses(inputs []string) ([]common.Address, error) {
	addresses := make([]common.Address, 0, len(inputs))
	for _, input := range inputs {
		input = strings.TrimSpace(input)
		if input == "" {
			continue
		}
		address, err := ParseAddress(input)
		if err != nil {
			return nil, err
		}
		addresses = append(addresses, address)
	}
	return lo.Uniq(addresses), nil
}

// ParseTimestamp parses a timestamp value: unix seconds, optionally with a
// fractional part, or RFC3339.
func ParseTimestamp(input string) (time.Time, error) {
	input = strings.TrimSpace(input)
	if input == "" {
		return time.Time{}, fmt.Errorf("empty timestamp")
	}

	if isNumeric(input) {
		seconds, err := decimal.NewFromString(input)
		if err != nil {
			return time.Time{}, err
		}
		nanos := seconds.Shift(9).Truncate(0)
		if !nanos.IsInteger() || nanos.BigInt().BitLen() > 63 {
			return time.Time{}, fmt.Errorf("timestamp out of range: %s", input)
		}
		return time.Unix(0, nanos.IntPart()).UTC(), nil
	}

	tm, err := time.Parse(time.RFC3339Nano, input)
	if err != nil {
		return time.Time{}, err
	}
	return tm.UTC(), nil
}

func isNumeric(input string) bool {
	dots := 0
	for _, r := range input {
		if r == '.' {
			dots++
			continue
		}
		if r < '0' || r > '9' {
			return false
		}
	}
	return input != "" && dots <= 1 && input != "."
}

var passwordPattern = regexp.MustCompile(`(password=)\S+`)

// RedactDSN hides the password of a Postgres DSN for logging.
func RedactDSN(dsn string) string {
	if u, err := url.Parse(dsn); err == nil && u.Scheme != "" && u.User != nil {
		return u.Redacted()
	}
	return passwordPattern.ReplaceAllString(dsn, "${1}xxxxx")
}
