package storage

import (
	"fmt"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"
	"github.com/samber/lo"

	"attributionHub/internal/model"
)

// ChangeRecord is the JSON form of a change set. Amounts are decimal strings
// and durations use time.Duration notation.
type ChangeRecord struct {
	Sequence   uint64           `json:"sequence"`
	Operation  string           `json:"operation"`
	Caller     string           `json:"caller"`
	Currencies []CurrencyRecord `json:"currencies,omitempty"`
	Ledger     []LedgerRecord   `json:"ledger,omitempty"`
	Fees       *FeeRecord       `json:"fees,omitempty"`
	Timing     *TimingRecord    `json:"timing,omitempty"`
	Cooldown   string           `json:"claim_cooldown,omitempty"`
	Roles      []RoleRecord     `json:"roles,omitempty"`
	Paused     *bool            `json:"paused,omitempty"`
}

type CurrencyRecord struct {
	Address           string    `json:"address"`
	TokenType         string    `json:"token_type"`
	ClaimLimit        string    `json:"claim_limit"`
	CumulativeClaimed string    `json:"cumulative_claimed"`
	WindowStartedAt   time.Time `json:"window_started_at"`
	Active            bool      `json:"active"`
}

type LedgerRecord struct {
	User     string `json:"user"`
	Currency string `json:"currency"`
	Total    string `json:"total"`
}

type FeeRecord struct {
	ProtocolFeeRate   uint64 `json:"protocol_fee_rate"`
	ClientFeeRate     uint64 `json:"client_fee_rate"`
	AttributorFeeRate uint64 `json:"attributor_fee_rate"`
	NFTFeeAmount      string `json:"nft_fee_amount"`
	NFTFeeCurrency    string `json:"nft_fee_currency"`
	FeeCollector      string `json:"fee_collector"`
}

type TimingRecord struct {
	Cooldown string `json:"removal_cooldown"`
	Window   string `json:"removal_window"`
}

type RoleRecord struct {
	Role    string `json:"role"`
	Account string `json:"account"`
	Granted bool   `json:"granted"`
}

// EncodeChangeSet converts a change set into its JSON form.
func EncodeChangeSet(changes model.ChangeSet) ChangeRecord {
	record := ChangeRecord{
		Sequence:  changes.Sequence,
		Operation: changes.Operation,
		Caller:    changes.Caller.Hex(),
		Paused:    changes.Paused,
	}
	record.Currencies = lo.Map(changes.Currencies, func(e model.CurrencyEntry, _ int) CurrencyRecord {
		return CurrencyRecord{
			Address:           e.Address.Hex(),
			TokenType:         e.TokenType.String(),
			ClaimLimit:        decString(e.ClaimLimit),
			CumulativeClaimed: decString(e.CumulativeClaimed),
			WindowStartedAt:   e.WindowStartedAt.UTC(),
			Active:            e.Active,
		}
	})
	record.Ledger = lo.Map(changes.Ledger, func(e model.LedgerEntry, _ int) LedgerRecord {
		return LedgerRecord{User: e.User.Hex(), Currency: e.Currency.Hex(), Total: decString(e.Total)}
	})
	if changes.Fees != nil {
		record.Fees = &FeeRecord{
			ProtocolFeeRate:   changes.Fees.ProtocolFeeRate,
			ClientFeeRate:     changes.Fees.ClientFeeRate,
			AttributorFeeRate: changes.Fees.AttributorFeeRate,
			NFTFeeAmount:      decString(changes.Fees.NFTFeeAmount),
			NFTFeeCurrency:    changes.Fees.NFTFeeCurrency.Hex(),
			FeeCollector:      changes.Fees.FeeCollector.Hex(),
		}
	}
	if changes.Timing != nil {
		record.Timing = &TimingRecord{
			Cooldown: changes.Timing.Cooldown.String(),
			Window:   changes.Timing.Window.String(),
		}
	}
	if changes.Cooldown != nil {
		record.Cooldown = changes.Cooldown.String()
	}
	record.Roles = lo.Map(changes.Roles, func(g model.RoleGrant, _ int) RoleRecord {
		return RoleRecord{Role: g.Role.String(), Account: g.Account.Hex(), Granted: g.Granted}
	})
	return record
}

// Decode converts the JSON form back into a change set.
func (r ChangeRecord) Decode() (model.ChangeSet, error) {
	caller, err := ParseAddress(r.Caller)
	if err != nil {
		return model.ChangeSet{}, fmt.Errorf("caller: %w", err)
	}
	changes := model.ChangeSet{
		Sequence:  r.Sequence,
		Operation: r.Operation,
		Caller:    caller,
		Paused:    r.Paused,
	}

	for _, c := range r.Currencies {
		entry, err := c.decode()
		if err != nil {
			return model.ChangeSet{}, fmt.Errorf("currency %s: %w", c.Address, err)
		}
		changes.Currencies = append(changes.Currencies, entry)
	}
	for _, l := range r.Ledger {
		entry, err := l.decode()
		if err != nil {
			return model.ChangeSet{}, fmt.Errorf("ledger %s/%s: %w", l.User, l.Currency, err)
		}
		changes.Ledger = append(changes.Ledger, entry)
	}
	if r.Fees != nil {
		schedule, err := r.Fees.decode()
		if err != nil {
			return model.ChangeSet{}, fmt.Errorf("fees: %w", err)
		}
		changes.Fees = &schedule
	}
	if r.Timing != nil {
		cooldown, err := time.ParseDuration(r.Timing.Cooldown)
		if err != nil {
			return model.ChangeSet{}, fmt.Errorf("removal cooldown: %w", err)
		}
		window, err := time.ParseDuration(r.Timing.Window)
		if err != nil {
			return model.ChangeSet{}, fmt.Errorf("removal window: %w", err)
		}
		changes.Timing = &model.RemovalTiming{Cooldown: cooldown, Window: window}
	}
	if r.Cooldown != "" {
		cooldown, err := time.ParseDuration(r.Cooldown)
		if err != nil {
			return model.ChangeSet{}, fmt.Errorf("claim cooldown: %w", err)
		}
		changes.Cooldown = &cooldown
	}
	for _, g := range r.Roles {
		role, err := model.ParseRole(g.Role)
		if err != nil {
			return model.ChangeSet{}, err
		}
		account, err := ParseAddress(g.Account)
		if err != nil {
			return model.ChangeSet{}, fmt.Errorf("role account: %w", err)
		}
		changes.Roles = append(changes.Roles, model.RoleGrant{Role: role, Account: account, Granted: g.Granted})
	}
	return changes, nil
}

func (c CurrencyRecord) decode() (model.CurrencyEntry, error) {
	address, err := ParseAddress(c.Address)
	if err != nil {
		return model.CurrencyEntry{}, err
	}
	tokenType, err := model.ParseTokenType(c.TokenType)
	if err != nil {
		return model.CurrencyEntry{}, err
	}
	limit, err := ParseAmount(c.ClaimLimit)
	if err != nil {
		return model.CurrencyEntry{}, fmt.Errorf("claim limit: %w", err)
	}
	cumulative, err := ParseAmount(c.CumulativeClaimed)
	if err != nil {
		return model.CurrencyEntry{}, fmt.Errorf("cumulative claimed: %w", err)
	}
	return model.CurrencyEntry{
		Address:           address,
		TokenType:         tokenType,
		ClaimLimit:        limit,
		CumulativeClaimed: cumulative,
		WindowStartedAt:   c.WindowStartedAt.UTC(),
		Active:            c.Active,
	}, nil
}

func (l LedgerRecord) decode() (model.LedgerEntry, error) {
	user, err := ParseAddress(l.User)
	if err != nil {
		return model.LedgerEntry{}, err
	}
	currency, err := ParseAddress(l.Currency)
	if err != nil {
		return model.LedgerEntry{}, err
	}
	total, err := ParseAmount(l.Total)
	if err != nil {
		return model.LedgerEntry{}, err
	}
	return model.LedgerEntry{LedgerKey: model.LedgerKey{User: user, Currency: currency}, Total: total}, nil
}

func (f FeeRecord) decode() (model.FeeSchedule, error) {
	amount, err := ParseAmount(f.NFTFeeAmount)
	if err != nil {
		return model.FeeSchedule{}, fmt.Errorf("nft fee amount: %w", err)
	}
	nftCurrency, err := ParseAddress(f.NFTFeeCurrency)
	if err != nil {
		return model.FeeSchedule{}, fmt.Errorf("nft fee currency: %w", err)
	}
	collector, err := ParseAddress(f.FeeCollector)
	if err != nil {
		return model.FeeSchedule{}, fmt.Errorf("fee collector: %w", err)
	}
	return model.FeeSchedule{
		ProtocolFeeRate:   f.ProtocolFeeRate,
		ClientFeeRate:     f.ClientFeeRate,
		AttributorFeeRate: f.AttributorFeeRate,
		NFTFeeAmount:      amount,
		NFTFeeCurrency:    nftCurrency,
		FeeCollector:      collector,
	}, nil
}

// ParseAddress accepts a 0x-prefixed 20-byte hex address.
func ParseAddress(input string) (common.Address, error) {
	if !common.IsHexAddress(input) {
		return common.Address{}, fmt.Errorf("invalid address: %q", input)
	}
	return common.HexToAddress(input), nil
}

// ParseAmount parses a base-10 amount. The empty string is zero.
func ParseAmount(input string) (*uint256.Int, error) {
	if input == "" {
		return new(uint256.Int), nil
	}
	amount, err := uint256.FromDecimal(input)
	if err != nil {
		return nil, fmt.Errorf("invalid amount %q: %w", input, err)
	}
	return amount, nil
}

func decString(v *uint256.Int) string {
	if v == nil {
		return "0"
	}
	return v.Dec()
}
