package replay

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/holiman/uint256"
	"github.com/samber/lo"

	"attributionHub/internal/config"
	"attributionHub/internal/model"
	"attributionHub/internal/storage"
)

// Operation is one line of a replay input file.
type Operation struct {
	Op       string    `json:"op"`
	Caller   string    `json:"caller"`
	Time     Timestamp `json:"time"`
	Currency string    `json:"currency,omitempty"`
	Amount   string    `json:"amount,omitempty"`
	Rate     uint64    `json:"rate,omitempty"`
	Duration string    `json:"duration,omitempty"`
	Role     string    `json:"role,omitempty"`
	Account  string    `json:"account,omitempty"`

	FeeCollector string            `json:"fee_collector,omitempty"`
	Batch        []AttributionItem `json:"batch,omitempty"`
	Checks       []CheckItem       `json:"checks,omitempty"`
}

type AttributionItem struct {
	Project string   `json:"project"`
	Records []string `json:"records"`
}

type CheckItem struct {
	Project  string   `json:"project"`
	Currency string   `json:"currency"`
	UnitIDs  []string `json:"unit_ids"`
	Amounts  []string `json:"amounts"`
}

// Timestamp accepts unix seconds as a JSON number or string, or RFC3339.
type Timestamp struct {
	time.Time
}

func (t *Timestamp) UnmarshalJSON(data []byte) error {
	raw := string(bytes.Trim(bytes.TrimSpace(data), `"`))
	if raw == "" || raw == "null" {
		return fmt.Errorf("missing time")
	}
	parsed, err := config.ParseTimestamp(raw)
	if err != nil {
		return fmt.Errorf("time %q: %w", raw, err)
	}
	t.Time = parsed
	return nil
}

func (t Timestamp) MarshalJSON() ([]byte, error) {
	return json.Marshal(t.UTC().Format(time.RFC3339Nano))
}

func (o Operation) caller() (common.Address, error) {
	return config.ParseAddress(o.Caller)
}

func (o Operation) currency() (common.Address, error) {
	if strings.TrimSpace(o.Currency) == "" {
		return model.NativeCurrency, nil
	}
	return config.ParseAddress(o.Currency)
}

func (o Operation) account() (common.Address, error) {
	return config.ParseAddress(o.Account)
}

func (o Operation) amount() (*uint256.Int, error) {
	return storage.ParseAmount(strings.TrimSpace(o.Amount))
}

func (o Operation) duration() (time.Duration, error) {
	d, err := time.ParseDuration(strings.TrimSpace(o.Duration))
	if err != nil {
		return 0, fmt.Errorf("duration: %w", err)
	}
	return d, nil
}

func (o Operation) role() (model.Role, error) {
	return model.ParseRole(o.Role)
}

func (o Operation) attributions() ([]model.ProjectAttribution, error) {
	batch := make([]model.ProjectAttribution, 0, len(o.Batch))
	for i, item := range o.Batch {
		project, err := config.ParseAddress(item.Project)
		if err != nil {
			return nil, fmt.Errorf("batch item %d: %w", i, err)
		}
		records := make([][]byte, 0, len(item.Records))
		for _, raw := range item.Records {
			record, err := hexutil.Decode(raw)
			if err != nil {
				return nil, fmt.Errorf("batch item %d record %q: %w", i, raw, err)
			}
			records = append(records, record)
		}
		batch = append(batch, model.ProjectAttribution{Project: project, Records: records})
	}
	return batch, nil
}

func (o Operation) claimChecks() ([]model.ClaimCheck, error) {
	checks := make([]model.ClaimCheck, 0, len(o.Checks))
	for i, item := range o.Checks {
		project, err := config.ParseAddress(item.Project)
		if err != nil {
			return nil, fmt.Errorf("check %d project: %w", i, err)
		}
		currency := model.NativeCurrency
		if strings.TrimSpace(item.Currency) != "" {
			if currency, err = config.ParseAddress(item.Currency); err != nil {
				return nil, fmt.Errorf("check %d currency: %w", i, err)
			}
		}
		unitIDs, err := parseAmounts(item.UnitIDs)
		if err != nil {
			return nil, fmt.Errorf("check %d unit ids: %w", i, err)
		}
		amounts, err := parseAmounts(item.Amounts)
		if err != nil {
			return nil, fmt.Errorf("check %d amounts: %w", i, err)
		}
		checks = append(checks, model.ClaimCheck{Project: project, Currency: currency, UnitIDs: unitIDs, Amounts: amounts})
	}
	return checks, nil
}

func parseAmounts(inputs []string) ([]*uint256.Int, error) {
	var firstErr error
	out := lo.Map(inputs, func(input string, _ int) *uint256.Int {
		amount, err := storage.ParseAmount(strings.TrimSpace(input))
		if err != nil && firstErr == nil {
			firstErr = err
		}
		return amount
	})
	if firstErr != nil {
		return nil, firstErr
	}
	return out, nil
}
