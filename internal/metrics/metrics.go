package metrics

import (
	"errors"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds the coordinator's prometheus collectors. A nil *Metrics is a no-op.
type Metrics struct {
	Calls              *prometheus.CounterVec
	ClaimedVolume      *prometheus.CounterVec
	WindowUtilization  *prometheus.GaugeVec
	AttributionRecords prometheus.Counter
}

// New builds the collectors and registers them on reg when it is non-nil.
// Collectors already registered on reg are reused.
func New(reg prometheus.Registerer) (*Metrics, error) {
	m := &Metrics{
		Calls: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "coordinator_calls_total",
			Help: "Coordinator calls by operation and result.",
		}, []string{"operation", "result"}),
		ClaimedVolume: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "coordinator_claimed_volume_total",
			Help: "Claimed amount per currency in base units.",
		}, []string{"currency"}),
		WindowUtilization: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "coordinator_claim_window_utilization",
			Help: "Share of the per-window claim limit consumed in the current window.",
		}, []string{"currency"}),
		AttributionRecords: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "coordinator_attribution_records_total",
			Help: "Attribution records forwarded to projects.",
		}),
	}
	if reg == nil {
		return m, nil
	}

	var err error
	if m.Calls, err = registerCounterVec(reg, m.Calls); err != nil {
		return nil, err
	}
	if m.ClaimedVolume, err = registerCounterVec(reg, m.ClaimedVolume); err != nil {
		return nil, err
	}
	if err := reg.Register(m.WindowUtilization); err != nil {
		var are prometheus.AlreadyRegisteredError
		if !errors.As(err, &are) {
			return nil, err
		}
		m.WindowUtilization = are.ExistingCollector.(*prometheus.GaugeVec)
	}
	if err := reg.Register(m.AttributionRecords); err != nil {
		var are prometheus.AlreadyRegisteredError
		if !errors.As(err, &are) {
			return nil, err
		}
		m.AttributionRecords = are.ExistingCollector.(prometheus.Counter)
	}
	return m, nil
}

func registerCounterVec(reg prometheus.Registerer, c *prometheus.CounterVec) (*prometheus.CounterVec, error) {
	if err := reg.Register(c); err != nil {
		var are prometheus.AlreadyRegisteredError
		if errors.As(err, &are) {
			return are.ExistingCollector.(*prometheus.CounterVec), nil
		}
		return nil, err
	}
	return c, nil
}

func (m *Metrics) ObserveCall(operation, result string) {
	if m == nil {
		return
	}
	m.Calls.WithLabelValues(operation, result).Inc()
}

func (m *Metrics) ObserveClaim(currency common.Address, amount, cumulative, limit *uint256.Int) {
	if m == nil {
		return
	}
	label := currency.Hex()
	m.ClaimedVolume.WithLabelValues(label).Add(toFloat(amount))
	if limit != nil && !limit.IsZero() {
		m.WindowUtilization.WithLabelValues(label).Set(toFloat(cumulative) / toFloat(limit))
	}
}

func (m *Metrics) ObserveAttribution(records int) {
	if m == nil {
		return
	}
	m.AttributionRecords.Add(float64(records))
}

func toFloat(v *uint256.Int) float64 {
	if v == nil {
		return 0
	}
	f, _ := new(big.Float).SetInt(v.ToBig()).Float64()
	return f
}
