package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/shopspring/decimal"
)

const (
	DirectionDebit  = "debit"
	DirectionCredit = "credit"
)

// LedgerMetrics counts committed wallet movements and gateway notifications.
type LedgerMetrics struct {
	movements *prometheus.CounterVec
	volume    *prometheus.CounterVec
	webhooks  *prometheus.CounterVec
}

// NewLedgerMetrics registers the ledger metrics on the provided registerer.
func NewLedgerMetrics(reg prometheus.Registerer) *LedgerMetrics {
	if reg == nil {
		return &LedgerMetrics{}
	}
	movements := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "wallet_movements_total",
		Help: "Committed wallet movements by reason and direction.",
	}, []string{"reason", "direction"})
	volume := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "wallet_movement_amount_total",
		Help: "Sum of committed wallet movement amounts by direction.",
	}, []string{"direction"})
	webhooks := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "gateway_notifications_total",
		Help: "Payment gateway notifications by outcome.",
	}, []string{"outcome"})
	reg.MustRegister(movements, volume, webhooks)
	return &LedgerMetrics{
		movements: movements,
		volume:    volume,
		webhooks:  webhooks,
	}
}

// ObserveMovement records a committed debit or credit.
func (m *LedgerMetrics) ObserveMovement(reason, direction string, amount decimal.Decimal) {
	if m == nil || m.movements == nil {
		return
	}
	m.movements.WithLabelValues(normalizeLabel(reason), normalizeLabel(direction)).Inc()
	m.volume.WithLabelValues(normalizeLabel(direction)).Add(amount.Abs().InexactFloat64())
}

// ObserveNotification records how a gateway notification was handled.
func (m *LedgerMetrics) ObserveNotification(outcome string) {
	if m == nil || m.webhooks == nil {
		return
	}
	m.webhooks.WithLabelValues(normalizeLabel(outcome)).Inc()
}
