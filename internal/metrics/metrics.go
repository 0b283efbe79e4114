// Package metrics exposes vault operations as Prometheus collectors.
package metrics

import (
	"errors"
	"net/http"

	"custody-vault/go-backend/internal/domains/vault/model"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "vault"

// Vault implements the vault Observer port on a private registry.
type Vault struct {
	registry   *prometheus.Registry
	operations *prometheus.CounterVec
	moved      *prometheus.CounterVec
	custody    *prometheus.GaugeVec
	rpc        *prometheus.HistogramVec
}

func New() *Vault {
	v := &Vault{
		registry: prometheus.NewRegistry(),
		operations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "operations_total",
			Help:      "Vault operations by kind and result.",
		}, []string{"kind", "result"}),
		moved: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "moved_amount_total",
			Help:      "Raw amount moved into or out of custody.",
		}, []string{"kind", "asset"}),
		custody: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "custody_balance",
			Help:      "Current custody balance per asset.",
		}, []string{"asset"}),
		rpc: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "rpc_duration_seconds",
			Help:      "JSON-RPC handling latency by method and outcome.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method", "outcome"}),
	}
	v.registry.MustRegister(
		v.operations,
		v.moved,
		v.custody,
		v.rpc,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return v
}

func (v *Vault) OperationCommitted(kind model.OperationKind, asset model.AssetType, amount model.Amount, custody model.Amount) {
	v.operations.WithLabelValues(string(kind), "ok").Inc()
	if asset == "" {
		return
	}
	v.custody.WithLabelValues(string(asset)).Set(float64(custody))
	if amount > 0 {
		v.moved.WithLabelValues(string(kind), string(asset)).Add(float64(amount))
	}
}

func (v *Vault) OperationFailed(kind model.OperationKind, err error) {
	v.operations.WithLabelValues(string(kind), failureResult(err)).Inc()
}

// SeedCustody publishes the custody balances of a freshly loaded state.
func (v *Vault) SeedCustody(slots []model.AssetSlot) {
	for _, slot := range slots {
		v.custody.WithLabelValues(string(slot.Asset)).Set(float64(slot.CustodyBalance))
	}
}

// ObserveRPC records one handled JSON-RPC call.
func (v *Vault) ObserveRPC(method, outcome string, seconds float64) {
	v.rpc.WithLabelValues(method, outcome).Observe(seconds)
}

func (v *Vault) Handler() http.Handler {
	return promhttp.HandlerFor(v.registry, promhttp.HandlerOpts{Registry: v.registry})
}

func failureResult(err error) string {
	switch {
	case errors.Is(err, model.ErrUnauthorized):
		return "unauthorized"
	case errors.Is(err, model.ErrVaultPaused):
		return "paused"
	case errors.Is(err, model.ErrInsufficientBalance), errors.Is(err, model.ErrInsufficientCustody):
		return "insufficient"
	case errors.Is(err, model.ErrTransferFailed):
		return "transfer_failed"
	case errors.Is(err, model.ErrOverflow):
		return "overflow"
	default:
		return "error"
	}
}
