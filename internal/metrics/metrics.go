// Package metrics exposes domain counters for the ledger engine.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	EntriesApplied = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "finledger",
			Name:      "ledger_entries_applied_total",
			Help:      "Ledger entries applied to bank accounts",
		},
		[]string{"direction", "cause"},
	)
	EntriesReversed = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "finledger",
			Name:      "ledger_entries_reversed_total",
			Help:      "Ledger entries reversed",
		},
		[]string{"cause"},
	)
	SchemaPayments = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "finledger",
			Name:      "schema_payments_total",
			Help:      "Investment schema payments applied or reversed",
		},
		[]string{"kind", "op"},
	)
	BudgetRecomputes = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: "finledger",
			Name:      "budget_recomputes_total",
			Help:      "Budget spent amounts refreshed on read",
		},
	)
	IntegrityDrift = promauto.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "finledger",
			Name:      "integrity_drift_accounts",
			Help:      "Accounts whose balance disagrees with their entry history at the last sweep",
		},
	)
	JobRuns = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "finledger",
			Name:      "job_runs_total",
			Help:      "Scheduled job runs by outcome",
		},
		[]string{"job", "outcome"},
	)
)
