// Package metrics holds the Prometheus collectors exported on /metrics.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

var (
	BidsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "nexos",
		Name:      "bids_total",
		Help:      "Bid attempts by result.",
	}, []string{"result"})

	BidLatency = prometheus.NewHistogram(prometheus.HistogramOpts{
		Namespace: "nexos",
		Name:      "bid_duration_seconds",
		Help:      "Time spent placing a bid, lock wait included.",
		Buckets:   prometheus.DefBuckets,
	})

	SettlementsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "nexos",
		Name:      "settlements_total",
		Help:      "Auction settlements by outcome.",
	}, []string{"outcome"})

	LedgerEntriesTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "nexos",
		Name:      "ledger_entries_total",
		Help:      "Ledger entries written by kind.",
	}, []string{"kind"})

	OutboxSentTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "nexos",
		Name:      "outbox_sent_total",
		Help:      "Outbox relay attempts by result.",
	}, []string{"result"})

	LedgerAuditMismatches = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: "nexos",
		Name:      "ledger_audit_mismatches",
		Help:      "Accounts whose balance disagrees with their latest ledger entry in the last audit.",
	})
)

func init() {
	prometheus.MustRegister(
		BidsTotal,
		BidLatency,
		SettlementsTotal,
		LedgerEntriesTotal,
		OutboxSentTotal,
		LedgerAuditMismatches,
	)
}

// Result label values.
const (
	ResultOK     = "ok"
	ResultFailed = "failed"
)
