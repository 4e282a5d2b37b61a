package services

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	fundingEventsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "treasury_funding_events_total",
			Help: "Total number of detected funding events",
		},
		[]string{"token"},
	)

	balanceCheckErrorsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "treasury_balance_check_errors_total",
			Help: "Total number of failed per-token balance checks",
		},
		[]string{"token"},
	)

	pollCyclesTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "treasury_poll_cycles_total",
			Help: "Total number of completed funding poll cycles",
		},
	)

	tradesExecutedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "treasury_trades_executed_total",
			Help: "Total number of executed trades",
		},
		[]string{"direction"},
	)

	guardrailBlockedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "treasury_guardrail_blocked_total",
			Help: "Total number of signals blocked by a guardrail rule",
		},
		[]string{"rule"},
	)

	conversionFailuresTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "treasury_conversion_failures_total",
			Help: "Total number of failed auto-conversions after a detected deposit",
		},
	)
)
