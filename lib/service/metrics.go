package service

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	intentsCreated = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "portal_giav",
		Name:      "payment_intents_created_total",
		Help:      "Payment intents created, by mode.",
	}, []string{"mode"})

	callbacksReceived = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "portal_giav",
		Name:      "gateway_callbacks_total",
		Help:      "Gateway return and notify callbacks, by endpoint and outcome.",
	}, []string{"endpoint", "outcome"})

	signatureFallbacks = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "portal_giav",
		Name:      "signature_fallback_total",
		Help:      "Signatures that only verified against the stored order id.",
	})

	erpBridges = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "portal_giav",
		Name:      "erp_bridge_total",
		Help:      "Attempts to record a payment in GIAV, by result.",
	}, []string{"result"})

	reconcileRuns = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "portal_giav",
		Name:      "reconcile_runs_total",
		Help:      "Reconciliation runs, by outcome.",
	}, []string{"outcome"})

	eventsPublished = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "portal_giav",
		Name:      "payment_events_total",
		Help:      "Domain events handed to the publisher, by type and result.",
	}, []string{"type", "result"})
)
