package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	PayoutsSubmitted = promauto.NewCounter(prometheus.CounterOpts{
		Name: "payouts_submitted_total",
		Help: "Payout submissions accepted for review.",
	})

	PayoutsDecided = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "payouts_decided_total",
		Help: "Payout review decisions by outcome.",
	}, []string{"decision"})

	ProofUploadsFailed = promauto.NewCounter(prometheus.CounterOpts{
		Name: "proof_uploads_failed_total",
		Help: "Proof image uploads that failed at the storage backend.",
	})
)
