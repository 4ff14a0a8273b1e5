package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// OrdersProcessed tracks resolved orders per game
	OrdersProcessed = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "validator_orders_processed_total",
			Help: "Total number of orders resolved and confirmed",
		},
		[]string{"game"},
	)

	// OrdersFailed tracks per-order failures per game
	OrdersFailed = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "validator_orders_failed_total",
			Help: "Total number of orders that failed processing",
		},
		[]string{"game"},
	)

	// SecretsIssued tracks issued commitments
	SecretsIssued = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "validator_secrets_issued_total",
			Help: "Total number of secrets issued",
		},
	)

	// SecretsConsumed tracks redemptions by outcome (legitimate, substitute)
	SecretsConsumed = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "validator_secrets_consumed_total",
			Help: "Total number of secrets consumed",
		},
		[]string{"outcome"},
	)

	// SecretsDisposed tracks TTL disposals of unconsumed secrets
	SecretsDisposed = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "validator_secrets_disposed_total",
			Help: "Total number of unconsumed secrets disposed by TTL",
		},
	)

	// LockContention tracks rejected balance operations per wallet outcome
	LockContention = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "validator_account_lock_contention_total",
			Help: "Total number of balance operations rejected by a held lock",
		},
	)

	// EventsScraped tracks rows actually inserted per chain and event
	EventsScraped = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "validator_events_scraped_total",
			Help: "Total number of event rows inserted by the scraper",
		},
		[]string{"chain", "event"},
	)

	// ScrapeErrors tracks per-tick scrape failures
	ScrapeErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "validator_scrape_errors_total",
			Help: "Total number of scrape tick failures",
		},
		[]string{"chain", "event"},
	)

	// CursorBlock tracks the persisted blockSync position
	CursorBlock = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "validator_cursor_block",
			Help: "Last fully scraped block per chain and event",
		},
		[]string{"chain", "event"},
	)

	// ChainHead tracks the latest observed chain head
	ChainHead = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "validator_chain_head_block",
			Help: "Latest chain head observed by the poller",
		},
		[]string{"chain"},
	)
)
