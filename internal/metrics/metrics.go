package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Счётчики основных бизнес-операций. Регистрируются в default registry,
// отдаются через /metrics.
var (
	BookingsCreated = promauto.NewCounter(prometheus.CounterOpts{
		Name: "kidbook_bookings_created_total",
		Help: "Bookings successfully created",
	})

	BookingsCancelled = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "kidbook_bookings_cancelled_total",
		Help: "Bookings cancelled, labelled by who cancelled",
	}, []string{"by"})

	CreditsCharged = promauto.NewCounter(prometheus.CounterOpts{
		Name: "kidbook_credits_charged_total",
		Help: "Credits charged for bookings",
	})

	CreditsRefunded = promauto.NewCounter(prometheus.CounterOpts{
		Name: "kidbook_credits_refunded_total",
		Help: "Credits refunded on cancellations",
	})

	CreditsExpired = promauto.NewCounter(prometheus.CounterOpts{
		Name: "kidbook_credits_expired_total",
		Help: "Credits expired at period close",
	})

	WaitlistPromotions = promauto.NewCounter(prometheus.CounterOpts{
		Name: "kidbook_waitlist_promotions_total",
		Help: "Waitlist entries notified about a free spot",
	})

	WaitlistExpirations = promauto.NewCounter(prometheus.CounterOpts{
		Name: "kidbook_waitlist_expirations_total",
		Help: "Waitlist holds expired without conversion",
	})

	LedgerInconsistencies = promauto.NewCounter(prometheus.CounterOpts{
		Name: "kidbook_ledger_inconsistencies_total",
		Help: "Credit ledger replays that diverged from the cached balance",
	})
)
