package monitoring

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

type DBMetrics struct {
	QueryDuration *prometheus.HistogramVec
}

type BusinessMetrics struct {
	InterviewTurnsTotal    *prometheus.CounterVec
	AgreementsTotal        *prometheus.CounterVec
	PaymentsTotal          *prometheus.CounterVec
	RemindersEligibleTotal *prometheus.CounterVec
	RemindersSentTotal     *prometheus.CounterVec
	ActiveInterviews       prometheus.Gauge
	InboundMessagesTotal   *prometheus.CounterVec
}

var (
	DB = DBMetrics{
		QueryDuration: promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "loan_agreement_db_query_duration_seconds",
				Help:    "Histogram of database query latencies.",
				Buckets: []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1},
			},
			[]string{"query_name", "status"},
		),
	}

	Business = BusinessMetrics{
		InterviewTurnsTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "loan_agreement_interview_turns_total",
				Help: "Interview replies processed, by step and outcome.",
			},
			[]string{"step", "outcome"},
		),
		AgreementsTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "loan_agreement_agreements_total",
				Help: "Agreement lifecycle events, by resulting status.",
			},
			[]string{"status"},
		),
		PaymentsTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "loan_agreement_payments_total",
				Help: "Installment payments recorded, by outcome.",
			},
			[]string{"status"},
		),
		RemindersEligibleTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "loan_agreement_reminders_eligible_total",
				Help: "Reminder jobs returned by eligibility queries, by kind.",
			},
			[]string{"kind"},
		),
		RemindersSentTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "loan_agreement_reminders_marked_sent_total",
				Help: "Reminder rows marked as sent, by kind.",
			},
			[]string{"kind"},
		),
		ActiveInterviews: promauto.NewGauge(
			prometheus.GaugeOpts{
				Name: "loan_agreement_active_interviews",
				Help: "Interviews currently held in the session store.",
			},
		),
		InboundMessagesTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "loan_agreement_inbound_messages_total",
				Help: "Chat messages consumed from the broker, by outcome.",
			},
			[]string{"outcome"},
		),
	}
)

func RecordDBQuery(queryName, status string, duration time.Duration) {
	DB.QueryDuration.WithLabelValues(queryName, status).Observe(duration.Seconds())
}

func RecordInterviewTurn(step int, outcome string) {
	Business.InterviewTurnsTotal.WithLabelValues(stepLabel(step), outcome).Inc()
}

func RecordAgreement(status string) {
	Business.AgreementsTotal.WithLabelValues(status).Inc()
}

func RecordPayment(status string) {
	Business.PaymentsTotal.WithLabelValues(status).Inc()
}

func RecordRemindersEligible(kind string, count int) {
	Business.RemindersEligibleTotal.WithLabelValues(kind).Add(float64(count))
}

func RecordReminderSent(kind string) {
	Business.RemindersSentTotal.WithLabelValues(kind).Inc()
}

func SetActiveInterviews(n int) {
	Business.ActiveInterviews.Set(float64(n))
}

func RecordInboundMessage(outcome string) {
	Business.InboundMessagesTotal.WithLabelValues(outcome).Inc()
}

func stepLabel(step int) string {
	labels := [...]string{"0", "1", "2", "3", "4", "5", "6", "7"}
	if step >= 0 && step < len(labels) {
		return labels[step]
	}
	return "unknown"
}
