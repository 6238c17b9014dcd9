// Package metrics defines the Prometheus collectors exposed on /metrics.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// HTTPRequestsTotal counts handled requests by route pattern and status.
	HTTPRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "edutestor_http_requests_total",
		Help: "HTTP requests by route and status code.",
	}, []string{"route", "status"})

	// HTTPRequestDuration observes request latency by route pattern.
	HTTPRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "edutestor_http_request_duration_seconds",
		Help:    "HTTP request latency by route.",
		Buckets: prometheus.DefBuckets,
	}, []string{"route"})

	// RegistrationsTotal counts registration attempts by result
	// (created, duplicate_email, invalid).
	RegistrationsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "edutestor_registrations_total",
		Help: "Registration attempts by result.",
	}, []string{"result"})

	// LoginsTotal counts login attempts by result (success, failure).
	LoginsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "edutestor_logins_total",
		Help: "Login attempts by result.",
	}, []string{"result"})

	// QuestionsCreatedTotal counts questions added by teachers.
	QuestionsCreatedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "edutestor_questions_created_total",
		Help: "Questions added by teachers.",
	})

	// AnswersTotal counts submitted answers by outcome (correct, incorrect).
	AnswersTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "edutestor_answers_total",
		Help: "Submitted answers by outcome.",
	}, []string{"outcome"})

	// AccountsDeletedTotal counts self-deleted accounts.
	AccountsDeletedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "edutestor_accounts_deleted_total",
		Help: "Accounts deleted by their owners.",
	})
)
