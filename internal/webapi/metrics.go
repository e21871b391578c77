package webapi

import (
	"errors"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"apex-portrait/internal/jobs"
	"apex-portrait/internal/pipeline"
)

type Metrics struct {
	generations *prometheus.CounterVec
	saves       *prometheus.CounterVec
	submissions *prometheus.CounterVec
	imports     *prometheus.CounterVec
}

func NewMetrics(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		generations: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: "apex",
			Name:      "generations_total",
			Help:      "Generation requests by result.",
		}, []string{"result"}),
		saves: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: "apex",
			Name:      "profile_saves_total",
			Help:      "Profile save attempts by result.",
		}, []string{"result"}),
		submissions: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: "apex",
			Name:      "job_submissions_total",
			Help:      "Job submissions by result.",
		}, []string{"result"}),
		imports: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: "apex",
			Name:      "profile_imports_total",
			Help:      "Profile imports by result.",
		}, []string{"result"}),
	}
}

func (m *Metrics) observe(out pipeline.Outcome) {
	if !out.Generated() {
		m.generations.WithLabelValues("invalid").Inc()
		return
	}
	m.generations.WithLabelValues("generated").Inc()

	if out.Save.Requested {
		if out.Save.Err != nil {
			m.saves.WithLabelValues("failed").Inc()
		} else {
			m.saves.WithLabelValues("saved").Inc()
		}
	}

	if out.Submit.Attempted {
		switch {
		case errors.Is(out.Submit.Err, jobs.ErrNoJobID):
			m.submissions.WithLabelValues("no_job").Inc()
		case out.Submit.Err != nil:
			m.submissions.WithLabelValues("error").Inc()
		default:
			m.submissions.WithLabelValues("submitted").Inc()
		}
	}
}
