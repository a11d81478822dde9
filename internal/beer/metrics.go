package beer

import (
	"context"
	"errors"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const (
	opCreate = "create"
	opUpdate = "update"
	opDelete = "delete"
	opPatch  = "patch"

	outcomeOK       = "ok"
	outcomeNotFound = "not_found"
	outcomeError    = "error"
)

type Metrics struct {
	Mutations *prometheus.CounterVec
}

// NewMetrics registers the beer mutation counter and a gauge reporting the
// number of records currently held by store.
func NewMetrics(reg prometheus.Registerer, store Store) *Metrics {
	m := &Metrics{
		Mutations: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "beer_mutations_total",
				Help: "Beer mutations by operation and outcome",
			},
			[]string{"op", "outcome"},
		),
	}

	records := prometheus.NewGaugeFunc(
		prometheus.GaugeOpts{
			Name: "beer_store_records",
			Help: "Beers currently in the store",
		},
		func() float64 {
			ctx, cancel := context.WithTimeout(context.Background(), time.Second)
			defer cancel()

			beers, err := store.List(ctx)
			if err != nil {
				return -1
			}
			return float64(len(beers))
		},
	)

	reg.MustRegister(m.Mutations, records)
	return m
}

func (m *Metrics) observe(op string, err error) {
	if m == nil {
		return
	}

	outcome := outcomeOK
	switch {
	case errors.Is(err, ErrNotFound):
		outcome = outcomeNotFound
	case err != nil:
		outcome = outcomeError
	}
	m.Mutations.WithLabelValues(op, outcome).Inc()
}
