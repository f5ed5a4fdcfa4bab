// Package metrics exposes Scene lifecycle events as Prometheus metrics.
package metrics

import (
	"context"
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/aretw0/keel/pkg/domain"
)

// Collector records node, component and solve events.
type Collector struct {
	registry       *prometheus.Registry
	nodesCreated   *prometheus.CounterVec
	nodesDeleted   *prometheus.CounterVec
	componentSyncs *prometheus.CounterVec
	componentNodes *prometheus.CounterVec
	solves         *prometheus.CounterVec
	solveDuration  prometheus.Histogram
}

// New creates a Collector registered on its own registry.
func New() *Collector {
	c := &Collector{
		registry: prometheus.NewRegistry(),
		nodesCreated: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "keel_nodes_created_total",
			Help: "Total number of nodes created, by kind",
		}, []string{"kind"}),
		nodesDeleted: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "keel_nodes_deleted_total",
			Help: "Total number of nodes deleted, by kind",
		}, []string{"kind"}),
		componentSyncs: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "keel_component_syncs_total",
			Help: "Component loads and re-synchronizations, by result",
		}, []string{"result"}),
		componentNodes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "keel_component_nodes_total",
			Help: "Nodes touched by component synchronization, by change",
		}, []string{"change"}),
		solves: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "keel_solves_total",
			Help: "Finished background solves, by outcome",
		}, []string{"outcome"}),
		solveDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "keel_solve_duration_seconds",
			Help:    "Duration of background solves",
			Buckets: prometheus.ExponentialBuckets(0.001, 4, 8),
		}),
	}
	c.registry.MustRegister(c.nodesCreated, c.nodesDeleted, c.componentSyncs, c.componentNodes,
		c.solves, c.solveDuration)
	return c
}

// Registry returns the registry the metrics live on.
func (c *Collector) Registry() *prometheus.Registry { return c.registry }

// Handler serves the metrics in the Prometheus exposition format.
func (c *Collector) Handler() http.Handler {
	return promhttp.HandlerFor(c.registry, promhttp.HandlerOpts{})
}

// Hooks returns lifecycle hooks feeding the Collector.
func (c *Collector) Hooks() domain.LifecycleHooks {
	return domain.LifecycleHooks{
		OnNodeCreated: func(_ context.Context, e *domain.NodeEvent) {
			c.nodesCreated.WithLabelValues(string(e.Kind)).Inc()
		},
		OnNodeDeleted: func(_ context.Context, e *domain.NodeEvent) {
			c.nodesDeleted.WithLabelValues(string(e.Kind)).Inc()
		},
		OnComponentSynced: func(_ context.Context, e *domain.ComponentEvent) {
			if e.Err != nil {
				c.componentSyncs.WithLabelValues("failed").Inc()
				return
			}
			c.componentSyncs.WithLabelValues("ok").Inc()
			c.componentNodes.WithLabelValues("created").Add(float64(e.Created))
			c.componentNodes.WithLabelValues("updated").Add(float64(e.Updated))
			c.componentNodes.WithLabelValues("deleted").Add(float64(e.Deleted))
		},
		OnSolveFinished: func(_ context.Context, e *domain.SolveEvent) {
			c.solves.WithLabelValues(outcome(e)).Inc()
			c.solveDuration.Observe(e.Duration.Seconds())
		},
	}
}

func outcome(e *domain.SolveEvent) string {
	switch {
	case e.Cancelled:
		return "cancelled"
	case e.Err != nil:
		return "failed"
	case e.Converged:
		return "converged"
	}
	return "diverged"
}

// Chain combines hooks so each event reaches every non-nil callback in order.
func Chain(hooks ...domain.LifecycleHooks) domain.LifecycleHooks {
	var out domain.LifecycleHooks
	for _, h := range hooks {
		out.OnNodeCreated = chain(out.OnNodeCreated, h.OnNodeCreated)
		out.OnNodeDeleted = chain(out.OnNodeDeleted, h.OnNodeDeleted)
		out.OnComponentSynced = chain(out.OnComponentSynced, h.OnComponentSynced)
		out.OnSolveFinished = chain(out.OnSolveFinished, h.OnSolveFinished)
	}
	return out
}

func chain[E any](a, b func(context.Context, E)) func(context.Context, E) {
	if a == nil {
		return b
	}
	if b == nil {
		return a
	}
	return func(ctx context.Context, e E) {
		a(ctx, e)
		b(ctx, e)
	}
}
