// Package metrics exposes run state to Prometheus.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/pthm-cable/evolab/sim"
)

const namespace = "evolab"

// Metrics holds the collectors of one run on a private registry, so several
// runs in one process never collide on the global default registry.
type Metrics struct {
	registry *prometheus.Registry

	tick         prometheus.Gauge
	generation   prometheus.Gauge
	population   prometheus.Gauge
	foodLeft     prometheus.Gauge
	speed        prometheus.Gauge
	fitness      *prometheus.GaugeVec
	allTimeBest  prometheus.Gauge
	generations  *prometheus.CounterVec
	births       prometheus.Counter
	deaths       prometheus.Counter
	foodEaten    prometheus.Counter
	sinkFailures prometheus.Counter
}

// New creates and registers the run collectors. Every series carries the run
// name as a constant label.
func New(run string) *Metrics {
	labels := prometheus.Labels{"run": run}
	gauge := func(name, help string) prometheus.Gauge {
		return prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace, Name: name, Help: help, ConstLabels: labels,
		})
	}
	counter := func(name, help string) prometheus.Counter {
		return prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace, Name: name, Help: help, ConstLabels: labels,
		})
	}

	m := &Metrics{
		registry:    prometheus.NewRegistry(),
		tick:        gauge("tick", "Ticks executed."),
		generation:  gauge("generation", "Current generation."),
		population:  gauge("population", "Live organisms."),
		foodLeft:    gauge("food_available", "Unconsumed food sources."),
		speed:       gauge("speed", "Simulation speed multiplier."),
		allTimeBest: gauge("all_time_best_fitness", "Fitness of the best organism seen in the run."),
		fitness: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace, Name: "fitness", Help: "Aggregated fitness of the current generation.", ConstLabels: labels,
		}, []string{"stat"}),
		generations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace, Name: "generations_total", Help: "Ended generations by turnover reason.", ConstLabels: labels,
		}, []string{"reason"}),
		births:       counter("births_total", "Organisms born through reproduction."),
		deaths:       counter("deaths_total", "Organisms that starved."),
		foodEaten:    counter("food_eaten_total", "Food sources consumed."),
		sinkFailures: counter("sink_failures_total", "Failed snapshot publications and recorder calls."),
	}

	m.registry.MustRegister(
		m.tick, m.generation, m.population, m.foodLeft, m.speed,
		m.fitness, m.allTimeBest, m.generations,
		m.births, m.deaths, m.foodEaten, m.sinkFailures,
	)
	return m
}

// Observe updates the collectors from a tick snapshot. Counters only move on
// the tick a generation ended, from that generation's totals.
func (m *Metrics) Observe(s *sim.Snapshot) {
	if m == nil || s == nil {
		return
	}

	m.tick.Set(float64(s.Tick))
	m.generation.Set(float64(s.Generation))
	m.population.Set(float64(len(s.Population)))
	m.speed.Set(s.Speed)

	left := 0
	for _, f := range s.Environment.FoodSources {
		if !f.Consumed {
			left++
		}
	}
	m.foodLeft.Set(float64(left))

	m.fitness.WithLabelValues("best").Set(s.Statistics.Best)
	m.fitness.WithLabelValues("average").Set(s.Statistics.Average)
	m.fitness.WithLabelValues("worst").Set(s.Statistics.Worst)
	if s.AllTimeBestOrganism != nil {
		m.allTimeBest.Set(s.AllTimeBestOrganism.Fitness)
	}

	if t := s.Turnover; t != nil {
		m.generations.WithLabelValues(t.Reason).Inc()
		m.births.Add(float64(t.Stats.Births))
		m.deaths.Add(float64(t.Stats.Deaths))
		m.foodEaten.Add(float64(t.Stats.FoodEaten))
	}
}

// RecordFailure counts a collaborator failure.
func (m *Metrics) RecordFailure() {
	if m == nil {
		return
	}
	m.sinkFailures.Inc()
}

// Registry returns the private registry.
func (m *Metrics) Registry() *prometheus.Registry { return m.registry }

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}
