package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"xcs/internal/lcs"
)

const namespace = "xcs"

// Collectors holds the learner's Prometheus instruments on a private
// registry. A nil *Collectors is valid and records nothing.
type Collectors struct {
	registry *prometheus.Registry

	problems        *prometheus.CounterVec
	correct         *prometheus.CounterVec
	events          *prometheus.CounterVec
	populationSize  *prometheus.GaugeVec
	numerositySum   *prometheus.GaugeVec
	performance     *prometheus.GaugeVec
	predictionError *prometheus.GaugeVec
	meanGenerality  *prometheus.GaugeVec
}

func New() *Collectors {
	reg := prometheus.NewRegistry()
	factory := promauto.With(reg)
	return &Collectors{
		registry: reg,
		problems: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "problems_total",
			Help:      "Problems presented to the learner.",
		}, []string{"problem", "mode"}),
		correct: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "correct_total",
			Help:      "Problems answered correctly.",
		}, []string{"problem", "mode"}),
		events: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "population_events_total",
			Help:      "Population events by kind: covered, deleted, ga_run, offspring, ga_subsumed, as_subsumed, merged.",
		}, []string{"problem", "event"}),
		populationSize: factory.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "population_macro_size",
			Help:      "Number of macro-classifiers in the population.",
		}, []string{"problem"}),
		numerositySum: factory.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "population_numerosity_sum",
			Help:      "Sum of classifier numerosities.",
		}, []string{"problem"}),
		performance: factory.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "exploit_performance",
			Help:      "Moving average of exploit correctness.",
		}, []string{"problem"}),
		predictionError: factory.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "exploit_prediction_error",
			Help:      "Moving average of absolute exploit prediction error.",
		}, []string{"problem"}),
		meanGenerality: factory.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "population_mean_generality",
			Help:      "Numerosity-weighted mean condition generality.",
		}, []string{"problem"}),
	}
}

func (c *Collectors) Registry() *prometheus.Registry {
	if c == nil {
		return nil
	}
	return c.registry
}

// Handler serves the private registry in the Prometheus exposition format.
func (c *Collectors) Handler() http.Handler {
	if c == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(c.registry, promhttp.HandlerOpts{})
}

func (c *Collectors) ObserveProblem(problem, mode string, correct bool) {
	if c == nil {
		return
	}
	c.problems.WithLabelValues(problem, mode).Inc()
	if correct {
		c.correct.WithLabelValues(problem, mode).Inc()
	}
}

// ObserveCounters adds the population events in delta.
func (c *Collectors) ObserveCounters(problem string, delta lcs.Counters) {
	if c == nil {
		return
	}
	for event, n := range map[string]int{
		"covered":     delta.Covered,
		"deleted":     delta.Deleted,
		"ga_run":      delta.GARuns,
		"offspring":   delta.Offspring,
		"ga_subsumed": delta.GASubsumed,
		"as_subsumed": delta.ASSubsumed,
		"merged":      delta.Merged,
	} {
		if n > 0 {
			c.events.WithLabelValues(problem, event).Add(float64(n))
		}
	}
}

func (c *Collectors) ObservePopulation(problem string, stats lcs.Stats) {
	if c == nil {
		return
	}
	c.populationSize.WithLabelValues(problem).Set(float64(stats.Size))
	c.numerositySum.WithLabelValues(problem).Set(float64(stats.NumerositySum))
	c.meanGenerality.WithLabelValues(problem).Set(stats.MeanGenerality)
}

func (c *Collectors) ObservePerformance(problem string, performance, predictionError float64) {
	if c == nil {
		return
	}
	c.performance.WithLabelValues(problem).Set(performance)
	c.predictionError.WithLabelValues(problem).Set(predictionError)
}
