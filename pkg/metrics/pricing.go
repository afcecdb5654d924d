package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// PricingMetrics tracks the work done by the price recalculation engine.
type PricingMetrics struct {
	variations *prometheus.CounterVec
	cartItems  prometheus.Counter
	duration   *prometheus.HistogramVec
}

// NewPricingMetrics registers the pricing metrics on the provided registerer.
func NewPricingMetrics(reg prometheus.Registerer) *PricingMetrics {
	if reg == nil {
		return &PricingMetrics{}
	}
	variations := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "pricing_variations_repriced_total",
		Help: "Variations whose discount price was recomputed.",
	}, []string{"trigger"})
	cartItems := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "pricing_cart_items_synced_total",
		Help: "Cart lines rewritten after a variation was repriced.",
	})
	duration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "pricing_recalculation_seconds",
		Help:    "Duration of a discount recalculation pass.",
		Buckets: prometheus.DefBuckets,
	}, []string{"trigger"})
	reg.MustRegister(variations, cartItems, duration)
	return &PricingMetrics{
		variations: variations,
		cartItems:  cartItems,
		duration:   duration,
	}
}

// ObserveRecalculation records one recalculation pass.
func (p *PricingMetrics) ObserveRecalculation(trigger string, variations, cartItems int, took time.Duration) {
	if p == nil || p.variations == nil {
		return
	}
	label := normalizeLabel(trigger)
	p.variations.WithLabelValues(label).Add(float64(variations))
	p.cartItems.Add(float64(cartItems))
	p.duration.WithLabelValues(label).Observe(took.Seconds())
}
