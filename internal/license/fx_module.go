package license

import (
	"go.uber.org/fx"

	"github.com/cisearch/ingest/internal/metrics"
)

// FXModule wires the license gate into Fx. The validator defaults to nil
// (license assumed valid); deployments with a checkable license override
// it with fx.Replace.
var FXModule = fx.Module("license",
	fx.Provide(
		NewConfig,
		func(cfg Config) *Manager { return NewManager(cfg, nil) },
	),
	fx.Invoke(RegisterLicenseMetrics),
)

// RegisterLicenseMetrics exposes the gate's counters as Prometheus gauges,
// refreshed after every acquire and release.
func RegisterLicenseMetrics(m *Manager, mx *metrics.Metrics) {
	active := mx.CreateGauge("license_slots_active", "License slots currently held", nil)
	total := mx.CreateGauge("license_acquisitions_total", "Total successful license acquisitions", nil)
	waitMs := mx.CreateGauge("license_avg_wait_milliseconds", "Average wait for a license slot", nil)

	m.SetObserver(func(s Stats) {
		active.WithLabelValues().Set(float64(s.Active))
		total.WithLabelValues().Set(float64(s.Acquisitions))
		waitMs.WithLabelValues().Set(float64(s.AvgWait.Milliseconds()))
	})
}
