/*
Package observability binds the engine lifecycle hooks to logs and
Prometheus metrics.

Hooks from several sources are combined with Chain:

	metrics := observability.NewMetrics(prometheus.DefaultRegisterer)
	hooks := observability.Chain(metrics.Hooks(), observability.LogHooks(logger))
*/
package observability
