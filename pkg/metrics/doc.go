/*
Package metrics provides Prometheus metrics collection and exposition for the
Kari Muscle agent.

The package defines and registers every agent metric using the Prometheus client
library, exposing them via HTTP for scraping. Metrics cover the RPC façade
(request count and latency by method), the boundary server (peer rejections),
and the streaming deployment pipeline (in-flight count, terminal outcomes,
duration, and release-pruner deletions).

# Why a separate endpoint

Metrics are served over a loopback TCP address, not the Unix domain socket the
RPC façade listens on. The socket's peer-credential gate authenticates a single
expected uid; a metrics scrape is a different trust boundary with no equivalent
check, so it gets its own listener rather than sharing one.

# Usage

	metrics.RPCRequestsTotal.WithLabelValues("ManageService", "ok").Inc()

	timer := metrics.NewTimer()
	defer timer.ObserveDurationVec(metrics.RPCRequestDuration, "ManageService")
*/
package metrics
