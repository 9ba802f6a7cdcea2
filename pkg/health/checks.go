package health

import (
	"fmt"
	"time"
)

// NamingCheck probes the naming layer: the announcer must be running
// for the node to hold or resolve names.
func NamingCheck(isRunning func() bool, namesHeld func() int) CheckFunc {
	return func() Check {
		check := Check{
			Name:    "naming",
			Details: make(map[string]any),
		}

		running := isRunning()
		check.Details["names_held"] = namesHeld()

		if !running {
			check.Status = StatusUnhealthy
			check.Message = "Announcer not running"
		} else {
			check.Status = StatusHealthy
			check.Message = "Announcer running"
		}

		return check
	}
}

// PollerCheck probes discovery freshness. A poller that has not
// completed a cycle within the window is degraded, not unhealthy:
// already-connected peers keep working without discovery.
func PollerCheck(lastSuccess func() time.Time, window time.Duration) CheckFunc {
	return func() Check {
		check := Check{
			Name:    "discovery",
			Details: make(map[string]any),
		}

		last := lastSuccess()
		if last.IsZero() {
			check.Status = StatusDegraded
			check.Message = "No successful discovery cycle yet"
			return check
		}

		age := time.Since(last)
		check.Details["last_success_age_ms"] = age.Milliseconds()

		if age > window {
			check.Status = StatusDegraded
			check.Message = fmt.Sprintf("Last discovery cycle %s ago", age.Round(time.Second))
		} else {
			check.Status = StatusHealthy
			check.Message = "Discovery current"
		}

		return check
	}
}

// PeersCheck probes cluster connectivity. A node with no peers is
// healthy in standalone mode; stale peers degrade it.
func PeersCheck(getPeerState func() (healthy, total int)) CheckFunc {
	return func() Check {
		check := Check{
			Name:    "peers",
			Details: make(map[string]any),
		}

		healthy, total := getPeerState()
		check.Details["healthy_peers"] = healthy
		check.Details["total_peers"] = total

		if total == 0 {
			check.Status = StatusHealthy
			check.Message = "Standalone mode"
		} else if healthy == 0 {
			check.Status = StatusUnhealthy
			check.Message = "All peers stale"
		} else if healthy < total {
			check.Status = StatusDegraded
			check.Message = "Some peers stale"
		} else {
			check.Status = StatusHealthy
			check.Message = "All peers healthy"
		}

		return check
	}
}

// ProxiesCheck reports the number of active proxies on the node.
func ProxiesCheck(activeProxies func() int) CheckFunc {
	return func() Check {
		return Check{
			Name:    "proxies",
			Status:  StatusHealthy,
			Message: "Proxy layer running",
			Details: map[string]any{"active_proxies": activeProxies()},
		}
	}
}
