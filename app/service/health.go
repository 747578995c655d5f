package service

import "sort"

// CircuitBreaker is the read-only view the health check needs; the breaker
// wrapping biller calls lives outside this service.
type CircuitBreaker interface {
	IsOpen(command string) bool
}

type HealthStatus struct {
	Status       string
	OpenCircuits []string
}

// HealthChecker reports which biller commands currently have an open circuit.
// The biller-to-commands mapping is injected so deployments can differ in
// which billers they run.
type HealthChecker struct {
	breaker          CircuitBreaker
	commandsByBiller map[string][]string
}

func NewHealthChecker(breaker CircuitBreaker, commandsByBiller map[string][]string) *HealthChecker {
	if commandsByBiller == nil {
		commandsByBiller = map[string][]string{}
	}
	return &HealthChecker{breaker: breaker, commandsByBiller: commandsByBiller}
}

func (h *HealthChecker) Check() HealthStatus {
	open := make([]string, 0)
	if h.breaker != nil {
		for _, commands := range h.commandsByBiller {
			for _, command := range commands {
				if h.breaker.IsOpen(command) {
					open = append(open, command)
				}
			}
		}
	}
	sort.Strings(open)

	status := "ok"
	if len(open) > 0 {
		status = "degraded"
	}
	return HealthStatus{Status: status, OpenCircuits: open}
}
