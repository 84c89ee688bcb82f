// Package health aggregates component availability for the health endpoint.
package health

import "context"

// Status is the aggregated health status.
type Status string

const (
	// Healthy indicates all components are operational.
	Healthy Status = "ok"
	// Degraded indicates search still works with reduced quality (an optional
	// provider is down).
	Degraded Status = "degraded"
	// Unhealthy indicates search cannot be answered at all.
	Unhealthy Status = "error"
)

// CheckResult is one component's health check outcome.
type CheckResult string

const (
	// CheckOK indicates a passing health check.
	CheckOK CheckResult = "ok"
	// CheckError indicates a failing health check.
	CheckError CheckResult = "error"
)

// Report aggregates health check results.
type Report struct {
	Status Status
	Checks map[string]CheckResult
}

// Service coordinates health checks. The search engine is the only hard
// dependency: without it no strategy can answer, while a down embedding
// provider still leaves the lexical path.
type Service struct {
	engine    EnginePinger
	embedding ProviderChecker
}

// New creates a Service. embedding can be nil.
func New(engine EnginePinger, embedding ProviderChecker) *Service {
	return &Service{engine: engine, embedding: embedding}
}

// Check runs health checks against all components.
func (s *Service) Check(ctx context.Context) Report {
	checks := make(map[string]CheckResult)
	status := Healthy

	if err := s.engine.Ping(ctx); err != nil {
		checks["search_engine"] = CheckError
		status = Unhealthy
	} else {
		checks["search_engine"] = CheckOK
	}

	if s.embedding != nil {
		if err := s.embedding.HealthCheck(ctx); err != nil {
			checks["embedding"] = CheckError
			if status == Healthy {
				status = Degraded
			}
		} else {
			checks["embedding"] = CheckOK
		}
	}

	return Report{Status: status, Checks: checks}
}
