package services

import (
	"context"
)

// HealthStatus represents the health status of a service
type HealthStatus string

const (
	HealthUnknown   HealthStatus = "Unknown"
	HealthHealthy   HealthStatus = "Healthy"
	HealthUnhealthy HealthStatus = "Unhealthy"
)

// Service is a running object-tier server, keyed by its profile.
// A Service only exists once its bring-up has succeeded.
type Service interface {
	// GetProfile returns the profile this service was started for.
	GetProfile() string

	// Shutdown stops the service gracefully. It may block while the service
	// unbinds or deregisters itself; implementations should honour ctx.
	Shutdown(ctx context.Context) error
}

// HealthChecker is an optional interface for services that can report their health
type HealthChecker interface {
	CheckHealth(ctx context.Context) (HealthStatus, error)
}

// Check returns the health of svc, or HealthUnknown when it does not
// implement HealthChecker.
func Check(ctx context.Context, svc Service) (HealthStatus, error) {
	checker, ok := svc.(HealthChecker)
	if !ok {
		return HealthUnknown, nil
	}
	return checker.CheckHealth(ctx)
}
