package health

import "context"

// SearchPinger checks search capability reachability.
type SearchPinger interface {
	Ping(ctx context.Context) error
}

// ReasonerChecker checks reasoning-process availability.
type ReasonerChecker interface {
	HealthCheck(ctx context.Context) error
}
