package health

import "context"

// DBPinger checks database availability.
type DBPinger interface {
	Ping(ctx context.Context) error
}

// ProviderChecker checks model provider availability.
type ProviderChecker interface {
	HealthCheck(ctx context.Context) error
}

// CorpusChecker reports whether the corpus index is ready to serve retrieval.
type CorpusChecker interface {
	Ready(ctx context.Context) (bool, error)
}
