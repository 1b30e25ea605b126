package pool

import "go.uber.org/zap"

type Options struct {
	// Dialers is the ordered replica list. Order is failover priority:
	// Acquire tries index 0 first and walks down.
	Dialers []Dialer

	// MinConnections is how many idle connections Release keeps around.
	MinConnections int
	// MaxConnections is the max number of open connections.
	// 0 = unlimited
	MaxConnections int

	// RetryPasses is how many full passes over the replica list a single
	// Acquire may make before giving up. 0 means 1.
	RetryPasses int

	Logger *zap.Logger
}

func (T Options) logger() *zap.Logger {
	if T.Logger != nil {
		return T.Logger
	}
	return zap.NewNop()
}

func (T Options) passes() int {
	if T.RetryPasses < 1 {
		return 1
	}
	return T.RetryPasses
}
