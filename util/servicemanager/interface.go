package servicemanager

import "context"

// Service is a long running component managed by the ServiceManager. Start must close
// or signal readyCh once the service accepts work and block until ctx is done.
type Service interface {
	Init(ctx context.Context) error
	Start(ctx context.Context, readyCh chan<- struct{}) error
	Stop(ctx context.Context) error
	Health(ctx context.Context, checkLiveness bool) (int, string, error)
}
