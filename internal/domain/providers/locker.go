package providers

import "context"

// Locker serialises work on one key. Lock blocks until the key is held or ctx is done.
type Locker interface {
	Lock(ctx context.Context, key string) (unlock func(), err error)
}
