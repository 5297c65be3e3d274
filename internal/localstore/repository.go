// Package localstore implements the on-device cache: a collection/value table
// in a local sqlite database. It is the sole data source while offline and a
// write-through backup while online.
package localstore

import "context"

// Repository is raw collection storage; values are opaque payloads.
type Repository interface {
	Get(ctx context.Context, collection string) ([]byte, error)
	Set(ctx context.Context, collection string, payload []byte) error
	Delete(ctx context.Context, collection string) error
	Clear(ctx context.Context) error
}
