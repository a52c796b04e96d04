package types

import (
	"context"
)

// Closer releases the resources held by a pipeline component; it is
// safe to be called more than once.
type Closer interface {
	Close(context.Context) error
}
