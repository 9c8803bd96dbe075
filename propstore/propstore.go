package propstore

import (
	"context"
)

// IPropStore keeps dead properties by resource path. Values are raw inner
// XML keyed by encoded property name.
type IPropStore interface {
	GetProps(ctx context.Context, path string) (map[string]string, error)
	// Apply sets and removes properties of path in one step.
	Apply(ctx context.Context, path string, set map[string]string, remove []string) error
	// CopyProps replaces the properties of dst with those of src.
	CopyProps(ctx context.Context, src string, dst string) error
	MoveProps(ctx context.Context, src string, dst string) error
	DeleteProps(ctx context.Context, path string) error
}

func cloneProps(m map[string]string) map[string]string {
	rs := make(map[string]string, len(m))
	for k, v := range m {
		rs[k] = v
	}
	return rs
}
