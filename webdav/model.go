package webdav

import (
	"time"

	"github.com/google/uuid"
)

const (
	LockScopeExclusive = "exclusive"
	LockScopeShared    = "shared"

	DepthZero     = "0"
	DepthOne      = "1"
	DepthInfinity = "infinity"

	lockTokenPrefix = "opaquelocktoken:"
	maxOwnerSize    = 8 * 1024
)

// Lock is a write lock held on a path.
type Lock struct {
	Token       string
	Path        string
	CreatedAt   time.Time
	Timeout     time.Duration
	Scope       string
	Depth       string
	Provisional bool
	Owner       string
	Username    string
}

func (l *Lock) ExpireAt() time.Time {
	return l.CreatedAt.Add(l.Timeout)
}

func (l *Lock) IsExpired(now time.Time) bool {
	return !now.Before(l.ExpireAt())
}

func (l *Lock) IsExclusive() bool {
	return l.Scope == LockScopeExclusive
}

func (l *Lock) IsDepthInfinity() bool {
	return l.Depth == DepthInfinity
}

// LockOptions describes a lock to be created on a resource.
type LockOptions struct {
	Scope       string
	Depth       string
	Timeout     time.Duration
	Owner       string
	Provisional bool
}

// NewLock builds a lock with a fresh opaquelocktoken for user on path.
func NewLock(path string, user IUser, opts *LockOptions) *Lock {
	return &Lock{
		Token:       lockTokenPrefix + uuid.NewString(),
		Path:        path,
		CreatedAt:   time.Now(),
		Timeout:     opts.Timeout,
		Scope:       opts.Scope,
		Depth:       opts.Depth,
		Provisional: opts.Provisional,
		Owner:       opts.Owner,
		Username:    user.GetUsername(),
	}
}

// Range is an inclusive byte range of a resource body.
type Range struct {
	Start int64
	End   int64
}

func (r *Range) Length() int64 {
	return r.End - r.Start + 1
}

const (
	PropActionSet    = "set"
	PropActionRemove = "remove"
)

// PropInstruction is one step of a PROPPATCH request.
type PropInstruction struct {
	Action string
	Name   string
	Value  string
}

// PropError reports why one property of an instruction batch failed.
type PropError struct {
	Name string
	Err  error
}
