package webdav

import (
	"context"
	"io"
	"net/http"
	"net/url"
	"time"
)

type IUser interface {
	GetUsername() string
	// IsDefaultUser reports whether the user is the unauthenticated fallback.
	IsDefaultUser() bool
}

type IAuthenticator interface {
	// Authenticate resolves the request user, failing with ErrUnauthorized.
	// It may set challenge headers on w.
	Authenticate(ctx context.Context, r *http.Request, w http.ResponseWriter) (IUser, error)
	CleanAuthentication(ctx context.Context, r *http.Request, user IUser) error
}

// IMethod runs a verb the core has no builtin handler for.
type IMethod interface {
	Run(rc *RequestContext) error
}

type MethodFunc func(rc *RequestContext) error

func (fn MethodFunc) Run(rc *RequestContext) error {
	return fn(rc)
}

type IAdapter interface {
	GetComplianceClasses(ctx context.Context, u *url.URL) ([]string, error)
	GetAllowedMethods(ctx context.Context, u *url.URL) ([]string, error)
	GetOptionsResponseCacheControl(ctx context.Context, u *url.URL) (string, error)
	IsAuthorized(ctx context.Context, u *url.URL, method string, user IUser) (bool, error)
	// GetResource fails with ErrResourceNotFound for missing paths and
	// ErrBadGateway for URLs outside base.
	GetResource(ctx context.Context, u *url.URL, base *url.URL) (IResource, error)
	// NewResource and NewCollection return references that are persisted by Create.
	NewResource(ctx context.Context, u *url.URL, base *url.URL) (IResource, error)
	NewCollection(ctx context.Context, u *url.URL, base *url.URL) (IResource, error)
	// GetMethod fails with ErrMethodNotSupported for excluded verbs and
	// ErrMethodNotImplemented for unknown ones.
	GetMethod(ctx context.Context, method string) (IMethod, error)
	// Atomic runs fn inside the lock table critical section.
	Atomic(ctx context.Context, fn func(ctx context.Context) error) error
}

type IResource interface {
	GetCanonicalName() string
	GetCanonicalPath() string
	GetCanonicalURL() string
	IsCollection() bool
	Exists(ctx context.Context) (bool, error)

	GetLocks(ctx context.Context) ([]*Lock, error)
	GetLocksByUser(ctx context.Context, user IUser) ([]*Lock, error)
	CreateLockForUser(ctx context.Context, user IUser, opts *LockOptions) (*Lock, error)
	SaveLock(ctx context.Context, lock *Lock) error
	DeleteLock(ctx context.Context, token string) error

	GetProperties(ctx context.Context) (IProperties, error)
	// GetStream opens the body, rng nil means the whole content.
	GetStream(ctx context.Context, rng *Range) (io.ReadCloser, error)
	SetStream(ctx context.Context, r io.Reader, user IUser, mediaType string) error

	Create(ctx context.Context, user IUser) error
	Delete(ctx context.Context, user IUser) error
	// Copy copies this resource alone, a collection becomes an empty
	// collection at dst. Dead properties follow.
	Copy(ctx context.Context, dst IResource, user IUser) error
	// Move renames a non collection resource to dst.
	Move(ctx context.Context, dst IResource, user IUser) error

	GetLength(ctx context.Context) (int64, error)
	GetEtag(ctx context.Context) (string, error)
	GetMediaType(ctx context.Context) (string, error)
	GetLastModified(ctx context.Context) (time.Time, error)
	GetInternalMembers(ctx context.Context, user IUser) ([]IResource, error)
}

// IProperties reads and writes property values as raw inner XML keyed by
// encoded name, see EncodePropName.
type IProperties interface {
	Get(ctx context.Context, name string) (string, error)
	GetByUser(ctx context.Context, name string, user IUser) (string, error)
	Set(ctx context.Context, name string, value string) error
	SetByUser(ctx context.Context, name string, value string, user IUser) error
	Remove(ctx context.Context, name string) error
	RemoveByUser(ctx context.Context, name string, user IUser) error
	// RunInstructions applies every instruction or none of them. A non empty
	// PropError list means nothing was applied.
	RunInstructions(ctx context.Context, ins []*PropInstruction) ([]*PropError, error)
	RunInstructionsByUser(ctx context.Context, ins []*PropInstruction, user IUser) ([]*PropError, error)
	GetAll(ctx context.Context) (map[string]string, error)
	GetAllByUser(ctx context.Context, user IUser) (map[string]string, error)
	List(ctx context.Context) ([]string, error)
	ListByUser(ctx context.Context, user IUser) ([]string, error)
	ListLive(ctx context.Context) ([]string, error)
	ListLiveByUser(ctx context.Context, user IUser) ([]string, error)
	ListDead(ctx context.Context) ([]string, error)
	ListDeadByUser(ctx context.Context, user IUser) ([]string, error)
}
