package webdav

import (
	"context"
)

type LockPermission int

const (
	// LockPermissionDenied: the resource itself carries a lock the requester does not hold.
	LockPermissionDenied LockPermission = 0
	// LockPermissionAncestorDenied: an ancestor lock not held by the requester covers the path.
	LockPermissionAncestorDenied LockPermission = 1
	LockPermissionGranted        LockPermission = 2
)

type LockCheck struct {
	Permission LockPermission
	Blockers   []*Lock
	// ParentOnly is set when every blocking lock is a depth 0 lock on the parent.
	ParentOnly bool
}

// AllowStructural reports whether members may be added, removed or renamed.
func (c *LockCheck) AllowStructural() bool {
	return c.Permission == LockPermissionGranted
}

// AllowContent reports whether the body or properties of an existing resource may change.
func (c *LockCheck) AllowContent() bool {
	if c.Permission == LockPermissionGranted {
		return true
	}
	return c.Permission == LockPermissionAncestorDenied && c.ParentOnly
}

func (rc *RequestContext) isLockHeld(l *Lock) bool {
	if rc.User == nil || l.Username != rc.User.GetUsername() {
		return false
	}
	for _, tk := range rc.SubmittedTokens() {
		if tk == l.Token {
			return true
		}
	}
	return false
}

// coveringLocks collects the locks applying to res: its own, the depth
// infinity locks of its ancestors and the depth 0 locks of its parent.
func (rc *RequestContext) coveringLocks(ctx context.Context, res IResource) ([]*Lock, []*Lock, error) {
	direct, err := res.GetLocks(ctx)
	if err != nil {
		return nil, nil, err
	}
	inherited := make([]*Lock, 0, 2)
	for idx, anc := range AncestorPaths(res.GetCanonicalPath()) {
		ar, err := rc.Adapter.NewCollection(ctx, rc.ResolveURL(anc, true), rc.BaseURL)
		if err != nil {
			return nil, nil, err
		}
		locks, err := ar.GetLocks(ctx)
		if err != nil {
			return nil, nil, err
		}
		for _, l := range locks {
			if l.IsDepthInfinity() || idx == 0 {
				inherited = append(inherited, l)
			}
		}
	}
	return direct, inherited, nil
}

// GetLockPermission computes how far the requester may modify res, the
// most restrictive applicable level wins.
func (rc *RequestContext) GetLockPermission(ctx context.Context, res IResource) (*LockCheck, error) {
	direct, inherited, err := rc.coveringLocks(ctx, res)
	if err != nil {
		return nil, err
	}
	chk := &LockCheck{Permission: LockPermissionGranted, ParentOnly: true}
	for _, l := range direct {
		if rc.isLockHeld(l) {
			continue
		}
		chk.Permission = LockPermissionDenied
		chk.ParentOnly = false
		chk.Blockers = append(chk.Blockers, l)
	}
	parent := ParentPath(res.GetCanonicalPath())
	for _, l := range inherited {
		if rc.isLockHeld(l) {
			continue
		}
		if chk.Permission > LockPermissionAncestorDenied {
			chk.Permission = LockPermissionAncestorDenied
		}
		if l.IsDepthInfinity() || l.Path != parent {
			chk.ParentOnly = false
		}
		chk.Blockers = append(chk.Blockers, l)
	}
	if chk.Permission == LockPermissionGranted {
		chk.ParentOnly = false
	}
	return chk, nil
}

func (rc *RequestContext) lockedError(chk *LockCheck) error {
	hrefs := make([]string, 0, len(chk.Blockers))
	seen := make(map[string]struct{}, len(chk.Blockers))
	for _, l := range chk.Blockers {
		if _, ok := seen[l.Path]; ok {
			continue
		}
		seen[l.Path] = struct{}{}
		hrefs = append(hrefs, rc.ResolveURL(l.Path, false).EscapedPath())
	}
	return NewConditionError(ErrLocked, "lock-token-submitted", hrefs...)
}

// checkStructural fails with ErrLocked unless members of res may change.
func (rc *RequestContext) checkStructural(ctx context.Context, res IResource) error {
	chk, err := rc.GetLockPermission(ctx, res)
	if err != nil {
		return err
	}
	if !chk.AllowStructural() {
		return rc.lockedError(chk)
	}
	return nil
}

// checkContent fails with ErrLocked unless the state of res may change.
func (rc *RequestContext) checkContent(ctx context.Context, res IResource) error {
	chk, err := rc.GetLockPermission(ctx, res)
	if err != nil {
		return err
	}
	if !chk.AllowContent() {
		return rc.lockedError(chk)
	}
	return nil
}

// hasLockToken reports whether token belongs to a lock covering res.
func (rc *RequestContext) hasLockToken(ctx context.Context, res IResource, token string) (bool, error) {
	direct, inherited, err := rc.coveringLocks(ctx, res)
	if err != nil {
		return false, err
	}
	for _, l := range direct {
		if l.Token == token {
			return true, nil
		}
	}
	for _, l := range inherited {
		if l.Token == token {
			return true, nil
		}
	}
	return false, nil
}

func locksConflict(scope string, existing *Lock) bool {
	return scope == LockScopeExclusive || existing.IsExclusive()
}

// findLockConflict returns a lock preventing a new lock of scope and depth on res.
func (rc *RequestContext) findLockConflict(ctx context.Context, res IResource, scope string, depth string) (*Lock, error) {
	direct, inherited, err := rc.coveringLocks(ctx, res)
	if err != nil {
		return nil, err
	}
	for _, l := range direct {
		if locksConflict(scope, l) {
			return l, nil
		}
	}
	for _, l := range inherited {
		if l.IsDepthInfinity() && locksConflict(scope, l) {
			return l, nil
		}
	}
	if depth != DepthInfinity || !res.IsCollection() {
		return nil, nil
	}
	return rc.findDescendantLockConflict(ctx, res, scope)
}

func (rc *RequestContext) findDescendantLockConflict(ctx context.Context, res IResource, scope string) (*Lock, error) {
	members, err := res.GetInternalMembers(ctx, rc.User)
	if err != nil {
		return nil, err
	}
	for _, m := range members {
		locks, err := m.GetLocks(ctx)
		if err != nil {
			return nil, err
		}
		for _, l := range locks {
			if locksConflict(scope, l) {
				return l, nil
			}
		}
		if !m.IsCollection() {
			continue
		}
		l, err := rc.findDescendantLockConflict(ctx, m, scope)
		if err != nil || l != nil {
			return l, err
		}
	}
	return nil, nil
}
