package webdav

import (
	"bytes"
	"context"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"
)

// parseTimeout picks the first usable value of a Timeout header, bounded by maxTimeout.
func parseTimeout(v string, def time.Duration, maxTimeout time.Duration) time.Duration {
	for _, item := range strings.Split(v, ",") {
		item = strings.TrimSpace(item)
		if strings.EqualFold(item, "Infinite") {
			return maxTimeout
		}
		if len(item) < len("Second-") || !strings.EqualFold(item[:len("Second-")], "Second-") {
			continue
		}
		n, err := strconv.ParseInt(item[len("Second-"):], 10, 64)
		if err != nil || n <= 0 {
			continue
		}
		if n > int64(maxTimeout/time.Second) {
			return maxTimeout
		}
		return time.Duration(n) * time.Second
	}
	return def
}

// lockRoot returns the resource a lock was created on.
func (rc *RequestContext) lockRoot(ctx context.Context, res IResource, l *Lock) (IResource, error) {
	if l.Path == res.GetCanonicalPath() {
		return res, nil
	}
	return rc.Adapter.NewCollection(ctx, rc.ResolveURL(l.Path, true), rc.BaseURL)
}

func (rc *RequestContext) writeLockResponse(code int, locks []*Lock, withHeader bool) error {
	now := time.Now()
	doc := &lockPropXML{XMLNS: davNamespace}
	for _, l := range locks {
		doc.LockDiscovery.Locks = append(doc.LockDiscovery.Locks, rc.activeLockXML(l, now, true))
	}
	if withHeader && len(locks) == 1 {
		rc.Response.Header().Set("Lock-Token", "<"+locks[0].Token+">")
	}
	return writeXML(rc.Response, code, doc)
}

func (h *Handler) handleLock(rc *RequestContext) error {
	ctx := rc.Context()
	res, exists, err := rc.lookupResource(ctx, rc.Path, false)
	if err != nil {
		return err
	}
	depth, err := parseDepth(rc.Request.Header.Get("Depth"), DepthInfinity, DepthZero, DepthInfinity)
	if err != nil {
		return err
	}
	timeout := parseTimeout(rc.Request.Header.Get("Timeout"), h.c.defaultTimeout, h.c.maxTimeout)
	args := &HookArgs{Resource: res, Depth: depth}
	if err := rc.runHook(PhasePre, args); err != nil {
		return err
	}
	body, err := rc.readBody()
	if err != nil {
		return err
	}
	if len(bytes.TrimSpace(body)) == 0 {
		return h.refreshLock(rc, res, exists, timeout, args)
	}
	info, err := parseLockInfo(bytes.NewReader(body))
	if err != nil {
		return newBadXMLError(err)
	}
	if len(info.Owner) > maxOwnerSize {
		return fmt.Errorf("lock owner too large, size:%d, %w", len(info.Owner), ErrBadRequest)
	}
	if !exists {
		if _, err := rc.checkParent(ctx, rc.Path); err != nil {
			return err
		}
	}
	if err := rc.checkConditions(ctx, res); err != nil {
		return err
	}
	if !exists {
		if err := rc.checkStructural(ctx, res); err != nil {
			return err
		}
	}
	if err := rc.runHook(PhaseBefore, args); err != nil {
		return err
	}
	var lock *Lock
	err = rc.Adapter.Atomic(ctx, func(ctx context.Context) error {
		conflict, err := rc.findLockConflict(ctx, res, info.Scope, depth)
		if err != nil {
			return err
		}
		if conflict != nil {
			return NewConditionError(ErrLocked, "no-conflicting-lock", rc.ResolveURL(conflict.Path, false).EscapedPath())
		}
		provisional := !exists
		if exists {
			// a placeholder stays provisional until it receives content
			placeholder, err := rc.provisionalLocks(ctx, res)
			if err != nil {
				return err
			}
			provisional = len(placeholder) != 0
		} else if err := res.Create(ctx, rc.User); err != nil {
			return fmt.Errorf("create lock placeholder failed, err:%w", err)
		}
		lock, err = res.CreateLockForUser(ctx, rc.User, &LockOptions{
			Scope:       info.Scope,
			Depth:       depth,
			Timeout:     timeout,
			Owner:       info.Owner,
			Provisional: provisional,
		})
		return err
	})
	if err != nil {
		return err
	}
	code := http.StatusOK
	if !exists {
		code = http.StatusCreated
	}
	return rc.writeLockResponse(code, []*Lock{lock}, true)
}

func (h *Handler) refreshLock(rc *RequestContext, res IResource, exists bool, timeout time.Duration, args *HookArgs) error {
	ctx := rc.Context()
	if !exists {
		return ErrResourceNotFound
	}
	if len(rc.SubmittedTokens()) == 0 {
		return fmt.Errorf("no lock token submitted, %w", ErrBadRequest)
	}
	if err := rc.checkConditions(ctx, res); err != nil {
		return err
	}
	if err := rc.runHook(PhaseBefore, args); err != nil {
		return err
	}
	var refreshed []*Lock
	err := rc.Adapter.Atomic(ctx, func(ctx context.Context) error {
		locks, err := rc.resourceLocks(ctx, res)
		if err != nil {
			return err
		}
		now := time.Now()
		for _, l := range locks {
			if !rc.isLockHeld(l) {
				continue
			}
			root, err := rc.lockRoot(ctx, res, l)
			if err != nil {
				return err
			}
			l.CreatedAt = now
			l.Timeout = timeout
			if err := root.SaveLock(ctx, l); err != nil {
				return fmt.Errorf("refresh lock failed, token:%s, err:%w", l.Token, err)
			}
			refreshed = append(refreshed, l)
		}
		return nil
	})
	if err != nil {
		return err
	}
	if len(refreshed) == 0 {
		return NewConditionError(ErrPreconditionFailed, "lock-token-matches-request-uri")
	}
	return rc.writeLockResponse(http.StatusOK, refreshed, false)
}
