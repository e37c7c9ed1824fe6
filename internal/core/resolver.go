package core

import (
	"context"
	"log/slog"
)

// Resolver maps an owner id to the full caseworker identity. Lookups go through
// the session cache so each distinct id is resolved remotely at most once per run.
type Resolver struct {
	svc    CaseService
	cache  *IdentityCache
	logger *slog.Logger
}

func NewResolver(svc CaseService, cache *IdentityCache, logger *slog.Logger) *Resolver {
	if logger == nil {
		logger = slog.Default()
	}
	if cache == nil {
		cache = NewIdentityCache()
	}
	return &Resolver{svc: svc, cache: cache, logger: logger}
}

// Resolve returns the identity for ownerID, or nil when no case or task carries it.
// Remote errors are returned and not cached.
func (r *Resolver) Resolve(ctx context.Context, ownerID string) (*Identity, error) {
	if id, ok := r.cache.Lookup(ownerID); ok {
		r.logger.Debug("resolver.cache.hit", "owner_id", ownerID, "found", id != nil)
		return id, nil
	}

	id, err := r.resolveRemote(ctx, ownerID)
	if err != nil {
		return nil, err
	}
	r.cache.Store(ownerID, id)
	r.logger.Debug("resolver.resolved", "owner_id", ownerID, "found", id != nil)
	return id, nil
}

func (r *Resolver) resolveRemote(ctx context.Context, ownerID string) (*Identity, error) {
	cases, err := r.svc.SearchCasesByCaseworker(ctx, ownerID)
	if err != nil {
		return nil, err
	}
	for i := range cases.Cases {
		if cw := cases.Cases[i].Caseworker; cw.MatchesRacfID(ownerID) {
			return &Identity{Caseworker: *cw}, nil
		}
	}

	tasks, err := r.svc.SearchTasksByCaseworker(ctx, ownerID)
	if err != nil {
		return nil, err
	}
	for i := range tasks.TaskList {
		if cw := tasks.TaskList[i].Caseworker; cw.MatchesRacfID(ownerID) {
			return &Identity{Caseworker: *cw}, nil
		}
	}
	return nil, nil
}
