package core

import (
	"context"
	"log/slog"
	"strings"
	"sync"
	"time"

	"golang.org/x/oauth2"

	"github.com/joseph-ayodele/caseflow/internal/nova"
)

// CaseService is the subset of the case service client the pipeline uses.
type CaseService interface {
	SearchCasesByNumber(ctx context.Context, caseNumber string) (*nova.CaseList, error)
	SearchCasesByCaseworker(ctx context.Context, racfID string) (*nova.CaseList, error)
	SearchTasksByCaseworker(ctx context.Context, racfID string) (*nova.TaskList, error)
	ListTasksByCase(ctx context.Context, caseUUID string) ([]nova.Task, error)
	UpdateTask(ctx context.Context, update map[string]any) (*nova.Response, error)
	UpdateCaseCaseworker(ctx context.Context, caseUUID string, ksp nova.KspIdentity) (*nova.Response, error)
	CreateTask(ctx context.Context, t nova.NewTask) (*nova.Response, error)
}

// Identity is a resolved caseworker.
type Identity struct {
	Caseworker nova.Caseworker
}

func (i *Identity) OwnerID() string     { return i.Caseworker.RacfID() }
func (i *Identity) DisplayName() string { return i.Caseworker.FullName() }

func (i *Identity) InternalUserID() string {
	if i.Caseworker.KspIdentity == nil {
		return ""
	}
	return i.Caseworker.KspIdentity.NovaUserID
}

func (i *Identity) OrgUnit() *nova.LosIdentity { return i.Caseworker.LosIdentity }

// Ksp returns the person identity forwarded into mutations.
func (i *Identity) Ksp() nova.KspIdentity {
	if i.Caseworker.KspIdentity == nil {
		return nova.KspIdentity{}
	}
	return *i.Caseworker.KspIdentity
}

// IdentityCache memoizes owner id resolutions for one run, including misses.
type IdentityCache struct {
	mu      sync.Mutex
	entries map[string]*Identity
}

func NewIdentityCache() *IdentityCache {
	return &IdentityCache{entries: map[string]*Identity{}}
}

// Lookup returns the cached identity (nil for a cached miss) and whether an entry exists.
func (c *IdentityCache) Lookup(ownerID string) (*Identity, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	id, ok := c.entries[strings.ToLower(ownerID)]
	return id, ok
}

func (c *IdentityCache) Store(ownerID string, id *Identity) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[strings.ToLower(ownerID)] = id
}

func (c *IdentityCache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}

// NoteSettings shapes the confirmation task created on each transferred case.
type NoteSettings struct {
	Title    string
	TaskType string
	Status   string
}

func (n NoteSettings) withDefaults() NoteSettings {
	if n.Title == "" {
		n.Title = "Sagsbehandlerskift"
	}
	if n.TaskType == "" {
		n.TaskType = "Notat"
	}
	if n.Status == "" {
		n.Status = "N"
	}
	return n
}

// Session holds everything scoped to one batch run: the case service, its
// token source and the identity cache.
type Session struct {
	Service CaseService
	Tokens  oauth2.TokenSource
	Cache   *IdentityCache
	Note    NoteSettings
	RunID   string
	Logger  *slog.Logger
	Now     func() time.Time
}

func NewSession(svc CaseService, tokens oauth2.TokenSource, note NoteSettings, runID string, logger *slog.Logger) *Session {
	if logger == nil {
		logger = slog.Default()
	}
	return &Session{
		Service: svc,
		Tokens:  tokens,
		Cache:   NewIdentityCache(),
		Note:    note.withDefaults(),
		RunID:   runID,
		Logger:  logger,
		Now:     time.Now,
	}
}

// Authenticate fetches a token up front. A session without a token source is a no-op.
func (s *Session) Authenticate() error {
	if s.Tokens == nil {
		return nil
	}
	_, err := nova.FetchToken(s.Tokens)
	return err
}
