package core

import (
	"context"
	"log/slog"
	"strings"

	"github.com/joseph-ayodele/caseflow/internal/common"
)

// CaseRef identifies a located case.
type CaseRef struct {
	InternalID       string
	CaseNumber       string
	OwnerDisplayName string
}

type Locator struct {
	svc    CaseService
	logger *slog.Logger
}

func NewLocator(svc CaseService, logger *slog.Logger) *Locator {
	if logger == nil {
		logger = slog.Default()
	}
	return &Locator{svc: svc, logger: logger}
}

// Locate finds the case with caseNumber currently owned by oldOwnerID. The raw
// search response is returned for the audit snapshot, also when nothing matched.
func (l *Locator) Locate(ctx context.Context, caseNumber, oldOwnerID string) (*CaseRef, []byte, error) {
	list, err := l.svc.SearchCasesByNumber(ctx, caseNumber)
	if err != nil {
		return nil, nil, err
	}

	for i := range list.Cases {
		c := &list.Cases[i]
		if !c.Caseworker.MatchesRacfID(oldOwnerID) {
			continue
		}
		if !strings.EqualFold(c.CaseNumber(), caseNumber) {
			continue
		}
		return &CaseRef{
			InternalID:       c.UUID(),
			CaseNumber:       c.CaseNumber(),
			OwnerDisplayName: c.Caseworker.FullName(),
		}, list.Raw, nil
	}

	l.logger.Info("locator.case.not_found",
		"case_number", caseNumber,
		"old_owner_id", oldOwnerID,
		"candidates", len(list.Cases),
	)
	return nil, list.Raw, common.NotFoundf("case %s owned by %s", caseNumber, oldOwnerID)
}
