package service

import (
	"context"
	"errors"
	"time"

	"github.com/crewbase/crewbase/internal/repository"
	"github.com/crewbase/crewbase/internal/scm"
	"go.uber.org/zap"
)

var (
	ErrNotFound          = errors.New("not found")
	ErrAlreadyExists     = errors.New("already exists")
	ErrDuplicateApproval = errors.New("approver already voted")
	ErrHandoffInvalid    = errors.New("handoff code expired or already used")
	ErrInvalidAction     = errors.New("unsupported action")
)

// SCM is the slice of the source-control provider this layer uses. Webhook
// enrichment calls degrade gracefully on failure; the explicit refresh
// operations surface provider errors to the caller.
type SCM interface {
	RequiredApprovals(ctx context.Context, branch string) (int, error)
	GetPullRequest(ctx context.Context, number int64) (scm.PullRequestDetails, error)
	ListCheckRuns(ctx context.Context, sha string) ([]scm.CheckRun, error)
}

type Service struct {
	repo       *repository.Repository
	scm        SCM
	logger     *zap.Logger
	handoffTTL time.Duration
	now        func() time.Time
}

func New(repo *repository.Repository, scm SCM, logger *zap.Logger, handoffTTL time.Duration) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	if handoffTTL <= 0 {
		handoffTTL = time.Minute
	}
	return &Service{
		repo:       repo,
		scm:        scm,
		logger:     logger,
		handoffTTL: handoffTTL,
		now:        time.Now,
	}
}

func mapRepoError(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, repository.ErrNotFound):
		return ErrNotFound
	case errors.Is(err, repository.ErrAlreadyExists):
		return ErrAlreadyExists
	case errors.Is(err, repository.ErrDuplicateApproval):
		return ErrDuplicateApproval
	case errors.Is(err, repository.ErrHandoffNotFound):
		return ErrHandoffInvalid
	default:
		return err
	}
}
