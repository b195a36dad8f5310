package services

import (
	"context"
	"errors"
	"net/url"

	"github.com/google/uuid"
	"github.com/wI2L/jsondiff"

	"github.com/sennetconsortium/senotype-editor/modules/senotype/domain/aggregates/submission"
	"github.com/sennetconsortium/senotype-editor/modules/senotype/infrastructure/archive"
	"github.com/sennetconsortium/senotype-editor/pkg/composables"
	"github.com/sennetconsortium/senotype-editor/pkg/eventbus"
	"github.com/sennetconsortium/senotype-editor/pkg/metrics"
)

// SaveResult tells the client where to go after a save.
type SaveResult struct {
	ID       string `json:"id"`
	Redirect string `json:"redirect"`
}

func editURL(id string) string {
	return "/edit?" + url.Values{"selected_node_id": {id}}.Encode()
}

type SubmissionService struct {
	repo      submission.Repository
	senlib    *SenlibService
	archiver  *archive.Archiver
	publisher eventbus.EventBus
	metrics   *metrics.Editor
}

func NewSubmissionService(
	repo submission.Repository,
	senlib *SenlibService,
	archiver *archive.Archiver,
	publisher eventbus.EventBus,
	m *metrics.Editor,
) *SubmissionService {
	return &SubmissionService{
		repo:      repo,
		senlib:    senlib,
		archiver:  archiver,
		publisher: publisher,
		metrics:   m,
	}
}

// Submit stores a validated payload on behalf of identity.
func (s *SubmissionService) Submit(ctx context.Context, dto *submission.UpdateDTO, identity *composables.Identity) (SaveResult, error) {
	var (
		res SaveResult
		err error
	)
	switch dto.Action {
	case submission.ActionNewVersion:
		res, err = s.newVersion(ctx, dto, identity)
	default:
		res, err = s.update(ctx, dto, identity)
	}
	outcome := "ok"
	if err != nil {
		outcome = outcomeOf(err)
	}
	s.metrics.Submitted(dto.Action, outcome)
	return res, err
}

func outcomeOf(err error) string {
	switch {
	case errors.Is(err, submission.ErrNotAuthorized):
		return "forbidden"
	case errors.Is(err, submission.ErrPublished), errors.Is(err, submission.ErrOpenVersion):
		return "conflict"
	case errors.Is(err, submission.ErrNotFound):
		return "not_found"
	}
	return "error"
}

// update overwrites the submission in place. An ID that is not stored yet is
// a new senotype and is created for the signed-in submitter.
func (s *SubmissionService) update(ctx context.Context, dto *submission.UpdateDTO, identity *composables.Identity) (SaveResult, error) {
	email := identity.Email
	next := dto.ToSubmission(dto.SenotypeID)

	existing, err := s.repo.Get(ctx, dto.SenotypeID)
	switch {
	case errors.Is(err, submission.ErrNotFound):
		if !next.AuthorizedFor(email) {
			return SaveResult{}, submission.ErrNotAuthorized
		}
	case err != nil:
		return SaveResult{}, err
	default:
		if !existing.AuthorizedFor(email) {
			return SaveResult{}, submission.ErrNotAuthorized
		}
		if existing.Published() {
			return SaveResult{}, submission.ErrPublished
		}
		next.Senotype.Provenance = existing.Senotype.Provenance
		next.Submitter = existing.Submitter
		s.logDiff(ctx, existing, next)
	}

	if err := s.repo.Save(ctx, next); err != nil {
		return SaveResult{}, err
	}
	s.saved(ctx, submission.ActionUpdate, email, next)
	return SaveResult{ID: next.ID(), Redirect: editURL(next.ID())}, nil
}

// newVersion branches a successor off the latest version of the definition.
// Any unpublished version in the chain blocks it.
func (s *SubmissionService) newVersion(ctx context.Context, dto *submission.UpdateDTO, identity *composables.Identity) (SaveResult, error) {
	chain, err := s.senlib.Chain(ctx, dto.SenotypeID)
	if err != nil {
		return SaveResult{}, err
	}
	for _, v := range chain {
		if !v.Published() {
			return SaveResult{}, submission.ErrOpenVersion
		}
	}
	predecessor := chain[len(chain)-1]

	successor := dto.ToSubmission(uuid.NewString())
	successor.Senotype.DOI = ""
	successor.Senotype.Provenance = submission.Provenance{Predecessor: predecessor.ID()}
	if identity.Authenticated() {
		successor.Submitter = submission.Submitter{
			Name:  submission.Name{First: identity.FirstName, Last: identity.LastName},
			Email: identity.Email,
		}
	}
	predecessor.Senotype.Provenance.Successor = successor.ID()

	if err := s.repo.SaveVersion(ctx, predecessor, successor); err != nil {
		return SaveResult{}, err
	}
	s.logDiff(ctx, chain[len(chain)-1], successor)
	s.saved(ctx, submission.ActionNewVersion, identity.Email, successor)
	s.saved(ctx, submission.ActionUpdate, identity.Email, predecessor)
	return SaveResult{ID: successor.ID(), Redirect: editURL(successor.ID())}, nil
}

func (s *SubmissionService) logDiff(ctx context.Context, before, after submission.Submission) {
	patch, err := jsondiff.Compare(before, after)
	log := composables.UseLogger(ctx).WithField("senotype", after.ID())
	if err != nil {
		log.WithError(err).Warn("submission: diff failed")
		return
	}
	if len(patch) == 0 {
		log.Info("submission: no changes")
		return
	}
	log.WithField("patch", patch.String()).Info("submission: changed")
}

func (s *SubmissionService) saved(ctx context.Context, action, email string, sub submission.Submission) {
	if err := s.archiver.Archive(ctx, sub); err != nil {
		composables.UseLogger(ctx).WithError(err).WithField("senotype", sub.ID()).Warn("submission: archive failed")
	}
	if s.publisher == nil {
		return
	}
	if err := s.publisher.PublishE(submission.NewSavedEvent(action, email, sub)); err != nil && !errors.Is(err, eventbus.ErrNoSubscribers) {
		composables.UseLogger(ctx).WithError(err).WithField("senotype", sub.ID()).Warn("submission: notify failed")
	}
}
