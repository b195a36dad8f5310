package services

import (
	"context"
	"errors"
	"io"
	"strings"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/sennetconsortium/senotype-editor/modules/senotype/domain/aggregates/submission"
	"github.com/sennetconsortium/senotype-editor/modules/senotype/infrastructure/lookup"
	"github.com/sennetconsortium/senotype-editor/pkg/composables"
	"github.com/sennetconsortium/senotype-editor/pkg/editor"
)

var ErrSessionForbidden = errors.New("editor session belongs to another user")

// EditorService opens edit sessions and routes commands to them.
type EditorService struct {
	senlib    *SenlibService
	catalog   *Catalog
	fetcher   *lookup.HTTPFetcher
	entityURL string
	token     string
	sessions  *SessionStore
	log       logrus.FieldLogger
}

type EditorServiceOptions struct {
	Senlib   *SenlibService
	Catalog  *Catalog
	Fetcher  *lookup.HTTPFetcher
	Sessions *SessionStore
	// EntityURL receives the caller's token, or Token when the caller has none.
	EntityURL string
	Token     string
	Logger    logrus.FieldLogger
}

func NewEditorService(opts EditorServiceOptions) *EditorService {
	return &EditorService{
		senlib:    opts.Senlib,
		catalog:   opts.Catalog,
		fetcher:   opts.Fetcher,
		entityURL: opts.EntityURL,
		token:     opts.Token,
		sessions:  opts.Sessions,
		log:       opts.Logger,
	}
}

// FetcherFor returns the lookup fetcher carrying identity's token for the entity API.
func (s *EditorService) FetcherFor(identity *composables.Identity) *lookup.HTTPFetcher {
	token := s.token
	if identity != nil && identity.Token != "" {
		token = identity.Token
	}
	if token == "" {
		return s.fetcher
	}
	return s.fetcher.WithToken(token, s.entityURL)
}

func (s *EditorService) Catalog() *Catalog { return s.catalog }

type OpenParams struct {
	SelectedID string
	Identity   *composables.Identity
	Errors     []editor.FieldError
}

// Open builds a session for the node picked in the tree. The "new" node
// starts a fresh definition with a minted ID and the caller as submitter.
// A blank selection lands on the root, which shows an empty read-only form.
func (s *EditorService) Open(ctx context.Context, p OpenParams) (*Session, error) {
	identity := p.Identity
	if identity == nil {
		identity = &composables.Identity{}
	}
	selected := strings.TrimSpace(p.SelectedID)
	if selected == "" {
		selected = RootNodeID
	}

	tree, err := s.senlib.Tree(ctx, identity.Email, selected)
	if err != nil {
		return nil, err
	}
	vs, err := s.senlib.Valuesets(ctx)
	if err != nil {
		return nil, err
	}
	fetcher := s.FetcherFor(identity)
	resolver := NewDisplayResolver(s.catalog, fetcher, s.log)

	var (
		sub  submission.Submission
		node editor.NodeState
	)
	switch {
	case IsGroupNode(selected):
		node = editor.NodeState{}
	case selected == editor.NewNodeID:
		sub = submission.Submission{
			Senotype: submission.Senotype{ID: uuid.NewString()},
			Submitter: submission.Submitter{
				Name:  submission.Name{First: identity.FirstName, Last: identity.LastName},
				Email: identity.Email,
			},
		}
		node = editor.NodeState{Editable: true, Authorized: true}
	default:
		sub, err = s.senlib.Get(ctx, selected)
		if err != nil {
			return nil, err
		}
		node = editor.NodeState{
			Editable:   !sub.Published(),
			Authorized: sub.AuthorizedFor(identity.Email),
			Published:  sub.Published(),
		}
	}

	sessionID := uuid.NewString()
	ed := editor.New(editor.Config{
		SessionID:      sessionID,
		Tree:           tree,
		SelectedID:     selected,
		Node:           node,
		Controls:       s.catalog.Controls(FormValues(sub)),
		Lists:          resolver.Lists(ctx, sub, vs),
		Scalars:        s.catalog.Scalars(),
		ImportProfiles: s.catalog.ImportProfiles(),
		Fetcher:        fetcher,
		Errors:         p.Errors,
		Logger:         s.log,
	})
	sess := &Session{Editor: ed, Email: identity.Email, NodeID: selected}
	s.sessions.Put(sess)
	s.log.WithFields(logrus.Fields{"session": sessionID, "node": selected}).Info("editor: session opened")
	return sess, nil
}

// Session returns the live session id owned by identity. Sessions opened
// without an email are read-only snapshots that nobody can drive.
func (s *EditorService) Session(id string, identity *composables.Identity) (*Session, error) {
	sess, ok := s.sessions.Get(id)
	if !ok {
		return nil, ErrSessionNotFound
	}
	email := ""
	if identity != nil {
		email = strings.TrimSpace(identity.Email)
	}
	if sess.Email == "" || !strings.EqualFold(sess.Email, email) {
		return nil, ErrSessionForbidden
	}
	return sess, nil
}

// Apply runs cmd. A navigation ends the session; the client reloads the edit page.
func (s *EditorService) Apply(ctx context.Context, id string, identity *composables.Identity, cmd editor.Command) (*editor.Result, error) {
	sess, err := s.Session(id, identity)
	if err != nil {
		return nil, err
	}
	return s.apply(ctx, sess, cmd)
}

// ApplyVerified runs cmd on a session whose owner was checked when the
// channel carrying the command was opened.
func (s *EditorService) ApplyVerified(ctx context.Context, id string, cmd editor.Command) (*editor.Result, error) {
	sess, ok := s.sessions.Get(id)
	if !ok {
		return nil, ErrSessionNotFound
	}
	return s.apply(ctx, sess, cmd)
}

func (s *EditorService) apply(ctx context.Context, sess *Session, cmd editor.Command) (*editor.Result, error) {
	res, err := sess.Editor.Apply(ctx, cmd)
	if err != nil {
		return nil, err
	}
	if res.Navigation != nil {
		s.sessions.Delete(sess.Editor.ID())
	}
	return res, nil
}

func (s *EditorService) Import(ctx context.Context, id string, identity *composables.Identity, list, filename string, r io.Reader) (*editor.ImportReport, editor.State, error) {
	sess, err := s.Session(id, identity)
	if err != nil {
		return nil, editor.State{}, err
	}
	report, err := sess.Editor.Import(ctx, list, filename, r)
	if err != nil {
		return nil, editor.State{}, err
	}
	return report, sess.Editor.State(), nil
}

// ReportErrors shows server-side validation errors in a live session.
func (s *EditorService) ReportErrors(id string, identity *composables.Identity, errs []editor.FieldError) bool {
	sess, err := s.Session(id, identity)
	if err != nil {
		return false
	}
	sess.Editor.ReportErrors(errs)
	return true
}

func (s *EditorService) Close(id string) {
	s.sessions.Delete(id)
}
