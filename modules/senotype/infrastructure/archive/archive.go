package archive

import (
	"context"
	"encoding/json"
	"path"
	"strings"

	"github.com/go-faster/errors"

	"github.com/sennetconsortium/senotype-editor/modules/senotype/domain/aggregates/submission"
	"github.com/sennetconsortium/senotype-editor/pkg/configuration"
)

var ErrNotFound = errors.New("archive object not found")

// Store is a flat key/value object store.
type Store interface {
	Put(ctx context.Context, key string, body []byte) error
	Get(ctx context.Context, key string) ([]byte, error)
}

// Archiver mirrors saved submissions as JSON documents under a key prefix.
type Archiver struct {
	store  Store
	prefix string
}

func NewArchiver(store Store, prefix string) *Archiver {
	return &Archiver{store: store, prefix: strings.Trim(prefix, "/")}
}

// Open builds the archiver selected by opts. The "none" backend returns nil,
// which is a valid no-op archiver.
func Open(ctx context.Context, opts configuration.ArchiveOptions) (*Archiver, error) {
	switch opts.Backend {
	case "", "none":
		return nil, nil
	case "fs":
		s, err := NewFS(opts.Dir)
		if err != nil {
			return nil, err
		}
		return NewArchiver(s, opts.Prefix), nil
	case "s3":
		s, err := NewS3(ctx, S3Config{
			Bucket:          opts.Bucket,
			Region:          opts.Region,
			Endpoint:        opts.Endpoint,
			AccessKeyID:     opts.AccessKeyID,
			SecretAccessKey: opts.SecretAccessKey,
			PathStyle:       opts.PathStyle,
		})
		if err != nil {
			return nil, err
		}
		return NewArchiver(s, opts.Prefix), nil
	}
	return nil, errors.Errorf("unknown archive backend %q", opts.Backend)
}

func (a *Archiver) Key(id string) string {
	return path.Join(a.prefix, id+".json")
}

func (a *Archiver) Archive(ctx context.Context, s submission.Submission) error {
	if a == nil {
		return nil
	}
	if s.ID() == "" {
		return submission.ErrInvalidID
	}
	body, err := json.MarshalIndent(s, "", "  ")
	if err != nil {
		return errors.Wrap(err, "encode senotype")
	}
	return errors.Wrapf(a.store.Put(ctx, a.Key(s.ID()), body), "archive %s", s.ID())
}

func (a *Archiver) Load(ctx context.Context, id string) (submission.Submission, error) {
	if a == nil {
		return submission.Submission{}, ErrNotFound
	}
	body, err := a.store.Get(ctx, a.Key(id))
	if err != nil {
		return submission.Submission{}, err
	}
	var s submission.Submission
	if err := json.Unmarshal(body, &s); err != nil {
		return submission.Submission{}, errors.Wrapf(err, "decode archived %s", id)
	}
	return s, nil
}
