package submission

import "context"

type Repository interface {
	All(ctx context.Context) ([]Submission, error)
	Get(ctx context.Context, id string) (Submission, error)
	Save(ctx context.Context, s Submission) error
	// SaveVersion writes the predecessor and its new successor atomically.
	SaveVersion(ctx context.Context, predecessor, successor Submission) error
}
