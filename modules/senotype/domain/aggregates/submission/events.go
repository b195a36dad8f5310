package submission

import "time"

// SavedEvent is published after a submission is written.
type SavedEvent struct {
	ID          string     `json:"id"`
	Action      string     `json:"action"`
	Predecessor string     `json:"predecessor,omitempty"`
	Email       string     `json:"email"`
	At          time.Time  `json:"at"`
	Result      Submission `json:"-"`
}

func NewSavedEvent(action, email string, result Submission) *SavedEvent {
	return &SavedEvent{
		ID:          result.ID(),
		Action:      action,
		Predecessor: result.Senotype.Provenance.Predecessor,
		Email:       email,
		At:          time.Now().UTC(),
		Result:      result,
	}
}
