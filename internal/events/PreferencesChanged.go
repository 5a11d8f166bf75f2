package events

var CandidatePreferencesChangedTopic = "CandidatePreferencesChangedEvent"

// CandidatePreferencesChanged is published after a preference update has been
// persisted. Text carries the candidate narrative plus the change description,
// ready to be re-embedded.
type CandidatePreferencesChanged struct {
	CandidateID   string
	Text          string
	UpdatedFields []string
}
