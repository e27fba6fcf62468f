package domain

// NotifyCondition controls when a job's notification channels fire.
type NotifyCondition string

const (
	NotifyAlways      NotifyCondition = "ALWAYS"
	NotifySuccessOnly NotifyCondition = "SUCCESS_ONLY"
	NotifyFailureOnly NotifyCondition = "FAILURE_ONLY"
)

// Matches reports whether a terminal status satisfies the condition.
func (c NotifyCondition) Matches(status Status) bool {
	switch c {
	case NotifyAlways:
		return true
	case NotifySuccessOnly:
		return status == StatusSuccess
	case NotifyFailureOnly:
		return status == StatusFailed
	default:
		return false
	}
}

// Job is a durable backup configuration. It is read-only to the
// pipeline during a run.
type Job struct {
	ID                  string
	Name                string
	SourceID            string
	DestinationID       string
	EncryptionProfileID string
	Retention           *RetentionPolicy
	NotifyCondition     NotifyCondition
	ChannelIDs          []string
}
