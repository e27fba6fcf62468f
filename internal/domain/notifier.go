package domain

import "context"

// Notifier is one configured notification channel.
type Notifier interface {
	Send(ctx context.Context, message string) error
}
