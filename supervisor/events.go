package supervisor

import (
	"github.com/rgb-tools/iris-wallet-core/events"
)

// StartedEvent is published when the daemon process is up and its HTTP
// socket answers.
type StartedEvent struct{}

// Topic returns the supervisor topic.
func (StartedEvent) Topic() events.Topic {
	return events.TopicSupervisor
}

// TerminatedEvent is published when the daemon exits after a requested
// stop.
type TerminatedEvent struct{}

// Topic returns the supervisor topic.
func (TerminatedEvent) Topic() events.Topic {
	return events.TopicSupervisor
}

// ErrorEvent is published when the daemon cannot be started or exits
// unexpectedly.
type ErrorEvent struct {
	Code    int
	Message string
}

// Topic returns the supervisor topic.
func (ErrorEvent) Topic() events.Topic {
	return events.TopicSupervisor
}

// AlreadyRunningEvent is published when start is requested while the daemon
// is running.
type AlreadyRunningEvent struct{}

// Topic returns the supervisor topic.
func (AlreadyRunningEvent) Topic() events.Topic {
	return events.TopicSupervisor
}

// FinishedOnCloseEvent is published when the daemon exits within the close
// wait window after a requested stop.
type FinishedOnCloseEvent struct{}

// Topic returns the supervisor topic.
func (FinishedOnCloseEvent) Topic() events.Topic {
	return events.TopicSupervisor
}

// FinishedOnCloseErrorEvent is published when the daemon is still running
// after the close wait window.
type FinishedOnCloseErrorEvent struct{}

// Topic returns the supervisor topic.
func (FinishedOnCloseErrorEvent) Topic() events.Topic {
	return events.TopicSupervisor
}

// LoaderEvent asks the UI shell to show or hide its startup loader.
type LoaderEvent struct {
	Show bool
}

// Topic returns the supervisor topic.
func (LoaderEvent) Topic() events.Topic {
	return events.TopicSupervisor
}
