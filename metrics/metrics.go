// Package metrics tracks engine-level statistics: live remote objects,
// in-flight subscriptions and how streams terminate.
package metrics

import (
	"sync"
)

var (
	stats Stats

	mx sync.RWMutex
)

// Stats is a snapshot of the engine's counters.
type Stats struct {
	LiveObjects         int
	ActiveSubscriptions int
	PartialResults      int64
	Completed           int64
	Cancelled           int64
	Failed              int64
}

func reset() {
	mx.Lock()
	stats = Stats{}
	mx.Unlock()
}

// ObjectAdded records a new live remote object.
func ObjectAdded() {
	mx.Lock()
	stats.LiveObjects++
	mx.Unlock()
}

// ObjectEvicted records removal of a remote object.
func ObjectEvicted() {
	mx.Lock()
	stats.LiveObjects--
	mx.Unlock()
}

// SubscriptionStarted records a new in-flight computation.
func SubscriptionStarted() {
	mx.Lock()
	stats.ActiveSubscriptions++
	mx.Unlock()
}

// PartialResultForwarded records one partial result sent to a client.
func PartialResultForwarded() {
	mx.Lock()
	stats.PartialResults++
	mx.Unlock()
}

// SubscriptionCompleted records a stream that ran to completion.
func SubscriptionCompleted() {
	subscriptionEnded(&stats.Completed)
}

// SubscriptionCancelled records a stream cut short by cancellation.
func SubscriptionCancelled() {
	subscriptionEnded(&stats.Cancelled)
}

// SubscriptionFailed records a stream terminated by an error.
func SubscriptionFailed() {
	subscriptionEnded(&stats.Failed)
}

func subscriptionEnded(counter *int64) {
	mx.Lock()
	stats.ActiveSubscriptions--
	*counter++
	mx.Unlock()
}

// GetStats returns a copy of the current counters.
func GetStats() Stats {
	mx.RLock()
	defer mx.RUnlock()
	return stats
}
