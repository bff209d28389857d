/*
Package health checks the liveness of proxied network destinations and
classifies each into a three-level state that pkg/proxy's forwarder
uses to pick where traffic goes.

Checks come in two kinds, both implementing the Checker interface:
HTTPChecker issues a request and classifies on status code, TCPChecker
dials and classifies on whether the connection succeeds. Either can
back a DestinationTracker, which runs its checker on an interval and
turns a raw pass/fail history into a State.

# Architecture

	┌─────────────────────────────────────────────┐
	│                Checker                       │
	│  Check(ctx) Result                           │
	│  Type() CheckType                            │
	└───────┬─────────────────────┬────────────────┘
	        ▼                     ▼
	┌──────────────┐       ┌──────────────┐
	│ HTTPChecker  │       │  TCPChecker  │
	└──────┬───────┘       └──────┬───────┘
	       ▼                      ▼
	  GET /health            dial host:port

A DestinationTracker wraps one Checker and one Config, runs the check
on Config.Interval, and folds each Result into a Status (consecutive
pass/fail counts). classify turns that Status into a State:

	0 consecutive failures            → Healthy
	1..Retries-1 consecutive failures → Degraded
	>= Retries consecutive failures   → Unhealthy

Degraded exists so a destination that just started failing isn't
dropped from rotation before Retries confirms it — pkg/proxy keeps
using a Degraded primary, and fails over to a backup only once the
primary reaches Unhealthy.

# Using a tracker

	checker := health.NewHTTPChecker("http://10.0.0.5:8080/health").
		WithStatusRange(200, 299).
		WithTimeout(3 * time.Second)

	tracker := health.NewDestinationTracker(checker, health.Config{
		Interval: 10 * time.Second,
		Timeout:  3 * time.Second,
		Retries:  3,
	})
	go tracker.Run(ctx)

	// elsewhere, when choosing a destination to forward to
	if tracker.State() != health.Unhealthy {
		// eligible
	}

Probe runs a single check immediately, bypassing the ticker — useful
in tests or before a forwarding decision that can't wait out the
current interval.
*/
package health
