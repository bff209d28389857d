// Package bus is a small generic publish-subscribe primitive used to
// fan node-lifecycle events out to interested local consumers (the
// management API, the metrics collector, log sinks). It carries a
// single concrete Event type for the whole node, but the underlying
// Bus[T] is generic so other packages can stand up their own
// narrowly-typed channel if an Event-shaped envelope doesn't fit.
package bus
