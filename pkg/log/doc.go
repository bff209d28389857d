// Package log provides structured logging for STOQ using zerolog.
//
// It wraps a single global Logger with component/node/shard/txn child
// loggers so every subsystem (transport, consensus, bft, mvcc, shard,
// proxy) tags its lines consistently. Call Init once at process startup;
// every other call in the tree reads the package-level Logger.
package log
