// Package bft implements the cluster's Byzantine-fault detection
// overlay: three parallel detectors over a bounded per-node behavior
// sample window, a decaying reputation score, graduated isolation
// (Warning -> Limited -> Temporary -> Permanent) gated against network
// health, and an adaptive recovery-strategy selector. Detector
// satisfies pkg/consensus's Detector interface so the consensus engine
// can forward every inbound message here before acting on it.
package bft
