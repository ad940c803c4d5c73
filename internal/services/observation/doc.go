// Package observation captures practice observations into the pending queue.
//
// Capture assigns missing ids and timestamps, projects the cleartext
// Metadata, validates it and then either encrypts the observation (when the
// identity's keys are available) or queues it raw for the sync engine to
// seal later. Invalid observations are rejected before anything is queued.
//
// The Service also implements the sealing hooks the sync engine calls for
// raw entries and for multi-recipient envelopes still waiting on a viewer
// key.
package observation
