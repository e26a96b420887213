package state

import "context"

// SyncMeta is the sync engine's bookkeeping, persisted beside the state so
// an unconfirmed local edit survives a restart.
type SyncMeta struct {
	// Baseline is the fingerprint of the local snapshot last known to
	// match the remote document.
	Baseline Fingerprint `json:"baseline"`

	// Remote is the fingerprint of the last remote payload seen, used to
	// recognise echoes of an already-applied or already-pushed document.
	Remote Fingerprint `json:"remote"`

	// PendingPush is set while a failed push awaits retry.
	PendingPush bool `json:"pendingPush"`
}

// SyncMeta returns the persisted sync metadata, or the zero value.
func (s *State) SyncMeta(ctx context.Context) SyncMeta {
	return load(ctx, s.kv, KeySync, SyncMeta{})
}

// SaveSyncMeta persists m. It does not change the revision.
func (s *State) SaveSyncMeta(ctx context.Context, m SyncMeta) {
	save(ctx, s.kv, KeySync, m)
}
