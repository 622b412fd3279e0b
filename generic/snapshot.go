package generic

import "sync"

// =============================================================================
// SNAPSHOT - Running total of a wallet at a known sequence
// =============================================================================

// snapshotCache keeps the last folded Balance of each wallet. A read folds
// only the transactions newer than the snapshot's LastSeq, so it stays cheap
// on long-lived wallets.
//
// Snapshots are a read optimization:
//   - the ledger stays the source of truth
//   - an older snapshot never replaces a newer one
//   - appends through the engine invalidate the wallet's snapshot
//
// Reads inside a unit of work bypass the cache; they must see staged writes.
type snapshotCache struct {
	mu    sync.RWMutex
	byKey map[WalletID]Balance
}

func newSnapshotCache() *snapshotCache {
	return &snapshotCache{byKey: make(map[WalletID]Balance)}
}

func (c *snapshotCache) get(id WalletID) (Balance, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	b, ok := c.byKey[id]
	return b, ok
}

func (c *snapshotCache) put(b Balance) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if prev, ok := c.byKey[b.WalletID]; ok && prev.LastSeq > b.LastSeq {
		return
	}
	c.byKey[b.WalletID] = b
}

func (c *snapshotCache) invalidate(id WalletID) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.byKey, id)
}
