package generic

// =============================================================================
// BALANCE - Derived from the ledger, never stored
// =============================================================================

// Balance is the fold of a wallet's transactions at read time.
//
// There is no balance column anywhere: a Balance is computed by summing the
// signed amounts of every transaction on the wallet, so
//
//	Balance(w).Amount == Σ tx.Amount for tx in Transactions(w)
//
// holds by construction. Count and LastSeq let the read path resume a fold
// from a snapshot (see snapshot.go).
type Balance struct {
	WalletID WalletID
	Kind     WalletKind
	Amount   Amount
	Count    int   // number of transactions folded
	LastSeq  int64 // sequence of the newest folded transaction
}

// IsOverdrawn returns true if the wallet is below zero.
func (b Balance) IsOverdrawn() bool {
	return b.Amount.IsNegative()
}

// =============================================================================
// FOLD
// =============================================================================

// Fold sums transactions into a balance. Order does not affect the sum.
func Fold(txs []Transaction) Balance {
	return extend(Balance{}, txs)
}

// extend folds txs on top of b.
func extend(b Balance, txs []Transaction) Balance {
	for _, tx := range txs {
		if b.Count == 0 && b.Kind == "" {
			b.WalletID = tx.WalletID
			b.Kind = tx.WalletKind
			b.Amount = tx.Amount.Zero()
		}
		b.Amount = b.Amount.Add(tx.Amount)
		b.Count++
		if tx.Seq > b.LastSeq {
			b.LastSeq = tx.Seq
		}
	}
	return b
}
