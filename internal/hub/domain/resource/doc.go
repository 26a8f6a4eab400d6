// Package resource models shared pools of currency and items and the
// approval-gated transactions that move them.
//
// A pool's quantity never goes negative. Requests against approval-gated
// pools wait for a game master ruling; the ruling can approve the full
// amount, grant a partial amount, or deny. A spend larger than what the pool
// holds is clamped to drain it rather than refused outright, except when the
// pool is already empty. Every transaction, decided or pending, stays in the
// ledger as an audit record.
package resource
