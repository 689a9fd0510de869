// Package reconcile merges partial transaction updates into the canonical
// record of a tracked account. Submission results, live status pushes and
// historical backfill all funnel through Merge, so two updates for the same
// transaction id converge to one record no matter which arrives first.
package reconcile

import (
	"meshwallet/types"
)

// Merge produces the next transaction record from an existing (possibly nil)
// record and an incoming partial update. Incoming wins per-field, except
// status: a terminal status is never changed, and a lower-ranked incoming
// status never overwrites the stored one. Neither input is mutated.
func Merge(existing, incoming *types.TransactionRecord) *types.TransactionRecord {
	if existing == nil {
		merged := *incoming
		return &merged
	}

	merged := *existing

	if incoming.Principal != "" {
		merged.Principal = incoming.Principal
	}
	if incoming.Receiver != "" {
		merged.Receiver = incoming.Receiver
	}
	// template and method travel together on the wire
	if incoming.Template != "" {
		merged.Template = incoming.Template
		merged.Method = incoming.Method
	}
	if incoming.Layer != nil {
		layer := *incoming.Layer
		merged.Layer = &layer
	}
	if incoming.Nonce != 0 {
		merged.Nonce = incoming.Nonce
	}
	if incoming.Amount != nil {
		merged.Amount = incoming.Amount.Clone()
	}
	if incoming.GasPrice != 0 {
		merged.GasPrice = incoming.GasPrice
	}
	if incoming.MaxGas != 0 {
		merged.MaxGas = incoming.MaxGas
	}
	if incoming.Timestamp != 0 {
		merged.Timestamp = incoming.Timestamp
	}
	if incoming.Note != "" {
		merged.Note = incoming.Note
	}

	merged.Status = nextStatus(existing.Status, incoming.Status)
	merged.Receipt = mergeReceipts(existing.Receipt, incoming.Receipt)

	return &merged
}

// nextStatus keeps statuses monotonic: terminal statuses never change, and a
// push reporting a lower-ranked status than the stored one is ignored.
func nextStatus(existing, incoming types.TxStatus) types.TxStatus {
	if existing.IsTerminal() {
		return existing
	}
	if incoming.Rank() >= existing.Rank() {
		return incoming
	}
	return existing
}

// mergeReceipts merges additively: fields already learned are kept and only
// overwritten by non-nil incoming fields.
func mergeReceipts(existing, incoming *types.TxReceipt) *types.TxReceipt {
	if incoming == nil {
		return existing
	}
	if existing == nil {
		merged := *incoming
		return &merged
	}

	merged := *existing
	if incoming.Result != nil {
		merged.Result = incoming.Result
	}
	if incoming.GasUsed != nil {
		merged.GasUsed = incoming.GasUsed
	}
	if incoming.Fee != nil {
		merged.Fee = incoming.Fee
	}
	return &merged
}

// ValidPush reports whether a pushed transaction payload is usable. Records
// without an id, or without a layer when the source guarantees one
// (mesh-origin pushes), are malformed and get discarded by the caller.
func ValidPush(tx *types.TransactionRecord, requireLayer bool) bool {
	if tx == nil || tx.ID == "" {
		return false
	}
	if requireLayer && tx.Layer == nil {
		return false
	}
	return true
}
