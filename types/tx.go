package types

import (
	"crypto/sha256"
	"encoding/hex"

	"github.com/holiman/uint256"
)

const (
	MethodSpawn = 0
	MethodSpend = 16
)

// TxReceipt carries execution results attached to a transaction once it has
// been applied. Fields are pointers so a partial receipt from one source can
// be merged additively with fields already learned from another.
type TxReceipt struct {
	Result  *TxStatus `json:"result,omitempty"`
	GasUsed *uint64   `json:"gas_used,omitempty"`
	Fee     *uint64   `json:"fee,omitempty"`
}

// TransactionRecord is the wallet-side view of one transaction, scoped to a
// single tracked account. A record is built up incrementally: the optimistic
// submission result, live status pushes and historical backfill all merge
// into the same record keyed by ID. Zero-valued fields on an incoming record
// mean "not reported by this source", except Status which always participates
// in the rank comparison.
type TransactionRecord struct {
	ID        string       `json:"id"`
	Principal string       `json:"principal"`
	Receiver  string       `json:"receiver,omitempty"`
	Template  string       `json:"template,omitempty"`
	Method    uint8        `json:"method"`
	Status    TxStatus     `json:"status"`
	Layer     *uint64      `json:"layer,omitempty"`
	Nonce     uint64       `json:"nonce"`
	Amount    *uint256.Int `json:"amount,omitempty"`
	GasPrice  uint64       `json:"gas_price,omitempty"`
	MaxGas    uint64       `json:"max_gas,omitempty"`
	Note      string       `json:"note,omitempty"`
	Timestamp uint64       `json:"timestamp,omitempty"`
	Receipt   *TxReceipt   `json:"receipt,omitempty"`
}

// TxID derives the hex transaction id for a raw signed payload.
func TxID(payload []byte) string {
	sum := sha256.Sum256(payload)
	return hex.EncodeToString(sum[:])
}
