package wallet

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"time"

	"github.com/holiman/uint256"

	"meshwallet/errors"
	"meshwallet/jsonx"
	"meshwallet/logx"
	"meshwallet/stringutil"
	"meshwallet/types"
	"meshwallet/utils"
)

const walletTemplate = "wallet"

// txBody is the signed portion of a submitted transaction.
type txBody struct {
	Principal string `json:"principal"`
	Template  string `json:"template"`
	Method    uint8  `json:"method"`
	Receiver  string `json:"receiver,omitempty"`
	Amount    string `json:"amount,omitempty"`
	GasPrice  uint64 `json:"gas_price"`
	Nonce     uint64 `json:"nonce"`
	Timestamp uint64 `json:"timestamp"`
}

type signedTx struct {
	Body      txBody `json:"body"`
	Signature string `json:"signature"`
}

// PublishSelfSpawn submits the spawn transaction that initializes an
// account's template on the ledger.
func (m *Manager) PublishSelfSpawn(ctx context.Context, address string, gasPrice uint64) (*types.TransactionRecord, error) {
	return m.publish(ctx, address, txBody{
		Template: walletTemplate,
		Method:   types.MethodSpawn,
		GasPrice: gasPrice,
	})
}

// PublishSpend submits a spend of the given amount to a recipient.
func (m *Manager) PublishSpend(ctx context.Context, address, recipient string, amount *uint256.Int, gasPrice uint64) (*types.TransactionRecord, error) {
	return m.publish(ctx, address, txBody{
		Template: walletTemplate,
		Method:   types.MethodSpend,
		Receiver: recipient,
		Amount:   utils.Uint256ToString(amount),
		GasPrice: gasPrice,
	})
}

// publish signs and submits a transaction, then reconciles the optimistic
// record into the account's store so the UI reflects the pending spend before
// any confirmation arrives. A rejected submission, or a submission answered
// without a transaction id, returns an error and leaves the store untouched.
func (m *Manager) publish(ctx context.Context, address string, body txBody) (*types.TransactionRecord, error) {
	ta := m.lookup(address)
	if ta == nil {
		return nil, errors.NewError(errors.ErrCodeAccountNotTracked, errors.ErrMsgAccountNotTracked)
	}

	// the projected snapshot is written by stream and backfill goroutines
	// under the account lock
	ta.mu.Lock()
	nonce := ta.account.State.Projected.Nonce
	ta.mu.Unlock()

	body.Principal = address
	body.Nonce = nonce
	body.Timestamp = uint64(time.Now().Unix())

	payload, err := m.signPayload(ta, body)
	if err != nil {
		return nil, err
	}

	res, err := m.deps.Ledger.SubmitTransaction(ctx, payload)
	if err != nil {
		logx.Warn("WALLET", fmt.Sprintf("Submission for %s rejected: %v", stringutil.ShortenLog(address), err))
		return nil, errors.NewError(errors.ErrCodeSubmitRejected, errors.ErrMsgSubmitRejected)
	}
	if res == nil || res.ID == "" {
		return nil, errors.NewError(errors.ErrCodeMissingTxID, errors.ErrMsgMissingTxID)
	}

	status := res.Status
	if status == types.TxStatusUnspecified {
		status = types.TxStatusPending
	}

	optimistic := &types.TransactionRecord{
		ID:        res.ID,
		Principal: address,
		Receiver:  body.Receiver,
		Template:  body.Template,
		Method:    body.Method,
		Status:    status,
		Nonce:     body.Nonce,
		Amount:    utils.Uint256FromString(body.Amount),
		GasPrice:  body.GasPrice,
		Timestamp: body.Timestamp,
	}
	m.applyTx(ta, optimistic, false)

	logx.Info("WALLET", fmt.Sprintf("Submitted tx %s for %s (%s)", stringutil.ShortenLog(res.ID), stringutil.ShortenLog(address), status))

	// the projected snapshot changes immediately after a submission but the
	// node does not promise to push it
	m.refreshAccountData(ctx, ta)

	return optimistic, nil
}

func (m *Manager) signPayload(ta *trackedAccount, body txBody) ([]byte, error) {
	raw, err := jsonx.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal tx body: %w", err)
	}

	hash := sha256.Sum256(raw)
	sig := m.deps.Signer.Sign(hash[:], ta.keypair.SecretKey)

	payload, err := jsonx.Marshal(signedTx{
		Body:      body,
		Signature: hex.EncodeToString(sig),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal signed tx: %w", err)
	}
	return payload, nil
}

// UpdateTxNote attaches a local-only note to a transaction. No network
// interaction, but the merge/store path is the same one every other mutation
// takes, so persistence and notification stay uniform. Annotating an id the
// store has never seen creates a record holding just the note.
func (m *Manager) UpdateTxNote(address, txID, note string) error {
	ta := m.lookup(address)
	if ta == nil {
		return errors.NewError(errors.ErrCodeAccountNotTracked, errors.ErrMsgAccountNotTracked)
	}

	m.applyTx(ta, &types.TransactionRecord{ID: txID, Note: note}, false)
	return nil
}
