/*
Copyright IBM Corp. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package notary

import (
	"context"
	"sync"

	"github.com/hyperledger-labs/token-issuance-sdk/token/driver"
	"github.com/hyperledger-labs/token-issuance-sdk/token/services/metrics"
	"github.com/hyperledger-labs/token-issuance-sdk/token/services/utils/cache"
	"github.com/hyperledger-labs/token-issuance-sdk/token/token"
	"github.com/pkg/errors"
	"golang.org/x/sync/singleflight"
)

// ErrConflict signals that a transaction consumes a record another finalized transaction already consumed
var ErrConflict = errors.New("conflict")

// ErrUnknownInput signals that a transaction consumes a record no finalized transaction created
var ErrUnknownInput = errors.New("unknown input")

type Opts struct {
	Receipts cache.Cache[*driver.Receipt]
	Metrics  metrics.Provider
}

type Opt func(*Opts) error

func CompileOpts(opts ...Opt) (*Opts, error) {
	o := &Opts{}
	for _, opt := range opts {
		if err := opt(o); err != nil {
			return nil, err
		}
	}
	return o, nil
}

// WithReceiptCache sets the cache of finalized receipts
func WithReceiptCache(c cache.Cache[*driver.Receipt]) Opt {
	return func(o *Opts) error {
		o.Receipts = c
		return nil
	}
}

func WithMetrics(p metrics.Provider) Opt {
	return func(o *Opts) error {
		o.Metrics = p
		return nil
	}
}

// Notary is the ordering authority.
// It finalizes transactions addressed to it, making sure that no record is consumed twice,
// and attests finality by signing the signed transaction.
type Notary struct {
	identity  token.Identity
	signer    driver.Signer
	vp        driver.VerifierProvider
	validator driver.Validator
	ledger    driver.Ledger
	receipts  cache.Cache[*driver.Receipt]
	metrics   *Metrics

	inflight singleflight.Group
	inputs   *keyedMutex

	rejectionsLock sync.RWMutex
	rejections     map[string]string
}

// New returns a notary with the passed identity.
// signer signs attestations, vp verifies the signatures carried by submitted transactions.
func New(identity token.Identity, signer driver.Signer, vp driver.VerifierProvider, validator driver.Validator, ledger driver.Ledger, opts ...Opt) (*Notary, error) {
	options, err := CompileOpts(opts...)
	if err != nil {
		return nil, errors.Wrap(err, "failed compiling options")
	}
	if options.Receipts == nil {
		options.Receipts, err = cache.NewDefaultRistretto[*driver.Receipt]()
		if err != nil {
			return nil, errors.Wrap(err, "failed creating receipt cache")
		}
	}
	if options.Metrics == nil {
		options.Metrics = metrics.NewDisabledProvider()
	}
	return &Notary{
		identity:   identity,
		signer:     signer,
		vp:         vp,
		validator:  validator,
		ledger:     ledger,
		receipts:   options.Receipts,
		metrics:    NewMetrics(options.Metrics),
		inputs:     newKeyedMutex(),
		rejections: map[string]string{},
	}, nil
}

// Identity returns the identity of this notary
func (n *Notary) Identity() token.Identity {
	return n.identity
}

// Submit finalizes the passed transaction and returns its receipt.
// Submitting a finalized transaction again returns the stored receipt.
func (n *Notary) Submit(ctx context.Context, stx *driver.SignedTransaction) (*driver.Receipt, error) {
	if stx == nil || stx.Transaction == nil {
		return nil, errors.New("invalid transaction: nil")
	}
	txID := stx.ID()
	logger.Debugf("received transaction [%s] with [%d] signatures", txID, len(stx.Signatures))

	res, err, shared := n.inflight.Do(txID, func() (interface{}, error) {
		receipt, found, err := n.receipts.GetOrLoad(txID, func() (*driver.Receipt, bool, error) {
			r, err := n.ledger.GetReceipt(ctx, txID)
			return r, r != nil, err
		})
		if err != nil {
			return nil, errors.WithMessagef(err, "failed checking transaction [%s]", txID)
		}
		if receipt != nil {
			logger.Debugf("transaction [%s] already finalized, cached [%v]", txID, found)
			n.metrics.DuplicateSubmissions.Add(1)
			return receipt, nil
		}
		return n.finalize(ctx, stx)
	})
	if shared {
		logger.Debugf("submission of [%s] coalesced with a concurrent one", txID)
	}
	if err != nil {
		return nil, err
	}
	return res.(*driver.Receipt), nil
}

func (n *Notary) finalize(ctx context.Context, stx *driver.SignedTransaction) (*driver.Receipt, error) {
	tx := stx.Transaction
	if !tx.Notary.Equal(n.identity) {
		return nil, n.reject(tx.ID, reasonWrongNotary, errors.Errorf("addressed to notary [%s]", tx.Notary))
	}
	if err := n.validator.Verify(ctx, tx); err != nil {
		return nil, n.reject(tx.ID, reasonInvalid, err)
	}
	if err := n.validator.VerifySignatures(ctx, stx, n.vp); err != nil {
		return nil, n.reject(tx.ID, reasonSignatures, err)
	}

	keys := make([]string, len(tx.Inputs))
	for i, input := range tx.Inputs {
		keys[i] = input.String()
	}
	unlock := n.inputs.Lock(keys...)
	defer unlock()

	for _, input := range tx.Inputs {
		if _, err := n.ledger.Lookup(ctx, input); err != nil {
			if errors.Is(err, driver.ErrRecordNotFound) {
				return nil, n.reject(tx.ID, reasonUnknownInput, errors.Wrapf(ErrUnknownInput, "[%s]", input))
			}
			return nil, errors.WithMessagef(err, "failed looking up [%s]", input)
		}
		consumed, err := n.ledger.IsConsumed(ctx, input)
		if err != nil {
			return nil, errors.WithMessagef(err, "failed checking [%s]", input)
		}
		if consumed {
			return nil, n.reject(tx.ID, reasonConflict, errors.Wrapf(ErrConflict, "input [%s] already consumed", input))
		}
	}

	signatures := append([]*driver.Signature(nil), stx.Signatures...)
	driver.SortSignatures(signatures)
	attested := &driver.SignedTransaction{Transaction: tx, Signatures: signatures}
	raw, err := attested.MarshalToAttest()
	if err != nil {
		return nil, errors.Wrapf(err, "failed marshalling [%s]", tx.ID)
	}
	sigma, err := n.signer.Sign(raw)
	if err != nil {
		return nil, errors.Wrapf(err, "failed attesting [%s]", tx.ID)
	}
	receipt := &driver.Receipt{
		Transaction: attested,
		Attestation: &driver.Attestation{Notary: n.identity, Signature: sigma},
	}

	if err := n.ledger.RecordFinalized(ctx, receipt); err != nil {
		switch {
		case errors.Is(err, driver.ErrAlreadyRecorded):
			// another notary process sharing the storage won the race
			stored, getErr := n.ledger.GetReceipt(ctx, tx.ID)
			if getErr != nil || stored == nil {
				return nil, errors.WithMessagef(err, "failed loading receipt of [%s]", tx.ID)
			}
			n.receipts.Add(tx.ID, stored)
			return stored, nil
		case errors.Is(err, driver.ErrInputConsumed):
			return nil, n.reject(tx.ID, reasonConflict, errors.Wrapf(ErrConflict, "%s", err))
		default:
			return nil, errors.WithMessagef(err, "failed recording [%s]", tx.ID)
		}
	}
	n.receipts.Add(tx.ID, receipt)

	n.rejectionsLock.Lock()
	delete(n.rejections, tx.ID)
	n.rejectionsLock.Unlock()

	n.metrics.FinalizedTransactions.Add(1)
	logger.Infof("transaction [%s] finalized", tx.ID)
	return receipt, nil
}

func (n *Notary) reject(txID string, reason string, cause error) error {
	logger.Warnf("rejecting transaction [%s]: %s", txID, cause)
	n.rejectionsLock.Lock()
	n.rejections[txID] = cause.Error()
	n.rejectionsLock.Unlock()
	n.metrics.Rejections.With("reason", reason).Add(1)
	return &driver.RejectionError{TxID: txID, Reason: cause.Error(), Cause: cause}
}

// Status returns what the notary knows about the passed transaction
func (n *Notary) Status(ctx context.Context, txID string) (driver.FinalityStatus, *driver.Receipt, error) {
	if receipt, ok := n.receipts.Get(txID); ok {
		return driver.Finalized, receipt, nil
	}
	receipt, err := n.ledger.GetReceipt(ctx, txID)
	if err != nil {
		return driver.Unknown, nil, errors.WithMessagef(err, "failed getting status of [%s]", txID)
	}
	if receipt != nil {
		return driver.Finalized, receipt, nil
	}
	n.rejectionsLock.RLock()
	_, rejected := n.rejections[txID]
	n.rejectionsLock.RUnlock()
	if rejected {
		return driver.Rejected, nil, nil
	}
	return driver.Unknown, nil, nil
}

// Rejection returns the reason the passed transaction was refused, if any
func (n *Notary) Rejection(txID string) (string, bool) {
	n.rejectionsLock.RLock()
	defer n.rejectionsLock.RUnlock()
	reason, ok := n.rejections[txID]
	return reason, ok
}
