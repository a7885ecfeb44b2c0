/*
Copyright IBM Corp. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package notary_test

import (
	"context"
	"sync"
	"sync/atomic"

	"github.com/hyperledger-labs/token-issuance-sdk/token/driver"
	"github.com/hyperledger-labs/token-issuance-sdk/token/services/identity"
	"github.com/hyperledger-labs/token-issuance-sdk/token/services/metrics"
	"github.com/hyperledger-labs/token-issuance-sdk/token/services/network/notary"
	"github.com/hyperledger-labs/token-issuance-sdk/token/services/storage/ledgerdb"
	"github.com/hyperledger-labs/token-issuance-sdk/token/services/ttx"
	"github.com/hyperledger-labs/token-issuance-sdk/token/token"
	"github.com/hyperledger-labs/token-issuance-sdk/token/validator"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

const transfer driver.CommandType = "Transfer"

// countingLedger counts writes and fails them on demand
type countingLedger struct {
	*ledgerdb.MemoryLedger
	writes  atomic.Int32
	failure error
}

func (l *countingLedger) RecordFinalized(ctx context.Context, receipt *driver.Receipt) error {
	l.writes.Add(1)
	if l.failure != nil {
		return l.failure
	}
	return l.MemoryLedger.RecordFinalized(ctx, receipt)
}

var _ = Describe("Notary", func() {
	var (
		ctx        context.Context
		sigService *identity.Service
		issuer     *identity.SigningIdentity
		owner      *identity.SigningIdentity
		notaryID   *identity.SigningIdentity
		ledger     *countingLedger
		registry   *prometheus.Registry
		n          *notary.Notary
	)

	newSigner := func(name string) *identity.SigningIdentity {
		id, err := identity.NewSigningIdentity(name, "")
		Expect(err).NotTo(HaveOccurred())
		Expect(sigService.RegisterSigningIdentity(id)).To(Succeed())
		return id
	}

	sign := func(tx *ttx.Transaction, signers ...*identity.SigningIdentity) *ttx.SignedTransaction {
		raw, err := tx.MarshalToSign()
		Expect(err).NotTo(HaveOccurred())
		stx := &ttx.SignedTransaction{Transaction: tx}
		for _, s := range signers {
			sigma, err := s.Signer.Sign(raw)
			Expect(err).NotTo(HaveOccurred())
			stx.Signatures = append(stx.Signatures, &ttx.Signature{Signer: s.Identity, Value: sigma})
		}
		return stx
	}

	issue := func(amount int64) *ttx.SignedTransaction {
		tx, err := ttx.NewBuilder().Build(ctx, issuer.Identity, owner.Identity, amount, notaryID.Identity)
		Expect(err).NotTo(HaveOccurred())
		return sign(tx, issuer, owner)
	}

	spend := func(nonce string, input token.ID) *ttx.SignedTransaction {
		tx, err := ttx.NewTransaction(
			nonce,
			[]token.ID{input},
			[]token.Record{token.NewRecord(issuer.Identity, issuer.Identity, 1)},
			driver.Command{Type: transfer, Signers: []token.Identity{owner.Identity}},
			notaryID.Identity,
		)
		Expect(err).NotTo(HaveOccurred())
		return sign(tx, owner)
	}

	BeforeEach(func() {
		ctx = context.Background()
		sigService = identity.NewService()
		issuer = newSigner("issuer")
		owner = newSigner("owner")
		notaryID = newSigner("notary")
		ledger = &countingLedger{MemoryLedger: ledgerdb.NewMemory()}
		registry = prometheus.NewRegistry()

		v := validator.New()
		v.Register(transfer, func(context.Context, *validator.Context) error { return nil })

		var err error
		n, err = notary.New(notaryID.Identity, notaryID.Signer, sigService, v, ledger,
			notary.WithMetrics(metrics.NewPrometheusProvider(registry)),
		)
		Expect(err).NotTo(HaveOccurred())
	})

	Describe("Submit", func() {
		When("the transaction is valid", func() {
			It("finalizes it and attests finality", func() {
				stx := issue(100)
				receipt, err := n.Submit(ctx, stx)
				Expect(err).NotTo(HaveOccurred())
				Expect(ttx.VerifyReceipt(ctx, receipt, stx.Transaction, sigService)).To(Succeed())

				stored, err := ledger.GetReceipt(ctx, stx.ID())
				Expect(err).NotTo(HaveOccurred())
				Expect(stored).To(Equal(receipt))

				record, err := ledger.Lookup(ctx, stx.Transaction.OutputID(0))
				Expect(err).NotTo(HaveOccurred())
				Expect(record.Amount).To(Equal(uint64(100)))
				Expect(record.Owner.Equal(owner.Identity)).To(BeTrue())
				Expect(record.Issuer.Equal(issuer.Identity)).To(BeTrue())

				consumed, err := ledger.IsConsumed(ctx, stx.Transaction.OutputID(0))
				Expect(err).NotTo(HaveOccurred())
				Expect(consumed).To(BeFalse())

				status, statusReceipt, err := n.Status(ctx, stx.ID())
				Expect(err).NotTo(HaveOccurred())
				Expect(status).To(Equal(driver.Finalized))
				Expect(statusReceipt).To(Equal(receipt))
			})
		})

		When("the transaction is submitted twice", func() {
			It("returns the same receipt and records once", func() {
				stx := issue(10)
				first, err := n.Submit(ctx, stx)
				Expect(err).NotTo(HaveOccurred())
				second, err := n.Submit(ctx, stx)
				Expect(err).NotTo(HaveOccurred())
				Expect(second).To(Equal(first))

				Expect(ledger.writes.Load()).To(Equal(int32(1)))
				Expect(ledger.Count(ctx)).To(Equal(1))
			})

			It("coalesces concurrent submissions", func() {
				stx := issue(10)
				receipts := make([]*driver.Receipt, 10)
				var wg sync.WaitGroup
				for i := range receipts {
					wg.Add(1)
					go func(i int) {
						defer GinkgoRecover()
						defer wg.Done()
						r, err := n.Submit(ctx, stx)
						Expect(err).NotTo(HaveOccurred())
						receipts[i] = r
					}(i)
				}
				wg.Wait()

				for _, r := range receipts {
					Expect(r.Attestation.Signature).To(Equal(receipts[0].Attestation.Signature))
				}
				Expect(ledger.writes.Load()).To(Equal(int32(1)))
				Expect(ledger.Count(ctx)).To(Equal(1))
			})
		})

		When("the transaction is addressed to another notary", func() {
			It("rejects it", func() {
				other := newSigner("other-notary")
				tx, err := ttx.NewBuilder().Build(ctx, issuer.Identity, owner.Identity, 1, other.Identity)
				Expect(err).NotTo(HaveOccurred())
				stx := sign(tx, issuer, owner)

				_, err = n.Submit(ctx, stx)
				Expect(err).To(MatchError(driver.ErrRejected))
				Expect(err.Error()).To(ContainSubstring("addressed to notary [other-notary]"))

				status, _, err := n.Status(ctx, stx.ID())
				Expect(err).NotTo(HaveOccurred())
				Expect(status).To(Equal(driver.Rejected))
				Expect(ledger.writes.Load()).To(BeZero())
			})
		})

		When("the signatures are malformed", func() {
			It("rejects it", func() {
				tx, err := ttx.NewBuilder().Build(ctx, issuer.Identity, owner.Identity, 1, notaryID.Identity)
				Expect(err).NotTo(HaveOccurred())
				stx := &ttx.SignedTransaction{Transaction: tx, Signatures: []*ttx.Signature{nil, nil}}

				_, err = n.Submit(ctx, stx)
				Expect(err).To(MatchError(driver.ErrRejected))
				Expect(err).To(MatchError(validator.ErrRuleViolation))

				status, _, err := n.Status(ctx, stx.ID())
				Expect(err).NotTo(HaveOccurred())
				Expect(status).To(Equal(driver.Rejected))
				Expect(ledger.writes.Load()).To(BeZero())
			})
		})

		When("a signature is missing", func() {
			It("rejects it", func() {
				tx, err := ttx.NewBuilder().Build(ctx, issuer.Identity, owner.Identity, 1, notaryID.Identity)
				Expect(err).NotTo(HaveOccurred())
				stx := sign(tx, issuer)

				_, err = n.Submit(ctx, stx)
				Expect(err).To(MatchError(driver.ErrRejected))
				reason, ok := n.Rejection(stx.ID())
				Expect(ok).To(BeTrue())
				Expect(reason).NotTo(BeEmpty())
			})

			It("finalizes a later complete submission", func() {
				tx, err := ttx.NewBuilder().Build(ctx, issuer.Identity, owner.Identity, 1, notaryID.Identity)
				Expect(err).NotTo(HaveOccurred())
				_, err = n.Submit(ctx, sign(tx, issuer))
				Expect(err).To(MatchError(driver.ErrRejected))

				_, err = n.Submit(ctx, sign(tx, issuer, owner))
				Expect(err).NotTo(HaveOccurred())
				status, _, err := n.Status(ctx, tx.ID)
				Expect(err).NotTo(HaveOccurred())
				Expect(status).To(Equal(driver.Finalized))
				_, ok := n.Rejection(tx.ID)
				Expect(ok).To(BeFalse())
			})
		})

		When("the content was changed after signing", func() {
			It("rejects it", func() {
				stx := issue(10)
				stx.Transaction.Outputs[0].Amount = 1000

				_, err := n.Submit(ctx, stx)
				Expect(err).To(MatchError(driver.ErrRejected))
				Expect(ledger.writes.Load()).To(BeZero())
			})
		})

		When("an input is consumed twice", func() {
			var input token.ID

			BeforeEach(func() {
				stx := issue(10)
				_, err := n.Submit(ctx, stx)
				Expect(err).NotTo(HaveOccurred())
				input = stx.Transaction.OutputID(0)
			})

			It("rejects the second spender", func() {
				_, err := n.Submit(ctx, spend("s1", input))
				Expect(err).NotTo(HaveOccurred())

				second := spend("s2", input)
				_, err = n.Submit(ctx, second)
				Expect(err).To(MatchError(driver.ErrRejected))
				Expect(err).To(MatchError(notary.ErrConflict))

				status, _, err := n.Status(ctx, second.ID())
				Expect(err).NotTo(HaveOccurred())
				Expect(status).To(Equal(driver.Rejected))
				Expect(testutil.GatherAndCount(registry, "token_sdk_notary_rejections")).To(Equal(1))
			})

			It("lets exactly one concurrent spender win", func() {
				var succeeded, conflicts atomic.Int32
				var wg sync.WaitGroup
				for i := 0; i < 8; i++ {
					wg.Add(1)
					go func(i int) {
						defer GinkgoRecover()
						defer wg.Done()
						_, err := n.Submit(ctx, spend(string(rune('a'+i)), input))
						if err == nil {
							succeeded.Add(1)
							return
						}
						Expect(err).To(MatchError(notary.ErrConflict))
						conflicts.Add(1)
					}(i)
				}
				wg.Wait()
				Expect(succeeded.Load()).To(Equal(int32(1)))
				Expect(conflicts.Load()).To(Equal(int32(7)))
			})
		})

		When("an input does not exist", func() {
			It("rejects it", func() {
				_, err := n.Submit(ctx, spend("s1", token.ID{TxId: "missing", Index: 0}))
				Expect(err).To(MatchError(driver.ErrRejected))
				Expect(err).To(MatchError(notary.ErrUnknownInput))
			})
		})

		When("the storage fails", func() {
			It("reports the failure without rejecting", func() {
				ledger.failure = errors.New("disk full")
				stx := issue(10)
				_, err := n.Submit(ctx, stx)
				Expect(err).To(MatchError(ContainSubstring("disk full")))
				Expect(errors.Is(err, driver.ErrRejected)).To(BeFalse())

				status, _, err := n.Status(ctx, stx.ID())
				Expect(err).NotTo(HaveOccurred())
				Expect(status).To(Equal(driver.Unknown))
			})
		})

		When("the transaction is nil", func() {
			It("fails", func() {
				_, err := n.Submit(ctx, nil)
				Expect(err).To(MatchError("invalid transaction: nil"))
			})
		})
	})

	Describe("Status", func() {
		It("reports unknown transactions", func() {
			status, receipt, err := n.Status(ctx, "unknown")
			Expect(err).NotTo(HaveOccurred())
			Expect(status).To(Equal(driver.Unknown))
			Expect(receipt).To(BeNil())
		})
	})
})
