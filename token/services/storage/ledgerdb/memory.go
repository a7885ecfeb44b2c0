/*
Copyright IBM Corp. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package ledgerdb

import (
	"context"
	"sync"

	"github.com/hyperledger-labs/token-issuance-sdk/token/driver"
	"github.com/hyperledger-labs/token-issuance-sdk/token/token"
	"github.com/pkg/errors"
)

// MemoryLedger keeps finalized transactions in memory
type MemoryLedger struct {
	mu       sync.RWMutex
	receipts map[string]*driver.Receipt
	records  map[token.ID]token.Record
	consumed map[token.ID]string
}

func NewMemory() *MemoryLedger {
	return &MemoryLedger{
		receipts: map[string]*driver.Receipt{},
		records:  map[token.ID]token.Record{},
		consumed: map[token.ID]string{},
	}
}

func (m *MemoryLedger) RecordFinalized(_ context.Context, receipt *driver.Receipt) error {
	tx, err := finalizedTransaction(receipt)
	if err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.receipts[tx.ID]; ok {
		return errors.Wrapf(driver.ErrAlreadyRecorded, "transaction [%s]", tx.ID)
	}
	for _, input := range tx.Inputs {
		if consumer, ok := m.consumed[input]; ok {
			return errors.Wrapf(driver.ErrInputConsumed, "[%s] consumed by [%s]", input, consumer)
		}
	}

	m.receipts[tx.ID] = receipt
	for i, output := range tx.Outputs {
		m.records[tx.OutputID(i)] = output
	}
	for _, input := range tx.Inputs {
		m.consumed[input] = tx.ID
	}
	logger.Debugf("recorded transaction [%s]", tx.ID)
	return nil
}

func (m *MemoryLedger) IsConsumed(_ context.Context, id token.ID) (bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	_, ok := m.consumed[id]
	return ok, nil
}

func (m *MemoryLedger) Lookup(_ context.Context, id token.ID) (*token.Record, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	record, ok := m.records[id]
	if !ok {
		return nil, errors.Wrapf(driver.ErrRecordNotFound, "record [%s]", id)
	}
	return &record, nil
}

func (m *MemoryLedger) GetReceipt(_ context.Context, txID string) (*driver.Receipt, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.receipts[txID], nil
}

// Count returns the number of recorded transactions
func (m *MemoryLedger) Count(context.Context) (int, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.receipts), nil
}

func (m *MemoryLedger) Close() error {
	return nil
}

func finalizedTransaction(receipt *driver.Receipt) (*driver.Transaction, error) {
	if receipt == nil || receipt.Transaction == nil || receipt.Transaction.Transaction == nil || receipt.Attestation == nil {
		return nil, errors.New("incomplete receipt")
	}
	return receipt.Transaction.Transaction, nil
}
