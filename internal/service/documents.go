package service

import (
	"context"
	"fmt"
	"io"
)

// UploadReceiptDocument stores a receipt's binary in the vault and records
// the object path on the receipt.
func (s *LedgerService) UploadReceiptDocument(ctx context.Context, tenantID, receiptID, filename string, r io.Reader) (string, error) {
	if s.vault == nil {
		return "", fmt.Errorf("document vault is not configured")
	}
	receipt, err := s.store.GetReceipt(ctx, tenantID, receiptID)
	if err != nil {
		return "", fmt.Errorf("get receipt: %w", err)
	}
	path, err := s.vault.Put(ctx, tenantID, receiptID, filename, r)
	if err != nil {
		return "", err
	}
	receipt.DocumentRef = path
	if err := s.store.UpdateReceipt(ctx, tenantID, receipt); err != nil {
		return "", fmt.Errorf("update receipt: %w", err)
	}
	return path, nil
}

// OpenReceiptDocument streams a receipt's stored binary.
func (s *LedgerService) OpenReceiptDocument(ctx context.Context, tenantID, receiptID string) (io.ReadCloser, error) {
	if s.vault == nil {
		return nil, fmt.Errorf("document vault is not configured")
	}
	receipt, err := s.store.GetReceipt(ctx, tenantID, receiptID)
	if err != nil {
		return nil, fmt.Errorf("get receipt: %w", err)
	}
	if receipt.DocumentRef == "" {
		return nil, fmt.Errorf("receipt has no stored document: %s", receiptID)
	}
	return s.vault.Open(ctx, receipt.DocumentRef)
}
