package database

import (
	"context"
	"fmt"

	"eco-loop-rewards-go/internal/models"
	"eco-loop-rewards-go/internal/rules"
	"eco-loop-rewards-go/internal/store"
)

// PostCredit awards points once per transaction id.
func (s *Service) PostCredit(ctx context.Context, params store.EntryParams) (*models.Transaction, error) {
	tx, err := s.subledger.postEntry(ctx, params, rules.Credit)
	if err != nil {
		return nil, fmt.Errorf("error processing credit: %w", err)
	}
	s.notifyCommitted(ctx, tx)
	return tx, nil
}

// PostDebit deducts points; the balance never goes below zero.
func (s *Service) PostDebit(ctx context.Context, params store.EntryParams) (*models.Transaction, error) {
	tx, err := s.subledger.postEntry(ctx, params, rules.Debit)
	if err != nil {
		return nil, fmt.Errorf("error processing debit: %w", err)
	}
	s.notifyCommitted(ctx, tx)
	return tx, nil
}

func (s *Service) IsProcessed(ctx context.Context, transactionId string) (bool, error) {
	return s.subledger.IsProcessed(ctx, transactionId)
}

func (s *Service) GetTransactions(ctx context.Context, userId, rulePrefix string, limit int) ([]models.Transaction, error) {
	return s.subledger.GetTransactions(ctx, userId, rulePrefix, limit)
}

func (s *Service) GetTransaction(ctx context.Context, transactionId string) (*models.Transaction, error) {
	return s.subledger.GetTransaction(ctx, transactionId)
}
