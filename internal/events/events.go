/**
 * Copyright 2025-present Coinbase Global, Inc.
 *
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 *
 *  http://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */

// Package events publishes platform events to downstream automation.
package events

import (
	"context"
	"time"

	"eco-loop-rewards-go/internal/models"
	"eco-loop-rewards-go/internal/store"

	"go.uber.org/zap"
)

const (
	PointsCredited            = "points.credited"
	PointsDebited             = "points.debited"
	ReferralRewardDistributed = "referral.reward_distributed"
	AuctionSettled            = "auction.settled"
	ContactMessageReceived    = "contact.message_received"
)

type Publisher interface {
	Publish(ctx context.Context, event models.Event) error
	Close() error
}

func New(eventType string, data map[string]any) models.Event {
	return models.Event{
		EventType: eventType,
		Timestamp: time.Now().UTC(),
		Data:      data,
	}
}

// Nop drops every event.
type Nop struct{}

func (Nop) Publish(context.Context, models.Event) error { return nil }
func (Nop) Close() error { return nil }

// Emit publishes and logs a failure instead of returning it; events never
// fail the operation that produced them.
func Emit(ctx context.Context, p Publisher, eventType string, data map[string]any) {
	if p == nil {
		return
	}
	if err := p.Publish(ctx, New(eventType, data)); err != nil {
		zap.L().Warn("Failed to publish event",
			zap.String("event_type", eventType),
			zap.Error(err))
	}
}

// LedgerObserver turns committed ledger transactions into points events.
type LedgerObserver struct {
	publisher Publisher
}

var _ store.CommitObserver = (*LedgerObserver)(nil)

func NewLedgerObserver(p Publisher) *LedgerObserver {
	return &LedgerObserver{publisher: p}
}

func (o *LedgerObserver) TransactionsCommitted(ctx context.Context, txs []models.Transaction) {
	for _, tx := range txs {
		eventType := PointsCredited
		if !tx.IsCredit() {
			eventType = PointsDebited
		}
		Emit(ctx, o.publisher, eventType, transactionData(tx))
	}
}

func transactionData(tx models.Transaction) map[string]any {
	data := map[string]any{
		"transactionId": tx.Id,
		"userId":        tx.UserId,
		"ruleKey":       string(tx.RuleKey),
		"label":         tx.Label,
		"pointsDelta":   tx.PointsDelta,
		"balanceAfter":  tx.BalanceAfter,
		"source":        tx.Source,
	}
	if len(tx.Metadata) > 0 {
		data["metadata"] = tx.Metadata
	}
	return data
}
