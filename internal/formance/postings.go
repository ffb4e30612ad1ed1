package formance

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"eco-loop-rewards-go/internal/models"

	"github.com/formancehq/formance-sdk-go/v3/pkg/models/operations"
	"github.com/formancehq/formance-sdk-go/v3/pkg/models/shared"
	"go.uber.org/zap"
)

// Credits are issued from the rule's reward pool; debits land in the rule's
// redemption sink. Pools may overdraft, members may not.
const numscriptPointsCredited = `vars {
  asset $asset
  number $amount
  account $member
  account $rule
  string $rule_key
  string $label
  string $source
  string $balance_after
}

send [$asset $amount] (
  source = @program:rewards:$rule allowing unbounded overdraft
  destination = @members:$member
)

set_tx_meta("event_type", "points_credited")
set_tx_meta("rule_key", $rule_key)
set_tx_meta("label", $label)
set_tx_meta("source", $source)
set_tx_meta("balance_after", $balance_after)
`

const numscriptPointsDebited = `vars {
  asset $asset
  number $amount
  account $member
  account $rule
  string $rule_key
  string $label
  string $source
  string $balance_after
}

send [$asset $amount] (
  source = @members:$member
  destination = @program:redemptions:$rule
)

set_tx_meta("event_type", "points_debited")
set_tx_meta("rule_key", $rule_key)
set_tx_meta("label", $label)
set_tx_meta("source", $source)
set_tx_meta("balance_after", $balance_after)
`

// TransactionsCommitted mirrors each committed transaction. Failures are
// logged and skipped; the SQLite ledger already holds the truth and a later
// replay with the same reference is safe.
func (m *Mirror) TransactionsCommitted(ctx context.Context, txs []models.Transaction) {
	for _, tx := range txs {
		if err := m.mirror(ctx, tx); err != nil {
			zap.L().Error("Failed to mirror transaction to Formance",
				zap.String("transaction_id", tx.Id),
				zap.String("user_id", tx.UserId),
				zap.Error(err))
		}
	}
}

func (m *Mirror) mirror(ctx context.Context, tx models.Transaction) error {
	_, err := m.client.Ledger.V2.CreateTransaction(ctx, operations.V2CreateTransactionRequest{
		Ledger:            m.ledger,
		V2PostTransaction: postTransaction(tx),
	})
	if err != nil {
		if isConflictError(err) {
			zap.L().Debug("Transaction already mirrored", zap.String("transaction_id", tx.Id))
			return nil
		}
		return fmt.Errorf("error mirroring transaction: %w", err)
	}

	zap.L().Info("Transaction mirrored in Formance",
		zap.String("transaction_id", tx.Id),
		zap.String("user_id", tx.UserId),
		zap.Int64("points_delta", tx.PointsDelta))
	return nil
}

func postTransaction(tx models.Transaction) shared.V2PostTransaction {
	script := numscriptPointsCredited
	amount := tx.PointsDelta
	if !tx.IsCredit() {
		script = numscriptPointsDebited
		amount = -amount
	}

	reference := tx.Id
	postTx := shared.V2PostTransaction{
		Reference: &reference,
		Script: &shared.V2PostTransactionScript{
			Plain: script,
			Vars: map[string]string{
				"asset":         pointsAsset,
				"amount":        strconv.FormatInt(amount, 10),
				"member":        tx.UserId,
				"rule":          ruleSegment(string(tx.RuleKey)),
				"rule_key":      string(tx.RuleKey),
				"label":         tx.Label,
				"source":        tx.Source,
				"balance_after": strconv.FormatInt(tx.BalanceAfter, 10),
			},
		},
	}
	if !tx.CreatedAt.IsZero() {
		ts := tx.CreatedAt
		postTx.Timestamp = &ts
	}
	return postTx
}

// ruleSegment turns LEVEL3_SMALL_RETURN into level3_small_return for use
// in an account address.
func ruleSegment(ruleKey string) string {
	return strings.ToLower(ruleKey)
}
