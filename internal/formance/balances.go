package formance

import (
	"context"
	"fmt"
	"math/big"

	v3 "github.com/formancehq/formance-sdk-go/v3"
	"github.com/formancehq/formance-sdk-go/v3/pkg/models/operations"
	"github.com/formancehq/formance-sdk-go/v3/pkg/models/shared"
	"go.uber.org/zap"
)

// MemberBalance reads a member's mirrored EcoPoints balance. Members never
// mirrored have zero.
func (m *Mirror) MemberBalance(ctx context.Context, userId string) (int64, error) {
	resp, err := m.client.Ledger.V2.GetAccount(ctx, operations.V2GetAccountRequest{
		Ledger:  m.ledger,
		Address: memberAddress(userId),
		Expand:  v3.Pointer("volumes"),
	})
	if err != nil {
		if isNotFoundError(err) {
			return 0, nil
		}
		return 0, fmt.Errorf("failed to get member account: %w", err)
	}

	bal := volumeBalance(resp.V2AccountResponse.Data.Volumes, pointsAsset)
	if bal == nil {
		return 0, nil
	}
	if !bal.IsInt64() {
		return 0, fmt.Errorf("mirrored balance for %s out of range: %s", userId, bal.String())
	}
	return bal.Int64(), nil
}

// Verify compares the mirror with the local balance and logs drift.
func (m *Mirror) Verify(ctx context.Context, userId string, local int64) (bool, error) {
	mirrored, err := m.MemberBalance(ctx, userId)
	if err != nil {
		return false, err
	}
	if mirrored != local {
		zap.L().Warn("Formance mirror drift",
			zap.String("user_id", userId),
			zap.Int64("local", local),
			zap.Int64("mirrored", mirrored))
		return false, nil
	}
	return true, nil
}

func memberAddress(userId string) string {
	return "members:" + userId
}

// volumeBalance extracts one asset's balance from account volumes.
func volumeBalance(vols map[string]shared.V2Volume, fAsset string) *big.Int {
	vol, ok := vols[fAsset]
	if !ok {
		return nil
	}
	if vol.Balance != nil {
		return vol.Balance
	}
	if vol.Input == nil {
		return nil
	}
	result := new(big.Int).Set(vol.Input)
	if vol.Output != nil {
		result.Sub(result, vol.Output)
	}
	return result
}
