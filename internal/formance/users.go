package formance

import (
	"context"
	"fmt"
	"strings"
	"time"

	"eco-loop-rewards-go/internal/models"

	"github.com/formancehq/formance-sdk-go/v3/pkg/models/operations"
	"github.com/formancehq/formance-sdk-go/v3/pkg/models/shared"
	"go.uber.org/zap"
)

// SyncMember tags the member's account with their profile so mirrored
// postings can be read without the local database.
func (m *Mirror) SyncMember(ctx context.Context, user models.User) error {
	addr := memberAddress(user.Id)
	_, err := m.client.Ledger.V2.AddMetadataToAccount(ctx, operations.V2AddMetadataToAccountRequest{
		Ledger:  m.ledger,
		Address: addr,
		RequestBody: map[string]string{
			"entity_type": "member",
			"name":        user.Name,
			"email":       user.Email,
		},
	})
	if err != nil {
		return fmt.Errorf("failed to sync member account: %w", err)
	}

	zap.L().Info("Member synced to Formance", zap.String("address", addr))
	return nil
}

// accountToUser reads a member account back into a User. ok is false for
// accounts that are not top-level member accounts.
func accountToUser(acct *shared.V2Account) (*models.User, bool) {
	parts := strings.Split(acct.Address, ":")
	if len(parts) != 2 || parts[0] != "members" {
		return nil, false
	}

	created := time.Time{}
	if t := acct.FirstUsage; t != nil {
		created = *t
	}
	return &models.User{
		Id:        parts[1],
		Name:      acct.Metadata["name"],
		Email:     acct.Metadata["email"],
		CreatedAt: created,
		UpdatedAt: created,
	}, true
}

// Members lists member accounts that carry profile metadata.
func (m *Mirror) Members(ctx context.Context) ([]models.User, error) {
	pageSize := int64(100)
	resp, err := m.client.Ledger.V2.ListAccounts(ctx, operations.V2ListAccountsRequest{
		Ledger:   m.ledger,
		PageSize: &pageSize,
		RequestBody: map[string]any{
			"$match": map[string]any{
				"metadata[entity_type]": "member",
			},
		},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to list members: %w", err)
	}

	var users []models.User
	for i := range resp.V2AccountsCursorResponse.Cursor.Data {
		if user, ok := accountToUser(&resp.V2AccountsCursorResponse.Cursor.Data[i]); ok {
			users = append(users, *user)
		}
	}
	return users, nil
}
