package referral

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"eco-loop-rewards-go/internal/database"
	"eco-loop-rewards-go/internal/models"
	"eco-loop-rewards-go/internal/store"
)

func setupReferralService(t *testing.T, settings models.ReferralSettings) (*Service, *database.Service) {
	db, err := database.NewService(context.Background(), models.DatabaseConfig{
		Path:         filepath.Join(t.TempDir(), "points.db"),
		MaxOpenConns: 4,
		MaxIdleConns: 4,
		PingTimeout:  time.Second,
	})
	if err != nil {
		t.Fatalf("Failed to open test database: %v", err)
	}
	t.Cleanup(db.Close)
	return NewService(db, settings), db
}

// fixedCodes hands out the given codes in order, then falls back to random ones.
func fixedCodes(s *Service, codes ...string) {
	random := s.generate
	s.generate = func() (string, error) {
		if len(codes) == 0 {
			return random()
		}
		code := codes[0]
		codes = codes[1:]
		return code, nil
	}
}

func TestRegister_GetOrCreate(t *testing.T) {
	service, _ := setupReferralService(t, models.ReferralSettings{})
	ctx := context.Background()

	first, err := service.Register(ctx, "alice", "device-a", "")
	if err != nil {
		t.Fatalf("Register failed: %v", err)
	}
	if !first.Created || !service.IsValidCodeFormat(first.User.ReferralCode) {
		t.Fatalf("Unexpected signup %+v", first)
	}

	second, err := service.Register(ctx, "alice", "device-a", "")
	if err != nil {
		t.Fatalf("Register failed: %v", err)
	}
	if second.Created || second.User.ReferralCode != first.User.ReferralCode {
		t.Errorf("Expected existing record, got %+v", second)
	}
}

func TestReferralScenario(t *testing.T) {
	service, db := setupReferralService(t, models.ReferralSettings{})
	ctx := context.Background()
	fixedCodes(service, "LOOP-AB12")

	referrer, err := service.Register(ctx, "R", "device-r", "")
	if err != nil {
		t.Fatalf("Register R failed: %v", err)
	}
	if referrer.User.ReferralCode != "LOOP-AB12" {
		t.Fatalf("Expected LOOP-AB12, got %s", referrer.User.ReferralCode)
	}

	signup, err := service.Register(ctx, "U", "device-u", " loop-ab12 ")
	if err != nil {
		t.Fatalf("Register U failed: %v", err)
	}
	if !signup.ReferralApplied || signup.User.ReferredByUserId != "R" {
		t.Fatalf("Expected referral applied, got %+v", signup)
	}

	result, err := service.ProcessFirstActionReward(ctx, "U", ActionReturn)
	if err != nil {
		t.Fatalf("ProcessFirstActionReward failed: %v", err)
	}
	if !result.ReferralRewardApplied || result.BonusPoints != 30 || result.ReferrerReward != 10 || result.ReferredByUserId != "R" {
		t.Fatalf("Unexpected first action result %+v", result)
	}

	uBalance, _ := db.GetBalance(ctx, "U")
	rBalance, _ := db.GetBalance(ctx, "R")
	if uBalance != 30 || rBalance != 10 {
		t.Errorf("Expected U=30 R=10, got U=%d R=%d", uBalance, rBalance)
	}

	status, err := service.ValidateUserStatus(ctx, "U")
	if err != nil {
		t.Fatalf("ValidateUserStatus failed: %v", err)
	}
	if !status.ReferralBonusApplied || !status.FirstActionDone {
		t.Errorf("Unexpected status %+v", status)
	}

	again, err := service.ProcessFirstActionReward(ctx, "U", ActionDonation)
	if err != nil {
		t.Fatalf("ProcessFirstActionReward failed: %v", err)
	}
	if again.ReferralRewardApplied || !again.AlreadyCompleted {
		t.Errorf("Expected no second reward, got %+v", again)
	}
	uBalance, _ = db.GetBalance(ctx, "U")
	rBalance, _ = db.GetBalance(ctx, "R")
	if uBalance != 30 || rBalance != 10 {
		t.Errorf("Expected balances unchanged, got U=%d R=%d", uBalance, rBalance)
	}

	stats, err := service.Stats(ctx, "R")
	if err != nil {
		t.Fatalf("Stats failed: %v", err)
	}
	if stats.TotalReferrals != 1 || stats.TotalRewarded != 1 || stats.TotalPointsEarned != 10 {
		t.Errorf("Unexpected referrer stats %+v", stats)
	}

	events, err := service.AuditLog(ctx, "U", 0)
	if err != nil {
		t.Fatalf("AuditLog failed: %v", err)
	}
	if len(events) != 2 {
		t.Errorf("Expected accept and reward events for U, got %d", len(events))
	}
}

func TestValidateCode_Rejections(t *testing.T) {
	service, _ := setupReferralService(t, models.ReferralSettings{MaxReferralsPerUser: 2})
	ctx := context.Background()
	fixedCodes(service, "LOOP-AAAA", "LOOP-BBBB", "LOOP-CCCC")

	if _, err := service.Register(ctx, "alice", "device-a", ""); err != nil {
		t.Fatalf("Register failed: %v", err)
	}
	if _, err := service.Register(ctx, "bob", "shared-device", "LOOP-AAAA"); err != nil {
		t.Fatalf("Register failed: %v", err)
	}

	tests := []struct {
		name   string
		userId string
		device string
		code   string
		reason string
	}{
		{"bad format", "carol", "device-c", "LOOP-12", ReasonInvalidFormat},
		{"wrong prefix", "carol", "device-c", "LOOK-AAAA", ReasonInvalidFormat},
		{"unknown code", "carol", "device-c", "LOOP-ZZZZ", ReasonCodeNotFound},
		{"self referral", "alice", "device-a", "LOOP-AAAA", ReasonSelfReferral},
		{"same device", "carol", "shared-device", "LOOP-AAAA", ReasonDuplicateDevice},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result, err := service.ValidateCode(ctx, tt.userId, tt.device, tt.code)
			if err != nil {
				t.Fatalf("ValidateCode failed: %v", err)
			}
			if result.Success || result.Reason != tt.reason {
				t.Errorf("Expected %q, got %+v", tt.reason, result)
			}
		})
	}

	ok, err := service.ValidateCode(ctx, "carol", "device-c", "loop-aaaa")
	if err != nil || !ok.Success || ok.ReferrerId != "alice" {
		t.Errorf("Expected carol to be accepted, got %+v (%v)", ok, err)
	}

	if _, err := service.Register(ctx, "carol", "device-c", "LOOP-AAAA"); err != nil {
		t.Fatalf("Register failed: %v", err)
	}
	full, _ := service.ValidateCode(ctx, "dave", "device-d", "LOOP-AAAA")
	if full.Reason != ReasonLimitExceeded {
		t.Errorf("Expected limit exceeded after 2 referrals, got %+v", full)
	}
}

func TestRegister_RejectedCodeStillCreatesUser(t *testing.T) {
	service, db := setupReferralService(t, models.ReferralSettings{})
	ctx := context.Background()

	signup, err := service.Register(ctx, "carol", "device-c", "NOPE")
	if err != nil {
		t.Fatalf("Register failed: %v", err)
	}
	if !signup.Created || signup.ReferralApplied || signup.Reason != ReasonInvalidFormat {
		t.Fatalf("Unexpected signup %+v", signup)
	}
	if signup.User.ReferredByUserId != "" {
		t.Errorf("Expected no referrer, got %s", signup.User.ReferredByUserId)
	}

	events, err := db.ListReferralAudit(ctx, 10)
	if err != nil {
		t.Fatalf("ListReferralAudit failed: %v", err)
	}
	if len(events) != 1 || events[0].EventType != store.AuditReferralRejected || events[0].Data["reason"] != ReasonInvalidFormat {
		t.Errorf("Expected one rejection event, got %+v", events)
	}

	result, err := service.ProcessFirstActionReward(ctx, "carol", ActionReturn)
	if err != nil {
		t.Fatalf("ProcessFirstActionReward failed: %v", err)
	}
	if !result.Success || result.ReferralRewardApplied {
		t.Errorf("Expected plain first action, got %+v", result)
	}
}

func TestProcessFirstActionReward_InvalidInput(t *testing.T) {
	service, _ := setupReferralService(t, models.ReferralSettings{})
	ctx := context.Background()

	bad, err := service.ProcessFirstActionReward(ctx, "alice", "purchase")
	if err != nil || bad.Success {
		t.Errorf("Expected rejection for unknown action type, got %+v (%v)", bad, err)
	}
	missing, err := service.ProcessFirstActionReward(ctx, "ghost", ActionReturn)
	if err != nil || missing.Success {
		t.Errorf("Expected rejection for unknown user, got %+v (%v)", missing, err)
	}
}

func TestGenerateCode_Exhausted(t *testing.T) {
	service, _ := setupReferralService(t, models.ReferralSettings{MaxAttempts: 5})
	ctx := context.Background()
	fixedCodes(service, "LOOP-AAAA")

	if _, err := service.Register(ctx, "alice", "", ""); err != nil {
		t.Fatalf("Register failed: %v", err)
	}

	service.generate = func() (string, error) { return "LOOP-AAAA", nil }
	_, err := service.GenerateCode(ctx)
	if !errors.Is(err, ErrGenerationExhausted) {
		t.Errorf("Expected ErrGenerationExhausted, got %v", err)
	}
}

func TestRandomCodeFormat(t *testing.T) {
	pattern := codePattern("LOOP", 4)
	for i := 0; i < 50; i++ {
		code, err := randomCode("LOOP", 4)
		if err != nil {
			t.Fatalf("randomCode failed: %v", err)
		}
		if !pattern.MatchString(code) {
			t.Fatalf("Code %s does not match %s", code, pattern)
		}
	}
}
