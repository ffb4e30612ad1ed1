package rules

import "testing"

func TestLookupCreditRules(t *testing.T) {
	tests := []struct {
		key    Key
		points int64
	}{
		{Level3SmallReturn, 10},
		{Level3MediumReturn, 20},
		{Level3CommunityDrive, 30},
		{Level4MaterialMatch, 40},
		{Level4Transaction, 50},
		{ReferralReferredBonus, 30},
		{ReferralReferrerBonus, 10},
		{WeeklyStreak, 5},
		{StreakMilestoneBonus, 100},
	}
	for _, tt := range tests {
		r, ok := Lookup(tt.key)
		if !ok {
			t.Fatalf("Lookup(%s) not found", tt.key)
		}
		if r.Points != tt.points {
			t.Errorf("Lookup(%s).Points = %d, want %d", tt.key, r.Points, tt.points)
		}
		if r.Kind != Credit {
			t.Errorf("Lookup(%s).Kind = %s, want credit", tt.key, r.Kind)
		}
	}
}

func TestDebitRulesHaveNoFixedAward(t *testing.T) {
	for _, key := range []Key{EcoPointsRedemption, ThriftLoopRedeem, AuctionWin} {
		r, ok := Lookup(key)
		if !ok {
			t.Fatalf("Lookup(%s) not found", key)
		}
		if r.Kind != Debit || r.Points != 0 {
			t.Errorf("Lookup(%s) = %+v, want zero-point debit rule", key, r)
		}
	}
}

func TestParse(t *testing.T) {
	tests := []struct {
		in     string
		want   Key
		wantOk bool
	}{
		{"LEVEL3_SMALL_RETURN", Level3SmallReturn, true},
		{"  level4_transaction ", Level4Transaction, true},
		{"thriftloop_redeem", ThriftLoopRedeem, true},
		{"LEVEL9_UNKNOWN", "", false},
		{"", "", false},
	}
	for _, tt := range tests {
		got, ok := Parse(tt.in)
		if got != tt.want || ok != tt.wantOk {
			t.Errorf("Parse(%q) = (%q, %v), want (%q, %v)", tt.in, got, ok, tt.want, tt.wantOk)
		}
	}
}

func TestHasLevel(t *testing.T) {
	if !Level3CommunityDrive.HasLevel(3) {
		t.Error("expected LEVEL3_COMMUNITY_DRIVE to be level 3")
	}
	if Level4MaterialMatch.HasLevel(3) {
		t.Error("expected LEVEL4_MATERIAL_MATCH not to be level 3")
	}
	if WeeklyStreak.HasLevel(4) {
		t.Error("expected WEEKLY_STREAK to carry no level")
	}
}

func TestAllIsACopy(t *testing.T) {
	all := All()
	all[0].Points = 9999
	if r, _ := Lookup(all[0].Key); r.Points == 9999 {
		t.Error("mutating All() result changed the table")
	}
}
