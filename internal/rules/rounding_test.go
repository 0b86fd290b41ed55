package rules

import (
	"testing"

	"github.com/loyaltyworks/loyaltyhub/internal/models"
	"github.com/shopspring/decimal"
)

func dec(t *testing.T, s string) decimal.Decimal {
	t.Helper()
	d, err := decimal.NewFromString(s)
	if err != nil {
		t.Fatalf("parse decimal %q: %v", s, err)
	}
	return d
}

func TestEarnPoints(t *testing.T) {
	cases := []struct {
		name    string
		amount  string
		percent string
		mode    models.RoundingMode
		want    int64
	}{
		{"floor truncates down", "199.99", "3", models.RoundFloor, 5},
		{"floor exact", "200.00", "3", models.RoundFloor, 6},
		{"ceil rounds up", "199.99", "3", models.RoundCeil, 6},
		{"ceil exact stays", "200.00", "3", models.RoundCeil, 6},
		{"round below half", "148.00", "3", models.RoundHalf, 4},  // 4.44
		{"round half goes away from zero", "150.00", "3", models.RoundHalf, 5}, // 4.50
		{"round above half", "185.00", "3", models.RoundHalf, 6},  // 5.55
		{"fractional percent", "100.00", "2.5", models.RoundFloor, 2},
		{"zero amount", "0", "3", models.RoundFloor, 0},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := EarnPoints(dec(t, tc.amount), dec(t, tc.percent), tc.mode)
			if got != tc.want {
				t.Fatalf("EarnPoints(%s, %s, %s) = %d, want %d", tc.amount, tc.percent, tc.mode, got, tc.want)
			}
		})
	}
}

func TestRedeemPointsAlwaysFloors(t *testing.T) {
	if got := RedeemPoints(dec(t, "5.99")); got != 5 {
		t.Fatalf("RedeemPoints(5.99) = %d, want 5", got)
	}
	if got := RedeemPoints(dec(t, "5.00")); got != 5 {
		t.Fatalf("RedeemPoints(5.00) = %d, want 5", got)
	}
	if got := RedeemPoints(dec(t, "0.99")); got != 0 {
		t.Fatalf("RedeemPoints(0.99) = %d, want 0", got)
	}
}

func TestTierFor(t *testing.T) {
	rule := &models.Rule{SilverThreshold: 500, GoldThreshold: 1500}
	cases := []struct {
		balance int64
		want    string
	}{
		{0, models.TierBronze},
		{499, models.TierBronze},
		{500, models.TierSilver},
		{1499, models.TierSilver},
		{1500, models.TierGold},
		{10000, models.TierGold},
	}
	for _, tc := range cases {
		if got := TierFor(tc.balance, rule); got != tc.want {
			t.Fatalf("TierFor(%d) = %s, want %s", tc.balance, got, tc.want)
		}
	}
}
