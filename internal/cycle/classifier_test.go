package cycle

import (
	"testing"

	"github.com/instagibbs/anticycle/internal/feerate"
)

func TestIsTopBlock(t *testing.T) {
	rate := feerate.FromSatsPerKVB(50_000) // 50 sat/vB

	cases := []struct {
		name          string
		entry         MempoolEntry
		allowPackages bool
		want          bool
	}{
		{
			name:  "above threshold singleton",
			entry: MempoolEntry{AncestorCount: 1, AncestorSize: 200, AncestorFees: 20_000}, // 100 sat/vB
			want:  true,
		},
		{
			name:  "exactly at threshold",
			entry: MempoolEntry{AncestorCount: 1, AncestorSize: 200, AncestorFees: 10_000}, // 50 sat/vB
			want:  true,
		},
		{
			name:  "below threshold",
			entry: MempoolEntry{AncestorCount: 1, AncestorSize: 200, AncestorFees: 1_000}, // 5 sat/vB
			want:  false,
		},
		{
			name:          "multi-ancestor package rejected when packages disallowed",
			entry:         MempoolEntry{AncestorCount: 2, AncestorSize: 200, AncestorFees: 20_000},
			allowPackages: false,
			want:          false,
		},
		{
			name:          "multi-ancestor package accepted when packages allowed",
			entry:         MempoolEntry{AncestorCount: 2, AncestorSize: 200, AncestorFees: 20_000},
			allowPackages: true,
			want:          true,
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := IsTopBlock(tc.entry, rate, tc.allowPackages)
			if got != tc.want {
				t.Errorf("IsTopBlock() = %v, want %v", got, tc.want)
			}
		})
	}
}

func TestIsTopBlockZeroAncestorSize(t *testing.T) {
	rate := feerate.FromSatsPerKVB(1)
	entry := MempoolEntry{AncestorCount: 1, AncestorSize: 0, AncestorFees: 100}
	if IsTopBlock(entry, rate, false) {
		t.Errorf("expected zero ancestor size to classify below any positive rate")
	}
}
