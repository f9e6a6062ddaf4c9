package money

import "testing"

func TestNetPlusVATEqualsGross(t *testing.T) {
	for gross := int64(0); gross <= 20000; gross += 7 {
		for _, rate := range []int64{0, 6, 12, 25, 100} {
			net := CalculateNet(gross, rate)
			vat := CalculateVAT(gross, rate)
			if net+vat != gross {
				t.Fatalf("net(%d)+vat(%d) != gross %d at rate %d", net, vat, gross, rate)
			}
		}
	}
}

func TestCalculateNet(t *testing.T) {
	tests := []struct {
		gross int64
		rate  int64
		want  int64
	}{
		{0, 25, 0},
		{12500, 25, 10000},
		{11200, 12, 10000},
		{100, 25, 80},
		{125, 25, 100},
		{112, 12, 100},
		// 99*100/125 = 79.2 -> 79
		{99, 25, 79},
		// 105*100/125 = 84 exactly
		{105, 25, 84},
		// half-up: 15*100/125 = 12 exactly; 16*100/125 = 12.8 -> 13
		{16, 25, 13},
		{7900, 0, 7900},
	}
	for _, tt := range tests {
		if got := CalculateNet(tt.gross, tt.rate); got != tt.want {
			t.Errorf("CalculateNet(%d, %d) = %d, want %d", tt.gross, tt.rate, got, tt.want)
		}
	}
}

func TestCalculateVAT(t *testing.T) {
	tests := []struct {
		gross int64
		rate  int64
		want  int64
	}{
		{12500, 25, 2500},
		{11200, 12, 1200},
		{5000, 25, 1000},
		{7900, 12, 846}, // 7900 - round(7053.57..) = 7900 - 7054
		{0, 25, 0},
		{4200, 0, 0},
	}
	for _, tt := range tests {
		if got := CalculateVAT(tt.gross, tt.rate); got != tt.want {
			t.Errorf("CalculateVAT(%d, %d) = %d, want %d", tt.gross, tt.rate, got, tt.want)
		}
	}
}
