package util

import "testing"

func TestGroupThousands(t *testing.T) {
	cases := map[string]string{
		"0.50":       "0.50",
		"999":        "999",
		"1000":       "1,000",
		"1234567.89": "1,234,567.89",
		"-23700.00":  "-23,700.00",
		"100000":     "100,000",
	}
	for in, want := range cases {
		if got := GroupThousands(in); got != want {
			t.Fatalf("GroupThousands(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestNormalizeSymbol(t *testing.T) {
	if got := NormalizeSymbol("  btc-usd "); got != "BTC-USD" {
		t.Fatalf("unexpected %q", got)
	}
}

func TestParseIntDefault(t *testing.T) {
	if ParseIntDefault("", 7) != 7 || ParseIntDefault("x", 7) != 7 || ParseIntDefault("3", 7) != 3 {
		t.Fatalf("unexpected parse result")
	}
}
