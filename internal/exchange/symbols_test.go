package exchange

import "testing"

func TestUnifySymbol(t *testing.T) {
	if got := unifySymbol("PEPE", "USDT"); got != "PEPE/USDT:USDT" {
		t.Fatalf("unifySymbol = %q", got)
	}
}

func TestSpotBaseFromRaw(t *testing.T) {
	cases := []struct {
		in   string
		base string
		ok   bool
	}{
		{"PEPEUSDT", "PEPE", true},
		{"BTCUSDT", "BTC", true},
		{"USDT", "", false},         // empty base
		{"PEPE_USDT", "", false},    // delimited, not raw
		{"BTCUSDT-0329", "", false}, // delivery suffix
		{"PEPEBTC", "", false},      // wrong quote
	}
	for _, tc := range cases {
		base, ok := spotBaseFromRaw(tc.in)
		if base != tc.base || ok != tc.ok {
			t.Fatalf("spotBaseFromRaw(%q) = (%q, %v), want (%q, %v)", tc.in, base, ok, tc.base, tc.ok)
		}
	}
}

func TestSpotBaseFromPair(t *testing.T) {
	if base, ok := spotBaseFromPair("PEPE_USDT", "_"); !ok || base != "PEPE" {
		t.Fatalf("underscore pair = (%q, %v)", base, ok)
	}
	if base, ok := spotBaseFromPair("PEPE-USDT", "-"); !ok || base != "PEPE" {
		t.Fatalf("dash pair = (%q, %v)", base, ok)
	}
	if _, ok := spotBaseFromPair("PEPE_BTC", "_"); ok {
		t.Fatal("non-USDT quote must be rejected")
	}
	if _, ok := spotBaseFromPair("PEPE_USDT_X", "_"); ok {
		t.Fatal("three-part symbol must be rejected")
	}
}

func TestNewClientKnowsAliases(t *testing.T) {
	for _, id := range []string{"binance", "bybit", "okx", "gateio", "gate"} {
		if _, err := NewClient(id, 0); err != nil {
			t.Fatalf("NewClient(%q): %v", id, err)
		}
	}
	if _, err := NewClient("kraken", 0); err == nil {
		t.Fatal("unsupported exchange must error")
	}
}
