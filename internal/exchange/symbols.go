package exchange

import (
	"fmt"
	"net/http"
	"strings"

	xhttp "OIScanner/pkg/http"
)

// unifySymbol builds the unified linear-perpetual symbol, e.g.
// ("PEPE", "USDT") -> "PEPE/USDT:USDT".
func unifySymbol(base, quote string) string {
	return base + "/" + quote + ":" + quote
}

// spotBaseFromRaw extracts the base asset from a concatenated spot symbol
// like "PEPEUSDT". Delivery and leveraged-token style symbols (anything
// carrying a suffix separator) are excluded.
func spotBaseFromRaw(rawSym string) (string, bool) {
	if strings.ContainsAny(rawSym, "_-:") {
		return "", false
	}
	if !strings.HasSuffix(rawSym, "USDT") {
		return "", false
	}
	base := strings.TrimSuffix(rawSym, "USDT")
	if base == "" {
		return "", false
	}
	return base, true
}

// spotBaseFromPair extracts the base from a delimited spot symbol like
// "PEPE-USDT" or "PEPE_USDT".
func spotBaseFromPair(sym, sep string) (string, bool) {
	parts := strings.Split(sym, sep)
	if len(parts) != 2 || parts[1] != "USDT" || parts[0] == "" {
		return "", false
	}
	return parts[0], true
}

// classify maps transport-level errors onto the package's sentinel errors.
func classify(err error) error {
	if xhttp.IsStatus(err, http.StatusTooManyRequests) {
		return fmt.Errorf("%w: %v", ErrRateLimited, err)
	}
	return err
}
