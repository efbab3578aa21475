// SPDX-License-Identifier: AGPL-3.0-or-later
// Copyright (C) 2026 aPlane Authors

package util

import (
	"fmt"
	"math/big"
	"strings"
)

// ZILDecimals is the number of Qa decimal places in one ZIL (1 ZIL = 10^12 Qa)
const ZILDecimals = 12

// FormatAmountWithDecimals formats a non-negative decimal integer string
// (node amounts can exceed uint64) with the given number of decimal places.
// The conversion is exact. If decimals is 0, the integer is returned unchanged.
func FormatAmountWithDecimals(amountUnits string, decimals int) (string, error) {
	amount, ok := new(big.Int).SetString(amountUnits, 10)
	if !ok || amount.Sign() < 0 {
		return "", fmt.Errorf("invalid amount %q", amountUnits)
	}
	if decimals <= 0 {
		return amount.String(), nil
	}

	divisor := new(big.Int).Exp(big.NewInt(10), big.NewInt(int64(decimals)), nil)
	whole, frac := new(big.Int).QuoRem(amount, divisor, new(big.Int))
	fracStr := frac.String()
	return whole.String() + "." + strings.Repeat("0", decimals-len(fracStr)) + fracStr, nil
}

// FormatZIL formats an amount in Qa as ZIL
func FormatZIL(qa string) (string, error) {
	return FormatAmountWithDecimals(qa, ZILDecimals)
}
