// Package amm implements weighted two-asset pool math.
//
// Weights may be passed as fractions (0.1/0.9) or percentages (10/90). Only the
// ratio between the two weights enters the formulas, so both conventions give
// identical results as long as one is used consistently within a call.
package amm

import "math"

// SpotPrice returns the marginal price of the token in collateral units:
//
//	(collateralBalance / collateralWeight) / (tokenBalance / tokenWeight)
//
// Returns 0 when tokenBalance, tokenWeight or collateralWeight is zero.
// Negative inputs also return 0 so degenerate state never yields NaN/Inf.
func SpotPrice(collateralBalance, collateralWeight, tokenBalance, tokenWeight float64) float64 {
	if tokenBalance <= 0 || tokenWeight <= 0 || collateralWeight <= 0 || collateralBalance < 0 {
		return 0
	}
	numer := collateralBalance / collateralWeight
	denom := tokenBalance / tokenWeight
	return numer / denom
}

// OutGivenIn returns the amount of the out-asset received for amountIn of the
// in-asset:
//
//	balanceOut * (1 - (balanceIn / (balanceIn + effectiveIn)) ^ (weightIn / weightOut))
//
// effectiveIn is amountIn * (1 - swapFee) when swapFee > 0, else amountIn.
// swapFee is a fraction (0.02 for 2%). The pool is expected to be credited the
// full amountIn; the fee only reduces the price impact seen by the trader.
//
// The result is in [0, balanceOut]. For trades many orders of magnitude larger
// than balanceIn it can round to balanceOut itself, so pool state should be
// updated from BalanceOutAfter instead of subtracting this amount.
// Non-positive balances, weights or amounts return 0.
func OutGivenIn(balanceIn, weightIn, balanceOut, weightOut, amountIn, swapFee float64) float64 {
	if balanceIn <= 0 || weightIn <= 0 || balanceOut <= 0 || weightOut <= 0 || amountIn <= 0 {
		return 0
	}

	effectiveIn := amountIn
	if swapFee > 0 {
		effectiveIn = amountIn * (1 - swapFee)
	}
	if effectiveIn <= 0 || math.IsNaN(effectiveIn) {
		return 0
	}

	// 1 - (bi/(bi+ai))^r written as -expm1(-r*log1p(ai/bi)) keeps precision
	// for trades that are small relative to the pool.
	weightRatio := weightIn / weightOut
	out := balanceOut * -math.Expm1(-weightRatio*math.Log1p(effectiveIn/balanceIn))
	if math.IsNaN(out) || out < 0 {
		return 0
	}
	return out
}

// BalanceOutAfter returns the out-asset balance left in the pool after a swap
// of amountIn:
//
//	balanceOut * (balanceIn / (balanceIn + effectiveIn)) ^ (weightIn / weightOut)
//
// The result stays positive for any finite trade until it underflows float64,
// which OutGivenIn's subtraction form cannot guarantee. Degenerate inputs leave
// balanceOut unchanged.
func BalanceOutAfter(balanceIn, weightIn, balanceOut, weightOut, amountIn, swapFee float64) float64 {
	if balanceIn <= 0 || weightIn <= 0 || balanceOut <= 0 || weightOut <= 0 || amountIn <= 0 {
		return balanceOut
	}

	effectiveIn := amountIn
	if swapFee > 0 {
		effectiveIn = amountIn * (1 - swapFee)
	}
	if effectiveIn <= 0 || math.IsNaN(effectiveIn) {
		return balanceOut
	}

	after := balanceOut * math.Exp(-(weightIn/weightOut)*math.Log1p(effectiveIn/balanceIn))
	if math.IsNaN(after) || after > balanceOut {
		return balanceOut
	}
	return after
}

// NormalizeSwapFee converts a configured swap fee into a fraction.
// Values greater than 1 are percentages and are divided by 100; values in
// [0, 1] are taken as fractions already. A configured "0.5" is therefore read
// as 50%, not 0.5%.
func NormalizeSwapFee(swapFee float64) float64 {
	if swapFee <= 0 || math.IsNaN(swapFee) {
		return 0
	}
	if swapFee > 1 {
		return swapFee / 100
	}
	return swapFee
}

// ValueFunction returns balanceIn^weightIn * balanceOut^weightOut with the
// weights normalized to sum to 1. A fee-free swap leaves it unchanged.
func ValueFunction(balanceIn, weightIn, balanceOut, weightOut float64) float64 {
	total := weightIn + weightOut
	if total <= 0 || balanceIn <= 0 || balanceOut <= 0 {
		return 0
	}
	return math.Pow(balanceIn, weightIn/total) * math.Pow(balanceOut, weightOut/total)
}

// EffectivePrice returns the average price paid per unit received (amountIn / amountOut).
// Returns 0 when amountOut is not positive.
func EffectivePrice(amountIn, amountOut float64) float64 {
	if amountOut <= 0 {
		return 0
	}
	return amountIn / amountOut
}
