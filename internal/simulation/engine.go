package simulation

import (
	"lbp-lab/internal/amm"
	"lbp-lab/internal/domain"
	"lbp-lab/internal/schedule"
	"lbp-lab/internal/strategy"
)

// StepTrades holds the outcome of one step: final weights and price, plus the
// volumes traded by each leg.
type StepTrades struct {
	TknWeight  float64
	UsdcWeight float64
	Price      float64

	BuyUSDC  float64
	BuyTKN   float64
	SellUSDC float64
	SellTKN  float64
}

// Engine applies the buy and sell legs of a single step to a pool.
// It holds no run state; Step takes and returns values.
type Engine struct {
	config     domain.PoolConfig
	totalSteps int
	swapFee    float64
	policy     strategy.SellPolicy
}

// NewEngine creates an engine for a sale discretized into totalSteps steps.
// A nil policy means no selling.
func NewEngine(cfg domain.PoolConfig, totalSteps int, policy strategy.SellPolicy) *Engine {
	if policy == nil {
		policy = strategy.NonePolicy{}
	}
	return &Engine{
		config:     cfg,
		totalSteps: schedule.SafeSteps(totalSteps),
		swapFee:    amm.NormalizeSwapFee(cfg.SwapFee),
		policy:     policy,
	}
}

// Weights returns the token and collateral weights at step.
func (e *Engine) Weights(step int) (tknWeight, usdcWeight float64) {
	tknWeight = schedule.WeightAt(step, e.totalSteps, e.config.TknWeightIn, e.config.TknWeightOut)
	usdcWeight = schedule.WeightAt(step, e.totalSteps, e.config.UsdcWeightIn, e.config.UsdcWeightOut)
	return
}

// SpotPrice returns the pool price for state at the weights of step.
func (e *Engine) SpotPrice(step int, pool domain.PoolState) float64 {
	tknWeight, usdcWeight := e.Weights(step)
	return amm.SpotPrice(pool.UsdcBalance, usdcWeight, pool.TknBalance, tknWeight)
}

// Step applies buyFlow collateral of community buying, then the sell policy,
// at step. Returns the new pool and community state with the step's trades.
//
// The pool is credited the full input of each trade; the swap fee only
// reduces the amount paid out. The out-side balance is set from the swap
// invariant directly and the traded volume is the difference, so a pool is
// never drained to zero by a single oversized trade.
func (e *Engine) Step(step int, buyFlow float64, pool domain.PoolState, community domain.CommunityState) (domain.PoolState, domain.CommunityState, StepTrades) {
	tknWeight, usdcWeight := e.Weights(step)
	trades := StepTrades{TknWeight: tknWeight, UsdcWeight: usdcWeight}

	// Buy leg
	if buyFlow > 0 {
		tknAfter := amm.BalanceOutAfter(pool.UsdcBalance, usdcWeight, pool.TknBalance, tknWeight, buyFlow, e.swapFee)
		out := pool.TknBalance - tknAfter
		pool.UsdcBalance += buyFlow
		pool.TknBalance = tknAfter

		if out > 0 {
			pricePaid := buyFlow / out
			held := community.TokensHeld + out
			community.AvgCost = (community.AvgCost*community.TokensHeld + pricePaid*out) / held
			community.TokensHeld = held

			trades.BuyUSDC = buyFlow
			trades.BuyTKN = out
		}
	}

	price := amm.SpotPrice(pool.UsdcBalance, usdcWeight, pool.TknBalance, tknWeight)

	// Sell leg
	if amount := e.policy.SellAmount(step, price, community); amount > 0 {
		usdcAfter := amm.BalanceOutAfter(pool.TknBalance, tknWeight, pool.UsdcBalance, usdcWeight, amount, e.swapFee)
		out := pool.UsdcBalance - usdcAfter
		pool.TknBalance += amount
		pool.UsdcBalance = usdcAfter

		community.TokensHeld = max(0, community.TokensHeld-amount)
		if community.TokensHeld == 0 {
			community.AvgCost = 0
		}

		trades.SellUSDC = out
		trades.SellTKN = amount

		price = amm.SpotPrice(pool.UsdcBalance, usdcWeight, pool.TknBalance, tknWeight)
	}

	trades.Price = price
	return pool, community, trades
}
