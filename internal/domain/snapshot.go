package domain

// PoolState holds the pool balances during a run.
type PoolState struct {
	TknBalance  float64 `json:"tknBalance"`
	UsdcBalance float64 `json:"usdcBalance"`
}

// CommunityState tracks tokens held by synthetic buyers and their
// volume-weighted average cost. AvgCost resets to 0 only when TokensHeld
// reaches exactly 0.
type CommunityState struct {
	TokensHeld float64 `json:"communityTokensHeld"`
	AvgCost    float64 `json:"communityAvgCost"`
}

// CheckpointState is a live mid-sale state used as the origin of projections.
// Weights are not carried: they are always taken from the schedule.
type CheckpointState struct {
	TknBalance          float64 `json:"tknBalance"`
	UsdcBalance         float64 `json:"usdcBalance"`
	CommunityTokensHeld float64 `json:"communityTokensHeld"`
	CommunityAvgCost    float64 `json:"communityAvgCost"`
}

// StepSnapshot is the immutable record of one simulation step.
type StepSnapshot struct {
	Index     int     `json:"index"`
	Time      float64 `json:"time"` // hours since sale start
	TimeLabel string  `json:"timeLabel"`
	Price     float64 `json:"price"`

	TknBalance  float64 `json:"tknBalance"`
	UsdcBalance float64 `json:"usdcBalance"`
	TknWeight   float64 `json:"tknWeight"`
	UsdcWeight  float64 `json:"usdcWeight"`

	// TVLUSD is collateral + token balance valued at Price, in collateral units.
	TVLUSD float64 `json:"tvlUsd"`

	CommunityTokensHeld float64 `json:"communityTokensHeld"`
	CommunityAvgCost    float64 `json:"communityAvgCost"`

	BuyVolumeUSDC  float64 `json:"buyVolumeUSDC"`
	BuyVolumeTKN   float64 `json:"buyVolumeTKN"`
	SellVolumeUSDC float64 `json:"sellVolumeUSDC"`
	SellVolumeTKN  float64 `json:"sellVolumeTKN"`
}

// Checkpoint extracts the projection origin from a snapshot.
func (s StepSnapshot) Checkpoint() CheckpointState {
	return CheckpointState{
		TknBalance:          s.TknBalance,
		UsdcBalance:         s.UsdcBalance,
		CommunityTokensHeld: s.CommunityTokensHeld,
		CommunityAvgCost:    s.CommunityAvgCost,
	}
}
