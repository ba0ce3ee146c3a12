package regime

// Label classifies a period's market condition. The engine's contract covers
// NORMAL and DRAWDOWN; additional states can be added without changing the
// blending interface.
type Label string

const (
	Normal   Label = "NORMAL"
	Drawdown Label = "DRAWDOWN"
)

// Trigger policies for combining the drawdown and volatility conditions.
// "or" flags stress when either condition fires; "and" requires both.
const (
	TriggerOr  = "or"
	TriggerAnd = "and"
)
