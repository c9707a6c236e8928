package blind

// Level is one step of a blind schedule. Hands is how many hands are played
// at this level before escalating; a non-positive value means the level never
// ends.
type Level struct {
	Level int   `json:"level"`
	SB    int64 `json:"sb"`
	BB    int64 `json:"bb"`
	Ante  int64 `json:"ante"`
	Hands int   `json:"hands"`
}

// Clock tracks blind escalation across hands. A nil or empty schedule pins
// the table to its configured blinds forever.
type Clock struct {
	levels       []Level
	currentIdx   int
	handsAtLevel int
}

// NewClock builds a clock over the given schedule. Level numbers are
// normalized to 1..n in schedule order.
func NewClock(levels []Level) *Clock {
	normalized := make([]Level, len(levels))
	copy(normalized, levels)
	for i := range normalized {
		normalized[i].Level = i + 1
	}
	return &Clock{
		levels: normalized,
	}
}

// Current returns the active level. An empty schedule returns a zero Level.
func (c *Clock) Current() Level {
	if len(c.levels) == 0 {
		return Level{}
	}
	if c.currentIdx >= len(c.levels) {
		return c.levels[len(c.levels)-1]
	}
	return c.levels[c.currentIdx]
}

// HandsRemaining returns how many hands remain at the current level, or -1
// when the level never ends.
func (c *Clock) HandsRemaining() int {
	cur := c.Current()
	if cur.Hands <= 0 {
		return -1
	}
	remaining := cur.Hands - c.handsAtLevel
	if remaining < 0 {
		return 0
	}
	return remaining
}

// AdvanceHand records one completed hand and reports whether the blinds
// escalated as a result.
func (c *Clock) AdvanceHand() bool {
	if len(c.levels) == 0 {
		return false
	}

	c.handsAtLevel++

	cur := c.levels[c.currentIdx]
	if cur.Hands <= 0 || c.handsAtLevel < cur.Hands {
		return false
	}
	if c.currentIdx+1 >= len(c.levels) {
		return false
	}

	c.currentIdx++
	c.handsAtLevel = 0
	return true
}

// IsFinalLevel reports whether no further escalation is possible.
func (c *Clock) IsFinalLevel() bool {
	return c.currentIdx+1 >= len(c.levels)
}

// DefaultSitAndGoLevels is a conventional short-structure schedule used when
// a sit-n-go table does not supply its own.
func DefaultSitAndGoLevels() []Level {
	return []Level{
		{SB: 10, BB: 20, Hands: 10},
		{SB: 15, BB: 30, Hands: 10},
		{SB: 25, BB: 50, Hands: 10},
		{SB: 50, BB: 100, Hands: 10},
		{SB: 100, BB: 200, Hands: 10},
	}
}
