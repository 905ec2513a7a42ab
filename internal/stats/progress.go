package stats

// Tier classifies progress towards a daily goal.
type Tier int

const (
	TierBehind Tier = iota
	TierHalfway
	TierReached
)

func (t Tier) String() string {
	switch t {
	case TierReached:
		return "reached"
	case TierHalfway:
		return "halfway"
	default:
		return "behind"
	}
}

// Progress is the state of today's goal.
type Progress struct {
	Done      int
	Goal      int
	Fraction  float64
	Remaining int
	Tier      Tier
}

// GoalProgress compares studied minutes to a goal. Fraction is capped at 1;
// a non-positive goal counts as reached.
func GoalProgress(done, goal int) Progress {
	p := Progress{Done: done, Goal: goal}
	if goal <= 0 {
		p.Fraction = 1
		p.Tier = TierReached
		return p
	}
	p.Fraction = float64(done) / float64(goal)
	if p.Fraction > 1 {
		p.Fraction = 1
	}
	if done < goal {
		p.Remaining = goal - done
	}
	switch {
	case p.Fraction >= 1:
		p.Tier = TierReached
	case p.Fraction >= 0.5:
		p.Tier = TierHalfway
	default:
		p.Tier = TierBehind
	}
	return p
}
