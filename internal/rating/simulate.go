package rating

// SimulationResult is the outcome of a what-if match.
type SimulationResult struct {
	Probability1 float64
	Probability2 float64

	Ratings1 []int
	Ratings2 []int

	// Deltas are new minus old ratings.
	Deltas1 []int
	Deltas2 []int
}

// Simulate previews a match without persisting anything, a zero Factor
// stands for a regular match (1).
func (rs Ruleset) Simulate(in CoopInput) (SimulationResult, error) {
	if in.Factor == 0 {
		in.Factor = 1
	}
	if in.Matches1 == nil {
		in.Matches1 = make([]int, len(in.Ratings1))
	}
	if in.Matches2 == nil {
		in.Matches2 = make([]int, len(in.Ratings2))
	}

	new1, new2, err := rs.Aggregate(in)
	if err != nil {
		return SimulationResult{}, err
	}

	// Weights were validated by Aggregate.
	weights1, _ := Weights(len(in.Ratings1), in.Players1)
	weights2, _ := Weights(len(in.Ratings2), in.Players2)
	p1, p2, err := WinProbability(average(in.Ratings1, weights1), average(in.Ratings2, weights2))
	if err != nil {
		return SimulationResult{}, err
	}

	return SimulationResult{
		Probability1: p1,
		Probability2: p2,
		Ratings1:     new1,
		Ratings2:     new2,
		Deltas1:      deltas(in.Ratings1, new1),
		Deltas2:      deltas(in.Ratings2, new2),
	}, nil
}

func deltas(before, after []int) []int {
	ret := make([]int, len(before))
	for k := range before {
		ret[k] = after[k] - before[k]
	}

	return ret
}
