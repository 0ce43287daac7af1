package requirement

// Result is the outcome of evaluating a requirement against a metric map.
type Result struct {
	Met      bool    `json:"met"`
	Progress float64 `json:"progress"`
	Target   float64 `json:"target"`
}

// Evaluate walks the requirement tree against the submitted metrics. Missing
// metrics default to 0 for numeric nodes and to not-matching for boolean
// nodes. A nil or unrecognized node yields {false, 0, 0} rather than an
// error: malformed requirements are caught at ingestion, and the evaluator
// fails safe for anything that slips through.
func Evaluate(req Requirement, metrics map[string]float64) Result {
	switch r := req.(type) {
	case Numeric:
		return evaluateNumeric(r, metrics)
	case Boolean:
		return evaluateBoolean(r, metrics)
	case Compound:
		return evaluateCompound(r, metrics)
	default:
		return Result{}
	}
}

func evaluateNumeric(r Numeric, metrics map[string]float64) Result {
	value := metrics[r.Metric]

	var met bool
	switch r.Operator {
	case OpGte:
		met = value >= r.Value
	case OpLte:
		met = value <= r.Value
	case OpEq:
		met = value == r.Value
	case OpGt:
		met = value > r.Value
	case OpLt:
		met = value < r.Value
	default:
		return Result{}
	}

	// Progress is value-relative-to-target for every operator, including
	// lt/lte where lower is better. Counter-intuitive for the decreasing
	// operators, but it is the displayed behavior and must stay.
	var progress float64
	if r.Value == 0 {
		if met {
			progress = 100
		}
	} else {
		progress = clamp(value/r.Value*100, 0, 100)
	}

	return Result{Met: met, Progress: progress, Target: r.Value}
}

func evaluateBoolean(r Boolean, metrics map[string]float64) Result {
	value, ok := metrics[r.Metric]
	met := ok && (value != 0) == r.Expected

	progress := 0.0
	if met {
		progress = 100
	}
	return Result{Met: met, Progress: progress, Target: 1}
}

func evaluateCompound(r Compound, metrics map[string]float64) Result {
	if len(r.Children) == 0 {
		return Result{}
	}

	switch r.Operator {
	case OpAnd:
		met := true
		sum := 0.0
		for _, child := range r.Children {
			res := Evaluate(child, metrics)
			met = met && res.Met
			sum += res.Progress
		}
		// Mean, not minimum: an AND can read high while still unmet.
		return Result{
			Met:      met,
			Progress: clamp(sum/float64(len(r.Children)), 0, 100),
			Target:   float64(len(r.Children)),
		}

	case OpOr:
		met := false
		best := 0.0
		for _, child := range r.Children {
			res := Evaluate(child, metrics)
			met = met || res.Met
			if res.Progress > best {
				best = res.Progress
			}
		}
		return Result{Met: met, Progress: best, Target: 1}

	default:
		return Result{}
	}
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
