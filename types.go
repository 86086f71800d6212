package speckit

// Stage is a step of the analysis pipeline.
type Stage int

const (
	StagePending Stage = iota
	StageNormalizing
	StageDerivingRequirements
	StageLabeling
	StageComputingMetrics
	StageComplete
)

func (s Stage) String() string {
	switch s {
	case StagePending:
		return "pending"
	case StageNormalizing:
		return "normalizing"
	case StageDerivingRequirements:
		return "deriving-requirements"
	case StageLabeling:
		return "labeling"
	case StageComputingMetrics:
		return "computing-metrics"
	case StageComplete:
		return "complete"
	}

	return "unknown"
}

// Event reports a finished stage. Counts describe the state after that stage; Result is only set
// on the complete event.
type Event struct {
	Stage        Stage
	Sources      int
	Events       int
	Requirements int
	Labels       int
	Result       *Result
}
