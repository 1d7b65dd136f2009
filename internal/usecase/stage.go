package usecase

// Stage is the pipeline state machine position.
type Stage int32

const (
	StageIdle Stage = iota
	StageCollecting
	StageCleaning
	StageExtracting
	StageScoring
	StageValidating
	StageStoring
	StageAlerting
)

var stageNames = [...]string{
	StageIdle:       "IDLE",
	StageCollecting: "COLLECTING",
	StageCleaning:   "CLEANING",
	StageExtracting: "EXTRACTING",
	StageScoring:    "SCORING",
	StageValidating: "VALIDATING",
	StageStoring:    "STORING",
	StageAlerting:   "ALERTING",
}

func (s Stage) String() string {
	if s < 0 || int(s) >= len(stageNames) {
		return "UNKNOWN"
	}
	return stageNames[s]
}

// metricLabel is the lowercase name used in metrics labels.
func (s Stage) metricLabel() string {
	switch s {
	case StageCollecting:
		return "collecting"
	case StageCleaning:
		return "cleaning"
	case StageExtracting:
		return "extracting"
	case StageScoring:
		return "scoring"
	case StageValidating:
		return "validating"
	case StageStoring:
		return "storing"
	case StageAlerting:
		return "alerting"
	default:
		return "idle"
	}
}
