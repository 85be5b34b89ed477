package domain

// Stage is one of the ordered client workflow states.
type Stage string

const (
	StageInformationGathering Stage = "information-gathering"
	StageStrategyPreparation  Stage = "strategy-preparation"
	StageInternalApproval     Stage = "internal-approval"
	StageClientApproval       Stage = "client-approval"
)

// Stages lists the workflow stages in order.
var Stages = []Stage{
	StageInformationGathering,
	StageStrategyPreparation,
	StageInternalApproval,
	StageClientApproval,
}

// Index returns the position of s in Stages, or -1.
func (s Stage) Index() int {
	for i, known := range Stages {
		if s == known {
			return i
		}
	}
	return -1
}

// Valid reports whether s is a known stage.
func (s Stage) Valid() bool {
	return s.Index() >= 0
}
