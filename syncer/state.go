package syncer

// State is a step of the sync state machine.
type State int32

const (
	Idle State = iota
	BuildingPayload
	Transmitting
	AdvancingBaseline
)

func (s State) String() string {
	switch s {
	case BuildingPayload:
		return "building_payload"
	case Transmitting:
		return "transmitting"
	case AdvancingBaseline:
		return "advancing_baseline"
	default:
		return "idle"
	}
}
