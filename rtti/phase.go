package rtti

// Phase describes the lifecycle of a registry. Registrations are only allowed
// while Open, queries only once Frozen. The transition is one way.
type Phase uint32

const (
	Open Phase = iota
	Frozen
)

func (p Phase) String() string {
	switch p {
	case Open:
		return "open"
	case Frozen:
		return "frozen"
	default:
		return "invalid"
	}
}
