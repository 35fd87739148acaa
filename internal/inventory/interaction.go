package inventory

// InteractionKind tells the presentation how to show a prompt.
type InteractionKind int

const (
	// InteractionAlert is informational and needs no answer.
	InteractionAlert InteractionKind = iota
	// InteractionConfirm asks for ConfirmDelete or CancelDelete.
	InteractionConfirm
)

func (k InteractionKind) String() string {
	if k == InteractionConfirm {
		return "confirm"
	}
	return "alert"
}

// Interaction is a prompt waiting for the user.
type Interaction struct {
	Kind    InteractionKind
	Message string
}

// slot holds at most one pending interaction. Posting into a full slot
// replaces the waiting prompt with the new one.
type slot struct {
	ch chan Interaction
}

func newSlot() *slot {
	return &slot{ch: make(chan Interaction, 1)}
}

// post is called with the controller mutex held so that drain and send
// cannot interleave between two posters.
func (s *slot) post(i Interaction) {
	select {
	case <-s.ch:
	default:
	}
	s.ch <- i
}
