package syncflow

// State is a step of the sync flow.
type State int

// State values.
const (
	Idle State = iota
	AwaitingFileList
	AwaitingDirectory
	AwaitingConfirmation
	Transferring
	Completed
	Cancelled
	Failed
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case AwaitingFileList:
		return "awaiting-file-list"
	case AwaitingDirectory:
		return "awaiting-directory"
	case AwaitingConfirmation:
		return "awaiting-confirmation"
	case Transferring:
		return "transferring"
	case Completed:
		return "completed"
	case Cancelled:
		return "cancelled"
	case Failed:
		return "failed"
	default:
		return "unknown"
	}
}

// Terminal reports whether s ends a flow. A terminal machine accepts a new
// SyncRequested just like an idle one.
func (s State) Terminal() bool {
	return s == Completed || s == Cancelled || s == Failed
}

// Choice is the answer to the "which copy wins" confirmation.
type Choice int

// Choice values.
const (
	ChoiceCancel Choice = iota
	ChoiceReplaceRemote
	ChoiceReplaceLocal
)

func (c Choice) String() string {
	switch c {
	case ChoiceReplaceRemote:
		return "prefer local"
	case ChoiceReplaceLocal:
		return "prefer cloud"
	default:
		return "cancel"
	}
}
