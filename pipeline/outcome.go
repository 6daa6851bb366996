package pipeline

// Action is the control decision of a hook.
type Action int

const (
	// ActionContinue proceeds to the next hook or the handler.
	ActionContinue Action = iota
	// ActionStop ends execution with Outcome.Result.
	ActionStop
	// ActionFail ends execution with Outcome.Err.
	ActionFail
)

func (a Action) String() string {
	switch a {
	case ActionContinue:
		return "continue"
	case ActionStop:
		return "stop"
	case ActionFail:
		return "fail"
	default:
		return "unknown"
	}
}

// Outcome is the value every hook returns.
type Outcome struct {
	Action Action
	Result *Result
	Err    error
}

// Continue proceeds normally.
func Continue() Outcome {
	return Outcome{Action: ActionContinue}
}

// Stop ends execution and returns result to the caller.
func Stop(result *Result) Outcome {
	return Outcome{Action: ActionStop, Result: result}
}

// Fail ends execution and returns err to the caller.
func Fail(err error) Outcome {
	return Outcome{Action: ActionFail, Err: err}
}
