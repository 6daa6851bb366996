package dispatch

import "errors"

var (
	// ErrInvalidTool is returned by Register for a tool without a valid name
	// or handler.
	ErrInvalidTool = errors.New("dispatch: invalid tool")

	// ErrDuplicateTool is returned by Register when the name is taken.
	ErrDuplicateTool = errors.New("dispatch: tool already registered")
)
