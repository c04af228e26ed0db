package console

// State of the chat loop
type State int

const (
	// AwaitingInput waits for the next line of the user
	AwaitingInput State = iota
	// Dispatching sends the conversation to the model
	Dispatching
	// AwaitingToolResult runs the tools requested by the model
	AwaitingToolResult
	// Printing prints the final answer of the model
	Printing
	// Terminated ends the loop
	Terminated
)

var stateNames = map[State]string{
	AwaitingInput:      "AwaitingInput",
	Dispatching:        "Dispatching",
	AwaitingToolResult: "AwaitingToolResult",
	Printing:           "Printing",
	Terminated:         "Terminated",
}

func (s State) String() string {
	if name, ok := stateNames[s]; ok {
		return name
	}
	return "Unknown"
}
