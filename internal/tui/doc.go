// Package tui provides the interactive terminal chat for the validator.
//
// The chat shows a scrolling transcript above an input field. Founder
// messages are sent to the orchestrator and its reply streams into the
// transcript as it arrives. Three commands are understood:
//   - /new starts a fresh session
//   - /debug toggles the full agent trace (dispatches, inputs, results, timing)
//   - /quit exits
//
// Usage:
//
//	program, app := tui.NewChatProgram(backend, tui.ChatOptions{Debug: debug})
//	if _, err := program.Run(); err != nil {
//	    return err
//	}
//
// Ctrl+C cancels a running turn; pressed again while idle it exits.
package tui
