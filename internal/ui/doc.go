// Package ui is the Bubble Tea terminal interface for notebook.
//
// The model polls the sync session and the notes store on a fixed tick and
// renders a status header, a summary of note lists, the tail of the JSON
// log and a command bar. Key presses run session operations as tea.Cmds so
// the render loop never blocks on disk or on the user.
//
// Directory selection goes through Picker: the session calls
// PickDirectory from a command goroutine, the picker sends a request
// message into the program, the model shows a text input overlay and the
// answer travels back on a reply channel.
package ui
