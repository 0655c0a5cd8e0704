package agent

import "fmt"

// ActionParseError is raised when an executor's raw action string does not
// match the strict action grammar.
type ActionParseError struct {
	Raw string
}

func (e *ActionParseError) Error() string { return fmt.Sprintf("could not parse action: %q", e.Raw) }
func (e *ActionParseError) Name() string  { return "ActionParseError" }

// ElementNotFound is raised when an action references a snapshot element
// id that is absent from the current snapshot.
type ElementNotFound struct {
	ElementID int
}

func (e *ElementNotFound) Error() string {
	return fmt.Sprintf("element id %d not found in current snapshot", e.ElementID)
}
func (e *ElementNotFound) Name() string { return "ElementNotFound" }
