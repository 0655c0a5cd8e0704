package snapshot

import "fmt"

// ExtensionNotLoadedError is raised when the extension bridge has not
// injected a snapshot() function within the acquire-phase poll budget. It
// carries the diagnostics harvested by the probe script.
type ExtensionNotLoadedError struct {
	Diagnostics Probe
}

func (e *ExtensionNotLoadedError) Error() string {
	return fmt.Sprintf("snapshot: extension not loaded at %s (defined=%v available=%v)",
		e.Diagnostics.URL, e.Diagnostics.Defined, e.Diagnostics.SnapshotAvailable)
}

func (e *ExtensionNotLoadedError) Name() string { return "ExtensionNotLoadedError" }

// SnapshotError is raised when the extension call completed but returned
// no usable result.
type SnapshotError struct {
	URL string
	Err error
}

func (e *SnapshotError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("snapshot: acquisition failed at %s: %v", e.URL, e.Err)
	}
	return fmt.Sprintf("snapshot: acquisition returned no result at %s", e.URL)
}

func (e *SnapshotError) Unwrap() error { return e.Err }
func (e *SnapshotError) Name() string  { return "SnapshotError" }
