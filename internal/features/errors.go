// ABOUTME: Typed errors for raw-source loading and dataset transformation.
// ABOUTME: Both wrap their cause so errors.Is and errors.As see through them.
package features

import "fmt"

// LoadError reports a raw source that could not be read or aggregated.
type LoadError struct {
	Source string
	Path   string
	Err    error
}

func (e *LoadError) Error() string {
	return fmt.Sprintf("load source %s (%s): %v", e.Source, e.Path, e.Err)
}

func (e *LoadError) Unwrap() error {
	return e.Err
}

// TransformError reports a failure while building or persisting the merged dataset.
type TransformError struct {
	Stage string
	Err   error
}

func (e *TransformError) Error() string {
	return fmt.Sprintf("transform dataset: %s: %v", e.Stage, e.Err)
}

func (e *TransformError) Unwrap() error {
	return e.Err
}
