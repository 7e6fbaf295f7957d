package qa

import "fmt"

// ValidationError reports bad caller input. Neither the gateway nor the store
// is touched when it is returned.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

// DependencyFailure wraps a gateway error. Nothing was persisted.
type DependencyFailure struct {
	Err error
}

func (e *DependencyFailure) Error() string {
	return fmt.Sprintf("answering question: %v", e.Err)
}

func (e *DependencyFailure) Unwrap() error {
	return e.Err
}

// StoreOp names the persistence step that failed.
type StoreOp string

const (
	OpSaveQA        StoreOp = "save_qa"
	OpRegisterVideo StoreOp = "register_video"
	OpListQA        StoreOp = "list_qa"
	OpListVideos    StoreOp = "list_videos"
	OpReconcile     StoreOp = "reconcile"
)

// StoreFailure wraps a persistence error together with the step that failed.
type StoreFailure struct {
	Op  StoreOp
	Err error
}

func (e *StoreFailure) Error() string {
	return fmt.Sprintf("store %s: %v", e.Op, e.Err)
}

func (e *StoreFailure) Unwrap() error {
	return e.Err
}

// Partial reports whether the Q&A entry was saved before the failure, i.e.
// only the video registration is missing.
func (e *StoreFailure) Partial() bool {
	return e.Op == OpRegisterVideo
}
