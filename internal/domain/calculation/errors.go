package calculation

import (
	"errors"
	"fmt"
)

var (
	ErrEmptyBatch    = errors.New("batch contains no employees")
	ErrBatchAborted  = errors.New("batch aborted")
	ErrRemoteFailure = errors.New("remote calculation failed")
)

// BatchAbortedError is returned together with the partial result when
// chunk-level failure stops the remaining chunks.
type BatchAbortedError struct {
	BatchID    string
	ChunkIndex int
	Cause      error
}

func (e *BatchAbortedError) Error() string {
	return fmt.Sprintf("batch %s aborted at chunk %d: %v", e.BatchID, e.ChunkIndex, e.Cause)
}

func (e *BatchAbortedError) Unwrap() []error {
	return []error{ErrBatchAborted, e.Cause}
}
