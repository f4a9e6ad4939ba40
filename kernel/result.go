package kernel

import "vcrkernel/canon"

// Status is the outcome of one terminal kernel operation.
type Status string

const (
	StatusSuccess Status = "success"
	StatusError   Status = "error"
)

// Result is the structured record the kernel emits to its external
// reporter -- exactly one per terminal operation.
type Result struct {
	Status      Status
	EpochID     uint64
	CPGHash     canon.Hash
	NodeCount   int
	ErrorKind   ErrorKind
	ErrorDetail string
}

// Success builds a success Result.
func Success(epochID uint64, cpgHash canon.Hash, nodeCount int) Result {
	return Result{Status: StatusSuccess, EpochID: epochID, CPGHash: cpgHash, NodeCount: nodeCount}
}

// Failure builds an error Result from a kernel *Error.
func Failure(epochID uint64, err *Error) Result {
	return Result{
		Status:      StatusError,
		EpochID:     epochID,
		ErrorKind:   err.Kind,
		ErrorDetail: err.Error(),
	}
}
