package services

import (
	"errors"
	"fmt"
)

// Pipeline stages, reported back to callers so a retry can regenerate only
// the missing part.
const (
	StageValidation      = "validation"
	StageMetadataReserve = "metadata_reserve"
	StageFileUpload      = "file_upload"
	StageThumbnailUpload = "thumbnail_upload"
	StageFinalize        = "finalize"
)

// ErrValidation tags bad input; it is never retried.
var ErrValidation = errors.New("validation failed")

// ErrInconsistent reports that the blob was stored but the metadata row could
// not be brought to reflect it. The asset itself is safe; a later read or the
// reconciliation sweep surfaces the stale row.
var ErrInconsistent = errors.New("metadata inconsistent with stored blob")

// StageError tags a pipeline failure with the stage it occurred in.
type StageError struct {
	Stage string
	Err   error
}

func (e *StageError) Error() string {
	return fmt.Sprintf("upload failed at stage %s: %v", e.Stage, e.Err)
}

func (e *StageError) Unwrap() error {
	return e.Err
}

func stageErr(stage string, err error) *StageError {
	return &StageError{Stage: stage, Err: err}
}
