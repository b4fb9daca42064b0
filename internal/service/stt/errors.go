package stt

import (
	"errors"
	"fmt"
)

// Stage names the protocol step that failed.
type Stage string

const (
	StageUpload Stage = "upload"
	StageSubmit Stage = "submit"
	StageJob    Stage = "job"
)

var (
	ErrUploadFailed        = errors.New("audio upload failed")
	ErrJobSubmissionFailed = errors.New("transcription job submission failed")
	ErrTranscriptionFailed = errors.New("transcription failed")
)

// TranscriptionError reports a failed segment. It is scoped to one segment;
// the session continues and the segment's slot stays empty.
type TranscriptionError struct {
	Stage        Stage
	SegmentIndex int
	Err          error
}

func (e *TranscriptionError) Error() string {
	return fmt.Sprintf("segment %d: %s stage: %v", e.SegmentIndex, e.Stage, e.Err)
}

func (e *TranscriptionError) Unwrap() error {
	return e.Err
}

// Is matches the sentinel that corresponds to the failed stage.
func (e *TranscriptionError) Is(target error) bool {
	switch e.Stage {
	case StageUpload:
		return target == ErrUploadFailed
	case StageSubmit:
		return target == ErrJobSubmissionFailed
	case StageJob:
		return target == ErrTranscriptionFailed
	}
	return false
}

func newError(stage Stage, index int, err error) *TranscriptionError {
	return &TranscriptionError{Stage: stage, SegmentIndex: index, Err: err}
}
