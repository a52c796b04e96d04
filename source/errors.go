package source

import (
	"fmt"
)

// ErrContainerOpenFailed means the container could not be opened (I/O error, unknown format, etc).
type ErrContainerOpenFailed struct {
	URL string
	Err error
}

func (e ErrContainerOpenFailed) Error() string {
	return fmt.Sprintf("unable to open the container '%s': %v", e.URL, e.Err)
}

func (e ErrContainerOpenFailed) Unwrap() error {
	return e.Err
}

// ErrStreamProbeFailed means the container was opened, but its streams could not be probed.
type ErrStreamProbeFailed struct {
	Err error
}

func (e ErrStreamProbeFailed) Error() string {
	return fmt.Sprintf("unable to probe the stream info: %v", e.Err)
}

func (e ErrStreamProbeFailed) Unwrap() error {
	return e.Err
}

type ErrNoVideoStream struct {
	StreamCount int
}

func (e ErrNoVideoStream) Error() string {
	return fmt.Sprintf("no video stream found among %d streams", e.StreamCount)
}

// ErrDecoderUnavailable means no decoder could be found or opened for the video stream's codec.
type ErrDecoderUnavailable struct {
	Codec string
	Err   error
}

func (e ErrDecoderUnavailable) Error() string {
	return fmt.Sprintf("no usable decoder for codec '%s': %v", e.Codec, e.Err)
}

func (e ErrDecoderUnavailable) Unwrap() error {
	return e.Err
}
