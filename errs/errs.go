// Package errs defines the error taxonomy shared by every stage of the
// pipeline: atom scanning, moov parsing, sample indexing, segment
// selection, and request dispatch.
package errs

import "fmt"

// Kind classifies why a request failed, per the error handling design.
type Kind int

const (
	// TruncatedBox means a box header or table ran past the end of the
	// available bytes.
	TruncatedBox Kind = iota
	// MalformedBox means a box's declared size or entry count is
	// self-contradictory (e.g. size < 8, or count*entrySize > body size).
	MalformedBox
	// UnsupportedCodec means a sample description names a codec this
	// module does not packetise.
	UnsupportedCodec
	// NoMovieOrMedia means the source is missing a required part: a
	// top-level moov or mdat box, the movie timescale, any track, a video
	// track, or a track's stsc or chunk-offset table.
	NoMovieOrMedia
	// SegmentNotFound means a requested segment ordinal or sample index
	// is out of range.
	SegmentNotFound
	// BadRequest means the query string could not be parsed.
	BadRequest
	// IoFailure means the underlying file read failed.
	IoFailure
)

func (k Kind) String() string {
	switch k {
	case TruncatedBox:
		return "TruncatedBox"
	case MalformedBox:
		return "MalformedBox"
	case UnsupportedCodec:
		return "UnsupportedCodec"
	case NoMovieOrMedia:
		return "NoMovieOrMedia"
	case SegmentNotFound:
		return "SegmentNotFound"
	case BadRequest:
		return "BadRequest"
	case IoFailure:
		return "IoFailure"
	default:
		return "Unknown"
	}
}

// StatusCode maps a Kind to its HTTP-equivalent exit code, per the error
// handling policy: BadRequest/SegmentNotFound -> 404, the source-defect
// kinds -> 415, IoFailure -> 500.
func (k Kind) StatusCode() int {
	switch k {
	case BadRequest, SegmentNotFound:
		return 404
	case TruncatedBox, MalformedBox, UnsupportedCodec, NoMovieOrMedia:
		return 415
	case IoFailure:
		return 500
	default:
		return 500
	}
}

// Error is the module's sole error type. Box and Offset are best-effort
// diagnostic context and are zero when not applicable.
type Error struct {
	Kind   Kind
	Box    string // FourCC of the offending box, if known
	Offset int64  // byte offset of the offending box, if known; -1 if unknown
	Err    error  // wrapped cause, if any
}

func (e *Error) Error() string {
	switch {
	case e.Box != "" && e.Offset >= 0 && e.Err != nil:
		return fmt.Sprintf("%s: box=%q offset=%d: %v", e.Kind, e.Box, e.Offset, e.Err)
	case e.Box != "" && e.Offset >= 0:
		return fmt.Sprintf("%s: box=%q offset=%d", e.Kind, e.Box, e.Offset)
	case e.Err != nil:
		return fmt.Sprintf("%s: %v", e.Kind, e.Err)
	default:
		return e.Kind.String()
	}
}

func (e *Error) Unwrap() error { return e.Err }

// New builds a bare Error with no box/offset context.
func New(kind Kind, err error) *Error {
	return &Error{Kind: kind, Offset: -1, Err: err}
}

// At builds an Error with box/offset diagnostic context.
func At(kind Kind, box string, offset int64, err error) *Error {
	return &Error{Kind: kind, Box: box, Offset: offset, Err: err}
}

// StatusCode returns the HTTP-equivalent status for any error. Errors not
// produced by this package map to 500, matching IoFailure's fallback.
func StatusCode(err error) int {
	var e *Error
	if As(err, &e) {
		return e.Kind.StatusCode()
	}
	return 500
}

// As walks err's single-error Unwrap chain and stores the first *Error it
// finds in target, so callers don't need a second import just to unwrap an
// *Error.
func As(err error, target **Error) bool {
	for err != nil {
		if e, ok := err.(*Error); ok {
			*target = e
			return true
		}
		u, ok := err.(interface{ Unwrap() error })
		if !ok {
			return false
		}
		err = u.Unwrap()
	}
	return false
}
