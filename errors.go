package flatfile

import "errors"

// Error taxonomy shared by both storage engines. Store operations wrap these
// sentinels with context (fmt.Errorf + %w), so callers classify failures with
// errors.Is.
var (
	// ErrInvalidArgument covers bad constructor input, unknown record types
	// and duplicate type registration.
	ErrInvalidArgument = errors.New("invalid argument")

	// ErrIO wraps operating system I/O failures.
	ErrIO = errors.New("i/o failure")

	// ErrCorruptStore means a fixed-slot file whose size is not a multiple
	// of the slot size. All operations fail until the file is fixed
	// externally.
	ErrCorruptStore = errors.New("corrupt store")

	// ErrMalformedLine is a hard parse failure of one text line.
	ErrMalformedLine = errors.New("malformed line")

	// ErrMalformedField means a numeric field whose sign byte is neither
	// '+' nor '-'. It is fatal to the read that hit it, never retried.
	ErrMalformedField = errors.New("malformed field")

	// ErrInvalidDigits means a numeric field whose digit run contains a
	// non-decimal byte.
	ErrInvalidDigits = errors.New("invalid digits")

	// ErrNotSupported means an unregistered type tag was found on read.
	ErrNotSupported = errors.New("not supported")
)
