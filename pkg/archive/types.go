package archive

import (
	"log/slog"

	"github.com/ssargent/fbtfile/pkg/metrics"
	"github.com/ssargent/fbtfile/pkg/schema"
)

// DefaultMaxChunkSize bounds a single chunk payload unless Config overrides it.
const DefaultMaxChunkSize = 1 << 30

// DefaultLinkNodeType is the host record type whose blocks are copied
// without conversion.
const DefaultLinkNodeType = "Link"

// Config holds configuration for opening an archive
type Config struct {
	// Host is the schema the caller wants records converted to. Required.
	Host *schema.Host

	// AllowConflictingAddresses keeps the first of two chunks that share an
	// address but differ in their headers instead of failing the parse.
	AllowConflictingAddresses bool

	MaxChunkSize uint32 // 0 = DefaultMaxChunkSize
	LinkNodeType string // "" = DefaultLinkNodeType

	Logger  *slog.Logger     // nil = slog.Default()
	Metrics *metrics.Metrics // optional
}

func (c Config) withDefaults() Config {
	if c.MaxChunkSize == 0 {
		c.MaxChunkSize = DefaultMaxChunkSize
	}
	if c.LinkNodeType == "" {
		c.LinkNodeType = DefaultLinkNodeType
	}
	if c.Logger == nil {
		c.Logger = slog.Default()
	}
	return c
}

// WriterConfig holds configuration for the archive writer
type WriterConfig struct {
	Tag     string // 7 byte producer tag, "" = "FBTFILE"
	Version int    // 0..999
	Host    *schema.Host
}

// DefaultTag is written when WriterConfig.Tag is empty.
const DefaultTag = "FBTFILE"

// Handle names a block within one Session. Converted pointer slots hold
// handles rather than addresses; 0 is the null handle.
type Handle uint32

// Stats summarises one parse.
type Stats struct {
	Chunks        int
	Duplicates    int
	Conflicts     int
	Converted     int
	PointerArrays int
	Verbatim      int
	Unlinked      int
	Unresolved    int
}

// Errors
var (
	ErrMalformedHeader  = &Error{"malformed stream header"}
	ErrMalformedChunk   = &Error{"malformed chunk"}
	ErrAllocation       = &Error{"chunk exceeds size limit"}
	ErrDuplicateAddress = &Error{"conflicting chunks share an address"}
	ErrLinkFailure      = &Error{"file schema cannot be linked to the host schema"}
	ErrMissingSchema    = &Error{"stream has no schema chunk"}
	ErrNoHostSchema     = &Error{"no host schema configured"}
	ErrWriterClosed     = &Error{"writer is closed"}
	ErrUnknownRecord    = &Error{"record type not in host schema"}
)

// Error represents an archive error
type Error struct {
	Message string
}

func (e *Error) Error() string {
	return e.Message
}
