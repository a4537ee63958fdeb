package archive

import (
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/segmentio/ksuid"

	"github.com/ssargent/fbtfile/pkg/chunk"
	"github.com/ssargent/fbtfile/pkg/link"
	"github.com/ssargent/fbtfile/pkg/schema"
)

// Session is one fully parsed and relinked archive.
type Session struct {
	id     ksuid.KSUID
	cfg    Config
	logger *slog.Logger

	header chunk.StreamHeader
	codec  *chunk.Codec
	file   *schema.Compiled
	host   *schema.Compiled
	graph  *link.Graph

	blocks []*Block
	index  *AddressIndex
	stats  Stats
}

// Open reads r to the schema chunk and converts every stored block to the
// layout of cfg.Host. Nothing is usable until Open returns.
func Open(r io.Reader, cfg Config) (*Session, error) {
	if cfg.Host == nil {
		return nil, ErrNoHostSchema
	}
	cfg = cfg.withDefaults()
	if err := cfg.Host.Layout.Validate(); err != nil {
		return nil, fmt.Errorf("host layout: %w", err)
	}

	s := &Session{
		id:    ksuid.New(),
		cfg:   cfg,
		index: NewAddressIndex(0),
	}
	s.logger = cfg.Logger.With("session", s.id.String())

	start := time.Now()
	err := s.parse(r)
	cfg.Metrics.RecordSession(err == nil, time.Since(start))
	if err != nil {
		return nil, err
	}

	s.logger.Info("archive opened",
		"producer", s.header.String(),
		"chunks", s.stats.Chunks,
		"converted", s.stats.Converted,
		"pointer_arrays", s.stats.PointerArrays,
		"unlinked", s.stats.Unlinked,
		"unresolved", s.stats.Unresolved,
		"elapsed", time.Since(start))
	return s, nil
}

func (s *Session) parse(r io.Reader) error {
	cr, err := NewChunkReader(r, s.cfg.Host.Layout, s.cfg.MaxChunkSize)
	if err != nil {
		return err
	}
	s.header = cr.Header()
	s.codec = cr.Codec()
	if s.codec.Swapped() || s.codec.VariableBits() {
		s.logger.Debug("producer layout differs from host",
			"file", s.codec.File.String(), "host", s.codec.Host.String())
	}

	for {
		h, payload, err := cr.ReadNext()
		if err == io.EOF {
			return fmt.Errorf("%w: stream ended after %d chunks", ErrMissingSchema, s.stats.Chunks)
		}
		if err != nil {
			return err
		}
		s.stats.Chunks++
		s.cfg.Metrics.RecordChunk(len(payload))

		switch h.Code {
		case chunk.CodeEnd:
			return fmt.Errorf("%w: end marker after %d chunks", ErrMissingSchema, s.stats.Chunks-1)
		case chunk.CodeSchema:
			if err := s.loadSchema(payload); err != nil {
				return err
			}
			s.relink()
			return nil
		default:
			if err := s.store(h, payload); err != nil {
				return err
			}
		}
	}
}

// store appends a data chunk and indexes it by address. Address zero is
// never the target of a pointer and is not indexed.
func (s *Session) store(h chunk.Header, payload []byte) error {
	b := &Block{Header: h, source: payload}

	if h.Address != 0 {
		existing, ok := s.index.Put(b)
		if !ok {
			if existing.Header == h {
				s.stats.Duplicates++
				s.cfg.Metrics.RecordDuplicate()
				s.logger.Debug("dropping duplicate chunk", "chunk", h.String())
				return nil
			}
			if !s.cfg.AllowConflictingAddresses {
				return fmt.Errorf("%w: %s and %s", ErrDuplicateAddress, existing.Header, h)
			}
			s.stats.Conflicts++
			s.logger.Warn("keeping first of two conflicting chunks",
				"kept", existing.Header.String(), "dropped", h.String())
			return nil
		}
	}

	b.Handle = Handle(len(s.blocks) + 1)
	s.blocks = append(s.blocks, b)
	return nil
}

func (s *Session) loadSchema(blob []byte) error {
	table, err := schema.Parse(blob, s.header.Layout.Order)
	if err != nil {
		return fmt.Errorf("file schema: %w", err)
	}
	file, err := schema.Compile(table, s.header.Layout.PointerSize)
	if err != nil {
		return fmt.Errorf("file schema: %w", err)
	}
	host, err := s.cfg.Host.Compile()
	if err != nil {
		return fmt.Errorf("host schema: %w", err)
	}
	for _, st := range file.Misaligned() {
		s.logger.Warn("file record is misaligned", "record", st.Name(), "declared", st.Size)
	}
	for _, st := range host.Misaligned() {
		s.logger.Warn("host record is misaligned", "record", st.Name(), "declared", st.Size)
	}

	graph, err := link.Compile(file, host)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrLinkFailure, err)
	}

	for _, sl := range graph.Structs {
		for _, fl := range sl.Fields {
			switch {
			case !fl.Linked():
				s.logger.Debug("host field has no file counterpart",
					"record", sl.Ours.Name(), "field", fl.Field.Path)
			case fl.Flags.Has(schema.FlagNeedsCast):
				s.logger.Debug("field changed type",
					"record", sl.Ours.Name(), "field", fl.Field.Path,
					"from", fl.Peer.Type.Name, "to", fl.Field.Type.Name)
			}
		}
	}
	st := graph.Stats()
	s.cfg.Metrics.RecordLinks(st.Linked, st.Missing, st.NeedsCast)
	s.logger.Debug("schemas linked",
		"records", st.Structs, "linked", st.Linked, "missing", st.Missing,
		"cast", st.NeedsCast, "dropped", st.Dropped)

	s.file, s.host, s.graph = file, host, graph
	return nil
}

// ID returns the unique id of this session.
func (s *Session) ID() ksuid.KSUID {
	return s.id
}

// Header returns the producer's stream header.
func (s *Session) Header() chunk.StreamHeader {
	return s.header
}

// Schema returns the compiled schema embedded in the file.
func (s *Session) Schema() *schema.Compiled {
	return s.file
}

// HostSchema returns the compiled host schema.
func (s *Session) HostSchema() *schema.Compiled {
	return s.host
}

// HostLayout returns the layout blocks were converted to.
func (s *Session) HostLayout() chunk.Layout {
	return s.cfg.Host.Layout
}

// Links returns the link graph between file and host schema.
func (s *Session) Links() *link.Graph {
	return s.graph
}

// Stats returns counters gathered while parsing.
func (s *Session) Stats() Stats {
	return s.stats
}

// Blocks returns every stored block in file order.
func (s *Session) Blocks() []*Block {
	return s.blocks
}

// Records returns the converted blocks with the given code in file order.
func (s *Session) Records(code chunk.Code) []*Block {
	var out []*Block
	for _, b := range s.blocks {
		if b.Header.Code == code && b.converted {
			out = append(out, b)
		}
	}
	return out
}

// BlocksByCode returns the converted bytes of every block with the given
// code in file order.
func (s *Session) BlocksByCode(code chunk.Code) [][]byte {
	var out [][]byte
	for _, b := range s.Records(code) {
		out = append(out, b.data)
	}
	return out
}

// ResolvePointer returns the block stored at a producer address, or nil.
// The address is truncated to the narrower of the two pointer widths, the
// same way stored addresses are.
func (s *Session) ResolvePointer(address uint64) *Block {
	return s.resolve(s.codec.Host.Narrow(s.codec.File.Narrow(address)))
}

// Deref returns the block named by h, or nil for the null handle.
func (s *Session) Deref(h Handle) *Block {
	if h == 0 || int(h) > len(s.blocks) {
		return nil
	}
	return s.blocks[h-1]
}

// ReadHandle decodes a converted pointer slot.
func (s *Session) ReadHandle(slot []byte) Handle {
	return Handle(chunk.ReadAddress(slot, s.cfg.Host.Layout))
}

// Handles decodes a converted pointer-array block.
func (s *Session) Handles(b *Block) []Handle {
	if !b.pointerArray {
		return nil
	}
	ptr := s.cfg.Host.Layout.PointerSize
	out := make([]Handle, len(b.data)/ptr)
	for i := range out {
		out[i] = s.ReadHandle(b.data[i*ptr:])
	}
	return out
}

// Field returns the bytes of host field path in element elem of b.
func (s *Session) Field(b *Block, elem int, path string) ([]byte, bool) {
	e := b.Element(elem)
	if e == nil || b.record == nil {
		return nil, false
	}
	f, ok := b.record.FieldByPath(path)
	if !ok || f.Offset+f.Len > len(e) {
		return nil, false
	}
	return e[f.Offset : f.Offset+f.Len], true
}

// Follow dereferences the single pointer field path of element elem of b.
func (s *Session) Follow(b *Block, elem int, path string) *Block {
	slot, ok := s.Field(b, elem, path)
	if !ok || len(slot) < s.cfg.Host.Layout.PointerSize {
		return nil
	}
	return s.Deref(s.ReadHandle(slot))
}

func (s *Session) resolve(address uint64) *Block {
	if address == 0 {
		return nil
	}
	b, _ := s.index.Get(address)
	return b
}

// HostFingerprint identifies the host schema blocks were converted to.
func (s *Session) HostFingerprint() schema.Fingerprint {
	return s.cfg.Host.Fingerprint()
}
