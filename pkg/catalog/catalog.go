// Package catalog persists converted archive sessions in a Pebble store so
// their records can be listed and read back without the original stream.
//
// Every export gets a KSUID. Its manifest and each converted block are
// stored as CBOR values:
//
//	exports             -> list of export ids, oldest first
//	export/<id>         -> Manifest
//	block/<id>/<handle> -> Entry
package catalog

import (
	"encoding/binary"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/cockroachdb/pebble"
	"github.com/fxamacker/cbor/v2"
	"github.com/segmentio/ksuid"

	"github.com/ssargent/fbtfile/pkg/archive"
	"github.com/ssargent/fbtfile/pkg/metrics"
)

// ManifestVersion is the current manifest format version.
const ManifestVersion = 1

// ErrNotFound is returned for an unknown export id or handle.
var ErrNotFound = errors.New("catalog: not found")

// Manifest describes one exported session.
type Manifest struct {
	Version     int       `json:"version" yaml:"version"`
	ID          string    `json:"id" yaml:"id"`
	Source      string    `json:"source" yaml:"source"`
	Producer    string    `json:"producer" yaml:"producer"`
	HostLayout  string    `json:"host_layout" yaml:"host_layout"`
	Fingerprint []byte    `json:"fingerprint" yaml:"fingerprint"`
	Handles     []uint32  `json:"handles" yaml:"handles"`
	Created     time.Time `json:"created" yaml:"created"`
}

// Entry is one stored block.
type Entry struct {
	Handle       uint32 `json:"handle" yaml:"handle"`
	Code         string `json:"code" yaml:"code"`
	Address      uint64 `json:"address" yaml:"address"`
	Record       string `json:"record,omitempty" yaml:"record,omitempty"`
	Count        int    `json:"count" yaml:"count"`
	PointerArray bool   `json:"pointer_array,omitempty" yaml:"pointer_array,omitempty"`
	Verbatim     bool   `json:"verbatim,omitempty" yaml:"verbatim,omitempty"`
	Data         []byte `json:"data" yaml:"data"`
}

// Options configures a catalog
type Options struct {
	Logger  *slog.Logger
	Metrics *metrics.Metrics
}

// Catalog is a Pebble backed store of exported sessions.
type Catalog struct {
	db      *pebble.DB
	logger  *slog.Logger
	metrics *metrics.Metrics
}

var (
	encMode cbor.EncMode
	decMode cbor.DecMode
)

func init() {
	var err error
	encMode, err = cbor.CoreDetEncOptions().EncMode()
	if err != nil {
		panic("catalog: CBOR encoder initialization failed: " + err.Error())
	}
	decMode, err = cbor.DecOptions{}.DecMode()
	if err != nil {
		panic("catalog: CBOR decoder initialization failed: " + err.Error())
	}
}

// Open opens or creates the catalog in dir.
func Open(dir string, opts Options) (*Catalog, error) {
	db, err := pebble.Open(dir, &pebble.Options{})
	if err != nil {
		return nil, fmt.Errorf("open catalog %s: %w", dir, err)
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Catalog{db: db, logger: logger, metrics: opts.Metrics}, nil
}

// Close closes the underlying store.
func (c *Catalog) Close() error {
	return c.db.Close()
}

var exportsKey = []byte("exports")

func exportKey(id ksuid.KSUID) []byte {
	return append([]byte("export/"), id.Bytes()...)
}

func blockKey(id ksuid.KSUID, handle uint32) []byte {
	key := append([]byte("block/"), id.Bytes()...)
	key = append(key, '/')
	return binary.BigEndian.AppendUint32(key, handle)
}

// Export stores every converted block of s under a new id.
func (c *Catalog) Export(s *archive.Session, source string) (ksuid.KSUID, error) {
	id, err := c.export(s, source)
	c.metrics.RecordCatalogOperation("export", err == nil)
	return id, err
}

func (c *Catalog) export(s *archive.Session, source string) (ksuid.KSUID, error) {
	id := ksuid.New()
	batch := c.db.NewBatch()
	defer batch.Close()

	var handles []uint32
	for _, b := range s.Blocks() {
		if !b.Converted() {
			continue
		}
		e := Entry{
			Handle:       uint32(b.Handle),
			Code:         b.Code().String(),
			Address:      b.Address(),
			Count:        b.Len(),
			PointerArray: b.PointerArray(),
			Verbatim:     b.Verbatim(),
			Data:         b.Data(),
		}
		if rec := b.Record(); rec != nil {
			e.Record = rec.Name()
		}
		if err := c.put(batch, blockKey(id, e.Handle), e); err != nil {
			return ksuid.Nil, err
		}
		handles = append(handles, e.Handle)
	}

	fp := s.HostFingerprint()
	m := Manifest{
		Version:     ManifestVersion,
		ID:          id.String(),
		Source:      source,
		Producer:    s.Header().String(),
		HostLayout:  s.HostLayout().String(),
		Fingerprint: fp[:],
		Handles:     handles,
		Created:     time.Now().UTC().Truncate(time.Second),
	}
	if err := c.put(batch, exportKey(id), m); err != nil {
		return ksuid.Nil, err
	}

	ids, err := c.ids()
	if err != nil {
		return ksuid.Nil, err
	}
	if err := c.put(batch, exportsKey, append(ids, id.String())); err != nil {
		return ksuid.Nil, err
	}

	if err := batch.Commit(pebble.Sync); err != nil {
		return ksuid.Nil, fmt.Errorf("commit export: %w", err)
	}
	c.logger.Info("session exported", "export", id.String(), "session", s.ID().String(), "blocks", len(handles))
	return id, nil
}

// Manifest returns the manifest of one export.
func (c *Catalog) Manifest(id ksuid.KSUID) (*Manifest, error) {
	var m Manifest
	if err := c.get(exportKey(id), &m); err != nil {
		return nil, err
	}
	return &m, nil
}

// List returns every manifest, oldest first.
func (c *Catalog) List() ([]Manifest, error) {
	ids, err := c.ids()
	if err != nil {
		return nil, err
	}
	out := make([]Manifest, 0, len(ids))
	for _, s := range ids {
		id, err := ksuid.Parse(s)
		if err != nil {
			return nil, fmt.Errorf("catalog index: %w", err)
		}
		m, err := c.Manifest(id)
		if err != nil {
			return nil, err
		}
		out = append(out, *m)
	}
	return out, nil
}

// Block returns the block with the given handle from one export.
func (c *Catalog) Block(id ksuid.KSUID, handle uint32) (*Entry, error) {
	var e Entry
	if err := c.get(blockKey(id, handle), &e); err != nil {
		return nil, err
	}
	c.metrics.RecordCatalogOperation("get", true)
	return &e, nil
}

// Blocks returns every block of one export in handle order.
func (c *Catalog) Blocks(id ksuid.KSUID) ([]Entry, error) {
	m, err := c.Manifest(id)
	if err != nil {
		return nil, err
	}
	out := make([]Entry, 0, len(m.Handles))
	for _, h := range m.Handles {
		var e Entry
		if err := c.get(blockKey(id, h), &e); err != nil {
			return nil, fmt.Errorf("export %s block %d: %w", id, h, err)
		}
		out = append(out, e)
	}
	return out, nil
}

// Delete removes one export and its blocks.
func (c *Catalog) Delete(id ksuid.KSUID) error {
	err := c.delete(id)
	c.metrics.RecordCatalogOperation("delete", err == nil)
	return err
}

func (c *Catalog) delete(id ksuid.KSUID) error {
	m, err := c.Manifest(id)
	if err != nil {
		return err
	}
	batch := c.db.NewBatch()
	defer batch.Close()

	for _, h := range m.Handles {
		if err := batch.Delete(blockKey(id, h), nil); err != nil {
			return err
		}
	}
	if err := batch.Delete(exportKey(id), nil); err != nil {
		return err
	}

	ids, err := c.ids()
	if err != nil {
		return err
	}
	kept := ids[:0]
	for _, s := range ids {
		if s != id.String() {
			kept = append(kept, s)
		}
	}
	if err := c.put(batch, exportsKey, kept); err != nil {
		return err
	}
	return batch.Commit(pebble.Sync)
}

func (c *Catalog) ids() ([]string, error) {
	var ids []string
	err := c.get(exportsKey, &ids)
	if errors.Is(err, ErrNotFound) {
		return nil, nil
	}
	return ids, err
}

func (c *Catalog) put(batch *pebble.Batch, key []byte, v any) error {
	data, err := encMode.Marshal(v)
	if err != nil {
		return fmt.Errorf("encode %q: %w", key, err)
	}
	return batch.Set(key, data, nil)
}

func (c *Catalog) get(key []byte, v any) error {
	data, closer, err := c.db.Get(key)
	if errors.Is(err, pebble.ErrNotFound) {
		return ErrNotFound
	}
	if err != nil {
		return err
	}
	defer closer.Close()

	if err := decMode.Unmarshal(data, v); err != nil {
		return fmt.Errorf("decode %q: %w", key, err)
	}
	return nil
}
