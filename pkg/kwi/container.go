// Package kwi implements the KWI binary container: the append-only,
// on-disk vector payload file described in spec.md §4.5 and §6. A
// Container holds the header and the in-memory offset table; the
// underlying OS file is opened and released per operation, never held
// across calls, per spec.md §5.
package kwi

import (
	"encoding/binary"
	"fmt"
	"io"
	"math"
	"os"

	"github.com/google/uuid"

	"github.com/neilthomass/kowari"
)

// magic identifies a KWI file. version is the only format version kowari
// currently understands.
var magic = [4]byte{'K', 'W', 'I', 0}

const (
	version = uint32(1)

	// headerSize is the fixed-width header: 4 (magic) + 4 (version) +
	// 4 (dimension) + 8 (vector count) + 8 (offset-table start) = 28
	// bytes. This repurposes spec.md §3's "8 reserved bytes" to carry
	// the offset table's start offset, per the §9 Open Question
	// resolution (b): the table always lives at the file tail.
	headerSize = 28

	// entrySize is one offset-table row: id (16) + offset (8) +
	// dimension (4) + metadata size (4).
	entrySize = 32
)

// Record is a fully materialized vector payload read back from the
// container.
type Record struct {
	ID       uuid.UUID
	Data     []float32
	Metadata []byte // raw JSON bytes, nil when absent
}

type tableEntry struct {
	id       uuid.UUID
	offset   uint64
	dim      uint32
	metaSize uint32
}

// Container is one open KWI file. It is not safe for concurrent use
// without external synchronization, matching spec.md §5's single-
// threaded-per-collection model.
type Container struct {
	path      string
	dimension uint32

	entries    []tableEntry
	index      map[uuid.UUID]int // id -> position in entries
	payloadEnd uint64            // byte offset one past the last payload
}

// Open opens path, creating a fresh container with the given dimension if
// it doesn't exist. An existing file with a mismatched magic or
// unsupported version is a fatal format error.
func Open(path string, dimension int) (*Container, error) {
	f, err := os.OpenFile(path, os.O_RDWR|os.O_CREATE, 0o644)
	if err != nil {
		return nil, fmt.Errorf("kwi: open %s: %w", path, err)
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return nil, fmt.Errorf("kwi: stat %s: %w", path, err)
	}

	c := &Container{path: path, index: make(map[uuid.UUID]int)}

	if info.Size() == 0 {
		c.dimension = uint32(dimension)
		c.payloadEnd = headerSize
		if err := c.writeHeader(f, 0, headerSize); err != nil {
			return nil, err
		}
		return c, nil
	}

	hdr, err := readHeaderFrom(f)
	if err != nil {
		return nil, err
	}
	c.dimension = hdr.dimension

	entries, err := readOffsetTable(f, hdr.offsetTableStart, hdr.vectorCount)
	if err != nil {
		return nil, err
	}
	c.entries = entries
	c.payloadEnd = hdr.offsetTableStart
	for i, e := range entries {
		c.index[e.id] = i
	}

	return c, nil
}

// Dimension returns the container's declared vector dimension.
func (c *Container) Dimension() int { return int(c.dimension) }

// Count returns the number of live vectors.
func (c *Container) Count() int { return len(c.entries) }

// Add appends a new vector payload and upserts id's offset table entry to
// point at it. The new bytes are always written past the current payload
// end, the offset table is regrown at the new tail, and the header is
// published last so a crash never exposes a header pointing past EOF. When
// id already exists, its old payload becomes reclaimable garbage that
// Optimize sweeps away; the table entry is simply repointed, never
// rewritten in place.
func (c *Container) Add(id uuid.UUID, data []float32, metadata []byte) error {
	if uint32(len(data)) != c.dimension {
		return fmt.Errorf("kwi: dimension mismatch: container is %d, vector is %d", c.dimension, len(data))
	}

	f, err := os.OpenFile(c.path, os.O_RDWR, 0o644)
	if err != nil {
		return fmt.Errorf("kwi: open %s: %w", c.path, err)
	}
	defer f.Close()

	offset := c.payloadEnd
	payloadLen, err := writePayload(f, int64(offset), data, metadata)
	if err != nil {
		return err
	}

	newEntry := tableEntry{id: id, offset: offset, dim: c.dimension, metaSize: uint32(len(metadata))}

	var newEntries []tableEntry
	if pos, exists := c.index[id]; exists {
		newEntries = append([]tableEntry(nil), c.entries...)
		newEntries[pos] = newEntry
	} else {
		newEntries = append(append([]tableEntry(nil), c.entries...), newEntry)
	}
	newPayloadEnd := offset + payloadLen

	if err := c.publish(f, newEntries, newPayloadEnd); err != nil {
		return err
	}

	c.entries = newEntries
	if _, exists := c.index[id]; !exists {
		c.index[id] = len(c.entries) - 1
	}
	c.payloadEnd = newPayloadEnd
	return nil
}

// Get looks up id's offset and reads its payload back.
func (c *Container) Get(id uuid.UUID) (Record, bool, error) {
	pos, ok := c.index[id]
	if !ok {
		return Record{}, false, nil
	}
	entry := c.entries[pos]

	f, err := os.Open(c.path)
	if err != nil {
		return Record{}, false, fmt.Errorf("kwi: open %s: %w", c.path, err)
	}
	defer f.Close()

	rec, err := readPayload(f, int64(entry.offset), entry.dim, entry.metaSize)
	if err != nil {
		return Record{}, false, err
	}
	rec.ID = id
	return rec, true, nil
}

// All materializes every live record, in offset-table order.
func (c *Container) All() ([]Record, error) {
	if len(c.entries) == 0 {
		return nil, nil
	}

	f, err := os.Open(c.path)
	if err != nil {
		return nil, fmt.Errorf("kwi: open %s: %w", c.path, err)
	}
	defer f.Close()

	out := make([]Record, 0, len(c.entries))
	for _, entry := range c.entries {
		rec, err := readPayload(f, int64(entry.offset), entry.dim, entry.metaSize)
		if err != nil {
			return nil, err
		}
		rec.ID = entry.id
		out = append(out, rec)
	}
	return out, nil
}

// Delete removes id's offset entry and decrements the header count. The
// payload bytes are left in place as garbage; only Optimize reclaims
// them. Deleting a missing id is a no-op and reports success, per
// spec.md §7.
func (c *Container) Delete(id uuid.UUID) error {
	pos, ok := c.index[id]
	if !ok {
		return nil
	}

	newEntries := make([]tableEntry, 0, len(c.entries)-1)
	newEntries = append(newEntries, c.entries[:pos]...)
	newEntries = append(newEntries, c.entries[pos+1:]...)

	f, err := os.OpenFile(c.path, os.O_RDWR, 0o644)
	if err != nil {
		return fmt.Errorf("kwi: open %s: %w", c.path, err)
	}
	defer f.Close()

	if err := c.publish(f, newEntries, c.payloadEnd); err != nil {
		return err
	}

	c.entries = newEntries
	delete(c.index, id)
	for i := pos; i < len(c.entries); i++ {
		c.index[c.entries[i].id] = i
	}
	return nil
}

// Optimize compacts the container: it copies every live record into a
// freshly created sibling file via Add (so the new file has no garbage
// between payloads) and atomically renames it over the original. This is
// the only path that reclaims space from deletions, per spec.md §4.5.
func (c *Container) Optimize() error {
	tmpPath := c.path + ".optimize.tmp"
	_ = os.Remove(tmpPath)

	records, err := c.All()
	if err != nil {
		return err
	}

	tmp, err := Open(tmpPath, int(c.dimension))
	if err != nil {
		return fmt.Errorf("kwi: create optimize tmp: %w", err)
	}

	for _, rec := range records {
		if err := tmp.Add(rec.ID, rec.Data, rec.Metadata); err != nil {
			os.Remove(tmpPath)
			return fmt.Errorf("kwi: optimize copy %s: %w", rec.ID, err)
		}
	}

	if err := os.Rename(tmpPath, c.path); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("kwi: optimize rename: %w", err)
	}

	c.entries = tmp.entries
	c.index = tmp.index
	c.payloadEnd = tmp.payloadEnd
	return nil
}

// publish writes entries as the new offset table at tableStart, truncates
// the file to exactly that table's end, and writes the header last (the
// "publish" step of append-then-publish).
func (c *Container) publish(f *os.File, entries []tableEntry, tableStart uint64) error {
	if err := writeOffsetTable(f, tableStart, entries); err != nil {
		return err
	}

	newEnd := tableStart + uint64(len(entries))*entrySize
	if err := f.Truncate(int64(newEnd)); err != nil {
		return fmt.Errorf("kwi: truncate: %w", err)
	}

	if err := c.writeHeader(f, uint64(len(entries)), tableStart); err != nil {
		return err
	}

	return f.Sync()
}

type header struct {
	dimension        uint32
	vectorCount      uint64
	offsetTableStart uint64
}

func (c *Container) writeHeader(f *os.File, count uint64, tableStart uint64) error {
	buf := make([]byte, headerSize)
	copy(buf[0:4], magic[:])
	binary.LittleEndian.PutUint32(buf[4:8], version)
	binary.LittleEndian.PutUint32(buf[8:12], c.dimension)
	binary.LittleEndian.PutUint64(buf[12:20], count)
	binary.LittleEndian.PutUint64(buf[20:28], tableStart)

	if _, err := f.WriteAt(buf, 0); err != nil {
		return fmt.Errorf("kwi: write header: %w", err)
	}
	return nil
}

func readHeaderFrom(f *os.File) (header, error) {
	buf := make([]byte, headerSize)
	if _, err := io.ReadFull(f, buf); err != nil {
		return header{}, fmt.Errorf("kwi: read header: %w", err)
	}

	if [4]byte(buf[0:4]) != magic {
		return header{}, fmt.Errorf("kwi: bad magic in container: %w", kowari.ErrInvalidFormat)
	}
	if v := binary.LittleEndian.Uint32(buf[4:8]); v != version {
		return header{}, fmt.Errorf("kwi: unsupported version %d: %w", v, kowari.ErrInvalidFormat)
	}

	return header{
		dimension:        binary.LittleEndian.Uint32(buf[8:12]),
		vectorCount:      binary.LittleEndian.Uint64(buf[12:20]),
		offsetTableStart: binary.LittleEndian.Uint64(buf[20:28]),
	}, nil
}

func readOffsetTable(f *os.File, start uint64, count uint64) ([]tableEntry, error) {
	if count == 0 {
		return nil, nil
	}

	buf := make([]byte, int(count)*entrySize)
	if _, err := f.ReadAt(buf, int64(start)); err != nil {
		return nil, fmt.Errorf("kwi: read offset table: %w", err)
	}

	entries := make([]tableEntry, count)
	for i := range entries {
		off := i * entrySize
		var id uuid.UUID
		copy(id[:], buf[off:off+16])
		entries[i] = tableEntry{
			id:       id,
			offset:   binary.LittleEndian.Uint64(buf[off+16 : off+24]),
			dim:      binary.LittleEndian.Uint32(buf[off+24 : off+28]),
			metaSize: binary.LittleEndian.Uint32(buf[off+28 : off+32]),
		}
	}
	return entries, nil
}

func writeOffsetTable(f *os.File, start uint64, entries []tableEntry) error {
	buf := make([]byte, len(entries)*entrySize)
	for i, e := range entries {
		off := i * entrySize
		copy(buf[off:off+16], e.id[:])
		binary.LittleEndian.PutUint64(buf[off+16:off+24], e.offset)
		binary.LittleEndian.PutUint32(buf[off+24:off+28], e.dim)
		binary.LittleEndian.PutUint32(buf[off+28:off+32], e.metaSize)
	}

	if _, err := f.WriteAt(buf, int64(start)); err != nil {
		return fmt.Errorf("kwi: write offset table: %w", err)
	}
	return nil
}

// writePayload writes data as dim little-endian float32s, followed by a
// metadata_size u32 and the metadata bytes, at the given offset. It
// returns the number of bytes written.
func writePayload(f *os.File, offset int64, data []float32, metadata []byte) (uint64, error) {
	buf := make([]byte, len(data)*4+4+len(metadata))
	for i, v := range data {
		binary.LittleEndian.PutUint32(buf[i*4:i*4+4], math.Float32bits(v))
	}
	metaOff := len(data) * 4
	binary.LittleEndian.PutUint32(buf[metaOff:metaOff+4], uint32(len(metadata)))
	copy(buf[metaOff+4:], metadata)

	if _, err := f.WriteAt(buf, offset); err != nil {
		return 0, fmt.Errorf("kwi: write payload: %w", err)
	}
	return uint64(len(buf)), nil
}

func readPayload(f *os.File, offset int64, dim uint32, metaSize uint32) (Record, error) {
	buf := make([]byte, int(dim)*4+4+int(metaSize))
	if _, err := f.ReadAt(buf, offset); err != nil {
		return Record{}, fmt.Errorf("kwi: read payload: %w", err)
	}

	data := make([]float32, dim)
	for i := range data {
		data[i] = math.Float32frombits(binary.LittleEndian.Uint32(buf[i*4 : i*4+4]))
	}

	metaOff := int(dim) * 4
	storedSize := binary.LittleEndian.Uint32(buf[metaOff : metaOff+4])
	if storedSize != metaSize {
		return Record{}, fmt.Errorf("kwi: corrupt payload: metadata size mismatch: %w", kowari.ErrInvalidFormat)
	}

	var meta []byte
	if metaSize > 0 {
		meta = make([]byte, metaSize)
		copy(meta, buf[metaOff+4:metaOff+4+int(metaSize)])
	}

	return Record{Data: data, Metadata: meta}, nil
}
