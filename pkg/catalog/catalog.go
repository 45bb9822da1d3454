// Package catalog persists the results of frame-by-frame scans of Mark 5B
// files in a pebble database. Each scan is keyed by a KSUID, so listing
// returns scans in the order they were recorded.
package catalog

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/cockroachdb/pebble"
	"github.com/segmentio/ksuid"
)

var (
	scanPrefix  = []byte("scan/")
	framePrefix = []byte("frame/")
)

// Scan summarizes one pass over a file.
type Scan struct {
	ID        ksuid.KSUID
	Path      string
	Format    string
	Frames    int64
	Invalid   int64 // frames carrying the invalid-data pattern
	BadCRC    int64
	BadTime   int64
	StartTime time.Time
	StopTime  time.Time
}

// OK reports whether every frame passed its checks.
func (s Scan) OK() bool {
	return s.BadCRC == 0 && s.BadTime == 0
}

// Entry records what one frame header said.
type Entry struct {
	Index   int64
	Offset  int64 // byte offset of the frame in the file
	FrameNr uint32
	Time    time.Time
	Valid   bool
	CRCOK   bool
	TimeOK  bool
}

const (
	flagValid = 1 << iota
	flagCRCOK
	flagTimeOK
)

// Catalog is a pebble-backed store of scans. It is safe for concurrent use.
type Catalog struct {
	db *pebble.DB
}

// Open opens or creates the catalog in dir.
func Open(dir string) (*Catalog, error) {
	db, err := pebble.Open(dir, &pebble.Options{})
	if err != nil {
		return nil, fmt.Errorf("failed to open catalog: %w", err)
	}
	return &Catalog{db: db}, nil
}

// Record stores a scan and its entries atomically under a new ID.
func (c *Catalog) Record(scan Scan, entries []Entry) (ksuid.KSUID, error) {
	scan.ID = ksuid.New()

	batch := c.db.NewBatch()
	defer batch.Close()

	if err := batch.Set(scanKey(scan.ID), encodeScan(scan), nil); err != nil {
		return ksuid.Nil, err
	}
	for _, e := range entries {
		if err := batch.Set(frameKey(scan.ID, e.Index), encodeEntry(e), nil); err != nil {
			return ksuid.Nil, err
		}
	}
	if err := batch.Commit(pebble.Sync); err != nil {
		return ksuid.Nil, fmt.Errorf("failed to record scan: %w", err)
	}
	return scan.ID, nil
}

// Scan returns the summary recorded under id.
func (c *Catalog) Scan(id ksuid.KSUID) (Scan, error) {
	data, closer, err := c.db.Get(scanKey(id))
	if errors.Is(err, pebble.ErrNotFound) {
		return Scan{}, fmt.Errorf("%w: %s", ErrScanNotFound, id)
	}
	if err != nil {
		return Scan{}, err
	}
	defer closer.Close()

	return decodeScan(id, data)
}

// Frames returns the entries of scan id in frame order.
func (c *Catalog) Frames(id ksuid.KSUID) ([]Entry, error) {
	if _, err := c.Scan(id); err != nil {
		return nil, err
	}
	prefix := append(append([]byte{}, framePrefix...), id.Bytes()...)
	var entries []Entry
	err := c.each(prefix, func(key, value []byte) error {
		e, err := decodeEntry(value)
		if err != nil {
			return err
		}
		e.Index = int64(binary.BigEndian.Uint64(key[len(prefix):]))
		entries = append(entries, e)
		return nil
	})
	return entries, err
}

// List returns every scan, oldest first.
func (c *Catalog) List() ([]Scan, error) {
	var scans []Scan
	err := c.each(scanPrefix, func(key, value []byte) error {
		id, err := ksuid.FromBytes(key[len(scanPrefix):])
		if err != nil {
			return fmt.Errorf("%w: %v", ErrCorruptRecord, err)
		}
		scan, err := decodeScan(id, value)
		if err != nil {
			return err
		}
		scans = append(scans, scan)
		return nil
	})
	return scans, err
}

// Delete removes scan id and its entries.
func (c *Catalog) Delete(id ksuid.KSUID) error {
	if _, err := c.Scan(id); err != nil {
		return err
	}
	prefix := append(append([]byte{}, framePrefix...), id.Bytes()...)

	batch := c.db.NewBatch()
	defer batch.Close()
	if err := batch.DeleteRange(prefix, prefixEnd(prefix), nil); err != nil {
		return err
	}
	if err := batch.Delete(scanKey(id), nil); err != nil {
		return err
	}
	return batch.Commit(pebble.Sync)
}

// Close closes the database.
func (c *Catalog) Close() error {
	return c.db.Close()
}

func (c *Catalog) each(prefix []byte, fn func(key, value []byte) error) error {
	iter, err := c.db.NewIter(&pebble.IterOptions{
		LowerBound: prefix,
		UpperBound: prefixEnd(prefix),
	})
	if err != nil {
		return err
	}
	for iter.First(); iter.Valid(); iter.Next() {
		if err := fn(iter.Key(), iter.Value()); err != nil {
			iter.Close()
			return err
		}
	}
	return iter.Close()
}

func scanKey(id ksuid.KSUID) []byte {
	return append(append([]byte{}, scanPrefix...), id.Bytes()...)
}

func frameKey(id ksuid.KSUID, index int64) []byte {
	key := append(append([]byte{}, framePrefix...), id.Bytes()...)
	return binary.BigEndian.AppendUint64(key, uint64(index))
}

// prefixEnd returns the smallest key greater than every key with prefix.
func prefixEnd(prefix []byte) []byte {
	end := append([]byte{}, prefix...)
	for i := len(end) - 1; i >= 0; i-- {
		end[i]++
		if end[i] != 0 {
			return end[:i+1]
		}
	}
	return nil
}

func encodeScan(s Scan) []byte {
	var buf bytes.Buffer
	writeString(&buf, s.Path)
	writeString(&buf, s.Format)
	binary.Write(&buf, binary.BigEndian, []int64{
		s.Frames, s.Invalid, s.BadCRC, s.BadTime,
		unixNano(s.StartTime), unixNano(s.StopTime),
	})
	return buf.Bytes()
}

func decodeScan(id ksuid.KSUID, data []byte) (Scan, error) {
	r := bytes.NewReader(data)
	s := Scan{ID: id}
	var err error
	if s.Path, err = readString(r); err != nil {
		return Scan{}, err
	}
	if s.Format, err = readString(r); err != nil {
		return Scan{}, err
	}
	counts := make([]int64, 6)
	if err := binary.Read(r, binary.BigEndian, counts); err != nil {
		return Scan{}, fmt.Errorf("%w: scan %s: %v", ErrCorruptRecord, id, err)
	}
	s.Frames, s.Invalid, s.BadCRC, s.BadTime = counts[0], counts[1], counts[2], counts[3]
	s.StartTime = fromUnixNano(counts[4])
	s.StopTime = fromUnixNano(counts[5])
	return s, nil
}

// entrySize is offset, frame_nr, time and flags.
const entrySize = 8 + 4 + 8 + 1

func encodeEntry(e Entry) []byte {
	buf := make([]byte, 0, entrySize)
	buf = binary.BigEndian.AppendUint64(buf, uint64(e.Offset))
	buf = binary.BigEndian.AppendUint32(buf, e.FrameNr)
	buf = binary.BigEndian.AppendUint64(buf, uint64(unixNano(e.Time)))
	var flags byte
	if e.Valid {
		flags |= flagValid
	}
	if e.CRCOK {
		flags |= flagCRCOK
	}
	if e.TimeOK {
		flags |= flagTimeOK
	}
	return append(buf, flags)
}

func decodeEntry(data []byte) (Entry, error) {
	if len(data) != entrySize {
		return Entry{}, fmt.Errorf("%w: frame entry of %d bytes", ErrCorruptRecord, len(data))
	}
	flags := data[20]
	return Entry{
		Offset:  int64(binary.BigEndian.Uint64(data[0:8])),
		FrameNr: binary.BigEndian.Uint32(data[8:12]),
		Time:    fromUnixNano(int64(binary.BigEndian.Uint64(data[12:20]))),
		Valid:   flags&flagValid != 0,
		CRCOK:   flags&flagCRCOK != 0,
		TimeOK:  flags&flagTimeOK != 0,
	}, nil
}

// unixNano stores the zero time, used for headers that could not be
// decoded, as 0.
func unixNano(t time.Time) int64 {
	if t.IsZero() {
		return 0
	}
	return t.UnixNano()
}

func fromUnixNano(n int64) time.Time {
	if n == 0 {
		return time.Time{}
	}
	return time.Unix(0, n).UTC()
}

func writeString(buf *bytes.Buffer, s string) {
	binary.Write(buf, binary.BigEndian, uint16(len(s)))
	buf.WriteString(s)
}

func readString(r *bytes.Reader) (string, error) {
	var n uint16
	if err := binary.Read(r, binary.BigEndian, &n); err != nil {
		return "", fmt.Errorf("%w: %v", ErrCorruptRecord, err)
	}
	b := make([]byte, n)
	if _, err := io.ReadFull(r, b); err != nil {
		return "", fmt.Errorf("%w: %v", ErrCorruptRecord, err)
	}
	return string(b), nil
}

// Errors
var (
	ErrScanNotFound  = &CatalogError{"scan not found"}
	ErrCorruptRecord = &CatalogError{"corrupt catalog record"}
)

// CatalogError represents a catalog error
type CatalogError struct {
	Message string
}

func (e *CatalogError) Error() string {
	return e.Message
}
