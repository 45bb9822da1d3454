package catalog

import (
	"time"

	"github.com/ssargent/baseband/pkg/logging"
	"github.com/ssargent/baseband/pkg/stream"
)

// Survey walks every frame of r and checks its CRC and time against the
// frame's position. r should be opened without Verify, otherwise the walk
// stops at the first bad frame.
func Survey(r *stream.Reader, path string) (Scan, []Entry, error) {
	scan := Scan{
		Path:      path,
		Format:    r.Info().Format,
		Frames:    r.Frames(),
		StartTime: r.StartTime(),
		StopTime:  r.StopTime(),
	}
	entries := make([]Entry, 0, r.Frames())

	it := r.Iterator()
	defer it.Close()
	for it.Next() {
		frame := it.Frame()
		e := Entry{
			Index:   it.Index(),
			Offset:  it.Index() * int64(frame.Size()),
			FrameNr: frame.Header.FrameNr(),
			Valid:   frame.Valid,
			CRCOK:   frame.Header.CheckCRC(),
		}
		if t, err := frame.Header.Time(r.StartTime()); err == nil {
			e.Time = t
			diff := t.Sub(r.FrameTime(e.Index))
			e.TimeOK = diff >= -time.Nanosecond && diff <= time.Nanosecond
		}

		if !e.Valid {
			scan.Invalid++
		}
		if !e.CRCOK {
			scan.BadCRC++
		}
		if !e.TimeOK {
			scan.BadTime++
		}
		entries = append(entries, e)
	}
	if err := it.Err(); err != nil {
		return Scan{}, nil, err
	}
	logging.Debugf("catalog: surveyed %d frames of %s, %d bad CRC, %d bad time", len(entries), path, scan.BadCRC, scan.BadTime)
	return scan, entries, nil
}
