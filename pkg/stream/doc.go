// Package stream reads and writes files of consecutive Mark 5B frames as one
// continuous sample stream.
//
// A Reader decodes frames on demand and keeps the most recent one cached, so
// sequential reads touch each frame once. The cursor counts samples from the
// start of the file and can be moved by sample or by time:
//
//	r, err := stream.NewReader(stream.ReaderConfig{
//		FilePath:   "scan.m5b",
//		Format:     mark5b.Format{Channels: 8, BitsPerSample: 2},
//		SampleRate: 32e6,
//		RefTime:    time.Date(2014, 6, 1, 0, 0, 0, 0, time.UTC),
//	})
//	if err != nil {
//		return err
//	}
//	defer r.Close()
//	data, err := r.Read(20000) // (20000, 8) matrix
//
// A Writer accepts samples in any chunking and emits a frame each time one is
// full. Headers after the first follow from the start time and sample rate.
package stream
