// Package mark5b reads and writes Mark 5B VLBI baseband frames.
//
// # Frame Format
//
// A frame is a 16-byte header followed by a 10000-byte payload, both stored
// as little-endian 32-bit words:
//
//	word 0  sync pattern 0xABADDEED
//	word 1  year(4) user(12) internal_tvg(1) frame_nr(15)
//	word 2  bcd_jday(12) bcd_seconds(20)
//	word 3  bcd_fraction(16) crc(16)
//
// The day counter holds only three decimal digits, so Header.Time takes a
// reference time to choose the 1000-day period. The CRC (polynomial 0x18005)
// covers the 48-bit time code and is recomputed whenever the time code is
// changed through Set or SetTime.
//
// # Payload
//
// Samples of 1 or 2 bits are packed least significant bit first with the
// channel index running fastest. Decoding goes through 256-entry lookup
// tables whose levels match mark5access:
//
//	1 bit: 0 -> -1, 1 -> +1
//	2 bit: 0 -> -3.316505, 1 -> +1, 2 -> -1, 3 -> +3.316505
//
// Decoded data is returned as a *mat.Dense of shape (samples, channels).
//
// # Invalid Frames
//
// A frame flagged invalid decodes to zeros and is written with a payload of
// 0x11223344 words, the same pattern recorders use, so it survives a
// read/write cycle unchanged.
//
// # Usage
//
//	frame, err := mark5b.ReadFrame(fh, mark5b.Format{Channels: 8, BitsPerSample: 2})
//	if err != nil {
//	    return err
//	}
//	start, err := frame.Time(refTime)
//	data := frame.Data()
package mark5b
