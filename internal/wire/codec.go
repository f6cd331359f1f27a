// Package wire implements the binary layout used to hand a list of search
// results from the producing process to a source application through a
// shared memory region.
//
// The layout is little-endian and tightly packed with no padding:
//
//	int32        resultCount
//	repeat resultCount times:
//	    int32    matchFlags
//	    float64  matchPercentage   (0-1 on the wire, unlike the 0-100
//	                                in-process convention)
//	    float64  componentWeight   (0-1; mixture component/residual only)
//	    int32    nameCharCount     (UTF-16 code units, no terminator)
//	    utf16le  name
//
// Records are variable length and self-describing; there is no terminator or
// padding between records.
package wire

import (
	"encoding/binary"
	"errors"
	"fmt"
	"math"
	"unicode/utf16"

	"github.com/lox/spectral-search-sdk/internal/types"
)

// Result is one record of the transfer buffer. Percentage and weight are
// carried through encode/decode unmodified: the codec does not clamp or
// validate ranges.
type Result struct {
	Flags           types.MatchFlag
	MatchPercentage float64
	ComponentWeight float64
	Name            string
}

var (
	// ErrTruncated is returned when the buffer ends before the declared
	// record count has been read.
	ErrTruncated = errors.New("wire: truncated result buffer")
	// ErrMalformed is returned for buffers that cannot be valid under any
	// truncation, such as negative counts or lengths.
	ErrMalformed = errors.New("wire: malformed result buffer")
)

const (
	countSize  = 4
	headerSize = 4 + 8 + 8 + 4 // flags + percentage + weight + nameCharCount
)

// EncodedSize returns the exact byte size Encode will produce.
func EncodedSize(results []Result) int {
	size := countSize
	for _, r := range results {
		size += headerSize + 2*len(utf16.Encode([]rune(r.Name)))
	}
	return size
}

// Encode serialises results into a fresh buffer.
func Encode(results []Result) []byte {
	buf := make([]byte, 0, EncodedSize(results))
	buf = binary.LittleEndian.AppendUint32(buf, uint32(len(results)))
	for _, r := range results {
		buf = binary.LittleEndian.AppendUint32(buf, uint32(r.Flags))
		buf = binary.LittleEndian.AppendUint64(buf, math.Float64bits(r.MatchPercentage))
		buf = binary.LittleEndian.AppendUint64(buf, math.Float64bits(r.ComponentWeight))
		units := utf16.Encode([]rune(r.Name))
		buf = binary.LittleEndian.AppendUint32(buf, uint32(len(units)))
		for _, u := range units {
			buf = binary.LittleEndian.AppendUint16(buf, u)
		}
	}
	return buf
}

// Decode parses a transfer buffer. It reads exactly the declared number of
// records and ignores any trailing bytes; every read is bounds-checked so a
// truncated buffer is rejected rather than read out of range.
func Decode(buf []byte) ([]Result, error) {
	if len(buf) < countSize {
		return nil, fmt.Errorf("%w: %d bytes, need at least %d for count", ErrTruncated, len(buf), countSize)
	}
	count := int32(binary.LittleEndian.Uint32(buf))
	if count < 0 {
		return nil, fmt.Errorf("%w: negative result count %d", ErrMalformed, count)
	}
	off := countSize

	results := make([]Result, 0, min(int(count), 256))
	for i := int32(0); i < count; i++ {
		if len(buf)-off < headerSize {
			return nil, fmt.Errorf("%w: record %d header at offset %d", ErrTruncated, i, off)
		}
		var r Result
		r.Flags = types.MatchFlag(binary.LittleEndian.Uint32(buf[off:]))
		r.MatchPercentage = math.Float64frombits(binary.LittleEndian.Uint64(buf[off+4:]))
		r.ComponentWeight = math.Float64frombits(binary.LittleEndian.Uint64(buf[off+12:]))
		charCount := int32(binary.LittleEndian.Uint32(buf[off+20:]))
		off += headerSize

		if charCount < 0 {
			return nil, fmt.Errorf("%w: record %d has negative name length %d", ErrMalformed, i, charCount)
		}
		nameBytes := int(charCount) * 2
		if len(buf)-off < nameBytes {
			return nil, fmt.Errorf("%w: record %d name needs %d bytes, %d remain", ErrTruncated, i, nameBytes, len(buf)-off)
		}
		units := make([]uint16, charCount)
		for j := range units {
			units[j] = binary.LittleEndian.Uint16(buf[off+2*j:])
		}
		off += nameBytes
		r.Name = string(utf16.Decode(units))

		results = append(results, r)
	}
	return results, nil
}

// FromSearchResults converts engine results to wire records, translating the
// in-process 0-100 percentage to the wire's 0-1 convention. This is the only
// place the two conventions meet.
func FromSearchResults(results []types.SearchResult) []Result {
	out := make([]Result, len(results))
	for i, r := range results {
		out[i] = Result{
			Flags:           r.Flags,
			MatchPercentage: r.Percentage / 100,
			ComponentWeight: r.ComponentWeight,
			Name:            r.Name,
		}
	}
	return out
}
