package jxl

import (
	"bytes"
	"encoding/binary"
	"fmt"
)

// Box types carrying codestream bytes
const (
	boxCodestream        = "jxlc"
	boxPartialCodestream = "jxlp"
)

// codestream returns the codestream bytes available so far in data, which
// holds a prefix of either a bare codestream or a container. Incomplete
// boxes contribute the bytes present. container reports which form was seen.
// errShortInput means not even the signature could be classified.
func codestream(data []byte) (cs []byte, container bool, err error) {
	switch {
	case len(data) >= len(CodestreamSignature) && bytes.Equal(data[:2], CodestreamSignature):
		return data, false, nil
	case len(data) >= len(ContainerSignature) && bytes.Equal(data[:len(ContainerSignature)], ContainerSignature):
		cs, err := demuxBoxes(data[len(ContainerSignature):])
		return cs, true, err
	case bytes.HasPrefix(CodestreamSignature, data), bytes.HasPrefix(ContainerSignature, data):
		return nil, false, errShortInput
	}
	return nil, false, ErrInvalidFormat
}

// demuxBoxes walks ISOBMFF boxes and concatenates jxlc/jxlp payloads
func demuxBoxes(data []byte) ([]byte, error) {
	var cs []byte
	pos := 0
	for pos < len(data) {
		if len(data)-pos < 8 {
			break
		}
		size := uint64(binary.BigEndian.Uint32(data[pos:]))
		typ := string(data[pos+4 : pos+8])
		headerLen := uint64(8)
		switch size {
		case 0:
			// box runs to the end of the file
			size = uint64(len(data) - pos)
		case 1:
			if len(data)-pos < 16 {
				return cs, nil
			}
			size = binary.BigEndian.Uint64(data[pos+8:])
			headerLen = 16
		}
		if size < headerLen {
			return nil, fmt.Errorf("%w: box %q size %d", ErrInvalidFormat, typ, size)
		}

		start := uint64(pos) + headerLen
		end := uint64(pos) + size
		truncated := end > uint64(len(data))
		if truncated {
			end = uint64(len(data))
		}
		if start > end {
			break
		}
		payload := data[start:end]

		switch typ {
		case boxCodestream:
			cs = append(cs, payload...)
		case boxPartialCodestream:
			// 4-byte sequence index precedes the payload
			if len(payload) < 4 {
				break
			}
			cs = append(cs, payload[4:]...)
		}
		if truncated {
			break
		}
		pos = int(end)
	}
	return cs, nil
}
