package processor

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"io"

	"github.com/klauspost/compress/zlib"
)

const (
	// 65535 segment limit minus the length field and the 14-byte header.
	iccChunkSize  = 65535 - 2 - 14
	maxICCProfile = 16 << 20
)

var (
	iccMarker = []byte("ICC_PROFILE\x00")
	pngMagic  = []byte("\x89PNG\r\n\x1a\n")

	errProfileTooLarge = errors.New("icc profile too large")
)

func extractICC(format string, buf []byte) ([]byte, error) {
	switch format {
	case "jpeg":
		return jpegICC(buf), nil
	case "png":
		return pngICC(buf)
	case "webp":
		return webpICC(buf), nil
	}
	return nil, nil
}

// jpegICC reassembles the APP2 ICC_PROFILE chunks. Incomplete or
// inconsistent chunk sets are treated as no profile.
func jpegICC(buf []byte) []byte {
	if len(buf) < 4 || buf[0] != 0xFF || buf[1] != 0xD8 {
		return nil
	}

	var (
		chunks [][]byte
		total  int
	)

	pos := 2
	for pos+4 <= len(buf) {
		if buf[pos] != 0xFF {
			break
		}

		marker := buf[pos+1]
		switch {
		case marker == 0xFF:
			pos++
			continue
		case marker == 0x01 || (marker >= 0xD0 && marker <= 0xD8):
			pos += 2
			continue
		case marker == 0xDA || marker == 0xD9:
			pos = len(buf)
			continue
		}

		length := int(binary.BigEndian.Uint16(buf[pos+2:]))
		if length < 2 || pos+2+length > len(buf) {
			break
		}

		seg := buf[pos+4 : pos+2+length]
		if marker == 0xE2 && len(seg) > len(iccMarker)+2 && bytes.Equal(seg[:len(iccMarker)], iccMarker) {
			seq, count := int(seg[12]), int(seg[13])
			if count == 0 || seq == 0 || seq > count {
				return nil
			}
			if chunks == nil {
				chunks = make([][]byte, count)
			}
			if len(chunks) != count || chunks[seq-1] != nil {
				return nil
			}
			chunks[seq-1] = seg[14:]
			total += len(seg) - 14
		}

		pos += 2 + length
	}

	if chunks == nil {
		return nil
	}

	profile := make([]byte, 0, total)
	for _, c := range chunks {
		if c == nil {
			return nil
		}
		profile = append(profile, c...)
	}

	return profile
}

// pngICC inflates the iCCP chunk, which must precede the first IDAT.
func pngICC(buf []byte) ([]byte, error) {
	if !bytes.HasPrefix(buf, pngMagic) {
		return nil, nil
	}

	pos := len(pngMagic)
	for pos+8 <= len(buf) {
		length := int(binary.BigEndian.Uint32(buf[pos:]))
		typ := string(buf[pos+4 : pos+8])
		if length < 0 || pos+12+length > len(buf) {
			return nil, nil
		}
		data := buf[pos+8 : pos+8+length]

		switch typ {
		case "IDAT", "IEND":
			return nil, nil
		case "iCCP":
			nul := bytes.IndexByte(data, 0)
			if nul < 1 || nul+2 > len(data) {
				return nil, errors.New("malformed iCCP chunk")
			}
			if method := data[nul+1]; method != 0 {
				return nil, fmt.Errorf("unknown iCCP compression method %d", method)
			}
			return inflate(data[nul+2:])
		}

		pos += 12 + length
	}

	return nil, nil
}

func inflate(data []byte) ([]byte, error) {
	zr, err := zlib.NewReader(bytes.NewReader(data))
	if err != nil {
		return nil, err
	}
	defer zr.Close()

	profile, err := io.ReadAll(io.LimitReader(zr, maxICCProfile+1))
	if err != nil {
		return nil, err
	}
	if len(profile) > maxICCProfile {
		return nil, errProfileTooLarge
	}

	return profile, nil
}

// webpICC looks for the ICCP chunk of an extended (VP8X) WebP file.
func webpICC(buf []byte) []byte {
	if len(buf) < 12 || string(buf[0:4]) != "RIFF" || string(buf[8:12]) != "WEBP" {
		return nil
	}

	pos := 12
	for pos+8 <= len(buf) {
		fourcc := string(buf[pos : pos+4])
		size := int(binary.LittleEndian.Uint32(buf[pos+4:]))
		if size < 0 || pos+8+size > len(buf) {
			return nil
		}

		if fourcc == "ICCP" {
			return append([]byte(nil), buf[pos+8:pos+8+size]...)
		}

		pos += 8 + size + size&1
	}

	return nil
}

// embedICC inserts profile as APP2 segments right after the SOI marker.
func embedICC(jpg, profile []byte) ([]byte, error) {
	if len(jpg) < 2 || jpg[0] != 0xFF || jpg[1] != 0xD8 {
		return nil, errors.New("encoder output is not a jpeg stream")
	}

	count := (len(profile) + iccChunkSize - 1) / iccChunkSize
	if count > 255 {
		return nil, errProfileTooLarge
	}

	out := make([]byte, 0, len(jpg)+len(profile)+count*18)
	out = append(out, 0xFF, 0xD8)

	for i := 0; i < count; i++ {
		chunk := profile[i*iccChunkSize : min((i+1)*iccChunkSize, len(profile))]

		out = append(out, 0xFF, 0xE2)
		out = binary.BigEndian.AppendUint16(out, uint16(2+len(iccMarker)+2+len(chunk)))
		out = append(out, iccMarker...)
		out = append(out, byte(i+1), byte(count))
		out = append(out, chunk...)
	}

	return append(out, jpg[2:]...), nil
}
