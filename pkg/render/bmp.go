package render

import (
	"encoding/binary"
	"fmt"
)

// BMP container layout constants. These are a wire contract: e-ink firmware
// parses strictly to the classic bitmap layout, so field widths, byte order
// and padding arithmetic must be byte-exact.
const (
	bmpFileHeaderSize = 14
	bmpInfoHeaderSize = 40
)

// supportedDepths lists the bit depths the encoder can produce.
var supportedDepths = map[int]bool{1: true, 2: true, 4: true, 8: true, 24: true}

// bmpRowSize returns the byte size of one pixel row at the given width and
// bit depth, padded to a 4-byte boundary.
func bmpRowSize(width, depth int) int {
	return ((width*depth + 31) / 32) * 4
}

// grayPalette returns the grayscale color table for an indexed bit depth:
// 2^depth entries spread evenly from black to white, each stored as BGRA.
func grayPalette(depth int) []byte {
	entries := 1 << depth
	table := make([]byte, 0, entries*4)
	for i := 0; i < entries; i++ {
		v := byte(i * 255 / (entries - 1))
		table = append(table, v, v, v, 0)
	}
	return table
}

// EncodeBMP packs raw pixel samples into a complete, self-contained BMP file
// at the given bit depth.
//
// For depths 1, 2, 4 and 8 the samples are palette indexes, one byte per
// pixel in row-major top-to-bottom order; the file carries a grayscale color
// table of 2^depth entries and rows are bit-packed most significant bit
// first. For depth 24 the samples are 3 bytes per pixel in RGB order and are
// stored reversed (BGR). Rows are always written bottom-to-top and padded to
// a 4-byte boundary.
func EncodeBMP(width, height, depth int, samples []byte) ([]byte, error) {
	if width <= 0 || height <= 0 {
		return nil, &EncodingError{Op: "bmp", Err: fmt.Errorf("invalid dimensions %dx%d", width, height)}
	}
	if !supportedDepths[depth] {
		return nil, &EncodingError{Op: "bmp", Err: fmt.Errorf("unsupported bit depth %d", depth)}
	}

	bytesPerSample := 1
	if depth == 24 {
		bytesPerSample = 3
	}
	if want := width * height * bytesPerSample; len(samples) != want {
		return nil, &EncodingError{Op: "bmp", Err: fmt.Errorf("expected %d sample bytes for %dx%d at depth %d, got %d", want, width, height, depth, len(samples))}
	}

	var palette []byte
	if depth <= 8 {
		palette = grayPalette(depth)
		maxIndex := byte(1<<depth - 1)
		for i, s := range samples {
			if s > maxIndex {
				return nil, &EncodingError{Op: "bmp", Err: fmt.Errorf("sample %d has index %d, exceeds depth %d palette", i, s, depth)}
			}
		}
	}

	rowSize := bmpRowSize(width, depth)
	dataSize := rowSize * height
	dataOffset := bmpFileHeaderSize + bmpInfoHeaderSize + len(palette)
	fileSize := dataOffset + dataSize

	out := make([]byte, fileSize)

	// File header.
	out[0], out[1] = 'B', 'M'
	binary.LittleEndian.PutUint32(out[2:6], uint32(fileSize))
	binary.LittleEndian.PutUint32(out[10:14], uint32(dataOffset))

	// Info header.
	info := out[bmpFileHeaderSize:]
	binary.LittleEndian.PutUint32(info[0:4], bmpInfoHeaderSize)
	binary.LittleEndian.PutUint32(info[4:8], uint32(width))
	binary.LittleEndian.PutUint32(info[8:12], uint32(height))
	binary.LittleEndian.PutUint16(info[12:14], 1) // planes
	binary.LittleEndian.PutUint16(info[14:16], uint16(depth))
	binary.LittleEndian.PutUint32(info[20:24], uint32(dataSize))
	if depth <= 8 {
		binary.LittleEndian.PutUint32(info[32:36], uint32(1<<depth)) // colors used
	}

	copy(out[bmpFileHeaderSize+bmpInfoHeaderSize:], palette)

	// Pixel rows, bottom-to-top.
	data := out[dataOffset:]
	for y := 0; y < height; y++ {
		srcRow := height - 1 - y
		row := data[y*rowSize : (y+1)*rowSize]
		if depth == 24 {
			for x := 0; x < width; x++ {
				s := samples[(srcRow*width+x)*3:]
				row[x*3+0] = s[2]
				row[x*3+1] = s[1]
				row[x*3+2] = s[0]
			}
			continue
		}
		for x := 0; x < width; x++ {
			idx := samples[srcRow*width+x]
			shift := uint(8 - depth - (x*depth)%8)
			row[(x*depth)/8] |= idx << shift
		}
	}

	return out, nil
}
