package gridfile

import (
	"bufio"
	"encoding/binary"
	"fmt"
	"io"
	"math"
	"os"
)

// Write encodes hdr and data to w. The size and offset fields of hdr are
// filled in; the payload length must match the geometry hdr describes.
func Write(w io.Writer, hdr Header, data []float32) error {
	if hdr.DType == 0 {
		hdr.DType = DTypeF32
	}
	if hdr.DType != DTypeF32 {
		return fmt.Errorf("gridfile: unsupported dtype %d", hdr.DType)
	}
	if got, want := uint64(len(data)), hdr.Values(); got != want {
		return fmt.Errorf("gridfile: payload has %d values, header describes %d", got, want)
	}
	copy(hdr.Magic[:], Magic)
	hdr.Major = CurrentMajor
	hdr.Minor = CurrentMinor
	hdr.HeaderSize = uint32(headerSize)
	hdr.DataOffset = alignUp(uint64(headerSize))
	hdr.DataSize = uint64(len(data)) * 4
	hdr.FileSize = hdr.DataOffset + hdr.DataSize

	bw := bufio.NewWriter(w)
	if err := binary.Write(bw, binary.LittleEndian, &hdr); err != nil {
		return err
	}
	if pad := int(hdr.DataOffset) - headerSize; pad > 0 {
		if _, err := bw.Write(make([]byte, pad)); err != nil {
			return err
		}
	}
	var buf [4]byte
	for _, v := range data {
		binary.LittleEndian.PutUint32(buf[:], math.Float32bits(v))
		if _, err := bw.Write(buf[:]); err != nil {
			return err
		}
	}
	return bw.Flush()
}

// WriteFile writes a container to path, replacing any existing file.
func WriteFile(path string, hdr Header, data []float32) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := Write(f, hdr, data); err != nil {
		_ = f.Close()
		return err
	}
	return f.Close()
}
