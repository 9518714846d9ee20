package gridfile

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"io"
	"math"
	"os"
	"unsafe"

	"golang.org/x/sys/unix"
)

type File struct {
	Data    []byte
	Header  *Header
	mmapped bool
}

// Open maps a grid file read-only and validates its structure.
// If mmap is unavailable, it falls back to ReadAt-based loading.
// The returned file must be closed to release any mapping.
func Open(path string) (*File, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer func() { _ = f.Close() }()

	stat, err := f.Stat()
	if err != nil {
		return nil, err
	}
	size64 := stat.Size()
	if size64 < int64(minHeaderSize) || size64 > int64(math.MaxInt) {
		return nil, ErrCorruptFile
	}
	size := int(size64)

	data, err := unix.Mmap(int(f.Fd()), 0, size, unix.PROT_READ, unix.MAP_SHARED)
	if err == nil {
		gf, parseErr := parseFileData(data, true)
		if parseErr != nil {
			_ = unix.Munmap(data)
			return nil, parseErr
		}
		return gf, nil
	}

	data, err = readAllAt(f, size)
	if err != nil {
		return nil, err
	}
	return parseFileData(data, false)
}

// OpenReaderAt loads and validates a grid file from a random-access reader
// without mmap.
func OpenReaderAt(r io.ReaderAt, size int64) (*File, error) {
	if size < 0 || size > int64(math.MaxInt) {
		return nil, ErrCorruptFile
	}
	data, err := readAllAt(r, int(size))
	if err != nil {
		return nil, err
	}
	return parseFileData(data, false)
}

// Decode parses an in-memory container.
func Decode(data []byte) (*File, error) {
	return parseFileData(data, false)
}

func readAllAt(r io.ReaderAt, size int) ([]byte, error) {
	out := make([]byte, size)
	var off int64
	for off < int64(size) {
		n, err := r.ReadAt(out[off:], off)
		off += int64(n)
		if err == nil {
			continue
		}
		if err == io.EOF && off == int64(size) {
			break
		}
		return nil, err
	}
	return out, nil
}

func parseFileData(data []byte, mmapped bool) (*File, error) {
	if len(data) < minHeaderSize {
		return nil, ErrCorruptFile
	}
	raw := make([]byte, headerSize)
	copy(raw, data)
	var hdr Header
	if err := binary.Read(bytes.NewReader(raw), binary.LittleEndian, &hdr); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrCorruptFile, err)
	}
	if !hdr.Valid() {
		return nil, ErrInvalidMagic
	}
	if hdr.HeaderSize < uint32(headerSize) {
		// Minor 0 header: the bytes read as kernel fields belong to the payload.
		hdr.RadiusMultiple, hdr.Flags = 0, 0
	}
	if !hdr.Compatible() {
		return nil, ErrUnsupportedMajor
	}
	if hdr.FileSize != uint64(len(data)) {
		return nil, fmt.Errorf("%w: file size %d, header says %d", ErrCorruptFile, len(data), hdr.FileSize)
	}
	if hdr.DType != DTypeF32 {
		return nil, fmt.Errorf("%w: unsupported dtype %d", ErrCorruptFile, hdr.DType)
	}
	if hdr.DataOffset < uint64(hdr.HeaderSize) || hdr.DataOffset%align != 0 {
		return nil, fmt.Errorf("%w: payload offset %d", ErrCorruptFile, hdr.DataOffset)
	}
	end := hdr.DataOffset + hdr.DataSize
	if end < hdr.DataOffset || end > uint64(len(data)) {
		return nil, fmt.Errorf("%w: payload out of bounds", ErrCorruptFile)
	}
	if hdr.DataSize != hdr.Values()*4 {
		return nil, fmt.Errorf("%w: payload is %d bytes, geometry needs %d", ErrCorruptFile, hdr.DataSize, hdr.Values()*4)
	}
	return &File{Data: data, Header: &hdr, mmapped: mmapped}, nil
}

// Payload returns a zero-copy slice of the payload bytes. The caller must
// not retain it after Close.
func (f *File) Payload() []byte {
	if f == nil || f.Data == nil || f.Header == nil {
		return nil
	}
	return f.Data[f.Header.DataOffset : f.Header.DataOffset+f.Header.DataSize]
}

// Float32s returns the payload as float32 values. On little-endian hosts the
// slice aliases the file data and must not be retained after Close or
// written through when the file is mapped.
func (f *File) Float32s() []float32 {
	p := f.Payload()
	n := len(p) / 4
	if n == 0 {
		return nil
	}
	if nativeLittleEndian && uintptr(unsafe.Pointer(&p[0]))%unsafe.Alignof(float32(0)) == 0 {
		return unsafe.Slice((*float32)(unsafe.Pointer(&p[0])), n)
	}
	out := make([]float32, n)
	for i := range out {
		out[i] = math.Float32frombits(binary.LittleEndian.Uint32(p[4*i:]))
	}
	return out
}

// Close releases file resources and any mmap backing.
func (f *File) Close() error {
	if f == nil || f.Data == nil {
		return nil
	}
	var err error
	if f.mmapped {
		err = unix.Munmap(f.Data)
	}
	f.Data = nil
	f.Header = nil
	f.mmapped = false
	return err
}

var nativeLittleEndian = binary.NativeEndian.Uint16([]byte{1, 0}) == 1
