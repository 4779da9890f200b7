package stages

import (
	"encoding/binary"
	"fmt"
	"io"
	"path"

	"github.com/dsnet/compress/bzip2"
	"github.com/klauspost/compress/zstd"
	"github.com/valyala/bytebufferpool"
	"github.com/yossideutsch1973/vidpipe/core"
)

// Frame log wire format shared by record, replay and kafka: a 24-byte
// little-endian header (width, height, channels, reserved as uint32,
// timestamp as uint64) followed by width*height*channels raw bytes.
const framelog_header = 24

var framelog_pool bytebufferpool.Pool

// encodeFrame appends the encoded frame to bb.
func encodeFrame(bb *bytebufferpool.ByteBuffer, f *core.Frame) {
	var hdr [framelog_header]byte
	binary.LittleEndian.PutUint32(hdr[0:], uint32(f.Width))
	binary.LittleEndian.PutUint32(hdr[4:], uint32(f.Height))
	binary.LittleEndian.PutUint32(hdr[8:], uint32(f.Channels))
	binary.LittleEndian.PutUint64(hdr[16:], f.Timestamp)
	bb.Write(hdr[:])
	bb.Write(f.Data)
}

// decodeFrame reads one frame off r. Returns io.EOF cleanly at the
// end of the log.
func decodeFrame(r io.Reader) (*core.Frame, error) {
	var hdr [framelog_header]byte
	if _, err := io.ReadFull(r, hdr[:]); err != nil {
		if err == io.ErrUnexpectedEOF {
			err = io.EOF
		}
		return nil, err
	}

	w := int(binary.LittleEndian.Uint32(hdr[0:]))
	h := int(binary.LittleEndian.Uint32(hdr[4:]))
	ch := int(binary.LittleEndian.Uint32(hdr[8:]))
	if w < 1 || h < 1 || ch < 1 || w*h*ch > 1<<30 {
		return nil, fmt.Errorf("bad frame header %dx%dx%d", w, h, ch)
	}

	f := core.NewFrame(w, h, ch)
	f.Timestamp = binary.LittleEndian.Uint64(hdr[16:])
	if _, err := io.ReadFull(r, f.Data); err != nil {
		return nil, err
	}
	return f, nil
}

// compressor wraps w according to the file extension: .zst and .bz2
// are compressed, anything else is raw. The returned closer flushes
// the compressor only; the caller still closes w.
func compressor(fpath string, w io.Writer) (io.Writer, io.Closer, error) {
	switch path.Ext(fpath) {
	case ".zst", ".zstd":
		zw, err := zstd.NewWriter(w)
		if err != nil {
			return nil, nil, err
		}
		return zw, zw, nil
	case ".bz2":
		bw, err := bzip2.NewWriter(w, &bzip2.WriterConfig{Level: bzip2.DefaultCompression})
		if err != nil {
			return nil, nil, err
		}
		return bw, bw, nil
	}
	return w, nil, nil
}

// decompressor wraps r according to the file extension, see compressor.
func decompressor(fpath string, r io.Reader) (io.Reader, io.Closer, error) {
	switch path.Ext(fpath) {
	case ".zst", ".zstd":
		zr, err := zstd.NewReader(r)
		if err != nil {
			return nil, nil, err
		}
		return zr.IOReadCloser(), nil, nil
	case ".bz2":
		br, err := bzip2.NewReader(r, nil)
		if err != nil {
			return nil, nil, err
		}
		return br, br, nil
	}
	return r, nil, nil
}
