package stages

import (
	"bufio"
	"io"
	"os"

	"github.com/yossideutsch1973/vidpipe/core"
)

// Record appends every frame to a frame log on disk. The "path" param
// selects the file; .zst and .bz2 extensions compress the log.
type Record struct {
	*core.StageBase

	fpath  string
	fh     *os.File
	bw     *bufio.Writer
	cw     io.Writer
	cclose func() error
	count  uint64
}

func NewRecord(parent *core.StageBase) core.Stage {
	s := &Record{StageBase: parent}

	o := &s.Options
	o.Descr = "append frames to a frame log file"
	o.IsSink = true

	s.fpath = s.ParamString("path", "frames.vpz")
	return s
}

func (s *Record) Prepare() error {
	fh, err := os.Create(s.fpath)
	if err != nil {
		return s.Errorf("%w", err)
	}
	s.fh = fh
	s.bw = bufio.NewWriter(fh)

	w, closer, err := compressor(s.fpath, s.bw)
	if err != nil {
		fh.Close()
		return s.Errorf("%w", err)
	}
	s.cw = w
	if closer != nil {
		s.cclose = closer.Close
	}

	s.Info().Str("path", s.fpath).Msg("recording")
	return nil
}

func (s *Record) Process(in *core.Frame) (*core.Frame, error) {
	bb := framelog_pool.Get()
	encodeFrame(bb, in)
	_, err := s.cw.Write(bb.B)
	framelog_pool.Put(bb)
	if err != nil {
		return nil, s.Errorf("write: %w", err)
	}
	s.count++
	return in, nil
}

func (s *Record) Stop() error {
	if s.fh == nil {
		return nil
	}
	if s.cclose != nil {
		s.cclose()
	}
	s.bw.Flush()
	err := s.fh.Close()
	s.fh = nil
	s.Info().Uint64("frames", s.count).Str("path", s.fpath).Msg("recording closed")
	return err
}
