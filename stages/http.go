package stages

import (
	"context"
	"image"
	"image/jpeg"
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/gorilla/websocket"
	"github.com/valyala/bytebufferpool"
	"github.com/yossideutsch1973/vidpipe/core"
)

// HTTP serves the pipeline output over the web: a JPEG snapshot at
// /frame.jpg, an MJPEG stream at /stream, frame push over a websocket
// at /ws, and Prometheus counters at /metrics. The "addr" param picks
// the listen address, default :8080.
type HTTP struct {
	*core.StageBase

	addr    string
	quality int
	srv     *http.Server
	up      websocket.Upgrader

	mu      sync.Mutex
	latest  []byte // last JPEG-encoded frame
	waiters []chan []byte
}

func NewHTTP(parent *core.StageBase) core.Stage {
	s := &HTTP{StageBase: parent}

	o := &s.Options
	o.Descr = "serve frames over HTTP (snapshot/MJPEG/websocket)"
	o.IsSink = true

	s.addr = s.ParamString("addr", ":8080")
	s.quality = int(s.ParamInt("quality", 80))
	return s
}

func (s *HTTP) Prepare() error {
	r := chi.NewRouter()
	r.Get("/frame.jpg", s.serveSnapshot)
	r.Get("/stream", s.serveMJPEG)
	r.Get("/ws", s.serveWS)
	r.Get("/metrics", s.serveMetrics)

	s.srv = &http.Server{Addr: s.addr, Handler: r}
	go func() {
		s.Info().Str("addr", s.addr).Msg("http display listening")
		if err := s.srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			s.Warn().Err(err).Msg("http display failed")
		}
	}()
	return nil
}

func (s *HTTP) Process(in *core.Frame) (*core.Frame, error) {
	bb := bytebufferpool.Get()
	defer bytebufferpool.Put(bb)

	if err := jpeg.Encode(bb, frameImage(in), &jpeg.Options{Quality: s.quality}); err != nil {
		return nil, s.Errorf("encode: %w", err)
	}
	buf := append([]byte(nil), bb.B...)

	s.mu.Lock()
	s.latest = buf
	for _, w := range s.waiters {
		select {
		case w <- buf:
		default: // a slow client skips frames, never stalls the sink
		}
	}
	s.mu.Unlock()

	return in, nil
}

func (s *HTTP) Stop() error {
	if s.srv == nil {
		return nil
	}
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	return s.srv.Shutdown(ctx)
}

// subscribe registers a per-client frame channel.
func (s *HTTP) subscribe() chan []byte {
	ch := make(chan []byte, 1)
	s.mu.Lock()
	s.waiters = append(s.waiters, ch)
	s.mu.Unlock()
	return ch
}

func (s *HTTP) unsubscribe(ch chan []byte) {
	s.mu.Lock()
	for i, w := range s.waiters {
		if w == ch {
			s.waiters = append(s.waiters[:i], s.waiters[i+1:]...)
			break
		}
	}
	s.mu.Unlock()
}

func (s *HTTP) serveSnapshot(w http.ResponseWriter, _ *http.Request) {
	s.mu.Lock()
	buf := s.latest
	s.mu.Unlock()

	if buf == nil {
		http.Error(w, "no frame yet", http.StatusServiceUnavailable)
		return
	}
	w.Header().Set("Content-Type", "image/jpeg")
	w.Write(buf)
}

func (s *HTTP) serveMJPEG(w http.ResponseWriter, req *http.Request) {
	const boundary = "vidpipeframe"
	w.Header().Set("Content-Type", "multipart/x-mixed-replace; boundary="+boundary)

	ch := s.subscribe()
	defer s.unsubscribe(ch)

	for {
		select {
		case <-req.Context().Done():
			return
		case buf := <-ch:
			if _, err := w.Write([]byte("--" + boundary + "\r\nContent-Type: image/jpeg\r\n\r\n")); err != nil {
				return
			}
			if _, err := w.Write(buf); err != nil {
				return
			}
			w.Write([]byte("\r\n"))
			if f, ok := w.(http.Flusher); ok {
				f.Flush()
			}
		}
	}
}

func (s *HTTP) serveWS(w http.ResponseWriter, req *http.Request) {
	conn, err := s.up.Upgrade(w, req, nil)
	if err != nil {
		return
	}
	defer conn.Close()

	ch := s.subscribe()
	defer s.unsubscribe(ch)

	for {
		select {
		case <-req.Context().Done():
			return
		case buf := <-ch:
			if conn.WriteMessage(websocket.BinaryMessage, buf) != nil {
				return
			}
		}
	}
}

func (s *HTTP) serveMetrics(w http.ResponseWriter, _ *http.Request) {
	writePrometheus(w)
}

// frameImage wraps a frame as a std image for the JPEG encoder.
func frameImage(f *core.Frame) image.Image {
	r := image.Rect(0, 0, f.Width, f.Height)
	switch f.Channels {
	case 1:
		return &image.Gray{Pix: f.Data, Stride: f.Width, Rect: r}
	case 3:
		// repack RGB to RGBA
		img := image.NewRGBA(r)
		for i := 0; i < f.Width*f.Height; i++ {
			img.Pix[i*4] = f.Data[i*3]
			img.Pix[i*4+1] = f.Data[i*3+1]
			img.Pix[i*4+2] = f.Data[i*3+2]
			img.Pix[i*4+3] = 255
		}
		return img
	default:
		// first channel as luma
		img := image.NewGray(r)
		for i := 0; i < f.Width*f.Height; i++ {
			img.Pix[i] = f.Data[i*f.Channels]
		}
		return img
	}
}
