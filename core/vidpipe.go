package core

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/VictoriaMetrics/metrics"
	"github.com/go-chi/chi/v5"
	"github.com/knadh/koanf/v2"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/pflag"
)

// VidPipe is the application object tying the compiler and the
// runtime together: global config, the stage registry, signal
// handling, and the interactive loop.
type VidPipe struct {
	zerolog.Logger

	Ctx    context.Context
	Cancel context.CancelCauseFunc

	F        *pflag.FlagSet // global flags
	K        *koanf.Koanf   // global config
	Registry *Registry      // name -> stage constructor

	params []byte   // raw --params JSON
	rt     *Runtime // current pipeline run
}

// NewVidPipe creates a new vidpipe instance using the given stage
// libraries.
func NewVidPipe(repo ...map[string]NewStage) *VidPipe {
	v := new(VidPipe)
	v.Ctx, v.Cancel = context.WithCancelCause(context.Background())

	// default logger
	v.Logger = log.Output(zerolog.ConsoleWriter{
		Out:        os.Stderr,
		TimeFormat: time.DateTime,
	})

	// global config
	v.K = koanf.New(".")

	// global CLI flags
	v.F = pflag.NewFlagSet("vidpipe", pflag.ExitOnError)
	v.addFlags()

	// stage registry
	v.Registry = NewRegistry()
	for i := range repo {
		v.Registry.AddRepo(repo[i])
	}

	return v
}

// Run configures vidpipe from os.Args and runs the requested mode:
// a one-shot pipeline, a pipeline file, or the interactive loop.
func (v *VidPipe) Run() error {
	if err := v.Configure(); err != nil {
		v.Error().Err(err).Msg("configuration error")
		return err
	}

	// stop the pipeline on SIGINT/SIGTERM
	sigch := make(chan os.Signal, 1)
	signal.Notify(sigch, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigch
		v.Info().Stringer("signal", sig).Msg("stopping")
		v.Cancel(ErrInterrupt)
	}()

	// standalone metrics endpoint?
	if addr := v.K.String("metrics"); addr != "" {
		go v.serveMetrics(addr)
	}

	var err error
	switch {
	case v.K.Bool("interactive"):
		err = v.runInteractive()
	case v.K.String("command") != "":
		err = v.RunPipeline(v.K.String("command"))
	case len(v.F.Args()) > 0:
		var text []byte
		text, err = os.ReadFile(v.F.Args()[0])
		if err != nil {
			err = fmt.Errorf("could not read pipeline file: %w", err)
			break
		}
		err = v.RunPipeline(string(text))
	default:
		v.F.Usage()
		err = errors.New("no pipeline given")
	}

	switch {
	case err == nil, errors.Is(err, ErrInterrupt), errors.Is(err, ErrStopped):
		return nil
	default:
		v.Error().Err(err).Msg("pipeline error")
		return err
	}
}

// RunPipeline compiles src and drives the pipeline until the context
// winds down or a stage fails.
func (v *VidPipe) RunPipeline(src string) error {
	tokens := Lex(src)
	tree, err := Parse(tokens)
	if err != nil {
		return err
	}

	g, err := BuildGraph(tree, v.Registry, GraphOptions{
		Logger: v.Logger,
		K:      v.K,
		Ctx:    v.Ctx,
		Params: v.params,
	})
	if err != nil {
		return err
	}

	if v.K.Bool("explain") {
		fmt.Fprint(os.Stderr, tree.Tree())
		fmt.Fprint(os.Stderr, g.String())
		g.Close()
		return nil
	}

	rt := NewRuntime(v.Ctx, v.Logger, v.K.Float64("fps"))
	v.rt = rt
	defer rt.Close()

	if err := rt.Execute(g); err != nil {
		return err
	}

	// block until interrupt, stage error, or clean stop
	<-rt.Done()
	rt.Stop()
	return rt.Err()
}

// runInteractive reads one pipeline expression per line and runs it
// until interrupted. "quit" or EOF ends the session.
func (v *VidPipe) runInteractive() error {
	fmt.Println("vidpipe interactive mode, one pipeline per line ('quit' to exit)")

	sc := bufio.NewScanner(os.Stdin)
	for {
		fmt.Print("> ")
		if !sc.Scan() {
			break
		}
		line := strings.TrimSpace(sc.Text())
		switch line {
		case "":
			continue
		case "quit", "exit":
			return nil
		}

		if err := v.RunPipeline(line); err != nil {
			if errors.Is(err, ErrInterrupt) {
				return err
			}
			v.Error().Err(err).Msg("pipeline failed")
		}

		// a ^C that stopped the pipeline also ends the session
		if context.Cause(v.Ctx) != nil {
			return context.Cause(v.Ctx)
		}
	}
	return sc.Err()
}

// serveMetrics exposes Prometheus metrics on addr.
func (v *VidPipe) serveMetrics(addr string) {
	r := chi.NewRouter()
	r.Get("/metrics", func(w http.ResponseWriter, _ *http.Request) {
		if rt := v.rt; rt != nil {
			rt.WriteMetrics(w)
			return
		}
		metrics.WritePrometheus(w, false)
	})

	v.Info().Str("addr", addr).Msg("metrics endpoint listening")
	if err := http.ListenAndServe(addr, r); err != nil {
		v.Warn().Err(err).Msg("metrics endpoint failed")
	}
}
