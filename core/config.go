package core

import (
	"fmt"
	"os"
	"runtime/debug"

	"github.com/buger/jsonparser"
	"github.com/knadh/koanf/providers/posflag"
	"github.com/rs/zerolog"
)

// Configure parses CLI args and applies the global options.
func (v *VidPipe) Configure() error {
	if err := v.parseArgs(os.Args[1:]); err != nil {
		return fmt.Errorf("could not parse CLI flags: %w", err)
	}

	// debugging level
	if ll := v.K.String("log"); len(ll) > 0 {
		lvl, err := zerolog.ParseLevel(ll)
		if err != nil {
			return err
		}
		zerolog.SetGlobalLevel(lvl)
	}

	// stage params?
	if p := v.K.String("params"); len(p) > 0 {
		raw := []byte(p)
		// a file path is also accepted
		if p[0] != '{' {
			var err error
			raw, err = os.ReadFile(p)
			if err != nil {
				return fmt.Errorf("could not read --params: %w", err)
			}
		}
		if err := checkParams(raw); err != nil {
			return fmt.Errorf("could not parse --params: %w", err)
		}
		v.params = raw
	}

	return nil
}

// checkParams verifies the params JSON is an object keyed by stage name.
func checkParams(raw []byte) error {
	return jsonparser.ObjectEach(raw, func(_, _ []byte, _ jsonparser.ValueType, _ int) error {
		return nil
	})
}

func (v *VidPipe) addFlags() {
	f := v.F
	f.SortFlags = false
	f.Usage = v.usage
	f.BoolP("version", "v", false, "print version info and quit")
	f.StringP("command", "c", "", "run the given pipeline expression")
	f.BoolP("interactive", "i", false, "read pipelines from stdin, one per line")
	f.BoolP("explain", "e", false, "print the parsed tree and wired graph, do not run")
	f.StringP("log", "l", "info", "log level (trace/debug/info/warn/error/disabled)")
	f.StringP("params", "p", "", "stage params as a JSON object or a file path, keyed by stage name")
	f.Float64("fps", DEFAULT_FPS, "source and sink pacing target")
	f.String("metrics", "", "serve Prometheus metrics on the given address")
}

func (v *VidPipe) usage() {
	fmt.Fprintf(os.Stderr, `Usage: vidpipe [OPTIONS] [--] PIPELINE.vp

Run a frame-processing pipeline written in the vidpipe DSL, eg.:

  vidpipe -c "testsrc -> gray -> edges -> display"
  vidpipe -c "testsrc [10]-> blur ~> edges -> display"
  vidpipe -c "testsrc -> gray &> edges &> threshold +> display"

Options:
`)
	v.F.PrintDefaults()

	fmt.Fprintf(os.Stderr, "\nRegistered stages:\n")
	for _, cmd := range v.Registry.Names() {
		descr := ""
		if newfunc := v.Registry.Get(cmd); newfunc != nil {
			base := &StageBase{Name: cmd}
			base.Stage = newfunc(base)
			descr = base.Options.Descr
		}
		fmt.Fprintf(os.Stderr, "  %-14s %s\n", cmd, descr)
	}
	fmt.Fprintf(os.Stderr, "\n")
}

// parseArgs parses the global flags and exports them into koanf.
func (v *VidPipe) parseArgs(args []string) error {
	if err := v.F.Parse(args); err != nil {
		return err
	}
	v.K.Load(posflag.Provider(v.F, ".", v.K), nil)

	// print version and quit?
	if v.K.Bool("version") {
		if bi, ok := debug.ReadBuildInfo(); ok && bi != nil {
			fmt.Fprintf(os.Stderr, "vidpipe build info:\n%s", bi)
		}
		os.Exit(1)
	}

	return nil
}
