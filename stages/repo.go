package stages

import "github.com/yossideutsch1973/vidpipe/core"

// Repo is the standard stage library.
var Repo = map[string]core.NewStage{
	// sources
	"testsrc": NewTestsrc,
	"capture": NewTestsrc,
	"camera":  NewCamera,
	"live":    NewCamera,
	"const":   NewConst,
	"replay":  NewReplay,

	// filters
	"id":          NewPassthrough,
	"passthrough": NewPassthrough,
	"gray":        NewGray,
	"grayscale":   NewGray,
	"edges":       NewEdges,
	"blur":        NewBlur,
	"threshold":   NewThreshold,
	"invert":      NewInvert,
	"resize":      NewResize,
	"motion":      NewMotion,
	"tag":         NewTag,
	"stats":       NewStats,

	// sinks
	"display": NewDisplay,
	"show":    NewDisplay,
	"record":  NewRecord,
	"save":    NewRecord,
	"http":    NewHTTP,
	"web":     NewHTTP,
	"kafka":   NewKafka,
	"null":    NewNull,
	"drop":    NewNull,
}
