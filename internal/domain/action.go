package domain

// actionTag discriminates the Action variants
type actionTag int

const (
	actionPath actionTag = iota
	actionSink
	actionOptions
)

// Action is the second argument of a fetch: a destination path, a sink kind,
// or a full set of request options. The zero value is Path("").
type Action struct {
	tag     actionTag
	path    string
	sink    SinkKind
	options RequestOptions
}

// PathAction saves the body to path. A path ending in a separator is a
// directory and receives the filename derived from the URL.
func PathAction(path string) Action {
	return Action{tag: actionPath, path: path}
}

// SinkAction consumes the body with the given sink kind
func SinkAction(kind SinkKind) Action {
	return Action{tag: actionSink, sink: kind}
}

// OptionsAction carries request options; their Action field selects the sink
func OptionsAction(opts RequestOptions) Action {
	return Action{tag: actionOptions, options: opts}
}

// ParseAction maps a string onto a sink action when it names a sink kind,
// and onto a path action otherwise.
func ParseAction(s string) Action {
	kind, ok := ParseSinkKind(s)
	switch {
	case !ok:
		return PathAction(s)
	case kind == SinkFile:
		return PathAction("")
	default:
		return SinkAction(kind)
	}
}

// Path returns the path of a path action
func (a Action) Path() (string, bool) {
	return a.path, a.tag == actionPath
}

// Sink returns the kind of a sink action
func (a Action) Sink() (SinkKind, bool) {
	return a.sink, a.tag == actionSink
}

// Options returns the options of an options action
func (a Action) Options() (RequestOptions, bool) {
	return a.options, a.tag == actionOptions
}
