package operation

import "strings"

// FilterStage is one stage of an ffmpeg filter chain: a filter name plus its
// key=value (or positional) parameters. Stages are kept structured until the
// plan boundary so the chain is serialized exactly once.
type FilterStage struct {
	Name   string
	Params []string
}

// Stage builds a FilterStage.
func Stage(name string, params ...string) FilterStage {
	return FilterStage{Name: name, Params: params}
}

func (s FilterStage) String() string {
	if len(s.Params) == 0 {
		return s.Name
	}
	return s.Name + "=" + strings.Join(s.Params, ":")
}

// FilterChain is an ordered sequence of stages applied to one stream.
type FilterChain []FilterStage

func (c FilterChain) String() string {
	parts := make([]string, len(c))
	for i, s := range c {
		parts[i] = s.String()
	}
	return strings.Join(parts, ",")
}
