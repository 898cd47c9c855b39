// Package binding exposes the poster to a scripting host: every operation
// takes loosely typed arguments and checks their shape before doing anything.
package binding

import (
	"fmt"
	"sort"

	"github.com/liangmanlin/gopost/ejson"
	"github.com/liangmanlin/gopost/httpc"
	"github.com/liangmanlin/gopost/kernel"
)

const (
	NamePostAsJSON       = "post_as_json"
	NameToJSONString     = "to_json_string"
	NameISO8601Timestamp = "get_iso8601_timestamp"
)

// Poster is what PostAsJSON hands posts to; *httpc.Dispatcher satisfies it.
type Poster interface {
	Enqueue(url string, value ejson.Value)
}

type Module struct {
	poster Poster
	funcs  map[string]func(args ...interface{}) (interface{}, error)
}

func New(poster Poster) *Module {
	m := &Module{poster: poster}
	m.funcs = map[string]func(args ...interface{}) (interface{}, error){
		NamePostAsJSON: func(args ...interface{}) (interface{}, error) {
			return nil, m.PostAsJSON(args...)
		},
		NameToJSONString: func(args ...interface{}) (interface{}, error) {
			return m.ToJSONString(args...)
		},
		NameISO8601Timestamp: func(args ...interface{}) (interface{}, error) {
			return m.ISO8601Timestamp(args...)
		},
	}
	return m
}

// PostAsJSON takes (url string, value) and queues the post. Only a wrong
// argument shape is an error, never the network.
func (m *Module) PostAsJSON(args ...interface{}) error {
	if len(args) != 2 {
		return httpc.NewUsageError(NamePostAsJSON, "want 2 arguments (url, value), got %d", len(args))
	}
	url, ok := args[0].(string)
	if !ok {
		return httpc.NewUsageError(NamePostAsJSON, "url must be a string, got %T", args[0])
	}
	if m.poster == nil {
		return httpc.NewUsageError(NamePostAsJSON, "no dispatcher bound")
	}
	m.poster.Enqueue(url, ejson.FromGo(args[1]))
	return nil
}

// ToJSONString takes exactly one value and returns its styled json text.
func (m *Module) ToJSONString(args ...interface{}) (string, error) {
	if len(args) != 1 {
		return "", httpc.NewUsageError(NameToJSONString, "want 1 argument, got %d", len(args))
	}
	return ejson.FromGo(args[0]).Styled(), nil
}

// ISO8601Timestamp takes no arguments and returns the UTC time as YYYY-MM-DDTHH:MM:SSZ.
func (m *Module) ISO8601Timestamp(args ...interface{}) (string, error) {
	if len(args) != 0 {
		return "", httpc.NewUsageError(NameISO8601Timestamp, "want no arguments, got %d", len(args))
	}
	return kernel.Timestamp(), nil
}

// Call runs an operation by its host name.
func (m *Module) Call(name string, args ...interface{}) (interface{}, error) {
	f, ok := m.funcs[name]
	if !ok {
		return nil, httpc.NewUsageError(name, "unknown function")
	}
	return f(args...)
}

func (m *Module) Names() []string {
	names := make([]string, 0, len(m.funcs))
	for k := range m.funcs {
		names = append(names, k)
	}
	sort.Strings(names)
	return names
}

func (m *Module) String() string {
	return fmt.Sprintf("binding%v", m.Names())
}
