package main

import (
	"fmt"
	"strconv"
	"strings"
	"text/tabwriter"

	"github.com/liangmanlin/gopost/binding"
	"github.com/liangmanlin/gopost/ejson"
	"github.com/liangmanlin/gopost/httpc"
	"github.com/liangmanlin/gopost/kernel"
)

// dispatcher is the part of *httpc.Dispatcher the console drives.
type dispatcher interface {
	Enqueue(url string, value ejson.Value)
	Pending() int
	Stats() httpc.Stats
	Conns() []httpc.ConnInfo
	ResetConnections() int
}

type commands struct {
	d          dispatcher
	mod        *binding.Module
	metricsURL string
}

func newConsole(d dispatcher, metricsURL string) *kernel.Console {
	c := &commands{d: d, mod: binding.New(d), metricsURL: metricsURL}
	return kernel.NewConsole(
		kernel.ConsoleHandler("post", c.post,
			kernel.ConsoleArg("url"),
			kernel.ConsoleArg("json"),
			kernel.ConsoleCommit("queue a json post")),
		kernel.ConsoleHandler("json", c.json,
			kernel.ConsoleArg("json"),
			kernel.ConsoleCommit("print json in the styled form that is posted")),
		kernel.ConsoleHandler("ts", c.timestamp,
			kernel.ConsoleCommit("current utc timestamp")),
		kernel.ConsoleHandler("metric", c.metric,
			kernel.ConsoleArg("name"),
			kernel.ConsoleArg("value"),
			kernel.ConsoleCommit("post {name,value,timestamp}, url optional after value")),
		kernel.ConsoleHandler("stats", c.stats,
			kernel.ConsoleCommit("dispatcher counters")),
		kernel.ConsoleHandler("conns", c.conns,
			kernel.ConsoleCommit("pooled connections")),
		kernel.ConsoleHandler("reset", c.reset,
			kernel.ConsoleCommit("close every pooled connection"),
			kernel.ConsoleConfirm("close every pooled connection")),
		kernel.ConsoleHandler("debug", c.debug,
			kernel.ConsoleCommit("toggle debug logging")),
	)
}

func (c *commands) post(echo func(string), args []string) string {
	value, err := ejson.DecodeString(strings.Join(args[1:], " "))
	if err != nil {
		return "bad json: " + err.Error()
	}
	if err := c.mod.PostAsJSON(args[0], value); err != nil {
		return err.Error()
	}
	return "queued"
}

func (c *commands) json(echo func(string), args []string) string {
	value, err := ejson.DecodeString(strings.Join(args, " "))
	if err != nil {
		return "bad json: " + err.Error()
	}
	s, err := c.mod.ToJSONString(value)
	if err != nil {
		return err.Error()
	}
	return strings.TrimSuffix(s, "\n")
}

func (c *commands) timestamp(echo func(string), args []string) string {
	s, err := c.mod.ISO8601Timestamp()
	if err != nil {
		return err.Error()
	}
	return s
}

func (c *commands) metric(echo func(string), args []string) string {
	url := c.metricsURL
	if len(args) > 2 {
		url = args[2]
	}
	if url == "" {
		return "no url given and metrics.url is not configured"
	}
	ts, _ := c.mod.ISO8601Timestamp()
	entry := map[string]interface{}{
		"name":      args[0],
		"value":     parseScalar(args[1]),
		"timestamp": ts,
	}
	if err := c.mod.PostAsJSON(url, entry); err != nil {
		return err.Error()
	}
	kernel.DebugLog("metric %s queued to %s", args[0], url)
	return "queued " + args[0] + " to " + url
}

func (c *commands) stats(echo func(string), args []string) string {
	s := c.d.Stats()
	return fmt.Sprintf("pending:%d enqueued:%d sent:%d failed:%d dropped:%d completed:%d errored:%d",
		c.d.Pending(), s.Enqueued, s.Sent, s.Failed, s.Dropped, s.Completed, s.Errored)
}

func (c *commands) conns(echo func(string), args []string) string {
	list := c.d.Conns()
	if len(list) == 0 {
		return "no connections"
	}
	var sb strings.Builder
	w := tabwriter.NewWriter(&sb, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "KEY\tCONNECTED\tOUTSTANDING\tLAST USED")
	for _, ci := range list {
		fmt.Fprintf(w, "%s\t%v\t%d\t%s\n", ci.Key, ci.Connected, ci.Outstanding, kernel.TimeString(ci.LastUsed))
	}
	_ = w.Flush()
	return strings.TrimSuffix(sb.String(), "\n")
}

func (c *commands) reset(echo func(string), args []string) string {
	return fmt.Sprintf("closed %d connections", c.d.ResetConnections())
}

func (c *commands) debug(echo func(string), args []string) string {
	if kernel.GetLogLevel() == kernel.LogLevelDebug {
		kernel.SetLogLevel(kernel.LogLevelError)
		return "debug off"
	}
	kernel.SetLogLevel(kernel.LogLevelDebug)
	return "debug on"
}

// numbers and booleans keep their type, anything else is a string
func parseScalar(s string) interface{} {
	if i, err := strconv.ParseInt(s, 10, 64); err == nil {
		return i
	}
	if f, err := strconv.ParseFloat(s, 64); err == nil {
		return f
	}
	switch s {
	case "true":
		return true
	case "false":
		return false
	}
	return s
}
