package kernel

import (
	"encoding/json"
	"fmt"
	"os"
	"runtime"
	"runtime/debug"
	"runtime/pprof"
	"strconv"
	"strings"
	"sync"
	"time"
)

type chandler struct {
	name          string
	args          string
	commit        string
	argNum        int
	confirm       bool
	confirmCommit string
	handler       consoleHandler
}

type consoleCommit string

type consoleArg string

type consoleConfirm string

type consoleHandler = func(echo func(string), commands []string) string

// ConsoleResult is what a console line produced. Help is set when the line
// did not match a command or was short of arguments.
type ConsoleResult struct {
	Help   bool
	Output string
}

// Console is the in-process command table behind the interactive shell.
type Console struct {
	mu       sync.RWMutex
	handlers map[string]*chandler
}

// NewConsole builds a console holding the builtin commands plus handlers.
func NewConsole(handlers ...*chandler) *Console {
	c := &Console{handlers: make(map[string]*chandler)}
	c.Register(
		ConsoleHandler("gc",
			func(echo func(string), commands []string) string { runtime.GC(); return "gc done" },
			ConsoleCommit("global gc")),
		ConsoleHandler("loglevel", consoleLogLevel,
			ConsoleArg("1|2"),
			ConsoleCommit("change the logger level")),
		ConsoleHandler("pprof", prof,
			ConsoleArg("time(second)"),
			ConsoleCommit("Start a prof for cpu pprof int time")),
	)
	c.Register(handlers...)
	return c
}

func (c *Console) Register(handlers ...*chandler) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, v := range handlers {
		c.handlers[v.name] = v
	}
}

func ConsoleHandler(command string, handler consoleHandler, opt ...interface{}) *chandler {
	var argNum int
	var confirm bool
	var commit, args, confirmCommit string
	for _, op := range opt {
		switch o := op.(type) {
		case consoleArg:
			argNum++
			args += " " + string(o)
		case consoleCommit:
			commit = string(o)
		case consoleConfirm:
			confirm = true
			confirmCommit = string(o)
		}
	}
	return &chandler{
		name:          command,
		argNum:        argNum,
		args:          args,
		commit:        commit,
		confirm:       confirm,
		confirmCommit: confirmCommit,
		handler:       handler,
	}
}

func ConsoleArg(example string) consoleArg {
	return consoleArg(example)
}

func ConsoleCommit(commit string) consoleCommit {
	return consoleCommit(commit)
}

func ConsoleConfirm(confirm string) consoleConfirm {
	return consoleConfirm(confirm)
}

// Describe returns the command table as json: name -> {args, commit, confirm}.
func (c *Console) Describe() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	var cl = make(map[string]map[string]string)
	for k, v := range c.handlers {
		cm := make(map[string]string)
		cm["args"] = v.args
		cm["commit"] = v.commit
		if v.confirm {
			cm["confirm"] = v.confirmCommit
		}
		cl[k] = cm
	}
	rs, _ := json.Marshal(cl)
	return string(rs)
}

// Exec runs one console line. A panicking handler is logged and reported as output.
func (c *Console) Exec(line string, echo func(string)) (result ConsoleResult) {
	defer func() {
		p := recover()
		if p != nil {
			ErrorLog("catch error:%s,Stack:%s", p, debug.Stack())
			result = ConsoleResult{Output: fmt.Sprintf("command failed: %v", p)}
		}
	}()
	if echo == nil {
		echo = func(string) {}
	}
	commands := CutWith(line, ' ')
	size := len(commands)
	if size > 0 {
		c.mu.RLock()
		f, ok := c.handlers[commands[0]]
		c.mu.RUnlock()
		if ok && size > f.argNum {
			DebugLog("recv command: %s", line)
			return ConsoleResult{Output: f.handler(echo, commands[1:])}
		}
	}
	return ConsoleResult{Help: true}
}

// CutWith splits s on sep, dropping empty fields.
func CutWith(s string, sep byte) []string {
	var rs []string
	start := 0
	for i := 0; i < len(s); i++ {
		if s[i] == sep {
			if i > start {
				rs = append(rs, s[start:i])
			}
			start = i + 1
		}
	}
	if start < len(s) {
		rs = append(rs, s[start:])
	}
	return rs
}

func consoleLogLevel(echo func(string), commands []string) string {
	level, err := strconv.ParseInt(commands[0], 10, 32)
	if err != nil || (LogLevel(level) != LogLevelDebug && LogLevel(level) != LogLevelError) {
		return "log level must be 1 or 2"
	}
	SetLogLevel(LogLevel(level))
	return fmt.Sprintf("now log level:%d", level)
}

func prof(echo func(string), commands []string) string {
	t, err := strconv.Atoi(commands[0])
	if err != nil || t <= 0 {
		return "param [time] error"
	}
	dir := Env.LogPath
	if dir == "" {
		dir = os.TempDir()
	}
	ti := time.Now()
	year, month, day := ti.Date()
	hour, min, sec := ti.Clock()
	file := fmt.Sprintf("%s/%d-%d-%d_%d-%d-%d.prof", dir, year, month, day, hour, min, sec)
	f, err := os.Create(file)
	if err != nil {
		return fmt.Sprintf("cannot create file %s,%s", file, err)
	}
	finishTime := TimeString(ti.Add(time.Duration(t) * time.Second))
	ErrorLog("pprof cpu Start,file:%s,finish time :%s", file, finishTime)
	go prof2(f, t)
	return strings.Join([]string{
		fmt.Sprintf("pprof cpu Start,file:%s", file),
		fmt.Sprintf("finish time :%s please wait", finishTime),
	}, "\n")
}

func prof2(file *os.File, t int) {
	defer func() {
		p := recover()
		if p != nil {
			ErrorLog("catch error:%s,Stack:%s", p, debug.Stack())
		}
	}()
	defer file.Close()
	if err := pprof.StartCPUProfile(file); err != nil {
		ErrorLog("pprof cpu start failed: %s", err)
		return
	}
	time.Sleep(time.Second * time.Duration(t))
	pprof.StopCPUProfile()
	ErrorLog("pprof cpu finish")
}
