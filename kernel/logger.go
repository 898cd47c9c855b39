package kernel

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"runtime"
	"sync"
	"sync/atomic"
	"time"
)

type LogLevel int32

const (
	LogLevelDebug LogLevel = 1
	LogLevelError LogLevel = 2
)

var logLevel = int32(LogLevelError)

type logData struct {
	module string
	line   int
	format string
	args   []interface{}
}

// the log file rolls over every hour, so the current file is keyed by its hour
type loggerState struct {
	mu     sync.Mutex
	file   *os.File
	hour   int64
	writer io.Writer
}

var logger loggerState

// SetOutput sends log lines to w instead of a log file.
func SetOutput(w io.Writer) {
	logger.mu.Lock()
	defer logger.mu.Unlock()
	Env.LogPath = ""
	if logger.file != nil {
		_ = logger.file.Close()
		logger.file = nil
	}
	logger.writer = w
}

func SetLogLevel(level LogLevel) {
	atomic.StoreInt32(&logLevel, int32(level))
}

func GetLogLevel() LogLevel {
	return LogLevel(atomic.LoadInt32(&logLevel))
}

func DebugLog(format string, args ...interface{}) {
	if GetLogLevel() < LogLevelError {
		_, file, line, ok := runtime.Caller(1)
		if !ok {
			file = "???"
			line = 0
		} else {
			file = filepath.Base(file)
		}
		sendLog(file, line, format, args...)
	}
}

func ErrorLog(format string, args ...interface{}) {
	_, file, line, ok := runtime.Caller(1)
	if !ok {
		file = "???"
		line = 0
	} else {
		file = filepath.Base(file)
	}
	sendLog(file, line, format, args...)
}

func sendLog(module string, line int, format string, args ...interface{}) {
	msg := &logData{module: module, line: line, format: format, args: args}
	logger.mu.Lock()
	defer logger.mu.Unlock()
	if Env.LogPath != "" {
		if f := logger.currentFile(); f != nil {
			writeLog(f, msg)
		}
	} else if logger.writer != nil {
		writeLog(logger.writer, msg)
	}
	if Env.WriteLogStd {
		writeLog(os.Stdout, msg)
	}
}

func writeLog(w io.Writer, data *logData) {
	t := time.Now()
	year, month, day := t.Date()
	hour, min, sec := t.Clock()
	format := fmt.Sprintf("\n%d-%d-%d %d:%02d:%02d [%s:%d] %s\n",
		year, month, day, hour, min, sec, data.module, data.line, data.format)
	_, _ = fmt.Fprintf(w, format, data.args...)
}

func (l *loggerState) currentFile() *os.File {
	hour := time.Now().Unix() / int64(hourSec)
	if l.file != nil && l.hour == hour {
		return l.file
	}
	if l.file != nil {
		_ = l.file.Close()
	}
	l.file = makeLogFile()
	l.hour = hour
	return l.file
}

func makeLogFile() *os.File {
	if Env.LogPath == "" {
		return nil
	}
	t := time.Now()
	year, month, day := t.Date()
	hour, _, _ := t.Clock()
	path := Env.LogPath + fmt.Sprintf("/%d_%d_%d", year, month, day)
	file := path + fmt.Sprintf("/gopost_%d_%d_%d___%02d.log", year, month, day, hour)
	if _, err := os.Stat(path); err != nil {
		_ = os.MkdirAll(path, 0755)
	}
	ioFile, err := os.OpenFile(file, os.O_APPEND|os.O_CREATE|os.O_RDWR, 0666)
	if err != nil {
		fmt.Fprintf(os.Stderr, "cannot open log file:%s\n", err.Error())
		return nil
	}
	return ioFile
}

// CloseLog flushes the log file handle, used on shutdown.
func CloseLog() {
	logger.mu.Lock()
	defer logger.mu.Unlock()
	if logger.file != nil {
		_ = logger.file.Close()
		logger.file = nil
	}
}
