// Copyright (C) 2022 NHR@FAU, University Erlangen-Nuremberg.
// All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.
package log

import (
	"fmt"
	"io"
	"log"
	"os"
	"time"
)

// Provides a simple way of logging with different levels. Unlike the
// systemd-prefixed variant this is based on, every line carries an explicit
// UTC HH:MM:SS timestamp — ingest and detect runs are not always supervised
// by systemd, and regulator-facing runs need a self-contained log.

var logLevel string

var (
	DebugWriter io.Writer = os.Stderr
	InfoWriter  io.Writer = os.Stderr
	WarnWriter  io.Writer = os.Stderr
	ErrWriter   io.Writer = os.Stderr
)

var (
	DebugPrefix string = "[DEBUG]   "
	InfoPrefix  string = "[INFO]    "
	WarnPrefix  string = "[WARNING] "
	ErrPrefix   string = "[ERROR]   "
)

var (
	DebugLog *log.Logger = log.New(DebugWriter, DebugPrefix, 0)
	InfoLog  *log.Logger = log.New(InfoWriter, InfoPrefix, 0)
	WarnLog  *log.Logger = log.New(WarnWriter, WarnPrefix, 0)
	ErrLog   *log.Logger = log.New(ErrWriter, ErrPrefix, 0)
)

/* CONFIG */

func SetLogLevel(lvl string) {
	switch lvl {
	case "err", "fatal":
		WarnWriter = io.Discard
		fallthrough
	case "warn":
		InfoWriter = io.Discard
		fallthrough
	case "info":
		DebugWriter = io.Discard
	case "debug":
		// nothing to discard
	default:
		fmt.Fprintf(os.Stderr, "pkg/log: loglevel %q is invalid, using 'info'\n", lvl)
		SetLogLevel("info")
		return
	}
	logLevel = lvl
}

func LogLevel() string {
	if logLevel == "" {
		return "info"
	}
	return logLevel
}

/* PRINT */

func stamp() string {
	return time.Now().UTC().Format("15:04:05") + " "
}

func printStr(v ...interface{}) string {
	return stamp() + fmt.Sprint(v...)
}

func printfStr(format string, v ...interface{}) string {
	return stamp() + fmt.Sprintf(format, v...)
}

func Debug(v ...interface{}) {
	if DebugWriter != io.Discard {
		DebugLog.Output(2, printStr(v...))
	}
}

func Debugf(format string, v ...interface{}) {
	if DebugWriter != io.Discard {
		DebugLog.Output(2, printfStr(format, v...))
	}
}

func Info(v ...interface{}) {
	if InfoWriter != io.Discard {
		InfoLog.Output(2, printStr(v...))
	}
}

func Infof(format string, v ...interface{}) {
	if InfoWriter != io.Discard {
		InfoLog.Output(2, printfStr(format, v...))
	}
}

// Print is an alias for Info kept for parity with the upstream logging style.
func Print(v ...interface{}) {
	Info(v...)
}

func Printf(format string, v ...interface{}) {
	Infof(format, v...)
}

func Warn(v ...interface{}) {
	if WarnWriter != io.Discard {
		WarnLog.Output(2, printStr(v...))
	}
}

func Warnf(format string, v ...interface{}) {
	if WarnWriter != io.Discard {
		WarnLog.Output(2, printfStr(format, v...))
	}
}

func Error(v ...interface{}) {
	if ErrWriter != io.Discard {
		ErrLog.Output(2, printStr(v...))
	}
}

func Errorf(format string, v ...interface{}) {
	if ErrWriter != io.Discard {
		ErrLog.Output(2, printfStr(format, v...))
	}
}

// Fatal writes an error log line and stops the process with exit code 1.
func Fatal(v ...interface{}) {
	Error(v...)
	os.Exit(1)
}

func Fatalf(format string, v ...interface{}) {
	Errorf(format, v...)
	os.Exit(1)
}

// Stage marks a pipeline stage boundary (e.g. "ingest:seeds", "detect:cluster").
// Every stage transition in the ingestion orchestrator goes through here so
// operators get one consistent, greppable line regardless of the configured
// log level.
func Stage(name string, v ...interface{}) {
	msg := name
	if len(v) > 0 {
		msg = fmt.Sprintf("%s: %s", name, fmt.Sprint(v...))
	}
	InfoLog.Output(2, printStr(msg))
}
