// Package logging wraps the standard library logger with the
// component-tagged style used throughout the teacher repo
// ("[B-Book] EXECUTED: ...", "[Ledger] DEPOSIT: ..."): every message is
// prefixed with the owning component's bracketed name.
package logging

import (
	"log"
	"os"
)

// Logger prints lines tagged with a fixed component name.
type Logger struct {
	tag    string
	stdlib *log.Logger
}

// New returns a Logger that prefixes every line with "[tag] ".
func New(tag string) *Logger {
	return &Logger{
		tag:    tag,
		stdlib: log.New(os.Stdout, "", log.LstdFlags),
	}
}

func (l *Logger) Printf(format string, args ...any) {
	l.stdlib.Printf("[%s] "+format, append([]any{l.tag}, args...)...)
}

func (l *Logger) Println(args ...any) {
	l.stdlib.Println(append([]any{"[" + l.tag + "]"}, args...)...)
}
