package logger

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"runtime"
	"sort"
	"time"

	"github.com/logrusorgru/aurora"
	"github.com/mattn/go-isatty"
	"github.com/sirupsen/logrus"
)

var baseTimestamp = time.Now()

// textFormatter renders log entries as colorized, human-readable text when
// writing to a terminal, and falls back to JSON otherwise so that piped
// output (e.g. into a log aggregator) stays machine-parseable.
type textFormatter struct {
	DisableTimestamp bool
	FullTimestamp    bool
	ForceColors      bool
	DisableColors    bool
	TimestampFormat  string
}

func isColorTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	if !ok {
		return false
	}
	return isatty.IsTerminal(f.Fd()) && runtime.GOOS != "windows"
}

func (f *textFormatter) Format(entry *logrus.Entry) ([]byte, error) {
	isColored := (f.ForceColors || isColorTerminal(entry.Logger.Out)) && !f.DisableColors
	if !isColored {
		return (&jsonFormatter{}).Format(entry)
	}

	ns, _ := entry.Data["ns"].(string)

	b := entry.Buffer
	if b == nil {
		b = &bytes.Buffer{}
	}

	if !f.DisableTimestamp {
		ts := f.TimestampFormat
		if ts == "" {
			ts = time.RFC3339
		}
		if f.FullTimestamp {
			entry.Data["time"] = entry.Time.Format(ts)
		} else {
			entry.Data["time"] = fmt.Sprintf("%04d", int(entry.Time.Sub(baseTimestamp)/time.Second))
		}
	}

	var color aurora.Color
	switch entry.Level {
	case logrus.DebugLevel:
		color = aurora.MagentaFg
	case logrus.WarnLevel:
		color = aurora.BrownFg
	case logrus.ErrorLevel, logrus.FatalLevel, logrus.PanicLevel:
		color = aurora.RedFg
	default:
		color = aurora.CyanFg
	}
	nsColor := color | aurora.BoldFm

	fmt.Fprintf(b, "%-16s %s\n", aurora.Colorize(ns, nsColor), entry.Message)
	for _, k := range sortedKeys(entry) {
		fmt.Fprintf(b, "  %-16s %v\n", aurora.Colorize(k, color), entry.Data[k])
	}
	b.WriteByte('\n')
	return b.Bytes(), nil
}

func sortedKeys(entry *logrus.Entry) []string {
	keys := make([]string, 0, len(entry.Data))
	for k := range entry.Data {
		if k != "ns" {
			keys = append(keys, k)
		}
	}
	sort.Strings(keys)
	return keys
}
