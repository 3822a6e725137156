package logger

import "github.com/sirupsen/logrus"

// jsonFormatter renders log entries as line-delimited JSON.
type jsonFormatter struct {
	fmt *logrus.JSONFormatter
}

func (f *jsonFormatter) Format(entry *logrus.Entry) ([]byte, error) {
	if f.fmt == nil {
		f.fmt = &logrus.JSONFormatter{DisableHTMLEscape: true}
	}
	return f.fmt.Format(entry)
}
