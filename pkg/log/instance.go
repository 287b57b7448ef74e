package log

import (
	"github.com/sirupsen/logrus"
)

// Init configure the process wide logrus instance.
// format: text or json, level: debug/info/warn/error
func Init(level, format string) {
	if format == "json" {
		logrus.SetFormatter(&logrus.JSONFormatter{})
	} else {
		logrus.SetFormatter(&logrus.TextFormatter{
			FullTimestamp: true,
		})
	}
	lv, err := logrus.ParseLevel(level)
	if err != nil {
		lv = logrus.InfoLevel
	}
	logrus.SetLevel(lv)
}
