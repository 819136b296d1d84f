package pluginconfig

import (
	"io"
	"os"

	"github.com/sirupsen/logrus"
)

// SetLogging sets the logging level and output file.
//  levelName is one of error, warning, info, debug. Default is warning.
//  logFile to log to, or "" for stderr only.
// Returns an error if the log file cannot be opened.
func SetLogging(levelName string, logFile string) error {
	loggingLevel := logrus.WarnLevel

	switch levelName {
	case "error":
		loggingLevel = logrus.ErrorLevel
	case "info":
		loggingLevel = logrus.InfoLevel
	case "debug":
		loggingLevel = logrus.DebugLevel
	case "warn", "warning", "":
		loggingLevel = logrus.WarnLevel
	default:
		logrus.Warningf("SetLogging: unknown log level '%s', using warning", levelName)
	}
	logrus.SetLevel(loggingLevel)
	logrus.SetFormatter(&logrus.TextFormatter{
		FullTimestamp:   true,
		TimestampFormat: "2006-01-02 15:04:05.000",
	})

	if logFile != "" {
		fileHandle, err := os.OpenFile(logFile, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0640)
		if err != nil {
			logrus.Errorf("SetLogging: unable to open logfile '%s': %s", logFile, err)
			return err
		}
		logrus.SetOutput(io.MultiWriter(os.Stderr, fileHandle))
	} else {
		logrus.SetOutput(os.Stderr)
	}
	return nil
}
