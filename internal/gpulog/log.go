// Package gpulog provides the ambient diagnostic logger used at component
// lifecycle boundaries (device init/teardown, program compile, facade
// close, engine open). It is deliberately thin, just enough to keep
// lifecycle events visible the way a real service would.
package gpulog

import "github.com/sirupsen/logrus"

var std = logrus.New()

// Logger returns the process-wide logger used by the gpu/radar packages.
func Logger() *logrus.Logger { return std }

// SetOutput sets the logger's minimum level (init() starts it at
// WarnLevel); the output destination is left unchanged.
func SetOutput(l logrus.Level) { std.SetLevel(l) }

func init() {
	std.SetLevel(logrus.WarnLevel)
	std.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
}
