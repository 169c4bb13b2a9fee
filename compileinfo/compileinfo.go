// Package compileinfo reports the VCS state a binary was built from.
package compileinfo

import (
	"fmt"
	"runtime/debug"

	"github.com/sirupsen/logrus"
)

type CompileInfo struct {
	Package    string
	GoVersion  string
	Commit     string
	CommitTime string
	Modified   bool
}

func (c CompileInfo) String() string {
	mod := ""
	if c.Modified {
		mod = " Files in the repo were modified after that commit."
	}

	return fmt.Sprintf("This %s binary was built with %s at commit %v at time %v.%s", c.Package, c.GoVersion, c.Commit, c.CommitTime, mod)
}

// Fields renders the build info for structured logs.
func (c CompileInfo) Fields() logrus.Fields {
	return logrus.Fields{
		"package":     c.Package,
		"go_version":  c.GoVersion,
		"commit":      c.Commit,
		"commit_time": c.CommitTime,
		"modified":    c.Modified,
	}
}

func Get() CompileInfo {
	out := CompileInfo{}

	z, ok := debug.ReadBuildInfo()
	if !ok {
		return out
	}

	out.GoVersion = z.GoVersion
	out.Package = z.Path
	for _, s := range z.Settings {
		switch s.Key {
		case "vcs.revision":
			out.Commit = s.Value
		case "vcs.time":
			out.CommitTime = s.Value
		case "vcs.modified":
			out.Modified = s.Value == "true"
		}
	}

	return out
}

// Log writes the build info to log at info level.
func Log(log logrus.FieldLogger) {
	log.WithFields(Get().Fields()).Infoln("Build")
}

// PrintToStdErr logs the build info through the standard logrus logger,
// which writes to stderr.
func PrintToStdErr() {
	Log(logrus.StandardLogger())
}
