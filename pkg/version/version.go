// Package version holds build metadata injected at link time.
package version

import "fmt"

// Populated via -ldflags at build time. The defaults mark a build made
// straight from `go build` without the release tooling.
var (
	GitVersion = "v0.0.0-dev"
	GitCommit  = ""
	BuildDate  = ""
)

// Info describes the running binary.
type Info struct {
	GitVersion string `json:"gitVersion"`
	GitCommit  string `json:"gitCommit"`
	BuildDate  string `json:"buildDate"`
}

// Get returns the build information of the running binary.
func Get() Info {
	return Info{
		GitVersion: GitVersion,
		GitCommit:  GitCommit,
		BuildDate:  BuildDate,
	}
}

// String renders the info on one line, suitable for logs and --version.
func (i Info) String() string {
	s := i.GitVersion
	if i.GitCommit != "" {
		s = fmt.Sprintf("%s (%s)", s, i.GitCommit)
	}
	if i.BuildDate != "" {
		s = fmt.Sprintf("%s built %s", s, i.BuildDate)
	}
	return s
}
