package parser

import (
	"os"
	"time"
)

// Substitutions is the closed table of values a web can insert with
// @( name @). The reader adds theFile and theLocation itself.
type Substitutions map[string]string

// DefaultSubstitutions returns the values supplied by the command line.
func DefaultSubstitutions(version string, now time.Time) Substitutions {
	cwd, err := os.Getwd()
	if err != nil {
		cwd = "."
	}
	return Substitutions{
		"version": version,
		"now":     now.Format(time.ANSIC),
		"cwd":     cwd,
	}
}
