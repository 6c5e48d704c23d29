package cypher

import "github.com/cuemby/nexus/pkg/nexuserr"

func newSyntaxError(line, column int, format string, args ...any) *nexuserr.Error {
	return nexuserr.Syntax(line, column, format, args...)
}
