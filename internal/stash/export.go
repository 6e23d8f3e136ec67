package stash

import (
	"strings"

	"github.com/CJohnsonADAH/adpn-cli/internal/overlay"
)

// Environment variable names carrying session state between cooperating
// processes.
const (
	EnvFile  = "ADPN_STASH_FILE"
	EnvKey   = "ADPN_STASH_KEY"
	EnvClose = "ADPN_STASH_CLOSE"
)

const exportTemplate = EnvFile + `="%(file)s"; export ` + EnvFile + `
` + EnvKey + `="%(key)s"; export ` + EnvKey + `
`

// ExportBlock renders the shell assignments the invoking process evaluates
// to hand this session to subsequent commands. The close marker is included
// only when this session owns the backing file, so a nested invocation that
// merely reused the stash will not tear it down.
func (s *Session) ExportBlock() string {
	view := overlay.Object{
		"file": s.File,
		"key":  s.Key(),
	}
	block := view.Template(exportTemplate)
	if s.ownsFile {
		block += EnvClose + `="1"; export ` + EnvClose + "\n"
	}
	return block
}

// UnsetBlock renders the inverse of ExportBlock.
func UnsetBlock() string {
	return strings.Join([]string{
		"unset " + EnvFile,
		"unset " + EnvKey,
		"unset " + EnvClose,
		"",
	}, "\n")
}
