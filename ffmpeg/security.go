package ffmpeg

import (
	"fmt"
	"strings"
)

// SanitizeArgs rejects custom pass-through arguments containing shell-like
// metacharacters. exec.Command never invokes a shell, so this is belt and
// suspenders against tokens that were clearly meant for one.
func SanitizeArgs(args []string) error {
	if len(args) == 0 {
		return fmt.Errorf("no arguments provided")
	}
	for _, arg := range args {
		if strings.ContainsAny(arg, "|&;`$()<>") {
			return fmt.Errorf("disallowed character found in argument: %s", arg)
		}
	}
	return nil
}
