package harness

import (
	"strings"
	"unicode"
)

// DeniedArgPrefixes lists argument prefixes that are rejected because they
// carry credentials that are deprecated or unsafe on a command line. Append to
// extend it.
var DeniedArgPrefixes = []string{"-rpcuser", "-rpcpassword"}

// ValidateArgs rejects arguments that start with a denied prefix or contain
// whitespace, and returns args unchanged otherwise.
func ValidateArgs(args []string) ([]string, error) {
	for _, arg := range args {
		for _, prefix := range DeniedArgPrefixes {
			if strings.HasPrefix(arg, prefix) {
				return nil, &InvalidArgumentError{Arg: arg, Reason: "credential flags are not supported; rely on the control socket"}
			}
		}
		if strings.IndexFunc(arg, unicode.IsSpace) >= 0 {
			return nil, &InvalidArgumentError{Arg: arg, Reason: "arguments must be single tokens without whitespace"}
		}
	}
	return args, nil
}
