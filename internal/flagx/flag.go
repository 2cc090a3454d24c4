// Package flagx lets several config layers share os.Args without tripping
// over each other's flags.
package flagx

import (
	"flag"
	"os"
	"strings"
)

// FilterArgs keeps only the allowed flags from args, together with their
// values. Both "-f value" and "-f=value" forms are recognised; a following
// token that starts with "-" is never taken as a value.
func FilterArgs(args []string, allowedFlags []string) []string {
	allowed := make(map[string]struct{}, len(allowedFlags))
	for _, f := range allowedFlags {
		allowed[f] = struct{}{}
	}

	filtered := make([]string, 0, len(args))
	for i := 0; i < len(args); i++ {
		arg := args[i]

		if strings.HasPrefix(arg, "-") && strings.Contains(arg, "=") {
			name, _, _ := strings.Cut(arg, "=")
			if _, ok := allowed[name]; ok {
				filtered = append(filtered, arg)
			}
			continue
		}

		if _, ok := allowed[arg]; !ok {
			continue
		}
		filtered = append(filtered, arg)
		if i+1 < len(args) && !strings.HasPrefix(args[i+1], "-") {
			filtered = append(filtered, args[i+1])
			i++
		}
	}

	return filtered
}

// JsonConfigFlags returns the path given with -c or -config, or "".
func JsonConfigFlags() string {
	return stringFlag("json", "c", "config")
}

// EnvFileFlags returns the path given with -env-file, or "".
func EnvFileFlags() string {
	return stringFlag("envfile", "", "env-file")
}

func stringFlag(set, short, long string) string {
	var value string

	names := []string{"-" + long}
	fs := flag.NewFlagSet(set, flag.ContinueOnError)
	fs.SetOutput(discard{})
	fs.StringVar(&value, long, "", "")
	if short != "" {
		names = append(names, "-"+short)
		fs.StringVar(&value, short, "", "")
	}

	_ = fs.Parse(FilterArgs(os.Args[1:], names))
	return value
}

type discard struct{}

func (discard) Write(p []byte) (int, error) { return len(p), nil }
