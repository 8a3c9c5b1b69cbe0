// Package flagx holds helpers for parsing a subset of command-line flags
// without clashing with flags owned by other layers of the configuration.
package flagx

import (
	"flag"
	"strings"
)

// FilterArgs returns the arguments that belong to allowedFlags, keeping
// their values. Both "-c conf.json" and "-c=conf.json" forms are recognized.
// A following token that starts with "-" is never taken as a value.
// The result is never nil.
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

// JsonConfigFlags extracts the JSON config path given with -c or -config.
// It returns "" when neither flag is present.
func JsonConfigFlags(args []string) string {
	return stringFlag(args, "config", "c", "path to JSON config file")
}

// EnvFileFlags extracts the dotenv path given with -envfile.
// It returns "" when the flag is absent.
func EnvFileFlags(args []string) string {
	return stringFlag(args, "envfile", "", "path to .env file")
}

func stringFlag(args []string, long, short, usage string) string {
	var v string

	names := []string{"-" + long}
	if short != "" {
		names = append(names, "-"+short)
	}

	fs := flag.NewFlagSet(long, flag.ContinueOnError)
	fs.StringVar(&v, long, "", usage)
	if short != "" {
		fs.StringVar(&v, short, "", usage+" (short)")
	}
	_ = fs.Parse(FilterArgs(args, names))

	return v
}
