// Package flagx lets several config loaders share one command line: each
// loader keeps only the flags it owns before handing them to its own
// flag.FlagSet, so flags meant for another loader never fail parsing.
package flagx

import (
	"flag"
	"io"
	"os"
	"strings"
)

// FilterArgs returns the arguments that belong to the owned flags, in order.
// A flag's value is the next argument unless that one starts with "-";
// "-name=value" forms are kept whole. Everything else (other loaders' flags,
// subcommands, positional words) is dropped. The result is never nil.
func FilterArgs(args []string, owned []string) []string {
	own := make(map[string]bool, len(owned))
	for _, name := range owned {
		own[name] = true
	}

	kept := []string{}
	for i := 0; i < len(args); i++ {
		name, _, inline := strings.Cut(args[i], "=")
		if !strings.HasPrefix(name, "-") || !own[name] {
			continue
		}
		kept = append(kept, args[i])
		if !inline && i+1 < len(args) && !strings.HasPrefix(args[i+1], "-") {
			i++
			kept = append(kept, args[i])
		}
	}
	return kept
}

// JsonConfigFlags returns the config file named by -c or -config on the
// process command line, or "" when none is given.
func JsonConfigFlags() string {
	return configPath(os.Args[1:])
}

// configPath is JsonConfigFlags over explicit args. The last occurrence wins.
func configPath(args []string) string {
	var path string

	fs := flag.NewFlagSet("config", flag.ContinueOnError)
	fs.SetOutput(io.Discard)
	fs.StringVar(&path, "config", "", "path to JSON config file")
	fs.StringVar(&path, "c", "", "path to JSON config file (shorthand)")
	_ = fs.Parse(FilterArgs(args, []string{"-c", "-config", "--config"}))

	return path
}
