// Package symbols turns user input into an ordered list of ticker symbols.
package symbols

import (
	"bufio"
	"os"
	"path/filepath"
	"strconv"
	"strings"
)

// MaxFileSymbolLen is the longest line Resolve accepts from a symbol file.
// Longer lines are headers or comments, not tickers.
const MaxFileSymbolLen = 5

// Set is an ordered list of symbols.
type Set []string

// Source is a resolved symbol set plus, when it was read from a file, the
// file's base name without extension.
type Source struct {
	Symbols Set
	Name    string
}

// Resolve accepts nil or a float (no symbols), a path to a symbol file, a
// single string or integer symbol, or a []string which is returned unchanged.
func Resolve(input any) Set {
	switch v := input.(type) {
	case nil, float32, float64:
		return Set{}
	case string:
		if isFile(v) {
			lines, err := readLines(v)
			if err != nil {
				return Set{}
			}
			return filter(lines, MaxFileSymbolLen)
		}
		return Set{v}
	case int:
		return Set{strconv.Itoa(v)}
	case int64:
		return Set{strconv.FormatInt(v, 10)}
	case []string:
		return Set(v)
	case Set:
		return v
	default:
		return Set{}
	}
}

// ResolveSource is the research variant of Resolve: file lines are kept
// whatever their length and the file's stem is remembered as the source name.
func ResolveSource(input any) Source {
	switch v := input.(type) {
	case []string:
		return Source{Symbols: Set(v)}
	case Set:
		return Source{Symbols: v}
	case string:
		if isFile(v) {
			lines, err := readLines(v)
			if err != nil {
				return Source{Symbols: Set{}}
			}
			base := filepath.Base(v)
			return Source{
				Symbols: filter(lines, 0),
				Name:    strings.TrimSuffix(base, filepath.Ext(base)),
			}
		}
		return Source{Symbols: Set{v}}
	default:
		return Source{Symbols: Set{}}
	}
}

// FromArgs resolves command-line arguments: one argument goes through
// Resolve, several are taken as symbols.
func FromArgs(args []string) Set {
	switch len(args) {
	case 0:
		return Set{}
	case 1:
		return Resolve(args[0])
	default:
		return Resolve(args)
	}
}

// SourceFromArgs is FromArgs for ResolveSource.
func SourceFromArgs(args []string) Source {
	switch len(args) {
	case 0:
		return Source{Symbols: Set{}}
	case 1:
		return ResolveSource(args[0])
	default:
		return ResolveSource(args)
	}
}

func isFile(path string) bool {
	if path == "" {
		return false
	}
	info, err := os.Stat(path)
	return err == nil && info.Mode().IsRegular()
}

func readLines(path string) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var lines []string
	sc := bufio.NewScanner(f)
	for sc.Scan() {
		lines = append(lines, sc.Text())
	}
	return lines, sc.Err()
}

// filter trims lines, drops blanks and duplicates, and with maxLen > 0 drops
// lines longer than maxLen.
func filter(lines []string, maxLen int) Set {
	out := make(Set, 0, len(lines))
	seen := make(map[string]bool, len(lines))
	for _, l := range lines {
		l = strings.TrimSpace(l)
		if l == "" || seen[l] || (maxLen > 0 && len(l) > maxLen) {
			continue
		}
		seen[l] = true
		out = append(out, l)
	}
	return out
}
