package secret

import (
	"fmt"
	"os"
	"slices"
	"strings"
)

// ExpandEnvStrict expands environment variables in s.
//
// Semantics:
//   - `$VAR` expands like os.ExpandEnv; unset means empty.
//   - `${VAR}` must be set, otherwise ErrMissingEnv lists every missing name.
//   - `${VAR:-fallback}` uses fallback when VAR is unset or empty.
//   - `$$` emits a literal `$`.
func ExpandEnvStrict(s string) (string, error) {
	var missing []string
	braced := bracedNames(s)

	out := os.Expand(s, func(name string) string {
		if name == "$" {
			return "$"
		}
		key, fallback, hasFallback := strings.Cut(name, ":-")
		v, ok := os.LookupEnv(key)
		switch {
		case hasFallback && v == "":
			return fallback
		case !ok && braced[name] && !slices.Contains(missing, key):
			missing = append(missing, key)
		}
		return v
	})

	if len(missing) > 0 {
		slices.Sort(missing)
		return "", fmt.Errorf("%w: %s", ErrMissingEnv, strings.Join(missing, ", "))
	}
	return out, nil
}

// bracedNames collects the names written as ${NAME}; os.Expand does not say
// which form it saw.
func bracedNames(s string) map[string]bool {
	names := make(map[string]bool)
	for {
		i := strings.Index(s, "${")
		if i < 0 {
			return names
		}
		if escapedDollar(s[:i]) {
			s = s[i+2:]
			continue
		}
		end := strings.IndexByte(s[i:], '}')
		if end < 0 {
			return names
		}
		names[s[i+2:i+end]] = true
		s = s[i+end+1:]
	}
}

// escapedDollar reports whether prefix ends in an odd run of '$', making the
// '$' that follows the second half of a "$$" escape.
func escapedDollar(prefix string) bool {
	n := 0
	for i := len(prefix) - 1; i >= 0 && prefix[i] == '$'; i-- {
		n++
	}
	return n%2 == 1
}
