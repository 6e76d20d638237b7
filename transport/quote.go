package transport

import "strings"

// shellQuote wraps s in single quotes for the remote shell, escaping any
// embedded single quote, so path metacharacters never reach the shell
// unquoted.
func shellQuote(s string) string {
	return "'" + strings.ReplaceAll(s, "'", `'\''`) + "'"
}

// shellQuoteAll quotes every element and joins them with spaces, ready to
// splice into a command line.
func shellQuoteAll(paths []string) string {
	quoted := make([]string, len(paths))
	for i, p := range paths {
		quoted[i] = shellQuote(p)
	}
	return strings.Join(quoted, " ")
}
