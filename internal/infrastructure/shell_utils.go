package infrastructure

import "strings"

// shellSpecials are the characters that force a command-line token
// into single quotes when echoed to a download log.
const shellSpecials = " \t\n\r'\"$`\\!*?[](){}|;<>&~#%"

// ShellEscape quotes a token for display in a logged command line,
// such as the `$ yt-dlp ...` header written before each download.
// exec.Command passes arguments verbatim and never needs this.
func ShellEscape(s string) string {
	if s == "" {
		return "''"
	}
	if !strings.ContainsAny(s, shellSpecials) {
		return s
	}

	// single-quote wrapping; an embedded single quote closes the
	// quote, splices a double-quoted one in, and reopens
	var b strings.Builder
	b.WriteString("'")
	for _, c := range s {
		if c == '\'' {
			b.WriteString(`'"'"'`)
		} else {
			b.WriteRune(c)
		}
	}
	b.WriteString("'")
	return b.String()
}

// ShellEscapeCommand renders a binary and its arguments as a single
// copy-pasteable line.
func ShellEscapeCommand(binary string, args ...string) string {
	parts := make([]string, 0, len(args)+1)
	parts = append(parts, ShellEscape(binary))
	for _, arg := range args {
		parts = append(parts, ShellEscape(arg))
	}
	return strings.Join(parts, " ")
}
