package adb

import "strings"

// shellSafeByte reports whether b can appear unquoted in a POSIX shell
// word without being special to the shell.
func shellSafeByte(b byte) bool {
	switch {
	case b >= 'A' && b <= 'Z', b >= 'a' && b <= 'z', b >= '0' && b <= '9':
		return true
	}
	switch b {
	case '_', '.', '+', ',', ':', '@', '%', '/', '=', '-':
		return true
	}
	return false
}

// shellQuote renders arg as a single POSIX shell word, safe to pass to
// "sh -c" on the device. An empty string becomes ''; any argument
// containing a byte that isn't shell-safe is wrapped in single quotes,
// with each embedded ' escaped as '"'"'.
func shellQuote(arg string) string {
	if arg == "" {
		return "''"
	}

	safe := true
	for i := 0; i < len(arg); i++ {
		if !shellSafeByte(arg[i]) {
			safe = false
			break
		}
	}
	if safe {
		return arg
	}

	var b strings.Builder
	b.WriteByte('\'')
	for i := 0; i < len(arg); i++ {
		if arg[i] == '\'' {
			b.WriteString(`'"'"'`)
		} else {
			b.WriteByte(arg[i])
		}
	}
	b.WriteByte('\'')
	return b.String()
}
