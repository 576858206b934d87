package esmtpd

import "strings"

// parseAddress extracts the address from the argument of MAIL FROM or
// RCPT TO and returns whatever followed it, usually ESMTP parameters.
// The grammar is deliberately lenient, the way RFC 5321 wants receivers
// to be: source routes are accepted and discarded, CFWS comments are
// stripped, quoted strings and backslash escapes are kept verbatim, and
// a domainless address like "postmaster" passes. ok is false only when
// the argument cannot be read as an address at all, or when the local
// part exceeds localPartLimit.
func parseAddress(arg string, localPartLimit int) (addr, rest string, ok bool) {
	if arg == "" {
		return "", "", true
	}
	s := strings.TrimLeft(arg, " \t")
	if strings.HasPrefix(s, "<") {
		addr, rest, ok = parseAngleAddr(s)
	} else {
		addr, rest, ok = parseBareAddr(s)
	}
	if !ok {
		return "", "", false
	}
	if at := strings.LastIndexByte(addr, '@'); at >= 0 {
		local, domain := addr[:at], addr[at+1:]
		if local == "" || domain == "" {
			return "", "", false
		}
		if localPartLimit > 0 && len(local) > localPartLimit {
			return "", "", false
		}
	}
	return addr, strings.TrimSpace(rest), true
}

// parseAngleAddr reads an address of the form "<...>", discarding an
// optional source route up to the first colon, "<@relay:user@host>" as
// per RFC 5321 4.1.2.
func parseAngleAddr(s string) (addr, rest string, ok bool) {
	end := -1
	inQuote := false
	for i := 1; i < len(s); i++ {
		switch {
		case inQuote:
			if s[i] == '\\' {
				i++
			} else if s[i] == '"' {
				inQuote = false
			}
		case s[i] == '"':
			inQuote = true
		case s[i] == '>':
			end = i
		}
		if end >= 0 {
			break
		}
	}
	if end < 0 {
		return "", "", false
	}
	addr, rest = s[1:end], s[end+1:]
	if strings.HasPrefix(addr, "@") {
		colon := indexOutsideQuotes(addr, ':')
		if colon < 0 {
			return "", "", false
		}
		addr = addr[colon+1:]
	}
	return addr, rest, true
}

// parseBareAddr reads an address written without angle brackets. The
// address ends at the first whitespace outside quoted strings; comments
// in parentheses are removed.
func parseBareAddr(s string) (addr, rest string, ok bool) {
	var b strings.Builder
	i := 0
	inQuote := false
loop:
	for i < len(s) {
		ch := s[i]
		switch {
		case inQuote:
			if ch == '\\' && i+1 < len(s) {
				b.WriteByte(ch)
				b.WriteByte(s[i+1])
				i += 2
				continue
			}
			if ch == '"' {
				inQuote = false
			}
			b.WriteByte(ch)
			i++
		case ch == '"':
			inQuote = true
			b.WriteByte(ch)
			i++
		case ch == '\\' && i+1 < len(s):
			b.WriteByte(ch)
			b.WriteByte(s[i+1])
			i += 2
		case ch == '(':
			depth := 1
			i++
			for i < len(s) && depth > 0 {
				if s[i] == '(' {
					depth++
				} else if s[i] == ')' {
					depth--
				}
				i++
			}
			if depth != 0 {
				return "", "", false
			}
		case ch == ' ' || ch == '\t':
			break loop
		default:
			b.WriteByte(ch)
			i++
		}
	}
	if inQuote {
		return "", "", false
	}
	return b.String(), s[i:], true
}

func indexOutsideQuotes(s string, sep byte) int {
	inQuote := false
	for i := 0; i < len(s); i++ {
		switch {
		case inQuote:
			if s[i] == '\\' {
				i++
			} else if s[i] == '"' {
				inQuote = false
			}
		case s[i] == '"':
			inQuote = true
		case s[i] == sep:
			return i
		}
	}
	return -1
}

// parseParams reads ESMTP parameters that follow the address in MAIL and
// RCPT, "KEY=value" or a bare "KEY". An empty map value marks a bare
// parameter; "KEY=" with nothing after the equals sign is a syntax error,
// as is a key that is not purely alphanumeric, RFC 1869 § 6.
func parseParams(tokens []string) (map[string]string, bool) {
	params := make(map[string]string, len(tokens))
	for _, token := range tokens {
		key, value, eq := strings.Cut(token, "=")
		if !isAlnum(key) || (eq && value == "") {
			return nil, false
		}
		params[key] = value
	}
	return params, true
}

func isAlnum(s string) bool {
	if s == "" {
		return false
	}
	for i := 0; i < len(s); i++ {
		ch := s[i]
		if ch >= '0' && ch <= '9' || ch >= 'A' && ch <= 'Z' || ch >= 'a' && ch <= 'z' {
			continue
		}
		return false
	}
	return true
}
