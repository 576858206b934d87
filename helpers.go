package esmtpd

import (
	"crypto/rand"
	"encoding/hex"
	"regexp"
	"strings"
)

// mask shortens sensitive values for logging
func mask(input string) string {
	if input == "" {
		return "****"
	}
	return string(input[0]) + "****"
}

// getRandomID gets random hex encoded id
func getRandomID() (id string, err error) {
	b := make([]byte, 10)
	_, err = rand.Read(b)
	if err != nil {
		return
	}
	id = hex.EncodeToString(b)
	return
}

var authCommandPattern = regexp.MustCompile(`(?i)^(\s*AUTH\s+\S+[ \t]+)(\S+)`)

// sanitizeLine hides the initial response of an AUTH command so protocol
// traces never carry credentials
func sanitizeLine(line string) string {
	return authCommandPattern.ReplaceAllString(line, "${1}********")
}

// isASCII reports that every byte of s fits 7 bits
func isASCII(s string) bool {
	for i := 0; i < len(s); i++ {
		if s[i] > 127 {
			return false
		}
	}
	return true
}

// strip the expected keyword, like "FROM:" or "TO:", off the front of a
// command argument, case insensitively. ok is false when the keyword is
// not there.
func stripCommandKeyword(keyword, arg string) (rest string, ok bool) {
	if len(arg) < len(keyword) {
		return "", false
	}
	if !strings.EqualFold(arg[:len(keyword)], keyword) {
		return "", false
	}
	return strings.TrimSpace(arg[len(keyword):]), true
}
