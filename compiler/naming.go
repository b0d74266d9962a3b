package compiler

import (
	"strings"
	"unicode"
	"unicode/utf8"
)

// AccessorName derives the accessor method name for a service key: the key split on
// every non-alphanumeric rune, each part capitalized, joined, and suffixed with
// "Service". Keys that do not start with a letter get an "S" prefix.
//
//	"mailer"          -> "MailerService"
//	"app.mail_sender" -> "AppMailSenderService"
func AccessorName(key string) string {
	var sb strings.Builder
	upper := true
	for _, r := range key {
		if !unicode.IsLetter(r) && !unicode.IsDigit(r) {
			upper = true
			continue
		}
		if upper {
			r = unicode.ToUpper(r)
			upper = false
		}
		sb.WriteRune(r)
	}
	name := sb.String()
	if first, _ := utf8.DecodeRuneInString(name); !unicode.IsLetter(first) {
		name = "S" + name
	}
	return name + "Service"
}

func lowerFirst(s string) string {
	r, n := utf8.DecodeRuneInString(s)
	return string(unicode.ToLower(r)) + s[n:]
}
