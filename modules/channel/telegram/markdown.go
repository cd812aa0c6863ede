package telegram

import "strings"

// markdownV2Escaper escapes every character Telegram MarkdownV2 reserves:
// _ * [ ] ( ) ~ ` > # + - = | { } . !
var markdownV2Escaper = strings.NewReplacer(
	`\`, `\\`,
	`_`, `\_`,
	`*`, `\*`,
	`[`, `\[`,
	`]`, `\]`,
	`(`, `\(`,
	`)`, `\)`,
	`~`, `\~`,
	"`", "\\`",
	`>`, `\>`,
	`#`, `\#`,
	`+`, `\+`,
	`-`, `\-`,
	`=`, `\=`,
	`|`, `\|`,
	`{`, `\{`,
	`}`, `\}`,
	`.`, `\.`,
	`!`, `\!`,
)

// EscapeMarkdownV2 escapes text so Telegram renders it literally.
func EscapeMarkdownV2(text string) string {
	return markdownV2Escaper.Replace(text)
}

// FormatMarkdownV2 converts the small markdown subset used in bot replies
// (**bold** and `code`) to Telegram MarkdownV2 and escapes everything else.
func FormatMarkdownV2(text string) string {
	runes := []rune(text)
	var b strings.Builder
	b.Grow(len(text))

	for i := 0; i < len(runes); {
		switch {
		case runes[i] == '`':
			if end := indexRune(runes, i+1, '`'); end > 0 {
				// Inside code spans only ` and \ need escaping.
				b.WriteByte('`')
				b.WriteString(strings.NewReplacer(`\`, `\\`, "`", "\\`").Replace(string(runes[i+1 : end])))
				b.WriteByte('`')
				i = end + 1
				continue
			}
		case runes[i] == '*' && i+1 < len(runes) && runes[i+1] == '*':
			if end := indexPair(runes, i+2, '*'); end > 0 {
				b.WriteByte('*')
				b.WriteString(EscapeMarkdownV2(string(runes[i+2 : end])))
				b.WriteByte('*')
				i = end + 2
				continue
			}
		}
		b.WriteString(EscapeMarkdownV2(string(runes[i])))
		i++
	}
	return b.String()
}

// indexRune returns the index of the first delim at or after start, or -1.
func indexRune(runes []rune, start int, delim rune) int {
	for i := start; i < len(runes); i++ {
		if runes[i] == delim {
			return i
		}
	}
	return -1
}

// indexPair returns the index of the first doubled delim at or after start, or -1.
func indexPair(runes []rune, start int, delim rune) int {
	for i := start; i < len(runes)-1; i++ {
		if runes[i] == delim && runes[i+1] == delim {
			return i
		}
	}
	return -1
}
