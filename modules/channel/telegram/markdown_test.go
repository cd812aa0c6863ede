package telegram

import "testing"

func TestEscapeMarkdownV2(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"plain", "plain"},
		{"1.5 - ok!", `1\.5 \- ok\!`},
		{"a_b*c[d](e)", `a\_b\*c\[d\]\(e\)`},
		{`back\slash`, `back\\slash`},
		{"Отчет ОКК 01.02.2024", `Отчет ОКК 01\.02\.2024`},
	}
	for _, tt := range tests {
		if got := EscapeMarkdownV2(tt.in); got != tt.want {
			t.Errorf("EscapeMarkdownV2(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestFormatMarkdownV2(t *testing.T) {
	tests := []struct {
		name, in, want string
	}{
		{"bold", "**Ошибка формата отчета!**", `*Ошибка формата отчета\!*`},
		{"bold inside text", "Просто **отправьте отчет**, и всё.", `Просто *отправьте отчет*, и всё\.`},
		{"code", "use `a_b.c`", "use `a_b.c`"},
		{"unclosed bold", "**open", `\*\*open`},
		{"newlines", "a.\nb!", "a\\.\nb\\!"},
		{"emoji", "✅ готово.", `✅ готово\.`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := FormatMarkdownV2(tt.in); got != tt.want {
				t.Errorf("FormatMarkdownV2(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}
