package docconv

import (
	"strings"
	"testing"
)

const sampleRTF = `{\rtf1\ansi\ansicpg1252\deff0{\fonttbl{\f0\fnil Arial;}}{\colortbl;\red0\green0\blue0;}
{\*\generator Riched20 10.0;}{\info{\title Archive}{\author Someone}}
\viewkind4\uc1\pard\f0\fs20 Economy grows\par
15 March 2021\par
Caf\'e9 owners welcome the \ldblquote plan\rdblquote .\par
\par
Document WSJ0000020210315\par
Second article\tab text \u8212? done\par
}`

func TestRTFToText(t *testing.T) {
	text := RTFToText(sampleRTF)

	for _, want := range []string{
		"Economy grows\n15 March 2021\n",
		"Café owners welcome the “plan”.",
		"\nDocument WSJ0000020210315\n",
		"Second article\ttext — done",
	} {
		if !strings.Contains(text, want) {
			t.Errorf("expected %q in output, got:\n%s", want, text)
		}
	}
	for _, unwanted := range []string{"Arial", "Riched20", "Archive", "Someone", "red0"} {
		if strings.Contains(text, unwanted) {
			t.Errorf("expected destination text %q to be dropped, got:\n%s", unwanted, text)
		}
	}
}

func TestRTFToText_EscapedSymbols(t *testing.T) {
	text := RTFToText(`{\rtf1 a\{b\}c\\d\~e}`)
	if text != "a{b}c\\d\u00a0e" {
		t.Fatalf("unexpected output %q", text)
	}
}

func TestRTFToText_UnicodeSkipCount(t *testing.T) {
	text := RTFToText(`{\rtf1\uc2 x\u20320??y}`)
	if text != "x你y" {
		t.Fatalf("expected fallback chars skipped, got %q", text)
	}
}

func TestRTFToText_SurrogatePair(t *testing.T) {
	text := RTFToText(`{\rtf1 \u-10179?\u-8704?}`)
	if text != "😀" {
		t.Fatalf("expected surrogate pair to decode, got %q", text)
	}
}

func TestRTFToText_CodePage(t *testing.T) {
	text := RTFToText(`{\rtf1\ansi\ansicpg1251 \'cf\'f0\'e8}`)
	if text != "При" {
		t.Fatalf("expected cp1251 decoding, got %q", text)
	}
}

func TestRTFToText_Malformed(t *testing.T) {
	// Unbalanced braces must not panic.
	text := RTFToText(`}}{\rtf1 hello\par world`)
	if !strings.Contains(text, "hello\nworld") {
		t.Fatalf("expected best-effort text, got %q", text)
	}
}

func TestHTMLToText(t *testing.T) {
	html := `<html><head><title>Export</title></head><body>
<div><p>15 March 2021</p><p>Markets rally.</p></div>
<p>Document WSJ0000020210315</p>
<script>track()</script><p>Next story</p></body></html>`
	text := HTMLToText(html)
	if !strings.Contains(text, "\nDocument WSJ0000020210315 \n") {
		t.Errorf("expected boundary on its own line, got: %q", text)
	}
	if strings.Contains(text, "track") || strings.Contains(text, "Export") {
		t.Errorf("expected script and head removed, got: %q", text)
	}
	if !strings.Contains(text, "Markets rally.") {
		t.Errorf("expected body text, got: %q", text)
	}
}

func TestDetect(t *testing.T) {
	tests := []struct {
		name string
		data string
		want Format
	}{
		{"a.rtf", "{\\rtf1 x}", FormatRTF},
		{"a.txt", "  {\\rtf1 x}", FormatRTF},
		{"a.dat", "<!DOCTYPE html><html></html>", FormatHTML},
		{"a.htm", "<p>x</p>", FormatHTML},
		{"a.txt", "plain", FormatText},
	}
	for _, tt := range tests {
		if got := Detect(tt.name, []byte(tt.data)); got != tt.want {
			t.Errorf("Detect(%q) = %s, want %s", tt.name, got, tt.want)
		}
	}
}

func TestConvert_Windows1252Text(t *testing.T) {
	got := Convert("a.txt", []byte("caf\xe9\r\nbar"))
	if got != "café\nbar" {
		t.Fatalf("unexpected conversion %q", got)
	}
}
