// Package docconv converts newspaper archive exports (RTF, HTML, plain
// text) into plain text. Conversion is best effort and never fails.
package docconv

import (
	"bytes"
	"path/filepath"
	"strings"
	"unicode/utf8"

	"golang.org/x/text/encoding/charmap"
)

// Format is a recognised input format.
type Format string

const (
	FormatRTF  Format = "rtf"
	FormatHTML Format = "html"
	FormatText Format = "text"
)

// Extensions lists the file extensions Convert understands.
var Extensions = []string{".rtf", ".html", ".htm", ".txt"}

// Detect picks the format of a document from its content, falling back to
// the file extension.
func Detect(name string, data []byte) Format {
	head := bytes.TrimLeft(data, " \t\r\n\ufeff")
	switch {
	case bytes.HasPrefix(head, []byte(`{\rtf`)):
		return FormatRTF
	case bytes.HasPrefix(bytes.ToLower(head), []byte("<!doctype html")), bytes.HasPrefix(bytes.ToLower(head), []byte("<html")):
		return FormatHTML
	}

	switch strings.ToLower(filepath.Ext(name)) {
	case ".rtf":
		return FormatRTF
	case ".html", ".htm":
		return FormatHTML
	default:
		return FormatText
	}
}

// Convert returns the plain text of the document named name.
func Convert(name string, data []byte) string {
	text := decodeText(data)
	switch Detect(name, data) {
	case FormatRTF:
		return RTFToText(text)
	case FormatHTML:
		return HTMLToText(text)
	default:
		return strings.ReplaceAll(text, "\r\n", "\n")
	}
}

// decodeText returns data as UTF-8, treating invalid UTF-8 as Windows-1252.
func decodeText(data []byte) string {
	data = bytes.TrimPrefix(data, []byte("\xef\xbb\xbf"))
	if utf8.Valid(data) {
		return string(data)
	}
	out, err := charmap.Windows1252.NewDecoder().Bytes(data)
	if err != nil {
		return string(data)
	}
	return string(out)
}
