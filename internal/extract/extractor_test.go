package extract

import (
	"bytes"
	"errors"
	"fmt"
	"strings"
	"testing"
)

func TestExtractBytes_plain(t *testing.T) {
	e := NewExtractor()
	got, err := e.ExtractBytes([]byte("  Hello world\nLine 2\n\n"), ".txt")
	if err != nil {
		t.Fatalf("ExtractBytes: %v", err)
	}
	if got != "Hello world\nLine 2" {
		t.Errorf("got %q", got)
	}
}

func TestExtractBytes_plainUTF8(t *testing.T) {
	e := NewExtractor()
	got, err := e.ExtractBytes([]byte("caf\xc3\xa9"), ".TXT")
	if err != nil {
		t.Fatalf("ExtractBytes: %v", err)
	}
	if got != "café" {
		t.Errorf("got %q", got)
	}
}

func TestExtractBytes_plainInvalidUTF8(t *testing.T) {
	e := NewExtractor()
	got, err := e.ExtractBytes([]byte("hello\x80world"), ".txt")
	if err != nil {
		t.Fatalf("ExtractBytes: %v", err)
	}
	if got != "hello\ufffdworld" {
		t.Errorf("got %q", got)
	}
}

func TestExtract_emptyText(t *testing.T) {
	got, err := NewExtractor().Extract("blank.txt", []byte(" \n\t "))
	if err != nil {
		t.Fatalf("Extract: %v", err)
	}
	if got != "" {
		t.Errorf("got %q, want empty", got)
	}
}

func TestExtract_unsupportedExtension(t *testing.T) {
	e := NewExtractor()
	for _, name := range []string{"notes.md", "sheet.xlsx", "report.docx", "noext", "archive.txt.gz"} {
		t.Run(name, func(t *testing.T) {
			_, err := e.Extract(name, []byte("plain words"))
			if !errors.Is(err, ErrUnsupportedType) {
				t.Errorf("Extract(%q) error = %v, want ErrUnsupportedType", name, err)
			}
		})
	}
}

func TestExtract_malformedPDF(t *testing.T) {
	_, err := NewExtractor().Extract("broken.pdf", []byte("this is not a pdf"))
	if !errors.Is(err, ErrMalformed) {
		t.Errorf("error = %v, want ErrMalformed", err)
	}
}

func TestExtract_brokenPDFObject(t *testing.T) {
	content := writePDF([]string{
		"<< /Type /Catalog /Pages 2 0 R >>",
		"<< /Type /Pages /Count ] >>",
	})
	_, err := NewExtractor().Extract("broken.pdf", content)
	if !errors.Is(err, ErrMalformed) {
		t.Errorf("error = %v, want ErrMalformed", err)
	}
}

func TestExtract_pdf(t *testing.T) {
	content := buildPDF("The fox won 3 awards.")
	got, err := NewExtractor().Extract("fox.PDF", content)
	if err != nil {
		t.Fatalf("Extract: %v", err)
	}
	if !strings.Contains(got, "The fox won 3 awards.") {
		t.Errorf("got %q", got)
	}
}

func TestSupported(t *testing.T) {
	tests := []struct {
		name string
		want bool
	}{
		{"a.txt", true},
		{"a.PDF", true},
		{"a.md", false},
		{"", false},
	}
	for _, tt := range tests {
		if got := Supported(tt.name); got != tt.want {
			t.Errorf("Supported(%q) = %v, want %v", tt.name, got, tt.want)
		}
	}
}

// buildPDF writes a single-page PDF showing text in Helvetica, with a valid xref table.
func buildPDF(text string) []byte {
	stream := fmt.Sprintf("BT /F1 12 Tf 72 720 Td (%s) Tj ET", text)
	objects := []string{
		"<< /Type /Catalog /Pages 2 0 R >>",
		"<< /Type /Pages /Kids [3 0 R] /Count 1 >>",
		"<< /Type /Page /Parent 2 0 R /MediaBox [0 0 612 792] /Resources << /Font << /F1 5 0 R >> >> /Contents 4 0 R >>",
		fmt.Sprintf("<< /Length %d >>\nstream\n%s\nendstream", len(stream), stream),
		"<< /Type /Font /Subtype /Type1 /BaseFont /Helvetica /Encoding /WinAnsiEncoding >>",
	}
	return writePDF(objects)
}

// writePDF numbers objects from 1 and writes them with a matching xref table and trailer.
func writePDF(objects []string) []byte {
	var buf bytes.Buffer
	buf.WriteString("%PDF-1.4\n")
	offsets := make([]int, len(objects))
	for i, obj := range objects {
		offsets[i] = buf.Len()
		fmt.Fprintf(&buf, "%d 0 obj\n%s\nendobj\n", i+1, obj)
	}
	xref := buf.Len()
	fmt.Fprintf(&buf, "xref\n0 %d\n", len(objects)+1)
	buf.WriteString("0000000000 65535 f \n")
	for _, off := range offsets {
		fmt.Fprintf(&buf, "%010d 00000 n \n", off)
	}
	fmt.Fprintf(&buf, "trailer\n<< /Size %d /Root 1 0 R >>\nstartxref\n%d\n%%%%EOF\n", len(objects)+1, xref)
	return buf.Bytes()
}

func TestExtractBytes_plainByteOrderMarks(t *testing.T) {
	tests := []struct {
		name    string
		content []byte
	}{
		{"utf-8 bom", append([]byte{0xEF, 0xBB, 0xBF}, "café"...)},
		{"utf-16le bom", []byte{0xFF, 0xFE, 'c', 0, 'a', 0, 'f', 0, 0xE9, 0}},
		{"utf-16be bom", []byte{0xFE, 0xFF, 0, 'c', 0, 'a', 0, 'f', 0, 0xE9}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := NewExtractor().ExtractBytes(tt.content, ".txt")
			if err != nil {
				t.Fatalf("ExtractBytes: %v", err)
			}
			if got != "café" {
				t.Errorf("got %q, want %q", got, "café")
			}
		})
	}
}
