package convert

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
)

// Format is a sniffed file format.
type Format string

const (
	FormatPDF     Format = "pdf"
	FormatPNG     Format = "png"
	FormatJPEG    Format = "jpeg"
	FormatTIFF    Format = "tiff"
	FormatXDW     Format = "xdw"
	FormatUnknown Format = "unknown"
)

// signatures maps formats to their magic-byte prefixes.
var signatures = map[Format][][]byte{
	FormatPDF:  {[]byte("%PDF-")},
	FormatPNG:  {{0x89, 'P', 'N', 'G', 0x0D, 0x0A, 0x1A, 0x0A}},
	FormatJPEG: {{0xFF, 0xD8, 0xFF}},
	FormatTIFF: {{'I', 'I', 0x2A, 0x00}, {'M', 'M', 0x00, 0x2A}},
	// DocuWorks binder/document container signature
	FormatXDW: {{0xD0, 0xCF, 0x11, 0xE0, 0xA1, 0xB1, 0x1A, 0xE1}},
}

// mimeFormats maps declared MIME types to the formats they may legally
// carry. A declared type absent from this table is unsupported.
var mimeFormats = map[string][]Format{
	"application/pdf":                 {FormatPDF},
	"image/png":                       {FormatPNG},
	"image/jpeg":                      {FormatJPEG},
	"image/tiff":                      {FormatTIFF},
	"application/vnd.fujixerox.docuworks": {FormatXDW},
}

// extFormats maps file extensions to formats, used when no MIME type
// was declared on the event.
var extFormats = map[string]Format{
	".pdf":  FormatPDF,
	".png":  FormatPNG,
	".jpg":  FormatJPEG,
	".jpeg": FormatJPEG,
	".tif":  FormatTIFF,
	".tiff": FormatTIFF,
	".xdw":  FormatXDW,
	".xbd":  FormatXDW,
}

// sniffFormat reads the file header and identifies the format by magic
// bytes.
func sniffFormat(path string) (Format, error) {
	f, err := os.Open(path)
	if err != nil {
		return FormatUnknown, err
	}
	defer f.Close()

	header := make([]byte, 16)
	n, err := f.Read(header)
	if err != nil && n == 0 {
		return FormatUnknown, err
	}
	header = header[:n]

	for format, sigs := range signatures {
		for _, sig := range sigs {
			if bytes.HasPrefix(header, sig) {
				return format, nil
			}
		}
	}
	return FormatUnknown, nil
}

// declaredFormats resolves the set of formats the event claims the file
// to be, from its MIME type or, failing that, its extension.
func declaredFormats(contentType, locator string) []Format {
	if ct := strings.ToLower(strings.TrimSpace(contentType)); ct != "" {
		if formats, ok := mimeFormats[ct]; ok {
			return formats
		}
		return nil
	}
	if f, ok := extFormats[strings.ToLower(filepath.Ext(locator))]; ok {
		return []Format{f}
	}
	return nil
}

// matchesDeclared reports whether the sniffed format is one the
// declaration permits.
func matchesDeclared(sniffed Format, declared []Format) bool {
	for _, f := range declared {
		if f == sniffed {
			return true
		}
	}
	return false
}
