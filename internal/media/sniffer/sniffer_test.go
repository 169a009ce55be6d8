package sniffer

import (
	"bytes"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	jpegHead = []byte{0xff, 0xd8, 0xff, 0xe0, 0x00, 0x10, 'J', 'F', 'I', 'F'}
	pngHead  = []byte{0x89, 'P', 'N', 'G', '\r', '\n', 0x1a, '\n', 0x00}
	webpHead = []byte("RIFF\x00\x00\x00\x00WEBPVP8 ")
)

func TestDetectHead(t *testing.T) {
	tests := []struct {
		name string
		head []byte
		want MediaType
		ext  string
	}{
		{name: "jpeg", head: jpegHead, want: TypeJPEG, ext: ".jpg"},
		{name: "png", head: pngHead, want: TypePNG, ext: ".png"},
		{name: "webp", head: webpHead, want: TypeWEBP, ext: ".webp"},
		{name: "pdf", head: []byte("%PDF-1.7\n"), want: TypePDF, ext: ".pdf"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res, err := DetectHead(tt.head)
			require.NoError(t, err)
			assert.Equal(t, tt.want, res.Type)
			assert.Equal(t, tt.ext, res.Extension())
		})
	}
}

func TestDetectRejectsUnknown(t *testing.T) {
	_, err := DetectHead(nil)
	assert.ErrorIs(t, err, ErrUnknownType)

	_, head, err := Detect(bytes.NewReader([]byte("<html><body>hi</body></html>")))
	assert.ErrorIs(t, err, ErrUnknownType)
	assert.Equal(t, "<html><body>hi</body></html>", string(head))
}

func TestMimeTypeFromHTTP(t *testing.T) {
	h := http.Header{}
	h.Set("Content-Type", "image/png; charset=binary")
	assert.Equal(t, "image/png", MimeTypeFromHTTP(h))

	h.Set("Content-Type", "application/octet-stream")
	assert.Equal(t, "", MimeTypeFromHTTP(h))
}
