// Package sniffer identifies proof-of-payment images by their magic bytes.
package sniffer

import (
	"bytes"
	"errors"
	"io"
	"net/http"
	"strings"
)

type MediaType string

const (
	TypeJPEG MediaType = "jpeg"
	TypePNG  MediaType = "png"
	TypeWEBP MediaType = "webp"
	TypePDF  MediaType = "pdf"
)

var ErrUnknownType = errors.New("unsupported file type")

type Result struct {
	Type MediaType
	MIME string
}

// Extension returns the file extension for the detected type, with the dot.
func (r Result) Extension() string {
	if r.Type == TypeJPEG {
		return ".jpg"
	}
	return "." + string(r.Type)
}

// Detect reads up to 512 bytes from r. The bytes read are returned so the
// caller can stitch them back in front of the rest of the stream.
func Detect(r io.Reader) (Result, []byte, error) {
	head := make([]byte, 512)
	n, err := io.ReadFull(r, head)
	if err != nil && !errors.Is(err, io.ErrUnexpectedEOF) && !errors.Is(err, io.EOF) {
		return Result{}, nil, err
	}
	head = head[:n]

	result, err := DetectHead(head)
	return result, head, err
}

func DetectHead(head []byte) (Result, error) {
	switch {
	case len(head) == 0:
		return Result{}, ErrUnknownType
	case isJPEG(head):
		return Result{Type: TypeJPEG, MIME: "image/jpeg"}, nil
	case isPNG(head):
		return Result{Type: TypePNG, MIME: "image/png"}, nil
	case isWEBP(head):
		return Result{Type: TypeWEBP, MIME: "image/webp"}, nil
	case isPDF(head):
		return Result{Type: TypePDF, MIME: "application/pdf"}, nil
	}
	return Result{}, ErrUnknownType
}

func isJPEG(head []byte) bool {
	return len(head) > 3 &&
		head[0] == 0xff &&
		head[1] == 0xd8 &&
		head[2] == 0xff
}

func isPNG(head []byte) bool {
	pngMagic := []byte{0x89, 'P', 'N', 'G', '\r', '\n', 0x1a, '\n'}
	return len(head) >= len(pngMagic) && bytes.Equal(head[:len(pngMagic)], pngMagic)
}

func isWEBP(head []byte) bool {
	return len(head) >= 12 &&
		bytes.Equal(head[:4], []byte("RIFF")) &&
		bytes.Equal(head[8:12], []byte("WEBP"))
}

func isPDF(head []byte) bool {
	return bytes.HasPrefix(head, []byte("%PDF-"))
}

// MimeTypeFromHTTP returns the media type of a part or response header,
// without parameters. Generic binary types count as undeclared.
func MimeTypeFromHTTP(header http.Header) string {
	contentType := header.Get("Content-Type")
	if idx := strings.Index(contentType, ";"); idx >= 0 {
		contentType = contentType[:idx]
	}
	contentType = strings.TrimSpace(contentType)
	if contentType == "application/octet-stream" {
		return ""
	}
	return contentType
}
