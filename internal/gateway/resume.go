package gateway

import (
	"encoding/base64"
	"errors"
	"fmt"
	"net/url"
	"strings"

	"github.com/eleven-am/interview-backend/internal/extraction"
)

var ErrMalformedResume = errors.New("malformed resume")

// ParseResume turns the resume field of start_interview into a document.
// A data URL ("data:<mime>[;base64],<payload>") is decoded; a bare payload
// with an explicit mime type is treated as base64; anything else is plain
// text.
func ParseResume(resume, mimeType string) (extraction.Document, error) {
	trimmed := strings.TrimSpace(resume)

	if strings.HasPrefix(trimmed, "data:") {
		return parseDataURL(trimmed)
	}

	mimeType = strings.TrimSpace(mimeType)
	if mimeType == "" || strings.HasPrefix(mimeType, "text/") {
		return extraction.Document{MIMEType: orDefault(mimeType, "text/plain"), Data: []byte(resume)}, nil
	}

	data, err := decodeBase64(trimmed)
	if err != nil {
		return extraction.Document{}, fmt.Errorf("%w: %v", ErrMalformedResume, err)
	}
	return extraction.Document{MIMEType: mimeType, Data: data}, nil
}

func parseDataURL(s string) (extraction.Document, error) {
	header, payload, ok := strings.Cut(strings.TrimPrefix(s, "data:"), ",")
	if !ok {
		return extraction.Document{}, fmt.Errorf("%w: missing data url separator", ErrMalformedResume)
	}

	params := strings.Split(header, ";")
	mimeType := strings.TrimSpace(params[0])
	isBase64 := false
	for _, p := range params[1:] {
		if strings.EqualFold(strings.TrimSpace(p), "base64") {
			isBase64 = true
		}
	}

	var data []byte
	if isBase64 {
		decoded, err := decodeBase64(payload)
		if err != nil {
			return extraction.Document{}, fmt.Errorf("%w: %v", ErrMalformedResume, err)
		}
		data = decoded
	} else {
		unescaped, err := url.PathUnescape(payload)
		if err != nil {
			return extraction.Document{}, fmt.Errorf("%w: %v", ErrMalformedResume, err)
		}
		data = []byte(unescaped)
	}

	return extraction.Document{MIMEType: orDefault(mimeType, "text/plain"), Data: data}, nil
}

func decodeBase64(s string) ([]byte, error) {
	s = strings.Map(func(r rune) rune {
		switch r {
		case ' ', '\n', '\r', '\t':
			return -1
		}
		return r
	}, s)

	if data, err := base64.StdEncoding.DecodeString(s); err == nil {
		return data, nil
	}
	return base64.RawStdEncoding.DecodeString(strings.TrimRight(s, "="))
}

func orDefault(s, fallback string) string {
	if s == "" {
		return fallback
	}
	return s
}
