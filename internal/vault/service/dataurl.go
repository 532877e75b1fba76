package service

import (
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"mime"
	"net/http"
	"net/url"
	"strings"
)

var ErrInvalidDataURL = errors.New("invalid data URL")

// EncodeDataURL reads r fully and returns "data:<mime>;base64,<payload>".
// An empty or generic contentType is replaced by a sniffed one.
func EncodeDataURL(r io.Reader, contentType string) (string, error) {
	b, err := io.ReadAll(r)
	if err != nil {
		return "", err
	}
	mt, _, err := mime.ParseMediaType(contentType)
	if err != nil || mt == "" || mt == "application/octet-stream" {
		mt, _, _ = mime.ParseMediaType(http.DetectContentType(b))
	}
	return "data:" + mt + ";base64," + base64.StdEncoding.EncodeToString(b), nil
}

// DecodeDataURL splits a data URL into its media type and decoded bytes.
// Both base64 and percent-encoded payloads are accepted.
func DecodeDataURL(dataURL string) (string, []byte, error) {
	rest, ok := strings.CutPrefix(dataURL, "data:")
	if !ok {
		return "", nil, ErrInvalidDataURL
	}
	meta, payload, ok := strings.Cut(rest, ",")
	if !ok {
		return "", nil, ErrInvalidDataURL
	}

	isBase64 := false
	if m, found := strings.CutSuffix(meta, ";base64"); found {
		meta, isBase64 = m, true
	}
	mediaType := meta
	if mediaType == "" || strings.HasPrefix(mediaType, ";") {
		mediaType = "text/plain" + mediaType
	}

	if isBase64 {
		b, err := base64.StdEncoding.DecodeString(payload)
		if err != nil {
			return "", nil, fmt.Errorf("%w: %v", ErrInvalidDataURL, err)
		}
		return mediaType, b, nil
	}
	s, err := url.PathUnescape(payload)
	if err != nil {
		return "", nil, fmt.Errorf("%w: %v", ErrInvalidDataURL, err)
	}
	return mediaType, []byte(s), nil
}

// DecodedSize returns the payload size of a base64 data URL without
// decoding it, or -1 when it is not one.
func DecodedSize(dataURL string) int {
	i := strings.Index(dataURL, ";base64,")
	if !strings.HasPrefix(dataURL, "data:") || i < 0 {
		return -1
	}
	return base64.StdEncoding.DecodedLen(len(dataURL)-i-len(";base64,")) - strings.Count(dataURL[len(dataURL)-2:], "=")
}

// MediaType returns the media type of a data URL, or "" when it has none.
func MediaType(dataURL string) string {
	rest, ok := strings.CutPrefix(dataURL, "data:")
	if !ok {
		return ""
	}
	meta, _, _ := strings.Cut(rest, ",")
	meta, _, _ = strings.Cut(meta, ";")
	return meta
}
