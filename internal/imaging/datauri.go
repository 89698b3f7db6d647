package imaging

import (
	"encoding/base64"
	"errors"
	"fmt"
	"net/url"
	"strings"
)

var ErrInvalidDataURI = errors.New("invalid data uri")

// ParseDataURI splits data:[<mime>][;base64],<payload>.
func ParseDataURI(uri string) (string, []byte, error) {
	if !strings.HasPrefix(uri, "data:") {
		return "", nil, fmt.Errorf("%w: missing data: prefix", ErrInvalidDataURI)
	}

	comma := strings.IndexByte(uri, ',')
	if comma == -1 {
		return "", nil, fmt.Errorf("%w: missing payload", ErrInvalidDataURI)
	}

	meta := uri[len("data:"):comma]
	payload := uri[comma+1:]

	mime := meta
	isBase64 := false
	if i := strings.IndexByte(meta, ';'); i != -1 {
		mime = meta[:i]
		isBase64 = strings.Contains(meta[i:], ";base64")
	}

	if mime == "" {
		mime = "text/plain"
	}

	if isBase64 {
		data, err := base64.StdEncoding.DecodeString(payload)
		if err != nil {
			data, err = base64.RawStdEncoding.DecodeString(strings.TrimRight(payload, "="))
			if err != nil {
				return "", nil, fmt.Errorf("%w: %v", ErrInvalidDataURI, err)
			}
		}
		return mime, data, nil
	}

	data, err := url.PathUnescape(payload)
	if err != nil {
		return "", nil, fmt.Errorf("%w: %v", ErrInvalidDataURI, err)
	}

	return mime, []byte(data), nil
}

func DataURI(mime string, data []byte) string {
	return "data:" + mime + ";base64," + base64.StdEncoding.EncodeToString(data)
}
