package classification

import (
	"bytes"
	"encoding/base64"
	"image"
	"strings"

	"github.com/disintegration/imaging"
	_ "golang.org/x/image/webp"
)

// DecodeImage turns a base64 payload, optionally carrying a data-URI
// header ("data:image/jpeg;base64,"), into an image.
func DecodeImage(payload string) (image.Image, error) {
	data, err := decodePayload(payload)
	if err != nil {
		return nil, err
	}

	img, err := imaging.Decode(bytes.NewReader(data), imaging.AutoOrientation(true))
	if err != nil {
		return nil, newError(KindDecode, "invalid image data", err)
	}
	return img, nil
}

func decodePayload(payload string) ([]byte, error) {
	if _, rest, found := strings.Cut(payload, ","); found {
		payload = rest
	}
	payload = strings.Map(func(r rune) rune {
		switch r {
		case ' ', '\t', '\n', '\r':
			return -1
		}
		return r
	}, payload)

	data, err := base64.StdEncoding.DecodeString(payload)
	if err != nil {
		return nil, newError(KindDecode, "invalid base64 payload", err)
	}
	return data, nil
}
