package face

import (
	"bytes"
	"encoding/base64"
	"errors"
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"strings"

	_ "golang.org/x/image/bmp"
)

// ErrInvalidImage is returned when the probe payload cannot be decoded into
// an image.
var ErrInvalidImage = errors.New("invalid image data")

// DecodeProbe decodes the browser's camera payload: a base64 string,
// optionally wrapped in a data URL ("data:image/jpeg;base64,..."). The bytes
// are validated as a real image before they are handed to the encoder.
func DecodeProbe(payload string) ([]byte, error) {
	if payload == "" {
		return nil, ErrInvalidImage
	}

	// Strip the data URL prefix if present.
	if idx := strings.Index(payload, ","); idx >= 0 {
		payload = payload[idx+1:]
	}

	data, err := base64.StdEncoding.DecodeString(payload)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidImage, err)
	}

	if _, _, err := image.Decode(bytes.NewReader(data)); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidImage, err)
	}
	return data, nil
}
