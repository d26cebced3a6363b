package protocol

import (
	"bytes"
	"encoding/binary"
	"image"
	"io"

	// The game may encode screen dumps as either PNG or JPEG.
	_ "image/jpeg"
	_ "image/png"

	aierr "aictl/internal/errors"
)

// ImageRequest is the literal request token asking the game for a
// screen dump.
const ImageRequest = "GET_IMAGE\n"

// ReadImage reads one image frame: a 4-byte big-endian unsigned length
// L, then exactly L bytes of encoded image data, which it decodes into
// a pixel buffer.
//
// Every failure mode — short length prefix, truncated payload, an
// implausible length above maxBytes, undecodable bytes — returns a
// *FramingError.  The caller treats any of them as "no image this
// tick" and keeps the session alive.
func ReadImage(r io.Reader, maxBytes uint32) (image.Image, error) {
	var prefix [4]byte
	n, err := io.ReadFull(r, prefix[:])
	if err != nil {
		return nil, &aierr.FramingError{Stage: "length-prefix", Want: 4, Got: n, Err: err}
	}

	size := binary.BigEndian.Uint32(prefix[:])
	if size == 0 || size > maxBytes {
		return nil, &aierr.FramingError{Stage: "length-prefix", Want: int(size),
			Err: aierr.New("implausible payload length")}
	}

	payload := make([]byte, size)
	n, err = io.ReadFull(r, payload)
	if err != nil {
		return nil, &aierr.FramingError{Stage: "payload", Want: int(size), Got: n, Err: err}
	}

	img, _, err := image.Decode(bytes.NewReader(payload))
	if err != nil {
		return nil, &aierr.FramingError{Stage: "decode", Err: err}
	}
	return img, nil
}
