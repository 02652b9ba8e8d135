package fetch

import (
	"fmt"
	"image"
	_ "image/png" // frames are PNG
	"io"
)

// Image is a decoded frame image held by the cache.
type Image struct {
	// ID is the resource identifier the image was loaded from.
	ID string

	// Image is the decoded pixel data.
	Image image.Image

	Width  int
	Height int

	// Size is the encoded size in bytes.
	Size int64
}

type countingReader struct {
	r io.Reader
	n int64
}

func (c *countingReader) Read(p []byte) (int, error) {
	n, err := c.r.Read(p)
	c.n += int64(n)
	return n, err
}

// DecodeImage decodes an encoded image. Undecodable content is a load failure,
// the same as a missing resource.
func DecodeImage(id string, r io.Reader) (*Image, error) {
	counter := &countingReader{r: r}
	img, _, err := image.Decode(counter)
	if err != nil {
		return nil, fmt.Errorf("decode %s: %w", id, err)
	}
	// Drain so Size reflects the whole payload.
	_, _ = io.Copy(io.Discard, counter)
	bounds := img.Bounds()
	return &Image{
		ID:     id,
		Image:  img,
		Width:  bounds.Dx(),
		Height: bounds.Dy(),
		Size:   counter.n,
	}, nil
}
