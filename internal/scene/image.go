package scene

import (
	"fmt"
	"image"
	"image/jpeg"
	"io"
	"os"
	"path/filepath"
)

// Image is a single RGB pixel grid stored inside a payload field.
type Image struct {
	Height int    `cbor:"height"`
	Width  int    `cbor:"width"`
	Pixels []byte `cbor:"pixels"` // row-major RGB, 3 bytes per pixel
}

// Validate checks the pixel buffer matches the declared dimensions.
func (im Image) Validate() error {
	if im.Height <= 0 || im.Width <= 0 {
		return fmt.Errorf("invalid image dimensions %dx%d", im.Width, im.Height)
	}
	if want := im.Height * im.Width * 3; len(im.Pixels) != want {
		return fmt.Errorf("pixel buffer holds %d bytes, want %d", len(im.Pixels), want)
	}
	return nil
}

// EncodeJPEG writes the image as maximum-quality JPEG.
func (im Image) EncodeJPEG(w io.Writer) error {
	if err := im.Validate(); err != nil {
		return err
	}
	rgba := image.NewRGBA(image.Rect(0, 0, im.Width, im.Height))
	for y := 0; y < im.Height; y++ {
		for x := 0; x < im.Width; x++ {
			src := (y*im.Width + x) * 3
			dst := rgba.PixOffset(x, y)
			rgba.Pix[dst+0] = im.Pixels[src+0]
			rgba.Pix[dst+1] = im.Pixels[src+1]
			rgba.Pix[dst+2] = im.Pixels[src+2]
			rgba.Pix[dst+3] = 0xff
		}
	}
	return jpeg.Encode(w, rgba, &jpeg.Options{Quality: 100})
}

// FrameStack is the payload's "images" field: all frames of a scene as one
// contiguous RGB buffer.
type FrameStack struct {
	Count  int    `cbor:"count"`
	Height int    `cbor:"height"`
	Width  int    `cbor:"width"`
	Pixels []byte `cbor:"pixels"`
}

// Validate checks the buffer matches count and dimensions.
func (fs FrameStack) Validate() error {
	if fs.Count <= 0 || fs.Height <= 0 || fs.Width <= 0 {
		return fmt.Errorf("invalid frame stack %d frames %dx%d", fs.Count, fs.Width, fs.Height)
	}
	if want := fs.Count * fs.Height * fs.Width * 3; len(fs.Pixels) != want {
		return fmt.Errorf("frame buffer holds %d bytes, want %d", len(fs.Pixels), want)
	}
	return nil
}

// Frame returns the i-th frame as a standalone image sharing the backing
// buffer.
func (fs FrameStack) Frame(i int) Image {
	size := fs.Height * fs.Width * 3
	return Image{
		Height: fs.Height,
		Width:  fs.Width,
		Pixels: fs.Pixels[i*size : (i+1)*size],
	}
}

// ExportFrames decodes the payload's images field and writes one JPEG per
// frame into dir, named 000000.jpg onward. Returns the number of frames
// written.
func ExportFrames(payload Payload, dir string) (int, error) {
	var frames FrameStack
	if err := payload.Decode("images", &frames); err != nil {
		return 0, err
	}
	if err := frames.Validate(); err != nil {
		return 0, err
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return 0, err
	}
	for i := 0; i < frames.Count; i++ {
		path := filepath.Join(dir, fmt.Sprintf("%06d.jpg", i))
		if err := writeJPEG(frames.Frame(i), path); err != nil {
			return i, err
		}
	}
	return frames.Count, nil
}

func writeJPEG(im Image, path string) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := im.EncodeJPEG(f); err != nil {
		_ = f.Close()
		return err
	}
	return f.Close()
}
