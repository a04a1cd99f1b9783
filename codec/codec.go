// Package codec decodes and re-encodes image files whose format is implied
// by their file extension.
//
// A file is only treated as an image when its extension names a format that
// can be both decoded and encoded, and its content decodes cleanly as that
// format. Everything else is reported as NotAnImage so callers can fall back
// to copying the bytes.
package codec

import (
	"errors"
	"fmt"
	"image"
	"image/gif"
	"image/jpeg"
	"image/png"
	"io"
	"path/filepath"
	"strings"

	"golang.org/x/image/bmp"
	"golang.org/x/image/tiff"
)

// JPEGQuality is the quality used when re-encoding JPEG files.
const JPEGQuality = 75

// ErrUnknownFormat is the NotAnImage reason for paths whose extension has no
// registered format.
var ErrUnknownFormat = errors.New("unknown image format")

// Bitmap is a decoded image. Animated GIFs keep every frame so re-encoding
// them does not drop the animation.
type Bitmap struct {
	image.Image
	Animation *gif.GIF
}

// Format couples a decoder and an encoder for one container format.
type Format struct {
	Name       string
	Extensions []string

	decode func(io.Reader) (*Bitmap, error)
	encode func(io.Writer, *Bitmap) error
}

var formats = []*Format{
	{
		Name:       "jpeg",
		Extensions: []string{".jpg", ".jpeg", ".jpe", ".jfif"},
		decode:     stillDecoder(jpeg.Decode),
		encode: func(w io.Writer, b *Bitmap) error {
			return jpeg.Encode(w, b.Image, &jpeg.Options{Quality: JPEGQuality})
		},
	},
	{
		Name:       "png",
		Extensions: []string{".png"},
		decode:     stillDecoder(png.Decode),
		encode: func(w io.Writer, b *Bitmap) error {
			return png.Encode(w, b.Image)
		},
	},
	{
		Name:       "gif",
		Extensions: []string{".gif"},
		decode: func(r io.Reader) (*Bitmap, error) {
			g, err := gif.DecodeAll(r)
			if err != nil {
				return nil, err
			}
			if len(g.Image) == 0 {
				return nil, errors.New("gif: no frames")
			}
			return &Bitmap{Image: g.Image[0], Animation: g}, nil
		},
		encode: func(w io.Writer, b *Bitmap) error {
			if b.Animation != nil {
				return gif.EncodeAll(w, b.Animation)
			}
			return gif.Encode(w, b.Image, nil)
		},
	},
	{
		Name:       "bmp",
		Extensions: []string{".bmp"},
		decode:     stillDecoder(bmp.Decode),
		encode: func(w io.Writer, b *Bitmap) error {
			return bmp.Encode(w, b.Image)
		},
	},
	{
		Name:       "tiff",
		Extensions: []string{".tif", ".tiff"},
		decode:     stillDecoder(tiff.Decode),
		encode: func(w io.Writer, b *Bitmap) error {
			return tiff.Encode(w, b.Image, nil)
		},
	},
}

var byExtension = func() map[string]*Format {
	m := make(map[string]*Format)
	for _, f := range formats {
		for _, ext := range f.Extensions {
			m[ext] = f
		}
	}
	return m
}()

func stillDecoder(decode func(io.Reader) (image.Image, error)) func(io.Reader) (*Bitmap, error) {
	return func(r io.Reader) (*Bitmap, error) {
		img, err := decode(r)
		if err != nil {
			return nil, err
		}
		return &Bitmap{Image: img}, nil
	}
}

// FormatForPath returns the format implied by the extension of path. The
// lookup is case-insensitive.
func FormatForPath(path string) (*Format, bool) {
	f, ok := byExtension[strings.ToLower(filepath.Ext(path))]
	return f, ok
}

// Outcome tags the result of a Probe.
type Outcome int

const (
	// NotAnImage means the content should be copied verbatim.
	NotAnImage Outcome = iota
	// Decoded means Bitmap holds the decoded content.
	Decoded
)

func (o Outcome) String() string {
	if o == Decoded {
		return "decoded"
	}
	return "not an image"
}

// Result is the tagged outcome of probing one file.
type Result struct {
	Outcome Outcome
	Format  *Format
	Bitmap  *Bitmap

	// Reason explains a NotAnImage outcome.
	Reason error
}

// Probe attempts to decode r as the format implied by path. It never fails:
// an unknown extension or undecodable content yields NotAnImage with the
// cause in Reason. The reader is consumed only when the extension is known.
func Probe(path string, r io.Reader) Result {
	f, ok := FormatForPath(path)
	if !ok {
		return Result{Outcome: NotAnImage, Reason: ErrUnknownFormat}
	}

	b, err := f.decode(r)
	if err != nil {
		return Result{Outcome: NotAnImage, Format: f, Reason: fmt.Errorf("decode %s: %w", f.Name, err)}
	}
	return Result{Outcome: Decoded, Format: f, Bitmap: b}
}

// Encode writes b to w in format f.
func Encode(w io.Writer, f *Format, b *Bitmap) error {
	if f == nil || b == nil {
		return errors.New("codec: nothing to encode")
	}
	if err := f.encode(w, b); err != nil {
		return fmt.Errorf("encode %s: %w", f.Name, err)
	}
	return nil
}
