// Package save writes decoded frames to disk. It is the downstream
// collaborator of the acquisition pipeline: JPEG or PNG encoding with the
// sequence-and-timestamp naming the collection workflow expects.
package save

import (
	"fmt"
	"image/jpeg"
	"image/png"
	"os"
	"path/filepath"
	"time"

	"github.com/smazurov/camgrab/internal/decode"
)

// Format selects the on-disk encoding.
type Format string

const (
	FormatJPEG Format = "jpg"
	FormatPNG  Format = "png"
)

// ParseFormat validates a command-line format name.
func ParseFormat(s string) (Format, error) {
	switch s {
	case "jpg", "jpeg", "":
		return FormatJPEG, nil
	case "png":
		return FormatPNG, nil
	default:
		return "", fmt.Errorf("unknown image format %q (jpg, png)", s)
	}
}

// Sink writes frames into one output directory.
type Sink struct {
	dir     string
	prefix  string
	format  Format
	quality int
}

// NewSink creates the output directory if needed.
func NewSink(dir, prefix string, format Format) (*Sink, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("creating output directory %s: %w", dir, err)
	}
	if prefix == "" {
		prefix = "img"
	}
	return &Sink{dir: dir, prefix: prefix, format: format, quality: 95}, nil
}

// Write encodes img as frame number index and returns the file path.
// Filenames carry both the sequence index and a millisecond timestamp:
// img_0007_20260823_142501_033.jpg.
func (s *Sink) Write(index int, img *decode.Image) (string, error) {
	ts := time.Now().Format("20060102_150405.000")
	ts = ts[:len(ts)-4] + "_" + ts[len(ts)-3:]
	name := fmt.Sprintf("%s_%04d_%s.%s", s.prefix, index, ts, s.format)
	path := filepath.Join(s.dir, name)

	f, err := os.Create(path)
	if err != nil {
		return "", fmt.Errorf("creating %s: %w", path, err)
	}
	defer f.Close()

	switch s.format {
	case FormatPNG:
		err = png.Encode(f, img.ToRGBA())
	default:
		err = jpeg.Encode(f, img.ToRGBA(), &jpeg.Options{Quality: s.quality})
	}
	if err != nil {
		return "", fmt.Errorf("encoding %s: %w", path, err)
	}
	return path, nil
}
