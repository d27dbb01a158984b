package bundler

import (
	"fmt"
	"io"
	"os"

	"github.com/klauspost/compress/gzip"
	"github.com/klauspost/compress/zstd"
)

const (
	Gzip = "gzip"
	Zstd = "zstd"
)

var suffixes = map[string]string{
	Gzip: ".gz",
	Zstd: ".zst",
}

// CompressFile writes a precompressed sibling of p for each algorithm and returns their paths.
func CompressFile(p string, algorithms []string) ([]string, error) {
	written := make([]string, 0, len(algorithms))
	for _, alg := range algorithms {
		suffix, ok := suffixes[alg]
		if !ok {
			return nil, fmt.Errorf("unsupported compression algorithm %q", alg)
		}
		dst := p + suffix
		if err := compressTo(p, dst, alg); err != nil {
			return nil, fmt.Errorf("failed to compress %s: %w", p, err)
		}
		written = append(written, dst)
	}
	return written, nil
}

func compressTo(src, dst, alg string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	out, err := os.OpenFile(dst, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0600)
	if err != nil {
		return err
	}
	defer out.Close()

	var w io.WriteCloser
	switch alg {
	case Gzip:
		w, err = gzip.NewWriterLevel(out, gzip.BestCompression)
	case Zstd:
		w, err = zstd.NewWriter(out, zstd.WithEncoderLevel(zstd.SpeedBestCompression))
	}
	if err != nil {
		return err
	}

	if _, err := io.Copy(w, in); err != nil {
		_ = w.Close()
		return err
	}
	if err := w.Close(); err != nil {
		return err
	}
	return out.Close()
}
