package main

import (
	"errors"
	"fmt"
	"image/png"
	"io"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/meigma/imgcache/internal/codec"
)

func newGetCmd(a *app) *cobra.Command {
	var output string

	cmd := &cobra.Command{
		Use:   "get URL",
		Short: "Load one image and write it as PNG",
		Long: `Resolve a URL synchronously (memory, mirror, then network) and write
the decoded image as PNG.

Examples:
  imgcache get https://example.com/a.jpg -o a.png
  imgcache get https://example.com/a.jpg -o - > a.png`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			l, err := a.newLoader()
			if err != nil {
				return err
			}
			defer l.Close()

			res := l.Load(cmd.Context(), args[0])
			if res.PersistErr != nil {
				a.logger.Warn("image not mirrored", slog.String("url", res.URL), slog.Any("error", res.PersistErr))
			}
			if !res.OK() {
				if res.Err == nil {
					return fmt.Errorf("%s: no image (cached failure)", res.URL)
				}
				return fmt.Errorf("%s: %w", res.URL, res.Err)
			}
			a.logger.Info("loaded",
				slog.String("url", res.URL),
				slog.String("source", res.Source.String()),
				slog.Int("width", res.Image.Bounds().Dx()),
				slog.Int("height", res.Image.Bounds().Dy()),
			)

			return writePNG(output, a.stdout, func(w io.Writer) error {
				return codec.EncodePNG(w, res.Image, png.DefaultCompression)
			})
		},
	}

	cmd.Flags().StringVarP(&output, "output", "o", "", "Output file, or - for stdout")
	_ = cmd.MarkFlagRequired("output")
	return cmd
}

// writePNG writes through encode to path, or to stdout when path is "-".
func writePNG(path string, stdout io.Writer, encode func(io.Writer) error) (err error) {
	if path == "-" {
		return encode(stdout)
	}
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := f.Close(); cerr != nil {
			err = errors.Join(err, cerr)
		}
	}()
	return encode(f)
}
