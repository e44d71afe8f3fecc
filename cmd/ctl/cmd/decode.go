package cmd

import (
	"context"
	"fmt"
	"image/png"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/jpfielding/jxl.go/pkg/loader"
	"github.com/spf13/cobra"
	"golang.org/x/term"
)

// NewDecodeCmd decodes the first frame of a JPEG XL image to BMP or PNG
func NewDecodeCmd(ctx context.Context) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "decode",
		Short: "JPEG XL decode",
		Long:  "Decodes the first frame of a JPEG XL image and writes it as BMP (bottom-up BGRA or 8-bit grey) or PNG.",
		RunE: func(cmd *cobra.Command, args []string) error {
			uri, _ := cmd.Flags().GetString("uri")
			if uri == "" && len(args) > 0 {
				uri = args[0]
			}
			outPath, _ := cmd.Flags().GetString("out")
			gray, _ := cmd.Flags().GetBool("gray")
			format, _ := cmd.Flags().GetString("format")
			if format == "" {
				format = outputFormat(outPath)
			}
			mode := loader.ModeNormal
			if gray {
				mode = loader.ModeGrayscale
			}

			h, err := handlerFor(uri)
			if err != nil {
				return err
			}
			in, err := openURI(ctx, cmd, uri)
			if err != nil {
				return err
			}
			defer in.Close()

			var out io.Writer = os.Stdout
			if outPath == "" || outPath == "-" {
				if term.IsTerminal(int(os.Stdout.Fd())) {
					return fmt.Errorf("refusing to write %s to a terminal, use --out", format)
				}
			} else {
				f, err := os.Create(outPath)
				if err != nil {
					return fmt.Errorf("failed to create output: %v", err)
				}
				defer f.Close()
				out = f
			}

			switch format {
			case "bmp":
				sink := newBMPSink(out, mode)
				if err := h.Load(ctx, in, sink, mode); err != nil {
					return err
				}
				if err := sink.Close(); err != nil {
					return fmt.Errorf("failed to write bmp: %w", err)
				}
				slog.DebugContext(ctx, "wrote bmp", "rows", sink.rows, "mode", mode.String())
			case "png":
				sink := &loader.ImageSink{Order: loader.BottomUp, Mode: mode}
				if err := h.Load(ctx, in, sink, mode); err != nil {
					return err
				}
				if err := png.Encode(out, sink.Image()); err != nil {
					return fmt.Errorf("failed to write png: %w", err)
				}
			default:
				return fmt.Errorf("unknown output format %q", format)
			}
			return nil
		},
	}
	addSourceFlags(cmd)
	pf := cmd.PersistentFlags()
	pf.StringP("out", "o", "", "output file, stdout when empty")
	pf.StringP("format", "f", "", "output format (bmp|png), from the output extension by default")
	pf.Bool("gray", false, "reduce to 8-bit grey levels")
	return cmd
}

func outputFormat(path string) string {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".png":
		return "png"
	}
	return "bmp"
}
