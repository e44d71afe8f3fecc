package cmd

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/jpfielding/jxl.go/pkg/loader"
	"github.com/jpfielding/jxl.go/pkg/util"
	"github.com/spf13/cobra"
)

type infoOutput struct {
	URI    string `json:"uri"`
	ID     string `json:"id"`
	Size   int    `json:"size"`
	Width  int    `json:"width"`
	Height int    `json:"height"`
	BPP    int    `json:"bpp"`
	Alpha  bool   `json:"has_alpha"`
	Anim   bool   `json:"has_animation"`

	BitsPerSample uint32 `json:"bits_per_sample"`
	Orientation   uint32 `json:"orientation"`
	ExtraChannels uint32 `json:"extra_channels"`
	Container     bool   `json:"container"`
	Preview       bool   `json:"preview,omitempty"`
}

// NewInfoCmd prints the header record of a JPEG XL image
func NewInfoCmd(ctx context.Context) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "info",
		Short: "JPEG XL header",
		Long:  "Reads just enough of an image to report its size, bit depth, alpha and animation flags.",
		RunE: func(cmd *cobra.Command, args []string) error {
			uri, _ := cmd.Flags().GetString("uri")
			if uri == "" && len(args) > 0 {
				uri = args[0]
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

			id, data, err := util.ReadContentID(in)
			if err != nil {
				return fmt.Errorf("failed to read %s: %w", uri, err)
			}
			hdr, err := h.LoadHeader(ctx, bytes.NewReader(data))
			if err != nil {
				return fmt.Errorf("%s: %w", uri, err)
			}
			out := infoOutput{
				URI:           uri,
				ID:            id,
				Size:          len(data),
				Width:         hdr.Width,
				Height:        hdr.Height,
				BPP:           hdr.BPP,
				Alpha:         hdr.HasAlpha,
				Anim:          hdr.HasAnimation,
				BitsPerSample: hdr.Info.BitsPerSample,
				Orientation:   hdr.Info.Orientation,
				ExtraChannels: hdr.Info.NumExtraChannels,
				Container:     hdr.Info.HaveContainer,
				Preview:       hdr.Info.HavePreview,
			}
			format, _ := cmd.Flags().GetString("format")
			return printInfo(os.Stdout, format, out, hdr.Record())
		},
	}
	addSourceFlags(cmd)
	pf := cmd.PersistentFlags()
	pf.StringP("format", "f", "json", "output format (text|json)")
	return cmd
}

func printInfo(w io.Writer, format string, out infoOutput, record []loader.Field) error {
	switch format {
	case "text":
		fmt.Fprintf(w, "uri: %s\nid: %s\nsize: %d\n", out.URI, out.ID, out.Size)
		for _, f := range record {
			fmt.Fprintf(w, "%s: %d\n", f.Key, f.Value)
		}
		fmt.Fprintf(w, "bits_per_sample: %d\norientation: %d\nextra_channels: %d\ncontainer: %t\n",
			out.BitsPerSample, out.Orientation, out.ExtraChannels, out.Container)
		return nil
	case "json":
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(out)
	}
	return fmt.Errorf("unknown format %q", format)
}
