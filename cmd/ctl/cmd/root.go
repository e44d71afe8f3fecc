package cmd

import (
	"context"
	"crypto/tls"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httputil"
	"os"
	"path/filepath"
	"strings"

	"github.com/jpfielding/jxl.go/pkg/logging"
	"github.com/jpfielding/jxl.go/pkg/plugin"
	"github.com/jpfielding/jxl.go/pkg/source"
	"github.com/spf13/cobra"
)

func NewRoot(ctx context.Context, gitsha string) *cobra.Command {
	var logFile io.Closer
	link := plugin.Link(plugin.Default, &plugin.Refs)
	cmd := &cobra.Command{
		Use:   "jxlctl",
		Short: "inspect and decode JPEG XL images",
		Long:  "jxlctl reads JPEG XL headers and decodes the first frame to BMP or PNG",
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			logLevel, _ := cmd.Flags().GetString("log-level")
			logPath, _ := cmd.Flags().GetString("log-file")
			logJSON, _ := cmd.Flags().GetBool("log-json")

			// Parse log level
			var level slog.Level
			levelErr := level.UnmarshalText([]byte(strings.ToUpper(logLevel)))
			if levelErr != nil {
				level = slog.LevelInfo
			}
			var w io.Writer = os.Stderr
			if logPath != "" {
				f := logging.RotatingFile(logPath, 10, 3)
				logFile = f
				w = f
			}
			slog.SetDefault(logging.Logger(w, logJSON, level))

			if levelErr != nil {
				slog.WarnContext(ctx, "Invalid log level, defaulting to INFO", "level", logLevel, "error", levelErr)
			}
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			if err := link.Unlink(); err != nil {
				slog.WarnContext(ctx, "handler still in use", "error", err)
			}
			if logFile != nil {
				logFile.Close()
			}
		},
		Run: func(cmd *cobra.Command, args []string) {
			printCommandTree(cmd, 0)
		},
	}
	cmd.AddCommand(
		NewVersionCmd(ctx, gitsha),
		NewInfoCmd(ctx),
		NewDecodeCmd(ctx),
	)
	pf := cmd.PersistentFlags()
	pf.String("log-level", "INFO", "Log level (DEBUG, INFO, WARN, ERROR)")
	pf.String("log-file", "", "write logs to this file (rotated) instead of stderr")
	pf.Bool("log-json", false, "log as JSON")
	return cmd
}

func printCommandTree(cmd *cobra.Command, indent int) {
	fmt.Println(strings.Repeat("\t", indent), cmd.Use+":", cmd.Short)
	for _, subCmd := range cmd.Commands() {
		printCommandTree(subCmd, indent+1)
	}
}

func NewVersionCmd(ctx context.Context, gitsha string) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "version",
		Short: "git sha for this build",
		Long:  "git sha for this build",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Println(gitsha)
		},
	}
	return cmd
}

// openURI opens a local path, "-" for stdin or an http(s) URL, and
// transparently removes gzip or zstd transport compression.
func openURI(ctx context.Context, cmd *cobra.Command, uri string) (io.ReadCloser, error) {
	uri = strings.TrimPrefix(uri, "file://")
	var in io.ReadCloser
	switch {
	case uri == "":
		return nil, fmt.Errorf("uri is required")
	case uri == "-":
		in = io.NopCloser(os.Stdin)
	case strings.HasPrefix(uri, "http"):
		insecure, _ := cmd.Flags().GetBool("insecure")
		cl := &http.Client{
			Transport: &http.Transport{TLSClientConfig: &tls.Config{InsecureSkipVerify: insecure}},
		}
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, uri, nil)
		if err != nil {
			return nil, fmt.Errorf("failed to create request: %v", err)
		}
		resp, err := cl.Do(req)
		if err != nil {
			return nil, fmt.Errorf("failed to download: %v", err)
		}
		verbose, _ := cmd.Flags().GetBool("verbose")
		if verbose {
			reqDump, _ := httputil.DumpRequest(req, true)
			os.Stderr.Write(reqDump)
			resDump, _ := httputil.DumpResponse(resp, false)
			os.Stderr.Write(resDump)
		}
		if resp.StatusCode != http.StatusOK {
			resp.Body.Close()
			return nil, fmt.Errorf("failed to download: %s", resp.Status)
		}
		in = resp.Body
	default:
		f, err := os.Open(uri)
		if err != nil {
			return nil, fmt.Errorf("failed to open file: %v", err)
		}
		in = f
	}

	r, comp, err := source.Open(in)
	if err != nil {
		in.Close()
		return nil, err
	}
	if comp != source.None {
		slog.DebugContext(ctx, "decompressing input", "uri", uri, "compression", comp.String())
	}
	return readCloser{Reader: r, close: func() error {
		r.Close()
		return in.Close()
	}}, nil
}

type readCloser struct {
	io.Reader
	close func() error
}

func (rc readCloser) Close() error { return rc.close() }

// handlerFor picks the registered handler for uri; stdin and extensionless
// URLs are taken to be JPEG XL.
func handlerFor(uri string) (plugin.Handler, error) {
	name := strings.SplitN(uri, "?", 2)[0]
	if filepath.Ext(name) == "" {
		name += plugin.Extension
	}
	return plugin.Default.Lookup(name)
}

func addSourceFlags(cmd *cobra.Command) {
	pf := cmd.PersistentFlags()
	pf.StringP("uri", "u", "", "image URI: a path, - for stdin, or http(s)://")
	pf.Bool("insecure", false, "skip TLS verification for https URIs")
	pf.BoolP("verbose", "v", false, "dump http request and response headers")
}
