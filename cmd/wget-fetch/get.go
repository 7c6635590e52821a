package main

import (
	"context"
	"fmt"
	"io"
	"sync"
	"sync/atomic"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/vertextoedge/wget-fetch/internal/domain/service"
	"github.com/vertextoedge/wget-fetch/pkg/fetch"
)

var getFlags struct {
	output   string
	dryRun   bool
	headers  []string
	checksum string
	etag     string
	progress bool
}

var getCmd = &cobra.Command{
	Use:   "get [flags] URL...",
	Short: "Fetch one or more URLs",
	Long: `Fetch one or more URLs concurrently.

-O takes a file path, a directory ending in '/', or a sink name:
  bytes, text, decoded-text, json (parsed JSON or YAML), stream.
Sink output is written to stdout; json output is pretty-printed.`,
	Args: cobra.MinimumNArgs(1),
	RunE: runGet,
}

func init() {
	flags := getCmd.Flags()
	flags.StringVarP(&getFlags.output, "output", "O", "./", "Destination path, directory or sink name")
	flags.BoolVar(&getFlags.dryRun, "dry-run", false, "Print the resolved destination without fetching")
	flags.StringArrayVarP(&getFlags.headers, "header", "H", nil, "Extra request header, name=value (repeatable)")
	flags.StringVar(&getFlags.checksum, "checksum", "", "Expected checksum as algorithm:hex (sha256, sha1, sha512, md5, blake3, blake2b)")
	flags.StringVar(&getFlags.etag, "etag", "", "Expected ETag of the response")
	flags.BoolVar(&getFlags.progress, "progress", false, "Log download progress")

	flags.Duration("timeout", 0, "Per-attempt timeout, 0 for none")
	flags.Int("retries", 3, "Maximum number of attempts")
	flags.Bool("resume", true, "Resume interrupted downloads with range requests")
	flags.Bool("retry-5xx", false, "Retry 5xx and 429 responses")
	flags.Int64("rate", 0, "Bandwidth cap in bytes per second, 0 for none")
	flags.IntP("concurrency", "j", 4, "Number of URLs fetched at once")

	mustBind("fetch.timeout", flags.Lookup("timeout"))
	mustBind("fetch.max_retries", flags.Lookup("retries"))
	mustBind("fetch.range_resume", flags.Lookup("resume"))
	mustBind("fetch.retry_server_errors", flags.Lookup("retry-5xx"))
	mustBind("fetch.max_bytes_per_second", flags.Lookup("rate"))
	mustBind("fetch.concurrency", flags.Lookup("concurrency"))
}

func runGet(cmd *cobra.Command, args []string) error {
	opts, err := requestOptions()
	if err != nil {
		return err
	}

	action := fetch.ParseAction(getFlags.output)
	if path, ok := action.Path(); ok && len(args) > 1 && path != "" && !service.IsDirPath(path) {
		return fmt.Errorf("-O %q must be a directory or sink name when fetching %d URLs", path, len(args))
	}

	client, err := fetch.New(
		fetch.WithLogger(log),
		fetch.WithJournal(cfg.Journal.Path),
		fetch.WithBackoff(cfg.Fetch.GetBackoffBase(), cfg.Fetch.GetBackoffMax()),
		fetch.WithUserAgent(cfg.Fetch.UserAgent),
		fetch.WithThrottle(cfg.Throttle.RPS, cfg.Throttle.Burst),
		fetch.WithProgressInterval(cfg.Fetch.GetProgressInterval()),
	)
	if err != nil {
		return err
	}
	defer client.Close()

	var (
		outMu  sync.Mutex
		failed atomic.Int32
	)
	g := new(errgroup.Group)
	g.SetLimit(cfg.Fetch.Concurrency)

	for _, url := range args {
		g.Go(func() error {
			err := fetchOne(cmd.Context(), cmd, client, url, action, opts, &outMu)
			if err != nil {
				failed.Add(1)
				log.Error("fetch failed", zap.String("url", url), zap.Error(err))
			}
			return err
		})
	}

	if err := g.Wait(); err != nil {
		return fmt.Errorf("%d of %d fetches failed: %w", failed.Load(), len(args), err)
	}
	return nil
}

func fetchOne(ctx context.Context, cmd *cobra.Command, client *fetch.Client, url string, action fetch.Action, opts fetch.RequestOptions, outMu *sync.Mutex) error {
	res, err := client.Fetch(ctx, url, action, opts)
	if err != nil {
		if partial := fetch.ResultOf(err); partial != nil {
			// error bodies of streams hold the connection until closed
			if partial.Payload.Stream != nil {
				partial.Payload.Stream.Close()
			}
			// verification failures still deliver the file
			if partial.Path != "" {
				fmt.Fprintf(cmd.ErrOrStderr(), "%s -> %s (unverified)\n", url, partial.Path)
			}
		}
		return err
	}

	outMu.Lock()
	defer outMu.Unlock()
	if err := writePayload(cmd.OutOrStdout(), res); err != nil {
		return fmt.Errorf("%s: %w", url, err)
	}
	fmt.Fprintln(cmd.ErrOrStderr(), summary(url, res))
	return nil
}

func requestOptions() (fetch.RequestOptions, error) {
	headers, err := parseHeaders(getFlags.headers)
	if err != nil {
		return fetch.RequestOptions{}, err
	}
	checksum, err := parseChecksum(getFlags.checksum)
	if err != nil {
		return fetch.RequestOptions{}, err
	}

	opts := fetch.DefaultRequestOptions()
	opts.DryRun = getFlags.dryRun
	opts.Timeout = cfg.Fetch.GetTimeout()
	opts.MaxRetries = cfg.Fetch.MaxRetries
	opts.RangeResume = cfg.Fetch.RangeResume
	opts.Headers = headers
	opts.RetryServerErrors = cfg.Fetch.RetryServerErrors
	opts.Checksum = checksum
	opts.ExpectedETag = getFlags.etag
	opts.Progress = getFlags.progress
	opts.MaxBytesPerSecond = cfg.Fetch.MaxBytesPerSecond
	return opts, nil
}

// writePayload copies a sink payload to w. File targets write nothing.
func writePayload(w io.Writer, res *fetch.TransferResult) error {
	if res.DryRun {
		return nil
	}

	switch res.Target.Kind {
	case fetch.SinkBytes:
		_, err := w.Write(res.Payload.Bytes)
		return err
	case fetch.SinkText, fetch.SinkDecodedText:
		_, err := io.WriteString(w, res.Payload.Text)
		return err
	case fetch.SinkStructured:
		out, err := json.MarshalIndent(res.Payload.Data, "", "  ")
		if err != nil {
			return fmt.Errorf("failed to encode structured payload: %w", err)
		}
		_, err = w.Write(append(out, '\n'))
		return err
	case fetch.SinkStream:
		stream := res.Payload.Stream
		defer stream.Close()
		n, err := io.Copy(w, stream)
		res.BytesWritten = n
		return err
	}
	return nil
}

func summary(url string, res *fetch.TransferResult) string {
	if res.DryRun {
		if res.Target.Kind == fetch.SinkFile {
			return fmt.Sprintf("%s -> %s (dry run)", url, res.Path)
		}
		return fmt.Sprintf("%s -> %s (dry run)", url, res.Target.Kind)
	}

	dest := res.Target.Kind.String()
	if res.Target.Kind == fetch.SinkFile {
		dest = res.Path
	}
	line := fmt.Sprintf("%s -> %s [%d] %s in %d attempt(s)",
		url, dest, res.StatusCode, humanize.IBytes(uint64(res.BytesWritten)), res.Attempts)
	if res.ResumedFrom > 0 {
		line += fmt.Sprintf(", resumed at %s", humanize.IBytes(uint64(res.ResumedFrom)))
	}
	return line
}
