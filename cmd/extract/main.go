// Command extract runs the extraction pipeline once and prints the JSON
// response.
//
//	extract --file report.pdf
//	extract --url https://example.com/slides.png --config config.yaml
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/bryanwahyu/mediaexplain/internal/app"
	"github.com/bryanwahyu/mediaexplain/internal/application/extraction"
	"github.com/bryanwahyu/mediaexplain/internal/config"
	"github.com/bryanwahyu/mediaexplain/internal/platform/logger"
)

func main() {
	var (
		file       = flag.String("file", "", "local file to extract")
		rawURL     = flag.String("url", "", "remote file URL to extract")
		configPath = flag.String("config", "config.yaml", "path to config file")
	)
	flag.Parse()

	if (*file == "") == (*rawURL == "") {
		fmt.Fprintln(os.Stderr, "exactly one of --file or --url is required")
		flag.Usage()
		os.Exit(2)
	}

	if err := run(*configPath, *file, *rawURL); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run(configPath, file, rawURL string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("config load: %w", err)
	}
	lg, err := logger.New(cfg.Log.Mode)
	if err != nil {
		return err
	}
	defer lg.Sync()

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	a, closeStore, err := app.Build(ctx, cfg, lg)
	if err != nil {
		return err
	}
	defer closeStore()

	in := extraction.URLInput(rawURL)
	if file != "" {
		// the pipeline deletes its input, so hand it a copy
		tmp, err := copyInput(cfg.WorkDir, file)
		if err != nil {
			return err
		}
		in = extraction.UploadInput(tmp, filepath.Base(file))
	}

	resp, err := a.Extraction.Extract(ctx, in)
	if err != nil {
		return err
	}
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(resp)
}

func copyInput(dir, src string) (string, error) {
	in, err := os.Open(src)
	if err != nil {
		return "", err
	}
	defer in.Close()
	f, err := os.CreateTemp(dir, "cli-*"+filepath.Ext(src))
	if err != nil {
		return "", err
	}
	if _, err := io.Copy(f, in); err != nil {
		f.Close()
		os.Remove(f.Name())
		return "", err
	}
	return f.Name(), f.Close()
}
