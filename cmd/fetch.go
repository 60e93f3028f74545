package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"path"
	"path/filepath"
	"sync/atomic"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
)

var (
	fetchBaseURL string
	fetchForce   bool
)

var fetchCmd = &cobra.Command{
	Use:   "fetch",
	Short: "Download the configured data files",
	Long: `Download every configured data file from the base URL. Each file is
fetched as <base-url>/<file name> and saved to its configured path. Files
that already exist are skipped unless --force is given.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		base := cfg.Fetch.BaseURL
		if fetchBaseURL != "" {
			base = fetchBaseURL
		}
		if base == "" {
			return errors.New("no base URL; set fetch.base_url or pass --base-url")
		}
		u, err := url.Parse(base)
		if err != nil {
			return fmt.Errorf("base URL: %w", err)
		}

		var downloaded, skipped atomic.Int32
		g, ctx := errgroup.WithContext(cmd.Context())
		g.SetLimit(3)
		for _, dest := range cfg.Data.Paths() {
			if dest == "" {
				continue
			}
			if _, err := os.Stat(dest); err == nil && !fetchForce {
				logger.Info("skip, already exists", "path", dest)
				skipped.Add(1)
				continue
			}
			src := u.JoinPath(path.Base(filepath.ToSlash(dest))).String()
			g.Go(func() error {
				logger.Info("downloading", "url", src, "path", dest)
				if err := downloadFile(ctx, src, dest); err != nil {
					return fmt.Errorf("downloading %s: %w", src, err)
				}
				downloaded.Add(1)
				return nil
			})
		}
		err = g.Wait()
		fmt.Fprintf(cmd.OutOrStdout(), "Done: %d downloaded, %d skipped\n", downloaded.Load(), skipped.Load())
		return err
	},
}

func init() {
	rootCmd.AddCommand(fetchCmd)
	fetchCmd.Flags().StringVar(&fetchBaseURL, "base-url", "", "URL the data files are published under (overrides fetch.base_url)")
	fetchCmd.Flags().BoolVar(&fetchForce, "force", false, "download files that already exist")
}

// downloadFile writes src to dest through a temporary file in dest's
// directory.
func downloadFile(ctx context.Context, src, dest string) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, src, nil)
	if err != nil {
		return err
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("status %d", resp.StatusCode)
	}

	if err := os.MkdirAll(filepath.Dir(dest), 0o755); err != nil {
		return err
	}
	f, err := os.CreateTemp(filepath.Dir(dest), ".fetch-*")
	if err != nil {
		return err
	}
	defer os.Remove(f.Name())

	if _, err := io.Copy(f, resp.Body); err != nil {
		f.Close()
		return err
	}
	if err := f.Close(); err != nil {
		return err
	}
	return os.Rename(f.Name(), dest)
}
