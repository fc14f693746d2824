package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path"
	"sort"
	"strings"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/openmega/megawait/internal/mega"
	"github.com/openmega/megawait/internal/native"
)

func newLsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "ls [path]",
		Short: "List files and folders",
		Args:  cobra.MaximumNArgs(1),
		RunE:  runLs,
	}
}

func newGetCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "get <remote-path> [local-path]",
		Short: "Download a file",
		Args:  cobra.RangeArgs(1, 2),
		RunE:  runGet,
	}
}

func newPutCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "put <local-path>... <remote-dir>",
		Short: "Upload one or more files",
		Long: `Upload local files into a remote directory. Multiple files are
uploaded concurrently, bounded by transfers.parallel_uploads.`,
		Args: cobra.MinimumNArgs(2),
		RunE: runPut,
	}
}

func newRmCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "rm <path>",
		Short: "Delete a file or folder",
		Args:  cobra.ExactArgs(1),
		RunE:  runRm,
	}
}

func newMvCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "mv <source> <destination>",
		Short: "Move or rename an entry",
		Args:  cobra.ExactArgs(2),
		RunE:  runMv,
	}
}

func newMkdirCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "mkdir <path>",
		Short: "Create a folder",
		Args:  cobra.ExactArgs(1),
		RunE:  runMkdir,
	}
}

// cleanRemotePath normalizes a remote path to absolute form with no
// trailing slash; "" and "/" both mean the root.
func cleanRemotePath(p string) string {
	p = "/" + strings.Trim(p, "/")

	return p
}

// lsEntry is the JSON schema for `ls --json`.
type lsEntry struct {
	Name     string `json:"name"`
	Path     string `json:"path"`
	Size     int64  `json:"size"`
	Dir      bool   `json:"dir"`
	Modified string `json:"modified,omitempty"`
}

func runLs(_ *cobra.Command, args []string) error {
	dir := "/"
	if len(args) == 1 {
		dir = cleanRemotePath(args[0])
	}

	return withSession(context.Background(), func(ctx context.Context, s *mega.Session) error {
		entries, err := s.List(ctx, dir)
		if err != nil {
			return err
		}

		sort.Slice(entries, func(i, j int) bool { return entries[i].Name < entries[j].Name })

		if flagJSON {
			out := make([]lsEntry, 0, len(entries))
			for _, e := range entries {
				je := lsEntry{Name: e.Name, Path: e.Path, Size: e.Size, Dir: e.Dir}
				if !e.Modified.IsZero() {
					je.Modified = e.Modified.UTC().Format("2006-01-02T15:04:05Z")
				}
				out = append(out, je)
			}

			return json.NewEncoder(os.Stdout).Encode(out)
		}

		printEntries(os.Stdout, entries)

		return nil
	})
}

func runGet(_ *cobra.Command, args []string) error {
	remote := cleanRemotePath(args[0])

	local := path.Base(remote)
	if len(args) == 2 {
		local = args[1]
	}

	return withSession(context.Background(), func(ctx context.Context, s *mega.Session) error {
		info, err := s.Download(ctx, remote, local)
		if err != nil {
			return err
		}

		statusf("Downloaded %s -> %s (%s)\n", remote, local, formatSize(info.Bytes))

		return nil
	})
}

func runPut(_ *cobra.Command, args []string) error {
	locals := args[:len(args)-1]
	remoteDir := cleanRemotePath(args[len(args)-1])

	return withSession(context.Background(), func(ctx context.Context, s *mega.Session) error {
		g, gctx := errgroup.WithContext(ctx)
		g.SetLimit(cfg.Transfers.ParallelUploads)

		for _, local := range locals {
			remote := path.Join(remoteDir, path.Base(local))

			g.Go(func() error {
				info, err := s.Upload(gctx, local, remote)
				if err != nil {
					return fmt.Errorf("uploading %s: %w", local, err)
				}

				statusf("Uploaded %s -> %s (%s)\n", local, remote, formatSize(info.Bytes))

				return nil
			})
		}

		return g.Wait()
	})
}

func runRm(_ *cobra.Command, args []string) error {
	target := cleanRemotePath(args[0])

	return withSession(context.Background(), func(ctx context.Context, s *mega.Session) error {
		if err := s.Delete(ctx, target); err != nil {
			return err
		}

		statusf("Deleted %s\n", target)

		return nil
	})
}

func runMv(_ *cobra.Command, args []string) error {
	src := cleanRemotePath(args[0])
	dst := cleanRemotePath(args[1])

	return withSession(context.Background(), func(ctx context.Context, s *mega.Session) error {
		if err := s.Move(ctx, src, dst); err != nil {
			return err
		}

		statusf("Moved %s -> %s\n", src, dst)

		return nil
	})
}

func runMkdir(_ *cobra.Command, args []string) error {
	target := cleanRemotePath(args[0])

	return withSession(context.Background(), func(ctx context.Context, s *mega.Session) error {
		if err := s.MkDir(ctx, target); err != nil {
			return err
		}

		statusf("Created %s\n", target)

		return nil
	})
}

// printEntries writes a directory listing: an aligned table on a terminal,
// tab-separated otherwise.
func printEntries(out *os.File, entries []native.Entry) {
	headers := []string{"NAME", "SIZE", "MODIFIED"}

	rows := make([][]string, 0, len(entries))
	for _, e := range entries {
		size := formatSize(e.Size)
		if e.Dir {
			size = "-"
		}

		modified := ""
		if !e.Modified.IsZero() {
			modified = formatTime(e.Modified)
		}

		name := e.Name
		if e.Dir {
			name += "/"
		}

		rows = append(rows, []string{name, size, modified})
	}

	printTable(out, headers, rows)
}
