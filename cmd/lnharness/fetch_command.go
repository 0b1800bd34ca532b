package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"lnharness/internal/fetch"
)

func newFetchCommand(ctx *commandContext) *cobra.Command {
	var (
		version    string
		tarball    string
		sums       string
		filename   string
		force      bool
		jsonOutput bool
	)

	cmd := &cobra.Command{
		Use:   "fetch",
		Short: "Download, verify and unpack a lightningd release",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			logger, err := ctx.ensureLogger()
			if err != nil {
				return err
			}

			opts := fetch.Options{
				Version:     firstNonBlank(version, cfg.Fetch.Version),
				Filename:    firstNonBlank(filename, cfg.Fetch.Filename),
				Endpoint:    cfg.Fetch.Endpoint,
				TarballFile: firstNonBlank(tarball, cfg.Fetch.TarballFile),
				SumsFile:    firstNonBlank(sums, cfg.Fetch.SumsFile),
				InstallDir:  cfg.Fetch.InstallDir,
				Timeout:     cfg.FetchTimeout(),
				Force:       force,
				Logger:      logger,
			}
			res, err := fetch.Install(cmd.Context(), opts)
			if err != nil {
				return err
			}

			if jsonOutput {
				return writeJSON(cmd, res)
			}
			out := cmd.OutOrStdout()
			if res.Skipped {
				fmt.Fprintf(out, "lightningd already installed at %s (use --force to reinstall)\n", res.Executable)
				return nil
			}
			writeFields(out, [][2]string{
				{"Executable", res.Executable},
				{"Tarball", res.Filename},
				{"Source", res.Source},
				{"SHA-256", res.SHA256},
				{"Files", fmt.Sprintf("%d", len(res.Extracted))},
			})
			return nil
		},
	}

	flags := cmd.Flags()
	flags.StringVar(&version, "version", "", "Release tag to install (defaults to fetch.version)")
	flags.StringVar(&tarball, "tarball", "", "Use a local tarball instead of downloading")
	flags.StringVar(&sums, "sums", "", "Use a local SHA256SUMS file instead of downloading")
	flags.StringVar(&filename, "filename", "", "Tarball name to verify and fetch")
	flags.BoolVar(&force, "force", false, "Reinstall even if lightningd is present")
	flags.BoolVar(&jsonOutput, "json", false, "Print the result as JSON")
	return cmd
}

func firstNonBlank(values ...string) string {
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			return strings.TrimSpace(v)
		}
	}
	return ""
}
