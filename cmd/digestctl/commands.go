package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/tjfontaine/meeting-digest/internal/client"
	"github.com/tjfontaine/meeting-digest/internal/diagnostics"
	"github.com/tjfontaine/meeting-digest/internal/domain"
)

// serverEnv overrides the default server address.
const serverEnv = "DIGEST_SERVER"

type rootOptions struct {
	server string
	in     io.Reader
	out    io.Writer
}

func (o *rootOptions) client() *client.Client {
	return client.New(o.server)
}

func newRootCmd(in io.Reader, out io.Writer) *cobra.Command {
	opts := &rootOptions{in: in, out: out}

	defaultServer := os.Getenv(serverEnv)
	if defaultServer == "" {
		defaultServer = client.DefaultBaseURL
	}

	root := &cobra.Command{
		Use:           "digestctl",
		Short:         "Submit meeting transcripts and inspect digests",
		SilenceErrors: true,
		SilenceUsage:  true,
	}
	root.SetOut(out)
	root.PersistentFlags().StringVarP(&opts.server, "server", "s", defaultServer,
		"digest service address (env "+serverEnv+")")

	root.AddCommand(
		submitCmd(opts),
		listCmd(opts),
		getCmd(opts),
		diagnosticsCmd(opts),
	)
	return root
}

func submitCmd(opts *rootOptions) *cobra.Command {
	var (
		file   string
		stream bool
	)
	cmd := &cobra.Command{
		Use:   "submit [transcript]",
		Short: "Generate a digest from a transcript",
		Long: `Generate a digest from a transcript.

The transcript is read from --file, from the arguments, or from standard
input when neither is given or the file is "-".`,
		Example: `  digestctl submit --file standup.txt
  digestctl submit --stream "Alice: shipping Friday. Bob: I'll update the docs."
  cat notes.txt | digestctl submit --stream`,
		RunE: func(cmd *cobra.Command, args []string) error {
			transcript, err := readTranscript(opts.in, file, args)
			if err != nil {
				return err
			}

			c := opts.client()
			if !stream {
				d, err := c.Create(cmd.Context(), transcript)
				if err != nil {
					return err
				}
				fmt.Fprintln(opts.out, d.Summary)
				fmt.Fprintf(opts.out, "\nDigest %s saved\n", d.PublicID)
				return nil
			}

			d, err := c.Stream(cmd.Context(), transcript, func(ev domain.StreamEvent) error {
				if ev.Type == domain.EventChunk {
					_, err := io.WriteString(opts.out, ev.Content)
					return err
				}
				return nil
			})
			if err != nil {
				return err
			}
			fmt.Fprintf(opts.out, "\n\nDigest %s saved\n", d.PublicID)
			return nil
		},
	}
	cmd.Flags().StringVarP(&file, "file", "f", "", "read the transcript from a file")
	cmd.Flags().BoolVar(&stream, "stream", false, "print the digest as it is generated")
	return cmd
}

func readTranscript(in io.Reader, file string, args []string) (string, error) {
	var data []byte
	var err error
	switch {
	case file == "-":
		data, err = io.ReadAll(in)
	case file != "":
		data, err = os.ReadFile(file)
	case len(args) > 0:
		data = []byte(strings.Join(args, " "))
	default:
		data, err = io.ReadAll(in)
	}
	if err != nil {
		return "", fmt.Errorf("read transcript: %w", err)
	}
	if strings.TrimSpace(string(data)) == "" {
		return "", errors.New("transcript is empty")
	}
	return string(data), nil
}

func listCmd(opts *rootOptions) *cobra.Command {
	var (
		limit, offset int
		asJSON        bool
	)
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List digests, newest first",
		RunE: func(cmd *cobra.Command, args []string) error {
			digests, err := opts.client().List(cmd.Context(), limit, offset)
			if err != nil {
				return err
			}
			if asJSON {
				return writeJSON(opts.out, digests)
			}
			if len(digests) == 0 {
				fmt.Fprintln(opts.out, "No digests found.")
				return nil
			}
			for _, d := range digests {
				fmt.Fprintf(opts.out, "%s  %s  %s\n", d.PublicID, d.CreatedAt.Format("2006-01-02 15:04"), headline(d.Summary))
			}
			return nil
		},
	}
	cmd.Flags().IntVar(&limit, "limit", 0, "maximum number of digests")
	cmd.Flags().IntVar(&offset, "offset", 0, "number of digests to skip")
	cmd.Flags().BoolVar(&asJSON, "json", false, "print raw JSON")
	return cmd
}

// headline is the first non-heading line of a summary, shortened for listing.
func headline(summary string) string {
	for _, line := range strings.Split(summary, "\n") {
		line = strings.TrimSpace(line)
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		if r := []rune(line); len(r) > 60 {
			return string(r[:57]) + "..."
		}
		return line
	}
	return ""
}

func getCmd(opts *rootOptions) *cobra.Command {
	var asJSON bool
	cmd := &cobra.Command{
		Use:   "get <publicId>",
		Short: "Show one digest",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			d, err := opts.client().Get(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			if asJSON {
				return writeJSON(opts.out, d)
			}
			fmt.Fprintln(opts.out, d.Summary)
			return nil
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "print raw JSON")
	return cmd
}

var diagnosticsActions = []string{"run", "start-timer", "stop-timer", "status"}

func diagnosticsCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:       "diagnostics [run|start-timer|stop-timer|status]",
		Short:     "Run network diagnostics or control the diagnostics timer",
		Args:      cobra.MatchAll(cobra.MaximumNArgs(1), cobra.OnlyValidArgs),
		ValidArgs: diagnosticsActions,
		RunE: func(cmd *cobra.Command, args []string) error {
			action := "run"
			if len(args) == 1 {
				action = args[0]
			}
			resp, err := opts.client().Diagnostics(cmd.Context(), action)
			if err != nil {
				return err
			}

			switch {
			case resp.Report != "":
				fmt.Fprint(opts.out, resp.Report)
			case resp.Diagnostics != nil:
				fmt.Fprint(opts.out, diagnostics.FormatReport(*resp.Diagnostics))
			case resp.Message != "":
				fmt.Fprintln(opts.out, resp.Message)
			}

			running := "stopped"
			if resp.IsTimerRunning {
				running = "running"
			}
			fmt.Fprintf(opts.out, "Timer: %s", running)
			if resp.LastRun != nil {
				fmt.Fprintf(opts.out, " (last run %s)", resp.LastRun.Local().Format("2006-01-02 15:04:05"))
			}
			fmt.Fprintln(opts.out)
			return nil
		},
	}
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
