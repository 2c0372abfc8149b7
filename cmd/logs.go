package cmd

import (
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/hpcloud/tail"
	jsoniter "github.com/json-iterator/go"
	"github.com/mitchellh/go-homedir"
	"github.com/spf13/cobra"
)

func newLogsCmd() *cobra.Command {
	var (
		follow bool
		raw    bool
	)
	cmd := &cobra.Command{
		Use:   "logs",
		Short: "Print the structured log file",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := getConfigFromContext(cmd.Context())
			if err != nil {
				return err
			}
			path := cfg.Logger().LogFile
			if path == "" {
				return fmt.Errorf("logger.log_file is not configured")
			}
			if path, err = homedir.Expand(path); err != nil {
				return err
			}

			t, err := tail.TailFile(path, tail.Config{
				Follow:    follow,
				ReOpen:    follow,
				MustExist: !follow,
				Logger:    tail.DiscardingLogger,
			})
			if err != nil {
				return fmt.Errorf("failed to open log file: %w", err)
			}
			defer t.Cleanup()
			defer t.Stop()

			ctx := cmd.Context()
			out := cmd.OutOrStdout()
			for {
				select {
				case <-ctx.Done():
					return nil
				case line, ok := <-t.Lines:
					if !ok {
						return t.Wait()
					}
					if line.Err != nil {
						continue
					}
					writeLogLine(out, line.Text, raw)
				}
			}
		},
	}
	cmd.Flags().BoolVarP(&follow, "follow", "f", false, "keep reading as the file grows")
	cmd.Flags().BoolVar(&raw, "raw", false, "print JSON lines unformatted")
	return cmd
}

// writeLogLine renders one JSON log entry as "time LEVEL logger: msg key=value".
// Lines that are not JSON are printed as they are.
func writeLogLine(w io.Writer, text string, raw bool) {
	var entry map[string]interface{}
	if raw || jsoniter.UnmarshalFromString(text, &entry) != nil {
		fmt.Fprintln(w, text)
		return
	}

	var b strings.Builder
	for _, key := range []string{"ts", "level", "logger"} {
		if v, ok := entry[key]; ok {
			b.WriteString(fmt.Sprint(v))
			if key == "logger" {
				b.WriteByte(':')
			}
			b.WriteByte(' ')
		}
	}
	b.WriteString(fmt.Sprint(entry["msg"]))

	rest := make([]string, 0, len(entry))
	for k, v := range entry {
		switch k {
		case "ts", "level", "logger", "msg", "caller", "stacktrace":
			continue
		}
		rest = append(rest, fmt.Sprintf("%s=%v", k, v))
	}
	sort.Strings(rest)
	for _, kv := range rest {
		b.WriteByte(' ')
		b.WriteString(kv)
	}
	fmt.Fprintln(w, b.String())
}
