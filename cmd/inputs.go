package cmd

import (
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/mitchellh/go-homedir"
	"github.com/spf13/cobra"

	"github.com/xkilldash9x/courier-cli/internal/config"
	"github.com/xkilldash9x/courier-cli/internal/credentials"
	"github.com/xkilldash9x/courier-cli/internal/dispatch"
)

// jobFlags are the inputs shared by run and tui.
type jobFlags struct {
	thread       string
	messages     string
	messagesFile string
	cookies      string
	cookiesFile  string
	delay        int
	chromePath   string
}

func (f *jobFlags) register(cmd *cobra.Command) {
	fs := cmd.Flags()
	fs.StringVarP(&f.thread, "thread", "t", "", "conversation thread id")
	fs.StringVarP(&f.messages, "messages", "m", "", "messages to send, one per line")
	fs.StringVar(&f.messagesFile, "messages-file", "", "read messages from a file ('-' for stdin)")
	fs.StringVar(&f.cookies, "cookies", "", "session cookies: 'name=value; ...', JSON, or @file")
	fs.StringVar(&f.cookiesFile, "cookies-file", "", "read session cookies from a file")
	fs.IntVarP(&f.delay, "delay", "d", 0, "seconds between messages, 1-60 (default from config)")
	fs.StringVar(&f.chromePath, "chrome-path", "", "Chrome or Chromium binary (overrides browser.exec_path)")
	cmd.MarkFlagsMutuallyExclusive("messages", "messages-file")
	cmd.MarkFlagsMutuallyExclusive("cookies", "cookies-file")
	_ = cmd.MarkFlagRequired("thread")
}

// apply writes flag overrides into cfg.
func (f *jobFlags) apply(cfg config.Interface) {
	if f.chromePath != "" {
		cfg.SetBrowserExecPath(f.chromePath)
	}
	if f.delay != 0 {
		cfg.SetDispatchDefaultDelay(time.Duration(f.delay) * time.Second)
	}
}

// resolve applies the overrides, loads file-backed inputs and builds the job.
// It returns the raw credential text unparsed; the run normalizes it.
func (f *jobFlags) resolve(cfg config.Interface, stdin io.Reader) (dispatch.Job, string, error) {
	f.apply(cfg)

	rawMessages := f.messages
	if f.messagesFile != "" {
		text, err := readInput(f.messagesFile, stdin)
		if err != nil {
			return dispatch.Job{}, "", fmt.Errorf("failed to read messages: %w", err)
		}
		rawMessages = text
	}

	var (
		rawCookies string
		err        error
	)
	if f.cookiesFile != "" {
		rawCookies, err = credentials.ReadFile(f.cookiesFile)
	} else {
		rawCookies, err = credentials.Load(f.cookies)
	}
	if err != nil {
		return dispatch.Job{}, "", fmt.Errorf("failed to read cookies: %w", err)
	}

	job, err := dispatch.NewJob(f.thread, rawMessages, cfg.Dispatch().DefaultDelay)
	if err != nil {
		return dispatch.Job{}, "", err
	}
	return job, rawCookies, nil
}

func readInput(path string, stdin io.Reader) (string, error) {
	if path == "-" {
		if stdin == nil {
			return "", errors.New("stdin is not available")
		}
		b, err := io.ReadAll(stdin)
		return string(b), err
	}
	expanded, err := homedir.Expand(path)
	if err != nil {
		return "", err
	}
	b, err := os.ReadFile(expanded)
	if err != nil {
		return "", err
	}
	return string(b), nil
}
