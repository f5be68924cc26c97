package cmd

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/fatih/color"
	"github.com/nxadm/tail"
	"github.com/spf13/cobra"

	"github.com/ngxmon/ngxmon/pkg/parser"
	"github.com/ngxmon/ngxmon/pkg/systemd"
)

const oneMiB = 1024 * 1024

func followCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "follow [filename]",
		Short: "Follow the access log and print one line per parsed request",
		Args:  cobra.MaximumNArgs(1),
	}
	var whole bool
	var daemon bool
	cmd.Flags().BoolVar(&whole, "whole", false, "Read from the beginning of the file")
	cmd.Flags().BoolVarP(&daemon, "daemon", "d", false, "Notify systemd when ready")
	cmd.RunE = func(cmd *cobra.Command, args []string) error {
		filename := "/var/log/nginx/access.log"
		if len(args) > 0 {
			filename = args[0]
		}
		t, seeked, err := openTail(filename, whole)
		if err != nil {
			return fmt.Errorf("failed to open file: %w", err)
		}
		if seeked {
			// The first line after seeking into the file is likely partial.
			<-t.Lines
		}
		if daemon {
			if err := systemd.NotifyReady(); err != nil {
				return fmt.Errorf("failed to notify systemd: %w", err)
			}
		}

		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		out := cmd.OutOrStdout()
		for {
			select {
			case <-ctx.Done():
				return t.Stop()
			case line, ok := <-t.Lines:
				if !ok {
					return nil
				}
				if line.Err != nil {
					return line.Err
				}
				rec, err := parser.ParseAccess([]byte(line.Text))
				if err != nil {
					fmt.Fprintf(cmd.ErrOrStderr(), "skipping line: %v\n", err)
					continue
				}
				printRecord(out, rec)
			}
		}
	}
	return cmd
}

func openTail(filename string, whole bool) (*tail.Tail, bool, error) {
	seekInfo := &tail.SeekInfo{Offset: 0, Whence: io.SeekStart}
	seeked := false
	if !whole {
		// tail does not handle a negative offset past the start of a small
		// file, so check the size first. Slightly racy but better than
		// crashing later.
		fileInfo, err := os.Stat(filename)
		if err != nil {
			return nil, false, err
		}
		if fileInfo.Size() >= oneMiB {
			seekInfo = &tail.SeekInfo{Offset: -oneMiB, Whence: io.SeekEnd}
			seeked = true
		}
	}
	t, err := tail.TailFile(filename, tail.Config{
		Follow:        true,
		ReOpen:        true,
		Location:      seekInfo,
		CompleteLines: true,
		MustExist:     true,
	})
	if err != nil {
		return nil, false, err
	}
	return t, seeked, nil
}

func printRecord(w io.Writer, rec parser.AccessRecord) {
	fmt.Fprintf(w, "%s %s %s %s %s %s\n",
		rec.Time.Format(time.DateTime),
		rec.Client,
		rec.Method,
		statusString(rec.Status),
		humanize.IBytes(rec.Size),
		rec.Path,
	)
}

func statusString(code int) string {
	s := strconv.Itoa(code)
	switch code / 100 {
	case 2:
		return color.GreenString(s)
	case 3:
		return color.CyanString(s)
	case 4:
		return color.YellowString(s)
	case 5:
		return color.RedString(s)
	}
	return s
}
