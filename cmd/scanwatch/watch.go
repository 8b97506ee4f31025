package main

import (
	"context"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/mattn/go-isatty"
	"github.com/spf13/cobra"

	"github.com/sentrixio/scanwatch/pkg/dork"
	"github.com/sentrixio/scanwatch/pkg/errors"
	"github.com/sentrixio/scanwatch/pkg/results"
	"github.com/sentrixio/scanwatch/pkg/state"
	"github.com/sentrixio/scanwatch/pkg/types"
	"github.com/sentrixio/scanwatch/pkg/verify"
)

var watchCmd = &cobra.Command{
	Use:   "watch [task-id]",
	Short: "Follow the active scan, or the given task, interactively",
	Long: `Follow a scan until it finishes while accepting line commands.

Without a task ID the scan remembered for the profile is resumed; when there
is none the home dashboard is shown. Type "help" for the command list.`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		taskID := ""
		if len(args) == 1 {
			taskID = args[0]
		}
		return runWatch(cmd.Context(), taskID)
	},
}

var scanCmd = &cobra.Command{
	Use:   "scan <url>",
	Short: "Start a scan and follow it",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		detach, _ := cmd.Flags().GetBool("detach")
		ctx := cmd.Context()

		return withApp(ctx, func(a *app) error {
			taskID, err := a.router.StartScan(ctx, args[0])
			if err != nil {
				return err
			}
			if detach {
				fmt.Println(taskID)
				return nil
			}
			return interact(ctx, a, stdinLines())
		})
	},
}

func init() {
	scanCmd.Flags().Bool("detach", false, "print the task ID and exit instead of following the scan")
	rootCmd.AddCommand(watchCmd, scanCmd)
}

func runWatch(ctx context.Context, taskID string) error {
	return withApp(ctx, func(a *app) error {
		var err error
		if taskID != "" {
			err = a.router.Resume(ctx, types.ActiveScan{TaskID: taskID})
		} else {
			err = a.router.Init(ctx)
		}
		if err != nil {
			return err
		}
		return interact(ctx, a, stdinLines())
	})
}

// interact reads line commands until "q", EOF after the scan ends, or
// cancellation.
func interact(ctx context.Context, a *app, lines <-chan string) error {
	a.renderer.Message(`Type "help" for commands, "q" to quit.`)
	interactive := isatty.IsTerminal(os.Stdin.Fd()) || isatty.IsCygwinTerminal(os.Stdin.Fd())
	for {
		if interactive {
			fmt.Fprint(os.Stderr, "> ")
		}
		select {
		case <-ctx.Done():
			return nil
		case line, ok := <-lines:
			if !ok {
				if done := a.router.PollDone(); done != nil {
					select {
					case <-done:
					case <-ctx.Done():
					}
				}
				return nil
			}
			quit, err := dispatch(ctx, a.router, line)
			if err != nil {
				// The router already shows backend failures.
				switch errors.GetKind(err) {
				case errors.KindInvalidInput, errors.KindNotFound, errors.KindCancelled:
					a.renderer.Error(err)
				default:
					a.logger.Debug("command %q: %v", line, err)
				}
			}
			if quit {
				return nil
			}
		}
	}
}

// controller is the router surface line commands drive.
type controller interface {
	StartScan(ctx context.Context, target string) (string, error)
	GoHome(ctx context.Context) error
	StopScan(ctx context.Context) error
	DeleteTask(ctx context.Context, taskID string) error
	DeleteAll(ctx context.Context) error
	SetFilter(filter string) (string, error)
	ChangePage(c results.Category, delta int) (int, error)
	InspectAsset(ctx context.Context, jsID string) (*types.JSFileContent, error)
	Explain(ctx context.Context, n int) (*types.Explanation, error)
	Queries(n int) ([]dork.Query, error)
	Lookup(ctx context.Context, n int) (*verify.Result, error)
	SetTheme(ctx context.Context, theme string) (state.Theme, error)
	Refresh()
}

const helpText = `Commands:
  n [assets|endpoints|leaks]   next page (default: leaks)
  p [assets|endpoints|leaks]   previous page
  f <all|critical|high|medium|low>  filter leaks by risk
  explain <n>                  explain leak #n of the filtered list
  queries <n>                  verification queries for leak #n
  lookup <n>                   GitHub code search for leak #n's domain
  inspect <js-id>              show a script's content
  scan <url>                   start a new scan
  stop                         stop the active scan
  delete <task-id>             delete a scan
  delete-all                   delete every scan
  theme <dark|light>           switch theme
  home                         stop watching and show the dashboard
  r                            redraw
  q                            quit (the scan is resumed next time)`

// dispatch runs one line command and reports whether to quit.
func dispatch(ctx context.Context, c controller, line string) (bool, error) {
	fields := strings.Fields(line)
	if len(fields) == 0 {
		return false, nil
	}
	cmd, args := strings.ToLower(fields[0]), fields[1:]

	switch cmd {
	case "q", "quit", "exit":
		return true, nil
	case "help", "h", "?":
		fmt.Println(helpText)
		return false, nil
	case "r", "refresh":
		c.Refresh()
		return false, nil
	case "n", "next", "p", "prev":
		cat, err := parseCategory(args)
		if err != nil {
			return false, err
		}
		delta := 1
		if cmd == "p" || cmd == "prev" {
			delta = -1
		}
		_, err = c.ChangePage(cat, delta)
		return false, err
	case "f", "filter":
		filter := ""
		if len(args) > 0 {
			filter = args[0]
		}
		_, err := c.SetFilter(filter)
		return false, err
	case "explain", "queries", "lookup":
		n, err := parseIndex(cmd, args)
		if err != nil {
			return false, err
		}
		switch cmd {
		case "explain":
			_, err = c.Explain(ctx, n)
		case "queries":
			_, err = c.Queries(n)
		default:
			_, err = c.Lookup(ctx, n)
		}
		return false, err
	case "inspect":
		if len(args) != 1 {
			return false, usage("inspect <js-id>")
		}
		_, err := c.InspectAsset(ctx, args[0])
		return false, err
	case "scan":
		if len(args) != 1 {
			return false, usage("scan <url>")
		}
		_, err := c.StartScan(ctx, args[0])
		return false, err
	case "stop":
		return false, c.StopScan(ctx)
	case "delete":
		if len(args) != 1 {
			return false, usage("delete <task-id>")
		}
		return false, c.DeleteTask(ctx, args[0])
	case "delete-all":
		return false, c.DeleteAll(ctx)
	case "theme":
		if len(args) != 1 {
			return false, usage("theme <dark|light>")
		}
		_, err := c.SetTheme(ctx, args[0])
		return false, err
	case "home":
		return false, c.GoHome(ctx)
	default:
		return false, errors.E(errors.KindInvalidInput, "dispatch", fmt.Sprintf("unknown command %q (type help)", cmd))
	}
}

func usage(s string) error {
	return errors.E(errors.KindInvalidInput, "dispatch", "usage: "+s)
}

func parseCategory(args []string) (results.Category, error) {
	if len(args) == 0 {
		return results.CategoryLeaks, nil
	}
	switch strings.ToLower(args[0]) {
	case "a", "assets", "js":
		return results.CategoryAssets, nil
	case "e", "endpoints":
		return results.CategoryEndpoints, nil
	case "l", "leaks":
		return results.CategoryLeaks, nil
	default:
		return "", errors.E(errors.KindInvalidInput, "dispatch", fmt.Sprintf("unknown list %q", args[0]))
	}
}

func parseIndex(cmd string, args []string) (int, error) {
	if len(args) != 1 {
		return 0, usage(cmd + " <n>")
	}
	n, err := strconv.Atoi(strings.TrimPrefix(args[0], "#"))
	if err != nil || n < 1 {
		return 0, usage(cmd + " <n>")
	}
	return n, nil
}
