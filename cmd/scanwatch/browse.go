package main

import (
	"context"
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/sentrixio/scanwatch/pkg/client"
	"github.com/sentrixio/scanwatch/pkg/dork"
	"github.com/sentrixio/scanwatch/pkg/errors"
	"github.com/sentrixio/scanwatch/pkg/pagination"
	"github.com/sentrixio/scanwatch/pkg/risk"
	"github.com/sentrixio/scanwatch/pkg/router"
	"github.com/sentrixio/scanwatch/pkg/types"
)

var homeCmd = &cobra.Command{
	Use:   "home",
	Short: "Show the dashboard: stats, category heatmap and recent scans",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		return withApp(ctx, func(a *app) error {
			_, err := a.router.LoadHome(ctx)
			return err
		})
	},
}

var tasksCmd = &cobra.Command{
	Use:   "tasks",
	Short: "List recent scans",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		limit, _ := cmd.Flags().GetInt("limit")
		ctx := cmd.Context()
		return withApp(ctx, func(a *app) error {
			tasks, err := a.client.ListTasks(ctx, limit)
			if err != nil {
				return err
			}
			a.renderer.Tasks(tasks)
			return nil
		})
	},
}

var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show aggregate statistics",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		return withApp(ctx, func(a *app) error {
			stats, err := a.client.Stats(ctx)
			if err != nil {
				return err
			}
			heatmap, err := a.client.CategoryHeatmap(ctx)
			if err != nil {
				a.logger.Warn("loading heatmap: %v", err)
			}
			a.renderer.Home(stats, heatmap, nil)
			return nil
		})
	},
}

var healthCmd = &cobra.Command{
	Use:   "health",
	Short: "Probe the backend",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		return withApp(ctx, func(a *app) error {
			h, err := a.client.Health(ctx)
			if err != nil {
				return err
			}
			db := "down"
			if h.Mongo {
				db = "up"
			}
			a.renderer.Message("%s at %s: database %s", h.Service, a.client.BaseURL(), db)
			return nil
		})
	},
}

var stopCmd = &cobra.Command{
	Use:   "stop [task-id]",
	Short: "Stop a running scan (default: the active scan)",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		return withApp(ctx, func(a *app) error {
			taskID, err := taskArg(ctx, a, args)
			if err != nil {
				return err
			}
			res, err := a.client.StopScan(ctx, taskID)
			if err != nil {
				return err
			}
			a.renderer.Message("Stop requested for %s", res.TaskID)
			return nil
		})
	},
}

var logsCmd = &cobra.Command{
	Use:   "logs [task-id]",
	Short: "Show the latest pipeline log lines of a scan",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		return withApp(ctx, func(a *app) error {
			taskID, err := taskArg(ctx, a, args)
			if err != nil {
				return err
			}
			logs, err := a.client.TaskLogs(ctx, taskID)
			if err != nil {
				return err
			}
			a.renderer.Logs(logs)
			return nil
		})
	},
}

var leaksCmd = &cobra.Command{
	Use:   "leaks [task-id]",
	Short: "List the leaks of a scan",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		filter, _ := cmd.Flags().GetString("filter")
		page, _ := cmd.Flags().GetInt("page")
		ctx := cmd.Context()

		return withApp(ctx, func(a *app) error {
			taskID, err := taskArg(ctx, a, args)
			if err != nil {
				return err
			}
			leaks, err := a.client.Leaks(ctx, taskID)
			if err != nil {
				return err
			}
			p := pagination.New[types.Leak](pagination.DefaultPageSize)
			p.SetItems(risk.Filter(leaks, filter))
			if page > 1 {
				p.Change(page - 1)
			}
			a.renderer.Leaks(p.Render(), risk.NormalizeFilter(filter), true)
			return nil
		})
	},
}

var inspectCmd = &cobra.Command{
	Use:   "inspect <js-id>",
	Short: "Show the content of a discovered script",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		return withApp(ctx, func(a *app) error {
			f, err := a.client.JSFile(ctx, args[0])
			if err != nil {
				return err
			}
			a.renderer.AssetContent(f)
			return nil
		})
	},
}

var queriesCmd = &cobra.Command{
	Use:   "queries <task-id> <n>",
	Short: "Show verification queries for the n-th leak of a scan",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		filter, _ := cmd.Flags().GetString("filter")
		lookup, _ := cmd.Flags().GetBool("lookup")
		ctx := cmd.Context()

		return withApp(ctx, func(a *app) error {
			l, err := nthLeak(ctx, a, args[0], args[1], filter)
			if err != nil {
				return err
			}
			a.renderer.Queries(dork.Generate(l, l.MetadataOrEmpty()))
			if !lookup {
				return nil
			}
			if a.verifier == nil {
				return errors.E(errors.KindInvalidInput, "queries", "GitHub lookup needs --github-token")
			}
			_, err = router.LookupLeak(ctx, a.verifier, a.renderer, l)
			return err
		})
	},
}

var explainCmd = &cobra.Command{
	Use:   "explain <task-id> <n>",
	Short: "Ask the backend to explain the n-th leak of a scan",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		filter, _ := cmd.Flags().GetString("filter")
		ctx := cmd.Context()

		return withApp(ctx, func(a *app) error {
			l, err := nthLeak(ctx, a, args[0], args[1], filter)
			if err != nil {
				return err
			}
			req, err := risk.ExplainRequest(l)
			if err != nil {
				return err
			}
			e, err := a.client.Explain(ctx, req)
			if err != nil {
				return fmt.Errorf("explanation unavailable: %s", client.Message(err))
			}
			a.renderer.Explanation(e)
			return nil
		})
	},
}

var deleteCmd = &cobra.Command{
	Use:   "delete <task-id>",
	Short: "Delete a scan and its results",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		return withApp(ctx, func(a *app) error {
			if err := a.router.DeleteTask(ctx, args[0]); err != nil {
				return err
			}
			marker, err := a.store.ActiveScan(ctx)
			if err == nil && marker != nil && marker.TaskID == args[0] {
				return a.store.ClearActiveScan(ctx)
			}
			return nil
		})
	},
}

var deleteAllCmd = &cobra.Command{
	Use:   "delete-all",
	Short: "Delete every scan and its results",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		return withApp(ctx, func(a *app) error {
			return a.router.DeleteAll(ctx)
		})
	},
}

var themeCmd = &cobra.Command{
	Use:       "theme [dark|light]",
	Short:     "Show or set the colour theme",
	Args:      cobra.MaximumNArgs(1),
	ValidArgs: []string{"dark", "light"},
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		return withApp(ctx, func(a *app) error {
			if len(args) == 0 {
				t, err := a.router.Theme(ctx)
				if err != nil {
					return err
				}
				a.renderer.Message("Theme: %s", t)
				return nil
			}
			t, err := a.router.SetTheme(ctx, args[0])
			if err != nil {
				return err
			}
			a.renderer.Message("Theme set to %s", t)
			return nil
		})
	},
}

func init() {
	tasksCmd.Flags().Int("limit", client.DefaultTaskLimit, "number of scans to list")
	leaksCmd.Flags().String("filter", risk.FilterAll, "risk filter: all, critical, high, medium, low")
	leaksCmd.Flags().Int("page", 1, "page to show")
	queriesCmd.Flags().String("filter", risk.FilterAll, "risk filter the index refers to")
	queriesCmd.Flags().Bool("lookup", false, "also search GitHub code for the leak's domain")
	explainCmd.Flags().String("filter", risk.FilterAll, "risk filter the index refers to")

	rootCmd.AddCommand(
		homeCmd, tasksCmd, statsCmd, healthCmd, stopCmd,
		logsCmd, leaksCmd, inspectCmd, queriesCmd, explainCmd,
		deleteCmd, deleteAllCmd, themeCmd,
	)
}

// taskArg returns the task named on the command line, or the profile's
// active scan.
func taskArg(ctx context.Context, a *app, args []string) (string, error) {
	if len(args) > 0 && args[0] != "" {
		return args[0], nil
	}
	marker, err := a.store.ActiveScan(ctx)
	if err != nil {
		return "", err
	}
	if marker == nil {
		return "", errors.ErrNoActiveScan
	}
	return marker.TaskID, nil
}

// nthLeak fetches a task's leaks and returns the n-th (1-based) of the
// filtered list.
func nthLeak(ctx context.Context, a *app, taskID, index, filter string) (types.Leak, error) {
	n, err := strconv.Atoi(index)
	if err != nil || n < 1 {
		return types.Leak{}, errors.E(errors.KindInvalidInput, "leak index", fmt.Sprintf("%q is not a positive number", index))
	}
	leaks, err := a.client.Leaks(ctx, taskID)
	if err != nil {
		return types.Leak{}, err
	}
	leaks = risk.Filter(leaks, filter)
	if n > len(leaks) {
		return types.Leak{}, errors.E(errors.KindNotFound, "leak index", fmt.Sprintf("leak #%d not found (%d leaks)", n, len(leaks)))
	}
	return leaks[n-1], nil
}
