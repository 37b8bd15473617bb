package main

import (
	"errors"
	"fmt"
	"os/signal"
	"strconv"
	"sync"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/pathos-os/pathos/internal/worker"
	"github.com/pathos-os/pathos/pkg/pathos"
)

var (
	showWeek  int
	syncWatch bool
)

var roadmapCmd = &cobra.Command{
	Use:   "roadmap",
	Short: "View and update your roadmap",
}

var roadmapShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show roadmap steps and progress",
	Args:  cobra.NoArgs,
	RunE:  runRoadmapShow,
}

var roadmapToggleCmd = &cobra.Command{
	Use:   "toggle <week>",
	Short: "Mark a week complete, or not complete if it already is",
	Args:  cobra.ExactArgs(1),
	RunE:  runRoadmapToggle,
}

var roadmapSyncCmd = &cobra.Command{
	Use:   "sync",
	Short: "Send progress updates the backend has not confirmed yet",
	Long:  "Retry queued progress updates once, or keep retrying on an interval with --watch.",
	Args:  cobra.NoArgs,
	RunE:  runRoadmapSync,
}

func init() {
	roadmapShowCmd.Flags().IntVar(&showWeek, "week", 0, "Show details for this week")
	roadmapSyncCmd.Flags().BoolVar(&syncWatch, "watch", false,
		"Keep retrying until interrupted")

	roadmapCmd.AddCommand(roadmapShowCmd)
	roadmapCmd.AddCommand(roadmapToggleCmd)
	roadmapCmd.AddCommand(roadmapSyncCmd)
}

// loadTracker loads the roadmap and maps redirects to command outcomes.
// It returns a nil tracker with a nil error when the user has no roadmap
// yet; the onboarding hint has already been printed.
func loadTracker(cmd *cobra.Command, c *pathos.Client) (*pathos.Tracker, error) {
	tracker := c.NewTracker()
	redirect, err := tracker.Load(cmd.Context())
	if err != nil {
		return nil, err
	}

	switch redirect {
	case pathos.RedirectLogin:
		token, _ := c.Session().Token(cmd.Context())
		if token == "" {
			return nil, errNotSignedIn
		}
		return nil, errSessionExpired
	case pathos.RedirectOnboarding:
		if jsonOutput {
			return nil, printJSON(cmd.OutOrStdout(), map[string]any{"roadmap": nil, "next": redirect.String()})
		}
		hint(cmd.OutOrStdout(), "No roadmap yet. Run `pathos onboard` to generate one.")
		return nil, nil
	}
	return tracker, nil
}

func runRoadmapShow(cmd *cobra.Command, args []string) error {
	return withClient(func(c *pathos.Client) error {
		tracker, err := loadTracker(cmd, c)
		if tracker == nil || err != nil {
			return err
		}

		if showWeek != 0 && !tracker.SelectStep(showWeek) {
			return fmt.Errorf("week %d is not in your roadmap", showWeek)
		}

		rm, _ := tracker.Snapshot()
		selected, ok := tracker.Selected()

		if jsonOutput {
			out := map[string]any{"roadmap": rm, "stats": tracker.Stats()}
			if ok {
				out["selected"] = selected
			}
			return printJSON(cmd.OutOrStdout(), out)
		}

		if showWeek == 0 {
			renderRoadmap(cmd.OutOrStdout(), rm, nil)
			return nil
		}
		renderRoadmap(cmd.OutOrStdout(), rm, &selected)
		return nil
	})
}

func runRoadmapToggle(cmd *cobra.Command, args []string) error {
	week, err := strconv.Atoi(args[0])
	if err != nil || week < 1 {
		return fmt.Errorf("invalid week %q", args[0])
	}

	return withClient(func(c *pathos.Client) error {
		tracker, err := loadTracker(cmd, c)
		if tracker == nil || err != nil {
			return err
		}

		if !tracker.ToggleComplete(cmd.Context(), week) {
			return fmt.Errorf("week %d is not in your roadmap", week)
		}
		// Let the background sync finish before the process exits.
		tracker.Wait()

		tracker.SelectStep(week)
		step, _ := tracker.Selected()
		stats := tracker.Stats()
		pending, err := c.Stats(cmd.Context())
		if err != nil {
			return err
		}

		if jsonOutput {
			return printJSON(cmd.OutOrStdout(), map[string]any{
				"week":         step.Week,
				"completed":    step.Completed,
				"stats":        stats,
				"pending_sync": pending.PendingSync,
			})
		}

		out := cmd.OutOrStdout()
		fmt.Fprintln(out, stepLine(step, false))
		fmt.Fprintln(out, progressBar(stats))
		if pending.PendingSync > 0 {
			hint(out, fmt.Sprintf("%d update(s) not yet confirmed by the server. Run `pathos roadmap sync` to retry.",
				pending.PendingSync))
		}
		return nil
	})
}

func newRetryWorker(c *pathos.Client) *worker.ProgressRetryWorker {
	w := worker.NewProgressRetryWorker(
		c.Store(),
		c.Backend(),
		c.Session(),
		time.Duration(cfg.Sync.RetryInterval),
		cfg.Sync.MaxAttempts,
		cfg.Sync.BatchSize,
	)
	w.SetCallTimeout(time.Duration(cfg.Sync.Timeout))
	return w
}

func runRoadmapSync(cmd *cobra.Command, args []string) error {
	return withClient(func(c *pathos.Client) error {
		if c.Store() == nil {
			return errors.New("no local store configured")
		}
		w := newRetryWorker(c)

		if syncWatch {
			ctx, cancel := signal.NotifyContext(cmd.Context(), syscall.SIGTERM, syscall.SIGINT)
			defer cancel()

			var wg sync.WaitGroup
			startWorker(ctx, &wg, "progress-retry", w.Run)
			<-ctx.Done()
			wg.Wait()
			return nil
		}

		res := w.ProcessPending(cmd.Context())
		stats, err := c.Stats(cmd.Context())
		if err != nil {
			return err
		}

		if jsonOutput {
			return printJSON(cmd.OutOrStdout(), map[string]int{
				"sent":      res.Sent,
				"failed":    res.Failed,
				"dropped":   res.Dropped,
				"remaining": stats.PendingSync,
			})
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Sent %d, failed %d, dropped %d, %d still pending\n",
			res.Sent, res.Failed, res.Dropped, stats.PendingSync)
		return nil
	})
}
