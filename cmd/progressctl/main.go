// Package main provides progressctl, an operator CLI that works directly on the progress store.
package main

import (
	"context"
	"fmt"
	"io"
	"log"
	"os"
	"strconv"
	"text/tabwriter"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/spf13/cobra"

	"example.com/coursetrack/internal/calendar"
	"example.com/coursetrack/internal/config"
	"example.com/coursetrack/internal/domain"
	"example.com/coursetrack/internal/persistence/memory"
	"example.com/coursetrack/internal/persistence/migrations"
	persistence "example.com/coursetrack/internal/persistence/postgres"
)

// progressStore is what the commands need from a backend.
type progressStore interface {
	domain.ProgressStore
	domain.ProgressAuditStore
}

// opener connects to the configured backend. The returned func releases it.
type opener func(ctx context.Context, cfg config.Config) (progressStore, func(), error)

func main() {
	if err := newRootCmd(openStore).Execute(); err != nil {
		os.Exit(1)
	}
}

func openStore(ctx context.Context, cfg config.Config) (progressStore, func(), error) {
	if cfg.StoreBackend == config.BackendMemory {
		return memory.NewStore(), func() {}, nil
	}
	pool, err := pgxpool.New(ctx, cfg.PostgresURL)
	if err != nil {
		return nil, nil, fmt.Errorf("connect to postgres: %w", err)
	}
	return persistence.NewProgressRepository(pool), pool.Close, nil
}

type cli struct {
	open    opener
	userID  string
	minutes int
	score   int
	notes   string
	verbose bool
}

func newRootCmd(open opener) *cobra.Command {
	c := &cli{open: open}
	rootCmd := &cobra.Command{
		Use:          "progressctl",
		Short:        "Inspect and repair learner progress",
		SilenceUsage: true,
	}
	rootCmd.PersistentFlags().BoolVarP(&c.verbose, "verbose", "v", false, "log workflow details to stderr")

	userCmds := []*cobra.Command{
		{
			Use:   "seed",
			Short: "Give a learner with no progress the starter days",
			Args:  cobra.NoArgs,
			RunE:  c.runSeed,
		},
		{
			Use:   "complete DAY",
			Short: "Mark a program day complete",
			Args:  cobra.ExactArgs(1),
			RunE:  c.runComplete,
		},
		{
			Use:   "reopen DAY",
			Short: "Mark a program day incomplete",
			Args:  cobra.ExactArgs(1),
			RunE:  c.runReopen,
		},
		{
			Use:   "stats",
			Short: "Print a learner's aggregate statistics",
			Args:  cobra.NoArgs,
			RunE:  c.runStats,
		},
		{
			Use:   "weeks",
			Short: "Print a learner's weekly breakdown",
			Args:  cobra.NoArgs,
			RunE:  c.runWeeks,
		},
	}
	for _, cmd := range userCmds {
		cmd.Flags().StringVarP(&c.userID, "user", "u", "", "learner id")
		_ = cmd.MarkFlagRequired("user")
		rootCmd.AddCommand(cmd)
	}
	complete := userCmds[1]
	complete.Flags().IntVar(&c.minutes, "minutes", -1, "time spent in minutes")
	complete.Flags().IntVar(&c.score, "score", -1, "quiz score")
	complete.Flags().StringVar(&c.notes, "notes", "", "free-form notes")

	rootCmd.AddCommand(&cobra.Command{
		Use:   "overview",
		Short: "Print the cohort overview",
		Args:  cobra.NoArgs,
		RunE:  c.runOverview,
	})
	rootCmd.AddCommand(&cobra.Command{
		Use:   "migrate",
		Short: "Apply pending database migrations",
		Args:  cobra.NoArgs,
		RunE:  runMigrate,
	})
	return rootCmd
}

func (c *cli) service(cmd *cobra.Command) (*domain.Service, progressStore, func(), error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, nil, nil, err
	}
	store, release, err := c.open(cmd.Context(), cfg)
	if err != nil {
		return nil, nil, nil, err
	}
	out := io.Discard
	if c.verbose {
		out = cmd.ErrOrStderr()
	}
	svc := domain.NewService(store, domain.WithLogger(log.New(out, "[progressctl] ", 0)))
	return svc, store, release, nil
}

func parseDay(arg string) (int, error) {
	day, err := strconv.Atoi(arg)
	if err != nil {
		return 0, fmt.Errorf("day must be an integer: %q", arg)
	}
	return day, calendar.ValidateDay(day)
}

func (c *cli) runSeed(cmd *cobra.Command, _ []string) error {
	svc, _, release, err := c.service(cmd)
	if err != nil {
		return err
	}
	defer release()

	seeded, err := svc.EnsureInitialProgress(cmd.Context(), c.userID)
	if err != nil {
		return err
	}
	if seeded {
		fmt.Fprintf(cmd.OutOrStdout(), "seeded days 1-%d for %s\n", domain.InitialCompletedDays, c.userID)
	} else {
		fmt.Fprintf(cmd.OutOrStdout(), "%s already has progress; nothing seeded\n", c.userID)
	}
	return nil
}

func (c *cli) runComplete(cmd *cobra.Command, args []string) error {
	day, err := parseDay(args[0])
	if err != nil {
		return err
	}
	svc, _, release, err := c.service(cmd)
	if err != nil {
		return err
	}
	defer release()

	var input domain.CompletionInput
	if cmd.Flags().Changed("minutes") {
		input.TimeSpentMinutes = &c.minutes
	}
	if cmd.Flags().Changed("score") {
		input.QuizScore = &c.score
	}
	if cmd.Flags().Changed("notes") {
		input.Notes = &c.notes
	}
	rec, err := svc.MarkDayComplete(cmd.Context(), c.userID, day, input)
	if err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "day %d completed at %s\n", rec.Day, rec.CompletedAt.Format(time.RFC3339))
	return nil
}

func (c *cli) runReopen(cmd *cobra.Command, args []string) error {
	day, err := parseDay(args[0])
	if err != nil {
		return err
	}
	svc, _, release, err := c.service(cmd)
	if err != nil {
		return err
	}
	defer release()

	rec, err := svc.MarkDayIncomplete(cmd.Context(), c.userID, day)
	if err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "day %d reopened\n", rec.Day)
	return nil
}

func (c *cli) runStats(cmd *cobra.Command, _ []string) error {
	svc, _, release, err := c.service(cmd)
	if err != nil {
		return err
	}
	defer release()

	stats, err := svc.GetUserStats(cmd.Context(), c.userID)
	if err != nil {
		return err
	}
	tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
	fmt.Fprintf(tw, "days completed\t%d/%d\n", stats.TotalDaysCompleted, calendar.TotalDays)
	fmt.Fprintf(tw, "completion\t%.1f%%\n", stats.CompletionPercent)
	fmt.Fprintf(tw, "hours learned\t%.1f\n", stats.TotalHoursLearned)
	fmt.Fprintf(tw, "planned hours completed\t%d\n", stats.PlannedHoursCompleted)
	fmt.Fprintf(tw, "current streak\t%d\n", stats.CurrentStreak)
	fmt.Fprintf(tw, "longest streak\t%d\n", stats.LongestStreak)
	fmt.Fprintf(tw, "average quiz score\t%.1f\n", stats.AverageQuizScore)
	return tw.Flush()
}

func (c *cli) runWeeks(cmd *cobra.Command, _ []string) error {
	svc, _, release, err := c.service(cmd)
	if err != nil {
		return err
	}
	defer release()

	weeks, err := svc.GetWeeklyProgress(cmd.Context(), c.userID)
	if err != nil {
		return err
	}
	tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "WEEK\tDAYS\tCOMPLETED\tHOURS")
	for _, wk := range weeks {
		fmt.Fprintf(tw, "%d\t%d-%d\t%d/%d\t%d/%d\n",
			wk.Week, wk.Days[0], wk.Days[len(wk.Days)-1],
			len(wk.CompletedDays), len(wk.Days),
			wk.CompletedHours, wk.PlannedHours)
	}
	return tw.Flush()
}

func (c *cli) runOverview(cmd *cobra.Command, _ []string) error {
	_, store, release, err := c.service(cmd)
	if err != nil {
		return err
	}
	defer release()

	overview, err := domain.NewAdminService(store).Overview(cmd.Context(), time.Now().UTC())
	if err != nil {
		return err
	}
	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "learners: %d  active: %d  finished: %d  average progress: %.1f%%\n",
		overview.TotalUsers, overview.ActiveUsers, overview.CompletedUsers, overview.AverageProgress)

	tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "USER\tDAYS\tPROGRESS\tHOURS\tSTATUS")
	for _, l := range overview.Learners {
		fmt.Fprintf(tw, "%s\t%d\t%.1f%%\t%.1f\t%s\n", l.UserID, l.DaysCompleted, l.ProgressPercent, l.TotalHours, l.Status)
	}
	return tw.Flush()
}

func runMigrate(cmd *cobra.Command, _ []string) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	if cfg.StoreBackend != config.BackendPostgres {
		return fmt.Errorf("migrate requires STORE_BACKEND=%s", config.BackendPostgres)
	}
	if err := migrations.Up(cfg.PostgresURL); err != nil {
		return err
	}
	version, dirty, err := migrations.Version(cfg.PostgresURL)
	if err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "schema at version %d (dirty=%t)\n", version, dirty)
	return nil
}
