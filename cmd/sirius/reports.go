package main

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/zhouzirui/sirius-report/backend/internal/model/report"
)

const timeLayout = "02.01.2006 15:04"

func newReportsCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "reports",
		Short: "List, show, delete and query stored reports",
	}
	cmd.AddCommand(
		newReportsListCmd(a),
		newReportsShowCmd(a),
		newReportsDeleteCmd(a),
		newReportsAskCmd(a),
	)
	return cmd
}

func newReportsListCmd(a *app) *cobra.Command {
	var grouped bool
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List reports, newest first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			reports, err := a.store.List(cmd.Context())
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if len(reports) == 0 {
				fmt.Fprintln(out, "Keine Berichte vorhanden.")
				return nil
			}
			if !grouped {
				for _, r := range reports {
					printSummary(out, r)
				}
				return nil
			}
			for _, g := range report.GroupByDay(reports, time.Now()) {
				fmt.Fprintf(out, "%s\n", g.Key)
				for _, r := range g.Reports {
					fmt.Fprint(out, "  ")
					printSummary(out, r)
				}
			}
			return nil
		},
	}
	cmd.Flags().BoolVarP(&grouped, "grouped", "g", false, "Group reports by day (Heute, Gestern, Vorgestern, dd.MM.yyyy)")
	return cmd
}

func newReportsShowCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "show <id>",
		Short: "Print a full report",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			r, err := a.store.Get(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			printReport(cmd.OutOrStdout(), r)
			return nil
		},
	}
}

func newReportsDeleteCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "delete <id>",
		Short: "Delete a report permanently",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := a.store.Delete(cmd.Context(), args[0]); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Bericht %s gelöscht.\n", args[0])
			return nil
		},
	}
}

func newReportsAskCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "ask <id> <question...>",
		Short: "Ask a question about a stored report",
		Args:  cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := a.requirePipeline(); err != nil {
				return err
			}
			answer, err := a.pipeline.AskAboutReport(cmd.Context(), args[0], strings.Join(args[1:], " "))
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), answer)
			return nil
		},
	}
}

func printSummary(w io.Writer, r report.Report) {
	tags := ""
	if len(r.Tags) > 0 {
		tags = " [" + strings.Join(r.Tags, ", ") + "]"
	}
	fmt.Fprintf(w, "%s  %s  %s%s\n", r.ID, r.CreatedAt.Local().Format(timeLayout), r.Title, tags)
}

func printReport(w io.Writer, r report.Report) {
	date := report.UnknownValue
	if r.Date != nil {
		date = r.Date.Local().Format(timeLayout)
	}
	location := r.Location
	if location == "" {
		location = report.UnknownValue
	}

	fmt.Fprintf(w, "TITEL: %s\n", r.Title)
	fmt.Fprintf(w, "DATUM: %s\n", date)
	fmt.Fprintf(w, "ORT: %s\n", location)
	fmt.Fprintf(w, "BEAMTER: %s\n", r.Officer)
	if len(r.Tags) > 0 {
		fmt.Fprintf(w, "STICHWORTE: %s\n", strings.Join(r.Tags, ", "))
	}
	fmt.Fprintf(w, "ID: %s\n\n%s\n", r.ID, r.Content)
}
