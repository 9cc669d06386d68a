package main

import (
	"bufio"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/zhouzirui/sirius-report/backend/internal/model/chat"
)

func newAuthorCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "author",
		Short: "Write a report interactively from stdin",
		Long: `author reads the incident description from the first non-empty line of stdin,
prints the clarification questions, reads one answer line and prints the saved report.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := a.requirePipeline(); err != nil {
				return err
			}
			ctx := cmd.Context()
			out := cmd.OutOrStdout()
			in := bufio.NewScanner(cmd.InOrStdin())

			fmt.Fprintln(out, "Beschreibung des Vorfalls:")
			description, err := readLine(in)
			if err != nil {
				return err
			}

			s := a.pipeline.NewSession()
			snap, err := s.SubmitDescription(ctx, description)
			if err != nil {
				return err
			}

			if snap.State == chat.StateWaitingForAnswer {
				fmt.Fprintln(out, "Rückfragen:")
				for i, q := range snap.PendingQuestions {
					fmt.Fprintf(out, "%d. %s\n", i+1, q)
				}
				fmt.Fprintln(out, "Antwort:")
				answer, err := readLine(in)
				if err != nil {
					return err
				}
				if snap, err = s.SubmitAnswer(ctx, answer); err != nil {
					return err
				}
			}

			saved, err := a.store.Get(ctx, snap.LastReportID)
			if err != nil {
				return fmt.Errorf("load saved report: %w", err)
			}
			fmt.Fprintln(out)
			printReport(out, saved)
			return nil
		},
	}
}

// readLine 返回下一行非空输入。
func readLine(in *bufio.Scanner) (string, error) {
	for in.Scan() {
		if line := strings.TrimSpace(in.Text()); line != "" {
			return line, nil
		}
	}
	if err := in.Err(); err != nil {
		return "", err
	}
	return "", io.ErrUnexpectedEOF
}
