package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/cobra"
)

func newTranscribeCmd(a *app) *cobra.Command {
	var format, language, session string
	var timeout time.Duration
	cmd := &cobra.Command{
		Use:   "transcribe <audio-file>",
		Short: "Run speech recognition on an audio file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if a.speech == nil {
				return fmt.Errorf("speech recognition unavailable: configure SPEECH_APP_ID and SPEECH_ACCESS_TOKEN")
			}

			audio, err := os.ReadFile(args[0])
			if err != nil {
				return fmt.Errorf("read audio file: %w", err)
			}
			if format == "" {
				format = strings.TrimPrefix(strings.ToLower(filepath.Ext(args[0])), ".")
				if format == "" {
					format = "wav"
				}
			}
			if session == "" {
				session = fmt.Sprintf("cli-%d", time.Now().UnixNano())
			}

			ctx, cancel := context.WithTimeout(cmd.Context(), timeout)
			defer cancel()

			res, err := a.speech.TranscribeBuffer(ctx, session, audio, format, language)
			if err != nil {
				return fmt.Errorf("ASR 调用失败: %w", err)
			}
			fmt.Fprintln(cmd.OutOrStdout(), res.Text)
			return nil
		},
	}
	cmd.Flags().StringVar(&format, "format", "", "Audio format (defaults to the file extension)")
	cmd.Flags().StringVar(&language, "lang", "", "Language code, defaults to SPEECH_ASR_LANGUAGE")
	cmd.Flags().StringVar(&session, "session", "", "Session id sent to the recognizer")
	cmd.Flags().DurationVar(&timeout, "timeout", 45*time.Second, "Request timeout")
	return cmd
}
