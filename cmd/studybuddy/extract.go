package main

import (
	"fmt"
	"os"
	"unicode/utf8"

	"github.com/spf13/cobra"

	"github.com/bowerhall/studybuddy/internal/document"
)

func newExtractCmd() *cobra.Command {
	var stats bool

	cmd := &cobra.Command{
		Use:   "extract <file.pdf>",
		Short: "Print the text StudyBuddy extracts from a PDF",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			data, err := os.ReadFile(args[0])
			if err != nil {
				return err
			}

			text, err := document.ExtractPDFBytes(cmd.Context(), data)
			if err != nil {
				return fmt.Errorf("extract %s: %w", args[0], err)
			}

			out := cmd.OutOrStdout()
			if !stats {
				fmt.Fprintln(out, text)
				return nil
			}

			doc := document.New(text, args[0])
			fmt.Fprintf(out, "📊 Extracted text: %d chars · Current editable text: %d chars\n", doc.RawChars(), doc.EditedChars())
			if doc.LowText() {
				fmt.Fprintln(out, "⚠️ Very little text detected. If this is a scanned PDF, use OCR before uploading.")
			}
			fmt.Fprintf(out, "bytes: %d, runes: %d\n", len(text), utf8.RuneCountInString(text))
			return nil
		},
	}

	cmd.Flags().BoolVar(&stats, "stats", false, "print character counts instead of the text")
	return cmd
}
