package main

import (
	"fmt"
	"os"
	"path/filepath"
	"unicode/utf8"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/andrewpaige1/doomdeck-api/pdftext"
)

func newChunkCommand(ctx *commandContext) *cobra.Command {
	var size int

	cmd := &cobra.Command{
		Use:   "chunk <file.pdf>",
		Short: "Print the prompt chunks extracted from a PDF",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			env, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			if size <= 0 {
				size = env.PDFChunkSize
			}

			file, err := os.Open(args[0])
			if err != nil {
				return err
			}
			defer file.Close()

			chunks, err := pdftext.NewExtractor("", size).ExtractChunks(cmd.Context(), filepath.Base(args[0]), file)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			for i, chunk := range chunks {
				fmt.Fprintf(out, "--- chunk %d/%d (%s runes, %s) ---\n", i+1, len(chunks),
					humanize.Comma(int64(utf8.RuneCountInString(chunk))), humanize.Bytes(uint64(len(chunk))))
				fmt.Fprintln(out, chunk)
			}
			return nil
		},
	}

	cmd.Flags().IntVar(&size, "size", 0, "Maximum runes per chunk (defaults to PDF_CHUNK_SIZE)")

	return cmd
}
