package main

import (
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"
	"gitlab.com/tozd/go/errors"

	"github.com/yleoer/zhconv/pkg/processor"
)

func newTextCommand(opts *rootOpts) *cobra.Command {
	var direction string
	cmd := &cobra.Command{
		Use:   "text [text...]",
		Short: "Convert text given as arguments, or read from stdin",
		RunE: func(cmd *cobra.Command, args []string) error {
			text := strings.Join(args, " ")
			if len(args) == 0 {
				data, err := io.ReadAll(cmd.InOrStdin())
				if err != nil {
					return errors.Errorf("reading stdin: %w", err)
				}
				text = string(data)
			}
			adapter, err := opts.newAdapter(opts.cfg, opts.logger)
			if err != nil {
				return errors.Errorf("initializing converter: %w", err)
			}

			result := processor.NewTextProcessor(adapter, opts.logger).ConvertText(text, opts.direction(direction))
			if !result.Success {
				return errors.Errorf("converting text: %s", result.ErrorReason)
			}
			fmt.Fprint(cmd.OutOrStdout(), result.ConvertedText)
			if !strings.HasSuffix(result.ConvertedText, "\n") {
				fmt.Fprintln(cmd.OutOrStdout())
			}
			return nil
		},
	}
	cmd.Flags().StringVarP(&direction, "direction", "D", "", "conversion direction: s2t or t2s (default from config)")
	return cmd
}
