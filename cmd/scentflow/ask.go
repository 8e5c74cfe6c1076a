package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/charmbracelet/glamour"
	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/banghyang/scentflow/pkg/flowgraph/observability"
	"github.com/banghyang/scentflow/pkg/perfume"
)

var askCmd = &cobra.Command{
	Use:   "ask <question>",
	Short: "Answer one question and print the reply",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		settings, err := loadSettings(cmd)
		if err != nil {
			return err
		}
		logger, err := newLogger(settings.Log)
		if err != nil {
			return err
		}

		ctx := cmd.Context()
		a, err := newApp(ctx, settings, logger, observability.NewMetricsRecorder())
		if err != nil {
			return err
		}
		defer a.Close()

		user, _ := cmd.Flags().GetString("user")
		result := a.engine.Run(ctx, perfume.Request{
			Input:  strings.Join(args, " "),
			UserID: user,
		})

		out := cmd.OutOrStdout()
		if raw, _ := cmd.Flags().GetBool("json"); raw {
			enc := json.NewEncoder(out)
			enc.SetIndent("", "  ")
			return enc.Encode(result)
		}

		md := formatMarkdown(result)
		if !isTerminal(out) {
			fmt.Fprint(out, md)
			return nil
		}
		r, err := glamour.NewTermRenderer(glamour.WithAutoStyle())
		if err != nil {
			fmt.Fprintln(out, md)
			return nil
		}
		rendered, err := r.Render(md)
		if err != nil {
			fmt.Fprintln(out, md)
			return nil
		}
		fmt.Fprint(out, rendered)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(askCmd)
	askCmd.Flags().String("user", "", "User id; enables conversation history for chat")
	askCmd.Flags().Bool("json", false, "Print the raw result as JSON")
}

// isTerminal reports whether w is an interactive terminal. Piped output
// gets plain markdown.
func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	return ok && term.IsTerminal(int(f.Fd()))
}

// formatMarkdown renders a result for the terminal.
func formatMarkdown(result perfume.Result) string {
	var b strings.Builder

	switch resp := result.Response.(type) {
	case string:
		b.WriteString(resp)
		b.WriteString("\n")
	case *perfume.Reply:
		if resp.Content != "" {
			fmt.Fprintf(&b, "%s\n\n", resp.Content)
		}
		for i, rec := range resp.Recommendations {
			fmt.Fprintf(&b, "%d. **%s** by %s\n", i+1, rec.Name, rec.Brand)
			if rec.Reason != "" {
				fmt.Fprintf(&b, "   - %s\n", rec.Reason)
			}
			if rec.Situation != "" {
				fmt.Fprintf(&b, "   - *%s*\n", rec.Situation)
			}
		}
		if resp.ImagePath != nil {
			fmt.Fprintf(&b, "\nImage: `%s`\n", *resp.ImagePath)
		}
	case *perfume.Failure:
		fmt.Fprintf(&b, "> %s\n", resp.Message)
	default:
		fmt.Fprintf(&b, "status: %s\n", result.Status)
	}
	return b.String()
}
