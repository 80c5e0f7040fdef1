package cli

import (
	"fmt"
	"io"
	"strings"

	"github.com/law-makers/scrapekit/internal/ui"
	"github.com/spf13/cobra"
)

// helpFunc prints colorized help.
func helpFunc(cmd *cobra.Command, _ []string) {
	w := cmd.OutOrStdout()

	fmt.Fprintf(w, "\n%s%s%s\n", ui.ColorBold+ui.ColorCyan, strings.ToUpper(cmd.Name()), ui.ColorReset)
	if cmd.Short != "" {
		fmt.Fprintln(w, cmd.Short)
	}
	if cmd.Long != "" && cmd.Long != cmd.Short {
		fmt.Fprintf(w, "\n%s\n", wrapText(cmd.Long, 80))
	}

	writeUsage(w, cmd)

	if cmd.HasExample() {
		section(w, "Examples")
		for _, line := range strings.Split(cmd.Example, "\n") {
			line = strings.TrimSpace(line)
			switch {
			case line == "":
			case strings.HasPrefix(line, "#"):
				fmt.Fprintf(w, "  %s\n", ui.Dim(line))
			default:
				fmt.Fprintf(w, "  %s$ %s%s\n", ui.ColorGreen, strings.TrimPrefix(line, "$ "), ui.ColorReset)
			}
		}
	}

	writeCommands(w, cmd)

	if cmd.HasAvailableLocalFlags() {
		section(w, "Flags")
		writeFlags(w, cmd.LocalFlags().FlagUsages())
	}
	if cmd.HasAvailableInheritedFlags() {
		section(w, "Global Flags")
		writeFlags(w, cmd.InheritedFlags().FlagUsages())
	}
	if cmd.HasAvailableSubCommands() {
		fmt.Fprintf(w, "\n%s\n", ui.Dim(fmt.Sprintf(`Use "%s <command> --help" for more information about a command.`, cmd.CommandPath())))
	}
	fmt.Fprintln(w)
}

// usageFunc prints the short usage shown after argument errors.
func usageFunc(cmd *cobra.Command) error {
	w := cmd.ErrOrStderr()
	writeUsage(w, cmd)
	writeCommands(w, cmd)
	if cmd.HasAvailableLocalFlags() {
		section(w, "Flags")
		writeFlags(w, cmd.LocalFlags().FlagUsages())
	}
	fmt.Fprintf(w, "\n%s\n", ui.Dim(fmt.Sprintf(`Use "%s --help" for more information.`, cmd.CommandPath())))
	return nil
}

func section(w io.Writer, title string) {
	fmt.Fprintf(w, "\n%s%s%s\n", ui.ColorBold+ui.ColorWhite, title, ui.ColorReset)
}

func writeUsage(w io.Writer, cmd *cobra.Command) {
	section(w, "Usage")
	if cmd.Runnable() {
		fmt.Fprintf(w, "  %s%s%s\n", ui.ColorCyan, cmd.UseLine(), ui.ColorReset)
	}
	if cmd.HasAvailableSubCommands() {
		fmt.Fprintf(w, "  %s%s%s %s<command>%s %s\n",
			ui.ColorCyan, cmd.CommandPath(), ui.ColorReset,
			ui.ColorYellow, ui.ColorReset, ui.Dim("[flags]"))
	}
}

func writeCommands(w io.Writer, cmd *cobra.Command) {
	if !cmd.HasAvailableSubCommands() {
		return
	}
	section(w, "Commands")

	var cmds []*cobra.Command
	width := 0
	for _, c := range cmd.Commands() {
		if c.IsAvailableCommand() && c.Name() != "help" {
			cmds = append(cmds, c)
			width = max(width, len(c.Name()))
		}
	}
	for _, c := range cmds {
		fmt.Fprintf(w, "  %s%-*s%s  %s\n", ui.ColorCyan, width, c.Name(), ui.ColorReset, ui.Dim(c.Short))
	}
}

// writeFlags colors pflag's usage block, keeping its column layout.
func writeFlags(w io.Writer, usages string) {
	lines := strings.Split(usages, "\n")

	width := 28
	for _, line := range lines {
		trimmed := strings.TrimLeft(line, " ")
		if strings.HasPrefix(trimmed, "-") {
			flag, _, _ := strings.Cut(trimmed, "  ")
			width = max(width, len(strings.TrimSpace(flag)))
		}
	}

	for _, line := range lines {
		trimmed := strings.TrimLeft(line, " ")
		if trimmed == "" {
			continue
		}
		if !strings.HasPrefix(trimmed, "-") {
			fmt.Fprintf(w, "%s%s\n", strings.Repeat(" ", width+4), ui.Dim(trimmed))
			continue
		}
		flag, desc, ok := strings.Cut(trimmed, "  ")
		if !ok {
			fmt.Fprintf(w, "  %s%s%s\n", ui.ColorGreen, trimmed, ui.ColorReset)
			continue
		}
		fmt.Fprintf(w, "  %s%-*s%s  %s\n", ui.ColorGreen, width, strings.TrimSpace(flag), ui.ColorReset, ui.Dim(strings.TrimSpace(desc)))
	}
}

// wrapText wraps text at width, keeping paragraphs and list items.
func wrapText(text string, width int) string {
	var paragraphs []string
	for _, para := range strings.Split(text, "\n\n") {
		var lines []string
		for _, line := range strings.Split(para, "\n") {
			line = strings.TrimSpace(line)
			if line == "" {
				continue
			}
			if strings.HasPrefix(line, "-") || strings.HasPrefix(line, "*") {
				lines = append(lines, line)
				continue
			}
			var cur strings.Builder
			for _, word := range strings.Fields(line) {
				switch {
				case cur.Len() == 0:
				case cur.Len()+1+len(word) <= width:
					cur.WriteByte(' ')
				default:
					lines = append(lines, cur.String())
					cur.Reset()
				}
				cur.WriteString(word)
			}
			if cur.Len() > 0 {
				lines = append(lines, cur.String())
			}
		}
		if len(lines) > 0 {
			paragraphs = append(paragraphs, strings.Join(lines, "\n"))
		}
	}
	return strings.Join(paragraphs, "\n\n")
}
