package main

import (
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/mattn/go-runewidth"
	"github.com/roeyazroel/linear-ide/internal/linearapi"
	"github.com/roeyazroel/linear-ide/internal/tree"
)

const titleWidth = 60

// printGroups writes the issue tree as indented text.
func printGroups(w io.Writer, p *tree.Provider, groups []tree.Group) {
	if len(groups) == 0 {
		fmt.Fprintln(w, "No assigned issues")
		return
	}
	for i, g := range groups {
		if i > 0 {
			fmt.Fprintln(w)
		}
		fmt.Fprintf(w, "%s  %s\n", g.Label(), g.CountLabel())
		for _, issue := range p.ChildrenOf(g) {
			state := ""
			if issue.State != nil {
				state = "  [" + issue.State.Name + "]"
			}
			fmt.Fprintf(w, "  %s %s  %s%s\n",
				tree.StatusIcon(issue.State).Glyph(),
				issue.Identifier,
				runewidth.Truncate(issue.Title, titleWidth, "…"),
				state)
		}
	}
}

func printTeams(w io.Writer, teams []linearapi.Team) {
	if len(teams) == 0 {
		fmt.Fprintln(w, "No teams")
		return
	}
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "KEY\tNAME\tID")
	for _, t := range teams {
		fmt.Fprintf(tw, "%s\t%s\t%s\n", t.Key, t.Name, t.ID)
	}
	_ = tw.Flush()
}

// consoleNotifier prints notifications of headless commands.
type consoleNotifier struct {
	w io.Writer
}

func (n consoleNotifier) Info(msg string)  { fmt.Fprintln(n.w, msg) }
func (n consoleNotifier) Warn(msg string)  { fmt.Fprintln(n.w, "warning: "+msg) }
func (n consoleNotifier) Error(msg string) { fmt.Fprintln(n.w, "error: "+msg) }
