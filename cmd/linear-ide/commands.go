package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/roeyazroel/linear-ide/internal/issues"
	"github.com/roeyazroel/linear-ide/internal/linearapi"
	"github.com/roeyazroel/linear-ide/internal/logger"
	"github.com/roeyazroel/linear-ide/internal/tree"
	"github.com/roeyazroel/linear-ide/internal/workbench"
	"github.com/spf13/cobra"
)

var errNotSignedIn = errors.New(`not signed in to Linear: run "linear-ide login" first`)

// headless builds a workbench without a terminal interface and, when
// restore is set, signs in with the stored key. Notifications go to stderr.
func headless(ctx context.Context, cmd *cobra.Command, opts *rootOptions, restore bool) (*workbench.Container, error) {
	cfg, err := opts.load()
	if err != nil {
		return nil, err
	}
	wb := workbench.New(workbench.Options{
		Config:   cfg,
		Notifier: consoleNotifier{w: cmd.ErrOrStderr()},
	})
	if !restore {
		return wb, nil
	}
	if err := wb.Initialize(ctx); err != nil {
		wb.Dispose()
		return nil, err
	}
	return wb, nil
}

func requireAuth(wb *workbench.Container) error {
	if !wb.Auth.IsAuthenticated() {
		return errNotSignedIn
	}
	return nil
}

func newLoginCmd(opts *rootOptions) *cobra.Command {
	var token string
	cmd := &cobra.Command{
		Use:   "login",
		Short: "Store a Linear API key",
		Long: `Validate a Linear personal API key (or OAuth access token) and store it.
The key is read from --token, or from the first line of stdin.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			if token == "" {
				line, err := bufio.NewReader(cmd.InOrStdin()).ReadString('\n')
				if err != nil && !errors.Is(err, io.EOF) {
					return fmt.Errorf("read API key: %w", err)
				}
				token = line
			}

			wb, err := headless(ctx, cmd, opts, false)
			if err != nil {
				return err
			}
			defer wb.Dispose()
			defer logger.Close()

			user, err := wb.Auth.Login(ctx, token)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Signed in as %s\n", user.Name)
			return nil
		},
	}
	cmd.Flags().StringVar(&token, "token", "", "API key to store")
	return cmd
}

func newLogoutCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "Forget the stored API key",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			wb, err := headless(ctx, cmd, opts, false)
			if err != nil {
				return err
			}
			defer wb.Dispose()
			defer logger.Close()

			if err := wb.Auth.Logout(ctx); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "Signed out of Linear")
			return nil
		},
	}
}

func newIssuesCmd(opts *rootOptions) *cobra.Command {
	var filter issues.Filter
	cmd := &cobra.Command{
		Use:   "issues",
		Short: "Print your assigned issues grouped by cycle",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			wb, err := headless(ctx, cmd, opts, true)
			if err != nil {
				return err
			}
			defer wb.Dispose()
			defer logger.Close()
			if err := requireAuth(wb); err != nil {
				return err
			}

			f := wb.Filter()
			if filter.TeamID != "" {
				f.TeamID = filter.TeamID
			}
			f.CycleID = filter.CycleID
			f.ProjectID = filter.ProjectID
			wb.SetFilter(f)

			list, err := wb.Issues.ListAssigned(ctx, wb.Filter())
			if err != nil {
				return err
			}
			printGroups(cmd.OutOrStdout(), wb.Tree, tree.Build(list))
			return nil
		},
	}
	cmd.Flags().StringVar(&filter.CycleID, "cycle", "", "only issues of this cycle id")
	cmd.Flags().StringVar(&filter.ProjectID, "project", "", "only issues of this project id")
	cmd.Flags().StringVar(&filter.TeamID, "team-id", "", "only issues of this team id (overrides --team)")
	return cmd
}

// teamLister is implemented by *linearapi.Client.
type teamLister interface {
	ListTeams(ctx context.Context) ([]linearapi.Team, error)
}

func newTeamsCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "teams",
		Short: "List the teams you can filter by",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			wb, err := headless(ctx, cmd, opts, true)
			if err != nil {
				return err
			}
			defer wb.Dispose()
			defer logger.Close()
			if err := requireAuth(wb); err != nil {
				return err
			}

			adapter, err := wb.Auth.Adapter()
			if err != nil {
				return err
			}
			lister, ok := adapter.(teamLister)
			if !ok {
				return errors.New("the configured client cannot list teams")
			}
			teams, err := lister.ListTeams(ctx)
			if err != nil {
				return err
			}
			printTeams(cmd.OutOrStdout(), teams)
			return nil
		},
	}
}

func newBranchCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "branch <issue>",
		Short: "Create or check out the suggested branch of an issue",
		Long: `Start work on an issue: check out its suggested branch when it exists
locally, track it when it only exists on a remote, or create it otherwise.
<issue> is an issue id or identifier such as ENG-123.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			wb, err := headless(ctx, cmd, opts, true)
			if err != nil {
				return err
			}
			defer wb.Dispose()
			defer logger.Close()
			if err := requireAuth(wb); err != nil {
				return err
			}

			id := strings.TrimSpace(args[0])
			if out := wb.StartWorkOn(ctx, issues.IssueRecord{ID: id, Identifier: id}); out != workbench.Completed {
				return fmt.Errorf("start work on %s %s", id, out)
			}
			return nil
		},
	}
}
