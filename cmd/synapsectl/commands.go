package main

import (
	"fmt"
	"io"
	"os"
	"strconv"
	"time"

	"github.com/spf13/cobra"

	"github.com/dd0wney/cluso-synapse/pkg/activation"
	"github.com/dd0wney/cluso-synapse/pkg/auth"
	"github.com/dd0wney/cluso-synapse/pkg/client"
)

type rootOptions struct {
	server  string
	token   string
	timeout time.Duration
}

func (o *rootOptions) client() *client.Client {
	return client.New(o.server, client.WithToken(o.token), client.WithTimeout(o.timeout))
}

func newRootCmd() *cobra.Command {
	opts := &rootOptions{}

	root := &cobra.Command{
		Use:           "synapsectl",
		Short:         "Control the activation authority",
		Long:          Brand.Sprint("synapsectl") + " reads and changes the set of active nodes",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVarP(&opts.server, "server", "s", envOr("SYNAPSE_AUTHORITY_URL", client.DefaultBaseURL), "authority base URL")
	root.PersistentFlags().StringVarP(&opts.token, "token", "t", os.Getenv("SYNAPSE_AUTHORITY_TOKEN"), "bearer token for mutating calls")
	root.PersistentFlags().DurationVar(&opts.timeout, "timeout", 10*time.Second, "request timeout")

	root.AddCommand(
		statusCmd(opts),
		activateCmd(opts),
		resetCmd(opts),
		auditCmd(opts),
		tokenCmd(),
		watchCmd(opts),
	)
	return root
}

func statusCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show the active nodes",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			snap, err := opts.client().Status(cmd.Context())
			if err != nil {
				return err
			}
			printSnapshot(cmd.OutOrStdout(), snap)
			return nil
		},
	}
}

func activateCmd(opts *rootOptions) *cobra.Command {
	var appendNodes bool

	cmd := &cobra.Command{
		Use:   "activate ID[:NAME]...",
		Short: "Activate nodes, replacing the set unless --append is given",
		Example: "  synapsectl activate 12 40:Hippocampus\n" +
			"  synapsectl activate --append 7",
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			req := client.ActivateRequest{Append: appendNodes}
			ids := make([]string, 0, len(args))
			for _, arg := range args {
				n := client.ParseNodeArg(arg)
				req.Nodes = append(req.Nodes, n)
				ids = append(ids, n.ID)
			}

			snap, err := opts.client().Activate(cmd.Context(), req)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			printSnapshot(out, snap)
			if missing := client.Missing(ids, snap); len(missing) > 0 {
				Warn.Fprintf(out, "  not active after the call: %v\n", missing)
			}
			return nil
		},
	}
	cmd.Flags().BoolVarP(&appendNodes, "append", "a", false, "merge into the current set")
	return cmd
}

func resetCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "reset",
		Short: "Deactivate every node",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			snap, err := opts.client().Reset(cmd.Context())
			if err != nil {
				return err
			}
			printSnapshot(cmd.OutOrStdout(), snap)
			return nil
		},
	}
}

func auditCmd(opts *rootOptions) *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "audit",
		Short: "List recent writes to the activation set (admin)",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			page, err := opts.client().Audit(cmd.Context(), limit)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if len(page.Events) == 0 {
				Subtle.Fprintln(out, "no writes recorded")
				return nil
			}
			rows := make([][]string, 0, len(page.Events))
			for _, e := range page.Events {
				who := e.Subject
				if who == "" {
					who = "-"
				}
				rows = append(rows, []string{
					e.Timestamp.Local().Format(time.DateTime),
					string(e.Action),
					who,
					strconv.Itoa(len(e.NodeIDs)),
					strconv.Itoa(e.Active),
					strconv.FormatUint(e.Version, 10),
				})
			}
			printTable(out, []string{"TIME", "ACTION", "SUBJECT", "NODES", "ACTIVE", "VERSION"}, rows)
			Subtle.Fprintf(out, "  %d of %d writes\n", len(page.Events), page.Total)
			return nil
		},
	}
	cmd.Flags().IntVarP(&limit, "limit", "n", 20, "maximum entries")
	return cmd
}

func tokenCmd() *cobra.Command {
	var (
		subject string
		role    string
		secret  string
		ttl     time.Duration
	)

	cmd := &cobra.Command{
		Use:   "token",
		Short: "Sign a bearer token for the authority",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			tm, err := auth.NewTokenManager(secret, ttl)
			if err != nil {
				return err
			}
			token, err := tm.GenerateToken(subject, role)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), token)
			return nil
		},
	}
	cmd.Flags().StringVar(&subject, "subject", "synapsectl", "token subject")
	cmd.Flags().StringVar(&role, "role", auth.RoleController, "admin, controller or viewer")
	cmd.Flags().StringVar(&secret, "secret", os.Getenv("SYNAPSE_JWT_SECRET"), "signing secret, at least 32 characters")
	cmd.Flags().DurationVar(&ttl, "ttl", 24*time.Hour, "token lifetime")
	return cmd
}

func printSnapshot(w io.Writer, snap activation.Snapshot) {
	if len(snap.Nodes) == 0 {
		fmt.Fprintf(w, "%s no active nodes %s\n", Subtle.Sprint("○"), Subtle.Sprintf("(version %d)", snap.Version))
		return
	}
	fmt.Fprintf(w, "%s %d active %s\n", Good.Sprint("●"), len(snap.Nodes), Subtle.Sprintf("(version %d)", snap.Version))
	rows := make([][]string, 0, len(snap.Nodes))
	for _, n := range snap.Nodes {
		rows = append(rows, []string{n.ID, n.Name})
	}
	printTable(w, []string{"ID", "NAME"}, rows)
}

func envOr(name, fallback string) string {
	if v := os.Getenv(name); v != "" {
		return v
	}
	return fallback
}
