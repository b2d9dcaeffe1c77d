package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"slices"
	"text/tabwriter"

	uniqm "github.com/UniQw/uniqm-go"
	"github.com/bytedance/sonic"
	"github.com/spf13/cobra"
)

func newSubmitCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "submit",
		Short: "Append a job to a queue and print its id",
		RunE: func(cmd *cobra.Command, args []string) error {
			queueName, _ := cmd.Flags().GetString("queue")
			action, _ := cmd.Flags().GetString("action")
			payload, _ := cmd.Flags().GetString("payload")
			if !sonic.Valid([]byte(payload)) {
				return fmt.Errorf("--payload is not valid JSON: %q", payload)
			}

			a, err := newApp(cmd)
			if err != nil {
				return err
			}
			defer a.Close()

			id, err := a.manager(nil, nil).Submit(cmd.Context(), queueName, action, json.RawMessage(payload))
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), id)
			return nil
		},
	}
	cmd.Flags().String("queue", "", "Queue name (required)")
	cmd.Flags().String("action", "", "Action name (required)")
	cmd.Flags().String("payload", "null", "JSON payload")
	_ = cmd.MarkFlagRequired("queue")
	_ = cmd.MarkFlagRequired("action")
	return cmd
}

func newStatusCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "status <jobId>",
		Short: "Print the status of a job",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp(cmd)
			if err != nil {
				return err
			}
			defer a.Close()

			st, err := a.manager(nil, nil).GetStatus(cmd.Context(), args[0])
			if errors.Is(err, uniqm.ErrJobNotFound) {
				fmt.Fprintln(cmd.OutOrStdout(), "not found")
				return nil
			}
			if err != nil {
				return err
			}
			printStatus(cmd, st)
			return nil
		},
	}
}

func printStatus(cmd *cobra.Command, st *uniqm.JobStatus) {
	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "id:     %s\nqueue:  %s\nstate:  %s\n", st.ID, st.Queue, st.State)
	switch {
	case st.Error != "":
		fmt.Fprintf(out, "error:  %s\n", st.Error)
	case len(st.Result) > 0:
		fmt.Fprintf(out, "result: %s\n", st.Result)
	}
}

func newQueuesCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "queues",
		Short: "List known queues with their claim state and pending count",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp(cmd)
			if err != nil {
				return err
			}
			defer a.Close()

			ctx := cmd.Context()
			m := a.manager(nil, nil)
			states, err := m.QueueStatuses(ctx)
			if err != nil {
				return err
			}
			names := make([]string, 0, len(states))
			for name := range states {
				names = append(names, name)
			}
			slices.Sort(names)

			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "QUEUE\tSTATE\tPENDING")
			for _, name := range names {
				n, err := m.Pending(ctx, name)
				if err != nil {
					return err
				}
				fmt.Fprintf(tw, "%s\t%s\t%d\n", name, states[name], n)
			}
			return tw.Flush()
		},
	}
}
