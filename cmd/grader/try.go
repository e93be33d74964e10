package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/Mirai3103/remote-grader/internal/core/policy"
	"github.com/Mirai3103/remote-grader/internal/models"
	"github.com/Mirai3103/remote-grader/internal/task"
)

var tryJSON bool

var tryCmd = &cobra.Command{
	Use:   "try [task.yaml] [submission.star]",
	Short: "Grade a local submission against a task file in a worker process",
	Args:  cobra.ExactArgs(2),
	RunE:  runTry,
}

var checkCmd = &cobra.Command{
	Use:   "check [submission.star]",
	Short: "Run only the static policy analysis on a submission",
	Args:  cobra.ExactArgs(1),
	RunE:  runCheck,
}

var schemaCmd = &cobra.Command{
	Use:   "schema",
	Short: "Print the JSON Schema of the worker request",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		data, err := models.GenerateRequestSchema()
		if err != nil {
			return err
		}
		_, err = fmt.Fprintln(cmd.OutOrStdout(), string(data))
		return err
	},
}

func init() {
	tryCmd.Flags().BoolVar(&tryJSON, "json", false, "Print the result as JSON")
}

func runTry(cmd *cobra.Command, args []string) error {
	t, err := task.LoadFile(args[0])
	if err != nil {
		return err
	}
	code, err := os.ReadFile(args[1])
	if err != nil {
		return fmt.Errorf("read submission: %w", err)
	}

	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	log, err := newLogger(cfg)
	if err != nil {
		return err
	}
	defer func() { _ = log.Sync() }()

	client, err := newHostClient(cfg, log)
	if err != nil {
		return err
	}
	result := client.Grade(cmd.Context(), t.Submission(string(code)))

	out := cmd.OutOrStdout()
	if tryJSON {
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		if err := enc.Encode(result); err != nil {
			return err
		}
	} else {
		fmt.Fprint(out, result.Stdout)
		if result.Error != "" {
			fmt.Fprintf(out, "error: %s\n", result.Error)
		}
		fmt.Fprintf(out, "%s: %d/%d passed (%d ms, %d KB)\n",
			result.Status, result.Passed, result.Total, result.TimeUsedInMs, result.MemoryUsedInKb)
	}
	if !result.Success {
		return errors.New("submission did not pass every test")
	}
	return nil
}

func runCheck(cmd *cobra.Command, args []string) error {
	src, err := os.ReadFile(args[0])
	if err != nil {
		return fmt.Errorf("read submission: %w", err)
	}
	verdict := policy.Analyze(args[0], string(src))
	if verdict.Rejected() {
		return errors.New(verdict.Reason)
	}
	_, err = fmt.Fprintf(cmd.OutOrStdout(), "%s: approved\n", args[0])
	return err
}
