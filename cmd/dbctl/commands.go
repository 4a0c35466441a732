package main

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"
)

var errNotFound = errors.New("database not found")

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List every non-template database",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		s, err := openSession(cmd.Context())
		if err != nil {
			return err
		}
		defer s.close()

		names, err := s.service.ListDatabases(cmd.Context())
		if err != nil {
			return err
		}
		for _, name := range names {
			fmt.Fprintln(cmd.OutOrStdout(), name)
		}
		return nil
	},
}

var createCmd = &cobra.Command{
	Use:   "create <name>",
	Short: "Create an empty database",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		s, err := openSession(cmd.Context())
		if err != nil {
			return err
		}
		defer s.close()

		name, err := s.service.CreateDatabase(cmd.Context(), args[0])
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Database %q created successfully.\n", name)
		return nil
	},
}

var verifyCmd = &cobra.Command{
	Use:   "verify <name>",
	Short: "Check that a database exists; exits non-zero when it does not",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		s, err := openSession(cmd.Context())
		if err != nil {
			return err
		}
		defer s.close()

		name, exists, err := s.service.VerifyDatabase(cmd.Context(), args[0])
		if err != nil {
			return err
		}
		if !exists {
			return fmt.Errorf("%w: %s", errNotFound, name)
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Database %q found.\n", name)
		return nil
	},
}

var migrateCmd = &cobra.Command{
	Use:   "migrate <source> <target>",
	Short: "Copy the full content of source into the existing target database",
	Long: `Streams pg_dump of the source into psql connected to the target.
Both databases must exist. Nothing is written to disk and the target is not
emptied first, so objects that already exist there make the restore fail.`,
	Args: cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		s, err := openSession(cmd.Context())
		if err != nil {
			return err
		}
		defer s.close()

		outcome, err := s.service.MigrateDatabase(cmd.Context(), args[0], args[1])
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Migration from %q to %q completed successfully (%s).\n",
			args[0], args[1], outcome.Summary())
		return nil
	},
}
