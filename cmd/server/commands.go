package main

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"caretrack/internal/adapters/storage"
	"caretrack/internal/application/orchestrators"
	"caretrack/internal/domain/account"
)

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Apply pending database migrations and exit",
	RunE: func(cmd *cobra.Command, _ []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		a, err := openApp(cfg)
		if err != nil {
			return err
		}
		defer a.Close()

		v, err := storage.SchemaVersion(a.db.RawDB())
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "schema at version %d\n", v)
		return nil
	},
}

var (
	createUserRole     string
	createUserPassword string
)

var createUserCmd = &cobra.Command{
	Use:   "create-user <username>",
	Short: "Create a staff or admin account",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		a, err := openApp(cfg)
		if err != nil {
			return err
		}
		defer a.Close()

		id, err := orchestrators.ExecuteCreateAccount(cmd.Context(), orchestrators.CreateAccountInput{
			Username: args[0],
			Password: createUserPassword,
			Role:     createUserRole,
		}, orchestrators.CreateAccountDeps{AccountStore: a.accounts})
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "created %s %s (%s)\n", createUserRole, args[0], id)
		return nil
	},
}

var listUsersRole string

var listUsersCmd = &cobra.Command{
	Use:   "list-users",
	Short: "List accounts",
	RunE: func(cmd *cobra.Command, _ []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		a, err := openApp(cfg)
		if err != nil {
			return err
		}
		defer a.Close()

		accounts, err := orchestrators.ExecuteListAccounts(cmd.Context(), listUsersRole, a.accounts)
		if err != nil {
			return err
		}
		tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
		fmt.Fprintln(tw, "USERNAME\tROLE\tCREATED")
		for _, acct := range accounts {
			fmt.Fprintf(tw, "%s\t%s\t%s\n", acct.Username, acct.Role, acct.CreatedAt.Format("2006-01-02"))
		}
		return tw.Flush()
	},
}

func init() {
	createUserCmd.Flags().StringVar(&createUserRole, "role", account.RoleStaff, "account role: admin or staff")
	createUserCmd.Flags().StringVar(&createUserPassword, "password", "", "initial password (at least 8 characters)")
	_ = createUserCmd.MarkFlagRequired("password")
	listUsersCmd.Flags().StringVar(&listUsersRole, "role", "", "only list accounts with this role")
}
