package cli

import (
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/arcoapp/arco-admin/internal/model"
	"github.com/arcoapp/arco-admin/internal/service"
)

func newUserCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "user",
		Aliases: []string{"users"},
		Short:   "Inspect and archive user accounts",
	}

	cmd.AddCommand(newUserListCmd())
	cmd.AddCommand(newUserArchiveCmd(true))
	cmd.AddCommand(newUserArchiveCmd(false))

	return cmd
}

func newUserListCmd() *cobra.Command {
	var (
		f          model.UserFilter
		jsonOutput bool
	)

	cmd := &cobra.Command{
		Use:     "list",
		Aliases: []string{"ls"},
		Short:   "List user accounts, newest first",
		Example: `  arco user list
  arco user list --search alice --archived
  arco user list --role admin --json`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runUserList(f, jsonOutput, "No users found.")
		},
	}

	cmd.Flags().StringVar(&f.Search, "search", "", "Match username, email, first or last name")
	cmd.Flags().StringVar(&f.Role, "role", "", "Only list this role (admin or user)")
	cmd.Flags().BoolVar(&f.IncludeArchived, "archived", false, "Include archived accounts")
	cmd.Flags().IntVar(&f.Limit, "limit", 100, "Maximum number of accounts")
	cmd.Flags().IntVar(&f.Offset, "offset", 0, "Accounts to skip")
	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Output as JSON")

	return cmd
}

func runUserList(f model.UserFilter, jsonOutput bool, empty string) error {
	store, cfg, err := openStoreFromSettings()
	if err != nil {
		return err
	}
	defer store.Close()

	users, err := service.NewUserService(store, cfg.Auth.BcryptCost, nil).ListUsers(cmdContext(), f)
	if err != nil {
		return cliError("list users", err)
	}

	if jsonOutput {
		if users == nil {
			users = []model.User{}
		}
		return printJSON(os.Stdout, users)
	}

	if len(users) == 0 {
		fmt.Println(empty)
		return nil
	}

	tw := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tUSERNAME\tEMAIL\tROLE\tSTATUS\tLAST LOGIN")
	for _, u := range users {
		lastLogin := "never"
		if u.LastLoginAt != nil {
			lastLogin = u.LastLoginAt.Local().Format("2006-01-02 15:04")
		}
		fmt.Fprintf(tw, "%d\t%s\t%s\t%s\t%s\t%s\n", u.ID, u.Username, u.Email, u.Role, u.Status(), lastLogin)
	}
	return tw.Flush()
}

func newUserArchiveCmd(archive bool) *cobra.Command {
	use, short, verb := "archive <id>", "Archive an account so it can no longer sign in", "Archived"
	if !archive {
		use, short, verb = "restore <id>", "Restore an archived account", "Restored"
	}

	return &cobra.Command{
		Use:   use,
		Short: short,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseUserID(args[0])
			if err != nil {
				return err
			}

			store, cfg, err := openStoreFromSettings()
			if err != nil {
				return err
			}
			defer store.Close()

			users := service.NewUserService(store, cfg.Auth.BcryptCost, nil)
			if archive {
				err = users.ArchiveUser(cmdContext(), id)
			} else {
				err = users.RestoreUser(cmdContext(), id)
			}
			if err != nil {
				return cliError(fmt.Sprintf("user %d", id), err)
			}
			fmt.Printf("%s user %d\n", verb, id)
			return nil
		},
	}
}
