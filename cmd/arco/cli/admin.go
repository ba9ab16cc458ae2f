package cli

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/arcoapp/arco-admin/internal/model"
	"github.com/arcoapp/arco-admin/internal/service"
)

func newAdminCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "admin",
		Short: "Manage admin users",
		Long:  "Create and list the administrators who sign in to the web dashboard. Admins cannot be created over HTTP.",
	}

	cmd.AddCommand(newAdminCreateCmd())
	cmd.AddCommand(newAdminListCmd())

	return cmd
}

// ---------- admin create ----------

type adminCreateFlags struct {
	username  string
	email     string
	password  string
	firstName string
	lastName  string
}

func newAdminCreateCmd() *cobra.Command {
	var f adminCreateFlags

	cmd := &cobra.Command{
		Use:   "create",
		Short: "Create a new admin user",
		Example: `  arco admin create --username root --email admin@example.com --password secret123
  arco admin create --username root --email admin@example.com  # prompts for password`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runAdminCreate(f)
		},
	}

	cmd.Flags().StringVar(&f.username, "username", "", "Admin username (required)")
	cmd.Flags().StringVar(&f.email, "email", "", "Email address that receives sign-in codes (required)")
	cmd.Flags().StringVar(&f.password, "password", "", "Admin password (prompted if omitted)")
	cmd.Flags().StringVar(&f.firstName, "first-name", "", "First name")
	cmd.Flags().StringVar(&f.lastName, "last-name", "", "Last name")
	cmd.MarkFlagRequired("username")
	cmd.MarkFlagRequired("email")

	return cmd
}

func runAdminCreate(f adminCreateFlags) error {
	if !strings.Contains(f.email, "@") {
		return fmt.Errorf("invalid email address: %q", f.email)
	}

	if f.password == "" {
		pw, err := promptPassword()
		if err != nil {
			return err
		}
		f.password = pw
	}
	if len(f.password) < service.MinPasswordLength {
		return fmt.Errorf("password must be at least %d characters", service.MinPasswordLength)
	}

	store, cfg, err := openStoreFromSettings()
	if err != nil {
		return err
	}
	defer store.Close()

	users := service.NewUserService(store, cfg.Auth.BcryptCost, nil)
	u, err := users.CreateAdmin(cmdContext(), service.AddUserInput{
		Username:  f.username,
		Email:     f.email,
		Password:  f.password,
		FirstName: f.firstName,
		LastName:  f.lastName,
	})
	if err != nil {
		return cliError("create admin", err)
	}

	fmt.Printf("Created admin user %q (id %d)\n", u.Username, u.ID)
	return nil
}

func promptPassword() (string, error) {
	fmt.Print("Password: ")
	pwBytes, err := term.ReadPassword(int(os.Stdin.Fd()))
	if err != nil {
		return "", fmt.Errorf("failed to read password: %w", err)
	}
	fmt.Println()

	fmt.Print("Confirm password: ")
	confirmBytes, err := term.ReadPassword(int(os.Stdin.Fd()))
	if err != nil {
		return "", fmt.Errorf("failed to read confirmation: %w", err)
	}
	fmt.Println()

	if string(pwBytes) != string(confirmBytes) {
		return "", fmt.Errorf("passwords do not match")
	}
	return string(pwBytes), nil
}

// ---------- admin list ----------

func newAdminListCmd() *cobra.Command {
	var jsonOutput bool

	cmd := &cobra.Command{
		Use:     "list",
		Aliases: []string{"ls"},
		Short:   "List all admin users",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runUserList(model.UserFilter{Role: model.RoleAdmin, IncludeArchived: true, Limit: 1000}, jsonOutput,
				"No admin users configured. Use 'arco admin create' to create one.")
		},
	}

	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Output as JSON")

	return cmd
}
