package main

import (
	"fmt"
	"log"

	"github.com/spf13/cobra"
	"github.com/upb/agency-backoffice/app"
	"github.com/upb/agency-backoffice/models"
	"github.com/upb/agency-backoffice/services/directory"
)

func orgCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "org",
		Short: "Manage tenant organizations",
	}
	cmd.AddCommand(orgCreateCmd())
	return cmd
}

func orgCreateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "create",
		Short: "Create an organization and its first admin",
		Long: `Create an organization and its first admin.

Examples:
  backoffice org create --name="Norte Digital" --slug=norte \
    --admin-email=ana@norte.co --admin-name="Ana Ruiz" --admin-handle=ana --invite
`,
		Args: cobra.NoArgs,
		RunE: runOrgCreate,
	}

	for _, f := range []string{"name", "slug", "admin-email", "admin-name", "admin-handle"} {
		cmd.Flags().String(f, "", f+" (required)")
		if err := cmd.MarkFlagRequired(f); err != nil {
			log.Printf("Error marking flag as required: %v", err)
		}
	}
	cmd.Flags().String("currency", "USD", "ISO 4217 billing currency")
	cmd.Flags().String("timezone", "", "IANA timezone, e.g. America/Bogota")
	cmd.Flags().Bool("invite", false, "Send the admin a Supabase invite")

	return cmd
}

func runOrgCreate(cmd *cobra.Command, args []string) error {
	flags := cmd.Flags()
	name, _ := flags.GetString("name")
	slug, _ := flags.GetString("slug")
	currency, _ := flags.GetString("currency")
	timezone, _ := flags.GetString("timezone")
	email, _ := flags.GetString("admin-email")
	fullName, _ := flags.GetString("admin-name")
	handle, _ := flags.GetString("admin-handle")
	invite, _ := flags.GetBool("invite")

	return withDependencies(cmd.Context(), func(deps *app.Dependencies) error {
		org, admin, err := deps.Directory.CreateOrganization(cmd.Context(),
			directory.OrganizationRequest{Name: name, Slug: slug, Currency: currency, Timezone: timezone},
			directory.EmployeeRequest{Email: email, FullName: fullName, Handle: handle, Role: models.RoleAdmin, Invite: invite},
		)
		if err != nil {
			return err
		}
		_, err = fmt.Fprintf(cmd.OutOrStdout(), "organization %s (%s)\nadmin %s <%s>\n", org.ID, org.Slug, admin.ID, admin.Email)
		return err
	})
}
