package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/existflow/ironplan/internal/api"
	"github.com/existflow/ironplan/internal/model"
)

var projectCmd = &cobra.Command{
	Use:   "project",
	Short: "Manage projects",
	Long:  `Create, list, update, and delete projects without the TUI.`,
}

var projectListCmd = &cobra.Command{
	Use:     "list",
	Aliases: []string{"ls"},
	Short:   "List your projects",
	RunE:    runProjectList,
}

var projectShowCmd = &cobra.Command{
	Use:   "show [project-id]",
	Short: "Show one project with its team",
	Args:  cobra.ExactArgs(1),
	RunE:  runProjectShow,
}

var projectNewCmd = &cobra.Command{
	Use:   "new [title]",
	Short: "Create a new project",
	Long: `Create a new project. The creator becomes the team admin; team
members are resolved by email address.

Examples:
  ironplan project new "Website redesign" -d "Q4 refresh" -s 2026-09-01 -e 2026-12-15
  ironplan project new "Launch" -d "..." -s 2026-09-01 -e 2026-10-01 -m a@x.com -m b@x.com`,
	Args: cobra.ExactArgs(1),
	RunE: runProjectNew,
}

var projectUpdateCmd = &cobra.Command{
	Use:   "update [project-id]",
	Short: "Update project fields",
	Args:  cobra.ExactArgs(1),
	RunE:  runProjectUpdate,
}

var projectDeleteCmd = &cobra.Command{
	Use:     "delete [project-id]",
	Aliases: []string{"rm"},
	Short:   "Delete a project",
	Args:    cobra.ExactArgs(1),
	RunE:    runProjectDelete,
}

var (
	newDescription string
	newStart       string
	newEnd         string
	newPublic      bool
	newTags        []string
	newMembers     []string

	updTitle       string
	updDescription string
	updStatus      string
	updStart       string
	updEnd         string
	updPublic      bool
	updTags        []string
)

func init() {
	projectNewCmd.Flags().StringVarP(&newDescription, "description", "d", "", "Project description")
	projectNewCmd.Flags().StringVarP(&newStart, "start", "s", "", "Start date (YYYY-MM-DD)")
	projectNewCmd.Flags().StringVarP(&newEnd, "end", "e", "", "End date (YYYY-MM-DD)")
	projectNewCmd.Flags().BoolVar(&newPublic, "public", false, "Make the project public")
	projectNewCmd.Flags().StringSliceVarP(&newTags, "tag", "t", nil, "Tag (repeatable)")
	projectNewCmd.Flags().StringSliceVarP(&newMembers, "member", "m", nil, "Team member email (repeatable)")

	projectUpdateCmd.Flags().StringVar(&updTitle, "title", "", "New title")
	projectUpdateCmd.Flags().StringVarP(&updDescription, "description", "d", "", "New description")
	projectUpdateCmd.Flags().StringVar(&updStatus, "status", "", "New status (active, completed, on-hold)")
	projectUpdateCmd.Flags().StringVarP(&updStart, "start", "s", "", "New start date (YYYY-MM-DD)")
	projectUpdateCmd.Flags().StringVarP(&updEnd, "end", "e", "", "New end date (YYYY-MM-DD)")
	projectUpdateCmd.Flags().BoolVar(&updPublic, "public", false, "Public visibility")
	projectUpdateCmd.Flags().StringSliceVarP(&updTags, "tag", "t", nil, "Tag (repeatable, replaces all tags)")

	projectCmd.AddCommand(projectListCmd)
	projectCmd.AddCommand(projectShowCmd)
	projectCmd.AddCommand(projectNewCmd)
	projectCmd.AddCommand(projectUpdateCmd)
	projectCmd.AddCommand(projectDeleteCmd)
}

func runProjectList(cmd *cobra.Command, args []string) error {
	client, err := newAPIClient()
	if err != nil {
		return err
	}

	projects, err := client.ListProjects()
	if err != nil {
		return err
	}

	if len(projects) == 0 {
		fmt.Println("No projects found.")
		return nil
	}

	fmt.Println()
	fmt.Printf("  %-26s  %-32s  %-9s  %-10s  %s\n", "ID", "Title", "Status", "End", "Team")
	fmt.Println(strings.Repeat("─", 96))

	for _, p := range projects {
		fmt.Printf("  %-26s  %-32s  %-9s  %-10s  %d\n",
			p.ID.Hex(), truncateText(p.Title, 32), p.Status, p.EndDate.Calendar(), len(p.Team))
	}

	fmt.Println(strings.Repeat("─", 96))
	fmt.Printf("  %d project(s)\n\n", len(projects))
	return nil
}

func runProjectShow(cmd *cobra.Command, args []string) error {
	client, err := newAPIClient()
	if err != nil {
		return err
	}

	p, err := client.GetProject(args[0])
	if err != nil {
		return err
	}

	fmt.Printf("\n%s  [%s]\n\n", p.Title, p.Status)
	fmt.Printf("  %s\n\n", p.Description)
	fmt.Printf("  Schedule:  %s → %s\n", p.StartDate.Calendar(), p.EndDate.Calendar())
	fmt.Printf("  Public:    %v\n", p.IsPublic)
	if len(p.Tags) > 0 {
		fmt.Printf("  Tags:      %s\n", strings.Join(p.Tags, ", "))
	}
	fmt.Printf("  Owner:     %s <%s>\n", p.CreatedBy.Name, p.CreatedBy.Email)
	fmt.Println("  Team:")
	for _, member := range p.Team {
		fmt.Printf("    • %s <%s> (%s)\n", member.User.Name, member.User.Email, member.Role)
	}
	fmt.Println()
	return nil
}

func runProjectNew(cmd *cobra.Command, args []string) error {
	client, err := newAPIClient()
	if err != nil {
		return err
	}

	p, err := client.CreateProject(api.CreateProjectInput{
		Title:              args[0],
		Description:        newDescription,
		Status:             "active",
		StartDate:          newStart,
		EndDate:            newEnd,
		IsPublic:           newPublic,
		Tags:               newTags,
		TeamMembersByEmail: newMembers,
	})
	if err != nil {
		return err
	}

	fmt.Printf("✓ Created project: %s (id: %s, team: %d)\n", p.Title, p.ID.Hex(), len(p.Team))
	return nil
}

func runProjectUpdate(cmd *cobra.Command, args []string) error {
	client, err := newAPIClient()
	if err != nil {
		return err
	}

	var upd model.ProjectUpdate
	if cmd.Flags().Changed("title") {
		upd.Title = &updTitle
	}
	if cmd.Flags().Changed("description") {
		upd.Description = &updDescription
	}
	if cmd.Flags().Changed("status") {
		status := model.Status(updStatus)
		upd.Status = &status
	}
	if cmd.Flags().Changed("start") {
		d, err := model.ParseDate(updStart)
		if err != nil {
			return fmt.Errorf("invalid start date: %w", err)
		}
		upd.StartDate = &d
	}
	if cmd.Flags().Changed("end") {
		d, err := model.ParseDate(updEnd)
		if err != nil {
			return fmt.Errorf("invalid end date: %w", err)
		}
		upd.EndDate = &d
	}
	if cmd.Flags().Changed("public") {
		upd.IsPublic = &updPublic
	}
	if cmd.Flags().Changed("tag") {
		upd.Tags = &updTags
	}

	p, err := client.UpdateProject(args[0], upd)
	if err != nil {
		return err
	}

	fmt.Printf("✓ Updated project: %s [%s]\n", p.Title, p.Status)
	return nil
}

func runProjectDelete(cmd *cobra.Command, args []string) error {
	client, err := newAPIClient()
	if err != nil {
		return err
	}

	if err := client.DeleteProject(args[0]); err != nil {
		return err
	}

	fmt.Println("🗑️  Project deleted successfully")
	return nil
}

func truncateText(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return s[:max-3] + "..."
}
