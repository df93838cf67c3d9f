package cmd

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/abhisek/sldscreen/internal/store"
)

var assessmentCmd = &cobra.Command{
	Use:     "assessment",
	Aliases: []string{"assessments"},
	Short:   "Inspect stored assessments",
}

var assessmentListCmd = &cobra.Command{
	Use:   "list <child-id>",
	Short: "List a child's assessments, newest first",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		s, err := openStore(cmd)
		if err != nil {
			return err
		}
		defer s.Close()

		ctx := context.Background()
		list, err := s.AssessmentRepo().ListByChild(ctx, args[0])
		if err != nil {
			return fmt.Errorf("list assessments: %w", err)
		}
		if len(list) == 0 {
			fmt.Println("No assessments found.")
			return nil
		}

		fmt.Printf("%-36s  %-19s  %-18s  %-6s  %s\n", "ID", "Created", "Status", "Risk", "Referral")
		fmt.Println(strings.Repeat("─", 96))
		for _, a := range list {
			risk, referral := "-", "-"
			if a.Results != nil {
				risk = string(a.Results.OverallRisk)
				referral = "no"
				if a.Results.RequiresProfessionalAssessment {
					referral = "yes"
				}
			}
			fmt.Printf("%-36s  %-19s  %-18s  %-6s  %s\n",
				a.ID,
				a.CreatedAt.Local().Format("2006-01-02 15:04:05"),
				a.Status,
				risk,
				referral,
			)
		}
		return nil
	},
}

var assessmentShowCmd = &cobra.Command{
	Use:   "show <id>",
	Short: "Show an assessment with its responses and results",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		asJSON, _ := cmd.Flags().GetBool("json")

		s, err := openStore(cmd)
		if err != nil {
			return err
		}
		defer s.Close()

		a, err := s.AssessmentRepo().Get(context.Background(), args[0])
		if errors.Is(err, store.ErrNotFound) {
			return fmt.Errorf("assessment %s not found", args[0])
		}
		if err != nil {
			return fmt.Errorf("get assessment: %w", err)
		}

		if asJSON {
			enc := json.NewEncoder(os.Stdout)
			enc.SetIndent("", "  ")
			return enc.Encode(a)
		}

		fmt.Printf("ID:        %s\n", a.ID)
		fmt.Printf("Child:     %s\n", a.ChildID)
		fmt.Printf("Creator:   %s\n", a.CreatedBy)
		fmt.Printf("Status:    %s\n", a.Status)
		fmt.Printf("Created:   %s\n", a.CreatedAt.Local().Format("2006-01-02 15:04:05"))
		fmt.Printf("Answers:   %d parent / %d teacher\n", len(a.ParentResponses), len(a.TeacherResponses))
		if a.AnalyzedAt != nil {
			fmt.Printf("Analyzed:  %s\n", a.AnalyzedAt.Local().Format("2006-01-02 15:04:05"))
		}
		if a.Results != nil {
			rubric, err := loadRubric(cfg.Screening.RubricFile)
			if err != nil {
				return err
			}
			fmt.Println()
			printResults(rubric, a.Results)
		}
		return nil
	},
}

func init() {
	assessmentShowCmd.Flags().Bool("json", false, "Print the stored document as JSON")

	assessmentCmd.AddCommand(assessmentListCmd)
	assessmentCmd.AddCommand(assessmentShowCmd)
}
