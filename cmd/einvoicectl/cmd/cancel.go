package cmd

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/jhoicas/buku-api/internal/application/dto"
	"github.com/jhoicas/buku-api/internal/bootstrap"
)

var (
	cancelSubmissionID string
	cancelReason       string
)

var cancelCmd = &cobra.Command{
	Use:   "cancel",
	Short: "Anula ante MyInvois un documento válido",
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := requireCompany(); err != nil {
			return err
		}
		return withEngine(func(ctx context.Context, e *bootstrap.Engine) error {
			s, err := e.Orchestrator.Cancel(ctx, companyID, cancelSubmissionID, cancelReason)
			if err != nil {
				return err
			}
			return printJSON(dto.SubmissionFromEntity(s))
		})
	},
}

func init() {
	rootCmd.AddCommand(cancelCmd)
	cancelCmd.Flags().StringVar(&cancelSubmissionID, "id", "", "ID del envío")
	cancelCmd.Flags().StringVar(&cancelReason, "reason", "", "Motivo de la anulación")
	_ = cancelCmd.MarkFlagRequired("id")
	_ = cancelCmd.MarkFlagRequired("reason")
}
