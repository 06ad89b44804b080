package cmd

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/jhoicas/buku-api/internal/application/dto"
	"github.com/jhoicas/buku-api/internal/bootstrap"
)

var pollSubmissionID string

var pollCmd = &cobra.Command{
	Use:   "poll",
	Short: "Consulta el estado de los envíos pendientes (o de uno con --id)",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withEngine(func(ctx context.Context, e *bootstrap.Engine) error {
			if pollSubmissionID == "" {
				summary, err := e.Reconciler.PollPending(ctx)
				if err != nil {
					return err
				}
				return printJSON(summary)
			}
			if err := requireCompany(); err != nil {
				return err
			}
			s, err := e.Reconciler.Poll(ctx, companyID, pollSubmissionID)
			if err != nil {
				return err
			}
			return printJSON(dto.SubmissionFromEntity(s))
		})
	},
}

func init() {
	rootCmd.AddCommand(pollCmd)
	pollCmd.Flags().StringVar(&pollSubmissionID, "id", "", "ID del envío")
}
