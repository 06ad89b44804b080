package cmd

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/jhoicas/buku-api/internal/application/dto"
	"github.com/jhoicas/buku-api/internal/application/einvoice"
	"github.com/jhoicas/buku-api/internal/bootstrap"
	"github.com/jhoicas/buku-api/internal/domain/entity"
)

var (
	submitInvoiceID    string
	submitCreditNoteID string
	retrySubmissionID  string
)

var submitCmd = &cobra.Command{
	Use:   "submit",
	Short: "Envía una factura (--invoice) o nota crédito (--credit-note) a MyInvois",
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := requireCompany(); err != nil {
			return err
		}
		var subject entity.SubjectRef
		switch {
		case submitInvoiceID != "" && submitCreditNoteID != "":
			return fmt.Errorf("use --invoice o --credit-note, no ambos")
		case submitInvoiceID != "":
			subject = entity.InvoiceSubject(submitInvoiceID)
		case submitCreditNoteID != "":
			subject = entity.CreditNoteSubject(submitCreditNoteID)
		default:
			return fmt.Errorf("--invoice o --credit-note es requerido")
		}
		return withEngine(func(ctx context.Context, e *bootstrap.Engine) error {
			s, err := e.Orchestrator.Submit(ctx, companyID, subject)
			return printSubmission(s, err)
		})
	},
}

var retryCmd = &cobra.Command{
	Use:   "retry",
	Short: "Reenvía el documento de un envío inválido o rechazado",
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := requireCompany(); err != nil {
			return err
		}
		return withEngine(func(ctx context.Context, e *bootstrap.Engine) error {
			s, err := e.Orchestrator.Retry(ctx, companyID, retrySubmissionID)
			return printSubmission(s, err)
		})
	},
}

// printSubmission imprime la fila aunque el envío haya fallado (queda invalid con el detalle).
func printSubmission(s *entity.EInvoiceSubmission, err error) error {
	if s != nil {
		if perr := printJSON(dto.SubmissionFromEntity(s)); perr != nil {
			return perr
		}
	}
	if rej, ok := einvoice.IsRejection(err); ok {
		for _, d := range rej.Documents {
			fmt.Printf("✗ %s: [%s] %s\n", d.CodeNumber, d.Code, d.Message)
		}
	}
	return err
}

func init() {
	rootCmd.AddCommand(submitCmd, retryCmd)
	submitCmd.Flags().StringVar(&submitInvoiceID, "invoice", "", "ID de la factura")
	submitCmd.Flags().StringVar(&submitCreditNoteID, "credit-note", "", "ID de la nota crédito")
	retryCmd.Flags().StringVar(&retrySubmissionID, "id", "", "ID del envío a reintentar")
	_ = retryCmd.MarkFlagRequired("id")
}
