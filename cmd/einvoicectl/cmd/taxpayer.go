package cmd

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/jhoicas/buku-api/internal/bootstrap"
)

var (
	tinIDType  string
	tinIDValue string
)

var validateTINCmd = &cobra.Command{
	Use:   "validate-tin <tin>",
	Short: "Valida un TIN contra su documento de identidad en MyInvois",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := requireCompany(); err != nil {
			return err
		}
		return withEngine(func(ctx context.Context, e *bootstrap.Engine) error {
			res, err := e.Settings.ValidateTaxpayer(ctx, companyID, args[0], tinIDType, tinIDValue)
			if err != nil {
				return err
			}
			return printJSON(res)
		})
	},
}

var testConnectionCmd = &cobra.Command{
	Use:   "test-connection",
	Short: "Obtiene un token nuevo con las credenciales guardadas y registra el resultado",
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := requireCompany(); err != nil {
			return err
		}
		return withEngine(func(ctx context.Context, e *bootstrap.Engine) error {
			res, err := e.Settings.TestConnection(ctx, companyID)
			if err != nil {
				return err
			}
			return printJSON(res)
		})
	},
}

func init() {
	rootCmd.AddCommand(validateTINCmd, testConnectionCmd)
	validateTINCmd.Flags().StringVar(&tinIDType, "id-type", "BRN", "Tipo de identificación (NRIC, BRN, PASSPORT, ARMY)")
	validateTINCmd.Flags().StringVar(&tinIDValue, "id-value", "", "Número de identificación")
	_ = validateTINCmd.MarkFlagRequired("id-value")
}
