package cmd

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/jhoicas/buku-api/internal/infrastructure/myinvois/signer"
	"github.com/jhoicas/buku-api/pkg/config"
)

var (
	certPath     string
	certKeyPath  string
	certPassword string
)

type certReport struct {
	signer.CertInfo
	Expired bool `json:"expired"`
}

var certCheckCmd = &cobra.Command{
	Use:   "cert-check",
	Short: "Carga el certificado de firma y muestra sus datos",
	RunE: func(cmd *cobra.Command, args []string) error {
		if certPath == "" {
			cfg, err := config.Load()
			if err != nil {
				return fmt.Errorf("cargar configuración: %w", err)
			}
			certPath, certKeyPath, certPassword = cfg.EInvoice.CertPath, cfg.EInvoice.CertKeyPath, cfg.EInvoice.CertPassword
		}
		if certPath == "" {
			return fmt.Errorf("sin certificado: use --path o EINVOICE_CERT_PATH")
		}
		cert, err := signer.LoadCertificate(certPath, certKeyPath, certPassword)
		if err != nil {
			return err
		}
		info := signer.Describe(cert.Leaf)
		return printJSON(certReport{CertInfo: info, Expired: !info.ValidAt(time.Now())})
	},
}

func init() {
	rootCmd.AddCommand(certCheckCmd)
	certCheckCmd.Flags().StringVar(&certPath, "path", "", "Certificado .p12/.pfx o .pem (por defecto EINVOICE_CERT_PATH)")
	certCheckCmd.Flags().StringVar(&certKeyPath, "key", "", "Llave .pem si el certificado no la incluye")
	certCheckCmd.Flags().StringVar(&certPassword, "password", "", "Contraseña del .p12")
}
