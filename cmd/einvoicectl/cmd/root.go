package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/jhoicas/buku-api/internal/bootstrap"
	"github.com/jhoicas/buku-api/pkg/config"
	"github.com/jhoicas/buku-api/pkg/logger"
)

var (
	// Flags globales
	companyID string
	logLevel  string
)

var rootCmd = &cobra.Command{
	Use:   "einvoicectl",
	Short: "Operación del motor de factura electrónica MyInvois",
	Long: `einvoicectl ejecuta a mano las operaciones del motor MyInvois usando la misma
configuración (.env / variables de entorno) que la API.

Ejemplos:
  # Barrido de envíos pendientes
  einvoicectl poll

  # Consultar un envío puntual
  einvoicectl poll --company <id> --id <submission-id>

  # Enviar una factura
  einvoicectl submit --company <id> --invoice <invoice-id>

  # Anular un documento válido
  einvoicectl cancel --company <id> --id <submission-id> --reason "goods returned"`,
	SilenceUsage: true,
}

// Execute ejecuta el comando raíz.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().StringVar(&companyID, "company", "", "ID de la empresa (tenant)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "warn", "Nivel de log (debug, info, warn, error)")
}

// withEngine carga la configuración, arma el motor y ejecuta fn con un contexto cancelable por señal.
func withEngine(fn func(ctx context.Context, e *bootstrap.Engine) error) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("cargar configuración: %w", err)
	}
	log := logger.New(logger.Config{Env: cfg.App.Env, Level: logLevel, Service: "einvoicectl"})

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	e, err := bootstrap.NewEngine(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer e.Close()
	return fn(ctx, e)
}

func requireCompany() error {
	if companyID == "" {
		return fmt.Errorf("--company es requerido")
	}
	return nil
}

func printJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
