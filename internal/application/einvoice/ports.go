package einvoice

import (
	"context"

	"github.com/jhoicas/buku-api/internal/domain/repository"
)

// SecretCipher cifra y descifra el client secret en reposo (vault).
type SecretCipher interface {
	Encrypt(plaintext string) (string, error)
	Decrypt(ciphertext string) (string, error)
}

// TxRunner ejecuta fn en una transacción con los repos de envíos y documentos fuente.
// Se usa para el write-through del Long ID al quedar válido un envío.
type TxRunner interface {
	RunEInvoice(ctx context.Context, fn func(
		submissionRepo repository.EInvoiceSubmissionRepository,
		invoiceRepo repository.InvoiceRepository,
		creditNoteRepo repository.CreditNoteRepository,
	) error) error
}

// EventPublisher publica cambios de estado de los envíos.
type EventPublisher interface {
	Publish(ctx context.Context, evt SubmissionEvent) error
}
