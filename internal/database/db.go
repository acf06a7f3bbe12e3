package database

import (
	"context"
	"time"

	"github.com/frotaops/nfe-import/internal/models"
)

// DBManager is the persistence collaborator the import pipeline writes
// against. FindNotaByChaveAcesso must distinguish "not found" (nil, nil)
// from a query error; the dedup gate fails closed on the latter.
type DBManager interface {
	CreateNotasTables(ctx context.Context) error
	InsertNota(ctx context.Context, nota *models.NotaFiscal) (int, error)
	InsertItem(ctx context.Context, item *models.ItemNota) error
	FindNotaByChaveAcesso(ctx context.Context, chaveAcesso string) (*models.NotaFiscal, error)
	GetNota(ctx context.Context, id int) (*models.NotaFiscal, error)
	ListNotas(ctx context.Context) ([]models.NotaFiscal, error)
	ListItens(ctx context.Context, notaID int) ([]models.ItemNota, error)
	UpdateNotaStatus(ctx context.Context, id int, status string, dataEntrada *time.Time) error
	DeleteNota(ctx context.Context, id int) error
}
