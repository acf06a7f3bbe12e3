package importer

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/frotaops/nfe-import/internal/database"
	"github.com/frotaops/nfe-import/internal/models"
	"github.com/frotaops/nfe-import/internal/nfe"
	"github.com/frotaops/nfe-import/pkg/checksum"
)

// ImportOptions carries the caller-supplied knobs of one import.
type ImportOptions struct {
	// TipoOverride, when set, wins over the operation type parsed from the
	// document. See nfe.ParseOptions.
	TipoOverride string
	// CaminhoArquivo is the reference path of the original raw document.
	CaminhoArquivo string
	// FornecedorID links the document to a supplier/client record.
	FornecedorID *int
}

// ImportResult reports the outcome of a successful import. ItensComFalha is
// nonzero when the header was written but some item writes failed; the import
// still counts as a success and the partial state is visible here.
type ImportResult struct {
	NotaID        int    `json:"nota_id"`
	ChaveAcesso   string `json:"chave_acesso"`
	Itens         int    `json:"itens"`
	ItensGravados int    `json:"itens_gravados"`
	ItensComFalha int    `json:"itens_com_falha"`
}

// Service orchestrates one document import: validate, parse, dedup gate,
// header write, item writes. Each import is sequential and synchronous.
type Service struct {
	db     database.DBManager
	logger zerolog.Logger
}

func NewService(db database.DBManager, logger zerolog.Logger) *Service {
	return &Service{db: db, logger: logger}
}

// Importar runs the whole pipeline for one raw document. Any failure before
// the header write aborts with zero persisted state. Item-write failures
// after a successful header write are logged and counted but do not fail the
// import; the header persists with zero or partial items.
func (s *Service) Importar(ctx context.Context, raw []byte, opts ImportOptions) (*ImportResult, error) {
	if !nfe.ValidarEstrutura(raw) {
		return nil, &models.StructuralError{}
	}

	nota, err := nfe.Parse(raw, nfe.ParseOptions{TipoOverride: opts.TipoOverride})
	if err != nil {
		return nil, err
	}

	// Fast-path duplicate check. The lookup is racy under concurrent imports
	// of the same document; the UNIQUE constraint on insert is the
	// authoritative guard. A query failure rejects the import rather than
	// being read as "no duplicate found".
	existente, err := s.db.FindNotaByChaveAcesso(ctx, nota.ChaveAcesso)
	if err != nil {
		return nil, fmt.Errorf("checking for duplicate of chave %s: %w", nota.ChaveAcesso, err)
	}
	if existente != nil {
		return nil, &models.DuplicateError{ChaveAcesso: nota.ChaveAcesso}
	}

	agora := time.Now()
	nota.Status = models.StatusPendente
	nota.DataEntrada = &agora
	nota.CaminhoArquivo = opts.CaminhoArquivo
	nota.FornecedorID = opts.FornecedorID
	nota.Checksum = checksum.CalculateCheckSum(raw)

	notaID, err := s.db.InsertNota(ctx, nota)
	if err != nil {
		var dup *models.DuplicateError
		if errors.As(err, &dup) {
			return nil, err
		}
		return nil, fmt.Errorf("persisting header of nota %s: %w", nota.ChaveAcesso, err)
	}

	result := &ImportResult{
		NotaID:      notaID,
		ChaveAcesso: nota.ChaveAcesso,
		Itens:       len(nota.Itens),
	}

	for i := range nota.Itens {
		item := &nota.Itens[i]
		item.NotaID = notaID
		if err := s.db.InsertItem(ctx, item); err != nil {
			result.ItensComFalha++
			s.logger.Warn().
				Err(err).
				Int("nota_id", notaID).
				Int("numero_item", item.NumeroItem).
				Msg("item write failed after header commit; header kept")
			continue
		}
		result.ItensGravados++
	}

	s.logger.Info().
		Int("nota_id", notaID).
		Str("chave_acesso", nota.ChaveAcesso).
		Str("tipo", nota.Tipo).
		Int("itens_gravados", result.ItensGravados).
		Int("itens_com_falha", result.ItensComFalha).
		Msg("nota fiscal imported")

	return result, nil
}
