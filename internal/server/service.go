package server

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/frotaops/nfe-import/internal/aggregation"
	"github.com/frotaops/nfe-import/internal/database"
	"github.com/frotaops/nfe-import/internal/importer"
	"github.com/frotaops/nfe-import/internal/logger"
	"github.com/frotaops/nfe-import/internal/models"
)

// maxImportBody caps the raw document size accepted over HTTP.
const maxImportBody = 10 << 20

// NotaService exposes the fiscal document pipeline over HTTP.
type NotaService struct {
	DBManager database.DBManager
	Importer  *importer.Service
}

func NewNotaService(dbManager database.DBManager, imp *importer.Service) *NotaService {
	return &NotaService{DBManager: dbManager, Importer: imp}
}

type erroResposta struct {
	Erro string `json:"erro"`
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(body)
}

func writeErro(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, erroResposta{Erro: msg})
}

// ImportarNota receives the raw XML of one document in the request body. The
// optional tipo query parameter overrides the parsed operation type.
func (h *NotaService) ImportarNota(w http.ResponseWriter, r *http.Request) {
	tipo := r.URL.Query().Get("tipo")
	if tipo != "" && !models.TipoValido(tipo) {
		writeErro(w, http.StatusBadRequest, "parâmetro tipo deve ser 'entrada' ou 'saida'")
		return
	}

	raw, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxImportBody))
	if err != nil {
		writeErro(w, http.StatusBadRequest, "falha ao ler o corpo da requisição")
		return
	}

	result, err := h.Importer.Importar(r.Context(), raw, importer.ImportOptions{
		TipoOverride:   tipo,
		CaminhoArquivo: r.Header.Get("X-Caminho-Arquivo"),
	})
	if err != nil {
		var estrutural *models.StructuralError
		var duplicada *models.DuplicateError
		switch {
		case errors.As(err, &estrutural):
			writeErro(w, http.StatusUnprocessableEntity, estrutural.Error())
		case errors.As(err, &duplicada):
			writeErro(w, http.StatusConflict, duplicada.Error())
		default:
			log := logger.FromContext(r.Context())
			log.Error().Err(err).Msg("import failed")
			writeErro(w, http.StatusBadGateway, "falha de infraestrutura ao importar a nota")
		}
		return
	}

	writeJSON(w, http.StatusCreated, result)
}

func (h *NotaService) ListarNotas(w http.ResponseWriter, r *http.Request) {
	notas, err := h.DBManager.ListNotas(r.Context())
	if err != nil {
		log := logger.FromContext(r.Context())
		log.Error().Err(err).Msg("listing notas failed")
		writeErro(w, http.StatusBadGateway, "falha ao consultar as notas")
		return
	}
	if notas == nil {
		notas = []models.NotaFiscal{}
	}

	writeJSON(w, http.StatusOK, notas)
}

func (h *NotaService) GetNota(w http.ResponseWriter, r *http.Request) {
	id, ok := notaID(w, r)
	if !ok {
		return
	}

	nota, err := h.DBManager.GetNota(r.Context(), id)
	if err != nil {
		log := logger.FromContext(r.Context())
		log.Error().Err(err).Msg("loading nota failed")
		writeErro(w, http.StatusBadGateway, "falha ao consultar a nota")
		return
	}
	if nota == nil {
		writeErro(w, http.StatusNotFound, "nota não encontrada")
		return
	}

	itens, err := h.DBManager.ListItens(r.Context(), id)
	if err != nil {
		log := logger.FromContext(r.Context())
		log.Error().Err(err).Msg("loading itens failed")
		writeErro(w, http.StatusBadGateway, "falha ao consultar os itens da nota")
		return
	}
	nota.Itens = itens

	writeJSON(w, http.StatusOK, nota)
}

// GetResumo runs the read-side aggregation over a snapshot of the store.
// Concurrent writers are not isolated from it; callers get eventually
// consistent numbers.
func (h *NotaService) GetResumo(w http.ResponseWriter, r *http.Request) {
	notas, err := h.DBManager.ListNotas(r.Context())
	if err != nil {
		log := logger.FromContext(r.Context())
		log.Error().Err(err).Msg("listing notas for resumo failed")
		writeErro(w, http.StatusBadGateway, "falha ao consultar as notas")
		return
	}

	writeJSON(w, http.StatusOK, aggregation.Resumir(notas))
}

func (h *NotaService) ProcessarNota(w http.ResponseWriter, r *http.Request) {
	agora := time.Now()
	h.transicionar(w, r, models.StatusProcessada, &agora)
}

func (h *NotaService) CancelarNota(w http.ResponseWriter, r *http.Request) {
	h.transicionar(w, r, models.StatusCancelada, nil)
}

func (h *NotaService) RejeitarNota(w http.ResponseWriter, r *http.Request) {
	h.transicionar(w, r, models.StatusRejeitada, nil)
}

// transicionar applies one externally triggered status transition. Moving to
// Processada also stamps the entry timestamp.
func (h *NotaService) transicionar(w http.ResponseWriter, r *http.Request, para string, dataEntrada *time.Time) {
	id, ok := notaID(w, r)
	if !ok {
		return
	}

	nota, err := h.DBManager.GetNota(r.Context(), id)
	if err != nil {
		log := logger.FromContext(r.Context())
		log.Error().Err(err).Msg("loading nota failed")
		writeErro(w, http.StatusBadGateway, "falha ao consultar a nota")
		return
	}
	if nota == nil {
		writeErro(w, http.StatusNotFound, "nota não encontrada")
		return
	}

	if !models.PodeTransicionar(nota.Status, para) {
		writeErro(w, http.StatusConflict, "transição de status não permitida de "+nota.Status+" para "+para)
		return
	}

	if err := h.DBManager.UpdateNotaStatus(r.Context(), id, para, dataEntrada); err != nil {
		log := logger.FromContext(r.Context())
		log.Error().Err(err).Msg("status update failed")
		writeErro(w, http.StatusBadGateway, "falha ao atualizar o status da nota")
		return
	}

	nota.Status = para
	if dataEntrada != nil {
		nota.DataEntrada = dataEntrada
	}
	writeJSON(w, http.StatusOK, nota)
}

func (h *NotaService) DeletarNota(w http.ResponseWriter, r *http.Request) {
	id, ok := notaID(w, r)
	if !ok {
		return
	}

	if err := h.DBManager.DeleteNota(r.Context(), id); err != nil {
		log := logger.FromContext(r.Context())
		log.Error().Err(err).Msg("delete failed")
		writeErro(w, http.StatusBadGateway, "falha ao excluir a nota")
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

func notaID(w http.ResponseWriter, r *http.Request) (int, bool) {
	id, err := strconv.Atoi(r.PathValue("id"))
	if err != nil || id <= 0 {
		writeErro(w, http.StatusBadRequest, "identificador de nota inválido")
		return 0, false
	}
	return id, true
}
