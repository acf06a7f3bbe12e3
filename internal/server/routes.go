package server

import (
	"net/http"
)

func SetupRoutes(notaHandler *NotaService) *http.ServeMux {
	mux := http.NewServeMux()

	mux.HandleFunc("POST /notas/importar", notaHandler.ImportarNota)
	mux.HandleFunc("GET /notas", notaHandler.ListarNotas)
	mux.HandleFunc("GET /notas/resumo", notaHandler.GetResumo)
	mux.HandleFunc("GET /notas/{id}", notaHandler.GetNota)
	mux.HandleFunc("POST /notas/{id}/processar", notaHandler.ProcessarNota)
	mux.HandleFunc("POST /notas/{id}/cancelar", notaHandler.CancelarNota)
	mux.HandleFunc("POST /notas/{id}/rejeitar", notaHandler.RejeitarNota)
	mux.HandleFunc("DELETE /notas/{id}", notaHandler.DeletarNota)

	return mux
}
