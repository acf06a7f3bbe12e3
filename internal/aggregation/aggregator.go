package aggregation

import (
	"github.com/frotaops/nfe-import/internal/models"
)

// Resumo is the read-side summary of the stored document collection.
// Every tipo and status key is always present, zero-valued when no document
// matches, so two runs over the same input marshal to identical output.
type Resumo struct {
	TotalNotas  int     `json:"total_notas"`
	ValorTotal  float64 `json:"valor_total"`
	ValorICMS   float64 `json:"valor_icms"`
	ValorIPI    float64 `json:"valor_ipi"`
	ValorPIS    float64 `json:"valor_pis"`
	ValorCOFINS float64 `json:"valor_cofins"`
	PorTipo     map[string]int `json:"por_tipo"`
	PorStatus   map[string]int `json:"por_status"`
	// NotasProcessadas counts Processada plus Ativa. The two statuses are
	// kept distinct in PorStatus, but legacy Ativa documents behave as
	// processed ones, so the combined figure is what dashboards want.
	NotasProcessadas int `json:"notas_processadas"`
}

// Resumir computes the summary over the full collection. It is a pure
// function: no mutation of the input, no I/O, deterministic and idempotent.
// Nil or absent numeric fields on a document count as zero.
func Resumir(notas []models.NotaFiscal) Resumo {
	resumo := Resumo{
		PorTipo: map[string]int{
			models.TipoEntrada: 0,
			models.TipoSaida:   0,
		},
		PorStatus: map[string]int{
			models.StatusPendente:   0,
			models.StatusProcessada: 0,
			models.StatusCancelada:  0,
			models.StatusRejeitada:  0,
			models.StatusAtiva:      0,
		},
	}

	for _, nota := range notas {
		resumo.TotalNotas++
		resumo.ValorTotal += nota.ValorTotal
		resumo.ValorICMS += nota.ValorICMS
		resumo.ValorIPI += nota.ValorIPI
		resumo.ValorPIS += nota.ValorPIS
		resumo.ValorCOFINS += nota.ValorCOFINS

		if _, ok := resumo.PorTipo[nota.Tipo]; ok {
			resumo.PorTipo[nota.Tipo]++
		}
		if _, ok := resumo.PorStatus[nota.Status]; ok {
			resumo.PorStatus[nota.Status]++
		}
	}

	resumo.NotasProcessadas = resumo.PorStatus[models.StatusProcessada] + resumo.PorStatus[models.StatusAtiva]

	return resumo
}
