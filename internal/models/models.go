package models

import (
	"time"
)

// Operation types relative to the importing party.
const (
	TipoEntrada = "entrada"
	TipoSaida   = "saida"
)

// Document statuses. The literals are persisted verbatim; existing stored
// data depends on them, so they must never be renamed.
const (
	StatusPendente   = "Pendente"
	StatusProcessada = "Processada"
	StatusCancelada  = "Cancelada"
	StatusRejeitada  = "Rejeitada"
	StatusAtiva      = "Ativa"
)

// NotaFiscal is the header of an imported fiscal document. ChaveAcesso is the
// natural key: the store enforces uniqueness on it, the import pipeline only
// pre-checks it.
type NotaFiscal struct {
	ID             int        `json:"id,omitempty"`
	Numero         string     `json:"numero"`
	Serie          string     `json:"serie,omitempty"`
	ChaveAcesso    string     `json:"chave_acesso"`
	CNPJEmitente   string     `json:"cnpj_emitente,omitempty"`
	NomeEmitente   string     `json:"nome_emitente,omitempty"`
	DataEmissao    time.Time  `json:"data_emissao,omitempty"`
	DataEntrada    *time.Time `json:"data_entrada,omitempty"`
	ValorTotal     float64    `json:"valor_total"`
	ValorProdutos  float64    `json:"valor_produtos"`
	ValorICMS      float64    `json:"valor_icms"`
	ValorIPI       float64    `json:"valor_ipi"`
	ValorPIS       float64    `json:"valor_pis"`
	ValorCOFINS    float64    `json:"valor_cofins"`
	ValorFrete     float64    `json:"valor_frete,omitempty"`
	ValorSeguro    float64    `json:"valor_seguro,omitempty"`
	ValorDesconto  float64    `json:"valor_desconto,omitempty"`
	ValorOutros    float64    `json:"valor_outros,omitempty"`
	Tipo           string     `json:"tipo"`
	Status         string     `json:"status"`
	FornecedorID   *int       `json:"fornecedor_id,omitempty"`
	Observacoes    string     `json:"observacoes,omitempty"`
	CaminhoArquivo string     `json:"caminho_arquivo,omitempty"`
	Checksum       string     `json:"checksum,omitempty"`
	Itens          []ItemNota `json:"itens,omitempty"`
}

// ItemNota is one line of a fiscal document. Items are owned by their header:
// created alongside it, deleted with it, never addressed on their own.
// NumeroItem comes from the source document and is not guaranteed contiguous.
type ItemNota struct {
	ID            int     `json:"id,omitempty"`
	NotaID        int     `json:"nota_id,omitempty"`
	NumeroItem    int     `json:"numero_item"`
	CodigoProduto string  `json:"codigo_produto"`
	Descricao     string  `json:"descricao"`
	NCM           string  `json:"ncm,omitempty"`
	CFOP          string  `json:"cfop,omitempty"`
	Unidade       string  `json:"unidade,omitempty"`
	Quantidade    float64 `json:"quantidade"`
	ValorUnitario float64 `json:"valor_unitario"`
	ValorTotal    float64 `json:"valor_total"`
	CSTICMS       string  `json:"cst_icms,omitempty"`
	ValorICMS     float64 `json:"valor_icms"`
	CSTIPI        string  `json:"cst_ipi,omitempty"`
	ValorIPI      float64 `json:"valor_ipi"`
	CSTPIS        string  `json:"cst_pis,omitempty"`
	ValorPIS      float64 `json:"valor_pis"`
	CSTCOFINS     string  `json:"cst_cofins,omitempty"`
	ValorCOFINS   float64 `json:"valor_cofins"`
	// Processado is reserved for downstream consumers (stock, financial
	// reconciliation). The import pipeline always writes false.
	Processado bool `json:"processado"`
}

// StatusValido reports whether s is one of the persisted status literals.
func StatusValido(s string) bool {
	switch s {
	case StatusPendente, StatusProcessada, StatusCancelada, StatusRejeitada, StatusAtiva:
		return true
	}
	return false
}

// TipoValido reports whether s is one of the operation-type literals.
func TipoValido(s string) bool {
	return s == TipoEntrada || s == TipoSaida
}

// PodeTransicionar reports whether a document may move from one status to
// another. Transitions are always externally triggered; nothing in the import
// pipeline flips a status after creation. Ativa is only ever written by the
// legacy path, so no transition produces it here.
func PodeTransicionar(de, para string) bool {
	switch para {
	case StatusRejeitada:
		return StatusValido(de)
	case StatusProcessada:
		return de == StatusPendente
	case StatusCancelada:
		return de == StatusPendente || de == StatusProcessada
	}
	return false
}
