package nfe

import (
	"encoding/xml"
	"strconv"
	"strings"
	"time"

	"github.com/frotaops/nfe-import/internal/models"
)

// chavePrefixo is the literal prefix carried by the Id attribute of infNFe.
const chavePrefixo = "NFe"

// ParseOptions adjusts how a document is interpreted.
type ParseOptions struct {
	// TipoOverride forces the operation type regardless of the tpNF field.
	// Some issuer systems fill tpNF wrong, so callers that know the real
	// direction of the movement pass it here and it wins over the parsed
	// value.
	TipoOverride string
}

// valorDecimal parses NFe numeric fields, which show up with either comma or
// dot as decimal separator. Empty or unparseable text yields zero, never an
// error; absent tags simply keep the zero value.
type valorDecimal float64

func (v *valorDecimal) UnmarshalText(text []byte) error {
	s := strings.TrimSpace(string(text))
	if s == "" {
		*v = 0
		return nil
	}
	s = strings.Replace(s, ",", ".", 1)
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		*v = 0
		return nil
	}
	*v = valorDecimal(f)
	return nil
}

// The XML schema below is deliberately parent-scoped: every field is bound to
// its own block, so a tag name that recurs inside nested tax groups (CST, for
// one) can never be picked up from the wrong place.

type documentoXML struct {
	// Root <nfeProc> wraps <NFe>; a bare <NFe> root carries infNFe directly.
	InfNFeProc   *infNFeXML `xml:"NFe>infNFe"`
	InfNFeDireto *infNFeXML `xml:"infNFe"`
}

func (d *documentoXML) infNFe() *infNFeXML {
	if d.InfNFeProc != nil {
		return d.InfNFeProc
	}
	return d.InfNFeDireto
}

type infNFeXML struct {
	ID      string      `xml:"Id,attr"`
	Ide     *ideXML     `xml:"ide"`
	Emit    *emitXML    `xml:"emit"`
	Dest    *destXML    `xml:"dest"`
	Det     []detXML    `xml:"det"`
	Total   *totalXML   `xml:"total"`
	InfAdic *infAdicXML `xml:"infAdic"`
}

type ideXML struct {
	NNF   string `xml:"nNF"`
	Serie string `xml:"serie"`
	DhEmi string `xml:"dhEmi"`
	DEmi  string `xml:"dEmi"`
	TpNF  string `xml:"tpNF"`
	NatOp string `xml:"natOp"`
}

type emitXML struct {
	CNPJ  string `xml:"CNPJ"`
	CPF   string `xml:"CPF"`
	XNome string `xml:"xNome"`
}

type destXML struct {
	CNPJ  string `xml:"CNPJ"`
	CPF   string `xml:"CPF"`
	XNome string `xml:"xNome"`
}

type totalXML struct {
	ICMSTot *icmsTotXML `xml:"ICMSTot"`
}

type icmsTotXML struct {
	VNF     valorDecimal `xml:"vNF"`
	VProd   valorDecimal `xml:"vProd"`
	VICMS   valorDecimal `xml:"vICMS"`
	VIPI    valorDecimal `xml:"vIPI"`
	VPIS    valorDecimal `xml:"vPIS"`
	VCOFINS valorDecimal `xml:"vCOFINS"`
	VFrete  valorDecimal `xml:"vFrete"`
	VSeg    valorDecimal `xml:"vSeg"`
	VDesc   valorDecimal `xml:"vDesc"`
	VOutro  valorDecimal `xml:"vOutro"`
}

type detXML struct {
	NItem   string      `xml:"nItem,attr"`
	Prod    prodXML     `xml:"prod"`
	Imposto *impostoXML `xml:"imposto"`
}

type prodXML struct {
	CProd  string       `xml:"cProd"`
	XProd  string       `xml:"xProd"`
	NCM    string       `xml:"NCM"`
	CFOP   string       `xml:"CFOP"`
	UCom   string       `xml:"uCom"`
	QCom   valorDecimal `xml:"qCom"`
	VUnCom valorDecimal `xml:"vUnCom"`
	VProd  valorDecimal `xml:"vProd"`
}

type impostoXML struct {
	ICMS   *grupoImpostoXML `xml:"ICMS"`
	IPI    *grupoImpostoXML `xml:"IPI"`
	PIS    *grupoImpostoXML `xml:"PIS"`
	COFINS *grupoImpostoXML `xml:"COFINS"`
}

// grupoImpostoXML covers the regime-specific children each tax group nests
// its values in (ICMS00/ICMS40/IPITrib/PISAliq and friends). The regime
// element names vary, so they are captured generically and the populated one
// is picked out afterwards.
type grupoImpostoXML struct {
	Regimes []regimeXML `xml:",any"`
}

type regimeXML struct {
	CST     string       `xml:"CST"`
	CSOSN   string       `xml:"CSOSN"`
	VICMS   valorDecimal `xml:"vICMS"`
	VIPI    valorDecimal `xml:"vIPI"`
	VPIS    valorDecimal `xml:"vPIS"`
	VCOFINS valorDecimal `xml:"vCOFINS"`
}

// regime returns the tax-situation code and values of the populated regime
// child. Simple-text children like cEnq decode into empty regimes and are
// skipped.
func (g *grupoImpostoXML) regime() regimeXML {
	if g == nil {
		return regimeXML{}
	}
	for _, r := range g.Regimes {
		if r.CST != "" || r.CSOSN != "" || r.VICMS != 0 || r.VIPI != 0 || r.VPIS != 0 || r.VCOFINS != 0 {
			if r.CST == "" {
				r.CST = r.CSOSN
			}
			return r
		}
	}
	return regimeXML{}
}

type infAdicXML struct {
	InfCpl string `xml:"infCpl"`
}

// Parse extracts the normalized header and the ordered item list from a raw
// NFe document. Absence of any required block aborts with a StructuralError
// and no output, duplicating the validator's guarantee as defense in depth.
// The returned header has no generated identifier and no status; both are the
// persistence orchestrator's responsibility.
func Parse(raw []byte, opts ParseOptions) (*models.NotaFiscal, error) {
	var doc documentoXML
	if err := xml.Unmarshal(raw, &doc); err != nil {
		return nil, &models.StructuralError{Cause: err}
	}

	inf := doc.infNFe()
	if inf == nil {
		return nil, &models.StructuralError{MissingBlock: "infNFe"}
	}
	if inf.Ide == nil {
		return nil, &models.StructuralError{MissingBlock: "ide"}
	}
	if inf.Emit == nil {
		return nil, &models.StructuralError{MissingBlock: "emit"}
	}
	if inf.Total == nil || inf.Total.ICMSTot == nil {
		return nil, &models.StructuralError{MissingBlock: "total"}
	}
	if len(inf.Det) == 0 {
		return nil, &models.StructuralError{MissingBlock: "det"}
	}

	tot := inf.Total.ICMSTot
	nota := &models.NotaFiscal{
		Numero:        inf.Ide.NNF,
		Serie:         inf.Ide.Serie,
		ChaveAcesso:   strings.TrimPrefix(inf.ID, chavePrefixo),
		CNPJEmitente:  documentoEmitente(inf.Emit),
		NomeEmitente:  inf.Emit.XNome,
		DataEmissao:   parseDataEmissao(inf.Ide),
		ValorTotal:    float64(tot.VNF),
		ValorProdutos: float64(tot.VProd),
		ValorICMS:     float64(tot.VICMS),
		ValorIPI:      float64(tot.VIPI),
		ValorPIS:      float64(tot.VPIS),
		ValorCOFINS:   float64(tot.VCOFINS),
		ValorFrete:    float64(tot.VFrete),
		ValorSeguro:   float64(tot.VSeg),
		ValorDesconto: float64(tot.VDesc),
		ValorOutros:   float64(tot.VOutro),
		Tipo:          tipoOperacao(inf.Ide.TpNF, opts.TipoOverride),
	}

	if inf.InfAdic != nil {
		nota.Observacoes = strings.TrimSpace(inf.InfAdic.InfCpl)
	}

	nota.Itens = make([]models.ItemNota, 0, len(inf.Det))
	for i, det := range inf.Det {
		nota.Itens = append(nota.Itens, parseItem(det, i))
	}

	return nota, nil
}

func parseItem(det detXML, indice int) models.ItemNota {
	item := models.ItemNota{
		NumeroItem:    numeroItem(det.NItem, indice),
		CodigoProduto: det.Prod.CProd,
		Descricao:     det.Prod.XProd,
		NCM:           det.Prod.NCM,
		CFOP:          det.Prod.CFOP,
		Unidade:       det.Prod.UCom,
		Quantidade:    float64(det.Prod.QCom),
		ValorUnitario: float64(det.Prod.VUnCom),
		ValorTotal:    float64(det.Prod.VProd),
	}

	// Each tax sub-block is optional; a missing one leaves zero value and
	// empty tax-situation code on the item, never a failure.
	if det.Imposto != nil {
		icms := det.Imposto.ICMS.regime()
		item.CSTICMS = icms.CST
		item.ValorICMS = float64(icms.VICMS)

		ipi := det.Imposto.IPI.regime()
		item.CSTIPI = ipi.CST
		item.ValorIPI = float64(ipi.VIPI)

		pis := det.Imposto.PIS.regime()
		item.CSTPIS = pis.CST
		item.ValorPIS = float64(pis.VPIS)

		cofins := det.Imposto.COFINS.regime()
		item.CSTCOFINS = cofins.CST
		item.ValorCOFINS = float64(cofins.VCOFINS)
	}

	return item
}

// numeroItem keeps the declared sequence number, falling back to the
// positional index plus one when the attribute is absent.
func numeroItem(nItem string, indice int) int {
	if n, err := strconv.Atoi(strings.TrimSpace(nItem)); err == nil {
		return n
	}
	return indice + 1
}

// tipoOperacao derives the operation type from the coded tpNF field: 0 is an
// inbound movement, anything else outbound. An explicit override wins.
func tipoOperacao(tpNF, override string) string {
	if override != "" {
		return override
	}
	if strings.TrimSpace(tpNF) == "0" {
		return models.TipoEntrada
	}
	return models.TipoSaida
}

func documentoEmitente(emit *emitXML) string {
	if emit.CNPJ != "" {
		return emit.CNPJ
	}
	return emit.CPF
}

// parseDataEmissao accepts both the RFC 3339 dhEmi of layout 4 documents and
// the date-only dEmi of older layouts. Unparseable dates stay zero.
func parseDataEmissao(ide *ideXML) time.Time {
	if ide.DhEmi != "" {
		if t, err := time.Parse(time.RFC3339, ide.DhEmi); err == nil {
			return t
		}
	}
	if ide.DEmi != "" {
		if t, err := time.Parse("2006-01-02", ide.DEmi); err == nil {
			return t
		}
	}
	return time.Time{}
}
