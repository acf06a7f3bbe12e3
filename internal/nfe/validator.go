package nfe

import "strings"

// The four structural markers every importable NFe must carry: the infNFe
// wrapper, the identification block, the issuer block and at least one item
// detail block.
var marcadoresObrigatorios = []string{"<infNFe", "<ide>", "<emit>", "<det"}

// ValidarEstrutura is the cheap fail-fast gate that runs before the full
// parse. It only probes for block presence; field values and counts are the
// parser's job. A false result must abort the import with no partial record.
func ValidarEstrutura(raw []byte) bool {
	doc := string(raw)
	for _, marcador := range marcadoresObrigatorios {
		if !strings.Contains(doc, marcador) {
			return false
		}
	}
	return true
}
