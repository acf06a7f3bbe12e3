package models

import "fmt"

// StructuralError reports raw input that cannot be read as an NFe document,
// either because a required block is missing or the XML itself is unreadable.
// It is always raised before any write, so it never leaves partial state.
type StructuralError struct {
	MissingBlock string
	Cause        error
}

func (e *StructuralError) Error() string {
	if e.MissingBlock != "" {
		return fmt.Sprintf("nota fiscal sem bloco obrigatório <%s>", e.MissingBlock)
	}
	if e.Cause != nil {
		return fmt.Sprintf("XML da nota fiscal inválido: %v", e.Cause)
	}
	return "documento não contém a estrutura mínima de uma NFe"
}

func (e *StructuralError) Unwrap() error { return e.Cause }

// DuplicateError reports an import whose access key is already stored. It is
// raised by the pre-insert lookup or converted from the store's unique
// constraint violation, which is the authoritative signal.
type DuplicateError struct {
	ChaveAcesso string
}

func (e *DuplicateError) Error() string {
	return fmt.Sprintf("nota fiscal com chave de acesso %s já importada", e.ChaveAcesso)
}
