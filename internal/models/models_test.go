package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestPodeTransicionar(t *testing.T) {
	t.Run("should allow the documented transitions", func(t *testing.T) {
		assert.True(t, PodeTransicionar(StatusPendente, StatusProcessada))
		assert.True(t, PodeTransicionar(StatusPendente, StatusCancelada))
		assert.True(t, PodeTransicionar(StatusProcessada, StatusCancelada))

		// Rejection is reachable from anywhere.
		for _, de := range []string{StatusPendente, StatusProcessada, StatusCancelada, StatusRejeitada, StatusAtiva} {
			assert.True(t, PodeTransicionar(de, StatusRejeitada), de)
		}
	})

	t.Run("should refuse everything else", func(t *testing.T) {
		assert.False(t, PodeTransicionar(StatusProcessada, StatusProcessada))
		assert.False(t, PodeTransicionar(StatusCancelada, StatusProcessada))
		assert.False(t, PodeTransicionar(StatusCancelada, StatusCancelada))
		assert.False(t, PodeTransicionar(StatusRejeitada, StatusCancelada))
		// Ativa is written only by the legacy path.
		assert.False(t, PodeTransicionar(StatusPendente, StatusAtiva))
		assert.False(t, PodeTransicionar(StatusPendente, "Arquivada"))
	})
}

func TestLiterais(t *testing.T) {
	// The persisted literals are an external contract; a rename here would
	// corrupt the meaning of existing rows.
	assert.Equal(t, "Pendente", StatusPendente)
	assert.Equal(t, "Processada", StatusProcessada)
	assert.Equal(t, "Cancelada", StatusCancelada)
	assert.Equal(t, "Rejeitada", StatusRejeitada)
	assert.Equal(t, "Ativa", StatusAtiva)
	assert.Equal(t, "entrada", TipoEntrada)
	assert.Equal(t, "saida", TipoSaida)

	assert.True(t, TipoValido(TipoEntrada))
	assert.False(t, TipoValido("transferencia"))
	assert.True(t, StatusValido(StatusAtiva))
	assert.False(t, StatusValido("pendente"))
}
