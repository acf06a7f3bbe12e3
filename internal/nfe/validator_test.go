package nfe

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestValidarEstrutura(t *testing.T) {
	t.Run("should accept a document carrying all four markers", func(t *testing.T) {
		assert.True(t, ValidarEstrutura([]byte(notaCompleta)))
	})

	t.Run("should reject a document missing any marker", func(t *testing.T) {
		casos := map[string]string{
			"sem infNFe": "<infNFe",
			"sem ide":    "<ide>",
			"sem emit":   "<emit>",
			"sem det":    "<det",
		}

		for nome, marcador := range casos {
			t.Run(nome, func(t *testing.T) {
				doc := strings.ReplaceAll(notaCompleta, marcador, "<removido")
				assert.False(t, ValidarEstrutura([]byte(doc)))
			})
		}
	})

	t.Run("should reject empty input", func(t *testing.T) {
		assert.False(t, ValidarEstrutura(nil))
	})

	t.Run("should not inspect field values", func(t *testing.T) {
		// Presence of the markers is enough; garbage content is the
		// parser's problem.
		doc := `<infNFe><ide></ide><emit></emit><det></det>`
		assert.True(t, ValidarEstrutura([]byte(doc)))
	})
}
