package importer

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"

	"github.com/frotaops/nfe-import/internal/logger"
	"github.com/frotaops/nfe-import/internal/models"
)

const chaveTeste = "35200714200166000187550010000000046550000046"

const notaXML = `<?xml version="1.0" encoding="UTF-8"?>
<nfeProc>
 <NFe>
  <infNFe Id="NFe` + chaveTeste + `">
   <ide><serie>1</serie><nNF>4655</nNF><dhEmi>2020-07-10T10:30:00-03:00</dhEmi><tpNF>0</tpNF></ide>
   <emit><CNPJ>14200166000187</CNPJ><xNome>Distribuidora de Pecas Ltda</xNome></emit>
   <det nItem="1"><prod><cProd>P001</cProd><xProd>Filtro de oleo</xProd><qCom>10</qCom><vUnCom>70.00</vUnCom><vProd>700.00</vProd></prod></det>
   <det nItem="2"><prod><cProd>P002</cProd><xProd>Pastilha de freio</xProd><qCom>2</qCom><vUnCom>350.00</vUnCom><vProd>700.00</vProd></prod></det>
   <total><ICMSTot><vProd>1400.00</vProd><vNF>1500.00</vNF></ICMSTot></total>
  </infNFe>
 </NFe>
</nfeProc>`

// MockDBManager is a mock implementation of the database.DBManager interface.
type MockDBManager struct {
	mock.Mock
}

func (m *MockDBManager) CreateNotasTables(ctx context.Context) error {
	args := m.Called(ctx)
	return args.Error(0)
}

func (m *MockDBManager) InsertNota(ctx context.Context, nota *models.NotaFiscal) (int, error) {
	args := m.Called(ctx, nota)
	return args.Int(0), args.Error(1)
}

func (m *MockDBManager) InsertItem(ctx context.Context, item *models.ItemNota) error {
	args := m.Called(ctx, item)
	return args.Error(0)
}

func (m *MockDBManager) FindNotaByChaveAcesso(ctx context.Context, chaveAcesso string) (*models.NotaFiscal, error) {
	args := m.Called(ctx, chaveAcesso)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.NotaFiscal), args.Error(1)
}

func (m *MockDBManager) GetNota(ctx context.Context, id int) (*models.NotaFiscal, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.NotaFiscal), args.Error(1)
}

func (m *MockDBManager) ListNotas(ctx context.Context) ([]models.NotaFiscal, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.NotaFiscal), args.Error(1)
}

func (m *MockDBManager) ListItens(ctx context.Context, notaID int) ([]models.ItemNota, error) {
	args := m.Called(ctx, notaID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.ItemNota), args.Error(1)
}

func (m *MockDBManager) UpdateNotaStatus(ctx context.Context, id int, status string, dataEntrada *time.Time) error {
	args := m.Called(ctx, id, status, dataEntrada)
	return args.Error(0)
}

func (m *MockDBManager) DeleteNota(ctx context.Context, id int) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

func newTestService(db *MockDBManager) *Service {
	return NewService(db, logger.NewWithWriter(nil))
}

func TestService_Importar(t *testing.T) {
	ctx := context.Background()

	t.Run("should import a well-formed document", func(t *testing.T) {
		db := new(MockDBManager)
		db.On("FindNotaByChaveAcesso", ctx, chaveTeste).Return(nil, nil)
		db.On("InsertNota", ctx, mock.AnythingOfType("*models.NotaFiscal")).Return(42, nil)
		db.On("InsertItem", ctx, mock.AnythingOfType("*models.ItemNota")).Return(nil)

		result, err := newTestService(db).Importar(ctx, []byte(notaXML), ImportOptions{CaminhoArquivo: "/dados/nfe/4655.xml"})

		assert.NoError(t, err)
		assert.Equal(t, 42, result.NotaID)
		assert.Equal(t, chaveTeste, result.ChaveAcesso)
		assert.Equal(t, 2, result.Itens)
		assert.Equal(t, 2, result.ItensGravados)
		assert.Zero(t, result.ItensComFalha)

		inserted := db.Calls[1].Arguments.Get(1).(*models.NotaFiscal)
		assert.Equal(t, models.StatusPendente, inserted.Status)
		assert.NotNil(t, inserted.DataEntrada)
		assert.Equal(t, "/dados/nfe/4655.xml", inserted.CaminhoArquivo)
		assert.NotEmpty(t, inserted.Checksum)
		db.AssertNumberOfCalls(t, "InsertItem", 2)
	})

	t.Run("should reject input without the required markers before touching the store", func(t *testing.T) {
		db := new(MockDBManager)

		result, err := newTestService(db).Importar(ctx, []byte("<xml>nada</xml>"), ImportOptions{})

		assert.Nil(t, result)
		var estrutural *models.StructuralError
		assert.ErrorAs(t, err, &estrutural)
		db.AssertNotCalled(t, "FindNotaByChaveAcesso")
		db.AssertNotCalled(t, "InsertNota")
	})

	t.Run("should reject a duplicate found by the pre-check with no writes", func(t *testing.T) {
		db := new(MockDBManager)
		db.On("FindNotaByChaveAcesso", ctx, chaveTeste).Return(&models.NotaFiscal{ID: 7, ChaveAcesso: chaveTeste}, nil)

		result, err := newTestService(db).Importar(ctx, []byte(notaXML), ImportOptions{})

		assert.Nil(t, result)
		var duplicada *models.DuplicateError
		assert.ErrorAs(t, err, &duplicada)
		assert.Equal(t, chaveTeste, duplicada.ChaveAcesso)
		db.AssertNotCalled(t, "InsertNota")
	})

	t.Run("should fail closed when the dedup query errors", func(t *testing.T) {
		db := new(MockDBManager)
		db.On("FindNotaByChaveAcesso", ctx, chaveTeste).Return(nil, errors.New("connection refused"))

		result, err := newTestService(db).Importar(ctx, []byte(notaXML), ImportOptions{})

		assert.Nil(t, result)
		assert.Error(t, err)
		var duplicada *models.DuplicateError
		assert.False(t, errors.As(err, &duplicada))
		db.AssertNotCalled(t, "InsertNota")
	})

	t.Run("should surface the constraint violation as the canonical duplicate", func(t *testing.T) {
		db := new(MockDBManager)
		db.On("FindNotaByChaveAcesso", ctx, chaveTeste).Return(nil, nil)
		db.On("InsertNota", ctx, mock.AnythingOfType("*models.NotaFiscal")).
			Return(0, &models.DuplicateError{ChaveAcesso: chaveTeste})

		result, err := newTestService(db).Importar(ctx, []byte(notaXML), ImportOptions{})

		assert.Nil(t, result)
		var duplicada *models.DuplicateError
		assert.ErrorAs(t, err, &duplicada)
		db.AssertNotCalled(t, "InsertItem")
	})

	t.Run("should abort when the header write fails", func(t *testing.T) {
		db := new(MockDBManager)
		db.On("FindNotaByChaveAcesso", ctx, chaveTeste).Return(nil, nil)
		db.On("InsertNota", ctx, mock.AnythingOfType("*models.NotaFiscal")).Return(0, errors.New("disk full"))

		result, err := newTestService(db).Importar(ctx, []byte(notaXML), ImportOptions{})

		assert.Nil(t, result)
		assert.Error(t, err)
		db.AssertNotCalled(t, "InsertItem")
	})

	t.Run("should keep the header and report success when item writes fail", func(t *testing.T) {
		db := new(MockDBManager)
		db.On("FindNotaByChaveAcesso", ctx, chaveTeste).Return(nil, nil)
		db.On("InsertNota", ctx, mock.AnythingOfType("*models.NotaFiscal")).Return(42, nil)
		db.On("InsertItem", ctx, mock.MatchedBy(func(item *models.ItemNota) bool {
			return item.NumeroItem == 1
		})).Return(nil)
		db.On("InsertItem", ctx, mock.MatchedBy(func(item *models.ItemNota) bool {
			return item.NumeroItem == 2
		})).Return(errors.New("write timeout"))

		result, err := newTestService(db).Importar(ctx, []byte(notaXML), ImportOptions{})

		assert.NoError(t, err)
		assert.Equal(t, 42, result.NotaID)
		assert.Equal(t, 1, result.ItensGravados)
		assert.Equal(t, 1, result.ItensComFalha)
	})

	t.Run("should pass the tipo override through to the parsed header", func(t *testing.T) {
		db := new(MockDBManager)
		db.On("FindNotaByChaveAcesso", ctx, chaveTeste).Return(nil, nil)
		db.On("InsertNota", ctx, mock.MatchedBy(func(nota *models.NotaFiscal) bool {
			return nota.Tipo == models.TipoSaida
		})).Return(42, nil)
		db.On("InsertItem", ctx, mock.AnythingOfType("*models.ItemNota")).Return(nil)

		// tpNF in the fixture says entrada; the caller knows better.
		_, err := newTestService(db).Importar(ctx, []byte(notaXML), ImportOptions{TipoOverride: models.TipoSaida})

		assert.NoError(t, err)
		db.AssertExpectations(t)
	})
}
