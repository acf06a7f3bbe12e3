package database

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/frotaops/nfe-import/internal/models"
)

func ConnectDB(ctx context.Context, connStr string) (*pgxpool.Pool, error) {
	dbpool, err := pgxpool.New(ctx, connStr)
	if err != nil {
		return nil, fmt.Errorf("unable to connect to database: %w", err)
	}

	return dbpool, nil
}

type PostgresDBManager struct {
	dbpool *pgxpool.Pool
}

func NewPostgresDBManager(pool *pgxpool.Pool) *PostgresDBManager {
	return &PostgresDBManager{dbpool: pool}
}

// CreateNotasTables creates the documents and line-items tables. The UNIQUE
// constraint on chave_acesso is the authoritative duplicate guard; the
// application-level dedup check is only a fast path in front of it.
func (m *PostgresDBManager) CreateNotasTables(ctx context.Context) error {
	queries := []string{`
	CREATE TABLE IF NOT EXISTS notas_fiscais (
		id SERIAL PRIMARY KEY,
		numero VARCHAR(20) NOT NULL,
		serie VARCHAR(10),
		chave_acesso VARCHAR(44) NOT NULL UNIQUE,
		cnpj_emitente VARCHAR(14),
		nome_emitente VARCHAR(255),
		data_emissao TIMESTAMP,
		data_entrada TIMESTAMP,
		valor_total NUMERIC(15, 2) NOT NULL DEFAULT 0,
		valor_produtos NUMERIC(15, 2) NOT NULL DEFAULT 0,
		valor_icms NUMERIC(15, 2) NOT NULL DEFAULT 0,
		valor_ipi NUMERIC(15, 2) NOT NULL DEFAULT 0,
		valor_pis NUMERIC(15, 2) NOT NULL DEFAULT 0,
		valor_cofins NUMERIC(15, 2) NOT NULL DEFAULT 0,
		valor_frete NUMERIC(15, 2) NOT NULL DEFAULT 0,
		valor_seguro NUMERIC(15, 2) NOT NULL DEFAULT 0,
		valor_desconto NUMERIC(15, 2) NOT NULL DEFAULT 0,
		valor_outros NUMERIC(15, 2) NOT NULL DEFAULT 0,
		tipo VARCHAR(10) NOT NULL CHECK (tipo IN ('entrada', 'saida')),
		status VARCHAR(20) NOT NULL CHECK (status IN ('Pendente', 'Processada', 'Cancelada', 'Rejeitada', 'Ativa')),
		fornecedor_id INTEGER,
		observacoes TEXT,
		caminho_arquivo TEXT,
		checksum VARCHAR(64)
	);`, `
	CREATE TABLE IF NOT EXISTS itens_nota (
		id SERIAL PRIMARY KEY,
		nota_id INTEGER NOT NULL REFERENCES notas_fiscais(id) ON DELETE CASCADE,
		numero_item INTEGER NOT NULL,
		codigo_produto VARCHAR(60),
		descricao TEXT,
		ncm VARCHAR(8),
		cfop VARCHAR(4),
		unidade VARCHAR(6),
		quantidade NUMERIC(15, 4) NOT NULL DEFAULT 0,
		valor_unitario NUMERIC(15, 4) NOT NULL DEFAULT 0,
		valor_total NUMERIC(15, 2) NOT NULL DEFAULT 0,
		cst_icms VARCHAR(3),
		valor_icms NUMERIC(15, 2) NOT NULL DEFAULT 0,
		cst_ipi VARCHAR(3),
		valor_ipi NUMERIC(15, 2) NOT NULL DEFAULT 0,
		cst_pis VARCHAR(3),
		valor_pis NUMERIC(15, 2) NOT NULL DEFAULT 0,
		cst_cofins VARCHAR(3),
		valor_cofins NUMERIC(15, 2) NOT NULL DEFAULT 0,
		processado BOOLEAN NOT NULL DEFAULT FALSE
	);`, `
	CREATE INDEX IF NOT EXISTS idx_itens_nota_nota_id ON itens_nota (nota_id);`,
	}

	for _, query := range queries {
		if _, err := m.dbpool.Exec(ctx, query); err != nil {
			return fmt.Errorf("error creating fiscal document tables: %w", err)
		}
	}

	return nil
}

// InsertNota inserts the document header and returns the generated
// identifier. A unique constraint violation on chave_acesso is converted to
// DuplicateError: two concurrent imports can both pass the dedup gate, and
// the insert is where the store settles the race.
func (m *PostgresDBManager) InsertNota(ctx context.Context, nota *models.NotaFiscal) (int, error) {
	query := `
	INSERT INTO notas_fiscais (
		numero, serie, chave_acesso, cnpj_emitente, nome_emitente,
		data_emissao, data_entrada,
		valor_total, valor_produtos, valor_icms, valor_ipi, valor_pis, valor_cofins,
		valor_frete, valor_seguro, valor_desconto, valor_outros,
		tipo, status, fornecedor_id, observacoes, caminho_arquivo, checksum
	)
	VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19, $20, $21, $22, $23)
	RETURNING id;`

	var notaID int
	err := m.dbpool.QueryRow(ctx, query,
		nota.Numero, nota.Serie, nota.ChaveAcesso, nota.CNPJEmitente, nota.NomeEmitente,
		nota.DataEmissao, nota.DataEntrada,
		nota.ValorTotal, nota.ValorProdutos, nota.ValorICMS, nota.ValorIPI, nota.ValorPIS, nota.ValorCOFINS,
		nota.ValorFrete, nota.ValorSeguro, nota.ValorDesconto, nota.ValorOutros,
		nota.Tipo, nota.Status, nota.FornecedorID, nota.Observacoes, nota.CaminhoArquivo, nota.Checksum,
	).Scan(&notaID)
	if err != nil {
		if isUniqueViolation(err) {
			return 0, &models.DuplicateError{ChaveAcesso: nota.ChaveAcesso}
		}
		return 0, fmt.Errorf("error inserting nota fiscal: %w", err)
	}

	return notaID, nil
}

func (m *PostgresDBManager) InsertItem(ctx context.Context, item *models.ItemNota) error {
	query := `
	INSERT INTO itens_nota (
		nota_id, numero_item, codigo_produto, descricao, ncm, cfop, unidade,
		quantidade, valor_unitario, valor_total,
		cst_icms, valor_icms, cst_ipi, valor_ipi, cst_pis, valor_pis, cst_cofins, valor_cofins,
		processado
	)
	VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19);`

	_, err := m.dbpool.Exec(ctx, query,
		item.NotaID, item.NumeroItem, item.CodigoProduto, item.Descricao, item.NCM, item.CFOP, item.Unidade,
		item.Quantidade, item.ValorUnitario, item.ValorTotal,
		item.CSTICMS, item.ValorICMS, item.CSTIPI, item.ValorIPI, item.CSTPIS, item.ValorPIS, item.CSTCOFINS, item.ValorCOFINS,
		item.Processado,
	)
	if err != nil {
		return fmt.Errorf("error inserting item %d of nota %d: %w", item.NumeroItem, item.NotaID, err)
	}

	return nil
}

const notaColunas = `
	id, numero, serie, chave_acesso, cnpj_emitente, nome_emitente,
	data_emissao, data_entrada,
	valor_total, valor_produtos, valor_icms, valor_ipi, valor_pis, valor_cofins,
	valor_frete, valor_seguro, valor_desconto, valor_outros,
	tipo, status, fornecedor_id, observacoes, caminho_arquivo, checksum`

// FindNotaByChaveAcesso returns the stored document with the given access
// key, or (nil, nil) when none exists. Any other failure is returned as an
// error so the caller can fail closed instead of treating it as "not found".
func (m *PostgresDBManager) FindNotaByChaveAcesso(ctx context.Context, chaveAcesso string) (*models.NotaFiscal, error) {
	query := fmt.Sprintf(`SELECT %s FROM notas_fiscais WHERE chave_acesso = $1;`, notaColunas)

	nota, err := scanNota(m.dbpool.QueryRow(ctx, query, chaveAcesso))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("error finding nota by chave de acesso: %w", err)
	}

	return nota, nil
}

func (m *PostgresDBManager) GetNota(ctx context.Context, id int) (*models.NotaFiscal, error) {
	query := fmt.Sprintf(`SELECT %s FROM notas_fiscais WHERE id = $1;`, notaColunas)

	nota, err := scanNota(m.dbpool.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("error finding nota %d: %w", id, err)
	}

	return nota, nil
}

// ListNotas bulk-selects every stored header for the read-side aggregation.
// Items are not loaded; the summary only needs header fields.
func (m *PostgresDBManager) ListNotas(ctx context.Context) ([]models.NotaFiscal, error) {
	query := fmt.Sprintf(`SELECT %s FROM notas_fiscais ORDER BY id;`, notaColunas)

	rows, err := m.dbpool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("error listing notas: %w", err)
	}
	defer rows.Close()

	var notas []models.NotaFiscal
	for rows.Next() {
		nota, err := scanNota(rows)
		if err != nil {
			return nil, fmt.Errorf("error scanning nota: %w", err)
		}
		notas = append(notas, *nota)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating over notas: %w", err)
	}

	return notas, nil
}

func (m *PostgresDBManager) ListItens(ctx context.Context, notaID int) ([]models.ItemNota, error) {
	query := `
	SELECT id, nota_id, numero_item, codigo_produto, descricao, ncm, cfop, unidade,
		quantidade, valor_unitario, valor_total,
		cst_icms, valor_icms, cst_ipi, valor_ipi, cst_pis, valor_pis, cst_cofins, valor_cofins,
		processado
	FROM itens_nota
	WHERE nota_id = $1
	ORDER BY numero_item, id;`

	rows, err := m.dbpool.Query(ctx, query, notaID)
	if err != nil {
		return nil, fmt.Errorf("error listing itens of nota %d: %w", notaID, err)
	}
	defer rows.Close()

	var itens []models.ItemNota
	for rows.Next() {
		var item models.ItemNota
		err := rows.Scan(
			&item.ID, &item.NotaID, &item.NumeroItem, &item.CodigoProduto, &item.Descricao,
			&item.NCM, &item.CFOP, &item.Unidade,
			&item.Quantidade, &item.ValorUnitario, &item.ValorTotal,
			&item.CSTICMS, &item.ValorICMS, &item.CSTIPI, &item.ValorIPI,
			&item.CSTPIS, &item.ValorPIS, &item.CSTCOFINS, &item.ValorCOFINS,
			&item.Processado,
		)
		if err != nil {
			return nil, fmt.Errorf("error scanning item: %w", err)
		}
		itens = append(itens, item)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating over itens: %w", err)
	}

	return itens, nil
}

func (m *PostgresDBManager) UpdateNotaStatus(ctx context.Context, id int, status string, dataEntrada *time.Time) error {
	query := `
	UPDATE notas_fiscais
	SET status = $1,
		data_entrada = COALESCE($2, data_entrada)
	WHERE id = $3;`

	tag, err := m.dbpool.Exec(ctx, query, status, dataEntrada, id)
	if err != nil {
		return fmt.Errorf("error updating status of nota %d: %w", id, err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("nota %d not found", id)
	}

	return nil
}

// DeleteNota removes a document header; its items go with it via the foreign
// key cascade.
func (m *PostgresDBManager) DeleteNota(ctx context.Context, id int) error {
	_, err := m.dbpool.Exec(ctx, `DELETE FROM notas_fiscais WHERE id = $1;`, id)
	if err != nil {
		return fmt.Errorf("error deleting nota %d: %w", id, err)
	}

	return nil
}

func scanNota(row pgx.Row) (*models.NotaFiscal, error) {
	var nota models.NotaFiscal
	err := row.Scan(
		&nota.ID, &nota.Numero, &nota.Serie, &nota.ChaveAcesso, &nota.CNPJEmitente, &nota.NomeEmitente,
		&nota.DataEmissao, &nota.DataEntrada,
		&nota.ValorTotal, &nota.ValorProdutos, &nota.ValorICMS, &nota.ValorIPI, &nota.ValorPIS, &nota.ValorCOFINS,
		&nota.ValorFrete, &nota.ValorSeguro, &nota.ValorDesconto, &nota.ValorOutros,
		&nota.Tipo, &nota.Status, &nota.FornecedorID, &nota.Observacoes, &nota.CaminhoArquivo, &nota.Checksum,
	)
	if err != nil {
		return nil, err
	}
	return &nota, nil
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}
