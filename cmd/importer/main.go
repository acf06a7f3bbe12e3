package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/frotaops/nfe-import/internal/aggregation"
	"github.com/frotaops/nfe-import/internal/config"
	"github.com/frotaops/nfe-import/internal/database"
	"github.com/frotaops/nfe-import/internal/importer"
	"github.com/frotaops/nfe-import/internal/logger"
	"github.com/frotaops/nfe-import/internal/models"
)

var (
	cfgFile      string
	tipoOverride string
	fornecedorID int
	numWorkers   int
)

func main() {
	if err := rootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func rootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:          "nfe-import",
		Short:        "Importa notas fiscais eletrônicas para a base da frota",
		SilenceUsage: true,
	}
	root.PersistentFlags().StringVar(&cfgFile, "config", "", "caminho do arquivo de configuração YAML")

	importCmd := &cobra.Command{
		Use:   "import [arquivo.xml | diretório]",
		Short: "Importa um arquivo XML de NFe ou todos os XML de um diretório",
		Args:  cobra.ExactArgs(1),
		RunE:  runImport,
	}
	importCmd.Flags().StringVar(&tipoOverride, "tipo", "", "força o tipo de operação ('entrada' ou 'saida') ignorando o tpNF do documento")
	importCmd.Flags().IntVar(&fornecedorID, "fornecedor", 0, "vincula a nota a um fornecedor")
	importCmd.Flags().IntVar(&numWorkers, "workers", 0, "número de workers na importação de diretório")

	setupCmd := &cobra.Command{
		Use:   "setup",
		Short: "Cria as tabelas de notas fiscais e itens",
		Args:  cobra.NoArgs,
		RunE:  runSetup,
	}

	resumoCmd := &cobra.Command{
		Use:   "resumo",
		Short: "Imprime o resumo agregado das notas armazenadas",
		Args:  cobra.NoArgs,
		RunE:  runResumo,
	}

	root.AddCommand(importCmd, setupCmd, resumoCmd)
	return root
}

func setup(ctx context.Context) (*config.Config, database.DBManager, func(), error) {
	log := logger.New()
	if err := godotenv.Load(); err != nil {
		log.Debug().Err(err).Msg("could not load .env file")
	}

	var cfg *config.Config
	var err error
	if cfgFile != "" {
		cfg, err = config.NewFromFile(cfgFile)
	} else {
		cfg, err = config.New()
	}
	if err != nil {
		return nil, nil, nil, fmt.Errorf("failed to load config: %w", err)
	}

	dbpool, err := database.ConnectDB(ctx, cfg.DatabaseURL)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("unable to connect to database: %w", err)
	}

	return cfg, database.NewPostgresDBManager(dbpool), dbpool.Close, nil
}

func runSetup(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	_, dbManager, cleanup, err := setup(ctx)
	if err != nil {
		return err
	}
	defer cleanup()

	if err := dbManager.CreateNotasTables(ctx); err != nil {
		return err
	}

	log := logger.New()
	log.Info().Msg("tables created")
	return nil
}

func runImport(cmd *cobra.Command, args []string) error {
	if tipoOverride != "" && !models.TipoValido(tipoOverride) {
		return fmt.Errorf("--tipo deve ser '%s' ou '%s'", models.TipoEntrada, models.TipoSaida)
	}

	ctx := cmd.Context()
	cfg, dbManager, cleanup, err := setup(ctx)
	if err != nil {
		return err
	}
	defer cleanup()

	log := logger.New()
	service := importer.NewService(dbManager, log)

	info, err := os.Stat(args[0])
	if err != nil {
		return err
	}

	start := time.Now()
	if info.IsDir() {
		workers := numWorkers
		if workers <= 0 {
			workers = cfg.NumImportWorkers
		}
		batch := importer.NewBatchImporter(service, workers, log)
		results, err := batch.ImportarDiretorio(ctx, args[0])
		if err != nil {
			return err
		}

		importadas, rejeitadas := 0, 0
		for _, res := range results {
			if res.Err != nil {
				rejeitadas++
				continue
			}
			importadas++
		}
		log.Info().
			Int("importadas", importadas).
			Int("rejeitadas", rejeitadas).
			Dur("duracao", time.Since(start)).
			Msg("directory import finished")
		return nil
	}

	raw, err := os.ReadFile(args[0])
	if err != nil {
		return err
	}

	opts := importer.ImportOptions{TipoOverride: tipoOverride, CaminhoArquivo: args[0]}
	if fornecedorID > 0 {
		opts.FornecedorID = &fornecedorID
	}

	result, err := service.Importar(ctx, raw, opts)
	if err != nil {
		var duplicada *models.DuplicateError
		if errors.As(err, &duplicada) {
			return fmt.Errorf("nota já importada (chave %s)", duplicada.ChaveAcesso)
		}
		return err
	}

	log.Info().
		Int("nota_id", result.NotaID).
		Int("itens_gravados", result.ItensGravados).
		Dur("duracao", time.Since(start)).
		Msg("import finished")
	return nil
}

func runResumo(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	_, dbManager, cleanup, err := setup(ctx)
	if err != nil {
		return err
	}
	defer cleanup()

	notas, err := dbManager.ListNotas(ctx)
	if err != nil {
		return err
	}

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(aggregation.Resumir(notas))
}
