package importer

import (
	"context"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/rs/zerolog"
)

// BatchResult is the outcome of one file in a directory import.
type BatchResult struct {
	Arquivo   string
	Resultado *ImportResult
	Err       error
}

// BatchImporter walks a directory of XML documents and imports each one,
// fanning the files out over a fixed pool of workers. Single-document
// semantics are untouched: each file runs the full pipeline on its own, and a
// duplicate or structural rejection of one file does not stop the batch.
type BatchImporter struct {
	service *Service
	workers int
	logger  zerolog.Logger
}

func NewBatchImporter(service *Service, workers int, logger zerolog.Logger) *BatchImporter {
	if workers < 1 {
		workers = 1
	}
	return &BatchImporter{service: service, workers: workers, logger: logger}
}

// ImportarDiretorio imports every .xml file under rootPath. Results come back
// sorted by file path so runs are comparable.
func (b *BatchImporter) ImportarDiretorio(ctx context.Context, rootPath string) ([]BatchResult, error) {
	paths, err := b.scanForFiles(rootPath)
	if err != nil {
		return nil, err
	}

	jobs := make(chan string)
	resultsChan := make(chan BatchResult)

	var wg sync.WaitGroup
	for w := 0; w < b.workers; w++ {
		wg.Add(1)
		go b.worker(ctx, &wg, jobs, resultsChan)
	}

	go func() {
		defer close(jobs)
		for _, path := range paths {
			select {
			case jobs <- path:
			case <-ctx.Done():
				return
			}
		}
	}()

	go func() {
		wg.Wait()
		close(resultsChan)
	}()

	results := make([]BatchResult, 0, len(paths))
	for res := range resultsChan {
		results = append(results, res)
	}

	sort.Slice(results, func(i, j int) bool { return results[i].Arquivo < results[j].Arquivo })
	return results, nil
}

func (b *BatchImporter) worker(ctx context.Context, wg *sync.WaitGroup, jobs <-chan string, results chan<- BatchResult) {
	defer wg.Done()
	for path := range jobs {
		raw, err := os.ReadFile(path)
		if err != nil {
			results <- BatchResult{Arquivo: path, Err: fmt.Errorf("reading %s: %w", path, err)}
			continue
		}

		res, err := b.service.Importar(ctx, raw, ImportOptions{CaminhoArquivo: path})
		if err != nil {
			b.logger.Warn().Err(err).Str("arquivo", path).Msg("file rejected")
		}
		results <- BatchResult{Arquivo: path, Resultado: res, Err: err}
	}
}

func (b *BatchImporter) scanForFiles(rootPath string) ([]string, error) {
	var paths []string
	err := filepath.WalkDir(rootPath, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() && strings.EqualFold(filepath.Ext(path), ".xml") {
			paths = append(paths, path)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("error walking directory %s: %w", rootPath, err)
	}

	b.logger.Info().Int("arquivos", len(paths)).Str("diretorio", rootPath).Msg("files found for import")
	return paths, nil
}
