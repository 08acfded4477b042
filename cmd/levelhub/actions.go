package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/gorilla/websocket"
	"github.com/urfave/cli/v3"

	"levelhub/internal/analyzer"
	"levelhub/internal/catalog"
	"levelhub/internal/indexer"
	"levelhub/internal/merger"
	"levelhub/internal/report"
	"levelhub/pkg/database"
	"levelhub/pkg/logging"
	"levelhub/pkg/models"
	"levelhub/pkg/utils"
)

func setup(cmd *cli.Command, verbose bool) (*utils.Config, logging.Logger, error) {
	level := slog.LevelInfo
	if verbose {
		level = slog.LevelDebug
	}
	log := logging.New(logging.Config{Level: level, Format: "text"})

	cfg, err := utils.Load(cmd.String("env"))
	if err != nil {
		return nil, nil, err
	}
	if out := cmd.String("output"); out != "" {
		cfg.OutputDir = out
	}
	return cfg, log, nil
}

func indexAction(ctx context.Context, cmd *cli.Command) error {
	cfg, log, err := setup(cmd, false)
	if err != nil {
		return err
	}
	if n := cmd.Int("max"); n > 0 {
		cfg.Indexer.MaxItems = int(n)
	}
	if n := cmd.Int("workers"); n > 0 {
		cfg.Indexer.Workers = int(n)
	}

	var kinds []models.LevelSource
	if sel := cmd.String("source"); sel == "all" {
		kinds = models.IndexedSources
	} else {
		kind := models.LevelSource(sel)
		if !kind.Valid() || kind == models.SourceMerged {
			return fmt.Errorf("unknown source %q", sel)
		}
		kinds = []models.LevelSource{kind}
	}

	db, err := database.Open(database.Config{Path: cfg.SeenDBPath})
	if err != nil {
		return err
	}
	defer db.Close()
	if err := database.Migrate(db); err != nil {
		return err
	}
	seen := database.NewSeenStore(db)

	for _, kind := range kinds {
		src, err := indexer.BuildSource(log, nil, cfg, kind)
		if err != nil {
			return err
		}

		runner := indexer.NewRunner(log, nil, seen, cfg.OutputDir)
		runner.Workers = cfg.Indexer.Workers
		runner.MaxItems = cfg.Indexer.MaxItems

		result, err := runner.Run(ctx, src)
		if err != nil {
			// one broken source should not kill the other runs
			log.Error("indexer run aborted", "source", kind, "error", err)
		}
		if result != nil {
			fmt.Printf("%s: processed %d, skipped %d, errors %d in %s\n",
				kind, result.LevelsProcessed, result.LevelsSkipped, len(result.Errors), result.Duration)
		}
	}

	scanner := catalog.NewScanner(log)
	idx, err := scanner.ScanIndex(cfg.OutputDir)
	if err != nil {
		return err
	}
	if err := catalog.Save(cfg.OutputDir, idx); err != nil {
		return err
	}
	fmt.Printf("catalog: %d levels across %d sources\n", idx.TotalLevels, len(idx.Sources))
	return nil
}

func analyzeAction(ctx context.Context, cmd *cli.Command) error {
	cfg, log, err := setup(cmd, cmd.Bool("details"))
	if err != nil {
		return err
	}

	idx, err := catalog.Load(cfg.OutputDir)
	if err != nil {
		return err
	}

	if filter := cmd.String("sources"); filter != "" {
		idx = filterCatalog(idx, strings.Split(filter, ","))
	}

	a := analyzer.New(log)
	rep := a.Analyze(idx)

	format := cmd.String("format")
	if format == "console" || format == "all" {
		fmt.Print(report.RenderAnalysisConsole(rep, cmd.Bool("details")))
	}
	if format == "json" || format == "all" {
		path, err := report.WriteDuplicateJSON(cfg.OutputDir, rep)
		if err != nil {
			return err
		}
		fmt.Printf("wrote %s\n", path)
	}
	if format == "html" || format == "all" {
		path, err := report.WriteDuplicateHTML(cfg.OutputDir, rep)
		if err != nil {
			return err
		}
		fmt.Printf("wrote %s\n", path)
	}
	return nil
}

func filterCatalog(idx *models.CatalogIndex, sources []string) *models.CatalogIndex {
	want := make(map[models.LevelSource]bool)
	for _, s := range sources {
		want[models.LevelSource(strings.TrimSpace(s))] = true
	}

	var kept []models.Level
	for _, lvl := range idx.Levels {
		if want[lvl.Metadata.Source] {
			kept = append(kept, lvl)
		}
	}
	return catalog.Build(kept)
}

func mergeAction(ctx context.Context, cmd *cli.Command) error {
	cfg, log, err := setup(cmd, cmd.Bool("verbose"))
	if err != nil {
		return err
	}

	lm := merger.NewLevelMerger(log)
	lm.DryRun = cmd.Bool("dry-run")

	result, err := lm.Run(cfg.OutputDir)
	if err != nil {
		return err
	}

	fmt.Print(report.RenderMergeSummaryMD(result))
	return nil
}

func watchAction(ctx context.Context, cmd *cli.Command) error {
	addr := cmd.String("addr")
	url := "ws://" + addr + "/ws/progress"

	ws, _, err := websocket.DefaultDialer.DialContext(ctx, url, nil)
	if err != nil {
		return fmt.Errorf("dial %s: %w", url, err)
	}
	defer ws.Close()

	fmt.Fprintf(os.Stderr, "connected to %s\n", url)

	go func() {
		<-ctx.Done()
		_ = ws.Close()
	}()

	for {
		_, msg, err := ws.ReadMessage()
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			return err
		}

		var obj map[string]any
		if err := json.Unmarshal(msg, &obj); err != nil {
			fmt.Println(string(msg))
			continue
		}
		b, _ := json.MarshalIndent(obj, "", "  ")
		fmt.Println(string(b))
	}
}
