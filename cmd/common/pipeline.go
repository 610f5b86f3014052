package common

import (
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/regwatch/regwatch/internal/analyze"
	"github.com/regwatch/regwatch/internal/changedetect"
	"github.com/regwatch/regwatch/internal/database"
	"github.com/regwatch/regwatch/internal/notify"
	"github.com/regwatch/regwatch/internal/pdftext"
	"github.com/regwatch/regwatch/internal/runner"
	"github.com/regwatch/regwatch/internal/sources"
	"github.com/regwatch/regwatch/internal/store"
)

// Pipeline bundles the wired application services used by the run,
// serve and simulate commands.
type Pipeline struct {
	DB           *sqlx.DB
	Store        *store.Store
	Orchestrator *runner.Orchestrator
}

// Close releases pipeline resources.
func (p *Pipeline) Close() error {
	if p.DB != nil {
		return p.DB.Close()
	}
	return nil
}

// BuildPipeline connects to the database and wires the crawler,
// extraction, analysis and notification stages into an orchestrator.
func BuildPipeline(deps CommandDeps) (*Pipeline, error) {
	cfg := deps.Config
	log := deps.Logger

	db, err := database.NewPostgresConnection(cfg.Database)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	st, err := store.New(db, cfg.Storage.ArtifactDir, log)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create store: %w", err)
	}

	detector := changedetect.NewDetector(st.PageHashes(), log)

	crawlers := []sources.Crawler{
		sources.NewFBRCrawler(cfg.Crawler, st, detector, log),
		sources.NewSECPCrawler(cfg.Crawler, st, log),
		sources.NewPCPCrawler(cfg.Crawler, st, log),
	}

	var ocr pdftext.OCRClient
	if cfg.OCR.Enabled {
		ocr = pdftext.NewHTTPOCRClient(cfg.OCR.BaseURL, cfg.OCR.Timeout)
	}
	extractor := pdftext.NewExtractor(pdftext.DefaultMaxChars, log)
	text := pdftext.NewPipeline(extractor, ocr, pdftext.DefaultMaxChars, log)

	var analyzer runner.Analyzer
	if cfg.Analyzer.Enabled && cfg.Analyzer.GatewayURL != "" {
		completer := analyze.NewGatewayClient(cfg.Analyzer.GatewayURL, cfg.Analyzer.Model, cfg.Analyzer.Timeout)
		analyzer = analyze.NewAnalyzer(completer, st, cfg.Analyzer.MaxPromptChars, log)
	} else {
		log.Info("analyzer disabled, documents will be stored without summaries")
	}

	notifier := notify.NewSMTPNotifier(cfg.SMTP, log)

	orch := runner.New(st, crawlers, text, analyzer, notifier, cfg.Runner.CrawlTimeout, log)

	return &Pipeline{
		DB:           db,
		Store:        st,
		Orchestrator: orch,
	}, nil
}
