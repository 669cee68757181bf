// Package common provides shared dependency construction for the CLI
// commands.
package common

import (
	"fmt"

	"github.com/jonesrussell/linkhound/internal/classifier"
	"github.com/jonesrussell/linkhound/internal/config"
	"github.com/jonesrussell/linkhound/internal/logger"
	"github.com/jonesrussell/linkhound/internal/notion"
)

// Deps bundles the dependencies every command starts from.
type Deps struct {
	Config *config.Config
	Logger logger.Interface
	Store  *notion.Client
}

// NewCommandDeps loads configuration and constructs the logger and the
// record-store client.
func NewCommandDeps() (*Deps, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}

	log, err := logger.New(&cfg.Logger)
	if err != nil {
		return nil, fmt.Errorf("create logger: %w", err)
	}

	store := notion.NewClient(cfg.Records.Token, log,
		notion.WithBaseURL(cfg.Records.BaseURL),
		notion.WithMinInterval(cfg.Records.MinInterval),
		notion.WithMaxRetries(cfg.Records.MaxRetries),
	)

	return &Deps{
		Config: cfg,
		Logger: log,
		Store:  store,
	}, nil
}

// NewChecker constructs the reachability classifier with the hosted-document
// oracle attached.
func NewChecker(cfg *config.Config, log logger.Interface) *classifier.Classifier {
	oracle := classifier.NewOracle(classifier.DefaultOracleEndpoint, cfg.Crawl.ProbeTimeout, log)

	return classifier.New(classifier.Config{
		UserAgent:   cfg.Crawl.UserAgent,
		Timeout:     cfg.Crawl.ProbeTimeout,
		ProbeDelay:  cfg.Crawl.ProbeDelay,
		SkipDomains: cfg.Crawl.SkipDomains,
	}, oracle, log)
}

// NewRecheckChecker constructs the classifier for the recheck pass. The
// skip-domain list is not applied: a row already Blocked by the skip list
// carries no status code, and only a genuine probe gives the allow list a
// code it can promote to Active.
func NewRecheckChecker(cfg *config.Config, log logger.Interface) *classifier.Classifier {
	oracle := classifier.NewOracle(classifier.DefaultOracleEndpoint, cfg.Crawl.ProbeTimeout, log)

	return classifier.New(classifier.Config{
		UserAgent:  cfg.Crawl.UserAgent,
		Timeout:    cfg.Crawl.ProbeTimeout,
		ProbeDelay: cfg.Crawl.ProbeDelay,
	}, oracle, log)
}
