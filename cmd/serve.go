package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/abhisek/sldscreen/internal/assessment"
	"github.com/abhisek/sldscreen/internal/identity"
	"github.com/abhisek/sldscreen/internal/llm"
	"github.com/abhisek/sldscreen/internal/profiles"
	"github.com/abhisek/sldscreen/internal/recommend"
	"github.com/abhisek/sldscreen/internal/screening"
	"github.com/abhisek/sldscreen/internal/server"
	"github.com/abhisek/sldscreen/internal/store"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the screening HTTP API",
	RunE: func(cmd *cobra.Command, args []string) error {
		return runServe(cmd)
	},
}

func init() {
	serveCmd.Flags().String("addr", "", "Listen address (overrides server.addr)")
	serveCmd.Flags().Bool("auto-analyze", false, "Analyse assessments as soon as both response sets are submitted")
	serveCmd.Flags().String("identity", "", `Identity provider: "firebase" or "mock"`)
	serveCmd.Flags().String("llm-provider", "", `LLM provider: "gemini", "anthropic", "openai", "openrouter" or "none"`)
}

// applyServeFlags overlays explicitly set flags on the loaded config.
func applyServeFlags(cmd *cobra.Command) {
	f := cmd.Flags()
	if f.Changed("addr") {
		cfg.Server.Addr, _ = f.GetString("addr")
	}
	if f.Changed("auto-analyze") {
		cfg.Screening.AutoAnalyze, _ = f.GetBool("auto-analyze")
	}
	if f.Changed("identity") {
		cfg.Identity.Provider, _ = f.GetString("identity")
	}
	if f.Changed("llm-provider") {
		cfg.LLM.Provider, _ = f.GetString("llm-provider")
	}
}

// runServe opens the store, builds the services and serves until SIGINT
// or SIGTERM.
func runServe(cmd *cobra.Command) error {
	applyServeFlags(cmd)

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	st, err := openStore(cmd)
	if err != nil {
		return err
	}
	defer st.Close()

	rubric, err := loadRubric(cfg.Screening.RubricFile)
	if err != nil {
		return err
	}

	ids, err := newIdentity(ctx)
	if err != nil {
		return err
	}

	provider := newLLMProvider(ctx, st.EventRepo())
	assessments := assessment.NewService(assessment.Deps{
		Users:       st.UserRepo(),
		Children:    st.ChildRepo(),
		Assessments: st.AssessmentRepo(),
		Scorer:      screening.NewScorer(rubric),
		Recommender: recommend.NewService(provider, rubric, cfg.Recommend),
		Logger:      logger.Named("assessment"),
	})

	srv := server.New(cfg.Server, server.Deps{
		Identity:    ids,
		Profiles:    profiles.NewService(ids, st.UserRepo(), st.ChildRepo()),
		Assessments: assessments,
		Logger:      logger,
	})

	var analyzer *assessment.Analyzer
	if cfg.Screening.AutoAnalyze {
		analyzer = assessments.StartAnalyzer(cfg.Screening.QueueSize, cfg.Screening.AnalyzeTimeout)
		logger.Info("auto-analysis enabled", zap.Int("queue_size", cfg.Screening.QueueSize))
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		err := srv.ListenAndServe(gctx)
		// In-flight requests are done, so nothing can enqueue any more.
		if analyzer != nil {
			analyzer.Close()
		}
		return err
	})
	g.Go(func() error {
		<-gctx.Done()
		logger.Info("shutting down", zap.NamedError("cause", context.Cause(gctx)))
		return nil
	})
	return g.Wait()
}

// loadRubric returns the rubric at path, or the embedded one when path is
// empty.
func loadRubric(path string) (*screening.Rubric, error) {
	if path == "" {
		return screening.DefaultRubric(), nil
	}
	r, err := screening.LoadRubricFile(path)
	if err != nil {
		return nil, fmt.Errorf("load rubric: %w", err)
	}
	logger.Info("using rubric file", zap.String("path", path))
	return r, nil
}

func newIdentity(ctx context.Context) (identity.Service, error) {
	ids, err := identity.New(ctx, cfg.Identity)
	if err != nil {
		return nil, fmt.Errorf("identity provider: %w", err)
	}
	if mem, ok := ids.(*identity.Memory); ok {
		logger.Warn("using in-memory identity provider; accounts and tokens are lost on restart")
		mem.OnCreate = func(uid, email, token string) {
			logger.Info("account created",
				zap.String("uid", uid),
				zap.String("email", email),
				zap.String("token", token))
		}
	}
	return ids, nil
}

// newLLMProvider returns nil when recommendations are disabled or the
// provider cannot be built; analysis then stores no recommendations.
func newLLMProvider(ctx context.Context, events store.EventRepo) llm.Provider {
	if !cfg.LLM.Enabled() {
		logger.Info("recommendations disabled")
		return nil
	}
	if err := cfg.LLM.Validate(); err != nil {
		logger.Warn("LLM provider not configured; recommendations disabled", zap.Error(err))
		return nil
	}
	provider, err := llm.NewProvider(ctx, cfg.LLM, events, logger.Named("llm"))
	if err != nil {
		logger.Warn("LLM provider unavailable; recommendations disabled", zap.Error(err))
		return nil
	}
	logger.Info("recommendations enabled",
		zap.String("provider", cfg.LLM.Provider),
		zap.String("model", provider.ModelID()))
	return provider
}
