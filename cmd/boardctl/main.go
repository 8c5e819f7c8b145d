package main

import (
	"context"
	"fmt"
	"os"

	"pipeline_board_backend/internal/pipeline/board"
	"pipeline_board_backend/internal/pipeline/repository"
	"pipeline_board_backend/platform/config"
	"pipeline_board_backend/platform/db"
	"pipeline_board_backend/platform/logger"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/spf13/cobra"
)

// Version info set via ldflags at build time.
var (
	Version = "dev"
	Commit  = "none"
)

func newRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:           "boardctl",
		Short:         "Operate pipeline boards",
		Long:          "boardctl inspects and maintains pipeline boards directly against the database. Settings come from the same environment as the API (DATABASE_URL, APP_ENV).",
		SilenceUsage:  true,
	}

	cmd.AddCommand(newVersionCmd())
	cmd.AddCommand(newStagesCmd())
	cmd.AddCommand(newMetricsCmd())
	cmd.AddCommand(newReorderCmd())
	cmd.AddCommand(newSeedReasonsCmd())
	cmd.AddCommand(newMigrateCmd())
	return cmd
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "boardctl %s (commit: %s)\n", Version, Commit)
		},
	}
}

// env is what every database-backed command needs.
type env struct {
	cfg  *config.Config
	log  *logger.Logger
	pool *pgxpool.Pool
	repo *repository.Repository
}

func (e *env) Close() {
	e.pool.Close()
}

// engine builds a board engine over the repository. Stage edits made here are
// visible to a running API after its board is reloaded.
func (e *env) engine() *board.Engine {
	return board.NewEngine(board.EngineDeps{
		Store:   e.repo,
		Reasons: e.repo,
		Log:     e.log,
	}, board.EngineOptions{MemberSort: e.cfg.GetMemberSort()})
}

func connect(ctx context.Context) (*env, error) {
	cfg, err := config.LoadBase()
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	log := logger.New(cfg.Env)
	pool, err := db.NewPool(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("connect database: %w", err)
	}
	return &env{cfg: cfg, log: log, pool: pool, repo: repository.New(pool)}, nil
}

func parseBoardID(raw string) (uuid.UUID, error) {
	id, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, fmt.Errorf("invalid board id %q: %w", raw, err)
	}
	return id, nil
}

func execute(cmd *cobra.Command) int {
	if err := cmd.Execute(); err != nil {
		return 1
	}
	return 0
}

func main() {
	os.Exit(execute(newRootCmd()))
}
