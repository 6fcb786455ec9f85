package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"ytbench/internal/config"
	"ytbench/internal/evaluation"
	"ytbench/internal/generator"
	"ytbench/internal/handlers"
	"ytbench/internal/storage"
	"ytbench/internal/tester"
	_ "ytbench/internal/tester/gcloud"
	_ "ytbench/internal/tester/openai"
	_ "ytbench/internal/tester/sherpa"
	"ytbench/internal/testplan"
	"ytbench/internal/version"
	"ytbench/internal/worker"
	"ytbench/internal/youtube"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"google.golang.org/api/option"
)

func main() {
	// .envファイルを読み込み（存在しない場合はスキップ）
	cfg := config.Load()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// データベース接続
	db, err := storage.Open(cfg.DatabaseDriver, cfg.DatabaseURL)
	if err != nil {
		log.Fatal(err)
	}
	defer db.Close()
	if err := db.Migrate(ctx); err != nil {
		log.Fatal(err)
	}

	// 評価ジョブのワーカー
	queue := worker.NewQueue()
	w := worker.NewWorker(queue)
	w.RegisterHandler(handlers.JobTypeEvaluate, evaluateJob(cfg, storage.NewResultStore(db)))
	w.Start(ctx)

	// Echoインスタンスの作成
	e := echo.New()
	e.HideBanner = true

	// ミドルウェアの設定
	e.Use(middleware.Logger())
	e.Use(middleware.Recover())

	results := handlers.NewResultHandler(storage.NewResultRepository(db))
	runs := handlers.NewRunHandler(w, queue)

	// ルートの登録
	e.GET("/health", func(c echo.Context) error {
		return c.JSON(200, map[string]string{
			"status":  "ok",
			"version": version.Version,
		})
	})

	api := e.Group("/api")
	api.GET("/testplans", results.ListTestPlans)
	api.GET("/testplans/:name", results.GetTestPlan)
	api.GET("/testplans/:name/results", results.ListResults)
	api.GET("/videos/:id", results.GetVideo)
	api.GET("/videos/:id/results", results.ListVideoResults)
	api.GET("/models", results.Leaderboard)
	api.GET("/stats", results.Stats)
	api.POST("/runs", runs.Create)
	api.GET("/runs", runs.List)
	api.GET("/runs/stats", runs.Stats)
	api.GET("/runs/:id", runs.Get)

	// サーバー起動
	go func() {
		log.Printf("Starting ytbench v%s on port %s", version.Version, cfg.Port)
		if err := e.Start(fmt.Sprintf(":%s", cfg.Port)); err != nil {
			log.Printf("Server stopped: %v", err)
			stop()
		}
	}()

	<-ctx.Done()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := e.Shutdown(shutdownCtx); err != nil {
		log.Printf("Shutdown error: %v", err)
	}
	w.Stop()
}

// evaluateJob は RunRequest を読み込んで評価を実行し、Summary を結果として返す
func evaluateJob(cfg *config.Config, store *storage.ResultStore) worker.JobHandler {
	return func(ctx context.Context, job *worker.Job) (json.RawMessage, error) {
		var req handlers.RunRequest
		if err := json.Unmarshal(job.Payload, &req); err != nil {
			return nil, fmt.Errorf("invalid payload: %w", err)
		}

		plan, err := testplan.Load(req.Plan)
		if err != nil {
			return nil, err
		}

		settings, err := tester.ParseSettings(req.Settings)
		if err != nil {
			return nil, err
		}
		language := req.Language
		if language == "" {
			language = "en"
		}
		m, err := tester.New(req.Model, tester.Options{Language: language, Settings: settings})
		if err != nil {
			return nil, err
		}
		defer m.Close()

		client := youtube.NewClient()
		resolver := youtube.NewResolver(client)
		opts := []evaluation.Option{evaluation.WithStore(store)}
		if req.Iterations > 1 && cfg.GoogleAPIKey != "" {
			gen, err := generator.New(ctx, client, option.WithAPIKey(cfg.GoogleAPIKey))
			if err != nil {
				return nil, err
			}
			opts = append(opts, evaluation.WithGenerator(gen))
		}

		runner := evaluation.NewRunner(evaluation.Config{
			Name:              "Run-" + job.ID[:8],
			AudioDir:          cfg.AudioDir,
			OutputDir:         cfg.OutputDir,
			Iterations:        req.Iterations,
			DownloadTimeout:   10 * time.Minute,
			ReferenceTimeout:  time.Minute,
			TranscribeTimeout: 30 * time.Minute,
		}, m, resolver, resolver, opts...)

		summary, err := runner.Run(ctx, plan)
		if err != nil {
			return nil, err
		}
		return json.Marshal(summary)
	}
}
