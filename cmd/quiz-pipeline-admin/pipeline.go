package main

import (
	"context"
	"fmt"
	"os"
	"text/tabwriter"
	"time"

	"github.com/target/quiz-pipeline/internal/adapters/reaper"
	"github.com/target/quiz-pipeline/internal/bootstrap"
	"github.com/target/quiz-pipeline/internal/data"
	"github.com/target/quiz-pipeline/internal/domain/model"
	"github.com/target/quiz-pipeline/internal/service"
)

// runEnqueue publishes a fresh batch-1 generation request for a subject. The
// worker's own guards decide whether generation actually starts: a subject
// that already has questions, or one mid-generation, drops the message.
func runEnqueue(cmdCtx *commandContext, args []string) error {
	subjectID, err := parseSubjectFlag("enqueue", args)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(cmdCtx.Ctx, defaultCommandTimeout)
	defer cancel()

	client, err := bootstrap.ConnectQueue(cmdCtx.Config.Queue, cmdCtx.Logger)
	if err != nil {
		return err
	}
	defer func() {
		if closeErr := client.Close(); closeErr != nil {
			cmdCtx.Logger.Warn("queue close failed", "error", closeErr)
		}
	}()

	msg := &model.JobMessage{SubjectID: subjectID, BatchNumber: 1}
	if err := client.Publish(ctx, msg); err != nil {
		return fmt.Errorf("publish generation request: %w", err)
	}

	cmdCtx.Logger.Info("generation request enqueued",
		"subject_id", subjectID, "queue", cmdCtx.Config.Queue.GenerationQueue)
	return nil
}

func runStatus(cmdCtx *commandContext, args []string) error {
	subjectID, err := parseSubjectFlag("status", args)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(cmdCtx.Ctx, defaultCommandTimeout)
	defer cancel()

	db, err := bootstrap.ConnectDB(bootstrap.DatabaseConfig{
		DBConfig: cmdCtx.Config.Postgres,
		Logger:   cmdCtx.Logger,
	})
	if err != nil {
		return fmt.Errorf("connect db: %w", err)
	}
	defer func() {
		if closeErr := db.Close(); closeErr != nil {
			cmdCtx.Logger.Warn("db close failed", "error", closeErr)
		}
	}()

	runs := data.NewRunRepo(db, data.RepoConfig{Logger: cmdCtx.Logger})
	questions := data.NewQuestionRepo(db, data.RepoConfig{Logger: cmdCtx.Logger})

	run, err := runs.LatestBySubject(ctx, subjectID)
	if err != nil {
		return fmt.Errorf("load latest run: %w", err)
	}
	count, err := questions.CountBySubject(ctx, subjectID)
	if err != nil {
		return fmt.Errorf("count questions: %w", err)
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	writef(w, "SUBJECT\tQUESTIONS\tRUN\tSTATUS\tPROGRESS\tLEASE EXPIRES\tUPDATED\n")
	if run == nil {
		writef(w, "%d\t%d\t-\t-\t-\t-\t-\n", subjectID, count)
	} else {
		progress := fmt.Sprintf("%d/%d", run.CompletedBatches, run.TotalBatches)
		writef(w, "%d\t%d\t%s\t%s\t%s\t%s\t%s\n",
			subjectID, count, run.ID, run.Status, progress,
			run.LeaseExpiresAt.Format(time.RFC3339),
			run.UpdatedAt.Format(time.RFC3339),
		)
	}
	return w.Flush()
}

func runReap(cmdCtx *commandContext, args []string) error {
	if len(args) > 0 {
		return fmt.Errorf("reap takes no arguments, got %d", len(args))
	}

	ctx, cancel := context.WithTimeout(cmdCtx.Ctx, defaultCommandTimeout)
	defer cancel()

	db, err := bootstrap.ConnectDB(bootstrap.DatabaseConfig{
		DBConfig: cmdCtx.Config.Postgres,
		Logger:   cmdCtx.Logger,
	})
	if err != nil {
		return fmt.Errorf("connect db: %w", err)
	}
	defer func() {
		if closeErr := db.Close(); closeErr != nil {
			cmdCtx.Logger.Warn("db close failed", "error", closeErr)
		}
	}()

	runner, err := reaper.NewRunner(reaper.RunnerOptions{
		DB:     db,
		Config: cmdCtx.Config.Reaper,
		Logger: cmdCtx.Logger,
	})
	if err != nil {
		return err
	}

	deleted, err := runner.SweepOnce(ctx)
	if err != nil {
		return fmt.Errorf("reap runs: %w", err)
	}

	cmdCtx.Logger.Info("reap complete", "runs_deleted", deleted)
	return nil
}

func runClearQuestionCache(cmdCtx *commandContext, args []string) error {
	subjectID, err := parseSubjectFlag("clear-question-cache", args)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(cmdCtx.Ctx, defaultCommandTimeout)
	defer cancel()

	db, err := bootstrap.ConnectDB(bootstrap.DatabaseConfig{
		DBConfig: cmdCtx.Config.Postgres,
		Logger:   cmdCtx.Logger,
	})
	if err != nil {
		return fmt.Errorf("connect db: %w", err)
	}
	defer func() {
		if closeErr := db.Close(); closeErr != nil {
			cmdCtx.Logger.Warn("db close failed", "error", closeErr)
		}
	}()

	redisClient, err := bootstrap.ConnectRedis(bootstrap.DatabaseConfig{
		RedisConfig: cmdCtx.Config.Redis,
		Logger:      cmdCtx.Logger,
	})
	if err != nil {
		return err
	}
	defer func() {
		if closeErr := redisClient.Close(); closeErr != nil {
			cmdCtx.Logger.Warn("redis close failed", "error", closeErr)
		}
	}()

	filter, err := service.NewDuplicateFilter(service.DuplicateFilterOptions{
		Questions: data.NewQuestionRepo(db, data.RepoConfig{Logger: cmdCtx.Logger}),
		Cache:     data.NewRedisCacheRepo(redisClient),
		Logger:    cmdCtx.Logger,
	})
	if err != nil {
		return err
	}

	filter.Invalidate(ctx, subjectID)
	cmdCtx.Logger.Info("question text cache cleared", "subject_id", subjectID)
	return nil
}
