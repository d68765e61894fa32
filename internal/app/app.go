// Package app wires the whole run together: crawl, store, translate,
// summarize, digest, deliver.
package app

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"ainews/internal/aggregate"
	"ainews/internal/cache"
	"ainews/internal/config"
	"ainews/internal/jsonx"
	"ainews/internal/llm"
	"ainews/internal/logger"
	"ainews/internal/metrics"
	"ainews/internal/notify"
	"ainews/internal/pipeline"
	"ainews/internal/ratelimit"
	"ainews/internal/store"
	"ainews/internal/story"
)

// Run executes one complete collection run. It returns an error only for
// unrecoverable setup failures; degraded runs deliver a placeholder digest
// and report success.
func Run(ctx context.Context) error {
	start := time.Now()

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	sources, err := config.LoadSources(cfg.SourcesConfigPath)
	if err != nil {
		return fmt.Errorf("load sources: %w", err)
	}
	logger.Info("run starting", "sources", len(sources), "provider", cfg.Provider)

	apiKey := cfg.OpenAIAPIKey
	if cfg.Provider == "gemini" {
		apiKey = cfg.GeminiAPIKey
	}
	completer, err := llm.New(ctx, cfg.Provider, apiKey, cfg.Model)
	if err != nil {
		return fmt.Errorf("create LLM client: %w", err)
	}
	defer completer.Close()

	// The content store is best effort: no database just means digests
	// carry no full-content references.
	contentStore, err := store.Open(cfg.DatabaseURL)
	if err != nil {
		logger.Warn("content store unavailable, continuing without it", "error", err)
		contentStore = nil
	}
	defer contentStore.Close()

	seen := aggregate.NewSeenLog(cfg.SeenLogPath, time.Duration(cfg.SeenTTLHours)*time.Hour)
	if err := seen.Load(); err != nil {
		logger.Warn("seen log unreadable, starting empty", "error", err)
	}

	sinks := buildSinks(cfg)
	if len(sinks) == 0 {
		return fmt.Errorf("no delivery sinks configured")
	}

	collector := aggregate.New(cfg, aggregate.WithSeenLog(seen))
	stories, err := collector.Collect(ctx, sources)
	if err != nil {
		logger.Error("collection failed", "error", err)
		metrics.Global.SetError(err.Error())
		deliver(ctx, sinks, notify.Placeholder(start, "뉴스 수집에 실패했습니다"))
		metrics.Global.RecordRun(time.Since(start))
		return nil
	}
	if len(stories) == 0 {
		logger.Info("no fresh stories this run")
		deliver(ctx, sinks, notify.Placeholder(start, "새로운 소식이 없습니다"))
		metrics.Global.RecordRun(time.Since(start))
		return nil
	}

	for i := range stories {
		id, method := contentStore.Put(ctx, &stories[i])
		stories[i].SetStored(id, method)
	}

	limiter := ratelimit.New(cfg.MaxOpenAI, cfg.MaxGemini, cfg.MaxLLMTotal)
	p := pipeline.New(completer, cache.New(), limiter, cfg)

	stories = p.TranslateAll(ctx, stories)
	stories = p.SummarizeAll(ctx, stories)

	digestItems, grade := p.Digest(ctx, stories)
	logger.Info("digest ready", "stories", len(digestItems), "grade", grade.String())

	digest := notify.Digest{Date: start, Stories: digestItems}
	if grade == jsonx.Emergency {
		digest.Note = "일부 내용이 정상적으로 생성되지 않았습니다."
	}
	archive := notify.Digest{Date: start, Stories: stories}

	delivered := false
	for _, sink := range sinks {
		payload := digest
		if sink.Name() == "documents" {
			payload = archive
		}
		if err := sink.Send(ctx, payload); err != nil {
			logger.Error("sink failed", "sink", sink.Name(), "error", err)
			continue
		}
		delivered = true
	}
	if !delivered {
		metrics.Global.SetError("all sinks failed")
		metrics.Global.RecordRun(time.Since(start))
		return fmt.Errorf("all sinks failed")
	}

	markSeen(seen, stories)
	metrics.Global.RecordRun(time.Since(start))
	logger.Info("run finished",
		"stories", len(stories), "digest", len(digestItems),
		"llm_hit_rate", fmt.Sprintf("%.0f%%", limiter.HitRate()*100),
		"took", time.Since(start).Round(time.Second))
	return nil
}

func buildSinks(cfg *config.Config) []notify.Sink {
	client := &http.Client{Timeout: cfg.RequestTimeout}
	var sinks []notify.Sink
	if cfg.WebhookURL != "" {
		sinks = append(sinks, notify.NewWebhook(cfg.WebhookURL, client))
	}
	if cfg.DocsToken != "" && cfg.DocsDatabaseID != "" {
		sinks = append(sinks, notify.NewDocuments(cfg.DocsToken, cfg.DocsDatabaseID, client))
	}
	return sinks
}

func deliver(ctx context.Context, sinks []notify.Sink, d notify.Digest) {
	for _, sink := range sinks {
		if err := sink.Send(ctx, d); err != nil {
			logger.Error("sink failed", "sink", sink.Name(), "error", err)
		}
	}
}

func markSeen(seen *aggregate.SeenLog, stories []story.Story) {
	for _, st := range stories {
		seen.Mark(st)
	}
	if err := seen.Save(); err != nil {
		logger.Warn("seen log save failed", "error", err)
	}
}
