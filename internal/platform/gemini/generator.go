package gemini

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"math/rand"
	"strings"
	"sync"
	"time"

	"github.com/phrazzld/mindmap-api/internal/config"
	"github.com/phrazzld/mindmap-api/internal/generation"
	"github.com/phrazzld/mindmap-api/internal/jsonextract"
	"golang.org/x/time/rate"
)

// suggestionCount is how many related topics SuggestTopics asks for.
const suggestionCount = 5

// Generator implements generation.Generator using the Gemini API.
type Generator struct {
	logger      *slog.Logger
	caller      modelCaller
	prompts     *promptSet
	limiter     *rate.Limiter
	maxRetries  int
	baseDelay   time.Duration
	callTimeout time.Duration

	rngMu sync.Mutex
	rng   *rand.Rand

	stopWatch context.CancelFunc
}

var _ generation.Generator = (*Generator)(nil)

// NewGenerator validates cfg, loads prompt templates and connects to Gemini.
// When cfg.PromptDir is set the templates there are watched for changes
// until Close is called.
func NewGenerator(ctx context.Context, logger *slog.Logger, cfg config.LLMConfig) (*Generator, error) {
	if logger == nil {
		return nil, errors.New("logger cannot be nil")
	}
	if cfg.GeminiAPIKey == "" {
		return nil, fmt.Errorf("%w: gemini API key cannot be empty", generation.ErrInvalidConfig)
	}
	if cfg.ModelName == "" {
		return nil, fmt.Errorf("%w: model name cannot be empty", generation.ErrInvalidConfig)
	}

	prompts, err := loadPrompts(cfg.PromptDir)
	if err != nil {
		return nil, err
	}
	caller, err := newGenaiCaller(ctx, cfg.GeminiAPIKey, cfg.ModelName)
	if err != nil {
		return nil, err
	}

	g := newGenerator(logger, cfg, caller, prompts)

	watchCtx, cancel := context.WithCancel(context.Background())
	if err := prompts.watch(watchCtx, g.logger); err != nil {
		cancel()
		return nil, err
	}
	g.stopWatch = cancel

	g.logger.Info("gemini generator ready",
		"model", cfg.ModelName,
		"prompt_dir", cfg.PromptDir,
		"requests_per_second", cfg.RequestsPerSecond)
	return g, nil
}

func newGenerator(logger *slog.Logger, cfg config.LLMConfig, caller modelCaller, prompts *promptSet) *Generator {
	maxRetries := cfg.MaxRetries
	if maxRetries < 0 {
		maxRetries = 3
	}
	baseDelay := time.Duration(cfg.RetryDelaySeconds) * time.Second
	if baseDelay <= 0 {
		baseDelay = 2 * time.Second
	}
	rps := cfg.RequestsPerSecond
	if rps <= 0 {
		rps = 1
	}
	burst := cfg.Burst
	if burst <= 0 {
		burst = 1
	}
	callTimeout := time.Duration(cfg.CallTimeoutSeconds) * time.Second
	if callTimeout <= 0 {
		callTimeout = 60 * time.Second
	}

	return &Generator{
		logger:      logger.With("component", "gemini_generator"),
		caller:      caller,
		prompts:     prompts,
		limiter:     rate.NewLimiter(rate.Limit(rps), burst),
		maxRetries:  maxRetries,
		baseDelay:   baseDelay,
		callTimeout: callTimeout,
		rng:         rand.New(rand.NewSource(time.Now().UnixNano())),
		stopWatch:   func() {},
	}
}

// Close stops the prompt watcher.
func (g *Generator) Close() error {
	g.stopWatch()
	return nil
}

// GenerateMindMap implements generation.Generator.
func (g *Generator) GenerateMindMap(ctx context.Context, req generation.MindMapRequest) (*generation.MindMapTree, error) {
	prompt, err := g.prompts.render(promptMindMap, mindMapPromptData{
		Topic:            req.Topic,
		Description:      req.Description,
		Depth:            req.Depth,
		Style:            req.Style,
		StyleDescription: describeStyle(req.Style),
	})
	if err != nil {
		return nil, err
	}

	var tree generation.MindMapTree
	if err := g.generateJSON(ctx, "generate_mindmap", prompt, &tree); err != nil {
		return nil, err
	}
	if strings.TrimSpace(tree.CentralTopic) == "" && len(tree.Branches) == 0 {
		return nil, fmt.Errorf("%w: empty mind map", generation.ErrInvalidResponse)
	}
	return &tree, nil
}

// ExpandNode implements generation.Generator.
func (g *Generator) ExpandNode(ctx context.Context, req generation.ExpansionRequest) (*generation.Expansion, error) {
	prompt, err := g.prompts.render(promptExpand, expandPromptData(req))
	if err != nil {
		return nil, err
	}

	var exp generation.Expansion
	if err := g.generateJSON(ctx, "expand_node", prompt, &exp); err != nil {
		return nil, err
	}
	return &exp, nil
}

// SuggestTopics implements generation.Generator.
func (g *Generator) SuggestTopics(ctx context.Context, query string) ([]generation.TopicSuggestion, error) {
	prompt, err := g.prompts.render(promptSuggest, suggestPromptData{Query: query})
	if err != nil {
		return nil, err
	}

	var out struct {
		Suggestions []generation.TopicSuggestion `json:"suggestions"`
	}
	if err := g.generateJSON(ctx, "suggest_topics", prompt, &out); err != nil {
		return nil, err
	}
	if len(out.Suggestions) == 0 {
		return nil, fmt.Errorf("%w: no suggestions", generation.ErrInvalidResponse)
	}
	if len(out.Suggestions) > suggestionCount {
		out.Suggestions = out.Suggestions[:suggestionCount]
	}
	return out.Suggestions, nil
}

func (g *Generator) generateJSON(ctx context.Context, op, prompt string, v any) error {
	system, err := g.prompts.render(promptSystem, nil)
	if err != nil {
		return err
	}
	text, err := g.callWithRetry(ctx, op, system, prompt)
	if err != nil {
		return err
	}
	if err := jsonextract.Decode(text, v); err != nil {
		g.logger.WarnContext(ctx, "model returned unparseable output",
			"operation", op, "response_length", len(text), "error", err)
		return fmt.Errorf("%w: %v", generation.ErrInvalidResponse, err)
	}
	return nil
}

// callWithRetry calls the model up to maxRetries+1 times. Transient errors
// are retried with exponential backoff and jitter; blocked content and
// malformed responses are returned immediately.
func (g *Generator) callWithRetry(ctx context.Context, op, system, prompt string) (string, error) {
	for attempt := 0; ; attempt++ {
		if err := g.limiter.Wait(ctx); err != nil {
			return "", fmt.Errorf("%w: %v", generation.ErrTransientFailure, err)
		}

		g.logger.DebugContext(ctx, "calling gemini",
			"operation", op,
			"attempt", attempt+1,
			"max_attempts", g.maxRetries+1)

		callCtx, cancel := context.WithTimeout(ctx, g.callTimeout)
		text, err := g.caller.generateText(callCtx, system, prompt)
		cancel()
		if err == nil {
			return text, nil
		}

		if errors.Is(err, generation.ErrContentBlocked) || errors.Is(err, generation.ErrInvalidResponse) {
			g.logger.WarnContext(ctx, "permanent gemini error, not retrying",
				"operation", op, "error", err)
			return "", err
		}
		if attempt >= g.maxRetries {
			g.logger.WarnContext(ctx, "maximum gemini retry attempts reached",
				"operation", op, "max_retries", g.maxRetries, "error", err)
			return "", fmt.Errorf("%w: exceeded maximum retry attempts (%d): %v",
				generation.ErrTransientFailure, g.maxRetries, err)
		}

		delay := g.backoff(attempt)
		g.logger.InfoContext(ctx, "retrying gemini call after delay",
			"operation", op,
			"attempt", attempt+1,
			"delay", delay,
			"error", err)

		timer := time.NewTimer(delay)
		select {
		case <-timer.C:
		case <-ctx.Done():
			timer.Stop()
			return "", fmt.Errorf("%w: %v", generation.ErrTransientFailure, ctx.Err())
		}
	}
}

// backoff returns baseDelay * 2^attempt scaled by a jitter factor in [0.5, 1).
func (g *Generator) backoff(attempt int) time.Duration {
	g.rngMu.Lock()
	jitter := 0.5 + g.rng.Float64()*0.5
	g.rngMu.Unlock()
	return time.Duration(float64(g.baseDelay) * math.Pow(2, float64(attempt)) * jitter)
}
