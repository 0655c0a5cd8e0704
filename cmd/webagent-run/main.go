// Command webagent-run drives a single agent task against a real browser:
// launches a backend, wires the verification runtime and step driver, and
// runs the step loop to completion or failure, emitting a JSONL trace.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/webverify/agentrt/pkg/agent"
	"github.com/webverify/agentrt/pkg/agent/llmexecutor"
	"github.com/webverify/agentrt/pkg/backend"
	"github.com/webverify/agentrt/pkg/config"
	"github.com/webverify/agentrt/pkg/llm/openai"
	"github.com/webverify/agentrt/pkg/logging"
	"github.com/webverify/agentrt/pkg/runtime"
	"github.com/webverify/agentrt/pkg/snapshot"
	"github.com/webverify/agentrt/pkg/trace"
)

const version = "0.1.0"

type cliConfig struct {
	apiKey     string
	baseURL    string
	model      string
	configFile string
	task       string
	startURL   string
	tracePath  string
	timeout    time.Duration
	maxSteps   int
	version    bool
}

func main() {
	cli := parseFlags()

	if cli.version {
		fmt.Printf("webagent-run v%s\n", version)
		return
	}

	ctx, cancel := context.WithCancel(context.Background())
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-sigCh
		fmt.Println("\nshutting down gracefully...")
		cancel()
	}()

	if err := run(ctx, cli); err != nil {
		cancel()
		log.Fatalf("run failed: %v", err)
	}
	cancel()
}

func parseFlags() *cliConfig {
	c := &cliConfig{}
	flag.StringVar(&c.apiKey, "api-key", os.Getenv("OPENAI_API_KEY"), "LLM API key")
	flag.StringVar(&c.baseURL, "base-url", os.Getenv("OPENAI_BASE_URL"), "LLM API base URL")
	flag.StringVar(&c.model, "model", "gpt-4.1", "model to drive the agent with")
	flag.StringVar(&c.configFile, "config", "", "path to a runtime tuning YAML file")
	flag.StringVar(&c.task, "task", "", "task goal given to the agent (required)")
	flag.StringVar(&c.startURL, "start-url", "", "URL to navigate to before the first step")
	flag.StringVar(&c.tracePath, "trace", "trace.jsonl", "path to write the JSONL trace")
	flag.DurationVar(&c.timeout, "timeout", 5*time.Minute, "overall run timeout")
	flag.IntVar(&c.maxSteps, "max-steps", 20, "maximum number of steps before giving up")
	flag.BoolVar(&c.version, "version", false, "print version and exit")

	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, "webagent-run - drive one agent task against a browser\n\n")
		fmt.Fprintf(os.Stderr, "Usage: webagent-run -task \"...\" -start-url https://example.com\n\n")
		flag.PrintDefaults()
	}
	flag.Parse()
	return c
}

func run(ctx context.Context, cli *cliConfig) error {
	if cli.task == "" {
		return fmt.Errorf("-task is required")
	}

	cfg := config.Default()
	if cli.configFile != "" {
		loaded, err := config.Load(cli.configFile)
		if err != nil {
			return fmt.Errorf("loading config: %w", err)
		}
		cfg = loaded
	}

	if cli.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, cli.timeout)
		defer cancel()
	}

	logger, err := logging.NewLogger("webagent-run")
	if err != nil {
		log.Printf("logger fell back to stderr: %v", err)
	}

	be, closer, err := backend.Launch(ctx, backend.Options{
		Driver:   backend.DriverKind(cfg.Backend.Driver),
		Headless: cfg.Backend.Headless,
		Viewport: backend.ViewportSize{Width: cfg.Backend.ViewportW, Height: cfg.Backend.ViewportH},
		Timeout:  cfg.Backend.LaunchTimeout,
	})
	if err != nil {
		return fmt.Errorf("launching backend: %w", err)
	}
	defer closer.Close()

	if cli.startURL != "" {
		if _, err := be.Eval(ctx, fmt.Sprintf("window.location.href = %q", cli.startURL)); err != nil {
			return fmt.Errorf("navigating to %s: %w", cli.startURL, err)
		}
		if err := be.WaitReadyState(ctx, backend.ReadyStateComplete, cfg.Snapshot.ReadyTimeoutMs); err != nil {
			return fmt.Errorf("waiting for page load: %w", err)
		}
	}

	sink, err := trace.NewJSONLSink(cli.tracePath)
	if err != nil {
		return fmt.Errorf("opening trace sink: %w", err)
	}
	defer sink.Close()

	cache := snapshot.NewCache(snapshot.New(be, logger), cfg.Snapshot.MaxAgeMs)

	rt := runtime.New(be, cache, sink, logger, runtime.CaptchaOptions{
		Policy:        runtime.CaptchaPolicy(cfg.Captcha.Policy),
		MinConfidence: cfg.Captcha.MinConfidence,
		PollMs:        cfg.Captcha.PollMs,
		TimeoutMs:     cfg.Captcha.TimeoutMs,
	}).WithArtifactBundler(trace.NewArtifactBundler("artifacts"))

	providerOpts := []openai.ProviderOption{openai.WithModel(cli.model)}
	if cli.baseURL != "" {
		providerOpts = append(providerOpts, openai.WithBaseURL(cli.baseURL))
	}
	provider, err := openai.NewProvider(cli.apiKey, providerOpts...)
	if err != nil {
		return fmt.Errorf("creating LLM provider: %w", err)
	}

	driver := agent.New(rt, llmexecutor.New(provider),
		agent.WithVisionExecutor(llmexecutor.NewVision(provider)),
		agent.WithSelectorConfig(snapshot.SelectorConfig{
			ByImportance:      cfg.Snapshot.ByImportance,
			FromDominantGroup: cfg.Snapshot.FromDominantGroup,
			ByPosition:        cfg.Snapshot.ByPosition,
		}),
	)

	log.Printf("run %s: task=%q model=%s", rt.RunID, cli.task, cli.model)

	steps := make([]agent.StepSpec, 0, cli.maxSteps)
	for i := 0; i < cli.maxSteps; i++ {
		steps = append(steps, agent.StepSpec{Goal: cli.task, SnapshotLimitBase: cfg.Snapshot.DefaultLimit})
	}

	outcomes, err := driver.Run(ctx, cli.task, agent.RunConfig{Steps: steps, StopOnFailure: true})
	if err != nil {
		return fmt.Errorf("run: %w", err)
	}

	var lines []string
	for i, o := range outcomes {
		status := "ok"
		if o.Err != nil {
			status = "error: " + o.Err.Error()
		} else if !o.OK {
			status = "failed"
		}
		lines = append(lines, fmt.Sprintf("step %d: %s (%s)", i+1, o.Action.String(), status))
		if o.Finished {
			break
		}
	}
	log.Printf("run %s complete:\n%s", rt.RunID, strings.Join(lines, "\n"))

	for _, u := range rt.TokenUsageLedger() {
		log.Printf("token usage: role=%s model=%s prompt=%d completion=%d total=%d",
			u.Role, u.ModelName, u.PromptTokens, u.CompletionTokens, u.TotalTokens)
	}

	return nil
}
