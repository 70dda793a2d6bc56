package commands

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/alecthomas/kingpin/v2"

	apprun "github.com/rustedworkshop/smokerig/internal/app/run"
	"github.com/rustedworkshop/smokerig/internal/conventions"
	"github.com/rustedworkshop/smokerig/internal/model"
	"github.com/rustedworkshop/smokerig/internal/pipeline/httpapi"
	"github.com/rustedworkshop/smokerig/internal/probe"
	"github.com/rustedworkshop/smokerig/internal/reporter"
	"github.com/rustedworkshop/smokerig/internal/runner/docker"
	"github.com/rustedworkshop/smokerig/internal/runner/host"
	"github.com/rustedworkshop/smokerig/internal/storage/io"
	"github.com/rustedworkshop/smokerig/internal/storage/sqlite"
	"github.com/rustedworkshop/smokerig/internal/supervisor"
	utilsenv "github.com/rustedworkshop/smokerig/internal/utils/env"
)

const (
	// OutputLine prints the field-prefixed progress lines.
	OutputLine = "line"
	// OutputJSON prints one JSON object per progress event.
	OutputJSON = "json"
)

type RunCommand struct {
	Cmd     *kingpin.CmdClause
	rootCmd *RootCommand

	file           string
	manifestFile   string
	envSpecs       []string
	targetLanguage string
	translateStyle string
	apiURL         string
	logDir         string
	output         string
	healthAttempts int
	healthInterval time.Duration
	pollInterval   time.Duration
	pollTimeout    time.Duration
	requestTimeout time.Duration
}

// NewRunCommand returns the run command.
func NewRunCommand(rootCmd *RootCommand, app *kingpin.Application) *RunCommand {
	c := &RunCommand{rootCmd: rootCmd}

	c.Cmd = app.Command("run", "Run one end-to-end verification of the translation pipeline.")
	c.Cmd.Arg("file", "Path of the file to submit for translation.").Required().StringVar(&c.file)
	c.Cmd.Flag("manifest", "Path to the services manifest YAML file.").Short('f').Default(conventions.DefaultManifestFile).StringVar(&c.manifestFile)
	c.Cmd.Flag("env", "Environment variables for every service (KEY=VALUE or KEY from current environment). Can be repeated.").Short('e').StringsVar(&c.envSpecs)
	c.Cmd.Flag("target-language", "Translation target language.").Default("zh-CN").StringVar(&c.targetLanguage)
	c.Cmd.Flag("style", "Translation style.").Default("auto").StringVar(&c.translateStyle)
	c.Cmd.Flag("api-url", "Translation API base URL. Overrides the manifest value.").StringVar(&c.apiURL)
	c.Cmd.Flag("log-dir", "Directory for service log files.").Default(conventions.DefaultLogDir).StringVar(&c.logDir)
	c.Cmd.Flag("output", "Progress output format.").Short('o').Default(OutputLine).EnumVar(&c.output, OutputLine, OutputJSON)
	c.Cmd.Flag("health-attempts", "How many health probes before giving up.").Default("30").IntVar(&c.healthAttempts)
	c.Cmd.Flag("health-interval", "Sleep between health probes.").Default("1s").DurationVar(&c.healthInterval)
	c.Cmd.Flag("poll-interval", "Sleep between task status polls.").Default("5s").DurationVar(&c.pollInterval)
	c.Cmd.Flag("poll-timeout", "Total polling budget before the task is given up on.").Default("30m").DurationVar(&c.pollTimeout)
	c.Cmd.Flag("request-timeout", "Timeout of a single status or result request.").Default("10s").DurationVar(&c.requestTimeout)

	return c
}

func (c RunCommand) Name() string { return c.Cmd.FullCommand() }

func (c RunCommand) Run(ctx context.Context) error {
	logger := c.rootCmd.Logger

	// Load the services manifest from YAML.
	manifestPath := c.manifestFile
	if !filepath.IsAbs(manifestPath) {
		absPath, err := filepath.Abs(manifestPath)
		if err != nil {
			return fmt.Errorf("could not resolve manifest path: %w", err)
		}
		manifestPath = absPath
	}

	manifestRepo := io.NewManifestYAMLRepository(os.DirFS("/"))
	manifest, err := manifestRepo.GetManifest(ctx, manifestPath[1:])
	if err != nil {
		return fmt.Errorf("could not load services manifest: %w", err)
	}

	// Merge --env values on top of every service's declared environment.
	cliEnv, err := utilsenv.ParseSpecs(c.envSpecs)
	if err != nil {
		return fmt.Errorf("invalid --env value: %w", err)
	}
	if len(cliEnv) > 0 {
		for i := range manifest.Services {
			manifest.Services[i].Env = utilsenv.MergeMaps(manifest.Services[i].Env, cliEnv)
		}
	}

	// The flag wins over the manifest; the client default covers the rest.
	apiURL := c.apiURL
	if apiURL == "" {
		apiURL = manifest.APIURL
	}

	// Initialize the run journal (SQLite).
	journal, err := sqlite.NewRepository(ctx, sqlite.RepositoryConfig{
		DBPath: c.rootCmd.DBPath,
		Logger: logger,
	})
	if err != nil {
		return fmt.Errorf("could not create run journal: %w", err)
	}
	defer journal.Close()

	// Initialize the service runtimes: host always, docker only when the
	// manifest declares container services.
	hostRunner, err := host.NewRunner(host.RunnerConfig{
		LogDir: c.logDir,
		Logger: logger,
	})
	if err != nil {
		return fmt.Errorf("could not create host runner: %w", err)
	}

	supCfg := supervisor.Config{
		HostRunner: hostRunner,
		Logger:     logger,
	}
	if manifestNeedsDocker(manifest) {
		dockerRunner, err := docker.NewRunner(docker.RunnerConfig{
			LogDir: c.logDir,
			Logger: logger,
		})
		if err != nil {
			return fmt.Errorf("could not create docker runner: %w", err)
		}
		supCfg.DockerRunner = dockerRunner
	}

	sup, err := supervisor.New(supCfg)
	if err != nil {
		return fmt.Errorf("could not create supervisor: %w", err)
	}

	// Initialize the pipeline API client and the probes around it.
	apiClient, err := httpapi.NewClient(httpapi.ClientConfig{
		BaseURL: apiURL,
		Logger:  logger,
	})
	if err != nil {
		return fmt.Errorf("could not create pipeline API client: %w", err)
	}

	var rep reporter.Reporter
	switch c.output {
	case OutputJSON:
		rep = reporter.NewJSONReporter(c.rootCmd.Stdout)
	default:
		rep = reporter.NewLineReporter(c.rootCmd.Stdout)
	}

	gate, err := probe.NewHealthGate(probe.HealthGateConfig{
		API:         apiClient,
		MaxAttempts: c.healthAttempts,
		Interval:    c.healthInterval,
		Logger:      logger,
	})
	if err != nil {
		return fmt.Errorf("could not create health gate: %w", err)
	}

	iterations := int(c.pollTimeout / c.pollInterval)
	if iterations < 1 {
		iterations = 1
	}
	poller, err := probe.NewStatusPoller(probe.StatusPollerConfig{
		API:            apiClient,
		Reporter:       rep,
		MaxIterations:  iterations,
		Interval:       c.pollInterval,
		RequestTimeout: c.requestTimeout,
		Logger:         logger,
	})
	if err != nil {
		return fmt.Errorf("could not create status poller: %w", err)
	}

	// Create run service.
	svc, err := apprun.NewService(apprun.ServiceConfig{
		Supervisor: sup,
		API:        apiClient,
		HealthGate: gate,
		Poller:     poller,
		Reporter:   rep,
		Journal:    journal,
		Logger:     logger,
	})
	if err != nil {
		return fmt.Errorf("could not create service: %w", err)
	}

	// Execute the verification run.
	result, err := svc.Run(ctx, apprun.Request{
		Services:       manifest.Services,
		File:           c.file,
		TargetLanguage: c.targetLanguage,
		TranslateStyle: c.translateStyle,
	})
	if err != nil {
		return fmt.Errorf("verification run failed: %w", err)
	}

	// A failed task is a clean run with a bad verdict: the reporter already
	// printed the outcome, the exit code has to reflect it.
	if result.Final.Status == model.TaskStateFailed {
		if result.Final.ErrorMessage != "" {
			return fmt.Errorf("task %s failed: %s", result.TaskID, result.Final.ErrorMessage)
		}
		return fmt.Errorf("task %s failed", result.TaskID)
	}

	return nil
}

// manifestNeedsDocker returns true when any declared service runs from an image.
func manifestNeedsDocker(m model.Manifest) bool {
	for _, s := range m.Services {
		if s.Image != "" {
			return true
		}
	}
	return false
}
