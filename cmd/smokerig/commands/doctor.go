package commands

import (
	"context"
	"fmt"
	"net/url"
	"os"
	"path/filepath"

	"github.com/alecthomas/kingpin/v2"

	"github.com/rustedworkshop/smokerig/internal/conventions"
	"github.com/rustedworkshop/smokerig/internal/model"
	"github.com/rustedworkshop/smokerig/internal/pipeline/httpapi"
	"github.com/rustedworkshop/smokerig/internal/runner/docker"
	"github.com/rustedworkshop/smokerig/internal/runner/host"
	"github.com/rustedworkshop/smokerig/internal/storage/io"
	"github.com/rustedworkshop/smokerig/internal/supervisor"
)

type DoctorCommand struct {
	Cmd     *kingpin.CmdClause
	rootCmd *RootCommand

	manifestFile string
	apiURL       string
	logDir       string
}

// NewDoctorCommand returns the doctor command.
func NewDoctorCommand(rootCmd *RootCommand, app *kingpin.Application) *DoctorCommand {
	c := &DoctorCommand{rootCmd: rootCmd}

	c.Cmd = app.Command("doctor", "Run preflight checks for a verification run.")
	c.Cmd.Flag("manifest", "Path to the services manifest YAML file.").Short('f').Default(conventions.DefaultManifestFile).StringVar(&c.manifestFile)
	c.Cmd.Flag("api-url", "Translation API base URL. Overrides the manifest value.").StringVar(&c.apiURL)
	c.Cmd.Flag("log-dir", "Directory for service log files.").Default(conventions.DefaultLogDir).StringVar(&c.logDir)

	return c
}

func (c DoctorCommand) Name() string { return c.Cmd.FullCommand() }

func (c DoctorCommand) Run(ctx context.Context) error {
	logger := c.rootCmd.Logger
	out := c.rootCmd.Stdout

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

	var sections []checkSection

	// Check service runtimes.
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

	sections = append(sections, checkSection{
		name:    "service runtimes",
		results: sup.Check(ctx, manifest.Services),
	})

	// Check the pipeline API URL.
	apiURL := c.apiURL
	if apiURL == "" {
		apiURL = manifest.APIURL
	}
	if apiURL == "" {
		apiURL = httpapi.DefaultBaseURL
	}
	sections = append(sections, checkSection{
		name:    "pipeline API",
		results: []model.CheckResult{checkAPIURL(apiURL)},
	})

	// Print results
	totalErrors := 0
	totalWarnings := 0

	for _, sec := range sections {
		fmt.Fprintf(out, "\nChecking %s...\n", sec.name)
		for _, r := range sec.results {
			icon := getStatusIcon(r.Status)
			fmt.Fprintf(out, "  %s %-20s %s\n", icon, r.ID, r.Message)
		}

		_, warnings, errors := model.CountByStatus(sec.results)
		totalErrors += errors
		totalWarnings += warnings
	}

	// Summary
	fmt.Fprintln(out)
	if totalErrors == 0 && totalWarnings == 0 {
		fmt.Fprintln(out, "All checks passed!")
	} else {
		var summary []string
		if totalErrors > 0 {
			summary = append(summary, fmt.Sprintf("%d error(s)", totalErrors))
		}
		if totalWarnings > 0 {
			summary = append(summary, fmt.Sprintf("%d warning(s)", totalWarnings))
		}
		fmt.Fprintf(out, "%s\n", joinWithComma(summary))
	}

	// Return error if there are any errors
	if totalErrors > 0 {
		return fmt.Errorf("preflight checks failed with %d error(s)", totalErrors)
	}

	return nil
}

type checkSection struct {
	name    string
	results []model.CheckResult
}

// checkAPIURL checks the pipeline API base URL is well formed.
func checkAPIURL(apiURL string) model.CheckResult {
	u, err := url.Parse(apiURL)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return model.CheckResult{
			ID:      "api_url",
			Message: fmt.Sprintf("API URL %q needs a scheme and a host", apiURL),
			Status:  model.CheckStatusError,
		}
	}

	return model.CheckResult{
		ID:      "api_url",
		Message: fmt.Sprintf("API URL %s is well formed", apiURL),
		Status:  model.CheckStatusOK,
	}
}

func getStatusIcon(status model.CheckStatus) string {
	switch status {
	case model.CheckStatusOK:
		return "OK"
	case model.CheckStatusWarning:
		return "!!"
	case model.CheckStatusError:
		return "XX"
	default:
		return "??"
	}
}

func joinWithComma(parts []string) string {
	if len(parts) == 0 {
		return ""
	}
	if len(parts) == 1 {
		return parts[0]
	}
	result := parts[0]
	for i := 1; i < len(parts); i++ {
		result += ", " + parts[i]
	}
	return result
}
