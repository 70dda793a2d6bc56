// Package lib provides a Go SDK for driving smokerig verification runs
// programmatically.
//
// This package allows applications to verify a translation pipeline
// deployment without shelling out to the smokerig CLI binary. It is useful
// for CI jobs, release gates, and building tools on top of smokerig.
//
// # Quick Start
//
// Create a client, declare the pipeline services, and run one end-to-end
// verification:
//
//	client, err := lib.New(ctx, lib.Config{})
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer client.Close()
//
//	result, err := client.Run(ctx, lib.RunOpts{
//	    Services: []lib.ServiceSpec{
//	        {Name: "api", Command: []string{"python", "api_service.py"}},
//	        {Name: "task-processor", Command: []string{"python", "task_processor.py"}},
//	        {Name: "translator", Command: []string{"python", "translator_server.py"}},
//	    },
//	    File:         "testdata/sample.zip",
//	    StatusWriter: os.Stdout,
//	})
//
// Run launches the services, waits for the API health endpoint, submits the
// file, polls the task to a terminal status, resolves the download URL on
// success, and always tears the services down before returning.
//
// # Service Runtimes
//
// A [ServiceSpec] declares either a host process (Command) or a container
// (Image):
//
//   - Host processes are spawned directly, with stdout and stderr redirected
//     to per-service log files.
//   - Containers run through the Docker daemon on the host network, so the
//     services reach each other on localhost exactly like host processes.
//
// # Run Outcomes
//
// A failed translation task is a verdict, not an SDK error: Run returns a
// [RunResult] whose Final.Status is [TaskStateFailed] and a nil error. SDK
// errors mean the verification itself could not finish, and can be inspected
// with [errors.Is]:
//
//   - [ErrLaunch]: a declared service could not be started.
//   - [ErrHealthTimeout]: the API never reported ready.
//   - [ErrPollTimeout]: the task never reached a terminal status.
//   - [ErrEmptyResponse], [ErrMissingField]: the API replied with an
//     unusable payload.
//   - [ErrNotFound], [ErrNotValid]: unknown resources and invalid input.
//
// # Run History
//
// Every run is recorded in a SQLite journal. List past runs, most recent
// first:
//
//	runs, _ := client.ListRuns(ctx, &lib.ListRunsOpts{Limit: 10})
//	for _, r := range runs {
//	    fmt.Printf("%s %s %s\n", r.ID, r.Status, r.File)
//	}
//
// # Health Checks
//
// Run preflight checks before a verification to catch missing executables,
// an unreachable Docker daemon, or a malformed API URL:
//
//	results, _ := client.Doctor(ctx, lib.DoctorOpts{Services: services})
//	for _, r := range results {
//	    fmt.Printf("%s: %s (%s)\n", r.ID, r.Message, r.Status)
//	}
//
// # Testing
//
// Use a temporary database path and trivial host commands to write tests
// without a real pipeline:
//
//	client, _ := lib.New(ctx, lib.Config{
//	    DBPath: filepath.Join(t.TempDir(), "test.db"),
//	    LogDir: t.TempDir(),
//	})
//	defer client.Close()
//
// # Thread Safety
//
// A [Client] is safe for concurrent use from multiple goroutines. The run
// journal uses SQLite with WAL mode, and the service supervisor is created
// per-run.
package lib
