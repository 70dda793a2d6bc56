package httpapi_test

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rustedworkshop/smokerig/internal/model"
	"github.com/rustedworkshop/smokerig/internal/pipeline"
	"github.com/rustedworkshop/smokerig/internal/pipeline/httpapi"
)

func newTestClient(t *testing.T, handler http.Handler) *httpapi.Client {
	t.Helper()

	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	client, err := httpapi.NewClient(httpapi.ClientConfig{BaseURL: server.URL})
	require.NoError(t, err)

	return client
}

func newTestFile(t *testing.T, content string) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), "sample.pdf")
	err := os.WriteFile(path, []byte(content), 0o644)
	require.NoError(t, err)

	return path
}

func TestNewClient(t *testing.T) {
	tests := map[string]struct {
		config httpapi.ClientConfig
		expErr bool
	}{
		"An empty config should use the default base URL.": {
			config: httpapi.ClientConfig{},
		},

		"A valid base URL should be accepted.": {
			config: httpapi.ClientConfig{BaseURL: "http://localhost:9000"},
		},

		"A base URL without a scheme should fail.": {
			config: httpapi.ClientConfig{BaseURL: "localhost:9000"},
			expErr: true,
		},

		"A base URL without a host should fail.": {
			config: httpapi.ClientConfig{BaseURL: "http://"},
			expErr: true,
		},
	}

	for name, test := range tests {
		t.Run(name, func(t *testing.T) {
			assert := assert.New(t)

			_, err := httpapi.NewClient(test.config)

			if test.expErr {
				assert.Error(err)
			} else {
				assert.NoError(err)
			}
		})
	}
}

func TestClientHealth(t *testing.T) {
	tests := map[string]struct {
		handler http.HandlerFunc
		expErr  bool
	}{
		"A ready service should report healthy.": {
			handler: func(w http.ResponseWriter, r *http.Request) {
				io.WriteString(w, `{"status":"ok"}`)
			},
		},

		"A service reporting another status should not be healthy.": {
			handler: func(w http.ResponseWriter, r *http.Request) {
				io.WriteString(w, `{"status":"starting"}`)
			},
			expErr: true,
		},

		"A non-200 health response should not be healthy.": {
			handler: func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(http.StatusServiceUnavailable)
			},
			expErr: true,
		},

		"A malformed health body should not be healthy.": {
			handler: func(w http.ResponseWriter, r *http.Request) {
				io.WriteString(w, `not json`)
			},
			expErr: true,
		},
	}

	for name, test := range tests {
		t.Run(name, func(t *testing.T) {
			assert := assert.New(t)
			require := require.New(t)

			var gotPath string
			client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				gotPath = r.URL.Path
				test.handler(w, r)
			}))

			err := client.Health(context.Background())

			require.Equal("/health", gotPath)
			if test.expErr {
				assert.Error(err)
			} else {
				assert.NoError(err)
			}
		})
	}
}

func TestClientSubmitTask(t *testing.T) {
	tests := map[string]struct {
		handler func(t *testing.T) http.HandlerFunc
		expAck  *model.TaskAck
		expErr  error
	}{
		"A successful submission should return the acknowledged task.": {
			handler: func(t *testing.T) http.HandlerFunc {
				return func(w http.ResponseWriter, r *http.Request) {
					assert := assert.New(t)

					assert.Equal(http.MethodPost, r.Method)
					assert.Equal("/v1/tasks", r.URL.Path)

					err := r.ParseMultipartForm(1 << 20)
					assert.NoError(err)
					assert.Equal("zh-CN", r.FormValue("target_language"))
					assert.Equal("auto", r.FormValue("translate_style"))

					file, header, err := r.FormFile("file")
					assert.NoError(err)
					defer file.Close()
					assert.Equal("sample.pdf", header.Filename)
					content, err := io.ReadAll(file)
					assert.NoError(err)
					assert.Equal("fake pdf bytes", string(content))

					w.WriteHeader(http.StatusCreated)
					io.WriteString(w, `{"task_id":"task-42","status":"queued"}`)
				}
			},
			expAck: &model.TaskAck{TaskID: "task-42", Status: model.TaskStateQueued},
		},

		"A 200 submission response should be accepted as well.": {
			handler: func(t *testing.T) http.HandlerFunc {
				return func(w http.ResponseWriter, r *http.Request) {
					io.WriteString(w, `{"task_id":"task-42","status":"queued"}`)
				}
			},
			expAck: &model.TaskAck{TaskID: "task-42", Status: model.TaskStateQueued},
		},

		"An unknown acknowledged status should be recorded as reported.": {
			handler: func(t *testing.T) http.HandlerFunc {
				return func(w http.ResponseWriter, r *http.Request) {
					io.WriteString(w, `{"task_id":"task-42","status":"registered"}`)
				}
			},
			expAck: &model.TaskAck{TaskID: "task-42", Status: model.TaskState("registered")},
		},

		"An empty submission response should fail.": {
			handler: func(t *testing.T) http.HandlerFunc {
				return func(w http.ResponseWriter, r *http.Request) {
					w.WriteHeader(http.StatusCreated)
				}
			},
			expErr: model.ErrEmptyResponse,
		},

		"A submission response without a task ID should fail.": {
			handler: func(t *testing.T) http.HandlerFunc {
				return func(w http.ResponseWriter, r *http.Request) {
					io.WriteString(w, `{"status":"queued"}`)
				}
			},
			expErr: model.ErrMissingField,
		},
	}

	for name, test := range tests {
		t.Run(name, func(t *testing.T) {
			assert := assert.New(t)

			client := newTestClient(t, test.handler(t))
			filePath := newTestFile(t, "fake pdf bytes")

			ack, err := client.SubmitTask(context.Background(), pipeline.SubmitRequest{
				FilePath:       filePath,
				TargetLanguage: "zh-CN",
				TranslateStyle: "auto",
			})

			if test.expErr != nil {
				assert.True(errors.Is(err, test.expErr))
			} else if assert.NoError(err) {
				assert.Equal(test.expAck, ack)
			}
		})
	}
}

func TestClientSubmitTaskRejectedUpload(t *testing.T) {
	assert := assert.New(t)

	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnprocessableEntity)
		io.WriteString(w, `{"detail":"unsupported file type"}`)
	}))
	filePath := newTestFile(t, "not really a pdf")

	_, err := client.SubmitTask(context.Background(), pipeline.SubmitRequest{
		FilePath:       filePath,
		TargetLanguage: "zh-CN",
		TranslateStyle: "auto",
	})

	assert.Error(err)
	assert.Contains(err.Error(), "422")
	assert.Contains(err.Error(), "unsupported file type")
}

func TestClientSubmitTaskMissingFile(t *testing.T) {
	assert := assert.New(t)

	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Fatal("a missing local file should never reach the server")
	}))

	_, err := client.SubmitTask(context.Background(), pipeline.SubmitRequest{
		FilePath:       "/does/not/exist.pdf",
		TargetLanguage: "zh-CN",
		TranslateStyle: "auto",
	})

	assert.Error(err)
}

func TestClientTaskStatus(t *testing.T) {
	tests := map[string]struct {
		handler   http.HandlerFunc
		expStatus *model.TaskStatus
		expErr    error
	}{
		"A processing task should be mapped with all its fields.": {
			handler: func(w http.ResponseWriter, r *http.Request) {
				io.WriteString(w, `{"task_id":"task-42","status":"processing","progress":42.5,"processed_files":3,"total_files":8,"error_message":""}`)
			},
			expStatus: &model.TaskStatus{
				TaskID:         "task-42",
				Status:         model.TaskStateProcessing,
				Progress:       42.5,
				ProcessedFiles: 3,
				TotalFiles:     8,
			},
		},

		"A failed task should carry its error message.": {
			handler: func(w http.ResponseWriter, r *http.Request) {
				io.WriteString(w, `{"task_id":"task-42","status":"failed","progress":10,"processed_files":0,"total_files":8,"error_message":"worker crashed"}`)
			},
			expStatus: &model.TaskStatus{
				TaskID:       "task-42",
				Status:       model.TaskStateFailed,
				Progress:     10,
				TotalFiles:   8,
				ErrorMessage: "worker crashed",
			},
		},

		"An unknown task should return a not found error.": {
			handler: func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(http.StatusNotFound)
			},
			expErr: model.ErrNotFound,
		},

		"A server error should fail.": {
			handler: func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(http.StatusInternalServerError)
			},
			expErr: errors.New("500"),
		},
	}

	for name, test := range tests {
		t.Run(name, func(t *testing.T) {
			assert := assert.New(t)
			require := require.New(t)

			var gotPath string
			client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				gotPath = r.URL.Path
				test.handler(w, r)
			}))

			status, err := client.TaskStatus(context.Background(), "task-42")

			require.Equal("/v1/tasks/task-42", gotPath)
			switch {
			case test.expErr == nil:
				if assert.NoError(err) {
					assert.Equal(test.expStatus, status)
				}
			case errors.Is(test.expErr, model.ErrNotFound):
				assert.True(errors.Is(err, model.ErrNotFound))
			default:
				assert.Error(err)
				assert.Contains(err.Error(), test.expErr.Error())
			}
		})
	}
}

func TestClientTaskResult(t *testing.T) {
	tests := map[string]struct {
		handler http.HandlerFunc
		expLoc  *model.ResultLocation
		expErr  error
	}{
		"A resolved result should carry the URL and its lifetime.": {
			handler: func(w http.ResponseWriter, r *http.Request) {
				io.WriteString(w, `{"download_url":"https://storage.example.com/results/task-42.zip?sig=abc","expires_in":3600}`)
			},
			expLoc: &model.ResultLocation{
				DownloadURL: "https://storage.example.com/results/task-42.zip?sig=abc",
				ExpiresIn:   3600,
			},
		},

		"A result without a download URL should fail.": {
			handler: func(w http.ResponseWriter, r *http.Request) {
				io.WriteString(w, `{"expires_in":3600}`)
			},
			expErr: model.ErrMissingField,
		},

		"An unknown task should return a not found error.": {
			handler: func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(http.StatusNotFound)
			},
			expErr: model.ErrNotFound,
		},
	}

	for name, test := range tests {
		t.Run(name, func(t *testing.T) {
			assert := assert.New(t)
			require := require.New(t)

			var gotPath string
			client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				gotPath = r.URL.Path
				test.handler(w, r)
			}))

			loc, err := client.TaskResult(context.Background(), "task-42")

			require.Equal("/v1/tasks/task-42/result-url", gotPath)
			if test.expErr != nil {
				assert.True(errors.Is(err, test.expErr))
			} else if assert.NoError(err) {
				assert.Equal(test.expLoc, loc)
			}
		})
	}
}
