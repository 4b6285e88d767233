package e2e

import (
	"bytes"
	"chatlark/infrastructure/realtime"
	"chatlark/infrastructure/rest"
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httputil"
	"strings"
	"testing"
	"time"

	"github.com/gookit/color"
	"github.com/mama165/sdk-go/logs"
	"github.com/stretchr/testify/suite"
)

type BaseSuite struct {
	suite.Suite
	Config Config
	Log    *slog.Logger
}

// SetupSuite loads the environment configuration and skips when no server is configured.
func (s *BaseSuite) SetupSuite() {
	var err error
	s.Config, err = LoadConfig()
	s.Require().NoError(err)
	if !s.Config.Configured() {
		s.T().Skip("CHATLARK_API_HOST, E2E_SENDER_IDENTITY and E2E_RECEIVER_IDENTITY are required")
	}
	s.Log = logs.GetLoggerFromLevel(slog.LevelDebug)
}

// loggingTransport prints every call, with bodies when E2E_DEBUG_JSON is set.
type loggingTransport struct {
	t         *testing.T
	debugJSON bool
	next      http.RoundTripper
}

func (l loggingTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	start := time.Now()
	var reqBody []byte
	if l.debugJSON && req.Body != nil {
		reqBody, _ = io.ReadAll(req.Body)
		req.Body = io.NopCloser(bytes.NewReader(reqBody))
	}

	resp, err := l.next.RoundTrip(req)

	logBuilder := strings.Builder{}
	status := "ERR"
	if resp != nil {
		status = resp.Status
	}
	fmt.Fprintf(&logBuilder, "HTTP %s %s [%s] in %v", req.Method, req.URL.Path, status, time.Since(start))
	if l.debugJSON {
		fmt.Fprintln(&logBuilder, "\nREQUEST:")
		fmt.Fprintln(&logBuilder, string(reqBody))
		if err != nil {
			fmt.Fprintln(&logBuilder, "ERROR:", err)
		} else if dump, dumpErr := httputil.DumpResponse(resp, true); dumpErr == nil {
			fmt.Fprintln(&logBuilder, "RESPONSE:")
			fmt.Fprintln(&logBuilder, string(dump))
		}
	}
	l.t.Log(logBuilder.String())
	return resp, err
}

// Client builds a REST client whose calls are logged under a colorized header.
func (s *BaseSuite) Client(t *testing.T, name string) *rest.Client {
	header := fmt.Sprintf("  ====== %s ======", name)
	if s.Config.Colours {
		header = color.New(color.BgBlack, color.FgGreen).Render(header)
	}
	t.Log(header)

	return rest.NewClient(s.Config.APIHost, 10*time.Second, s.Log).
		WithTransport(loggingTransport{t: t, debugJSON: s.Config.DebugJSON, next: http.DefaultTransport})
}

func (s *BaseSuite) Transport() *realtime.Transport {
	transport, err := realtime.NewTransport(s.Config.APIHost, s.Config.RealtimePath, s.Log)
	s.Require().NoError(err)
	return transport
}

// WithClient runs fn inside a contextual test step with a bounded context.
func (s *BaseSuite) WithClient(name string, fn func(ctx context.Context, client *rest.Client)) {
	client := s.Client(s.T(), name)
	ctx, cancel := context.WithTimeout(context.Background(), 60*time.Second)
	defer cancel()

	fn(ctx, client)
}
