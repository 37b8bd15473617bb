//go:build e2e

package e2e

import (
	"fmt"
	"net"
	"net/http"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"
	"testing"
	"time"
)

// pathosServer manages a running `pathos serve` process.
type pathosServer struct {
	cmd     *exec.Cmd
	dataDir string
	address string
	logFile string
}

// startPathos launches `pathos serve` and waits for it to become healthy.
// It is configured entirely via environment variables.
func startPathos(t *testing.T) *pathosServer {
	t.Helper()
	requirePathos(t)

	dataDir := t.TempDir()
	port := freePort(t)
	logFile := filepath.Join(dataDir, "pathos.log")

	return launch(t, dataDir, port, logFile)
}

// launch starts `pathos serve` on dataDir and registers cleanup.
func launch(t *testing.T, dataDir string, port int, logFile string) *pathosServer {
	t.Helper()

	cmd := exec.Command(pathosBin, "serve")
	cmd.Env = append(os.Environ(),
		fmt.Sprintf("PATHOS_PORT=%d", port),
		"PATHOS_SERVER_DB_PATH="+filepath.Join(dataDir, "server.db"),
		"PATHOS_CONFIG_PATH="+filepath.Join(dataDir, "nonexistent.yaml"), // skip YAML file
		"PATHOS_GENERATOR_PROVIDER=mock",
		"PATHOS_LOG_FORMAT=json",
	)

	lf, err := os.Create(logFile)
	if err != nil {
		t.Fatalf("create log file: %v", err)
	}
	cmd.Stdout = lf
	cmd.Stderr = lf

	if err := cmd.Start(); err != nil {
		lf.Close()
		t.Fatalf("start pathos: %v", err)
	}

	s := &pathosServer{
		cmd:     cmd,
		dataDir: dataDir,
		address: fmt.Sprintf("127.0.0.1:%d", port),
		logFile: logFile,
	}

	t.Cleanup(func() {
		s.stop()
		lf.Close()
	})

	if err := s.waitHealthy(10 * time.Second); err != nil {
		t.Fatalf("pathos not healthy: %v", err)
	}
	return s
}

// restartOnSameData starts a new server process on the stopped server's
// port and data directory.
func (s *pathosServer) restartOnSameData(t *testing.T) *pathosServer {
	t.Helper()
	port := s.address[strings.LastIndex(s.address, ":")+1:]
	n, err := strconv.Atoi(port)
	if err != nil {
		t.Fatalf("parse port %q: %v", port, err)
	}
	return launch(t, s.dataDir, n, s.logFile+".restart")
}

func (s *pathosServer) stop() {
	if s.cmd != nil && s.cmd.Process != nil {
		_ = s.cmd.Process.Signal(os.Interrupt)
		_ = s.cmd.Wait()
	}
}

func (s *pathosServer) baseURL() string {
	return "http://" + s.address
}

func (s *pathosServer) waitHealthy(timeout time.Duration) error {
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		resp, err := http.Get(s.baseURL() + "/")
		if err == nil {
			resp.Body.Close()
			if resp.StatusCode == http.StatusOK {
				return nil
			}
		}
		time.Sleep(100 * time.Millisecond)
	}
	return fmt.Errorf("server at %s not healthy after %s", s.address, timeout)
}

// pathosCLI runs client commands against a server with an isolated home.
type pathosCLI struct {
	server *pathosServer
	dbPath string
	cfgDir string
}

func newPathosCLI(t *testing.T, server *pathosServer) *pathosCLI {
	t.Helper()
	dir := t.TempDir()
	return &pathosCLI{
		server: server,
		dbPath: filepath.Join(dir, "client.db"),
		cfgDir: dir,
	}
}

func (p *pathosCLI) exec(t *testing.T, args ...string) (string, error) {
	t.Helper()
	cmd := exec.Command(pathosBin, args...)
	cmd.Env = append(os.Environ(),
		"PATHOS_API_URL="+p.server.baseURL(),
		"PATHOS_DB_PATH="+p.dbPath,
		"PATHOS_CONFIG_PATH="+filepath.Join(p.cfgDir, "nonexistent.yaml"),
		"CI=1",
	)
	out, err := cmd.Output()
	return strings.TrimSpace(string(out)), err
}

func (p *pathosCLI) mustExec(t *testing.T, args ...string) string {
	t.Helper()
	out, err := p.exec(t, args...)
	if err != nil {
		var stderr string
		if ee, ok := err.(*exec.ExitError); ok {
			stderr = string(ee.Stderr)
		}
		t.Fatalf("pathos %s: %v\n%s\n%s", strings.Join(args, " "), err, out, stderr)
	}
	return out
}

func freePort(t *testing.T) int {
	t.Helper()
	l, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("free port: %v", err)
	}
	defer l.Close()
	return l.Addr().(*net.TCPAddr).Port
}
