package rpc

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"sync"
	"sync/atomic"
	"time"

	"github.com/md4c-json/specsplit/internal/parser"
)

var (
	ErrParserNotInstalled = errors.New("parser command not found")
	ErrProcessNotRunning  = errors.New("parser process not running")
)

type ProcessConfig struct {
	Command        string
	Args           []string
	RequestTimeout time.Duration
	// Stderr receives the child's diagnostics. Defaults to os.Stderr.
	Stderr io.Writer
}

// Process is an external parser speaking the getTests protocol on its
// standard streams.
type Process struct {
	config ProcessConfig

	cmd    *exec.Cmd
	client *Client

	state     atomic.Value
	startedAt time.Time

	mu       sync.RWMutex
	stopOnce sync.Once
}

var _ parser.Parser = (*Process)(nil)

func StartProcess(ctx context.Context, config ProcessConfig) (*Process, error) {
	p := &Process{config: config}
	p.state.Store(StateStarting)

	path, err := exec.LookPath(config.Command)
	if err != nil {
		p.state.Store(StateError)
		return nil, fmt.Errorf("%w: %s", ErrParserNotInstalled, config.Command)
	}

	p.cmd = exec.CommandContext(ctx, path, config.Args...)
	p.cmd.Stderr = config.Stderr
	if p.cmd.Stderr == nil {
		p.cmd.Stderr = os.Stderr
	}

	stdin, err := p.cmd.StdinPipe()
	if err != nil {
		return nil, fmt.Errorf("failed to get stdin pipe: %w", err)
	}

	stdout, err := p.cmd.StdoutPipe()
	if err != nil {
		stdin.Close()
		return nil, fmt.Errorf("failed to get stdout pipe: %w", err)
	}

	if err := p.cmd.Start(); err != nil {
		stdin.Close()
		stdout.Close()
		return nil, fmt.Errorf("failed to start %s: %w", config.Command, err)
	}
	p.startedAt = time.Now()

	p.client = NewClient(ctx, NewStdio(stdout, stdin), ClientConfig{
		RequestTimeout: config.RequestTimeout,
	})
	p.state.Store(StateReady)

	log.Debug("parser process started", "command", config.Command, "pid", p.cmd.Process.Pid)
	return p, nil
}

func (p *Process) GetTests(ctx context.Context, path string) ([]parser.Record, error) {
	p.mu.RLock()
	client := p.client
	p.mu.RUnlock()

	if client == nil || p.State() != StateReady {
		return nil, ErrProcessNotRunning
	}
	return client.GetTests(ctx, path)
}

// Close asks the parser to shut down, then waits for it to exit. A child
// that lingers is killed.
func (p *Process) Close() error {
	var err error
	p.stopOnce.Do(func() {
		uptime := p.Uptime()

		p.mu.Lock()
		defer p.mu.Unlock()

		if p.client != nil {
			requests, failures := p.client.Stats()
			log.Debug("stopping parser process",
				"command", p.config.Command,
				"uptime", uptime,
				"requests", requests,
				"failures", failures,
			)
		}

		if p.client != nil && p.client.IsReady() {
			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			if shutdownErr := p.client.Shutdown(ctx); shutdownErr != nil {
				err = shutdownErr
			}
			cancel()
			p.client.Close()
		}

		if p.cmd != nil && p.cmd.Process != nil {
			done := make(chan error, 1)
			go func() {
				done <- p.cmd.Wait()
			}()

			select {
			case <-done:
			case <-time.After(3 * time.Second):
				p.cmd.Process.Kill()
				<-done
			}
		}

		p.state.Store(StateStopped)
		p.client = nil
		p.cmd = nil
	})
	return err
}

func (p *Process) State() State {
	return p.state.Load().(State)
}

func (p *Process) Uptime() time.Duration {
	if p.startedAt.IsZero() || p.State() != StateReady {
		return 0
	}
	return time.Since(p.startedAt)
}
