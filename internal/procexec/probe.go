package procexec

import (
	"context"
	"os/exec"
	"time"

	"go.uber.org/zap"
)

// Tool identifies an external executable the pipeline may depend on.
type Tool struct {
	// Name is a stable identifier used in logs and capability reports.
	Name string
	// Path is the executable name or absolute path.
	Path string
	// VersionArgs query the tool without side effects.
	VersionArgs []string
}

// Prober answers whether a tool is usable on this host.
type Prober interface {
	Available(ctx context.Context, tool Tool) bool
}

// ExecProber locates a tool on PATH and runs its version query.
//
// A tool counts as available when it can be found and its version query runs
// to completion; the exit status is ignored because some tools (older
// pdftoppm builds) exit non-zero from -v. Failures are expected on hosts that
// lack a tool, so they are logged at debug level only.
type ExecProber struct {
	invoker  Invoker
	lookPath func(string) (string, error)
	timeout  time.Duration
	logger   *zap.Logger
}

// NewExecProber creates a prober that runs version queries through invoker.
func NewExecProber(invoker Invoker, timeout time.Duration, logger *zap.Logger) *ExecProber {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ExecProber{
		invoker:  invoker,
		lookPath: exec.LookPath,
		timeout:  timeout,
		logger:   logger,
	}
}

// Available reports whether tool can be executed.
func (p *ExecProber) Available(ctx context.Context, tool Tool) bool {
	if tool.Path == "" {
		return false
	}
	path, err := p.lookPath(tool.Path)
	if err != nil {
		p.logger.Debug("tool not on PATH", zap.String("tool", tool.Name), zap.String("path", tool.Path))
		return false
	}

	_, err = p.invoker.Run(ctx, Command{Name: path, Args: tool.VersionArgs, Timeout: p.timeout})
	if err != nil {
		p.logger.Debug("tool version query failed", zap.String("tool", tool.Name), zap.Error(err))
		return false
	}
	return true
}

// StaticProber reports a fixed capability set keyed by Tool.Name.
type StaticProber map[string]bool

// Available reports the configured value for tool.Name.
func (s StaticProber) Available(_ context.Context, tool Tool) bool {
	return s[tool.Name]
}
