// Package provision runs asynchronous environment provisioning jobs by
// driving kubectl: namespace, resource quota, limit range, and team label.
package provision

import (
	"context"
	"fmt"
	"log/slog"
	"os/exec"
	"strings"
	"sync"

	"github.com/devplane-io/devplane/internal/metrics"
	"github.com/devplane-io/devplane/internal/models"
)

// Runner executes one provisioning command. stdin is piped to the command
// when non-empty. The default implementation execs kubectl.
type Runner interface {
	Run(ctx context.Context, stdin string, args ...string) (output string, err error)
}

// Store persists job progress. *repo.EnvironmentRepo satisfies it.
type Store interface {
	SetStatus(ctx context.Context, id int, status, errMsg string) error
	AppendStep(ctx context.Context, id int, step string) error
}

// KubectlRunner executes kubectl with the given args.
type KubectlRunner struct {
	Path string
}

func (k KubectlRunner) Run(ctx context.Context, stdin string, args ...string) (string, error) {
	cmd := exec.CommandContext(ctx, k.Path, args...)
	if stdin != "" {
		cmd.Stdin = strings.NewReader(stdin)
	}
	out, err := cmd.CombinedOutput()
	return string(out), err
}

// Engine tracks running provisioning jobs. Jobs are keyed by environment id
// so status survives across requests; cancel channels are in-memory only.
type Engine struct {
	Store  Store
	Runner Runner

	mu   sync.Mutex
	jobs map[int]chan struct{}
}

func NewEngine(store Store, runner Runner) *Engine {
	return &Engine{
		Store:  store,
		Runner: runner,
		jobs:   make(map[int]chan struct{}),
	}
}

type step struct {
	name  string
	stdin string
	args  []string
}

func steps(env models.Environment) []step {
	limitRange := fmt.Sprintf(`apiVersion: v1
kind: LimitRange
metadata:
  name: defaults
  namespace: %s
spec:
  limits:
    - type: Container
      defaultRequest:
        cpu: 100m
        memory: 128Mi
`, env.Name)

	return []step{
		{name: "create namespace", args: []string{"create", "namespace", env.Name}},
		{name: "label namespace", args: []string{"label", "namespace", env.Name, "team=" + env.Team}},
		{name: "apply resource quota", args: []string{"create", "quota", env.Name + "-quota",
			"--namespace", env.Name,
			"--hard", fmt.Sprintf("limits.cpu=%s,limits.memory=%s", env.CPULimit, env.MemLimit)}},
		{name: "apply limit range", stdin: limitRange, args: []string{"apply", "--namespace", env.Name, "-f", "-"}},
	}
}

// Start launches the provisioning job for env. It returns an error if a job
// for this environment is already running.
func (e *Engine) Start(env models.Environment) error {
	e.mu.Lock()
	if _, running := e.jobs[env.ID]; running {
		e.mu.Unlock()
		return fmt.Errorf("environment %d is already provisioning", env.ID)
	}
	cancel := make(chan struct{})
	e.jobs[env.ID] = cancel
	e.mu.Unlock()

	go e.run(env, cancel)
	return nil
}

// Cancel closes the job's cancel channel. Returns false when no job is
// running for the environment.
func (e *Engine) Cancel(envID int) bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	cancel, ok := e.jobs[envID]
	if !ok {
		return false
	}
	select {
	case <-cancel:
	default:
		close(cancel)
	}
	return true
}

// Running reports whether a job is in flight for the environment.
func (e *Engine) Running(envID int) bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	_, ok := e.jobs[envID]
	return ok
}

func (e *Engine) finish(envID int, status, errMsg string) {
	ctx := context.Background()
	if err := e.Store.SetStatus(ctx, envID, status, errMsg); err != nil {
		slog.Error("provision: persist status", "env_id", envID, "status", status, "error", err)
	}
	metrics.ProvisionJobsTotal.WithLabelValues(status).Inc()

	e.mu.Lock()
	delete(e.jobs, envID)
	e.mu.Unlock()
}

func (e *Engine) run(env models.Environment, cancel chan struct{}) {
	ctx := context.Background()
	metrics.ProvisionJobsRunning.Inc()
	defer metrics.ProvisionJobsRunning.Dec()

	if err := e.Store.SetStatus(ctx, env.ID, models.EnvStatusProvisioning, ""); err != nil {
		slog.Error("provision: mark provisioning", "env_id", env.ID, "error", err)
	}

	for _, s := range steps(env) {
		select {
		case <-cancel:
			// Applied steps stay applied; the step log records how far we got.
			e.finish(env.ID, models.EnvStatusCanceled, "")
			return
		default:
		}

		out, err := e.Runner.Run(ctx, s.stdin, s.args...)
		if err != nil {
			detail := strings.TrimSpace(out)
			if detail == "" {
				detail = err.Error()
			}
			_ = e.Store.AppendStep(ctx, env.ID, "failed: "+s.name)
			e.finish(env.ID, models.EnvStatusFailed, fmt.Sprintf("%s: %s", s.name, detail))
			return
		}
		if err := e.Store.AppendStep(ctx, env.ID, "ok: "+s.name); err != nil {
			slog.Error("provision: append step", "env_id", env.ID, "step", s.name, "error", err)
		}
	}

	e.finish(env.ID, models.EnvStatusReady, "")
}
