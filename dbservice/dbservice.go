package dbservice

import (
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/rhoulihan/BSON-JSON-bakeoff/target"
)

type Kind string

const (
	MongoDB    Kind = "mongodb"
	PostgreSQL Kind = "postgresql"
	Oracle     Kind = "oracle"
)

// A Service is one systemd unit backing a database kind.
type Service struct {
	Unit string
	Kind Kind
}

// The units the benchmark hosts run. Only one is active at a time; the
// orchestrator stops the previous unit before starting the next.
var KnownServices = []Service{
	{Unit: "mongod", Kind: MongoDB},
	{Unit: "postgresql-17", Kind: PostgreSQL},
	{Unit: "oracle-free-26ai", Kind: Oracle},
}

func ServiceFor(dbType string) (Service, error) {
	for _, s := range KnownServices {
		if string(s.Kind) == dbType {
			return s, nil
		}
	}
	return Service{}, fmt.Errorf("no service known for database type %q", dbType)
}

// Controller starts and stops database services on the target and polls their
// readiness probes. A service that never becomes ready is reported as an
// error; the caller decides what to do with the pending tests.
type Controller struct {
	Target       target.Target
	WaitTimeout  time.Duration
	PollInterval time.Duration
}

func NewController(t target.Target) *Controller {
	return &Controller{
		Target:       t,
		WaitTimeout:  30 * time.Second,
		PollInterval: 2 * time.Second,
	}
}

// Start brings the unit up and waits for its readiness probe.
func (c *Controller) Start(s Service) error {
	slog.Info("starting database service", slog.String("unit", s.Unit))
	out, err := c.Target.RunCommand(fmt.Sprintf("sudo systemctl start %s", s.Unit))
	if err != nil {
		return fmt.Errorf("failed to start %s: %s: %w", s.Unit, string(out), err)
	}

	deadline := time.Now().Add(c.WaitTimeout)
	waited := time.Duration(0)
	for time.Now().Before(deadline) {
		time.Sleep(c.PollInterval)
		waited += c.PollInterval
		if c.probe(s.Kind) {
			slog.Info("database service ready", slog.String("unit", s.Unit), slog.Duration("took", waited))
			return nil
		}
	}
	return fmt.Errorf("timed out waiting for %s to become ready", s.Unit)
}

// Stop brings the unit down and leaves a short settle period, matching the
// behavior the result timings were calibrated against.
func (c *Controller) Stop(s Service) {
	slog.Info("stopping database service", slog.String("unit", s.Unit))
	out, err := c.Target.RunCommand(fmt.Sprintf("sudo systemctl stop %s", s.Unit))
	if err != nil {
		slog.Warn("failed to stop service", slog.String("unit", s.Unit), slog.String("output", string(out)), slog.String("error", err.Error()))
	}
	time.Sleep(2 * time.Second)
}

// StopAll stops every known service so a suite starts from a clean slate.
func (c *Controller) StopAll() {
	slog.Info("stopping all database services")
	for _, s := range KnownServices {
		out, err := c.Target.RunCommand(fmt.Sprintf("sudo systemctl stop %s", s.Unit))
		if err != nil {
			slog.Debug("stop failed", slog.String("unit", s.Unit), slog.String("output", string(out)))
		}
	}
	time.Sleep(2 * time.Second)
}

func (c *Controller) probe(kind Kind) bool {
	switch kind {
	case MongoDB:
		out, err := c.Target.RunCommand(`mongosh --quiet --eval 'db.adminCommand("ping").ok' 2>&1`)
		return err == nil && strings.Contains(string(out), "1")
	case PostgreSQL:
		_, err := c.Target.RunCommand(`sudo -u postgres psql -c 'SELECT 1;' 2>&1`)
		return err == nil
	case Oracle:
		// The pmon background process indicates a running instance; there is
		// no cheap client-side probe for Oracle Free.
		out, err := c.Target.RunCommand("ps aux | grep ora_pmon | grep -v grep")
		return err == nil && strings.TrimSpace(string(out)) != ""
	default:
		return false
	}
}
