package accounts

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/2beens/calorietracker/internal/telemetry/metrics"
	"github.com/2beens/calorietracker/internal/telemetry/tracing"

	log "github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/multierr"
)

// Registry owns all user profiles, keyed by lowercased username.
// The backing file is only ever appended to. It is read on creation, and read
// again whenever its size or modification time shows another process wrote to it.
type Registry struct {
	path     string
	profiles map[string]Profile
	// taken holds the name of every non-blank line, including malformed ones
	taken       map[string]struct{}
	fileSize    int64
	fileModTime time.Time
	mutex       sync.RWMutex
	metrics     *metrics.Manager
}

// NewRegistry loads the registry file at path. A missing file yields an empty
// registry (the file gets created on the first registration). metricsManager may be nil.
func NewRegistry(path string, metricsManager *metrics.Manager) (*Registry, error) {
	if path == "" {
		return nil, errors.New("registry file path cannot be empty")
	}

	r := &Registry{
		path:     path,
		profiles: make(map[string]Profile),
		taken:    make(map[string]struct{}),
		metrics:  metricsManager,
	}

	skipped, err := r.load()
	if err != nil {
		return nil, fmt.Errorf("load registry %s: %w", path, err)
	}
	if skipped > 0 {
		log.Warnf("registry: skipped %d malformed lines in %s", skipped, path)
		if r.metrics != nil {
			r.metrics.CounterMalformedLines.WithLabelValues("registry").Add(float64(skipped))
		}
	}

	log.Debugf("registry: loaded %d profiles from %s", len(r.profiles), path)

	return r, nil
}

// load reads the whole file, replacing what is held in memory.
// The caller holds the write lock, or owns r exclusively.
func (r *Registry) load() (skipped int, err error) {
	f, err := os.Open(r.path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return 0, nil
		}
		return 0, err
	}
	defer func() {
		err = multierr.Append(err, f.Close())
	}()

	stat, err := f.Stat()
	if err != nil {
		return 0, err
	}

	profiles := make(map[string]Profile)
	taken := make(map[string]struct{})
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := scanner.Text()
		if strings.TrimSpace(line) == "" {
			continue
		}
		taken[lineUsername(line)] = struct{}{}

		profile, ok := parseLine(line)
		if !ok {
			skipped++
			continue
		}
		if _, exists := profiles[profile.Username]; exists {
			// first record wins, same as lookups on the original list
			skipped++
			continue
		}
		profiles[profile.Username] = profile
	}
	if err := scanner.Err(); err != nil {
		return 0, err
	}

	r.profiles = profiles
	r.taken = taken
	r.fileSize = stat.Size()
	r.fileModTime = stat.ModTime()
	if r.metrics != nil {
		r.metrics.GaugeRegisteredUsers.Set(float64(len(r.profiles)))
	}

	return skipped, nil
}

func (r *Registry) fileChanged() (bool, error) {
	stat, err := os.Stat(r.path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return false, nil
		}
		return false, err
	}
	return stat.Size() != r.fileSize || !stat.ModTime().Equal(r.fileModTime), nil
}

// reloadIfChanged picks up records appended by other processes.
// The caller holds the write lock.
func (r *Registry) reloadIfChanged() error {
	changed, err := r.fileChanged()
	if err != nil || !changed {
		return err
	}
	skipped, err := r.load()
	if err != nil {
		return fmt.Errorf("reload registry %s: %w", r.path, err)
	}
	log.Debugf("registry: reloaded %d profiles from %s (%d lines skipped)", len(r.profiles), r.path, skipped)
	return nil
}

// refresh is reloadIfChanged for readers, taking the write lock only when needed.
func (r *Registry) refresh() error {
	r.mutex.RLock()
	changed, err := r.fileChanged()
	r.mutex.RUnlock()
	if err != nil || !changed {
		return err
	}

	r.mutex.Lock()
	defer r.mutex.Unlock()
	return r.reloadIfChanged()
}

// Register stores a new profile. The username is normalized first and must
// pass ValidateUsername. ErrDuplicateUsername is returned if any record in the
// file, even a malformed one, already carries the name.
func (r *Registry) Register(ctx context.Context, profile Profile) (err error) {
	_, span := tracing.GlobalTracer.Start(ctx, "registry.register")
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()

	profile.Username = NormalizeUsername(profile.Username)
	span.SetAttributes(attribute.String("username", profile.Username))
	if err := ValidateUsername(profile.Username); err != nil {
		return err
	}

	r.mutex.Lock()
	defer r.mutex.Unlock()

	if err := r.reloadIfChanged(); err != nil {
		return err
	}
	if _, exists := r.taken[profile.Username]; exists {
		return ErrDuplicateUsername
	}

	if err := r.appendToFile(profile); err != nil {
		return fmt.Errorf("save profile: %w", err)
	}

	// the file stat is left as is, so the next read reloads our own line too
	r.profiles[profile.Username] = profile
	r.taken[profile.Username] = struct{}{}
	if r.metrics != nil {
		r.metrics.CounterSignUps.Inc()
		r.metrics.GaugeRegisteredUsers.Set(float64(len(r.profiles)))
	}

	log.Infof("registry: new user registered [%s]", profile.Username)

	return nil
}

func (r *Registry) appendToFile(profile Profile) (err error) {
	if dir := filepath.Dir(r.path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return err
		}
	}

	f, err := os.OpenFile(r.path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return err
	}
	defer func() {
		err = multierr.Append(err, f.Close())
	}()

	// records are newline-prefixed, the loader skips the leading blank line
	_, err = f.WriteString("\n" + formatLine(profile))
	return err
}

// Lookup returns the profile for username (compared case-insensitively).
func (r *Registry) Lookup(ctx context.Context, username string) (_ Profile, err error) {
	_, span := tracing.GlobalTracer.Start(ctx, "registry.lookup")
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()

	if err := r.refresh(); err != nil {
		return Profile{}, err
	}

	r.mutex.RLock()
	defer r.mutex.RUnlock()

	profile, ok := r.profiles[NormalizeUsername(username)]
	if !ok {
		return Profile{}, ErrNotFound
	}
	return profile, nil
}

// Exists reports whether a usable profile is stored for username.
func (r *Registry) Exists(_ context.Context, username string) bool {
	r.refreshOrWarn()
	r.mutex.RLock()
	defer r.mutex.RUnlock()
	_, ok := r.profiles[NormalizeUsername(username)]
	return ok
}

// Taken reports whether username cannot be registered anymore. Unlike Exists,
// names of malformed records count as taken.
func (r *Registry) Taken(_ context.Context, username string) bool {
	r.refreshOrWarn()
	r.mutex.RLock()
	defer r.mutex.RUnlock()
	_, ok := r.taken[NormalizeUsername(username)]
	return ok
}

func (r *Registry) Count() int {
	r.refreshOrWarn()
	r.mutex.RLock()
	defer r.mutex.RUnlock()
	return len(r.profiles)
}

func (r *Registry) refreshOrWarn() {
	if err := r.refresh(); err != nil {
		log.Warnf("registry: serving possibly stale profiles: %s", err)
	}
}
