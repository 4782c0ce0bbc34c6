package records

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"

	"github.com/2beens/calorietracker/internal/telemetry/metrics"
	"github.com/2beens/calorietracker/internal/telemetry/tracing"

	"github.com/coocood/freecache"
	log "github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/multierr"
)

const (
	logFileExt = ".txt"
	// cached logs are checked against the file on every load
	cacheExpireNever = 0
)

var (
	ErrEmptyUsername   = errors.New("username is empty")
	ErrInvalidUsername = errors.New("username cannot be used as a log file name")
)

// Store keeps one append-only log file per user: <dir>/<username>.txt
type Store struct {
	dir     string
	cache   *freecache.Cache
	locks   sync.Map // username -> *sync.Mutex
	metrics *metrics.Manager
}

// NewStore creates the store, making sure dir exists. metricsManager may be nil.
func NewStore(dir string, metricsManager *metrics.Manager) (*Store, error) {
	if dir == "" {
		return nil, errors.New("records dir cannot be empty")
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create records dir: %w", err)
	}

	megabyte := 1024 * 1024
	cacheSize := 10 * megabyte

	return &Store{
		dir:     dir,
		cache:   freecache.NewCache(cacheSize),
		metrics: metricsManager,
	}, nil
}

func (s *Store) userLock(username string) *sync.Mutex {
	mu, _ := s.locks.LoadOrStore(username, &sync.Mutex{})
	return mu.(*sync.Mutex)
}

func (s *Store) logPath(username string) (string, error) {
	if username == "" {
		return "", ErrEmptyUsername
	}
	if strings.ContainsAny(username, `/\`) || username == "." || username == ".." {
		return "", fmt.Errorf("%w: %q", ErrInvalidUsername, username)
	}
	return filepath.Join(s.dir, username+logFileExt), nil
}

// Append adds entries to the end of the user's log, creating it if absent.
func (s *Store) Append(ctx context.Context, username string, entries []Entry) (err error) {
	_, span := tracing.GlobalTracer.Start(ctx, "records.append")
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()
	span.SetAttributes(attribute.Int("entries", len(entries)))

	path, err := s.logPath(username)
	if err != nil {
		return err
	}
	if len(entries) == 0 {
		return nil
	}

	mu := s.userLock(username)
	mu.Lock()
	defer mu.Unlock()

	var sb strings.Builder
	endsWithNewline, err := fileEndsWithNewline(path)
	if err != nil {
		return err
	}
	if !endsWithNewline {
		sb.WriteString("\n")
	}
	for _, e := range entries {
		sb.WriteString(FormatLine(e))
		sb.WriteString("\n")
	}

	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("open log %s: %w", path, err)
	}
	defer func() {
		err = multierr.Append(err, f.Close())
	}()

	if _, err := f.WriteString(sb.String()); err != nil {
		return fmt.Errorf("write log %s: %w", path, err)
	}

	s.cache.Del([]byte(username))
	if s.metrics != nil {
		s.metrics.CounterEntriesRecorded.Add(float64(len(entries)))
	}

	log.Debugf("records: appended %d entries for [%s]", len(entries), username)

	return nil
}

// Load returns the user's whole log in insertion order. A missing log is not
// an error: an empty slice is returned. Malformed lines are skipped.
func (s *Store) Load(ctx context.Context, username string) (_ []Entry, err error) {
	_, span := tracing.GlobalTracer.Start(ctx, "records.load")
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()

	path, err := s.logPath(username)
	if err != nil {
		return nil, err
	}

	mu := s.userLock(username)
	mu.Lock()
	defer mu.Unlock()

	stat, err := os.Stat(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			s.cache.Del([]byte(username))
			return []Entry{}, nil
		}
		return nil, fmt.Errorf("stat log %s: %w", path, err)
	}
	version := fileVersion(stat)

	if cached, err := s.cache.Get([]byte(username)); err == nil {
		if cachedVersion, body, ok := strings.Cut(string(cached), "\n"); ok && cachedVersion == version {
			span.SetAttributes(attribute.Bool("cache.hit", true))
			entries, _ := ParseLines(strings.Split(body, "\n"))
			return entries, nil
		}
		// written to since, possibly by another process
		s.cache.Del([]byte(username))
	}

	lines, err := readLines(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return []Entry{}, nil
		}
		return nil, fmt.Errorf("read log %s: %w", path, err)
	}

	entries, skipped := ParseLines(lines)
	if skipped > 0 {
		log.Tracef("records: skipped %d malformed lines in log of [%s]", skipped, username)
		if s.metrics != nil {
			s.metrics.CounterMalformedLines.WithLabelValues("records").Add(float64(skipped))
		}
	}

	// tagged with the stat taken before reading
	formatted := make([]string, 0, len(entries))
	for _, e := range entries {
		formatted = append(formatted, FormatLine(e))
	}
	cached := version + "\n" + strings.Join(formatted, "\n")
	if err := s.cache.Set([]byte(username), []byte(cached), cacheExpireNever); err != nil {
		// too large for the cache, keep serving from disk
		log.Tracef("records: cache set for [%s]: %s", username, err)
	}

	span.SetAttributes(attribute.Int("entries", len(entries)))
	return entries, nil
}

// HasLog reports whether a log file for the user already exists.
func (s *Store) HasLog(_ context.Context, username string) (bool, error) {
	path, err := s.logPath(username)
	if err != nil {
		return false, err
	}
	if _, err := os.Stat(path); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return false, nil
		}
		return false, err
	}
	return true, nil
}

// Dir is the directory holding all user logs.
func (s *Store) Dir() string {
	return s.dir
}

// fileVersion identifies the file content a cached log was parsed from.
func fileVersion(stat os.FileInfo) string {
	return strconv.FormatInt(stat.Size(), 10) + "@" + strconv.FormatInt(stat.ModTime().UnixNano(), 10)
}

func readLines(path string) (_ []string, err error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer func() {
		err = multierr.Append(err, f.Close())
	}()

	var lines []string
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		lines = append(lines, scanner.Text())
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	return lines, nil
}

// fileEndsWithNewline is true for missing and empty files too,
// as nothing needs to be terminated before appending.
func fileEndsWithNewline(path string) (_ bool, err error) {
	f, err := os.Open(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return true, nil
		}
		return false, err
	}
	defer func() {
		err = multierr.Append(err, f.Close())
	}()

	stat, err := f.Stat()
	if err != nil {
		return false, err
	}
	if stat.Size() == 0 {
		return true, nil
	}

	last := make([]byte, 1)
	if _, err := f.ReadAt(last, stat.Size()-1); err != nil && !errors.Is(err, io.EOF) {
		return false, err
	}
	return last[0] == '\n', nil
}
