package printlog

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"
	"golang.org/x/text/encoding"

	"github.com/fruivita/sci/internal/shared"
)

const maxLineBytes = 1 << 20

// Line outcomes reported to the Recorder.
const (
	OutcomeImported = "imported"
	OutcomeRejected = "rejected"
	OutcomeFailed   = "failed"
)

// Disk is the source of log files. Files must return names in a stable order.
type Disk interface {
	Files(ctx context.Context) ([]string, error)
	Open(ctx context.Context, name string) (io.ReadCloser, error)
	Delete(ctx context.Context, name string) error
}

// LineWriter persists a validated record.
type LineWriter interface {
	Write(ctx context.Context, rec Record) (int64, error)
}

// Recorder observes per-line outcomes.
type Recorder interface {
	ObserveLine(outcome string)
}

// ImporterConfig collects Importer dependencies.
type ImporterConfig struct {
	Disk     Disk
	Parser   *Parser
	Writer   LineWriter
	Logger   *slog.Logger
	Encoding encoding.Encoding
	Workers  int
	Recorder Recorder
}

// Summary counts the outcome of one run.
type Summary struct {
	RunID    string `json:"run_id"`
	Files    int    `json:"files"`
	Deleted  int    `json:"deleted"`
	Lines    int    `json:"lines"`
	Imported int    `json:"imported"`
	Rejected int    `json:"rejected"`
	Failed   int    `json:"failed"`
}

func (s *Summary) add(f fileResult) {
	s.Files++
	if f.deleted {
		s.Deleted++
	}
	s.Lines += f.lines
	s.Imported += f.imported
	s.Rejected += f.rejected
	s.Failed += f.failed
}

type fileResult struct {
	lines    int
	imported int
	rejected int
	failed   int
	deleted  bool
}

// Importer drains the disk. Each processed file is deleted; a file that
// could not be read completely stays for the next run.
type Importer struct {
	disk     Disk
	parser   *Parser
	writer   LineWriter
	logger   *slog.Logger
	encoding encoding.Encoding
	workers  int
	recorder Recorder
}

// NewImporter validates cfg and builds an Importer.
func NewImporter(cfg ImporterConfig) (*Importer, error) {
	if cfg.Disk == nil {
		return nil, errors.New("printlog: disk required")
	}
	if cfg.Writer == nil {
		return nil, errors.New("printlog: writer required")
	}
	imp := &Importer{
		disk:     cfg.Disk,
		parser:   cfg.Parser,
		writer:   cfg.Writer,
		logger:   cfg.Logger,
		encoding: cfg.Encoding,
		workers:  cfg.Workers,
		recorder: cfg.Recorder,
	}
	if imp.parser == nil {
		imp.parser = NewParser()
	}
	if imp.logger == nil {
		imp.logger = slog.New(slog.DiscardHandler)
	}
	if imp.encoding == nil {
		imp.encoding = encoding.Nop
	}
	if imp.workers < 1 {
		imp.workers = 1
	}
	return imp, nil
}

// Run imports every file on the disk. It fails only when the disk cannot be
// listed or ctx ends; line and file failures are logged and counted.
func (i *Importer) Run(ctx context.Context) (Summary, error) {
	started := time.Now()
	summary := Summary{RunID: uuid.NewString()}
	logger := i.logger.With(slog.String("run_id", summary.RunID))

	files, err := i.disk.Files(ctx)
	if err != nil {
		return summary, fmt.Errorf("printlog: list files: %w", err)
	}

	var mu sync.Mutex
	var g errgroup.Group
	g.SetLimit(i.workers)
	for _, name := range files {
		g.Go(func() error {
			if ctx.Err() != nil {
				return nil
			}
			res := i.importFile(ctx, logger.With(slog.String("file", name)), name)
			mu.Lock()
			summary.add(res)
			mu.Unlock()
			return nil
		})
	}
	_ = g.Wait()

	logger.Log(ctx, shared.LevelNotice, "print log import finished",
		slog.Int("files", summary.Files),
		slog.Int("deleted", summary.Deleted),
		slog.Int("lines", summary.Lines),
		slog.Int("imported", summary.Imported),
		slog.Int("rejected", summary.Rejected),
		slog.Int("failed", summary.Failed),
		slog.Duration("elapsed", time.Since(started)),
	)
	if err := ctx.Err(); err != nil {
		return summary, err
	}
	return summary, nil
}

func (i *Importer) importFile(ctx context.Context, logger *slog.Logger, name string) fileResult {
	var res fileResult
	logger.Log(ctx, shared.LevelNotice, "print log file started")

	rc, err := i.disk.Open(ctx, name)
	if err != nil {
		logger.Log(ctx, shared.LevelCritical, "print log file unreadable", slog.Any("error", err))
		return res
	}
	defer rc.Close()

	reader := bufio.NewReaderSize(i.encoding.NewDecoder().Reader(rc), 64*1024)
	first := true
	for {
		if err := ctx.Err(); err != nil {
			logger.Warn("print log file interrupted", slog.Any("error", err))
			return res
		}
		raw, tooLong, err := readLine(reader)
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			logger.Log(ctx, shared.LevelCritical, "print log file read failed", slog.Any("error", err))
			return res
		}
		if first {
			raw = strings.TrimPrefix(raw, "\ufeff")
			first = false
		}
		if tooLong {
			res.lines++
			res.rejected++
			logger.Warn("print log line rejected",
				slog.String("line", raw[:min(len(raw), 256)]+"..."),
				slog.String("field", "line"),
				slog.String("rule", "max"),
				slog.Int("bytes", maxLineBytes),
			)
			i.observe(OutcomeRejected)
			continue
		}
		if strings.TrimSpace(raw) == "" {
			continue
		}
		res.lines++
		i.importLine(ctx, logger, raw, &res)
	}

	logger.Log(ctx, shared.LevelNotice, "print log file finished",
		slog.Int("lines", res.lines),
		slog.Int("imported", res.imported),
		slog.Int("rejected", res.rejected),
		slog.Int("failed", res.failed),
	)
	if err := i.disk.Delete(ctx, name); err != nil {
		logger.Error("print log file not deleted", slog.Any("error", err))
		return res
	}
	res.deleted = true
	return res
}

// readLine returns the next line without its terminator. A line longer than
// maxLineBytes is consumed to its end and returned truncated with tooLong set.
// io.EOF is returned only when no bytes remain.
func readLine(r *bufio.Reader) (line string, tooLong bool, err error) {
	var buf []byte
	read := false
	total := 0
	for {
		chunk, isPrefix, err := r.ReadLine()
		if err != nil {
			if errors.Is(err, io.EOF) && read {
				return string(buf), tooLong, nil
			}
			return "", false, err
		}
		read = true
		total += len(chunk)
		if room := maxLineBytes - len(buf); room > 0 {
			buf = append(buf, chunk[:min(len(chunk), room)]...)
		}
		tooLong = total > maxLineBytes
		if !isPrefix {
			return string(buf), tooLong, nil
		}
	}
}

func (i *Importer) importLine(ctx context.Context, logger *slog.Logger, raw string, res *fileResult) {
	rec, err := i.parser.Parse(raw)
	if err != nil {
		attrs := []any{slog.String("line", raw), slog.Any("error", err)}
		var lineErr *LineError
		if errors.As(err, &lineErr) {
			attrs = append(attrs, slog.String("field", lineErr.Field), slog.String("rule", lineErr.Rule))
		}
		logger.Log(ctx, slog.LevelWarn, "print log line rejected", attrs...)
		res.rejected++
		i.observe(OutcomeRejected)
		return
	}
	if _, err := i.writer.Write(ctx, rec); err != nil {
		logger.Log(ctx, shared.LevelCritical, "print log line not persisted",
			slog.String("line", raw),
			slog.Any("error", err),
		)
		res.failed++
		i.observe(OutcomeFailed)
		return
	}
	res.imported++
	i.observe(OutcomeImported)
}

func (i *Importer) observe(outcome string) {
	if i.recorder != nil {
		i.recorder.ObserveLine(outcome)
	}
}
