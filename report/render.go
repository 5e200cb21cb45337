package report

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strconv"

	"github.com/fatih/color"
	"github.com/goliatone/go-callcache/cache"
	"github.com/mattn/go-isatty"
	"github.com/olekukonko/tablewriter"
	"go.uber.org/zap"
)

// Renderer writes a report somewhere.
type Renderer interface {
	Render(w io.Writer, r Report) error
}

// TableRenderer prints an ASCII table followed by one recommendation per target.
type TableRenderer struct {
	color bool
}

// TableOption configures a TableRenderer.
type TableOption func(*TableRenderer)

// WithColor colors recommendation lines by benefit. Colors are only written
// when the render target is a terminal and NO_COLOR is unset.
func WithColor(enabled bool) TableOption {
	return func(t *TableRenderer) {
		t.color = enabled
	}
}

// NewTableRenderer creates a table renderer without colors.
func NewTableRenderer(opts ...TableOption) *TableRenderer {
	t := &TableRenderer{}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

var tableHeader = []string{
	"Function",
	"Calls",
	"Cache Hits",
	"Cache Misses",
	"Total Time (s)",
	"Est. Time Saved (s)",
	"Benefit",
}

// Render implements Renderer.
func (t *TableRenderer) Render(w io.Writer, r Report) error {
	table := tablewriter.NewWriter(w)
	table.SetHeader(tableHeader)
	table.SetAutoFormatHeaders(false)
	table.SetAutoWrapText(false)
	table.SetColumnAlignment([]int{
		tablewriter.ALIGN_LEFT,
		tablewriter.ALIGN_RIGHT,
		tablewriter.ALIGN_RIGHT,
		tablewriter.ALIGN_RIGHT,
		tablewriter.ALIGN_RIGHT,
		tablewriter.ALIGN_RIGHT,
		tablewriter.ALIGN_LEFT,
	})

	for _, row := range r.Rows {
		table.Append([]string{
			row.Target,
			strconv.FormatInt(row.Calls, 10),
			strconv.FormatInt(row.Hits, 10),
			strconv.FormatInt(row.Misses, 10),
			seconds(row.TotalTime.Seconds()),
			seconds(row.TimeSaved.Seconds()),
			string(row.Benefit),
		})
	}
	table.Render()

	if _, err := fmt.Fprintln(w, "\nCaching Recommendations:"); err != nil {
		return err
	}
	colorize := t.color && isTerminal(w)
	for _, row := range r.Rows {
		line := row.Target + ": " + row.Recommendation
		if !colorize {
			if _, err := fmt.Fprintln(w, line); err != nil {
				return err
			}
			continue
		}
		if _, err := benefitColor(row.Benefit).Fprintln(w, line); err != nil {
			return err
		}
	}
	return nil
}

// isTerminal inspects w itself. color.NoColor only reflects os.Stdout.
func isTerminal(w io.Writer) bool {
	if _, set := os.LookupEnv("NO_COLOR"); set {
		return false
	}
	f, ok := w.(interface{ Fd() uintptr })
	if !ok {
		return false
	}
	return isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
}

func benefitColor(b Benefit) *color.Color {
	var c *color.Color
	switch b {
	case BenefitHigh:
		c = color.New(color.FgGreen)
	case BenefitMedium:
		c = color.New(color.FgYellow)
	default:
		c = color.New(color.FgRed)
	}
	c.EnableColor()
	return c
}

func seconds(s float64) string {
	return strconv.FormatFloat(s, 'f', 6, 64)
}

// JSONRenderer writes the report as indented JSON.
type JSONRenderer struct{}

// Render implements Renderer.
func (JSONRenderer) Render(w io.Writer, r Report) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(r)
}

// LogRenderer writes one log entry per row and ignores the writer.
type LogRenderer struct {
	logger *zap.Logger
}

// NewLogRenderer creates a LogRenderer. A nil logger disables output.
func NewLogRenderer(logger *zap.Logger) *LogRenderer {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &LogRenderer{logger: logger}
}

// Render implements Renderer.
func (l *LogRenderer) Render(_ io.Writer, r Report) error {
	for _, row := range r.Rows {
		l.logger.Info("call cache report",
			zap.String("target", row.Target),
			zap.Int64("calls", row.Calls),
			zap.Int64("hits", row.Hits),
			zap.Int64("misses", row.Misses),
			zap.Float64("hit_ratio", row.HitRatio),
			zap.Duration("total_time", row.TotalTime),
			zap.Duration("time_saved", row.TimeSaved),
			zap.String("benefit", string(row.Benefit)),
			zap.String("recommendation", row.Recommendation),
		)
	}
	return nil
}

// FromConfig selects the renderer and output described by cfg.
// It returns a nil Renderer when reporting is disabled.
func FromConfig(cfg cache.ReportConfig, logger *zap.Logger) (Renderer, io.Writer) {
	if !cfg.Enabled {
		return nil, nil
	}

	var out io.Writer = os.Stdout
	if cfg.Output == cache.OutputStderr {
		out = os.Stderr
	}

	switch cfg.Format {
	case cache.ReportFormatJSON:
		return JSONRenderer{}, out
	case cache.ReportFormatLog:
		return NewLogRenderer(logger), out
	default:
		return NewTableRenderer(WithColor(cfg.Color)), out
	}
}
